package vtu

import "errors"

var (
	ErrStructure       = errors.New("vtu: invalid document structure")
	ErrArray           = errors.New("vtu: invalid data array")
	ErrPolyhedron      = errors.New("vtu: invalid polyhedron faces")
	ErrUnsupportedType = errors.New("vtu: unsupported scalar type")
	ErrUnsupportedCell = errors.New("vtu: unsupported cell type")
	ErrLimitExceeded   = errors.New("vtu: limit exceeded")
	ErrValidation      = errors.New("vtu: validation failed")
)
