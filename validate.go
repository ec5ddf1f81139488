package vtu

import (
	"fmt"
)

// Validate checks that m is consistent enough to be written.
func Validate(m *Mesh) error {
	return validateMesh(m)
}

func validateMesh(m *Mesh) error {
	if m == nil {
		return fmt.Errorf("%w: mesh is nil", ErrValidation)
	}
	if m.Points.Kind() == 0 {
		return fmt.Errorf("%w: points have unsupported data %T", ErrValidation, m.Points.Data)
	}
	if c := m.Points.width(); c != 2 && c != 3 {
		return fmt.Errorf("%w: points have %d components, want 2 or 3", ErrValidation, c)
	}
	if m.Points.Len()%m.Points.width() != 0 {
		return fmt.Errorf("%w: %d point values do not split into tuples", ErrValidation, m.Points.Len())
	}
	numPoints := int64(m.NumPoints())

	for i, b := range m.Cells {
		shape, err := shapeFromTag(b.Type)
		if err != nil {
			return fmt.Errorf("%w: block %d: %v", ErrValidation, i, err)
		}
		for j, row := range b.Data {
			if len(row) != shape.nodes {
				return fmt.Errorf("%w: block %d (%s) cell %d has %d nodes, want %d", ErrValidation, i, b.Type, j, len(row), shape.nodes)
			}
			for _, p := range row {
				if p < 0 || p >= numPoints {
					return fmt.Errorf("%w: block %d cell %d references point %d of %d", ErrValidation, i, j, p, numPoints)
				}
			}
		}
	}

	for name, a := range m.PointData {
		if a.Kind() == 0 {
			return fmt.Errorf("%w: point data %q has unsupported data %T", ErrValidation, name, a.Data)
		}
		if int64(a.Tuples()) != numPoints {
			return fmt.Errorf("%w: point data %q has %d tuples for %d points", ErrValidation, name, a.Tuples(), numPoints)
		}
	}
	for name, a := range m.FieldData {
		if a.Kind() == 0 {
			return fmt.Errorf("%w: field data %q has unsupported data %T", ErrValidation, name, a.Data)
		}
	}
	for name, arrays := range m.CellData {
		if name == FacesOfCellsKey {
			return fmt.Errorf("%w: cell data name %q is reserved for Mesh.CellFaces", ErrValidation, name)
		}
		if len(arrays) != len(m.Cells) {
			return fmt.Errorf("%w: cell data %q has %d arrays for %d blocks", ErrValidation, name, len(arrays), len(m.Cells))
		}
		for i, a := range arrays {
			if a.Kind() == 0 {
				return fmt.Errorf("%w: cell data %q block %d has unsupported data %T", ErrValidation, name, i, a.Data)
			}
			if a.Tuples() != m.Cells[i].Len() {
				return fmt.Errorf("%w: cell data %q block %d has %d tuples for %d cells", ErrValidation, name, i, a.Tuples(), m.Cells[i].Len())
			}
		}
	}
	return validateFaces(m, numPoints)
}

func validateFaces(m *Mesh, numPoints int64) error {
	if m.CellFaces != nil && len(m.CellFaces) != len(m.Cells) {
		return fmt.Errorf("%w: %d face lists for %d blocks", ErrValidation, len(m.CellFaces), len(m.Cells))
	}
	for i, b := range m.Cells {
		shape, _ := shapeFromTag(b.Type)
		var faces []FaceList
		if m.CellFaces != nil {
			faces = m.CellFaces[i]
		}
		if shape.kind != shapeVariablePolyhedron {
			if faces != nil {
				return fmt.Errorf("%w: block %d (%s) has faces", ErrValidation, i, b.Type)
			}
			continue
		}
		if len(faces) != b.Len() {
			return fmt.Errorf("%w: polyhedron block %d has %d face lists for %d cells", ErrValidation, i, len(faces), b.Len())
		}
		for j, fl := range faces {
			if len(fl) == 0 {
				return fmt.Errorf("%w: polyhedron block %d cell %d has no faces", ErrValidation, i, j)
			}
			for _, face := range fl {
				if len(face) == 0 {
					return fmt.Errorf("%w: polyhedron block %d cell %d has an empty face", ErrValidation, i, j)
				}
				for _, p := range face {
					if p < 0 || p >= numPoints {
						return fmt.Errorf("%w: polyhedron block %d cell %d face references point %d of %d", ErrValidation, i, j, p, numPoints)
					}
				}
			}
		}
	}
	return nil
}
