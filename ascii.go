package vtu

import (
	"fmt"
	"strconv"
	"strings"
)

// asciiFloatDigits is the number of digits after the point in exponent
// notation.
const asciiFloatDigits = 11

// encodeASCII formats values as space separated decimal text.
func encodeASCII(a Array) (string, error) {
	switch d := a.Data.(type) {
	case []int8:
		return joinValues(d, formatSigned), nil
	case []int16:
		return joinValues(d, formatSigned), nil
	case []int32:
		return joinValues(d, formatSigned), nil
	case []int64:
		return joinValues(d, formatSigned), nil
	case []uint8:
		return joinValues(d, formatUnsigned), nil
	case []uint16:
		return joinValues(d, formatUnsigned), nil
	case []uint32:
		return joinValues(d, formatUnsigned), nil
	case []uint64:
		return joinValues(d, formatUnsigned), nil
	case []float32:
		return joinValues(d, func(b []byte, v float32) []byte {
			return strconv.AppendFloat(b, float64(v), 'e', asciiFloatDigits, 32)
		}), nil
	case []float64:
		return joinValues(d, func(b []byte, v float64) []byte {
			return strconv.AppendFloat(b, v, 'e', asciiFloatDigits, 64)
		}), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedType, a.Data)
	}
}

func formatSigned[T int8 | int16 | int32 | int64](b []byte, v T) []byte {
	return strconv.AppendInt(b, int64(v), 10)
}

func formatUnsigned[T uint8 | uint16 | uint32 | uint64](b []byte, v T) []byte {
	return strconv.AppendUint(b, uint64(v), 10)
}

func joinValues[T Number](vals []T, format func([]byte, T) []byte) string {
	buf := make([]byte, 0, len(vals)*8)
	for i, v := range vals {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = format(buf, v)
	}
	return string(buf)
}

// decodeASCII parses whitespace separated values of the given kind.
func decodeASCII(text string, kind ScalarKind, components int) (Array, error) {
	fields := strings.Fields(text)
	switch kind {
	case Int8:
		return parseSigned[int8](fields, 8, components)
	case Int16:
		return parseSigned[int16](fields, 16, components)
	case Int32:
		return parseSigned[int32](fields, 32, components)
	case Int64:
		return parseSigned[int64](fields, 64, components)
	case UInt8:
		return parseUnsigned[uint8](fields, 8, components)
	case UInt16:
		return parseUnsigned[uint16](fields, 16, components)
	case UInt32:
		return parseUnsigned[uint32](fields, 32, components)
	case UInt64:
		return parseUnsigned[uint64](fields, 64, components)
	case Float32:
		return parseFloat[float32](fields, 32, components)
	case Float64:
		return parseFloat[float64](fields, 64, components)
	default:
		return Array{}, fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
	}
}

func parseSigned[T int8 | int16 | int32 | int64](fields []string, bits, components int) (Array, error) {
	out := make([]T, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, bits)
		if err != nil {
			return Array{}, fmt.Errorf("%w: value %d: %v", ErrArray, i, err)
		}
		out[i] = T(v)
	}
	return NewArray(out, components), nil
}

func parseUnsigned[T uint8 | uint16 | uint32 | uint64](fields []string, bits, components int) (Array, error) {
	out := make([]T, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, bits)
		if err != nil {
			return Array{}, fmt.Errorf("%w: value %d: %v", ErrArray, i, err)
		}
		out[i] = T(v)
	}
	return NewArray(out, components), nil
}

func parseFloat[T float32 | float64](fields []string, bits, components int) (Array, error) {
	out := make([]T, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, bits)
		if err != nil {
			return Array{}, fmt.Errorf("%w: value %d: %v", ErrArray, i, err)
		}
		out[i] = T(v)
	}
	return NewArray(out, components), nil
}
