package vtu

import (
	"fmt"
	"reflect"
)

// Number is the set of element types an Array may hold.
type Number interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

// Array is a flat numeric array with an optional tuple width.
//
// Data is one of []int8, []int16, []int32, []int64, []uint8, []uint16,
// []uint32, []uint64, []float32 or []float64. Components <= 1 means one value
// per tuple; otherwise values are stored tuple by tuple.
type Array struct {
	Data       any
	Components int
}

// NewArray wraps data with the given tuple width.
func NewArray[T Number](data []T, components int) Array {
	return Array{Data: data, Components: components}
}

var kindTypes = map[ScalarKind]reflect.Type{
	Int8:    reflect.TypeFor[[]int8](),
	Int16:   reflect.TypeFor[[]int16](),
	Int32:   reflect.TypeFor[[]int32](),
	Int64:   reflect.TypeFor[[]int64](),
	UInt8:   reflect.TypeFor[[]uint8](),
	UInt16:  reflect.TypeFor[[]uint16](),
	UInt32:  reflect.TypeFor[[]uint32](),
	UInt64:  reflect.TypeFor[[]uint64](),
	Float32: reflect.TypeFor[[]float32](),
	Float64: reflect.TypeFor[[]float64](),
}

var kindsByType = invert(kindTypes)

// Kind returns the scalar kind of the data, or 0 if Data is not a supported
// slice type.
func (a Array) Kind() ScalarKind {
	if a.Data == nil {
		return 0
	}
	return kindsByType[reflect.TypeOf(a.Data)]
}

// Len returns the number of values.
func (a Array) Len() int {
	if a.Kind() == 0 {
		return 0
	}
	return reflect.ValueOf(a.Data).Len()
}

// Tuples returns the number of tuples.
func (a Array) Tuples() int {
	return a.Len() / a.width()
}

func (a Array) width() int {
	if a.Components < 1 {
		return 1
	}
	return a.Components
}

func makeArray(kind ScalarKind, n, components int) Array {
	t, ok := kindTypes[kind]
	if !ok {
		return Array{}
	}
	return Array{Data: reflect.MakeSlice(t, n, n).Interface(), Components: components}
}

func toInt64[T Number](s []T) []int64 {
	out := make([]int64, len(s))
	for i, v := range s {
		out[i] = int64(v)
	}
	return out
}

func toFloat64[T Number](s []T) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}

// Int64s converts integer data to int64. Float data is an error.
func (a Array) Int64s() ([]int64, error) {
	switch d := a.Data.(type) {
	case []int8:
		return toInt64(d), nil
	case []int16:
		return toInt64(d), nil
	case []int32:
		return toInt64(d), nil
	case []int64:
		return d, nil
	case []uint8:
		return toInt64(d), nil
	case []uint16:
		return toInt64(d), nil
	case []uint32:
		return toInt64(d), nil
	case []uint64:
		return toInt64(d), nil
	default:
		return nil, fmt.Errorf("%w: expected integer data, got %s", ErrArray, a.Kind())
	}
}

// Float64s converts the data to float64.
func (a Array) Float64s() []float64 {
	switch d := a.Data.(type) {
	case []int8:
		return toFloat64(d)
	case []int16:
		return toFloat64(d)
	case []int32:
		return toFloat64(d)
	case []int64:
		return toFloat64(d)
	case []uint8:
		return toFloat64(d)
	case []uint16:
		return toFloat64(d)
	case []uint32:
		return toFloat64(d)
	case []uint64:
		return toFloat64(d)
	case []float32:
		return toFloat64(d)
	case []float64:
		return d
	default:
		return nil
	}
}

// sliceTuples returns tuples [start, end) sharing the backing storage.
func sliceTuples(a Array, start, end int) Array {
	w := a.width()
	v := reflect.ValueOf(a.Data).Slice(start*w, end*w)
	return Array{Data: v.Interface(), Components: a.Components}
}

// takeTuples copies the tuples at the given indices, in order.
func takeTuples(a Array, idx []int) Array {
	w := a.width()
	src := reflect.ValueOf(a.Data)
	dst := reflect.MakeSlice(src.Type(), 0, len(idx)*w)
	for _, i := range idx {
		dst = reflect.AppendSlice(dst, src.Slice(i*w, (i+1)*w))
	}
	return Array{Data: dst.Interface(), Components: a.Components}
}

// concatArrays joins arrays of identical kind and width.
func concatArrays(parts []Array) (Array, error) {
	if len(parts) == 0 {
		return Array{}, nil
	}
	first := parts[0]
	kind := first.Kind()
	if kind == 0 {
		return Array{}, fmt.Errorf("%w: unsupported data type %T", ErrUnsupportedType, first.Data)
	}
	out := reflect.MakeSlice(kindTypes[kind], 0, 0)
	for _, p := range parts {
		if p.Kind() != kind || p.width() != first.width() {
			return Array{}, fmt.Errorf("%w: cannot join %s/%d with %s/%d", ErrArray, kind, first.width(), p.Kind(), p.width())
		}
		out = reflect.AppendSlice(out, reflect.ValueOf(p.Data))
	}
	return Array{Data: out.Interface(), Components: first.Components}, nil
}

// promoteTo3D appends a zero third component to 2D tuples.
func promoteTo3D(a Array) Array {
	if a.Components != 2 {
		return a
	}
	n := a.Tuples()
	out := makeArray(a.Kind(), n*3, 3)
	src := reflect.ValueOf(a.Data)
	dst := reflect.ValueOf(out.Data)
	for i := 0; i < n; i++ {
		reflect.Copy(dst.Slice(i*3, i*3+2), src.Slice(i*2, i*2+2))
	}
	return out
}
