package vtu

import (
	"fmt"
	"strconv"
	"strings"
)

// ScalarKind is the element type of a data array.
type ScalarKind uint8

const (
	Int8 ScalarKind = iota + 1
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64
)

var scalarKindNames = map[ScalarKind]string{
	Int8:    "Int8",
	Int16:   "Int16",
	Int32:   "Int32",
	Int64:   "Int64",
	UInt8:   "UInt8",
	UInt16:  "UInt16",
	UInt32:  "UInt32",
	UInt64:  "UInt64",
	Float32: "Float32",
	Float64: "Float64",
}

var scalarKindsByName = invert(scalarKindNames)

func invert[K, V comparable](m map[K]V) map[V]K {
	out := make(map[V]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

func (k ScalarKind) String() string {
	if s, ok := scalarKindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Size returns the width of one element in bytes.
func (k ScalarKind) Size() int {
	switch k {
	case Int8, UInt8:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32:
		return 4
	case Int64, UInt64, Float64:
		return 8
	default:
		return 0
	}
}

func (k ScalarKind) isFloat() bool { return k == Float32 || k == Float64 }

func (k ScalarKind) isUnsigned() bool {
	return k == UInt8 || k == UInt16 || k == UInt32 || k == UInt64
}

// ParseScalarKind resolves a type attribute such as "Float64".
func ParseScalarKind(name string) (ScalarKind, error) {
	k, ok := scalarKindsByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, name)
	}
	return k, nil
}

// Cell shape codes used by the format.
const (
	cellVertex       uint8 = 1
	cellLine         uint8 = 3
	cellTriangle     uint8 = 5
	cellPolygon      uint8 = 7
	cellQuad         uint8 = 9
	cellTetra        uint8 = 10
	cellHexahedron   uint8 = 12
	cellWedge        uint8 = 13
	cellPyramid      uint8 = 14
	cellPentaPrism   uint8 = 15
	cellHexaPrism    uint8 = 16
	cellLine3        uint8 = 21
	cellTriangle6    uint8 = 22
	cellQuad8        uint8 = 23
	cellTetra10      uint8 = 24
	cellHexahedron20 uint8 = 25
	cellWedge15      uint8 = 26
	cellPyramid13    uint8 = 27
	cellQuad9        uint8 = 28
	cellHexahedron27 uint8 = 29
	cellQuad6        uint8 = 30
	cellWedge12      uint8 = 31
	cellWedge18      uint8 = 32
	cellHexahedron24 uint8 = 33
	cellTriangle7    uint8 = 34
	cellLine4        uint8 = 35
	cellPolyhedron   uint8 = 42
)

const (
	shapePolygon    = "polygon"
	shapePolyhedron = "polyhedron"
)

var cellCodeNames = map[uint8]string{
	cellVertex:       "vertex",
	cellLine:         "line",
	cellTriangle:     "triangle",
	cellPolygon:      shapePolygon,
	cellQuad:         "quad",
	cellTetra:        "tetra",
	cellHexahedron:   "hexahedron",
	cellWedge:        "wedge",
	cellPyramid:      "pyramid",
	cellPentaPrism:   "penta_prism",
	cellHexaPrism:    "hexa_prism",
	cellLine3:        "line3",
	cellTriangle6:    "triangle6",
	cellQuad8:        "quad8",
	cellTetra10:      "tetra10",
	cellHexahedron20: "hexahedron20",
	cellWedge15:      "wedge15",
	cellPyramid13:    "pyramid13",
	cellQuad9:        "quad9",
	cellHexahedron27: "hexahedron27",
	cellQuad6:        "quad6",
	cellWedge12:      "wedge12",
	cellWedge18:      "wedge18",
	cellHexahedron24: "hexahedron24",
	cellTriangle7:    "triangle7",
	cellLine4:        "line4",
	cellPolyhedron:   shapePolyhedron,
}

var cellCodesByName = invert(cellCodeNames)

var nodesPerCell = map[string]int{
	"vertex":       1,
	"line":         2,
	"triangle":     3,
	"quad":         4,
	"tetra":        4,
	"hexahedron":   8,
	"wedge":        6,
	"pyramid":      5,
	"penta_prism":  10,
	"hexa_prism":   12,
	"line3":        3,
	"triangle6":    6,
	"quad8":        8,
	"tetra10":      10,
	"hexahedron20": 20,
	"wedge15":      15,
	"pyramid13":    13,
	"quad9":        9,
	"hexahedron27": 27,
	"quad6":        6,
	"wedge12":      12,
	"wedge18":      18,
	"hexahedron24": 24,
	"triangle7":    7,
	"line4":        4,
}

// The document orders wedge nodes so the first triangle's normal points
// outwards; the mesh model uses the inward convention. The permutation is its
// own inverse.
var wedgeOrder = []int{0, 2, 1, 3, 5, 4}

// nodeOrder returns the permutation converting between document and mesh
// node order for a cell of the given shape.
func nodeOrder(shape string, n int) []int {
	if shape == "wedge" && n == len(wedgeOrder) {
		return wedgeOrder
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

type shapeKind uint8

const (
	shapeFixed shapeKind = iota + 1
	shapeVariablePolygon
	shapeVariablePolyhedron
)

// cellShape is a classified shape tag. For fixed shapes nodes comes from the
// table; for polygons and polyhedra it is the node count of the block, or 0
// when classified from a cell code.
type cellShape struct {
	kind  shapeKind
	name  string
	code  uint8
	nodes int
}

func (s cellShape) tag() string {
	if s.kind == shapeFixed {
		return s.name
	}
	return s.name + strconv.Itoa(s.nodes)
}

// shapeFromCode classifies a document cell code.
func shapeFromCode(code int64) (cellShape, error) {
	if code < 0 || code > 255 {
		return cellShape{}, fmt.Errorf("%w: code %d", ErrUnsupportedCell, code)
	}
	name, ok := cellCodeNames[uint8(code)]
	if !ok {
		return cellShape{}, fmt.Errorf("%w: code %d", ErrUnsupportedCell, code)
	}
	switch name {
	case shapePolygon:
		return cellShape{kind: shapeVariablePolygon, name: name, code: uint8(code)}, nil
	case shapePolyhedron:
		return cellShape{kind: shapeVariablePolyhedron, name: name, code: uint8(code)}, nil
	}
	return cellShape{kind: shapeFixed, name: name, code: uint8(code), nodes: nodesPerCell[name]}, nil
}

// shapeFromTag classifies a CellBlock type such as "tetra" or "polygon5".
func shapeFromTag(tag string) (cellShape, error) {
	if code, ok := cellCodesByName[tag]; ok {
		if tag == shapePolygon || tag == shapePolyhedron {
			return cellShape{}, fmt.Errorf("%w: %q needs a node count", ErrUnsupportedCell, tag)
		}
		return cellShape{kind: shapeFixed, name: tag, code: code, nodes: nodesPerCell[tag]}, nil
	}
	for _, v := range []struct {
		prefix string
		kind   shapeKind
		code   uint8
	}{
		{shapePolyhedron, shapeVariablePolyhedron, cellPolyhedron},
		{shapePolygon, shapeVariablePolygon, cellPolygon},
	} {
		rest, ok := strings.CutPrefix(tag, v.prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 {
			return cellShape{}, fmt.Errorf("%w: %q", ErrUnsupportedCell, tag)
		}
		return cellShape{kind: v.kind, name: v.prefix, code: v.code, nodes: n}, nil
	}
	return cellShape{}, fmt.Errorf("%w: %q", ErrUnsupportedCell, tag)
}
