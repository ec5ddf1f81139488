package vtu

// Extension is the canonical file extension of the format.
const Extension = ".vtu"

const (
	Version01 = "0.1"
	Version10 = "1.0"

	documentType = "UnstructuredGrid"
	rootTag      = "VTKFile"
)

// FacesOfCellsKey is the cell data name under which other mesh formats carry
// polyhedron face lists. The codec keeps them in Mesh.CellFaces and refuses
// ordinary cell data with this name.
const FacesOfCellsKey = "polyhedron:faces_of_cells"

// Data array formats.
const (
	FormatASCII    = "ascii"
	FormatBinary   = "binary"
	FormatAppended = "appended"
)

// Reserved names inside the Cells section.
const (
	arrayConnectivity = "connectivity"
	arrayOffsets      = "offsets"
	arrayTypes        = "types"
	arrayFaces        = "faces"
	arrayFaceOffsets  = "faceoffsets"
)

// blockSize is the uncompressed size of one compression block.
const blockSize = 32768

// FaceList holds the faces of one polyhedron cell, each face an ordered list
// of point indices.
type FaceList [][]int64

// CellBlock is a run of cells sharing one shape.
//
// Type is a fixed shape name such as "triangle", or "polygon<k>" /
// "polyhedron<k>" where k is the number of nodes per cell. Every row of Data
// has the same length.
type CellBlock struct {
	Type string
	Data [][]int64
}

// Len returns the number of cells in the block.
func (b CellBlock) Len() int { return len(b.Data) }

// Mesh is an unstructured grid.
//
// Points holds 3 components per tuple (2 are accepted on write).
// PointData arrays have one tuple per point. CellData maps a name to one array
// per cell block, in block order. FieldData is grid-global.
//
// CellFaces is nil unless the mesh contains polyhedron blocks; then it has one
// entry per block, nil for blocks that are not polyhedra.
type Mesh struct {
	Points    Array
	Cells     []CellBlock
	PointData map[string]Array
	CellData  map[string][]Array
	FieldData map[string]Array
	CellFaces [][]FaceList
}

// NumPoints returns the number of point tuples.
func (m *Mesh) NumPoints() int {
	return m.Points.Tuples()
}

// NumCells returns the total number of cells over all blocks.
func (m *Mesh) NumCells() int {
	n := 0
	for _, b := range m.Cells {
		n += b.Len()
	}
	return n
}
