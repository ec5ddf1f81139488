// Package vtu reads and writes VTK XML UnstructuredGrid (.vtu) documents.
//
// A .vtu file is an XML document describing an unstructured mesh: points,
// cells given as flat connectivity/offsets/types arrays, and named arrays
// attached to points, cells or the whole grid. Arrays are stored as ASCII
// text, as inline base64, or in one shared AppendedData section that may
// hold base64 or raw bytes.
//
// # File Format Overview
//
// Binary arrays begin with a length header whose integer type is set by the
// header_type attribute. Compressed arrays instead begin with a block header:
//   - number of blocks
//   - uncompressed block size (32 KiB)
//   - uncompressed size of the last block
//   - compressed size of every block
//
// Blocks are compressed independently with zlib, LZMA (xz) or LZ4.
//
// # Basic Usage
//
// To write a mesh:
//
//	m := &vtu.Mesh{
//		Points: vtu.NewArray([]float64{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1}, 3),
//		Cells:  []vtu.CellBlock{{Type: "tetra", Data: [][]int64{{0, 1, 2, 3}}}},
//	}
//	err := vtu.WriteFile("out.vtu", m, vtu.WithCompressor(vtu.CompressorLZMA))
//
// To read one:
//
//	m, err := vtu.ReadFile("in.vtu")
//
// Cells are returned as blocks of one shape each. Polygons and polyhedra are
// grouped by node count under tags such as "polygon5" or "polyhedron8", and
// the faces of polyhedron cells are in [Mesh.CellFaces].
//
// # Security Considerations
//
// Decoding materializes the whole document. [Limits] bounds the document
// size, the decoded size and block count of each array, and the number of
// pieces.
package vtu
