package vtu

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/logicossoftware/go-vtu/internal/endian"
)

const fileComment = " This file was created by go-vtu "

// WriteFile writes m to path, creating or truncating the file.
func WriteFile(path string, m *Mesh, opts ...WriteOption) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Encode(f, m, opts...)
}

// Encode writes m to w as a VTK XML UnstructuredGrid document.
//
// The mesh is validated first and is never modified. By default, Encode will:
//   - Write base64 binary arrays inline in the grid
//   - Compress arrays with zlib in 32 KiB blocks
//   - Use UInt32 array headers in the host byte order
//
// 2D points are written as 3D with a zero third component. Connectivity and
// offsets are Int64, cell types UInt8. Polyhedron blocks add faces and
// faceoffsets arrays with one faceoffsets entry per cell, -1 for cells that
// are not polyhedra.
//
// Use WriteOption functions to customize this behavior:
//   - WithBinary(false): ASCII text arrays
//   - WithCompressor(c): change or disable block compression
//   - WithHeaderType(k): change the array header integer kind
//   - WithAppended(true): store arrays in one base64 AppendedData section
//   - WithRawAppended(true): store arrays in AppendedData as raw bytes
//   - WithByteOrder(e): declare and write another byte order
func Encode(w io.Writer, m *Mesh, opts ...WriteOption) error {
	cfg := writeConfig{
		binary:     true,
		compressor: CompressorZLib,
		headerType: UInt32,
		order:      endian.Native(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.order == nil {
		cfg.order = endian.Native()
	}
	if cfg.rawAppended {
		cfg.appended = true
	}
	if cfg.headerType.Size() == 0 || cfg.headerType.isFloat() {
		return fmt.Errorf("%w: header type %s is not an integer", ErrUnsupportedType, cfg.headerType)
	}
	if _, ok := compressorNames[cfg.compressor]; !ok && cfg.compressor != CompressorNone {
		return fmt.Errorf("%w: unknown compressor %d", ErrValidation, cfg.compressor)
	}
	if !cfg.binary {
		cfg.logger.Warn("vtu: ASCII arrays are large and lose float precision; use them for debugging only")
		cfg.compressor = CompressorNone
		cfg.appended = false
		cfg.rawAppended = false
	}

	if err := validateMesh(m); err != nil {
		return err
	}

	points := m.Points
	if points.Components == 2 {
		cfg.logger.Warn("vtu: promoting 2D points to 3D")
		points = promoteTo3D(points)
	}

	cells, err := flattenCells(m)
	if err != nil {
		return err
	}

	aw := &arrayWriter{
		cfg:   cfg,
		codec: arrayCodec{order: cfg.order, headerKind: cfg.headerType, compressor: cfg.compressor},
	}
	root := newNode(rootTag,
		"type", documentType,
		"version", Version01,
		"byte_order", endian.Name(cfg.order),
		"header_type", cfg.headerType.String(),
	)
	if cfg.compressor != CompressorNone {
		root.setAttr("compressor", cfg.compressor.String())
	}
	root.Comment = fileComment
	grid := root.add(newNode(documentType))

	if len(m.FieldData) > 0 {
		if err := aw.section(grid, "FieldData", m.FieldData); err != nil {
			return err
		}
	}

	piece := grid.add(newNode("Piece",
		"NumberOfPoints", strconv.Itoa(points.Tuples()),
		"NumberOfCells", strconv.Itoa(len(cells.types)),
	))
	if err := aw.section(piece, "Points", map[string]Array{"Points": points}); err != nil {
		return err
	}

	named := []namedArray{
		{arrayConnectivity, NewArray(cells.connectivity, 0)},
		{arrayOffsets, NewArray(cells.offsets, 0)},
		{arrayTypes, NewArray(cells.types, 0)},
	}
	if cells.faces != nil {
		named = append(named,
			namedArray{arrayFaces, NewArray(cells.faces, 0)},
			namedArray{arrayFaceOffsets, NewArray(cells.faceOffsets, 0)},
		)
	}
	cellsNode := piece.add(newNode("Cells"))
	for _, na := range named {
		if err := aw.dataArray(cellsNode, na.name, na.a); err != nil {
			return err
		}
	}

	if len(m.PointData) > 0 {
		if err := aw.section(piece, "PointData", m.PointData); err != nil {
			return err
		}
	}
	if len(m.CellData) > 0 {
		joined := make(map[string]Array, len(m.CellData))
		for name, arrays := range m.CellData {
			if len(arrays) == 0 {
				continue
			}
			a, err := concatArrays(arrays)
			if err != nil {
				return fmt.Errorf("%w: cell data %q: %v", ErrValidation, name, err)
			}
			joined[name] = a
		}
		if err := aw.section(piece, "CellData", joined); err != nil {
			return err
		}
	}

	cfg.logger.Debug("vtu: encoding mesh",
		"points", points.Tuples(),
		"cells", len(cells.types),
		"blocks", len(m.Cells),
		"compressor", cfg.compressor.String(),
		"appended", cfg.appended,
		"native_order", endian.IsNative(cfg.order),
	)

	if !cfg.appended {
		return writeXML(w, root)
	}
	if !cfg.rawAppended {
		root.add(newNode("AppendedData", "encoding", "base64")).Text = "_" + string(aw.blob)
		return writeXML(w, root)
	}

	// Raw bytes cannot pass through the XML encoder; write an empty section
	// and splice the data in before its end tag.
	root.add(newNode("AppendedData", "encoding", "raw"))
	var buf bytes.Buffer
	if err := writeXML(&buf, root); err != nil {
		return err
	}
	doc := buf.Bytes()
	at := bytes.LastIndex(doc, []byte(appendedClose))
	if at < 0 {
		return fmt.Errorf("%w: AppendedData end tag not written", ErrStructure)
	}
	for _, part := range [][]byte{doc[:at], []byte("_"), aw.blob, doc[at:]} {
		n, err := w.Write(part)
		if err != nil {
			return err
		}
		if n < len(part) {
			return io.ErrShortWrite
		}
	}
	return nil
}

type namedArray struct {
	name string
	a    Array
}

// arrayWriter emits DataArray elements and collects appended data.
type arrayWriter struct {
	cfg   writeConfig
	codec arrayCodec
	blob  []byte
}

// section adds a named element holding one DataArray per entry of arrays,
// in name order.
func (aw *arrayWriter) section(parent *xmlNode, tag string, arrays map[string]Array) error {
	node := parent.add(newNode(tag))
	for _, name := range slices.Sorted(maps.Keys(arrays)) {
		if err := aw.dataArray(node, name, arrays[name]); err != nil {
			return err
		}
	}
	return nil
}

func (aw *arrayWriter) dataArray(parent *xmlNode, name string, a Array) error {
	kind := a.Kind()
	if kind == 0 {
		return fmt.Errorf("%w: array %q holds %T", ErrUnsupportedType, name, a.Data)
	}
	da := newNode("DataArray", "type", kind.String(), "Name", name)
	if a.Components > 0 {
		da.setAttr("NumberOfComponents", strconv.Itoa(a.Components))
	}

	switch {
	case !aw.cfg.binary:
		text, err := encodeASCII(a)
		if err != nil {
			return err
		}
		da.setAttr("format", FormatASCII)
		da.Text = text
	case !aw.cfg.appended:
		text, err := aw.codec.encode(a)
		if err != nil {
			return err
		}
		da.setAttr("format", FormatBinary)
		da.Text = text
	default:
		da.setAttr("format", FormatAppended)
		da.setAttr("offset", strconv.Itoa(len(aw.blob)))
		if aw.cfg.rawAppended {
			runs, err := aw.codec.encodeRuns(a)
			if err != nil {
				return err
			}
			for _, r := range runs {
				aw.blob = append(aw.blob, r...)
			}
		} else {
			text, err := aw.codec.encode(a)
			if err != nil {
				return err
			}
			aw.blob = append(aw.blob, text...)
		}
	}
	parent.add(da)
	return nil
}

// flattenCells converts the mesh's cell blocks to the document's flat arrays.
// faces and faceOffsets are set only when the mesh has polyhedra.
func flattenCells(m *Mesh) (cellArraysOut, error) {
	var out cellArraysOut
	hasPolyhedra := false
	shapes := make([]cellShape, len(m.Cells))
	for i, b := range m.Cells {
		shape, err := shapeFromTag(b.Type)
		if err != nil {
			return cellArraysOut{}, err
		}
		shapes[i] = shape
		if shape.kind == shapeVariablePolyhedron && b.Len() > 0 {
			hasPolyhedra = true
		}
	}
	if hasPolyhedra {
		out.faces = []int64{}
		out.faceOffsets = []int64{}
	}

	for i, b := range m.Cells {
		shape := shapes[i]
		order := nodeOrder(shape.name, shape.nodes)
		for j, row := range b.Data {
			for _, k := range order {
				out.connectivity = append(out.connectivity, row[k])
			}
			out.offsets = append(out.offsets, int64(len(out.connectivity)))
			out.types = append(out.types, shape.code)
			if !hasPolyhedra {
				continue
			}
			if shape.kind != shapeVariablePolyhedron {
				out.faceOffsets = append(out.faceOffsets, -1)
				continue
			}
			fl := m.CellFaces[i][j]
			out.faces = append(out.faces, int64(len(fl)))
			for _, face := range fl {
				out.faces = append(out.faces, int64(len(face)))
				out.faces = append(out.faces, face...)
			}
			out.faceOffsets = append(out.faceOffsets, int64(len(out.faces)))
		}
	}
	if out.connectivity == nil {
		out.connectivity = []int64{}
		out.offsets = []int64{}
		out.types = []uint8{}
	}
	return out, nil
}

// cellArraysOut is the Cells section of a document being written.
type cellArraysOut struct {
	connectivity []int64
	offsets      []int64
	types        []uint8
	faces        []int64
	faceOffsets  []int64
}
