package vtu

import (
	"fmt"
	"slices"
)

// cellArrays is the Cells section of one piece, converted to int64.
// faces and faceOffsets are nil unless both arrays are present.
type cellArrays struct {
	connectivity []int64
	offsets      []int64
	types        []int64
	faces        []int64
	faceOffsets  []int64
}

func (ca cellArrays) hasFaces() bool {
	return ca.faces != nil && ca.faceOffsets != nil
}

// extractCellArrays pulls the reserved arrays out of a Cells section.
func extractCellArrays(cells map[string]Array) (cellArrays, error) {
	var ca cellArrays
	var err error
	if ca.connectivity, err = cells[arrayConnectivity].Int64s(); err != nil {
		return cellArrays{}, err
	}
	if ca.offsets, err = cells[arrayOffsets].Int64s(); err != nil {
		return cellArrays{}, err
	}
	if ca.types, err = cells[arrayTypes].Int64s(); err != nil {
		return cellArrays{}, err
	}
	faces, hasFaces := cells[arrayFaces]
	faceOffsets, hasFaceOffsets := cells[arrayFaceOffsets]
	if hasFaces && hasFaceOffsets {
		if ca.faces, err = faces.Int64s(); err != nil {
			return cellArrays{}, err
		}
		if ca.faceOffsets, err = faceOffsets.Int64s(); err != nil {
			return cellArrays{}, err
		}
	}
	return ca, nil
}

// cellGroup is one homogeneous block of a piece. cells lists the piece-local
// indices of its cells in order.
type cellGroup struct {
	shape cellShape
	data  [][]int64
	cells []int
	faces []FaceList
}

// cellsFromData splits a piece's flat cell arrays into blocks. Cells are
// partitioned into runs of equal type code; a fixed-shape run becomes one
// block, a polygon or polyhedron run one block per distinct node count.
func cellsFromData(ca cellArrays) ([]cellGroup, error) {
	if len(ca.offsets) != len(ca.types) {
		return nil, fmt.Errorf("%w: %d offsets for %d types", ErrArray, len(ca.offsets), len(ca.types))
	}

	var faces []FaceList
	if slices.Contains(ca.types, int64(cellPolyhedron)) {
		var err error
		if faces, err = polyhedronFaces(ca); err != nil {
			return nil, err
		}
	}

	var groups []cellGroup
	for start := 0; start < len(ca.types); {
		end := start + 1
		for end < len(ca.types) && ca.types[end] == ca.types[start] {
			end++
		}
		shape, err := shapeFromCode(ca.types[start])
		if err != nil {
			return nil, err
		}
		var g []cellGroup
		if shape.kind == shapeFixed {
			g, err = fixedRun(ca, shape, start, end)
		} else {
			g, err = variableRun(ca, shape, faces, start, end)
		}
		if err != nil {
			return nil, err
		}
		groups = append(groups, g...)
		start = end
	}
	return groups, nil
}

// cellBounds returns the connectivity range of cell i.
func cellBounds(ca cellArrays, i int) (start, end int64, err error) {
	if i > 0 {
		start = ca.offsets[i-1]
	}
	end = ca.offsets[i]
	if start < 0 || end < start || end > int64(len(ca.connectivity)) {
		return 0, 0, fmt.Errorf("%w: cell %d spans [%d, %d) of %d connectivity entries", ErrArray, i, start, end, len(ca.connectivity))
	}
	return start, end, nil
}

func gatherRow(ca cellArrays, start int64, order []int) []int64 {
	row := make([]int64, len(order))
	for j, k := range order {
		row[j] = ca.connectivity[start+int64(k)]
	}
	return row
}

func fixedRun(ca cellArrays, shape cellShape, start, end int) ([]cellGroup, error) {
	order := nodeOrder(shape.name, shape.nodes)
	g := cellGroup{shape: shape, data: make([][]int64, 0, end-start), cells: make([]int, 0, end-start)}
	for i := start; i < end; i++ {
		s, e, err := cellBounds(ca, i)
		if err != nil {
			return nil, err
		}
		if e-s != int64(shape.nodes) {
			return nil, fmt.Errorf("%w: %s cell %d has %d nodes, want %d", ErrArray, shape.name, i, e-s, shape.nodes)
		}
		g.data = append(g.data, gatherRow(ca, s, order))
		g.cells = append(g.cells, i)
	}
	return []cellGroup{g}, nil
}

// variableRun buckets a polygon or polyhedron run by connectivity size, in
// ascending size order. A polyhedron must reference exactly as many distinct
// points in its faces as its connectivity lists, so the size bucket is also
// the distinct face-node count; a mismatch is ErrPolyhedron.
func variableRun(ca cellArrays, shape cellShape, faces []FaceList, start, end int) ([]cellGroup, error) {
	bySize := map[int]*cellGroup{}
	var sizes []int
	for i := start; i < end; i++ {
		s, e, err := cellBounds(ca, i)
		if err != nil {
			return nil, err
		}
		n := int(e - s)
		g, ok := bySize[n]
		if !ok {
			sh := shape
			sh.nodes = n
			g = &cellGroup{shape: sh}
			bySize[n] = g
			sizes = append(sizes, n)
		}
		g.data = append(g.data, gatherRow(ca, s, nodeOrder(shape.name, n)))
		g.cells = append(g.cells, i)
		if shape.kind == shapeVariablePolyhedron {
			if distinct := distinctNodes(faces[i]); distinct != n {
				return nil, fmt.Errorf("%w: cell %d lists %d points but its faces use %d", ErrPolyhedron, i, n, distinct)
			}
			g.faces = append(g.faces, faces[i])
		}
	}
	slices.Sort(sizes)
	out := make([]cellGroup, 0, len(sizes))
	for _, n := range sizes {
		out = append(out, *bySize[n])
	}
	return out, nil
}

func distinctNodes(fl FaceList) int {
	seen := map[int64]struct{}{}
	for _, face := range fl {
		for _, p := range face {
			seen[p] = struct{}{}
		}
	}
	return len(seen)
}

// polyhedronFaces decodes the face lists of every polyhedron cell of a piece,
// indexed by cell. Entries for other cells are nil.
//
// Each polyhedron's record in faces is
//
//	num_faces, (num_nodes, node_0, ..., node_k) * num_faces
//
// and faceoffsets holds the end of each record, either one entry per cell
// (-1 for cells that are not polyhedra) or one entry per polyhedron.
func polyhedronFaces(ca cellArrays) ([]FaceList, error) {
	if !ca.hasFaces() {
		return nil, fmt.Errorf("%w: polyhedron cells without faces and faceoffsets", ErrPolyhedron)
	}
	numPoly := 0
	for _, t := range ca.types {
		if t == int64(cellPolyhedron) {
			numPoly++
		}
	}
	perCell := len(ca.faceOffsets) == len(ca.types)
	if !perCell && len(ca.faceOffsets) != numPoly {
		return nil, fmt.Errorf("%w: %d faceoffsets for %d cells, %d polyhedra", ErrPolyhedron, len(ca.faceOffsets), len(ca.types), numPoly)
	}

	out := make([]FaceList, len(ca.types))
	var start int64
	k := 0
	for i, t := range ca.types {
		var end int64
		if perCell {
			end = ca.faceOffsets[i]
		} else if t == int64(cellPolyhedron) {
			end = ca.faceOffsets[k]
			k++
		}
		if t != int64(cellPolyhedron) {
			if perCell && end >= 0 {
				start = end
			}
			continue
		}
		if end < start || end > int64(len(ca.faces)) {
			return nil, fmt.Errorf("%w: cell %d face record ends at %d", ErrPolyhedron, i, end)
		}
		fl, err := readFaceRecord(ca.faces[start:end])
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		out[i] = fl
		start = end
	}
	return out, nil
}

// readFaceRecord parses one polyhedron record. Every read is bounds checked
// against rec.
func readFaceRecord(rec []int64) (FaceList, error) {
	if len(rec) == 0 {
		return nil, fmt.Errorf("%w: empty face record", ErrPolyhedron)
	}
	numFaces := rec[0]
	if numFaces < 0 || numFaces > int64(len(rec)) {
		return nil, fmt.Errorf("%w: %d faces in a record of %d entries", ErrPolyhedron, numFaces, len(rec))
	}
	fl := make(FaceList, 0, numFaces)
	pos := int64(1)
	for f := int64(0); f < numFaces; f++ {
		if pos >= int64(len(rec)) {
			return nil, fmt.Errorf("%w: face %d starts past the record", ErrPolyhedron, f)
		}
		n := rec[pos]
		pos++
		if n < 0 || pos+n > int64(len(rec)) {
			return nil, fmt.Errorf("%w: face %d with %d nodes overruns the record", ErrPolyhedron, f, n)
		}
		fl = append(fl, slices.Clone(rec[pos:pos+n]))
		pos += n
	}
	return fl, nil
}

// mergePieces reorganizes every piece's cells and concatenates the pieces.
// Point indices of later pieces are shifted by the points that precede them.
func mergePieces(pieces []rawPiece) (*Mesh, error) {
	m := &Mesh{
		PointData: map[string]Array{},
		CellData:  map[string][]Array{},
	}

	points := make([]Array, len(pieces))
	for i, p := range pieces {
		points[i] = p.points
	}
	var err error
	if m.Points, err = concatArrays(points); err != nil {
		return nil, err
	}

	for name := range pieces[0].pointData {
		parts := make([]Array, len(pieces))
		for i, p := range pieces {
			a, ok := p.pointData[name]
			if !ok {
				return nil, fmt.Errorf("%w: piece %d has no point data %q", ErrArray, i, name)
			}
			parts[i] = a
		}
		if m.PointData[name], err = concatArrays(parts); err != nil {
			return nil, err
		}
	}

	var faces [][]FaceList
	hasPolyhedra := false
	offset := int64(0)
	for pi, p := range pieces {
		if len(p.cellData) != len(pieces[0].cellData) {
			return nil, fmt.Errorf("%w: piece %d has %d cell data arrays, piece 0 has %d", ErrArray, pi, len(p.cellData), len(pieces[0].cellData))
		}
		ca, err := extractCellArrays(p.cells)
		if err != nil {
			return nil, err
		}
		groups, err := cellsFromData(ca)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			m.Cells = append(m.Cells, CellBlock{Type: g.shape.tag(), Data: shiftRows(g.data, offset)})
			for name := range pieces[0].cellData {
				a, ok := p.cellData[name]
				if !ok {
					return nil, fmt.Errorf("%w: piece %d has no cell data %q", ErrArray, pi, name)
				}
				m.CellData[name] = append(m.CellData[name], cellDataFor(a, g))
			}
			var fl []FaceList
			if g.shape.kind == shapeVariablePolyhedron {
				hasPolyhedra = true
				fl = make([]FaceList, len(g.faces))
				for i, cell := range g.faces {
					fl[i] = FaceList(shiftRows(cell, offset))
				}
			}
			faces = append(faces, fl)
		}
		offset += int64(p.numPoints)
	}
	if hasPolyhedra {
		m.CellFaces = faces
	}
	return m, nil
}

// cellDataFor slices a piece's cell data down to the cells of g.
func cellDataFor(a Array, g cellGroup) Array {
	if len(g.cells) > 0 && g.cells[len(g.cells)-1]-g.cells[0] == len(g.cells)-1 {
		return sliceTuples(a, g.cells[0], g.cells[0]+len(g.cells))
	}
	return takeTuples(a, g.cells)
}

func shiftRows(rows [][]int64, offset int64) [][]int64 {
	if offset == 0 {
		return rows
	}
	out := make([][]int64, len(rows))
	for i, r := range rows {
		s := make([]int64, len(r))
		for j, v := range r {
			s[j] = v + offset
		}
		out[i] = s
	}
	return out
}
