package vtu

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/logicossoftware/go-vtu/internal/endian"
)

// ReadFile reads the .vtu document at path.
func ReadFile(path string, opts ...ReadOption) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, opts...)
}

// Decode reads a VTK XML UnstructuredGrid document from r.
//
// The decoding process:
//  1. Parses the document strictly as XML. If that fails, or the appended
//     data is declared raw, the appended section is rebuilt as base64 (see
//     repairRawBinary) and decoding continues on the repaired tree
//  2. Validates the root attributes and the grid structure
//  3. Decodes every data array of every piece
//  4. Reorganizes each piece's flat cell arrays into cell blocks and merges
//     the pieces into one mesh
//
// Decode returns errors wrapping ErrStructure, ErrArray, ErrPolyhedron,
// ErrUnsupportedType, ErrUnsupportedCell or ErrLimitExceeded. Errors raised
// by a decompressor are returned unchanged.
func Decode(r io.Reader, opts ...ReadOption) (*Mesh, error) {
	cfg := readConfig{limits: defaultLimits(), logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	raw, err := readAll(io.LimitReader(r, cfg.limits.MaxDocumentBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > cfg.limits.MaxDocumentBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", ErrLimitExceeded, cfg.limits.MaxDocumentBytes)
	}

	root, err := parseXML(raw)
	if err != nil || hasRawAppendedData(root) {
		if err != nil {
			cfg.logger.Warn("vtu: strict XML parse failed, repairing raw appended data", "error", err)
		}
		repaired, rerr := repairRawBinary(raw, cfg.limits)
		if rerr != nil {
			if errors.Is(rerr, ErrStructure) || err == nil {
				return nil, rerr
			}
			return nil, fmt.Errorf("%w: %v (repair: %w)", ErrStructure, err, rerr)
		}
		root = repaired
	}

	doc, err := newDocument(root, cfg)
	if err != nil {
		return nil, err
	}
	mesh, err := doc.mesh()
	if err != nil {
		return nil, err
	}
	if err := validateMesh(mesh); err != nil {
		return nil, err
	}
	return mesh, nil
}

func hasRawAppendedData(root *xmlNode) bool {
	for _, c := range root.Children {
		if c.tag() == "AppendedData" {
			if enc, _ := c.attr("encoding"); enc == "raw" {
				return true
			}
		}
	}
	return false
}

// document holds the settings global to one file.
type document struct {
	codec    arrayCodec
	grid     *xmlNode
	appended string
	logger   *slog.Logger
	limits   Limits
}

// codecFromRoot resolves header_type, byte_order and compressor.
func codecFromRoot(root *xmlNode, limits Limits) (arrayCodec, error) {
	c := arrayCodec{order: endian.Native(), headerKind: UInt32, compressor: CompressorNone, limits: limits}
	if v, ok := root.attr("header_type"); ok {
		k, err := ParseScalarKind(v)
		if err != nil {
			return arrayCodec{}, err
		}
		if k.isFloat() {
			return arrayCodec{}, fmt.Errorf("%w: header_type %s is not an integer", ErrUnsupportedType, v)
		}
		c.headerKind = k
	}
	if v, ok := root.attr("byte_order"); ok {
		e, err := endian.Parse(v)
		if err != nil {
			return arrayCodec{}, fmt.Errorf("%w: %v", ErrStructure, err)
		}
		c.order = e
	}
	if v, ok := root.attr("compressor"); ok && v != "" {
		comp, err := ParseCompressor(v)
		if err != nil {
			return arrayCodec{}, err
		}
		c.compressor = comp
	}
	return c, nil
}

func newDocument(root *xmlNode, cfg readConfig) (*document, error) {
	if root.tag() != rootTag {
		return nil, fmt.Errorf("%w: root element %q", ErrStructure, root.tag())
	}
	if t, _ := root.attr("type"); t != documentType {
		return nil, fmt.Errorf("%w: document type %q", ErrStructure, t)
	}
	if v, _ := root.attr("version"); v != Version01 && v != Version10 {
		return nil, fmt.Errorf("%w: unknown version %q", ErrStructure, v)
	}

	// Some writers emit NumberOfComponents="".
	root.walk(func(n *xmlNode) {
		if v, ok := n.attr("NumberOfComponents"); ok && v == "" {
			n.removeAttr("NumberOfComponents")
		}
	})

	codec, err := codecFromRoot(root, cfg.limits)
	if err != nil {
		return nil, err
	}
	d := &document{codec: codec, logger: cfg.logger, limits: cfg.limits}
	if err := d.findGrid(root); err != nil {
		return nil, err
	}
	return d, nil
}

// findGrid locates the single grid section and the optional appended data.
func (d *document) findGrid(root *xmlNode) error {
	var appended *xmlNode
	for _, c := range root.Children {
		switch c.tag() {
		case documentType:
			if d.grid != nil {
				return fmt.Errorf("%w: more than one %s found", ErrStructure, documentType)
			}
			d.grid = c
		case "AppendedData":
			if appended != nil {
				return fmt.Errorf("%w: more than one AppendedData section found", ErrStructure)
			}
			appended = c
		default:
			return fmt.Errorf("%w: unknown main tag %q", ErrStructure, c.tag())
		}
	}
	if d.grid == nil {
		return fmt.Errorf("%w: no %s found", ErrStructure, documentType)
	}
	if appended == nil {
		return nil
	}
	if enc, _ := appended.attr("encoding"); enc != "base64" {
		return fmt.Errorf("%w: AppendedData encoding %q", ErrStructure, enc)
	}
	text := strings.TrimSpace(appended.Text)
	// The appended data always begins with a meaningless underscore.
	rest, ok := strings.CutPrefix(text, "_")
	if !ok {
		return fmt.Errorf("%w: AppendedData must begin with '_'", ErrStructure)
	}
	d.appended = rest
	return nil
}

// rawPiece is one Piece section with its arrays decoded.
type rawPiece struct {
	numPoints int
	numCells  int
	points    Array
	cells     map[string]Array
	pointData map[string]Array
	cellData  map[string]Array
}

func (d *document) mesh() (*Mesh, error) {
	var pieces []rawPiece
	fieldData := map[string]Array{}
	for _, c := range d.grid.Children {
		switch c.tag() {
		case "Piece":
			if len(pieces) >= d.limits.MaxPieces {
				return nil, fmt.Errorf("%w: more than %d pieces", ErrLimitExceeded, d.limits.MaxPieces)
			}
			p, err := d.readPiece(c)
			if err != nil {
				return nil, err
			}
			pieces = append(pieces, p)
		case "FieldData":
			arrays, err := d.readArrays(c)
			if err != nil {
				return nil, err
			}
			for name, a := range arrays {
				fieldData[name] = a
			}
		default:
			return nil, fmt.Errorf("%w: unknown grid tag %q", ErrStructure, c.tag())
		}
	}
	if len(pieces) == 0 {
		return nil, fmt.Errorf("%w: no Piece found", ErrStructure)
	}
	d.logger.Debug("vtu: decoded pieces", "pieces", len(pieces), "field_data", len(fieldData))

	m, err := mergePieces(pieces)
	if err != nil {
		return nil, err
	}
	m.FieldData = fieldData
	return m, nil
}

func intAttr(n *xmlNode, name string) (int, error) {
	v, ok := n.attr(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s is missing %s", ErrStructure, n.tag(), name)
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: %s %s=%q", ErrStructure, n.tag(), name, v)
	}
	return i, nil
}

func (d *document) readPiece(piece *xmlNode) (rawPiece, error) {
	var p rawPiece
	var err error
	if p.numPoints, err = intAttr(piece, "NumberOfPoints"); err != nil {
		return rawPiece{}, err
	}
	if p.numCells, err = intAttr(piece, "NumberOfCells"); err != nil {
		return rawPiece{}, err
	}

	var havePoints bool
	for _, child := range piece.Children {
		switch child.tag() {
		case "Points":
			if len(child.Children) != 1 {
				return rawPiece{}, fmt.Errorf("%w: Points must hold exactly one DataArray", ErrStructure)
			}
			da := child.Children[0]
			if da.tag() != "DataArray" {
				return rawPiece{}, fmt.Errorf("%w: unexpected %q in Points", ErrStructure, da.tag())
			}
			pts, err := d.readDataArray(da)
			if err != nil {
				return rawPiece{}, err
			}
			if pts.Components == 0 {
				pts.Components = 3
			}
			if pts.Len() != p.numPoints*pts.width() {
				return rawPiece{}, fmt.Errorf("%w: Piece declares %d points, Points holds %d values of width %d", ErrArray, p.numPoints, pts.Len(), pts.width())
			}
			p.points = pts
			havePoints = true
		case "Cells":
			if p.cells, err = d.readArrays(child); err != nil {
				return rawPiece{}, err
			}
		case "PointData":
			if p.pointData, err = d.readArrays(child); err != nil {
				return rawPiece{}, err
			}
		case "CellData":
			if p.cellData, err = d.readArrays(child); err != nil {
				return rawPiece{}, err
			}
		default:
			return rawPiece{}, fmt.Errorf("%w: unknown piece tag %q", ErrStructure, child.tag())
		}
	}

	if !havePoints {
		return rawPiece{}, fmt.Errorf("%w: Piece has no Points", ErrStructure)
	}
	if p.cells == nil {
		if p.numCells != 0 {
			return rawPiece{}, fmt.Errorf("%w: Piece declares %d cells but has no Cells", ErrStructure, p.numCells)
		}
		p.cells = map[string]Array{
			arrayConnectivity: NewArray([]int64{}, 0),
			arrayOffsets:      NewArray([]int64{}, 0),
			arrayTypes:        NewArray([]uint8{}, 0),
		}
	}
	for _, name := range []string{arrayConnectivity, arrayOffsets, arrayTypes} {
		if _, ok := p.cells[name]; !ok {
			return rawPiece{}, fmt.Errorf("%w: Cells has no %q array", ErrStructure, name)
		}
	}
	if n := p.cells[arrayOffsets].Len(); n != p.numCells {
		return rawPiece{}, fmt.Errorf("%w: Piece declares %d cells, offsets holds %d", ErrArray, p.numCells, n)
	}
	if n := p.cells[arrayTypes].Len(); n != p.numCells {
		return rawPiece{}, fmt.Errorf("%w: Piece declares %d cells, types holds %d", ErrArray, p.numCells, n)
	}
	for name, a := range p.pointData {
		if a.Tuples() != p.numPoints {
			return rawPiece{}, fmt.Errorf("%w: point data %q has %d tuples for %d points", ErrArray, name, a.Tuples(), p.numPoints)
		}
	}
	for name, a := range p.cellData {
		if a.Tuples() != p.numCells {
			return rawPiece{}, fmt.Errorf("%w: cell data %q has %d tuples for %d cells", ErrArray, name, a.Tuples(), p.numCells)
		}
	}
	return p, nil
}

// readArrays decodes every DataArray child of section by Name.
func (d *document) readArrays(section *xmlNode) (map[string]Array, error) {
	out := make(map[string]Array, len(section.Children))
	for _, c := range section.Children {
		if c.tag() != "DataArray" {
			return nil, fmt.Errorf("%w: unexpected %q in %s", ErrStructure, c.tag(), section.tag())
		}
		name, _ := c.attr("Name")
		a, err := d.readDataArray(c)
		if err != nil {
			return nil, err
		}
		out[name] = a
	}
	return out, nil
}

// readDataArray decodes one DataArray descriptor.
func (d *document) readDataArray(da *xmlNode) (Array, error) {
	format, ok := da.attr("format")
	if !ok {
		format = FormatASCII
	}
	typeName, _ := da.attr("type")
	kind, err := ParseScalarKind(typeName)
	if err != nil {
		return Array{}, err
	}
	components := 0
	if _, ok := da.attr("NumberOfComponents"); ok {
		if components, err = intAttr(da, "NumberOfComponents"); err != nil {
			return Array{}, err
		}
	}

	var a Array
	switch format {
	case FormatASCII:
		a, err = decodeASCII(da.Text, kind, components)
	case FormatBinary:
		a, err = d.codec.decode(stripSpace(da.Text), kind, components)
	case FormatAppended:
		var offset int
		if offset, err = intAttr(da, "offset"); err != nil {
			return Array{}, err
		}
		if offset > len(d.appended) {
			return Array{}, fmt.Errorf("%w: offset %d beyond appended data of %d characters", ErrArray, offset, len(d.appended))
		}
		a, err = d.codec.decode(d.appended[offset:], kind, components)
	default:
		return Array{}, fmt.Errorf("%w: unknown data format %q", ErrArray, format)
	}
	if err != nil {
		return Array{}, err
	}
	if a.Len()%a.width() != 0 {
		return Array{}, fmt.Errorf("%w: %d values do not split into tuples of %d", ErrArray, a.Len(), a.width())
	}
	return a, nil
}

// stripSpace removes all whitespace from inline base64 text.
func stripSpace(s string) string {
	if strings.IndexFunc(s, isSpace) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isSpace(r) {
			return -1
		}
		return r
	}, s)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\r' || r == '\t'
}
