package vtu

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"

	"github.com/logicossoftware/go-vtu/internal/endian"
)

// rawMesh carries values whose bytes are not valid XML: '<', '&' and NUL.
func rawMesh() *Mesh {
	m := sampleMesh()
	m.PointData["markup"] = NewArray([]uint32{0x3c3c3c3c, 0x26262626, 0, 0x3c003c00, 0x3e3e3e3e}, 0)
	return m
}

func TestRepair_RawAppendedRoundTrip(t *testing.T) {
	for _, comp := range []Compressor{CompressorNone, CompressorZLib, CompressorLZMA, CompressorLZ4} {
		t.Run(comp.String(), func(t *testing.T) {
			m := rawMesh()
			doc := encodeString(t, m, WithRawAppended(true), WithCompressor(comp))
			require.Contains(t, doc, `<AppendedData encoding="raw">_`)
			if comp == CompressorNone {
				_, err := parseXML([]byte(doc))
				require.Error(t, err)
			}
			out, err := Decode(strings.NewReader(doc))
			require.NoError(t, err)
			require.Equal(t, m, out)
		})
	}
}

func TestRepair_BigEndianUInt64(t *testing.T) {
	m := rawMesh()
	opts := []WriteOption{WithRawAppended(true), WithByteOrder(binary.BigEndian), WithHeaderType(UInt64)}
	require.Equal(t, m, roundTrip(t, m, opts...))
}

func TestRepairRawBinary_RewritesSection(t *testing.T) {
	doc := encodeString(t, rawMesh(), WithRawAppended(true))
	root, err := repairRawBinary([]byte(doc), defaultLimits())
	require.NoError(t, err)

	_, ok := root.attr("compressor")
	require.False(t, ok)
	var appended *xmlNode
	var offsets []string
	root.walk(func(n *xmlNode) {
		switch n.tag() {
		case "AppendedData":
			appended = n
		case "DataArray":
			off, ok := n.attr("offset")
			require.True(t, ok)
			offsets = append(offsets, off)
		}
	})
	require.NotNil(t, appended)
	enc, _ := appended.attr("encoding")
	require.Equal(t, "base64", enc)
	require.True(t, strings.HasPrefix(appended.Text, "_"))
	require.Equal(t, "0", offsets[0])

	// The repaired tree serializes to a document the strict parser accepts.
	var buf bytes.Buffer
	require.NoError(t, writeXML(&buf, root))
	_, err = parseXML(buf.Bytes())
	require.NoError(t, err)
}

func TestRepairRawBinary_KeepsCompressorWithInlineArrays(t *testing.T) {
	doc := encodeString(t, rawMesh(), WithRawAppended(true))
	// Turn the FieldData array into an inline binary array.
	c := testCodec(CompressorZLib)
	c.order = endian.Native()
	inline, err := c.encode(NewArray([]float64{0.25}, 0))
	require.NoError(t, err)
	i := strings.Index(doc, `Name="time"`)
	j := i + strings.Index(doc[i:], "</DataArray>")
	doc = doc[:i] + `Name="time" format="binary">` + inline + doc[j:]

	root, err := repairRawBinary([]byte(doc), defaultLimits())
	require.NoError(t, err)
	comp, _ := root.attr("compressor")
	require.Equal(t, CompressorZLib.String(), comp)

	m, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, NewArray([]float64{0.25}, 0), m.FieldData["time"])
	require.Equal(t, rawMesh().Points, m.Points)
}

func TestRepairRawBinary_Errors(t *testing.T) {
	good := encodeString(t, rawMesh(), WithRawAppended(true), WithCompressor(CompressorNone))
	start := strings.Index(good, "<AppendedData")
	end := strings.LastIndex(good, appendedClose)

	tests := []struct {
		name string
		doc  string
		err  error
	}{
		{"no section", "<VTKFile><", ErrStructure},
		{"unterminated tag", "<VTKFile><AppendedData encoding", ErrStructure},
		{"not closed", good[:end], ErrStructure},
		{"self closed", `<VTKFile type="UnstructuredGrid" version="0.1"><AppendedData encoding="raw"/></VTKFile>`, ErrStructure},
		{"no underscore", `<VTKFile type="UnstructuredGrid" version="0.1"><AppendedData encoding="raw">abc</AppendedData></VTKFile>`, ErrStructure},
		{"broken header", good[:start] + "<<" + good[start:], ErrStructure},
		{"truncated data", good[:end-8] + good[end:], ErrArray},
		{"bad offset", strings.Replace(good, `offset="0"`, `offset="x"`, 1), ErrStructure},
		{"offset past data", strings.Replace(good, `offset="0"`, `offset="999999"`, 1), ErrArray},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repairRawBinary([]byte(tt.doc), defaultLimits())
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestRepairRawBinary_Limits(t *testing.T) {
	doc := []byte(encodeString(t, rawMesh(), WithRawAppended(true), WithCompressor(CompressorNone)))
	_, err := repairRawBinary(doc, Limits{MaxArrayBytes: 8}.withDefaults())
	require.ErrorIs(t, err, ErrLimitExceeded)
	_, err = repairRawBinary(doc, Limits{MaxArrays: 2}.withDefaults())
	require.ErrorIs(t, err, ErrLimitExceeded)

	zdoc := []byte(encodeString(t, rawMesh(), WithRawAppended(true)))
	_, err = repairRawBinary(zdoc, Limits{MaxArrayBytes: 8}.withDefaults())
	require.ErrorIs(t, err, ErrLimitExceeded)
}

func TestDecode_RawAppendedHandWritten(t *testing.T) {
	// One uncompressed Int32 with the value 0x41414141 ("AAAA").
	doc := `<VTKFile type="UnstructuredGrid" version="0.1" byte_order="LittleEndian"><UnstructuredGrid>` +
		asciiPiece(3, 1, triangleCells, `<DataArray type="Int32" Name="q" format="appended" offset="0"/>`) +
		"</UnstructuredGrid><AppendedData encoding=\"raw\">\n_\x04\x00\x00\x00AAAA\n</AppendedData></VTKFile>"
	m, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, []Array{NewArray([]int32{0x41414141}, 0)}, m.CellData["q"])
}

func TestDecode_RepairKeepsDecompressorError(t *testing.T) {
	doc := []byte(encodeString(t, rawMesh(), WithRawAppended(true), WithCompressor(CompressorZLib)))
	// Skip "_" and the four UInt32 header items of the first array, then
	// break the zlib stream header with bytes the strict parser rejects.
	body := bytes.Index(doc, []byte(`<AppendedData encoding="raw">`)) + len(`<AppendedData encoding="raw">`)
	body += bytes.IndexByte(doc[body:], '_') + 1 + 4*4
	doc[body], doc[body+1] = '<', 0

	_, err := Decode(bytes.NewReader(doc))
	require.ErrorIs(t, err, ErrStructure)
	require.ErrorIs(t, err, zlib.ErrHeader)
}
