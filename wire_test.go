package vtu

import (
	"encoding/base64"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"

	"github.com/logicossoftware/go-vtu/internal/endian"
)

func testCodec(comp Compressor) arrayCodec {
	return arrayCodec{order: binary.LittleEndian, headerKind: UInt32, compressor: comp, limits: defaultLimits()}
}

func TestBase64Chars(t *testing.T) {
	for n, want := range []int{0, 4, 4, 4, 8, 8, 8, 12} {
		require.Equal(t, want, base64Chars(n), "n=%d", n)
	}
	for n := range 64 {
		require.Equal(t, base64.StdEncoding.EncodedLen(n), base64Chars(n))
	}
}

func TestArrayCodec_RoundTrip(t *testing.T) {
	arrays := []Array{
		NewArray([]int8{-1, 2, -3}, 0),
		NewArray([]uint16{1, 65535}, 2),
		NewArray([]int64{1 << 40, -5}, 0),
		NewArray([]float32{1.5, -2.25, 3}, 3),
		NewArray([]float64{}, 0),
	}
	for _, comp := range []Compressor{CompressorNone, CompressorZLib, CompressorLZMA, CompressorLZ4} {
		for _, order := range []endian.Engine{binary.LittleEndian, binary.BigEndian} {
			for _, hk := range []ScalarKind{UInt32, UInt64, Int64} {
				c := arrayCodec{order: order, headerKind: hk, compressor: comp, limits: defaultLimits()}
				for _, a := range arrays {
					text, err := c.encode(a)
					require.NoError(t, err)
					out, err := c.decode(text+"trailing", a.Kind(), a.Components)
					require.NoError(t, err)
					require.Equal(t, a, out, "%s %s %s", comp, endian.Name(order), hk)
				}
			}
		}
	}
}

func TestDecodeUncompressed_HeaderLayouts(t *testing.T) {
	c := testCodec(CompressorNone)
	payload := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}
	header := []byte{12, 0, 0, 0}
	enc := base64.StdEncoding

	joined := enc.EncodeToString(append(append([]byte{}, header...), payload...))
	separate := enc.EncodeToString(header) + enc.EncodeToString(payload)
	require.NotEqual(t, joined, separate)

	for _, text := range []string{joined, separate} {
		out, err := c.decode(text, Int32, 0)
		require.NoError(t, err)
		require.Equal(t, NewArray([]int32{1, 2, 3}, 0), out)
	}

	// A one-byte payload fits in the header quantum of the joined form.
	out, err := c.decode(enc.EncodeToString([]byte{1, 0, 0, 0, 9})+"next", UInt8, 0)
	require.NoError(t, err)
	require.Equal(t, NewArray([]uint8{9}, 0), out)
}

func TestDecodeUncompressed_Errors(t *testing.T) {
	c := testCodec(CompressorNone)
	enc := base64.StdEncoding

	_, err := c.decode(enc.EncodeToString([]byte{12, 0, 0, 0, 1, 2}), Int32, 0)
	require.ErrorIs(t, err, ErrArray)

	_, err = c.decode(enc.EncodeToString([]byte{3, 0, 0, 0, 1, 2, 3}), Int32, 0)
	require.ErrorIs(t, err, ErrArray)

	c.limits.MaxArrayBytes = 8
	_, err = c.decode(enc.EncodeToString([]byte{12, 0, 0, 0}), Int32, 0)
	require.ErrorIs(t, err, ErrLimitExceeded)
}

func TestCompressBlocks_Header(t *testing.T) {
	c := testCodec(CompressorZLib)
	raw := make([]byte, 2*blockSize+10)
	header, body, err := c.compressBlocks(raw)
	require.NoError(t, err)
	require.Len(t, header, 6*4)
	require.Equal(t, uint64(3), c.headerItem(header, 0))
	require.Equal(t, uint64(blockSize), c.headerItem(header, 1))
	require.Equal(t, uint64(10), c.headerItem(header, 2))

	bh, err := c.parseBlockHeader(header)
	require.NoError(t, err)
	require.Equal(t, len(body), bh.compressedSize())
	out, err := bh.inflate(CompressorZLib, body)
	require.NoError(t, err)
	require.Equal(t, raw, out)

	header, body, err = c.compressBlocks(nil)
	require.NoError(t, err)
	require.Empty(t, body)
	require.Equal(t, uint64(0), c.headerItem(header, 0))
}

func TestCompressBlocks_HeaderOverflow(t *testing.T) {
	c := testCodec(CompressorZLib)
	c.headerKind = UInt8
	_, _, err := c.compressBlocks([]byte{1})
	require.ErrorIs(t, err, ErrValidation)

	c.compressor = CompressorNone
	_, err = c.encode(NewArray(make([]uint8, 300), 0))
	require.ErrorIs(t, err, ErrValidation)
	_, err = c.encode(NewArray(make([]uint8, 255), 0))
	require.NoError(t, err)
}

func TestBlockHeader_LastBlockSize(t *testing.T) {
	bh := blockHeader{maxSize: 100, lastSize: 0, sizes: []int{5, 5}}
	require.Equal(t, 100, bh.uncompressedSize(0))
	require.Equal(t, 100, bh.uncompressedSize(1))
	bh.lastSize = 7
	require.Equal(t, 100, bh.uncompressedSize(0))
	require.Equal(t, 7, bh.uncompressedSize(1))
}

func TestParseBlockHeader_Errors(t *testing.T) {
	c := testCodec(CompressorZLib)
	mk := func(items ...uint64) []byte {
		var b []byte
		for _, v := range items {
			b = c.appendHeader(b, v)
		}
		return b
	}
	_, err := c.parseBlockHeader(mk(1, 10, 20, 5))
	require.ErrorIs(t, err, ErrArray)

	c.limits.MaxArrayBytes = 1000
	_, err = c.parseBlockHeader(mk(1, blockSize, 10, 5))
	require.ErrorIs(t, err, ErrLimitExceeded)
	_, err = c.parseBlockHeader(mk(1, 100, 10, 5000))
	require.ErrorIs(t, err, ErrLimitExceeded)

	c.limits.MaxBlocks = 2
	text := base64.StdEncoding.EncodeToString(mk(3, 100, 10, 1, 1, 1))
	_, err = c.decode(text, UInt8, 0)
	require.ErrorIs(t, err, ErrLimitExceeded)
}

func TestParseBlockHeader_HugeUInt64Sizes(t *testing.T) {
	c := testCodec(CompressorZLib)
	c.headerKind = UInt64
	var header []byte
	for _, v := range []uint64{2, 1 << 62, 0, 0, 0} {
		header = c.appendHeader(header, v)
	}
	_, err := c.parseBlockHeader(header)
	require.ErrorIs(t, err, ErrLimitExceeded)

	text := base64.StdEncoding.EncodeToString(header)
	doc := `<VTKFile type="UnstructuredGrid" version="0.1" byte_order="LittleEndian" header_type="UInt64" compressor="vtkZLibDataCompressor"><UnstructuredGrid>` +
		asciiPiece(3, 1, triangleCells, `<DataArray type="Int32" Name="q" format="binary">`+text+`</DataArray>`) +
		`</UnstructuredGrid></VTKFile>`
	_, err = Decode(strings.NewReader(doc))
	require.ErrorIs(t, err, ErrLimitExceeded)

	header = header[:0]
	for _, v := range []uint64{1 << 63, 1, 0} {
		header = c.appendHeader(header, v)
	}
	_, err = c.parseBlockHeader(header)
	require.ErrorIs(t, err, ErrLimitExceeded)
}

func TestDecodeCompressed_TruncatedBody(t *testing.T) {
	c := testCodec(CompressorZLib)
	text, err := c.encode(NewArray([]float64{1, 2, 3, 4}, 0))
	require.NoError(t, err)
	_, err = c.decode(text[:len(text)-4], Float64, 0)
	require.ErrorIs(t, err, ErrArray)
	_, err = c.decode(text[:6], Float64, 0)
	require.ErrorIs(t, err, ErrArray)
}

func TestDecodeCompressed_DecompressorErrorUnchanged(t *testing.T) {
	c := testCodec(CompressorZLib)
	var header []byte
	for _, v := range []uint64{1, blockSize, 4, 4} {
		header = c.appendHeader(header, v)
	}
	text := base64.StdEncoding.EncodeToString(header) + base64.StdEncoding.EncodeToString([]byte{0, 0, 0, 0})
	_, err := c.decode(text, Int32, 0)
	require.ErrorIs(t, err, zlib.ErrHeader)
	require.NotErrorIs(t, err, ErrArray)
}

func TestDecodeRaw(t *testing.T) {
	out, err := decodeRaw([]byte{0, 1, 0, 2}, UInt16, 2, binary.BigEndian)
	require.NoError(t, err)
	require.Equal(t, NewArray([]uint16{1, 2}, 2), out)

	_, err = decodeRaw([]byte{0, 1, 0}, UInt16, 0, binary.BigEndian)
	require.ErrorIs(t, err, ErrArray)
	_, err = decodeRaw(nil, ScalarKind(0), 0, binary.BigEndian)
	require.ErrorIs(t, err, ErrUnsupportedType)
	_, err = encodeRaw(Array{Data: []string{"x"}}, binary.BigEndian)
	require.ErrorIs(t, err, ErrUnsupportedType)
}
