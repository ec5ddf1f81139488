package vtu

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Compressor selects the per-block compression of binary arrays.
type Compressor uint8

const (
	CompressorNone Compressor = iota
	CompressorZLib
	CompressorLZMA
	CompressorLZ4
)

var compressorNames = map[Compressor]string{
	CompressorZLib: "vtkZLibDataCompressor",
	CompressorLZMA: "vtkLZMADataCompressor",
	CompressorLZ4:  "vtkLZ4DataCompressor",
}

var compressorsByName = invert(compressorNames)

// String returns the compressor attribute value, or "" for CompressorNone.
func (c Compressor) String() string {
	return compressorNames[c]
}

// ParseCompressor resolves a compressor attribute value.
func ParseCompressor(name string) (Compressor, error) {
	c, ok := compressorsByName[name]
	if !ok {
		return CompressorNone, fmt.Errorf("%w: unknown compressor %q", ErrStructure, name)
	}
	return c, nil
}

// Function variables for testing injection.
var (
	newZlibWriter = func(w io.Writer) io.WriteCloser { return zlib.NewWriter(w) }
	newXZWriter   = func(w io.Writer) (io.WriteCloser, error) { return xz.NewWriter(w) }
	lz4Compress   = func(src, dst []byte) (int, error) {
		var c lz4.Compressor
		return c.CompressBlock(src, dst)
	}
	readAll = io.ReadAll
)

// compressBlock compresses one block of at most blockSize bytes.
func compressBlock(c Compressor, in []byte) ([]byte, error) {
	switch c {
	case CompressorZLib:
		var buf bytes.Buffer
		zw := newZlibWriter(&buf)
		if _, err := zw.Write(in); err != nil {
			_ = zw.Close()
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressorLZMA:
		var buf bytes.Buffer
		xw, err := newXZWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := xw.Write(in); err != nil {
			_ = xw.Close()
			return nil, err
		}
		if err := xw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressorLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(in)))
		n, err := lz4Compress(in, dst)
		if err != nil {
			return nil, err
		}
		if n == 0 && len(in) > 0 {
			// Incompressible input: emit a literal-only block.
			return literalLZ4Block(in), nil
		}
		return dst[:n], nil
	default:
		return nil, fmt.Errorf("%w: cannot compress with compressor %d", ErrStructure, c)
	}
}

// decompressBlock inflates one block whose uncompressed size is expected.
// Errors from the underlying decompressor are returned unchanged.
func decompressBlock(c Compressor, in []byte, expected int) ([]byte, error) {
	switch c {
	case CompressorZLib:
		r, err := zlib.NewReader(bytes.NewReader(in))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return readLimited(r, expected)
	case CompressorLZMA:
		r, err := xz.NewReader(bytes.NewReader(in))
		if err != nil {
			return nil, err
		}
		return readLimited(r, expected)
	case CompressorLZ4:
		dst := make([]byte, expected)
		n, err := lz4.UncompressBlock(in, dst)
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	default:
		return nil, fmt.Errorf("%w: cannot decompress with compressor %d", ErrStructure, c)
	}
}

// readLimited reads r to EOF, failing once more than expected bytes appear.
func readLimited(r io.Reader, expected int) ([]byte, error) {
	b, err := readAll(io.LimitReader(r, int64(expected)+1))
	if err != nil {
		return nil, err
	}
	if len(b) > expected {
		return nil, fmt.Errorf("%w: block expanded beyond %d bytes", ErrArray, expected)
	}
	return b, nil
}

// literalLZ4Block encodes in as a single LZ4 sequence without matches.
func literalLZ4Block(in []byte) []byte {
	n := len(in)
	out := make([]byte, 0, n+n/255+2)
	if n < 15 {
		out = append(out, byte(n<<4))
	} else {
		out = append(out, 0xF0)
		rest := n - 15
		for rest >= 255 {
			out = append(out, 255)
			rest -= 255
		}
		out = append(out, byte(rest))
	}
	return append(out, in...)
}
