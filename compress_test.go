package vtu

import (
	"bytes"
	"errors"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

type errWriteCloser struct {
	writeErr error
	closeErr error
}

func (w errWriteCloser) Write(p []byte) (int, error) {
	if w.writeErr != nil {
		return 0, w.writeErr
	}
	return len(p), nil
}

func (w errWriteCloser) Close() error { return w.closeErr }

func TestCompressor_Names(t *testing.T) {
	for _, c := range []Compressor{CompressorZLib, CompressorLZMA, CompressorLZ4} {
		got, err := ParseCompressor(c.String())
		require.NoError(t, err)
		require.Equal(t, c, got)
	}
	require.Equal(t, "", CompressorNone.String())
	_, err := ParseCompressor("vtkZstdDataCompressor")
	require.ErrorIs(t, err, ErrStructure)
}

func TestCompressBlock_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	noise := make([]byte, blockSize)
	for i := range noise {
		noise[i] = byte(rng.Uint32())
	}
	inputs := map[string][]byte{
		"short":  []byte("abc"),
		"zeros":  make([]byte, blockSize),
		"text":   bytes.Repeat([]byte("unstructured grid "), 500),
		"noise":  noise,
		"medium": noise[:300],
	}
	for _, c := range []Compressor{CompressorZLib, CompressorLZMA, CompressorLZ4} {
		for name, in := range inputs {
			block, err := compressBlock(c, in)
			require.NoError(t, err, "%s %s", c, name)
			out, err := decompressBlock(c, block, len(in))
			require.NoError(t, err, "%s %s", c, name)
			require.Equal(t, in, out, "%s %s", c, name)
		}
	}
}

func TestCompressBlock_UnknownCompressor(t *testing.T) {
	_, err := compressBlock(Compressor(42), []byte("x"))
	require.ErrorIs(t, err, ErrStructure)
	_, err = decompressBlock(Compressor(42), []byte("x"), 1)
	require.ErrorIs(t, err, ErrStructure)
}

func TestDecompressBlock_ExpandsBeyondExpected(t *testing.T) {
	for _, c := range []Compressor{CompressorZLib, CompressorLZMA} {
		block, err := compressBlock(c, make([]byte, 100))
		require.NoError(t, err)
		_, err = decompressBlock(c, block, 50)
		require.ErrorIs(t, err, ErrArray, c.String())
	}
	block, err := compressBlock(CompressorLZ4, make([]byte, 100))
	require.NoError(t, err)
	_, err = decompressBlock(CompressorLZ4, block, 50)
	require.Error(t, err)
}

func TestDecompressBlock_CorruptInput(t *testing.T) {
	for _, c := range []Compressor{CompressorZLib, CompressorLZMA, CompressorLZ4} {
		_, err := decompressBlock(c, []byte{0xff, 0xff, 0xff}, 10)
		require.Error(t, err, c.String())
	}
}

func TestLiteralLZ4Block(t *testing.T) {
	for _, n := range []int{1, 14, 15, 16, 270, 600} {
		in := bytes.Repeat([]byte{7}, n)
		out, err := decompressBlock(CompressorLZ4, literalLZ4Block(in), n)
		require.NoError(t, err, n)
		require.Equal(t, in, out)
	}
}

func TestCompressorFailuresPropagate(t *testing.T) {
	boom := errors.New("boom")

	t.Run("zlib write", func(t *testing.T) {
		old := newZlibWriter
		newZlibWriter = func(io.Writer) io.WriteCloser { return errWriteCloser{writeErr: boom} }
		t.Cleanup(func() { newZlibWriter = old })
		err := Encode(io.Discard, sampleMesh())
		require.ErrorIs(t, err, boom)
	})
	t.Run("zlib close", func(t *testing.T) {
		old := newZlibWriter
		newZlibWriter = func(io.Writer) io.WriteCloser { return errWriteCloser{closeErr: boom} }
		t.Cleanup(func() { newZlibWriter = old })
		_, err := compressBlock(CompressorZLib, []byte("x"))
		require.ErrorIs(t, err, boom)
	})
	t.Run("xz new", func(t *testing.T) {
		old := newXZWriter
		newXZWriter = func(io.Writer) (io.WriteCloser, error) { return nil, boom }
		t.Cleanup(func() { newXZWriter = old })
		err := Encode(io.Discard, sampleMesh(), WithCompressor(CompressorLZMA))
		require.ErrorIs(t, err, boom)
	})
	t.Run("xz write", func(t *testing.T) {
		old := newXZWriter
		newXZWriter = func(io.Writer) (io.WriteCloser, error) { return errWriteCloser{writeErr: boom}, nil }
		t.Cleanup(func() { newXZWriter = old })
		_, err := compressBlock(CompressorLZMA, []byte("x"))
		require.ErrorIs(t, err, boom)
	})
	t.Run("xz close", func(t *testing.T) {
		old := newXZWriter
		newXZWriter = func(io.Writer) (io.WriteCloser, error) { return errWriteCloser{closeErr: boom}, nil }
		t.Cleanup(func() { newXZWriter = old })
		_, err := compressBlock(CompressorLZMA, []byte("x"))
		require.ErrorIs(t, err, boom)
	})
	t.Run("lz4", func(t *testing.T) {
		old := lz4Compress
		lz4Compress = func(src, dst []byte) (int, error) { return 0, boom }
		t.Cleanup(func() { lz4Compress = old })
		err := Encode(io.Discard, sampleMesh(), WithCompressor(CompressorLZ4), WithAppended(true))
		require.ErrorIs(t, err, boom)
	})
	t.Run("lz4 incompressible", func(t *testing.T) {
		old := lz4Compress
		lz4Compress = func(src, dst []byte) (int, error) { return 0, nil }
		t.Cleanup(func() { lz4Compress = old })
		m := sampleMesh()
		require.Equal(t, m, roundTrip(t, m, WithCompressor(CompressorLZ4)))
	})
}
