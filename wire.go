package vtu

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/logicossoftware/go-vtu/internal/endian"
)

// base64Chars returns the number of base64 characters that encode n bytes.
func base64Chars(n int) int {
	return (n + 2) / 3 * 4
}

// arrayCodec encodes and decodes binary array payloads under one document's
// settings.
type arrayCodec struct {
	order      endian.Engine
	headerKind ScalarKind
	compressor Compressor
	limits     Limits
}

func (c arrayCodec) headerSize() int {
	return c.headerKind.Size()
}

func (c arrayCodec) appendHeader(buf []byte, v uint64) []byte {
	switch c.headerKind.Size() {
	case 1:
		return append(buf, byte(v))
	case 2:
		return c.order.AppendUint16(buf, uint16(v))
	case 4:
		return c.order.AppendUint32(buf, uint32(v))
	default:
		return c.order.AppendUint64(buf, v)
	}
}

// headerFits reports whether v is representable in the header kind.
func (c arrayCodec) headerFits(v uint64) bool {
	bits := 8 * c.headerKind.Size()
	if !c.headerKind.isUnsigned() {
		bits--
	}
	return bits >= 64 || v < 1<<bits
}

// headerItem reads the i-th header integer from b.
func (c arrayCodec) headerItem(b []byte, i int) uint64 {
	s := c.headerKind.Size()
	b = b[i*s : (i+1)*s]
	switch s {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(c.order.Uint16(b))
	case 4:
		return uint64(c.order.Uint32(b))
	default:
		return c.order.Uint64(b)
	}
}

// encodeRaw returns the array's values in the given byte order.
func encodeRaw(a Array, order binary.ByteOrder) ([]byte, error) {
	if a.Kind() == 0 {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, a.Data)
	}
	if a.Len() == 0 {
		return []byte{}, nil
	}
	return binary.Append(nil, order, a.Data)
}

// decodeRaw interprets b as values of kind in the given byte order.
func decodeRaw(b []byte, kind ScalarKind, components int, order binary.ByteOrder) (Array, error) {
	size := kind.Size()
	if size == 0 {
		return Array{}, fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
	}
	if len(b)%size != 0 {
		return Array{}, fmt.Errorf("%w: %d bytes is not a multiple of %s", ErrArray, len(b), kind)
	}
	out := makeArray(kind, len(b)/size, components)
	if len(b) == 0 {
		return out, nil
	}
	if _, err := binary.Decode(b, order, out.Data); err != nil {
		return Array{}, fmt.Errorf("%w: %v", ErrArray, err)
	}
	return out, nil
}

// encodeRuns returns the binary runs of an array. Uncompressed arrays are one
// run of header and payload. Compressed arrays are two runs, the block header
// and the concatenated blocks, so the decoder can find the header end.
func (c arrayCodec) encodeRuns(a Array) ([][]byte, error) {
	raw, err := encodeRaw(a, c.order)
	if err != nil {
		return nil, err
	}
	if c.compressor == CompressorNone {
		if !c.headerFits(uint64(len(raw))) {
			return nil, fmt.Errorf("%w: %d bytes overflow header type %s", ErrValidation, len(raw), c.headerKind)
		}
		buf := c.appendHeader(make([]byte, 0, c.headerSize()+len(raw)), uint64(len(raw)))
		return [][]byte{append(buf, raw...)}, nil
	}
	header, body, err := c.compressBlocks(raw)
	if err != nil {
		return nil, err
	}
	return [][]byte{header, body}, nil
}

// encode returns the base64 text of a binary array, each run encoded on its
// own.
func (c arrayCodec) encode(a Array) (string, error) {
	runs, err := c.encodeRuns(a)
	if err != nil {
		return "", err
	}
	var out []byte
	for _, r := range runs {
		out = base64.StdEncoding.AppendEncode(out, r)
	}
	return string(out), nil
}

// compressBlocks splits raw into blockSize chunks and compresses each. It
// returns the block header and the concatenated compressed blocks.
func (c arrayCodec) compressBlocks(raw []byte) (header, body []byte, err error) {
	numBlocks := (len(raw) + blockSize - 1) / blockSize
	lastSize := 0
	if numBlocks > 0 {
		lastSize = len(raw) - (numBlocks-1)*blockSize
	}
	sizes := make([]uint64, 0, numBlocks)
	for start := 0; start < len(raw); start += blockSize {
		end := min(start+blockSize, len(raw))
		block, err := compressBlock(c.compressor, raw[start:end])
		if err != nil {
			return nil, nil, err
		}
		sizes = append(sizes, uint64(len(block)))
		body = append(body, block...)
	}

	if !c.headerFits(blockSize) {
		return nil, nil, fmt.Errorf("%w: block size overflows header type %s", ErrValidation, c.headerKind)
	}
	header = make([]byte, 0, (3+numBlocks)*c.headerSize())
	header = c.appendHeader(header, uint64(numBlocks))
	header = c.appendHeader(header, blockSize)
	header = c.appendHeader(header, uint64(lastSize))
	for _, s := range sizes {
		header = c.appendHeader(header, s)
	}
	return header, body, nil
}

// decode reads one binary array from the start of text. text may continue
// past the array, as it does for appended data; only the characters the
// header accounts for are consumed.
func (c arrayCodec) decode(text string, kind ScalarKind, components int) (Array, error) {
	var raw []byte
	var err error
	if c.compressor == CompressorNone {
		raw, err = c.decodeUncompressed(text)
	} else {
		raw, err = c.decodeCompressed(text)
	}
	if err != nil {
		return Array{}, err
	}
	return decodeRaw(raw, kind, components, c.order)
}

func (c arrayCodec) decodeUncompressed(text string) ([]byte, error) {
	hs := c.headerSize()
	hc := base64Chars(hs)
	head, err := decodeBase64(text, 0, hc)
	if err != nil {
		return nil, err
	}
	if len(head) < hs {
		return nil, fmt.Errorf("%w: truncated array header", ErrArray)
	}
	n := c.headerItem(head, 0)
	if n > uint64(c.limits.MaxArrayBytes) {
		return nil, fmt.Errorf("%w: array of %d bytes", ErrLimitExceeded, n)
	}
	size := int(n)
	if len(head) >= hs+size {
		return head[hs : hs+size], nil
	}

	// A padded header quantum means the header was encoded on its own and
	// the payload is a separate base64 run.
	if text[hc-1] == '=' {
		payload, err := decodeBase64(text, hc, base64Chars(size))
		if err != nil {
			return nil, err
		}
		if len(payload) < size {
			return nil, fmt.Errorf("%w: payload has %d of %d bytes", ErrArray, len(payload), size)
		}
		return payload[:size], nil
	}
	all, err := decodeBase64(text, 0, base64Chars(hs+size))
	if err != nil {
		return nil, err
	}
	if len(all) < hs+size {
		return nil, fmt.Errorf("%w: payload has %d of %d bytes", ErrArray, len(all)-hs, size)
	}
	return all[hs : hs+size], nil
}

func (c arrayCodec) decodeCompressed(text string) ([]byte, error) {
	hs := c.headerSize()
	first, err := decodeBase64(text, 0, base64Chars(hs))
	if err != nil {
		return nil, err
	}
	if len(first) < hs {
		return nil, fmt.Errorf("%w: truncated block header", ErrArray)
	}
	numBlocks := c.headerItem(first, 0)
	if numBlocks > uint64(c.limits.MaxBlocks) {
		return nil, fmt.Errorf("%w: %d compression blocks", ErrLimitExceeded, numBlocks)
	}
	headerBytes := (3 + int(numBlocks)) * hs
	headerChars := base64Chars(headerBytes)
	header, err := decodeBase64(text, 0, headerChars)
	if err != nil {
		return nil, err
	}
	if len(header) < headerBytes {
		return nil, fmt.Errorf("%w: truncated block header", ErrArray)
	}
	bh, err := c.parseBlockHeader(header)
	if err != nil {
		return nil, err
	}
	body, err := decodeBase64(text, headerChars, base64Chars(bh.compressedSize()))
	if err != nil {
		return nil, err
	}
	return bh.inflate(c.compressor, body)
}

// blockHeader is the parsed header of a compressed array.
type blockHeader struct {
	maxSize  int
	lastSize int
	sizes    []int
}

func (c arrayCodec) parseBlockHeader(header []byte) (blockHeader, error) {
	n, maxSize, lastSize := c.headerItem(header, 0), c.headerItem(header, 1), c.headerItem(header, 2)
	if n > uint64(c.limits.MaxBlocks) {
		return blockHeader{}, fmt.Errorf("%w: %d compression blocks", ErrLimitExceeded, n)
	}
	if lastSize > maxSize {
		return blockHeader{}, fmt.Errorf("%w: block sizes %d/%d", ErrArray, maxSize, lastSize)
	}
	// n*maxSize <= MaxArrayBytes, checked without overflow.
	if maxSize > 0 && n > uint64(c.limits.MaxArrayBytes)/maxSize {
		return blockHeader{}, fmt.Errorf("%w: %d blocks of %d bytes", ErrLimitExceeded, n, maxSize)
	}
	bh := blockHeader{
		maxSize:  int(maxSize),
		lastSize: int(lastSize),
		sizes:    make([]int, n),
	}
	for i := range bh.sizes {
		s := c.headerItem(header, 3+i)
		if s > uint64(c.limits.MaxArrayBytes) {
			return blockHeader{}, fmt.Errorf("%w: compressed block of %d bytes", ErrLimitExceeded, s)
		}
		bh.sizes[i] = int(s)
	}
	return bh, nil
}

func (bh blockHeader) compressedSize() int {
	total := 0
	for _, s := range bh.sizes {
		total += s
	}
	return total
}

// uncompressedSize returns the inflated size of block i. A zero last-block
// size means the last block is full.
func (bh blockHeader) uncompressedSize(i int) int {
	if i == len(bh.sizes)-1 && bh.lastSize != 0 {
		return bh.lastSize
	}
	return bh.maxSize
}

// inflate decompresses the blocks of body and concatenates them.
func (bh blockHeader) inflate(comp Compressor, body []byte) ([]byte, error) {
	if len(body) < bh.compressedSize() {
		return nil, fmt.Errorf("%w: compressed body has %d of %d bytes", ErrArray, len(body), bh.compressedSize())
	}
	out := make([]byte, 0, len(bh.sizes)*bh.maxSize)
	offset := 0
	for i, s := range bh.sizes {
		block, err := decompressBlock(comp, body[offset:offset+s], bh.uncompressedSize(i))
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
		offset += s
	}
	return out, nil
}

// decodeBase64 decodes text[start:start+n]. Running off the end of text is
// an array error.
func decodeBase64(text string, start, n int) ([]byte, error) {
	if start < 0 || n < 0 || start+n > len(text) {
		return nil, fmt.Errorf("%w: base64 data ends after %d characters, need %d", ErrArray, len(text), start+n)
	}
	b, err := base64.StdEncoding.DecodeString(text[start : start+n])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArray, err)
	}
	return b, nil
}
