package vtu

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"slices"
	"strconv"
)

const (
	appendedOpen  = "<AppendedData"
	appendedClose = "</AppendedData>"
)

// repairRawBinary rebuilds a document whose AppendedData section holds raw
// bytes. Raw data is not valid XML in general, so the section body is cut out
// of the document, the remainder is parsed, and every appended array is
// re-encoded as base64 at a new offset.
//
// Raw offsets count bytes after the leading underscore. Each segment starts
// with its header, which gives the segment length. Compressed segments are
// inflated and rewritten with a single uncompressed header, and the
// compressor attribute is dropped. Documents that also hold inline binary
// arrays keep their compressor, and their appended segments stay compressed.
func repairRawBinary(raw []byte, limits Limits) (*xmlNode, error) {
	start := bytes.Index(raw, []byte(appendedOpen))
	if start < 0 {
		return nil, fmt.Errorf("%w: no AppendedData section", ErrStructure)
	}
	gt := bytes.IndexByte(raw[start:], '>')
	if gt < 0 {
		return nil, fmt.Errorf("%w: unterminated AppendedData tag", ErrStructure)
	}
	gt += start
	end := bytes.LastIndex(raw, []byte(appendedClose))
	if end <= gt || raw[gt-1] == '/' {
		return nil, fmt.Errorf("%w: AppendedData section is not closed", ErrStructure)
	}

	skeleton := make([]byte, 0, gt+1+len(raw)-end)
	skeleton = append(skeleton, raw[:gt+1]...)
	skeleton = append(skeleton, raw[end:]...)
	root, err := parseXML(skeleton)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructure, err)
	}

	data := raw[gt+1 : end]
	u := bytes.IndexByte(data, '_')
	if u < 0 {
		return nil, fmt.Errorf("%w: AppendedData must begin with '_'", ErrStructure)
	}
	data = data[u+1:]

	codec, err := codecFromRoot(root, limits)
	if err != nil {
		return nil, err
	}

	var arrays []*xmlNode
	var offsets []int
	var walkErr error
	inline := false
	root.walk(func(n *xmlNode) {
		if walkErr != nil || n.tag() != "DataArray" {
			return
		}
		f, _ := n.attr("format")
		if f == FormatBinary {
			inline = true
		}
		if f != FormatAppended {
			return
		}
		off, err := intAttr(n, "offset")
		if err != nil {
			walkErr = err
			return
		}
		arrays = append(arrays, n)
		offsets = append(offsets, off)
	})
	if walkErr != nil {
		return nil, walkErr
	}
	if len(arrays) > limits.MaxArrays {
		return nil, fmt.Errorf("%w: %d appended arrays", ErrLimitExceeded, len(arrays))
	}

	unique := slices.Clone(offsets)
	slices.Sort(unique)
	unique = slices.Compact(unique)

	inflate := codec.compressor != CompressorNone && !inline
	var blob []byte
	moved := make(map[int]int, len(unique))
	for _, off := range unique {
		seg, err := codec.rawSegment(data, off, inflate)
		if err != nil {
			return nil, err
		}
		moved[off] = len(blob)
		blob = append(blob, seg...)
	}
	for i, n := range arrays {
		n.setAttr("offset", strconv.Itoa(moved[offsets[i]]))
	}

	if inflate {
		root.removeAttr("compressor")
	}
	for _, c := range root.Children {
		if c.tag() == "AppendedData" {
			c.setAttr("encoding", "base64")
			c.Text = "_" + string(blob)
		}
	}
	return root, nil
}

// rawSegment returns the base64 text of the raw array starting at data[off:].
// The text uses the same layout encode produces. With inflate set, a
// compressed segment is decompressed and written uncompressed.
func (c arrayCodec) rawSegment(data []byte, off int, inflate bool) ([]byte, error) {
	hs := c.headerSize()
	if off < 0 || off+hs > len(data) {
		return nil, fmt.Errorf("%w: appended offset %d beyond %d bytes", ErrArray, off, len(data))
	}
	b := data[off:]
	enc := base64.StdEncoding

	if c.compressor == CompressorNone {
		size := c.headerItem(b, 0)
		if size > uint64(c.limits.MaxArrayBytes) {
			return nil, fmt.Errorf("%w: array of %d bytes", ErrLimitExceeded, size)
		}
		total := hs + int(size)
		if total > len(b) {
			return nil, fmt.Errorf("%w: array at offset %d needs %d bytes, %d left", ErrArray, off, total, len(b))
		}
		return enc.AppendEncode(nil, b[:total]), nil
	}

	n := c.headerItem(b, 0)
	if n > uint64(c.limits.MaxBlocks) {
		return nil, fmt.Errorf("%w: %d blocks", ErrLimitExceeded, n)
	}
	headerLen := (3 + int(n)) * hs
	if headerLen > len(b) {
		return nil, fmt.Errorf("%w: block header at offset %d is truncated", ErrArray, off)
	}
	bh, err := c.parseBlockHeader(b[:headerLen])
	if err != nil {
		return nil, err
	}
	bodyLen := bh.compressedSize()
	if headerLen+bodyLen > len(b) {
		return nil, fmt.Errorf("%w: compressed array at offset %d needs %d bytes, %d left", ErrArray, off, headerLen+bodyLen, len(b))
	}
	body := b[headerLen : headerLen+bodyLen]
	if !inflate {
		out := enc.AppendEncode(nil, b[:headerLen])
		return enc.AppendEncode(out, body), nil
	}
	payload, err := bh.inflate(c.compressor, body)
	if err != nil {
		return nil, err
	}
	flat := c.appendHeader(make([]byte, 0, hs+len(payload)), uint64(len(payload)))
	return enc.AppendEncode(nil, append(flat, payload...)), nil
}
