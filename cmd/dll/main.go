// Package main provides C-compatible exports for the vtu library.
// Build with: go build -buildmode=c-shared -o vtu.dll
package main

/*
#include <stdlib.h>
#include <stdint.h>

// Result structure for operations that return data
typedef struct {
    char* data;
    int   data_len;
    char* error;
} VtuResult;
*/
import "C"

import (
	"bytes"
	"encoding/json"
	"unsafe"

	"github.com/logicossoftware/go-vtu"
)

func main() {}

// VtuVersion returns the VTKFile version written by this library.
// The string is static and must not be freed.
//
//export VtuVersion
func VtuVersion() *C.char {
	return versionString
}

var versionString = C.CString(vtu.Version01)

// VtuFreeResult frees memory allocated by other Vtu functions.
// Must be called to avoid memory leaks.
//
//export VtuFreeResult
func VtuFreeResult(result C.VtuResult) {
	if result.data != nil {
		C.free(unsafe.Pointer(result.data))
	}
	if result.error != nil {
		C.free(unsafe.Pointer(result.error))
	}
}

// VtuFreeString frees a C string allocated by Go.
//
//export VtuFreeString
func VtuFreeString(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

// makeResult creates a result with data.
func makeResult(data []byte) C.VtuResult {
	var result C.VtuResult
	if len(data) > 0 {
		result.data = (*C.char)(C.CBytes(data))
		result.data_len = C.int(len(data))
	}
	return result
}

// makeError creates a result with an error message.
func makeError(err error) C.VtuResult {
	var result C.VtuResult
	result.error = C.CString(err.Error())
	return result
}

func decode(data *C.char, dataLen C.int) (*vtu.Mesh, error) {
	goData := C.GoBytes(unsafe.Pointer(data), dataLen)
	return vtu.Decode(bytes.NewReader(goData))
}

// VtuInspect decodes a .vtu document and returns a JSON summary.
// Parameters:
//   - data: pointer to .vtu file bytes
//   - dataLen: length of the data
//
// Returns VtuResult with JSON or error. Call VtuFreeResult when done.
// The JSON structure contains: points, cells, blocks (type and count),
// pointData, cellData and fieldData (name to component count).
//
//export VtuInspect
func VtuInspect(data *C.char, dataLen C.int) C.VtuResult {
	m, err := decode(data, dataLen)
	if err != nil {
		return makeError(err)
	}

	blocks := make([]map[string]any, len(m.Cells))
	for i, b := range m.Cells {
		blocks[i] = map[string]any{
			"type":  b.Type,
			"count": b.Len(),
		}
	}
	pointData := make(map[string]any, len(m.PointData))
	for k, a := range m.PointData {
		pointData[k] = map[string]any{"type": a.Kind().String(), "components": a.Components}
	}
	cellData := make(map[string]any, len(m.CellData))
	for k, arrs := range m.CellData {
		kind := ""
		if len(arrs) > 0 {
			kind = arrs[0].Kind().String()
		}
		cellData[k] = map[string]any{"type": kind, "blocks": len(arrs)}
	}
	fieldData := make(map[string]any, len(m.FieldData))
	for k, a := range m.FieldData {
		fieldData[k] = map[string]any{"type": a.Kind().String(), "length": a.Len()}
	}

	result := map[string]any{
		"points":       m.NumPoints(),
		"cells":        m.NumCells(),
		"blocks":       blocks,
		"pointData":    pointData,
		"cellData":     cellData,
		"fieldData":    fieldData,
		"hasPolyhedra": m.CellFaces != nil,
	}

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return makeError(err)
	}

	return makeResult(jsonBytes)
}

// VtuConvert rewrites a .vtu document with new encoding settings.
// Parameters:
//   - data: pointer to .vtu file bytes
//   - dataLen: length of the data
//   - format: 0=binary, 1=ascii, 2=appended base64, 3=appended raw
//   - compressor: 0=None, 1=ZLib, 2=LZMA, 3=LZ4
//   - headerType: NULL or "" for UInt32, otherwise "UInt64", "Int32", ...
//
// Returns VtuResult with the encoded document or error. Call VtuFreeResult when done.
//
//export VtuConvert
func VtuConvert(data *C.char, dataLen C.int, format C.int, compressor C.int, headerType *C.char) C.VtuResult {
	m, err := decode(data, dataLen)
	if err != nil {
		return makeError(err)
	}

	opts := []vtu.WriteOption{vtu.WithCompressor(vtu.Compressor(compressor))}
	switch format {
	case 1:
		opts = append(opts, vtu.WithBinary(false))
	case 2:
		opts = append(opts, vtu.WithAppended(true))
	case 3:
		opts = append(opts, vtu.WithRawAppended(true))
	}
	if headerType != nil {
		if name := C.GoString(headerType); name != "" {
			hk, err := vtu.ParseScalarKind(name)
			if err != nil {
				return makeError(err)
			}
			opts = append(opts, vtu.WithHeaderType(hk))
		}
	}

	var buf bytes.Buffer
	if err := vtu.Encode(&buf, m, opts...); err != nil {
		return makeError(err)
	}

	return makeResult(buf.Bytes())
}

// VtuValidate decodes and checks a .vtu document.
// Returns NULL on success, or an error message string on failure.
// Call VtuFreeString on the result if non-NULL.
//
//export VtuValidate
func VtuValidate(data *C.char, dataLen C.int) *C.char {
	m, err := decode(data, dataLen)
	if err == nil {
		err = vtu.Validate(m)
	}
	if err != nil {
		return C.CString(err.Error())
	}
	return nil
}

// VtuGetPointCount returns the number of points in a .vtu document.
// Returns -1 on error.
//
//export VtuGetPointCount
func VtuGetPointCount(data *C.char, dataLen C.int) C.int {
	m, err := decode(data, dataLen)
	if err != nil {
		return -1
	}
	return C.int(m.NumPoints())
}

// VtuGetCellCount returns the number of cells in a .vtu document.
// Returns -1 on error.
//
//export VtuGetCellCount
func VtuGetCellCount(data *C.char, dataLen C.int) C.int {
	m, err := decode(data, dataLen)
	if err != nil {
		return -1
	}
	return C.int(m.NumCells())
}
