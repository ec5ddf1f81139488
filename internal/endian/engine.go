// Package endian maps between the byte_order attribute of a VTK XML document
// and encoding/binary byte orders.
package endian

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

const (
	LittleEndianName = "LittleEndian"
	BigEndianName    = "BigEndian"
)

// Engine combines ByteOrder and AppendByteOrder so callers can both read
// fixed-width values and append them to a buffer.
type Engine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

var native Engine = detect()

func detect() Engine {
	// 0x0100 stores 0x01 first on big-endian hosts.
	var i uint16 = 0x0100
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Native returns the host byte order.
func Native() Engine {
	return native
}

// IsNative reports whether e is the host byte order.
func IsNative(e Engine) bool {
	return e == native
}

// Name returns the document attribute value for e.
func Name(e Engine) string {
	if e == Engine(binary.BigEndian) {
		return BigEndianName
	}
	return LittleEndianName
}

// Parse resolves a byte_order attribute value.
func Parse(name string) (Engine, error) {
	switch name {
	case LittleEndianName:
		return binary.LittleEndian, nil
	case BigEndianName:
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("unknown byte order %q", name)
	}
}
