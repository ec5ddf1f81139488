package endian

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAndName(t *testing.T) {
	tests := []struct {
		name   string
		engine Engine
	}{
		{LittleEndianName, binary.LittleEndian},
		{BigEndianName, binary.BigEndian},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Parse(tt.name)
			require.NoError(t, err)
			require.Equal(t, tt.engine, e)
			require.Equal(t, tt.name, Name(e))
		})
	}
}

func TestParseUnknown(t *testing.T) {
	_, err := Parse("MiddleEndian")
	require.Error(t, err)
}

func TestNative(t *testing.T) {
	n := Native()
	require.True(t, IsNative(n))

	buf := n.AppendUint16(nil, 0x0102)
	require.Equal(t, uint16(0x0102), n.Uint16(buf))

	var other Engine = binary.BigEndian
	if n == other {
		other = binary.LittleEndian
	}
	require.False(t, IsNative(other))
}
