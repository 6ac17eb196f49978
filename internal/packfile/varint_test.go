package packfile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadEntryHeaderSmallSize(t *testing.T) {
	// type=3 (blob), size=5: single byte, no continuation.
	// bits: MSB=0, type=011, size_lo=0101
	b := []byte{0b0011_0101}
	typ, size, err := readEntryHeader(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, EntryBlob, typ)
	require.Equal(t, int64(5), size)
}

func TestReadEntryHeaderMultiByteSize(t *testing.T) {
	// type=3 (blob), size=19: low nibble 0x3, remaining 1, one continuation byte.
	b := []byte{0b1011_0011, 0b0000_0001}
	typ, size, err := readEntryHeader(bytes.NewReader(b))
	require.NoError(t, err)
	require.Equal(t, EntryBlob, typ)
	require.Equal(t, int64(19), size)
}

func TestReadEntryHeaderRejectsUnknownType(t *testing.T) {
	b := []byte{0b0000_0101} // type=0
	_, _, err := readEntryHeader(bytes.NewReader(b))
	require.Error(t, err)
}

func TestReadOffsetDeltaSingleByte(t *testing.T) {
	v, err := readOffsetDelta(bytes.NewReader([]byte{0x05}))
	require.NoError(t, err)
	require.Equal(t, int64(5), v)
}

func TestReadOffsetDeltaMultiByte(t *testing.T) {
	// Two-byte encoding per the pack "offset" bias rule:
	// value = ((first & 0x7f + 1) << 7) | (second & 0x7f)
	v, err := readOffsetDelta(bytes.NewReader([]byte{0x81, 0x00}))
	require.NoError(t, err)
	require.Equal(t, int64(((1+1)<<7)|0), v)
}

func TestReadDeltaVarintSingleByte(t *testing.T) {
	v, rest, err := readDeltaVarint([]byte{23, 0xFF})
	require.NoError(t, err)
	require.Equal(t, int64(23), v)
	require.Equal(t, []byte{0xFF}, rest)
}

func TestReadDeltaVarintMultiByte(t *testing.T) {
	// 300 = 0b1_0010_1100 -> low7=0x2c with continuation, high bits=0b10=2
	v, rest, err := readDeltaVarint([]byte{0xAC, 0x02, 0x99})
	require.NoError(t, err)
	require.Equal(t, int64(300), v)
	require.Equal(t, []byte{0x99}, rest)
}
