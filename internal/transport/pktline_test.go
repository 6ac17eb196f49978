package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodePktLineLengthCoversHeader(t *testing.T) {
	out := encodePktLine([]byte("want "))
	require.Equal(t, "0009want ", string(out))
}

func TestSplitPktLinesDropsFlush(t *testing.T) {
	stream := append(encodePktLine([]byte("one\n")), flushPkt...)
	stream = append(stream, encodePktLine([]byte("two\n"))...)

	lines, err := splitPktLines(stream)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, "one\n", string(lines[0]))
	require.Equal(t, "two\n", string(lines[1]))
}

func TestSplitPktLinesRejectsTruncatedHeader(t *testing.T) {
	_, err := splitPktLines([]byte("001"))
	require.Error(t, err)
}

func TestSplitPktLinesRejectsBadLength(t *testing.T) {
	_, err := splitPktLines([]byte("zzzzpayload"))
	require.Error(t, err)
}

func TestHexDecodeLenRoundTripsHexLen(t *testing.T) {
	n, err := hexDecodeLen([]byte(hexLen(0x1234)))
	require.NoError(t, err)
	require.Equal(t, 0x1234, n)
}
