package transport

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/mbrt/picogit/internal/objstore"
)

// flushPkt is the packet-line flush sentinel: a line whose 4-hex-digit
// length field reads "0000".
var flushPkt = []byte("0000")

// encodePktLine frames payload as "<4-hex-length><payload>", where the
// length covers the 4-byte header itself.
func encodePktLine(payload []byte) []byte {
	n := len(payload) + 4
	return append([]byte(hexLen(n)), payload...)
}

func hexLen(n int) string {
	const digits = "0123456789abcdef"
	b := make([]byte, 4)
	for i := 3; i >= 0; i-- {
		b[i] = digits[n&0xf]
		n >>= 4
	}
	return string(b)
}

// splitPktLines splits a packet-line stream into its payloads (the flush
// packets are dropped, and each surviving payload has its 4-byte length
// header stripped already).
func splitPktLines(stream []byte) ([][]byte, error) {
	var lines [][]byte
	for len(stream) > 0 {
		if len(stream) < 4 {
			return nil, errors.Wrap(objstore.ErrTransport, "packet-line stream truncated in length header")
		}
		if bytes.Equal(stream[:4], flushPkt) {
			stream = stream[4:]
			continue
		}
		n, err := parsePktLen(stream[:4])
		if err != nil {
			return nil, err
		}
		if n < 4 || n > len(stream) {
			return nil, errors.Wrap(objstore.ErrTransport, "packet-line length out of range")
		}
		lines = append(lines, stream[4:n])
		stream = stream[n:]
	}
	return lines, nil
}

func parsePktLen(b []byte) (int, error) {
	n, err := hexDecodeLen(b)
	if err != nil {
		return 0, errors.Wrap(objstore.ErrTransport, "malformed packet-line length")
	}
	return n, nil
}

func hexDecodeLen(b []byte) (int, error) {
	var n int
	for _, c := range b {
		n <<= 4
		switch {
		case c >= '0' && c <= '9':
			n |= int(c - '0')
		case c >= 'a' && c <= 'f':
			n |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			n |= int(c-'A') + 10
		default:
			return 0, errors.New("invalid hex digit")
		}
	}
	return n, nil
}
