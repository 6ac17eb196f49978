package objstore

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1"
	"io"

	"github.com/pkg/errors"
)

// OID is the 20-byte SHA-1 digest of a framed object.
type OID [20]byte

// String renders the OID as 40 lowercase hex characters.
func (o OID) String() string {
	const hex = "0123456789abcdef"
	buf := make([]byte, 40)
	for i, b := range o {
		buf[i*2] = hex[b>>4]
		buf[i*2+1] = hex[b&0x0f]
	}
	return string(buf)
}

// IsZero reports whether o is the all-zero OID, i.e. an OID that was never set.
func (o OID) IsZero() bool {
	return o == OID{}
}

// ParseOID parses a 40-character hex string into an OID.
func ParseOID(hex string) (OID, error) {
	var o OID
	if len(hex) != 40 {
		return o, errors.Wrapf(ErrCorruptObject, "oid %q: want 40 hex chars, got %d", hex, len(hex))
	}
	for i := 0; i < 20; i++ {
		hi, ok1 := hexNibble(hex[i*2])
		lo, ok2 := hexNibble(hex[i*2+1])
		if !ok1 || !ok2 {
			return o, errors.Wrapf(ErrCorruptObject, "oid %q: invalid hex", hex)
		}
		o[i] = hi<<4 | lo
	}
	return o, nil
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// hashFramed returns the SHA-1 digest of a framed object's bytes.
func hashFramed(framed []byte) OID {
	var o OID
	sum := sha1.Sum(framed)
	copy(o[:], sum[:])
	return o
}

// deflate compresses payload using zlib at best-speed level, the level
// Git itself uses for loose-object writes.
func deflate(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestSpeed)
	if err != nil {
		return nil, errors.Wrap(err, "create zlib writer")
	}
	if _, err := w.Write(payload); err != nil {
		_ = w.Close()
		return nil, errors.Wrap(err, "deflate")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "close zlib writer")
	}
	return buf.Bytes(), nil
}

// inflate decompresses a complete zlib stream.
func inflate(compressed []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.Wrap(ErrCorruptObject, err.Error())
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(ErrCorruptObject, err.Error())
	}
	return out, nil
}

// InflateStream decompresses the zlib member positioned at src's current
// offset and reports how many bytes of src were consumed, so the caller
// (the Pack Decoder) can resume reading immediately after the compressed
// entry without an intervening length field.
//
// src must be a *bytes.Reader: it already implements io.ByteReader, which
// keeps zlib.NewReader from wrapping it in a read-ahead buffer that would
// otherwise swallow bytes belonging to the next pack entry.
func InflateStream(src *bytes.Reader) (inflated []byte, consumed int64, err error) {
	before := src.Len()
	zr, err := zlib.NewReader(src)
	if err != nil {
		return nil, 0, errors.Wrap(ErrCorruptObject, err.Error())
	}
	defer zr.Close()

	inflated, err = io.ReadAll(zr)
	if err != nil {
		return nil, 0, errors.Wrap(ErrCorruptObject, err.Error())
	}
	consumed = int64(before - src.Len())
	return inflated, consumed, nil
}
