package packfile

import (
	"bytes"
	"hash/crc32"

	"github.com/pkg/errors"

	"github.com/mbrt/picogit/internal/objstore"
)

var signature = []byte("PACK")

const supportedVersion = 2

// Header is the 12-byte pack preamble: "PACK", a version, and an object
// count.
type Header struct {
	Version     uint32
	ObjectCount uint32
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	n, err := r.Read(b[:])
	if n != 4 || err != nil {
		return 0, errors.Wrap(objstore.ErrTruncatedPack, "read uint32")
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func readHeader(r *bytes.Reader) (Header, error) {
	magic := make([]byte, 4)
	n, err := r.Read(magic)
	if n != 4 || err != nil || !bytes.Equal(magic, signature) {
		return Header{}, errors.Wrap(objstore.ErrTruncatedPack, "bad pack signature")
	}

	version, err := readUint32(r)
	if err != nil {
		return Header{}, err
	}
	if version != supportedVersion {
		return Header{}, errors.Wrapf(objstore.ErrCorruptObject, "unsupported pack version %d", version)
	}

	count, err := readUint32(r)
	if err != nil {
		return Header{}, err
	}

	return Header{Version: version, ObjectCount: count}, nil
}

// rawEntry is one pack object entry after header classification and zlib
// inflation, before delta resolution.
type rawEntry struct {
	offset int64
	typ    EntryType

	// payload is the inflated object bytes for non-delta entries, or the
	// inflated delta program (base_size, result_size, instructions) for
	// delta entries.
	payload []byte

	baseOffset int64        // set when typ == EntryOffsetDelta
	baseOID    objstore.OID // set when typ == EntryRefDelta

	crc32 uint32
}

// scanEntries classifies and inflates every object entry in the pack,
// positioned at r's current offset (immediately after the 12-byte
// header). It performs no delta resolution.
func scanEntries(pack []byte, r *bytes.Reader, count uint32) ([]rawEntry, error) {
	entries := make([]rawEntry, 0, count)
	total := int64(len(pack))

	for i := uint32(0); i < count; i++ {
		start := total - int64(r.Len())

		typ, size, err := readEntryHeader(r)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}

		e := rawEntry{offset: start, typ: typ}

		switch typ {
		case EntryOffsetDelta:
			negOffset, err := readOffsetDelta(r)
			if err != nil {
				return nil, errors.Wrapf(err, "entry %d", i)
			}
			e.baseOffset = start - negOffset
			if e.baseOffset < 0 || e.baseOffset >= start {
				return nil, errors.Wrapf(objstore.ErrCorruptObject, "entry %d: offset-delta base offset %d out of range", i, e.baseOffset)
			}
		case EntryRefDelta:
			var oidBytes [20]byte
			n, err := r.Read(oidBytes[:])
			if n != 20 || err != nil {
				return nil, errors.Wrapf(objstore.ErrTruncatedPack, "entry %d: read ref-delta base oid", i)
			}
			e.baseOID = objstore.OID(oidBytes)
		}

		payload, _, err := objstore.InflateStream(r)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d: inflate", i)
		}
		if !typ.isDelta() && int64(len(payload)) != size {
			return nil, errors.Wrapf(objstore.ErrCorruptObject, "entry %d: declared size %d, inflated %d", i, size, len(payload))
		}
		e.payload = payload

		end := total - int64(r.Len())
		e.crc32 = crc32.ChecksumIEEE(pack[start:end])

		entries = append(entries, e)
	}

	return entries, nil
}
