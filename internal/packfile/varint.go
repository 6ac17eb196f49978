package packfile

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/mbrt/picogit/internal/objstore"
)

// EntryType is a pack entry's type code, as carried in the three "type"
// bits of the per-entry header.
type EntryType uint8

const (
	EntryCommit      EntryType = 1
	EntryTree        EntryType = 2
	EntryBlob        EntryType = 3
	EntryTag         EntryType = 4
	EntryOffsetDelta EntryType = 6
	EntryRefDelta    EntryType = 7
)

func (t EntryType) valid() bool {
	switch t {
	case EntryCommit, EntryTree, EntryBlob, EntryTag, EntryOffsetDelta, EntryRefDelta:
		return true
	default:
		return false
	}
}

func (t EntryType) isDelta() bool {
	return t == EntryOffsetDelta || t == EntryRefDelta
}

// objType maps a non-delta entry type to the object-store type name.
func (t EntryType) objType() objstore.Type {
	switch t {
	case EntryCommit:
		return objstore.TypeCommit
	case EntryTree:
		return objstore.TypeTree
	case EntryBlob:
		return objstore.TypeBlob
	case EntryTag:
		return objstore.TypeTag
	default:
		return ""
	}
}

// readEntryHeader decodes the per-entry header varint: the first byte's
// MSB is a continuation bit, bits 6..4 are the type, bits 3..0 are the
// low 4 bits of the size. While the MSB is set, each following byte
// contributes 7 more bits to the size, shifted by 4, 11, 18, ... This is
// a different bit layout than the delta-payload size varint in
// readDeltaVarint; the two must not be conflated.
func readEntryHeader(r *bytes.Reader) (EntryType, int64, error) {
	first, err := r.ReadByte()
	if err != nil {
		return 0, 0, errors.Wrap(objstore.ErrTruncatedPack, "read entry header")
	}

	typ := EntryType((first >> 4) & 0x07)
	if !typ.valid() {
		return 0, 0, errors.Wrapf(objstore.ErrUnknownType, "entry type code %d", (first>>4)&0x07)
	}

	size := int64(first & 0x0f)
	shift := uint(4)
	for first&0x80 != 0 {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, errors.Wrap(objstore.ErrTruncatedPack, "read entry header size byte")
		}
		size |= int64(b&0x7f) << shift
		shift += 7
		first = b
	}

	return typ, size, nil
}

// readOffsetDelta decodes the variable-length negative offset that
// follows an offset-delta (type 6) header: the base object is located at
// (entryOffset - value) within this pack. Each byte's low 7 bits
// contribute to the magnitude, most-significant group first, with an
// implicit +2^7, +2^14, ... bias added for every continuation byte
// beyond the first — the standard pack "offset" encoding, distinct from
// both varint flavours used elsewhere in this format.
func readOffsetDelta(r *bytes.Reader) (int64, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, errors.Wrap(objstore.ErrTruncatedPack, "read offset-delta byte")
	}
	value := int64(b & 0x7f)
	for b&0x80 != 0 {
		b, err = r.ReadByte()
		if err != nil {
			return 0, errors.Wrap(objstore.ErrTruncatedPack, "read offset-delta byte")
		}
		value = ((value + 1) << 7) | int64(b&0x7f)
	}
	return value, nil
}

// readDeltaVarint decodes the size varint used inside a delta payload for
// base_size and result_size: the first byte contributes 7 bits, and each
// continuation byte (MSB set) contributes 7 more bits, shifted by
// 7, 14, .... This layout reserves no bits for a type field, unlike
// readEntryHeader.
func readDeltaVarint(data []byte) (value int64, rest []byte, err error) {
	shift := uint(0)
	for i, b := range data {
		value |= int64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, data[i+1:], nil
		}
		shift += 7
	}
	return 0, nil, errors.Wrap(objstore.ErrTruncatedPack, "delta varint ran past end of payload")
}
