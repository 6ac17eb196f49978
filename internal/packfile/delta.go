package packfile

import (
	"github.com/pkg/errors"

	"github.com/mbrt/picogit/internal/objstore"
)

// applyDelta runs the copy/insert program in delta against base and
// returns the reconstructed object payload. delta is the fully-inflated
// delta payload: base_size varint, result_size varint, then instructions.
func applyDelta(base, delta []byte) ([]byte, error) {
	baseSize, rest, err := readDeltaVarint(delta)
	if err != nil {
		return nil, errors.Wrap(err, "read base_size")
	}
	if baseSize != int64(len(base)) {
		return nil, errors.Wrapf(objstore.ErrCorruptObject, "delta base_size %d does not match base object length %d", baseSize, len(base))
	}

	resultSize, rest, err := readDeltaVarint(rest)
	if err != nil {
		return nil, errors.Wrap(err, "read result_size")
	}

	out := make([]byte, 0, resultSize)

	for len(rest) > 0 {
		op := rest[0]
		rest = rest[1:]

		if op&0x80 != 0 {
			// Copy: bits 0..3 select which of 4 little-endian offset bytes
			// follow; bits 4..6 select which of 3 size bytes follow.
			// Absent bytes default to zero; size == 0 means 0x10000.
			var offset, size uint32
			for i := uint(0); i < 4; i++ {
				if op&(1<<i) != 0 {
					if len(rest) == 0 {
						return nil, errors.Wrap(objstore.ErrTruncatedPack, "copy instruction missing offset byte")
					}
					offset |= uint32(rest[0]) << (8 * i)
					rest = rest[1:]
				}
			}
			for i := uint(0); i < 3; i++ {
				if op&(1<<(4+i)) != 0 {
					if len(rest) == 0 {
						return nil, errors.Wrap(objstore.ErrTruncatedPack, "copy instruction missing size byte")
					}
					size |= uint32(rest[0]) << (8 * i)
					rest = rest[1:]
				}
			}
			if size == 0 {
				size = 0x10000
			}

			if uint64(offset)+uint64(size) > uint64(len(base)) {
				return nil, errors.Wrapf(objstore.ErrDeltaOverflow, "copy offset=%d size=%d exceeds base length %d", offset, size, len(base))
			}
			out = append(out, base[offset:offset+size]...)

		} else if op != 0 {
			// Insert: the low 7 bits give n, the next n bytes are literal.
			n := int(op & 0x7f)
			if len(rest) < n {
				return nil, errors.Wrap(objstore.ErrTruncatedPack, "insert instruction missing data")
			}
			out = append(out, rest[:n]...)
			rest = rest[n:]

		} else {
			return nil, errors.Wrap(objstore.ErrCorruptObject, "delta instruction byte 0x00 is reserved")
		}
	}

	if int64(len(out)) != resultSize {
		return nil, errors.Wrapf(objstore.ErrCorruptObject, "delta produced %d bytes, expected %d", len(out), resultSize)
	}

	return out, nil
}
