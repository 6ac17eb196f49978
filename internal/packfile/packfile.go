// Package packfile decodes a git pack stream: it classifies each entry,
// inflates its payload, and for delta entries reconstructs the target
// object by applying a copy/insert program against a located base,
// before handing every resulting object to the object store.
package packfile

import (
	"bytes"
	"crypto/sha1"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mbrt/picogit/internal/objstore"
)

const trailerSize = 20

// resolvedObject is a fully reconstructed entry: its final type, payload,
// and OID.
type resolvedObject struct {
	typ     objstore.Type
	payload []byte
	oid     objstore.OID
}

// Stats summarizes one Decode call.
type Stats struct {
	ObjectCount    int
	DeltaCount     int
	ResolvedDeltas int
}

// Decode consumes a complete raw pack byte stream (the "PACK" header,
// every object entry, and the trailing 20-byte checksum) and writes every
// object it contains — including every delta's reconstructed target — to
// store. It validates the trailer's SHA-1 against the bytes it read; a
// mismatch is a CorruptObject.
func Decode(store *objstore.Store, pack []byte) (Stats, error) {
	var stats Stats

	if len(pack) < trailerSize {
		return stats, errors.Wrap(objstore.ErrTruncatedPack, "pack shorter than trailer")
	}

	body := pack[:len(pack)-trailerSize]
	r := bytes.NewReader(body)
	header, err := readHeader(r)
	if err != nil {
		return stats, err
	}

	entries, err := scanEntries(body, r, header.ObjectCount)
	if err != nil {
		return stats, err
	}
	if r.Len() != 0 {
		return stats, errors.Wrap(objstore.ErrTruncatedPack, "trailing bytes after declared object count")
	}

	sum := sha1.Sum(pack[:len(pack)-trailerSize])
	trailer := pack[len(pack)-trailerSize:]
	if !bytes.Equal(sum[:], trailer) {
		return stats, errors.Wrap(objstore.ErrCorruptObject, "pack trailer checksum mismatch")
	}

	stats.ObjectCount = len(entries)

	resolvedByOffset := make(map[int64]resolvedObject, len(entries))
	resolvedByOID := make(map[objstore.OID]resolvedObject, len(entries))

	var pending []int
	for i, e := range entries {
		if e.typ.isDelta() {
			stats.DeltaCount++
			pending = append(pending, i)
			continue
		}

		t := e.typ.objType()
		oid := objstore.Hash(t, e.payload)
		res := resolvedObject{typ: t, payload: e.payload, oid: oid}
		resolvedByOffset[e.offset] = res
		resolvedByOID[oid] = res
	}

	for len(pending) > 0 {
		var stillPending []int
		progressed := false

		for _, idx := range pending {
			e := entries[idx]

			base, ok := lookupBase(store, e, resolvedByOffset, resolvedByOID)
			if !ok {
				stillPending = append(stillPending, idx)
				continue
			}

			payload, err := applyDelta(base.payload, e.payload)
			if err != nil {
				return stats, errors.Wrapf(err, "resolve delta at pack offset %d", e.offset)
			}

			oid := objstore.Hash(base.typ, payload)
			res := resolvedObject{typ: base.typ, payload: payload, oid: oid}
			resolvedByOffset[e.offset] = res
			resolvedByOID[oid] = res
			stats.ResolvedDeltas++
			progressed = true
		}

		if !progressed {
			return stats, errors.Wrapf(objstore.ErrMissingBase, "%d delta(s) have unresolvable bases after exhausting all passes", len(stillPending))
		}
		pending = stillPending
	}

	for _, e := range entries {
		res := resolvedByOffset[e.offset]
		if _, err := store.Put(res.typ, res.payload); err != nil {
			return stats, errors.Wrapf(err, "store object at pack offset %d", e.offset)
		}
	}

	log.Debug().
		Int("objects", stats.ObjectCount).
		Int("deltas", stats.DeltaCount).
		Int("resolved", stats.ResolvedDeltas).
		Msg("pack decoded")

	return stats, nil
}

// lookupBase finds a delta entry's base object, either among objects
// already resolved in this pack (the common, and for offset-deltas only
// possible, case) or already present in the store (a ref-delta may point
// at an object the client already has).
func lookupBase(store *objstore.Store, e rawEntry, byOffset map[int64]resolvedObject, byOID map[objstore.OID]resolvedObject) (resolvedObject, bool) {
	switch e.typ {
	case EntryOffsetDelta:
		base, ok := byOffset[e.baseOffset]
		return base, ok

	case EntryRefDelta:
		if base, ok := byOID[e.baseOID]; ok {
			return base, true
		}
		if store.Exists(e.baseOID) {
			t, payload, err := store.Get(e.baseOID)
			if err != nil {
				return resolvedObject{}, false
			}
			return resolvedObject{typ: t, payload: payload, oid: e.baseOID}, true
		}
		return resolvedObject{}, false

	default:
		return resolvedObject{}, false
	}
}
