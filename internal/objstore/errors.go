package objstore

import "errors"

// Error taxonomy shared across the object store, pack decoder, and
// checkout renderer. Callers match with errors.Is; internal packages
// wrap these with github.com/pkg/errors to attach context.
var (
	// ErrNotFound is returned when a referenced OID or path is absent.
	ErrNotFound = errors.New("object not found")
	// ErrCorruptObject is returned when a stored object's header is
	// malformed, its declared length disagrees with its payload, or its
	// zlib stream cannot be inflated.
	ErrCorruptObject = errors.New("corrupt object")
	// ErrUnknownType is returned for a pack entry type outside {1,2,3,4,6,7}.
	ErrUnknownType = errors.New("unknown object type")
	// ErrTruncatedPack is returned when a pack stream ends before its
	// declared object count or an entry is incomplete.
	ErrTruncatedPack = errors.New("truncated pack")
	// ErrMissingBase is returned when a delta's base object cannot be
	// resolved after all decoding passes.
	ErrMissingBase = errors.New("missing delta base")
	// ErrDeltaOverflow is returned when a copy instruction addresses
	// beyond the base object's length.
	ErrDeltaOverflow = errors.New("delta copy overflows base object")
	// ErrUnsupportedMode is returned for a tree entry mode outside {100644, 40000}.
	ErrUnsupportedMode = errors.New("unsupported tree entry mode")
	// ErrTransport is returned when the HTTP/filesystem collaborator fails.
	ErrTransport = errors.New("transport error")
)
