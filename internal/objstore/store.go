// Package objstore implements the content-addressed loose-object store:
// framing, hashing, zlib-compressed persistence under the two-level
// fan-out directory, and the commit-payload helpers built on top of it.
package objstore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Type is one of the four object kinds a framed object may declare.
type Type string

const (
	TypeBlob   Type = "blob"
	TypeTree   Type = "tree"
	TypeCommit Type = "commit"
	TypeTag    Type = "tag"
)

func (t Type) valid() bool {
	switch t {
	case TypeBlob, TypeTree, TypeCommit, TypeTag:
		return true
	default:
		return false
	}
}

// Store is a loose-object store rooted at Dir (conventionally a ".git"
// directory). It is single-threaded: the core assumes exclusive writer
// access, per spec.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir. dir must already have been
// initialized via Init, or be an existing store root.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// Init creates <dir>/objects, <dir>/refs, and writes <dir>/HEAD as a
// symbolic reference to refs/heads/main.
func (s *Store) Init() error {
	for _, sub := range []string{"objects", "refs"} {
		if err := os.MkdirAll(filepath.Join(s.Dir, sub), 0o755); err != nil {
			return errors.Wrapf(err, "create %s", sub)
		}
	}
	head := filepath.Join(s.Dir, "HEAD")
	if err := os.WriteFile(head, []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		return errors.Wrap(err, "write HEAD")
	}
	return nil
}

// frame builds "<type> <len>\0" || payload, the exact byte sequence hashed
// to produce an OID and stored (compressed) at its fan-out path.
func frame(t Type, payload []byte) []byte {
	header := fmt.Sprintf("%s %d\x00", t, len(payload))
	framed := make([]byte, 0, len(header)+len(payload))
	framed = append(framed, header...)
	framed = append(framed, payload...)
	return framed
}

// Hash returns the OID a Put of (t, payload) would produce, without
// writing anything. The Pack Decoder uses this to index resolved objects,
// including reconstructed deltas, by OID so later ref-deltas can find
// their bases.
func Hash(t Type, payload []byte) OID {
	return hashFramed(frame(t, payload))
}

func (s *Store) pathFor(oid OID) string {
	hex := oid.String()
	return filepath.Join(s.Dir, "objects", hex[:2], hex[2:])
}

// Put frames payload under t, hashes the framed bytes, and writes the
// zlib-compressed framed object to its fan-out path. If the path already
// exists the write is skipped: loose objects are write-once and
// content-addressed, so a second Put of the same bytes is a no-op.
func (s *Store) Put(t Type, payload []byte) (OID, error) {
	if !t.valid() {
		return OID{}, errors.Wrapf(ErrCorruptObject, "invalid object type %q", t)
	}

	framed := frame(t, payload)
	oid := hashFramed(framed)
	path := s.pathFor(oid)

	if _, err := os.Stat(path); err == nil {
		log.Debug().Str("oid", oid.String()).Msg("object already present")
		return oid, nil
	} else if !os.IsNotExist(err) {
		return OID{}, errors.Wrapf(err, "stat %s", path)
	}

	compressed, err := deflate(framed)
	if err != nil {
		return OID{}, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return OID{}, errors.Wrapf(err, "create fan-out dir for %s", oid)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o444); err != nil {
		return OID{}, errors.Wrapf(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return OID{}, errors.Wrapf(err, "rename %s into place", path)
	}

	log.Debug().Str("oid", oid.String()).Str("type", string(t)).Int("size", len(payload)).Msg("object stored")
	return oid, nil
}

// Get reads, inflates, and parses the loose object at oid, returning its
// declared type and payload.
func (s *Store) Get(oid OID) (Type, []byte, error) {
	path := s.pathFor(oid)

	compressed, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil, errors.Wrapf(ErrNotFound, "oid %s", oid)
	} else if err != nil {
		return "", nil, errors.Wrapf(err, "read %s", path)
	}

	framed, err := inflate(compressed)
	if err != nil {
		return "", nil, errors.Wrapf(err, "oid %s", oid)
	}

	header, payload, ok := bytes.Cut(framed, []byte{0})
	if !ok {
		return "", nil, errors.Wrapf(ErrCorruptObject, "oid %s: no NUL header terminator", oid)
	}

	typ, lenStr, ok := bytes.Cut(header, []byte{' '})
	if !ok {
		return "", nil, errors.Wrapf(ErrCorruptObject, "oid %s: malformed header %q", oid, header)
	}

	t := Type(typ)
	if !t.valid() {
		return "", nil, errors.Wrapf(ErrCorruptObject, "oid %s: unknown type %q", oid, typ)
	}

	declaredLen, err := strconv.Atoi(string(lenStr))
	if err != nil || declaredLen != len(payload) {
		return "", nil, errors.Wrapf(ErrCorruptObject, "oid %s: declared length %q, got %d bytes", oid, lenStr, len(payload))
	}

	return t, payload, nil
}

// Exists reports whether oid is present in the store without reading it.
func (s *Store) Exists(oid OID) bool {
	_, err := os.Stat(s.pathFor(oid))
	return err == nil
}

// WriteRef persists a named reference ("refs/heads/main", "HEAD", ...) as
// "<hex oid>\n" under the store root. References are write-last-wins: no
// atomic multi-reference commitment is made.
func (s *Store) WriteRef(name string, oid OID) error {
	path := filepath.Join(s.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create parent dir for ref %s", name)
	}
	if err := os.WriteFile(path, []byte(oid.String()+"\n"), 0o644); err != nil {
		return errors.Wrapf(err, "write ref %s", name)
	}
	return nil
}

// ReadHead resolves HEAD: either a direct OID, or a symbolic reference
// ("ref: refs/heads/main\n") followed one indirection.
func (s *Store) ReadHead() (OID, error) {
	contents, err := os.ReadFile(filepath.Join(s.Dir, "HEAD"))
	if err != nil {
		return OID{}, errors.Wrap(err, "read HEAD")
	}
	line := bytes.TrimSpace(contents)

	const symPrefix = "ref: "
	if bytes.HasPrefix(line, []byte(symPrefix)) {
		refName := string(line[len(symPrefix):])
		refPath := filepath.Join(s.Dir, filepath.FromSlash(refName))
		refContents, err := os.ReadFile(refPath)
		if err != nil {
			return OID{}, errors.Wrapf(err, "read %s", refName)
		}
		line = bytes.TrimSpace(refContents)
	}

	return ParseOID(string(line))
}
