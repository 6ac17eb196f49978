// Package treeio builds and parses the binary tree-object format and
// drives recursive capture of a working directory into the object store.
package treeio

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mbrt/picogit/internal/objstore"
)

// Mode is a tree entry's mode string: "100644" for regular files or
// "40000" for subdirectories. Capture produces only these two; ParseTree
// also returns any other well-formed octal mode unchanged.
type Mode string

const (
	ModeFile Mode = "100644"
	ModeDir  Mode = "40000"
)

// Entry is one parsed tree entry: mode, raw name bytes, and the 20-byte OID
// it points at.
type Entry struct {
	Mode Mode
	Name []byte
	OID  objstore.OID
}

const storeDirName = ".git"

// Capture recursively writes path's contents into store and returns the
// resulting object's OID: a blob OID if path is a regular file, a tree
// OID if path is a directory.
func Capture(store *objstore.Store, path string) (objstore.OID, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return objstore.OID{}, errors.Wrapf(err, "stat %s", path)
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return objstore.OID{}, errors.Wrapf(err, "read %s", path)
		}
		return store.Put(objstore.TypeBlob, data)
	}

	children, err := os.ReadDir(path)
	if err != nil {
		return objstore.OID{}, errors.Wrapf(err, "list %s", path)
	}

	type namedChild struct {
		name    string
		sortKey string
		isDir   bool
	}
	named := make([]namedChild, 0, len(children))
	for _, c := range children {
		if c.Name() == storeDirName {
			continue
		}
		isDir := c.IsDir()
		key := c.Name()
		if isDir {
			key += "/"
		}
		named = append(named, namedChild{name: c.Name(), sortKey: key, isDir: isDir})
	}
	sort.Slice(named, func(i, j int) bool { return named[i].sortKey < named[j].sortKey })

	var entries bytes.Buffer
	for _, c := range named {
		childOID, err := Capture(store, filepath.Join(path, c.name))
		if err != nil {
			return objstore.OID{}, err
		}

		mode := ModeFile
		if c.isDir {
			mode = ModeDir
		}
		entries.WriteString(string(mode))
		entries.WriteByte(' ')
		entries.WriteString(c.name)
		entries.WriteByte(0)
		entries.Write(childOID[:])
	}

	oid, err := store.Put(objstore.TypeTree, entries.Bytes())
	if err != nil {
		return objstore.OID{}, err
	}
	log.Debug().Str("path", path).Str("oid", oid.String()).Int("entries", len(named)).Msg("tree captured")
	return oid, nil
}

// ParseTree decodes a tree object's payload into its ordered entries, by
// repeatedly consuming "<mode> <name>\0<20-byte oid>" until the payload
// is exhausted. Names are returned as raw bytes; decoding to a string is
// the caller's responsibility.
func ParseTree(payload []byte) ([]Entry, error) {
	var entries []Entry
	rest := payload

	for len(rest) > 0 {
		modeBytes, tail, ok := bytes.Cut(rest, []byte{' '})
		if !ok {
			return nil, errors.Wrap(objstore.ErrCorruptObject, "tree entry missing mode separator")
		}

		name, tail, ok := bytes.Cut(tail, []byte{0})
		if !ok {
			return nil, errors.Wrap(objstore.ErrCorruptObject, "tree entry missing name terminator")
		}

		if len(tail) < 20 {
			return nil, errors.Wrap(objstore.ErrCorruptObject, "tree entry truncated oid")
		}

		mode := Mode(modeBytes)
		if mode != ModeFile && mode != ModeDir {
			if _, err := strconv.ParseUint(string(modeBytes), 8, 32); err != nil {
				return nil, errors.Wrapf(objstore.ErrCorruptObject, "tree entry invalid mode %q", modeBytes)
			}
		}

		var oid objstore.OID
		copy(oid[:], tail[:20])

		entries = append(entries, Entry{Mode: mode, Name: name, OID: oid})
		rest = tail[20:]
	}

	return entries, nil
}
