// Package checkout materializes a tree object recursively onto a working
// directory.
package checkout

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mbrt/picogit/internal/objstore"
	"github.com/mbrt/picogit/internal/treeio"
)

// Render creates targetDir and writes the tree identified by treeOID into
// it recursively: subdirectories for mode 40000 entries, file contents for
// mode 100644 entries. Any other mode is ErrUnsupportedMode.
func Render(store *objstore.Store, targetDir string, treeOID objstore.OID) error {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", targetDir)
	}

	typ, payload, err := store.Get(treeOID)
	if err != nil {
		return errors.Wrapf(err, "read tree %s", treeOID)
	}
	if typ != objstore.TypeTree {
		return errors.Wrapf(objstore.ErrCorruptObject, "%s is a %s, not a tree", treeOID, typ)
	}

	entries, err := treeio.ParseTree(payload)
	if err != nil {
		return errors.Wrapf(err, "parse tree %s", treeOID)
	}

	for _, e := range entries {
		name := string(e.Name)
		target := filepath.Join(targetDir, name)

		switch e.Mode {
		case treeio.ModeDir:
			if err := Render(store, target, e.OID); err != nil {
				return err
			}
		case treeio.ModeFile:
			typ, content, err := store.Get(e.OID)
			if err != nil {
				return errors.Wrapf(err, "read blob %s (%s)", e.OID, name)
			}
			if typ != objstore.TypeBlob {
				return errors.Wrapf(objstore.ErrCorruptObject, "%s is a %s, not a blob", e.OID, typ)
			}
			if err := os.WriteFile(target, content, 0o644); err != nil {
				return errors.Wrapf(err, "write %s", target)
			}
		default:
			return errors.Wrapf(objstore.ErrUnsupportedMode, "%s: mode %s", name, e.Mode)
		}
	}

	log.Debug().Str("dir", targetDir).Str("tree", treeOID.String()).Int("entries", len(entries)).Msg("tree rendered")
	return nil
}
