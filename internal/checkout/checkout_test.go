package checkout_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mbrt/picogit/internal/checkout"
	"github.com/mbrt/picogit/internal/objstore"
	"github.com/mbrt/picogit/internal/treeio"
)

func TestRenderReproducesCapturedTree(t *testing.T) {
	store := objstore.New(filepath.Join(t.TempDir(), ".git"))
	require.NoError(t, store.Init())

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("A"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("B"), 0o644))

	oid, err := treeio.Capture(store, src)
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "out")
	require.NoError(t, checkout.Render(store, dst, oid))

	a, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "A", string(a))

	b, err := os.ReadFile(filepath.Join(dst, "sub", "b.txt"))
	require.NoError(t, err)
	require.Equal(t, "B", string(b))
}

func TestRenderRejectsUnsupportedMode(t *testing.T) {
	store := objstore.New(filepath.Join(t.TempDir(), ".git"))
	require.NoError(t, store.Init())

	blobOID, err := store.Put(objstore.TypeBlob, []byte("x"))
	require.NoError(t, err)

	entry := "120000 link\x00" + string(blobOID[:])
	treeOID, err := store.Put(objstore.TypeTree, []byte(entry))
	require.NoError(t, err)

	err = checkout.Render(store, filepath.Join(t.TempDir(), "out"), treeOID)
	require.ErrorIs(t, err, objstore.ErrUnsupportedMode)
}
