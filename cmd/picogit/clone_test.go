package main

import (
	"bytes"
	"compress/zlib"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mbrt/picogit/internal/config"
	"github.com/mbrt/picogit/internal/objstore"
)

func testPktLine(payload []byte) []byte {
	n := len(payload) + 4
	const digits = "0123456789abcdef"
	b := make([]byte, 4)
	for i := 3; i >= 0; i-- {
		b[i] = digits[n&0xf]
		n >>= 4
	}
	return append(b, payload...)
}

func testEntryHeader(typ byte, size int) []byte {
	var out []byte
	b := typ<<4 | byte(size&0x0f)
	size >>= 4
	if size > 0 {
		b |= 0x80
	}
	out = append(out, b)
	for size > 0 {
		nb := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			nb |= 0x80
		}
		out = append(out, nb)
	}
	return out
}

func testDeflate(t *testing.T, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// TestRunCloneEndToEnd serves a fixed-content repository (a single README
// blob, its tree, and a commit) over a mock smart-HTTP v2 server and
// checks that runClone reproduces it on disk.
func TestRunCloneEndToEnd(t *testing.T) {
	const readmeContents = "hi\n"

	blobFramed := []byte("blob 3\x00" + readmeContents)
	blobOID := sha1.Sum(blobFramed)

	var treePayload bytes.Buffer
	treePayload.WriteString("100644 README\x00")
	treePayload.Write(blobOID[:])
	treeFramed := append([]byte("tree "+itoa(treePayload.Len())+"\x00"), treePayload.Bytes()...)
	treeOID := sha1.Sum(treeFramed)

	commitPayload := []byte("tree " + hexString(treeOID[:]) + "\ntimestamp 0\nauthor test <test@example.com>\ncommitter test <test@example.com>\n\ninitial\n")
	commitFramed := append([]byte("commit "+itoa(len(commitPayload))+"\x00"), commitPayload...)
	commitOID := sha1.Sum(commitFramed)

	var packBody bytes.Buffer
	packBody.Write(testEntryHeader(3, len(readmeContents))) // blob
	packBody.Write(testDeflate(t, []byte(readmeContents)))
	packBody.Write(testEntryHeader(2, treePayload.Len())) // tree
	packBody.Write(testDeflate(t, treePayload.Bytes()))
	packBody.Write(testEntryHeader(1, len(commitPayload))) // commit
	packBody.Write(testDeflate(t, commitPayload))

	var pack bytes.Buffer
	pack.WriteString("PACK")
	binary.Write(&pack, binary.BigEndian, uint32(2))
	binary.Write(&pack, binary.BigEndian, uint32(3))
	pack.Write(packBody.Bytes())
	trailer := sha1.Sum(pack.Bytes())
	pack.Write(trailer[:])

	commitHex := hexString(commitOID[:])

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/info/refs":
			var body []byte
			body = append(body, testPktLine([]byte("# service=git-upload-pack\n"))...)
			body = append(body, []byte("0000")...)
			body = append(body, testPktLine([]byte(commitHex+" HEAD\x00\n"))...)
			body = append(body, testPktLine([]byte(commitHex+" refs/heads/main\n"))...)
			body = append(body, []byte("0000")...)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
		case "/git-upload-pack":
			var body []byte
			body = append(body, testPktLine(append([]byte{0x01}, pack.Bytes()...))...)
			body = append(body, []byte("0000")...)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "clone")
	cfg := &config.Config{Dir: target + "/" + config.DefaultDir, HTTPTimeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runClone(ctx, cfg, server.URL, target))

	got, err := os.ReadFile(filepath.Join(target, "README"))
	require.NoError(t, err)
	require.Equal(t, readmeContents, string(got))

	head, err := os.ReadFile(filepath.Join(target, ".git", "HEAD"))
	require.NoError(t, err)
	require.Equal(t, commitHex+"\n", string(head))

	store := objstore.New(target + "/" + config.DefaultDir)
	oid, err := objstore.ParseOID(commitHex)
	require.NoError(t, err)
	require.True(t, store.Exists(oid))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func hexString(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	return string(out)
}
