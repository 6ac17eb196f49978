package objstore

import (
	"bytes"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// CommitSpec describes a commit payload to build. AuthorTime defaults to
// time.Now() when zero.
type CommitSpec struct {
	Tree        OID
	Parents     []OID
	Author      string
	AuthorEmail string
	AuthorTime  time.Time
	Message     string
}

// BuildCommit renders a commit payload in the layout this module's own
// commit-tree command produces: a "tree <hex>" line, zero or more
// "parent <hex>" lines, author/committer lines carrying a bare
// "timestamp <unix>" line (not Git's standard
// "author <name> <email> <ts> <tz>" format — see DESIGN.md's Open
// Question decisions), a blank line, then the message.
//
// Interop with Git's own commit parser is not claimed; this layout is a
// byte-exact contract for objects this module both writes and reads back
// via ExtractTreeOID.
func BuildCommit(spec CommitSpec) []byte {
	ts := spec.AuthorTime
	if ts.IsZero() {
		ts = time.Now()
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "tree %s\n", spec.Tree)
	for _, p := range spec.Parents {
		fmt.Fprintf(&b, "parent %s\n", p)
	}
	fmt.Fprintf(&b, "timestamp %d\n", ts.Unix())
	fmt.Fprintf(&b, "author %s <%s>\n", spec.Author, spec.AuthorEmail)
	fmt.Fprintf(&b, "committer %s <%s>\n\n", spec.Author, spec.AuthorEmail)
	b.WriteString(spec.Message)
	if len(spec.Message) == 0 || spec.Message[len(spec.Message)-1] != '\n' {
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// ExtractTreeOID reads the tree OID from bytes 5..45 of a commit payload,
// i.e. it assumes the first line is exactly "tree <40-hex-chars>\n". This
// is safe for commits this module produced via BuildCommit, but not for
// arbitrary commits that don't begin with a plain tree line (for example
// one starting with a PGP signature header) — see DESIGN.md.
func ExtractTreeOID(payload []byte) (OID, error) {
	const prefix = "tree "
	if len(payload) < len(prefix)+40 || string(payload[:len(prefix)]) != prefix {
		return OID{}, errors.Wrapf(ErrCorruptObject, "commit payload does not start with %q", prefix)
	}
	return ParseOID(string(payload[len(prefix) : len(prefix)+40]))
}
