// Package transport drives the smart-HTTP v2 fetch protocol: enough of
// the packet-line and request/response framing to hand the Pack Decoder a
// raw pack byte stream. The HTTP client and TLS stack are collaborators;
// this package fixes only the byte-level shape of the requests and
// responses it needs to produce and consume.
package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mbrt/picogit/internal/objstore"
)

// Ref is one advertised reference: its name (e.g. "refs/heads/main" or
// "HEAD") and OID.
type Ref struct {
	Name string
	OID  objstore.OID
}

// packDataChannel is the side-band-64k channel tag the v2 fetch response
// uses for pack bytes.
const packDataChannel = 0x01

// ListRefs performs GET <url>/info/refs?service=git-upload-pack and
// parses the packet-line ref advertisement.
func ListRefs(ctx context.Context, client *http.Client, url string) ([]Ref, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/info/refs?service=git-upload-pack", nil)
	if err != nil {
		return nil, errors.Wrap(objstore.ErrTransport, err.Error())
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(objstore.ErrTransport, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(objstore.ErrTransport, "info/refs: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(objstore.ErrTransport, err.Error())
	}

	lines, err := splitPktLines(body)
	if err != nil {
		return nil, err
	}

	var refs []Ref
	for _, line := range lines {
		if bytes.HasPrefix(line, []byte("#")) {
			continue // comment line, e.g. "# service=git-upload-pack"
		}

		// The first ref line may carry a "\0<capabilities>" suffix.
		if i := bytes.IndexByte(line, 0); i >= 0 {
			line = line[:i]
		}
		line = bytes.TrimRight(line, "\n")

		hexOID, name, ok := bytes.Cut(line, []byte(" "))
		if !ok {
			continue
		}

		oid, err := objstore.ParseOID(string(hexOID))
		if err != nil {
			return nil, errors.Wrapf(objstore.ErrTransport, "info/refs: malformed ref line %q", line)
		}
		refs = append(refs, Ref{Name: string(name), OID: oid})
	}

	log.Debug().Int("refs", len(refs)).Str("url", url).Msg("refs listed")
	return refs, nil
}

// FetchPack performs the v2 fetch POST for the given wanted OIDs and
// returns the raw, concatenated pack bytes (channel tags stripped).
func FetchPack(ctx context.Context, client *http.Client, url string, wants []objstore.OID) ([]byte, error) {
	var body bytes.Buffer
	body.WriteString("0011command=fetch")
	body.WriteString("0001")
	body.WriteString("000fno-progress")
	for _, w := range wants {
		body.Write(encodePktLine([]byte("want " + w.String() + "\n")))
	}
	body.WriteString("0009done\n")
	body.WriteString("0000")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/git-upload-pack", strings.NewReader(body.String()))
	if err != nil {
		return nil, errors.Wrap(objstore.ErrTransport, err.Error())
	}
	req.Header.Set("Git-Protocol", "version=2")
	req.Header.Set("Content-Type", "application/x-git-upload-pack-request")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(objstore.ErrTransport, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(objstore.ErrTransport, "git-upload-pack: unexpected status %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(objstore.ErrTransport, err.Error())
	}

	lines, err := splitPktLines(raw)
	if err != nil {
		return nil, err
	}

	var pack bytes.Buffer
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		if line[0] == packDataChannel {
			pack.Write(line[1:])
		}
		// Progress (0x02) and error (0x03) side-band channels are dropped:
		// formatting those for a human isn't this package's job.
	}

	log.Debug().Int("bytes", pack.Len()).Msg("pack fetched")
	return pack.Bytes(), nil
}
