// Package config carries the small set of knobs the rest of picogit needs:
// where the object store lives on disk, and how long the clone transport
// is willing to wait on the remote.
package config

import (
	"os"
	"time"
)

// DefaultDir is the conventional store-root directory name.
const DefaultDir = ".git"

// DefaultHTTPTimeout bounds a single clone's info/refs + upload-pack round trip.
const DefaultHTTPTimeout = 2 * time.Minute

// Config is threaded explicitly through the CLI and the internal packages
// rather than read from globals.
type Config struct {
	// Dir is the store root, e.g. "/repo/.git".
	Dir string
	// HTTPTimeout bounds outbound requests made by internal/transport.
	HTTPTimeout time.Duration
}

// FromEnv builds a Config from $PICOGIT_DIR (falling back to DefaultDir)
// and DefaultHTTPTimeout. Callers may override either field afterwards.
func FromEnv() Config {
	dir := os.Getenv("PICOGIT_DIR")
	if dir == "" {
		dir = DefaultDir
	}
	return Config{
		Dir:         dir,
		HTTPTimeout: DefaultHTTPTimeout,
	}
}
