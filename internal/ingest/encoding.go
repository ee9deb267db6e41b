// Package ingest reads the survey and conversation exports into memory.
package ingest

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// decodeReader wraps r so the stream comes out as UTF-8. Survey exports from
// the collection tool arrive either as UTF-8 or as Windows-1252.
func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "windows-1252", "cp1252", "latin-1", "latin1":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, eris.Errorf("ingest: unsupported encoding %q", encoding)
	}
}
