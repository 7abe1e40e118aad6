// Package contenttype resolves the MIME type of extracted files.
package contenttype

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Fallback is returned when neither the extension nor the content is known.
const Fallback = "application/octet-stream"

// Resolver looks a file up by extension first and sniffs its content when
// the extension is missing or unknown.
type Resolver struct {
	sniff bool
}

// NewResolver returns a Resolver that sniffs content as a fallback.
func NewResolver() *Resolver {
	return &Resolver{sniff: true}
}

// NewExtensionResolver returns a Resolver that never opens the file.
func NewExtensionResolver() *Resolver {
	return &Resolver{}
}

// ContentType returns the MIME type of the file at path, without parameters.
func (r *Resolver) ContentType(path string) string {
	if ext := filepath.Ext(path); ext != "" {
		if t := mime.TypeByExtension(strings.ToLower(ext)); t != "" {
			return stripParams(t)
		}
	}

	if !r.sniff {
		return Fallback
	}

	m, err := mimetype.DetectFile(path)
	if err != nil || m == nil {
		return Fallback
	}
	return stripParams(m.String())
}

func stripParams(t string) string {
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}
