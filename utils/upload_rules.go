package utils

import (
	"log"
	"path/filepath"
	"strings"
)

// knownUploadTypes maps an accepted extension to the only content type a
// client may declare for it.
var knownUploadTypes = map[string]string{
	"pdf": "application/pdf",
}

// UploadRules decides whether a declared filename/content type pair is an
// accepted document. The check is declarative only: bytes are never sniffed.
type UploadRules struct {
	byExt map[string]string
}

// NewUploadRules builds rules for the configured extensions. Extensions with
// no known content type are ignored.
func NewUploadRules(extensions []string) UploadRules {
	rules := UploadRules{byExt: make(map[string]string)}
	for _, raw := range extensions {
		ext := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), ".")
		if ext == "" {
			continue
		}
		contentType, ok := knownUploadTypes[ext]
		if !ok {
			log.Printf("Warning: ignoring unsupported upload type %q", raw)
			continue
		}
		rules.byExt[ext] = contentType
	}
	return rules
}

// Accept returns the normalized extension (without dot) when both the
// filename extension and the declared content type match a rule. The
// content type must equal the rule's type exactly.
func (r UploadRules) Accept(filename, contentType string) (string, bool) {
	ext := uploadExt(filename)
	if ext == "" {
		return "", false
	}
	want, ok := r.byExt[ext]
	if !ok || contentType != want {
		return "", false
	}
	return ext, true
}

// uploadExt returns the lowercased extension of the base name. Leading dots
// belong to the stem, so ".pdf" has no extension.
func uploadExt(filename string) string {
	stem := strings.TrimLeft(filepath.Base(filename), ".")
	ext := filepath.Ext(stem)
	if ext == "" || ext == stem {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(ext), ".")
}

// Extensions lists the accepted extensions.
func (r UploadRules) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	return out
}
