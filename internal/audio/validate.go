// Package audio checks uploaded recordings against the supported formats and
// stages them on disk for the transcription engine.
package audio

import (
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"

	"theranotes-go/internal/apperr"
)

var supportedExtensions = map[string]struct{}{
	".mp3": {}, ".mp4": {}, ".m4a": {}, ".wav": {},
	".webm": {}, ".ogg": {}, ".flac": {}, ".aac": {},
}

var supportedMIMETypes = map[string]struct{}{
	"audio/mpeg":   {},
	"audio/mp4":    {},
	"audio/wav":    {},
	"audio/wave":   {},
	"audio/x-wav":  {},
	"audio/webm":   {},
	"audio/ogg":    {},
	"audio/x-m4a":  {},
	"audio/mp3":    {},
	"audio/flac":   {},
	"audio/x-flac": {},
	"audio/aac":    {},
}

// SupportedExtensions returns the accepted file extensions, sorted.
func SupportedExtensions() []string {
	return sortedKeys(supportedExtensions)
}

// SupportedMIMETypes returns the accepted content types, sorted.
func SupportedMIMETypes() []string {
	return sortedKeys(supportedMIMETypes)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Policy is the upload acceptance rule. A zero MaxBytes disables the size
// check.
type Policy struct {
	MaxBytes int64
}

// Validate rejects a file by name, declared content type and size before any
// of it is read. A declared type outside the allow-list is tolerated when the
// type implied by the extension is unknown or allowed, because browsers and
// curl disagree on audio MIME names.
func (p Policy) Validate(filename, contentType string, size int64) error {
	const op = "audio.Validate"
	if strings.TrimSpace(filename) == "" {
		return apperr.E(apperr.CodeInvalidArgument, op, "no filename provided", nil)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := supportedExtensions[ext]; !ok {
		return apperr.E(apperr.CodeUnsupportedMedia, op,
			fmt.Sprintf("unsupported file format %q, supported formats: %s", ext, strings.Join(SupportedExtensions(), ", ")), nil)
	}
	if ct := mediaType(contentType); ct != "" && !allowedMIME(ct) {
		if guessed := mediaType(mime.TypeByExtension(ext)); guessed != "" && !allowedMIME(guessed) {
			return apperr.E(apperr.CodeUnsupportedMedia, op, fmt.Sprintf("unsupported content type %q", ct), nil)
		}
	}
	if size < 0 {
		return apperr.E(apperr.CodeInvalidArgument, op, "invalid file size", nil)
	}
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return tooLarge(op, p.MaxBytes)
	}
	return nil
}

func tooLarge(op string, limit int64) error {
	return apperr.E(apperr.CodeTooLarge, op, fmt.Sprintf("file too large, maximum size is %d MB", limit>>20), nil)
}

func mediaType(v string) string {
	if v == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return mt
}

func allowedMIME(mt string) bool {
	_, ok := supportedMIMETypes[mt]
	return ok
}
