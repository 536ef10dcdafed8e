//go:build !whispercpp

package transcription

import (
	"errors"

	"theranotes-go/internal/logger"
)

// NewNativeEngine is unavailable in builds without the whispercpp tag.
func NewNativeEngine(string, *logger.Logger) (Engine, error) {
	return nil, errors.New("native whisper engine not compiled in; rebuild with -tags whispercpp")
}
