package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"theranotes-go/internal/apperr"
	"theranotes-go/internal/logger"
)

// Stager writes uploads to a private directory under random names. Every
// staged file comes with a cleanup func that the caller must defer.
type Stager struct {
	dir      string
	maxBytes int64
	log      *logger.Logger
}

func NewStager(dir string, maxBytes int64, log *logger.Logger) (*Stager, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	if log == nil {
		log = logger.New()
	}
	return &Stager{dir: dir, maxBytes: maxBytes, log: log}, nil
}

// Stage copies src to a new file keeping the extension of filename. The
// copy is bounded by the stager's size limit even when the declared size was
// wrong. On error nothing is left on disk.
func (s *Stager) Stage(src io.Reader, filename string) (path string, cleanup func(), err error) {
	const op = "audio.Stage"
	ext := strings.ToLower(filepath.Ext(filename))
	path = filepath.Join(s.dir, uuid.NewString()+ext)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", nil, apperr.E(apperr.CodeInternal, op, "failed to stage upload", err)
	}
	cleanup = func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			s.log.WithError(rmErr).WithField("path", path).Warn("temp file cleanup failed")
		}
	}

	r := src
	if s.maxBytes > 0 {
		r = io.LimitReader(src, s.maxBytes+1)
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return "", nil, apperr.E(apperr.CodeInternal, op, "failed to stage upload", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		cleanup()
		return "", nil, tooLarge(op, s.maxBytes)
	}
	s.log.WithField("path", path).WithField("bytes", n).Debug("upload staged")
	return path, cleanup, nil
}
