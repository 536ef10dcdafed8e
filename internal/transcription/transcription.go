// Package transcription wraps a speech-to-text engine behind a bounded worker
// pool and derives duration and an approximate confidence from its segments.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"theranotes-go/internal/apperr"
	"theranotes-go/internal/logger"
	"theranotes-go/internal/types"
)

// ErrAudioNotFound is returned when the audio path does not exist.
var ErrAudioNotFound = errors.New("audio file not found")

// EngineError is the single error type for engine failures: model load,
// decode, inference or a malformed engine response.
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s engine: %v", e.Engine, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// PublicMessage hides engine internals from clients.
func (e *EngineError) PublicMessage() string { return "Transcription failed" }

// Result is what an engine returns for one file.
type Result struct {
	Text     string
	Language string
	Segments []types.Segment
}

// Engine turns an audio file into text. Implementations request automatic
// language detection and may block for a long time.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, path string) (Result, error)
}

// Pinger is implemented by engines that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service runs engine calls on at most Workers goroutines at a time so
// request handlers never execute inference themselves.
type Service struct {
	engine Engine
	sem    *semaphore.Weighted
	log    *logger.Logger
}

func NewService(engine Engine, workers int, log *logger.Logger) *Service {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = logger.New()
	}
	return &Service{
		engine: engine,
		sem:    semaphore.NewWeighted(int64(workers)),
		log:    log,
	}
}

func (s *Service) EngineName() string { return s.engine.Name() }

// Ready reports whether the engine can take work.
func (s *Service) Ready(ctx context.Context) error {
	if p, ok := s.engine.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

type outcome struct {
	res Result
	err error
}

// Transcribe checks that path exists, waits for a worker slot and runs the
// engine. If ctx ends first the caller gets a timeout error; the engine call
// keeps its slot until it returns.
func (s *Service) Transcribe(ctx context.Context, path string) (types.Transcript, error) {
	const op = "transcription.Transcribe"
	log := s.log.WithField("module", "transcription").WithField("engine", s.engine.Name())

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.Transcript{}, apperr.E(apperr.CodeNotFound, op, "audio file not found", ErrAudioNotFound)
		}
		return types.Transcript{}, apperr.E(apperr.CodeInternal, op, "audio file unreadable", err)
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return types.Transcript{}, contextError(ctx, op)
	}

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		defer s.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("engine panic: %v", r)}
			}
		}()
		res, err := s.engine.Transcribe(ctx, path)
		done <- outcome{res: res, err: err}
	}()

	var o outcome
	select {
	case o = <-done:
	case <-ctx.Done():
		log.WithField("waited", time.Since(start)).Warn("caller stopped waiting for transcription")
		return types.Transcript{}, contextError(ctx, op)
	}

	if o.err != nil {
		err := s.failure(ctx, op, o.err)
		log.WithError(err).Error("transcription failed")
		return types.Transcript{}, err
	}

	t := Build(o.res)
	log.WithFields(map[string]interface{}{
		"language": t.Language,
		"duration": t.Duration,
		"segments": len(t.Segments),
		"elapsed":  time.Since(start).String(),
	}).Info("transcription completed")
	return t, nil
}

// failure classifies an engine error. An engine that stopped because ctx
// ended reports a timeout or cancellation, not an engine fault.
func (s *Service) failure(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return contextError(ctx, op)
	}
	var ee *EngineError
	if !errors.As(err, &ee) {
		err = &EngineError{Engine: s.engine.Name(), Err: err}
	}
	return err
}

func contextError(ctx context.Context, op string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.E(apperr.CodeTimeout, op, "transcription timed out", ctx.Err())
	}
	return apperr.E(apperr.CodeUnavailable, op, "transcription cancelled", ctx.Err())
}

// Build assembles the immutable transcript from an engine result.
func Build(r Result) types.Transcript {
	lang := r.Language
	if lang == "" {
		lang = "unknown"
	}
	segs := r.Segments
	if segs == nil {
		segs = []types.Segment{}
	}
	return types.Transcript{
		Text:       strings.TrimSpace(r.Text),
		Language:   lang,
		Confidence: Confidence(segs),
		Duration:   Duration(segs),
		Segments:   segs,
	}
}

// Confidence averages the segments' log-probabilities, skipping segments
// without one, and maps the mean through clamp((avg+5)/5, 0, 1).
//
// The mapping is a rough calibration carried over for compatibility. It is
// not a probability and should only be compared against other values from
// the same engine.
func Confidence(segs []types.Segment) float64 {
	var sum float64
	n := 0
	for _, s := range segs {
		if s.AvgLogProb != nil {
			sum += *s.AvgLogProb
			n++
		}
	}
	if n == 0 {
		return 0
	}
	c := (sum/float64(n) + 5) / 5
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// Duration is the end time of the last segment, or 0 without segments.
func Duration(segs []types.Segment) float64 {
	if len(segs) == 0 {
		return 0
	}
	return segs[len(segs)-1].End
}
