package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"theranotes-go/internal/apperr"
	"theranotes-go/internal/logger"
	"theranotes-go/internal/types"
)

func quietLogger() *logger.Logger {
	return logger.NewWithOptions(logger.Options{Level: "error", Output: io.Discard})
}

func lp(v float64) *float64 { return &v }

type fakeEngine struct {
	res    Result
	err    error
	delay  time.Duration
	calls  atomic.Int32
	panics bool

	mu      sync.Mutex
	active  int
	maxSeen int
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Transcribe(ctx context.Context, path string) (Result, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()
	if f.panics {
		panic("boom")
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.res, f.err
}

func tempAudio(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(p, []byte("RIFF"), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name string
		segs []types.Segment
		want float64
	}{
		{"no segments", nil, 0},
		{"no log probs", []types.Segment{{End: 1}}, 0},
		{"mean", []types.Segment{{AvgLogProb: lp(-1)}, {AvgLogProb: lp(-2)}}, 0.7},
		{"missing values skipped", []types.Segment{{AvgLogProb: lp(-0.5)}, {}}, 0.9},
		{"clamped high", []types.Segment{{AvgLogProb: lp(0.5)}}, 1},
		{"clamped low", []types.Segment{{AvgLogProb: lp(-9)}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Confidence(tt.segs); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Confidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	if got := Duration(nil); got != 0 {
		t.Errorf("Duration(nil) = %v, want 0", got)
	}
	segs := []types.Segment{{Start: 0, End: 2.5}, {Start: 2.5, End: 7.25}}
	if got := Duration(segs); got != 7.25 {
		t.Errorf("Duration() = %v, want 7.25", got)
	}
}

func TestBuild(t *testing.T) {
	tr := Build(Result{Text: "  hello there \n"})
	if tr.Text != "hello there" {
		t.Errorf("Text = %q, want trimmed", tr.Text)
	}
	if tr.Language != "unknown" {
		t.Errorf("Language = %q, want unknown", tr.Language)
	}
	if tr.Segments == nil {
		t.Error("Segments = nil, want empty slice")
	}
}

func TestService_Transcribe(t *testing.T) {
	eng := &fakeEngine{res: Result{
		Text:     " We discussed coping strategies. ",
		Language: "en",
		Segments: []types.Segment{
			{Start: 0, End: 3, AvgLogProb: lp(-0.5)},
			{Start: 3, End: 6.5, AvgLogProb: lp(-1.5)},
		},
	}}
	svc := NewService(eng, 2, quietLogger())
	tr, err := svc.Transcribe(context.Background(), tempAudio(t))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if tr.Text != "We discussed coping strategies." {
		t.Errorf("Text = %q", tr.Text)
	}
	if tr.Duration != 6.5 {
		t.Errorf("Duration = %v, want 6.5", tr.Duration)
	}
	if math.Abs(tr.Confidence-0.8) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.8", tr.Confidence)
	}
}

func TestService_MissingFile(t *testing.T) {
	eng := &fakeEngine{}
	svc := NewService(eng, 1, quietLogger())
	_, err := svc.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	if !errors.Is(err, ErrAudioNotFound) {
		t.Fatalf("error = %v, want ErrAudioNotFound", err)
	}
	if apperr.HTTPStatus(err) != 404 {
		t.Errorf("HTTPStatus = %d, want 404", apperr.HTTPStatus(err))
	}
	if eng.calls.Load() != 0 {
		t.Error("engine called for missing file")
	}
}

func TestService_EngineErrorIsTyped(t *testing.T) {
	cause := errors.New("model exploded at /srv/models/ggml.bin")
	svc := NewService(&fakeEngine{err: cause}, 1, quietLogger())
	_, err := svc.Transcribe(context.Background(), tempAudio(t))

	var ee *EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("error = %T %v, want *EngineError", err, err)
	}
	if !errors.Is(err, cause) {
		t.Error("EngineError does not wrap the cause")
	}
	if got := apperr.HTTPStatus(err); got != 500 {
		t.Errorf("HTTPStatus = %d, want 500", got)
	}
	if msg := apperr.SafeMessage(err); msg != "Transcription failed" {
		t.Errorf("SafeMessage = %q, want redacted", msg)
	}
}

func TestService_PanicBecomesEngineError(t *testing.T) {
	svc := NewService(&fakeEngine{panics: true}, 1, quietLogger())
	_, err := svc.Transcribe(context.Background(), tempAudio(t))
	var ee *EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("error = %v, want *EngineError", err)
	}
}

func TestService_Timeout(t *testing.T) {
	eng := &fakeEngine{delay: 200 * time.Millisecond}
	svc := NewService(eng, 1, quietLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Transcribe(ctx, tempAudio(t))
	if !apperr.IsCode(err, apperr.CodeTimeout) {
		t.Fatalf("error = %v, want TIMEOUT", err)
	}
}

func TestService_EngineStoppedByContext(t *testing.T) {
	svc := NewService(&fakeEngine{}, 1, quietLogger())

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	stopped := fmt.Errorf("whisper: stopped before inference: %w", expired.Err())
	if err := svc.failure(expired, "op", stopped); !apperr.IsCode(err, apperr.CodeTimeout) {
		t.Errorf("failure(deadline) = %v, want TIMEOUT", err)
	}

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	if err := svc.failure(cancelled, "op", cancelled.Err()); !apperr.IsCode(err, apperr.CodeUnavailable) {
		t.Errorf("failure(cancel) = %v, want UNAVAILABLE", err)
	}

	var ee *EngineError
	if err := svc.failure(context.Background(), "op", errors.New("bad model")); !errors.As(err, &ee) {
		t.Errorf("failure(engine) = %v, want *EngineError", err)
	}
}

func TestService_BoundsConcurrency(t *testing.T) {
	eng := &fakeEngine{delay: 30 * time.Millisecond, res: Result{Text: "ok"}}
	svc := NewService(eng, 2, quietLogger())
	path := tempAudio(t)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Transcribe(context.Background(), path); err != nil {
				t.Errorf("Transcribe() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if eng.maxSeen > 2 {
		t.Errorf("max concurrent engine calls = %d, want <= 2", eng.maxSeen)
	}
	if eng.calls.Load() != 6 {
		t.Errorf("calls = %d, want 6", eng.calls.Load())
	}
}

func TestService_ReadyWithoutPinger(t *testing.T) {
	svc := NewService(&fakeEngine{}, 1, quietLogger())
	if err := svc.Ready(context.Background()); err != nil {
		t.Errorf("Ready() = %v, want nil", err)
	}
}
