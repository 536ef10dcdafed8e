//go:build whispercpp

package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"theranotes-go/internal/logger"
	"theranotes-go/internal/types"
)

var _ Engine = (*NativeEngine)(nil)

// NativeEngine runs whisper.cpp in-process. The model is loaded once and
// shared; each call gets its own context because contexts are not safe for
// concurrent use. Only WAV input is decoded.
type NativeEngine struct {
	model whisperlib.Model
	log   *logger.Logger
}

func NewNativeEngine(modelPath string, log *logger.Logger) (Engine, error) {
	if modelPath == "" {
		return nil, errors.New("whisper model path must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, &EngineError{Engine: "whisper-native", Err: fmt.Errorf("load model %q: %w", modelPath, err)}
	}
	return &NativeEngine{model: model, log: log}, nil
}

func (e *NativeEngine) Name() string { return "whisper-native" }

func (e *NativeEngine) Close() error {
	return e.model.Close()
}

func (e *NativeEngine) Ping(context.Context) error { return nil }

// Transcribe decodes path and runs inference. ctx is only checked before
// inference starts; whisper.cpp cannot be interrupted mid-run.
func (e *NativeEngine) Transcribe(ctx context.Context, path string) (Result, error) {
	fail := func(format string, args ...interface{}) (Result, error) {
		return Result{}, &EngineError{Engine: e.Name(), Err: fmt.Errorf(format, args...)}
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".wav" {
		return fail("native engine decodes WAV only, got %q", ext)
	}
	samples, err := DecodeWAV(path)
	if err != nil {
		return fail("decode audio: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("whisper: stopped before inference: %w", err)
	}

	wctx, err := e.model.NewContext()
	if err != nil {
		return fail("create context: %w", err)
	}
	if err := wctx.SetLanguage("auto"); err != nil {
		e.log.WithError(err).Warn("whisper: language auto-detect not available, using model default")
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return fail("process audio: %w", err)
	}

	res := Result{Language: wctx.DetectedLanguage()}
	var parts []string
	for {
		seg, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail("read segment: %w", err)
		}
		text := strings.TrimSpace(seg.Text)
		if text != "" {
			parts = append(parts, text)
		}
		res.Segments = append(res.Segments, types.Segment{
			Start:      seg.Start.Seconds(),
			End:        seg.End.Seconds(),
			Text:       text,
			AvgLogProb: meanLogProb(seg.Tokens),
		})
	}
	res.Text = strings.Join(parts, " ")
	return res, nil
}

func meanLogProb(tokens []whisperlib.Token) *float64 {
	var sum float64
	n := 0
	for _, t := range tokens {
		if t.P > 0 {
			sum += math.Log(float64(t.P))
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}
