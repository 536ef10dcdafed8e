package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"theranotes-go/internal/logger"
)

// Stage names, as reported in errors and metrics.
const (
	StageTranscription = "transcription"
	StageExtraction    = "extraction"
	StageFormatting    = "formatting"
)

var stageTitles = map[string]string{
	StageTranscription: "Transcription",
	StageExtraction:    "Extraction",
	StageFormatting:    "Formatting",
}

// StageError reports a stage that did not succeed. Status is the stage's own
// response status, or 502/504 when the stage could not be reached in time.
type StageError struct {
	Stage   string
	Status  int
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s stage failed (%d): %s: %v", e.Stage, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%s stage failed (%d): %s", e.Stage, e.Status, e.Message)
}

func (e *StageError) Unwrap() error { return e.Err }

func (e *StageError) HTTPStatus() int { return e.Status }

// PublicMessage names the failed stage, e.g. "Transcription service failed:
// unsupported file format".
func (e *StageError) PublicMessage() string {
	title := stageTitles[e.Stage]
	if title == "" {
		title = e.Stage
	}
	return title + " service failed: " + e.Message
}

// maxStageBody caps how much of a stage response is read.
const maxStageBody = 8 << 20

// call performs one stage request with its own deadline. It never retries.
// The response body must be JSON and is decoded into out on 200.
func (o *Orchestrator) call(ctx context.Context, stage string, timeout time.Duration, newReq func(context.Context) (*http.Request, error), out interface{}) (err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	status := 0
	defer func() {
		if err != nil {
			status = http.StatusInternalServerError
			var se *StageError
			if errors.As(err, &se) {
				status = se.Status
			}
		}
		o.metrics.RecordStage(context.WithoutCancel(ctx), stage, time.Since(start), status)
	}()

	req, err := newReq(ctx)
	if err != nil {
		return &StageError{Stage: stage, Status: http.StatusInternalServerError, Message: "could not build request", Err: err}
	}
	if id := logger.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(logger.RequestIDHeader, id)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return transportError(ctx, stage, timeout, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStageBody))
	if err != nil {
		return transportError(ctx, stage, timeout, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &StageError{Stage: stage, Status: resp.StatusCode, Message: upstreamMessage(body, resp.StatusCode)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &StageError{Stage: stage, Status: http.StatusBadGateway, Message: "invalid response", Err: err}
	}
	return nil
}

func transportError(ctx context.Context, stage string, timeout time.Duration, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &StageError{Stage: stage, Status: http.StatusGatewayTimeout, Message: fmt.Sprintf("timed out after %s", timeout), Err: err}
	}
	return &StageError{Stage: stage, Status: http.StatusBadGateway, Message: "service unreachable", Err: err}
}

// upstreamMessage pulls a human-readable cause out of a stage error body.
// It understands {"message": ...} and {"detail": ...} bodies.
func upstreamMessage(body []byte, status int) string {
	var payload struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	if s := strings.TrimSpace(string(bytes.ToValidUTF8(body, nil))); s != "" && len(s) <= 200 {
		return s
	}
	return http.StatusText(status)
}

func jsonRequest(method, url string, v interface{}) func(context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
}
