// Package pipeline chains the transcription, extraction and formatting
// services into one request. Stages run strictly in order, each gets a single
// attempt under its own timeout, and the first failure ends the run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
	"unicode/utf8"

	"theranotes-go/internal/apperr"
	"theranotes-go/internal/config"
	"theranotes-go/internal/logger"
	"theranotes-go/internal/observe"
	"theranotes-go/internal/types"
)

// Stage endpoints.
const (
	TranscribePath = "/api/transcribe"
	ExtractPath    = "/api/extract-session-data"
	RenderPath     = "/api/render-note"
)

// Config locates the stage services and bounds each call.
type Config struct {
	TranscriberURL string
	NotaryURL      string
	FormatterURL   string

	TranscribeTimeout time.Duration
	ExtractTimeout    time.Duration
	FormatTimeout     time.Duration
}

// FromStages converts the service configuration.
func FromStages(s config.StagesConfig) Config {
	return Config{
		TranscriberURL:    strings.TrimRight(s.TranscriberURL, "/"),
		NotaryURL:         strings.TrimRight(s.NotaryURL, "/"),
		FormatterURL:      strings.TrimRight(s.FormatterBaseURL(), "/"),
		TranscribeTimeout: s.TranscribeTimeout,
		ExtractTimeout:    s.ExtractTimeout,
		FormatTimeout:     s.FormatTimeout,
	}
}

// Audio is an upload to forward to the transcription stage.
type Audio struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type Orchestrator struct {
	cfg     Config
	client  *http.Client
	metrics *observe.Metrics
	log     *logger.Logger
}

type Option func(*Orchestrator)

// WithHTTPClient replaces the default client. Deadlines come from the
// per-stage contexts, not from the client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Orchestrator) { o.client = c }
}

func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func New(cfg Config, log *logger.Logger, opts ...Option) *Orchestrator {
	if cfg.FormatterURL == "" {
		cfg.FormatterURL = cfg.NotaryURL
	}
	if log == nil {
		log = logger.New()
	}
	o := &Orchestrator{
		cfg:     cfg,
		client:  &http.Client{},
		metrics: observe.Noop(),
		log:     log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Transcribe forwards audio to the transcription stage.
func (o *Orchestrator) Transcribe(ctx context.Context, a Audio) (types.TranscribeResponse, error) {
	var out types.TranscribeResponse
	err := o.call(ctx, StageTranscription, o.cfg.TranscribeTimeout, multipartRequest(o.cfg.TranscriberURL+TranscribePath, a), &out)
	return out, err
}

// Extract sends transcript text to the extraction stage. Blank text is
// rejected without a call.
func (o *Orchestrator) Extract(ctx context.Context, transcript string) (types.SessionRecord, error) {
	if strings.TrimSpace(transcript) == "" {
		return types.SessionRecord{}, apperr.E(apperr.CodeInvalidArgument, "pipeline.Extract", "Transcript cannot be empty", nil)
	}
	var out types.SessionRecord
	err := o.call(ctx, StageExtraction, o.cfg.ExtractTimeout,
		jsonRequest(http.MethodPost, o.cfg.NotaryURL+ExtractPath, types.TranscriptRequest{Transcript: transcript}), &out)
	return out, err
}

// Render sends an extracted record to the formatting stage.
func (o *Orchestrator) Render(ctx context.Context, rec types.SessionRecord) (types.NoteResponse, error) {
	var out types.NoteResponse
	err := o.call(ctx, StageFormatting, o.cfg.FormatTimeout,
		jsonRequest(http.MethodPost, o.cfg.FormatterURL+RenderPath, rec), &out)
	return out, err
}

// GenerateNote runs audio -> transcript -> record -> note. A transcription
// that succeeds with no text is a client error, not a stage failure.
func (o *Orchestrator) GenerateNote(ctx context.Context, a Audio) (resp types.GenerateNoteResponse, err error) {
	const op = "pipeline.GenerateNote"
	log := o.log.WithField("module", "pipeline").WithField("filename", a.Filename)
	if id := logger.RequestIDFromContext(ctx); id != "" {
		log = log.WithField("req_id", id)
	}
	start := time.Now()
	defer func() {
		outcome := "ok"
		switch {
		case apperr.IsCode(err, apperr.CodeInvalidArgument):
			outcome = "rejected"
		case err != nil:
			outcome = "error"
		}
		o.metrics.RecordPipeline(context.WithoutCancel(ctx), outcome)
	}()

	tr, err := o.Transcribe(ctx, a)
	if err != nil {
		log.WithField("error", err.Error()).Warn("transcription stage failed")
		return resp, err
	}
	if strings.TrimSpace(tr.Text) == "" {
		return resp, apperr.E(apperr.CodeInvalidArgument, op, "No speech detected in the audio file", nil)
	}
	log.WithField("transcript_chars", utf8.RuneCountInString(tr.Text)).Info("transcription stage done")

	rec, err := o.Extract(ctx, tr.Text)
	if err != nil {
		log.WithField("error", err.Error()).Warn("extraction stage failed")
		return resp, err
	}

	note, err := o.Render(ctx, rec)
	if err != nil {
		log.WithField("error", err.Error()).Warn("formatting stage failed")
		return resp, err
	}
	if note.TherapyNote == "" {
		return resp, &StageError{Stage: StageFormatting, Status: http.StatusBadGateway, Message: "empty therapy note"}
	}

	resp = types.GenerateNoteResponse{
		TherapyNote: note.TherapyNote,
		Transcript:  tr,
		SessionData: rec,
		ProcessingSummary: types.ProcessingSummary{
			Duration:         tr.Duration,
			TranscriptLength: utf8.RuneCountInString(tr.Text),
			Language:         tr.Language,
			Confidence:       tr.Confidence,
		},
	}
	log.WithField("elapsed", time.Since(start).String()).Info("therapy note generated")
	return resp, nil
}

// multipartRequest streams a as the "audio_file" form field.
func multipartRequest(url string, a Audio) func(context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)

		go func() {
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio_file"; filename=%q`, a.Filename))
			ct := a.ContentType
			if ct == "" {
				ct = "application/octet-stream"
			}
			h.Set("Content-Type", ct)
			part, err := mw.CreatePart(h)
			if err == nil {
				_, err = io.Copy(part, a.Body)
			}
			if err == nil {
				err = mw.Close()
			}
			pw.CloseWithError(err)
		}()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
		if err != nil {
			pr.CloseWithError(err)
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil
	}
}
