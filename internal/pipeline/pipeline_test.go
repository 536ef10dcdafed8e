package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"theranotes-go/internal/apperr"
	"theranotes-go/internal/extractor"
	"theranotes-go/internal/formatter"
	"theranotes-go/internal/logger"
	"theranotes-go/internal/ner"
	"theranotes-go/internal/observe"
	"theranotes-go/internal/types"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const scenarioTranscript = "We discussed coping strategies for work stress. Assessment: client reports moderate anxiety. Diagnosis: anxiety. Plan: continue CBT."

func quietLogger() *logger.Logger {
	return logger.NewWithOptions(logger.Options{Level: "error", Output: io.Discard})
}

type stages struct {
	transcribeCalls atomic.Int32
	extractCalls    atomic.Int32
	renderCalls     atomic.Int32
	lastRequestID   atomic.Value

	transcribe http.HandlerFunc
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func okTranscriber(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, fh, err := r.FormFile("audio_file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "missing audio_file"})
			return
		}
		b, _ := io.ReadAll(f)
		writeJSON(w, http.StatusOK, types.TranscribeResponse{
			Transcript: types.Transcript{Text: text, Language: "en", Confidence: 0.8, Duration: 12.5, Segments: []types.Segment{}},
			Filename:   fh.Filename,
			FileSize:   int64(len(b)),
		})
	}
}

// newStages serves all three stages from one server, like a notary that also
// formats.
func newStages(t *testing.T, s *stages) *httptest.Server {
	t.Helper()
	ext := extractor.New(ner.Unavailable())
	mux := http.NewServeMux()
	mux.HandleFunc(TranscribePath, func(w http.ResponseWriter, r *http.Request) {
		s.transcribeCalls.Add(1)
		s.lastRequestID.Store(r.Header.Get(logger.RequestIDHeader))
		s.transcribe(w, r)
	})
	mux.HandleFunc(ExtractPath, func(w http.ResponseWriter, r *http.Request) {
		s.extractCalls.Add(1)
		var req types.TranscriptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad json"})
			return
		}
		writeJSON(w, http.StatusOK, ext.Extract(req.Transcript))
	})
	mux.HandleFunc(RenderPath, func(w http.ResponseWriter, r *http.Request) {
		s.renderCalls.Add(1)
		var rec types.SessionRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad json"})
			return
		}
		writeJSON(w, http.StatusOK, formatter.ToJSON(rec))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newOrchestrator(url string) *Orchestrator {
	return New(Config{
		TranscriberURL:    url,
		NotaryURL:         url,
		TranscribeTimeout: 5 * time.Second,
		ExtractTimeout:    5 * time.Second,
		FormatTimeout:     5 * time.Second,
	}, quietLogger())
}

func audio() Audio {
	return Audio{Filename: "session.wav", ContentType: "audio/wav", Body: strings.NewReader("RIFF0000WAVE")}
}

func TestGenerateNote_FullPipeline(t *testing.T) {
	s := &stages{transcribe: okTranscriber(scenarioTranscript)}
	srv := newStages(t, s)
	o := newOrchestrator(srv.URL)

	ctx := logger.ContextWithRequestID(context.Background(), "req-123")
	resp, err := o.GenerateNote(ctx, audio())
	if err != nil {
		t.Fatalf("GenerateNote() error = %v", err)
	}
	if strings.TrimSpace(resp.TherapyNote) == "" {
		t.Error("therapy_note is empty")
	}
	found := false
	for _, d := range resp.SessionData.Diagnoses {
		if d == "anxiety" {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnoses = %v, want anxiety", resp.SessionData.Diagnoses)
	}
	if want := utf8.RuneCountInString(scenarioTranscript); resp.ProcessingSummary.TranscriptLength != want {
		t.Errorf("transcript_length = %d, want %d", resp.ProcessingSummary.TranscriptLength, want)
	}
	if resp.ProcessingSummary.Duration != 12.5 || resp.ProcessingSummary.Language != "en" {
		t.Errorf("summary = %+v", resp.ProcessingSummary)
	}
	if resp.Transcript.Filename != "session.wav" || resp.Transcript.FileSize != 12 {
		t.Errorf("transcript payload = %+v", resp.Transcript)
	}
	if resp.SessionData.Plan != "continue CBT" {
		t.Errorf("plan = %q", resp.SessionData.Plan)
	}
	if got, _ := s.lastRequestID.Load().(string); got != "req-123" {
		t.Errorf("forwarded request id = %q, want req-123", got)
	}
	if s.transcribeCalls.Load() != 1 || s.extractCalls.Load() != 1 || s.renderCalls.Load() != 1 {
		t.Errorf("calls = %d/%d/%d, want 1/1/1", s.transcribeCalls.Load(), s.extractCalls.Load(), s.renderCalls.Load())
	}
}

func TestGenerateNote_TranscriptionFailure(t *testing.T) {
	s := &stages{transcribe: func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"code": "UNSUPPORTED_MEDIA", "message": "unsupported file format"})
	}}
	srv := newStages(t, s)

	_, err := newOrchestrator(srv.URL).GenerateNote(context.Background(), audio())

	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StageError", err)
	}
	if se.Stage != StageTranscription {
		t.Errorf("stage = %q, want transcription", se.Stage)
	}
	if got := apperr.HTTPStatus(err); got != http.StatusUnsupportedMediaType {
		t.Errorf("HTTPStatus = %d, want 415", got)
	}
	if msg := apperr.SafeMessage(err); !strings.HasPrefix(msg, "Transcription service failed") {
		t.Errorf("message = %q, want it to name transcription", msg)
	}
	if s.extractCalls.Load() != 0 || s.renderCalls.Load() != 0 {
		t.Error("later stages were called after transcription failed")
	}
}

func TestGenerateNote_EmptyTranscript(t *testing.T) {
	s := &stages{transcribe: okTranscriber("   ")}
	srv := newStages(t, s)

	_, err := newOrchestrator(srv.URL).GenerateNote(context.Background(), audio())
	if got := apperr.HTTPStatus(err); got != http.StatusBadRequest {
		t.Fatalf("HTTPStatus = %d (%v), want 400", got, err)
	}
	var se *StageError
	if errors.As(err, &se) {
		t.Error("empty transcript reported as a stage failure")
	}
	if s.extractCalls.Load() != 0 {
		t.Error("extraction called for an empty transcript")
	}
}

func TestGenerateNote_StageUnreachable(t *testing.T) {
	s := &stages{transcribe: okTranscriber(scenarioTranscript)}
	srv := newStages(t, s)
	o := New(Config{
		TranscriberURL:    srv.URL,
		NotaryURL:         "http://127.0.0.1:1",
		TranscribeTimeout: 5 * time.Second,
		ExtractTimeout:    5 * time.Second,
		FormatTimeout:     5 * time.Second,
	}, quietLogger())

	_, err := o.GenerateNote(context.Background(), audio())
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageExtraction || se.Status != http.StatusBadGateway {
		t.Fatalf("error = %v, want extraction 502", err)
	}
}

func TestGenerateNote_StageTimeout(t *testing.T) {
	s := &stages{transcribe: func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}}
	srv := newStages(t, s)
	o := newOrchestrator(srv.URL)
	o.cfg.TranscribeTimeout = 50 * time.Millisecond

	_, err := o.GenerateNote(context.Background(), audio())
	var se *StageError
	if !errors.As(err, &se) || se.Status != http.StatusGatewayTimeout || se.Stage != StageTranscription {
		t.Fatalf("error = %v, want transcription 504", err)
	}
}

func TestGenerateNote_RecordsOutcome(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ok := newStages(t, &stages{transcribe: okTranscriber(scenarioTranscript)})
	blank := newStages(t, &stages{transcribe: okTranscriber("   ")})
	for _, url := range []string{ok.URL, blank.URL} {
		o := New(Config{
			TranscriberURL:    url,
			NotaryURL:         url,
			TranscribeTimeout: 5 * time.Second,
			ExtractTimeout:    5 * time.Second,
			FormatTimeout:     5 * time.Second,
		}, quietLogger(), WithMetrics(m))
		_, _ = o.GenerateNote(context.Background(), audio())
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "theranotes.pipeline.runs" {
				continue
			}
			for _, dp := range md.Data.(metricdata.Sum[int64]).DataPoints {
				v, _ := dp.Attributes.Value("outcome")
				got[v.AsString()] += dp.Value
			}
		}
	}
	if got["ok"] != 1 || got["rejected"] != 1 || got["error"] != 0 {
		t.Errorf("pipeline runs by outcome = %v, want ok=1 rejected=1", got)
	}
}

func TestExtract_BlankIsClientError(t *testing.T) {
	s := &stages{}
	srv := newStages(t, s)

	_, err := newOrchestrator(srv.URL).Extract(context.Background(), " \n\t")
	if !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Fatalf("error = %v, want INVALID_ARGUMENT", err)
	}
	if s.extractCalls.Load() != 0 {
		t.Error("extraction stage called for blank transcript")
	}
}

func TestUpstreamMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"message":"Transcript cannot be empty"}`, "Transcript cannot be empty"},
		{`{"detail":"Invalid audio file"}`, "Invalid audio file"},
		{`upstream exploded`, "upstream exploded"},
		{``, "Bad Gateway"},
	}
	for _, tt := range tests {
		if got := upstreamMessage([]byte(tt.body), http.StatusBadGateway); got != tt.want {
			t.Errorf("upstreamMessage(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestChecksAndWaitReady(t *testing.T) {
	srv := newStages(t, &stages{})
	o := newOrchestrator(srv.URL)

	checks := o.Checks()
	if len(checks) != 2 {
		t.Fatalf("len(Checks()) = %d, want 2 when formatter is the notary", len(checks))
	}
	for _, c := range checks {
		if err := c.Check(context.Background()); err != nil {
			t.Errorf("%s check: %v", c.Name, err)
		}
	}
	if err := o.WaitReady(context.Background(), time.Second); err != nil {
		t.Errorf("WaitReady() = %v", err)
	}
}
