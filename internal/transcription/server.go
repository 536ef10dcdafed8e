package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"theranotes-go/internal/types"
)

var _ Engine = (*ServerEngine)(nil)

// ServerEngine talks to a whisper.cpp server (POST /inference).
type ServerEngine struct {
	baseURL    string
	httpClient *http.Client
}

type ServerOption func(*ServerEngine)

// WithHTTPClient replaces the default client. Request deadlines come from
// the caller's context, so the default client has no timeout of its own.
func WithHTTPClient(c *http.Client) ServerOption {
	return func(e *ServerEngine) { e.httpClient = c }
}

func NewServerEngine(baseURL string, opts ...ServerOption) (*ServerEngine, error) {
	if baseURL == "" {
		return nil, errors.New("whisper server url must not be empty")
	}
	e := &ServerEngine{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

func (e *ServerEngine) Name() string { return "whisper-server" }

// inferenceResponse is the verbose_json shape returned by whisper-server.
type inferenceResponse struct {
	Text             string `json:"text"`
	Language         string `json:"language"`
	DetectedLanguage string `json:"detected_language"`
	Error            string `json:"error"`
	Segments         []struct {
		Start      float64  `json:"start"`
		End        float64  `json:"end"`
		Text       string   `json:"text"`
		AvgLogProb *float64 `json:"avg_logprob"`
	} `json:"segments"`
}

func (e *ServerEngine) Transcribe(ctx context.Context, path string) (Result, error) {
	fail := func(format string, args ...interface{}) (Result, error) {
		return Result{}, &EngineError{Engine: e.Name(), Err: fmt.Errorf(format, args...)}
	}

	f, err := os.Open(path)
	if err != nil {
		return fail("open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fail("create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return fail("copy audio: %w", err)
	}
	_ = mw.WriteField("response_format", "verbose_json")
	_ = mw.WriteField("language", "auto")
	if err := mw.Close(); err != nil {
		return fail("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/inference", &body)
	if err != nil {
		return fail("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fail("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fail("server returned HTTP %d: %s", resp.StatusCode, snippet(data))
	}

	var out inferenceResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return fail("parse JSON response: %w", err)
	}
	if out.Error != "" {
		return fail("server error: %s", out.Error)
	}

	res := Result{Text: out.Text, Language: out.DetectedLanguage}
	if res.Language == "" {
		res.Language = out.Language
	}
	for _, s := range out.Segments {
		res.Segments = append(res.Segments, types.Segment{
			Start:      s.Start,
			End:        s.End,
			Text:       strings.TrimSpace(s.Text),
			AvgLogProb: s.AvgLogProb,
		})
	}
	return res, nil
}

// Ping checks the server's /health endpoint.
func (e *ServerEngine) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("whisper server not ready: HTTP %d", resp.StatusCode)
	}
	return nil
}

func snippet(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
