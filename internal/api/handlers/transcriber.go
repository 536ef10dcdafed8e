package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"theranotes-go/internal/apperr"
	"theranotes-go/internal/audio"
	"theranotes-go/internal/transcription"
	"theranotes-go/internal/types"
)

// multipartSlack covers form boundaries and headers on top of the file limit.
const multipartSlack = 1 << 20

type TranscriberHandler struct {
	svc     *transcription.Service
	stager  *audio.Stager
	policy  audio.Policy
	timeout time.Duration
}

func NewTranscriberHandler(svc *transcription.Service, stager *audio.Stager, policy audio.Policy, timeout time.Duration) *TranscriberHandler {
	return &TranscriberHandler{svc: svc, stager: stager, policy: policy, timeout: timeout}
}

// Transcribe accepts multipart field "audio_file". The upload is validated
// before anything is written to disk and the staged copy is removed on every
// path out of the handler.
func (h *TranscriberHandler) Transcribe(c *gin.Context) {
	const op = "TranscriberHandler.Transcribe"
	if h.policy.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.policy.MaxBytes+multipartSlack)
	}

	fh, err := c.FormFile("audio_file")
	if err != nil {
		if isTooLarge(err) {
			writeError(c, apperr.E(apperr.CodeTooLarge, op, "file too large", err))
			return
		}
		writeError(c, apperr.E(apperr.CodeInvalidArgument, op, "missing multipart field 'audio_file'", err))
		return
	}
	if err := h.policy.Validate(fh.Filename, fh.Header.Get("Content-Type"), fh.Size); err != nil {
		writeError(c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, apperr.E(apperr.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer f.Close()

	path, cleanup, err := h.stager.Stage(f, fh.Filename)
	if err != nil {
		writeError(c, err)
		return
	}
	defer cleanup()

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	tr, err := h.svc.Transcribe(ctx, path)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.TranscribeResponse{
		Transcript: tr,
		Filename:   fh.Filename,
		FileSize:   fh.Size,
	})
}

type modelInfo struct {
	Engine             string   `json:"engine"`
	ModelSize          string   `json:"model_size,omitempty"`
	Workers            int      `json:"workers"`
	SupportedFormats   []string `json:"supported_formats"`
	SupportedMIMETypes []string `json:"supported_mime_types"`
	MaxFileSizeBytes   int64    `json:"max_file_size_bytes"`
}

// ModelInfo describes the engine and upload limits.
func (h *TranscriberHandler) ModelInfo(modelSize string, workers int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, modelInfo{
			Engine:             h.svc.EngineName(),
			ModelSize:          modelSize,
			Workers:            workers,
			SupportedFormats:   audio.SupportedExtensions(),
			SupportedMIMETypes: audio.SupportedMIMETypes(),
			MaxFileSizeBytes:   h.policy.MaxBytes,
		})
	}
}
