package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"theranotes-go/internal/apperr"
	"theranotes-go/internal/audio"
	"theranotes-go/internal/pipeline"
)

// GatewayHandler exposes the public API over the pipeline.
type GatewayHandler struct {
	orch   *pipeline.Orchestrator
	policy audio.Policy
}

func NewGatewayHandler(orch *pipeline.Orchestrator, policy audio.Policy) *GatewayHandler {
	return &GatewayHandler{orch: orch, policy: policy}
}

// upload validates the "audio_file" part before any stage is called.
func (h *GatewayHandler) upload(c *gin.Context, op string) (pipeline.Audio, func(), bool) {
	if h.policy.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.policy.MaxBytes+multipartSlack)
	}
	fh, err := c.FormFile("audio_file")
	if err != nil {
		if isTooLarge(err) {
			writeError(c, apperr.E(apperr.CodeTooLarge, op, "file too large", err))
			return pipeline.Audio{}, nil, false
		}
		writeError(c, apperr.E(apperr.CodeInvalidArgument, op, "missing multipart field 'audio_file'", err))
		return pipeline.Audio{}, nil, false
	}
	if err := h.policy.Validate(fh.Filename, fh.Header.Get("Content-Type"), fh.Size); err != nil {
		writeError(c, err)
		return pipeline.Audio{}, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, apperr.E(apperr.CodeInternal, op, "failed to open upload", err))
		return pipeline.Audio{}, nil, false
	}
	a := pipeline.Audio{Filename: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Body: f}
	return a, func() { _ = f.Close() }, true
}

func (h *GatewayHandler) Transcribe(c *gin.Context) {
	a, done, ok := h.upload(c, "GatewayHandler.Transcribe")
	if !ok {
		return
	}
	defer done()
	out, err := h.orch.Transcribe(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *GatewayHandler) ExtractSessionData(c *gin.Context) {
	text, ok := bindTranscript(c, "GatewayHandler.ExtractSessionData")
	if !ok {
		return
	}
	rec, err := h.orch.Extract(c.Request.Context(), text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *GatewayHandler) GenerateTherapyNote(c *gin.Context) {
	a, done, ok := h.upload(c, "GatewayHandler.GenerateTherapyNote")
	if !ok {
		return
	}
	defer done()
	out, err := h.orch.GenerateNote(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
