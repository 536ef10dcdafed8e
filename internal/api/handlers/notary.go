package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"theranotes-go/internal/apperr"
	"theranotes-go/internal/extractor"
	"theranotes-go/internal/formatter"
	"theranotes-go/internal/types"
)

// NotaryHandler serves extraction and formatting.
type NotaryHandler struct {
	ext *extractor.Extractor
}

func NewNotaryHandler(ext *extractor.Extractor) *NotaryHandler {
	return &NotaryHandler{ext: ext}
}

func (h *NotaryHandler) transcript(c *gin.Context, op string) (string, bool) {
	text, ok := bindTranscript(c, op)
	if !ok {
		return "", false
	}
	if strings.TrimSpace(text) == "" {
		writeError(c, apperr.E(apperr.CodeInvalidArgument, op, "Transcript cannot be empty", nil))
		return "", false
	}
	return text, true
}

// ExtractSessionData returns the session record for a transcript.
func (h *NotaryHandler) ExtractSessionData(c *gin.Context) {
	text, ok := h.transcript(c, "NotaryHandler.ExtractSessionData")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.ext.Extract(text))
}

// FormatTherapyNote extracts and renders in one call.
func (h *NotaryHandler) FormatTherapyNote(c *gin.Context) {
	text, ok := h.transcript(c, "NotaryHandler.FormatTherapyNote")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, formatter.ToJSON(h.ext.Extract(text)))
}

// RenderNote formats a record produced by a previous extraction. The record
// is rendered as given; incomplete records are rejected.
func (h *NotaryHandler) RenderNote(c *gin.Context) {
	const op = "NotaryHandler.RenderNote"
	var rec types.SessionRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		writeError(c, apperr.E(apperr.CodeInvalidArgument, op, "request body must be a session record", err))
		return
	}
	if missing := missingFields(rec); len(missing) > 0 {
		writeError(c, apperr.E(apperr.CodeInvalidArgument, op, "session record is missing: "+strings.Join(missing, ", "), nil))
		return
	}
	c.JSON(http.StatusOK, formatter.ToJSON(rec))
}

func missingFields(rec types.SessionRecord) []string {
	fields := []struct {
		name  string
		empty bool
	}{
		{"goal", rec.Goal == ""},
		{"content", rec.Content == ""},
		{"assessment", rec.Assessment == ""},
		{"diagnoses", len(rec.Diagnoses) == 0},
		{"intervention_response", rec.InterventionResponse == ""},
		{"plan", rec.Plan == ""},
		{"client_name", rec.ClientName == ""},
		{"session_date", rec.SessionDate == ""},
	}
	var missing []string
	for _, f := range fields {
		if f.empty {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func (h *NotaryHandler) SupportedFields(c *gin.Context) {
	c.JSON(http.StatusOK, types.SupportedFieldsResponse{
		SupportedFields: types.SessionFields,
		Description:     "Extracts structured data from therapy session transcripts",
	})
}
