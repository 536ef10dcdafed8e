// internal/types/responses.go
package types

// --------------------------------------------
// Requests
// --------------------------------------------
type TranscriptRequest struct {
	Transcript string `json:"transcript"`
}

// --------------------------------------------
// Transcriber stage
// --------------------------------------------
type TranscribeResponse struct {
	Transcript
	Filename string `json:"filename"`
	FileSize int64  `json:"file_size"`
}

// --------------------------------------------
// Notary / formatter stage
// --------------------------------------------
type NoteResponse struct {
	TherapyNote string        `json:"therapy_note"`
	SessionData SessionRecord `json:"session_data"`
}

type SupportedFieldsResponse struct {
	SupportedFields []string `json:"supported_fields"`
	Description     string   `json:"description"`
}

// --------------------------------------------
// Gateway: full pipeline output
// --------------------------------------------
type ProcessingSummary struct {
	Duration         float64 `json:"duration"`
	TranscriptLength int     `json:"transcript_length"`
	Language         string  `json:"language"`
	Confidence       float64 `json:"confidence"`
}

type GenerateNoteResponse struct {
	TherapyNote       string             `json:"therapy_note"`
	Transcript        TranscribeResponse `json:"transcript"`
	SessionData       SessionRecord      `json:"session_data"`
	ProcessingSummary ProcessingSummary  `json:"processing_summary"`
}

// --------------------------------------------
// Service metadata
// --------------------------------------------
type ServiceInfo struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

type ServiceHealth struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
