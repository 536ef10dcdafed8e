package types

// Segment is one timed span of recognized speech. AvgLogProb is nil when the
// engine did not report a log-probability for the segment.
type Segment struct {
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text,omitempty"`
	AvgLogProb *float64 `json:"avg_logprob,omitempty"`
}

// Transcript is produced once per audio input and never mutated afterwards.
type Transcript struct {
	Text       string    `json:"transcript"`
	Language   string    `json:"language"`
	Confidence float64   `json:"confidence"` // approximate, see transcription.Confidence
	Duration   float64   `json:"duration"`   // seconds
	Segments   []Segment `json:"segments"`
}

// SessionRecord is the fixed-schema result of extraction. Every field is
// either extracted text or a sentinel; Diagnoses is never empty.
// The JSON names are a public contract for downstream consumers.
type SessionRecord struct {
	Goal                 string   `json:"goal"`
	Content              string   `json:"content"`
	Assessment           string   `json:"assessment"`
	Diagnoses            []string `json:"diagnoses"`
	InterventionResponse string   `json:"intervention_response"`
	Plan                 string   `json:"plan"`
	ClientName           string   `json:"client_name"`
	SessionDate          string   `json:"session_date"`
	RawTranscript        string   `json:"raw_transcript"`
}

// SessionFields lists the extracted field names in template order.
var SessionFields = []string{
	"goal",
	"content",
	"assessment",
	"diagnoses",
	"intervention_response",
	"plan",
	"client_name",
	"session_date",
}

// TherapyNote is a rendered note plus the record it was built from.
type TherapyNote struct {
	Text   string
	Record SessionRecord
}
