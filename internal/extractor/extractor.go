// Package extractor turns a cleaned therapy-session transcript into a
// fixed-schema session record.
//
// Extraction is deterministic and never fails: a field that cannot be found
// holds a documented sentinel string instead of being left empty.
package extractor

import (
	"regexp"
	"strings"

	"theranotes-go/internal/ner"
	"theranotes-go/internal/types"
)

// Sentinel values. They are part of the record contract and render as
// ordinary text.
const (
	NoTranscript = "No transcript provided"

	GoalNotFound         = "Goal not explicitly stated"
	ContentNotFound      = "Content not explicitly stated"
	AssessmentNotFound   = "No formal assessment mentioned"
	NoDiagnoses          = "No diagnoses mentioned"
	InterventionNotFound = "Interventions not explicitly documented"
	PlanNotFound         = "Plan not explicitly stated"

	ClientNameNotFound     = "Client name not found"
	ClientNameUnavailable  = "Client name not extracted (entity recognizer not available)"
	SessionDateNotFound    = "Session date not found"
	SessionDateUnavailable = "Session date not extracted (entity recognizer not available)"
)

var sentinels = map[string]struct{}{
	NoTranscript:           {},
	GoalNotFound:           {},
	ContentNotFound:        {},
	AssessmentNotFound:     {},
	NoDiagnoses:            {},
	InterventionNotFound:   {},
	PlanNotFound:           {},
	ClientNameNotFound:     {},
	ClientNameUnavailable:  {},
	SessionDateNotFound:    {},
	SessionDateUnavailable: {},
}

// IsSentinel reports whether v is one of the "not found" placeholders.
func IsSentinel(v string) bool {
	_, ok := sentinels[v]
	return ok
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	fillerRe     = regexp.MustCompile(`(?i)\b(?:uh|um|er|ah)\b`)
)

// Clean collapses whitespace and drops standalone filler words.
func Clean(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = fillerRe.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// Extractor is stateless apart from the recognizer it was built with and is
// safe for concurrent use.
type Extractor struct {
	ner ner.Capability
}

func New(c ner.Capability) *Extractor {
	return &Extractor{ner: c}
}

// Extract builds a record from transcript. Blank input yields a record whose
// every field is NoTranscript.
func (e *Extractor) Extract(transcript string) types.SessionRecord {
	if strings.TrimSpace(transcript) == "" {
		return emptyRecord(transcript)
	}

	text := Clean(transcript)
	return types.SessionRecord{
		Goal:                 GoalChain.Apply(text),
		Content:              extractContent(text),
		Assessment:           AssessmentChain.Apply(text),
		Diagnoses:            Diagnoses(text),
		InterventionResponse: InterventionChain.Apply(text),
		Plan:                 PlanChain.Apply(text),
		ClientName:           clientName.resolve(e.ner, text),
		SessionDate:          sessionDate.resolve(e.ner, text),
		RawTranscript:        transcript,
	}
}

func emptyRecord(raw string) types.SessionRecord {
	return types.SessionRecord{
		Goal:                 NoTranscript,
		Content:              NoTranscript,
		Assessment:           NoTranscript,
		Diagnoses:            []string{NoTranscript},
		InterventionResponse: NoTranscript,
		Plan:                 NoTranscript,
		ClientName:           NoTranscript,
		SessionDate:          NoTranscript,
		RawTranscript:        raw,
	}
}

// extractContent falls back to the first three sentences when no content
// pattern matches.
func extractContent(text string) string {
	if v, _, ok := ContentChain.Match(text); ok {
		return v
	}
	parts := strings.Split(text, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	if v := strings.TrimSpace(strings.Join(parts, ". ")); v != "" {
		return v
	}
	return ContentNotFound
}

// resolver is a recognizer-first field: entity label, then lexical chain,
// then sentinel.
type resolver struct {
	label       ner.Label
	lexical     Chain
	unavailable string
}

var (
	clientName  = resolver{label: ner.LabelPerson, lexical: ClientNameChain, unavailable: ClientNameUnavailable}
	sessionDate = resolver{label: ner.LabelDate, lexical: SessionDateChain, unavailable: SessionDateUnavailable}
)

func (r resolver) resolve(c ner.Capability, text string) string {
	if v, ok := c.First(text, r.label); ok {
		return v
	}
	if v, _, ok := r.lexical.Match(text); ok {
		return v
	}
	if !c.Available() {
		return r.unavailable
	}
	return r.lexical.NotFound
}
