// Package formatter renders a session record as a clinical note. It performs
// no extraction: every value, sentinel or not, is printed as given.
package formatter

import (
	"strings"

	"theranotes-go/internal/types"
)

const rule = "=================================================="

// Section headings in note order.
const (
	HeadingGoal         = "SESSION GOAL"
	HeadingContent      = "CONTENT DISCUSSED"
	HeadingAssessment   = "ASSESSMENT"
	HeadingDiagnoses    = "DIAGNOSES"
	HeadingIntervention = "INTERVENTION AND RESPONSE"
	HeadingPlan         = "PLAN"
)

// ToNote renders rec as plain text: a header block with client name and
// session date, then one section per field.
func ToNote(rec types.SessionRecord) string {
	var b strings.Builder
	b.WriteString("THERAPY SESSION NOTE\n")
	b.WriteString(rule + "\n")
	b.WriteString("Client: " + rec.ClientName + "\n")
	b.WriteString("Session Date: " + rec.SessionDate + "\n")
	b.WriteString(rule + "\n")

	section(&b, HeadingGoal, rec.Goal)
	section(&b, HeadingContent, rec.Content)
	section(&b, HeadingAssessment, rec.Assessment)

	b.WriteString("\n" + HeadingDiagnoses + ":\n")
	for _, d := range rec.Diagnoses {
		b.WriteString("  - " + d + "\n")
	}

	section(&b, HeadingIntervention, rec.InterventionResponse)
	section(&b, HeadingPlan, rec.Plan)
	return b.String()
}

func section(b *strings.Builder, heading, body string) {
	b.WriteString("\n" + heading + ":\n")
	b.WriteString(body + "\n")
}

// ToJSON pairs the rendered note with the record it came from. The record
// is copied, so later changes to rec do not reach the payload.
func ToJSON(rec types.SessionRecord) types.NoteResponse {
	rec.Diagnoses = append([]string(nil), rec.Diagnoses...)
	return types.NoteResponse{
		TherapyNote: ToNote(rec),
		SessionData: rec,
	}
}

// Note builds the immutable note value used inside the process.
func Note(rec types.SessionRecord) types.TherapyNote {
	p := ToJSON(rec)
	return types.TherapyNote{Text: p.TherapyNote, Record: p.SessionData}
}
