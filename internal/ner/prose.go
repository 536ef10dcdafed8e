package ner

import (
	"strings"
	"time"
	"unicode"

	"github.com/jdkato/prose/v2"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ProseRecognizer labels PERSON spans with prose's averaged-perceptron NER
// model. prose has no DATE class; pair it with [WhenRecognizer].
type ProseRecognizer struct{}

func NewProseRecognizer() *ProseRecognizer {
	return &ProseRecognizer{}
}

func (p *ProseRecognizer) Entities(text string) ([]Entity, error) {
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithTagging(true),
		prose.WithExtraction(true),
	)
	if err != nil {
		return nil, err
	}
	var out []Entity
	for _, e := range doc.Entities() {
		if e.Label == "PERSON" {
			out = append(out, Entity{Text: e.Text, Label: LabelPerson})
		}
	}
	locate(text, out)
	return cleanPersons(text, out), nil
}

// fieldWords are note vocabulary the tagger mistakes for names when they
// open a sentence ("Plan: ...", "Diagnosis: ...").
var fieldWords = map[string]struct{}{
	"goal": {}, "goals": {}, "objective": {}, "focus": {}, "plan": {}, "plans": {},
	"content": {}, "assessment": {}, "evaluation": {}, "testing": {},
	"diagnosis": {}, "diagnoses": {}, "intervention": {}, "interventions": {},
	"response": {}, "homework": {}, "next": {}, "steps": {}, "follow": {}, "up": {},
	"session": {}, "client": {}, "patient": {}, "therapist": {}, "note": {}, "notes": {},
}

var rolePrefixes = []string{"client ", "patient "}

// cleanPersons strips a leading role word from each span and drops spans
// that are field headings: made only of field words, or followed by ':'.
func cleanPersons(text string, ents []Entity) []Entity {
	out := make([]Entity, 0, len(ents))
	for _, e := range ents {
		end := -1
		if e.Start >= 0 {
			end = e.Start + len(e.Text)
		}
		for _, p := range rolePrefixes {
			if len(e.Text) > len(p) && strings.EqualFold(e.Text[:len(p)], p) {
				rest := strings.TrimLeft(e.Text[len(p):], " ")
				if e.Start >= 0 {
					e.Start += len(e.Text) - len(rest)
				}
				e.Text = rest
			}
		}
		if end >= 0 && strings.HasPrefix(strings.TrimLeft(text[end:], " \t"), ":") {
			continue
		}
		if onlyFieldWords(e.Text) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func onlyFieldWords(span string) bool {
	words := strings.FieldsFunc(strings.ToLower(span), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if _, ok := fieldWords[w]; !ok {
			return false
		}
	}
	return true
}

// WhenRecognizer labels the first natural-language date expression as DATE.
// Expressions without a digit ("today", "next week") are relative to the
// moment of speaking and are not reported.
type WhenRecognizer struct {
	parser *when.Parser
}

func NewWhenRecognizer() *WhenRecognizer {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &WhenRecognizer{parser: w}
}

func (r *WhenRecognizer) Entities(text string) ([]Entity, error) {
	res, err := r.parser.Parse(text, time.Now())
	if err != nil {
		return nil, err
	}
	if res == nil || !strings.ContainsFunc(res.Text, unicode.IsDigit) {
		return nil, nil
	}
	return []Entity{{Text: res.Text, Label: LabelDate, Start: res.Index}}, nil
}

// NewDefault returns the PERSON+DATE recognizer used by the notary service.
// Complete calendar dates win over the shorter spans when reports inside
// them.
func NewDefault() Recognizer {
	return Combine(NewProseRecognizer(), NewDateShapeRecognizer(), NewWhenRecognizer())
}
