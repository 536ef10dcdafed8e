package ner

import "regexp"

// Full-date shapes. They are shared with the lexical session-date fallback.
const (
	MonthName = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

	MonthDayYear = MonthName + `\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}`
	SlashDate    = `\d{1,2}/\d{1,2}/\d{4}`
	ISODate      = `\d{4}-\d{2}-\d{2}`
)

var fullDateRe = regexp.MustCompile(`(?i)\b(?:` + MonthDayYear + `|` + SlashDate + `|` + ISODate + `)\b`)

// DateShapeRecognizer labels every complete calendar date (month name, day
// and year; m/d/yyyy; yyyy-mm-dd) as DATE.
type DateShapeRecognizer struct{}

func NewDateShapeRecognizer() *DateShapeRecognizer {
	return &DateShapeRecognizer{}
}

func (DateShapeRecognizer) Entities(text string) ([]Entity, error) {
	var out []Entity
	for _, loc := range fullDateRe.FindAllStringIndex(text, -1) {
		out = append(out, Entity{Text: text[loc[0]:loc[1]], Label: LabelDate, Start: loc[0]})
	}
	return out, nil
}
