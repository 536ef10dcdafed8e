package extractor

import "strings"

// Vocabulary is the closed set of condition names, synonyms and
// abbreviations recognised in transcripts. Matches are reported in this
// order, not transcript order.
var Vocabulary = []string{
	"ADHD", "ADD", "Attention Deficit Hyperactivity Disorder",
	"depression", "major depressive disorder", "MDD",
	"anxiety", "generalized anxiety disorder", "GAD",
	"bipolar", "bipolar disorder", "manic depression",
	"PTSD", "post-traumatic stress disorder",
	"OCD", "obsessive compulsive disorder",
	"autism", "autism spectrum disorder", "ASD",
	"borderline personality disorder", "BPD",
	"schizophrenia", "schizoaffective disorder",
	"eating disorder", "anorexia", "bulimia",
	"substance abuse", "alcoholism", "addiction",
}

// Diagnoses returns every vocabulary term contained in text, compared
// case-insensitively. The result is never empty.
func Diagnoses(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, term := range Vocabulary {
		if strings.Contains(lower, strings.ToLower(term)) {
			found = append(found, term)
		}
	}
	if len(found) == 0 {
		return []string{NoDiagnoses}
	}
	return found
}
