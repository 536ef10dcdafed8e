// Package aggregator summarises a batch of extracted session records.
package aggregator

import (
	"sort"

	"theranotes-go/internal/extractor"
	"theranotes-go/internal/types"
)

type DiagnosisCount struct {
	Diagnosis string `json:"diagnosis"`
	Count     int    `json:"count"`
}

type Summary struct {
	Records         int                `json:"records"`
	DiagnosisCounts map[string]int     `json:"diagnosis_counts"`
	SentinelRates   map[string]float64 `json:"sentinel_rates"`
}

// Aggregate counts diagnoses across records and, per field, the share of
// records where the field holds a "not found" sentinel.
func Aggregate(records []types.SessionRecord) Summary {
	diag := map[string]int{}
	missing := map[string]int{}
	for _, r := range records {
		for _, d := range r.Diagnoses {
			if !extractor.IsSentinel(d) {
				diag[d]++
			}
		}
		for field, v := range textFields(r) {
			if extractor.IsSentinel(v) {
				missing[field]++
			}
		}
		if len(r.Diagnoses) == 0 || (len(r.Diagnoses) == 1 && extractor.IsSentinel(r.Diagnoses[0])) {
			missing["diagnoses"]++
		}
	}

	rates := make(map[string]float64, len(types.SessionFields))
	for _, f := range types.SessionFields {
		if len(records) == 0 {
			rates[f] = 0
			continue
		}
		rates[f] = float64(missing[f]) / float64(len(records))
	}
	return Summary{Records: len(records), DiagnosisCounts: diag, SentinelRates: rates}
}

func textFields(r types.SessionRecord) map[string]string {
	return map[string]string{
		"goal":                  r.Goal,
		"content":               r.Content,
		"assessment":            r.Assessment,
		"intervention_response": r.InterventionResponse,
		"plan":                  r.Plan,
		"client_name":           r.ClientName,
		"session_date":          r.SessionDate,
	}
}

// TopDiagnoses returns up to n diagnoses, most frequent first. Ties are
// broken alphabetically. n <= 0 returns all of them.
func (s Summary) TopDiagnoses(n int) []DiagnosisCount {
	out := make([]DiagnosisCount, 0, len(s.DiagnosisCounts))
	for d, c := range s.DiagnosisCounts {
		out = append(out, DiagnosisCount{Diagnosis: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Diagnosis < out[j].Diagnosis
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
