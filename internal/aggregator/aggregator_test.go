package aggregator

import (
	"math"
	"testing"

	"theranotes-go/internal/extractor"
	"theranotes-go/internal/ner"
	"theranotes-go/internal/types"
)

func TestAggregate(t *testing.T) {
	ext := extractor.New(ner.Unavailable())
	records := []types.SessionRecord{
		ext.Extract("Diagnosis: anxiety and depression. Plan: journaling."),
		ext.Extract("History of PTSD and anxiety. We discussed sleep."),
		ext.Extract("Spoke about the weekend."),
		ext.Extract(""),
	}

	s := Aggregate(records)
	if s.Records != 4 {
		t.Errorf("Records = %d, want 4", s.Records)
	}
	if s.DiagnosisCounts["anxiety"] != 2 || s.DiagnosisCounts["depression"] != 1 || s.DiagnosisCounts["PTSD"] != 1 {
		t.Errorf("DiagnosisCounts = %v", s.DiagnosisCounts)
	}
	if _, ok := s.DiagnosisCounts[extractor.NoDiagnoses]; ok {
		t.Error("sentinel counted as a diagnosis")
	}

	tests := []struct {
		field string
		want  float64
	}{
		{"plan", 0.75},
		{"content", 0.25},
		{"diagnoses", 0.5},
		{"client_name", 1},
		{"goal", 1},
	}
	for _, tt := range tests {
		if got := s.SentinelRates[tt.field]; math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("SentinelRates[%s] = %v, want %v", tt.field, got, tt.want)
		}
	}
	if len(s.SentinelRates) != len(types.SessionFields) {
		t.Errorf("rates cover %d fields, want %d", len(s.SentinelRates), len(types.SessionFields))
	}
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil)
	if s.Records != 0 || len(s.DiagnosisCounts) != 0 {
		t.Errorf("Aggregate(nil) = %+v", s)
	}
	for f, r := range s.SentinelRates {
		if r != 0 {
			t.Errorf("rate[%s] = %v, want 0", f, r)
		}
	}
}

func TestTopDiagnoses(t *testing.T) {
	s := Summary{DiagnosisCounts: map[string]int{"anxiety": 3, "PTSD": 1, "depression": 3, "OCD": 2}}

	got := s.TopDiagnoses(3)
	want := []string{"anxiety", "depression", "OCD"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Diagnosis != w {
			t.Errorf("TopDiagnoses[%d] = %q, want %q", i, got[i].Diagnosis, w)
		}
	}
	if all := s.TopDiagnoses(0); len(all) != 4 {
		t.Errorf("TopDiagnoses(0) len = %d, want 4", len(all))
	}
}
