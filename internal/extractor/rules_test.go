package extractor

import (
	"reflect"
	"testing"
)

func TestChain_FirstMatchWins(t *testing.T) {
	c := Chain{
		Field: "test",
		Rules: []Rule{
			rule("never", `(?i)zzz(\w+)`),
			rule("empty", `(?i)start()`),
			rule("second", `(?i)\bsecond (\w+)`),
			rule("first", `(?i)\bfirst (\w+)`),
		},
		NotFound: "none",
	}
	v, name, ok := c.Match("start first alpha then second beta")
	if !ok || v != "beta" || name != "second" {
		t.Errorf("Match() = %q, %q, %v; want beta from rule second", v, name, ok)
	}
	if got := c.Apply("nothing here"); got != "none" {
		t.Errorf("Apply() = %q, want sentinel", got)
	}
}

func TestChains_OneCaptureGroup(t *testing.T) {
	all := []Chain{GoalChain, ContentChain, AssessmentChain, InterventionChain, PlanChain, ClientNameChain, SessionDateChain}
	for _, c := range all {
		if c.NotFound == "" {
			t.Errorf("chain %s has no sentinel", c.Field)
		}
		for _, r := range c.Rules {
			if n := r.Pattern.NumSubexp(); n != 1 {
				t.Errorf("%s/%s has %d capture groups, want 1", c.Field, r.Name, n)
			}
		}
	}
}

func TestGoalChain(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"The objective today was reducing panic attacks. Then we met.", "reducing panic attacks"},
		{"She wanted to sleep better", "sleep better"},
		{"Session goal: fewer arguments at home.", "fewer arguments at home"},
		{"We chatted.", GoalNotFound},
	}
	for _, tt := range tests {
		if got := GoalChain.Apply(tt.in); got != tt.want {
			t.Errorf("GoalChain.Apply(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInterventionChain_WholeWords(t *testing.T) {
	if got := InterventionChain.Apply("The session focused on grief."); got != InterventionNotFound {
		t.Errorf("Apply() = %q, want %q", got, InterventionNotFound)
	}
	if got := InterventionChain.Apply("Intervention: exposure hierarchy. Plan: repeat."); got != "exposure hierarchy" {
		t.Errorf("Apply() = %q, want %q", got, "exposure hierarchy")
	}
}

func TestPlanChain_Order(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Homework: journal daily. Next steps: review.", "review"},
		{"Next steps: schedule a sleep study.", "schedule a sleep study"},
		{"The plan is to taper sessions.", "taper sessions"},
		{"We will work on assertiveness", "assertiveness"},
		{"Nothing decided.", PlanNotFound},
	}
	for _, tt := range tests {
		if got := PlanChain.Apply(tt.in); got != tt.want {
			t.Errorf("PlanChain.Apply(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSessionDateChain(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"We held the session on 3/15/2024 and met again.", "3/15/2024"},
		{"Seen Jan. 2, 2023 for intake.", "Jan. 2, 2023"},
		{"seen on march 15th 2024", "march 15th 2024"},
		{"Follow-up booked 2024-03-22.", "2024-03-22"},
		{"Records from 12/01/2023 and 2024-01-05.", "12/01/2023"},
		{"See you next week.", SessionDateNotFound},
	}
	for _, tt := range tests {
		if got := SessionDateChain.Apply(tt.in); got != tt.want {
			t.Errorf("SessionDateChain.Apply(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClientNameChain(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"I saw patient Robert today.", "Robert"},
		{"Dana is the client.", "Dana"},
		{"Our new intake, Lee is the patient here.", "Lee"},
		{"No names were used.", ClientNameNotFound},
	}
	for _, tt := range tests {
		if got := ClientNameChain.Apply(tt.in); got != tt.want {
			t.Errorf("ClientNameChain.Apply(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDiagnoses_VocabularyOrder(t *testing.T) {
	got := Diagnoses("History of PTSD; today presents with anxiety and ADHD symptoms.")
	want := []string{"ADHD", "anxiety", "PTSD"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Diagnoses() = %v, want %v", got, want)
	}
}

func TestDiagnoses_CaseInsensitive(t *testing.T) {
	got := Diagnoses("MAJOR DEPRESSIVE DISORDER")
	want := []string{"major depressive disorder"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Diagnoses() = %v, want %v", got, want)
	}
}

func TestIsSentinel(t *testing.T) {
	for _, s := range []string{NoTranscript, GoalNotFound, NoDiagnoses, ClientNameUnavailable, SessionDateNotFound} {
		if !IsSentinel(s) {
			t.Errorf("IsSentinel(%q) = false", s)
		}
	}
	if IsSentinel("continue CBT") {
		t.Error("IsSentinel(extracted text) = true")
	}
}
