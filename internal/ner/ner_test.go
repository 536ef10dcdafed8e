package ner

import (
	"errors"
	"testing"
)

type fakeRecognizer struct {
	ents  []Entity
	err   error
	panic bool
}

func (f fakeRecognizer) Entities(string) ([]Entity, error) {
	if f.panic {
		panic("model exploded")
	}
	return f.ents, f.err
}

func TestCapability_ZeroValueUnavailable(t *testing.T) {
	var c Capability
	if c.Available() {
		t.Error("zero Capability reports available")
	}
	if Available(nil).Available() {
		t.Error("Available(nil) reports available")
	}
	if _, ok := Unavailable().First("Sarah Johnson", LabelPerson); ok {
		t.Error("unavailable capability returned an entity")
	}
}

func TestCapability_FirstByLabel(t *testing.T) {
	c := Available(fakeRecognizer{ents: []Entity{
		{Text: "March 15th, 2024", Label: LabelDate, Start: 40},
		{Text: "  ", Label: LabelPerson, Start: 2},
		{Text: "Sarah Johnson", Label: LabelPerson, Start: 16},
		{Text: "Sarah", Label: LabelPerson, Start: 90},
	}})
	if got, ok := c.First("...", LabelPerson); !ok || got != "Sarah Johnson" {
		t.Errorf("First(PERSON) = %q, %v; want %q, true", got, ok, "Sarah Johnson")
	}
	if got, ok := c.First("...", LabelDate); !ok || got != "March 15th, 2024" {
		t.Errorf("First(DATE) = %q, %v", got, ok)
	}
}

func TestCapability_ErrorsAndPanicsAreEmpty(t *testing.T) {
	for name, r := range map[string]Recognizer{
		"error": fakeRecognizer{err: errors.New("model not loaded")},
		"panic": fakeRecognizer{panic: true},
	} {
		t.Run(name, func(t *testing.T) {
			c := Available(r)
			if !c.Available() {
				t.Fatal("capability should still be available")
			}
			if got, ok := c.First("text", LabelPerson); ok {
				t.Errorf("First() = %q, true; want nothing", got)
			}
		})
	}
}

func TestCombine_DocumentOrder(t *testing.T) {
	people := fakeRecognizer{ents: []Entity{{Text: "Sarah", Label: LabelPerson, Start: 30}}}
	dates := fakeRecognizer{ents: []Entity{
		{Text: "today", Label: LabelDate, Start: -1},
		{Text: "March 15", Label: LabelDate, Start: 5},
	}}
	got, err := Combine(people, dates).Entities("ignored")
	if err != nil {
		t.Fatalf("Entities: %v", err)
	}
	want := []string{"March 15", "Sarah", "today"}
	if len(got) != len(want) {
		t.Fatalf("got %d entities, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Text != want[i] {
			t.Errorf("entity[%d] = %q, want %q", i, got[i].Text, want[i])
		}
	}
}

func TestCombine_PropagatesError(t *testing.T) {
	_, err := Combine(fakeRecognizer{}, fakeRecognizer{err: errors.New("boom")}).Entities("x")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestLocate_RepeatedSpans(t *testing.T) {
	text := "Sarah met Tom. Later Sarah left."
	ents := []Entity{{Text: "Sarah"}, {Text: "Tom"}, {Text: "Sarah"}, {Text: "Zed"}}
	locate(text, ents)
	want := []int{0, 10, 21, -1}
	for i, w := range want {
		if ents[i].Start != w {
			t.Errorf("ents[%d].Start = %d, want %d", i, ents[i].Start, w)
		}
	}
}

func TestDefaultRecognizer_HandlesPlainText(t *testing.T) {
	if _, err := NewDefault().Entities("We met for our weekly session."); err != nil {
		t.Fatalf("Entities: %v", err)
	}
}
