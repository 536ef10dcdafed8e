// Package ner exposes entity recognition as an optional capability.
//
// A [Capability] is either available (it wraps a [Recognizer]) or explicitly
// unavailable. Callers ask [Capability.Available] instead of checking for a
// nil recognizer, so "the search ran and found nothing" and "there was no
// recognizer to run" stay distinguishable.
package ner

import (
	"sort"
	"strings"
)

// Label is the entity type of a recognized span.
type Label string

const (
	LabelPerson Label = "PERSON"
	LabelDate   Label = "DATE"
)

// Entity is one recognized span. Start is the byte offset into the text the
// recognizer was given, or -1 when unknown.
type Entity struct {
	Text  string
	Label Label
	Start int
}

// Recognizer finds typed spans in text. Implementations must be safe for
// concurrent use; they are built once at startup and shared.
type Recognizer interface {
	Entities(text string) ([]Entity, error)
}

// Capability is a recognizer that may be absent. The zero value is
// unavailable.
type Capability struct {
	rec Recognizer
}

// Available wraps r. A nil r yields an unavailable capability.
func Available(r Recognizer) Capability {
	return Capability{rec: r}
}

// Unavailable returns the capability used when no recognizer is configured.
func Unavailable() Capability {
	return Capability{}
}

// Available reports whether a recognizer is present.
func (c Capability) Available() bool {
	return c.rec != nil
}

// First returns the text of the first entity labelled l in document order.
// Recognizer errors and panics are treated as "nothing found".
func (c Capability) First(text string, l Label) (span string, ok bool) {
	if c.rec == nil {
		return "", false
	}
	defer func() {
		if recover() != nil {
			span, ok = "", false
		}
	}()
	ents, err := c.rec.Entities(text)
	if err != nil {
		return "", false
	}
	for _, e := range ents {
		if e.Label != l {
			continue
		}
		if s := strings.TrimSpace(e.Text); s != "" {
			return s, true
		}
	}
	return "", false
}

// Combine merges several recognizers into one. Entities are returned in
// document order; entities with unknown offsets keep their relative order
// after the located ones. When located spans with the same label overlap,
// only the longest is kept, so a partial date never shadows the full date.
func Combine(recs ...Recognizer) Recognizer {
	return combined(recs)
}

type combined []Recognizer

func (c combined) Entities(text string) ([]Entity, error) {
	var out []Entity
	for _, r := range c {
		ents, err := r.Entities(text)
		if err != nil {
			return nil, err
		}
		out = append(out, ents...)
	}
	out = keepLongest(out)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Start, out[j].Start
		if a < 0 || b < 0 {
			return a >= 0 && b < 0
		}
		return a < b
	})
	return out, nil
}

// keepLongest drops every located entity that overlaps a longer one with the
// same label. Ties go to the entity reported first. Survivors keep their
// input order.
func keepLongest(ents []Entity) []Entity {
	idx := make([]int, len(ents))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return len(ents[idx[a]].Text) > len(ents[idx[b]].Text)
	})
	keep := make([]bool, len(ents))
	var kept []Entity
	for _, i := range idx {
		if !overlapsAny(kept, ents[i]) {
			keep[i] = true
			kept = append(kept, ents[i])
		}
	}
	out := make([]Entity, 0, len(kept))
	for i, e := range ents {
		if keep[i] {
			out = append(out, e)
		}
	}
	return out
}

func overlapsAny(kept []Entity, e Entity) bool {
	if e.Start < 0 {
		return false
	}
	end := e.Start + len(e.Text)
	for _, k := range kept {
		if k.Label != e.Label || k.Start < 0 {
			continue
		}
		if e.Start < k.Start+len(k.Text) && k.Start < end {
			return true
		}
	}
	return false
}

// locate assigns byte offsets to spans found in order, searching forward from
// the previous match of the same text.
func locate(text string, ents []Entity) {
	next := map[string]int{}
	for i := range ents {
		from := next[ents[i].Text]
		idx := strings.Index(text[from:], ents[i].Text)
		if idx < 0 {
			ents[i].Start = -1
			continue
		}
		ents[i].Start = from + idx
		next[ents[i].Text] = from + idx + len(ents[i].Text)
	}
}
