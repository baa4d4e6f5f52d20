// Package tokens defines the closed vocabularies and record types produced by
// the METAR/SPECI grammar.
//
// Every enumeration maps to and from its canonical short code. Parsing also
// accepts documented synonyms (FW for FEW, YLO for YLO1, ...). String fields in
// the record types are views into the report text they were decoded from; they
// stay valid for as long as the caller keeps that text.
package tokens

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownCode is returned when a code matches none of an enumeration's spellings.
var ErrUnknownCode = errors.New("unknown code")

// Vocabulary is the bidirectional code mapping behind an enumeration. The first
// spelling listed for a variant is its canonical code.
type Vocabulary[E comparable] struct {
	name      string
	values    []E
	canonical map[E]string
	lookup    map[string]E
	spellings []string
}

type code[E comparable] struct {
	value     E
	spellings []string
}

func spell[E comparable](v E, spellings ...string) code[E] {
	return code[E]{value: v, spellings: spellings}
}

func newVocabulary[E comparable](name string, codes ...code[E]) *Vocabulary[E] {
	voc := &Vocabulary[E]{
		name:      name,
		canonical: make(map[E]string, len(codes)),
		lookup:    make(map[string]E),
	}
	for _, c := range codes {
		voc.values = append(voc.values, c.value)
		voc.canonical[c.value] = c.spellings[0]
		for _, s := range c.spellings {
			voc.lookup[s] = c.value
			voc.spellings = append(voc.spellings, s)
		}
	}
	// Longest first so an ordered choice over the spellings never stops at a
	// shorter prefix (YLO before YLO2, N before NE).
	sort.SliceStable(voc.spellings, func(i, j int) bool {
		return len(voc.spellings[i]) > len(voc.spellings[j])
	})
	return voc
}

// Name returns the human name of the vocabulary, used in error messages.
func (v *Vocabulary[E]) Name() string { return v.name }

// Code returns the canonical short code of e.
func (v *Vocabulary[E]) Code(e E) string {
	if s, ok := v.canonical[e]; ok {
		return s
	}
	return fmt.Sprintf("%s(%d)", v.name, any(e))
}

// Parse maps a short code or synonym to its variant.
func (v *Vocabulary[E]) Parse(s string) (E, error) {
	if e, ok := v.lookup[s]; ok {
		return e, nil
	}
	var zero E
	return zero, fmt.Errorf("%w %q for %s", ErrUnknownCode, s, v.name)
}

// Spellings returns every accepted spelling, longest first.
func (v *Vocabulary[E]) Spellings() []string {
	return append([]string(nil), v.spellings...)
}

// Synonyms returns every spelling accepted for e, canonical code first.
func (v *Vocabulary[E]) Synonyms(e E) []string {
	var out []string
	if c, ok := v.canonical[e]; ok {
		out = append(out, c)
	}
	for s, x := range v.lookup {
		if x == e && s != v.canonical[e] {
			out = append(out, s)
		}
	}
	sort.Strings(out[min(1, len(out)):])
	return out
}

// Values returns every variant in declaration order.
func (v *Vocabulary[E]) Values() []E {
	return append([]E(nil), v.values...)
}
