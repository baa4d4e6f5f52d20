// Package metar decodes METAR and SPECI reports.
//
// The grammar is an ordered-choice, backtracking recursive descent parser.
// Alternatives are tried in declaration order and the first one that matches
// wins. A rule that fails leaves the cursor where it found it. While parsing,
// the parser remembers the furthest offset at which a labelled terminal failed
// and the labels that failed there; when the report as a whole does not match,
// that offset and label set become the ParseError.
//
// Parsing holds no shared state, so any number of reports may be parsed
// concurrently.
package metar

import (
	"sort"
	"strconv"
	"strings"
)

type parser struct {
	in  string
	pos int

	// Furthest failure.
	errPos   int
	expected map[string]struct{}

	// Lookahead depth. Failures are not recorded while it is non-zero.
	silent int

	trace *Trace
}

func newParser(input string) *parser {
	return &parser{in: input, expected: make(map[string]struct{})}
}

// mark records that label was expected at the cursor.
func (p *parser) mark(label string) {
	if p.silent > 0 {
		return
	}
	switch {
	case p.pos > p.errPos:
		p.errPos = p.pos
		clear(p.expected)
	case p.pos < p.errPos:
		return
	}
	p.expected[label] = struct{}{}
}

func (p *parser) failure() *ParseError {
	labels := make([]string, 0, len(p.expected))
	for l := range p.expected {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return &ParseError{Offset: p.errPos, Expected: labels}
}

func (p *parser) eof() bool { return p.pos >= len(p.in) }

func (p *parser) rest() string { return p.in[p.pos:] }

// lit matches s without contributing to the expected set.
func (p *parser) lit(s string) bool {
	if strings.HasPrefix(p.rest(), s) {
		p.pos += len(s)
		return true
	}
	return false
}

// literal matches s and, on failure, expects the quoted literal.
func (p *parser) literal(s string) bool {
	if p.lit(s) {
		return true
	}
	p.mark(strconv.Quote(s))
	return false
}

// keyword matches the first of spellings and, on failure, expects label.
// Spellings must be ordered so that no entry is a prefix of a later one.
func (p *parser) keyword(spellings []string, label string) (string, bool) {
	for _, s := range spellings {
		if p.lit(s) {
			return s, true
		}
	}
	p.mark(label)
	return "", false
}

func (p *parser) digit() (byte, bool) {
	if !p.eof() && isDigit(p.in[p.pos]) {
		p.pos++
		return p.in[p.pos-1], true
	}
	p.mark("digit")
	return 0, false
}

func (p *parser) letter() bool {
	if !p.eof() && p.in[p.pos] >= 'A' && p.in[p.pos] <= 'Z' {
		p.pos++
		return true
	}
	p.mark("letter")
	return false
}

// digits matches one or more digits.
func (p *parser) digits() (string, bool) {
	start := p.pos
	if _, ok := p.digit(); !ok {
		return "", false
	}
	for {
		if _, ok := p.digit(); !ok {
			break
		}
	}
	return p.in[start:p.pos], true
}

// fixed matches exactly n digits and returns their value.
func (p *parser) fixed(n int) (int, bool) {
	start := p.pos
	v := 0
	for range n {
		d, ok := p.digit()
		if !ok {
			p.pos = start
			return 0, false
		}
		v = v*10 + int(d-'0')
	}
	return v, true
}

// slashes matches zero or more slashes.
func (p *parser) slashes() {
	for p.lit("/") {
	}
}

// not is a negative lookahead: it never moves the cursor or records failures.
func (p *parser) not(rule func() bool) bool {
	return !p.peek(rule)
}

// peek is a positive lookahead.
func (p *parser) peek(rule func() bool) bool {
	start := p.pos
	p.silent++
	ok := rule()
	p.silent--
	p.pos = start
	return ok
}

// ws is optional whitespace. It always succeeds.
func (p *parser) ws() {
	p.whitespace()
}

// whitespace matches one or more spaces, line breaks, tabs and the garbage
// found in corrupted feeds: '>' and slash runs enclosed in spaces.
func (p *parser) whitespace() bool {
	n := 0
	for p.whitespaceUnit() {
		n++
	}
	if n == 0 {
		p.mark("whitespace")
		return false
	}
	return true
}

func (p *parser) whitespaceUnit() bool {
	if p.slashRun() {
		return true
	}
	for _, s := range []string{" ", "\r\n", "\n", "\t", ">"} {
		if p.lit(s) {
			return true
		}
	}
	return false
}

// slashRun matches (" " "/"+)+ " ".
func (p *parser) slashRun() bool {
	start := p.pos
	runs := 0
	for {
		s := p.pos
		if !p.lit(" ") || !p.lit("/") {
			p.pos = s
			break
		}
		p.slashes()
		runs++
	}
	if runs > 0 && p.lit(" ") {
		return true
	}
	p.pos = start
	return false
}

// boundary checks, without consuming, that a field ends here: whitespace, the
// end-of-message marker or the end of input follows.
func (p *parser) boundary() bool {
	return p.peek(func() bool {
		return p.eof() || p.lit("=") || p.whitespace()
	})
}

// sepBy matches item (ws item)* and returns the values matched. A separator
// that is not followed by an item is left unconsumed. Repetition stops if an
// item matches without advancing.
func sepBy[T any](p *parser, item func() (T, bool)) []T {
	v, ok := item()
	if !ok {
		return nil
	}
	out := []T{v}
	for {
		start := p.pos
		p.ws()
		before := p.pos
		v, ok := item()
		if !ok || p.pos == before {
			p.pos = start
			return out
		}
		out = append(out, v)
	}
}

// present drops nil entries produced by placeholder items.
func present[T any](items []*T) []T {
	var out []T
	for _, it := range items {
		if it != nil {
			out = append(out, *it)
		}
	}
	return out
}

// attempt runs rule and restores the cursor when it fails.
func attempt[T any](p *parser, rule func() (T, bool)) (T, bool) {
	start := p.pos
	v, ok := rule()
	if !ok {
		p.pos = start
	}
	return v, ok
}

// field runs a top-level field rule, recording it in the trace when one is
// being collected.
func field[T any](p *parser, name string, rule func() (T, bool)) (T, bool) {
	start := p.pos
	v, ok := attempt(p, rule)
	if p.trace != nil {
		p.trace.Steps = append(p.trace.Steps, Step{Rule: name, Start: start, End: p.pos, Matched: ok})
	}
	return v, ok
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func ptr[T any](v T) *T { return &v }
