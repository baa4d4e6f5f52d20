package metar

import "metar_parser/internal/tokens"

// Parse decodes a single, complete report. On failure the error is a
// *ParseError and no report is returned.
//
// String fields of the report are substrings of input.
func Parse(input string) (*tokens.Report, error) {
	p := newParser(input)
	r, ok := p.report()
	if !ok {
		return nil, p.failure()
	}
	return r, nil
}

// ParseTrace is Parse, also returning the field rules attempted along the way.
// The trace is returned whether or not the report parsed.
func ParseTrace(input string) (*tokens.Report, *Trace, error) {
	p := newParser(input)
	p.trace = &Trace{Input: input}
	r, ok := p.report()
	if !ok {
		return nil, p.trace, p.failure()
	}
	return r, p.trace, nil
}
