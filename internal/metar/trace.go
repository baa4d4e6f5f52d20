package metar

import (
	"fmt"
	"io"
)

// Trace lists the field rules attempted while decoding a report, in order.
type Trace struct {
	Input string // The report text.
	Steps []Step // Field rule attempts.
}

// Step is one attempt at a field rule.
type Step struct {
	Rule    string `json:"rule"`    // Field rule name, e.g. "wind".
	Start   int    `json:"start"`   // Offset the attempt began at.
	End     int    `json:"end"`     // Offset after the match; Start if it failed.
	Matched bool   `json:"matched"` // Whether the rule matched.
}

// Matched returns the steps that consumed input.
func (t *Trace) Matched() []Step {
	var out []Step
	for _, s := range t.Steps {
		if s.Matched && s.End > s.Start {
			out = append(out, s)
		}
	}
	return out
}

// Text returns the input consumed by s.
func (t *Trace) Text(s Step) string {
	return t.Input[s.Start:s.End]
}

// Print writes one line per step.
func (t *Trace) Print(w io.Writer) {
	for _, s := range t.Steps {
		mark := "  "
		if s.Matched {
			mark = "OK"
		}
		fmt.Fprintf(w, "%s %-20s [%3d:%3d] %q\n", mark, s.Rule, s.Start, s.End, t.Text(s))
	}
}
