package metar

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ParseError reports where a report stopped matching. Offset is the byte
// offset of the furthest point reached, and Expected the sorted labels of the
// terminals that could have continued the report there.
type ParseError struct {
	Offset   int      `json:"offset"`
	Expected []string `json:"expected"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse report at offset %d: %s", e.Offset, Describe(e))
}

// Describe renders the expected labels of e as a sentence.
func Describe(e *ParseError) string {
	switch n := len(e.Expected); n {
	case 0:
		return "unclear cause"
	case 1:
		return "expected " + e.Expected[0]
	default:
		var sb strings.Builder
		sb.WriteString("expected one of ")
		for _, l := range e.Expected[:n-1] {
			sb.WriteString(l)
			sb.WriteString(", ")
		}
		sb.WriteString("or ")
		sb.WriteString(e.Expected[n-1])
		return sb.String()
	}
}

// Position converts a byte offset in input into a 1-based line and column.
// Columns count characters, not bytes.
func Position(input string, offset int) (line, col int) {
	offset = min(max(offset, 0), len(input))
	before := input[:offset]
	line = strings.Count(before, "\n") + 1
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return line, utf8.RuneCountInString(before[lineStart:]) + 1
}

// Annotate renders err against the report it came from, with a caret under
// the failing position:
//
//	could not parse report
//	 --> 1:3
//	  |
//	1 | KS 251453Z
//	  |   ^ expected one of digit, or letter
//
// Errors other than *ParseError are returned as their message.
func Annotate(input string, err error) string {
	var pe *ParseError
	if !errors.As(err, &pe) {
		return err.Error()
	}

	line, col := Position(input, pe.Offset)
	text := strings.Split(input, "\n")[line-1]
	text = strings.TrimRight(text, "\r")
	num := fmt.Sprint(line)
	gutter := strings.Repeat(" ", len(num))

	var sb strings.Builder
	sb.WriteString("could not parse report\n")
	fmt.Fprintf(&sb, "%s--> %d:%d\n", gutter, line, col)
	fmt.Fprintf(&sb, "%s |\n", gutter)
	fmt.Fprintf(&sb, "%s | %s\n", num, text)
	fmt.Fprintf(&sb, "%s | %s^ %s\n", gutter, strings.Repeat(" ", col-1), Describe(pe))
	return sb.String()
}
