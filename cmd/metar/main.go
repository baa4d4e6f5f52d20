// Command-line entry point for the METAR decoder.
//
// Commands
// --------
//
//	metar parse [-trace] [-compact] FILE|-
//	    Decode one report read from FILE, or stdin when FILE is "-". Prints the
//	    decoded report as JSON, or the annotated diagnostic and exits 1.
//
//	metar format FILE|-
//	    Decode one report and print it re-rendered in canonical form.
//
//	metar extract [-input FILE] [-output FILE] [-pretty] [-all] [-stats]
//	    Decode a JSONL stream. Each line is either plain report text or a feed
//	    envelope {"id","station","text","received_at"}.
//
//	metar review -db FILE [-addr ADDR] [-source NAME]
//	    Serve the review API over a database written by metar-validate -db.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"metar_parser/internal/ingest"
	"metar_parser/internal/metar"
	"metar_parser/internal/review"
	"metar_parser/internal/storage"
	"metar_parser/internal/tokens"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "metar - commands:")
	fmt.Fprintln(w, "  parse    - decode one report and print JSON")
	fmt.Fprintln(w, "  format   - decode one report and print it in canonical form")
	fmt.Fprintln(w, "  extract  - decode a JSONL stream of reports")
	fmt.Fprintln(w, "  review   - serve the review API over a validation database")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  metar parse [-trace] [-compact] report.txt|-")
	fmt.Fprintln(w, "  metar format report.txt|-")
	fmt.Fprintln(w, "  metar extract -input reports.jsonl [-output out.json] [-pretty] [-all] [-stats]")
	fmt.Fprintln(w, "  metar review -db metar.db [-addr :8090] [-source NAME]")
	fmt.Fprintln(w, "")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd := strings.ToLower(os.Args[1])
	switch cmd {
	case "parse":
		os.Exit(runParse(os.Args[2:], os.Stdin, os.Stdout, os.Stderr))
	case "format":
		os.Exit(runFormat(os.Args[2:], os.Stdin, os.Stdout, os.Stderr))
	case "extract":
		os.Exit(runExtract(os.Args[2:], os.Stdin, os.Stdout, os.Stderr))
	case "review":
		runReview(os.Args[2:])
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

// readReport reads the whole of path, or stdin for "-", as one report.
func readReport(path string, stdin io.Reader) (string, error) {
	var b []byte
	var err error
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func runParse(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("parse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	showTrace := fs.Bool("trace", false, "Print the rule trace to stderr")
	compact := fs.Bool("compact", false, "Print JSON on one line")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: metar parse [-trace] [-compact] FILE|-")
		return 2
	}

	text, err := readReport(fs.Arg(0), stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to read input: %v\n", err)
		return 1
	}

	report, trace, err := metar.ParseTrace(text)
	if *showTrace {
		trace.Print(stderr)
	}
	if err != nil {
		fmt.Fprint(stderr, metar.Annotate(text, err))
		return 1
	}

	enc, err := marshalJSON(report, !*compact)
	if err != nil {
		fmt.Fprintf(stderr, "JSON encode error: %v\n", err)
		return 1
	}
	_, _ = stdout.Write(append(enc, '\n'))
	return 0
}

func runFormat(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("format", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: metar format FILE|-")
		return 2
	}

	text, err := readReport(fs.Arg(0), stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to read input: %v\n", err)
		return 1
	}
	report, err := metar.Parse(text)
	if err != nil {
		fmt.Fprint(stderr, metar.Annotate(text, err))
		return 1
	}
	fmt.Fprintln(stdout, metar.Format(report))
	return 0
}

// ExtractOut is one decoded line of extract output.
type ExtractOut struct {
	Line    int               `json:"line"`
	ID      string            `json:"id,omitempty"`
	Text    string            `json:"text"`
	Report  *tokens.Report    `json:"report,omitempty"`
	Error   *metar.ParseError `json:"error,omitempty"`
	Message string            `json:"message,omitempty"`
}

// Stats counts extract outcomes.
type Stats struct {
	Lines     int
	Envelopes int
	Plain     int
	Skipped   int
	Parsed    int
	Failed    int
	Emitted   int
}

func runExtract(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inPath := fs.String("input", "", "Input JSONL file (default: stdin)")
	outPath := fs.String("output", "", "Output JSON file (default: stdout)")
	pretty := fs.Bool("pretty", false, "Pretty-print JSON output")
	includeAll := fs.Bool("all", false, "Include reports that failed to decode")
	showStats := fs.Bool("stats", false, "Print basic counters to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	r := stdin
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open input: %v\n", err)
			return 1
		}
		defer f.Close()
		r = f
	}

	out, st, err := extract(r, *includeAll)
	if err != nil {
		fmt.Fprintf(stderr, "Input read error: %v\n", err)
		return 1
	}

	w := stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to create output: %v\n", err)
			return 1
		}
		defer f.Close()
		w = f
	}

	enc, err := marshalJSON(out, *pretty)
	if err != nil {
		fmt.Fprintf(stderr, "JSON encode error: %v\n", err)
		return 1
	}
	_, _ = w.Write(append(enc, '\n'))

	if *showStats {
		fmt.Fprintf(stderr,
			"stats: lines=%d input(envelope=%d plain=%d) skipped=%d parsed=%d failed=%d emitted=%d\n",
			st.Lines, st.Envelopes, st.Plain, st.Skipped, st.Parsed, st.Failed, st.Emitted,
		)
	}
	return 0
}

func extract(r io.Reader, includeAll bool) ([]ExtractOut, *Stats, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	out := make([]ExtractOut, 0, 1024)
	st := &Stats{}
	for scanner.Scan() {
		st.Lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		env, err := ingest.ParseEnvelope([]byte(line))
		if err != nil {
			st.Skipped++
			continue
		}
		if strings.HasPrefix(line, "{") {
			st.Envelopes++
		} else {
			st.Plain++
		}

		o := ExtractOut{Line: st.Lines, ID: env.ID, Text: env.Text}
		report, err := metar.Parse(env.Text)
		if err != nil {
			st.Failed++
			if !includeAll {
				continue
			}
			var pe *metar.ParseError
			if errors.As(err, &pe) {
				o.Error = pe
			}
			o.Message = err.Error()
		} else {
			st.Parsed++
			o.Report = report
		}
		out = append(out, o)
		st.Emitted++
	}
	return out, st, scanner.Err()
}

func runReview(args []string) {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	dbPath := fs.String("db", "metar.db", "SQLite database written by metar-validate")
	addr := fs.String("addr", ":8090", "Listen address")
	source := fs.String("source", "", "Only show reports from this source")
	_ = fs.Parse(args)

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	log.Printf("Review API starting at http://localhost%s/api/observations", *addr)
	if *source != "" {
		log.Printf("Filtering to source: %s", *source)
	}
	if err := http.ListenAndServe(*addr, review.NewServer(db, *source).Router()); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func marshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
