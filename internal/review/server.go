// Package review provides an HTTP API for reviewing reports recorded by a
// validation run, with exports for turning them into regression tests.
package review

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"metar_parser/internal/metar"
	"metar_parser/internal/storage"
)

// Server serves the review API over a SQLite validation database.
type Server struct {
	db     *storage.SQLiteDB
	source string // Optional source filter applied when a request names none.
}

// NewServer creates a new review server.
func NewServer(db *storage.SQLiteDB, source string) *Server {
	return &Server{db: db, source: source}
}

// Router returns the configured chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/observations", s.handleObservations)
		r.Get("/observations/{id}", s.handleObservation)
		r.Get("/stats", s.handleStats)
		r.Get("/stations", s.handleDistinct("station"))
		r.Get("/sources", s.handleDistinct("source"))
		r.Get("/export/failures.txt", s.handleExportFailures)
		r.Get("/export/go", s.handleExportGo)
	})
	return r
}

// APIObservation is the JSON representation of a stored observation.
type APIObservation struct {
	ID         string          `json:"id"`
	Station    string          `json:"station"`
	ObservedAt string          `json:"observed_at"`
	Source     string          `json:"source,omitempty"`
	RawText    string          `json:"raw_text"`
	Parsed     bool            `json:"parsed"`
	Report     json.RawMessage `json:"report,omitempty"`
	Offset     *int            `json:"offset,omitempty"`
	Expected   []string        `json:"expected,omitempty"`
	Annotation string          `json:"annotation,omitempty"`
	Trace      []TraceStep     `json:"trace,omitempty"`
}

// TraceStep is one field rule attempt with the text it consumed.
type TraceStep struct {
	metar.Step
	Text string `json:"text"`
}

func observationToAPI(o *storage.Observation) APIObservation {
	api := APIObservation{
		ID:         o.ID.String(),
		Station:    o.Station,
		ObservedAt: o.ObservedAt.Format("2006-01-02 15:04"),
		Source:     o.Source,
		RawText:    o.RawText,
		Parsed:     o.Parsed,
		Report:     o.ReportRaw(),
	}
	if !o.Parsed {
		offset := o.ErrorOffset
		api.Offset = &offset
		api.Expected = o.Expected
	}
	return api
}

func parseBool(s string) *bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &b
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := storage.QueryParams{
		Station:   strings.ToUpper(q.Get("station")),
		Source:    q.Get("source"),
		Failed:    parseBool(q.Get("failed")),
		Expected:  q.Get("expected"),
		FullText:  q.Get("search"),
		OrderDesc: q.Get("desc") != "false",
	}

	// Apply server-level filter.
	if s.source != "" && params.Source == "" {
		params.Source = s.source
	}

	// Pagination.
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		params.Limit = min(limit, 1000)
	} else {
		params.Limit = 50
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		params.Offset = offset
	}

	obs, err := s.db.Query(params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	result := make([]APIObservation, 0, len(obs))
	for i := range obs {
		result = append(result, observationToAPI(&obs[i]))
	}
	writeJSON(w, result)
}

// handleObservation returns one observation. Failures are decoded again to
// attach the annotated diagnostic and the rule trace.
func (s *Server) handleObservation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid observation ID", http.StatusBadRequest)
		return
	}

	o, err := s.db.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if o == nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	api := observationToAPI(o)
	if !o.Parsed {
		_, trace, err := metar.ParseTrace(o.RawText)
		if err != nil {
			api.Annotation = metar.Annotate(o.RawText, err)
		}
		for _, st := range trace.Steps {
			api.Trace = append(api.Trace, TraceStep{Step: st, Text: trace.Text(st)})
		}
	}
	writeJSON(w, api)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleDistinct(column string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		values, err := s.db.Distinct(column)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, values)
	}
}

// failures returns every stored failure, optionally limited to one source.
func (s *Server) failures(source string) ([]storage.Observation, error) {
	failed := true
	if source == "" {
		source = s.source
	}
	return s.db.Query(storage.QueryParams{Failed: &failed, Source: source, Limit: 100000})
}

// handleExportFailures writes the raw text of every failure, one per line,
// in the format metar-validate reads.
func (s *Server) handleExportFailures(w http.ResponseWriter, r *http.Request) {
	obs, err := s.failures(r.URL.Query().Get("source"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=failures.txt")
	for _, o := range obs {
		fmt.Fprintln(w, o.RawText)
	}
}

// handleExportGo generates a Go test asserting where each stored failure
// stops decoding, grouped by the labels expected there.
func (s *Server) handleExportGo(w http.ResponseWriter, r *http.Request) {
	obs, err := s.failures(r.URL.Query().Get("source"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=regression_test.go")
	_, _ = w.Write([]byte(regressionTest(obs)))
}

func regressionTest(obs []storage.Observation) string {
	byExpected := make(map[string][]storage.Observation)
	for _, o := range obs {
		key := strings.Join(o.Expected, ", ")
		byExpected[key] = append(byExpected[key], o)
	}
	keys := make([]string, 0, len(byExpected))
	for k := range byExpected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var code strings.Builder
	code.WriteString("// Code generated from recorded decode failures. DO NOT EDIT.\n\n")
	code.WriteString("package metar_test\n\n")
	code.WriteString("import (\n")
	code.WriteString("\t\"errors\"\n")
	code.WriteString("\t\"testing\"\n\n")
	code.WriteString("\t\"metar_parser/internal/metar\"\n")
	code.WriteString(")\n\n")
	code.WriteString("func TestRecordedFailures(t *testing.T) {\n")
	code.WriteString("\tcases := []struct {\n")
	code.WriteString("\t\tname   string\n")
	code.WriteString("\t\traw    string\n")
	code.WriteString("\t\toffset int\n")
	code.WriteString("\t}{\n")
	for _, k := range keys {
		fmt.Fprintf(&code, "\t\t// expected: %s\n", k)
		for _, o := range byExpected[k] {
			name := o.Station
			if name == "" {
				name = o.ID.String()[:8]
			}
			fmt.Fprintf(&code, "\t\t{%q, %q, %d},\n", name, o.RawText, o.ErrorOffset)
		}
	}
	code.WriteString("\t}\n\n")
	code.WriteString("\tfor _, tc := range cases {\n")
	code.WriteString("\t\tt.Run(tc.name, func(t *testing.T) {\n")
	code.WriteString("\t\t\t_, err := metar.Parse(tc.raw)\n")
	code.WriteString("\t\t\tvar pe *metar.ParseError\n")
	code.WriteString("\t\t\tif !errors.As(err, &pe) {\n")
	code.WriteString("\t\t\t\tt.Fatalf(\"Parse(%q) decoded, want failure\", tc.raw)\n")
	code.WriteString("\t\t\t}\n")
	code.WriteString("\t\t\tif pe.Offset != tc.offset {\n")
	code.WriteString("\t\t\t\tt.Errorf(\"offset = %d, want %d\", pe.Offset, tc.offset)\n")
	code.WriteString("\t\t\t}\n")
	code.WriteString("\t\t})\n")
	code.WriteString("\t}\n")
	code.WriteString("}\n")
	return code.String()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
