// Package api provides REST API endpoints for decoding reports and reading
// stored observations: the latest of a station, its history, stations that
// stopped reporting and aggregate statistics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metar_parser/internal/metar"
	"metar_parser/internal/observability"
	"metar_parser/internal/storage"
	"metar_parser/internal/tokens"
)

const (
	maxBodyBytes      = 64 << 10
	maxBatch          = 100
	defaultStaleAfter = 2 * time.Hour
	defaultHistory    = 100
	maxHistory        = 1000
)

// StationStore holds the latest decoded observation of every station.
type StationStore interface {
	GetLatest(ctx context.Context, station string) (*storage.Observation, error)
	StaleStations(ctx context.Context, cutoff time.Time) ([]string, error)
	Ping(ctx context.Context) error
}

// HistoryStore holds every stored observation.
type HistoryStore interface {
	Query(ctx context.Context, p storage.CHQueryParams) ([]storage.Observation, error)
	GetStats(ctx context.Context) (*storage.CHStats, error)
}

// Config holds configuration for the API server.
type Config struct {
	AuthEnabled bool
	APIKeys     []string      // List of valid API keys.
	StaleAfter  time.Duration // Default age after which a station counts as stale.
}

// Server provides REST API access to the decoder.
type Server struct {
	store       StationStore // May be nil; the station endpoints then answer 503.
	history     HistoryStore // May be nil; the history and stats endpoints then answer 503.
	staleAfter  time.Duration
	metrics     *observability.Metrics
	logger      *slog.Logger
	authEnabled bool
	apiKeys     map[string]bool
	now         func() time.Time
}

// NewServer creates a new API server.
func NewServer(store StationStore, history HistoryStore, metrics *observability.Metrics, logger *slog.Logger, cfg Config) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	return &Server{
		store:       store,
		history:     history,
		staleAfter:  staleAfter,
		metrics:     metrics,
		logger:      logger,
		authEnabled: cfg.AuthEnabled,
		apiKeys:     keys,
		now:         time.Now,
	}
}

// Router returns the configured chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required).
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			if s.authEnabled {
				r.Use(s.authMiddleware)
			}
			r.Post("/decode", s.handleDecode)
			r.Post("/decode/batch", s.handleDecodeBatch)
			r.Get("/stations/stale", s.handleStale)
			r.Get("/stations/{icao}/latest", s.handleLatest)
			r.Get("/stations/{icao}/history", s.handleHistory)
			r.Get("/stats", s.handleStats)
		})
	})

	return r
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check X-API-Key header first.
		apiKey := r.Header.Get("X-API-Key")

		// Fall back to Authorization: Bearer <key>.
		if apiKey == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		// Fall back to query parameter (for simple testing).
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}
		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// DecodeRequest is the JSON body of a decode request.
type DecodeRequest struct {
	Report string `json:"report"`
}

// DecodeResponse is the JSON response for a decoded report.
type DecodeResponse struct {
	Report *tokens.Report `json:"report"`
	Trace  []metar.Step   `json:"trace,omitempty"`
}

// FailureResponse is the JSON response for a report that did not decode.
type FailureResponse struct {
	Offset     int      `json:"offset"`
	Expected   []string `json:"expected"`
	Message    string   `json:"message"`
	Annotation string   `json:"annotation"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			s.logger.Warn("store ping failed", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]string{
		"status": status,
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

// readReport takes the report from a JSON body or, for any other content
// type, the raw body text.
func readReport(r *http.Request) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return "", err
	}
	if len(body) > maxBodyBytes {
		return "", errors.New("request body too large")
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req DecodeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return "", errors.New("invalid JSON: " + err.Error())
		}
		return req.Report, nil
	}
	return string(body), nil
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	text, err := readReport(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, "report is required")
		return
	}

	withTrace := r.URL.Query().Get("trace") != ""
	report, trace, err := s.decode(text, withTrace)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, failureResponse(text, err))
		return
	}

	resp := DecodeResponse{Report: report}
	if trace != nil {
		resp.Trace = trace.Steps
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode parses text and records the outcome.
func (s *Server) decode(text string, withTrace bool) (*tokens.Report, *metar.Trace, error) {
	start := time.Now()
	var (
		report *tokens.Report
		trace  *metar.Trace
		err    error
	)
	if withTrace {
		report, trace, err = metar.ParseTrace(text)
	} else {
		report, err = metar.Parse(text)
	}

	if s.metrics != nil {
		var expected []string
		var pe *metar.ParseError
		if errors.As(err, &pe) {
			expected = pe.Expected
		}
		s.metrics.ObserveDecode(err == nil, time.Since(start).Seconds(), expected)
	}
	return report, trace, err
}

func failureResponse(text string, err error) FailureResponse {
	resp := FailureResponse{Message: err.Error(), Annotation: metar.Annotate(text, err)}
	var pe *metar.ParseError
	if errors.As(err, &pe) {
		resp.Offset = pe.Offset
		resp.Expected = pe.Expected
	}
	return resp
}

// BatchRequest is the request body for decoding several reports at once.
type BatchRequest struct {
	Reports []string `json:"reports"`
}

// BatchResult is the outcome for one report of a batch, in request order.
type BatchResult struct {
	Report *tokens.Report   `json:"report,omitempty"`
	Error  *FailureResponse `json:"error,omitempty"`
}

// BatchResponse is the response for a batch decode.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
	Parsed  int           `json:"parsed"`
	Failed  int           `json:"failed"`
}

func (s *Server) handleDecodeBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBatch*maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if len(req.Reports) == 0 {
		writeError(w, http.StatusBadRequest, "No reports specified")
		return
	}
	if len(req.Reports) > maxBatch {
		writeError(w, http.StatusBadRequest, "Maximum 100 reports per batch request")
		return
	}

	resp := BatchResponse{Results: make([]BatchResult, 0, len(req.Reports))}
	for _, text := range req.Reports {
		report, _, err := s.decode(text, false)
		if err != nil {
			f := failureResponse(text, err)
			resp.Results = append(resp.Results, BatchResult{Error: &f})
			resp.Failed++
			continue
		}
		resp.Results = append(resp.Results, BatchResult{Report: report})
		resp.Parsed++
	}

	writeJSON(w, http.StatusOK, resp)
}

// LatestResponse is the JSON response for a station's latest observation.
type LatestResponse struct {
	Station    string          `json:"station"`
	ObservedAt string          `json:"observed_at"`
	ReceivedAt string          `json:"received_at"`
	ReportType string          `json:"report_type,omitempty"`
	Source     string          `json:"source,omitempty"`
	RawText    string          `json:"raw_text"`
	Report     json.RawMessage `json:"report"`
}

func observationToResponse(o *storage.Observation) LatestResponse {
	return LatestResponse{
		Station:    o.Station,
		ObservedAt: o.ObservedAt.UTC().Format(time.RFC3339),
		ReceivedAt: o.ReceivedAt.UTC().Format(time.RFC3339),
		ReportType: o.ReportType,
		Source:     o.Source,
		RawText:    o.RawText,
		Report:     o.ReportRaw(),
	}
}

// stationParam reads the {icao} path parameter, writing a 400 when it is not
// a station identifier.
func stationParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	station := strings.ToUpper(chi.URLParam(r, "icao"))
	if len(station) != 4 {
		writeError(w, http.StatusBadRequest, "icao must be a four character station identifier")
		return "", false
	}
	return station, true
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	station, ok := stationParam(w, r)
	if !ok {
		return
	}
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "No observation store configured")
		return
	}

	o, err := s.store.GetLatest(r.Context(), station)
	if err != nil {
		s.logger.Error("get latest observation", "station", station, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if o == nil {
		writeError(w, http.StatusNotFound, "No observation found for station")
		return
	}

	writeJSON(w, http.StatusOK, observationToResponse(o))
}

// StaleResponse lists the stations whose latest observation is older than
// Cutoff, oldest first.
type StaleResponse struct {
	Cutoff   string   `json:"cutoff"`
	Stations []string `json:"stations"`
	Count    int      `json:"count"`
}

func (s *Server) handleStale(w http.ResponseWriter, r *http.Request) {
	maxAge := s.staleAfter
	if v := r.URL.Query().Get("max_age"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "max_age must be a positive duration such as 90m")
			return
		}
		maxAge = d
	}
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "No observation store configured")
		return
	}

	cutoff := s.now().UTC().Add(-maxAge)
	stations, err := s.store.StaleStations(r.Context(), cutoff)
	if err != nil {
		s.logger.Error("list stale stations", "cutoff", cutoff, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if stations == nil {
		stations = []string{}
	}

	writeJSON(w, http.StatusOK, StaleResponse{
		Cutoff:   cutoff.Format(time.RFC3339),
		Stations: stations,
		Count:    len(stations),
	})
}

// HistoryEntry is one stored observation of a station, decoded or not.
type HistoryEntry struct {
	ID          string          `json:"id"`
	ObservedAt  string          `json:"observed_at"`
	ReceivedAt  string          `json:"received_at"`
	ReportType  string          `json:"report_type,omitempty"`
	Source      string          `json:"source,omitempty"`
	RawText     string          `json:"raw_text"`
	Parsed      bool            `json:"parsed"`
	Report      json.RawMessage `json:"report,omitempty"`
	ErrorOffset *int            `json:"error_offset,omitempty"`
	Expected    []string        `json:"expected,omitempty"`
}

// HistoryResponse is the JSON response for a station's observation history.
type HistoryResponse struct {
	Station      string         `json:"station"`
	Observations []HistoryEntry `json:"observations"`
	Count        int            `json:"count"`
}

func historyEntry(o storage.Observation) HistoryEntry {
	e := HistoryEntry{
		ID:         o.ID.String(),
		ObservedAt: o.ObservedAt.UTC().Format(time.RFC3339),
		ReceivedAt: o.ReceivedAt.UTC().Format(time.RFC3339),
		ReportType: o.ReportType,
		Source:     o.Source,
		RawText:    o.RawText,
		Parsed:     o.Parsed,
		Report:     o.ReportRaw(),
	}
	if !o.Parsed {
		offset := o.ErrorOffset
		e.ErrorOffset = &offset
		e.Expected = o.Expected
	}
	return e
}

// historyParams reads the history filters: since and until (RFC 3339),
// failed (bool), search, limit and order (asc or desc, the default).
func historyParams(r *http.Request, station string) (storage.CHQueryParams, error) {
	q := r.URL.Query()
	p := storage.CHQueryParams{
		Station:   station,
		FullText:  q.Get("search"),
		Limit:     defaultHistory,
		OrderDesc: true,
	}

	for key, dst := range map[string]*time.Time{"since": &p.Since, "until": &p.Until} {
		if v := q.Get(key); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return p, errors.New(key + " must be an RFC 3339 time")
			}
			*dst = t
		}
	}
	if v := q.Get("failed"); v != "" {
		failed, err := strconv.ParseBool(v)
		if err != nil {
			return p, errors.New("failed must be true or false")
		}
		p.Failed = &failed
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistory {
			return p, errors.New("limit must be between 1 and 1000")
		}
		p.Limit = n
	}
	switch q.Get("order") {
	case "", "desc":
	case "asc":
		p.OrderDesc = false
	default:
		return p, errors.New("order must be asc or desc")
	}
	return p, nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	station, ok := stationParam(w, r)
	if !ok {
		return
	}
	params, err := historyParams(r, station)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "No history store configured")
		return
	}

	obs, err := s.history.Query(r.Context(), params)
	if err != nil {
		s.logger.Error("query history", "station", station, "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	resp := HistoryResponse{Station: station, Observations: make([]HistoryEntry, 0, len(obs))}
	for _, o := range obs {
		resp.Observations = append(resp.Observations, historyEntry(o))
	}
	resp.Count = len(resp.Observations)
	writeJSON(w, http.StatusOK, resp)
}

// StatsResponse summarises the observation history.
type StatsResponse struct {
	Total       uint64            `json:"total"`
	Failed      uint64            `json:"failed"`
	ByStation   map[string]uint64 `json:"by_station"`
	TopExpected map[string]uint64 `json:"top_expected"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "No history store configured")
		return
	}
	st, err := s.history.GetStats(r.Context())
	if err != nil {
		s.logger.Error("get history stats", "error", err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Total:       st.Total,
		Failed:      st.Failed,
		ByStation:   st.ByStation,
		TopExpected: st.TopExpected,
	})
}

// Helper functions.

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
