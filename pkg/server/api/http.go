// Package api provides the HTTP and WebSocket endpoints of the TWAP service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-twap/pkg/logging"
	"github.com/StrathCole/oracle-twap/pkg/metrics"
	"github.com/StrathCole/oracle-twap/pkg/server/feed"
	"github.com/StrathCole/oracle-twap/pkg/twap"
	"github.com/StrathCole/oracle-twap/pkg/wad"
)

// Backend is the feed service as seen by the API.
type Backend interface {
	Entries() []feed.Entry
	Entry(id int) (feed.Entry, bool)
	Read(entry int, tf twap.Timeframe, now uint64) (twap.DatedPrice, error)
	Coverage(entry int, tf twap.Timeframe, now uint64) (uint32, error)
	Submit(entry int, sample twap.Sample) (bool, error)
	SubmitSymbol(symbol string, sample twap.Sample) (int, error)
	Reset(entry int) error
}

var _ Backend = (*feed.Service)(nil)

// Server represents the HTTP API server.
type Server struct {
	addr     string
	certFile string
	keyFile  string
	admin    bool
	backend  Backend
	logger   *logging.Logger
	now      func() time.Time
}

// NewServer creates a new HTTP API server. admin enables the reset endpoint.
func NewServer(addr string, backend Backend, admin bool, logger *logging.Logger) *Server {
	return &Server{
		addr:    addr,
		admin:   admin,
		backend: backend,
		logger:  logger,
		now:     time.Now,
	}
}

// SetTLS serves HTTPS with the given certificate and key.
func (s *Server) SetTLS(certFile, keyFile string) {
	s.certFile = certFile
	s.keyFile = keyFile
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.instrument("/health", s.handleHealth))
	mux.HandleFunc("GET /v1/entries", s.instrument("/v1/entries", s.handleEntries))
	mux.HandleFunc("GET /v1/twap/{entry}", s.instrument("/v1/twap", s.handleTwap))
	mux.HandleFunc("POST /v1/samples", s.instrument("/v1/samples", s.handleSamples))
	if s.admin {
		mux.HandleFunc("POST /v1/entries/{entry}/reset", s.instrument("/v1/entries/reset", s.handleReset))
	}
	return mux
}

// Start serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info("Stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info("Starting HTTP server", "addr", s.addr, "tls", s.certFile != "", "admin", s.admin)
	var err error
	if s.certFile != "" {
		err = server.ListenAndServeTLS(s.certFile, s.keyFile)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	<-done
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.RecordHTTPRequest(endpoint, strconv.Itoa(rec.status), time.Since(start))
	}
}

// handleHealth handles /health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// EntryResponse describes a configured entry.
type EntryResponse struct {
	ID         int              `json:"id"`
	Symbol     string           `json:"symbol"`
	Timeframes []twap.Timeframe `json:"timeframes"`
	Source     *int             `json:"source,omitempty"`
}

func (s *Server) handleEntries(w http.ResponseWriter, _ *http.Request) {
	entries := s.backend.Entries()
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		resp := EntryResponse{ID: e.ID, Symbol: e.Symbol, Timeframes: e.Mask.Timeframes()}
		if e.Mirrored {
			src := e.Source
			resp.Source = &src
		}
		out = append(out, resp)
	}
	s.sendJSON(w, http.StatusOK, out)
}

// TwapResponse is a validated TWAP read.
type TwapResponse struct {
	Entry     int             `json:"entry"`
	Symbol    string          `json:"symbol"`
	Timeframe twap.Timeframe  `json:"timeframe"`
	Price     decimal.Decimal `json:"price"`
	Value     uint64          `json:"value"`
	Exp       uint64          `json:"exp"`
	Sequence  uint64          `json:"sequence"`
	Timestamp uint64          `json:"timestamp"`
	Coverage  uint32          `json:"coverage"`
}

func (s *Server) handleTwap(w http.ResponseWriter, r *http.Request) {
	entry, err := strconv.Atoi(r.PathValue("entry"))
	if err != nil {
		s.sendError(w, http.StatusBadRequest, fmt.Errorf("invalid entry %q", r.PathValue("entry")))
		return
	}

	tf := twap.Ema1h
	if name := r.URL.Query().Get("timeframe"); name != "" {
		if tf, err = twap.ParseTimeframe(name); err != nil {
			s.sendError(w, http.StatusBadRequest, err)
			return
		}
	}

	now := uint64(s.now().Unix())
	if raw := r.URL.Query().Get("now"); raw != "" {
		if now, err = strconv.ParseUint(raw, 10, 64); err != nil {
			s.sendError(w, http.StatusBadRequest, fmt.Errorf("invalid now %q", raw))
			return
		}
	}

	dated, err := s.backend.Read(entry, tf, now)
	if err != nil {
		s.sendError(w, statusFor(err), err)
		return
	}
	coverage, _ := s.backend.Coverage(entry, tf, now)
	e, _ := s.backend.Entry(entry)

	s.sendJSON(w, http.StatusOK, TwapResponse{
		Entry:     entry,
		Symbol:    e.Symbol,
		Timeframe: tf,
		Price:     dated.Price.Shopspring(),
		Value:     dated.Price.Value,
		Exp:       dated.Price.Exp,
		Sequence:  dated.LastUpdatedSequence,
		Timestamp: dated.UnixTimestamp,
		Coverage:  coverage,
	})
}

// SampleRequest pushes one observation. Exactly one of Entry and Symbol is
// set. Timestamp and Sequence default to the current time.
type SampleRequest struct {
	Entry     *int            `json:"entry,omitempty"`
	Symbol    string          `json:"symbol,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Timestamp uint64          `json:"timestamp,omitempty"`
	Sequence  uint64          `json:"sequence,omitempty"`
}

// SampleResponse reports how many entries the sample updated.
type SampleResponse struct {
	Updated int `json:"updated"`
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	var req SampleRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}
	if (req.Entry == nil) == (req.Symbol == "") {
		s.sendError(w, http.StatusBadRequest, errors.New("exactly one of entry and symbol is required"))
		return
	}

	p, err := wad.PriceFromShopspring(req.Price)
	if err != nil {
		s.sendError(w, statusFor(err), fmt.Errorf("price %s: %w", req.Price, err))
		return
	}

	now := s.now()
	sample := twap.Sample{Price: p, UnixTimestamp: req.Timestamp, Sequence: req.Sequence}
	if sample.UnixTimestamp == 0 {
		sample.UnixTimestamp = uint64(now.Unix())
	}
	if sample.Sequence == 0 {
		sample.Sequence = uint64(now.UnixMilli())
	}

	var n int
	if req.Entry != nil {
		var updated bool
		updated, err = s.backend.Submit(*req.Entry, sample)
		if updated {
			n = 1
		}
	} else {
		n, err = s.backend.SubmitSymbol(req.Symbol, sample)
	}
	if err != nil {
		s.sendError(w, statusFor(err), err)
		return
	}
	s.sendJSON(w, http.StatusOK, SampleResponse{Updated: n})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	entry, err := strconv.Atoi(r.PathValue("entry"))
	if err != nil {
		s.sendError(w, http.StatusBadRequest, fmt.Errorf("invalid entry %q", r.PathValue("entry")))
		return
	}
	if err := s.backend.Reset(entry); err != nil {
		s.sendError(w, statusFor(err), err)
		return
	}
	s.logger.Info("Entry reset via API", "entry", entry, "remote", r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, twap.ErrIndexOutOfRange),
		errors.Is(err, feed.ErrUnknownEntry),
		errors.Is(err, feed.ErrUnknownSymbol):
		return http.StatusNotFound
	case errors.Is(err, twap.ErrUnknownTimeframe),
		errors.Is(err, wad.ErrNegative):
		return http.StatusBadRequest
	case errors.Is(err, twap.ErrInsufficientSamples),
		errors.Is(err, twap.ErrClockRegression):
		return http.StatusServiceUnavailable
	case errors.Is(err, twap.ErrSampleTooFrequent):
		return http.StatusTooManyRequests
	case errors.Is(err, twap.ErrNumericOverflow),
		errors.Is(err, wad.ErrOverflow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) sendError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Error("Request failed", "status", status, "error", err)
	}
	s.sendJSON(w, status, errorResponse{Error: err.Error()})
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
