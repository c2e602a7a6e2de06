package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/locktivity/ghas-metrics/internal/collector"
	"github.com/locktivity/ghas-metrics/internal/logging"
)

// Generic failure bodies. Internal detail is logged, never returned.
const (
	msgDependabotFailed = "Dependabot aggregation failed"
	msgMTTRFailed       = "MTTR computation failed"
	msgSummaryFailed    = "Summary aggregation failed"
	msgCoverageFailed   = "Coverage scan failed"
	msgInvalidSince     = "invalid since"
)

// SummaryResponse is the body of the summary route.
type SummaryResponse struct {
	Dependabot *collector.DependabotSummary `json:"dependabot"`
	MTTR       *collector.MttrResult        `json:"mttr"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDependabot(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")
	ctx, cancel := s.detach(r)
	defer cancel()

	summary, err := s.metrics.DependabotSummary(ctx, org)
	if err != nil {
		logging.FromContext(r.Context()).Error(msgDependabotFailed, "org", org, "err", err)
		writeError(w, http.StatusInternalServerError, msgDependabotFailed)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleMTTR(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")
	since, err := collector.ParseSince(r.URL.Query().Get("since"))
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidSince)
		return
	}

	ctx, cancel := s.detach(r)
	defer cancel()

	result, err := s.recoverMTTR(func() *collector.MttrResult {
		return s.metrics.MTTR(ctx, org, since)
	})
	if err != nil {
		logging.FromContext(r.Context()).Error(msgMTTRFailed, "org", org, "err", err)
		writeError(w, http.StatusInternalServerError, msgMTTRFailed)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")
	ctx, cancel := s.detach(r)
	defer cancel()

	var resp SummaryResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.metrics.DependabotSummary(gctx, org)
		if err != nil {
			return err
		}
		resp.Dependabot = summary
		return nil
	})
	g.Go(func() error {
		result, err := s.recoverMTTR(func() *collector.MttrResult {
			return s.metrics.MTTR(gctx, org, time.Time{})
		})
		resp.MTTR = result
		return err
	})
	if err := g.Wait(); err != nil {
		logging.FromContext(r.Context()).Error(msgSummaryFailed, "org", org, "err", err)
		writeError(w, http.StatusInternalServerError, msgSummaryFailed)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")
	ctx, cancel := s.detach(r)
	defer cancel()

	coverage, err := s.metrics.Coverage(ctx, org)
	if err != nil {
		logging.FromContext(r.Context()).Error(msgCoverageFailed, "org", org, "err", err)
		writeError(w, http.StatusInternalServerError, msgCoverageFailed)
		return
	}
	writeJSON(w, http.StatusOK, coverage)
}

func (s *Server) handlePushProtection(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")
	ctx, cancel := s.detach(r)
	defer cancel()

	writeJSON(w, http.StatusOK, s.metrics.PushProtection(ctx, org))
}

func (s *Server) handleCommitters(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")
	ctx, cancel := s.detach(r)
	defer cancel()

	writeJSON(w, http.StatusOK, s.metrics.Committers(ctx, org))
}

// recoverMTTR turns a panic in the MTTR computation into an error so the
// summary join can report it like any other failure.
func (s *Server) recoverMTTR(compute func() *collector.MttrResult) (result *collector.MttrResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return compute(), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
