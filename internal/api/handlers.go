package api

import (
	"encoding/json"
	"net/http"

	"minerva/internal/domain/marketdata"
	"minerva/internal/domain/research"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// handlers bundles the analysis endpoints
type handlers struct {
	researcher Researcher
	searcher   EquitySearcher
	log        *logger.Logger
}

// envelope is the response shape shared by all analysis endpoints
type envelope struct {
	StatusCode int         `json:"statusCode"`
	Message    string      `json:"message"`
	Response   interface{} `json:"response"`
}

func writeEnvelope(w http.ResponseWriter, statusCode int, message string, response interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(envelope{
		StatusCode: statusCode,
		Message:    message,
		Response:   response,
	})
}

// handleSearch resolves a free-text query to matching equity listings.
// GET /search?_q=apple
func (h *handlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("_q")
	if query == "" {
		writeEnvelope(w, http.StatusBadRequest, "missing required query parameter: _q", nil)
		return
	}

	matches, err := h.searcher.SearchEquities(r.Context(), query)
	if err != nil {
		h.log.Errorf("Equity search failed for %q: %v", query, err)
		switch {
		case errors.Is(err, errors.ErrRateLimitExceeded):
			writeEnvelope(w, http.StatusTooManyRequests, "search provider rate limited", nil)
		case errors.Is(err, errors.ErrInvalidInput):
			writeEnvelope(w, http.StatusBadRequest, err.Error(), nil)
		default:
			writeEnvelope(w, http.StatusBadGateway, "search provider unavailable", nil)
		}
		return
	}

	if matches == nil {
		matches = []marketdata.EquityMatch{}
	}
	writeEnvelope(w, http.StatusOK, "success", matches)
}

// handleAnalyze runs the full research pipeline for one stock.
// GET /analyze?stockname=Apple&ticker_symbol=AAPL&actor_id=user-1
func (h *handlers) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := research.AnalysisRequest{
		ShareName:    q.Get("stockname"),
		TickerSymbol: q.Get("ticker_symbol"),
		ActorID:      q.Get("actor_id"),
		SessionID:    q.Get("session_id"),
	}

	// Missing stockname or ticker_symbol is not rejected here; the pipeline
	// treats blank fields as degraded input and nulls out what it cannot
	// produce.
	result, err := h.researcher.Run(r.Context(), req)
	if err != nil {
		h.log.Errorf("Analysis run failed for %q: %v", req.TickerSymbol, err)
		writeEnvelope(w, http.StatusInternalServerError, "analysis failed", nil)
		return
	}

	payload := map[string]interface{}{
		"summary": nil,
		"report":  nil,
	}
	if result.Summary != "" {
		payload["summary"] = result.Summary
	}
	if result.ReportURL != nil {
		payload["report"] = *result.ReportURL
	}

	writeEnvelope(w, http.StatusOK, "success", payload)
}
