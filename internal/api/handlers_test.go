package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"minerva/internal/domain/marketdata"
	"minerva/internal/domain/research"
	"minerva/pkg/errors"
	"minerva/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = logger.Init("error", "test")
}

type fakeResearcher struct {
	result  *research.RunResult
	err     error
	lastReq research.AnalysisRequest
}

func (f *fakeResearcher) Run(_ context.Context, req research.AnalysisRequest) (*research.RunResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSearcher struct {
	matches   []marketdata.EquityMatch
	err       error
	lastQuery string
}

func (f *fakeSearcher) SearchEquities(_ context.Context, query string) ([]marketdata.EquityMatch, error) {
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHandleSearch_ReturnsMatches(t *testing.T) {
	searcher := &fakeSearcher{
		matches: []marketdata.EquityMatch{
			{Symbol: "AAPL", ShortName: "Apple Inc.", Exchange: "NMS", QuoteType: "EQUITY"},
		},
	}
	h := &handlers{searcher: searcher, log: logger.Get()}

	req := httptest.NewRequest(http.MethodGet, "/search?_q=apple", nil)
	rec := httptest.NewRecorder()
	h.handleSearch(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "apple", searcher.lastQuery)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusOK, env.StatusCode)
	assert.Equal(t, "success", env.Message)

	rows, ok := env.Response.([]interface{})
	require.True(t, ok)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]interface{})
	assert.Equal(t, "AAPL", row["symbol"])
}

func TestHandleSearch_MissingQueryParam(t *testing.T) {
	h := &handlers{searcher: &fakeSearcher{}, log: logger.Get()}

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	h.handleSearch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadRequest, env.StatusCode)
	assert.Contains(t, env.Message, "_q")
	assert.Nil(t, env.Response)
}

func TestHandleSearch_EmptyResultIsOK(t *testing.T) {
	h := &handlers{searcher: &fakeSearcher{}, log: logger.Get()}

	req := httptest.NewRequest(http.MethodGet, "/search?_q=nosuchcompany", nil)
	rec := httptest.NewRecorder()
	h.handleSearch(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	rows, ok := env.Response.([]interface{})
	require.True(t, ok)
	assert.Empty(t, rows)
}

func TestHandleSearch_ProviderFailure(t *testing.T) {
	h := &handlers{searcher: &fakeSearcher{err: errors.ErrExternal}, log: logger.Get()}

	req := httptest.NewRequest(http.MethodGet, "/search?_q=apple", nil)
	rec := httptest.NewRecorder()
	h.handleSearch(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, http.StatusBadGateway, env.StatusCode)
}

func TestHandleSearch_RateLimited(t *testing.T) {
	h := &handlers{searcher: &fakeSearcher{err: errors.ErrRateLimitExceeded}, log: logger.Get()}

	req := httptest.NewRequest(http.MethodGet, "/search?_q=apple", nil)
	rec := httptest.NewRecorder()
	h.handleSearch(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandleAnalyze_HappyPath(t *testing.T) {
	url := "https://bucket.s3.amazonaws.com/report.html"
	researcher := &fakeResearcher{
		result: &research.RunResult{Summary: "Apple looks steady.", ReportURL: &url},
	}
	h := &handlers{researcher: researcher, log: logger.Get()}

	req := httptest.NewRequest(http.MethodGet, "/analyze?stockname=Apple&ticker_symbol=AAPL&actor_id=user-1", nil)
	rec := httptest.NewRecorder()
	h.handleAnalyze(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Apple", researcher.lastReq.ShareName)
	assert.Equal(t, "AAPL", researcher.lastReq.TickerSymbol)
	assert.Equal(t, "user-1", researcher.lastReq.ActorID)

	env := decodeEnvelope(t, rec)
	payload, ok := env.Response.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Apple looks steady.", payload["summary"])
	assert.Equal(t, url, payload["report"])
}

func TestHandleAnalyze_NoReportURL(t *testing.T) {
	researcher := &fakeResearcher{
		result: &research.RunResult{Summary: "Partial analysis."},
	}
	h := &handlers{researcher: researcher, log: logger.Get()}

	req := httptest.NewRequest(http.MethodGet, "/analyze?stockname=Apple&ticker_symbol=AAPL", nil)
	rec := httptest.NewRecorder()
	h.handleAnalyze(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	payload, ok := env.Response.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Partial analysis.", payload["summary"])
	assert.Nil(t, payload["report"])
}

func TestHandleAnalyze_MissingParamsDegrade(t *testing.T) {
	// Blank stockname/ticker_symbol flow into the pipeline as degraded
	// input; the gateway never rejects them.
	researcher := &fakeResearcher{result: &research.RunResult{}}
	h := &handlers{researcher: researcher, log: logger.Get()}

	req := httptest.NewRequest(http.MethodGet, "/analyze?ticker_symbol=AAPL", nil)
	rec := httptest.NewRecorder()
	h.handleAnalyze(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", researcher.lastReq.ShareName)
	assert.Equal(t, "AAPL", researcher.lastReq.TickerSymbol)

	env := decodeEnvelope(t, rec)
	payload, ok := env.Response.(map[string]interface{})
	require.True(t, ok)
	assert.Nil(t, payload["summary"])
	assert.Nil(t, payload["report"])
}

func TestHandleAnalyze_EmptyRequestDegrades(t *testing.T) {
	researcher := &fakeResearcher{result: &research.RunResult{}}
	h := &handlers{researcher: researcher, log: logger.Get()}

	req := httptest.NewRequest(http.MethodGet, "/analyze", nil)
	rec := httptest.NewRecorder()
	h.handleAnalyze(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", researcher.lastReq.ShareName)
	assert.Equal(t, "", researcher.lastReq.TickerSymbol)
}

func TestHandleAnalyze_PipelineFailure(t *testing.T) {
	h := &handlers{researcher: &fakeResearcher{err: errors.ErrPipelineFault}, log: logger.Get()}

	req := httptest.NewRequest(http.MethodGet, "/analyze?stockname=Apple&ticker_symbol=AAPL", nil)
	rec := httptest.NewRecorder()
	h.handleAnalyze(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "analysis failed", env.Message)
}
