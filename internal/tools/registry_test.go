package tools

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/domain/marketdata"
	"minerva/internal/domain/websearch"
	"minerva/internal/metrics"
	"minerva/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init("error", "test")
	os.Exit(m.Run())
}

type fakeSearch struct {
	results []websearch.Result
	err     error
}

func (f *fakeSearch) Search(_ context.Context, _ string) ([]websearch.Result, error) {
	return f.results, f.err
}

type fakeMarketData struct {
	bars []marketdata.Bar
	err  error
}

func (f *fakeMarketData) GetSnapshot(_ context.Context, _ string) (*marketdata.Snapshot, error) {
	return nil, nil
}

func (f *fakeMarketData) GetHistory(_ context.Context, _ string, _ int) ([]marketdata.Bar, error) {
	return f.bars, f.err
}

func (f *fakeMarketData) SearchEquities(_ context.Context, _ string) ([]marketdata.EquityMatch, error) {
	return nil, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewWebSearchTool(&fakeSearch{}))

	tool, ok := registry.Get(WebSearchToolName)
	require.True(t, ok)
	assert.Equal(t, WebSearchToolName, tool.Name())

	_, ok = registry.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_Definitions(t *testing.T) {
	registry := NewRegistry()
	registry.Register(NewWebSearchTool(&fakeSearch{}))
	registry.Register(NewPriceHistoryTool(&fakeMarketData{}, 90))

	defs := registry.Definitions([]string{WebSearchToolName, "missing", PriceHistoryToolName})
	require.Len(t, defs, 2)
	assert.Equal(t, "function", defs[0].Type)
	assert.NotEmpty(t, defs[0].Function.Parameters)
}

func TestWebSearchTool(t *testing.T) {
	provider := &fakeSearch{results: []websearch.Result{
		{Title: "Apple beats expectations", URL: "https://example.com/1", Snippet: "Record revenue."},
		{Title: "iPhone demand steady", URL: "https://example.com/2"},
	}}
	tool := NewWebSearchTool(provider)

	out, err := tool.Execute(context.Background(), map[string]interface{}{"query": "apple news"})
	require.NoError(t, err)
	assert.Contains(t, out, "1. Apple beats expectations")
	assert.Contains(t, out, "Record revenue.")
	assert.Contains(t, out, "2. iPhone demand steady")
}

func TestWebSearchTool_MissingQuery(t *testing.T) {
	tool := NewWebSearchTool(&fakeSearch{})
	_, err := tool.Execute(context.Background(), map[string]interface{}{})
	assert.Error(t, err)
}

func TestWebSearchTool_NoResults(t *testing.T) {
	tool := NewWebSearchTool(&fakeSearch{})
	out, err := tool.Execute(context.Background(), map[string]interface{}{"query": "obscure"})
	require.NoError(t, err)
	assert.Equal(t, "No results found.", out)
}

func makeBars(n int, start float64) []marketdata.Bar {
	bars := make([]marketdata.Bar, n)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	price := start
	for i := range bars {
		price *= 1.001
		bars[i] = marketdata.Bar{
			Date:   base.AddDate(0, 0, i),
			Open:   price * 0.995,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 50_000_000,
		}
	}
	return bars
}

func TestPriceHistoryTool(t *testing.T) {
	tool := NewPriceHistoryTool(&fakeMarketData{bars: makeBars(60, 100)}, 90)

	out, err := tool.Execute(context.Background(), map[string]interface{}{"ticker": "AAPL"})
	require.NoError(t, err)

	assert.Contains(t, out, "Price history for AAPL")
	assert.Contains(t, out, "SMA20:")
	assert.Contains(t, out, "SMA50:")
	assert.Contains(t, out, "Annualized volatility:")
	assert.Contains(t, out, "50,000,000")
}

func TestPriceHistoryTool_ShortWindow(t *testing.T) {
	tool := NewPriceHistoryTool(&fakeMarketData{bars: makeBars(5, 100)}, 90)

	out, err := tool.Execute(context.Background(), map[string]interface{}{"ticker": "AAPL"})
	require.NoError(t, err)

	// Not enough bars for the moving averages, stats that fit still render.
	assert.NotContains(t, out, "SMA20:")
	assert.Contains(t, out, "Window change:")
}

func TestPriceHistoryTool_MissingTicker(t *testing.T) {
	tool := NewPriceHistoryTool(&fakeMarketData{}, 90)
	_, err := tool.Execute(context.Background(), map[string]interface{}{})
	assert.Error(t, err)
}

func TestExecute_RecordsToolMetrics(t *testing.T) {
	okBefore := testutil.ToFloat64(metrics.ToolExecutions.WithLabelValues("echo", "success"))
	failBefore := testutil.ToFloat64(metrics.ToolExecutions.WithLabelValues("boom", "error"))

	echo := New("echo", "echoes input", nil, func(_ context.Context, _ map[string]interface{}) (string, error) {
		return "ok", nil
	})
	boom := New("boom", "always fails", nil, func(_ context.Context, _ map[string]interface{}) (string, error) {
		return "", assert.AnError
	})

	_, err := echo.Execute(context.Background(), nil)
	require.NoError(t, err)
	_, err = boom.Execute(context.Background(), nil)
	require.Error(t, err)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(metrics.ToolExecutions.WithLabelValues("echo", "success")))
	assert.Equal(t, failBefore+1, testutil.ToFloat64(metrics.ToolExecutions.WithLabelValues("boom", "error")))
}
