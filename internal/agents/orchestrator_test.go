package agents

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/adapters/config"
	"minerva/internal/domain/marketdata"
	"minerva/internal/domain/memory"
	"minerva/internal/domain/research"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init("error", "test")
	os.Exit(m.Run())
}

type fakeInvoker struct {
	mu       sync.Mutex
	outputs  map[RoleType]string
	failures map[RoleType]error
	calls    []RoleType
	data     map[RoleType]map[string]interface{}
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{
		outputs: map[RoleType]string{
			RoleBusinessModel: "Sells hardware and services.",
			RoleNewsSentiment: "Sentiment is positive.",
			RolePerformance:   "Trend: up. Recommendation: Buy.",
			RoleNarrative:     "The stock performed well.",
			RoleReport:        "<html>report</html>",
		},
		failures: map[RoleType]error{},
		data:     map[RoleType]map[string]interface{}{},
	}
}

func (f *fakeInvoker) Invoke(_ context.Context, role RoleType, data map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, role)
	f.data[role] = data
	if err, ok := f.failures[role]; ok {
		return "", err
	}
	return f.outputs[role], nil
}

type fakeMarket struct {
	snapshot *marketdata.Snapshot
	err      error
}

func (f *fakeMarket) GetSnapshot(_ context.Context, _ string) (*marketdata.Snapshot, error) {
	return f.snapshot, f.err
}

func (f *fakeMarket) GetHistory(_ context.Context, _ string, _ int) ([]marketdata.Bar, error) {
	return nil, nil
}

func (f *fakeMarket) SearchEquities(_ context.Context, _ string) ([]marketdata.EquityMatch, error) {
	return nil, nil
}

type memOp struct {
	op   string
	text string
}

type fakeMemory struct {
	mu         sync.Mutex
	scopeID    uuid.UUID
	resolveErr error
	past       []*memory.Event
	ops        []memOp
}

func (f *fakeMemory) ResolveOrCreate(_ context.Context, _ string) (uuid.UUID, error) {
	if f.resolveErr != nil {
		return uuid.Nil, f.resolveErr
	}
	if f.scopeID == uuid.Nil {
		f.scopeID = uuid.New()
	}
	return f.scopeID, nil
}

func (f *fakeMemory) AppendEvent(_ context.Context, _ uuid.UUID, _, _, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, memOp{op: "append", text: text})
}

func (f *fakeMemory) ReadRecent(_ context.Context, _ uuid.UUID, actorID, sessionID string, _ int) []*memory.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, memOp{op: "read", text: actorID + "/" + sessionID})
	return f.past
}

type fakePublisher struct {
	enabled   bool
	err       error
	published *research.ReportArtifact
}

func (f *fakePublisher) Enabled() bool { return f.enabled }

func (f *fakePublisher) Publish(_ context.Context, req research.AnalysisRequest, artifact research.ReportArtifact) (*research.PublishedArtifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.published = &artifact
	return &research.PublishedArtifact{
		StorageKey: "analysis-result-x/report.html",
		URL:        "https://bucket.example.com/report.html",
		ExpiresAt:  time.Now().Add(6 * time.Hour),
	}, nil
}

func testSnapshot() *marketdata.Snapshot {
	return &marketdata.Snapshot{
		Symbol:   "AAPL",
		Price:    decimal.NewFromFloat(189.95),
		Currency: "USD",
	}
}

func memoryConfig() config.MemoryConfig {
	return config.MemoryConfig{ScopePrefix: "FinanceAgentMemory", RetentionDays: 30, RecentTurns: 5}
}

func testRequest() research.AnalysisRequest {
	return research.AnalysisRequest{ShareName: "Apple", TickerSymbol: "AAPL", ActorID: "user-1"}
}

func newTestOrchestrator(inv *fakeInvoker, market *fakeMarket, mem *fakeMemory, pub *fakePublisher) *Orchestrator {
	return NewOrchestrator(inv, market, mem, pub, memoryConfig())
}

func TestRun_HappyPath(t *testing.T) {
	inv := newFakeInvoker()
	mem := &fakeMemory{}
	pub := &fakePublisher{enabled: true}
	orch := newTestOrchestrator(inv, &fakeMarket{snapshot: testSnapshot()}, mem, pub)

	result, err := orch.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "The stock performed well.", result.Summary)
	require.NotNil(t, result.ReportURL)
	assert.Equal(t, "https://bucket.example.com/report.html", *result.ReportURL)
	require.NotNil(t, pub.published)
	assert.Equal(t, "<html>report</html>", string(pub.published.Body))
}

func TestRun_BlankInputDegrades(t *testing.T) {
	// Blank share name and ticker run the pipeline anyway; the price lookup
	// fails and every role receives the empty values as-is.
	inv := newFakeInvoker()
	orch := newTestOrchestrator(inv, &fakeMarket{err: errors.ErrNotFound}, &fakeMemory{}, &fakePublisher{enabled: true})

	result, err := orch.Run(context.Background(), research.AnalysisRequest{ShareName: " ", TickerSymbol: ""})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Contains(t, inv.calls, RoleBusinessModel)
	assert.Contains(t, inv.calls, RoleNewsSentiment)
	assert.Equal(t, "", inv.data[RoleBusinessModel]["ShareName"])
	assert.Equal(t, "", inv.data[RolePerformance]["Ticker"])
	assert.Equal(t, "Not available", inv.data[RolePerformance]["CurrentPrice"])
}

func TestRun_SubtaskFailureIsIsolated(t *testing.T) {
	inv := newFakeInvoker()
	inv.failures[RoleNewsSentiment] = errors.ErrEmptyResponse
	orch := newTestOrchestrator(inv, &fakeMarket{snapshot: testSnapshot()}, &fakeMemory{}, &fakePublisher{enabled: true})

	result, err := orch.Run(context.Background(), testRequest())
	require.NoError(t, err)

	// The failed subtask surfaces as a fallback value, not an aborted run.
	assert.Equal(t, "Not available", inv.data[RolePerformance]["NewsSentiment"])
	assert.Equal(t, "Sells hardware and services.", inv.data[RolePerformance]["BusinessModel"])
	assert.Equal(t, "The stock performed well.", result.Summary)
	assert.NotNil(t, result.ReportURL)
}

func TestRun_PriceFailureDegrades(t *testing.T) {
	inv := newFakeInvoker()
	orch := newTestOrchestrator(inv, &fakeMarket{err: errors.ErrUnavailable}, &fakeMemory{}, &fakePublisher{enabled: true})

	result, err := orch.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "Not available", inv.data[RolePerformance]["CurrentPrice"])
	assert.Equal(t, "Not available", inv.data[RoleReport]["CurrentPrice"])
	assert.NotNil(t, result.ReportURL)
}

func TestRun_NarrativeFailure(t *testing.T) {
	inv := newFakeInvoker()
	inv.failures[RoleNarrative] = errors.ErrEmptyResponse
	orch := newTestOrchestrator(inv, &fakeMarket{snapshot: testSnapshot()}, &fakeMemory{}, &fakePublisher{enabled: true})

	result, err := orch.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Empty(t, result.Summary)
	// Report still runs with a fallback narrative.
	assert.Equal(t, "Not available", inv.data[RoleReport]["Narrative"])
	assert.NotNil(t, result.ReportURL)
}

func TestRun_ReportFailureSkipsPublication(t *testing.T) {
	inv := newFakeInvoker()
	inv.failures[RoleReport] = errors.ErrEmptyResponse
	pub := &fakePublisher{enabled: true}
	orch := newTestOrchestrator(inv, &fakeMarket{snapshot: testSnapshot()}, &fakeMemory{}, pub)

	result, err := orch.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "The stock performed well.", result.Summary)
	assert.Nil(t, result.ReportURL)
	assert.Nil(t, pub.published)
}

func TestRun_PublishFailure(t *testing.T) {
	inv := newFakeInvoker()
	pub := &fakePublisher{enabled: true, err: errors.ErrPublicationFailed}
	orch := newTestOrchestrator(inv, &fakeMarket{snapshot: testSnapshot()}, &fakeMemory{}, pub)

	result, err := orch.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "The stock performed well.", result.Summary)
	assert.Nil(t, result.ReportURL)
}

func TestRun_PublisherDisabled(t *testing.T) {
	inv := newFakeInvoker()
	orch := newTestOrchestrator(inv, &fakeMarket{snapshot: testSnapshot()}, &fakeMemory{}, &fakePublisher{enabled: false})

	result, err := orch.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "The stock performed well.", result.Summary)
	assert.Nil(t, result.ReportURL)
}

func TestRun_MemoryReadThenAppend(t *testing.T) {
	inv := newFakeInvoker()
	mem := &fakeMemory{past: []*memory.Event{
		{Text: "Interaction At: 2026-08-01 10:00:00 (UTC) \n\n Stock Name: Tesla"},
	}}
	orch := newTestOrchestrator(inv, &fakeMarket{snapshot: testSnapshot()}, mem, &fakePublisher{enabled: true})

	_, err := orch.Run(context.Background(), testRequest())
	require.NoError(t, err)

	require.Len(t, mem.ops, 2)
	assert.Equal(t, "read", mem.ops[0].op)
	assert.Equal(t, "append", mem.ops[1].op)
	assert.Contains(t, mem.ops[1].text, "Interaction At:")
	assert.Contains(t, mem.ops[1].text, "Stock Name: Apple")

	// Past turns reach the report prompt, the current turn does not.
	past, _ := inv.data[RoleReport]["PastInteractions"].(string)
	assert.Contains(t, past, "Tesla")
	assert.NotContains(t, past, "Apple")
}

func TestRun_NoPastInteractions(t *testing.T) {
	inv := newFakeInvoker()
	orch := newTestOrchestrator(inv, &fakeMarket{snapshot: testSnapshot()}, &fakeMemory{}, &fakePublisher{enabled: true})

	_, err := orch.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "No past interactions.", inv.data[RoleReport]["PastInteractions"])
}

func TestRun_MemoryUnavailable(t *testing.T) {
	inv := newFakeInvoker()
	mem := &fakeMemory{resolveErr: errors.ErrUnavailable}
	orch := newTestOrchestrator(inv, &fakeMarket{snapshot: testSnapshot()}, mem, &fakePublisher{enabled: true})

	result, err := orch.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "The stock performed well.", result.Summary)
	assert.NotNil(t, result.ReportURL)
	assert.Empty(t, mem.ops, "no reads or appends after scope resolution fails")
}

func TestRun_DefaultSessionApplied(t *testing.T) {
	inv := newFakeInvoker()
	mem := &fakeMemory{}
	orch := newTestOrchestrator(inv, &fakeMarket{snapshot: testSnapshot()}, mem, &fakePublisher{enabled: true})

	_, err := orch.Run(context.Background(), testRequest())
	require.NoError(t, err)

	require.NotEmpty(t, mem.ops)
	assert.Equal(t, "user-1/"+DefaultSessionID, mem.ops[0].text)
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, "<html></html>", stripCodeFences("```html\n<html></html>\n```"))
	assert.Equal(t, "<html></html>", stripCodeFences("```\n<html></html>\n```"))
	assert.Equal(t, "<html></html>", stripCodeFences("<html></html>"))
}

func TestFormatResults_IncludesAllTasks(t *testing.T) {
	results := research.NewResultSet()
	results.Put(research.TaskBusinessModel, "model text")
	results.Put(research.TaskPerformance, "performance text")

	block := formatResults("189.95 USD", testSnapshot(), results)
	assert.Contains(t, block, "current_stock_price")
	assert.Contains(t, block, "189.95 USD")
	assert.Contains(t, block, "stock_business_model")
	assert.Contains(t, block, "stock_performance")
	assert.Contains(t, block, "stock_info")
}
