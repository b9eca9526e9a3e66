package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"minerva/internal/adapters/config"
	"minerva/internal/domain/marketdata"
	"minerva/internal/domain/memory"
	"minerva/internal/domain/research"
	"minerva/internal/metrics"
	"minerva/pkg/logger"
)

// DefaultSessionID groups memory turns when the caller does not supply a
// session of its own.
const DefaultSessionID = "financial_agent_analysis_session"

const timestampLayout = "2006-01-02 15:04:05"

// MemoryService is the slice of the memory lifecycle the pipeline needs.
type MemoryService interface {
	ResolveOrCreate(ctx context.Context, prefix string) (uuid.UUID, error)
	AppendEvent(ctx context.Context, scopeID uuid.UUID, actorID, sessionID, text string)
	ReadRecent(ctx context.Context, scopeID uuid.UUID, actorID, sessionID string, k int) []*memory.Event
}

// ReportPublisher stores a rendered report and returns a shareable link.
type ReportPublisher interface {
	Enabled() bool
	Publish(ctx context.Context, req research.AnalysisRequest, artifact research.ReportArtifact) (*research.PublishedArtifact, error)
}

// Orchestrator drives a research run end to end: fan out the independent
// subtasks, synthesize performance and narrative, consult and update memory,
// then render and publish the report. Subtask failures degrade the output,
// they never abort the run.
type Orchestrator struct {
	invoker    RoleInvoker
	marketData marketdata.Provider
	memorySvc  MemoryService
	publisher  ReportPublisher
	memoryCfg  config.MemoryConfig
	log        *logger.Logger
}

// NewOrchestrator creates a pipeline orchestrator. memorySvc and publisher
// may be nil; the corresponding phases are then skipped.
func NewOrchestrator(
	invoker RoleInvoker,
	marketData marketdata.Provider,
	memorySvc MemoryService,
	publisher ReportPublisher,
	memoryCfg config.MemoryConfig,
) *Orchestrator {
	return &Orchestrator{
		invoker:    invoker,
		marketData: marketData,
		memorySvc:  memorySvc,
		publisher:  publisher,
		memoryCfg:  memoryCfg,
		log:        logger.Get().With("component", "orchestrator"),
	}
}

// Run executes the full research pipeline for one company.
func (o *Orchestrator) Run(ctx context.Context, req research.AnalysisRequest) (*research.RunResult, error) {
	req = req.Normalized()
	if req.ShareName == "" || req.TickerSymbol == "" {
		// Degraded input runs the pipeline anyway; the affected phases fall
		// back to "Not available" instead of the request being rejected.
		o.log.Warnf("Degraded input: share=%q ticker=%q", req.ShareName, req.TickerSymbol)
	}
	if req.SessionID == "" {
		req.SessionID = DefaultSessionID
	}

	startTime := time.Now()
	now := startTime.UTC().Format(timestampLayout)
	o.log.Infof("Starting research run: share=%s ticker=%s", req.ShareName, req.TickerSymbol)

	// Phase 1: independent subtasks in parallel.
	results := research.NewResultSet()
	snapshot := o.runResearchTasks(ctx, req, now, results)

	currentPrice := "Not available"
	if snapshot != nil {
		currentPrice = snapshot.PriceString()
	}

	// Phase 2: performance analysis over the collected context.
	o.runRole(ctx, RolePerformance, results, research.TaskPerformance, map[string]interface{}{
		"Ticker":        req.TickerSymbol,
		"Now":           now,
		"CurrentPrice":  currentPrice,
		"Metrics":       formatSnapshot(snapshot),
		"BusinessModel": results.GetOrDefault(research.TaskBusinessModel, "Not available"),
		"NewsSentiment": results.GetOrDefault(research.TaskNewsSentiment, "Not available"),
	})

	resultsBlock := formatResults(currentPrice, snapshot, results)

	// Phase 3: narrative summary.
	summary := ""
	if text, err := o.invoker.Invoke(ctx, RoleNarrative, map[string]interface{}{
		"Now":     now,
		"Results": resultsBlock,
	}); err != nil {
		o.log.Errorf("Narrative synthesis failed: %v", err)
	} else {
		summary = text
	}

	// Phase 4: memory read, report, memory append.
	reportURL := o.generateAndPublishReport(ctx, req, now, currentPrice, resultsBlock, summary)

	status := "success"
	if summary == "" || results.Len() < 4 {
		status = "partial"
	}
	if summary == "" && results.Len() == 0 {
		status = "error"
	}
	metrics.RecordPipeline(status, time.Since(startTime))

	o.log.Infof("Research run complete: share=%s status=%s duration=%v",
		req.ShareName, status, time.Since(startTime))

	return &research.RunResult{Summary: summary, ReportURL: reportURL}, nil
}

// runResearchTasks fans out the three independent subtasks and blocks until
// all complete. Failed tasks are logged and omitted from the result set.
func (o *Orchestrator) runResearchTasks(
	ctx context.Context,
	req research.AnalysisRequest,
	now string,
	results *research.ResultSet,
) *marketdata.Snapshot {
	var snapshot *marketdata.Snapshot

	tasks := []struct {
		task research.Task
		run  func(context.Context) (string, error)
	}{
		{research.TaskCurrentPrice, func(ctx context.Context) (string, error) {
			snap, err := o.marketData.GetSnapshot(ctx, req.TickerSymbol)
			if err != nil {
				return "", err
			}
			snapshot = snap
			return snap.PriceString(), nil
		}},
		{research.TaskBusinessModel, func(ctx context.Context) (string, error) {
			return o.invoker.Invoke(ctx, RoleBusinessModel, map[string]interface{}{
				"ShareName": req.ShareName,
				"Now":       now,
			})
		}},
		{research.TaskNewsSentiment, func(ctx context.Context) (string, error) {
			return o.invoker.Invoke(ctx, RoleNewsSentiment, map[string]interface{}{
				"ShareName": req.ShareName,
				"Now":       now,
			})
		}},
	}

	var wg sync.WaitGroup
	taskResults := make(chan research.TaskResult, len(tasks))

	for _, t := range tasks {
		wg.Add(1)
		go func(task research.Task, run func(context.Context) (string, error)) {
			defer wg.Done()

			taskStart := time.Now()
			text, err := run(ctx)
			taskResults <- research.TaskResult{
				Task:     task,
				Text:     text,
				Err:      err,
				Duration: time.Since(taskStart),
			}
		}(t.task, t.run)
	}

	wg.Wait()
	close(taskResults)

	for result := range taskResults {
		metrics.RecordTask(string(result.Task), result.Duration, result.Err)
		if result.Err != nil {
			o.log.Errorf("Task %s failed: %v (duration: %v)", result.Task, result.Err, result.Duration)
			continue
		}
		o.log.Infof("Task %s completed (duration: %v)", result.Task, result.Duration)
		results.Put(result.Task, result.Text)
	}

	return snapshot
}

// runRole invokes one synthesis role and stores its output under task.
func (o *Orchestrator) runRole(
	ctx context.Context,
	role RoleType,
	results *research.ResultSet,
	task research.Task,
	data map[string]interface{},
) {
	taskStart := time.Now()
	text, err := o.invoker.Invoke(ctx, role, data)
	metrics.RecordTask(string(task), time.Since(taskStart), err)

	if err != nil {
		o.log.Errorf("Role %s failed: %v", role, err)
		return
	}

	results.Put(task, text)
}

// generateAndPublishReport reads past interactions, renders the HTML report,
// records this interaction, and uploads the artifact. Any failure along the
// way leaves the run with a nil report link.
func (o *Orchestrator) generateAndPublishReport(
	ctx context.Context,
	req research.AnalysisRequest,
	now string,
	currentPrice string,
	resultsBlock string,
	summary string,
) *string {
	pastBlock := "No past interactions."
	var scopeID uuid.UUID

	if o.memorySvc != nil {
		var err error
		scopeID, err = o.memorySvc.ResolveOrCreate(ctx, o.memoryCfg.ScopePrefix)
		if err != nil {
			o.log.Warnf("Memory scope resolution failed: %v", err)
		} else if events := o.memorySvc.ReadRecent(ctx, scopeID, req.ActorID, req.SessionID, o.memoryCfg.RecentTurns); len(events) > 0 {
			var sb strings.Builder
			for _, e := range events {
				sb.WriteString(e.Text)
				sb.WriteString("\n")
			}
			pastBlock = sb.String()
		}
	}

	narrative := summary
	if narrative == "" {
		narrative = "Not available"
	}

	reportHTML := ""
	if text, err := o.invoker.Invoke(ctx, RoleReport, map[string]interface{}{
		"Now":              now,
		"CurrentPrice":     currentPrice,
		"Results":          resultsBlock,
		"Narrative":        narrative,
		"PastInteractions": pastBlock,
	}); err != nil {
		o.log.Errorf("Report generation failed: %v", err)
	} else {
		reportHTML = stripCodeFences(text)
	}

	// Record the interaction after the read so the new turn is not part of
	// its own history.
	if o.memorySvc != nil && scopeID != uuid.Nil {
		eventText := fmt.Sprintf("Interaction At: %s (UTC) \n\n Stock Name: %s", now, req.ShareName)
		o.memorySvc.AppendEvent(ctx, scopeID, req.ActorID, req.SessionID, eventText)
	}

	if reportHTML == "" {
		metrics.ReportsPublished.WithLabelValues("skipped").Inc()
		return nil
	}
	if o.publisher == nil || !o.publisher.Enabled() {
		o.log.Warn("Report publishing skipped: object storage not configured")
		metrics.ReportsPublished.WithLabelValues("skipped").Inc()
		return nil
	}

	published, err := o.publisher.Publish(ctx, req, research.ReportArtifact{
		Body:        []byte(reportHTML),
		ContentType: "text/html",
	})
	if err != nil {
		o.log.Errorf("Report publication failed: %v", err)
		metrics.ReportsPublished.WithLabelValues("error").Inc()
		return nil
	}

	metrics.ReportsPublished.WithLabelValues("success").Inc()
	return &published.URL
}

// formatSnapshot renders the snapshot metadata block handed to the
// performance prompt.
func formatSnapshot(snap *marketdata.Snapshot) string {
	if snap == nil {
		return "Not available"
	}

	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "Not available"
	}
	return string(payload)
}

// formatResults renders the accumulated research context handed to the
// narrative and report prompts.
func formatResults(currentPrice string, snap *marketdata.Snapshot, results *research.ResultSet) string {
	block := map[string]interface{}{
		string(research.TaskCurrentPrice): currentPrice,
	}
	if snap != nil {
		block["stock_info"] = snap
	}
	for task, text := range results.Snapshot() {
		if task == research.TaskCurrentPrice {
			continue
		}
		block[string(task)] = text
	}

	payload, err := json.MarshalIndent(block, "", "  ")
	if err != nil {
		return currentPrice
	}
	return string(payload)
}

// stripCodeFences removes a markdown code fence wrapper if the model added
// one around the HTML.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```html")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
