package research

import (
	"strings"
	"sync"
	"time"
)

// AnalysisRequest identifies the company a research run is about and the
// caller on whose behalf memory is read and written.
type AnalysisRequest struct {
	ShareName    string `json:"stockname"`
	TickerSymbol string `json:"ticker_symbol"`
	ActorID      string `json:"actor_id"`
	SessionID    string `json:"session_id"`
}

// Normalized returns a copy with surrounding whitespace stripped from every
// field.
func (r AnalysisRequest) Normalized() AnalysisRequest {
	return AnalysisRequest{
		ShareName:    strings.TrimSpace(r.ShareName),
		TickerSymbol: strings.TrimSpace(r.TickerSymbol),
		ActorID:      strings.TrimSpace(r.ActorID),
		SessionID:    strings.TrimSpace(r.SessionID),
	}
}

// Task names the independent research subtasks fanned out in the first
// pipeline phase, plus the sequential synthesis steps that follow.
type Task string

const (
	TaskCurrentPrice  Task = "current_stock_price"
	TaskBusinessModel Task = "stock_business_model"
	TaskNewsSentiment Task = "stock_news_sentiments"
	TaskPerformance   Task = "stock_performance"
)

// TaskResult carries the output of a single subtask through the results
// channel. Exactly one of Text or Err is meaningful.
type TaskResult struct {
	Task     Task
	Text     string
	Err      error
	Duration time.Duration
}

// ResultSet accumulates subtask outputs as they complete. Safe for
// concurrent writers.
type ResultSet struct {
	mu      sync.Mutex
	results map[Task]string
}

func NewResultSet() *ResultSet {
	return &ResultSet{results: make(map[Task]string)}
}

func (s *ResultSet) Put(task Task, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[task] = text
}

// Get returns the stored text for a task and whether the task completed.
func (s *ResultSet) Get(task Task) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.results[task]
	return text, ok
}

// GetOrDefault returns the stored text or the fallback for a task that
// failed or never ran.
func (s *ResultSet) GetOrDefault(task Task, fallback string) string {
	if text, ok := s.Get(task); ok {
		return text
	}
	return fallback
}

// Len reports how many tasks completed successfully.
func (s *ResultSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// Snapshot returns a copy of the accumulated results.
func (s *ResultSet) Snapshot() map[Task]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Task]string, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	return out
}

// RunResult is the outcome of a full research run. Summary is empty when
// narrative synthesis failed; ReportURL is nil when the report was not
// generated or publication failed.
type RunResult struct {
	Summary   string
	ReportURL *string
}

// ReportArtifact describes a rendered report handed to the publisher.
type ReportArtifact struct {
	FileName    string
	ContentType string
	Body        []byte
}

// PublishedArtifact is the publisher's receipt for a stored report.
type PublishedArtifact struct {
	StorageKey string
	URL        string
	ExpiresAt  time.Time
}
