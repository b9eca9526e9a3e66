package agents

import (
	"time"

	"minerva/internal/tools"
)

// RoleConfig captures runtime settings for one research role.
type RoleConfig struct {
	Type           RoleType
	Name           string
	Tools          []string
	PromptTemplate string

	MaxToolCalls int
	MaxTokens    int
	Temperature  float64
	TotalTimeout time.Duration
}

// DefaultRoleConfigs holds the per-role limits and prompt bindings.
var DefaultRoleConfigs = map[RoleType]RoleConfig{
	RoleBusinessModel: {
		Type:           RoleBusinessModel,
		Name:           "BusinessModelAgent",
		Tools:          []string{tools.WebSearchToolName},
		PromptTemplate: "roles/business_model",
		MaxToolCalls:   6,
		MaxTokens:      2000,
		Temperature:    0.2,
		TotalTimeout:   5 * time.Minute,
	},
	RoleNewsSentiment: {
		Type:           RoleNewsSentiment,
		Name:           "NewsSentimentAgent",
		Tools:          []string{tools.WebSearchToolName},
		PromptTemplate: "roles/news_sentiment",
		MaxToolCalls:   6,
		MaxTokens:      2000,
		Temperature:    0.2,
		TotalTimeout:   5 * time.Minute,
	},
	RolePerformance: {
		Type:           RolePerformance,
		Name:           "PerformanceAgent",
		Tools:          []string{tools.PriceHistoryToolName},
		PromptTemplate: "roles/performance",
		MaxToolCalls:   4,
		MaxTokens:      2000,
		Temperature:    0.1,
		TotalTimeout:   5 * time.Minute,
	},
	RoleNarrative: {
		Type:           RoleNarrative,
		Name:           "NarrativeSummaryAgent",
		PromptTemplate: "roles/narrative_summary",
		MaxTokens:      1500,
		Temperature:    0.3,
		TotalTimeout:   3 * time.Minute,
	},
	RoleReport: {
		Type:           RoleReport,
		Name:           "ReportAgent",
		PromptTemplate: "roles/report",
		MaxTokens:      8000,
		Temperature:    0.2,
		TotalTimeout:   5 * time.Minute,
	},
}
