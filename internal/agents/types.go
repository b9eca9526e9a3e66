package agents

// RoleType enumerates the research roles in the analysis pipeline.
type RoleType string

const (
	RoleBusinessModel RoleType = "business_model"
	RoleNewsSentiment RoleType = "news_sentiment"
	RolePerformance   RoleType = "performance"
	RoleNarrative     RoleType = "narrative_summary"
	RoleReport        RoleType = "report"
)

// String returns the role identifier.
func (r RoleType) String() string {
	return string(r)
}
