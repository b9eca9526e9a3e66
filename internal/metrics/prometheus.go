package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_pipeline_runs_total",
			Help: "Total number of research pipeline runs",
		},
		[]string{"status"}, // status: success|partial|error
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minerva_pipeline_duration_seconds",
			Help:    "End-to-end pipeline duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
		},
		[]string{"status"},
	)

	TaskExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_task_executions_total",
			Help: "Total number of pipeline subtask executions",
		},
		[]string{"task", "status"}, // status: success|error
	)

	TaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minerva_task_duration_seconds",
			Help:    "Subtask execution duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"task"},
	)

	// Role metrics
	RoleCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_role_calls_total",
			Help: "Total number of role invocations",
		},
		[]string{"role", "status"}, // status: success|error
	)

	RoleTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_role_tokens_total",
			Help: "Total tokens used by roles",
		},
		[]string{"role", "type"}, // type: input|output
	)

	// Tool metrics
	ToolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_tool_executions_total",
			Help: "Total number of tool executions",
		},
		[]string{"tool", "status"}, // status: success|error
	)

	// Publication metrics
	ReportsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_reports_published_total",
			Help: "Total number of report publications",
		},
		[]string{"status"}, // status: success|skipped|error
	)

	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minerva_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600, 920},
		},
		[]string{"path"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(PipelineRuns)
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(TaskExecutions)
	prometheus.MustRegister(TaskDuration)

	prometheus.MustRegister(RoleCalls)
	prometheus.MustRegister(RoleTokens)

	prometheus.MustRegister(ToolExecutions)
	prometheus.MustRegister(ReportsPublished)

	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(HTTPDuration)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTask records one subtask execution
func RecordTask(task string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	TaskExecutions.WithLabelValues(task, status).Inc()
	TaskDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// RecordPipeline records one pipeline run
func RecordPipeline(status string, duration time.Duration) {
	PipelineRuns.WithLabelValues(status).Inc()
	PipelineDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordRole records one role invocation and its token usage
func RecordRole(role string, promptTokens, completionTokens int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	RoleCalls.WithLabelValues(role, status).Inc()
	if promptTokens > 0 {
		RoleTokens.WithLabelValues(role, "input").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		RoleTokens.WithLabelValues(role, "output").Add(float64(completionTokens))
	}
}

// RecordTool records one tool execution
func RecordTool(tool string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	ToolExecutions.WithLabelValues(tool, status).Inc()
}
