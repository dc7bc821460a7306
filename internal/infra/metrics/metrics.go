package metrics

import (
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	modelCallLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_call_latency_ms",
			Help:    "Model invocation latency distribution in milliseconds.",
			Buckets: []float64{25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
		[]string{"provider", "model", "success"},
	)

	modelTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_tokens_in",
			Help: "Sum of prompt (input) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	modelTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_tokens_out",
			Help: "Sum of completion (output) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	toolExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_executions_total",
			Help: "Tool executions by tool name and outcome (ok/tool_error/infra_error).",
		},
		[]string{"tool", "outcome"},
	)

	toolLoopExhausted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tool_loop_exhausted_total",
			Help: "Turns terminated by the tool-call loop bound.",
		},
	)

	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Completed chat turns by agent mode.",
		},
		[]string{"mode"},
	)

	ordersSubmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_submitted_total",
			Help: "Successfully approved and persisted orders.",
		},
	)

	ordersStale = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_stale_total",
			Help: "Approvals rejected because the catalog changed after confirmation.",
		},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			modelCallLatencyMs, modelTokensIn, modelTokensOut,
			toolExecutions, toolLoopExhausted, turnsTotal,
			ordersSubmitted, ordersStale,
		)
	})
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func ObserveModelCall(provider, model string, tokensIn, tokensOut, latencyMs int, success bool) {
	modelTokensIn.WithLabelValues(norm(provider), norm(model)).Add(float64(tokensIn))
	modelTokensOut.WithLabelValues(norm(provider), norm(model)).Add(float64(tokensOut))
	modelCallLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncToolExecution(tool, outcome string) {
	toolExecutions.WithLabelValues(norm(tool), norm(outcome)).Inc()
}

func IncToolLoopExhausted() { toolLoopExhausted.Inc() }

func IncTurn(mode string) { turnsTotal.WithLabelValues(norm(mode)).Inc() }

func IncOrderSubmitted() { ordersSubmitted.Inc() }

func IncOrderStale() { ordersStale.Inc() }
