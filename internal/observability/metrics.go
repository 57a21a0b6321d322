package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain collectors for the chatbot pipeline. Label values are drawn from
// closed sets (query types, outcomes, rejection reasons) to keep
// cardinality bounded.
var (
	chatbotReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_requests_total",
			Help: "Chatbot requests by query type and outcome.",
		},
		[]string{"query_type", "outcome"},
	)

	sqlgenLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlgen_request_duration_seconds",
			Help:    "Latency of calls to the SQL generation service.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"op", "outcome"},
	)

	sqlRejects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlguard_rejections_total",
			Help: "Generated queries rejected by the validator, by reason.",
		},
		[]string{"reason"},
	)

	defaultedDomain = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatbot_domain_defaulted_total",
			Help: "Queries whose domain fell back to FINANCE because no keyword matched.",
		},
	)

	queryRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatbot_query_rows",
			Help:    "Rows returned by validated read queries.",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		},
	)
)

func init() {
	prometheus.MustRegister(chatbotReqs, sqlgenLat, sqlRejects, defaultedDomain, queryRows)
}

// ObserveChatbot counts one processed chatbot request.
func ObserveChatbot(queryType, outcome string) {
	if queryType == "" {
		queryType = "NONE"
	}
	chatbotReqs.WithLabelValues(queryType, outcome).Inc()
}

// ObserveDefaultedDomain counts a classification that matched no domain
// vocabulary.
func ObserveDefaultedDomain() { defaultedDomain.Inc() }

// ObserveSQLGen records one generator call ("generate" or "health").
func ObserveSQLGen(op, outcome string, d time.Duration) {
	sqlgenLat.WithLabelValues(op, outcome).Observe(d.Seconds())
}

// ObserveRejection counts a validator rejection.
func ObserveRejection(reason string) {
	sqlRejects.WithLabelValues(reason).Inc()
}

// ObserveRows records the size of a query result.
func ObserveRows(n int) {
	queryRows.Observe(float64(n))
}
