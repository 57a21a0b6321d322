package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveChatbot_CountsByLabels(t *testing.T) {
	base := testutil.ToFloat64(chatbotReqs.WithLabelValues("FINANCE_READ", "ok"))
	ObserveChatbot("FINANCE_READ", "ok")
	ObserveChatbot("FINANCE_READ", "ok")
	if got := testutil.ToFloat64(chatbotReqs.WithLabelValues("FINANCE_READ", "ok")); got != base+2 {
		t.Fatalf("counter = %v; want %v", got, base+2)
	}
}

func TestObserveChatbot_EmptyQueryType(t *testing.T) {
	base := testutil.ToFloat64(chatbotReqs.WithLabelValues("NONE", "invalid_input"))
	ObserveChatbot("", "invalid_input")
	if got := testutil.ToFloat64(chatbotReqs.WithLabelValues("NONE", "invalid_input")); got != base+1 {
		t.Fatalf("counter = %v; want %v", got, base+1)
	}
}

func TestObserveRejection(t *testing.T) {
	base := testutil.ToFloat64(sqlRejects.WithLabelValues("not_select"))
	ObserveRejection("not_select")
	if got := testutil.ToFloat64(sqlRejects.WithLabelValues("not_select")); got != base+1 {
		t.Fatalf("counter = %v; want %v", got, base+1)
	}
}

func TestObserveHistograms_DoNotPanic(t *testing.T) {
	ObserveSQLGen("generate", "ok", 120*time.Millisecond)
	ObserveRows(3)
	if n := testutil.CollectAndCount(sqlgenLat); n == 0 {
		t.Fatal("expected sqlgen histogram series")
	}
}

func TestObserveDefaultedDomain(t *testing.T) {
	base := testutil.ToFloat64(defaultedDomain)
	ObserveDefaultedDomain()
	if got := testutil.ToFloat64(defaultedDomain); got != base+1 {
		t.Fatalf("counter = %v; want %v", got, base+1)
	}
}
