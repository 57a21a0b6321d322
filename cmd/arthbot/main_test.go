package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := execute(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestClassify_FinanceCreate(t *testing.T) {
	orig := now
	now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = orig })

	code, out, stderr := run(t, "classify", "add expense 500 for groceries today")
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, stderr)
	}
	var got struct {
		QueryType string         `json:"query_type"`
		Slots     map[string]any `json:"slots"`
		Missing   []string       `json:"missing"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v (%s)", err, out)
	}
	if got.QueryType != "FINANCE_CREATE" {
		t.Fatalf("query_type=%q", got.QueryType)
	}
	if got.Slots["amount"] != "500" || got.Slots["date"] != "2026-10-18" {
		t.Fatalf("slots=%v", got.Slots)
	}
	if len(got.Missing) != 0 {
		t.Fatalf("missing=%v", got.Missing)
	}
}

func TestClassify_ReadHasNoSlots(t *testing.T) {
	code, out, _ := run(t, "classify", "show", "my", "pending", "tasks")
	if code != 0 {
		t.Fatalf("exit=%d", code)
	}
	if !strings.Contains(out, `"query_type": "TASK_READ"`) || strings.Contains(out, `"slots"`) {
		t.Fatalf("out=%s", out)
	}
}

func TestCheckSQL(t *testing.T) {
	code, out, _ := run(t, "check-sql", "--domain", "finance", "--tenant", "42", "SELECT category FROM finance")
	if code != 0 {
		t.Fatalf("exit=%d", code)
	}
	var ok checkSQLOutput
	if err := json.Unmarshal([]byte(out), &ok); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ok.Valid || !strings.Contains(ok.SQL, "user_id = 42") || ok.Limit != 100 {
		t.Fatalf("unexpected: %+v", ok)
	}

	code, out, _ = run(t, "check-sql", "--domain", "task", "--tenant", "42", "DROP TABLE task")
	if code != 0 {
		t.Fatalf("exit=%d", code)
	}
	var rej checkSQLOutput
	if err := json.Unmarshal([]byte(out), &rej); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rej.Valid || rej.Reason != "not_select" {
		t.Fatalf("unexpected: %+v", rej)
	}
}

func TestCheckSQL_BadFlags(t *testing.T) {
	if code, _, stderr := run(t, "check-sql", "--domain", "weather", "--tenant", "1", "SELECT 1"); code != 1 || !strings.Contains(stderr, "unknown domain") {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
	if code, _, stderr := run(t, "check-sql", "--domain", "task", "SELECT * FROM task"); code != 1 || !strings.Contains(stderr, "--tenant") {
		t.Fatalf("code=%d stderr=%s", code, stderr)
	}
}
