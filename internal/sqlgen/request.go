// Package sqlgen talks to the external SQL generation service.
//
// BuildRequest assembles the schema-aware, date-aware description sent to
// the generator; Client performs the HTTP exchange. Nothing here is
// trusted: the generator's SQL is only ever handed to sqlguard.
package sqlgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/tbourn/go-arth-chatbot/internal/domain"
	"github.com/tbourn/go-arth-chatbot/internal/intent"
)

// Dialect names the SQL flavour the generator should write.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

// ParseDialect accepts "sqlite" or "mysql" in any case.
func ParseDialect(s string) (Dialect, bool) {
	d := Dialect(strings.ToLower(strings.TrimSpace(s)))
	return d, d == DialectSQLite || d == DialectMySQL
}

// Request is the generator payload. It is built per READ request and never
// shared between tenants.
type Request struct {
	Description string   `json:"queryDescription"`
	SchemaText  string   `json:"databaseSchema"`
	Dialect     Dialect  `json:"databaseType"`
	TableNames  []string `json:"tableNames"`
}

// Result is the generator reply. Every field is untrusted.
type Result struct {
	SQL         string   `json:"sql_query"`
	Explanation string   `json:"explanation,omitempty"`
	Confidence  float64  `json:"confidence"`
	GeneratedAt string   `json:"generated_at,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
}

// BuildRequest renders the generator request for one query. The tenant and
// today's date are spelled out so the generator can filter and resolve
// relative dates; enforcement happens later in sqlguard regardless.
func BuildRequest(text string, tenant int64, d intent.Domain, now time.Time, dialect Dialect) Request {
	if _, ok := ParseDialect(string(dialect)); !ok {
		dialect = DialectSQLite
	}
	table := domain.FinanceTable
	if d == intent.Task {
		table = domain.TaskTable
	}

	today := domain.DateOf(now)
	var b strings.Builder
	fmt.Fprintf(&b, "Current date context:\n")
	fmt.Fprintf(&b, "- Today: %s\n", today)
	fmt.Fprintf(&b, "- Yesterday: %s\n", today.AddDays(-1))
	fmt.Fprintf(&b, "- Tomorrow: %s\n", today.AddDays(1))
	fmt.Fprintf(&b, "- Day after tomorrow: %s\n\n", today.AddDays(2))
	fmt.Fprintf(&b, "User query: %q\n", strings.TrimSpace(text))
	fmt.Fprintf(&b, "User ID: %d\n", tenant)
	fmt.Fprintf(&b, "Domain: %s\n\n", d)
	fmt.Fprintf(&b, "IMPORTANT: Generate ONLY a single SELECT query. Never modify data.\n")
	fmt.Fprintf(&b, "CRITICAL: Always include %s.user_id = %d in the WHERE clause.\n", table, tenant)
	fmt.Fprintf(&b, "CRITICAL: Use the exact table name %s and no other table.\n\n", table)
	fmt.Fprintf(&b, "Examples:\n")
	for _, ex := range examples(d, tenant, today, dialect) {
		fmt.Fprintf(&b, "- %q -> %s\n", ex.question, ex.sql)
	}
	fmt.Fprintf(&b, "\nRemember: SELECT only, filtered by user_id = %d.", tenant)

	return Request{
		Description: b.String(),
		SchemaText:  SchemaText(d),
		Dialect:     dialect,
		TableNames:  []string{table},
	}
}
