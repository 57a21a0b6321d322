// Package intent maps chatbot text to a domain (finance or task) and an
// operation (create or read).
//
// Classification is an ordered fold over keyword tables: task vocabulary is
// consulted before finance vocabulary and the first hit wins. Text that names
// neither domain falls back to FINANCE, and the returned Intent records that
// the fallback happened so callers can log and count it.
package intent

import (
	"strings"

	"github.com/tbourn/go-arth-chatbot/internal/lexicon"
)

// Domain is the table family a query targets.
type Domain string

// Operation is what the user wants done in that domain.
type Operation string

const (
	Finance Domain = "FINANCE"
	Task    Domain = "TASK"

	Create Operation = "CREATE"
	Read   Operation = "READ"
)

// Valid reports whether d is one of the known domains.
func (d Domain) Valid() bool { return d == Finance || d == Task }

// ParseDomain accepts "finance"/"task" in any case.
func ParseDomain(s string) (Domain, bool) {
	d := Domain(strings.ToUpper(strings.TrimSpace(s)))
	return d, d.Valid()
}

// Intent is the classification of one query.
type Intent struct {
	Domain    Domain    `json:"domain"`
	Operation Operation `json:"operation"`
	// Defaulted is true when no domain vocabulary matched.
	Defaulted bool `json:"defaulted,omitempty"`
}

// QueryType is the label used in chatbot replies, e.g. "FINANCE_CREATE".
func (i Intent) QueryType() string {
	return string(i.Domain) + "_" + string(i.Operation)
}

var (
	domains = lexicon.MustCompile(lexicon.Table{
		Name:    "domain",
		Default: string(Finance),
		Match:   lexicon.MatchPrefix,
		Rules: []lexicon.Rule{
			{Tag: string(Task), Keywords: []string{
				"task", "todo", "to-do", "assignment", "deadline", "due",
				"complete", "schedule", "remind", "meeting", "appointment",
			}},
			{Tag: string(Finance), Keywords: []string{
				"finance", "money", "expense", "income", "spend", "spent",
				"payment", "transaction", "loan", "borrow", "lend", "budget",
				"cost", "earning", "salary", "bill",
			}},
		},
	})

	operations = lexicon.MustCompile(lexicon.Table{
		Name:    "operation",
		Default: string(Read),
		Match:   lexicon.MatchWord,
		Rules: []lexicon.Rule{
			{Tag: string(Create), Keywords: []string{"add", "create", "save", "record", "new", "schedule"}},
		},
	})
)

// Classify never fails; unknown text is a FINANCE read.
func Classify(text string) Intent {
	text = strings.ToLower(text)
	d, matched := domains.Pick(text)
	op, _ := operations.Pick(text)
	return Intent{
		Domain:    Domain(d),
		Operation: Operation(op),
		Defaulted: !matched,
	}
}
