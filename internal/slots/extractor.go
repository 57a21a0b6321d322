// Package slots pulls structured fields (amount, date, category, title,
// priority, ...) out of free-text create requests.
//
// One Extractor serves both domains. What differs between finance and task
// extraction lives in the rule tables of rules.yaml; the matching, date
// resolution and description cleanup are shared. Extraction never fails:
// every field is independently optional and the caller decides which
// missing fields block the operation.
package slots

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/tbourn/go-arth-chatbot/internal/domain"
	"github.com/tbourn/go-arth-chatbot/internal/intent"
	"github.com/tbourn/go-arth-chatbot/internal/lexicon"
)

const (
	maxTitleWords        = 8
	maxCounterpartyWords = 3
	minDescriptionRunes  = 3
	maxDescriptionRunes  = 99
)

var (
	// amountMarked requires a currency marker before or after the number.
	amountMarked = regexp.MustCompile(`(?i)(?:₹|\$|\brs\.?|\brupees?|\binr)\s*(\d+(?:,\d{3})*(?:\.\d{1,2})?)\b` +
		`|\b(\d+(?:,\d{3})*(?:\.\d{1,2})?)\s*(?:₹|\$|rs\b\.?|rupees?\b|dollars?\b|inr\b)`)
	amountBare  = regexp.MustCompile(`\b\d+(?:,\d{3})*(?:\.\d{1,2})?\b`)
	absDate     = regexp.MustCompile(`\b(\d{1,2})[-/](\d{1,2})[-/](\d{4})\b`)
	counterpart = regexp.MustCompile(`(?i)\b(?:from|to)\s+(.+)`)
)

const edgePunct = ",.;:!?\"'()-"

// Slots is implemented by FinanceSlots and TaskSlots.
type Slots interface {
	Domain() intent.Domain
	// Missing lists mandatory fields that were not found.
	Missing() []string
}

// FinanceSlots are the fields of a finance create request.
type FinanceSlots struct {
	Amount          *decimal.Decimal       `json:"amount,omitempty"`
	TransactionType domain.TransactionType `json:"transaction_type"`
	Category        string                 `json:"category,omitempty"`
	Date            *domain.Date           `json:"date,omitempty"`
	Description     string                 `json:"description,omitempty"`
	PaymentMethod   string                 `json:"payment_method,omitempty"`
	Counterparty    string                 `json:"counterparty,omitempty"`
}

// Domain implements Slots.
func (FinanceSlots) Domain() intent.Domain { return intent.Finance }

// Missing implements Slots.
func (s FinanceSlots) Missing() []string {
	if s.Amount == nil {
		return []string{"amount"}
	}
	return nil
}

// TaskSlots are the fields of a task create request.
type TaskSlots struct {
	Title       string          `json:"title,omitempty"`
	Priority    domain.Priority `json:"priority"`
	Type        domain.TaskType `json:"type"`
	DueDate     *domain.Date    `json:"due_date,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Domain implements Slots.
func (TaskSlots) Domain() intent.Domain { return intent.Task }

// Missing implements Slots.
func (s TaskSlots) Missing() []string {
	if s.Title == "" {
		return []string{"title"}
	}
	return nil
}

// Extractor applies a rule set. It holds no mutable state.
type Extractor struct {
	rules *Rules
}

// New returns an Extractor over r; nil means the embedded defaults.
func New(r *Rules) *Extractor {
	if r == nil {
		r = DefaultRules()
	}
	return &Extractor{rules: r}
}

// Extract dispatches on domain. Relative dates resolve against now.
func (e *Extractor) Extract(d intent.Domain, text string, now time.Time) Slots {
	if d == intent.Task {
		return e.Task(text, now)
	}
	return e.Finance(text, now)
}

// Finance extracts finance fields from text.
func (e *Extractor) Finance(text string, now time.Time) FinanceSlots {
	r := e.rules
	var s FinanceSlots

	if amt, ok := extractAmount(text); ok {
		s.Amount = &amt
	}
	tt, _ := r.transactionTypes.Pick(text)
	s.TransactionType = domain.TransactionType(tt)
	s.Category, _ = r.categories.Pick(text)
	s.PaymentMethod, _ = r.paymentMethods.Pick(text)
	s.Date = e.resolveDate(text, now, r.dates)
	if s.TransactionType == domain.TransactionLoan || s.TransactionType == domain.TransactionBorrow {
		s.Counterparty = e.counterparty(text)
	}
	s.Description = e.financeDescription(text)
	return s
}

// Task extracts task fields from text.
func (e *Extractor) Task(text string, now time.Time) TaskSlots {
	r := e.rules
	var s TaskSlots

	s.Title = e.title(text)
	p, _ := r.priorities.Pick(text)
	s.Priority = domain.Priority(p)
	tt, _ := r.taskTypes.Pick(text)
	s.Type = domain.TaskType(tt)
	s.DueDate = e.resolveDate(text, now, r.dates, r.taskDates)
	s.Description = e.taskDescription(text, s.Title)
	return s
}

func extractAmount(text string) (decimal.Decimal, bool) {
	text = absDate.ReplaceAllString(text, " ")

	var raw string
	if m := amountMarked.FindStringSubmatch(text); m != nil {
		raw = m[1]
		if raw == "" {
			raw = m[2]
		}
	} else {
		raw = amountBare.FindString(text)
	}
	if raw == "" {
		return decimal.Decimal{}, false
	}
	amt, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil || !amt.IsPositive() {
		return decimal.Decimal{}, false
	}
	return amt, true
}

// resolveDate checks relative terms (tables in order) before an absolute
// D-M-YYYY date. Days that do not exist yield nil.
func (e *Extractor) resolveDate(text string, now time.Time, tables ...dateTable) *domain.Date {
	today := domain.DateOf(now)
	for _, t := range tables {
		if tag, _, _, ok := t.m.Locate(text); ok {
			off := t.offsets[tag]
			d := today.AddMonths(off.months).AddDays(off.days)
			return &d
		}
	}
	m := absDate.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	d, ok := domain.NewDate(year, time.Month(month), day)
	if !ok {
		return nil
	}
	return &d
}

func (e *Extractor) stripDates(s string) string {
	s = e.rules.dates.m.ReplaceAll(s, " ")
	s = e.rules.taskDates.m.ReplaceAll(s, " ")
	return absDate.ReplaceAllString(s, " ")
}

// startsWithDate reports whether s begins with a relative date phrase.
func (e *Extractor) startsWithDate(s string) bool {
	for _, t := range []dateTable{e.rules.dates, e.rules.taskDates} {
		for _, h := range t.m.Hits(s) {
			if h.Start == 0 {
				return true
			}
		}
	}
	return false
}

// takeWords collects up to max words from the front of words, stopping at a
// stop word or date.
func (e *Extractor) takeWords(words []string, max int) string {
	out := make([]string, 0, max)
	for i, w := range words {
		if len(out) == max {
			break
		}
		bare := strings.Trim(w, edgePunct)
		if bare == "" {
			continue
		}
		if e.rules.titleStops.Any(bare) || absDate.MatchString(bare) || e.startsWithDate(strings.Join(words[i:], " ")) {
			break
		}
		out = append(out, bare)
	}
	return strings.Join(out, " ")
}

// title takes the words after the first anchor that yields any. An anchor
// inside a longer anchor that already matched ("create" in "create task")
// is not tried again, so the command words never become the title.
func (e *Extractor) title(text string) string {
	var tried []lexicon.Hit
	for _, h := range e.rules.titleAnchors.Hits(text) {
		if within(h, tried) {
			continue
		}
		tried = append(tried, h)
		words := strings.Fields(text[h.End:])
		for len(words) > 0 && isFiller(words[0]) {
			words = words[1:]
		}
		if t := e.takeWords(words, maxTitleWords); t != "" {
			return t
		}
	}
	return ""
}

func within(h lexicon.Hit, spans []lexicon.Hit) bool {
	for _, o := range spans {
		if h.Start >= o.Start && h.End <= o.End {
			return true
		}
	}
	return false
}

func isFiller(w string) bool {
	switch strings.ToLower(strings.Trim(w, edgePunct)) {
	case "to", "a", "an":
		return true
	}
	return false
}

func (e *Extractor) counterparty(text string) string {
	m := counterpart.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return e.takeWords(strings.Fields(m[1]), maxCounterpartyWords)
}

func (e *Extractor) financeDescription(text string) string {
	r := e.rules
	for _, h := range r.financeAnchors.Hits(text) {
		if d := e.cleanFinance(text[h.End:]); validDescription(d) {
			return d
		}
	}
	d := e.cleanFinance(r.financeAnchors.ReplaceAll(r.financeNoise.ReplaceAll(text, " "), " "))
	if validDescription(d) && !r.priorities.Any(d) {
		return d
	}
	return ""
}

func (e *Extractor) cleanFinance(s string) string {
	s = e.stripDates(s)
	s = amountMarked.ReplaceAllString(s, " ")
	s = amountBare.ReplaceAllString(s, " ")
	return squash(s)
}

// taskDescription tries each anchor, then the whole text. The title, dates,
// priority words and command words never count as a description.
func (e *Extractor) taskDescription(text, title string) string {
	for _, h := range e.rules.taskAnchors.Hits(text) {
		if d := e.cleanTask(text[h.End:], title); validDescription(d) {
			return d
		}
	}
	if d := e.cleanTask(text, title); validDescription(d) {
		return d
	}
	return ""
}

func (e *Extractor) cleanTask(s, title string) string {
	if title != "" {
		s = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(title)).ReplaceAllLiteralString(s, " ")
	}
	s = e.stripDates(s)
	s = e.rules.priorities.ReplaceAll(s, " ")
	s = e.rules.taskNoise.ReplaceAll(s, " ")
	return squash(s)
}

// squash collapses whitespace and trims edge punctuation.
func squash(s string) string {
	return strings.Trim(strings.Join(strings.Fields(s), " "), edgePunct+" ")
}

func validDescription(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= minDescriptionRunes && n <= maxDescriptionRunes
}
