package reply

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-arth-chatbot/internal/domain"
	"github.com/tbourn/go-arth-chatbot/internal/intent"
)

// MaxListed caps how many rows a list reply shows.
const MaxListed = 10

var (
	aggregateTokens = map[string]struct{}{"total": {}, "sum": {}, "count": {}, "avg": {}}
	moneyTokens     = map[string]struct{}{"total": {}, "sum": {}, "avg": {}, "amount": {}, "min": {}, "max": {}}
)

// Format renders rows returned for a READ query. columns gives the result
// column order; when empty, keys are sorted. It returns "" for no rows.
func Format(d intent.Domain, columns []string, rows []map[string]any) string {
	if len(rows) == 0 {
		return ""
	}
	if len(columns) == 0 {
		columns = sortedKeys(rows[0])
	}

	var b strings.Builder
	switch {
	case IsAggregate(columns):
		formatAggregate(&b, d, columns, rows)
	case d == intent.Task:
		b.WriteString("📝 Task Information:\n\n")
		formatList(&b, rows, taskLine, "tasks")
	default:
		b.WriteString("💰 Finance Records:\n\n")
		formatList(&b, rows, financeLine, "records")
	}
	return strings.TrimRight(b.String(), "\n")
}

// IsAggregate reports whether any column name carries a total, sum, count or
// avg token ("total_amount", "COUNT(*)", "avg_spend").
func IsAggregate(columns []string) bool {
	for _, c := range columns {
		for _, tok := range nameTokens(c) {
			if _, ok := aggregateTokens[tok]; ok {
				return true
			}
		}
	}
	return false
}

// Label turns a column name into a display label: "transaction_type" ->
// "Transaction Type".
func Label(column string) string {
	// A Caser is stateful, so each call gets its own.
	caser := cases.Title(language.Und)
	parts := strings.Split(column, "_")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, caser.String(p))
		}
	}
	if len(out) == 0 {
		return column
	}
	return strings.Join(out, " ")
}

func formatAggregate(b *strings.Builder, d intent.Domain, columns []string, rows []map[string]any) {
	if d == intent.Task {
		b.WriteString("📊 Task Summary:\n\n")
	} else {
		b.WriteString("📊 Financial Summary:\n\n")
	}
	for _, row := range rows {
		for _, col := range columns {
			v, ok := lookup(row, col)
			if !ok {
				continue
			}
			if d == intent.Finance && isMoneyColumn(col) {
				if amt, ok := toDecimal(v); ok {
					fmt.Fprintf(b, "%s: ₹%s\n", Label(col), amt.StringFixed(2))
					continue
				}
			}
			fmt.Fprintf(b, "%s: %s\n", Label(col), plain(v))
		}
		b.WriteString("\n")
	}
}

func formatList(b *strings.Builder, rows []map[string]any, line func(map[string]any) string, noun string) {
	for i, row := range rows {
		if i == MaxListed {
			fmt.Fprintf(b, "... and %d more %s\n", len(rows)-MaxListed, noun)
			break
		}
		fmt.Fprintf(b, "%d. %s\n", i+1, line(row))
	}
}

func financeLine(row map[string]any) string {
	var b strings.Builder
	if v, ok := lookup(row, "amount"); ok {
		if amt, ok := toDecimal(v); ok {
			fmt.Fprintf(&b, "₹%s", amt.StringFixed(2))
		} else {
			b.WriteString(plain(v))
		}
	}
	if v, ok := lookup(row, "transaction_type", "transactiontype"); ok {
		fmt.Fprintf(&b, " (%s)", plain(v))
	}
	if v, ok := lookup(row, "category"); ok {
		fmt.Fprintf(&b, " - %s", plain(v))
	}
	if v, ok := lookup(row, "description"); ok {
		fmt.Fprintf(&b, " - %s", plain(v))
	}
	if v, ok := lookup(row, "transaction_date", "transactiondate"); ok {
		fmt.Fprintf(&b, " [%s]", plain(v))
	}
	return strings.TrimSpace(b.String())
}

func taskLine(row map[string]any) string {
	var b strings.Builder
	if v, ok := lookup(row, "title"); ok {
		b.WriteString(plain(v))
	}
	if v, ok := lookup(row, "priority"); ok {
		fmt.Fprintf(&b, " [%s priority]", plain(v))
	}
	if v, ok := lookup(row, "type"); ok {
		fmt.Fprintf(&b, " (%s)", plain(v))
	}
	if v, ok := lookup(row, "completed"); ok {
		if truthy(v) {
			b.WriteString(" ✅")
		} else {
			b.WriteString(" ⏳")
		}
	}
	if v, ok := lookup(row, "due_date", "duedate"); ok {
		fmt.Fprintf(&b, " - Due: %s", plain(v))
	}
	if v, ok := lookup(row, "description"); ok {
		if desc := plain(v); desc != domain.DefaultDescription {
			fmt.Fprintf(&b, "\n   Description: %s", desc)
		}
	}
	return strings.TrimSpace(b.String())
}

// lookup finds the first non-nil value under any of names, ignoring case.
func lookup(row map[string]any, names ...string) (any, bool) {
	for _, n := range names {
		if v, ok := row[n]; ok && v != nil {
			return v, true
		}
		for k, v := range row {
			if v != nil && strings.EqualFold(k, n) {
				return v, true
			}
		}
	}
	return nil, false
}

func plain(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(domain.DateLayout)
		}
		return x.Format("2006-01-02 15:04:05")
	case domain.Date:
		return x.String()
	case *domain.Date:
		if x == nil {
			return "-"
		}
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, true
	case float64:
		return decimal.NewFromFloat(x), true
	case float32:
		return decimal.NewFromFloat32(x), true
	case int64:
		return decimal.NewFromInt(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt32(x), true
	case []byte:
		return toDecimal(string(x))
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case int:
		return x != 0
	case []byte:
		return truthy(string(x))
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return err == nil && b
	}
	return false
}

// isMoneyColumn reports whether a finance aggregate column holds an amount.
// Counts never do.
func isMoneyColumn(col string) bool {
	money := false
	for _, tok := range nameTokens(col) {
		if tok == "count" {
			return false
		}
		if _, ok := moneyTokens[tok]; ok {
			money = true
		}
	}
	return money
}

func nameTokens(col string) []string {
	return strings.FieldsFunc(strings.ToLower(col), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
