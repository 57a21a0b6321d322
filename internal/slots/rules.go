package slots

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tbourn/go-arth-chatbot/internal/lexicon"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// ruleFile mirrors rules.yaml.
type ruleFile struct {
	TransactionTypes lexicon.Table `yaml:"transaction_types"`
	Categories       lexicon.Table `yaml:"categories"`
	PaymentMethods   lexicon.Table `yaml:"payment_methods"`
	Priorities       lexicon.Table `yaml:"priorities"`
	TaskTypes        lexicon.Table `yaml:"task_types"`
	Dates            lexicon.Table `yaml:"dates"`
	TaskDates        lexicon.Table `yaml:"task_dates"`
	FinanceAnchors   lexicon.Table `yaml:"finance_anchors"`
	FinanceNoise     lexicon.Table `yaml:"finance_noise"`
	TitleAnchors     lexicon.Table `yaml:"title_anchors"`
	TitleStops       lexicon.Table `yaml:"title_stops"`
	TaskAnchors      lexicon.Table `yaml:"task_anchors"`
	TaskNoise        lexicon.Table `yaml:"task_noise"`
}

// offset is a relative date resolved against "today".
type offset struct {
	days   int
	months int
}

// dateTable pairs a relative-date matcher with its parsed offsets.
type dateTable struct {
	m       *lexicon.Matcher
	offsets map[string]offset
}

// Rules is the compiled, read-only form of a rule file.
type Rules struct {
	transactionTypes *lexicon.Matcher
	categories       *lexicon.Matcher
	paymentMethods   *lexicon.Matcher
	priorities       *lexicon.Matcher
	taskTypes        *lexicon.Matcher
	dates            dateTable
	taskDates        dateTable
	financeAnchors   *lexicon.Matcher
	financeNoise     *lexicon.Matcher
	titleAnchors     *lexicon.Matcher
	titleStops       *lexicon.Matcher
	taskAnchors      *lexicon.Matcher
	taskNoise        *lexicon.Matcher
}

// ParseRules compiles a YAML rule file.
func ParseRules(b []byte) (*Rules, error) {
	var f ruleFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("slots: parse rules: %w", err)
	}

	r := &Rules{}
	targets := []struct {
		dst **lexicon.Matcher
		tbl lexicon.Table
	}{
		{&r.transactionTypes, f.TransactionTypes},
		{&r.categories, f.Categories},
		{&r.paymentMethods, f.PaymentMethods},
		{&r.priorities, f.Priorities},
		{&r.taskTypes, f.TaskTypes},
		{&r.financeAnchors, f.FinanceAnchors},
		{&r.financeNoise, f.FinanceNoise},
		{&r.titleAnchors, f.TitleAnchors},
		{&r.titleStops, f.TitleStops},
		{&r.taskAnchors, f.TaskAnchors},
		{&r.taskNoise, f.TaskNoise},
	}
	for _, t := range targets {
		m, err := t.tbl.Compile()
		if err != nil {
			return nil, err
		}
		*t.dst = m
	}

	var err error
	if r.dates, err = compileDates(f.Dates); err != nil {
		return nil, err
	}
	if r.taskDates, err = compileDates(f.TaskDates); err != nil {
		return nil, err
	}
	return r, nil
}

func compileDates(t lexicon.Table) (dateTable, error) {
	m, err := t.Compile()
	if err != nil {
		return dateTable{}, err
	}
	dt := dateTable{m: m, offsets: make(map[string]offset, len(t.Rules))}
	for _, rule := range t.Rules {
		off, err := parseOffset(rule.Tag)
		if err != nil {
			return dateTable{}, fmt.Errorf("slots: table %q: %w", t.Name, err)
		}
		dt.offsets[rule.Tag] = off
	}
	return dt, nil
}

// parseOffset reads "+2d", "-1d", "0d" or "+1m".
func parseOffset(tag string) (offset, error) {
	tag = strings.TrimSpace(tag)
	if len(tag) < 2 {
		return offset{}, fmt.Errorf("bad date offset %q", tag)
	}
	unit := tag[len(tag)-1]
	n, err := strconv.Atoi(strings.TrimPrefix(tag[:len(tag)-1], "+"))
	if err != nil {
		return offset{}, fmt.Errorf("bad date offset %q: %w", tag, err)
	}
	switch unit {
	case 'd':
		return offset{days: n}, nil
	case 'm':
		return offset{months: n}, nil
	}
	return offset{}, fmt.Errorf("bad date offset unit in %q", tag)
}

var defaultRules = mustParseRules(defaultRulesYAML)

func mustParseRules(b []byte) *Rules {
	r, err := ParseRules(b)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRules returns the rules embedded in the binary.
func DefaultRules() *Rules { return defaultRules }
