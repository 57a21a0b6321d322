// Package lexicon holds ordered keyword tables and the single fold that
// evaluates them.
//
// Intent classification and slot extraction are both expressed as tables of
// (tag, keyword set) pairs. Rules are evaluated in declaration order: the
// first rule with a matching keyword wins, and the table default applies when
// nothing matches. Tables are plain data; Compile turns one into an immutable
// Matcher that is safe for concurrent use.
package lexicon

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Match selects how a keyword is located in text.
type Match string

const (
	// MatchPrefix requires the keyword to start at a word boundary, so
	// "expense" also hits "expenses".
	MatchPrefix Match = "prefix"
	// MatchWord requires a word boundary on both sides, so "add" does not
	// hit "address".
	MatchWord Match = "word"
)

// Rule maps a tag to the keywords that select it. Match overrides the
// table's mode for this rule only; short keywords such as "bus" use it to
// stay whole words in a prefix table.
type Rule struct {
	Tag      string   `yaml:"tag"`
	Keywords []string `yaml:"keywords"`
	Match    Match    `yaml:"match,omitempty"`
}

// Table is the declarative form of an ordered keyword table.
type Table struct {
	Name    string `yaml:"name"`
	Default string `yaml:"default"`
	Match   Match  `yaml:"match"`
	Rules   []Rule `yaml:"rules"`
}

// ErrEmptyTable is returned by Compile for a table without any keyword.
var ErrEmptyTable = errors.New("lexicon: table has no keywords")

type compiledRule struct {
	tag string
	re  *regexp.Regexp
	// whole covers the rest of the word the keyword starts, for removal.
	whole *regexp.Regexp
}

// Matcher is a compiled Table.
type Matcher struct {
	name  string
	def   string
	rules []compiledRule
}

// Compile validates t and builds its matcher. An empty Match means MatchPrefix.
func (t Table) Compile() (*Matcher, error) {
	tableMode := t.Match
	if tableMode == "" {
		tableMode = MatchPrefix
	}
	if tableMode != MatchPrefix && tableMode != MatchWord {
		return nil, fmt.Errorf("lexicon: table %q: unknown match mode %q", t.Name, t.Match)
	}

	m := &Matcher{name: t.Name, def: t.Default}
	for _, r := range t.Rules {
		mode := tableMode
		switch r.Match {
		case "":
		case MatchPrefix, MatchWord:
			mode = r.Match
		default:
			return nil, fmt.Errorf("lexicon: table %q rule %q: unknown match mode %q", t.Name, r.Tag, r.Match)
		}
		alts := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kw = strings.TrimSpace(strings.ToLower(kw))
			if kw == "" {
				continue
			}
			alts = append(alts, keywordPattern(kw))
		}
		if len(alts) == 0 {
			continue
		}
		expr := `(?i)\b(?:` + strings.Join(alts, "|") + `)`
		whole := expr + `\w*`
		if mode == MatchWord {
			expr += `\b`
			whole = expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("lexicon: table %q rule %q: %w", t.Name, r.Tag, err)
		}
		m.rules = append(m.rules, compiledRule{tag: r.Tag, re: re, whole: regexp.MustCompile(whole)})
	}
	if len(m.rules) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyTable, t.Name)
	}
	return m, nil
}

// MustCompile is Compile for tables declared in code.
func MustCompile(t Table) *Matcher {
	m, err := t.Compile()
	if err != nil {
		panic(err)
	}
	return m
}

// keywordPattern quotes kw and lets inner spaces match any whitespace run.
func keywordPattern(kw string) string {
	parts := strings.Fields(kw)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(parts, `\s+`)
}

// Name returns the table name.
func (m *Matcher) Name() string { return m.name }

// Default returns the tag used when no rule matches.
func (m *Matcher) Default() string { return m.def }

// Pick returns the tag of the first matching rule, or the default with
// matched=false.
func (m *Matcher) Pick(text string) (tag string, matched bool) {
	tag, _, _, matched = m.Locate(text)
	if !matched {
		return m.def, false
	}
	return tag, true
}

// Any reports whether any rule matches text.
func (m *Matcher) Any(text string) bool {
	_, ok := m.Pick(text)
	return ok
}

// Hit is the leftmost match of one rule.
type Hit struct {
	Tag        string
	Start, End int
}

// Hits returns, in table order, the leftmost match of every rule that
// matches text.
func (m *Matcher) Hits(text string) []Hit {
	var out []Hit
	for _, r := range m.rules {
		if loc := r.re.FindStringIndex(text); loc != nil {
			out = append(out, Hit{Tag: r.tag, Start: loc[0], End: loc[1]})
		}
	}
	return out
}

// Locate returns the first matching rule in table order together with the
// byte span of its leftmost hit.
func (m *Matcher) Locate(text string) (tag string, start, end int, ok bool) {
	for _, r := range m.rules {
		if loc := r.re.FindStringIndex(text); loc != nil {
			return r.tag, loc[0], loc[1], true
		}
	}
	return "", -1, -1, false
}

// ReplaceAll replaces every word hit by any rule with repl.
func (m *Matcher) ReplaceAll(text, repl string) string {
	for _, r := range m.rules {
		text = r.whole.ReplaceAllLiteralString(text, repl)
	}
	return text
}
