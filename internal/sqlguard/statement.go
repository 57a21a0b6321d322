package sqlguard

import (
	"strconv"
	"strings"
)

// clause identifies a top-level clause of a SELECT statement.
type clause int

const (
	clauseSelect clause = iota
	clauseFrom
	clauseWhere
	clauseGroupBy
	clauseHaving
	clauseOrderBy
	clauseLimit
	clauseOffset
	numClauses
)

var clauseKeywords = [numClauses]string{"SELECT", "FROM", "WHERE", "GROUP BY", "HAVING", "ORDER BY", "LIMIT", "OFFSET"}

// forbiddenWords cannot appear anywhere in a chatbot read, even where the
// blocklist would allow them.
var forbiddenWords = map[string]bool{
	"INTO": true, "OUTFILE": true, "DUMPFILE": true, "LOAD_FILE": true, "LOAD_EXTENSION": true,
	"ATTACH": true, "DETACH": true, "PRAGMA": true, "INTERSECT": true, "EXCEPT": true,
	"SLEEP": true, "BENCHMARK": true,
}

// fromKeywords end a table reference inside FROM.
var fromKeywords = map[string]bool{
	"AS": true, "ON": true, "USING": true, "JOIN": true, "INNER": true, "LEFT": true, "RIGHT": true,
	"FULL": true, "OUTER": true, "CROSS": true, "NATURAL": true,
}

// tableRef is one table named in FROM.
type tableRef struct {
	name  string // as written
	alias string // as written, "" when absent
}

// ref is how predicates should address the table.
func (t tableRef) ref() string {
	if t.alias != "" {
		return t.alias
	}
	return t.name
}

// clauseMark is the keyword span that opens a clause.
type clauseMark struct {
	c          clause
	start, end int
}

// statement is the minimal structure of a single SELECT: the verbatim body
// of each clause plus the tables FROM names.
type statement struct {
	bodies [numClauses]string
	seen   [numClauses]bool
	tables []tableRef
	tokens []token
	marks  []clauseMark
}

func (st *statement) body(c clause) string { return st.bodies[c] }

func (st *statement) set(c clause, body string) {
	st.bodies[c] = body
	st.seen[c] = body != ""
}

// parseStatement builds the statement model. The caller has already
// checked the text starts with SELECT.
func parseStatement(sql string) (*statement, *Rejection) {
	toks := tokenize(sql)
	st := &statement{tokens: toks}

	var marks []clauseMark
	depth := 0
	selects := 0

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch t.kind {
		case tokComment:
			return nil, reject(ReasonForbiddenConstruct, "comment")
		case tokIllegal:
			return nil, reject(ReasonMalformed, "unterminated literal or escape")
		case tokSemicolon:
			if i != len(toks)-1 {
				return nil, reject(ReasonForbiddenConstruct, "stacked statement")
			}
			toks = toks[:i]
			continue
		case tokLParen:
			depth++
			continue
		case tokRParen:
			depth--
			if depth < 0 {
				return nil, reject(ReasonMalformed, "unbalanced parentheses")
			}
			continue
		case tokWord:
		default:
			continue
		}

		up := t.upper()
		if forbiddenWords[up] {
			return nil, reject(ReasonForbiddenConstruct, up)
		}
		if up == "SELECT" {
			selects++
			if selects > 1 {
				return nil, reject(ReasonForbiddenConstruct, "nested select")
			}
		}
		if depth > 0 {
			continue
		}

		c, width := clauseAt(toks, i)
		if c < 0 {
			continue
		}
		if len(marks) > 0 && c <= marks[len(marks)-1].c {
			return nil, reject(ReasonMalformed, "clause out of order: "+clauseKeywords[c])
		}
		marks = append(marks, clauseMark{c: c, start: t.pos, end: toks[i+width-1].end})
		i += width - 1
	}
	if depth != 0 {
		return nil, reject(ReasonMalformed, "unbalanced parentheses")
	}
	if len(marks) == 0 || marks[0].c != clauseSelect || marks[0].start != toks[0].pos {
		return nil, reject(ReasonNotSelect, "")
	}

	end := len(sql)
	if n := len(toks); n > 0 {
		end = toks[n-1].end
	}
	for k, m := range marks {
		stop := end
		if k+1 < len(marks) {
			stop = marks[k+1].start
		}
		body := strings.TrimSpace(sql[m.end:stop])
		if body == "" {
			return nil, reject(ReasonMalformed, "empty "+clauseKeywords[m.c])
		}
		st.set(m.c, body)
	}
	st.tokens = toks
	st.marks = marks

	if !st.seen[clauseFrom] {
		return nil, reject(ReasonMalformed, "missing FROM")
	}
	if st.seen[clauseOffset] && !st.seen[clauseLimit] {
		return nil, reject(ReasonMalformed, "OFFSET without LIMIT")
	}

	tables, rej := parseFrom(st.clauseTokens(clauseFrom))
	if rej != nil {
		return nil, rej
	}
	st.tables = tables
	return st, nil
}

// clauseAt reports the clause keyword starting at toks[i] and how many
// tokens it spans, or -1.
func clauseAt(toks []token, i int) (clause, int) {
	t := toks[i]
	switch t.upper() {
	case "SELECT":
		return clauseSelect, 1
	case "FROM":
		return clauseFrom, 1
	case "WHERE":
		return clauseWhere, 1
	case "HAVING":
		return clauseHaving, 1
	case "LIMIT":
		return clauseLimit, 1
	case "OFFSET":
		return clauseOffset, 1
	case "GROUP", "ORDER":
		if i+1 < len(toks) && toks[i+1].isWord("BY") {
			if t.upper() == "GROUP" {
				return clauseGroupBy, 2
			}
			return clauseOrderBy, 2
		}
	}
	return -1, 0
}

// clauseTokens returns the tokens that form the body of clause c.
func (st *statement) clauseTokens(c clause) []token {
	for k, m := range st.marks {
		if m.c != c {
			continue
		}
		var out []token
		for _, t := range st.tokens {
			if t.pos < m.end {
				continue
			}
			if k+1 < len(st.marks) && t.pos >= st.marks[k+1].start {
				break
			}
			out = append(out, t)
		}
		return out
	}
	return nil
}

// parseFrom extracts table references from the FROM body. Schema-qualified
// names, table functions and parenthesised sources are refused.
func parseFrom(toks []token) ([]tableRef, *Rejection) {
	var tables []tableRef
	expectTable := true
	depth := 0
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch t.kind {
		case tokLParen:
			if expectTable {
				return nil, reject(ReasonForbiddenConstruct, "parenthesised FROM source")
			}
			depth++
			continue
		case tokRParen:
			depth--
			continue
		}
		if depth > 0 {
			continue
		}

		if expectTable {
			if (t.kind != tokWord && t.kind != tokQuoted) || fromKeywords[t.upper()] {
				return nil, reject(ReasonMalformed, "expected table name")
			}
			if i+1 < len(toks) {
				switch toks[i+1].kind {
				case tokDot:
					return nil, reject(ReasonForbiddenConstruct, "qualified table name")
				case tokLParen:
					return nil, reject(ReasonForbiddenConstruct, "table function")
				}
			}
			ref := tableRef{name: t.text}
			if i+2 < len(toks) && toks[i+1].isWord("AS") {
				ref.alias = toks[i+2].text
				i += 2
			} else if i+1 < len(toks) && (toks[i+1].kind == tokWord || toks[i+1].kind == tokQuoted) && !fromKeywords[toks[i+1].upper()] {
				ref.alias = toks[i+1].text
				i++
			}
			tables = append(tables, ref)
			expectTable = false
			continue
		}

		if t.kind == tokComma || t.isWord("JOIN") {
			expectTable = true
		}
	}
	if expectTable {
		return nil, reject(ReasonMalformed, "expected table name")
	}
	return tables, nil
}

// unquote strips identifier quotes and lowercases.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '`') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	return strings.ToLower(s)
}

// splitTopLevel splits where-clause tokens on top-level AND and reports
// whether a top-level disjunction exists: OR, XOR or MySQL's "||". The AND
// of BETWEEN x AND y does not split.
func splitTopLevel(toks []token) (conjuncts [][]token, hasOr bool) {
	depth := 0
	between := false
	cur := []token{}
	for i, t := range toks {
		switch t.kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
		}
		if depth == 0 && i > 0 && isPipe(t) && isPipe(toks[i-1]) && toks[i-1].end == t.pos {
			hasOr = true
		}
		if depth == 0 && t.kind == tokWord {
			switch t.upper() {
			case "OR", "XOR":
				hasOr = true
			case "BETWEEN":
				between = true
			case "AND":
				if between {
					between = false
				} else {
					conjuncts = append(conjuncts, cur)
					cur = []token{}
					continue
				}
			}
		}
		cur = append(cur, t)
	}
	return append(conjuncts, cur), hasOr
}

func isPipe(t token) bool { return t.kind == tokOp && t.text == "|" }

// isTenantPredicate matches "user_id = N" or "<ref>.user_id = N".
func isTenantPredicate(toks []token, ref string, tenant int64) bool {
	want := strconv.FormatInt(tenant, 10)
	switch len(toks) {
	case 3:
		return unquote(toks[0].text) == "user_id" && toks[0].kind != tokString &&
			toks[1].text == "=" && toks[2].kind == tokNumber && toks[2].text == want
	case 5:
		return toks[0].kind != tokString && unquote(toks[0].text) == unquote(ref) &&
			toks[1].kind == tokDot &&
			unquote(toks[2].text) == "user_id" && toks[2].kind != tokString &&
			toks[3].text == "=" && toks[4].kind == tokNumber && toks[4].text == want
	}
	return false
}

// render writes the statement with uppercase clause keywords and single
// spaces between clauses; clause bodies are kept verbatim.
func (st *statement) render() string {
	var b strings.Builder
	for c := clauseSelect; c < numClauses; c++ {
		if !st.seen[c] {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(clauseKeywords[c])
		b.WriteByte(' ')
		b.WriteString(st.bodies[c])
	}
	return b.String()
}
