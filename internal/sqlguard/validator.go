// Package sqlguard is the boundary between SQL text produced by the
// external generator and the database.
//
// Validate accepts untrusted SQL for a declared domain and tenant and
// either rejects it or returns a ValidatedQuery: a single SELECT over the
// domain's table, filtered by the tenant's user_id and capped by a LIMIT.
// ValidatedQuery has no exported fields, so no other package can build one
// without passing through Validate.
package sqlguard

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tbourn/go-arth-chatbot/internal/intent"
)

// Reason says which gate refused a query. It is for logs and metrics only;
// users never see it.
type Reason string

const (
	ReasonNotSelect          Reason = "not_select"
	ReasonBlockedKeyword     Reason = "blocked_keyword"
	ReasonInjection          Reason = "injection_pattern"
	ReasonForbiddenConstruct Reason = "forbidden_construct"
	ReasonMalformed          Reason = "malformed"
	ReasonTableAccess        Reason = "table_access"
	ReasonTenant             Reason = "invalid_tenant"
)

// ErrRejected matches every *Rejection via errors.Is.
var ErrRejected = errors.New("sqlguard: query rejected")

// Rejection is returned for any refused query. Its message is deliberately
// the same for every reason.
type Rejection struct {
	Reason Reason
	// Detail names the keyword, pattern or construct. Log it, never return it.
	Detail string
}

func (r *Rejection) Error() string { return ErrRejected.Error() }

// Is lets errors.Is(err, ErrRejected) match.
func (r *Rejection) Is(target error) bool { return target == ErrRejected }

func reject(reason Reason, detail string) *Rejection {
	return &Rejection{Reason: reason, Detail: detail}
}

// ValidatedQuery is SQL that passed every gate.
type ValidatedQuery struct {
	sql    string
	domain intent.Domain
	tenant int64
	limit  int
}

// SQL returns the rewritten statement.
func (q ValidatedQuery) SQL() string { return q.sql }

// Domain returns the domain the query was validated for.
func (q ValidatedQuery) Domain() intent.Domain { return q.domain }

// Tenant returns the tenant the query is scoped to.
func (q ValidatedQuery) Tenant() int64 { return q.tenant }

// Limit returns the effective row cap.
func (q ValidatedQuery) Limit() int { return q.limit }

// IsZero reports whether q is the zero value, which is never valid.
func (q ValidatedQuery) IsZero() bool { return q.sql == "" }

func (q ValidatedQuery) String() string { return q.sql }

// DefaultBlocklist holds statement and session keywords that never belong
// in a read.
var DefaultBlocklist = []string{
	"DROP", "DELETE", "TRUNCATE", "ALTER", "CREATE", "INSERT", "UPDATE", "EXEC", "EXECUTE",
	"UNION", "SCRIPT", "DECLARE", "CURSOR", "PROCEDURE", "FUNCTION", "TRIGGER", "INDEX",
	"VIEW", "GRANT", "REVOKE", "COMMIT", "ROLLBACK", "SAVEPOINT", "LOCK", "UNLOCK",
}

// DefaultInjectionPatterns are text shapes typical of injection attempts.
var DefaultInjectionPatterns = []string{
	`;\s*--`,
	`;\s*/\*`,
	`'\s*;`,
	`\bunion\s+select`,
	`\bor\s+1\s*=\s*1`,
	`\band\s+1\s*=\s*1`,
	`\bor\s+'\w+'\s*=\s*'\w+'`,
	`\$\w+\s*=`,
}

// Policy is the validator configuration.
type Policy struct {
	// DefaultLimit is appended when the query has no usable LIMIT.
	DefaultLimit int
	// MaxLimit caps any LIMIT.
	MaxLimit int
	// Tables maps each domain to the only table it may read.
	Tables            map[intent.Domain]string
	Blocklist         []string
	InjectionPatterns []string
}

// DefaultPolicy returns LIMIT 100/1000 over the finance and task tables.
func DefaultPolicy() Policy {
	return Policy{
		DefaultLimit: 100,
		MaxLimit:     1000,
		Tables: map[intent.Domain]string{
			intent.Finance: "finance",
			intent.Task:    "task",
		},
		Blocklist:         DefaultBlocklist,
		InjectionPatterns: DefaultInjectionPatterns,
	}
}

// Validator applies a Policy. It is immutable and safe for concurrent use.
type Validator struct {
	defaultLimit int
	maxLimit     int
	tables       map[intent.Domain]string
	blocked      *regexp.Regexp
	injections   []*regexp.Regexp
}

var selectPrefix = regexp.MustCompile(`(?i)^select\b`)

// New compiles p.
func New(p Policy) (*Validator, error) {
	if p.DefaultLimit <= 0 || p.MaxLimit <= 0 || p.DefaultLimit > p.MaxLimit {
		return nil, fmt.Errorf("sqlguard: invalid limits default=%d max=%d", p.DefaultLimit, p.MaxLimit)
	}
	if len(p.Tables) == 0 {
		return nil, errors.New("sqlguard: no domain tables")
	}
	v := &Validator{
		defaultLimit: p.DefaultLimit,
		maxLimit:     p.MaxLimit,
		tables:       make(map[intent.Domain]string, len(p.Tables)),
	}
	for d, t := range p.Tables {
		v.tables[d] = strings.ToLower(t)
	}

	if len(p.Blocklist) > 0 {
		words := make([]string, len(p.Blocklist))
		for i, w := range p.Blocklist {
			words[i] = regexp.QuoteMeta(w)
		}
		v.blocked = regexp.MustCompile(`(?i)\b(?:` + strings.Join(words, "|") + `)\b`)
	}
	for _, expr := range p.InjectionPatterns {
		re, err := regexp.Compile(`(?i)` + expr)
		if err != nil {
			return nil, fmt.Errorf("sqlguard: injection pattern %q: %w", expr, err)
		}
		v.injections = append(v.injections, re)
	}
	return v, nil
}

// MustNew is New that panics.
func MustNew(p Policy) *Validator {
	v, err := New(p)
	if err != nil {
		panic(err)
	}
	return v
}

var std = MustNew(DefaultPolicy())

// Default returns the validator for DefaultPolicy. It is built once at
// package init and shared.
func Default() *Validator { return std }

// Validate runs the default policy.
func Validate(sql string, d intent.Domain, tenant int64) (ValidatedQuery, error) {
	return std.Validate(sql, d, tenant)
}

// Validate checks sql for domain d and tenant. Gates run in order and the
// first failure wins:
//
//  1. must start with SELECT
//  2. no blocklisted keyword
//  3. no injection pattern
//  4. one well-formed statement (no comments, nesting or stacking)
//  5. only the domain's own table is read
//  6. tenant predicate present, or inserted as the leading WHERE conjunct
//  7. LIMIT added or clamped
//
// Errors are always *Rejection.
func (v *Validator) Validate(sql string, d intent.Domain, tenant int64) (ValidatedQuery, error) {
	table, ok := v.tables[d]
	if !ok {
		return ValidatedQuery{}, reject(ReasonTableAccess, "unknown domain "+string(d))
	}
	if tenant <= 0 {
		return ValidatedQuery{}, reject(ReasonTenant, strconv.FormatInt(tenant, 10))
	}

	sql = strings.TrimSpace(sql)
	if sql == "" || !selectPrefix.MatchString(sql) {
		return ValidatedQuery{}, reject(ReasonNotSelect, "")
	}
	if v.blocked != nil {
		if hit := v.blocked.FindString(sql); hit != "" {
			return ValidatedQuery{}, reject(ReasonBlockedKeyword, strings.ToUpper(hit))
		}
	}
	for _, re := range v.injections {
		if re.MatchString(sql) {
			return ValidatedQuery{}, reject(ReasonInjection, re.String())
		}
	}

	st, rej := parseStatement(sql)
	if rej != nil {
		return ValidatedQuery{}, rej
	}

	if rej := v.checkTables(st, d, table); rej != nil {
		return ValidatedQuery{}, rej
	}
	scopeToTenant(st, tenant)

	limit, rej := v.normalizeLimit(st)
	if rej != nil {
		return ValidatedQuery{}, rej
	}

	return ValidatedQuery{sql: st.render(), domain: d, tenant: tenant, limit: limit}, nil
}

// checkTables allows exactly one table reference, the domain's own, and no
// mention of any other domain's table.
func (v *Validator) checkTables(st *statement, d intent.Domain, table string) *Rejection {
	if len(st.tables) != 1 {
		return reject(ReasonTableAccess, fmt.Sprintf("%d table references", len(st.tables)))
	}
	if got := unquote(st.tables[0].name); got != table {
		return reject(ReasonTableAccess, "table "+got)
	}
	for other, name := range v.tables {
		if other == d {
			continue
		}
		for _, t := range st.tokens {
			if (t.kind == tokWord || t.kind == tokQuoted) && unquote(t.text) == name {
				return reject(ReasonTableAccess, "mentions "+name)
			}
		}
	}
	return nil
}

// scopeToTenant keeps a top-level "user_id = tenant" conjunct when WHERE has
// no top-level OR; otherwise it inserts "<ref>.user_id = tenant" in front,
// parenthesising the old body when it contains a top-level OR.
func scopeToTenant(st *statement, tenant int64) {
	ref := st.tables[0].ref()
	if st.seen[clauseWhere] {
		conjuncts, hasOr := splitTopLevel(st.clauseTokens(clauseWhere))
		if !hasOr {
			for _, c := range conjuncts {
				if isTenantPredicate(c, ref, tenant) {
					return
				}
			}
		}
		body := st.body(clauseWhere)
		if hasOr {
			body = "(" + body + ")"
		}
		st.set(clauseWhere, tenantPredicate(ref, tenant)+" AND "+body)
		return
	}
	st.set(clauseWhere, tenantPredicate(ref, tenant))
}

func tenantPredicate(ref string, tenant int64) string {
	return ref + ".user_id = " + strconv.FormatInt(tenant, 10)
}

// normalizeLimit accepts "n", "offset, n" and a numeric OFFSET clause.
// A missing or non-numeric LIMIT becomes the default; larger ones are
// clamped.
func (v *Validator) normalizeLimit(st *statement) (int, *Rejection) {
	if st.seen[clauseOffset] && !isDigits(st.body(clauseOffset)) {
		return 0, reject(ReasonMalformed, "non-numeric OFFSET")
	}

	offset, count := "", ""
	if st.seen[clauseLimit] {
		toks := st.clauseTokens(clauseLimit)
		switch {
		case len(toks) == 1 && toks[0].kind == tokNumber && isDigits(toks[0].text):
			count = toks[0].text
		case len(toks) == 3 && toks[1].kind == tokComma &&
			isDigits(toks[0].text) && isDigits(toks[2].text) && !st.seen[clauseOffset]:
			offset, count = toks[0].text, toks[2].text
		}
	}

	n := v.defaultLimit
	if count != "" {
		parsed, err := strconv.Atoi(count)
		switch {
		case err != nil || parsed > v.maxLimit:
			n = v.maxLimit
		default:
			n = parsed
		}
	}

	body := strconv.Itoa(n)
	if offset != "" {
		body = offset + ", " + body
	}
	st.set(clauseLimit, body)
	return n, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
