package resolver

import (
	"regexp"
	"sort"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// refFuncPattern matches templated ref("name") call syntax so it can be
// substituted with the bare identifier before parsing (spec §4.3, last
// paragraph).
var refFuncPattern = regexp.MustCompile(`(?i)ref\(\s*"([a-zA-Z_][a-zA-Z0-9_]*)"\s*\)`)

// substituteRefCalls textually rewrites ref("name") into name so the
// downstream SQL parser sees an ordinary table reference.
func substituteRefCalls(sql string) string {
	return refFuncPattern.ReplaceAllString(sql, "$1")
}

// SubstituteRefCalls exposes substituteRefCalls for the executor, which
// performs the same textual pre-processing on a model's SQL immediately
// before execution (spec §4.6 item 3).
func SubstituteRefCalls(sql string) string {
	return substituteRefCalls(sql)
}

// extractReferences returns the set of distinct table identifiers referenced
// by sql, excluding any name in excludeLocal (CTE names defined within the
// same statement). It handles FROM, JOIN, subqueries and set operations via
// sqlparser.Walk, and WITH-clause CTEs via a hand-rolled split since
// xwb1989/sqlparser (a vitess-era fork) does not parse the WITH keyword.
func extractReferences(sql string) (map[string]bool, error) {
	sql = substituteRefCalls(sql)

	ctes, rest := splitCTEs(sql)

	refs := make(map[string]bool)
	local := make(map[string]bool, len(ctes))
	for name := range ctes {
		local[name] = true
	}

	for _, body := range ctes {
		found, err := referencesInStatement(body)
		if err != nil {
			return nil, err
		}
		for r := range found {
			if !local[r] {
				refs[r] = true
			}
		}
	}

	found, err := referencesInStatement(rest)
	if err != nil {
		return nil, err
	}
	for r := range found {
		if !local[r] {
			refs[r] = true
		}
	}

	return refs, nil
}

// referencesInStatement parses a single (non-WITH) SQL statement and walks
// it collecting every table name referenced by FROM, JOIN, or subquery
// clauses, including across UNION/INTERSECT/EXCEPT branches.
func referencesInStatement(sql string) (map[string]bool, error) {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return map[string]bool{}, nil
	}

	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, err
	}

	refs := make(map[string]bool)
	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		// Only table expressions count: a TableName also appears as the
		// qualifier of a column (a.id) or star (a.*), which names an alias.
		if ate, ok := node.(*sqlparser.AliasedTableExpr); ok {
			if tn, ok := ate.Expr.(sqlparser.TableName); ok && !tn.IsEmpty() {
				refs[tn.Name.String()] = true
			}
		}
		return true, nil
	}, stmt)

	return refs, nil
}

// splitCTEs detects a leading WITH clause and splits it into a map of CTE
// name → body plus the remaining main statement. It understands nested
// parentheses so a CTE body may itself contain subqueries. Returns an empty
// map and the original sql unchanged if sql has no top-level WITH clause.
func splitCTEs(sql string) (map[string]string, string) {
	trimmed := strings.TrimSpace(sql)
	if len(trimmed) < 4 || !strings.EqualFold(trimmed[:4], "with") {
		return map[string]string{}, sql
	}

	rest := strings.TrimSpace(trimmed[4:])
	ctes := make(map[string]string)

	for {
		name, body, remainder, ok := splitOneCTE(rest)
		if !ok {
			break
		}
		ctes[name] = body
		rest = strings.TrimSpace(remainder)
		if strings.HasPrefix(rest, ",") {
			rest = strings.TrimSpace(rest[1:])
			continue
		}
		break
	}

	if len(ctes) == 0 {
		return map[string]string{}, sql
	}
	return ctes, rest
}

// splitOneCTE parses "name AS ( body ) , ...rest" from the front of s.
func splitOneCTE(s string) (name, body, remainder string, ok bool) {
	fields := strings.SplitN(s, "(", 2)
	if len(fields) != 2 {
		return "", "", "", false
	}
	head := strings.TrimSpace(fields[0])
	head = strings.TrimSuffix(strings.TrimSpace(head), "AS")
	head = strings.TrimSuffix(strings.TrimSpace(head), "as")
	name = strings.Trim(strings.TrimSpace(head), `"`+"`")
	if name == "" {
		return "", "", "", false
	}

	depth := 1
	rest := fields[1]
	for i, r := range rest {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return name, rest[:i], rest[i+1:], true
			}
		}
	}
	return "", "", "", false
}

// sortedNames is a small helper for deterministic error messages and tests.
func sortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
