// Package safety implements C11: the query admissibility validator. A
// statement is admitted only if it is a single read statement within the
// configured length and row-limit caps (spec.md §4.11).
//
// The rule cascade mirrors the teacher's internal/config/yaml_config.go
// IsYamlOnlyKey cascade: a small ordered set of named checks, first failure
// wins, no third-party dependency needed for a closed keyword list.
package safety

import (
	"strings"

	"github.com/steveyegge/curq/internal/qerrors"
)

// mutatingTokens are statement-leading keywords that disqualify a query as
// a read. Checked case-insensitively against the first non-whitespace token
// of each top-level statement.
var mutatingTokens = map[string]bool{
	"insert": true, "update": true, "delete": true, "merge": true,
	"create": true, "drop": true, "alter": true, "truncate": true,
	"grant": true, "revoke": true,
	"set": true, "use": true, "call": true, "replace": true,
	"begin": true, "commit": true, "rollback": true,
	"load": true, "copy": true, "vacuum": true, "attach": true,
}

// Options bounds the validator's checks; these come from the matching
// fields on types.DataSourceConfig (MaxQueryLen, MaxRows).
type Options struct {
	MaxQueryLen int
	MaxRows     int
}

// Validate checks a SQL string and the requested row limit against the
// admissibility rules in spec.md §4.11. On the first violated rule it
// returns an InvalidQuery error naming that rule; otherwise nil.
func Validate(sql string, rowLimit int, opts Options) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return qerrors.New(qerrors.KindInvalidQuery, "query text is empty",
			"only read statements are admitted")
	}

	if opts.MaxQueryLen > 0 && len(sql) > opts.MaxQueryLen {
		return qerrors.New(qerrors.KindInvalidQuery, "query exceeds the configured length cap",
			"reduce query length or raise max_query_len")
	}

	statements := splitStatements(trimmed)
	if len(statements) != 1 {
		return qerrors.New(qerrors.KindInvalidQuery, "query must contain exactly one top-level statement",
			"remove the additional statement(s) or semicolon-separated batches")
	}

	if tok := leadingToken(statements[0]); mutatingTokens[tok] {
		return qerrors.New(qerrors.KindInvalidQuery, "only read statements are admitted",
			"rule: no data-definition, data-manipulation, grant/revoke, or session-changing statements")
	}

	if rowLimit < 1 || (opts.MaxRows > 0 && rowLimit > opts.MaxRows) {
		return qerrors.New(qerrors.KindInvalidQuery, "row limit is outside the admissible range",
			"rule: row limit must be within [1, configured_max]")
	}

	return nil
}

// splitStatements splits on every semicolon (a semicolon inside a string
// literal or comment is not told apart from a separator), tolerating a single
// trailing semicolon (the common "terminated statement" shape) without
// counting it as a second, empty statement.
func splitStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	var out []string
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			if i == len(parts)-1 {
				continue // trailing semicolon, not a second statement
			}
			continue // empty segment between semicolons is not a statement
		}
		out = append(out, p)
	}
	return out
}

// leadingToken returns the lowercase first whitespace-delimited token of a
// statement, skipping a leading "(" as used by "(SELECT ...)" wrapping.
func leadingToken(stmt string) string {
	stmt = strings.TrimLeft(stmt, "( \t\r\n")
	fields := strings.Fields(stmt)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
