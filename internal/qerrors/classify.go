package qerrors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// pattern describes one text-matching rule (kind, expression, message).
// Classify does not build a table of these values: it applies the
// package-level expressions below in a fixed order, first match wins, and
// falls back to Internal on no match.
type pattern struct {
	kind    ErrorKind
	re      *regexp.Regexp
	message string
}

// columnNotFoundRE captures the offending column name and, when present,
// the engine's own candidate list (spec.md §4.10's "closest-match
// candidates lifted from the engine message").
var columnNotFoundRE = regexp.MustCompile(`(?i)column\s+['"]?([a-zA-Z0-9_.]+)['"]?\s+not found(?:.*candidates?:\s*(.+))?`)

var tableNotFoundRE = regexp.MustCompile(`(?i)table\s+['"]?([a-zA-Z0-9_.]+)['"]?\s+(?:not found|doesn't exist|does not exist)`)

var syntaxErrorRE = regexp.MustCompile(`(?i)(syntax error|parse error)(?:.*at (?:position|line)\s+(\d+))?`)

var accessDeniedRE = regexp.MustCompile(`(?i)(access denied|accessdenied|unauthorized|forbidden|no such identity|invalidclienttokenid)`)

var notFoundRE = regexp.MustCompile(`(?i)(no such key|nosuchkey|404|not found:?\s*partition)`)

var transientRE = regexp.MustCompile(`(?i)(timeout|connection reset|temporary failure|throttl|slowdown|503|too many requests|econnrefused|broken pipe)`)

// Classify maps a raw engine or transport error into curq's closed
// ErrorKind taxonomy by applying the expressions above, in order. The raw
// error text is never surfaced as the primary message — it is preserved as
// Original (a diagnostic field) only.
func Classify(raw error) *QueryError {
	if raw == nil {
		return nil
	}

	if errors.Is(raw, context.Canceled) || errors.Is(raw, context.DeadlineExceeded) {
		return Wrap(KindCancelled, "the query was cancelled before it completed", raw)
	}

	text := raw.Error()

	if m := columnNotFoundRE.FindStringSubmatch(text); m != nil {
		col := m[1]
		var suggestions []string
		if len(m) > 2 && m[2] != "" {
			suggestions = splitCandidates(m[2])
		}
		suggestions = append([]string{"unknown column: " + col}, suggestions...)
		suggestions = append(suggestions, "list the table's columns to confirm its schema")
		return Wrap(KindUnknownColumn, "query references a column that does not exist", raw, suggestions...)
	}

	if m := tableNotFoundRE.FindStringSubmatch(text); m != nil {
		return Wrap(KindUnknownTable, "query references a table that is not registered", raw,
			"unknown table: "+m[1], "check the configured logical table name")
	}

	if m := syntaxErrorRE.FindStringSubmatch(text); m != nil {
		suggestions := []string{"the statement could not be parsed"}
		if len(m) > 2 && m[2] != "" {
			suggestions = append(suggestions, "error position: "+m[2])
		}
		return Wrap(KindSyntaxError, "query text is not valid SQL", raw, suggestions...)
	}

	if accessDeniedRE.MatchString(text) {
		return Wrap(KindAccessDenied, "object store or engine denied access", raw,
			"check the credential resolution order (static keys, session, profile, role assumption, ambient)",
			"a local cache bypass may work if only remote access is denied")
	}

	if notFoundRE.MatchString(text) {
		return Wrap(KindNotFound, "requested partition or file was not found", raw,
			"list partitions near the requested date window")
	}

	if transientRE.MatchString(text) {
		return Wrap(KindTransient, "a transient transport error occurred", raw,
			"the operation is safe to retry")
	}

	id := uuid.NewString()
	qe := Wrap(KindInternal, "an internal error occurred", raw, "correlation id: "+id)
	qe.CorrelationID = id
	return qe
}

func splitCandidates(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, "'\"")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
