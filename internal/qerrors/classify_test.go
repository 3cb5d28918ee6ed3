package qerrors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/steveyegge/curq/internal/qerrors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want qerrors.ErrorKind
	}{
		{"unknown column", `column 'cost' not found, candidates: cost_usd, cost_cny`, qerrors.KindUnknownColumn},
		{"unknown table", `table "cur_v3" doesn't exist`, qerrors.KindUnknownTable},
		{"syntax error", `syntax error at position 14`, qerrors.KindSyntaxError},
		{"access denied", `AccessDenied: user is not authorized`, qerrors.KindAccessDenied},
		{"not found", `NoSuchKey: the specified key does not exist`, qerrors.KindNotFound},
		{"transient", `connection reset by peer`, qerrors.KindTransient},
		{"fallback", `something exploded in a way nobody anticipated`, qerrors.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qe := qerrors.Classify(errors.New(tt.raw))
			if qe.Kind != tt.want {
				t.Errorf("Classify(%q).Kind = %v, want %v", tt.raw, qe.Kind, tt.want)
			}
			if qe.Message == tt.raw {
				t.Errorf("classified message should not be the raw engine text verbatim")
			}
			if qe.Original == nil {
				t.Errorf("expected Original to be preserved")
			}
		})
	}
}

func TestClassifyRecognizesContextCancellationBeforeTextPatterns(t *testing.T) {
	for _, raw := range []error{
		context.Canceled,
		context.DeadlineExceeded,
		fmt.Errorf("borrowing adapter: %w", context.DeadlineExceeded),
	} {
		qe := qerrors.Classify(raw)
		if qe.Kind != qerrors.KindCancelled {
			t.Errorf("Classify(%v).Kind = %v, want Cancelled", raw, qe.Kind)
		}
		if qe.Original == nil {
			t.Errorf("expected Original to be preserved for %v", raw)
		}
	}
}

func TestClassifyNilIsNil(t *testing.T) {
	if qerrors.Classify(nil) != nil {
		t.Errorf("Classify(nil) should return nil")
	}
}

func TestClassifyInternalHasCorrelationID(t *testing.T) {
	qe := qerrors.Classify(errors.New("totally opaque failure"))
	if qe.Kind != qerrors.KindInternal {
		t.Fatalf("expected KindInternal, got %v", qe.Kind)
	}
	found := false
	for _, s := range qe.Suggestions {
		if len(s) > len("correlation id: ") && s[:len("correlation id: ")] == "correlation id: " {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a correlation id suggestion, got %v", qe.Suggestions)
	}
}

func TestQueryErrorIsByKind(t *testing.T) {
	qe := qerrors.Wrap(qerrors.KindConflict, "cache root is locked by another sync", errors.New("flock: resource busy"))
	if !errors.Is(qe, qerrors.ErrConflict) {
		t.Errorf("expected errors.Is to match on Kind against the sentinel")
	}
	if errors.Is(qe, qerrors.ErrNotFound) {
		t.Errorf("expected errors.Is to not match a differently-kinded sentinel")
	}
}

func TestKindOf(t *testing.T) {
	qe := qerrors.New(qerrors.KindAccessDenied, "denied")
	if qerrors.KindOf(qe) != qerrors.KindAccessDenied {
		t.Errorf("KindOf(QueryError) should return its Kind")
	}
	if qerrors.KindOf(errors.New("plain error")) != qerrors.KindInternal {
		t.Errorf("KindOf(plain error) should default to KindInternal")
	}
}
