// Package partition implements C2: pure functions from an export type to
// its partition-key token, granularity, parse/format rules, and window
// generator. Nothing here performs I/O.
package partition

import (
	"fmt"
	"time"

	"github.com/steveyegge/curq/internal/types"
)

const (
	monthlyLayout = "2006-01"
	dailyLayout   = "2006-01-02"
)

// Parse parses a partition key value for the given export type, validating
// it against the export type's granularity (spec.md §4.2: "a monthly window
// rejects YYYY-MM-DD inputs and vice versa").
func Parse(et types.ExportType, value string) (time.Time, error) {
	layout := layoutFor(et.Granularity())
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("partition value %q is not valid %s format: %w", value, et.Granularity(), err)
	}
	return t, nil
}

// Format renders a time.Time back into the canonical partition key value for
// the given export type's granularity.
func Format(et types.ExportType, t time.Time) string {
	return t.Format(layoutFor(et.Granularity()))
}

func layoutFor(g types.Granularity) string {
	if g == types.GranularityDaily {
		return dailyLayout
	}
	return monthlyLayout
}

// Window generates the ordered sequence of partition key values between
// start and end inclusive, at the export type's granularity. An empty start
// or end means unbounded in that direction and is resolved by the caller
// before invoking Window (callers with only partial bounds should use
// InWindow directly against discovered partitions instead).
//
// When start > end the sequence is empty — never an error (spec.md §4.2).
func Window(et types.ExportType, start, end string) ([]string, error) {
	startT, err := Parse(et, start)
	if err != nil {
		return nil, err
	}
	endT, err := Parse(et, end)
	if err != nil {
		return nil, err
	}
	if startT.After(endT) {
		return nil, nil
	}

	var out []string
	step := stepFor(et.Granularity())
	for t := startT; !t.After(endT); t = step(t) {
		out = append(out, Format(et, t))
	}
	return out, nil
}

func stepFor(g types.Granularity) func(time.Time) time.Time {
	if g == types.GranularityDaily {
		return func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	}
	return func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
}

// InWindow reports whether a partition's key value falls within the
// inclusive [start, end] bound. Empty start/end mean unbounded in that
// direction (spec.md's Open Question decision: inclusive on both ends,
// recorded in SPEC_FULL.md §6).
func InWindow(et types.ExportType, value, start, end string) (bool, error) {
	t, err := Parse(et, value)
	if err != nil {
		return false, err
	}
	if start != "" {
		startT, err := Parse(et, start)
		if err != nil {
			return false, err
		}
		if t.Before(startT) {
			return false, nil
		}
	}
	if end != "" {
		endT, err := Parse(et, end)
		if err != nil {
			return false, err
		}
		if t.After(endT) {
			return false, nil
		}
	}
	return true, nil
}
