package materializer

import (
	"testing"

	"github.com/steveyegge/curq/internal/types"
)

func TestOrderedLevelsSimpleDAG(t *testing.T) {
	m := &Manifest{
		BaseTable: "cur",
		Views: []types.ViewDefinition{
			{Name: "daily_spend", SQL: "SELECT 1", DependsOn: []string{"cur"}},
			{Name: "monthly_spend", SQL: "SELECT 1", DependsOn: []string{"cur"}},
			{Name: "rollup", SQL: "SELECT 1", DependsOn: []string{"daily_spend", "monthly_spend"}},
		},
	}

	levels, err := orderedLevels(m)
	if err != nil {
		t.Fatalf("orderedLevels: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d: %+v", len(levels), levels)
	}
	if len(levels[0]) != 2 {
		t.Errorf("expected level 0 to contain both base-only views, got %d", len(levels[0]))
	}
	if len(levels[1]) != 1 || levels[1][0].Name != "rollup" {
		t.Errorf("expected level 1 to contain only rollup, got %+v", levels[1])
	}
	for _, v := range levels[1] {
		if v.Level != 1 {
			t.Errorf("expected rollup's computed Level to be 1, got %d", v.Level)
		}
	}
}

func TestOrderedLevelsDetectsCycle(t *testing.T) {
	m := &Manifest{
		BaseTable: "cur",
		Views: []types.ViewDefinition{
			{Name: "a", SQL: "SELECT 1", DependsOn: []string{"b"}},
			{Name: "b", SQL: "SELECT 1", DependsOn: []string{"a"}},
		},
	}
	_, err := orderedLevels(m)
	if err == nil {
		t.Fatalf("expected a cycle to be detected")
	}
}

func TestOrderedLevelsRejectsUnknownDependency(t *testing.T) {
	m := &Manifest{
		BaseTable: "cur",
		Views: []types.ViewDefinition{
			{Name: "a", SQL: "SELECT 1", DependsOn: []string{"nonexistent"}},
		},
	}
	_, err := orderedLevels(m)
	if err == nil {
		t.Fatalf("expected an unknown dependency to be rejected")
	}
}

func TestOrderedLevelsRejectsDuplicateNames(t *testing.T) {
	m := &Manifest{
		BaseTable: "cur",
		Views: []types.ViewDefinition{
			{Name: "a", SQL: "SELECT 1", DependsOn: []string{"cur"}},
			{Name: "a", SQL: "SELECT 2", DependsOn: []string{"cur"}},
		},
	}
	_, err := orderedLevels(m)
	if err == nil {
		t.Fatalf("expected a duplicate view name to be rejected")
	}
}
