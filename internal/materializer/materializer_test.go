package materializer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/steveyegge/curq/internal/engine"
	"github.com/steveyegge/curq/internal/types"
)

func newSingleAdapterPool(t *testing.T, fa *engine.FakeAdapter) *engine.Pool {
	t.Helper()
	pool, err := engine.NewPool(context.Background(), func() (engine.Adapter, error) { return fa, nil }, 1)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	return pool
}

func cachedBaseConfig(t *testing.T) types.DataSourceConfig {
	t.Helper()
	root := t.TempDir()
	partDir := filepath.Join(root, "billing_period=2026-01")
	if err := os.MkdirAll(partDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(partDir, "part-0.parquet"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return types.DataSourceConfig{
		Bucket:      "cur-bucket",
		Prefix:      "exports/",
		ExportType:  types.ExportTypeCURv2,
		TableName:   "cur",
		LocalRoot:   root,
		DateStart:   "2026-01",
		DateEnd:     "2026-01",
		MaxRows:     1000,
		MaxQueryLen: 10_000,
	}
}

func TestMaterializerRunProducesOneLevelZeroView(t *testing.T) {
	fa := engine.NewFakeAdapter()
	fa.SeedRows("cur", []map[string]any{{"service": "ec2", "cost": 10.0}})

	pool := newSingleAdapterPool(t, fa)
	cfg := cachedBaseConfig(t)
	outRoot := t.TempDir()

	m := New(pool, nil, outRoot, zap.NewNop())
	manifest := &Manifest{
		BaseTable: "cur",
		Views: []types.ViewDefinition{
			{Name: "all_spend", SQL: "SELECT * FROM cur", DependsOn: []string{"cur"}},
		},
	}

	report, err := m.Run(context.Background(), cfg, manifest)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Produced) != 1 || report.Produced[0] != "all_spend" {
		t.Fatalf("expected all_spend to be produced, got %+v", report)
	}
	if len(report.Failed) != 0 || len(report.Skipped) != 0 {
		t.Errorf("expected no failures/skips, got %+v", report)
	}

	outPath := filepath.Join(outRoot, "0", "all_spend.parquet")
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("expected output at %s: %v", outPath, err)
	}
}

func TestMaterializerRunAbortsOnFailureAndSkipsLaterLevels(t *testing.T) {
	fa := engine.NewFakeAdapter()
	// No rows seeded for "missing_table" => FakeAdapter.Execute errors with
	// "table not found" since RegisterTable is never called for it.

	pool := newSingleAdapterPool(t, fa)
	cfg := cachedBaseConfig(t)
	outRoot := t.TempDir()

	m := New(pool, nil, outRoot, zap.NewNop())
	manifest := &Manifest{
		BaseTable: "cur",
		Views: []types.ViewDefinition{
			{Name: "broken", SQL: "SELECT * FROM missing_table", DependsOn: []string{"cur"}},
			{Name: "downstream", SQL: "SELECT * FROM broken", DependsOn: []string{"broken"}},
		},
	}

	report, err := m.Run(context.Background(), cfg, manifest)
	if err == nil {
		t.Fatalf("expected Run to report an error when a view execution fails")
	}
	if len(report.Failed) != 1 || report.Failed[0] != "broken" {
		t.Errorf("expected broken to be reported failed, got %+v", report)
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != "downstream" {
		t.Errorf("expected downstream to be reported skipped, got %+v", report)
	}
}
