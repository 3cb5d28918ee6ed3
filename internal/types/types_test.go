package types_test

import (
	"testing"
	"time"

	"github.com/steveyegge/curq/internal/types"
)

func TestParseExportType(t *testing.T) {
	tests := []struct {
		in      string
		want    types.ExportType
		wantErr bool
	}{
		{"cur_legacy", types.ExportTypeCURLegacy, false},
		{"cur_v2", types.ExportTypeCURv2, false},
		{"cur_daily", types.ExportTypeCURDaily, false},
		{"bogus", 0, true},
	}
	for _, tt := range tests {
		got, err := types.ParseExportType(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseExportType(%q): expected error, got none", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseExportType(%q): unexpected error %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseExportType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExportTypeGranularity(t *testing.T) {
	if types.ExportTypeCURDaily.Granularity() != types.GranularityDaily {
		t.Errorf("cur_daily should be daily granularity")
	}
	if types.ExportTypeCURLegacy.Granularity() != types.GranularityMonthly {
		t.Errorf("cur_legacy should be monthly granularity")
	}
}

func TestPartitionLess(t *testing.T) {
	a := types.Partition{ExportType: types.ExportTypeCURLegacy, KeyValue: "2026-01"}
	b := types.Partition{ExportType: types.ExportTypeCURLegacy, KeyValue: "2026-02"}
	if !a.Less(b) {
		t.Errorf("expected %v < %v", a, b)
	}
	if b.Less(a) {
		t.Errorf("expected %v not < %v", b, a)
	}
	if !a.Equal(a) {
		t.Errorf("expected partition equal to itself")
	}
}

func TestFileRefPredicates(t *testing.T) {
	remote := types.FileRef{RemoteURI: "s3://bucket/key", SizeBytes: -1}
	if !remote.IsRemote() || remote.IsLocal() {
		t.Errorf("remote ref classified incorrectly: %+v", remote)
	}
	if remote.SizeKnown() {
		t.Errorf("size should be unknown for SizeBytes=-1")
	}

	local := types.FileRef{LocalPath: "/tmp/x.parquet", SizeBytes: 1024}
	if !local.IsLocal() || local.IsRemote() {
		t.Errorf("local ref classified incorrectly: %+v", local)
	}
	if !local.SizeKnown() {
		t.Errorf("size should be known for SizeBytes=1024")
	}
}

func TestDataSourceConfigEffectivePreferLocal(t *testing.T) {
	cfg := types.DataSourceConfig{PreferLocal: true}
	if cfg.EffectivePreferLocal() {
		t.Errorf("PreferLocal should be meaningless without LocalRoot")
	}
	cfg.LocalRoot = "/var/curq/cache"
	if !cfg.EffectivePreferLocal() {
		t.Errorf("expected EffectivePreferLocal once LocalRoot is set")
	}
}

func TestDataSourceConfigTableNameOrDefault(t *testing.T) {
	cfg := types.DataSourceConfig{ExportType: types.ExportTypeCURv2}
	if cfg.TableNameOrDefault() != types.ExportTypeCURv2.DefaultTableName() {
		t.Errorf("expected default table name fallback")
	}
	cfg.TableName = "custom_cur"
	if cfg.TableNameOrDefault() != "custom_cur" {
		t.Errorf("expected explicit table name to win")
	}
}

func TestResultFrameRowCountAndColumnIndex(t *testing.T) {
	var nilFrame *types.ResultFrame
	if nilFrame.RowCount() != 0 {
		t.Errorf("nil frame should report 0 rows")
	}

	frame := &types.ResultFrame{
		Columns: []types.Column{{Name: "a"}, {Name: "b"}},
		Rows:    [][]any{{1, 2}, {3, 4}},
	}
	if frame.RowCount() != 2 {
		t.Errorf("expected 2 rows, got %d", frame.RowCount())
	}
	if frame.ColumnIndex("b") != 1 {
		t.Errorf("expected column b at index 1, got %d", frame.ColumnIndex("b"))
	}
	if frame.ColumnIndex("missing") != -1 {
		t.Errorf("expected -1 for missing column")
	}
}

func TestCredentialBundleCacheKey(t *testing.T) {
	a := types.CredentialBundle{Mode: types.CredentialModeStatic, AccessKeyID: "AKIA1", Region: "us-east-1"}
	b := types.CredentialBundle{Mode: types.CredentialModeStatic, AccessKeyID: "AKIA1", Region: "us-east-1"}
	c := types.CredentialBundle{Mode: types.CredentialModeStatic, AccessKeyID: "AKIA2", Region: "us-east-1"}

	if a.CacheKey() != b.CacheKey() {
		t.Errorf("identical bundles should produce identical cache keys")
	}
	if a.CacheKey() == c.CacheKey() {
		t.Errorf("differing bundles should produce differing cache keys")
	}
}

func TestDataSourceConfigDeadlineIsDuration(t *testing.T) {
	cfg := types.DataSourceConfig{Deadline: 30 * time.Second}
	if cfg.Deadline != 30*time.Second {
		t.Errorf("unexpected deadline: %v", cfg.Deadline)
	}
}
