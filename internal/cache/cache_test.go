package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/steveyegge/curq/internal/cache"
	"github.com/steveyegge/curq/internal/types"
)

func baseConfig(t *testing.T, root string) types.DataSourceConfig {
	t.Helper()
	return types.DataSourceConfig{
		ExportType: types.ExportTypeCURv2,
		LocalRoot:  root,
		DateStart:  "2026-01",
		DateEnd:    "2026-02",
	}
}

func writePartitionFile(t *testing.T, root, partitionValue, name string, data []byte) string {
	t.Helper()
	dir := filepath.Join(root, "billing_period="+partitionValue)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestListFilesFindsMatchingPartitions(t *testing.T) {
	root := t.TempDir()
	writePartitionFile(t, root, "2026-01", "part-0.parquet", []byte("abcd"))

	cfg := baseConfig(t, root)
	files, err := cache.ListFiles(cfg)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}
	if files[0].SizeBytes != 4 {
		t.Errorf("got size %d, want 4", files[0].SizeBytes)
	}
	if files[0].Partition.KeyValue != "2026-01" {
		t.Errorf("got partition %q, want 2026-01", files[0].Partition.KeyValue)
	}
}

func TestListFilesExcludesOutOfWindowPartitions(t *testing.T) {
	root := t.TempDir()
	writePartitionFile(t, root, "2025-06", "part-0.parquet", []byte("x"))

	cfg := baseConfig(t, root)
	files, err := cache.ListFiles(cfg)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("got %d files, want 0 (out of window)", len(files))
	}
}

func TestListFilesHidesStagingFiles(t *testing.T) {
	root := t.TempDir()
	writePartitionFile(t, root, "2026-01", "part-0.parquet.curq-tmp", []byte("x"))

	cfg := baseConfig(t, root)
	files, err := cache.ListFiles(cfg)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("got %d files, want 0 (staging file must stay hidden)", len(files))
	}
}

func TestListFilesMissingRootIsNotAnError(t *testing.T) {
	cfg := baseConfig(t, filepath.Join(t.TempDir(), "does-not-exist"))
	files, err := cache.ListFiles(cfg)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if files != nil {
		t.Errorf("got %v, want nil", files)
	}
}

func TestIsUsableRequiresAtLeastOneFile(t *testing.T) {
	root := t.TempDir()
	cfg := baseConfig(t, root)
	if cache.IsUsable(cfg) {
		t.Errorf("empty cache root must not be usable")
	}

	writePartitionFile(t, root, "2026-01", "part-0.parquet", []byte("x"))
	if !cache.IsUsable(cfg) {
		t.Errorf("cache root with an in-window file must be usable")
	}
}

func TestStatusReportsCompletenessAgainstRemote(t *testing.T) {
	root := t.TempDir()
	writePartitionFile(t, root, "2026-01", "part-0.parquet", []byte("abcd"))
	cfg := baseConfig(t, root)

	remote := []types.FileRef{
		{ObjectKey: "billing_period=2026-01/part-0.parquet", SizeBytes: 4,
			Partition: types.Partition{ExportType: types.ExportTypeCURv2, KeyValue: "2026-01"}},
	}

	statuses, err := cache.Status(cfg, remote)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	part := types.Partition{ExportType: types.ExportTypeCURv2, KeyValue: "2026-01"}
	st, ok := statuses[part]
	if !ok {
		t.Fatalf("missing status for partition %v", part)
	}
	if !st.Complete {
		t.Errorf("expected partition to be complete against matching remote file set")
	}
	if st.FileCount != 1 || st.TotalBytes != 4 {
		t.Errorf("got FileCount=%d TotalBytes=%d, want 1, 4", st.FileCount, st.TotalBytes)
	}
}

func TestStatusIncompleteWhenRemoteHasExtraFile(t *testing.T) {
	root := t.TempDir()
	writePartitionFile(t, root, "2026-01", "part-0.parquet", []byte("abcd"))
	cfg := baseConfig(t, root)

	remote := []types.FileRef{
		{ObjectKey: "billing_period=2026-01/part-0.parquet", SizeBytes: 4,
			Partition: types.Partition{ExportType: types.ExportTypeCURv2, KeyValue: "2026-01"}},
		{ObjectKey: "billing_period=2026-01/part-1.parquet", SizeBytes: 9,
			Partition: types.Partition{ExportType: types.ExportTypeCURv2, KeyValue: "2026-01"}},
	}

	statuses, err := cache.Status(cfg, remote)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	part := types.Partition{ExportType: types.ExportTypeCURv2, KeyValue: "2026-01"}
	if statuses[part].Complete {
		t.Errorf("expected partition to be incomplete when remote has an extra file")
	}
}

func TestStatusDisabledCacheReturnsEmptyMap(t *testing.T) {
	cfg := types.DataSourceConfig{ExportType: types.ExportTypeCURv2}
	statuses, err := cache.Status(cfg, nil)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(statuses) != 0 {
		t.Errorf("got %d entries, want 0 for a disabled local cache", len(statuses))
	}
}

func TestPathForJoinsLocalRootAndObjectKey(t *testing.T) {
	cfg := baseConfig(t, "/var/cache/curq")
	got := cache.PathFor(cfg, types.FileRef{ObjectKey: "billing_period=2026-01/part-0.parquet"})
	want := filepath.Join("/var/cache/curq", "billing_period=2026-01", "part-0.parquet")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
