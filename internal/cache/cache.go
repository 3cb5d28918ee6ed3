// Package cache implements C4: the local mirror of the remote partition
// layout. The on-disk layout mirrors the remote key suffix exactly (same
// partition token, same value, same file names) starting from the
// configured prefix root. Completeness is size-based and per-partition,
// never per-byte (spec.md §4.4).
//
// The filepath.Walk enumeration mirrors the teacher's
// _teacher_ref/discovery/local.go local-filesystem walk, generalized from
// scanning resource-definition files to scanning cached partition content.
package cache

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/steveyegge/curq/internal/partition"
	"github.com/steveyegge/curq/internal/types"
)

// PartitionStatus is the per-partition summary returned by Status.
type PartitionStatus struct {
	FileCount  int
	TotalBytes int64
	Complete   bool
}

// Status reports, for every partition currently present on disk under
// cfg.LocalRoot, its file count, total bytes, and completeness relative to
// remoteFiles — the file set C3 returned at the last sync (spec.md §4.4).
// Pass a nil remoteFiles to get counts without a completeness verdict (every
// partition reports Complete=false in that case).
func Status(cfg types.DataSourceConfig, remoteFiles []types.FileRef) (map[types.Partition]PartitionStatus, error) {
	if !cfg.LocalCacheEnabled() {
		return map[types.Partition]PartitionStatus{}, nil
	}

	localFiles, err := ListFiles(cfg)
	if err != nil {
		return nil, err
	}

	remoteByPartition := groupByPartition(remoteFiles)
	localByPartition := groupByPartition(localFiles)

	result := make(map[types.Partition]PartitionStatus)
	for part, files := range localByPartition {
		var total int64
		for _, f := range files {
			total += f.SizeBytes
		}
		result[part] = PartitionStatus{
			FileCount:  len(files),
			TotalBytes: total,
			Complete:   isComplete(files, remoteByPartition[part]),
		}
	}
	return result, nil
}

// isComplete reports whether every remotely-known file (by object key and
// size) is present locally. No hash check beyond size, per spec.md §3.
func isComplete(local, remote []types.FileRef) bool {
	if remote == nil {
		return false
	}
	localByKey := make(map[string]int64, len(local))
	for _, f := range local {
		localByKey[f.ObjectKey] = f.SizeBytes
	}
	for _, r := range remote {
		size, ok := localByKey[r.ObjectKey]
		if !ok || size != r.SizeBytes {
			return false
		}
	}
	return true
}

// ListFiles returns the local cache's file references, ordered the same
// way C3 orders remote references: (partition-ascending, object-name-
// ascending).
func ListFiles(cfg types.DataSourceConfig) ([]types.FileRef, error) {
	if !cfg.LocalCacheEnabled() {
		return nil, nil
	}

	root := cfg.LocalRoot
	token := cfg.ExportType.PartitionKeyToken()
	accepted := make(map[string]bool)
	for _, f := range cfg.ExportType.AcceptedFormats() {
		accepted[f.Extension()] = true
	}

	var files []types.FileRef
	err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(p, stagingSuffix) {
			return nil // never expose a partially-written file (spec.md §4.4)
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		partValue, ok := partitionValueFromRelPath(rel, token)
		if !ok {
			return nil
		}
		if _, perr := partition.Parse(cfg.ExportType, partValue); perr != nil {
			return nil
		}
		inWindow, werr := partition.InWindow(cfg.ExportType, partValue, cfg.DateStart, cfg.DateEnd)
		if werr != nil || !inWindow {
			return nil
		}

		ext := matchExtension(rel, accepted)
		if ext == "" {
			return nil
		}

		files = append(files, types.FileRef{
			LocalPath: p,
			Partition: types.Partition{ExportType: cfg.ExportType, KeyValue: partValue},
			Format:    formatFor(ext),
			SizeBytes: info.Size(),
			ObjectKey: rel,
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].Partition.Equal(files[j].Partition) {
			return files[i].Partition.Less(files[j].Partition)
		}
		return files[i].ObjectKey < files[j].ObjectKey
	})
	return files, nil
}

// PathFor returns the local path a file reference's remote key would
// occupy under cfg's cache root.
func PathFor(cfg types.DataSourceConfig, ref types.FileRef) string {
	return filepath.Join(cfg.LocalRoot, filepath.FromSlash(ref.ObjectKey))
}

// IsUsable reports whether the local root exists and contains at least one
// partition matching the current window (spec.md §4.4).
func IsUsable(cfg types.DataSourceConfig) bool {
	if !cfg.LocalCacheEnabled() {
		return false
	}
	files, err := ListFiles(cfg)
	if err != nil {
		return false
	}
	return len(files) > 0
}

// Status is also exposed with a context parameter for symmetry with the
// other components' contracts; it performs no I/O that benefits from
// cancellation beyond the filesystem walk in ListFiles.
func StatusContext(_ context.Context, cfg types.DataSourceConfig, remoteFiles []types.FileRef) (map[types.Partition]PartitionStatus, error) {
	return Status(cfg, remoteFiles)
}

func groupByPartition(files []types.FileRef) map[types.Partition][]types.FileRef {
	out := make(map[types.Partition][]types.FileRef)
	for _, f := range files {
		out[f.Partition] = append(out[f.Partition], f)
	}
	return out
}

func partitionValueFromRelPath(rel, token string) (string, bool) {
	segments := strings.Split(rel, "/")
	for _, seg := range segments {
		if value, ok := strings.CutPrefix(seg, token+"="); ok {
			return value, true
		}
	}
	return "", false
}

func matchExtension(name string, accepted map[string]bool) string {
	for ext := range accepted {
		if strings.HasSuffix(name, ext) {
			return ext
		}
	}
	return ""
}

func formatFor(ext string) types.ContentFormat {
	if ext == ".parquet" {
		return types.ContentFormatParquet
	}
	return types.ContentFormatCSVGZ
}

// stagingSuffix marks a file C5 is still writing; never surfaced by
// ListFiles (spec.md §4.4's "partially-written file must never be visible
// under its final name").
const stagingSuffix = ".curq-tmp"
