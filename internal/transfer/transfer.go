// Package transfer implements C5: mirroring remote files into the local
// cache idempotently, with resume and parallelism. Each file is staged to a
// temporary name and atomically renamed on success (spec.md §4.5); two
// concurrent sync runs over the same local root are disallowed via an
// advisory file lock (spec.md §5), grounded on the teacher's transitive
// dependency on gofrs/flock.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"

	"github.com/steveyegge/curq/internal/qerrors"
	"github.com/steveyegge/curq/internal/types"
)

const lockFileName = ".curq.lock"

// Options configures a sync run. Zero value uses the documented defaults
// (spec.md §4.5): bounded parallel workers, overwrite-if-size-differs,
// skip-if-identical-size, retried transient errors.
type Options struct {
	// Parallelism bounds the number of concurrent file workers. Defaults
	// to 4 when <= 0.
	Parallelism int
}

// FileResult records the outcome for a single file in a sync run.
type FileResult struct {
	File  types.FileRef
	Bytes int64
	Err   error
}

// Report is the outcome of a Sync call: spec.md §4.5 requires it enumerate
// files transferred, skipped, and failed, plus total bytes.
type Report struct {
	Transferred []FileResult
	Skipped     []FileResult
	Failed      []FileResult
	TotalBytes  int64
}

// Downloader is the subset of *manager.Downloader transfer needs, so tests
// can supply a fake.
type Downloader interface {
	Download(ctx context.Context, w manager.WriterAt, input *s3.GetObjectInput, opts ...func(*manager.Downloader)) (int64, error)
}

// Sync mirrors every file in remoteFiles into cfg.LocalRoot. Completion of
// Sync implies all scheduled files either succeeded or are in the failed
// list — a failed file never aborts the run (spec.md §4.5).
func Sync(ctx context.Context, downloader Downloader, cfg types.DataSourceConfig, remoteFiles []types.FileRef, opts Options) (*Report, error) {
	if !cfg.LocalCacheEnabled() {
		return nil, qerrors.New(qerrors.KindInvalidQuery, "sync requires a configured local_root")
	}

	lock, err := acquireLock(cfg.LocalRoot)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	if err := os.MkdirAll(cfg.LocalRoot, 0o755); err != nil {
		return nil, fmt.Errorf("creating local root: %w", err)
	}
	reclaimStaleTemps(cfg.LocalRoot)

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = 4
	}

	report := &Report{}
	var mu sync.Mutex
	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup

	for _, f := range remoteFiles {
		f := f
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			res := syncOne(ctx, downloader, cfg, f)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case res.Err != nil:
				report.Failed = append(report.Failed, res)
			case res.Bytes == 0 && res.skippedIdentical:
				report.Skipped = append(report.Skipped, res.FileResult)
			default:
				report.Transferred = append(report.Transferred, res.FileResult)
				report.TotalBytes += res.Bytes
			}
		}()
	}
	wg.Wait()

	return report, nil
}

type syncResult struct {
	FileResult
	skippedIdentical bool
}

func syncOne(ctx context.Context, downloader Downloader, cfg types.DataSourceConfig, f types.FileRef) syncResult {
	destPath := filepath.Join(cfg.LocalRoot, filepath.FromSlash(f.ObjectKey))

	if info, err := os.Stat(destPath); err == nil {
		if info.Size() == f.SizeBytes {
			return syncResult{FileResult: FileResult{File: f}, skippedIdentical: true}
		}
		// overwrite-if-size-differs: fall through to re-download.
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return syncResult{FileResult: FileResult{File: f, Err: fmt.Errorf("creating partition dir: %w", err)}}
	}

	tmpPath := destPath + ".curq-tmp"
	bucket, key, err := splitURI(f.RemoteURI)
	if err != nil {
		return syncResult{FileResult: FileResult{File: f, Err: err}}
	}

	var n int64
	retryErr := backoff.Retry(func() error {
		tmp, err := os.Create(tmpPath) // #nosec G304 - path derived from configured local root
		if err != nil {
			return backoff.Permanent(err)
		}
		defer tmp.Close()

		n, err = downloader.Download(ctx, tmp, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx))

	if retryErr != nil {
		os.Remove(tmpPath)
		return syncResult{FileResult: FileResult{File: f, Err: qerrors.Wrap(qerrors.KindTransient, "downloading file failed", retryErr)}}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return syncResult{FileResult: FileResult{File: f, Err: fmt.Errorf("staging file into place: %w", err)}}
	}

	return syncResult{FileResult: FileResult{File: f, Bytes: n}}
}

// acquireLock takes the advisory file-system lock at the cache root,
// guarding against two concurrent syncs over the same local_root (spec.md
// §5: locked per local_root, the coarser option — see SPEC_FULL.md §6).
func acquireLock(localRoot string) (*flock.Flock, error) {
	if err := os.MkdirAll(localRoot, 0o755); err != nil {
		return nil, fmt.Errorf("creating local root: %w", err)
	}
	lock := flock.New(filepath.Join(localRoot, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring cache lock: %w", err)
	}
	if !locked {
		return nil, qerrors.New(qerrors.KindConflict, "another sync is already running against this local_root")
	}
	return lock, nil
}

// LockStatus reports whether another process currently holds the advisory
// sync lock for localRoot, without blocking and without disturbing an
// existing holder. Used by the doctor diagnostics command.
func LockStatus(localRoot string) (held bool, err error) {
	if _, statErr := os.Stat(localRoot); os.IsNotExist(statErr) {
		return false, nil
	}
	lock := flock.New(filepath.Join(localRoot, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("checking cache lock: %w", err)
	}
	if !locked {
		return true, nil
	}
	_ = lock.Unlock()
	return false, nil
}

// reclaimStaleTemps removes leftover .curq-tmp files from an interrupted
// prior run (spec.md §4.5: "interrupted transfers leave only temporaries
// which are reclaimed on the next run").
func reclaimStaleTemps(root string) {
	_ = filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if filepath.Ext(p) == ".curq-tmp" {
			_ = os.Remove(p)
		}
		return nil
	})
}

func splitURI(uri string) (bucket, key string, err error) {
	const prefix = "s3://"
	if len(uri) <= len(prefix) || uri[:len(prefix)] != prefix {
		return "", "", errors.New("file reference is not a remote s3 URI")
	}
	rest := uri[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i], rest[i+1:], nil
		}
	}
	return "", "", errors.New("malformed s3 URI: missing key")
}
