// Package materializer implements C9: the dependency-ordered view
// materializer. It builds a fixed set of interdependent derived tables from
// the raw CUR base table and persists each as a columnar artifact, so later
// views (and ad-hoc queries) can read them as ordinary tables (spec.md
// §4.9).
package materializer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/curq/internal/cache"
	"github.com/steveyegge/curq/internal/discovery"
	"github.com/steveyegge/curq/internal/engine"
	"github.com/steveyegge/curq/internal/qerrors"
	"github.com/steveyegge/curq/internal/safety"
	"github.com/steveyegge/curq/internal/types"
)

const columnarExt = ".parquet"

// materializerMetrics mirrors dispatcherMetrics' convention: package-level
// instruments bound to the global delegating provider at init time.
var materializerMetrics struct {
	viewsRun     metric.Int64Counter
	viewDuration metric.Float64Histogram
}

func init() {
	m := otel.Meter("github.com/steveyegge/curq/materializer")
	materializerMetrics.viewsRun, _ = m.Int64Counter("curq.materializer.view.count",
		metric.WithDescription("Views materialized, by outcome"))
	materializerMetrics.viewDuration, _ = m.Float64Histogram("curq.materializer.view.duration_ms",
		metric.WithDescription("Per-view materialization time"), metric.WithUnit("ms"))
}

// ViewOutcome records what happened to a single view in a run.
type ViewOutcome struct {
	Name string
	Path string
	Err  error
}

// Report is the outcome of a full materializer run (spec.md §4.9 step 5).
type Report struct {
	Produced []string
	Failed   []string
	Skipped  []string
}

// Materializer drives repeated query executions against a single borrowed
// engine adapter for the lifetime of one run, registering each view's
// output so later levels see it as an ordinary table (spec.md's invariant
// that "adapter registrations made during a run are scoped to that run").
//
// Executing a view's SQL reuses the dispatcher's own validate-then-classify
// machinery (internal/safety, internal/qerrors) rather than going through
// dispatcher.Dispatcher.Query itself: Query borrows-and-resets a pooled
// adapter per call (spec.md §4.8), which would erase the very view
// registrations this run depends on. Driving the pool directly is the
// documented resolution to that tension (see DESIGN.md).
type Materializer struct {
	Pool       *engine.Pool
	Remote     discovery.Client
	OutputRoot string
	Logger     *zap.Logger
}

// New constructs a Materializer. logger may be nil, in which case a no-op
// logger is used.
func New(pool *engine.Pool, remote discovery.Client, outputRoot string, logger *zap.Logger) *Materializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Materializer{Pool: pool, Remote: remote, OutputRoot: outputRoot, Logger: logger}
}

// Run executes manifest end to end against cfg's base table (spec.md §4.9
// algorithm steps 1-5).
func (m *Materializer) Run(ctx context.Context, cfg types.DataSourceConfig, manifest *Manifest) (*Report, error) {
	levels, err := orderedLevels(manifest)
	if err != nil {
		return nil, err
	}

	adapter, release, err := m.Pool.Borrow(ctx)
	if err != nil {
		return nil, qerrors.Classify(err)
	}
	defer release()
	defer adapter.Reset(ctx) //nolint:errcheck // best-effort cleanup at run end

	if err := m.registerBaseTable(ctx, adapter, cfg); err != nil {
		return nil, err
	}

	report := &Report{}
	aborted := false

	for _, level := range levels {
		if aborted {
			for _, v := range level {
				report.Skipped = append(report.Skipped, v.Name)
			}
			continue
		}

		outcomes, levelErr := m.runLevel(ctx, adapter, cfg, level)
		for _, oc := range outcomes {
			if oc.Err != nil {
				report.Failed = append(report.Failed, oc.Name)
				continue
			}
			report.Produced = append(report.Produced, oc.Name)
		}
		if levelErr != nil {
			aborted = true
			m.Logger.Error("materializer level aborted", zap.Error(levelErr))
		}
	}

	if aborted {
		return report, qerrors.New(qerrors.KindInternal, "materializer run aborted after a view execution failed",
			"inspect the report's Failed/Skipped lists for which views did not complete")
	}
	return report, nil
}

// runLevel executes every view in a level concurrently (spec.md §4.9 step
// 3: "within a level, views are independent and may be executed in
// parallel"), registering each successful output before returning.
func (m *Materializer) runLevel(ctx context.Context, adapter engine.Adapter, cfg types.DataSourceConfig, level []types.ViewDefinition) ([]ViewOutcome, error) {
	outcomes := make([]ViewOutcome, len(level))
	var mu sync.Mutex
	var regErr error

	g, gctx := errgroup.WithContext(ctx)
	for i, view := range level {
		i, view := i, view
		g.Go(func() error {
			outPath, err := m.runView(gctx, adapter, cfg, view)
			outcomes[i] = ViewOutcome{Name: view.Name, Path: outPath, Err: err}
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if regErr == nil {
				regErr = adapter.RegisterFile(gctx, view.Name, types.FileRef{LocalPath: outPath, Format: types.ContentFormatParquet, SizeBytes: -1})
			}
			return nil
		})
	}

	runErr := g.Wait()
	if runErr == nil {
		runErr = regErr
	}
	return outcomes, runErr
}

// runView validates and executes a single view's SQL, then stages-then-
// renames its output to its deterministic path (spec.md §4.9 steps 4a-4b).
func (m *Materializer) runView(ctx context.Context, adapter engine.Adapter, cfg types.DataSourceConfig, view types.ViewDefinition) (string, error) {
	start := time.Now()
	path, err := m.runViewUninstrumented(ctx, adapter, cfg, view)

	attrs := metric.WithAttributes(attribute.String("view", view.Name), attribute.Bool("error", err != nil))
	materializerMetrics.viewsRun.Add(ctx, 1, attrs)
	materializerMetrics.viewDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	return path, err
}

func (m *Materializer) runViewUninstrumented(ctx context.Context, adapter engine.Adapter, cfg types.DataSourceConfig, view types.ViewDefinition) (string, error) {
	if err := safety.Validate(view.SQL, cfg.MaxRows, safety.Options{MaxQueryLen: cfg.MaxQueryLen, MaxRows: cfg.MaxRows}); err != nil {
		return "", err
	}

	frame, err := adapter.Execute(ctx, view.SQL, cfg.MaxRows)
	if err != nil {
		return "", qerrors.Classify(err)
	}

	levelDir := filepath.Join(m.OutputRoot, fmt.Sprintf("%d", view.Level))
	if err := os.MkdirAll(levelDir, 0o755); err != nil {
		return "", qerrors.Wrap(qerrors.KindInternal, "creating materializer output directory failed", err)
	}

	finalPath := filepath.Join(levelDir, view.Name+columnarExt)
	stagingPath := finalPath + ".curq-tmp"

	if err := writeParquetFile(stagingPath, frame); err != nil {
		os.Remove(stagingPath)
		return "", qerrors.Wrap(qerrors.KindInternal, fmt.Sprintf("writing view %q output failed", view.Name), err)
	}
	if err := os.Rename(stagingPath, finalPath); err != nil {
		os.Remove(stagingPath)
		return "", qerrors.Wrap(qerrors.KindInternal, fmt.Sprintf("finalizing view %q output failed", view.Name), err)
	}

	m.Logger.Info("materialized view", zap.String("view", view.Name), zap.Int("level", view.Level), zap.Int("rows", frame.RowCount()))
	return finalPath, nil
}

// registerBaseTable resolves cfg's base table file set the same way C6/C8
// would (force-remote when the local cache is not usable) and registers it
// under cfg's table name so level-0 views can reference it.
func (m *Materializer) registerBaseTable(ctx context.Context, adapter engine.Adapter, cfg types.DataSourceConfig) error {
	forceRemote := !cache.IsUsable(cfg)

	var files []types.FileRef
	if !forceRemote {
		local, err := cache.ListFiles(cfg)
		if err != nil {
			return qerrors.Wrap(qerrors.KindInternal, "reading local cache for base table failed", err)
		}
		files = local
	} else {
		if m.Remote == nil {
			return qerrors.New(qerrors.KindInternal, "base table is not cached locally and no remote discovery is configured")
		}
		result, err := discovery.Discover(ctx, m.Remote, cfg)
		if err != nil {
			return err
		}
		files = result.Files
	}

	if len(files) == 0 {
		return qerrors.New(qerrors.KindNotFound, "no files matched the configured partition window for the base table",
			"list partitions near the requested date window")
	}

	if err := adapter.RegisterTable(ctx, cfg.TableNameOrDefault(), files); err != nil {
		return qerrors.Classify(err)
	}
	return nil
}
