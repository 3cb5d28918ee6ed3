// Package dispatcher implements C8: the unified query dispatcher. A caller
// hands it a query request; it resolves the physical source via C6,
// determines the concrete file set via C3/C4, registers it with an engine
// adapter (C7), executes, and translates adapter errors through C10
// (spec.md §4.8).
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/steveyegge/curq/internal/cache"
	"github.com/steveyegge/curq/internal/discovery"
	"github.com/steveyegge/curq/internal/engine"
	"github.com/steveyegge/curq/internal/qerrors"
	"github.com/steveyegge/curq/internal/resolver"
	"github.com/steveyegge/curq/internal/safety"
	"github.com/steveyegge/curq/internal/types"
)

// dispatcherMetrics holds OTel instruments for query execution, registered
// against the global delegating provider at init time so they forward to
// the real provider once internal/telemetry.Init runs (same convention as
// the teacher's internal/storage/dolt doltMetrics).
var dispatcherMetrics struct {
	queries       metric.Int64Counter
	queryDuration metric.Float64Histogram
	rowsReturned  metric.Int64Counter
}

func init() {
	m := otel.Meter("github.com/steveyegge/curq/dispatcher")
	dispatcherMetrics.queries, _ = m.Int64Counter("curq.query.count",
		metric.WithDescription("Queries dispatched, by data source and outcome"))
	dispatcherMetrics.queryDuration, _ = m.Float64Histogram("curq.query.duration_ms",
		metric.WithDescription("Query execution time"), metric.WithUnit("ms"))
	dispatcherMetrics.rowsReturned, _ = m.Int64Counter("curq.query.rows",
		metric.WithDescription("Rows returned across all queries"))
}

// Options is a query request's per-call options (spec.md §6).
type Options struct {
	ForceRemote bool
	RowLimit    int
	Deadline    time.Duration

	// SQL overrides the query run against a direct-file source's
	// single-file table; when empty, "SELECT * FROM <table>" is used
	// (spec.md §4.6's "the dispatcher will inline the file path as a
	// literal table in the SQL" — the enclosing SQL defaults to a select
	// over the configured table name when the caller does not supply one).
	SQL string
}

// DataSourceKind is the metadata tag for where a query's rows came from.
type DataSourceKind int

const (
	DataSourceLocal DataSourceKind = iota
	DataSourceRemote
	DataSourceDirectFile
)

func (d DataSourceKind) String() string {
	switch d {
	case DataSourceLocal:
		return "local"
	case DataSourceRemote:
		return "remote"
	case DataSourceDirectFile:
		return "direct-file"
	default:
		return "unknown"
	}
}

// Metadata is attached to every successful query response (spec.md §4.8
// step 6, §6).
type Metadata struct {
	DataSource        DataSourceKind
	Rows              int
	ExecutionTime     time.Duration
	Engine            string
	SkippedPartitions []string
}

// Dispatcher wires C6/C3/C4/C7/C10 together into the Query operation.
type Dispatcher struct {
	Remote discovery.Client
	Pool   *engine.Pool

	breaker *gobreaker.CircuitBreaker
}

// New constructs a Dispatcher. remote may be nil only if every query this
// instance serves resolves to a local or direct-file source.
func New(remote discovery.Client, pool *engine.Pool) *Dispatcher {
	return &Dispatcher{
		Remote: remote,
		Pool:   pool,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "engine-execute",
			MaxRequests: 1,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 8
			},
		}),
	}
}

// Query is C8's primary operation (spec.md §4.8).
func (d *Dispatcher) Query(ctx context.Context, target string, cfg types.DataSourceConfig, opts Options) (*types.ResultFrame, *Metadata, error) {
	if opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Deadline)
		defer cancel()
	}
	if opts.RowLimit <= 0 {
		opts.RowLimit = cfg.MaxRows
	}

	start := time.Now()

	// Step 2 in spec order (C6 classifies/loads); this is a pure local
	// classification step (no object-store or engine access), so running it
	// before C11 does not weaken the "reject before any data access"
	// property the validator exists to uphold.
	res, err := resolver.Resolve(target, cfg, opts.ForceRemote)
	if err != nil {
		return nil, nil, err
	}

	effectiveSQL := opts.SQL
	if res.Kind != resolver.SourceKindDirectFile {
		effectiveSQL = res.SQL
	} else if effectiveSQL == "" {
		effectiveSQL = fmt.Sprintf("SELECT * FROM %s", cfg.TableNameOrDefault())
	}

	// Step 1: safety validation (spec.md's Open Question, resolved: direct-
	// file queries are validated too — see SPEC_FULL.md §6).
	if err := safety.Validate(effectiveSQL, opts.RowLimit, safety.Options{MaxQueryLen: cfg.MaxQueryLen, MaxRows: cfg.MaxRows}); err != nil {
		return nil, nil, err
	}

	var files []types.FileRef
	var dataSource DataSourceKind
	var skipped []string

	switch res.Kind {
	case resolver.SourceKindDirectFile:
		dataSource = DataSourceDirectFile
		files = []types.FileRef{{LocalPath: res.DirectFilePath, Format: types.ContentFormatParquet, SizeBytes: -1}}
	default:
		if res.Backing == resolver.BackingLocal {
			dataSource = DataSourceLocal
			files, err = cache.ListFiles(cfg)
			if err != nil {
				return nil, nil, qerrors.Wrap(qerrors.KindInternal, "reading local cache failed", err)
			}
		} else {
			dataSource = DataSourceRemote
			if d.Remote == nil {
				return nil, nil, qerrors.New(qerrors.KindInternal, "no remote discovery configured for a remote-backed query")
			}
			discResult, err := discovery.Discover(ctx, d.Remote, cfg)
			if err != nil {
				return nil, nil, err
			}
			files = discResult.Files
			skipped = discResult.SkippedPartitions
		}
	}

	if len(files) == 0 && res.Kind != resolver.SourceKindDirectFile {
		return nil, nil, qerrors.New(qerrors.KindNotFound, "no files matched the configured partition window",
			"list partitions near the requested date window")
	}

	var frame *types.ResultFrame
	var engineName string

	runErr := d.Pool.With(ctx, func(a engine.Adapter) error {
		engineName = a.Name()
		tableName := cfg.TableNameOrDefault()
		var regErr error
		if len(files) == 1 && res.Kind == resolver.SourceKindDirectFile {
			regErr = a.RegisterFile(ctx, tableName, files[0])
		} else {
			regErr = a.RegisterTable(ctx, tableName, files)
		}
		if regErr != nil {
			return regErr
		}

		result, execErr := d.executeWithBreaker(ctx, a, effectiveSQL, opts.RowLimit)
		if execErr != nil {
			return execErr
		}
		frame = result
		return nil
	})

	elapsed := time.Since(start)
	dispatcherMetrics.queryDuration.Record(ctx, float64(elapsed.Milliseconds()),
		metric.WithAttributes(attribute.String("data_source", dataSource.String())))

	if runErr != nil {
		dispatcherMetrics.queries.Add(ctx, 1,
			metric.WithAttributes(attribute.String("data_source", dataSource.String()), attribute.Bool("error", true)))
		if qe, ok := runErr.(*qerrors.QueryError); ok {
			return nil, nil, qe
		}
		return nil, nil, qerrors.Classify(runErr)
	}

	dispatcherMetrics.queries.Add(ctx, 1,
		metric.WithAttributes(attribute.String("data_source", dataSource.String()), attribute.Bool("error", false)))
	dispatcherMetrics.rowsReturned.Add(ctx, int64(frame.RowCount()))

	return frame, &Metadata{
		DataSource:        dataSource,
		Rows:              frame.RowCount(),
		ExecutionTime:     elapsed,
		Engine:            engineName,
		SkippedPartitions: skipped,
	}, nil
}

func (d *Dispatcher) executeWithBreaker(ctx context.Context, a engine.Adapter, sql string, rowLimit int) (*types.ResultFrame, error) {
	result, err := d.breaker.Execute(func() (interface{}, error) {
		return a.Execute(ctx, sql, rowLimit)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, qerrors.New(qerrors.KindTransient, "engine is temporarily unavailable after repeated failures",
				"retry-after: engine circuit breaker is open")
		}
		return nil, err
	}
	return result.(*types.ResultFrame), nil
}
