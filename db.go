// Package dbdelta asserts how database state changes while code under test
// runs. A DB captures snapshots of data sources and checks the rows deleted
// and inserted since, or the complete state of a source, against
// expectations.
//
//	db := dbdelta.New(conn)
//	users := datasource.NewTable(dbtable.ParseName("users"), datasource.Cols("id", "login")...)
//	_, err := db.TakeSnapshot(ctx, users)
//	// ... run code that deletes user 1 ...
//	res, err := db.AssertDeleted(ctx, dataset.New(users).MustAdd(1, "user1"))
//	if !res.Passed() { ... }
package dbdelta

import (
	"context"
	"runtime"
	"sync"

	"github.com/cockroachdb/dbdelta/assertion"
	"github.com/cockroachdb/dbdelta/dataset"
	"github.com/cockroachdb/dbdelta/datasource"
	"github.com/cockroachdb/dbdelta/dbtable"
	"github.com/cockroachdb/dbdelta/delta"
	"github.com/cockroachdb/dbdelta/report"
	"github.com/cockroachdb/dbdelta/rowval"
	"github.com/cockroachdb/dbdelta/snapshot"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// ErrInvalidArgument marks calls made with arguments that can never work.
var ErrInvalidArgument = errors.New("invalid argument")

type Opt func(*dbOpts)

type dbOpts struct {
	logger       zerolog.Logger
	options      report.Options
	reporters    []report.Reporter
	concurrency  int
	closeQuerier bool
}

// WithLogger sets the logger assertions, snapshots and queries are logged
// to, subject to the logging options.
func WithLogger(l zerolog.Logger) Opt {
	return func(o *dbOpts) {
		o.logger = l
	}
}

// WithOptions sets the logging options. The default only logs failed
// assertions.
func WithOptions(opts report.Options) Opt {
	return func(o *dbOpts) {
		o.options = opts
	}
}

// WithReporter adds a reporter receiving every report, regardless of the
// logging options.
func WithReporter(r report.Reporter) Opt {
	return func(o *dbOpts) {
		o.reporters = append(o.reporters, r)
	}
}

// WithConcurrency bounds how many sources TakeSnapshots queries at once.
// Values below one mean DefaultConcurrency.
func WithConcurrency(c int) Opt {
	return func(o *dbOpts) {
		o.concurrency = c
	}
}

// WithCloseQuerier makes Close also close the querier, if it can be closed.
func WithCloseQuerier(b bool) Opt {
	return func(o *dbOpts) {
		o.closeQuerier = b
	}
}

// DB runs assertions against the database behind a querier. It keeps one
// snapshot per data source.
type DB struct {
	querier  snapshot.Querier
	reporter report.Reporter
	logger   zerolog.Logger
	opts     dbOpts

	mu struct {
		sync.Mutex
		trackers map[datasource.Source]*snapshot.Tracker
	}
}

func New(q snapshot.Querier, opts ...Opt) *DB {
	o := dbOpts{
		logger:      zerolog.Nop(),
		options:     report.DefaultOptions(),
		concurrency: DefaultConcurrency,
	}
	for _, applyOpt := range opts {
		applyOpt(&o)
	}
	if o.concurrency <= 0 {
		o.concurrency = DefaultConcurrency
	}
	reporters := append(
		[]report.Reporter{report.FilterReporter{Reporter: report.LogReporter{Logger: o.logger}, Options: o.options}},
		o.reporters...,
	)
	db := &DB{
		querier:  q,
		reporter: report.CombinedReporter{Reporters: reporters},
		logger:   o.logger,
		opts:     o,
	}
	db.mu.trackers = make(map[datasource.Source]*snapshot.Tracker)
	return db
}

// Options returns the logging options in effect.
func (db *DB) Options() report.Options {
	return db.opts.options
}

func (db *DB) tracker(src datasource.Source) *snapshot.Tracker {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.mu.trackers[src]
	if !ok {
		t = snapshot.NewTracker(src)
		db.mu.trackers[src] = t
	}
	return t
}

// State returns whether a snapshot of src is held.
func (db *DB) State(src datasource.Source) snapshot.State {
	return db.tracker(src).State()
}

// TakeSnapshot captures the current rows of src and keeps them as the base
// for later delta assertions.
func (db *DB) TakeSnapshot(ctx context.Context, src datasource.Source) (*dataset.DataSet, error) {
	return db.takeSnapshot(ctx, callInfo(), src)
}

func (db *DB) takeSnapshot(
	ctx context.Context, ci report.CallInfo, src datasource.Source,
) (*dataset.DataSet, error) {
	db.reportQuery(ci, src)
	ds, err := db.tracker(src).Capture(ctx, db.querier)
	if err != nil {
		return nil, err
	}
	db.reporter.Report(report.SnapshotReport{CallInfo: ci, Data: ds})
	return ds, nil
}

// TakeSnapshots captures snapshots of several sources concurrently.
func (db *DB) TakeSnapshots(ctx context.Context, srcs ...datasource.Source) error {
	ci := callInfo()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(db.opts.concurrency)
	for _, src := range srcs {
		src := src
		g.Go(func() error {
			_, err := db.takeSnapshot(ctx, ci, src)
			return err
		})
	}
	return g.Wait()
}

// Query returns the current rows of src without touching its snapshot.
func (db *DB) Query(ctx context.Context, src datasource.Source) (*dataset.DataSet, error) {
	ci := callInfo()
	db.reportQuery(ci, src)
	ds, err := snapshot.Take(ctx, db.querier, src)
	if err != nil {
		return nil, err
	}
	db.reporter.Report(report.SnapshotReport{CallInfo: ci, Data: ds})
	return ds, nil
}

// ComputeDelta diffs the current rows of src against its snapshot. The
// current rows become the new snapshot.
func (db *DB) ComputeDelta(ctx context.Context, src datasource.Source) (delta.Result, error) {
	return db.computeDelta(ctx, callInfo(), src)
}

func (db *DB) computeDelta(
	ctx context.Context, ci report.CallInfo, src datasource.Source,
) (delta.Result, error) {
	t := db.tracker(src)
	if t.State() == snapshot.HasSnapshot {
		db.reportQuery(ci, src)
	}
	res, err := t.Delta(ctx, db.querier)
	if err != nil {
		return delta.Result{}, err
	}
	db.reporter.Report(report.DeltaReport{CallInfo: ci, Source: src, Delta: res})
	return res, nil
}

// AssertDelta checks that, since the last snapshot of their source, exactly
// the rows of expOld were deleted and exactly the rows of expNew were
// inserted. Either may be nil for no rows, but not both. A failed assertion
// is reported and returned as a Result that did not pass; errors are only
// returned when the assertion could not be evaluated.
func (db *DB) AssertDelta(ctx context.Context, expOld, expNew *dataset.DataSet) (assertion.Result, error) {
	return db.assertDelta(ctx, callInfo(), expOld, expNew)
}

// AssertChanged is AssertDelta with both expectations given.
func (db *DB) AssertChanged(ctx context.Context, pre, post *dataset.DataSet) (assertion.Result, error) {
	if pre == nil || post == nil {
		return assertion.Result{}, errors.Wrap(ErrInvalidArgument, "AssertChanged needs both data sets")
	}
	return db.assertDelta(ctx, callInfo(), pre, post)
}

// AssertNoChanges checks that src did not change since its last snapshot.
func (db *DB) AssertNoChanges(ctx context.Context, src datasource.Source) (assertion.Result, error) {
	return db.assertDelta(ctx, callInfo(), dataset.Empty(src), dataset.Empty(src))
}

// AssertDeleted checks that exactly the rows of data were deleted from its
// source and nothing was inserted.
func (db *DB) AssertDeleted(ctx context.Context, data *dataset.DataSet) (assertion.Result, error) {
	if data == nil {
		return assertion.Result{}, errors.Wrap(ErrInvalidArgument, "nil data set")
	}
	return db.assertDelta(ctx, callInfo(), data, dataset.Empty(data.Source()))
}

// AssertInserted checks that exactly the rows of data were inserted into its
// source and nothing was deleted.
func (db *DB) AssertInserted(ctx context.Context, data *dataset.DataSet) (assertion.Result, error) {
	if data == nil {
		return assertion.Result{}, errors.Wrap(ErrInvalidArgument, "nil data set")
	}
	return db.assertDelta(ctx, callInfo(), dataset.Empty(data.Source()), data)
}

func (db *DB) assertDelta(
	ctx context.Context, ci report.CallInfo, expOld, expNew *dataset.DataSet,
) (assertion.Result, error) {
	var src datasource.Source
	switch {
	case expOld != nil && expNew != nil:
		if expOld.Source() != expNew.Source() {
			return assertion.Result{}, errors.Wrapf(
				dataset.ErrSourceMismatch, "expected deletions from %s and insertions into %s",
				expOld.Source().Name(), expNew.Source().Name(),
			)
		}
		src = expOld.Source()
	case expOld != nil:
		src = expOld.Source()
	case expNew != nil:
		src = expNew.Source()
	default:
		return assertion.Result{}, errors.Wrap(ErrInvalidArgument, "no expected data sets")
	}

	d, err := db.computeDelta(ctx, ci, src)
	if err != nil {
		return assertion.Result{}, err
	}
	res, err := assertion.EvaluateDelta(expOld, expNew, d)
	if err != nil {
		return assertion.Result{}, err
	}
	db.reporter.Report(report.AssertionReport{CallInfo: ci, Result: res})
	return res, nil
}

// AssertState checks that the source of expected holds exactly its rows.
// The rows read become the new snapshot of the source.
func (db *DB) AssertState(ctx context.Context, expected *dataset.DataSet) (assertion.Result, error) {
	if expected == nil {
		return assertion.Result{}, errors.Wrap(ErrInvalidArgument, "nil data set")
	}
	return db.assertState(ctx, callInfo(), expected)
}

// AssertEmpty checks that src has no rows.
func (db *DB) AssertEmpty(ctx context.Context, src datasource.Source) (assertion.Result, error) {
	return db.assertState(ctx, callInfo(), dataset.Empty(src))
}

func (db *DB) assertState(
	ctx context.Context, ci report.CallInfo, expected *dataset.DataSet,
) (assertion.Result, error) {
	actual, err := db.takeSnapshot(ctx, ci, expected.Source())
	if err != nil {
		return assertion.Result{}, err
	}
	res, err := assertion.EvaluateState(expected, actual)
	if err != nil {
		return assertion.Result{}, err
	}
	db.reporter.Report(report.AssertionReport{CallInfo: ci, Result: res})
	return res, nil
}

// Status reports a progress message to every reporter. A non-nil err is
// reported with it as a warning.
func (db *DB) Status(info string, err error) {
	db.reporter.Report(report.StatusReport{Info: info, Err: err})
}

// Close closes the reporters, and the querier if WithCloseQuerier was set.
func (db *DB) Close(ctx context.Context) error {
	db.reporter.Close()
	if !db.opts.closeQuerier {
		return nil
	}
	if c, ok := db.querier.(interface{ Close(context.Context) error }); ok {
		return c.Close(ctx)
	}
	return nil
}

func (db *DB) reportQuery(ci report.CallInfo, src datasource.Source) {
	d := dbtable.DialectPostgres
	if q, ok := db.querier.(interface{ Dialect() dbtable.Dialect }); ok {
		d = q.Dialect()
	}
	sql, err := src.SQL(d)
	if err != nil {
		db.logger.Debug().Err(err).Str("source", src.Name()).Msg("cannot render query")
		return
	}
	db.reporter.Report(report.QueryReport{CallInfo: ci, Source: src, SQL: sql, Args: src.Args()})
}

// callInfo returns the caller of the exported DB method calling it.
func callInfo() report.CallInfo {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return report.CallInfo{}
	}
	ci := report.CallInfo{File: file, Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		ci.Func = fn.Name()
	}
	return ci
}

// IsUsageError reports whether err was caused by misuse of the API, such
// as asking for a delta before taking a snapshot.
func IsUsageError(err error) bool {
	if IsExecutionError(err) {
		return false
	}
	return errors.IsAny(err,
		snapshot.ErrNoSnapshot,
		dataset.ErrFrozen,
		dataset.ErrColumnCount,
		dataset.ErrSourceMismatch,
		ErrInvalidArgument,
	)
}

// IsExecutionError reports whether err was caused by the database or by
// reading large column content.
func IsExecutionError(err error) bool {
	return errors.IsAny(err, snapshot.ErrQueryExecution, rowval.ErrContentRead)
}
