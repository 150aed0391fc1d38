// Package engine runs category scans, leftover discovery and deletion on
// behalf of a front end. Scans are grouped into generations; starting a
// generation cancels the previous one and its late results are discarded.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/2ykwang/mac-maintain-go/internal/cleaner"
	"github.com/2ykwang/mac-maintain-go/internal/config"
	"github.com/2ykwang/mac-maintain-go/internal/leftover"
	"github.com/2ykwang/mac-maintain-go/internal/logger"
	"github.com/2ykwang/mac-maintain-go/internal/metadata"
	"github.com/2ykwang/mac-maintain-go/internal/privilege"
	"github.com/2ykwang/mac-maintain-go/internal/scanner"
	"github.com/2ykwang/mac-maintain-go/internal/target"
	"github.com/2ykwang/mac-maintain-go/internal/types"
)

// ProgressFunc receives the overall fraction of a ScanAll generation, in [0, 1].
type ProgressFunc func(fraction float64)

type Deps struct {
	Catalog  *config.Catalog
	Registry *target.Registry
	Finder   *leftover.Finder
	Broker   *privilege.Broker
	Executor *cleaner.Executor
	Scanner  *scanner.Scanner
	// Concurrency bounds how many categories scan at once.
	Concurrency int
}

type Engine struct {
	catalog     *config.Catalog
	registry    *target.Registry
	finder      *leftover.Finder
	broker      *privilege.Broker
	executor    *cleaner.Executor
	scanner     *scanner.Scanner
	concurrency int

	generation atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
}

func New(d Deps) *Engine {
	e := &Engine{
		catalog:     d.Catalog,
		registry:    d.Registry,
		finder:      d.Finder,
		broker:      d.Broker,
		executor:    d.Executor,
		scanner:     d.Scanner,
		concurrency: d.Concurrency,
	}
	if e.scanner == nil {
		e.scanner = scanner.New(scanner.DefaultOptions())
	}
	if e.concurrency <= 0 {
		e.concurrency = runtime.NumCPU()
	}
	if e.registry == nil {
		e.registry = target.DefaultRegistry(e.catalog, nil, 0)
	}
	if e.finder == nil {
		e.finder = leftover.NewFinder("", nil)
	}
	if e.executor == nil {
		e.executor = cleaner.NewExecutor(e.catalog, e.broker, cleaner.Options{})
	}
	return e
}

func (e *Engine) Catalog() []types.Category {
	return e.catalog.Categories()
}

func (e *Engine) Groups() []types.Group {
	return e.catalog.Groups()
}

// ScanCategory scans one category outside the ScanAll generations.
func (e *Engine) ScanCategory(ctx context.Context, id string, mode scanner.Mode) (*types.ScanResult, error) {
	t, ok := e.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown category: %s", id)
	}
	return t.Scan(ctx, mode, nil)
}

// ScanAll scans every available category concurrently. Results keep catalog
// order. A call made while another is running cancels the earlier one, which
// then returns types.ErrSuperseded.
func (e *Engine) ScanAll(ctx context.Context, mode scanner.Mode, onProgress ProgressFunc) ([]*types.ScanResult, error) {
	ctx, gen := e.begin(ctx)
	defer e.end(gen)

	targets := e.registry.Available()
	results := make([]*types.ScanResult, len(targets))
	progress := newAggregator(len(targets), onProgress)

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, t := range targets {
		g.Go(func() error {
			if ctx.Err() != nil {
				return types.ErrCancelled
			}
			result, err := t.Scan(ctx, mode, func(f float64) { progress.set(i, f) })
			if types.IsCancelled(err) {
				return err
			}
			if result == nil {
				result = types.NewScanResult(t.Category())
			}
			if err != nil && result.Error == nil {
				result.Error = err
			}
			progress.set(i, 1)
			results[i] = result
			return nil
		})
	}
	err := g.Wait()

	if e.generation.Load() != gen {
		logger.Debug("scan superseded", "generation", gen)
		return nil, types.ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	logger.Info("scan completed", "generation", gen, "categories", len(results), "mode", mode.String())
	return results, nil
}

// CancelScan cancels the running ScanAll generation, if any.
func (e *Engine) CancelScan() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) begin(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
	e.cancel = cancel
	return ctx, e.generation.Add(1)
}

func (e *Engine) end(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation.Load() == gen && e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// aggregator turns per-category fractions into one overall fraction.
type aggregator struct {
	mu        sync.Mutex
	fractions []float64
	last      float64
	fn        ProgressFunc
}

func newAggregator(n int, fn ProgressFunc) *aggregator {
	return &aggregator{fractions: make([]float64, n), fn: fn}
}

func (a *aggregator) set(i int, f float64) {
	if a.fn == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if f < a.fractions[i] {
		return
	}
	if f > 1 {
		f = 1
	}
	a.fractions[i] = f

	var sum float64
	for _, v := range a.fractions {
		sum += v
	}
	overall := sum / float64(len(a.fractions))
	if overall <= a.last {
		return
	}
	a.last = overall
	a.fn(overall)
}

// DiscoverLeftovers lists files under ~/Library that belong to app.
func (e *Engine) DiscoverLeftovers(ctx context.Context, app types.AppIdentity) ([]types.LeftoverFile, error) {
	return e.finder.Find(ctx, app)
}

// DiscoverLeftoversForApp reads the identity of the bundle at appPath, measures
// it and discovers its leftovers.
func (e *Engine) DiscoverLeftoversForApp(ctx context.Context, appPath string) (types.AppIdentity, []types.LeftoverFile, error) {
	app := metadata.ReadIdentity(appPath)
	stats, err := e.scanner.Scan(ctx, appPath, scanner.ModeFull)
	if err != nil {
		if types.IsCancelled(err) {
			return app, nil, err
		}
		logger.Debug("app size unavailable", "path", appPath, "error", err)
	} else {
		app.Size = stats.Size
	}
	files, err := e.finder.Find(ctx, app)
	return app, files, err
}

func (e *Engine) RequestElevation(ctx context.Context) (*privilege.Session, error) {
	if e.broker == nil {
		return nil, types.ErrAuthorizationDenied
	}
	return e.broker.RequestElevation(ctx)
}

func (e *Engine) Session() *privilege.Session {
	if e.broker == nil {
		return nil
	}
	return e.broker.Session()
}

// NeedsElevation reports whether deleting paths requires an administrator session.
func (e *Engine) NeedsElevation(paths []string) bool {
	return e.executor.NeedsElevation(paths)
}

// DeleteItems deletes paths under ctx, which is independent of any scan generation.
func (e *Engine) DeleteItems(ctx context.Context, paths []string, session *privilege.Session) types.DeletionSummary {
	return e.executor.Delete(ctx, paths, session)
}

// DeleteWithElevation requests elevation first when any path needs it. A
// declined prompt still deletes the unprivileged paths.
func (e *Engine) DeleteWithElevation(ctx context.Context, paths []string) types.DeletionSummary {
	var (
		session *privilege.Session
		authErr error
	)
	if e.executor.NeedsElevation(paths) {
		session, authErr = e.RequestElevation(ctx)
		if authErr != nil {
			logger.Warn("elevation failed", "error", authErr)
		}
	}
	return e.executor.DeleteWithAuth(ctx, paths, session, authErr)
}

// Close ends the administrator session, if one was granted.
func (e *Engine) Close() {
	e.CancelScan()
	if e.broker != nil {
		e.broker.Invalidate()
	}
}
