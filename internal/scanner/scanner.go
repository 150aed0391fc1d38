// Package scanner measures directory trees with bounded, cancellable walks.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/2ykwang/mac-maintain-go/internal/logger"
	"github.com/2ykwang/mac-maintain-go/internal/types"
	"github.com/2ykwang/mac-maintain-go/internal/utils"
)

type Mode int

const (
	// ModeFast caps the walk at Options.MaxItems entries and does not descend into packages.
	ModeFast Mode = iota
	// ModeFull walks everything except hidden descendants.
	ModeFull
)

func (m Mode) String() string {
	if m == ModeFull {
		return "full"
	}
	return "fast"
}

const (
	DefaultMaxItems   = 500
	DefaultYieldEvery = 64
	maxDeniedPaths    = 100
)

// Directory suffixes treated as opaque packages in fast mode.
var packageSuffixes = []string{
	".app",
	".bundle",
	".framework",
	".plugin",
	".kext",
	".photoslibrary",
	".xcarchive",
	".appex",
	".dSYM",
}

// ProgressFunc receives the running totals at every yield point.
type ProgressFunc func(path string, items int64, size int64)

type Options struct {
	MaxItems   int
	YieldEvery int
	OnProgress ProgressFunc
}

func DefaultOptions() Options {
	return Options{MaxItems: DefaultMaxItems, YieldEvery: DefaultYieldEvery}
}

// Stats is the result of one walk. On cancellation it holds the totals seen so far.
type Stats struct {
	Size        int64
	Items       int64
	Denied      int
	DeniedPaths []string
	Truncated   bool
	Cancelled   bool
}

type Scanner struct {
	opts Options
}

func New(opts Options) *Scanner {
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.YieldEvery <= 0 {
		opts.YieldEvery = DefaultYieldEvery
	}
	return &Scanner{opts: opts}
}

var defaultScanner = New(DefaultOptions())

// Scan measures path with default options.
func Scan(ctx context.Context, path string, mode Mode) (Stats, error) {
	return defaultScanner.Scan(ctx, path, mode)
}

// Scan measures path. A cancelled walk returns the partial Stats together with types.ErrCancelled.
func (s *Scanner) Scan(ctx context.Context, path string, mode Mode) (Stats, error) {
	var stats Stats

	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return stats, &types.ScanPermissionError{Path: path, Err: err}
		}
		return stats, fmt.Errorf("scan %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		stats.Cancelled = true
		return stats, fmt.Errorf("scan %s: %w", path, types.ErrCancelled)
	}

	if !info.IsDir() {
		stats.Size = allocatedSize(info)
		stats.Items = 1
		return stats, nil
	}

	w := walker{
		ctx:   ctx,
		opts:  s.opts,
		mode:  mode,
		stats: &stats,
	}
	if err := w.walk(path, true); err != nil {
		if errors.Is(err, errLimit) {
			stats.Truncated = true
			return stats, nil
		}
		if types.IsCancelled(err) {
			stats.Cancelled = true
			return stats, fmt.Errorf("scan %s: %w", path, types.ErrCancelled)
		}
		return stats, err
	}
	return stats, nil
}

var errLimit = errors.New("item limit reached")

type walker struct {
	ctx     context.Context
	opts    Options
	mode    Mode
	stats   *Stats
	visited int
}

func (w *walker) walk(dir string, root bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if root {
			if errors.Is(err, fs.ErrPermission) {
				return &types.ScanPermissionError{Path: dir, Err: err}
			}
			return fmt.Errorf("scan %s: %w", dir, err)
		}
		w.deny(dir, err)
		return nil
	}

	for _, entry := range entries {
		name := entry.Name()
		if utils.IsHidden(name) {
			continue
		}
		full := filepath.Join(dir, name)

		if entry.IsDir() {
			if w.mode == ModeFast && isPackage(name) {
				if err := w.count(full, entry); err != nil {
					return err
				}
				continue
			}
			if err := w.checkpoint(full); err != nil {
				return err
			}
			if err := w.walk(full, false); err != nil {
				return err
			}
			continue
		}
		if err := w.count(full, entry); err != nil {
			return err
		}
	}
	return nil
}

// count adds one entry to the totals, then runs the yield checkpoint and the fast-mode cap.
func (w *walker) count(path string, entry fs.DirEntry) error {
	info, err := entry.Info()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		w.deny(path, err)
		return nil
	}
	w.stats.Size += allocatedSize(info)
	w.stats.Items++

	if err := w.checkpoint(path); err != nil {
		return err
	}
	if w.mode == ModeFast && w.stats.Items >= int64(w.opts.MaxItems) {
		return errLimit
	}
	return nil
}

// checkpoint counts one visited entry, file or directory, and every YieldEvery
// visits yields, reports progress and checks for cancellation.
func (w *walker) checkpoint(path string) error {
	w.visited++
	if w.visited%w.opts.YieldEvery != 0 {
		return nil
	}
	runtime.Gosched()
	if w.opts.OnProgress != nil {
		w.opts.OnProgress(path, w.stats.Items, w.stats.Size)
	}
	return w.ctx.Err()
}

func (w *walker) deny(path string, err error) {
	w.stats.Denied++
	if len(w.stats.DeniedPaths) < maxDeniedPaths {
		w.stats.DeniedPaths = append(w.stats.DeniedPaths, path)
	}
	logger.Debug("scan entry skipped", "path", path, "error", err)
}

func isPackage(name string) bool {
	for _, suffix := range packageSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
