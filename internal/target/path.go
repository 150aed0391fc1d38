package target

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/2ykwang/mac-maintain-go/internal/logger"
	"github.com/2ykwang/mac-maintain-go/internal/scanner"
	"github.com/2ykwang/mac-maintain-go/internal/types"
	"github.com/2ykwang/mac-maintain-go/internal/utils"
)

// getMaxWorkers returns the optimal number of workers based on CPU cores
func getMaxWorkers(numCPU int) int {
	if numCPU > 16 {
		return 16
	}
	if numCPU < 4 {
		return 4
	}
	return numCPU
}

// PathTarget scans the entries matched by a category's resolved path patterns.
type PathTarget struct {
	category types.Category
	patterns []string
	scanner  *scanner.Scanner
	workers  int
	excluded func(path string) bool
}

func NewPathTarget(cat types.Category, patterns []string, sc *scanner.Scanner) *PathTarget {
	if sc == nil {
		sc = scanner.New(scanner.DefaultOptions())
	}
	s := &PathTarget{
		category: cat,
		patterns: patterns,
		scanner:  sc,
		workers:  getMaxWorkers(runtime.NumCPU()),
	}
	s.excluded = s.isUserExcluded
	return s
}

// SetWorkers bounds the number of entries measured concurrently.
func (s *PathTarget) SetWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

func (s *PathTarget) Category() types.Category {
	return s.category
}

func (s *PathTarget) IsAvailable() bool {
	for _, pattern := range s.patterns {
		paths, err := utils.GlobPaths(pattern)
		if err == nil && len(paths) > 0 {
			return true
		}
	}
	return false
}

func (s *PathTarget) Scan(ctx context.Context, mode scanner.Mode, progress ProgressFunc) (*types.ScanResult, error) {
	result := types.NewScanResult(s.category)

	paths, err := s.collectPaths()
	if err != nil {
		result.Error = err
	}
	if len(paths) == 0 {
		report(progress, 1)
		return result, nil
	}

	if err := s.scanPathsParallel(ctx, result, paths, mode, progress); err != nil {
		return result, err
	}
	return result, nil
}

// collectPaths expands every pattern, dropping SIP protected and excluded paths.
// An unreadable pattern base is returned as a ScanPermissionError.
func (s *PathTarget) collectPaths() ([]string, error) {
	var (
		paths   []string
		seen    = make(map[string]bool)
		rootErr error
	)
	for _, pattern := range s.patterns {
		if err := checkPatternBase(pattern); err != nil && rootErr == nil {
			rootErr = err
		}
		matched, err := utils.GlobPaths(pattern)
		if err != nil {
			continue
		}
		for _, p := range matched {
			if seen[p] || utils.IsSIPProtected(p) || s.excluded(p) {
				continue
			}
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths, rootErr
}

func checkPatternBase(pattern string) error {
	dir := filepath.Dir(pattern)
	for dir != "/" && dir != "." && hasMeta(dir) {
		dir = filepath.Dir(dir)
	}
	if _, err := os.ReadDir(dir); err != nil && errors.Is(err, fs.ErrPermission) {
		logger.Debug("category root unreadable", "path", dir, "error", err)
		return &types.ScanPermissionError{Path: dir, Err: err}
	}
	return nil
}

func hasMeta(path string) bool {
	for _, c := range path {
		switch c {
		case '*', '?', '[':
			return true
		}
	}
	return false
}

func (s *PathTarget) isUserExcluded(path string) bool {
	for _, ex := range s.category.Excludes {
		if utils.IsWithin(path, utils.ExpandPath(ex)) {
			return true
		}
	}
	return false
}

// scanPathsParallel scans multiple paths concurrently using a worker pool and fills result.
func (s *PathTarget) scanPathsParallel(ctx context.Context, result *types.ScanResult, paths []string, mode scanner.Mode, progress ProgressFunc) error {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		items     = make([]types.CleanableItem, 0, len(paths))
		done      int
		cancelled bool
	)

	sem := make(chan struct{}, s.workers)

	for _, path := range paths {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			defer func() { <-sem }()

			item, stats, err := s.scanPath(ctx, p, mode)

			mu.Lock()
			defer mu.Unlock()
			done++
			result.Denied += stats.Denied
			if err != nil {
				if types.IsCancelled(err) {
					cancelled = true
				} else {
					logger.Debug("scan entry failed", "category", s.category.ID, "path", p, "error", err)
				}
			} else {
				items = append(items, item)
				result.Truncated = result.Truncated || stats.Truncated
			}
			report(progress, float64(done)/float64(len(paths)))
		}(path)
	}
	wg.Wait()

	// Sort for consistent ordering
	sort.Slice(items, func(i, j int) bool {
		return items[i].Path < items[j].Path
	})

	result.Items = items
	if cancelled {
		return types.ErrCancelled
	}
	return nil
}

func (s *PathTarget) scanPath(ctx context.Context, path string, mode scanner.Mode) (types.CleanableItem, scanner.Stats, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return types.CleanableItem{}, scanner.Stats{}, err
	}

	stats, err := s.scanner.Scan(ctx, path, mode)
	var permErr *types.ScanPermissionError
	unreadable := errors.As(err, &permErr)
	if err != nil && !unreadable {
		return types.CleanableItem{}, stats, err
	}

	item := types.NewCleanableItem(path, s.category.ID, stats.Size)
	item.FileCount = stats.Items
	item.IsDirectory = info.IsDir()
	item.ModifiedAt = info.ModTime()
	item.Estimated = stats.Truncated
	if unreadable {
		logger.Debug("scan entry unreadable", "category", s.category.ID, "path", path, "error", err)
		item.Unreadable = true
		item.Estimated = true
		stats.Denied++
	}
	return item, stats, nil
}

func report(progress ProgressFunc, fraction float64) {
	if progress != nil {
		progress(fraction)
	}
}
