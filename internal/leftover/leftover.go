// Package leftover finds support files an application leaves behind in the user's Library.
package leftover

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/2ykwang/mac-maintain-go/internal/logger"
	"github.com/2ykwang/mac-maintain-go/internal/scanner"
	"github.com/2ykwang/mac-maintain-go/internal/types"
	"github.com/2ykwang/mac-maintain-go/internal/utils"
)

// Root is a support directory below the library root.
type Root struct {
	Dir   string
	Label string
}

// DefaultRoots are the support directories searched for leftovers, relative to ~/Library.
var DefaultRoots = []Root{
	{Dir: "Preferences", Label: "Preferences"},
	{Dir: "Caches", Label: "Caches"},
	{Dir: "Application Support", Label: "Application Support"},
	{Dir: "Containers", Label: "Containers"},
	{Dir: "Logs", Label: "Logs"},
	{Dir: "Saved Application State", Label: "Saved State"},
	{Dir: "Group Containers", Label: "Group Containers"},
	{Dir: "HTTPStorages", Label: "HTTP Storage"},
	{Dir: "WebKit", Label: "WebKit"},
	{Dir: "Cookies", Label: "Cookies"},
	{Dir: "LaunchAgents", Label: "Launch Agents"},
	{Dir: "Application Scripts", Label: "Application Scripts"},
}

const sizeWorkers = 4

type Finder struct {
	libraryRoot string
	roots       []Root
	scanner     *scanner.Scanner
}

// NewFinder returns a Finder over libraryRoot, or ~/Library when it is empty.
func NewFinder(libraryRoot string, sc *scanner.Scanner) *Finder {
	if libraryRoot == "" {
		libraryRoot = utils.ExpandPath("~/Library")
	}
	if sc == nil {
		sc = scanner.New(scanner.DefaultOptions())
	}
	return &Finder{libraryRoot: libraryRoot, roots: DefaultRoots, scanner: sc}
}

func (f *Finder) Roots() []Root {
	return append([]Root(nil), f.roots...)
}

type matcher struct {
	bundleID string
	name     string
}

func newMatcher(app types.AppIdentity) matcher {
	return matcher{
		bundleID: strings.ToLower(strings.TrimSpace(app.BundleID)),
		name:     strings.ToLower(strings.TrimSpace(app.Name)),
	}
}

// classify returns the confidence for an entry name, or false when it does not match.
func (m matcher) classify(entry string) (types.Confidence, bool) {
	lower := strings.ToLower(entry)
	if m.bundleID != "" && strings.Contains(lower, m.bundleID) {
		return types.ConfidenceHigh, true
	}
	if m.name != "" && strings.Contains(lower, m.name) {
		return types.ConfidenceMedium, true
	}
	return 0, false
}

// Classify reports the confidence an entry named entry has for app.
func Classify(app types.AppIdentity, entry string) (types.Confidence, bool) {
	return newMatcher(app).classify(entry)
}

// Find lists leftover candidates for app in root order, then name order within a root.
// It only reads the filesystem. A cancelled search returns what it found with types.ErrCancelled.
func (f *Finder) Find(ctx context.Context, app types.AppIdentity) ([]types.LeftoverFile, error) {
	m := newMatcher(app)
	if m.bundleID == "" && m.name == "" {
		return nil, nil
	}

	var found []types.LeftoverFile
	for _, root := range f.roots {
		if err := ctx.Err(); err != nil {
			return found, types.ErrCancelled
		}
		dir := filepath.Join(f.libraryRoot, root.Dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Debug("leftover root unreadable", "path", dir, "error", err)
			}
			continue
		}

		for _, entry := range entries {
			conf, ok := m.classify(entry.Name())
			if !ok {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if app.InstallPath != "" && utils.IsWithin(path, app.InstallPath) {
				continue
			}

			lf := types.LeftoverFile{
				Path:        path,
				Name:        entry.Name(),
				Category:    root.Label,
				Confidence:  conf,
				IsDirectory: entry.IsDir(),
				Selected:    true,
			}
			if info, err := entry.Info(); err == nil {
				lf.ModifiedAt = info.ModTime()
			}
			found = append(found, lf)
		}
	}

	if err := f.measure(ctx, found); err != nil {
		return found, err
	}
	return found, nil
}

// measure fills in sizes with full-mode scans. Entries that cannot be measured keep size 0.
func (f *Finder) measure(ctx context.Context, files []types.LeftoverFile) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sizeWorkers)

	for i := range files {
		g.Go(func() error {
			stats, err := f.scanner.Scan(gctx, files[i].Path, scanner.ModeFull)
			if err != nil {
				if types.IsCancelled(err) {
					return types.ErrCancelled
				}
				logger.Debug("leftover size unavailable", "path", files[i].Path, "error", err)
			}
			files[i].Size = stats.Size
			return nil
		})
	}
	return g.Wait()
}
