package cleaner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/2ykwang/mac-maintain-go/internal/config"
	"github.com/2ykwang/mac-maintain-go/internal/logger"
	"github.com/2ykwang/mac-maintain-go/internal/privilege"
	"github.com/2ykwang/mac-maintain-go/internal/scanner"
	"github.com/2ykwang/mac-maintain-go/internal/types"
	"github.com/2ykwang/mac-maintain-go/internal/utils"
)

var (
	pathsInUse = utils.PathsInUse
	removeAll  = os.RemoveAll
)

const moveCommand = "/bin/mv"

// PrivilegedRunner runs commands under an existing authorization session.
type PrivilegedRunner interface {
	RunPrivilegedBatch(ctx context.Context, s *privilege.Session, cmds []privilege.Command) []error
}

type Options struct {
	Trasher    Trasher
	TrashDir   string
	Scanner    *scanner.Scanner
	CheckInUse bool
	// OnItemDone is called once per path, in submission order for unprivileged
	// paths and after the privileged batch for the rest.
	OnItemDone func(types.DeletionOutcome)
}

// Executor deletes confirmed selections, one independent outcome per path.
type Executor struct {
	catalog    *config.Catalog
	broker     PrivilegedRunner
	trasher    Trasher
	trashDir   string
	scanner    *scanner.Scanner
	checkInUse bool
	onItemDone func(types.DeletionOutcome)
}

func NewExecutor(catalog *config.Catalog, broker PrivilegedRunner, opts Options) *Executor {
	e := &Executor{
		catalog:    catalog,
		broker:     broker,
		trasher:    opts.Trasher,
		trashDir:   opts.TrashDir,
		scanner:    opts.Scanner,
		checkInUse: opts.CheckInUse,
		onItemDone: opts.OnItemDone,
	}
	if e.trasher == nil {
		e.trasher = FinderTrasher{}
	}
	if e.trashDir == "" {
		e.trashDir = utils.TrashDir()
	}
	if e.scanner == nil {
		e.scanner = scanner.New(scanner.DefaultOptions())
	}
	return e
}

// NeedsElevation reports whether any of paths falls in a category that requires administrator rights.
func (e *Executor) NeedsElevation(paths []string) bool {
	for _, p := range paths {
		if e.requiresElevation(filepath.Clean(p)) {
			return true
		}
	}
	return false
}

func (e *Executor) requiresElevation(path string) bool {
	cat, ok := e.catalog.CategoryForPath(path)
	return ok && cat.RequiresElevatedAccess
}

func (e *Executor) method(path string) types.CleanupMethod {
	if cat, ok := e.catalog.CategoryForPath(path); ok {
		return cat.Method
	}
	return types.MethodTrash
}

// Delete removes paths and reports one outcome per path in submission order.
// Privileged paths run in a single batch under session; without a valid session they fail.
func (e *Executor) Delete(ctx context.Context, paths []string, session *privilege.Session) types.DeletionSummary {
	return e.DeleteWithAuth(ctx, paths, session, nil)
}

// DeleteWithAuth is Delete for a caller whose elevation attempt failed with authErr.
// Privileged paths then report the declined authorization instead of a missing one.
func (e *Executor) DeleteWithAuth(ctx context.Context, paths []string, session *privilege.Session, authErr error) types.DeletionSummary {
	outcomes := make([]types.DeletionOutcome, len(paths))
	finished := make([]bool, len(paths))
	finish := func(i int, o types.DeletionOutcome) {
		outcomes[i] = o
		finished[i] = true
		e.report(o)
	}

	inUse := e.inUse(ctx, paths)

	var privileged []int
	for i, raw := range paths {
		if ctx.Err() != nil {
			break
		}

		path := filepath.Clean(raw)
		o := types.DeletionOutcome{Path: raw}

		if reason := e.validate(raw, path); reason != "" {
			finish(i, failed(o, reason, nil))
			continue
		}

		stats, err := e.scanner.Scan(ctx, path, scanner.ModeFull)
		if types.IsCancelled(err) {
			break
		}
		o.Size = stats.Size

		if inUse[path] {
			finish(i, failed(o, types.ReasonInUse, nil))
			continue
		}

		if e.requiresElevation(path) {
			o.Privileged = true
			outcomes[i] = o
			privileged = append(privileged, i)
			continue
		}

		if err := e.remove(ctx, path); err != nil {
			logger.Warn("delete failed", "path", path, "error", err)
			o = failed(o, failureReason(err), err)
		} else {
			o.Status = types.DeletionSucceeded
		}
		finish(i, o)
	}

	if len(privileged) > 0 && ctx.Err() == nil {
		e.runPrivileged(ctx, session, authErr, privileged, outcomes, finish)
	}

	var summary types.DeletionSummary
	for i := range outcomes {
		if !finished[i] {
			outcomes[i].Path = paths[i]
			outcomes[i].Status = types.DeletionSkipped
			outcomes[i].Reason = types.ReasonCancelled
		}
		summary.Add(outcomes[i])
	}
	logger.Info("delete completed",
		"total", summary.Total(),
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"bytesFreed", summary.BytesFreed)
	return summary
}

func (e *Executor) validate(raw, path string) string {
	if raw == "" || !filepath.IsAbs(raw) {
		return types.ReasonInvalidPath
	}
	// The escapers drop these, so the command would name a different file.
	if utils.StripControl(raw) != raw {
		return types.ReasonInvalidPath
	}
	if config.IsProtected(path, e.catalog.Home()) || e.catalog.IsContainer(path) {
		return types.ReasonForbidden
	}
	if utils.IsSIPProtected(path) {
		return types.ReasonSIPProtected
	}
	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.ReasonNotFound
		}
		if errors.Is(err, fs.ErrPermission) && !e.requiresElevation(path) {
			return types.ReasonPermission
		}
	}
	return ""
}

func (e *Executor) inUse(ctx context.Context, paths []string) map[string]bool {
	if !e.checkInUse || len(paths) == 0 {
		return nil
	}
	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		cleaned = append(cleaned, filepath.Clean(p))
	}
	locked, err := pathsInUse(ctx, cleaned)
	if err != nil {
		logger.Debug("in-use check failed", "error", err)
		return nil
	}
	return locked
}

func (e *Executor) remove(ctx context.Context, path string) error {
	if e.method(path) == types.MethodPermanent {
		return removeAll(path)
	}
	return e.trasher.Trash(ctx, path)
}

func (e *Executor) runPrivileged(
	ctx context.Context,
	session *privilege.Session,
	authErr error,
	indices []int,
	outcomes []types.DeletionOutcome,
	finish func(int, types.DeletionOutcome),
) {
	if !session.IsValid() || e.broker == nil {
		reason := types.ReasonNeedsAuth
		if errors.Is(authErr, types.ErrAuthorizationDenied) {
			reason = types.ReasonAuthDeclined
		}
		for _, i := range indices {
			finish(i, failed(outcomes[i], reason, types.ErrSessionInvalid))
		}
		return
	}

	cmds := make([]privilege.Command, 0, len(indices))
	taken := make(map[string]bool, len(indices))
	for _, i := range indices {
		src := filepath.Clean(outcomes[i].Path)
		cmds = append(cmds, privilege.NewCommand(moveCommand, "-f", "--", src, e.trashDestination(src, taken)))
	}

	results := e.broker.RunPrivilegedBatch(ctx, session, cmds)
	for n, i := range indices {
		o := outcomes[i]
		if err := results[n]; err != nil {
			logger.Warn("privileged delete failed", "path", o.Path, "fingerprint", cmds[n].Fingerprint(), "error", err)
			o = failed(o, failureReason(err), err)
		} else {
			o.Status = types.DeletionSucceeded
		}
		finish(i, o)
	}
}

// trashDestination picks a Trash path for src that neither exists nor is already
// claimed by another command in the same batch.
func (e *Executor) trashDestination(src string, taken map[string]bool) string {
	dst := utils.UniqueTrashPath(e.trashDir, src)
	if !taken[dst] {
		taken[dst] = true
		return dst
	}
	ext := filepath.Ext(dst)
	stem := strings.TrimSuffix(dst, ext)
	for n := 2; ; n++ {
		candidate := stem + " " + strconv.Itoa(n) + ext
		if !taken[candidate] && !utils.PathExists(candidate) {
			taken[candidate] = true
			return candidate
		}
	}
}

func failed(o types.DeletionOutcome, reason string, err error) types.DeletionOutcome {
	o.Status = types.DeletionFailed
	o.Reason = reason
	o.Err = &types.DeletionError{Path: o.Path, Reason: reason, Err: err}
	return o
}

func (e *Executor) report(o types.DeletionOutcome) {
	if e.onItemDone != nil {
		e.onItemDone(o)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, types.ErrSessionExpired):
		return types.ReasonAuthExpired
	case errors.Is(err, types.ErrSessionInvalid):
		return types.ReasonNeedsAuth
	case errors.Is(err, fs.ErrPermission):
		return types.ReasonPermission
	case errors.Is(err, fs.ErrNotExist):
		return types.ReasonNotFound
	}

	var cmdErr *types.CommandError
	if errors.As(err, &cmdErr) {
		out := strings.ToLower(cmdErr.Output)
		switch {
		case strings.Contains(out, "operation not permitted"), strings.Contains(out, "permission denied"):
			return types.ReasonPermission
		case strings.Contains(out, "no such file"):
			return types.ReasonNotFound
		}
		return types.ReasonCommandFailed
	}
	return err.Error()
}
