package cleaner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/2ykwang/mac-maintain-go/internal/config"
	"github.com/2ykwang/mac-maintain-go/internal/mocks"
	"github.com/2ykwang/mac-maintain-go/internal/privilege"
	"github.com/2ykwang/mac-maintain-go/internal/scanner"
	"github.com/2ykwang/mac-maintain-go/internal/types"
)

type fixture struct {
	home    string
	trash   string
	catalog *config.Catalog
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	home := t.TempDir()
	cfg := &types.Config{Categories: []types.Category{
		{ID: "user-caches", Safety: types.SafetyLevelSafe, Method: types.MethodTrash, Paths: []string{"~/Library/Caches/*"}},
		{ID: "system-caches", Safety: types.SafetyLevelModerate, Method: types.MethodTrash, Paths: []string{"~/System/Caches/*"}, RequiresElevatedAccess: true},
		{ID: "trash", Safety: types.SafetyLevelSafe, Method: types.MethodPermanent, Paths: []string{"~/.Trash/*"}},
	}}
	return fixture{
		home:    home,
		trash:   filepath.Join(home, ".Trash"),
		catalog: config.NewCatalog(cfg, home),
	}
}

func (f fixture) file(t *testing.T, rel string, size int) (string, int64) {
	t.Helper()
	path := filepath.Join(f.home, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	stats, err := scanner.Scan(context.Background(), path, scanner.ModeFull)
	require.NoError(t, err)
	return path, stats.Size
}

func grantedSession(t *testing.T) *privilege.Session {
	t.Helper()
	elevator := &mocks.MockElevator{}
	elevator.On("Authorize", mock.Anything).Return(nil)
	s, err := privilege.NewBroker(elevator).RequestElevation(context.Background())
	require.NoError(t, err)
	return s
}

// --- Delete Tests ---

func TestDelete_OneFailureDoesNotAbortBatch(t *testing.T) {
	f := newFixture(t)
	var paths []string
	var sizes []int64
	for i := 0; i < 5; i++ {
		p, _ := f.file(t, fmt.Sprintf("Library/Caches/app%d/data", i), 1000*(i+1))
		dir := filepath.Dir(p)
		stats, err := scanner.Scan(context.Background(), dir, scanner.ModeFull)
		require.NoError(t, err)
		paths = append(paths, dir)
		sizes = append(sizes, stats.Size)
	}

	trasher := &mocks.MockTrasher{}
	trasher.On("Trash", mock.Anything, paths[2]).Return(fmt.Errorf("move to trash: %w", fs.ErrPermission))
	trasher.On("Trash", mock.Anything, mock.Anything).Return(nil)

	summary := NewExecutor(f.catalog, nil, Options{Trasher: trasher, TrashDir: f.trash}).
		Delete(context.Background(), paths, nil)

	assert.Equal(t, 4, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures(), 1)
	assert.Equal(t, paths[2], summary.Failures()[0].Path)
	assert.Equal(t, types.ReasonPermission, summary.Failures()[0].Reason)
	assert.Equal(t, sizes[0]+sizes[1]+sizes[3]+sizes[4], summary.BytesFreed)
	assert.Equal(t, types.SummaryPartial, summary.State())
	assert.Equal(t, "4 of 5 items removed, 1 require permission", summary.Message())
	for i, o := range summary.Outcomes {
		assert.Equal(t, paths[i], o.Path, "outcomes must keep submission order")
	}
	trasher.AssertNumberOfCalls(t, "Trash", 5)
}

func TestDelete_RoutesPrivilegedPathsPerPath(t *testing.T) {
	f := newFixture(t)
	user, userSize := f.file(t, "Library/Caches/com.example/db", 100)
	sys1, sys1Size := f.file(t, "System/Caches/com.apple.a", 200)
	sys2, _ := f.file(t, "System/Caches/com.apple.b", 300)
	session := grantedSession(t)

	trasher := &mocks.MockTrasher{}
	trasher.On("Trash", mock.Anything, user).Return(nil)
	runner := &mocks.MockPrivilegedRunner{}
	runner.On("RunPrivilegedBatch", mock.Anything, session, mock.Anything).Return([]error{
		nil,
		&types.CommandError{Command: "mv", ExitCode: 1, Output: "mv: rename: Operation not permitted"},
	}).Once()

	summary := NewExecutor(f.catalog, runner, Options{Trasher: trasher, TrashDir: f.trash}).
		Delete(context.Background(), []string{sys1, user, sys2}, session)

	require.Len(t, summary.Outcomes, 3)
	assert.Equal(t, types.DeletionSucceeded, summary.Outcomes[0].Status)
	assert.True(t, summary.Outcomes[0].Privileged)
	assert.Equal(t, types.DeletionSucceeded, summary.Outcomes[1].Status)
	assert.False(t, summary.Outcomes[1].Privileged)
	assert.Equal(t, types.DeletionFailed, summary.Outcomes[2].Status)
	assert.Equal(t, types.ReasonPermission, summary.Outcomes[2].Reason)
	assert.Equal(t, sys1Size+userSize, summary.BytesFreed)

	cmds := runner.Calls[0].Arguments.Get(2).([]privilege.Command)
	require.Len(t, cmds, 2)
	assert.Equal(t, "/bin/mv", cmds[0].Name)
	assert.Equal(t, []string{"-f", "--", sys1, filepath.Join(f.trash, "com.apple.a")}, cmds[0].Args)
	assert.Equal(t, sys2, cmds[1].Args[2])
	runner.AssertExpectations(t)
	trasher.AssertExpectations(t)
}

func TestDelete_PrivilegedWithoutSession_RequiresAuthorization(t *testing.T) {
	f := newFixture(t)
	sys, _ := f.file(t, "System/Caches/x", 10)
	user, _ := f.file(t, "Library/Caches/y", 10)
	trasher := &mocks.MockTrasher{}
	trasher.On("Trash", mock.Anything, user).Return(nil)
	runner := &mocks.MockPrivilegedRunner{}

	summary := NewExecutor(f.catalog, runner, Options{Trasher: trasher}).
		Delete(context.Background(), []string{sys, user}, nil)

	assert.Equal(t, types.ReasonNeedsAuth, summary.Outcomes[0].Reason)
	assert.Equal(t, types.DeletionSucceeded, summary.Outcomes[1].Status)
	runner.AssertNotCalled(t, "RunPrivilegedBatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteWithAuth_DeclinedPrompt(t *testing.T) {
	f := newFixture(t)
	sys, _ := f.file(t, "System/Caches/x", 10)

	summary := NewExecutor(f.catalog, &mocks.MockPrivilegedRunner{}, Options{Trasher: &mocks.MockTrasher{}}).
		DeleteWithAuth(context.Background(), []string{sys}, nil, types.ErrAuthorizationDenied)

	assert.Equal(t, types.ReasonAuthDeclined, summary.Outcomes[0].Reason)
	assert.True(t, summary.Outcomes[0].NeedsPermission())
	assert.Equal(t, types.SummaryTotalFailure, summary.State())
}

func TestDelete_DuplicateNamesGetDistinctDestinations(t *testing.T) {
	f := newFixture(t)
	a, _ := f.file(t, "System/Caches/one/cache.db", 10)
	b, _ := f.file(t, "System/Caches/two/cache.db", 10)
	session := grantedSession(t)
	runner := &mocks.MockPrivilegedRunner{}
	runner.On("RunPrivilegedBatch", mock.Anything, session, mock.Anything).Return([]error{nil, nil})

	NewExecutor(f.catalog, runner, Options{TrashDir: f.trash}).
		Delete(context.Background(), []string{a, b}, session)

	cmds := runner.Calls[0].Arguments.Get(2).([]privilege.Command)
	require.Len(t, cmds, 2)
	assert.NotEqual(t, cmds[0].Args[3], cmds[1].Args[3])
}

func TestDelete_ValidatesEachPath(t *testing.T) {
	f := newFixture(t)
	trasher := &mocks.MockTrasher{}

	summary := NewExecutor(f.catalog, nil, Options{Trasher: trasher}).Delete(context.Background(), []string{
		"relative/path",
		"",
		filepath.Join(f.home, "Library/Caches/missing"),
		f.home,
		filepath.Join(f.home, "Documents", "thesis.pdf"),
		"/System/Library/Caches",
	}, nil)

	reasons := make([]string, 0, len(summary.Outcomes))
	for _, o := range summary.Outcomes {
		assert.Equal(t, types.DeletionFailed, o.Status)
		reasons = append(reasons, o.Reason)
	}
	assert.Equal(t, []string{
		types.ReasonInvalidPath,
		types.ReasonInvalidPath,
		types.ReasonNotFound,
		types.ReasonForbidden,
		types.ReasonForbidden,
		types.ReasonForbidden,
	}, reasons)
	trasher.AssertNotCalled(t, "Trash", mock.Anything, mock.Anything)
}

func TestDelete_RejectsControlCharacters(t *testing.T) {
	f := newFixture(t)
	selected, _ := f.file(t, "System/Caches/a\x01b", 10)
	bystander, _ := f.file(t, "System/Caches/ab", 10)
	user, _ := f.file(t, "Library/Caches/c\x7fd\x1b", 10)
	session := grantedSession(t)
	trasher := &mocks.MockTrasher{}
	runner := &mocks.MockPrivilegedRunner{}

	summary := NewExecutor(f.catalog, runner, Options{Trasher: trasher, TrashDir: f.trash}).
		Delete(context.Background(), []string{selected, user}, session)

	require.Len(t, summary.Outcomes, 2)
	for _, o := range summary.Outcomes {
		assert.Equal(t, types.DeletionFailed, o.Status)
		assert.Equal(t, types.ReasonInvalidPath, o.Reason)
	}
	assert.FileExists(t, selected)
	assert.FileExists(t, bystander)
	runner.AssertNotCalled(t, "RunPrivilegedBatch", mock.Anything, mock.Anything, mock.Anything)
	trasher.AssertNotCalled(t, "Trash", mock.Anything, mock.Anything)
}

func TestDelete_RefusesCategoryContainers(t *testing.T) {
	f := newFixture(t)
	f.file(t, ".Trash/old.zip", 10)
	f.file(t, "System/Caches/com.apple.a", 10)
	f.file(t, "Library/Caches/com.example/db", 10)
	session := grantedSession(t)
	trasher := &mocks.MockTrasher{}
	runner := &mocks.MockPrivilegedRunner{}

	var removed []string
	original := removeAll
	removeAll = func(path string) error {
		removed = append(removed, path)
		return nil
	}
	defer func() { removeAll = original }()

	summary := NewExecutor(f.catalog, runner, Options{Trasher: trasher, TrashDir: f.trash}).
		Delete(context.Background(), []string{
			f.trash,
			filepath.Join(f.home, "System", "Caches"),
			filepath.Join(f.home, "Library", "Caches") + "/",
		}, session)

	require.Len(t, summary.Outcomes, 3)
	for _, o := range summary.Outcomes {
		assert.Equal(t, types.DeletionFailed, o.Status)
		assert.Equal(t, types.ReasonForbidden, o.Reason)
	}
	assert.Equal(t, 0, summary.Succeeded)
	assert.Empty(t, removed)
	assert.DirExists(t, f.trash)
	runner.AssertNotCalled(t, "RunPrivilegedBatch", mock.Anything, mock.Anything, mock.Anything)
	trasher.AssertNotCalled(t, "Trash", mock.Anything, mock.Anything)
}

func TestDelete_PermanentCategoryRemovesFiles(t *testing.T) {
	f := newFixture(t)
	p, size := f.file(t, ".Trash/old.zip", 4096)
	trasher := &mocks.MockTrasher{}

	summary := NewExecutor(f.catalog, nil, Options{Trasher: trasher}).Delete(context.Background(), []string{p}, nil)

	assert.Equal(t, types.SummaryAllSucceeded, summary.State())
	assert.Equal(t, size, summary.BytesFreed)
	_, err := os.Stat(p)
	assert.True(t, os.IsNotExist(err))
	trasher.AssertNotCalled(t, "Trash", mock.Anything, mock.Anything)
}

func TestDelete_CancelledMidBatch_SkipsRemainder(t *testing.T) {
	f := newFixture(t)
	var paths []string
	for i := 0; i < 4; i++ {
		p, _ := f.file(t, fmt.Sprintf("Library/Caches/c%d", i), 10)
		paths = append(paths, p)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	trasher := &mocks.MockTrasher{}
	trasher.On("Trash", mock.Anything, mock.Anything).Return(nil)
	done := 0
	summary := NewExecutor(f.catalog, nil, Options{
		Trasher: trasher,
		OnItemDone: func(types.DeletionOutcome) {
			done++
			if done == 2 {
				cancel()
			}
		},
	}).Delete(ctx, paths, nil)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, types.ReasonCancelled, summary.Outcomes[2].Reason)
	assert.Equal(t, paths[3], summary.Outcomes[3].Path)
	trasher.AssertNumberOfCalls(t, "Trash", 2)
}

func TestDelete_InUsePathsFail(t *testing.T) {
	f := newFixture(t)
	busy, _ := f.file(t, "Library/Caches/busy", 10)
	idle, _ := f.file(t, "Library/Caches/idle", 10)

	original := pathsInUse
	defer func() { pathsInUse = original }()
	pathsInUse = func(_ context.Context, paths []string) (map[string]bool, error) {
		return map[string]bool{busy: true}, nil
	}

	trasher := &mocks.MockTrasher{}
	trasher.On("Trash", mock.Anything, idle).Return(nil)

	summary := NewExecutor(f.catalog, nil, Options{Trasher: trasher, CheckInUse: true}).
		Delete(context.Background(), []string{busy, idle}, nil)

	assert.Equal(t, types.ReasonInUse, summary.Outcomes[0].Reason)
	assert.Equal(t, types.DeletionSucceeded, summary.Outcomes[1].Status)
}

func TestDelete_Empty(t *testing.T) {
	summary := NewExecutor(newFixture(t).catalog, nil, Options{}).Delete(context.Background(), nil, nil)

	assert.Equal(t, types.SummaryNothing, summary.State())
}

// --- NeedsElevation Tests ---

func TestNeedsElevation(t *testing.T) {
	f := newFixture(t)
	e := NewExecutor(f.catalog, nil, Options{})

	assert.False(t, e.NeedsElevation([]string{filepath.Join(f.home, "Library/Caches/x")}))
	assert.True(t, e.NeedsElevation([]string{
		filepath.Join(f.home, "Library/Caches/x"),
		filepath.Join(f.home, "System/Caches/y"),
	}))
	assert.False(t, e.NeedsElevation(nil))
}

// --- failureReason Tests ---

func TestFailureReason(t *testing.T) {
	assert.Equal(t, types.ReasonAuthExpired, failureReason(types.ErrSessionExpired))
	assert.Equal(t, types.ReasonNeedsAuth, failureReason(types.ErrSessionInvalid))
	assert.Equal(t, types.ReasonNotFound, failureReason(fmt.Errorf("x: %w", fs.ErrNotExist)))
	assert.Equal(t, types.ReasonNotFound, failureReason(&types.CommandError{Output: "mv: x: No such file or directory"}))
	assert.Equal(t, types.ReasonCommandFailed, failureReason(&types.CommandError{Output: "weird"}))
	assert.Equal(t, "boom", failureReason(errors.New("boom")))
}

// --- Trasher Tests ---

func TestRenameTrasher_MovesIntoDir(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "a.log")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	dir := filepath.Join(root, "Trash")

	require.NoError(t, RenameTrasher{Dir: dir}.Trash(context.Background(), src))

	_, err := os.Stat(filepath.Join(dir, "a.log"))
	assert.NoError(t, err)
}

func TestDelete_FailuresCarryDeletionError(t *testing.T) {
	f := newFixture(t)
	p, _ := f.file(t, "Library/Caches/x", 10)
	trasher := &mocks.MockTrasher{}
	trasher.On("Trash", mock.Anything, p).Return(fmt.Errorf("move to trash: %w", fs.ErrPermission))

	summary := NewExecutor(f.catalog, nil, Options{Trasher: trasher}).Delete(context.Background(), []string{p}, nil)

	var delErr *types.DeletionError
	require.ErrorAs(t, summary.Outcomes[0].Err, &delErr)
	assert.Equal(t, p, delErr.Path)
	assert.ErrorIs(t, summary.Outcomes[0].Err, fs.ErrPermission)
}
