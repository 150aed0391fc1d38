package target

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2ykwang/mac-maintain-go/internal/scanner"
	"github.com/2ykwang/mac-maintain-go/internal/types"
)

func newCategory(id string) types.Category {
	return types.Category{ID: id, Name: id, Safety: types.SafetyLevelSafe, Method: types.MethodTrash}
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

// --- getMaxWorkers Tests ---

func TestGetMaxWorkers(t *testing.T) {
	assert.Equal(t, 4, getMaxWorkers(1))
	assert.Equal(t, 8, getMaxWorkers(8))
	assert.Equal(t, 16, getMaxWorkers(64))
}

// --- IsAvailable Tests ---

func TestIsAvailable_ReturnsTrue_WhenPathsHaveMatchingFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "test.txt"), 4)

	s := NewPathTarget(newCategory("test"), []string{filepath.Join(tmpDir, "*")}, nil)

	assert.True(t, s.IsAvailable())
}

func TestIsAvailable_ReturnsFalse_WhenPathsNotExists(t *testing.T) {
	s := NewPathTarget(newCategory("test"), []string{"/nonexistent/path/xyz/*"}, nil)

	assert.False(t, s.IsAvailable())
}

// --- Scan Tests ---

func TestScan_ReturnsItems_ForMatchingPaths(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "file1.txt"), 5)
	writeFile(t, filepath.Join(tmpDir, "dir", "a.bin"), 100)
	writeFile(t, filepath.Join(tmpDir, "dir", "b.bin"), 100)

	s := NewPathTarget(newCategory("test"), []string{filepath.Join(tmpDir, "*")}, nil)
	result, err := s.Scan(context.Background(), scanner.ModeFull, nil)

	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, filepath.Join(tmpDir, "dir"), result.Items[0].Path)
	assert.True(t, result.Items[0].IsDirectory)
	assert.Equal(t, int64(2), result.Items[0].FileCount)
	assert.Equal(t, "test", result.Items[0].CategoryID)
	assert.True(t, result.Items[0].Selected)
	assert.Equal(t, "file1.txt", result.Items[1].Name)
	assert.Positive(t, result.TotalSize())
}

func TestScan_NoMatches_ReturnsEmptyResult(t *testing.T) {
	s := NewPathTarget(newCategory("test"), []string{filepath.Join(t.TempDir(), "missing", "*")}, nil)

	result, err := s.Scan(context.Background(), scanner.ModeFast, nil)

	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.NoError(t, result.Error)
}

func TestScan_DeduplicatesOverlappingPatterns(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.log"), 1)

	s := NewPathTarget(newCategory("test"), []string{
		filepath.Join(tmpDir, "*"),
		filepath.Join(tmpDir, "*.log"),
	}, nil)
	result, err := s.Scan(context.Background(), scanner.ModeFull, nil)

	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
}

func TestScan_SkipsUserExcludes(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "keep", "x"), 1)
	writeFile(t, filepath.Join(tmpDir, "drop", "x"), 1)

	cat := newCategory("test")
	cat.Excludes = []string{filepath.Join(tmpDir, "keep")}
	s := NewPathTarget(cat, []string{filepath.Join(tmpDir, "*")}, nil)
	result, err := s.Scan(context.Background(), scanner.ModeFull, nil)

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "drop", result.Items[0].Name)
}

func TestScan_FastMode_MarksEstimated(t *testing.T) {
	tmpDir := t.TempDir()
	for i := 0; i < 12; i++ {
		writeFile(t, filepath.Join(tmpDir, "big", string(rune('a'+i))), 1)
	}

	s := NewPathTarget(newCategory("test"), []string{filepath.Join(tmpDir, "*")}, scanner.New(scanner.Options{MaxItems: 5}))
	result, err := s.Scan(context.Background(), scanner.ModeFast, nil)

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.True(t, result.Items[0].Estimated)
	assert.True(t, result.Truncated)
}

func TestScan_ReportsProgressUpToOne(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d"} {
		writeFile(t, filepath.Join(tmpDir, name), 1)
	}

	var (
		mu        sync.Mutex
		fractions []float64
	)
	s := NewPathTarget(newCategory("test"), []string{filepath.Join(tmpDir, "*")}, nil)
	_, err := s.Scan(context.Background(), scanner.ModeFull, func(f float64) {
		mu.Lock()
		fractions = append(fractions, f)
		mu.Unlock()
	})

	require.NoError(t, err)
	require.Len(t, fractions, 4)
	assert.InDelta(t, 1.0, fractions[3], 1e-9)
}

func TestScan_Cancelled_ReturnsErrCancelled(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a"), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewPathTarget(newCategory("test"), []string{filepath.Join(tmpDir, "*")}, nil)
	_, err := s.Scan(ctx, scanner.ModeFull, nil)

	assert.ErrorIs(t, err, types.ErrCancelled)
}

func TestScan_UnreadableRoot_SetsResultError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission checks")
	}
	root := filepath.Join(t.TempDir(), "locked")
	writeFile(t, filepath.Join(root, "x"), 1)
	require.NoError(t, os.Chmod(root, 0o000))
	t.Cleanup(func() { _ = os.Chmod(root, 0o755) })

	s := NewPathTarget(newCategory("test"), []string{filepath.Join(root, "*")}, nil)
	result, err := s.Scan(context.Background(), scanner.ModeFull, nil)

	require.NoError(t, err)
	var permErr *types.ScanPermissionError
	assert.ErrorAs(t, result.Error, &permErr)
}

func TestScan_UnreadableEntry_KeptForElevatedRemoval(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission checks")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "open", "a"), 100)
	locked := filepath.Join(root, "locked")
	writeFile(t, filepath.Join(locked, "b"), 100)
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	s := NewPathTarget(newCategory("test"), []string{filepath.Join(root, "*")}, nil)
	result, err := s.Scan(context.Background(), scanner.ModeFull, nil)

	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, locked, result.Items[0].Path)
	assert.True(t, result.Items[0].Unreadable)
	assert.True(t, result.Items[0].Estimated)
	assert.Equal(t, int64(0), result.Items[0].Size)
	assert.True(t, result.Items[0].Selected)
	assert.False(t, result.Items[1].Unreadable)
	assert.Equal(t, 1, result.Denied)
}

func TestScan_CountsDeniedEntriesInsideItems(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses permission checks")
	}
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app", "a"), 100)
	nested := filepath.Join(root, "app", "private")
	writeFile(t, filepath.Join(nested, "b"), 100)
	require.NoError(t, os.Chmod(nested, 0o000))
	t.Cleanup(func() { _ = os.Chmod(nested, 0o755) })

	s := NewPathTarget(newCategory("test"), []string{filepath.Join(root, "*")}, nil)
	result, err := s.Scan(context.Background(), scanner.ModeFull, nil)

	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.False(t, result.Items[0].Unreadable)
	assert.Equal(t, 1, result.Denied)
}
