package utils

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	osUserHomeDir      = os.UserHomeDir
	osReadDir          = os.ReadDir
	execLookPath       = exec.LookPath
	execCommandContext = exec.CommandContext
	timeNow            = time.Now
)

// HomeDir returns the current user's home directory, or "" when it cannot be determined.
func HomeDir() string {
	home, err := osUserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

func ExpandPath(path string) string {
	if path == "~" {
		if home := HomeDir(); home != "" {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		home := HomeDir()
		if home == "" {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// FormatSize renders a byte count with binary units.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatAge renders t relative to now, or "-" for the zero time.
func FormatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, timeNow(), "ago", "from now")
}

func PathExists(path string) bool {
	_, err := os.Lstat(ExpandPath(path))
	return err == nil
}

func CommandExists(cmd string) bool {
	_, err := execLookPath(cmd)
	return err == nil
}

func GlobPaths(pattern string) ([]string, error) {
	return filepath.Glob(ExpandPath(pattern))
}

// IsWithin reports whether path equals root or lies below it. Both are cleaned first.
func IsWithin(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// IsHidden reports whether the last path element starts with a dot.
func IsHidden(name string) bool {
	base := filepath.Base(name)
	return len(base) > 1 && strings.HasPrefix(base, ".") && base != ".."
}

// CheckFullDiskAccess checks if the process has Full Disk Access permission
// by attempting to read the Trash directory
func CheckFullDiskAccess() bool {
	_, err := osReadDir(TrashDir())
	return err == nil
}
