//go:build darwin || linux || freebsd

package scanner

import (
	"io/fs"
	"syscall"
)

// allocatedSize returns the on-disk size of info, falling back to its logical size.
func allocatedSize(info fs.FileInfo) int64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok && st.Blocks > 0 {
		return st.Blocks * 512
	}
	if size := info.Size(); size > 0 {
		return size
	}
	return 0
}
