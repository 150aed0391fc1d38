//go:build !(darwin || linux || freebsd)

package scanner

import "io/fs"

func allocatedSize(info fs.FileInfo) int64 {
	if size := info.Size(); size > 0 {
		return size
	}
	return 0
}
