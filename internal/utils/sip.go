package utils

import (
	"path/filepath"
)

// SIP protected roots (cannot be modified even by root)
var sipProtectedRoots = []string{
	"/System",
	"/usr",
	"/bin",
	"/sbin",
	"/private/var/db/ConfigurationProfiles",
}

// SIP exception paths (writable even with SIP enabled)
var sipExceptionRoots = []string{
	"/usr/local",
	"/System/Library/Caches/com.apple.coresymbolicationd",
	"/System/Volumes/Data",
}

// IsSIPProtected checks if the given path is protected by macOS SIP.
func IsSIPProtected(path string) bool {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	resolved = filepath.Clean(resolved)

	for _, exception := range sipExceptionRoots {
		if IsWithin(resolved, exception) {
			return false
		}
	}
	for _, protected := range sipProtectedRoots {
		if IsWithin(resolved, protected) {
			return true
		}
	}
	return false
}
