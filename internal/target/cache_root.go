package target

import (
	"github.com/2ykwang/mac-maintain-go/internal/scanner"
	"github.com/2ykwang/mac-maintain-go/internal/types"
	"github.com/2ykwang/mac-maintain-go/internal/utils"
)

// CacheRootTarget scans a shared root such as ~/Library/Caches, excluding paths owned by other categories
type CacheRootTarget struct {
	*PathTarget
	excludePaths []string
}

func NewCacheRootTarget(cat types.Category, patterns []string, ownedElsewhere []string, sc *scanner.Scanner) *CacheRootTarget {
	s := &CacheRootTarget{
		PathTarget:   NewPathTarget(cat, patterns, sc),
		excludePaths: ownedElsewhere,
	}
	s.PathTarget.excluded = s.isExcluded
	return s
}

// isExcluded reports whether path belongs to a more specific category or to a user exclusion.
// A path that merely contains another category's location is kept.
func (s *CacheRootTarget) isExcluded(path string) bool {
	if path == "" {
		return false
	}
	for _, exclude := range s.excludePaths {
		if utils.IsWithin(path, exclude) {
			return true
		}
	}
	return s.isUserExcluded(path)
}
