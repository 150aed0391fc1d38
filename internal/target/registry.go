package target

import (
	"github.com/2ykwang/mac-maintain-go/internal/config"
	"github.com/2ykwang/mac-maintain-go/internal/scanner"
)

// Categories whose paths are shared roots that other categories carve subdirectories out of.
var cacheRootIDs = map[string]bool{
	"user-caches":   true,
	"user-logs":     true,
	"system-caches": true,
	"system-logs":   true,
}

func IsCacheRootID(id string) bool {
	return cacheRootIDs[id]
}

// DefaultRegistry builds one target per catalog category, in catalog order.
func DefaultRegistry(catalog *config.Catalog, sc *scanner.Scanner, workers int) *Registry {
	r := NewRegistry()

	for _, cat := range catalog.Categories() {
		patterns := catalog.Resolve(cat)
		var s Target
		if IsCacheRootID(cat.ID) {
			t := NewCacheRootTarget(cat, patterns, catalog.OwnedBases(cat.ID), sc)
			t.SetWorkers(workers)
			s = t
		} else {
			t := NewPathTarget(cat, patterns, sc)
			t.SetWorkers(workers)
			s = t
		}
		r.Register(s)
	}

	return r
}
