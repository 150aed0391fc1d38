package target

import (
	"context"

	"github.com/2ykwang/mac-maintain-go/internal/scanner"
	"github.com/2ykwang/mac-maintain-go/internal/types"
)

// ProgressFunc receives the fraction of a category's entries measured so far, in [0, 1].
type ProgressFunc func(fraction float64)

type Target interface {
	Scan(ctx context.Context, mode scanner.Mode, progress ProgressFunc) (*types.ScanResult, error)
	Category() types.Category
	IsAvailable() bool
}

// Registry keeps targets in catalog order.
type Registry struct {
	order   []string
	targets map[string]Target
}

func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]Target)}
}

// Register adds s, replacing any target with the same category ID in place.
func (r *Registry) Register(s Target) {
	id := s.Category().ID
	if _, ok := r.targets[id]; !ok {
		r.order = append(r.order, id)
	}
	r.targets[id] = s
}

func (r *Registry) Get(id string) (Target, bool) {
	s, ok := r.targets[id]
	return s, ok
}

func (r *Registry) All() []Target {
	result := make([]Target, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.targets[id])
	}
	return result
}

func (r *Registry) Available() []Target {
	result := make([]Target, 0)
	for _, s := range r.All() {
		if s.IsAvailable() {
			result = append(result, s)
		}
	}
	return result
}
