package cleaner

import (
	"context"

	"github.com/2ykwang/mac-maintain-go/internal/utils"
)

// Trasher moves a path into the user's recoverable Trash.
type Trasher interface {
	Trash(ctx context.Context, path string) error
}

// FinderTrasher asks Finder to trash the path, which keeps "Put Back" working.
type FinderTrasher struct{}

func (FinderTrasher) Trash(ctx context.Context, path string) error {
	return utils.MoveToTrash(ctx, path)
}

// RenameTrasher renames the path into Dir. It needs no Automation permission.
type RenameTrasher struct {
	Dir string
}

func (t RenameTrasher) Trash(_ context.Context, path string) error {
	dir := t.Dir
	if dir == "" {
		dir = utils.TrashDir()
	}
	return utils.RenameToTrash(path, dir)
}
