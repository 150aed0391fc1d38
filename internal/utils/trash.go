package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const trashTimeout = 30 * time.Second

// Finder error numbers that mean the current user may not move the item.
var finderPermissionCodes = []string{"(-5000)", "(-10004)", "(-8072)"}

// MoveToTrash moves a file or directory to macOS Trash using Finder.
// It is a variable to allow mocking in tests.
var MoveToTrash = moveToTrashImpl

func moveToTrashImpl(ctx context.Context, path string) error {
	script := fmt.Sprintf(`tell application "Finder" to delete POSIX file "%s"`, EscapeForAppleScript(path))

	ctx, cancel := context.WithTimeout(ctx, trashTimeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := execCommandContext(ctx, "osascript", "-e", script)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("move to trash timeout: %s", path)
		}
		msg := strings.TrimSpace(stderr.String())
		for _, code := range finderPermissionCodes {
			if strings.Contains(msg, code) {
				return fmt.Errorf("move to trash: %s: %w", path, fs.ErrPermission)
			}
		}
		if msg != "" {
			return fmt.Errorf("move to trash: %s: %w (%s)", path, err, msg)
		}
		return fmt.Errorf("move to trash: %s: %w", path, err)
	}
	return nil
}

// TrashDir returns the current user's Trash directory.
func TrashDir() string {
	return ExpandPath("~/.Trash")
}

// UniqueTrashPath returns a destination inside trashDir for src that does not exist yet.
// Collisions get a time suffix the way Finder does, then a counter.
func UniqueTrashPath(trashDir, src string) string {
	base := filepath.Base(src)
	dst := filepath.Join(trashDir, base)
	if _, err := os.Lstat(dst); errors.Is(err, fs.ErrNotExist) {
		return dst
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stamp := timeNow().Format("15.04.05")
	for i := 0; ; i++ {
		name := fmt.Sprintf("%s %s%s", stem, stamp, ext)
		if i > 0 {
			name = fmt.Sprintf("%s %s %d%s", stem, stamp, i, ext)
		}
		dst = filepath.Join(trashDir, name)
		if _, err := os.Lstat(dst); errors.Is(err, fs.ErrNotExist) {
			return dst
		}
	}
}

// RenameToTrash moves path into trashDir with os.Rename.
// It fails on cross-device moves rather than copying.
func RenameToTrash(path, trashDir string) error {
	if err := os.MkdirAll(trashDir, 0o700); err != nil {
		return fmt.Errorf("move to trash: %w", err)
	}
	dst := UniqueTrashPath(trashDir, path)
	if err := os.Rename(path, dst); err != nil {
		return fmt.Errorf("move to trash: %w", err)
	}
	return nil
}
