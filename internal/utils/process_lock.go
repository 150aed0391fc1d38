package utils

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const lsofTimeout = 10 * time.Second

// PathsInUse reports which of paths have an open file at or below them.
// A missing lsof yields an empty result.
func PathsInUse(ctx context.Context, paths []string) (map[string]bool, error) {
	inUse := make(map[string]bool)
	if len(paths) == 0 {
		return inUse, nil
	}
	output, err := runLsof(ctx)
	if err != nil || len(output) == 0 {
		return inUse, err
	}

	roots := make([]string, 0, len(paths))
	for _, p := range paths {
		roots = append(roots, filepath.Clean(p))
	}
	sort.Strings(roots)

	for _, open := range openFiles(output) {
		for _, root := range roots {
			if IsWithin(open, root) {
				inUse[root] = true
			}
		}
	}
	return inUse, nil
}

func runLsof(ctx context.Context) ([]byte, error) {
	if !CommandExists("lsof") {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, lsofTimeout)
	defer cancel()

	cmd := execCommandContext(ctx, "lsof", "-nP", "-F", "n")
	output, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		// lsof returns exit 1 when no results - not an error.
		exitErr := &exec.ExitError{}
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
			return nil, err
		}
	}
	return output, nil
}

func openFiles(output []byte) []string {
	var files []string
	for _, line := range strings.Split(string(output), "\n") {
		if !strings.HasPrefix(line, "n/") {
			continue
		}
		files = append(files, strings.TrimPrefix(line, "n"))
	}
	return files
}
