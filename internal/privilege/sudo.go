package privilege

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/2ykwang/mac-maintain-go/internal/logger"
	"github.com/2ykwang/mac-maintain-go/internal/types"
)

const shellPath = "/bin/sh"

var (
	execCommandContext = exec.CommandContext
	geteuid            = unix.Geteuid
)

// Elevator obtains administrator rights and runs scripts with them.
type Elevator interface {
	// Authorize shows the OS credential prompt. It may block until the user answers.
	Authorize(ctx context.Context) error
	// Execute runs script as root without prompting.
	Execute(ctx context.Context, script string) ([]byte, error)
}

// Revoker is implemented by elevators that can drop the OS credential cache.
type Revoker interface {
	Revoke(ctx context.Context) error
}

// SudoElevator primes the sudo timestamp once and reuses it for later scripts.
type SudoElevator struct {
	password PasswordSource
}

func NewSudoElevator(password PasswordSource) *SudoElevator {
	return &SudoElevator{password: password}
}

func isRoot() bool {
	return geteuid() == 0
}

func (e *SudoElevator) Authorize(ctx context.Context) error {
	if isRoot() {
		return nil
	}

	// A still-valid timestamp needs no prompt.
	if err := execCommandContext(ctx, "sudo", "-n", "-v").Run(); err == nil {
		return nil
	}
	if e.password == nil {
		return types.ErrAuthorizationDenied
	}

	pass, err := e.password.Password(ctx)
	if err != nil {
		return err
	}

	var stderr bytes.Buffer
	cmd := execCommandContext(ctx, "sudo", "-S", "-p", "", "-v")
	cmd.Stdin = strings.NewReader(pass + "\n")
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("sudo validation failed", "error", err, "stderr", strings.TrimSpace(stderr.String()))
		return fmt.Errorf("%w: %s", types.ErrAuthorizationDenied, firstLine(stderr.String()))
	}
	return nil
}

func (e *SudoElevator) Execute(ctx context.Context, script string) ([]byte, error) {
	var cmd *exec.Cmd
	if isRoot() {
		cmd = execCommandContext(ctx, shellPath, "-c", script)
	} else {
		cmd = execCommandContext(ctx, "sudo", "-n", shellPath, "-c", script)
	}

	output, err := cmd.CombinedOutput()
	if err == nil {
		return output, nil
	}
	if ctx.Err() != nil {
		return output, ctx.Err()
	}
	if strings.Contains(string(output), "a password is required") {
		return output, types.ErrSessionExpired
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return output, &types.CommandError{
		Command:  shellPath,
		ExitCode: exitCode,
		Output:   strings.TrimSpace(string(output)),
		Err:      err,
	}
}

// Revoke removes the cached sudo timestamp.
func (e *SudoElevator) Revoke(ctx context.Context) error {
	if isRoot() {
		return nil
	}
	return execCommandContext(ctx, "sudo", "-k").Run()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	if s == "" {
		return "incorrect password"
	}
	return s
}
