package privilege

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/2ykwang/mac-maintain-go/internal/types"
	"github.com/2ykwang/mac-maintain-go/internal/utils"
)

// PasswordSource asks the user for their password. A refusal is types.ErrAuthorizationDenied.
type PasswordSource interface {
	Password(ctx context.Context) (string, error)
}

var (
	openTTY = func() (*os.File, error) {
		return os.OpenFile("/dev/tty", os.O_RDWR, 0)
	}
	readPassword = term.ReadPassword
)

// TTYPassword reads the password from the controlling terminal without echo.
type TTYPassword struct {
	Prompt string
	Out    io.Writer
}

func (p TTYPassword) Password(_ context.Context) (string, error) {
	tty, err := openTTY()
	if err != nil {
		return "", fmt.Errorf("cannot open /dev/tty: %w", err)
	}
	defer tty.Close()

	out := p.Out
	if out == nil {
		out = os.Stderr
	}
	prompt := p.Prompt
	if prompt == "" {
		prompt = "Administrator password: "
	}
	fmt.Fprint(out, prompt)
	pass, err := readPassword(int(tty.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if len(pass) == 0 {
		return "", types.ErrAuthorizationDenied
	}
	return string(pass), nil
}

// DialogPassword asks with a hidden-answer osascript dialog.
type DialogPassword struct {
	Title   string
	Message string
}

// userCanceled is the AppleScript error number for a dismissed dialog.
const userCanceled = "(-128)"

func (p DialogPassword) Password(ctx context.Context) (string, error) {
	title := p.Title
	if title == "" {
		title = "mac-maintain"
	}
	message := p.Message
	if message == "" {
		message = "mac-maintain needs your password to remove system files."
	}
	script := fmt.Sprintf(
		`text returned of (display dialog "%s" default answer "" with hidden answer with title "%s" with icon caution buttons {"Cancel", "OK"} default button "OK")`,
		utils.EscapeForAppleScript(message), utils.EscapeForAppleScript(title))

	var stdout, stderr bytes.Buffer
	cmd := execCommandContext(ctx, "osascript", "-e", script)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if strings.Contains(stderr.String(), userCanceled) {
			return "", types.ErrAuthorizationDenied
		}
		return "", fmt.Errorf("password dialog: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	pass := strings.TrimSuffix(stdout.String(), "\n")
	if pass == "" {
		return "", types.ErrAuthorizationDenied
	}
	return pass, nil
}

// StaticPassword returns a fixed password. It serves non-interactive callers such as tests.
type StaticPassword string

func (p StaticPassword) Password(context.Context) (string, error) {
	if p == "" {
		return "", errors.New("no password configured")
	}
	return string(p), nil
}
