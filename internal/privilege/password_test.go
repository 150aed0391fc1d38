package privilege

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2ykwang/mac-maintain-go/internal/types"
)

func TestDialogPassword_ReturnsAnswer(t *testing.T) {
	calls := fakeCommands(t, 501, func(string, []string) string { return "printf 'pa ss\n'" })

	pass, err := DialogPassword{Message: `Remove "system" caches`}.Password(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "pa ss", pass)
	require.Len(t, *calls, 1)
	assert.Equal(t, "osascript", (*calls)[0].name)
	assert.Contains(t, (*calls)[0].args[1], `Remove \"system\" caches`)
}

func TestDialogPassword_CancelIsDenial(t *testing.T) {
	fakeCommands(t, 501, func(string, []string) string {
		return "echo 'execution error: User canceled. (-128)' >&2; exit 1"
	})

	_, err := DialogPassword{}.Password(context.Background())

	assert.ErrorIs(t, err, types.ErrAuthorizationDenied)
}

func TestDialogPassword_OtherFailure(t *testing.T) {
	fakeCommands(t, 501, func(string, []string) string { return "echo boom >&2; exit 1" })

	_, err := DialogPassword{}.Password(context.Background())

	require.Error(t, err)
	assert.NotErrorIs(t, err, types.ErrAuthorizationDenied)
}

func withFakeTTY(t *testing.T, password []byte, readErr error) {
	t.Helper()
	originalOpen := openTTY
	originalRead := readPassword
	t.Cleanup(func() {
		openTTY = originalOpen
		readPassword = originalRead
	})
	openTTY = func() (*os.File, error) {
		return os.CreateTemp(t.TempDir(), "tty")
	}
	readPassword = func(int) ([]byte, error) { return password, readErr }
}

func TestTTYPassword_ReadsWithoutEcho(t *testing.T) {
	withFakeTTY(t, []byte("hunter2"), nil)
	var out bytes.Buffer

	pass, err := TTYPassword{Prompt: "pw: ", Out: &out}.Password(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "hunter2", pass)
	assert.Equal(t, "pw: \n", out.String())
}

func TestTTYPassword_EmptyIsDenial(t *testing.T) {
	withFakeTTY(t, nil, nil)

	_, err := TTYPassword{Out: &bytes.Buffer{}}.Password(context.Background())

	assert.ErrorIs(t, err, types.ErrAuthorizationDenied)
}

func TestTTYPassword_ReadError(t *testing.T) {
	withFakeTTY(t, nil, errors.New("not a terminal"))

	_, err := TTYPassword{Out: &bytes.Buffer{}}.Password(context.Background())

	assert.ErrorContains(t, err, "not a terminal")
}

func TestStaticPassword(t *testing.T) {
	pass, err := StaticPassword("x").Password(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", pass)

	_, err = StaticPassword("").Password(context.Background())
	assert.Error(t, err)
}
