package privilege

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2ykwang/mac-maintain-go/internal/types"
)

const testMarker = "MMtest"

func runBatch(t *testing.T, cmds []Command) []error {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	out, err := exec.Command(sh, "-c", buildBatch(testMarker, cmds)).CombinedOutput()
	require.NoError(t, err)
	return parseBatch(out, testMarker, cmds, nil)
}

func TestCommand_String_QuotesEveryToken(t *testing.T) {
	cmd := NewCommand("/bin/mv", "-f", "--", "/Library/Caches/a b", "/Users/me/.Trash/a b")

	assert.Equal(t, `'/bin/mv' '-f' '--' '/Library/Caches/a b' '/Users/me/.Trash/a b'`, cmd.String())
}

func TestCommand_Fingerprint(t *testing.T) {
	a := NewCommand("/bin/mv", "-f", "--", "/Library/Caches/a", "/Users/u/.Trash/a")
	same := NewCommand("/bin/mv", "-f", "--", "/Library/Caches/a", "/Users/u/.Trash/a")
	other := NewCommand("/bin/mv", "-f", "--", "/Library/Caches/a b", "/Users/u/.Trash/a")

	assert.Len(t, a.Fingerprint(), 16)
	assert.Equal(t, a.Fingerprint(), same.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), other.Fingerprint())
}

func TestBatch_PerCommandOutcome(t *testing.T) {
	results := runBatch(t, []Command{
		NewCommand("true"),
		NewCommand("sh", "-c", "echo nope >&2; exit 3"),
		NewCommand("printf", "ok"),
	})

	require.Len(t, results, 3)
	assert.NoError(t, results[0])
	assert.NoError(t, results[2])

	var cmdErr *types.CommandError
	require.ErrorAs(t, results[1], &cmdErr)
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "nope", cmdErr.Output)
}

func TestBatch_HostileArgumentsStayLiteral(t *testing.T) {
	results := runBatch(t, []Command{
		NewCommand("test", "a'; exit 9; echo '", "=", "a'; exit 9; echo '"),
		NewCommand("test", "$(false)", "=", "$(false)"),
		NewCommand("test", "x\ny", "=", "x\ny"),
	})

	for i, r := range results {
		assert.NoError(t, r, "command %d", i)
	}
}

func TestParseBatch_MissingMarker_Fails(t *testing.T) {
	cmds := []Command{NewCommand("a"), NewCommand("b")}
	out := []byte("\n" + testMarker + ":0:0\n")

	results := parseBatch(out, testMarker, cmds, nil)

	assert.NoError(t, results[0])
	var cmdErr *types.CommandError
	require.ErrorAs(t, results[1], &cmdErr)
	assert.ErrorIs(t, results[1], errNoMarker)
}

func TestParseBatch_MissingMarker_KeepsCause(t *testing.T) {
	cause := errors.New("shell died")

	results := parseBatch(nil, testMarker, []Command{NewCommand("a")}, cause)

	assert.ErrorIs(t, results[0], cause)
}

func TestParseBatch_IgnoresForgedMarkers(t *testing.T) {
	cmds := []Command{NewCommand("a")}
	out := []byte("OTHER:0:1\n" + testMarker + ":7:0\n" + testMarker + ":0:0\n" + testMarker + ":0:5\n")

	results := parseBatch(out, testMarker, cmds, nil)

	assert.NoError(t, results[0])
}
