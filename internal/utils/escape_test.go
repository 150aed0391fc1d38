package utils

import (
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hostileInputs = []string{
	"/Users/test/Library/Caches",
	`/Users/test/My "Documents"`,
	`/Users/test/path\with\backslash`,
	`/Users/test\"path`,
	"/Users/test/it's here",
	"/tmp/a'; rm -rf / #",
	"/tmp/$(whoami)",
	"/tmp/`id`",
	"/tmp/${HOME}",
	"/tmp/a\nb",
	"/tmp/a\r\nb\tc",
	"/tmp/bell\x07and\x1bescape\x00nul",
	"/tmp/semi;colon&amp|pipe>redirect<in",
	"/Users/test/한글경로/日本語",
	"",
	"'",
	`\`,
	`"`,
}

// decodeAppleScriptLiteral parses one double-quoted AppleScript string literal and
// returns its value and whatever follows the closing quote.
func decodeAppleScriptLiteral(t *testing.T, src string) (string, string) {
	t.Helper()
	require.True(t, strings.HasPrefix(src, `"`), "literal must start with a quote")

	var b strings.Builder
	for i := 1; i < len(src); i++ {
		c := src[i]
		switch c {
		case '"':
			return b.String(), src[i+1:]
		case '\\':
			require.Less(t, i+1, len(src), "dangling backslash")
			i++
			switch src[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(src[i])
			}
		default:
			require.GreaterOrEqual(t, c, byte(0x20), "raw control character in literal")
			b.WriteByte(c)
		}
	}
	t.Fatalf("unterminated literal: %q", src)
	return "", ""
}

// --- EscapeForAppleScript Tests ---

func TestEscapeForAppleScript_Normal(t *testing.T) {
	assert.Equal(t, "/Users/test/Library/Caches", EscapeForAppleScript("/Users/test/Library/Caches"))
}

func TestEscapeForAppleScript_WithQuotes(t *testing.T) {
	assert.Equal(t, `/Users/test/My \"Documents\"`, EscapeForAppleScript(`/Users/test/My "Documents"`))
}

func TestEscapeForAppleScript_WithBackslash(t *testing.T) {
	assert.Equal(t, `/Users/test/path\\with\\backslash`, EscapeForAppleScript(`/Users/test/path\with\backslash`))
}

func TestEscapeForAppleScript_WithQuotesAndBackslash(t *testing.T) {
	// Backslash before quote must not produce an unescaped quote.
	assert.Equal(t, `/Users/test\\\"path`, EscapeForAppleScript(`/Users/test\"path`))
}

func TestEscapeForAppleScript_TranslatesWhitespaceControls(t *testing.T) {
	assert.Equal(t, `a\nb\rc\td`, EscapeForAppleScript("a\nb\rc\td"))
}

func TestEscapeForAppleScript_DropsOtherControls(t *testing.T) {
	assert.Equal(t, "abc", EscapeForAppleScript("a\x00b\x07\x1bc"))
}

func TestEscapeForAppleScript_EmptyString(t *testing.T) {
	assert.Equal(t, "", EscapeForAppleScript(""))
}

func TestEscapeForAppleScript_UnicodeCharacters(t *testing.T) {
	assert.Equal(t, "/Users/test/한글경로/日本語", EscapeForAppleScript("/Users/test/한글경로/日本語"))
}

func TestEscapeForAppleScript_RoundTripsAsSingleLiteral(t *testing.T) {
	for _, input := range hostileInputs {
		script := `delete POSIX file "` + EscapeForAppleScript(input) + `" -- end`

		value, rest := decodeAppleScriptLiteral(t, strings.TrimPrefix(script, "delete POSIX file "))

		assert.Equal(t, StripControl(input), value, "input %q", input)
		assert.Equal(t, " -- end", rest, "literal terminated early for %q", input)
	}
}

// --- QuoteForShell Tests ---

func TestQuoteForShell_Simple(t *testing.T) {
	assert.Equal(t, "'/tmp/a b'", QuoteForShell("/tmp/a b"))
}

func TestQuoteForShell_SingleQuote(t *testing.T) {
	assert.Equal(t, `'it'\''s'`, QuoteForShell("it's"))
}

func TestQuoteForShell_Empty(t *testing.T) {
	assert.Equal(t, "''", QuoteForShell(""))
}

func TestQuoteForShell_DropsControls(t *testing.T) {
	assert.Equal(t, "'ab\nc'", QuoteForShell("a\x00b\nc\x1b"))
}

func TestShellCommand_QuotesEveryToken(t *testing.T) {
	assert.Equal(t, `'/bin/mv' '-f' '--' '/tmp/a b' '/tmp/c'`, ShellCommand("/bin/mv", "-f", "--", "/tmp/a b", "/tmp/c"))
}

func TestShellCommand_ParsesAsSingleArgumentInRealShell(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	for _, input := range hostileInputs {
		// printf prints each argument followed by NUL; exactly one argument must arrive.
		line := ShellCommand("printf", `%s\0`, input) + "; printf 'END'"
		out, err := exec.Command(sh, "-c", line).Output()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			t.Fatalf("shell failed for %q: %s", input, exitErr.Stderr)
		}
		require.NoError(t, err)

		assert.Equal(t, StripControl(input)+"\x00END", string(out), "input %q", input)
	}
}

func TestStripControl(t *testing.T) {
	assert.Equal(t, "a\tb\nc", StripControl("a\tb\x01\nc\x1f"))
}
