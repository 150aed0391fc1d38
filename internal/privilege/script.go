package privilege

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/2ykwang/mac-maintain-go/internal/types"
	"github.com/2ykwang/mac-maintain-go/internal/utils"
)

// Command is one privileged program invocation. Name and every argument are quoted
// as single shell words, so no part of it is ever interpreted by the shell.
type Command struct {
	Name string
	Args []string
}

func NewCommand(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

func (c Command) String() string {
	return utils.ShellCommand(c.Name, c.Args...)
}

// Fingerprint is a short stable hash of the command line. Log lines about the
// same command from the broker and its callers carry the same fingerprint.
func (c Command) Fingerprint() string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(c.String()))
}

var errNoMarker = errors.New("command did not report completion")

// buildBatch renders cmds as one sh script. Each command is followed by a line
// "<marker>:<index>:<status>" so results can be matched back by position.
func buildBatch(marker string, cmds []Command) string {
	var b strings.Builder
	for i, cmd := range cmds {
		fmt.Fprintf(&b, "%s 2>&1 </dev/null\n", cmd.String())
		fmt.Fprintf(&b, "printf '\\n%%s:%%d:%%d\\n' %s %d \"$?\"\n", utils.QuoteForShell(marker), i)
	}
	b.WriteString("exit 0\n")
	return b.String()
}

// parseBatch returns one error per command. Commands without a completion line
// fail with cause, or with errNoMarker when cause is nil.
func parseBatch(output []byte, marker string, cmds []Command, cause error) []error {
	results := make([]error, len(cmds))
	done := make([]bool, len(cmds))

	var buf []string
	prefix := marker + ":"
	for _, line := range strings.Split(string(output), "\n") {
		if !strings.HasPrefix(line, prefix) {
			buf = append(buf, line)
			continue
		}
		idx, status, ok := parseMarker(strings.TrimPrefix(line, prefix))
		out := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if !ok || idx < 0 || idx >= len(cmds) || done[idx] {
			continue
		}
		done[idx] = true
		if status != 0 {
			results[idx] = &types.CommandError{Command: cmds[idx].String(), ExitCode: status, Output: out}
		}
	}

	if cause == nil {
		cause = errNoMarker
	}
	for i := range cmds {
		if !done[i] {
			results[i] = &types.CommandError{Command: cmds[i].String(), Err: cause}
		}
	}
	return results
}

func parseMarker(s string) (int, int, bool) {
	idxStr, statusStr, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, 0, false
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return 0, 0, false
	}
	status, err := strconv.Atoi(statusStr)
	if err != nil {
		return 0, 0, false
	}
	return idx, status, true
}
