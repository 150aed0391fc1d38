package utils

import "strings"

// EscapeForAppleScript escapes a string for use inside a double-quoted AppleScript literal.
// Backslash and quote are escaped, newline, carriage return and tab become their escape
// sequences, and every other ASCII control character is dropped.
func EscapeForAppleScript(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// QuoteForShell returns s as a single POSIX shell word.
// Control characters other than tab, newline and carriage return are dropped;
// those three are literal inside single quotes.
func QuoteForShell(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch {
		case r == '\'':
			b.WriteString(`'\''`)
		case r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(r)
		case r < 0x20:
			continue
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// ShellCommand joins a command and its arguments into one line for /bin/sh.
// Every token, including the command name, is quoted.
func ShellCommand(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, QuoteForShell(name))
	for _, arg := range args {
		parts = append(parts, QuoteForShell(arg))
	}
	return strings.Join(parts, " ")
}

// StripControl removes the characters the escapers drop, so callers can compare
// an escaped round trip with its expected value.
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
