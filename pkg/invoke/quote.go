package invoke

import (
	"fmt"
	"strings"
	"unicode"
)

// CommandLine renders the command as a single loggable line: the executable
// followed by the remaining tokens, space-joined. A token is quoted with
// single quotes when it is empty or contains whitespace or a quote
// character; embedded single quotes are written as '\''. The scheme is
// reversible, see splitCommandLine.
func (s *CommandSpec) CommandLine() string {
	var b strings.Builder
	for i, token := range s.tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(quoteToken(token))
	}
	return b.String()
}

func quoteToken(token string) string {
	if !needsQuoting(token) {
		return token
	}
	return "'" + strings.ReplaceAll(token, "'", `'\''`) + "'"
}

func needsQuoting(token string) bool {
	if token == "" {
		return true
	}
	if strings.ContainsAny(token, `'"`) {
		return true
	}
	return strings.IndexFunc(token, unicode.IsSpace) >= 0
}

// splitCommandLine is the inverse of CommandLine: it tokenizes a logged
// command line back into the original argument list. Outside quotes,
// whitespace separates tokens and a backslash escapes the next character;
// inside single quotes every character is taken literally.
func splitCommandLine(line string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inToken := false
	runes := []rune(line)
	for i := 0; i < len(runes); {
		switch r := runes[i]; {
		case r == '\'':
			inToken = true
			i++
			for i < len(runes) && runes[i] != '\'' {
				current.WriteRune(runes[i])
				i++
			}
			if i >= len(runes) {
				return nil, fmt.Errorf("unterminated quote in command line %q", line)
			}
			i++
		case r == '\\':
			inToken = true
			i++
			if i >= len(runes) {
				return nil, fmt.Errorf("trailing backslash in command line %q", line)
			}
			current.WriteRune(runes[i])
			i++
		case unicode.IsSpace(r):
			if inToken {
				tokens = append(tokens, current.String())
				current.Reset()
				inToken = false
			}
			i++
		default:
			inToken = true
			current.WriteRune(r)
			i++
		}
	}
	if inToken {
		tokens = append(tokens, current.String())
	}
	return tokens, nil
}
