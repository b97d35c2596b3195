package script

import (
	"errors"
	"strings"
)

// splitCommandLine splits a command line into words the way a POSIX shell
// does, without expansions: blanks separate words, single quotes keep
// everything literally, double quotes keep everything but \" \\ \$ and \`,
// and a backslash outside quotes escapes the next character.
func splitCommandLine(s string) ([]string, error) {
	var (
		words   []string
		word    strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			if quote == '"' && !strings.ContainsRune("\"\\$`\n", r) {
				word.WriteRune('\\')
			}
			if r != '\n' {
				word.WriteRune(r)
			}
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				word.WriteRune(r)
			}
		case r == '\\':
			escaped, inWord = true, true
		case quote == '"':
			if r == '"' {
				quote = 0
			} else {
				word.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote, inWord = r, true
		case r == ' ' || r == '\t' || r == '\n':
			if inWord {
				words = append(words, word.String())
				word.Reset()
				inWord = false
			}
		default:
			word.WriteRune(r)
			inWord = true
		}
	}
	switch {
	case escaped:
		return nil, errors.New("trailing backslash in command line")
	case quote != 0:
		return nil, errors.New("unterminated quote in command line")
	}
	if inWord {
		words = append(words, word.String())
	}
	return words, nil
}
