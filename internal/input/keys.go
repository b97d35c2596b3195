package input

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

var keySequences = map[string]string{
	"enter":     "\r",
	"return":    "\r",
	"tab":       "\t",
	"backtab":   "\x1b[Z",
	"shift+tab": "\x1b[Z",
	"escape":    "\x1b",
	"esc":       "\x1b",
	"backspace": "\x7f",
	"delete":    "\x1b[3~",
	"space":     " ",
	"up":        "\x1b[A",
	"down":      "\x1b[B",
	"right":     "\x1b[C",
	"left":      "\x1b[D",
	"home":      "\x1b[H",
	"end":       "\x1b[F",
	"pgup":      "\x1b[5~",
	"pgdown":    "\x1b[6~",
	"f1":        "\x1bOP",
	"f2":        "\x1bOQ",
	"f3":        "\x1bOR",
	"f4":        "\x1bOS",
}

// KeySequence returns the terminal input sequence for a named key. Names
// are case-insensitive; "ctrl+x" and "ctrl-x" select control characters.
func KeySequence(name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if seq, ok := keySequences[key]; ok {
		return seq, nil
	}
	for _, prefix := range []string{"ctrl+", "ctrl-"} {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok || len(rest) != 1 {
			continue
		}
		c := rest[0]
		switch {
		case c >= 'a' && c <= 'z':
			return string(rune(c - 'a' + 1)), nil
		case c == '@' || c == ' ':
			return "\x00", nil
		case c == '[':
			return "\x1b", nil
		case c == '\\':
			return "\x1c", nil
		case c == ']':
			return "\x1d", nil
		}
	}
	return "", fmt.Errorf("unknown key %q", name)
}

// expandText converts text for typing into a byte stream. Known key names
// in angle brackets, such as "<Return>" or "<Ctrl+A>", become their key
// sequences; anything else is typed literally.
func expandText(text string) []string {
	var out []string
	for len(text) > 0 {
		if text[0] == '<' {
			if end := strings.IndexByte(text, '>'); end > 1 {
				if seq, err := KeySequence(text[1:end]); err == nil {
					out = append(out, seq)
					text = text[end+1:]
					continue
				}
			}
		}
		_, size := utf8.DecodeRuneInString(text)
		out = append(out, text[:size])
		text = text[size:]
	}
	return out
}
