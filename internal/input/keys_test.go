package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeySequence(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"enter":     "\r",
		"Return":    "\r",
		"ESC":       "\x1b",
		"tab":       "\t",
		"shift+tab": "\x1b[Z",
		"backspace": "\x7f",
		"up":        "\x1b[A",
		"ctrl+u":    "\x15",
		"Ctrl-A":    "\x01",
		"ctrl+c":    "\x03",
		"ctrl+[":    "\x1b",
		"f1":        "\x1bOP",
	}
	for name, want := range tests {
		got, err := KeySequence(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"", "ctrl+", "ctrl+ab", "hyper+x", "f13"} {
		_, err := KeySequence(name)
		assert.Error(t, err, name)
	}
}

func TestExpandText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b"}, expandText("ab"))
	assert.Equal(t, []string{"x", "\r"}, expandText("x<Return>"))
	assert.Equal(t, []string{"\x15", "N", "e", "w"}, expandText("<Ctrl+U>New"))
	assert.Equal(t, []string{"<", "b", ">"}, expandText("<b>"), "unknown names are literal")
	assert.Equal(t, []string{"<", ">"}, expandText("<>"))
	assert.Equal(t, []string{"日", "本"}, expandText("日本"))
	assert.Empty(t, expandText(""))
}
