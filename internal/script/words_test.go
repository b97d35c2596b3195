package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCommandLine(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		in   string
		want []string
	}{
		{"fakeide", []string{"fakeide"}},
		{"  fakeide   -broken-plugin  Foo ", []string{"fakeide", "-broken-plugin", "Foo"}},
		{`app 'two words' "and \"more\""`, []string{"app", "two words", `and "more"`}},
		{`app "keep \n literal"`, []string{"app", `keep \n literal`}},
		{`app a\ b ''`, []string{"app", "a b", ""}},
		{`app 'it''s'`, []string{"app", "its"}},
		{"a\\\nb", []string{"ab"}},
		{"", nil},
	} {
		got, err := splitCommandLine(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{`app "open`, `app 'open`, `app \`} {
		_, err := splitCommandLine(bad)
		assert.Error(t, err, bad)
	}
}
