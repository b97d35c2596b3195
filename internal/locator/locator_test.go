package locator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicate_Match(t *testing.T) {
	t.Parallel()

	tests := []struct {
		op    Op
		value string
		input string
		want  bool
	}{
		{OpEqual, "OK", "OK", true},
		{OpEqual, "OK", "ok", false},
		{OpContains, "Fake", "main.cpp - Fake IDE", true},
		{OpContains, "fake", "main.cpp - Fake IDE", false},
		{OpFold, "fake ide", "main.cpp - FAKE IDE", true},
		{OpFold, "STRASSE", "Hauptstraße", true},
		{OpWildcard, "*.cpp - *", "main.cpp - Fake IDE", true},
		{OpWildcard, "main.?pp*", "main.cpp", true},
		{OpWildcard, "main.?pp", "main.cp", false},
		{OpWildcard, "*", "", true},
		{OpWildcard, "a*b*c", "aXbYbZc", true},
		{OpWildcard, "a*b*c", "aXbYbZ", false},
	}

	for _, tt := range tests {
		p := Predicate{Name: "text", Op: tt.op, Value: tt.value}
		assert.Equal(t, tt.want, p.Match(tt.input), "%s vs %q", p, tt.input)
	}
}

func TestNew_Validates(t *testing.T) {
	t.Parallel()

	l, err := New("fakeide", Segment{Axis: Descendant, Type: "Dialog", Preds: []Predicate{{Name: "name", Value: "X"}}})
	require.NoError(t, err)
	assert.Equal(t, "fakeide://Dialog{name='X'}", l.String())

	for name, build := range map[string]func() (Locator, error){
		"bad app":      func() (Locator, error) { return New("1app", Segment{Type: "W"}) },
		"no segments":  func() (Locator, error) { return New("app") },
		"empty seg":    func() (Locator, error) { return New("app", Segment{}) },
		"bad type":     func() (Locator, error) { return New("app", Segment{Type: "a b"}) },
		"bad property": func() (Locator, error) { return New("app", Segment{Preds: []Predicate{{Name: "", Value: "x"}}}) },
		"bad op":       func() (Locator, error) { return New("app", Segment{Preds: []Predicate{{Name: "a", Op: Op(9)}}}) },
	} {
		_, err := build()
		assert.ErrorIs(t, err, ErrSyntax, name)
	}
}

func TestLocator_WithinAndChild(t *testing.T) {
	t.Parallel()

	parent := MustParse("fakeide:/MainWindow")
	rel := MustParse("*://LineEdit{name='ClassName'}")
	assert.Equal(t, "fakeide:/MainWindow//LineEdit{name='ClassName'}", rel.Within(parent).String())

	child, err := parent.Child(Segment{Type: "MenuBar"})
	require.NoError(t, err)
	assert.Equal(t, "fakeide:/MainWindow/MenuBar", child.String())
	assert.Equal(t, "fakeide:/MainWindow", parent.String())

	_, err = parent.Child(Segment{})
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestLocator_Zero(t *testing.T) {
	t.Parallel()
	var l Locator
	assert.True(t, l.IsZero())
	assert.Equal(t, "", l.String())
}
