package locator

import (
	"context"
	"errors"
	"testing"

	"github.com/joeycumines/uidriver/internal/testutil"
	"github.com/joeycumines/uidriver/internal/uitree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ideTree() *uitree.Node {
	return &uitree.Node{
		ID:   "app",
		Type: "Application",
		Children: []*uitree.Node{
			{
				ID:     "main",
				Type:   "MainWindow",
				Name:   "MainWindow",
				Props:  map[string]string{"title": "main.cpp - Fake IDE"},
				Bounds: uitree.Bounds{Width: 80, Height: 24},
				Children: []*uitree.Node{
					{ID: "menubar", Type: "MenuBar", Children: []*uitree.Node{
						{ID: "m-file", Type: "MenuBarItem", Text: "File", Bounds: uitree.Bounds{X: 1, Width: 4, Height: 1}},
						{ID: "m-edit", Type: "MenuBarItem", Text: "Edit", Bounds: uitree.Bounds{X: 7, Width: 4, Height: 1}},
					}},
					{ID: "editor", Type: "TextEditor", Name: "CppEditor", Text: "int main() {}", Bounds: uitree.Bounds{Y: 3, Width: 80, Height: 18}},
					{ID: "close", Type: "ToolButton", Name: "CloseDoc", Text: "x", Bounds: uitree.Bounds{X: 78, Y: 2, Width: 1, Height: 1}},
					{ID: "hidden", Type: "Panel", Visible: uitree.Bool(false), Children: []*uitree.Node{
						{ID: "hidden-btn", Type: "PushButton", Text: "OK"},
					}},
				},
			},
			{
				ID:   "dlg",
				Type: "Dialog",
				Name: "NewClassWizard",
				Children: []*uitree.Node{
					{ID: "ok", Type: "PushButton", Text: "OK"},
					{ID: "cancel", Type: "PushButton", Text: "Cancel"},
				},
			},
		},
	}
}

func newTestResolver(t *testing.T) (*Resolver, *testutil.TreeSource) {
	t.Helper()
	src := testutil.NewTreeSource("fakeide", ideTree())
	return NewResolver(src, nil), src
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()
	r, _ := newTestResolver(t)
	ctx := context.Background()

	tests := []struct {
		locator string
		wantID  string
	}{
		{"fakeide:/MainWindow", "main"},
		{"fakeide:/MainWindow{title~='Fake IDE'}/TextEditor", "editor"},
		{"*://TextEditor{name='CppEditor'}", "editor"},
		{"fakeide://MenuBarItem{text='File'}", "m-file"},
		{"fakeide:/Dialog{name='NewClassWizard'}/PushButton{text='OK'}", "ok"},
		{"fakeide://PushButton{text='OK'}", "ok"},
		{"fakeide://Panel{visible='false'}", "hidden"},
		{"fakeide://{name='CloseDoc'}", "close"},
		{"fakeide:/MainWindow{title*='FAKE ide'}", "main"},
		{"fakeide:/MainWindow{title?='*.cpp - *'}", "main"},
	}
	for _, tt := range tests {
		h, err := r.Resolve(ctx, MustParse(tt.locator))
		require.NoError(t, err, tt.locator)
		assert.Equal(t, tt.wantID, h.Node.ID, tt.locator)
		assert.Equal(t, uint64(1), h.Seq)
		assert.Nil(t, h.Node.Children, "handles carry shallow copies")
	}
}

func TestResolver_NotFound(t *testing.T) {
	t.Parallel()
	r, _ := newTestResolver(t)
	ctx := context.Background()

	for _, text := range []string{
		"fakeide:/TextEditor",
		"otherapp:/MainWindow",
		"fakeide:/MainWindow{title='Fake IDE'}",
		"fakeide:/MainWindow{nosuchprop~=''}",
		"fakeide://Panel",
		"fakeide:/Application",
	} {
		_, err := r.Resolve(ctx, MustParse(text))
		require.Error(t, err, text)
		assert.ErrorIs(t, err, ErrNotFound, text)
		var re *ResolveError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, text, re.Locator.String())
	}
}

func TestResolver_Ambiguous(t *testing.T) {
	t.Parallel()
	r, _ := newTestResolver(t)

	_, err := r.Resolve(context.Background(), MustParse("fakeide://MenuBarItem"))
	require.ErrorIs(t, err, ErrAmbiguous)
	var re *ResolveError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 2, re.Matches)
	assert.Contains(t, err.Error(), "2 widgets match")
}

func TestResolver_FindAllDocumentOrder(t *testing.T) {
	t.Parallel()
	r, _ := newTestResolver(t)

	handles, err := r.FindAll(context.Background(), MustParse("fakeide://PushButton"))
	require.NoError(t, err)
	var ids []string
	for _, h := range handles {
		ids = append(ids, h.Node.ID)
	}
	assert.Equal(t, []string{"ok", "cancel"}, ids)

	handles, err = r.FindAll(context.Background(), MustParse("fakeide://PushButton{visible~=''}"))
	require.NoError(t, err)
	assert.Len(t, handles, 3, "explicit visible predicate includes hidden widgets")

	handles, err = r.FindAll(context.Background(), MustParse("fakeide://Nothing"))
	require.NoError(t, err)
	assert.Empty(t, handles)
}

func TestResolver_DescendantDeduplicates(t *testing.T) {
	t.Parallel()
	root := &uitree.Node{Type: "Application", Children: []*uitree.Node{
		{Type: "Group", Children: []*uitree.Node{
			{Type: "Group", Children: []*uitree.Node{{ID: "leaf", Type: "Label"}}},
		}},
	}}
	r := NewResolver(testutil.NewTreeSource("a", root), nil)

	h, err := r.Resolve(context.Background(), MustParse("a://Group//Label"))
	require.NoError(t, err)
	assert.Equal(t, "leaf", h.Node.ID)
}

func TestResolver_Exists(t *testing.T) {
	t.Parallel()
	r, src := newTestResolver(t)
	ctx := context.Background()

	ok, err := r.Exists(ctx, MustParse("*://Dialog{name='NewClassWizard'}"))
	require.NoError(t, err)
	assert.True(t, ok)

	src.Update(func(root *uitree.Node) { root.Children = root.Children[:1] })

	ok, err = r.Exists(ctx, MustParse("*://Dialog{name='NewClassWizard'}"))
	require.NoError(t, err)
	assert.False(t, ok, "resolution is never cached")

	_, err = r.Exists(ctx, MustParse("*://MenuBarItem"))
	assert.ErrorIs(t, err, ErrAmbiguous)
}

func TestResolver_ReopenedWidgetResolvesAgain(t *testing.T) {
	t.Parallel()
	r, src := newTestResolver(t)
	ctx := context.Background()
	wizard := MustParse("fakeide:/Dialog{name='NewClassWizard'}")

	h, err := r.Resolve(ctx, wizard)
	require.NoError(t, err)
	assert.Equal(t, "dlg", h.Node.ID)
	assert.Equal(t, uint64(1), h.Seq)

	closed := ideTree()
	closed.Children = closed.Children[:1]
	src.Set(closed)
	_, err = r.Resolve(ctx, wizard)
	require.ErrorIs(t, err, ErrNotFound)

	src.Set(ideTree())
	h, err = r.Resolve(ctx, wizard)
	require.NoError(t, err)
	assert.Equal(t, "dlg", h.Node.ID)
	assert.Equal(t, uint64(3), h.Seq)

	h2, err := r.Resolve(ctx, wizard)
	require.NoError(t, err)
	snap, err := src.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Seq, h2.Seq)
	assert.Equal(t, h.Node, h2.Node)
}

func TestResolver_SourceError(t *testing.T) {
	t.Parallel()
	r := NewResolver(testutil.NewTreeSource("a", nil), nil)
	_, err := r.Resolve(context.Background(), MustParse("a:/W"))
	require.ErrorIs(t, err, testutil.ErrNoTree)

	_, err = r.Resolve(context.Background(), Locator{})
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestMatch_NilInputs(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Match(nil, MustParse("a:/W")))
	assert.Nil(t, Match(&uitree.Snapshot{App: "a"}, MustParse("a:/W")))
}
