package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joeycumines/uidriver/internal/uitree"
)

var (
	barStyle    = lipgloss.NewStyle().Reverse(true)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	statusStyle = lipgloss.NewStyle().Faint(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder())
)

func (m *model) View() string {
	f, root := m.layout()
	if err := m.emitter.Publish(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to publish widget tree: %v\n", err)
	}
	return f.render(m.zones)
}

// layout draws the current state and builds the matching widget tree.
func (m *model) layout() (*frame, *uitree.Node) {
	f := newFrame(m.width, m.height)
	root := &uitree.Node{ID: "app", Type: "Application", Name: appName, Bounds: uitree.Bounds{Width: m.width, Height: m.height}}
	m.drawMainWindow(f, root)
	if m.openMenu >= 0 {
		m.drawMenu(f, root, m.menus[m.openMenu])
	}
	if m.dialog != nil {
		m.dialog.draw(f, root, m)
	}
	m.frame = f
	return f, root
}

func (m *model) drawMainWindow(f *frame, root *uitree.Node) {
	title := m.windowTitle()
	win := &uitree.Node{
		ID:     "main",
		Type:   "MainWindow",
		Name:   "MainWindow",
		Props:  map[string]string{"title": title},
		Bounds: uitree.Bounds{Width: f.w, Height: f.h},
	}
	root.Children = append(root.Children, win)

	bar := &uitree.Node{ID: "menubar", Type: "MenuBar", Bounds: uitree.Bounds{Width: f.w, Height: 1}}
	win.Children = append(win.Children, bar)
	x := 1
	for i, mn := range m.menus {
		b := uitree.Bounds{X: x, Y: 0, Width: len(mn.title), Height: 1}
		f.text(x, 0, mn.title)
		f.clickable(barPrefix+mn.title, b)
		bar.Children = append(bar.Children, &uitree.Node{
			ID:      barPrefix + mn.title,
			Type:    "MenuBarItem",
			Text:    mn.title,
			Bounds:  b,
			Focused: i == m.openMenu,
		})
		x += len(mn.title) + 2
	}
	f.styles[0] = barStyle

	f.text(1, 1, title)
	f.styles[1] = titleStyle

	doc, hasDoc := m.current()
	tb := uitree.Bounds{X: 1, Y: 2, Width: 3, Height: 1}
	f.text(tb.X, tb.Y, "[x]")
	f.clickable(closeDoc, tb)
	win.Children = append(win.Children, &uitree.Node{
		ID:      closeDoc,
		Type:    "ToolButton",
		Name:    "CloseDoc",
		Text:    "x",
		Props:   map[string]string{"tooltip": "Close Document"},
		Bounds:  tb,
		Enabled: uitree.Bool(hasDoc),
	})
	docName := ""
	if hasDoc {
		docName = filepath.Base(doc.path)
	}
	f.text(5, 2, docName)
	win.Children = append(win.Children, &uitree.Node{
		ID:     "label.DocumentName",
		Type:   "Label",
		Name:   "DocumentName",
		Text:   docName,
		Bounds: uitree.Bounds{X: 5, Y: 2, Width: len(docName), Height: 1},
	})

	eb := uitree.Bounds{X: 0, Y: 3, Width: f.w, Height: f.h - 4}
	editor := &uitree.Node{
		ID:      editorID,
		Type:    "TextEditor",
		Name:    "CppEditor",
		Text:    doc.content,
		Props:   map[string]string{"file": doc.path},
		Bounds:  eb,
		Visible: uitree.Bool(hasDoc),
		Focused: m.focus == editorID,
	}
	win.Children = append(win.Children, editor)
	if hasDoc {
		for i, line := range strings.Split(doc.content, "\n") {
			if i >= eb.Height {
				break
			}
			f.text(1, eb.Y+i, strings.ReplaceAll(line, "\t", "    "))
		}
		f.clickable(editorID, eb)
	} else {
		welcome := "Welcome to " + appTitle + ". Use File > New File or Project... to start."
		f.text(2, eb.Y+1, welcome)
		win.Children = append(win.Children, &uitree.Node{
			ID:     "label.Welcome",
			Type:   "Label",
			Name:   "Welcome",
			Text:   welcome,
			Bounds: uitree.Bounds{X: 2, Y: eb.Y + 1, Width: len(welcome), Height: 1},
		})
	}

	sy := f.h - 1
	f.text(1, sy, m.status)
	f.styles[sy] = statusStyle
	win.Children = append(win.Children, &uitree.Node{
		ID:     "label.StatusBar",
		Type:   "Label",
		Name:   "StatusBar",
		Text:   m.status,
		Bounds: uitree.Bounds{X: 1, Y: sy, Width: len(m.status), Height: 1},
	})
}

func (m *model) drawMenu(f *frame, root *uitree.Node, mn menu) {
	bx := f.rects[barPrefix+mn.title].X - 1
	inner := 0
	for _, it := range mn.items {
		inner = max(inner, len(it.text)+2)
	}
	lines := make([]string, len(mn.items))
	for i, it := range mn.items {
		lines[i] = " " + it.text + strings.Repeat(" ", inner-len(it.text)-1)
	}
	box := boxStyle.Render(strings.Join(lines, "\n"))
	bounds := uitree.Bounds{X: bx, Y: 1, Width: lipgloss.Width(box), Height: lipgloss.Height(box)}
	f.cover(bounds)
	f.block(bx, 1, box)

	node := &uitree.Node{ID: "menu", Type: "Menu", Name: mn.title, Bounds: bounds}
	root.Children = append(root.Children, node)
	for i, it := range mn.items {
		b := uitree.Bounds{X: bx + 1, Y: 2 + i, Width: inner, Height: 1}
		f.clickable(itemPfx+it.text, b)
		node.Children = append(node.Children, &uitree.Node{
			ID:      itemPfx + it.text,
			Type:    "MenuItem",
			Text:    it.text,
			Bounds:  b,
			Enabled: uitree.Bool(it.enabled(m) && it.action != nil),
		})
	}
}

// dialogFrame draws a bordered dialog of the given inner size centred
// horizontally and returns its node and the origin of its content area.
func dialogFrame(f *frame, root *uitree.Node, d dialog, lines []string, width int) (node *uitree.Node, cx, cy int) {
	body := make([]string, len(lines))
	for i, l := range lines {
		body[i] = l + strings.Repeat(" ", max(width-lipgloss.Width(l), 0))
	}
	box := boxStyle.Padding(0, 1).Render(strings.Join(body, "\n"))
	w, h := lipgloss.Width(box), lipgloss.Height(box)
	x, y := max((f.w-w)/2, 0), 3
	bounds := uitree.Bounds{X: x, Y: y, Width: w, Height: h}
	f.cover(bounds)
	f.block(x, y, box)
	node = &uitree.Node{
		ID:     dlgPrefix + d.name(),
		Type:   "Dialog",
		Name:   d.name(),
		Props:  map[string]string{"title": d.title(), "modal": "true"},
		Bounds: bounds,
	}
	root.Children = append(root.Children, node)
	return node, x + 2, y + 1
}

// button registers a push button whose label, as returned by buttonLabel,
// is already drawn at (x, y).
func button(f *frame, parent *uitree.Node, id, text string, x, y int, enabled bool) {
	b := uitree.Bounds{X: x, Y: y, Width: len(text) + 4, Height: 1}
	f.clickable(id, b)
	parent.Children = append(parent.Children, &uitree.Node{
		ID:      id,
		Type:    "PushButton",
		Text:    text,
		Bounds:  b,
		Enabled: uitree.Bool(enabled),
	})
}

func buttonLabel(text string) string {
	return "[ " + text + " ]"
}
