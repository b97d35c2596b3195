package main

import (
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joeycumines/uidriver/internal/uitree"
	zone "github.com/lrstanley/bubblezone"
)

const (
	appName   = "fakeide"
	appTitle  = "Fake IDE"
	editorID  = "editor"
	closeDoc  = "tool.CloseDoc"
	barPrefix = "bar."
	itemPfx   = "menu."
	dlgPrefix = "dlg."
)

type document struct {
	path    string
	content string
}

type menuEntry struct {
	text    string
	enabled func(m *model) bool
	action  func(m *model) tea.Cmd
}

type menu struct {
	title string
	items []menuEntry
}

// dialog is a modal window drawn above the main window. Widget IDs a
// dialog registers must start with dlgPrefix.
type dialog interface {
	name() string
	title() string
	draw(f *frame, parent *uitree.Node, m *model)
	click(m *model, id string) tea.Cmd
	key(m *model, msg tea.KeyMsg) tea.Cmd
}

type model struct {
	zones   *zone.Manager
	emitter *uitree.Emitter

	width, height int

	menus    []menu
	openMenu int
	docs     []document
	dialog   dialog
	focus    string
	status   string
	cwd      string

	frame *frame
}

func newModel(zm *zone.Manager, em *uitree.Emitter, cwd string) *model {
	m := &model{
		zones:    zm,
		emitter:  em,
		width:    80,
		height:   24,
		openMenu: -1,
		status:   "Ready",
		cwd:      cwd,
	}
	hasDoc := func(m *model) bool { return len(m.docs) > 0 }
	always := func(*model) bool { return true }
	never := func(*model) bool { return false }
	m.menus = []menu{
		{title: "File", items: []menuEntry{
			{text: "New File or Project...", enabled: always, action: func(m *model) tea.Cmd {
				m.showDialog(&newFileDialog{})
				return nil
			}},
			{text: "Close Document", enabled: hasDoc, action: func(m *model) tea.Cmd {
				m.closeDocument()
				return nil
			}},
			{text: "Exit", enabled: always, action: func(*model) tea.Cmd { return tea.Quit }},
		}},
		{title: "Edit", items: []menuEntry{
			{text: "Undo", enabled: never},
			{text: "Select All", enabled: hasDoc, action: func(m *model) tea.Cmd {
				m.focus = editorID
				m.status = "Selected all"
				return nil
			}},
		}},
		{title: "Help", items: []menuEntry{
			{text: "About Fake IDE...", enabled: always, action: func(m *model) tea.Cmd {
				m.showDialog(&messageDialog{
					dialogName: "AboutDialog",
					heading:    "About " + appTitle,
					viewName:   "aboutText",
					text:       appTitle + " " + version + "\nA terminal stand-in for a desktop IDE.",
				})
				return nil
			}},
		}},
	}
	return m
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = max(msg.Width, 40), max(msg.Height, 12)
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			return m, m.handleClick(msg)
		}
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	if m.dialog != nil {
		if msg.String() == "esc" {
			m.dialog = nil
			m.focus = ""
			return nil
		}
		return m.dialog.key(m, msg)
	}
	if m.openMenu >= 0 {
		if msg.String() == "esc" {
			m.openMenu = -1
		}
		return nil
	}
	switch msg.String() {
	case "ctrl+w":
		m.closeDocument()
	case "ctrl+n":
		m.showDialog(&newFileDialog{})
	}
	return nil
}

func (m *model) handleClick(msg tea.MouseMsg) tea.Cmd {
	id := m.hit(msg)
	switch {
	case m.dialog != nil:
		if strings.HasPrefix(id, dlgPrefix) {
			return m.dialog.click(m, id)
		}
		return nil
	case m.openMenu >= 0 && !strings.HasPrefix(id, itemPfx) && !strings.HasPrefix(id, barPrefix):
		m.openMenu = -1
		return nil
	}

	switch {
	case strings.HasPrefix(id, barPrefix):
		title := strings.TrimPrefix(id, barPrefix)
		for i, mn := range m.menus {
			if mn.title == title {
				m.openMenu = i
			}
		}
	case strings.HasPrefix(id, itemPfx):
		if m.openMenu < 0 {
			return nil
		}
		text := strings.TrimPrefix(id, itemPfx)
		for _, it := range m.menus[m.openMenu].items {
			if it.text == text && it.enabled(m) && it.action != nil {
				m.openMenu = -1
				return it.action(m)
			}
		}
	case id == closeDoc:
		m.closeDocument()
	case id == editorID:
		if len(m.docs) > 0 {
			m.focus = editorID
		}
	}
	return nil
}

// hit returns the topmost clickable widget under the mouse. Zones are
// preferred; widgets drawn since the last zone scan fall back to the
// rectangles of the current frame.
func (m *model) hit(msg tea.MouseMsg) string {
	if m.frame == nil {
		return ""
	}
	for i := len(m.frame.order) - 1; i >= 0; i-- {
		id := m.frame.order[i]
		if z := m.zones.Get(id); !z.IsZero() {
			if z.InBounds(msg) {
				return id
			}
			continue
		}
		if m.frame.rects[id].Contains(msg.X, msg.Y) {
			return id
		}
	}
	return ""
}

func (m *model) showDialog(d dialog) {
	m.openMenu = -1
	m.dialog = d
	m.focus = ""
	if f, ok := d.(interface{ initialFocus() string }); ok {
		m.focus = f.initialFocus()
	}
}

func (m *model) closeDialog() {
	m.dialog = nil
	m.focus = ""
}

func (m *model) openDocument(doc document) {
	m.docs = append(m.docs, doc)
	m.focus = editorID
}

func (m *model) closeDocument() {
	if len(m.docs) == 0 {
		return
	}
	closed := m.docs[len(m.docs)-1]
	m.docs = m.docs[:len(m.docs)-1]
	m.status = "Closed " + filepath.Base(closed.path)
	if len(m.docs) == 0 {
		m.focus = ""
	}
}

func (m *model) current() (document, bool) {
	if len(m.docs) == 0 {
		return document{}, false
	}
	return m.docs[len(m.docs)-1], true
}

func (m *model) windowTitle() string {
	if doc, ok := m.current(); ok {
		return filepath.Base(doc.path) + " - " + appTitle
	}
	return appTitle
}
