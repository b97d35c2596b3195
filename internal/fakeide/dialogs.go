package main

import (
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joeycumines/uidriver/internal/uitree"
)

// messageDialog shows a block of text and a Close button.
type messageDialog struct {
	dialogName string
	heading    string
	viewName   string
	text       string
}

func (d *messageDialog) name() string  { return d.dialogName }
func (d *messageDialog) title() string { return d.heading }

func (d *messageDialog) draw(f *frame, root *uitree.Node, m *model) {
	textLines := strings.Split(d.text, "\n")
	lines := append([]string{d.heading, ""}, textLines...)
	lines = append(lines, "", buttonLabel("Close"))
	width := 0
	for _, l := range lines {
		width = max(width, len(l))
	}
	node, cx, cy := dialogFrame(f, root, d, lines, min(width, f.w-4))

	textWidth := 0
	for _, l := range textLines {
		textWidth = max(textWidth, len(l))
	}
	node.Children = append(node.Children, &uitree.Node{
		ID:     dlgPrefix + d.viewName,
		Type:   "TextView",
		Name:   d.viewName,
		Text:   d.text,
		Bounds: uitree.Bounds{X: cx, Y: cy + 2, Width: textWidth, Height: len(textLines)},
	})
	button(f, node, dlgPrefix+"Close", "Close", cx, cy+len(lines)-1, true)
}

func (d *messageDialog) click(m *model, id string) tea.Cmd {
	if id == dlgPrefix+"Close" {
		m.closeDialog()
	}
	return nil
}

func (d *messageDialog) key(m *model, msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "enter" {
		m.closeDialog()
	}
	return nil
}

func pluginErrorDialog(plugin string) *messageDialog {
	return &messageDialog{
		dialogName: "PluginErrorOverview",
		heading:    "The following plugins have errors and cannot be loaded:",
		viewName:   "pluginError",
		text:       plugin + " (" + version + "): cannot load plugin: missing dependency " + plugin + "Core",
	}
}

var templates = []string{"C++ Class", "C++ Header File", "C++ Source File"}

// newFileDialog lets the user pick a file template.
type newFileDialog struct {
	selected int
	picked   bool
}

func (d *newFileDialog) name() string  { return "NewFileDialog" }
func (d *newFileDialog) title() string { return "New File or Project" }

func (d *newFileDialog) draw(f *frame, root *uitree.Node, m *model) {
	lines := []string{"Choose a template:", ""}
	for i, t := range templates {
		marker := "  "
		if d.picked && i == d.selected {
			marker = "> "
		}
		lines = append(lines, marker+t)
	}
	lines = append(lines, "", buttonLabel("Choose...")+"  "+buttonLabel("Cancel"))
	node, cx, cy := dialogFrame(f, root, d, lines, 40)

	list := &uitree.Node{
		ID:     dlgPrefix + "templates",
		Type:   "ListView",
		Name:   "templates",
		Bounds: uitree.Bounds{X: cx, Y: cy + 2, Width: 40, Height: len(templates)},
	}
	node.Children = append(node.Children, list)
	for i, t := range templates {
		b := uitree.Bounds{X: cx, Y: cy + 2 + i, Width: 40, Height: 1}
		id := dlgPrefix + "template." + strconv.Itoa(i)
		f.clickable(id, b)
		list.Children = append(list.Children, &uitree.Node{
			ID:     id,
			Type:   "ListItem",
			Text:   t,
			Props:  map[string]string{"selected": strconv.FormatBool(d.picked && i == d.selected)},
			Bounds: b,
		})
	}
	row := cy + len(lines) - 1
	button(f, node, dlgPrefix+"Choose", "Choose...", cx, row, d.picked)
	button(f, node, dlgPrefix+"Cancel", "Cancel", cx+len(buttonLabel("Choose..."))+2, row, true)
}

func (d *newFileDialog) click(m *model, id string) tea.Cmd {
	switch {
	case strings.HasPrefix(id, dlgPrefix+"template."):
		if i, err := strconv.Atoi(strings.TrimPrefix(id, dlgPrefix+"template.")); err == nil {
			d.selected, d.picked = i, true
		}
	case id == dlgPrefix+"Choose":
		d.choose(m)
	case id == dlgPrefix+"Cancel":
		m.closeDialog()
	}
	return nil
}

func (d *newFileDialog) key(m *model, msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up":
		if d.picked && d.selected > 0 {
			d.selected--
		}
		d.picked = true
	case "down":
		if d.picked && d.selected < len(templates)-1 {
			d.selected++
		}
		d.picked = true
	case "enter":
		d.choose(m)
	}
	return nil
}

func (d *newFileDialog) choose(m *model) {
	if !d.picked {
		return
	}
	if templates[d.selected] != "C++ Class" {
		m.closeDialog()
		m.status = templates[d.selected] + " is not available in this edition"
		return
	}
	m.showDialog(&classWizard{path: m.cwd})
}

const fieldWidth = 30

// classWizard collects the class name and location and writes the files.
type classWizard struct {
	className string
	path      string
	err       string
}

func (w *classWizard) name() string         { return "NewClassWizard" }
func (w *classWizard) title() string        { return "C++ Class Wizard" }
func (w *classWizard) initialFocus() string { return dlgPrefix + "ClassName" }

func (w *classWizard) field(value string, focused bool) string {
	if focused {
		value += "_"
	}
	r := []rune(value)
	if len(r) > fieldWidth {
		r = r[len(r)-fieldWidth:]
	}
	return "[" + string(r) + strings.Repeat(" ", fieldWidth-len(r)) + "]"
}

func (w *classWizard) draw(f *frame, root *uitree.Node, m *model) {
	const labelWidth = 13
	shown := w.err
	if limit := labelWidth + fieldWidth + 2; len(shown) > limit {
		shown = shown[:limit-3] + "..."
	}
	lines := []string{
		"Enter the class details:",
		"",
		"Class name:  " + w.field(w.className, m.focus == dlgPrefix+"ClassName"),
		"",
		"Path:        " + w.field(w.path, m.focus == dlgPrefix+"Path"),
		shown,
		"",
		buttonLabel("Finish") + "  " + buttonLabel("Cancel"),
	}
	node, cx, cy := dialogFrame(f, root, w, lines, labelWidth+fieldWidth+2)

	for _, fld := range []struct {
		name, value string
		row         int
	}{{"ClassName", w.className, 2}, {"Path", w.path, 4}} {
		id := dlgPrefix + fld.name
		b := uitree.Bounds{X: cx + labelWidth, Y: cy + fld.row, Width: fieldWidth + 2, Height: 1}
		f.clickable(id, b)
		node.Children = append(node.Children, &uitree.Node{
			ID:      id,
			Type:    "LineEdit",
			Name:    fld.name,
			Text:    fld.value,
			Bounds:  b,
			Focused: m.focus == id,
		})
	}
	node.Children = append(node.Children, &uitree.Node{
		ID:      dlgPrefix + "error",
		Type:    "Label",
		Name:    "errorLabel",
		Text:    w.err,
		Bounds:  uitree.Bounds{X: cx, Y: cy + 5, Width: len(shown), Height: 1},
		Visible: uitree.Bool(w.err != ""),
	})
	row := cy + len(lines) - 1
	button(f, node, dlgPrefix+"Finish", "Finish", cx, row, strings.TrimSpace(w.className) != "")
	button(f, node, dlgPrefix+"Cancel", "Cancel", cx+len(buttonLabel("Finish"))+2, row, true)
}

func (w *classWizard) click(m *model, id string) tea.Cmd {
	switch id {
	case dlgPrefix + "ClassName", dlgPrefix + "Path":
		m.focus = id
	case dlgPrefix + "Finish":
		w.finish(m)
	case dlgPrefix + "Cancel":
		m.closeDialog()
	}
	return nil
}

func (w *classWizard) key(m *model, msg tea.KeyMsg) tea.Cmd {
	target := &w.className
	if m.focus == dlgPrefix+"Path" {
		target = &w.path
	}
	switch msg.String() {
	case "tab", "shift+tab":
		if m.focus == dlgPrefix+"Path" {
			m.focus = dlgPrefix + "ClassName"
		} else {
			m.focus = dlgPrefix + "Path"
		}
		return nil
	case "enter":
		w.finish(m)
		return nil
	case "backspace":
		if r := []rune(*target); len(r) > 0 {
			*target = string(r[:len(r)-1])
		}
		return nil
	case "ctrl+u":
		*target = ""
		return nil
	}
	switch msg.Type {
	case tea.KeyRunes:
		*target += string(msg.Runes)
	case tea.KeySpace:
		*target += " "
	}
	return nil
}

func (w *classWizard) finish(m *model) {
	class := strings.TrimSpace(w.className)
	header, source, err := writeClass(w.path, class)
	if err != nil {
		w.err = err.Error()
		return
	}
	m.closeDialog()
	m.openDocument(header)
	m.openDocument(source)
	m.status = "Created " + header.path + " and " + source.path
}
