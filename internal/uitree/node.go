// Package uitree models the live widget tree of an application under test.
//
// An instrumented application publishes its tree as a sequence of
// [Snapshot] values over the automation hook (see [Emitter] and [Reader]).
// The harness never mutates a snapshot once decoded; every consumer reads
// the latest one and treats it as immutable.
package uitree

import (
	"strconv"
)

// Bounds is the on-screen rectangle of a widget, in 0-indexed terminal cells.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"w"`
	Height int `json:"h"`
}

// Empty reports whether the rectangle covers no cells.
func (b Bounds) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Center returns the middle cell of the rectangle.
func (b Bounds) Center() (x, y int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Contains reports whether the cell (x, y) lies inside the rectangle.
func (b Bounds) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// Node is a single widget in the UI tree.
type Node struct {
	ID       string            `json:"id,omitempty"`      // Stable per widget instance
	Type     string            `json:"type"`              // Widget class, e.g. MainWindow
	Name     string            `json:"name,omitempty"`    // Object name
	Text     string            `json:"text,omitempty"`    // Visible text or document content
	Props    map[string]string `json:"props,omitempty"`   // Additional properties (title, file, ...)
	Bounds   Bounds            `json:"bounds"`            // Screen rectangle
	Visible  *bool             `json:"visible,omitempty"` // nil = visible
	Enabled  *bool             `json:"enabled,omitempty"` // nil = enabled
	Focused  bool              `json:"focused,omitempty"`
	Children []*Node           `json:"children,omitempty"`
}

// IsVisible reports the widget's own visibility flag. Visibility of
// ancestors is not considered.
func (n *Node) IsVisible() bool {
	return n.Visible == nil || *n.Visible
}

// IsEnabled reports whether the widget accepts input.
func (n *Node) IsEnabled() bool {
	return n.Enabled == nil || *n.Enabled
}

// Property returns the value of a named property. The built-in names id,
// type, name, text, visible, enabled and focused map onto the struct
// fields; everything else is looked up in Props.
func (n *Node) Property(name string) (string, bool) {
	switch name {
	case "id":
		return n.ID, n.ID != ""
	case "type":
		return n.Type, true
	case "name":
		return n.Name, true
	case "text":
		return n.Text, true
	case "visible":
		return boolString(n.IsVisible()), true
	case "enabled":
		return boolString(n.IsEnabled()), true
	case "focused":
		return boolString(n.Focused), true
	}
	v, ok := n.Props[name]
	return v, ok
}

// Title is shorthand for the "title" property.
func (n *Node) Title() string {
	return n.Props["title"]
}

// Walk visits n and its descendants depth first, in document order. The
// callback receives the parent (nil for n itself). Returning false skips
// the node's children.
func (n *Node) Walk(fn func(node, parent *Node) bool) {
	walk(n, nil, fn)
}

func walk(n, parent *Node, fn func(node, parent *Node) bool) {
	if n == nil {
		return
	}
	if !fn(n, parent) {
		return
	}
	for _, c := range n.Children {
		walk(c, n, fn)
	}
}

// Shallow returns a copy of n without its children, suitable for handing
// to callers that must not hold on to the tree.
func (n *Node) Shallow() Node {
	cp := *n
	cp.Children = nil
	if n.Props != nil {
		cp.Props = make(map[string]string, len(n.Props))
		for k, v := range n.Props {
			cp.Props[k] = v
		}
	}
	return cp
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := n.Shallow()
	if n.Visible != nil {
		cp.Visible = Bool(*n.Visible)
	}
	if n.Enabled != nil {
		cp.Enabled = Bool(*n.Enabled)
	}
	if n.Children != nil {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = c.Clone()
		}
	}
	return &cp
}

// Bool returns a pointer to b, for the optional Visible and Enabled fields.
func Bool(b bool) *bool {
	return &b
}

func boolString(b bool) string {
	return strconv.FormatBool(b)
}

// Snapshot is one published state of an application's widget tree.
type Snapshot struct {
	Seq  uint64 `json:"seq"`
	App  string `json:"app"`
	Root *Node  `json:"root"`
}
