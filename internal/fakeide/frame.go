package main

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joeycumines/uidriver/internal/uitree"
	zone "github.com/lrstanley/bubblezone"
	"github.com/rivo/uniseg"
)

// frame is one rendered screen: a grid of grapheme cells plus the
// rectangles of every clickable widget drawn into it.
type frame struct {
	w, h   int
	cells  [][]string
	spans  map[int][]span
	rects  map[string]uitree.Bounds
	order  []string
	styles map[int]lipgloss.Style
}

type span struct {
	id     string
	x0, x1 int
}

func newFrame(w, h int) *frame {
	f := &frame{
		w:      w,
		h:      h,
		cells:  make([][]string, h),
		spans:  make(map[int][]span),
		rects:  make(map[string]uitree.Bounds),
		styles: make(map[int]lipgloss.Style),
	}
	for y := range f.cells {
		f.cells[y] = make([]string, w)
		for x := range f.cells[y] {
			f.cells[y][x] = " "
		}
	}
	return f
}

// text draws s at (x, y), clipped to the frame, and returns the number of
// cells written.
func (f *frame) text(x, y int, s string) int {
	if y < 0 || y >= f.h {
		return 0
	}
	start := x
	for s != "" && x < f.w {
		cluster, rest, width, _ := uniseg.FirstGraphemeClusterInString(s, -1)
		s = rest
		if width <= 0 {
			continue
		}
		if x+width > f.w {
			break
		}
		if x >= 0 {
			f.cells[y][x] = cluster
			for i := 1; i < width; i++ {
				f.cells[y][x+i] = ""
			}
		}
		x += width
	}
	return x - start
}

// block draws a multi-line string with its top left corner at (x, y).
func (f *frame) block(x, y int, s string) {
	for i, line := range strings.Split(s, "\n") {
		f.text(x, y+i, line)
	}
}

// cover blanks a rectangle and drops the clickable spans under it.
func (f *frame) cover(b uitree.Bounds) {
	for y := b.Y; y < b.Y+b.Height && y < f.h; y++ {
		if y < 0 {
			continue
		}
		for x := max(b.X, 0); x < b.X+b.Width && x < f.w; x++ {
			f.cells[y][x] = " "
		}
		kept := f.spans[y][:0]
		for _, sp := range f.spans[y] {
			if sp.x1 <= b.X || sp.x0 >= b.X+b.Width {
				kept = append(kept, sp)
			}
		}
		f.spans[y] = kept
	}
}

// clickable registers a widget rectangle for hit-testing. Single-row
// widgets are also marked as zones.
func (f *frame) clickable(id string, b uitree.Bounds) {
	f.rects[id] = b
	f.order = append(f.order, id)
	if b.Height == 1 && b.Y >= 0 && b.Y < f.h {
		x0, x1 := max(b.X, 0), min(b.X+b.Width, f.w)
		if x0 < x1 {
			f.spans[b.Y] = append(f.spans[b.Y], span{id: id, x0: x0, x1: x1})
		}
	}
}

// render returns the frame as terminal lines with zone markers inserted.
func (f *frame) render(zm *zone.Manager) string {
	lines := make([]string, f.h)
	for y, row := range f.cells {
		spans := append([]span(nil), f.spans[y]...)
		sort.Slice(spans, func(i, j int) bool { return spans[i].x0 < spans[j].x0 })

		var b strings.Builder
		x := 0
		for _, sp := range spans {
			if sp.x0 < x {
				continue
			}
			b.WriteString(strings.Join(row[x:sp.x0], ""))
			b.WriteString(zm.Mark(sp.id, strings.Join(row[sp.x0:sp.x1], "")))
			x = sp.x1
		}
		b.WriteString(strings.Join(row[x:], ""))

		line := b.String()
		if st, ok := f.styles[y]; ok {
			line = st.Render(line)
		}
		lines[y] = line
	}
	return zm.Scan(strings.Join(lines, "\n"))
}
