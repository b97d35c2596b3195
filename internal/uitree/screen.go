package uitree

import (
	"strconv"
	"strings"

	"github.com/rivo/uniseg"
)

// ParseScreen replays raw terminal output and returns the visible text of
// the final screen, one string per row with trailing blanks removed. It
// understands the cursor movement, erase and alternate-screen sequences
// that full-screen TUI programs emit; colours and other SGR attributes are
// dropped. Wide graphemes occupy two cells.
//
// The result is used for diagnostics only: widget lookup always goes
// through the published tree.
func ParseScreen(buffer string, rows, cols int) []string {
	if rows <= 0 {
		rows = 24
	}
	if cols <= 0 {
		cols = 80
	}
	s := newScreen(rows, cols)

	for i := 0; i < len(buffer); {
		switch c := buffer[i]; {
		case c == '\x1b':
			i = s.escape(buffer, i+1)
		case c == '\r':
			s.col = 0
			i++
		case c == '\n':
			s.lineFeed()
			i++
		case c == '\t':
			s.col = (s.col/8 + 1) * 8
			i++
		case c == '\b':
			if s.col > 0 {
				s.col--
			}
			i++
		case c < 0x20 || c == 0x7f:
			i++
		default:
			cluster, _, width, _ := uniseg.FirstGraphemeClusterInString(buffer[i:], -1)
			s.put(cluster, width)
			i += len(cluster)
		}
	}
	return s.lines()
}

// StripANSI removes escape sequences from s, leaving printable text.
func StripANSI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '\x1b' {
			b.WriteByte(s[i])
			i++
			continue
		}
		i = skipEscape(s, i+1)
	}
	return b.String()
}

// skipEscape returns the index just past the escape sequence whose body
// starts at i (the byte after ESC).
func skipEscape(s string, i int) int {
	if i >= len(s) {
		return i
	}
	switch s[i] {
	case '[':
		i++
		for i < len(s) && !isCSIFinal(s[i]) {
			i++
		}
		if i < len(s) {
			i++
		}
		return i
	case ']', 'P', '_', '^':
		return skipString(s, i+1)
	case '(', ')', '*', '+':
		return min(i+2, len(s))
	default:
		return i + 1
	}
}

// skipString skips an OSC/DCS style payload terminated by BEL or ST.
func skipString(s string, i int) int {
	for i < len(s) {
		if s[i] == '\x07' {
			return i + 1
		}
		if s[i] == '\x1b' && i+1 < len(s) && s[i+1] == '\\' {
			return i + 2
		}
		i++
	}
	return i
}

func isCSIFinal(b byte) bool {
	return b >= 0x40 && b <= 0x7e
}

type screen struct {
	cells    [][]string
	cols     int
	row, col int
}

func newScreen(rows, cols int) *screen {
	s := &screen{cols: cols}
	s.cells = make([][]string, rows)
	for r := range s.cells {
		s.cells[r] = s.blankRow()
	}
	return s
}

func (s *screen) blankRow() []string {
	row := make([]string, s.cols)
	for i := range row {
		row[i] = " "
	}
	return row
}

func (s *screen) ensureRow(r int) {
	for r >= len(s.cells) {
		s.cells = append(s.cells, s.blankRow())
	}
}

func (s *screen) lineFeed() {
	s.row++
	s.col = 0
}

func (s *screen) put(cluster string, width int) {
	if width <= 0 {
		return
	}
	if s.col+width > s.cols {
		s.lineFeed()
	}
	s.ensureRow(s.row)
	s.cells[s.row][s.col] = cluster
	for k := 1; k < width && s.col+k < s.cols; k++ {
		s.cells[s.row][s.col+k] = ""
	}
	s.col += width
}

func (s *screen) clearRange(r, from, to int) {
	if r < 0 || r >= len(s.cells) {
		return
	}
	for c := max(from, 0); c < to && c < s.cols; c++ {
		s.cells[r][c] = " "
	}
}

func (s *screen) clearAll() {
	for r := range s.cells {
		s.clearRange(r, 0, s.cols)
	}
}

// escape interprets the sequence starting at i (just after ESC) and
// returns the index after it.
func (s *screen) escape(buf string, i int) int {
	if i >= len(buf) || buf[i] != '[' {
		return skipEscape(buf, i)
	}
	i++
	start := i
	for i < len(buf) && !isCSIFinal(buf[i]) {
		i++
	}
	if i >= len(buf) {
		return i
	}
	params, final := buf[start:i], buf[i]
	i++

	private := strings.HasPrefix(params, "?")
	args := csiArgs(strings.TrimPrefix(params, "?"))
	arg := func(n, def int) int {
		if n < len(args) && args[n] > 0 {
			return args[n]
		}
		return def
	}

	switch final {
	case 'H', 'f':
		s.row = arg(0, 1) - 1
		s.col = min(arg(1, 1)-1, s.cols-1)
	case 'A':
		s.row = max(s.row-arg(0, 1), 0)
	case 'B':
		s.row += arg(0, 1)
	case 'C':
		s.col = min(s.col+arg(0, 1), s.cols-1)
	case 'D':
		s.col = max(s.col-arg(0, 1), 0)
	case 'G':
		s.col = min(arg(0, 1)-1, s.cols-1)
	case 'd':
		s.row = arg(0, 1) - 1
	case 'J':
		switch arg(0, 0) {
		case 0:
			s.clearRange(s.row, s.col, s.cols)
			for r := s.row + 1; r < len(s.cells); r++ {
				s.clearRange(r, 0, s.cols)
			}
		case 1:
			for r := 0; r < s.row; r++ {
				s.clearRange(r, 0, s.cols)
			}
			s.clearRange(s.row, 0, s.col+1)
		default:
			s.clearAll()
		}
	case 'K':
		switch arg(0, 0) {
		case 0:
			s.clearRange(s.row, s.col, s.cols)
		case 1:
			s.clearRange(s.row, 0, s.col+1)
		default:
			s.clearRange(s.row, 0, s.cols)
		}
	case 'h':
		if private && (hasArg(args, 1049) || hasArg(args, 47)) {
			s.clearAll()
			s.row, s.col = 0, 0
		}
	}
	if s.row < 0 {
		s.row = 0
	}
	return i
}

func csiArgs(params string) []int {
	if params == "" {
		return nil
	}
	parts := strings.Split(params, ";")
	out := make([]int, len(parts))
	for i, p := range parts {
		if n, err := strconv.Atoi(p); err == nil {
			out[i] = n
		}
	}
	return out
}

func hasArg(args []int, v int) bool {
	for _, a := range args {
		if a == v {
			return true
		}
	}
	return false
}

func (s *screen) lines() []string {
	out := make([]string, len(s.cells))
	for r, row := range s.cells {
		out[r] = strings.TrimRight(strings.Join(row, ""), " ")
	}
	return out
}
