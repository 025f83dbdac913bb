package render

import (
	"fmt"

	"linechat/internal/session"

	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	cursorStyle  = lipgloss.NewStyle().Reverse(true)
)

// Connecting 画出未连接时的提示页。target 是正在等待的链路地址。
func Connecting(target string, area Rect, buf *Buffer) {
	lines := []Line{
		Styled("Connecting...", headingStyle),
		{},
		Plain("Waiting for the host on"),
		Plain("  " + target),
		{},
		Styled("Start `linechat host` on the other end,", faintStyle),
		Styled("or plug the device in.", faintStyle),
	}
	c := newCanvas(area)
	top := max(0, (area.Height-len(lines))/2)
	for i := range lines {
		if len(lines[i].Spans) > 0 {
			lines[i].Spans[0].Text = fit(lines[i].Spans[0].Text, area.Width)
		}
	}
	c.place(top, lines)
	c.flush(buf)
}

// Compose 画出输入页：按列宽硬折行，光标位于 (index%width, index/width)。
func Compose(f session.Frame, area Rect, buf *Buffer) {
	c := newCanvas(area)
	width := max(1, area.Width)
	rows := []Line{Styled("Type your message:", headingStyle), {}}

	text := f.Compose
	cx, cy := f.Cursor%width, f.Cursor/width
	for y := 0; y*width <= len(text); y++ {
		start := y * width
		end := min(len(text), start+width)
		chunk := text[start:end]
		if y != cy {
			rows = append(rows, Plain(chunk))
			continue
		}
		before := chunk[:min(cx, len(chunk))]
		under, after := " ", ""
		if cx < len(chunk) {
			under, after = chunk[cx:cx+1], chunk[cx+1:]
		}
		rows = append(rows, Line{Spans: []Span{{Text: before}, {Text: under, Style: cursorStyle}, {Text: after}}})
	}
	c.place(0, rows)

	if area.Height > 0 {
		counter := fmt.Sprintf("%d/%d", len(text), max(0, f.InputCapacity-1))
		c.place(area.Height-1, []Line{Styled(counter, faintStyle)})
	}
	c.flush(buf)
}
