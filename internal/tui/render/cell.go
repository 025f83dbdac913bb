package render

import (
	"linechat/internal/chatlog"
	"linechat/internal/layout"
	"linechat/internal/session"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	userCell  = lipgloss.NewStyle().Background(lipgloss.Color("25")).Foreground(lipgloss.Color("231"))
	agentCell = lipgloss.NewStyle().Background(lipgloss.Color("238")).Foreground(lipgloss.Color("231"))
)

// Cell 模拟小屏设备：气泡是实心色块，宽度取最长行加左右各一格。
type Cell struct {
	opts Options
}

func NewCell(opts Options) *Cell {
	return &Cell{opts: opts}
}

func (*Cell) Name() string { return "cell" }

func (c *Cell) Metrics(width int) layout.Metrics {
	def := layout.DefaultMetrics()
	return layout.Metrics{
		WrapWidth:  c.opts.wrapWidth(min(def.WrapWidth, width-2)),
		MaxLines:   c.opts.maxLines(),
		LineHeight: 1,
		Gap:        1,
	}
}

func (c *Cell) Conversation(f session.Frame, area Rect, buf *Buffer) {
	cv := newCanvas(area)
	for _, msg := range f.Visible {
		cv.place(msg.Top, c.blockLines(msg.Rendered, area.Width))
	}
	cv.flush(buf)
}

func (c *Cell) blockLines(msg session.Rendered, width int) []Line {
	inner := 0
	for _, text := range msg.Lines {
		inner = max(inner, runewidth.StringWidth(text))
	}
	inner = min(inner, max(0, width-2))
	style := agentCell
	indent := 0
	if msg.Role == chatlog.RoleUser {
		style = userCell
		indent = max(0, width-inner-2)
	}
	lead := runewidth.FillRight("", indent)

	out := make([]Line, 0, msg.Height)
	for _, text := range msg.Lines {
		cell := " " + runewidth.FillRight(runewidth.Truncate(text, inner, ""), inner) + " "
		out = append(out, Line{Spans: []Span{{Text: lead}, {Text: cell, Style: style}}})
	}
	for len(out) < msg.Height {
		out = append(out, Line{})
	}
	return out[:msg.Height]
}
