package render

import (
	"strings"

	"linechat/internal/chatlog"
	"linechat/internal/layout"
	"linechat/internal/session"

	"github.com/charmbracelet/lipgloss"
)

// maxBubbleColumns 是气泡（含边框与内边距）的最大宽度。
const maxBubbleColumns = 50

var (
	userBubble = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)
	agentBubble = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(0, 1)
)

// Bubble 用圆角边框画气泡：用户靠右，对端靠左。
type Bubble struct {
	opts Options
}

func NewBubble(opts Options) *Bubble {
	return &Bubble{opts: opts}
}

func (*Bubble) Name() string { return "bubble" }

// Metrics 边框占上下各一行，消息之间空一行。
func (b *Bubble) Metrics(width int) layout.Metrics {
	bubble := width * 3 / 4
	if bubble > maxBubbleColumns {
		bubble = maxBubbleColumns
	}
	return layout.Metrics{
		WrapWidth:  b.opts.wrapWidth(bubble - 4),
		MaxLines:   b.opts.maxLines(),
		LineHeight: 1,
		Padding:    1,
		Gap:        1,
	}
}

func (b *Bubble) Conversation(f session.Frame, area Rect, buf *Buffer) {
	c := newCanvas(area)
	for _, msg := range f.Visible {
		c.place(msg.Top, b.bubbleLines(msg.Rendered, area.Width))
	}
	c.flush(buf)
}

func (b *Bubble) bubbleLines(msg session.Rendered, width int) []Line {
	style, pos := agentBubble, lipgloss.Left
	if msg.Role == chatlog.RoleUser {
		style, pos = userBubble, lipgloss.Right
	}
	box := style.Render(strings.Join(msg.Lines, "\n"))
	placed := lipgloss.PlaceHorizontal(width, pos, box)

	out := make([]Line, 0, msg.Height)
	for _, row := range strings.Split(placed, "\n") {
		out = append(out, Plain(fit(row, width)))
	}
	for len(out) < msg.Height {
		out = append(out, Line{})
	}
	return out[:msg.Height]
}
