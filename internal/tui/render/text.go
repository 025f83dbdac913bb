package render

import (
	"linechat/internal/chatlog"
	"linechat/internal/layout"
	"linechat/internal/session"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/padding"
	"github.com/muesli/reflow/truncate"
)

const textPrefixWidth = 5

var (
	userPrefix  = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
	agentPrefix = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
)

// Text 是逐行的纯文本记录，每条消息只占其文本行数，没有间隔。
type Text struct {
	opts Options
}

func NewText(opts Options) *Text {
	return &Text{opts: opts}
}

func (*Text) Name() string { return "text" }

func (t *Text) Metrics(width int) layout.Metrics {
	return layout.Metrics{
		WrapWidth:  t.opts.wrapWidth(width - textPrefixWidth),
		MaxLines:   t.opts.maxLines(),
		LineHeight: 1,
	}
}

func (t *Text) Conversation(f session.Frame, area Rect, buf *Buffer) {
	c := newCanvas(area)
	for _, msg := range f.Visible {
		c.place(msg.Top, t.messageLines(msg.Rendered, area.Width))
	}
	c.flush(buf)
}

func (t *Text) messageLines(msg session.Rendered, width int) []Line {
	prefix, style := "bot> ", agentPrefix
	if msg.Role == chatlog.RoleUser {
		prefix, style = "you> ", userPrefix
	}
	blank := padding.String("", textPrefixWidth)
	out := make([]Line, 0, len(msg.Lines))
	for i, text := range msg.Lines {
		body := truncate.String(text, uint(max(0, width-textPrefixWidth)))
		if i == 0 {
			out = append(out, Line{Spans: []Span{{Text: prefix, Style: style}, {Text: body}}})
			continue
		}
		out = append(out, Line{Spans: []Span{{Text: blank}, {Text: body}}})
	}
	return out
}
