package render

import (
	"fmt"
	"strings"

	"linechat/internal/config"
	"linechat/internal/layout"
	"linechat/internal/session"

	"github.com/charmbracelet/x/ansi"
)

// Renderer 把会话快照的可见消息画进给定区域。
//
// Metrics 决定会话的排版参数；Conversation 必须与之对应，
// 即每条消息恰好占用 Metrics.Height 行。
type Renderer interface {
	Name() string
	Metrics(width int) layout.Metrics
	Conversation(f session.Frame, area Rect, buf *Buffer)
}

// Options 配置渲染后端。零值字段使用后端默认值。
type Options struct {
	WrapWidth int
	MaxLines  int
}

// New 按名称创建渲染后端。
func New(name string, opts Options) (Renderer, error) {
	switch strings.TrimSpace(name) {
	case config.RendererBubble, "":
		return NewBubble(opts), nil
	case config.RendererText:
		return NewText(opts), nil
	case config.RendererCell:
		return NewCell(opts), nil
	default:
		return nil, fmt.Errorf("unknown renderer %q", name)
	}
}

// wrapWidth 在自动宽度与配置宽度之间取较小值，且不小于 1。
func (o Options) wrapWidth(auto int) int {
	w := auto
	if o.WrapWidth > 0 && o.WrapWidth < w {
		w = o.WrapWidth
	}
	if w < 1 {
		w = 1
	}
	return w
}

func (o Options) maxLines() int {
	if o.MaxLines > 0 {
		return o.MaxLines
	}
	return layout.DefaultMetrics().MaxLines
}

// canvas 是固定高度的行网格，消息按 Top 坐标绘入，超出部分被裁掉。
type canvas struct {
	rows  []Line
	width int
}

func newCanvas(area Rect) *canvas {
	if area.Empty() {
		return &canvas{}
	}
	return &canvas{rows: make([]Line, area.Height), width: area.Width}
}

func (c *canvas) place(top int, lines []Line) {
	for i, line := range lines {
		y := top + i
		if y < 0 {
			continue
		}
		if y >= len(c.rows) {
			return
		}
		c.rows[y] = line
	}
}

func (c *canvas) flush(buf *Buffer) {
	buf.WriteLines(c.rows...)
}

// fit 把预渲染文本裁到 width 列。
func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "")
}
