package tui

import (
	"fmt"
	"time"

	"linechat/internal/session"
	"linechat/internal/tui/render"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// StatusIndicatorState 枚举了标题栏可显示的状态。
type StatusIndicatorState int

const (
	// StatusConnecting 表示链路尚未建立。
	StatusConnecting StatusIndicatorState = iota
	// StatusReady 表示可以输入。
	StatusReady
	// StatusWaiting 表示已发送、等待回复，计时器持续累加。
	StatusWaiting
)

func (s StatusIndicatorState) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusReady:
		return "ready"
	case StatusWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

func (s StatusIndicatorState) defaultHeader() string {
	switch s {
	case StatusConnecting:
		return "Connecting"
	case StatusReady:
		return "Ready"
	case StatusWaiting:
		return "Waiting..."
	default:
		return ""
	}
}

func (s StatusIndicatorState) tracksElapsed() bool {
	return s == StatusWaiting
}

// indicatorState 把会话状态映射到标题栏状态。
func indicatorState(s session.Status) StatusIndicatorState {
	switch s {
	case session.StatusReady:
		return StatusReady
	case session.StatusWaiting:
		return StatusWaiting
	default:
		return StatusConnecting
	}
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	readyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	waitStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	downStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	hintStyle  = lipgloss.NewStyle().Faint(true)
)

// StatusIndicatorWidget 渲染标题栏：名称 + 状态 + 等待计时。
type StatusIndicatorWidget struct {
	title   string
	header  string
	state   StatusIndicatorState
	since   time.Time
	spinner string
	clock   func() time.Time
}

// NewStatusIndicatorWidget 构造标题栏，初始为 Connecting。
func NewStatusIndicatorWidget(title string, clock func() time.Time) *StatusIndicatorWidget {
	if clock == nil {
		clock = time.Now
	}
	return &StatusIndicatorWidget{
		title:  title,
		state:  StatusConnecting,
		header: StatusConnecting.defaultHeader(),
		clock:  clock,
	}
}

// SetState 更新状态；since 是进入等待的时刻，仅对 StatusWaiting 有意义。
func (w *StatusIndicatorWidget) SetState(state StatusIndicatorState, since time.Time) {
	if w == nil {
		return
	}
	w.state = state
	w.header = state.defaultHeader()
	w.since = since
	if since.IsZero() && state.tracksElapsed() {
		w.since = w.clock()
	}
}

// SetSpinnerFrame 设置等待时显示的动画帧。
func (w *StatusIndicatorWidget) SetSpinnerFrame(frame string) {
	if w == nil {
		return
	}
	w.spinner = frame
}

// State 返回当前状态。
func (w *StatusIndicatorWidget) State() StatusIndicatorState {
	return w.state
}

// ElapsedSeconds 返回等待的秒数，非等待状态为 0。
func (w *StatusIndicatorWidget) ElapsedSeconds() uint64 {
	if w == nil || !w.state.tracksElapsed() {
		return 0
	}
	d := w.clock().Sub(w.since)
	if d < 0 {
		return 0
	}
	return uint64(d.Seconds())
}

// Render 绘制一行标题栏。
func (w *StatusIndicatorWidget) Render(area render.Rect, buf *render.Buffer) {
	if w == nil || buf == nil || area.Empty() {
		return
	}
	style := downStyle
	switch w.state {
	case StatusReady:
		style = readyStyle
	case StatusWaiting:
		style = waitStyle
	}

	spans := []render.Span{
		{Text: w.title, Style: titleStyle},
		{Text: " - "},
		{Text: w.header, Style: style},
	}
	if w.state.tracksElapsed() {
		if w.spinner != "" {
			spans = append(spans, render.Span{Text: " " + w.spinner, Style: style})
		}
		spans = append(spans, render.Span{Text: " "}, render.Span{
			Text:  fmt.Sprintf("(%s)", fmtElapsedCompact(w.ElapsedSeconds())),
			Style: hintStyle,
		})
	}

	clamped := clampSpans(spans, area.Width)
	if len(clamped) == 0 {
		return
	}
	buf.WriteLine(render.Line{Spans: clamped})
}

// fmtElapsedCompact 将秒数格式化为友好字符串。
func fmtElapsedCompact(elapsedSecs uint64) string {
	switch {
	case elapsedSecs < 60:
		return fmt.Sprintf("%ds", elapsedSecs)
	case elapsedSecs < 3600:
		minutes := elapsedSecs / 60
		seconds := elapsedSecs % 60
		return fmt.Sprintf("%dm %02ds", minutes, seconds)
	default:
		hours := elapsedSecs / 3600
		minutes := (elapsedSecs % 3600) / 60
		seconds := elapsedSecs % 60
		return fmt.Sprintf("%dh %02dm %02ds", hours, minutes, seconds)
	}
}

func clampSpans(spans []render.Span, width int) []render.Span {
	if width <= 0 {
		return nil
	}
	remaining := width
	out := make([]render.Span, 0, len(spans))
	for _, sp := range spans {
		if remaining <= 0 {
			break
		}
		tw := runewidth.StringWidth(sp.Text)
		if tw <= remaining {
			out = append(out, sp)
			remaining -= tw
			continue
		}
		text := runewidth.Truncate(sp.Text, remaining, "")
		if text != "" {
			sp.Text = text
			out = append(out, sp)
			remaining = 0
		}
	}
	return out
}
