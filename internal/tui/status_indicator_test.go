package tui

import (
	"testing"
	"time"

	"linechat/internal/session"
	"linechat/internal/tui/render"

	"github.com/mattn/go-runewidth"
)

func TestFmtElapsedCompact(t *testing.T) {
	cases := []struct {
		seconds  uint64
		expected string
	}{
		{seconds: 0, expected: "0s"},
		{seconds: 1, expected: "1s"},
		{seconds: 59, expected: "59s"},
		{seconds: 60, expected: "1m 00s"},
		{seconds: 61, expected: "1m 01s"},
		{seconds: 3*60 + 5, expected: "3m 05s"},
		{seconds: 3600, expected: "1h 00m 00s"},
		{seconds: 25*3600 + 2*60 + 3, expected: "25h 02m 03s"},
	}

	for _, tc := range cases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if got := fmtElapsedCompact(tc.seconds); got != tc.expected {
				t.Fatalf("fmtElapsedCompact(%d) = %q, want %q", tc.seconds, got, tc.expected)
			}
		})
	}
}

func renderTitle(w *StatusIndicatorWidget, width int) string {
	buf := render.Buffer{}
	w.Render(render.Rect{Width: width, Height: 1}, &buf)
	if len(buf.Lines) != 1 {
		return ""
	}
	var combined string
	for _, sp := range buf.Lines[0].Spans {
		combined += sp.Text
	}
	return combined
}

func TestStatusIndicatorRender(t *testing.T) {
	base := time.Unix(100, 0)
	now := base
	widget := NewStatusIndicatorWidget("linechat", func() time.Time { return now })

	cases := []struct {
		state StatusIndicatorState
		want  string
	}{
		{state: StatusConnecting, want: "linechat - Connecting"},
		{state: StatusReady, want: "linechat - Ready"},
		{state: StatusWaiting, want: "linechat - Waiting... (7s)"},
	}
	for _, tc := range cases {
		widget.SetState(tc.state, base)
		now = base.Add(7 * time.Second)
		if got := renderTitle(widget, 80); got != tc.want {
			t.Fatalf("%v: render = %q, want %q", tc.state, got, tc.want)
		}
	}

	widget.SetSpinnerFrame("⣾")
	if got := renderTitle(widget, 80); got != "linechat - Waiting... ⣾ (7s)" {
		t.Fatalf("render with spinner = %q", got)
	}
}

func TestStatusIndicatorElapsedOnlyWhileWaiting(t *testing.T) {
	now := time.Unix(0, 0)
	widget := NewStatusIndicatorWidget("linechat", func() time.Time { return now })
	widget.SetState(StatusWaiting, time.Time{})
	now = now.Add(3 * time.Second)
	if got := widget.ElapsedSeconds(); got != 3 {
		t.Fatalf("elapsed = %d, want 3", got)
	}
	widget.SetState(StatusReady, time.Time{})
	if got := widget.ElapsedSeconds(); got != 0 {
		t.Fatalf("elapsed while ready = %d, want 0", got)
	}
}

func TestStatusIndicatorRenderClampsToWidth(t *testing.T) {
	widget := NewStatusIndicatorWidget("linechat", nil)
	widget.SetState(StatusWaiting, time.Now())

	area := render.Rect{Width: 10, Height: 1}
	combined := renderTitle(widget, area.Width)
	if width := runewidth.StringWidth(combined); width > area.Width {
		t.Fatalf("rendered width %d exceeds area width %d", width, area.Width)
	}
}

func TestIndicatorStateMapping(t *testing.T) {
	cases := map[session.Status]StatusIndicatorState{
		session.StatusDisconnected: StatusConnecting,
		session.StatusReady:        StatusReady,
		session.StatusWaiting:      StatusWaiting,
	}
	for in, want := range cases {
		if got := indicatorState(in); got != want {
			t.Fatalf("indicatorState(%v) = %v, want %v", in, got, want)
		}
	}
}
