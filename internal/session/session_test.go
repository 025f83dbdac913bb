package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"linechat/internal/chatlog"
	"linechat/internal/layout"
	"linechat/internal/logger"

	"github.com/sirupsen/logrus"
)

type recordingSender struct {
	frames [][]byte
	err    error
}

func (r *recordingSender) Send(_ context.Context, frame []byte) error {
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, append([]byte(nil), frame...))
	return nil
}

func quietLogger() *logger.LogEntry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestSession(t *testing.T, opts Options) (*Session, *recordingSender) {
	t.Helper()
	sender := &recordingSender{}
	if opts.Sender == nil {
		opts.Sender = sender
	}
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	if opts.Clock == nil {
		now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		opts.Clock = func() time.Time { return now }
	}
	return New(opts), sender
}

func typeText(s *Session, text string) {
	for i := 0; i < len(text); i++ {
		s.Input(KeyChar(text[i]))
	}
}

func TestChatScenario(t *testing.T) {
	s, sender := newTestSession(t, Options{Viewport: 30})

	if s.State() != StateDisconnected || s.Status() != StatusDisconnected {
		t.Fatalf("initial state=%v status=%v", s.State(), s.Status())
	}

	eff := s.Attach()
	if !eff.Rearm || eff.ReadSize != DefaultReadSize || !eff.Redraw {
		t.Fatalf("attach effect = %+v", eff)
	}
	if s.State() != StateConnected || s.Status() != StatusReady {
		t.Fatalf("after attach state=%v status=%v", s.State(), s.Status())
	}

	s.Input(Key(InputCompose))
	if s.State() != StateComposing {
		t.Fatalf("state = %v, want composing", s.State())
	}
	typeText(s, "Hi")
	eff = s.Input(Key(InputConfirm))
	if eff.Sent == nil || eff.Sent.Text != "Hi" || eff.Sent.Role != chatlog.RoleUser {
		t.Fatalf("confirm effect = %+v", eff)
	}
	if len(sender.frames) != 1 || string(sender.frames[0]) != "Hi\n" {
		t.Fatalf("frames = %q", sender.frames)
	}
	if s.State() != StateConnected || s.Status() != StatusWaiting {
		t.Fatalf("after send state=%v status=%v", s.State(), s.Status())
	}

	eff = s.Receive([]byte("Hello!\n"))
	if !eff.Rearm || eff.Received == nil || eff.Received.Text != "Hello!" {
		t.Fatalf("receive effect = %+v", eff)
	}
	if s.Status() != StatusReady {
		t.Fatalf("status = %v, want ready", s.Status())
	}

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[0].Role != chatlog.RoleUser || msgs[0].Text != "Hi" || msgs[1].Role != chatlog.RoleAgent || msgs[1].Text != "Hello!" {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[0].Seq >= msgs[1].Seq {
		t.Fatalf("sequence not increasing: %d %d", msgs[0].Seq, msgs[1].Seq)
	}
	want := max(0, s.TotalHeight()-30)
	if s.ScrollOffset() != want {
		t.Fatalf("offset = %d, want bottom %d", s.ScrollOffset(), want)
	}
}

func TestReceiveRearmsOnEveryCompletion(t *testing.T) {
	s, _ := newTestSession(t, Options{})

	if eff := s.Receive([]byte("ignored\n")); eff.Rearm || eff.Received != nil {
		t.Fatalf("disconnected receive effect = %+v", eff)
	}

	s.Attach()
	for _, chunk := range [][]byte{nil, []byte("par"), {}, []byte("tial")} {
		eff := s.Receive(chunk)
		if !eff.Rearm {
			t.Fatalf("chunk %q did not request rearm", chunk)
		}
		if eff.Received != nil {
			t.Fatalf("unexpected message %+v", eff.Received)
		}
	}
	eff := s.Receive([]byte("\nnext"))
	if eff.Received == nil || eff.Received.Text != "partial" {
		t.Fatalf("effect = %+v", eff)
	}
}

func TestReceiveExtractsSecondLineOnNextCompletion(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	s.Attach()

	eff := s.Receive([]byte("one\ntwo\n"))
	if eff.Received == nil || eff.Received.Text != "one" {
		t.Fatalf("first = %+v", eff)
	}
	eff = s.Receive(nil)
	if eff.Received == nil || eff.Received.Text != "two" {
		t.Fatalf("second = %+v", eff)
	}
}

func TestComposeBlockedWhileWaiting(t *testing.T) {
	cases := []struct {
		name        string
		policy      ComposePolicy
		wantCompose bool
	}{
		{name: "block", policy: PolicyBlockWhileWaiting, wantCompose: false},
		{name: "allow", policy: PolicyAllowWhileWaiting, wantCompose: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newTestSession(t, Options{Policy: tc.policy})
			s.Attach()
			s.Input(Key(InputCompose))
			typeText(s, "ping")
			s.Input(Key(InputConfirm))
			if !s.Awaiting() {
				t.Fatal("expected awaiting reply")
			}

			s.Input(Key(InputCompose))
			if got := s.State() == StateComposing; got != tc.wantCompose {
				t.Fatalf("composing = %v, want %v", got, tc.wantCompose)
			}
		})
	}
}

func TestComposeCancelAndEmptyConfirmDoNotSend(t *testing.T) {
	s, sender := newTestSession(t, Options{})
	s.Attach()

	s.Input(Key(InputConfirm))
	typeText(s, "draft")
	s.Input(Key(InputCancel))
	if s.State() != StateConnected {
		t.Fatalf("state after cancel = %v", s.State())
	}

	s.Input(Key(InputCompose))
	if text, _ := s.Compose(); text != "" {
		t.Fatalf("compose buffer not reset: %q", text)
	}
	s.Input(Key(InputConfirm))
	if s.State() != StateConnected {
		t.Fatalf("state after empty confirm = %v", s.State())
	}
	if len(sender.frames) != 0 || len(s.Messages()) != 0 {
		t.Fatalf("frames=%q messages=%d", sender.frames, len(s.Messages()))
	}
}

func TestComposeBufferBounds(t *testing.T) {
	s, _ := newTestSession(t, Options{InputCapacity: 5})
	s.Attach()
	s.Input(Key(InputCompose))

	typeText(s, "abcdefg")
	text, cursor := s.Compose()
	if text != "abcd" || cursor != 4 {
		t.Fatalf("compose = %q cursor=%d, want abcd/4", text, cursor)
	}
	s.Input(KeyChar(0))
	s.Input(KeyChar('\n'))
	s.Input(Key(InputBackspace))
	s.Input(Key(InputBackspace))
	text, cursor = s.Compose()
	if text != "ab" || cursor != 2 {
		t.Fatalf("compose = %q cursor=%d, want ab/2", text, cursor)
	}
	for i := 0; i < 5; i++ {
		s.Input(Key(InputBackspace))
	}
	if text, _ := s.Compose(); text != "" {
		t.Fatalf("compose = %q", text)
	}
}

func TestSendFailureDetaches(t *testing.T) {
	sender := &recordingSender{err: errors.New("pipe closed")}
	s, _ := newTestSession(t, Options{Sender: sender})
	s.Attach()
	s.Input(Key(InputCompose))
	typeText(s, "hello")
	eff := s.Input(Key(InputConfirm))

	if eff.Sent == nil {
		t.Fatal("message should still be committed to the log")
	}
	if s.State() != StateDisconnected || s.Awaiting() {
		t.Fatalf("state=%v awaiting=%v", s.State(), s.Awaiting())
	}
	if len(s.Messages()) != 1 {
		t.Fatalf("messages = %d", len(s.Messages()))
	}
}

func TestNoSenderDetaches(t *testing.T) {
	s := New(Options{Logger: quietLogger(), Sender: nil})
	s.Attach()
	s.Input(Key(InputCompose))
	typeText(s, "x")
	s.Input(Key(InputConfirm))
	if s.State() != StateDisconnected {
		t.Fatalf("state = %v", s.State())
	}
}

func TestDetachClearsEndpointState(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	s.Attach()
	s.Receive([]byte("half a line"))
	s.Input(Key(InputCompose))
	typeText(s, "draft")

	eff := s.Detach()
	if !eff.Redraw {
		t.Fatalf("detach effect = %+v", eff)
	}
	if s.State() != StateDisconnected || s.Status() != StatusDisconnected {
		t.Fatalf("state=%v status=%v", s.State(), s.Status())
	}
	if eff := s.Detach(); eff.Redraw {
		t.Fatal("second detach should be a no-op")
	}

	s.Attach()
	eff = s.Receive([]byte("fresh\n"))
	if eff.Received == nil || eff.Received.Text != "fresh" {
		t.Fatalf("stale partial leaked into new connection: %+v", eff.Received)
	}
}

func TestScrollInputAndAutoScroll(t *testing.T) {
	metrics := layout.Metrics{WrapWidth: 10, LineHeight: 1, Gap: 1}
	s, _ := newTestSession(t, Options{Metrics: metrics, Viewport: 4, ScrollStep: 1})
	s.Attach()
	for i := 0; i < 5; i++ {
		s.Receive([]byte("line\n"))
	}
	if s.TotalHeight() != 10 {
		t.Fatalf("total = %d, want 10", s.TotalHeight())
	}
	if s.ScrollOffset() != 6 {
		t.Fatalf("offset = %d, want 6", s.ScrollOffset())
	}

	s.Input(Key(InputScrollUp))
	s.Input(Key(InputScrollUp))
	if s.ScrollOffset() != 4 {
		t.Fatalf("offset after scroll up = %d, want 4", s.ScrollOffset())
	}
	if eff := s.Input(Key(InputScrollDown)); !eff.Redraw {
		t.Fatal("scroll down should redraw")
	}
	s.Input(Key(InputScrollDown))
	if eff := s.Input(Key(InputScrollDown)); eff.Redraw {
		t.Fatal("scroll at bottom should not redraw")
	}

	s.Input(Key(InputScrollUp))
	s.Input(Key(InputScrollUp))
	s.Receive([]byte("newest\n"))
	if s.ScrollOffset() != s.TotalHeight()-4 {
		t.Fatalf("append did not jump to bottom: offset=%d total=%d", s.ScrollOffset(), s.TotalHeight())
	}
}

func TestScrollStepFollowsLineHeight(t *testing.T) {
	metrics := layout.Metrics{WrapWidth: 10, LineHeight: 1, Gap: 1}
	cases := []struct {
		name       string
		step       int
		lineHeight int
		want       int
	}{
		{name: "derived from text metrics", lineHeight: 1, want: 14},
		{name: "rederived after layout change", lineHeight: 4, want: 6},
		{name: "configured step kept", step: 5, lineHeight: 4, want: 11},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newTestSession(t, Options{Metrics: metrics, Viewport: 4, ScrollStep: tc.step})
			s.Attach()
			for i := 0; i < 10; i++ {
				s.Receive([]byte("line\n"))
			}
			if s.ScrollOffset() != 16 {
				t.Fatalf("offset = %d, want 16", s.ScrollOffset())
			}
			next := metrics
			next.LineHeight = tc.lineHeight
			s.SetLayout(next, 4)
			s.Input(Key(InputScrollUp))
			if s.ScrollOffset() != tc.want {
				t.Fatalf("offset after scroll up = %d, want %d", s.ScrollOffset(), tc.want)
			}
		})
	}
}

func TestSetLayoutRecomputesHeights(t *testing.T) {
	s, _ := newTestSession(t, Options{Metrics: layout.Metrics{WrapWidth: 5, LineHeight: 1}, Viewport: 100})
	s.Attach()
	s.Receive([]byte(strings.Repeat("x", 20) + "\n"))
	if s.TotalHeight() != 4 {
		t.Fatalf("total = %d, want 4", s.TotalHeight())
	}
	s.SetLayout(layout.Metrics{WrapWidth: 10, LineHeight: 1}, 100)
	if s.TotalHeight() != 2 {
		t.Fatalf("total after resize = %d, want 2", s.TotalHeight())
	}
	if lines := s.Messages()[0].Lines; len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
}

func TestFrameVisibleSlice(t *testing.T) {
	s, _ := newTestSession(t, Options{Metrics: layout.Metrics{WrapWidth: 20, LineHeight: 1}, Viewport: 2, ScrollStep: 1})
	s.Attach()
	for _, line := range []string{"a", "b", "c", "d"} {
		s.Receive([]byte(line + "\n"))
	}
	f := s.Frame()
	if f.Offset != 2 || len(f.Visible) != 2 {
		t.Fatalf("frame offset=%d visible=%+v", f.Offset, f.Visible)
	}
	if f.Visible[0].Text != "c" || f.Visible[0].Top != 0 || f.Visible[1].Text != "d" || f.Visible[1].Top != 1 {
		t.Fatalf("visible = %+v", f.Visible)
	}
	if f.Status != StatusReady || f.Messages != 4 {
		t.Fatalf("frame = %+v", f)
	}
}

func TestFindJumpsToMessage(t *testing.T) {
	s, _ := newTestSession(t, Options{Metrics: layout.Metrics{WrapWidth: 40, LineHeight: 1}, Viewport: 2})
	s.Attach()
	for _, line := range []string{"alpha", "bravo", "charlie", "delta", "echo"} {
		s.Receive([]byte(line + "\n"))
	}
	if !s.Find("brav") {
		t.Fatal("expected a match")
	}
	if s.ScrollOffset() != 1 {
		t.Fatalf("offset = %d, want 1", s.ScrollOffset())
	}
	if s.Find("qqq") {
		t.Fatal("unexpected match")
	}
}

func TestQuitFromAnyState(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	if eff := s.Input(Key(InputQuit)); !eff.Quit {
		t.Fatal("quit from disconnected")
	}
	s.Attach()
	s.Input(Key(InputCompose))
	if eff := s.Input(Key(InputQuit)); !eff.Quit {
		t.Fatal("quit from composing")
	}
}
