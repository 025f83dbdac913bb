package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"linechat/internal/session"
	"linechat/internal/transport"
	"linechat/internal/tui/render"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/sirupsen/logrus"
)

// fakeLink 记录 Arm 与 Send 调用，事件由测试直接投递给 Model。
type fakeLink struct {
	mu     sync.Mutex
	arms   [][2]uint64
	frames []string
	events chan transport.Event
}

func newFakeLink() *fakeLink {
	return &fakeLink{events: make(chan transport.Event, 4)}
}

func (f *fakeLink) Events() <-chan transport.Event { return f.events }

func (f *fakeLink) Arm(gen uint64, maxLen int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.arms = append(f.arms, [2]uint64{gen, uint64(maxLen)})
}

func (f *fakeLink) Send(_ context.Context, frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, string(frame))
	return nil
}

func (f *fakeLink) Close() error { return nil }

func (f *fakeLink) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func quietEntry() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestModel(t *testing.T) (*Model, *fakeLink, *[]string) {
	t.Helper()
	link := newFakeLink()
	sess := session.New(session.Options{Sender: link, Logger: quietEntry()})
	var copied []string
	m := New(Options{
		Session:  sess,
		Link:     link,
		Renderer: render.NewText(render.Options{}),
		Target:   "ws://127.0.0.1:8765/link",
		Logger:   quietEntry(),
		CopyText: func(s string) error { copied = append(copied, s); return nil },
		Clock:    func() time.Time { return time.Unix(0, 0) },
	})
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	return m, link, &copied
}

func typeKeys(m *Model, text string) {
	for _, r := range text {
		if r == ' ' {
			m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
			continue
		}
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func plainView(m *Model) string {
	return ansi.Strip(m.View())
}

func TestModelConnectingScreen(t *testing.T) {
	m, _, _ := newTestModel(t)
	view := plainView(m)
	if !strings.Contains(view, "Connecting...") || !strings.Contains(view, "ws://127.0.0.1:8765/link") {
		t.Fatalf("connecting view:\n%s", view)
	}
	if lines := strings.Count(view, "\n") + 1; lines != 10 {
		t.Fatalf("view has %d lines, want 10", lines)
	}
}

func TestModelChatRoundTrip(t *testing.T) {
	m, link, _ := newTestModel(t)

	m.Update(linkEventMsg{Event: transport.Event{Kind: transport.EventAttached, Gen: 3}})
	if len(link.arms) != 1 || link.arms[0] != [2]uint64{3, session.DefaultReadSize} {
		t.Fatalf("arms after attach = %v", link.arms)
	}
	if !strings.Contains(plainView(m), "linechat - Ready") {
		t.Fatalf("title should say Ready:\n%s", plainView(m))
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	typeKeys(m, "Hi there")
	if !strings.Contains(plainView(m), "Type your message:") {
		t.Fatalf("compose screen not shown:\n%s", plainView(m))
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(link.frames) != 1 || link.frames[0] != "Hi there\n" {
		t.Fatalf("frames = %q", link.frames)
	}
	if !strings.Contains(plainView(m), "Waiting...") {
		t.Fatalf("title should say Waiting:\n%s", plainView(m))
	}

	m.Update(linkEventMsg{Event: transport.Event{Kind: transport.EventChunk, Gen: 3, Data: []byte("Hello!\n")}})
	view := plainView(m)
	if !strings.Contains(view, "you> Hi there") || !strings.Contains(view, "bot> Hello!") {
		t.Fatalf("conversation view:\n%s", view)
	}
	if len(link.arms) != 2 {
		t.Fatalf("chunk should re-arm, arms = %v", link.arms)
	}
}

func TestModelIgnoresStaleGeneration(t *testing.T) {
	m, link, _ := newTestModel(t)
	m.Update(linkEventMsg{Event: transport.Event{Kind: transport.EventAttached, Gen: 2}})
	m.Update(linkEventMsg{Event: transport.Event{Kind: transport.EventChunk, Gen: 1, Data: []byte("old\n")}})
	m.Update(linkEventMsg{Event: transport.Event{Kind: transport.EventDetached, Gen: 1}})
	if m.sess.State() != session.StateConnected {
		t.Fatalf("stale detach changed state to %v", m.sess.State())
	}
	if len(m.sess.Messages()) != 0 || len(link.arms) != 1 {
		t.Fatalf("stale chunk was consumed: messages=%d arms=%v", len(m.sess.Messages()), link.arms)
	}

	m.Update(linkEventMsg{Event: transport.Event{Kind: transport.EventDetached, Gen: 2, Err: errors.New("eof")}})
	if m.sess.State() != session.StateDisconnected {
		t.Fatalf("state = %v", m.sess.State())
	}
}

func TestModelCopyAndFind(t *testing.T) {
	m, _, copied := newTestModel(t)
	m.Update(linkEventMsg{Event: transport.Event{Kind: transport.EventAttached, Gen: 1}})

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	if !strings.Contains(plainView(m), "nothing to copy") {
		t.Fatalf("expected notice:\n%s", plainView(m))
	}

	for _, line := range []string{"alpha\n", "bravo\n", "charlie\n"} {
		m.Update(linkEventMsg{Event: transport.Event{Kind: transport.EventChunk, Gen: 1, Data: []byte(line)}})
	}
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	if len(*copied) != 1 || (*copied)[0] != "charlie" {
		t.Fatalf("copied = %q", *copied)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	if !m.finding {
		t.Fatal("find prompt should open")
	}
	typeKeys(m, "zzz")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.finding || !strings.Contains(plainView(m), "no match for zzz") {
		t.Fatalf("find notice missing:\n%s", plainView(m))
	}
}

func TestModelQuitKeys(t *testing.T) {
	m, _, _ := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("esc should quit while disconnected")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("unexpected command result %T", cmd())
	}
}

func TestCharInputsFiltersNonASCII(t *testing.T) {
	got := charInputs([]rune("aé\nb"))
	if len(got) != 2 || got[0].Char != 'a' || got[1].Char != 'b' {
		t.Fatalf("charInputs = %+v", got)
	}
}
