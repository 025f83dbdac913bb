// Package tui 是基于 Bubble Tea 的交互前端：把链路事件与按键交给会话，并按快照重绘。
package tui

import (
	"strings"
	"time"

	"linechat/internal/chatlog"
	"linechat/internal/logger"
	"linechat/internal/session"
	"linechat/internal/transport"
	"linechat/internal/tui/render"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	appTitle = "linechat"
	// chromeRows 为标题栏与提示栏各占一行。
	chromeRows = 2
)

type Options struct {
	Session  *session.Session
	Link     transport.Adapter
	Renderer render.Renderer
	// Target 显示在连接页上，通常是链路地址或设备路径。
	Target string
	Logger *logger.LogEntry
	// CopyText 写入剪贴板，默认使用系统剪贴板。
	CopyText func(string) error
	Clock    func() time.Time
}

type linkEventMsg struct {
	Event transport.Event
}

type linkClosedMsg struct{}

type Model struct {
	sess     *session.Session
	link     transport.Adapter
	renderer render.Renderer
	target   string
	logger   *logger.LogEntry
	copyText func(string) error

	keys    keyMap
	status  *StatusIndicatorWidget
	spin    spinner.Model
	find    textinput.Model
	finding bool
	notice  string

	gen    uint64
	width  int
	height int
}

func New(opts Options) *Model {
	r := opts.Renderer
	if r == nil {
		r = render.NewBubble(render.Options{})
	}
	entry := opts.Logger
	if entry == nil {
		entry = logger.Named("tui")
	}
	copyText := opts.CopyText
	if copyText == nil {
		copyText = clipboard.WriteAll
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	ti := textinput.New()
	ti.Prompt = "find: "
	ti.CharLimit = 64

	return &Model{
		sess:     opts.Session,
		link:     opts.Link,
		renderer: r,
		target:   opts.Target,
		logger:   entry,
		copyText: copyText,
		keys:     defaultKeyMap(),
		status:   NewStatusIndicatorWidget(appTitle, opts.Clock),
		spin:     sp,
		find:     ti,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.listenLink(), m.spin.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m.finish(cmds...)
	case linkEventMsg:
		cmds = append(cmds, m.handleLinkEvent(msg.Event), m.listenLink())
		return m.finish(cmds...)
	case linkClosedMsg:
		m.logger.Info("link closed")
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
		return m.finish(cmds...)
	case tea.KeyMsg:
		if m.finding {
			cmds = append(cmds, m.handleFindKey(msg))
			return m.finish(cmds...)
		}
		cmds = append(cmds, m.handleKey(msg))
		return m.finish(cmds...)
	}
	return m.finish(cmds...)
}

func (m *Model) finish(cmds ...tea.Cmd) (tea.Model, tea.Cmd) {
	f := m.sess.Frame()
	m.status.SetState(indicatorState(f.Status), f.WaitingSince)
	m.status.SetSpinnerFrame(m.spin.View())
	return m, tea.Batch(cmds...)
}

func (m *Model) listenLink() tea.Cmd {
	if m.link == nil {
		return nil
	}
	ch := m.link.Events()
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return linkClosedMsg{}
		}
		return linkEventMsg{Event: evt}
	}
}

func (m *Model) handleLinkEvent(evt transport.Event) tea.Cmd {
	var eff session.Effect
	switch evt.Kind {
	case transport.EventAttached:
		m.gen = evt.Gen
		eff = m.sess.Attach()
		m.notice = ""
	case transport.EventDetached:
		if evt.Gen != m.gen {
			return nil
		}
		eff = m.sess.Detach()
		if evt.Err != nil {
			m.logger.WithField("gen", evt.Gen).WithError(evt.Err).Debug("link detached")
		}
	case transport.EventChunk:
		if evt.Gen != m.gen {
			return nil
		}
		eff = m.sess.Receive(evt.Data)
	}
	return m.apply(eff)
}

// apply 执行会话迁移产生的副作用。
func (m *Model) apply(eff session.Effect) tea.Cmd {
	if eff.Rearm && m.link != nil {
		m.link.Arm(m.gen, eff.ReadSize)
	}
	if eff.Quit {
		return tea.Quit
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	state := m.sess.State()
	if state == session.StateConnected {
		switch {
		case key.Matches(msg, m.keys.Find):
			m.finding = true
			m.find.SetValue("")
			m.notice = ""
			return m.find.Focus()
		case key.Matches(msg, m.keys.Copy):
			m.copyLastReply()
			return nil
		}
	}
	inputs, ok := m.keys.inputFor(state, msg)
	if !ok {
		return nil
	}
	m.notice = ""
	var cmds []tea.Cmd
	for _, in := range inputs {
		cmds = append(cmds, m.apply(m.sess.Input(in)))
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleFindKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyCtrlC:
		return tea.Quit
	case tea.KeyEsc:
		m.finding = false
		m.find.Blur()
		return nil
	case tea.KeyEnter:
		query := strings.TrimSpace(m.find.Value())
		m.finding = false
		m.find.Blur()
		if query != "" && !m.sess.Find(query) {
			m.notice = "no match for " + query
		}
		return nil
	}
	var cmd tea.Cmd
	m.find, cmd = m.find.Update(msg)
	return cmd
}

func (m *Model) copyLastReply() {
	msg, ok := m.sess.LastMessage(chatlog.RoleAgent)
	if !ok {
		m.notice = "nothing to copy"
		return
	}
	if err := m.copyText(msg.Text); err != nil {
		m.logger.WithError(err).Warn("copy to clipboard failed")
		m.notice = "copy failed: " + err.Error()
		return
	}
	m.notice = "copied reply to clipboard"
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.find.Width = max(1, width-len(m.find.Prompt)-1)
	m.sess.SetLayout(m.renderer.Metrics(width), m.bodyHeight())
}

func (m *Model) bodyHeight() int {
	return max(1, m.height-chromeRows)
}

func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	f := m.sess.Frame()
	area := render.Rect{Width: m.width, Height: m.bodyHeight()}

	buf := render.Buffer{}
	m.status.Render(render.Rect{Width: m.width, Height: 1}, &buf)
	if len(buf.Lines) == 0 {
		buf.WriteLine(render.Line{})
	}
	switch f.State {
	case session.StateComposing:
		render.Compose(f, area, &buf)
	case session.StateConnected:
		m.renderer.Conversation(f, area, &buf)
	default:
		render.Connecting(m.target, area, &buf)
	}
	buf.WriteLine(m.footer(f.State))
	return buf.String()
}

var (
	footerKeyStyle  = lipgloss.NewStyle().Bold(true)
	footerDescStyle = lipgloss.NewStyle().Faint(true)
	noticeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func (m *Model) footer(state session.State) render.Line {
	if m.finding {
		return render.Plain(m.find.View())
	}
	if m.notice != "" {
		return render.Styled(m.notice, noticeStyle)
	}
	var spans []render.Span
	for i, b := range m.keys.helpFor(state) {
		if i > 0 {
			spans = append(spans, render.Span{Text: " "})
		}
		h := b.Help()
		spans = append(spans,
			render.Span{Text: h.Key, Style: footerKeyStyle},
			render.Span{Text: "=" + h.Desc, Style: footerDescStyle},
		)
	}
	return render.Line{Spans: clampSpans(spans, m.width)}
}
