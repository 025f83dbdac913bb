package tui

import (
	"linechat/internal/session"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Quit       key.Binding
	ForceQuit  key.Binding
	Compose    key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Find       key.Binding
	Copy       key.Binding
	Send       key.Binding
	Cancel     key.Binding
	Backspace  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:       key.NewBinding(key.WithKeys("esc", "q"), key.WithHelp("Esc", "Quit")),
		ForceQuit:  key.NewBinding(key.WithKeys("ctrl+c")),
		Compose:    key.NewBinding(key.WithKeys("enter", "i"), key.WithHelp("Enter", "Type")),
		ScrollUp:   key.NewBinding(key.WithKeys("up", "k", "pgup"), key.WithHelp("↑↓", "Scroll")),
		ScrollDown: key.NewBinding(key.WithKeys("down", "j", "pgdown")),
		Find:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "Find")),
		Copy:       key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("^Y", "Copy")),
		Send:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "Send")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "Cancel")),
		Backspace:  key.NewBinding(key.WithKeys("backspace", "ctrl+h"), key.WithHelp("Bksp", "Delete")),
	}
}

// helpFor 返回当前状态下的提示栏按键。
func (k keyMap) helpFor(state session.State) []key.Binding {
	switch state {
	case session.StateComposing:
		return []key.Binding{k.Send, k.Cancel, k.Backspace}
	case session.StateConnected:
		return []key.Binding{k.Compose, k.ScrollUp, k.Find, k.Copy, k.Quit}
	default:
		return []key.Binding{k.Quit}
	}
}

// inputFor 把按键翻译为会话输入事件；返回 false 表示该键与会话无关。
func (k keyMap) inputFor(state session.State, msg tea.KeyMsg) ([]session.Input, bool) {
	if key.Matches(msg, k.ForceQuit) {
		return []session.Input{session.Key(session.InputQuit)}, true
	}
	switch state {
	case session.StateComposing:
		switch {
		case key.Matches(msg, k.Send):
			return []session.Input{session.Key(session.InputConfirm)}, true
		case key.Matches(msg, k.Cancel):
			return []session.Input{session.Key(session.InputCancel)}, true
		case key.Matches(msg, k.Backspace):
			return []session.Input{session.Key(session.InputBackspace)}, true
		case msg.Type == tea.KeySpace:
			return []session.Input{session.KeyChar(' ')}, true
		case msg.Type == tea.KeyRunes:
			return charInputs(msg.Runes), true
		}
	case session.StateConnected:
		switch {
		case key.Matches(msg, k.Compose):
			return []session.Input{session.Key(session.InputCompose)}, true
		case key.Matches(msg, k.ScrollUp):
			return []session.Input{session.Key(session.InputScrollUp)}, true
		case key.Matches(msg, k.ScrollDown):
			return []session.Input{session.Key(session.InputScrollDown)}, true
		case key.Matches(msg, k.Quit):
			return []session.Input{session.Key(session.InputQuit)}, true
		}
	default:
		if key.Matches(msg, k.Quit) {
			return []session.Input{session.Key(session.InputQuit)}, true
		}
	}
	return nil, false
}

// charInputs 只接受可打印 ASCII，其余字符被丢弃。
func charInputs(runes []rune) []session.Input {
	out := make([]session.Input, 0, len(runes))
	for _, r := range runes {
		if r < 0x20 || r > 0x7e {
			continue
		}
		out = append(out, session.KeyChar(byte(r)))
	}
	return out
}
