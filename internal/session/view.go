package session

import (
	"linechat/internal/chatlog"
)

// State 返回当前状态。
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status 返回状态指示：未连接、就绪或等待回复。
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// Awaiting 报告是否在等待回复。
func (s *Session) Awaiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaiting
}

// ScrollOffset 返回当前滚动偏移。
func (s *Session) ScrollOffset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Offset
}

// TotalHeight 返回消息流总渲染高度。
func (s *Session) TotalHeight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages.TotalHeight()
}

// Compose 返回输入缓冲内容与光标位置。
func (s *Session) Compose() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compose.String(), s.compose.cursor()
}

// Messages 返回全部消息的排版结果。
func (s *Session) Messages() []Rendered {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages.Messages()
	heights := s.messages.Heights()
	out := make([]Rendered, 0, len(msgs))
	for i, msg := range msgs {
		out = append(out, s.renderLocked(msg, heights[i]))
	}
	return out
}

// LastMessage 返回指定角色的最新消息。
func (s *Session) LastMessage(role chatlog.Role) (chatlog.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages.Last(role)
}

// Frame 返回当前视口的完整快照。
func (s *Session) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	heights := s.messages.Heights()
	f := Frame{
		ID:            s.id,
		State:         s.state,
		Status:        s.statusLocked(),
		Offset:        s.window.Offset,
		Viewport:      s.window.Viewport,
		TotalHeight:   s.messages.TotalHeight(),
		Messages:      s.messages.Len(),
		Compose:       s.compose.String(),
		Cursor:        s.compose.cursor(),
		InputCapacity: s.compose.capacity,
	}
	if s.awaiting {
		f.WaitingSince = s.waitingSince
	}
	for _, slot := range s.window.Visible(heights) {
		msg, ok := s.messages.At(slot.Index)
		if !ok {
			continue
		}
		f.Visible = append(f.Visible, Placed{
			Rendered: s.renderLocked(msg, slot.Height),
			Top:      slot.Top,
		})
	}
	return f
}

func (s *Session) statusLocked() Status {
	switch {
	case !s.state.attached():
		return StatusDisconnected
	case s.awaiting:
		return StatusWaiting
	default:
		return StatusReady
	}
}

func (s *Session) renderLocked(msg chatlog.Message, height int) Rendered {
	return Rendered{
		Seq:    msg.Seq,
		Role:   msg.Role,
		Text:   msg.Text,
		Lines:  s.metrics.Lines(msg.Text),
		Time:   msg.Time,
		Height: height,
	}
}
