// Package session 实现聊天会话引擎：连接/输入状态机、接收分帧、消息日志、排版与滚动。
//
// 所有可变状态都归 Session 所有。传输层回调与输入事件可能来自不同 goroutine，
// 因此公开方法均持有互斥锁；渲染层通过 Frame 轮询只读快照。
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"linechat/internal/chatlog"
	"linechat/internal/framer"
	"linechat/internal/layout"
	"linechat/internal/logger"
	"linechat/internal/scroll"

	"github.com/google/uuid"
)

const (
	DefaultInputCapacity = 256
	DefaultReadSize      = 64
	DefaultSendTimeout   = 5 * time.Second
	// DefaultViewport 对应 240 像素屏去掉标题栏与提示栏后的高度。
	DefaultViewport = 240 - 30
)

// ErrNoTransport 表示没有可用的出站通道。
var ErrNoTransport = errors.New("session: no transport attached")

// Sender 是出站方向的传输能力。
type Sender interface {
	Send(ctx context.Context, frame []byte) error
}

// SenderFunc 允许用函数实现 Sender。
type SenderFunc func(ctx context.Context, frame []byte) error

// Send 实现 Sender。
func (f SenderFunc) Send(ctx context.Context, frame []byte) error {
	return f(ctx, frame)
}

// Options 控制会话初始化。零值字段使用默认值。
type Options struct {
	ID              string
	ReceiveCapacity int
	InputCapacity   int
	ReadSize        int
	Policy          ComposePolicy
	Metrics         layout.Metrics
	Viewport        int
	ScrollStep      int
	Retention       chatlog.Retention
	Sender          Sender
	SendTimeout     time.Duration
	Logger          *logger.LogEntry
	Clock           func() time.Time
}

// Session 是单个会话的全部状态。
type Session struct {
	mu sync.Mutex

	id           string
	state        State
	awaiting     bool
	waitingSince time.Time

	framer   *framer.LineFramer
	messages *chatlog.Log
	window   scroll.Window
	compose  composeBuffer
	metrics  layout.Metrics
	// fixedStep 为真时步长来自配置，不随排版参数变化。
	fixedStep bool

	policy      ComposePolicy
	readSize    int
	sender      Sender
	sendTimeout time.Duration
	logger      *logger.LogEntry
	clock       func() time.Time
}

// New 创建处于 Disconnected 状态的会话。
func New(opts Options) *Session {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	capacity := opts.ReceiveCapacity
	if capacity <= 0 {
		capacity = framer.DefaultCapacity
	}
	inputCapacity := opts.InputCapacity
	if inputCapacity <= 0 {
		inputCapacity = DefaultInputCapacity
	}
	readSize := opts.ReadSize
	if readSize <= 0 {
		readSize = DefaultReadSize
	}
	metrics := opts.Metrics
	if metrics == (layout.Metrics{}) {
		metrics = layout.DefaultMetrics()
	}
	viewport := opts.Viewport
	if viewport <= 0 {
		viewport = DefaultViewport
	}
	step := opts.ScrollStep
	if step <= 0 {
		step = scroll.StepFor(metrics.LineHeight)
	}
	sendTimeout := opts.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	entry := opts.Logger
	if entry == nil {
		entry = logger.Named("session")
	}

	s := &Session{
		id:          id,
		state:       StateDisconnected,
		framer:      framer.New(capacity),
		window:      scroll.New(viewport, step),
		fixedStep:   opts.ScrollStep > 0,
		compose:     newComposeBuffer(inputCapacity),
		metrics:     metrics,
		policy:      opts.Policy,
		readSize:    readSize,
		sender:      opts.Sender,
		sendTimeout: sendTimeout,
		logger:      entry.WithField("session_id", id),
		clock:       clock,
	}
	s.messages = chatlog.New(chatlog.Options{
		Retention: opts.Retention,
		Measure:   s.measure,
		Clock:     clock,
	})
	return s
}

// ID 返回会话标识。
func (s *Session) ID() string {
	return s.id
}

// SetSender 替换出站通道。
func (s *Session) SetSender(sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sender = sender
}

// SetLayout 更新排版参数与视口高度，重算高度缓存。
func (s *Session) SetLayout(metrics layout.Metrics, viewport int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = metrics
	if !s.fixedStep {
		s.window.Step = scroll.StepFor(metrics.LineHeight)
	}
	s.messages.SetMeasure(s.measure)
	s.window.SetViewport(viewport, s.messages.TotalHeight())
}

// SetScrollStep 更新手动滚动步长。
func (s *Session) SetScrollStep(step int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if step > 0 {
		s.window.Step = step
		s.fixedStep = true
	}
}

// Close 在进程退出时释放全部消息。
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages.Clear()
	s.framer.Reset()
	s.compose.reset()
}

// Attach 处理传输端点就绪：进入 Connected 并要求首次读取。
func (s *Session) Attach() Effect {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.attached() {
		s.state = StateConnected
		s.logger.Info("transport attached")
	}
	s.framer.Reset()
	return Effect{Rearm: true, ReadSize: s.readSize, Redraw: true}
}

// Detach 处理传输断开：清空端点相关状态并回到 Disconnected。
func (s *Session) Detach() Effect {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.attached() {
		return Effect{}
	}
	s.detachLocked("transport detached")
	return Effect{Redraw: true}
}

// Receive 处理一次读取完成。已连接时总是要求再次读取（包括零长度完成）。
func (s *Session) Receive(chunk []byte) Effect {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.attached() {
		return Effect{}
	}
	effect := Effect{Rearm: true, ReadSize: s.readSize}

	before := s.framer.Dropped()
	line, ok := s.framer.Feed(chunk)
	if dropped := s.framer.Dropped() - before; dropped > 0 {
		s.logger.WithField("dropped", dropped).Debug("receive buffer full; discarding bytes")
	}
	if !ok {
		return effect
	}

	msg := s.messages.Append(line, chatlog.RoleAgent)
	s.awaiting = false
	s.window.ToBottom(s.messages.TotalHeight())
	s.logger.WithField("seq", msg.Seq).WithField("bytes", len(line)).Debug("received message")
	effect.Redraw = true
	effect.Received = &msg
	return effect
}

// Input 处理一次离散输入事件。
func (s *Session) Input(in Input) Effect {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.Kind == InputQuit {
		return Effect{Quit: true}
	}
	switch s.state {
	case StateConnected:
		return s.inputConnected(in)
	case StateComposing:
		return s.inputComposing(in)
	default:
		return Effect{}
	}
}

// Find 模糊查找消息并把最佳匹配滚动到视口顶部。
func (s *Session) Find(query string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	hits := s.messages.Find(query)
	if len(hits) == 0 {
		return false
	}
	top := scroll.TopOf(s.messages.Heights(), hits[0])
	s.window.JumpTo(top, s.messages.TotalHeight())
	return true
}

func (s *Session) inputConnected(in Input) Effect {
	total := s.messages.TotalHeight()
	switch in.Kind {
	case InputCompose, InputConfirm:
		if s.awaiting && s.policy == PolicyBlockWhileWaiting {
			return Effect{}
		}
		s.compose.reset()
		s.state = StateComposing
		return Effect{Redraw: true}
	case InputScrollUp:
		before := s.window.Offset
		s.window.Up(total)
		return Effect{Redraw: s.window.Offset != before}
	case InputScrollDown:
		before := s.window.Offset
		s.window.Down(total)
		return Effect{Redraw: s.window.Offset != before}
	}
	return Effect{}
}

func (s *Session) inputComposing(in Input) Effect {
	switch in.Kind {
	case InputKeyChar:
		return Effect{Redraw: s.compose.insert(in.Char)}
	case InputBackspace:
		return Effect{Redraw: s.compose.backspace()}
	case InputCancel:
		s.compose.reset()
		s.state = StateConnected
		return Effect{Redraw: true}
	case InputConfirm:
		text := s.compose.String()
		s.compose.reset()
		s.state = StateConnected
		if text == "" {
			return Effect{Redraw: true}
		}
		return s.commitLocked(text)
	}
	return Effect{}
}

// commitLocked 追加用户消息并同步发送；发送失败视为传输瞬断。
func (s *Session) commitLocked(text string) Effect {
	msg := s.messages.Append(text, chatlog.RoleUser)
	s.window.ToBottom(s.messages.TotalHeight())

	if err := s.sendLocked(text); err != nil {
		s.logger.WithField("seq", msg.Seq).Warnf("send failed: %v", err)
		s.detachLocked("send failed")
		return Effect{Redraw: true, Sent: &msg}
	}
	s.awaiting = true
	s.waitingSince = s.clock()
	s.logger.WithField("seq", msg.Seq).WithField("bytes", len(text)).Debug("sent message")
	return Effect{Redraw: true, Sent: &msg}
}

func (s *Session) sendLocked(text string) error {
	if s.sender == nil {
		return ErrNoTransport
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
	defer cancel()
	if err := s.sender.Send(ctx, framer.Encode(text)); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}
	return nil
}

func (s *Session) detachLocked(reason string) {
	s.state = StateDisconnected
	s.awaiting = false
	s.compose.reset()
	s.framer.Reset()
	s.logger.WithField("reason", reason).Info("session disconnected")
}

func (s *Session) measure(msg chatlog.Message) int {
	return s.metrics.Height(msg.Text)
}
