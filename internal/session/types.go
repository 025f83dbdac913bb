package session

import (
	"time"

	"linechat/internal/chatlog"
)

// State 是连接/输入状态机的状态。
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateComposing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateComposing:
		return "composing"
	default:
		return "unknown"
	}
}

// attached 表示存在可用的传输端点。
func (s State) attached() bool {
	return s == StateConnected || s == StateComposing
}

// Status 是展示给用户的状态指示。
type Status int

const (
	StatusDisconnected Status = iota
	StatusReady
	StatusWaiting
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusReady:
		return "ready"
	case StatusWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// ComposePolicy 决定等待回复期间是否允许再次输入。
type ComposePolicy int

const (
	// PolicyBlockWhileWaiting 等待回复时拒绝进入输入态。
	PolicyBlockWhileWaiting ComposePolicy = iota
	// PolicyAllowWhileWaiting 等待回复时仍允许输入。
	PolicyAllowWhileWaiting
)

// InputKind 枚举离散输入事件。
type InputKind int

const (
	InputKeyChar InputKind = iota + 1
	InputBackspace
	InputConfirm
	InputCancel
	InputScrollUp
	InputScrollDown
	InputCompose
	InputQuit
)

// Input 是一次输入事件；Char 仅对 InputKeyChar 有意义。
type Input struct {
	Kind InputKind
	Char byte
}

// KeyChar 构造字符输入事件。
func KeyChar(c byte) Input {
	return Input{Kind: InputKeyChar, Char: c}
}

// Key 构造无参数的输入事件。
func Key(kind InputKind) Input {
	return Input{Kind: kind}
}

// Effect 描述一次状态迁移后调用方需要执行的动作。
type Effect struct {
	// Rearm 要求传输层发起下一次读取，ReadSize 为读取上限。
	Rearm    bool
	ReadSize int
	Redraw   bool
	Quit     bool
	// Received 为本次抽取出的入站消息。
	Received *chatlog.Message
	// Sent 为本次提交并发送的出站消息。
	Sent *chatlog.Message
}

// Rendered 是一条排版后的消息。
type Rendered struct {
	Seq    uint64
	Role   chatlog.Role
	Text   string
	Lines  []string
	Time   time.Time
	Height int
}

// Placed 是视口内的一条消息，Top 相对视口顶部。
type Placed struct {
	Rendered
	Top int
}

// Frame 是供渲染层轮询的只读快照。
type Frame struct {
	ID            string
	State         State
	Status        Status
	Offset        int
	Viewport      int
	TotalHeight   int
	Messages      int
	Visible       []Placed
	Compose       string
	Cursor        int
	InputCapacity int
	WaitingSince  time.Time
}
