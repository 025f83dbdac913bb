// Package transport 提供面向字节流的链路适配器：WebSocket、串口与伪终端。
//
// 每条连接只有一个读 goroutine，且只在被 Arm 之后读取一次；
// 事件携带连接代号（generation），过期代号的 Arm 会被忽略。
package transport

import "fmt"

// EventKind 枚举链路事件。
type EventKind int

const (
	EventAttached EventKind = iota + 1
	EventDetached
	EventChunk
)

func (k EventKind) String() string {
	switch k {
	case EventAttached:
		return "attached"
	case EventDetached:
		return "detached"
	case EventChunk:
		return "chunk"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event 是链路层发往前端的事件。Data 仅对 EventChunk 有意义，可以为空。
type Event struct {
	Kind EventKind
	Gen  uint64
	Data []byte
	Err  error
}
