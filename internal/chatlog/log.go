// Package chatlog 保存会话消息：只追加、按序号有序，并维护渲染高度缓存。
package chatlog

import (
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
)

// Role 标识消息方向。
type Role int

const (
	RoleUser Role = iota + 1
	RoleAgent
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAgent:
		return "agent"
	default:
		return "unknown"
	}
}

// Message 创建后不可变。
type Message struct {
	Seq  uint64
	Role Role
	Text string
	Time time.Time
}

// Measure 计算单条消息的渲染高度。
type Measure func(Message) int

// Retention 限制日志规模，字段为 0 表示不限制。
type Retention struct {
	MaxMessages int
	MaxBytes    int
}

func (r Retention) unbounded() bool {
	return r.MaxMessages <= 0 && r.MaxBytes <= 0
}

// Options 控制日志初始化。
type Options struct {
	Retention Retention
	Measure   Measure
	Clock     func() time.Time
}

// Log 是消息的唯一所有者，对外只返回副本。
type Log struct {
	messages  []Message
	heights   []int
	total     int
	bytes     int
	nextSeq   uint64
	measure   Measure
	retention Retention
	clock     func() time.Time
}

// New 创建空日志。
func New(opts Options) *Log {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Log{
		nextSeq:   1,
		measure:   opts.Measure,
		retention: opts.Retention,
		clock:     clock,
	}
}

// Append 复制 text 生成新消息并追加到末尾，同时按保留策略淘汰最旧的消息。
func (l *Log) Append(text string, role Role) Message {
	msg := Message{
		Seq:  l.nextSeq,
		Role: role,
		Text: strings.Clone(text),
		Time: l.clock(),
	}
	l.nextSeq++
	l.messages = append(l.messages, msg)
	h := l.heightOf(msg)
	l.heights = append(l.heights, h)
	l.total += h
	l.bytes += len(msg.Text)
	l.enforceRetention()
	return msg
}

// Len 返回当前保留的消息数。
func (l *Log) Len() int {
	return len(l.messages)
}

// Messages 返回消息副本，调用方修改不会影响日志。
func (l *Log) Messages() []Message {
	return append([]Message(nil), l.messages...)
}

// At 返回第 i 条消息。
func (l *Log) At(i int) (Message, bool) {
	if i < 0 || i >= len(l.messages) {
		return Message{}, false
	}
	return l.messages[i], true
}

// Last 返回指定角色的最新消息。
func (l *Log) Last(role Role) (Message, bool) {
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].Role == role {
			return l.messages[i], true
		}
	}
	return Message{}, false
}

// Heights 返回与 Messages 一一对应的渲染高度副本。
func (l *Log) Heights() []int {
	return append([]int(nil), l.heights...)
}

// TotalHeight 返回缓存的总渲染高度。
func (l *Log) TotalHeight() int {
	return l.total
}

// Bytes 返回所有消息文本的总字节数。
func (l *Log) Bytes() int {
	return l.bytes
}

// SetMeasure 替换高度计算函数（例如视口宽度变化），并全量重算缓存。
func (l *Log) SetMeasure(measure Measure) {
	l.measure = measure
	l.recompute()
}

// Clear 释放所有消息。序号继续递增，不会复用。
func (l *Log) Clear() {
	l.messages = nil
	l.heights = nil
	l.total = 0
	l.bytes = 0
}

// Find 返回文本模糊匹配 query 的消息下标，最佳匹配在前。
func (l *Log) Find(query string) []int {
	query = strings.TrimSpace(query)
	if query == "" || len(l.messages) == 0 {
		return nil
	}
	texts := make([]string, len(l.messages))
	for i, msg := range l.messages {
		texts[i] = strings.ToLower(msg.Text)
	}
	matches := fuzzy.Find(strings.ToLower(query), texts)
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].Index > matches[j].Index
		}
		return matches[i].Score > matches[j].Score
	})
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Index)
	}
	return out
}

func (l *Log) heightOf(msg Message) int {
	if l.measure == nil {
		return 0
	}
	return l.measure(msg)
}

func (l *Log) recompute() {
	l.total = 0
	l.heights = l.heights[:0]
	for _, msg := range l.messages {
		h := l.heightOf(msg)
		l.heights = append(l.heights, h)
		l.total += h
	}
}

func (l *Log) enforceRetention() {
	if l.retention.unbounded() {
		return
	}
	drop := 0
	count := len(l.messages)
	size := l.bytes
	for drop < len(l.messages)-1 {
		overCount := l.retention.MaxMessages > 0 && count > l.retention.MaxMessages
		overBytes := l.retention.MaxBytes > 0 && size > l.retention.MaxBytes
		if !overCount && !overBytes {
			break
		}
		size -= len(l.messages[drop].Text)
		l.total -= l.heights[drop]
		count--
		drop++
	}
	if drop == 0 {
		return
	}
	l.messages = append([]Message(nil), l.messages[drop:]...)
	l.heights = append([]int(nil), l.heights[drop:]...)
	l.bytes = size
}
