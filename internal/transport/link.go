package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"linechat/internal/logger"
)

const (
	DefaultReattachInterval = 2 * time.Second
	defaultEventBuffer      = 16
)

var (
	// ErrNotAttached 表示当前没有已建立的连接。
	ErrNotAttached = errors.New("transport: not attached")
	// ErrClosed 表示链路已关闭。
	ErrClosed = errors.New("transport: closed")
	// ErrDropped 表示当前连接因写失败被主动断开。
	ErrDropped = errors.New("transport: connection dropped")
)

// Adapter 是会话前端依赖的传输能力。
type Adapter interface {
	Events() <-chan Event
	Arm(gen uint64, maxLen int)
	Send(ctx context.Context, frame []byte) error
	Close() error
	Run(ctx context.Context) error
}

// Dialer 建立一条字节流连接。
type Dialer interface {
	Dial(ctx context.Context) (io.ReadWriteCloser, error)
}

// DialerFunc 允许用函数实现 Dialer。
type DialerFunc func(ctx context.Context) (io.ReadWriteCloser, error)

// Dial 实现 Dialer。
func (f DialerFunc) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	return f(ctx)
}

// Options 配置 Link。
type Options struct {
	Dialer           Dialer
	ReattachInterval time.Duration
	EventBuffer      int
	Logger           *logger.LogEntry
}

// Link 在 Dialer 之上实现断线重连与按需读取。
type Link struct {
	dialer   Dialer
	interval time.Duration
	events   chan Event
	logger   *logger.LogEntry

	mu      sync.Mutex
	gen     uint64
	conn    io.ReadWriteCloser
	arm     chan int
	closed  chan struct{}
	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

// NewLink 创建链路；调用 Run 之后才会拨号。
func NewLink(opts Options) *Link {
	interval := opts.ReattachInterval
	if interval <= 0 {
		interval = DefaultReattachInterval
	}
	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	entry := opts.Logger
	if entry == nil {
		entry = logger.Named("transport")
	}
	return &Link{
		dialer:   opts.Dialer,
		interval: interval,
		events:   make(chan Event, buffer),
		logger:   entry,
		done:     make(chan struct{}),
	}
}

// Events 返回事件通道；Run 返回时通道被关闭。
func (l *Link) Events() <-chan Event {
	return l.events
}

// Arm 允许代号为 gen 的连接执行一次最多 maxLen 字节的读取。
// 过期代号或重复的 Arm 被忽略。
func (l *Link) Arm(gen uint64, maxLen int) {
	if maxLen <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil || gen != l.gen || l.arm == nil {
		l.logger.WithField("gen", gen).Debug("ignoring stale arm")
		return
	}
	select {
	case l.arm <- maxLen:
	default:
	}
}

// Send 把一帧写入当前连接。零字节在写出前被剔除。
func (l *Link) Send(ctx context.Context, frame []byte) error {
	l.mu.Lock()
	conn, gen := l.conn, l.gen
	l.mu.Unlock()
	if conn == nil {
		return ErrNotAttached
	}
	payload := bytes.ReplaceAll(frame, []byte{0}, nil)
	if len(payload) == 0 {
		return nil
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	result := make(chan error, 1)
	go func() {
		_, err := conn.Write(payload)
		result <- err
	}()
	select {
	case err := <-result:
		if err != nil {
			l.dropConn(gen)
			return fmt.Errorf("write: %w", err)
		}
		return nil
	case <-ctx.Done():
		l.dropConn(gen)
		return ctx.Err()
	}
}

// Close 停止重连并关闭当前连接。
func (l *Link) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	l.mu.Lock()
	gen := l.gen
	l.mu.Unlock()
	l.dropConn(gen)
	return nil
}

// Run 拨号并维持连接，直到 ctx 结束或 Close 被调用。
func (l *Link) Run(ctx context.Context) error {
	defer close(l.events)
	if l.dialer == nil {
		return errors.New("transport: no dialer configured")
	}
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer stop()

	for {
		if l.stopped() {
			return ctx.Err()
		}
		conn, err := l.dialer.Dial(ctx)
		if err != nil {
			l.logger.WithError(err).Debug("dial failed")
			if !l.wait(ctx) {
				return ctx.Err()
			}
			continue
		}

		gen, arm, closed := l.attach(conn)
		l.logger.WithField("gen", gen).Info("transport attached")
		if !l.emit(ctx, Event{Kind: EventAttached, Gen: gen}) {
			l.dropConn(gen)
			return ctx.Err()
		}

		err = l.serve(ctx, conn, gen, arm, closed)
		l.dropConn(gen)
		l.logger.WithField("gen", gen).WithError(err).Info("transport detached")
		if !l.emit(ctx, Event{Kind: EventDetached, Gen: gen, Err: err}) {
			return ctx.Err()
		}
		if !l.wait(ctx) {
			return ctx.Err()
		}
	}
}

// serve 每收到一次 Arm 读取一次，直到连接出错或被 dropConn 断开。
func (l *Link) serve(ctx context.Context, conn io.ReadWriteCloser, gen uint64, arm <-chan int, closed <-chan struct{}) error {
	for {
		var maxLen int
		select {
		case maxLen = <-arm:
		case <-closed:
			return ErrDropped
		case <-l.done:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
		buf := make([]byte, maxLen)
		n, err := conn.Read(buf)
		if n > 0 || err == nil {
			if !l.emit(ctx, Event{Kind: EventChunk, Gen: gen, Data: buf[:n]}) {
				return ctx.Err()
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return fmt.Errorf("read: %w", err)
		}
	}
}

func (l *Link) attach(conn io.ReadWriteCloser) (uint64, chan int, chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.conn = conn
	l.arm = make(chan int, 1)
	l.closed = make(chan struct{})
	return l.gen, l.arm, l.closed
}

// dropConn 关闭代号为 gen 的连接并唤醒其 serve；代号已更新时不做任何事。
func (l *Link) dropConn(gen uint64) {
	l.mu.Lock()
	if l.gen != gen || l.conn == nil {
		l.mu.Unlock()
		return
	}
	conn := l.conn
	l.conn = nil
	l.arm = nil
	close(l.closed)
	l.closed = nil
	l.mu.Unlock()
	_ = conn.Close()
}

func (l *Link) emit(ctx context.Context, evt Event) bool {
	select {
	case l.events <- evt:
		return true
	case <-l.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (l *Link) wait(ctx context.Context) bool {
	timer := time.NewTimer(l.interval)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-l.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (l *Link) stopped() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}
