package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"linechat/internal/framer"
	"linechat/internal/logger"
)

const (
	defaultReplyTimeout = 60 * time.Second
	readChunk           = 256
)

// BridgeOptions 配置 Bridge。
type BridgeOptions struct {
	Responder Responder
	// MaxReply 是单条回复的最大字节数（不含换行），为零或超过 ReceiveCap-2 时取 ReceiveCap-2。
	MaxReply int
	// ReceiveCap 是客户端接收缓冲容量，默认 framer.DefaultCapacity。
	ReceiveCap     int
	ReplyTimeout   time.Duration
	Logger         *logger.LogEntry
	ExchangeLogger logger.ExchangeLogger
}

// Bridge 在一条字节流上逐行应答。
type Bridge struct {
	responder Responder
	maxReply  int
	timeout   time.Duration
	logger    *logger.LogEntry
	exchange  logger.ExchangeLogger
}

func NewBridge(opts BridgeOptions) *Bridge {
	responder := opts.Responder
	if responder == nil {
		responder = EchoResponder{}
	}
	recvCap := opts.ReceiveCap
	if recvCap <= 0 {
		recvCap = framer.DefaultCapacity
	}
	maxReply := opts.MaxReply
	if limit := replyLimit(recvCap); maxReply <= 0 || maxReply > limit {
		maxReply = limit
	}
	timeout := opts.ReplyTimeout
	if timeout <= 0 {
		timeout = defaultReplyTimeout
	}
	entry := opts.Logger
	if entry == nil {
		entry = logger.Named("host")
	}
	exchange := opts.ExchangeLogger
	if exchange == nil {
		exchange = logger.NoopExchangeLogger{}
	}
	return &Bridge{
		responder: responder,
		maxReply:  maxReply,
		timeout:   timeout,
		logger:    entry,
		exchange:  exchange,
	}
}

// replyLimit 让回复连同换行落进容量为 recvCap 的接收缓冲（缓冲最多存 recvCap-1 字节）。
func replyLimit(recvCap int) int {
	if recvCap < 2 {
		return 0
	}
	return recvCap - 2
}

// Serve 读取 conn 上的提问并写回回复，直到 conn 关闭或 ctx 结束。
func (b *Bridge) Serve(ctx context.Context, conn io.ReadWriter) error {
	lf := framer.New(framer.DefaultCapacity)
	buf := make([]byte, readChunk)
	turns := 0
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			for {
				line, ok := lf.Feed(chunk)
				chunk = nil
				if !ok {
					break
				}
				if strings.TrimSpace(line) == "" {
					continue
				}
				turns++
				if werr := b.answer(ctx, conn, line, turns); werr != nil {
					return werr
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (b *Bridge) answer(ctx context.Context, conn io.Writer, prompt string, turns int) error {
	name := b.responder.Name()
	b.exchange.Prompt(name, prompt, turns-1)

	start := time.Now()
	replyCtx, cancel := context.WithTimeout(ctx, b.timeout)
	reply, err := b.responder.Reply(replyCtx, prompt)
	cancel()
	if err != nil {
		b.exchange.Error(name, err)
		reply = "error: " + err.Error()
	}
	line := Flatten(reply, 0)
	if line == "" {
		line = "(empty reply)"
	}
	if len(line) > b.maxReply {
		line = line[:b.maxReply]
	}
	b.exchange.Reply(name, line, time.Since(start))

	if _, err := conn.Write(framer.Encode(line)); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}
	return nil
}

// Flatten 把多行回复压成一行可打印 ASCII，并截断到 limit 字节。
func Flatten(text string, limit int) string {
	var sb strings.Builder
	space := false
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r' || r == '\t' || r == ' ':
			space = sb.Len() > 0
			continue
		case r < 0x20 || r == 0x7f:
			continue
		case r > 0x7e:
			r = '?'
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.WriteRune(r)
	}
	out := sb.String()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
