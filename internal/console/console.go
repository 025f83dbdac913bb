// Package console 是无终端界面的行模式前端：标准输入每行一条消息，收到的回复逐行打印。
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"linechat/internal/logger"
	"linechat/internal/session"
	"linechat/internal/transport"
)

// QuitCommand 结束会话。
const QuitCommand = "/quit"

type Options struct {
	Session *session.Session
	Link    transport.Adapter
	In      io.Reader
	Out     io.Writer
	Logger  *logger.LogEntry
	// ExitWhenDone 在输入结束且没有待回复的消息时退出。
	ExitWhenDone bool
}

type console struct {
	sess    *session.Session
	link    transport.Adapter
	out     io.Writer
	logger  *logger.LogEntry
	gen     uint64
	pending []string
}

// Run 处理链路事件与输入，直到 ctx 结束、收到 /quit 或（ExitWhenDone 时）输入耗尽。
func Run(ctx context.Context, opts Options) error {
	entry := opts.Logger
	if entry == nil {
		entry = logger.Named("console")
	}
	c := &console{sess: opts.Session, link: opts.Link, out: opts.Out, logger: entry}

	lines := make(chan string)
	go readLines(ctx, opts.In, lines)

	var events <-chan transport.Event
	if opts.Link != nil {
		events = opts.Link.Events()
	}
	inputDone := false
	for {
		if inputDone && opts.ExitWhenDone && len(c.pending) == 0 && !c.sess.Awaiting() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			c.handleEvent(evt)
		case line, ok := <-lines:
			if !ok {
				inputDone = true
				lines = nil
				continue
			}
			if strings.TrimSpace(line) == QuitCommand {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			c.pending = append(c.pending, line)
		}
		c.flush()
	}
}

func readLines(ctx context.Context, in io.Reader, out chan<- string) {
	defer close(out)
	if in == nil {
		return
	}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case out <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}

func (c *console) handleEvent(evt transport.Event) {
	var eff session.Effect
	switch evt.Kind {
	case transport.EventAttached:
		c.gen = evt.Gen
		eff = c.sess.Attach()
		c.printf("* connected\n")
	case transport.EventDetached:
		if evt.Gen != c.gen {
			return
		}
		eff = c.sess.Detach()
		c.printf("* disconnected\n")
	case transport.EventChunk:
		if evt.Gen != c.gen {
			return
		}
		eff = c.sess.Receive(evt.Data)
	}
	c.apply(eff)
}

func (c *console) apply(eff session.Effect) {
	if eff.Rearm && c.link != nil {
		c.link.Arm(c.gen, eff.ReadSize)
	}
	if eff.Received != nil {
		c.printf("bot> %s\n", eff.Received.Text)
	}
}

// flush 在会话就绪时逐条发送排队的输入。
func (c *console) flush() {
	for len(c.pending) > 0 && c.sess.Status() == session.StatusReady {
		line := c.pending[0]
		c.pending = c.pending[1:]
		c.send(line)
	}
}

func (c *console) send(line string) {
	if eff := c.sess.Input(session.Key(session.InputCompose)); !eff.Redraw {
		c.logger.Debug("compose refused")
		return
	}
	for i := 0; i < len(line); i++ {
		c.sess.Input(session.KeyChar(line[i]))
	}
	eff := c.sess.Input(session.Key(session.InputConfirm))
	if eff.Sent != nil {
		c.printf("you> %s\n", eff.Sent.Text)
	}
	c.apply(eff)
}

func (c *console) printf(format string, args ...any) {
	if c.out == nil {
		return
	}
	fmt.Fprintf(c.out, format, args...)
}
