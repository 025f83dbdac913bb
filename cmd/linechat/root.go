package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"linechat/internal/chatlog"
	"linechat/internal/config"
	"linechat/internal/console"
	"linechat/internal/logger"
	"linechat/internal/session"
	"linechat/internal/transport"
	"linechat/internal/tui"
	"linechat/internal/tui/render"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var g globalFlags
	var chat chatFlags
	cmd := &cobra.Command{
		Use:   "linechat",
		Short: "Chat with a host over a newline-framed byte link",
		Long: `linechat exchanges newline-delimited text messages with a host over a
WebSocket, a serial device or a pty, and renders the conversation as a
scrolling list of chat bubbles.

Run "linechat host" in another terminal for a local echo or OpenAI host.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g, chat.overrides())
			if err != nil {
				return err
			}
			defer setupLogging(cfg)()
			return runChat(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	g.register(cmd)
	chat.register(cmd)
	cmd.AddCommand(
		newHostCmd(&g),
		newDiscoverCmd(&g),
		newConfigCmd(&g),
	)
	return cmd
}

// runChat 建立链路与会话；终端上运行 TUI，否则退回行模式。
func runChat(ctx context.Context, cfg config.Config, in io.Reader, out io.Writer) error {
	r, err := render.New(cfg.Display.Renderer, render.Options{
		WrapWidth: cfg.Display.WrapWidth,
		MaxLines:  cfg.Display.MaxLines,
	})
	if err != nil {
		return err
	}
	dialer, err := transport.NewDialer(cfg.Transport)
	if err != nil {
		return fmt.Errorf("init transport: %w", err)
	}
	link := transport.NewLink(transport.Options{
		Dialer:           dialer,
		ReattachInterval: millis(cfg.Transport.ReattachIntervalMS),
		Logger:           logger.Named("transport"),
	})
	sess := newSession(cfg, link)
	defer sess.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := link.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("link stopped")
		}
	}()
	defer link.Close()

	target := describeTarget(cfg.Transport)
	log.WithField("session_id", sess.ID()).WithField("target", target).Info("session started")

	if !interactive(in, out) {
		err := console.Run(ctx, console.Options{
			Session:      sess,
			Link:         link,
			In:           in,
			Out:          out,
			Logger:       logger.Named("console"),
			ExitWhenDone: true,
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	res, err := tui.Run(tui.Options{
		Session:  sess,
		Link:     link,
		Renderer: r,
		Target:   target,
		Logger:   logger.Named("tui"),
	})
	if err != nil {
		return err
	}
	log.WithField("session_id", res.SessionID).WithField("messages", res.Messages).Info("session ended")
	return nil
}

// newSession 把配置翻译为会话参数。
func newSession(cfg config.Config, sender session.Sender) *session.Session {
	policy := session.PolicyAllowWhileWaiting
	if cfg.Session.BlockComposeWhileWaiting {
		policy = session.PolicyBlockWhileWaiting
	}
	return session.New(session.Options{
		ReceiveCapacity: cfg.Session.ReceiveCapacity,
		InputCapacity:   cfg.Session.InputCapacity,
		ReadSize:        cfg.Transport.ReadSize,
		Policy:          policy,
		ScrollStep:      cfg.Display.ScrollStep,
		Retention: chatlog.Retention{
			MaxMessages: cfg.Session.MaxMessages,
			MaxBytes:    cfg.Session.MaxBytes,
		},
		Sender:      sender,
		SendTimeout: millis(cfg.Transport.SendTimeoutMS),
		Logger:      logger.Named("session"),
	})
}

func describeTarget(cfg config.Transport) string {
	switch cfg.Kind {
	case config.TransportSerial:
		return cfg.Device
	case config.TransportPTY:
		return "pty: " + cfg.Command
	default:
		return cfg.URL
	}
}

// interactive 仅当输入输出都连着终端时返回 true。
func interactive(in io.Reader, out io.Writer) bool {
	return isTTY(in) && isTTY(out)
}

func isTTY(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func millis(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
