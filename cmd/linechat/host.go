package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"

	"linechat/internal/config"
	"linechat/internal/host"
	"linechat/internal/logger"

	"github.com/spf13/cobra"
)

// exchangeLogPath 单独记录宿主的问答流水。
const exchangeLogPath = "logs/exchange.log"

type hostFlags struct {
	stdio     bool
	listen    string
	responder string
	advertise bool
	qr        bool
}

func (f hostFlags) overrides(cmd *cobra.Command) []string {
	var out []string
	if strings.TrimSpace(f.listen) != "" {
		out = append(out, "host.listen="+f.listen)
	}
	if strings.TrimSpace(f.responder) != "" {
		out = append(out, "host.responder="+f.responder)
	}
	if cmd.Flags().Changed("advertise") {
		out = append(out, fmt.Sprintf("host.advertise=%t", f.advertise))
	}
	if cmd.Flags().Changed("qr") {
		out = append(out, fmt.Sprintf("host.qr=%t", f.qr))
	}
	return out
}

func newHostCmd(g *globalFlags) *cobra.Command {
	var f hostFlags
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Answer linechat clients with an echo, OpenAI or Anthropic responder",
		Long: `host is the other end of the link. Every received line is passed to the
configured responder and the reply is written back as a single line.

With --stdio it answers on stdin/stdout, which is what the pty transport runs.
Otherwise it serves one WebSocket peer at /link.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*g, f.overrides(cmd))
			if err != nil {
				return err
			}
			defer setupLogging(cfg)()
			return runHost(cmd.Context(), cfg, f.stdio, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	fl := cmd.Flags()
	fl.BoolVar(&f.stdio, "stdio", false, "Serve on stdin/stdout instead of WebSocket")
	fl.StringVar(&f.listen, "listen", "", "Listen address (default from config, 127.0.0.1:8765)")
	fl.StringVar(&f.responder, "responder", "", "Responder: echo, openai or anthropic")
	fl.BoolVar(&f.advertise, "advertise", false, "Advertise the link over mDNS")
	fl.BoolVar(&f.qr, "qr", false, "Print the link URL as a QR code")
	return cmd
}

func runHost(ctx context.Context, cfg config.Config, stdio bool, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	responder, err := host.NewResponder(cfg.Host)
	if err != nil {
		return fmt.Errorf("init responder: %w", err)
	}

	exchange := logger.ExchangeLogger(logger.NewExchangeLogger(nil))
	if entry, closer, _, err := logger.SetupComponentFile("exchange", exchangeLogPath); err != nil {
		log.Warnf("failed to initialize exchange log (%s): %v", exchangeLogPath, err)
	} else {
		exchange = logger.NewExchangeLogger(entry)
		defer closer.Close()
	}

	bridge := host.NewBridge(host.BridgeOptions{
		Responder:      responder,
		ReceiveCap:     cfg.Session.ReceiveCapacity,
		Logger:         logger.Named("host"),
		ExchangeLogger: exchange,
	})
	if stdio {
		log.WithField("responder", responder.Name()).Info("host serving stdio")
		return bridge.ServeStdio(ctx, in, out)
	}

	srv := host.NewServer(bridge, logger.Named("host"))
	if err := srv.Listen(cfg.Host.Listen); err != nil {
		return err
	}
	url := srv.URL()
	fmt.Fprintf(out, "linechat host (%s) listening on %s\n", responder.Name(), url)

	if cfg.Host.Advertise {
		port := 0
		if addr, ok := srv.Addr().(*net.TCPAddr); ok {
			port = addr.Port
		}
		mdnsServer, err := host.Advertise(cfg.Transport.MDNSService, port, url)
		if err != nil {
			log.WithError(err).Warn("mDNS advertise failed")
		} else {
			defer mdnsServer.Shutdown()
			fmt.Fprintf(out, "advertising %s on mDNS\n", cfg.Transport.MDNSService)
		}
	}
	if cfg.Host.QR {
		code, err := host.QRCode(url)
		if err != nil {
			log.WithError(err).Warn("render QR code failed")
		} else {
			fmt.Fprint(out, code)
		}
	}
	return srv.Serve(ctx)
}
