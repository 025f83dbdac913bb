package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"linechat/internal/config"
	"linechat/internal/transport"

	"github.com/spf13/cobra"
)

func newDiscoverCmd(g *globalFlags) *cobra.Command {
	var timeout time.Duration
	var service string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List linechat hosts advertised on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []string
			if service != "" {
				extra = append(extra, "transport.mdns_service="+service)
			}
			cfg, err := loadConfig(*g, extra)
			if err != nil {
				return err
			}
			defer setupLogging(cfg)()
			return runDiscover(cmd.Context(), cfg, timeout, cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "How long to wait for answers")
	cmd.Flags().StringVar(&service, "service", "", "mDNS service name (default from config)")
	return cmd
}

func runDiscover(ctx context.Context, cfg config.Config, timeout time.Duration, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	endpoints, err := transport.Discover(ctx, cfg.Transport.MDNSService, timeout)
	if err != nil {
		return err
	}
	if len(endpoints) == 0 {
		fmt.Fprintln(out, "no hosts found")
		return nil
	}
	for _, ep := range endpoints {
		fmt.Fprintf(out, "%s\t%s\n", ep.Name, ep.URL)
	}
	return nil
}
