package main

import (
	"strings"

	"linechat/internal/config"
	"linechat/internal/logger"

	"github.com/spf13/cobra"
)

// globalFlags 在所有子命令之间共享。
type globalFlags struct {
	cfgPath   string
	overrides []string
	logLevel  string
	logFile   string
}

func (g *globalFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&g.cfgPath, "config", "", "Path to config file (default ~/.linechat/config.toml)")
	pf.StringArrayVarP(&g.overrides, "override", "c", nil, "Override config value key=value (repeatable)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level (trace/debug/info/warn/error)")
	pf.StringVar(&g.logFile, "log-file", "", "Log file path (default logs/linechat.log)")
}

// chatFlags 是根命令上与链路和显示相关的快捷参数，等价于对应的 -c 覆盖。
type chatFlags struct {
	transport string
	url       string
	device    string
	command   string
	renderer  string
}

func (f *chatFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.transport, "transport", "", "Transport kind: websocket, serial or pty")
	fl.StringVar(&f.url, "url", "", "WebSocket link URL (ws://host:port/link)")
	fl.StringVar(&f.device, "device", "", "Serial device path")
	fl.StringVar(&f.command, "command", "", "Command to run behind a pty")
	fl.StringVar(&f.renderer, "renderer", "", "Renderer backend: bubble, text or cell")
}

// overrides 把显式给出的参数翻译为 key=value 覆盖，排在 -c 之后生效。
func (f chatFlags) overrides() []string {
	var out []string
	add := func(key, val string) {
		if strings.TrimSpace(val) != "" {
			out = append(out, key+"="+strings.TrimSpace(val))
		}
	}
	add("transport.kind", f.transport)
	add("transport.url", f.url)
	add("transport.device", f.device)
	add("transport.command", f.command)
	add("display.renderer", f.renderer)
	// 指定了 url/device/command 但未指定 kind 时推断传输类型。
	if strings.TrimSpace(f.transport) == "" {
		switch {
		case strings.TrimSpace(f.device) != "":
			out = append(out, "transport.kind="+config.TransportSerial)
		case strings.TrimSpace(f.command) != "":
			out = append(out, "transport.kind="+config.TransportPTY)
		case strings.TrimSpace(f.url) != "":
			out = append(out, "transport.kind="+config.TransportWebSocket)
		}
	}
	return out
}

// loadConfig 依次应用配置文件、环境变量、-c 覆盖与额外覆盖，并校验结果。
func loadConfig(g globalFlags, extra []string) (config.Config, error) {
	cfg, err := config.Load(g.cfgPath)
	if err != nil {
		return cfg, err
	}
	all := append([]string{}, g.overrides...)
	all = append(all, extra...)
	if strings.TrimSpace(g.logLevel) != "" {
		all = append(all, "log_level="+g.logLevel)
	}
	if strings.TrimSpace(g.logFile) != "" {
		all = append(all, "log_file="+g.logFile)
	}
	cfg = config.ApplyKVOverrides(cfg, all)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// setupLogging 按配置重定向全局日志并设置级别，返回退出时的清理函数。
func setupLogging(cfg config.Config) func() {
	closer, path, err := logger.Setup(logger.Options{Path: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		log.Warnf("failed to initialize logging: %v", err)
	}
	if path != "" {
		log.WithField("path", path).Debug("logging configured")
	}
	return func() { _ = closer.Close() }
}
