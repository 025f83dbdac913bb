package config

import (
	"strconv"
	"strings"
)

// ApplyKVOverrides applies free-form -c key=value overrides.
// Keys use the TOML section path, e.g. transport.kind=serial or display.renderer=cell.
func ApplyKVOverrides(cfg Config, overrides []string) Config {
	if len(overrides) == 0 {
		return cfg
	}
	for _, raw := range overrides {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		switch key {
		case "log_level":
			cfg.LogLevel = val
		case "log_file":
			cfg.LogFile = val
		case "transport.kind":
			cfg.Transport.Kind = val
		case "transport.url", "url":
			cfg.Transport.URL = val
		case "transport.device", "device":
			cfg.Transport.Device = val
		case "transport.command":
			cfg.Transport.Command = val
		case "transport.read_size":
			setInt(&cfg.Transport.ReadSize, val)
		case "transport.reattach_interval_ms":
			setInt(&cfg.Transport.ReattachIntervalMS, val)
		case "transport.send_timeout_ms":
			setInt(&cfg.Transport.SendTimeoutMS, val)
		case "transport.mdns_service":
			cfg.Transport.MDNSService = val
		case "session.receive_capacity":
			setInt(&cfg.Session.ReceiveCapacity, val)
		case "session.input_capacity":
			setInt(&cfg.Session.InputCapacity, val)
		case "session.block_compose_while_waiting":
			setBool(&cfg.Session.BlockComposeWhileWaiting, val)
		case "session.max_messages":
			setInt(&cfg.Session.MaxMessages, val)
		case "session.max_bytes":
			setInt(&cfg.Session.MaxBytes, val)
		case "display.renderer", "renderer":
			cfg.Display.Renderer = val
		case "display.wrap_width":
			setInt(&cfg.Display.WrapWidth, val)
		case "display.max_lines":
			setInt(&cfg.Display.MaxLines, val)
		case "display.scroll_step":
			setInt(&cfg.Display.ScrollStep, val)
		case "host.listen":
			cfg.Host.Listen = val
		case "host.responder":
			cfg.Host.Responder = val
		case "host.model", "model":
			cfg.Host.Model = val
		case "host.base_url":
			cfg.Host.BaseURL = val
		case "host.anthropic_base_url":
			cfg.Host.AnthropicBaseURL = val
		case "host.system_prompt":
			cfg.Host.SystemPrompt = val
		case "host.advertise":
			setBool(&cfg.Host.Advertise, val)
		case "host.qr":
			setBool(&cfg.Host.QR, val)
		}
	}
	return cfg
}

func setInt(dst *int, val string) {
	if n, err := strconv.Atoi(val); err == nil {
		*dst = n
	}
}

func setBool(dst *bool, val string) {
	if b, err := strconv.ParseBool(val); err == nil {
		*dst = b
	}
}
