package transport

import (
	"errors"
	"fmt"

	"linechat/internal/config"
)

// NewDialer 按配置选择链路实现。
func NewDialer(cfg config.Transport) (Dialer, error) {
	switch cfg.Kind {
	case config.TransportWebSocket, "":
		if cfg.URL == "" {
			return nil, errors.New("websocket transport requires a url")
		}
		return WebSocketDialer{URL: cfg.URL}, nil
	case config.TransportSerial:
		if cfg.Device == "" {
			return nil, errors.New("serial transport requires a device")
		}
		return SerialDialer{Device: cfg.Device}, nil
	case config.TransportPTY:
		if cfg.Command == "" {
			return nil, errors.New("pty transport requires a command")
		}
		return PTYDialer{Command: cfg.Command}, nil
	default:
		return nil, fmt.Errorf("unknown transport kind %q", cfg.Kind)
	}
}
