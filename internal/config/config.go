package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Transport kinds.
const (
	TransportWebSocket = "websocket"
	TransportSerial    = "serial"
	TransportPTY       = "pty"
)

// Renderer names.
const (
	RendererBubble = "bubble"
	RendererText   = "text"
	RendererCell   = "cell"
)

// Host responders.
const (
	ResponderEcho      = "echo"
	ResponderOpenAI    = "openai"
	ResponderAnthropic = "anthropic"
)

// Config is the persisted config file schema.
type Config struct {
	LogLevel  string    `toml:"log_level"`
	LogFile   string    `toml:"log_file"`
	Transport Transport `toml:"transport"`
	Session   Session   `toml:"session"`
	Display   Display   `toml:"display"`
	Host      Host      `toml:"host"`
	Source    string    `toml:"-"`
}

// Transport selects and configures the byte-stream link to the host.
type Transport struct {
	Kind               string `toml:"kind"`
	URL                string `toml:"url"`
	Device             string `toml:"device"`
	Command            string `toml:"command"`
	ReadSize           int    `toml:"read_size"`
	ReattachIntervalMS int    `toml:"reattach_interval_ms"`
	SendTimeoutMS      int    `toml:"send_timeout_ms"`
	MDNSService        string `toml:"mdns_service"`
}

// Session sizes the receive/compose buffers and the log retention.
type Session struct {
	ReceiveCapacity          int  `toml:"receive_capacity"`
	InputCapacity            int  `toml:"input_capacity"`
	BlockComposeWhileWaiting bool `toml:"block_compose_while_waiting"`
	MaxMessages              int  `toml:"max_messages"`
	MaxBytes                 int  `toml:"max_bytes"`
}

// Display configures the renderer backend.
type Display struct {
	Renderer   string `toml:"renderer"`
	WrapWidth  int    `toml:"wrap_width"`
	MaxLines   int    `toml:"max_lines"`
	ScrollStep int    `toml:"scroll_step"`
}

// Host configures `linechat host`.
type Host struct {
	Listen       string `toml:"listen"`
	Responder    string `toml:"responder"`
	// Model 为空时由各回复源选择默认模型。
	Model            string `toml:"model"`
	APIKey           string `toml:"api_key"`
	BaseURL          string `toml:"base_url"`
	AnthropicAPIKey  string `toml:"anthropic_api_key"`
	AnthropicBaseURL string `toml:"anthropic_base_url"`
	SystemPrompt     string `toml:"system_prompt"`
	Advertise        bool   `toml:"advertise"`
	QR               bool   `toml:"qr"`
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Transport: Transport{
			Kind:               TransportWebSocket,
			URL:                "ws://127.0.0.1:8765/link",
			Command:            "linechat host --stdio",
			ReadSize:           64,
			ReattachIntervalMS: 2000,
			SendTimeoutMS:      5000,
			MDNSService:        "_linechat._tcp",
		},
		Session: Session{
			ReceiveCapacity:          1024,
			InputCapacity:            256,
			BlockComposeWhileWaiting: true,
		},
		Display: Display{
			Renderer: RendererBubble,
		},
		Host: Host{
			Listen:       "127.0.0.1:8765",
			Responder:    ResponderEcho,
			SystemPrompt: "Reply in one short paragraph of plain ASCII text.",
		},
	}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".linechat", "config.toml")
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if env := strings.TrimSpace(os.Getenv("LINECHAT_URL")); env != "" {
		cfg.Transport.URL = env
	}
	if env := strings.TrimSpace(os.Getenv("LINECHAT_DEVICE")); env != "" {
		cfg.Transport.Device = env
	}
	if env := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); env != "" {
		cfg.Host.APIKey = env
	}
	if env := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); env != "" {
		cfg.Host.BaseURL = env
	}
	for _, key := range []string{"ANTHROPIC_API_KEY", "ANTHROPIC_AUTH_TOKEN"} {
		if env := strings.TrimSpace(os.Getenv(key)); env != "" {
			cfg.Host.AnthropicAPIKey = env
			break
		}
	}
	if env := strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")); env != "" {
		cfg.Host.AnthropicBaseURL = env
	}
}

// Validate rejects settings the session engine cannot run with.
func (c Config) Validate() error {
	switch c.Transport.Kind {
	case TransportWebSocket, TransportSerial, TransportPTY:
	default:
		return fmt.Errorf("unknown transport kind %q", c.Transport.Kind)
	}
	if c.Transport.Kind == TransportSerial && strings.TrimSpace(c.Transport.Device) == "" {
		return errors.New("serial transport requires transport.device")
	}
	if c.Transport.Kind == TransportPTY && strings.TrimSpace(c.Transport.Command) == "" {
		return errors.New("pty transport requires transport.command")
	}
	if c.Session.ReceiveCapacity < 2 {
		return fmt.Errorf("session.receive_capacity must be at least 2, got %d", c.Session.ReceiveCapacity)
	}
	if c.Session.InputCapacity < 2 {
		return fmt.Errorf("session.input_capacity must be at least 2, got %d", c.Session.InputCapacity)
	}
	if c.Transport.ReadSize <= 0 {
		return fmt.Errorf("transport.read_size must be positive, got %d", c.Transport.ReadSize)
	}
	switch c.Display.Renderer {
	case RendererBubble, RendererText, RendererCell:
	default:
		return fmt.Errorf("unknown renderer %q", c.Display.Renderer)
	}
	switch c.Host.Responder {
	case ResponderEcho, ResponderOpenAI, ResponderAnthropic:
	default:
		return fmt.Errorf("unknown host responder %q", c.Host.Responder)
	}
	return nil
}
