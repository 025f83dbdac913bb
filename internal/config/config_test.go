package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"LINECHAT_URL", "LINECHAT_DEVICE", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"ANTHROPIC_API_KEY", "ANTHROPIC_AUTH_TOKEN", "ANTHROPIC_BASE_URL"} {
		t.Setenv(key, "")
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Session.ReceiveCapacity != 1024 || cfg.Session.InputCapacity != 256 {
		t.Fatalf("unexpected default capacities %+v", cfg.Session)
	}
	if !cfg.Session.BlockComposeWhileWaiting {
		t.Fatal("default should block compose while waiting")
	}
}

func TestLoad_MissingFile_UsesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != path {
		t.Fatalf("cfg.Source = %q, want %q", cfg.Source, path)
	}
	if cfg.Transport.Kind != TransportWebSocket {
		t.Fatalf("cfg.Transport.Kind = %q", cfg.Transport.Kind)
	}
}

func TestLoad_SectionsFromTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
log_level = "debug"

[transport]
kind = "serial"
device = "/dev/ttyACM0"

[session]
receive_capacity = 128
block_compose_while_waiting = false

[display]
renderer = "cell"
scroll_step = 3
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transport.Kind != TransportSerial || cfg.Transport.Device != "/dev/ttyACM0" {
		t.Fatalf("transport = %+v", cfg.Transport)
	}
	if cfg.Transport.ReadSize != 64 {
		t.Fatalf("unset read_size should keep default, got %d", cfg.Transport.ReadSize)
	}
	if cfg.Session.ReceiveCapacity != 128 || cfg.Session.BlockComposeWhileWaiting {
		t.Fatalf("session = %+v", cfg.Session)
	}
	if cfg.Display.Renderer != RendererCell || cfg.Display.ScrollStep != 3 {
		t.Fatalf("display = %+v", cfg.Display)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("LINECHAT_URL", "ws://env.test/link")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transport.URL != "ws://env.test/link" {
		t.Fatalf("url = %q", cfg.Transport.URL)
	}
	if cfg.Host.APIKey != "sk-test" {
		t.Fatalf("api key = %q", cfg.Host.APIKey)
	}
}

func TestLoad_AnthropicEnvAndOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_AUTH_TOKEN", "ant-token")
	t.Setenv("ANTHROPIC_BASE_URL", "https://proxy.test")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Host.AnthropicAPIKey != "ant-token" || cfg.Host.AnthropicBaseURL != "https://proxy.test" {
		t.Fatalf("anthropic settings = %+v", cfg.Host)
	}
	cfg = ApplyKVOverrides(cfg, []string{"host.responder=anthropic", "host.model=claude-test"})
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Host.Responder != ResponderAnthropic || cfg.Host.Model != "claude-test" {
		t.Fatalf("host = %+v", cfg.Host)
	}
}

func TestApplyKVOverrides(t *testing.T) {
	cfg := ApplyKVOverrides(Default(), []string{
		"transport.kind=pty",
		"session.input_capacity=32",
		"session.block_compose_while_waiting=false",
		"renderer=text",
		"display.scroll_step=not-a-number",
		"garbage",
	})
	if cfg.Transport.Kind != TransportPTY {
		t.Fatalf("kind = %q", cfg.Transport.Kind)
	}
	if cfg.Session.InputCapacity != 32 {
		t.Fatalf("input capacity = %d", cfg.Session.InputCapacity)
	}
	if cfg.Session.BlockComposeWhileWaiting {
		t.Fatal("block_compose_while_waiting should be false")
	}
	if cfg.Display.Renderer != RendererText {
		t.Fatalf("renderer = %q", cfg.Display.Renderer)
	}
	if cfg.Display.ScrollStep != 0 {
		t.Fatalf("invalid int should be ignored, got %d", cfg.Display.ScrollStep)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown transport", mutate: func(c *Config) { c.Transport.Kind = "carrier-pigeon" }},
		{name: "serial without device", mutate: func(c *Config) { c.Transport.Kind = TransportSerial }},
		{name: "tiny receive buffer", mutate: func(c *Config) { c.Session.ReceiveCapacity = 1 }},
		{name: "tiny input buffer", mutate: func(c *Config) { c.Session.InputCapacity = 0 }},
		{name: "zero read size", mutate: func(c *Config) { c.Transport.ReadSize = 0 }},
		{name: "unknown renderer", mutate: func(c *Config) { c.Display.Renderer = "vga" }},
		{name: "unknown responder", mutate: func(c *Config) { c.Host.Responder = "oracle" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Display.Renderer = RendererCell
	if err := Save(path, &cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if cfg.Source != path {
		t.Fatalf("source = %q, want %q", cfg.Source, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.HasPrefix(string(data), "# linechat configuration\n") {
		t.Fatalf("missing header:\n%s", data)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Display.Renderer != RendererCell || loaded.Source != path {
		t.Fatalf("loaded renderer = %q source = %q", loaded.Display.Renderer, loaded.Source)
	}
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[display]\nrenderer = \"text\"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg := Default()
	cfg.Session.ReceiveCapacity = 1
	if err := Save(path, &cfg); err == nil {
		t.Fatal("expected validation error")
	}
	if cfg.Source != "" {
		t.Fatalf("source set on failed save: %q", cfg.Source)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "[display]\nrenderer = \"text\"\n" {
		t.Fatalf("existing file was modified:\n%s", data)
	}
	if err := Save("", nil); err == nil {
		t.Fatal("nil config should fail")
	}
}
