// Package host 实现链路另一端：接收一行提问，交给回复源，再以单行帧写回。
package host

import (
	"context"
	"fmt"
	"strings"

	"linechat/internal/config"
)

// Responder 为一条提问生成回复。
type Responder interface {
	Name() string
	Reply(ctx context.Context, prompt string) (string, error)
}

// EchoResponder 原样返回提问，用于联调链路。
type EchoResponder struct{}

func (EchoResponder) Name() string { return config.ResponderEcho }

func (EchoResponder) Reply(_ context.Context, prompt string) (string, error) {
	return prompt, nil
}

// NewResponder 按配置构造回复源。
func NewResponder(cfg config.Host) (Responder, error) {
	switch strings.TrimSpace(cfg.Responder) {
	case config.ResponderEcho, "":
		return EchoResponder{}, nil
	case config.ResponderOpenAI:
		r, err := NewOpenAIResponder(OpenAIOptions{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Model:        cfg.Model,
			SystemPrompt: cfg.SystemPrompt,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	case config.ResponderAnthropic:
		r, err := NewAnthropicResponder(AnthropicOptions{
			APIKey:       cfg.AnthropicAPIKey,
			BaseURL:      cfg.AnthropicBaseURL,
			Model:        cfg.Model,
			SystemPrompt: cfg.SystemPrompt,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown responder %q", cfg.Responder)
	}
}
