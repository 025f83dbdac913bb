package host

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"linechat/internal/config"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// DefaultAnthropicModel 在 host.model 为空时使用。
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	// anthropicMaxTokens 足够写满一帧回复。
	anthropicMaxTokens = 512
)

type AnthropicOptions struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	HistoryTurns int
}

// AnthropicResponder 通过 Messages API 生成回复，上下文处理与 OpenAIResponder 相同。
type AnthropicResponder struct {
	api     *anthropic.Client
	model   anthropic.Model
	system  string
	history *history
}

func NewAnthropicResponder(opts AnthropicOptions) (*AnthropicResponder, error) {
	token := strings.TrimSpace(opts.APIKey)
	if token == "" {
		return nil, errors.New("missing ANTHROPIC_API_KEY")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultAnthropicModel
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(token),
	}
	if base := normalizeAnthropicBaseURL(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	client := anthropic.NewClient(reqOpts...)
	return &AnthropicResponder{
		api:     &client,
		model:   anthropic.Model(model),
		system:  strings.TrimSpace(opts.SystemPrompt),
		history: newHistory(opts.HistoryTurns),
	}, nil
}

func (r *AnthropicResponder) Name() string { return config.ResponderAnthropic }

// Reply 实现 Responder。
func (r *AnthropicResponder) Reply(ctx context.Context, prompt string) (string, error) {
	msg, err := r.api.Messages.New(ctx, r.params(prompt))
	if err != nil {
		return "", wrapAnthropicError(err)
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	reply := strings.TrimSpace(sb.String())
	if reply == "" {
		return "", errors.New("no text content returned")
	}
	r.history.record(prompt, reply)
	return reply, nil
}

// Reset 清空对话历史。
func (r *AnthropicResponder) Reset() {
	r.history.reset()
}

func (r *AnthropicResponder) params(prompt string) anthropic.MessageNewParams {
	past := r.history.snapshot()
	messages := make([]anthropic.MessageParam, 0, 2*len(past)+1)
	for _, t := range past {
		messages = append(messages,
			anthropic.NewUserMessage(anthropic.NewTextBlock(t.prompt)),
			anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.reply)),
		)
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))

	params := anthropic.MessageNewParams{
		Model:     r.model,
		MaxTokens: anthropicMaxTokens,
		Messages:  messages,
	}
	if r.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: r.system}}
	}
	return params
}

func wrapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		if raw := strings.TrimSpace(apiErr.RawJSON()); raw != "" {
			return fmt.Errorf("http_%d: %s", apiErr.StatusCode, raw)
		}
		return fmt.Errorf("http_%d: %v", apiErr.StatusCode, err)
	}
	return err
}

// normalizeAnthropicBaseURL 去掉结尾的 /v1，SDK 会自行拼接 /v1/messages。
func normalizeAnthropicBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if strings.HasSuffix(base, "/v1") {
		base = strings.TrimRight(strings.TrimSuffix(base, "/v1"), "/")
	}
	return base
}
