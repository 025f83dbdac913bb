package host

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"linechat/internal/config"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// DefaultOpenAIModel 在 host.model 为空时使用。
const DefaultOpenAIModel = "gpt-4o-mini"

type OpenAIOptions struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	HistoryTurns int
}

// OpenAIResponder 通过 Chat Completions 生成回复，并保留最近几轮对话作为上下文。
type OpenAIResponder struct {
	api     *openai.Client
	model   string
	system  string
	history *history
}

func NewOpenAIResponder(opts OpenAIOptions) (*OpenAIResponder, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	cfg := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg = append(cfg, option.WithBaseURL(strings.TrimRight(normalizeBaseURL(base), "/")))
	}
	client := openai.NewClient(cfg...)
	return &OpenAIResponder{
		api:     &client,
		model:   model,
		system:  opts.SystemPrompt,
		history: newHistory(opts.HistoryTurns),
	}, nil
}

func (r *OpenAIResponder) Name() string { return config.ResponderOpenAI }

// Reply 实现 Responder。
func (r *OpenAIResponder) Reply(ctx context.Context, prompt string) (string, error) {
	messages := r.messages(prompt)
	resp, err := r.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(r.model),
		Messages: messages,
	})
	if err != nil {
		return "", wrapHTTPError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	reply := resp.Choices[0].Message.Content
	r.history.record(prompt, reply)
	return reply, nil
}

// Reset 清空对话历史。
func (r *OpenAIResponder) Reset() {
	r.history.reset()
}

func (r *OpenAIResponder) messages(prompt string) []openai.ChatCompletionMessageParamUnion {
	past := r.history.snapshot()
	out := make([]openai.ChatCompletionMessageParamUnion, 0, 2*len(past)+2)
	if strings.TrimSpace(r.system) != "" {
		out = append(out, openai.SystemMessage(r.system))
	}
	for _, t := range past {
		out = append(out, openai.UserMessage(t.prompt), openai.AssistantMessage(t.reply))
	}
	return append(out, openai.UserMessage(prompt))
}

func wrapHTTPError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		if raw := strings.TrimSpace(apiErr.RawJSON()); raw != "" {
			return fmt.Errorf("http_%d: %s", apiErr.StatusCode, raw)
		}
		return fmt.Errorf("http_%d: %v", apiErr.StatusCode, err)
	}
	return err
}

// normalizeBaseURL 去掉误填的接口路径并补齐 /v1。
func normalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil {
		return raw
	}

	path := strings.TrimRight(parsed.Path, "/")
	switch {
	case strings.HasSuffix(path, "/chat/completions"):
		path = strings.TrimSuffix(path, "/chat/completions")
	case strings.HasSuffix(path, "/completions"):
		path = strings.TrimSuffix(path, "/completions")
	}
	path = strings.TrimRight(path, "/")
	if !strings.HasSuffix(path, "/v1") {
		path += "/v1"
	}
	parsed.Path = path
	return parsed.String()
}
