// Package capability abstracts the LLM providers behind a single completion
// interface and resolves model aliases through a catalog.
package capability

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/finreport-cli/internal/model"
	"github.com/sells-group/finreport-cli/pkg/anthropic"
	"github.com/sells-group/finreport-cli/pkg/openrouter"
)

// Request is a single completion call against a resolved model.
type Request struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	JSONObject  bool
	Temperature *float64
}

// Response carries the model's text output and token accounting.
type Response struct {
	Text  string
	Usage model.TokenUsage
}

// Client performs completions against one provider.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// openRouterClient adapts the OpenRouter chat API to Client.
type openRouterClient struct {
	api openrouter.Client
}

// NewOpenRouterClient wraps an OpenRouter API client.
func NewOpenRouterClient(api openrouter.Client) Client {
	return &openRouterClient{api: api}
}

func (c *openRouterClient) Complete(ctx context.Context, req Request) (*Response, error) {
	chatReq := openrouter.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = &req.MaxTokens
	}
	if req.JSONObject {
		chatReq.ResponseFormat = &openrouter.ResponseFormat{Type: "json_object"}
	}
	if req.System != "" {
		chatReq.Messages = append(chatReq.Messages, openrouter.Message{Role: "system", Content: req.System})
	}
	chatReq.Messages = append(chatReq.Messages, openrouter.Message{Role: "user", Content: req.Prompt})

	resp, err := c.api.ChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, eris.Wrap(err, "capability: openrouter completion")
	}
	return &Response{
		Text: resp.Choices[0].Message.Content,
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// anthropicClient adapts the Anthropic message API to Client.
type anthropicClient struct {
	api anthropic.Client
}

// NewAnthropicClient wraps an Anthropic API client.
func NewAnthropicClient(api anthropic.Client) Client {
	return &anthropicClient{api: api}
}

func (c *anthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	msgReq := anthropic.MessageRequest{
		Model:       req.Model,
		MaxTokens:   int64(req.MaxTokens),
		Temperature: req.Temperature,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
	}
	if msgReq.MaxTokens == 0 {
		msgReq.MaxTokens = 4096
	}
	if req.System != "" {
		msgReq.System = anthropic.BuildCachedSystemBlocks(req.System)
	}

	resp, err := c.api.CreateMessage(ctx, msgReq)
	if err != nil {
		return nil, eris.Wrap(err, "capability: anthropic completion")
	}
	return &Response{
		Text: resp.Text(),
		Usage: model.TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}
