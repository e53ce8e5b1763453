package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/oracare/oracare-api/internal/domain/classify"
	"github.com/oracare/oracare-api/internal/infra/ai/prompt"
)

const maxTokens = 4096

// Client relays screening images to a multimodal chat-completion provider.
// Single-shot request/response; no streaming, no multi-turn state.
type Client struct {
	*openai.Client
	Model   string
	Timeout time.Duration
}

func NewClient(apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{Client: openai.NewClient(apiKey), Model: model, Timeout: timeout}
}

// Classify sends one chat-completion request with the screening prompt and the
// image attached as a base64 data URI. The remote dependency is a paid API
// with no visible SLA, so the call gets an explicit timeout and exactly one
// retry on transient failure. Quota errors surface as ErrQuotaExceeded and are
// never retried.
func (c *Client) Classify(ctx context.Context, req classify.Request) (classify.Response, error) {
	model := c.Model
	if model == "" {
		model = "gpt-4o"
	}

	ccr := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: 0.7,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.ScreeningSystemPrompt()},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt.ScreeningUserPrompt(req.Patient)},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    req.ImageDataURI,
						Detail: openai.ImageURLDetailAuto,
					}},
				},
			},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		ccr.MaxCompletionTokens = maxTokens
	} else {
		ccr.MaxTokens = maxTokens
	}

	resp, err := c.create(ctx, ccr)
	if err != nil {
		if errors.Is(err, classify.ErrQuotaExceeded) {
			return classify.Response{}, err
		}
		if !isTransient(err) {
			return classify.Response{}, fmt.Errorf("chat completion failed: %w", err)
		}
		resp, err = c.create(ctx, ccr)
		if err != nil {
			return classify.Response{}, fmt.Errorf("%w: %v", classify.ErrUnavailable, err)
		}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return classify.Response{}, fmt.Errorf("%w: empty response content", classify.ErrUnavailable)
	}
	return classify.Response{
		MessageID: resp.ID,
		Text:      resp.Choices[0].Message.Content,
	}, nil
}

func (c *Client) create(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	cctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	resp, err := c.CreateChatCompletion(cctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
			return resp, fmt.Errorf("%w: %v", classify.ErrQuotaExceeded, err)
		}
	}
	return resp, err
}

// isTransient reports whether a failure is worth the single retry: transport
// errors and provider 5xx, never client-side 4xx.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode >= 500 || reqErr.HTTPStatusCode == 0
	}
	// No HTTP status at all: connection reset, DNS, timeout.
	return true
}
