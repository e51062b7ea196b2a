package advisor

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient abstracts the chat-completion API so agents can be tested with
// a fake.
type ChatClient interface {
	Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, Usage, error)
}

// OpenAIChatClient implements ChatClient against the OpenAI API with
// bounded retries.
type OpenAIChatClient struct {
	client     *openai.Client
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
}

// NewOpenAIChatClient creates a client. Zero values pick sensible defaults.
func NewOpenAIChatClient(apiKey string, maxRetries int, retryDelay, timeout time.Duration) (*OpenAIChatClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIChatClient{
		client:     openai.NewClient(apiKey),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		timeout:    timeout,
	}, nil
}

// Complete sends one chat completion and returns the first choice's content
// along with token usage.
func (c *OpenAIChatClient) Complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, Usage, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.2,
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", Usage{}, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateChatCompletion(reqCtx, req)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("empty completion response")
			continue
		}
		usage := Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
		return resp.Choices[0].Message.Content, usage, nil
	}
	return "", Usage{}, fmt.Errorf("chat completion failed after %d attempts: %w", c.maxRetries, lastErr)
}
