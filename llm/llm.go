// Package llm wraps the OpenAI client behind the small surface the resolver
// needs: one prompt in, raw text out, plus a process-wide call budget.
package llm

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sashabaranov/go-openai"
)

var (
	APICalls  atomic.Int64
	APIErrors atomic.Int64
)

const defaultTimeout = 30 * time.Second

type Client struct {
	oai     *openai.Client
	model   string
	timeout time.Duration

	// budget caps total calls across all users for the process lifetime;
	// zero means unlimited.
	budget int64
	calls  atomic.Int64
}

func New(oai *openai.Client, model string, budget int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		oai:     oai,
		model:   model,
		timeout: timeout,
		budget:  int64(budget),
	}
}

// Available reports whether the global call budget still has room.
func (c *Client) Available() bool {
	return c.budget <= 0 || c.calls.Load() < c.budget
}

// Generate sends the prompt and returns the model's raw reply. The legacy
// instruct model uses the completion endpoint, everything else goes through
// chat completion.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.calls.Add(1)
	APICalls.Add(1)

	if c.model == openai.GPT3Dot5TurboInstruct {
		resp, err := c.oai.CreateCompletion(ctx, openai.CompletionRequest{
			Model:     c.model,
			Prompt:    prompt,
			MaxTokens: 256,
		})
		if err != nil {
			APIErrors.Add(1)
			return "", err
		}
		if len(resp.Choices) == 0 {
			APIErrors.Add(1)
			return "", fmt.Errorf("completion returned no choices")
		}
		return resp.Choices[0].Text, nil
	}

	resp, err := c.oai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		APIErrors.Add(1)
		return "", err
	}
	if len(resp.Choices) != 1 {
		APIErrors.Add(1)
		return "", fmt.Errorf("unexpected number of choices %d", len(resp.Choices))
	}
	return resp.Choices[0].Message.Content, nil
}
