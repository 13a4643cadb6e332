package textmodel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

const outlinePromptFmt = `Generate a detailed outline for a podcast script on the subject %q.
The outline should include many fine-grained sections that cover various aspects of the topic comprehensively.
Provide the output as a JSON array with a string for each section's title.`

// Config for the OpenAI-compatible client.
type Config struct {
	APIKey    string
	BaseURL   string
	ModelName string
	Timeout   time.Duration
	Attempts  int
	Backoff   time.Duration
}

// Client implements Model on any OpenAI-compatible chat completion API.
type Client struct {
	client   *openai.Client
	model    string
	timeout  time.Duration
	attempts int
	backoff  time.Duration
	log      zerolog.Logger
}

// NewClient builds the client. Attempts and Backoff govern the rate-limit
// retry loop shared by every completion call.
func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("text model API key is not set")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("text model name is not set")
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:   openai.NewClientWithConfig(apiCfg),
		model:    cfg.ModelName,
		timeout:  cfg.Timeout,
		attempts: cfg.Attempts,
		backoff:  cfg.Backoff,
		log:      log,
	}, nil
}

func (c *Client) GenerateOutline(ctx context.Context, subject string) ([]string, error) {
	prompt := fmt.Sprintf(outlinePromptFmt, subject)
	content, err := c.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
	if err != nil {
		return nil, err
	}

	var titles []string
	if err := json.Unmarshal([]byte(CleanJSON(content)), &titles); err != nil {
		c.log.Error().Err(err).Str("subject", subject).Msg("outline response is not a JSON array")
		return nil, fmt.Errorf("failed to parse outline response: %w", err)
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("outline is empty: %w", ErrEmptyResponse)
	}
	return titles, nil
}

func (c *Client) NewSession() Session {
	return &chatSession{client: c}
}

// chatSession carries the running message history of one script. It is
// owned by a single generation and is not safe for concurrent use, which
// is fine: section calls are inherently sequential.
type chatSession struct {
	client   *Client
	messages []openai.ChatCompletionMessage
}

func (s *chatSession) GenerateSection(ctx context.Context, prompt string) (string, error) {
	messages := append(s.messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	content, err := s.client.complete(ctx, messages)
	if err != nil {
		return "", err
	}

	s.messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: content,
	})
	return content, nil
}

// complete runs one chat completion with the fixed-backoff rate-limit
// retry. Quota errors sleep and retry up to the attempt budget; any other
// failure propagates immediately.
func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	for attempt := 1; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: 0.7,
		})
		cancel()

		if err != nil {
			if !isRateLimited(err) {
				return "", fmt.Errorf("text model request failed: %w", err)
			}
			if attempt >= c.attempts {
				return "", fmt.Errorf("%w after %d attempts", ErrRateLimited, attempt)
			}
			c.log.Warn().Int("attempt", attempt).Dur("backoff", c.backoff).Msg("rate limit exceeded, backing off")
			select {
			case <-time.After(c.backoff):
				continue
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return "", ErrEmptyResponse
		}
		return resp.Choices[0].Message.Content, nil
	}
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
