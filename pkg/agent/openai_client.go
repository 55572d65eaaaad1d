package agent

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultBaseURL is the DeepSeek API root.
const DefaultBaseURL = "https://api.deepseek.com"

// OpenAIChatConfig configures an OpenAIChatClient.
type OpenAIChatConfig struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	Timeout    time.Duration
}

// OpenAIChatClient implements ChatCompleter over an OpenAI-compatible API.
// It posts the wire types directly instead of the SDK's typed params so
// provider-specific fields such as reasoning_content survive in both directions.
type OpenAIChatClient struct {
	client openai.Client
}

// NewOpenAIChatClient creates a client. Extra options are applied last.
func NewOpenAIChatClient(cfg OpenAIChatConfig, opts ...option.RequestOption) *OpenAIChatClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(maxRetries),
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.Timeout))
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIChatClient{
		client: openai.NewClient(reqOpts...),
	}
}

// CreateChatCompletion posts req to chat/completions. Non-2xx responses are
// returned as *openai.Error.
func (c *OpenAIChatClient) CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatMessage, error) {
	var completion ChatCompletion
	if err := c.client.Post(ctx, "chat/completions", req, &completion); err != nil {
		return nil, err
	}

	if len(completion.Choices) == 0 {
		return nil, errors.New("no response choices returned")
	}

	msg := completion.Choices[0].Message
	return &msg, nil
}
