package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/yorozuya-cybersecurity/vulnbrief/internal/config"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/fault"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/schema"
)

// maxErrorBody bounds how much of an error response ends up in messages.
const maxErrorBody = 512

// OpenAIClient talks to an OpenAI-compatible chat completions API through
// the official SDK.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	client     openai.Client
	logger     *zap.Logger
	config     config.LLMConfig
}

// NewOpenAIClient builds the client. An empty cfg.APIKey is accepted here;
// Complete rejects it before any request is sent.
func NewOpenAIClient(cfg config.LLMConfig, logger *zap.Logger) *OpenAIClient {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = config.DefaultEndpoint
	}
	baseURL = strings.TrimSuffix(baseURL, "/") + "/"

	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(baseURL),
			option.WithHTTPClient(httpClient),
			option.WithMaxRetries(0),
		),
		logger: logger.Named("llm.openai"),
		config: cfg,
	}
}

func (c *OpenAIClient) Name() string  { return string(config.ProviderOpenAI) }
func (c *OpenAIClient) Model() string { return c.config.Model }

// Complete sends the system instruction and prompt as one chat exchange.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (schema.Completion, error) {
	if c.apiKey == "" {
		return schema.Completion{}, fault.New(fault.KindAuthentication, opComplete,
			fmt.Errorf("%w: export %s", errMissingAPIKey, c.config.APIKeyEnv))
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, c.buildParams(prompt))
	if err != nil {
		return schema.Completion{}, c.classify(err)
	}
	if len(resp.Choices) == 0 {
		return schema.Completion{}, fault.New(fault.KindService, opComplete,
			errors.New("response contained no choices"))
	}

	c.logger.Info("Completion received",
		zap.String("model", resp.Model),
		zap.Duration("duration", time.Since(start)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int64("total_tokens", resp.Usage.TotalTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)

	model := resp.Model
	if model == "" {
		model = c.config.Model
	}
	return schema.Completion{
		Text:             resp.Choices[0].Message.Content,
		Model:            model,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

func (c *OpenAIClient) buildParams(prompt string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.config.SystemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.config.Temperature),
	}
}

// classify tags SDK errors. API errors carry the HTTP status; anything else
// came from the transport or from decoding the body.
func (c *OpenAIClient) classify(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return classifyTransport(err)
	}

	msg := strings.TrimSpace(apiErr.Message)
	if msg == "" {
		msg = http.StatusText(apiErr.StatusCode)
	}
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}

	kind := kindForStatus(apiErr.StatusCode)
	c.logger.Debug("Completion API returned error status",
		zap.Int("status", apiErr.StatusCode),
		zap.Stringer("kind", kind),
		zap.String("response", msg),
	)
	return fault.New(kind, opComplete, fmt.Errorf("status %d: %s", apiErr.StatusCode, msg))
}
