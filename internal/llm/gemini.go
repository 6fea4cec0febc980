package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/yorozuya-cybersecurity/vulnbrief/internal/config"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/fault"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/schema"
)

// GeminiClient generates completions through the Google GenAI SDK.
type GeminiClient struct {
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
	config     config.LLMConfig
}

// NewGeminiClient builds the client. The SDK client itself is created per
// call so a missing key surfaces at request time.
func NewGeminiClient(cfg config.LLMConfig, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("llm.gemini"),
		config:     cfg,
	}
}

func (c *GeminiClient) Name() string  { return string(config.ProviderGemini) }
func (c *GeminiClient) Model() string { return c.config.Model }

func (c *GeminiClient) Complete(ctx context.Context, prompt string) (schema.Completion, error) {
	if c.apiKey == "" {
		return schema.Completion{}, fault.New(fault.KindAuthentication, opComplete,
			fmt.Errorf("%w: export %s", errMissingAPIKey, c.config.APIKeyEnv))
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.config.Endpoint != "" && c.config.Endpoint != config.DefaultEndpoint {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.config.Endpoint}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return schema.Completion{}, c.classify(ctx, fmt.Errorf("failed to create GenAI client: %w", err))
	}

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(c.config.SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(c.config.Temperature)),
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, c.config.Model, genai.Text(prompt), genCfg)
	if err != nil {
		return schema.Completion{}, c.classify(ctx, err)
	}
	if len(resp.Candidates) == 0 {
		return schema.Completion{}, fault.New(fault.KindService, opComplete,
			fmt.Errorf("response contained no candidates"))
	}

	completion := schema.Completion{
		Text:  resp.Text(),
		Model: c.config.Model,
	}
	if resp.ModelVersion != "" {
		completion.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		completion.PromptTokens = int(u.PromptTokenCount)
		completion.CompletionTokens = int(u.CandidatesTokenCount)
	}

	c.logger.Info("Completion received",
		zap.String("model", completion.Model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_tokens", completion.PromptTokens),
		zap.Int("completion_tokens", completion.CompletionTokens),
		zap.String("finish_reason", string(resp.Candidates[0].FinishReason)),
	)
	return completion, nil
}

// classify tags err. A cancelled or expired ctx always counts as a
// network failure, whatever error the SDK built from it.
func (c *GeminiClient) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		kind := kindForStatus(apiErr.Code)
		c.logger.Debug("Completion API returned error status",
			zap.Int("status", apiErr.Code),
			zap.Stringer("kind", kind),
			zap.String("response", apiErr.Message),
		)
		return fault.New(kind, opComplete, err)
	}
	return classifyTransport(err)
}
