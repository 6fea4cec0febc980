package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/yorozuya-cybersecurity/vulnbrief/internal/config"
)

// NewCompleter picks the client for cfg.Provider.
func NewCompleter(cfg config.LLMConfig, logger *zap.Logger) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAIClient(cfg, logger), nil
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q (supported: %s, %s)", cfg.Provider, config.ProviderOpenAI, config.ProviderGemini)
	}
}
