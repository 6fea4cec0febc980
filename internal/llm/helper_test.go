package llm

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yorozuya-cybersecurity/vulnbrief/internal/config"
)

// setupTestLogger returns a logger whose entries can be inspected.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// validLLMConfig returns a config pointing at endpoint.
func validLLMConfig(endpoint string) config.LLMConfig {
	return config.LLMConfig{
		Provider:     config.ProviderOpenAI,
		Model:        "gpt-4",
		Temperature:  0.3,
		Endpoint:     endpoint,
		APIKeyEnv:    "OPENAI_API_KEY",
		APIKey:       "sk-test",
		Timeout:      5 * time.Second,
		SystemPrompt: config.DefaultSystemPrompt,
	}
}
