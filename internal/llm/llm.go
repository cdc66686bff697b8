// File path: internal/llm/llm.go
package llm

import (
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v2/option"

	"github.com/ai-financer/nlquery/internal/common"
	"github.com/ai-financer/nlquery/internal/llm/providers"
)

type Message = providers.Message

type Provider = providers.Provider

// ErrNotConfigured is returned by the local provider for every capability.
// Callers treat it like any other provider failure and take their fallback
// path (keyword retrieval, template synthesis).
var ErrNotConfigured = providers.ErrNotConfigured

// NewProvider selects the language/embedding provider from the environment.
// With OPENAI_API_KEY set it returns the OpenAI-backed provider; otherwise
// the inert local provider, which fails every call with ErrNotConfigured.
func NewProvider() Provider {
	logger := common.Logger()
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		logger.Warn("llm: OPENAI_API_KEY not set; generative synthesis and semantic retrieval disabled")
		return providers.NewLocalProvider()
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if timeoutStr := strings.TrimSpace(os.Getenv("OPENAI_HTTP_TIMEOUT")); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			logger.Warn("llm: invalid OPENAI_HTTP_TIMEOUT, using default", "value", timeoutStr, "error", err)
		} else {
			opts = append(opts, option.WithRequestTimeout(timeout))
		}
	}
	if endpoint := strings.TrimSpace(os.Getenv("OPENAI_ENDPOINT")); endpoint != "" {
		logger.Info("llm: configuring OpenAI client with custom endpoint", "endpoint", endpoint)
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	logger.Info("llm: OpenAI provider selected")
	return providers.NewOpenAIProvider(opts...)
}
