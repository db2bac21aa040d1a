package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/promptwatch/promptwatch-engine/pkg/config"
	"github.com/promptwatch/promptwatch-engine/pkg/providers"
)

// Factory resolves a provider tag to a client.
// Use this interface for dependency injection and testing.
type Factory interface {
	ForProvider(tag string) (ProviderClient, error)
}

// ClientFactory builds provider clients from server-level credentials.
// Clients are constructed once and reused; they are safe for concurrent use.
type ClientFactory struct {
	clients map[string]ProviderClient
}

// NewClientFactory creates clients for every provider family with configured
// credentials. Families without credentials are simply absent; asking for one
// returns an error at call time rather than at startup.
func NewClientFactory(cfg *config.ProvidersConfig, logger *zap.Logger) *ClientFactory {
	clients := make(map[string]ProviderClient)

	if cfg.OpenAIAPIKey != "" {
		clients[providers.OpenAI] = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, logger)
	}
	if cfg.AzureAPIKey != "" && cfg.AzureEndpoint != "" {
		clients[providers.AzureOpenAI] = NewAzureOpenAIClient(cfg.AzureAPIKey, cfg.AzureEndpoint, logger)
	}
	if cfg.AnthropicAPIKey != "" {
		clients[providers.Anthropic] = NewAnthropicClient(cfg.AnthropicAPIKey, logger)
	}
	if cfg.GeminiAPIKey != "" {
		clients[providers.Gemini] = NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL, logger)
	}

	return &ClientFactory{clients: clients}
}

// ForProvider implements Factory. Asking for an unconfigured or unknown
// provider returns a typed error so handlers can answer with a structured
// status instead of a generic failure.
func (f *ClientFactory) ForProvider(tag string) (ProviderClient, error) {
	client, ok := f.clients[tag]
	if !ok {
		return nil, &Error{
			Type:     ErrorTypeNotConfigured,
			Provider: tag,
			Message:  fmt.Sprintf("no client configured for provider %q", tag),
		}
	}
	return client, nil
}

var _ Factory = (*ClientFactory)(nil)
