package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/promptwatch/promptwatch-engine/pkg/config"
	"github.com/promptwatch/promptwatch-engine/pkg/providers"
)

func TestNewClientFactory_OnlyConfiguredProviders(t *testing.T) {
	factory := NewClientFactory(&config.ProvidersConfig{
		OpenAIAPIKey:    "sk-test",
		AnthropicAPIKey: "sk-ant-test",
	}, zap.NewNop())

	client, err := factory.ForProvider(providers.OpenAI)
	require.NoError(t, err)
	assert.Equal(t, providers.OpenAI, client.Provider())

	client, err = factory.ForProvider(providers.Anthropic)
	require.NoError(t, err)
	assert.Equal(t, providers.Anthropic, client.Provider())

	_, err = factory.ForProvider(providers.Gemini)
	assert.Error(t, err, "no Gemini credentials were configured")
}

func TestNewClientFactory_AzureRequiresEndpoint(t *testing.T) {
	factory := NewClientFactory(&config.ProvidersConfig{
		AzureAPIKey: "azure-key",
		// no endpoint
	}, zap.NewNop())

	_, err := factory.ForProvider(providers.AzureOpenAI)
	assert.Error(t, err)
}

func TestNewClientFactory_GeminiUsesCompatSurface(t *testing.T) {
	factory := NewClientFactory(&config.ProvidersConfig{
		GeminiAPIKey:  "gemini-key",
		GeminiBaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
	}, zap.NewNop())

	client, err := factory.ForProvider(providers.Gemini)
	require.NoError(t, err)
	assert.Equal(t, providers.Gemini, client.Provider())
}

func TestForProvider_UnknownTag(t *testing.T) {
	factory := NewClientFactory(&config.ProvidersConfig{}, zap.NewNop())

	_, err := factory.ForProvider("unknown")
	assert.ErrorContains(t, err, "no client configured")

	var llmErr *Error
	require.ErrorAs(t, err, &llmErr, "unconfigured providers yield a typed error")
	assert.Equal(t, ErrorTypeNotConfigured, llmErr.Type)
	assert.Equal(t, "unknown", llmErr.Provider)
}
