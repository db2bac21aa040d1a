package llm

import (
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// NewGeminiClient creates a client for the Gemini family through Google's
// OpenAI-compatible endpoint. Gemini reports no discrete tool-call signal on
// this surface, so grounding evidence comes from citations instead.
func NewGeminiClient(apiKey, baseURL string, logger *zap.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	return &OpenAIClient{
		client:           openai.NewClientWithConfig(cfg),
		provider:         "gemini",
		logger:           logger.Named("llm.gemini"),
		reportsToolCalls: false,
		searchTool:       geminiSearchTool,
	}
}
