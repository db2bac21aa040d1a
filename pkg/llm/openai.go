package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient serves the OpenAI-compatible provider families. The same client
// backs plain OpenAI, Azure-hosted OpenAI, and Gemini through Google's
// OpenAI-compatible endpoint; only the transport config and grounding-evidence
// signal differ.
type OpenAIClient struct {
	client   *openai.Client
	provider string
	logger   *zap.Logger

	// reportsToolCalls is false for the Gemini-compat surface, which exposes
	// no discrete tool-call signal; citations become the evidence there.
	reportsToolCalls bool

	// searchTool is the native retrieval tool attached when a run requests
	// grounding and the template spec has none.
	searchTool map[string]any
}

// NewOpenAIClient creates a client for api.openai.com or a compatible endpoint.
// baseURL is optional; empty means the library default.
func NewOpenAIClient(apiKey, baseURL string, logger *zap.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &OpenAIClient{
		client:           openai.NewClientWithConfig(cfg),
		provider:         "openai",
		logger:           logger.Named("llm.openai"),
		reportsToolCalls: true,
		searchTool:       openAISearchTool,
	}
}

// NewAzureOpenAIClient creates a client for an Azure-hosted OpenAI deployment.
func NewAzureOpenAIClient(apiKey, endpoint string, logger *zap.Logger) *OpenAIClient {
	cfg := openai.DefaultAzureConfig(apiKey, endpoint)
	return &OpenAIClient{
		client:           openai.NewClientWithConfig(cfg),
		provider:         "azure_openai",
		logger:           logger.Named("llm.azure"),
		reportsToolCalls: true,
		searchTool:       openAISearchTool,
	}
}

// Provider implements ProviderClient.
func (c *OpenAIClient) Provider() string {
	return c.provider
}

// Complete implements ProviderClient.
func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:       req.ModelID,
		Messages:    buildMessages(req),
		Temperature: float32(floatParam(req.InferenceParams, "temperature", 0)),
	}
	if topP := floatParam(req.InferenceParams, "top_p", 0); topP > 0 {
		chatReq.TopP = float32(topP)
	}
	if maxTokens := intParam(req.InferenceParams, "max_tokens", 0); maxTokens > 0 {
		chatReq.MaxTokens = maxTokens
	}
	if seed := intParam(req.InferenceParams, "seed", -1); seed >= 0 {
		chatReq.Seed = &seed
	}

	tools, err := convertTools(shapeTools(req.ToolsSpec, req.RequestGrounding, c.searchTool))
	if err != nil {
		return nil, fmt.Errorf("convert tools spec: %w", err)
	}
	chatReq.Tools = tools

	c.logger.Debug("Provider request",
		zap.String("model", req.ModelID),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Bool("request_grounding", req.RequestGrounding))

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		c.logger.Error("Provider request failed",
			zap.String("model", req.ModelID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(c.provider, req.ModelID, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	msg := resp.Choices[0].Message
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal response payload: %w", err)
	}

	c.logger.Info("Provider request completed",
		zap.String("model", resp.Model),
		zap.Int("tool_calls", len(msg.ToolCalls)),
		zap.Duration("elapsed", time.Since(start)))

	return &Response{
		Content:          msg.Content,
		Fingerprint:      resp.SystemFingerprint,
		ModelVersion:     resp.Model,
		ToolCallCount:    len(msg.ToolCalls),
		CitationCount:    countInlineCitations(msg.Content),
		ReportsToolCalls: c.reportsToolCalls,
		Raw:              raw,
	}, nil
}

// ProbeVersion implements ProviderClient. It issues a minimal one-token
// completion and reads the backend fingerprint from the response, falling back
// to the resolved model name.
func (c *OpenAIClient) ProbeVersion(ctx context.Context, modelID string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     modelID,
		MaxTokens: 1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "ping"},
		},
	})
	if err != nil {
		return "", ClassifyError(c.provider, modelID, err)
	}

	if resp.SystemFingerprint != "" {
		return resp.SystemFingerprint, nil
	}
	return resp.Model, nil
}

// buildMessages assembles the chat messages for a request.
func buildMessages(req *Request) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage
	if req.SystemInstructions != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstructions,
		})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})
}

// convertTools maps the template's order-preserving tool spec onto the client
// library's tool type via a JSON round trip. Order is preserved.
func convertTools(spec []map[string]any) ([]openai.Tool, error) {
	if len(spec) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}
	var tools []openai.Tool
	if err := json.Unmarshal(data, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

// countInlineCitations counts http(s) links in the response text. The
// OpenAI-compatible surface exposes no structured citation metadata, so inline
// links are the only observable citation signal on this path.
func countInlineCitations(content string) int {
	return strings.Count(content, "http://") + strings.Count(content, "https://")
}

var _ ProviderClient = (*OpenAIClient)(nil)
