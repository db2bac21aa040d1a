package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicClient serves the Anthropic (Claude) provider family.
type AnthropicClient struct {
	client *anthropic.Client
	logger *zap.Logger
}

// NewAnthropicClient creates a client for the Anthropic API.
func NewAnthropicClient(apiKey string, logger *zap.Logger) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(apiKey),
		logger: logger.Named("llm.anthropic"),
	}
}

// Provider implements ProviderClient.
func (c *AnthropicClient) Provider() string {
	return "anthropic"
}

// Complete implements ProviderClient.
func (c *AnthropicClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	msgReq := anthropic.MessagesRequest{
		Model:     anthropic.Model(req.ModelID),
		MaxTokens: intParam(req.InferenceParams, "max_tokens", 4096),
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &req.Prompt},
			}},
		},
	}
	if req.SystemInstructions != "" {
		msgReq.System = req.SystemInstructions
	}
	if temp := floatParam(req.InferenceParams, "temperature", -1); temp >= 0 {
		t := float32(temp)
		msgReq.Temperature = &t
	}

	tools, err := convertAnthropicTools(shapeTools(req.ToolsSpec, req.RequestGrounding, anthropicSearchTool))
	if err != nil {
		return nil, fmt.Errorf("convert tools spec: %w", err)
	}
	msgReq.Tools = tools

	c.logger.Debug("Provider request",
		zap.String("model", req.ModelID),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Bool("request_grounding", req.RequestGrounding))

	start := time.Now()
	resp, err := c.client.CreateMessages(ctx, msgReq)
	if err != nil {
		c.logger.Error("Provider request failed",
			zap.String("model", req.ModelID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError("anthropic", req.ModelID, err)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal response payload: %w", err)
	}

	var content string
	var toolCalls, citations int
	for _, block := range resp.Content {
		switch string(block.Type) {
		case "text":
			if block.Text != nil {
				content += *block.Text
			}
		case "tool_use", "server_tool_use":
			toolCalls++
		case "web_search_tool_result":
			citations++
		}
	}

	c.logger.Info("Provider request completed",
		zap.String("model", string(resp.Model)),
		zap.Int("tool_calls", toolCalls),
		zap.Duration("elapsed", time.Since(start)))

	return &Response{
		Content:          content,
		Fingerprint:      "", // Anthropic reports no backend fingerprint
		ModelVersion:     string(resp.Model),
		ToolCallCount:    toolCalls,
		CitationCount:    citations,
		ReportsToolCalls: true,
		Raw:              raw,
	}, nil
}

// ProbeVersion implements ProviderClient. Anthropic has no fingerprint probe;
// the response's resolved model name is the version identity.
func (c *AnthropicClient) ProbeVersion(ctx context.Context, modelID string) (string, error) {
	ping := "ping"
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(modelID),
		MaxTokens: 1,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &ping},
			}},
		},
	})
	if err != nil {
		return "", ClassifyError("anthropic", modelID, err)
	}
	return string(resp.Model), nil
}

// convertAnthropicTools maps the template's order-preserving tool spec onto
// the client library's tool type via a JSON round trip. Order is preserved.
func convertAnthropicTools(spec []map[string]any) ([]anthropic.ToolDefinition, error) {
	if len(spec) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}
	var tools []anthropic.ToolDefinition
	if err := json.Unmarshal(data, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

var _ ProviderClient = (*AnthropicClient)(nil)
