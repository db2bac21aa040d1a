// Package llm provides provider clients for dispatching rendered prompts.
// Each supported provider family (OpenAI, Azure-hosted OpenAI, Anthropic,
// Gemini) is wrapped behind one interface that returns the raw response plus
// the metadata the enforcement gate and version tracker need.
package llm

import (
	"context"
	"encoding/json"
)

// Request is a fully rendered prompt ready for dispatch. Variable substitution
// has already happened upstream; this package never performs templating.
type Request struct {
	ModelID            string
	SystemInstructions string
	Prompt             string

	// InferenceParams is the template's generic parameter bag
	// (temperature/top_p/seed/max_tokens and provider-specific extras).
	InferenceParams map[string]any

	// ToolsSpec is passed through to the provider in template order.
	ToolsSpec []map[string]any

	// RequestGrounding controls whether retrieval is offered to the model.
	// When set, the provider's native search tool rides along with the
	// template's tools (unless the spec already carries a retrieval tool);
	// when unset, retrieval tools are stripped from the outgoing request.
	// Whether the model actually grounded is judged post-hoc by the
	// enforcement gate.
	RequestGrounding bool
}

// Response carries the raw provider response and extracted metadata.
type Response struct {
	Content string

	// Fingerprint is the provider's primary backend fingerprint
	// (e.g. system_fingerprint), empty if the provider reports none.
	Fingerprint string

	// ModelVersion is the secondary model-version field (the resolved model
	// name the provider echoed back).
	ModelVersion string

	ToolCallCount int
	CitationCount int

	// ReportsToolCalls is true when this provider emits a discrete tool-call
	// signal. When false, citations are the grounding evidence.
	ReportsToolCalls bool

	// Raw is the full provider response payload, stored for audit.
	Raw json.RawMessage
}

// ProviderClient dispatches rendered prompts to one provider family.
// Use this interface for dependency injection to enable mocking in tests.
type ProviderClient interface {
	// Complete sends a rendered prompt and returns the response with metadata.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// ProbeVersion obtains the provider's current version key for a model
	// (backend fingerprint or model-version string). Returns an empty string
	// when the provider reports nothing usable.
	ProbeVersion(ctx context.Context, modelID string) (string, error)

	// Provider returns the provider tag this client serves.
	Provider() string
}

// floatParam pulls a float out of a generic parameter bag, tolerating both
// float64 (JSON numbers) and int values.
func floatParam(params map[string]any, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return def
}

// intParam pulls an int out of a generic parameter bag.
func intParam(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	return def
}
