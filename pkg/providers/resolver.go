// Package providers infers a provider identity from a model identifier.
// Inference is pure and total: it never fails, worst case returning "unknown".
package providers

import "strings"

// Provider tags returned by Infer and Resolve.
const (
	OpenAI      = "openai"
	AzureOpenAI = "azure_openai"
	Gemini      = "gemini"
	Anthropic   = "anthropic"
	Unknown     = "unknown"
)

// rule maps a model-id prefix to a provider tag. Rules are checked in order;
// the first match wins, so the azure rules sit above the plain openai ones.
type rule struct {
	prefix string
	tag    string
}

var rules = []rule{
	{"azure/", AzureOpenAI},
	{"azure-", AzureOpenAI},
	{"gpt-", OpenAI},
	{"chatgpt-", OpenAI},
	{"o1", OpenAI},
	{"o3", OpenAI},
	{"o4", OpenAI},
	{"ft:gpt-", OpenAI},
	{"gemini-", Gemini},
	{"gemini/", Gemini},
	{"claude-", Anthropic},
	{"claude/", Anthropic},
}

// Infer pattern-matches a model identifier against known provider families.
// Returns Unknown if nothing matches.
func Infer(modelID string) string {
	id := strings.ToLower(strings.TrimSpace(modelID))
	if id == "" {
		return Unknown
	}
	for _, r := range rules {
		if strings.HasPrefix(id, r.prefix) {
			return r.tag
		}
	}
	return Unknown
}

// Resolve returns the explicit provider tag when one is set on the template,
// falling back to inference from the model identifier.
func Resolve(explicit, modelID string) string {
	if p := strings.ToLower(strings.TrimSpace(explicit)); p != "" {
		return p
	}
	return Infer(modelID)
}
