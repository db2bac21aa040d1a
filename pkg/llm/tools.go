package llm

import "strings"

// Native search tools per provider family, in the wire shape each API takes.
// One of these rides along with the template's tools when a run requests
// grounding and the template's own spec carries no retrieval tool.
var (
	openAISearchTool    = map[string]any{"type": "web_search"}
	geminiSearchTool    = map[string]any{"type": "google_search"}
	anthropicSearchTool = map[string]any{"type": "web_search_20250305", "name": "web_search"}
)

// isRetrievalTool reports whether a tool spec entry is a retrieval tool.
// Detection is by the type field: provider search tools all carry a search or
// retrieval marker there, while plain function tools never do.
func isRetrievalTool(tool map[string]any) bool {
	typ, _ := tool["type"].(string)
	typ = strings.ToLower(typ)
	return strings.Contains(typ, "search") || strings.Contains(typ, "retrieval")
}

// shapeTools applies a run's grounding request to the template's tool spec
// before provider conversion. When grounding is not requested, every retrieval
// tool is stripped so the model cannot ground even if the template carries a
// search tool. When grounding is requested and the spec has no retrieval tool,
// the provider's native search tool is appended after the template's tools.
// Template tool order is preserved either way.
func shapeTools(spec []map[string]any, requestGrounding bool, searchTool map[string]any) []map[string]any {
	var shaped []map[string]any
	hasRetrieval := false
	for _, tool := range spec {
		if isRetrievalTool(tool) {
			if !requestGrounding {
				continue
			}
			hasRetrieval = true
		}
		shaped = append(shaped, tool)
	}
	if requestGrounding && !hasRetrieval && searchTool != nil {
		shaped = append(shaped, searchTool)
	}
	return shaped
}
