package llm

import (
	"context"
	"strings"

	"medscan-backend/internal/search"
)

const (
	// WebSearchTool is the function name the model calls to search the web.
	WebSearchTool = "web_search"
	// WebSearchDescription is shown to the model alongside the tool.
	WebSearchDescription = "Search the web for recent medical literature, guidelines and treatment protocols. Returns titles, URLs and snippets."
	// MaxToolRounds bounds how many times a model may call tools for one image.
	MaxToolRounds = 4
)

// WebSearchParameters is the JSON schema of the web_search arguments.
const WebSearchParameters = `{"type":"object","properties":{"query":{"type":"string","description":"Search query"}},"required":["query"]}`

// RunWebSearch executes a web_search call and returns the text handed back to the model.
// Search failures are reported to the model rather than aborting the analysis.
func RunWebSearch(ctx context.Context, searcher search.Searcher, args map[string]any) string {
	if searcher == nil {
		return "error: web search unavailable"
	}
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return "error: query is required"
	}
	results, err := searcher.Search(ctx, query, search.DefaultLimit)
	if err != nil {
		return "error: " + err.Error()
	}
	return search.Format(results)
}
