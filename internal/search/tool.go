package search

import (
	"context"
	"encoding/json"
	"fmt"
)

// ToolResponse is the structured payload the web_search tool hands back
// to the model. Sources carry citation metadata that the conversation
// loop extracts for the run summary.
type ToolResponse struct {
	Query           string   `json:"query"`
	Sources         []Result `json:"sources"`
	Summary         string   `json:"summary"`
	SearchPerformed bool     `json:"search_performed"`
	Error           string   `json:"error,omitempty"`
}

// ToolHandler returns a function compatible with the tools.Tool Handler
// signature. It wraps the Manager's search method for use as an agent
// tool. Provider failures produce a structured no-results payload rather
// than an error, so the model can carry on without search data.
func ToolHandler(mgr *Manager) func(ctx context.Context, args map[string]any) (string, error) {
	return func(ctx context.Context, args map[string]any) (string, error) {
		query, _ := args["query"].(string)
		if query == "" {
			return "", fmt.Errorf("web_search: query is required")
		}

		opts := Options{}
		if count, ok := args["max_results"].(float64); ok && count > 0 {
			opts.Count = int(count)
		}

		resp := ToolResponse{Query: query}

		results, err := mgr.Search(ctx, query, opts)
		switch {
		case err != nil:
			resp.Sources = []Result{}
			resp.Summary = fmt.Sprintf("Web search for '%s' failed due to: %s", query, err)
			resp.Error = err.Error()
		case len(results) == 0:
			resp.Sources = []Result{}
			resp.Summary = fmt.Sprintf("No web search results found for '%s'. This may be due to search limitations or network issues.", query)
			resp.SearchPerformed = true
		default:
			resp.Sources = results
			resp.Summary = fmt.Sprintf("Found %d web search results for '%s'", len(results), query)
			resp.SearchPerformed = true
		}

		out, err := json.Marshal(resp)
		if err != nil {
			return FormatResults(results, len(results)), nil
		}
		return string(out), nil
	}
}

// ToolDefinition returns the JSON Schema parameters for the web_search tool.
func ToolDefinition() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query to find relevant information on the web.",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum number of search results to return. Default is 5.",
				"minimum":     1,
				"maximum":     10,
			},
		},
		"required": []string{"query"},
	}
}
