package tools

import (
	"context"
	"fmt"
	"strings"

	"minerva/internal/domain/websearch"
	"minerva/pkg/logger"
)

// WebSearchToolName is the identifier the role prompts reference.
const WebSearchToolName = "web_search"

// NewWebSearchTool returns a tool that runs a web search and renders the
// hits as a numbered list the model can cite from.
func NewWebSearchTool(provider websearch.Provider) Tool {
	log := logger.Get().With("tool", WebSearchToolName)

	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Search query, e.g. a company name plus a topic",
			},
		},
		"required": []string{"query"},
	}

	return New(WebSearchToolName, "Search the web for recent articles and news", schema,
		func(ctx context.Context, args map[string]interface{}) (string, error) {
			query, _ := args["query"].(string)
			if strings.TrimSpace(query) == "" {
				return "", fmt.Errorf("web_search: query is required")
			}

			log.Debugf("Searching for %q", query)

			results, err := provider.Search(ctx, query)
			if err != nil {
				log.Warnf("Search failed for %q: %v", query, err)
				return "", fmt.Errorf("web_search: %w", err)
			}

			if len(results) == 0 {
				return "No results found.", nil
			}

			var sb strings.Builder
			for i, r := range results {
				fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, r.Title, r.URL)
				if r.Snippet != "" {
					fmt.Fprintf(&sb, "   %s\n", r.Snippet)
				}
			}

			log.Debugf("Search for %q returned %d results", query, len(results))
			return sb.String(), nil
		})
}
