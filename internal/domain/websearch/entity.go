package websearch

import "context"

// Result is one web search hit
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Provider performs keyword web searches for the search-backed agents
type Provider interface {
	Search(ctx context.Context, query string) ([]Result, error)
}
