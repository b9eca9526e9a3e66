package duckduckgo

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"minerva/internal/adapters/config"
	"minerva/internal/domain/websearch"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Compile-time check
var _ websearch.Provider = (*Client)(nil)

// Client scrapes the DuckDuckGo HTML endpoint. No API key required, which is
// why the agents use it for news lookups.
type Client struct {
	cfg        config.SearchConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
}

// NewClient creates a web search client.
func NewClient(cfg config.SearchConfig) *Client {
	var limiter *rate.Limiter
	if cfg.ReqPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.ReqPerMinute/60.0), 1)
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		log:        logger.Get().With("component", "duckduckgo"),
	}
}

// Search runs a query and returns up to MaxResults organic results.
func (c *Client) Search(ctx context.Context, query string) ([]websearch.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "empty search query")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(errors.ErrRateLimitExceeded, "search rate limiter wait")
		}
	}

	form := url.Values{
		"q":  []string{query},
		"kl": []string{c.cfg.Region},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "create search request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
		return nil, errors.Wrapf(errors.ErrRateLimitExceeded, "search endpoint returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrExternal, "search endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read search response")
	}

	results := parseResults(string(body), c.cfg.MaxResults)
	c.log.Debugf("Search %q returned %d results", query, len(results))
	return results, nil
}

// parseResults walks the result HTML. Each organic hit is an anchor with
// class result__a (title + target URL) followed by a result__snippet node.
func parseResults(page string, limit int) []websearch.Result {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}

	var results []websearch.Result
	var current *websearch.Result

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if limit > 0 && len(results) >= limit {
			return
		}

		if n.Type == html.ElementNode && n.Data == "a" {
			class := attr(n, "class")
			switch {
			case strings.Contains(class, "result__a"):
				if current != nil && current.Title != "" {
					results = append(results, *current)
				}
				current = &websearch.Result{
					Title: textContent(n),
					URL:   cleanURL(attr(n, "href")),
				}
			case strings.Contains(class, "result__snippet"):
				if current != nil {
					current.Snippet = textContent(n)
				}
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if current != nil && current.Title != "" && (limit <= 0 || len(results) < limit) {
		results = append(results, *current)
	}

	return results
}

// cleanURL unwraps the redirect links (//duckduckgo.com/l/?uddg=<target>).
func cleanURL(href string) string {
	if strings.Contains(href, "uddg=") {
		if u, err := url.Parse(href); err == nil {
			if target := u.Query().Get("uddg"); target != "" {
				return target
			}
		}
	}
	return href
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
