// Package duckduckgo searches the web through DuckDuckGo's HTML endpoint.
package duckduckgo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"medscan-backend/internal/search"
)

const (
	defaultEndpoint = "https://html.duckduckgo.com/html/"
	userAgent       = "Mozilla/5.0 (compatible; medscan/1.0)"
)

// Client implements search.Searcher.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New returns a client for the public endpoint.
func New() *Client {
	return NewWithEndpoint(defaultEndpoint, &http.Client{Timeout: 15 * time.Second})
}

// NewWithEndpoint returns a client for a custom endpoint (used by tests).
func NewWithEndpoint(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, httpClient: httpClient}
}

// Search returns up to limit results for query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, search.ErrEmptyQuery
	}
	if limit <= 0 {
		limit = search.DefaultLimit
	}

	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("duckduckgo %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo parse: %w", err)
	}
	return parseResults(doc, limit), nil
}

func parseResults(doc *html.Node, limit int) []search.Result {
	var (
		results []search.Result
		current *search.Result
	)
	flush := func() {
		if current != nil && current.URL != "" {
			results = append(results, *current)
		}
		current = nil
	}

	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				flush()
				if len(results) >= limit {
					return false
				}
				current = &search.Result{
					Title: collapse(textOf(n)),
					URL:   resolveHref(attr(n, "href")),
				}
				return true
			case hasClass(n, "result__snippet"):
				if current != nil {
					current.Snippet = collapse(textOf(n))
				}
				return true
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if !walk(child) {
				return false
			}
		}
		return true
	}
	walk(doc)
	if len(results) < limit {
		flush()
	}
	return results
}

// resolveHref unwraps DuckDuckGo redirect links (//duckduckgo.com/l/?uddg=<target>).
func resolveHref(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var _ search.Searcher = (*Client)(nil)
