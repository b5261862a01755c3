// Package search defines the web search capability offered to the model as a tool.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultLimit caps the number of results handed back to the model.
const DefaultLimit = 5

var ErrEmptyQuery = errors.New("empty search query")

// Result is one web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Format renders results as a compact numbered list for a tool response.
func Format(results []Result) string {
	if len(results) == 0 {
		return "no results"
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s\n   %s", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "\n   %s", r.Snippet)
		}
	}
	return b.String()
}

// Disabled is a Searcher that refuses every query.
type Disabled struct{}

func (Disabled) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	_ = ctx
	_ = query
	_ = limit
	return nil, errors.New("web search is disabled")
}
