package duckduckgo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"medscan-backend/internal/search"
)

const resultsPage = `<!DOCTYPE html>
<html><body>
<div class="results">
  <div class="result results_links web-result">
    <h2 class="result__title">
      <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fradiopaedia.org%2Farticles%2Fpneumonia&amp;rut=abc">Pneumonia | <b>Radiology</b> Reference</a>
    </h2>
    <a class="result__snippet" href="#">Consolidation   of the lung
      parenchyma.</a>
  </div>
  <div class="result results_links web-result">
    <h2 class="result__title">
      <a rel="nofollow" class="result__a" href="https://www.ncbi.nlm.nih.gov/books/NBK525774/">Pneumonia - StatPearls</a>
    </h2>
    <a class="result__snippet" href="#">Treatment protocols.</a>
  </div>
  <div class="result results_links web-result">
    <h2 class="result__title">
      <a rel="nofollow" class="result__a" href="https://example.org/third">Third</a>
    </h2>
  </div>
</div>
</body></html>`

func TestSearchParsesResults(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotQuery = r.PostForm.Get("q")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	client := NewWithEndpoint(srv.URL, srv.Client())
	results, err := client.Search(context.Background(), " lobar pneumonia x-ray ", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotQuery != "lobar pneumonia x-ray" {
		t.Fatalf("unexpected query: %q", gotQuery)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].URL != "https://radiopaedia.org/articles/pneumonia" {
		t.Fatalf("expected unwrapped redirect, got %s", results[0].URL)
	}
	if results[0].Title != "Pneumonia | Radiology Reference" {
		t.Fatalf("unexpected title: %q", results[0].Title)
	}
	if results[0].Snippet != "Consolidation of the lung parenchyma." {
		t.Fatalf("unexpected snippet: %q", results[0].Snippet)
	}
	if results[1].URL != "https://www.ncbi.nlm.nih.gov/books/NBK525774/" {
		t.Fatalf("unexpected second url: %s", results[1].URL)
	}
}

func TestSearchKeepsTrailingResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	results, err := NewWithEndpoint(srv.URL, srv.Client()).Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 || results[2].Title != "Third" || results[2].Snippet != "" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	_, err := New().Search(context.Background(), "  ", 3)
	if !errors.Is(err, search.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestSearchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := NewWithEndpoint(srv.URL, srv.Client()).Search(context.Background(), "q", 3); err == nil {
		t.Fatalf("expected error on non-200")
	}
}
