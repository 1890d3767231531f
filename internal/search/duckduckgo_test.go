package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

const ddgFixture = `<!DOCTYPE html>
<html><body>
<div class="results">
  <div class="result results_links results_links_deep web-result">
    <h2 class="result__title">
      <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Faapl-earnings&amp;rut=abc">Apple Q3 Earnings Beat Expectations</a>
    </h2>
    <a class="result__snippet" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Faapl-earnings">Apple reported quarterly revenue of $85.8 billion, up 5 percent year over year.</a>
  </div>
  <div class="result results_links results_links_deep web-result">
    <h2 class="result__title">
      <a rel="nofollow" class="result__a" href="https://example.org/markets">Markets Today: Tech Rally Continues</a>
    </h2>
    <a class="result__snippet" href="https://example.org/markets">Tech stocks led gains as investors weighed rate cut odds.</a>
  </div>
  <div class="result results_links results_links_deep web-result">
    <h2 class="result__title">
      <a rel="nofollow" class="result__a" href="https://example.net/third">Third Result</a>
    </h2>
  </div>
</div>
</body></html>`

func TestParseDuckDuckGoResults(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(ddgFixture))
	if err != nil {
		t.Fatal(err)
	}

	results := parseDuckDuckGoResults(doc, 5)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	if results[0].Title != "Apple Q3 Earnings Beat Expectations" {
		t.Errorf("title = %q", results[0].Title)
	}
	if results[0].URL != "https://example.com/aapl-earnings" {
		t.Errorf("redirect not unwrapped: %q", results[0].URL)
	}
	if !strings.Contains(results[0].Snippet, "85.8 billion") {
		t.Errorf("snippet = %q", results[0].Snippet)
	}

	if results[1].URL != "https://example.org/markets" {
		t.Errorf("plain URL mangled: %q", results[1].URL)
	}

	// Third result has no snippet but still parses
	if results[2].Title != "Third Result" || results[2].Snippet != "" {
		t.Errorf("result 3 = %+v", results[2])
	}
}

func TestParseDuckDuckGoResults_Limit(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(ddgFixture))
	if err != nil {
		t.Fatal(err)
	}

	results := parseDuckDuckGoResults(doc, 1)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
}

func TestDuckDuckGoSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "AAPL stock news" {
			t.Errorf("query param = %q", got)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(ddgFixture))
	}))
	defer srv.Close()

	d := NewDuckDuckGo()
	d.baseURL = srv.URL

	results, err := d.Search(context.Background(), "AAPL stock news", Options{Count: 2})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
}

func TestDuckDuckGoSearch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDuckDuckGo()
	d.baseURL = srv.URL

	if _, err := d.Search(context.Background(), "anything", Options{}); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestResolveRedirect(t *testing.T) {
	tests := []struct {
		name string
		href string
		want string
	}{
		{"uddg redirect", "//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage&rut=x", "https://example.com/page"},
		{"plain https", "https://example.com/page", "https://example.com/page"},
		{"protocol relative", "//example.com/page", "https://example.com/page"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveRedirect(tt.href); got != tt.want {
				t.Errorf("resolveRedirect(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}
