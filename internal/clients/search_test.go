package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
)

func TestBingSearcher_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "test-key" {
			t.Errorf("missing subscription key header, got %q", got)
		}
		if got := r.URL.Query().Get("q"); got != "AAPL stock news" {
			t.Errorf("unexpected query: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"webPages":{"value":[
			{"name":"Apple Q1 Results","url":"https://example.com/a","snippet":"Record quarter"},
			{"name":"","url":"https://example.com/b","snippet":"Analysis"},
			{"name":"No link","url":"","snippet":"skip me"}
		]}}`))
	}))
	defer srv.Close()

	s := NewBingSearcher(common.NewSilentLogger(), &config.SearchConfig{
		Endpoint: srv.URL,
		Key:      "test-key",
	})

	results, err := s.Search(context.Background(), "AAPL stock news", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Title != "Apple Q1 Results" || results[0].Excerpt != "Record quarter" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	// Missing title falls back to the URL
	if results[1].Title != "https://example.com/b" {
		t.Errorf("expected URL as title fallback, got %q", results[1].Title)
	}
}

func TestBingSearcher_DisabledWithoutKey(t *testing.T) {
	s := NewBingSearcher(common.NewSilentLogger(), &config.SearchConfig{
		Endpoint: "https://api.bing.microsoft.com",
	})

	results, err := s.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if results != nil {
		t.Errorf("expected no results without key, got %+v", results)
	}
}

func TestBingSearcher_TopKCapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"webPages":{"value":[
			{"name":"one","url":"https://a"},{"name":"two","url":"https://b"},{"name":"three","url":"https://c"}
		]}}`))
	}))
	defer srv.Close()

	s := NewBingSearcher(common.NewSilentLogger(), &config.SearchConfig{Endpoint: srv.URL, Key: "k"})
	results, err := s.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected topK cap of 2, got %d", len(results))
	}
}

func TestPageExtractor_Extract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>T</title><style>p{color:red}</style></head>
<body><nav>menu menu</nav><script>var x=1;</script>
<p>Apple   reported record
revenue.</p><footer>footer text</footer></body></html>`))
	}))
	defer srv.Close()

	e := NewPageExtractor()
	text, err := e.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !strings.Contains(text, "Apple reported record revenue.") {
		t.Errorf("expected collapsed body text, got %q", text)
	}
	for _, junk := range []string{"var x=1", "menu menu", "footer text", "color:red"} {
		if strings.Contains(text, junk) {
			t.Errorf("expected %q stripped, got %q", junk, text)
		}
	}
}

func TestPageExtractor_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	e := NewPageExtractor()
	if _, err := e.Extract(context.Background(), srv.URL); err == nil {
		t.Error("expected error for non-200 response")
	}
}
