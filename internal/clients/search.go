// Package clients holds the outbound service clients: web search, page
// extraction, text generation, market prices, and email delivery.
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
	"github.com/stockscout/stockscout/internal/interfaces"
	"github.com/stockscout/stockscout/internal/models"
)

// BingSearcher queries a Bing Web Search v7 compatible endpoint.
// An empty API key disables search: Search returns no results.
type BingSearcher struct {
	endpoint string
	key      string
	client   *http.Client
	logger   *common.Logger
}

// NewBingSearcher creates a searcher from config.
func NewBingSearcher(logger *common.Logger, cfg *config.SearchConfig) *BingSearcher {
	return &BingSearcher{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		key:      cfg.Key,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
}

var _ interfaces.WebSearcher = (*BingSearcher)(nil)

type bingResponse struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}

// Search runs a web search and returns up to topK results.
func (s *BingSearcher) Search(ctx context.Context, query string, topK int) ([]models.Source, error) {
	query = strings.TrimSpace(query)
	if query == "" || s.key == "" {
		return nil, nil
	}
	if topK < 1 {
		topK = 1
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(topK))
	params.Set("textDecorations", "false")
	params.Set("safeSearch", "Moderate")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.endpoint+"/v7.0/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.key)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var body bingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	var results []models.Source
	for _, it := range body.WebPages.Value {
		link := strings.TrimSpace(it.URL)
		if link == "" {
			continue
		}
		title := strings.TrimSpace(it.Name)
		if title == "" {
			title = link
		}
		results = append(results, models.Source{
			Title:   title,
			URL:     link,
			Excerpt: strings.TrimSpace(it.Snippet),
		})
		if len(results) >= topK {
			break
		}
	}

	s.logger.Debug().Str("query", query).Int("results", len(results)).Msg("web search complete")
	return results, nil
}
