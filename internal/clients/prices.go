package clients

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stockscout/stockscout/internal/common"
	"github.com/stockscout/stockscout/internal/config"
	"github.com/stockscout/stockscout/internal/interfaces"
)

// StooqFeed fetches latest close prices from the Stooq CSV quote API.
type StooqFeed struct {
	endpoint string
	client   *http.Client
	logger   *common.Logger
}

// NewStooqFeed creates a price feed from config.
func NewStooqFeed(logger *common.Logger, cfg *config.PricesConfig) *StooqFeed {
	return &StooqFeed{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

var _ interfaces.PriceFeed = (*StooqFeed)(nil)

// LatestPrice returns the most recent close for the symbol. US tickers
// without an exchange suffix get ".us" appended, per Stooq convention.
func (f *StooqFeed) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	sym := strings.ToLower(strings.TrimSpace(symbol))
	if sym == "" {
		return 0, fmt.Errorf("empty symbol")
	}
	if !strings.Contains(sym, ".") {
		sym += ".us"
	}

	url := fmt.Sprintf("%s/q/l/?s=%s&f=sd2t2ohlcv&h&e=csv", f.endpoint, sym)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build price request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price feed returned status %d", resp.StatusCode)
	}

	rows, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to parse price csv: %w", err)
	}
	// Header row then one quote row:
	// Symbol,Date,Time,Open,High,Low,Close,Volume
	if len(rows) < 2 || len(rows[1]) < 7 {
		return 0, fmt.Errorf("price feed returned no quote for %s", symbol)
	}

	closeField := rows[1][6]
	if closeField == "" || strings.EqualFold(closeField, "N/D") {
		return 0, fmt.Errorf("no price available for %s", symbol)
	}
	price, err := strconv.ParseFloat(closeField, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q for %s: %w", closeField, symbol, err)
	}
	return price, nil
}
