package research

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/stockscout/stockscout/internal/models"
)

// autoTrack asks the model whether the report recommends stocks, and
// registers each recommended symbol with its current price for later
// performance comparison. Every failure here is logged and swallowed:
// tracking is a side effect, never a reason to fail the run.
func (e *Engine) autoTrack(ctx context.Context, doc *models.Report, markdown string) {
	symbols, err := e.synth.ExtractTickers(ctx, markdown)
	if err != nil {
		e.logger.Warn().Err(err).Str("report_id", doc.ID).Msg("ticker extraction failed")
		return
	}
	if len(symbols) == 0 {
		e.logger.Debug().Str("report_id", doc.ID).Msg("report is not stock-related, nothing to track")
		return
	}

	// Date-only precision, taken from the report's creation time
	date := doc.CreatedAt
	if len(date) >= 10 {
		date = date[:10]
	}

	for _, sym := range symbols {
		price, err := e.prices.LatestPrice(ctx, sym)
		if err != nil {
			e.logger.Warn().Err(err).Str("symbol", sym).Msg("price unavailable, skipping tracked stock")
			continue
		}

		_, err = e.storage.TrackedStocks().Upsert(ctx, &models.TrackedStock{
			ID:                  uuid.New().String(),
			UserID:              doc.UserID,
			Symbol:              sym,
			ReportID:            doc.ID,
			ReportTitle:         doc.Title,
			RecommendationDate:  date,
			RecommendationPrice: price,
			CreatedAt:           models.FormatTime(time.Now()),
		})
		if err != nil {
			e.logger.Warn().Err(err).Str("symbol", sym).Msg("failed to record tracked stock")
			continue
		}
		e.logger.Info().
			Str("symbol", sym).
			Str("report_id", doc.ID).
			Str("price", strconv.FormatFloat(price, 'f', 2, 64)).
			Msg("tracked stock registered")
	}
}
