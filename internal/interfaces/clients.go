package interfaces

import (
	"context"
	"time"

	"github.com/stockscout/stockscout/internal/models"
)

// WebSearcher runs a web search and returns ranked results.
type WebSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]models.Source, error)
}

// Extractor fetches a URL and reduces it to readable text.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// SynthesisRequest carries everything the synthesis stage needs.
type SynthesisRequest struct {
	Prompt       string
	Symbols      []string
	Context      []models.SourceGroup
	DeepResearch bool
}

// Synthesizer turns fetched context into a finished report.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*models.SynthesizedReport, error)
	// ExtractTickers pulls recommended stock symbols out of report text,
	// for auto-registration of tracked stocks.
	ExtractTickers(ctx context.Context, text string) ([]string, error)
}

// PriceFeed returns the latest price for a symbol.
type PriceFeed interface {
	LatestPrice(ctx context.Context, symbol string) (float64, error)
}

// Attachment is one file attached to an outgoing email.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// EmailMessage is a fully composed outgoing email.
type EmailMessage struct {
	To          []string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// EmailSender delivers email.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// ObjectStore persists report artifacts under hierarchical paths
// ({userId}/{scheduleId}/{runId}/report.{md,html,pdf}).
type ObjectStore interface {
	Put(ctx context.Context, path, contentType string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, string, error)
	Delete(ctx context.Context, path string) error
	// DeletePrefix removes every object under the given path prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	// SignedURL returns a time-limited read URL for the path.
	SignedURL(path string, ttl time.Duration) (string, error)
	// VerifyToken checks a signed-URL token for the path.
	VerifyToken(path, token string) bool
}
