package marketdata

import "context"

// Provider exposes the market data lookups the pipeline depends on.
// Implementations return (nil, nil) style empties only through errors; a
// missing or delisted ticker surfaces as ErrNotFound so callers can degrade.
type Provider interface {
	// GetSnapshot fetches the current price and key metrics for a ticker
	GetSnapshot(ctx context.Context, ticker string) (*Snapshot, error)

	// GetHistory fetches up to `days` of daily bars for a ticker, oldest first
	GetHistory(ctx context.Context, ticker string, days int) ([]Bar, error)

	// SearchEquities resolves a free-text query to matching equity listings
	SearchEquities(ctx context.Context, query string) ([]EquityMatch, error)
}
