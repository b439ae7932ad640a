package coingecko

import (
	"context"

	"github.com/rs/zerolog"
)

// Fetcher is the batch price source the refresher pulls from.
type Fetcher interface {
	FetchPrices(ctx context.Context, ids []string) (map[string]Price, error)
}

// Refresher feeds the cache from a batch price source. A failed fetch leaves
// the previous cache contents in place.
type Refresher struct {
	fetcher Fetcher
	mapping *Mapping
	cache   *Cache
	logger  zerolog.Logger
}

// NewRefresher constructs a Refresher.
func NewRefresher(fetcher Fetcher, mapping *Mapping, cache *Cache, logger zerolog.Logger) *Refresher {
	return &Refresher{
		fetcher: fetcher,
		mapping: mapping,
		cache:   cache,
		logger:  logger.With().Str("component", "reference_refresher").Logger(),
	}
}

// Refresh fetches every tracked reference price and replaces the cache.
func (r *Refresher) Refresh(ctx context.Context) error {
	byID, err := r.fetcher.FetchPrices(ctx, r.mapping.IDs())
	if err != nil {
		r.logger.Error().Err(err).Msg("reference price fetch failed; keeping previous cache")
		return nil
	}

	byBase := make(map[string]Price, len(byID))
	for id, price := range byID {
		if base, ok := r.mapping.SymbolForID(id); ok {
			byBase[base] = price
		}
	}

	r.cache.Replace(byBase)
	r.logger.Debug().Int("prices", len(byBase)).Msg("reference cache replaced")
	return nil
}
