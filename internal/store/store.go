// Package store persists final episode results keyed by normalized
// identity. Two interchangeable backends exist: a JSON file store for
// zero-infrastructure deployments and a Postgres store.
package store

import (
	"context"

	"podcast-adscan/internal/types"
)

// Store is the result cache contract. Put has upsert semantics; Get misses
// return (nil, false, nil) rather than an error.
type Store interface {
	Get(ctx context.Context, normalizedURL string) (*types.EpisodeResult, bool, error)
	Put(ctx context.Context, result *types.EpisodeResult) error
	List(ctx context.Context) ([]types.EpisodeResult, error)
}
