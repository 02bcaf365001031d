package domain

import (
	"context"
	"time"
)

// PlacesClient is the external source adapter. Reviews come back with an empty
// StoreID; the caller owns the store association.
type PlacesClient interface {
	FetchDetails(ctx context.Context, placeID string) (PlaceDetails, error)
	FetchReviews(ctx context.Context, placeID string) ([]Review, error)
	FetchPhotos(ctx context.Context, placeID string) ([]Photo, error)
}

type StoreRepository interface {
	ListStores(ctx context.Context) ([]Store, error)
	// FindStore resolves either a store id (UUID) or a google place id.
	FindStore(ctx context.Context, ref string) (Store, error)
	UpsertPlaceCache(ctx context.Context, pc PlaceCache) error
}

type ReviewRepository interface {
	// Write paths
	UpsertReview(ctx context.Context, r Review) error
	ClearAllFeatured(ctx context.Context) error
	SetFeatured(ctx context.Context, orderedIDs []string) error
	// ReplaceFeatured clears every featured flag and applies orderedIDs atomically.
	ReplaceFeatured(ctx context.Context, orderedIDs []string) error
	ReplaceReviewPhotos(ctx context.Context, reviewID string, photos []ReviewPhotoAttachment) error

	// Read paths
	ListReviewsSince(ctx context.Context, since time.Time) ([]Review, error)
	ListFeatured(ctx context.Context) ([]FeaturedReview, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Locker serializes refresh runs across processes. Acquire returns
// ErrRefreshInProgress when the key is already held.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}
