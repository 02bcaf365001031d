package app

import (
	"context"
	"time"

	"hotlob_places/internal/domain"
)

// FeaturedCacheKey holds the full featured list (photos included); callers'
// limit and photo flags are applied on the way out.
const FeaturedCacheKey = "featured:v1"

type QueryService struct {
	repo     domain.ReviewRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.ReviewRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

// ListFeatured returns featured reviews in featured order. limit <= 0 means all.
func (s *QueryService) ListFeatured(ctx context.Context, limit int, withPhotos bool) ([]domain.FeaturedReview, error) {
	var all []domain.FeaturedReview
	hit := false
	if s.cache != nil {
		hit, _ = s.cache.Get(ctx, FeaturedCacheKey, &all)
	}
	if !hit {
		rs, err := s.repo.ListFeatured(ctx)
		if err != nil {
			return nil, err
		}
		all = rs
		if s.cache != nil {
			_ = s.cache.Set(ctx, FeaturedCacheKey, all, int(s.cacheTTL.Seconds()))
		}
	}

	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	// copy so callers never alias the cached slice
	out := make([]domain.FeaturedReview, len(all))
	for i, r := range all {
		out[i] = r
		if withPhotos {
			out[i].Photos = append([]string(nil), r.Photos...)
		} else {
			out[i].Photos = nil
		}
	}
	return out, nil
}
