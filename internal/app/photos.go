package app

import (
	"context"

	"github.com/rs/zerolog"

	"hotlob_places/internal/adapters/observability"
	"hotlob_places/internal/domain"
)

// PhotoAggregator fetches photos for every store, one store at a time. Spacing
// between calls comes from the client's rate limiter.
type PhotoAggregator struct {
	places domain.PlacesClient
	log    zerolog.Logger
}

func NewPhotoAggregator(p domain.PlacesClient) *PhotoAggregator {
	return &PhotoAggregator{places: p, log: observability.Component("photos")}
}

// Collect returns every fetched photo tagged with its store. A store whose
// fetch fails contributes nothing; the others still count.
func (a *PhotoAggregator) Collect(ctx context.Context, stores []domain.Store) []domain.StorePhoto {
	var out []domain.StorePhoto
	for _, st := range stores {
		if st.PlaceID == nil || *st.PlaceID == "" {
			continue
		}
		photos, err := a.places.FetchPhotos(ctx, *st.PlaceID)
		if err != nil {
			a.log.Warn().Err(err).Str("store_id", st.ID).Msg("photo fetch failed")
			continue
		}
		for _, p := range photos {
			out = append(out, domain.StorePhoto{StoreID: st.ID, Photo: p})
		}
	}
	return out
}

// PhotoIndex is the cross-store photo ownership view of one run.
type PhotoIndex struct {
	photos       []domain.StorePhoto
	countByID    map[string]int
	contributors []string // first-seen order
	names        []string // normalized, first-seen order
}

func BuildPhotoIndex(photos []domain.StorePhoto) PhotoIndex {
	ix := PhotoIndex{
		photos:    photos,
		countByID: make(map[string]int),
	}
	seenName := make(map[string]struct{})
	for _, sp := range photos {
		for _, uri := range sp.Photo.ContributorURIs {
			id, ok := domain.ContributorID(uri)
			if !ok {
				continue
			}
			if _, seen := ix.countByID[id]; !seen {
				ix.contributors = append(ix.contributors, id)
			}
			ix.countByID[id]++
		}
		for _, n := range sp.Photo.ContributorNames {
			k := domain.NormalizeName(n)
			if k == "" {
				continue
			}
			if _, seen := seenName[k]; !seen {
				seenName[k] = struct{}{}
				ix.names = append(ix.names, k)
			}
		}
	}
	return ix
}

// PhotoCount is the number of photos attributed to a contributor id.
func (ix PhotoIndex) PhotoCount(contributorID string) int { return ix.countByID[contributorID] }

func (ix PhotoIndex) Contributors() []string { return ix.contributors }

func (ix PhotoIndex) Names() []string { return ix.names }

func (ix PhotoIndex) Photos() []domain.StorePhoto { return ix.photos }

func (ix PhotoIndex) Len() int { return len(ix.photos) }
