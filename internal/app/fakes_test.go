package app_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"hotlob_places/internal/domain"
)

// ---- places ----

type fakePlaces struct {
	details    map[string]domain.PlaceDetails
	reviews    map[string][]domain.Review
	photos     map[string][]domain.Photo
	detailsErr map[string]error
	reviewsErr map[string]error
	photosErr  map[string]error
	photoCalls []string
}

func newFakePlaces() *fakePlaces {
	return &fakePlaces{
		details:    map[string]domain.PlaceDetails{},
		reviews:    map[string][]domain.Review{},
		photos:     map[string][]domain.Photo{},
		detailsErr: map[string]error{},
		reviewsErr: map[string]error{},
		photosErr:  map[string]error{},
	}
}

func (f *fakePlaces) FetchDetails(ctx context.Context, placeID string) (domain.PlaceDetails, error) {
	if err := f.detailsErr[placeID]; err != nil {
		return domain.PlaceDetails{}, err
	}
	return f.details[placeID], nil
}

func (f *fakePlaces) FetchReviews(ctx context.Context, placeID string) ([]domain.Review, error) {
	if err := f.reviewsErr[placeID]; err != nil {
		return nil, err
	}
	return f.reviews[placeID], nil
}

func (f *fakePlaces) FetchPhotos(ctx context.Context, placeID string) ([]domain.Photo, error) {
	f.photoCalls = append(f.photoCalls, placeID)
	if err := f.photosErr[placeID]; err != nil {
		return nil, err
	}
	return f.photos[placeID], nil
}

// ---- repository ----

type fakeRepo struct {
	mu          sync.Mutex
	stores      []domain.Store
	placeCache  map[string]domain.PlaceCache
	reviews     map[string]*domain.Review // natural key -> row
	attachments map[string][]domain.ReviewPhotoAttachment
	seq         int

	listErr    error
	upsertErr  error
	replaceErr error
}

func newFakeRepo(stores ...domain.Store) *fakeRepo {
	return &fakeRepo{
		stores:      stores,
		placeCache:  map[string]domain.PlaceCache{},
		reviews:     map[string]*domain.Review{},
		attachments: map[string][]domain.ReviewPhotoAttachment{},
	}
}

func naturalKey(r domain.Review) string {
	return fmt.Sprintf("%s|%s|%d", r.StoreID, r.AuthorName, r.PublishedAt.UnixNano())
}

func (f *fakeRepo) ListStores(ctx context.Context) ([]domain.Store, error) {
	out := append([]domain.Store(nil), f.stores...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeRepo) FindStore(ctx context.Context, ref string) (domain.Store, error) {
	for _, s := range f.stores {
		if s.ID == ref || (s.PlaceID != nil && *s.PlaceID == ref) {
			return s, nil
		}
	}
	return domain.Store{}, domain.ErrNotFound
}

func (f *fakeRepo) UpsertPlaceCache(ctx context.Context, pc domain.PlaceCache) error {
	f.placeCache[pc.StoreID] = pc
	return nil
}

func (f *fakeRepo) UpsertReview(ctx context.Context, r domain.Review) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	k := naturalKey(r)
	if cur, ok := f.reviews[k]; ok {
		r.ID, r.IsFeatured, r.FeaturedOrder = cur.ID, cur.IsFeatured, cur.FeaturedOrder
	} else {
		f.seq++
		r.ID = fmt.Sprintf("r-%03d", f.seq)
		r.IsFeatured, r.FeaturedOrder = false, nil
	}
	f.reviews[k] = &r
	return nil
}

func (f *fakeRepo) ClearAllFeatured(ctx context.Context) error {
	for _, r := range f.reviews {
		if r.IsFeatured {
			r.IsFeatured, r.FeaturedOrder = false, nil
		}
	}
	return nil
}

func (f *fakeRepo) SetFeatured(ctx context.Context, ids []string) error {
	for i, id := range ids {
		for _, r := range f.reviews {
			if r.ID == id {
				o := i + 1
				r.IsFeatured, r.FeaturedOrder = true, &o
			}
		}
	}
	return nil
}

func (f *fakeRepo) ReplaceFeatured(ctx context.Context, ids []string) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	_ = f.ClearAllFeatured(ctx)
	return f.SetFeatured(ctx, ids)
}

func (f *fakeRepo) ReplaceReviewPhotos(ctx context.Context, reviewID string, photos []domain.ReviewPhotoAttachment) error {
	f.attachments[reviewID] = append([]domain.ReviewPhotoAttachment(nil), photos...)
	return nil
}

func (f *fakeRepo) ListReviewsSince(ctx context.Context, since time.Time) ([]domain.Review, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Review
	for _, r := range f.reviews {
		if !r.PublishedAt.Before(since) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) ListFeatured(ctx context.Context) ([]domain.FeaturedReview, error) {
	var rows []*domain.Review
	for _, r := range f.reviews {
		if r.IsFeatured {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return *rows[i].FeaturedOrder < *rows[j].FeaturedOrder })
	out := make([]domain.FeaturedReview, 0, len(rows))
	for _, r := range rows {
		fr := domain.FeaturedReview{AuthorName: r.AuthorName, AuthorPhotoURL: r.AuthorPhotoURL, Rating: r.Rating, Text: r.Text}
		for _, a := range f.attachments[r.ID] {
			fr.Photos = append(fr.Photos, a.URL)
		}
		out = append(out, fr)
	}
	return out, nil
}

// featured returns the flagged review ids in featured order.
func (f *fakeRepo) featured() []string {
	var rows []*domain.Review
	for _, r := range f.reviews {
		if r.IsFeatured {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return *rows[i].FeaturedOrder < *rows[j].FeaturedOrder })
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

func (f *fakeRepo) idByAuthor(name string) string {
	for _, r := range f.reviews {
		if r.AuthorName == name {
			return r.ID
		}
	}
	return ""
}

// ---- cache / lock ----

type fakeCache struct {
	store map[string]any
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if d, ok := dst.(*[]domain.FeaturedReview); ok {
		*d = v.([]domain.FeaturedReview)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

type busyLock struct{}

func (busyLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	return nil, domain.ErrRefreshInProgress
}

// ---- builders ----

var errBoom = errors.New("boom")

func ptr[T any](v T) *T { return &v }

func text(n int) string { return strings.Repeat("x", n) }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 12, 0, 0, 0, time.UTC) }

func contrib(id string) *string { return ptr("https://www.google.com/maps/contrib/" + id + "/reviews") }

type rv struct {
	id, author string
	uri        *string
	rating     int
	textLen    int
	lang       string
	at         time.Time
}

func (b rv) build() domain.Review {
	r := domain.Review{
		ID:          b.id,
		StoreID:     "s1",
		AuthorName:  b.author,
		AuthorURI:   b.uri,
		Rating:      b.rating,
		Text:        text(b.textLen),
		PublishedAt: b.at,
	}
	lang := b.lang
	if lang == "" {
		lang = "en"
	}
	r.Language = &lang
	return r
}
