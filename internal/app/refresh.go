package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"hotlob_places/internal/adapters/observability"
	"hotlob_places/internal/domain"
)

const runLockKey = "refresh:featured"

type StoreResult struct {
	StoreID string `json:"store_id"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type Summary struct {
	OK      int           `json:"ok"`
	Failed  int           `json:"failed"`
	Results []StoreResult `json:"results"`
}

func (s *Summary) add(r StoreResult) {
	s.Results = append(s.Results, r)
	if r.OK {
		s.OK++
	} else {
		s.Failed++
	}
}

type Options struct {
	Policy        SelectionPolicy
	PlaceCacheTTL time.Duration // place_cache / review expiry
	LockTTL       time.Duration
	Now           func() time.Time
}

// RefreshService refreshes cached place data and recomputes the featured
// review set. Runs that touch featured flags hold the run lock.
type RefreshService struct {
	places   domain.PlacesClient
	stores   domain.StoreRepository
	reviews  domain.ReviewRepository
	cache    domain.Cache
	lock     domain.Locker
	photos   *PhotoAggregator
	policy   SelectionPolicy
	placeTTL time.Duration
	lockTTL  time.Duration
	now      func() time.Time
	sf       singleflight.Group
	log      zerolog.Logger
}

func NewRefreshService(p domain.PlacesClient, s domain.StoreRepository, r domain.ReviewRepository,
	cache domain.Cache, lock domain.Locker, opts Options) *RefreshService {
	if opts.Policy.Target <= 0 {
		opts.Policy = DefaultPolicy()
	}
	if opts.PlaceCacheTTL <= 0 {
		opts.PlaceCacheTTL = 30 * 24 * time.Hour
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if lock == nil {
		lock = &localLock{}
	}
	return &RefreshService{
		places:   p,
		stores:   s,
		reviews:  r,
		cache:    cache,
		lock:     lock,
		photos:   NewPhotoAggregator(p),
		policy:   opts.Policy,
		placeTTL: opts.PlaceCacheTTL,
		lockTTL:  opts.LockTTL,
		now:      opts.Now,
		log:      observability.Component("refresh"),
	}
}

// ---- details only ----

// RefreshAllDetails updates the place cache of every store.
func (s *RefreshService) RefreshAllDetails(ctx context.Context) (Summary, error) {
	stores, err := s.stores.ListStores(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load stores: %w", err)
	}
	sum := Summary{Results: make([]StoreResult, 0, len(stores))}
	for _, st := range stores {
		res := s.refreshStore(ctx, st, false)
		observability.ObserveRefresh("details", res.OK)
		sum.add(res)
	}
	s.log.Info().Int("ok", sum.OK).Int("failed", sum.Failed).Msg("details refresh done")
	return sum, nil
}

// RefreshStoreDetails updates the place cache of one store.
func (s *RefreshService) RefreshStoreDetails(ctx context.Context, ref string) error {
	st, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}
	err = s.refreshDetails(ctx, st)
	observability.ObserveRefresh("details", err == nil)
	return err
}

// ---- full refresh ----

// RefreshAll refreshes every store, ingests reviews and recomputes the featured
// set once at the end. Concurrent callers in this process share one run.
func (s *RefreshService) RefreshAll(ctx context.Context) (Summary, error) {
	v, err, _ := s.sf.Do("all", func() (any, error) {
		return s.refreshAll(ctx)
	})
	if err != nil {
		return Summary{}, err
	}
	return v.(Summary), nil
}

func (s *RefreshService) refreshAll(ctx context.Context) (Summary, error) {
	release, err := s.lock.Acquire(ctx, runLockKey, s.lockTTL)
	if err != nil {
		return Summary{}, err
	}
	defer s.release(ctx, release)

	stores, err := s.stores.ListStores(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load stores: %w", err)
	}

	sum := Summary{Results: make([]StoreResult, 0, len(stores))}
	for _, st := range stores {
		res := s.refreshStore(ctx, st, true)
		observability.ObserveRefresh("full", res.OK)
		sum.add(res)
	}

	if _, err := s.recomputeFeatured(ctx, stores); err != nil {
		s.log.Error().Err(err).Msg("featured selection failed; previous featured set kept")
	}
	s.log.Info().Int("ok", sum.OK).Int("failed", sum.Failed).Msg("full refresh done")
	return sum, nil
}

// RefreshStore refreshes one store (by id or place id), ingests its reviews
// and recomputes the featured set against photos of all stores. Only the
// details step can fail the call.
func (s *RefreshService) RefreshStore(ctx context.Context, ref string) error {
	st, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}

	release, err := s.lock.Acquire(ctx, runLockKey, s.lockTTL)
	if err != nil {
		return err
	}
	defer s.release(ctx, release)

	if err := s.refreshDetails(ctx, st); err != nil {
		observability.ObserveRefresh("full", false)
		return err
	}
	observability.ObserveRefresh("full", true)
	s.ingestReviews(ctx, st)

	stores, err := s.stores.ListStores(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("store_id", st.ID).Msg("load stores for selection failed")
		return nil
	}
	if _, err := s.recomputeFeatured(ctx, stores); err != nil {
		s.log.Error().Err(err).Str("store_id", st.ID).Msg("featured selection failed; previous featured set kept")
	}
	return nil
}

// ---- steps ----

func (s *RefreshService) resolve(ctx context.Context, ref string) (domain.Store, error) {
	st, err := s.stores.FindStore(ctx, ref)
	if err != nil {
		return domain.Store{}, err
	}
	if st.PlaceID == nil || *st.PlaceID == "" {
		return domain.Store{}, domain.ErrMissingPlaceID
	}
	return st, nil
}

func (s *RefreshService) refreshStore(ctx context.Context, st domain.Store, withReviews bool) StoreResult {
	if st.PlaceID == nil || *st.PlaceID == "" {
		return StoreResult{StoreID: st.ID, Message: "missing place_id"}
	}
	if err := s.refreshDetails(ctx, st); err != nil {
		s.log.Warn().Err(err).Str("store_id", st.ID).Msg("store refresh failed")
		return StoreResult{StoreID: st.ID, Message: err.Error()}
	}
	if withReviews {
		s.ingestReviews(ctx, st)
	}
	return StoreResult{StoreID: st.ID, OK: true}
}

// refreshDetails is the one step whose failure fails the store.
func (s *RefreshService) refreshDetails(ctx context.Context, st domain.Store) error {
	d, err := s.places.FetchDetails(ctx, *st.PlaceID)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	return s.stores.UpsertPlaceCache(ctx, domain.PlaceCache{
		StoreID:          st.ID,
		Rating:           d.Rating,
		UserRatingsTotal: d.RatingCount,
		WeekdayText:      d.WeeklyHoursText,
		RefreshedAt:      now,
		ExpiresAt:        now.Add(s.placeTTL),
	})
}

// ingestReviews is best effort: fetch and per-row failures are only logged.
func (s *RefreshService) ingestReviews(ctx context.Context, st domain.Store) int {
	reviews, err := s.places.FetchReviews(ctx, *st.PlaceID)
	if err != nil {
		s.log.Warn().Err(err).Str("store_id", st.ID).Msg("review fetch failed")
		return 0
	}
	now := s.now().UTC()
	n := 0
	for _, r := range reviews {
		r.StoreID = st.ID
		r.FetchedAt = now
		r.ExpiresAt = now.Add(s.placeTTL)
		if err := s.reviews.UpsertReview(ctx, r); err != nil {
			s.log.Warn().Err(err).Str("store_id", st.ID).Str("author", r.AuthorName).Msg("review upsert failed")
			continue
		}
		n++
	}
	s.log.Debug().Str("store_id", st.ID).Int("count", n).Msg("reviews ingested")
	return n
}

// recomputeFeatured runs photo aggregation, selection, the featured flag swap
// and photo attachment. Callers hold the run lock.
func (s *RefreshService) recomputeFeatured(ctx context.Context, stores []domain.Store) (Selection, error) {
	now := s.now().UTC()
	ix := BuildPhotoIndex(s.photos.Collect(ctx, stores))

	reviews, err := s.reviews.ListReviewsSince(ctx, now.Add(-s.policy.Window))
	if err != nil {
		return Selection{}, fmt.Errorf("load recent reviews: %w", err)
	}

	sel := Select(reviews, ix, s.policy, now)
	if err := s.reviews.ReplaceFeatured(ctx, sel.ReviewIDs()); err != nil {
		return Selection{}, fmt.Errorf("replace featured: %w", err)
	}
	observability.ObserveSelection(len(sel.Entries))

	attached := s.attachPhotos(ctx, sel, ix)
	s.invalidateFeatured(ctx)

	s.log.Info().
		Int("photos", ix.Len()).
		Int("candidates", len(reviews)).
		Int("selected", len(sel.Entries)).
		Int("with_photos", attached).
		Int("target", s.policy.Target).
		Msg("featured reviews recomputed")
	return sel, nil
}

// attachPhotos replaces the photo set of each selected review that matched at
// least one photo. Reviews with no match keep what they had.
func (s *RefreshService) attachPhotos(ctx context.Context, sel Selection, ix PhotoIndex) int {
	n := 0
	for _, r := range sel.Reviews() {
		photos := MatchPhotos(r, ix.Photos(), s.policy.MaxPhotos)
		if len(photos) == 0 {
			continue
		}
		if err := s.reviews.ReplaceReviewPhotos(ctx, r.ID, Attachments(r.ID, photos)); err != nil {
			s.log.Warn().Err(err).Str("review_id", r.ID).Msg("photo attachment failed")
			continue
		}
		n++
	}
	return n
}

func (s *RefreshService) invalidateFeatured(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, FeaturedCacheKey); err != nil {
		s.log.Warn().Err(err).Msg("featured cache invalidation failed")
	}
}

func (s *RefreshService) release(ctx context.Context, release func(context.Context) error) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn().Err(err).Msg("run lock release failed")
	}
}

// localLock is the in-process fallback when no distributed lock is wired.
type localLock struct{ mu sync.Mutex }

func (l *localLock) Acquire(_ context.Context, _ string, _ time.Duration) (func(context.Context) error, error) {
	if !l.mu.TryLock() {
		return nil, domain.ErrRefreshInProgress
	}
	return func(context.Context) error { l.mu.Unlock(); return nil }, nil
}
