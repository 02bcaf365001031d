package app_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"hotlob_places/internal/app"
	"hotlob_places/internal/domain"
)

func fixedNow() time.Time { return now }

func newService(fp *fakePlaces, repo *fakeRepo, cache *fakeCache, lock domain.Locker) *app.RefreshService {
	return app.NewRefreshService(fp, repo, repo, cache, lock, app.Options{Now: fixedNow})
}

func fetched(author string, uri *string, rating, textLen int, at time.Time) domain.Review {
	r := rv{author: author, uri: uri, rating: rating, textLen: textLen, at: at}.build()
	r.ID, r.StoreID = "", ""
	return r
}

func TestRefreshAll_Summary(t *testing.T) {
	fp := newFakePlaces()
	fp.details["P1"] = domain.PlaceDetails{Rating: ptr(4.6), RatingCount: ptr(120), WeeklyHoursText: []string{"Monday: 9-5"}}
	fp.detailsErr["P3"] = domain.ErrFetchFailed
	fp.reviews["P1"] = []domain.Review{
		fetched("Cat", contrib("12345"), 5, 100, day(2024, 2, 1)),
		fetched("Dan", nil, 5, 300, day(2024, 5, 1)),
		fetched("Old", nil, 5, 300, day(2022, 5, 1)),
	}
	fp.photos["P1"] = []domain.Photo{photoBy("places/P1/photos/a", contrib("12345"), "Cat")}

	repo := newFakeRepo(
		domain.Store{ID: "s1", Name: "Alpha", PlaceID: ptr("P1")},
		domain.Store{ID: "s2", Name: "Beta"},
		domain.Store{ID: "s3", Name: "Gamma", PlaceID: ptr("P3")},
	)
	cache := &fakeCache{store: map[string]any{app.FeaturedCacheKey: []domain.FeaturedReview{}}}

	sum, err := newService(fp, repo, cache, nil).RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	if sum.OK != 1 || sum.Failed != 2 || len(sum.Results) != 3 {
		t.Fatalf("summary = %+v", sum)
	}
	if r := sum.Results[1]; r.StoreID != "s2" || r.OK || r.Message != "missing place_id" {
		t.Fatalf("s2 result = %+v", r)
	}
	if r := sum.Results[2]; r.OK || r.Message == "" {
		t.Fatalf("s3 result = %+v", r)
	}

	pc, ok := repo.placeCache["s1"]
	if !ok || *pc.Rating != 4.6 || !pc.ExpiresAt.Equal(now.Add(30*24*time.Hour)) {
		t.Fatalf("place cache = %+v", pc)
	}
	if len(repo.reviews) != 3 {
		t.Fatalf("stored reviews = %d, want 3", len(repo.reviews))
	}

	want := []string{repo.idByAuthor("Cat"), repo.idByAuthor("Dan")}
	if got := repo.featured(); !reflect.DeepEqual(got, want) {
		t.Fatalf("featured = %v, want %v", got, want)
	}
	att := repo.attachments[repo.idByAuthor("Cat")]
	if len(att) != 1 || att[0].ResourceName != "places/P1/photos/a" || att[0].DisplayOrder != 1 {
		t.Fatalf("attachments = %+v", att)
	}
	if _, ok := repo.attachments[repo.idByAuthor("Dan")]; ok {
		t.Fatal("Dan has no photos and should have no attachment write")
	}
	if len(cache.dels) != 1 || cache.dels[0] != app.FeaturedCacheKey {
		t.Fatalf("cache dels = %v", cache.dels)
	}
}

func TestRefreshAll_FlagsAreExclusive(t *testing.T) {
	fp := newFakePlaces()
	fp.reviews["P1"] = []domain.Review{fetched("Ann", nil, 5, 90, day(2024, 1, 1))}
	repo := newFakeRepo(domain.Store{ID: "s1", Name: "A", PlaceID: ptr("P1")})
	svc := newService(fp, repo, nil, nil)

	if _, err := svc.RefreshAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := repo.featured()
	if len(first) != 1 {
		t.Fatalf("featured = %v", first)
	}

	// Ann's review now fails the quality bar; Bo takes the only slot.
	fp.reviews["P1"] = []domain.Review{
		fetched("Ann", nil, 3, 90, day(2024, 1, 1)),
		fetched("Bo", nil, 4, 90, day(2024, 2, 1)),
	}
	if _, err := svc.RefreshAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := repo.featured()
	if want := []string{repo.idByAuthor("Bo")}; !reflect.DeepEqual(got, want) {
		t.Fatalf("featured = %v, want %v", got, want)
	}
	if repo.idByAuthor("Ann") != first[0] {
		t.Fatal("re-ingestion must keep the review id")
	}
}

func TestRefreshAll_ReviewAndPhotoFailuresTolerated(t *testing.T) {
	fp := newFakePlaces()
	fp.reviewsErr["P1"] = domain.ErrFetchFailed
	fp.photosErr["P2"] = domain.ErrFetchFailed
	fp.reviews["P2"] = []domain.Review{fetched("Eli", nil, 5, 90, day(2024, 4, 1))}
	repo := newFakeRepo(
		domain.Store{ID: "s1", Name: "A", PlaceID: ptr("P1")},
		domain.Store{ID: "s2", Name: "B", PlaceID: ptr("P2")},
	)

	sum, err := newService(fp, repo, nil, nil).RefreshAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.OK != 2 || sum.Failed != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if got := repo.featured(); len(got) != 1 {
		t.Fatalf("featured = %v", got)
	}
}

func TestRefreshAll_UpsertFailureSkipsReview(t *testing.T) {
	fp := newFakePlaces()
	fp.reviews["P1"] = []domain.Review{fetched("Ann", nil, 5, 90, day(2024, 1, 1))}
	repo := newFakeRepo(domain.Store{ID: "s1", Name: "A", PlaceID: ptr("P1")})
	repo.upsertErr = errBoom

	sum, err := newService(fp, repo, nil, nil).RefreshAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.OK != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(repo.reviews) != 0 || len(repo.featured()) != 0 {
		t.Fatal("nothing should be stored")
	}
}

func TestRefreshAll_SelectionFailureKeepsPreviousSet(t *testing.T) {
	fp := newFakePlaces()
	fp.reviews["P1"] = []domain.Review{fetched("Ann", nil, 5, 90, day(2024, 1, 1))}
	repo := newFakeRepo(domain.Store{ID: "s1", Name: "A", PlaceID: ptr("P1")})
	cache := &fakeCache{}
	svc := newService(fp, repo, cache, nil)

	if _, err := svc.RefreshAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := repo.featured()

	repo.listErr = errBoom
	sum, err := svc.RefreshAll(context.Background())
	if err != nil || sum.OK != 1 {
		t.Fatalf("sum=%+v err=%v", sum, err)
	}
	if got := repo.featured(); !reflect.DeepEqual(got, before) {
		t.Fatalf("featured = %v, want %v", got, before)
	}
	if len(cache.dels) != 1 {
		t.Fatalf("cache should only be invalidated by the successful run, dels = %v", cache.dels)
	}
}

func TestRefreshAll_EmptySelectionClearsFlags(t *testing.T) {
	fp := newFakePlaces()
	fp.reviews["P1"] = []domain.Review{fetched("Ann", nil, 5, 90, day(2024, 1, 1))}
	repo := newFakeRepo(domain.Store{ID: "s1", Name: "A", PlaceID: ptr("P1")})
	svc := app.NewRefreshService(fp, repo, repo, nil, nil, app.Options{Now: fixedNow})
	if _, err := svc.RefreshAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	later := app.NewRefreshService(fp, repo, repo, nil, nil, app.Options{
		Now: func() time.Time { return now.AddDate(2, 0, 0) },
	})
	if _, err := later.RefreshAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := repo.featured(); len(got) != 0 {
		t.Fatalf("featured = %v, want none", got)
	}
}

func TestRefreshAll_LockBusy(t *testing.T) {
	repo := newFakeRepo(domain.Store{ID: "s1", Name: "A", PlaceID: ptr("P1")})
	_, err := newService(newFakePlaces(), repo, nil, busyLock{}).RefreshAll(context.Background())
	if !errors.Is(err, domain.ErrRefreshInProgress) {
		t.Fatalf("err = %v, want ErrRefreshInProgress", err)
	}
	if len(repo.placeCache) != 0 {
		t.Fatal("no store should be refreshed without the lock")
	}
}

func TestRefreshStore(t *testing.T) {
	fp := newFakePlaces()
	fp.detailsErr["BAD"] = domain.ErrFetchFailed
	fp.reviews["P1"] = []domain.Review{fetched("Ann", nil, 5, 90, day(2024, 1, 1))}
	// cross-store photo attributes the store-1 review
	fp.photos["P2"] = []domain.Photo{photoBy("places/P2/photos/z", nil, "ann")}
	repo := newFakeRepo(
		domain.Store{ID: "s1", Name: "A", PlaceID: ptr("P1")},
		domain.Store{ID: "s2", Name: "B", PlaceID: ptr("P2")},
		domain.Store{ID: "s3", Name: "C"},
		domain.Store{ID: "s4", Name: "D", PlaceID: ptr("BAD")},
	)
	svc := newService(fp, repo, nil, nil)
	ctx := context.Background()

	if err := svc.RefreshStore(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown: err = %v", err)
	}
	if err := svc.RefreshStore(ctx, "s3"); !errors.Is(err, domain.ErrMissingPlaceID) {
		t.Fatalf("no place id: err = %v", err)
	}
	if err := svc.RefreshStore(ctx, "s4"); !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("details failure: err = %v", err)
	}

	if err := svc.RefreshStore(ctx, "P1"); err != nil {
		t.Fatalf("by place id: %v", err)
	}
	if _, ok := repo.placeCache["s1"]; !ok {
		t.Fatal("place cache not written")
	}
	if _, ok := repo.placeCache["s2"]; ok {
		t.Fatal("only the requested store's details are refreshed")
	}
	id := repo.idByAuthor("Ann")
	if got := repo.featured(); !reflect.DeepEqual(got, []string{id}) {
		t.Fatalf("featured = %v", got)
	}
	if att := repo.attachments[id]; len(att) != 1 || att[0].ResourceName != "places/P2/photos/z" {
		t.Fatalf("attachments = %+v", att)
	}
}

func TestRefreshStore_SelectionFailureDoesNotFail(t *testing.T) {
	repo := newFakeRepo(domain.Store{ID: "s1", Name: "A", PlaceID: ptr("P1")})
	repo.replaceErr = errBoom
	if err := newService(newFakePlaces(), repo, nil, nil).RefreshStore(context.Background(), "s1"); err != nil {
		t.Fatalf("err = %v", err)
	}
}

func TestRefreshAllDetails(t *testing.T) {
	fp := newFakePlaces()
	fp.details["P1"] = domain.PlaceDetails{RatingCount: ptr(3)}
	fp.reviews["P1"] = []domain.Review{fetched("Ann", nil, 5, 90, day(2024, 1, 1))}
	repo := newFakeRepo(
		domain.Store{ID: "s1", Name: "A", PlaceID: ptr("P1")},
		domain.Store{ID: "s2", Name: "B"},
	)
	svc := newService(fp, repo, nil, busyLock{})

	sum, err := svc.RefreshAllDetails(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.OK != 1 || sum.Failed != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(repo.reviews) != 0 {
		t.Fatal("details refresh must not ingest reviews")
	}
	if err := svc.RefreshStoreDetails(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}
}
