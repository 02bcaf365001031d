package domain

import "time"

type Store struct {
	ID      string
	Name    string
	PlaceID *string // google_place_id; nil when not configured
}

// PlaceDetails is fetched fresh on every refresh cycle.
type PlaceDetails struct {
	Rating          *float64
	RatingCount     *int
	WeeklyHoursText []string // 7 entries, Monday first, or nil
}

type PlaceCache struct {
	StoreID          string
	Rating           *float64
	UserRatingsTotal *int
	WeekdayText      []string
	RefreshedAt      time.Time
	ExpiresAt        time.Time
}
