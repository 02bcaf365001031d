package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrFetchFailed       = errors.New("fetch failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrMissingPlaceID    = errors.New("store missing google_place_id")
	ErrRefreshInProgress = errors.New("refresh already in progress")
)
