package domain

type Photo struct {
	ResourceName     string // places/{place_id}/photos/{photo_id}
	URL              string
	Width            int
	Height           int
	ContributorURIs  []string
	ContributorNames []string
}

// StorePhoto ties a fetched photo back to the store it was listed under.
type StorePhoto struct {
	StoreID string
	Photo   Photo
}

type ReviewPhotoAttachment struct {
	ReviewID     string
	ResourceName string
	URL          string
	Width        int
	Height       int
	DisplayOrder int // 1-based
}
