package domain

import "time"

// Review is one normalized third-party review. Per store it is identified by
// (AuthorName, PublishedAt); re-ingesting the same pair overwrites the row.
type Review struct {
	ID               string
	ExternalReviewID *string
	StoreID          string
	AuthorName       string
	AuthorPhotoURL   *string
	AuthorURI        *string // contributor profile URI
	Rating           int     // 0..5
	Text             string
	Language         *string
	PublishedAt      time.Time

	FetchedAt time.Time
	ExpiresAt time.Time

	// owned by the selection run; never written by ingestion upserts
	IsFeatured    bool
	FeaturedOrder *int
}

// FeaturedReview is the read model served to the site.
type FeaturedReview struct {
	AuthorName     string   `json:"author_name"`
	AuthorPhotoURL *string  `json:"author_photo_url"`
	Rating         int      `json:"rating"`
	Text           string   `json:"review_text"`
	Photos         []string `json:"photos,omitempty"`
}
