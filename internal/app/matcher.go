package app

import (
	"strings"
	"time"
	"unicode/utf8"

	"hotlob_places/internal/domain"
)

// SelectionPolicy holds the quality bar and sizing of a featured run.
type SelectionPolicy struct {
	Target         int           // featured set size
	Window         time.Duration // trailing recency window
	MinTextLength  int           // characters
	MinRating      int
	LanguagePrefix string
	MaxPhotos      int // attachments per review
}

func DefaultPolicy() SelectionPolicy {
	return SelectionPolicy{
		Target:         5,
		Window:         365 * 24 * time.Hour,
		MinTextLength:  80,
		MinRating:      4,
		LanguagePrefix: "en",
		MaxPhotos:      5,
	}
}

// Qualifies is the hard quality filter applied before any ranking.
func Qualifies(r domain.Review, p SelectionPolicy, now time.Time) bool {
	if r.Language == nil || !strings.HasPrefix(strings.ToLower(*r.Language), p.LanguagePrefix) {
		return false
	}
	if utf8.RuneCountInString(r.Text) < p.MinTextLength {
		return false
	}
	if r.Rating < p.MinRating {
		return false
	}
	return !r.PublishedAt.Before(now.Add(-p.Window))
}

// ResolveKey returns the author identity used to join reviews with photos.
func ResolveKey(r domain.Review) string {
	return domain.AuthorKey(r.AuthorURI, r.AuthorName)
}

// best review per author: rating, recency, length; id keeps it reproducible
var bestReviewOrder = []sortKey[domain.Review]{
	desc(byInt(func(r domain.Review) int { return r.Rating })),
	desc(byTime(func(r domain.Review) time.Time { return r.PublishedAt })),
	desc(byInt(func(r domain.Review) int { return utf8.RuneCountInString(r.Text) })),
	asc(byString(func(r domain.Review) string { return r.ID })),
}

// AuthorBuckets maps an author key to that author's qualifying reviews,
// best first. Built once per run and read-only afterwards.
type AuthorBuckets map[string][]domain.Review

// GroupReviewsByAuthor keeps only qualifying reviews and buckets them by ResolveKey.
func GroupReviewsByAuthor(reviews []domain.Review, p SelectionPolicy, now time.Time) AuthorBuckets {
	out := make(AuthorBuckets)
	for _, r := range reviews {
		if !Qualifies(r, p, now) {
			continue
		}
		k := ResolveKey(r)
		out[k] = append(out[k], r)
	}
	for _, rs := range out {
		sortByKeys(rs, bestReviewOrder)
	}
	return out
}

// Best returns the representative review of an author.
func (b AuthorBuckets) Best(key string) (domain.Review, bool) {
	rs := b[key]
	if len(rs) == 0 {
		return domain.Review{}, false
	}
	return rs[0], true
}

// All flattens every qualifying review.
func (b AuthorBuckets) All() []domain.Review {
	var out []domain.Review
	for _, rs := range b {
		out = append(out, rs...)
	}
	return out
}
