package app

import (
	"hotlob_places/internal/domain"
)

// MatchPhotos picks the photos that illustrate a review from the cross-store
// pool. A photo matches on contributor id, or failing that on display name.
// Results are de-duplicated by resource name and capped at limit.
func MatchPhotos(r domain.Review, pool []domain.StorePhoto, limit int) []domain.Photo {
	var id string
	var hasID bool
	if r.AuthorURI != nil {
		id, hasID = domain.ContributorID(*r.AuthorURI)
	}
	name := domain.NormalizeName(r.AuthorName)

	var out []domain.Photo
	seen := make(map[string]struct{})
	for _, sp := range pool {
		if len(out) >= limit {
			break
		}
		if !photoMatches(sp.Photo, id, hasID, name) {
			continue
		}
		if _, dup := seen[sp.Photo.ResourceName]; dup {
			continue
		}
		seen[sp.Photo.ResourceName] = struct{}{}
		out = append(out, sp.Photo)
	}
	return out
}

func photoMatches(p domain.Photo, id string, hasID bool, name string) bool {
	if hasID {
		for _, uri := range p.ContributorURIs {
			if cid, ok := domain.ContributorID(uri); ok && cid == id {
				return true
			}
		}
	}
	if name == "" {
		return false
	}
	for _, n := range p.ContributorNames {
		if domain.NormalizeName(n) == name {
			return true
		}
	}
	return false
}

// Attachments numbers photos in match order, starting at 1.
func Attachments(reviewID string, photos []domain.Photo) []domain.ReviewPhotoAttachment {
	out := make([]domain.ReviewPhotoAttachment, len(photos))
	for i, p := range photos {
		out[i] = domain.ReviewPhotoAttachment{
			ReviewID:     reviewID,
			ResourceName: p.ResourceName,
			URL:          p.URL,
			Width:        p.Width,
			Height:       p.Height,
			DisplayOrder: i + 1,
		}
	}
	return out
}
