package app

import (
	"time"
	"unicode/utf8"

	"hotlob_places/internal/domain"
)

// Candidate is one author's representative review in the featured ranking.
type Candidate struct {
	AuthorKey   string
	Review      domain.Review
	PhotoCount  int
	PhotoBacked bool
}

var candidateOrder = []sortKey[Candidate]{
	desc(byInt(func(c Candidate) int { return c.Review.Rating })),
	desc(byInt(func(c Candidate) int { return c.PhotoCount })),
	desc(byTime(func(c Candidate) time.Time { return c.Review.PublishedAt })),
	desc(byInt(func(c Candidate) int { return utf8.RuneCountInString(c.Review.Text) })),
	asc(byString(func(c Candidate) string { return c.Review.ID })),
}

var supplementOrder = []sortKey[domain.Review]{
	desc(byInt(func(r domain.Review) int { return r.Rating })),
	desc(byTime(func(r domain.Review) time.Time { return r.PublishedAt })),
	asc(byString(func(r domain.Review) string { return r.ID })),
}

// Selection is the ordered featured set; position i has featured order i+1.
type Selection struct {
	Entries []Candidate
}

func (s Selection) ReviewIDs() []string {
	ids := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		ids[i] = e.Review.ID
	}
	return ids
}

func (s Selection) Reviews() []domain.Review {
	out := make([]domain.Review, len(s.Entries))
	for i, e := range s.Entries {
		out[i] = e.Review
	}
	return out
}

// Select ranks photo-backed authors first and fills remaining slots with the
// best photo-less reviews. One review per author, at most p.Target entries.
func Select(reviews []domain.Review, ix PhotoIndex, p SelectionPolicy, now time.Time) Selection {
	buckets := GroupReviewsByAuthor(reviews, p, now)

	ranked := photoBackedCandidates(buckets, ix)
	sortByKeys(ranked, candidateOrder)

	var sel Selection
	authors := make(map[string]struct{})
	ids := make(map[string]struct{})
	add := func(c Candidate) {
		sel.Entries = append(sel.Entries, c)
		authors[c.AuthorKey] = struct{}{}
		ids[c.Review.ID] = struct{}{}
	}

	for _, c := range ranked {
		if len(sel.Entries) >= p.Target {
			return sel
		}
		add(c)
	}

	pool := buckets.All()
	sortByKeys(pool, supplementOrder)
	for _, r := range pool {
		if len(sel.Entries) >= p.Target {
			break
		}
		k := ResolveKey(r)
		if _, dup := ids[r.ID]; dup {
			continue
		}
		if _, dup := authors[k]; dup {
			continue
		}
		add(Candidate{AuthorKey: k, Review: r})
	}
	return sel
}

// photoBackedCandidates discovers authors with photos: by contributor id
// first (with a photo count), then by photo attribution name (count 0).
func photoBackedCandidates(b AuthorBuckets, ix PhotoIndex) []Candidate {
	var out []Candidate
	captured := make(map[string]struct{})

	for _, id := range ix.Contributors() {
		best, ok := b.Best(id)
		if !ok {
			continue
		}
		captured[id] = struct{}{}
		out = append(out, Candidate{AuthorKey: id, Review: best, PhotoCount: ix.PhotoCount(id), PhotoBacked: true})
	}

	for _, name := range ix.Names() {
		if _, ok := captured[name]; ok {
			continue
		}
		best, ok := b.Best(name)
		if !ok {
			continue
		}
		captured[name] = struct{}{}
		out = append(out, Candidate{AuthorKey: name, Review: best, PhotoBacked: true})
	}
	return out
}
