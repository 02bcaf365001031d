package mysql

import (
	"context"
	"strings"

	"hotlob_places/internal/domain"
)

// GetReviews loads rows by id, including featured state, for assertions.
func (r *Repo) GetReviews(ctx context.Context, ids []string) ([]domain.Review, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := "SELECT " + reviewColumns + " FROM curated_reviews WHERE id IN (" +
		strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + ")"
	return r.queryReviews(ctx, q, args...)
}
