package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"hotlob_places/internal/domain"
)

// UpsertReview inserts by (store_id, author_name, review_time) or refreshes
// the content of the existing row, keeping its id and featured state.
func (r *Repo) UpsertReview(ctx context.Context, rv domain.Review) error {
	_, err := r.db.ExecContext(ctx, upsertReviewSQL,
		uuid.NewString(),
		rv.StoreID,
		valStr(rv.ExternalReviewID),
		rv.AuthorName,
		valStr(rv.AuthorPhotoURL),
		valStr(rv.AuthorURI),
		rv.Rating,
		rv.Text,
		valStr(rv.Language),
		rv.PublishedAt.UTC(),
		rv.FetchedAt.UTC(),
		rv.ExpiresAt.UTC(),
	)
	return err
}

func (r *Repo) ClearAllFeatured(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, clearFeaturedSQL)
	return err
}

func (r *Repo) SetFeatured(ctx context.Context, orderedIDs []string) error {
	return setFeatured(ctx, r.db, orderedIDs)
}

func setFeatured(ctx context.Context, ex execer, orderedIDs []string) error {
	for i, id := range orderedIDs {
		if _, err := ex.ExecContext(ctx, setFeaturedSQL, i+1, id); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceFeatured clears and sets in one transaction so readers never see a
// half-applied featured set.
func (r *Repo) ReplaceFeatured(ctx context.Context, orderedIDs []string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, clearFeaturedSQL); err != nil {
			return err
		}
		return setFeatured(ctx, tx, orderedIDs)
	})
}

func (r *Repo) ReplaceReviewPhotos(ctx context.Context, reviewID string, photos []domain.ReviewPhotoAttachment) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteReviewPhotosSQL, reviewID); err != nil {
			return err
		}
		for _, p := range photos {
			if _, err := tx.ExecContext(ctx, insertReviewPhotoSQL,
				reviewID, p.ResourceName, p.URL, p.Width, p.Height, p.DisplayOrder); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repo) ListReviewsSince(ctx context.Context, since time.Time) ([]domain.Review, error) {
	return r.queryReviews(ctx, listReviewsSinceSQL, since.UTC())
}

func (r *Repo) queryReviews(ctx context.Context, q string, args ...any) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var rv domain.Review
		var (
			externalID, photoURL, authorURI, lang sql.NullString
			order                                 sql.NullInt64
		)
		if err := rows.Scan(
			&rv.ID,
			&rv.StoreID,
			&externalID,
			&rv.AuthorName,
			&photoURL,
			&authorURI,
			&rv.Rating,
			&rv.Text,
			&lang,
			&rv.PublishedAt,
			&rv.FetchedAt,
			&rv.ExpiresAt,
			&rv.IsFeatured,
			&order,
		); err != nil {
			return nil, err
		}
		rv.ExternalReviewID = strPtr(externalID)
		rv.AuthorPhotoURL = strPtr(photoURL)
		rv.AuthorURI = strPtr(authorURI)
		rv.Language = strPtr(lang)
		if order.Valid {
			o := int(order.Int64)
			rv.FeaturedOrder = &o
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// ListFeatured returns featured reviews by featured order with their photo
// URLs by display order.
func (r *Repo) ListFeatured(ctx context.Context) ([]domain.FeaturedReview, error) {
	rows, err := r.db.QueryContext(ctx, listFeaturedSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.FeaturedReview{}
	lastID := ""
	for rows.Next() {
		var (
			id       string
			fr       domain.FeaturedReview
			photoURL sql.NullString
			url      sql.NullString
		)
		if err := rows.Scan(&id, &fr.AuthorName, &photoURL, &fr.Rating, &fr.Text, &url); err != nil {
			return nil, err
		}
		if id != lastID {
			fr.AuthorPhotoURL = strPtr(photoURL)
			out = append(out, fr)
			lastID = id
		}
		if url.Valid {
			cur := &out[len(out)-1]
			cur.Photos = append(cur.Photos, url.String)
		}
	}
	return out, rows.Err()
}
