package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"hotlob_places/internal/domain"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStore(s rowScanner) (domain.Store, error) {
	var st domain.Store
	var placeID sql.NullString
	if err := s.Scan(&st.ID, &st.Name, &placeID); err != nil {
		return domain.Store{}, err
	}
	st.PlaceID = strPtr(placeID)
	return st, nil
}

func (r *Repo) ListStores(ctx context.Context) ([]domain.Store, error) {
	rows, err := r.db.QueryContext(ctx, listStoresSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Store
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// FindStore looks a UUID-shaped ref up by id and anything else by place id.
func (r *Repo) FindStore(ctx context.Context, ref string) (domain.Store, error) {
	q := findStoreByPlaceSQL
	if _, err := uuid.Parse(ref); err == nil {
		q = findStoreByIDSQL
	}
	st, err := scanStore(r.db.QueryRowContext(ctx, q, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Store{}, domain.ErrNotFound
	}
	return st, err
}

func (r *Repo) UpsertPlaceCache(ctx context.Context, pc domain.PlaceCache) error {
	var weekday []byte
	if pc.WeekdayText != nil {
		weekday, _ = json.Marshal(pc.WeekdayText)
	}
	_, err := r.db.ExecContext(ctx, upsertPlaceCacheSQL,
		pc.StoreID,
		valF64(pc.Rating),
		valInt(pc.UserRatingsTotal),
		valJSON(weekday),
		pc.RefreshedAt.UTC(),
		pc.ExpiresAt.UTC(),
	)
	return err
}

// GetPlaceCache is used by tests and operators; refresh never reads it.
func (r *Repo) GetPlaceCache(ctx context.Context, storeID string) (domain.PlaceCache, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT store_id, rating, user_ratings_total, weekday_text, refreshed_at, expires_at
		 FROM place_cache WHERE store_id = ?`, storeID)

	var pc domain.PlaceCache
	var rating sql.NullFloat64
	var total sql.NullInt64
	var weekday []byte
	if err := row.Scan(&pc.StoreID, &rating, &total, &weekday, &pc.RefreshedAt, &pc.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PlaceCache{}, domain.ErrNotFound
		}
		return domain.PlaceCache{}, err
	}
	if rating.Valid {
		f := rating.Float64
		pc.Rating = &f
	}
	if total.Valid {
		n := int(total.Int64)
		pc.UserRatingsTotal = &n
	}
	_ = json.Unmarshal(weekday, &pc.WeekdayText)
	return pc, nil
}
