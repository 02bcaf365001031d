package mysql

// -----------------------------------------------------------------------------
// STORES
// -----------------------------------------------------------------------------

const listStoresSQL = `
SELECT id, name, google_place_id
FROM stores
ORDER BY name, id
`

const findStoreByIDSQL = `SELECT id, name, google_place_id FROM stores WHERE id = ?`

const findStoreByPlaceSQL = `SELECT id, name, google_place_id FROM stores WHERE google_place_id = ?`

const upsertPlaceCacheSQL = `
INSERT INTO place_cache
  (store_id, rating, user_ratings_total, weekday_text, refreshed_at, expires_at)
VALUES
  (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  rating             = VALUES(rating),
  user_ratings_total = VALUES(user_ratings_total),
  weekday_text       = VALUES(weekday_text),
  refreshed_at       = VALUES(refreshed_at),
  expires_at         = VALUES(expires_at)
`

// -----------------------------------------------------------------------------
// REVIEWS
// -----------------------------------------------------------------------------

// id is only used on first insert; is_featured / featured_order belong to the
// selection run and are never touched here.
const upsertReviewSQL = "INSERT INTO curated_reviews\n" +
	"  (id, store_id, external_review_id, author_name, author_photo_url, author_uri, rating, `text`, language, review_time, fetched_at, expires_at)\n" +
	"VALUES\n" +
	"  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)\n" +
	"ON DUPLICATE KEY UPDATE\n" +
	"  external_review_id = VALUES(external_review_id),\n" +
	"  author_photo_url   = VALUES(author_photo_url),\n" +
	"  author_uri         = VALUES(author_uri),\n" +
	"  rating             = VALUES(rating),\n" +
	"  `text`             = VALUES(`text`),\n" +
	"  language           = VALUES(language),\n" +
	"  fetched_at         = VALUES(fetched_at),\n" +
	"  expires_at         = VALUES(expires_at)\n"

const clearFeaturedSQL = `
UPDATE curated_reviews
SET is_featured = FALSE, featured_order = NULL
WHERE is_featured = TRUE OR featured_order IS NOT NULL
`

const setFeaturedSQL = `UPDATE curated_reviews SET is_featured = TRUE, featured_order = ? WHERE id = ?`

// Note: `text` is reserved; keep it quoted everywhere.
const reviewColumns = "id, store_id, external_review_id, author_name, author_photo_url, author_uri, rating, `text`, language, review_time, fetched_at, expires_at, is_featured, featured_order"

const listReviewsSinceSQL = "SELECT " + reviewColumns + `
FROM curated_reviews
WHERE review_time >= ?
ORDER BY review_time DESC, id
`

// One row per (review, photo); reviews without photos appear once with NULLs.
const listFeaturedSQL = "SELECT r.id, r.author_name, r.author_photo_url, r.rating, r.`text`, p.url\n" +
	"FROM curated_reviews r\n" +
	"LEFT JOIN review_photos p ON p.review_id = r.id\n" +
	"WHERE r.is_featured = TRUE\n" +
	"ORDER BY r.featured_order, r.id, p.display_order\n"

// -----------------------------------------------------------------------------
// REVIEW PHOTOS
// -----------------------------------------------------------------------------

const deleteReviewPhotosSQL = `DELETE FROM review_photos WHERE review_id = ?`

const insertReviewPhotoSQL = `
INSERT INTO review_photos
  (review_id, resource_name, url, width, height, display_order)
VALUES
  (?, ?, ?, ?, ?, ?)
`
