// internal/adapters/places/client.go
package places

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"hotlob_places/internal/adapters/observability"
	"hotlob_places/internal/domain"
)

const (
	DefaultBaseURL    = "https://places.googleapis.com/v1"
	defaultInterval   = 120 * time.Millisecond
	defaultMaxWidthPx = 600
)

// Field masks limit the payload to what each call normalizes.
const (
	detailsFieldMask = "rating,userRatingCount,regularOpeningHours.weekdayDescriptions"
	reviewsFieldMask = "reviews.rating,reviews.text,reviews.originalText,reviews.publishTime,reviews.authorAttribution,reviews.name"
	photosFieldMask  = "photos"
)

type Client struct {
	base     string
	hc       *http.Client
	key      string
	rl       *rate.Limiter
	maxWidth int
}

// New builds a Places (New) v1 client. interval is the minimum spacing between
// outbound calls; every fetch waits on the limiter before hitting the network.
func New(base, key string, interval time.Duration, maxWidthPx int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if base == "" {
		base = DefaultBaseURL
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	if maxWidthPx <= 0 {
		maxWidthPx = defaultMaxWidthPx
	}
	return &Client{
		base:     strings.TrimRight(base, "/"),
		hc:       &http.Client{Timeout: 20 * time.Second},
		key:      key,
		rl:       rate.NewLimiter(rate.Every(interval), 1),
		maxWidth: maxWidthPx,
	}, nil
}

// ---- wire shapes (subset of Places API v1) ----

type apiText struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode"`
}

type apiAttribution struct {
	DisplayName string `json:"displayName"`
	URI         string `json:"uri"`
	PhotoURI    string `json:"photoUri"`
}

type apiReview struct {
	Name              *string         `json:"name"`
	Rating            *float64        `json:"rating"`
	OriginalText      *apiText        `json:"originalText"`
	Text              *apiText        `json:"text"`
	PublishTime       string          `json:"publishTime"`
	AuthorAttribution *apiAttribution `json:"authorAttribution"`
}

type apiPhoto struct {
	Name               string           `json:"name"`
	WidthPx            int              `json:"widthPx"`
	HeightPx           int              `json:"heightPx"`
	AuthorAttributions []apiAttribution `json:"authorAttributions"`
}

type apiPlace struct {
	Rating              *float64 `json:"rating"`
	UserRatingCount     *int     `json:"userRatingCount"`
	RegularOpeningHours *struct {
		WeekdayDescriptions []string `json:"weekdayDescriptions"`
	} `json:"regularOpeningHours"`
	Reviews []apiReview `json:"reviews"`
	Photos  []apiPhoto  `json:"photos"`
}

// ---- Public API ----

func (c *Client) FetchDetails(ctx context.Context, placeID string) (domain.PlaceDetails, error) {
	var p apiPlace
	if err := c.get(ctx, "details", c.placeURL(placeID), detailsFieldMask, &p); err != nil {
		return domain.PlaceDetails{}, err
	}
	out := domain.PlaceDetails{Rating: p.Rating, RatingCount: p.UserRatingCount}
	if p.RegularOpeningHours != nil && p.RegularOpeningHours.WeekdayDescriptions != nil {
		out.WeeklyHoursText = p.RegularOpeningHours.WeekdayDescriptions
	}
	return out, nil
}

// FetchReviews returns the (upstream-capped, usually 5) reviews for a place.
// Reviews without a parseable publish time are dropped.
func (c *Client) FetchReviews(ctx context.Context, placeID string) ([]domain.Review, error) {
	var p apiPlace
	if err := c.get(ctx, "reviews", c.placeURL(placeID), reviewsFieldMask, &p); err != nil {
		return nil, err
	}
	out := make([]domain.Review, 0, len(p.Reviews))
	for _, r := range p.Reviews {
		if rv, ok := normalizeReview(r); ok {
			out = append(out, rv)
		}
	}
	return out, nil
}

// FetchPhotos returns up to ~10 photos with every author attribution kept.
func (c *Client) FetchPhotos(ctx context.Context, placeID string) ([]domain.Photo, error) {
	var p apiPlace
	if err := c.get(ctx, "photos", c.placeURL(placeID), photosFieldMask, &p); err != nil {
		return nil, err
	}
	out := make([]domain.Photo, 0, len(p.Photos))
	for _, ph := range p.Photos {
		if ph.Name == "" {
			continue
		}
		out = append(out, c.normalizePhoto(ph))
	}
	return out, nil
}

// MediaURL is the display URL for a photo resource, width-capped.
func (c *Client) MediaURL(resourceName string) string {
	return fmt.Sprintf("%s/%s/media?maxWidthPx=%d&key=%s", c.base, resourceName, c.maxWidth, url.QueryEscape(c.key))
}

func (c *Client) placeURL(placeID string) string {
	return c.base + "/places/" + url.PathEscape(placeID)
}

func normalizeReview(r apiReview) (domain.Review, bool) {
	if r.PublishTime == "" {
		return domain.Review{}, false
	}
	published, err := time.Parse(time.RFC3339Nano, r.PublishTime)
	if err != nil {
		return domain.Review{}, false
	}

	rv := domain.Review{
		ExternalReviewID: r.Name,
		AuthorName:       "Anonymous",
		PublishedAt:      published.UTC(),
	}
	if r.Rating != nil {
		rv.Rating = int(*r.Rating + 0.5)
	}
	if a := r.AuthorAttribution; a != nil {
		if a.DisplayName != "" {
			rv.AuthorName = a.DisplayName
		}
		rv.AuthorPhotoURL = ptrStr(a.PhotoURI)
		rv.AuthorURI = ptrStr(a.URI)
	}

	// original text wins over the translated one
	for _, t := range []*apiText{r.OriginalText, r.Text} {
		if t != nil && t.Text != "" {
			rv.Text = t.Text
			break
		}
	}
	for _, t := range []*apiText{r.OriginalText, r.Text} {
		if t != nil && t.LanguageCode != "" {
			rv.Language = ptrStr(t.LanguageCode)
			break
		}
	}
	return rv, true
}

func (c *Client) normalizePhoto(p apiPhoto) domain.Photo {
	out := domain.Photo{
		ResourceName: p.Name,
		URL:          c.MediaURL(p.Name),
		Width:        p.WidthPx,
		Height:       p.HeightPx,
	}
	for _, a := range p.AuthorAttributions {
		if a.URI != "" {
			out.ContributorURIs = append(out.ContributorURIs, a.URI)
		}
		if a.DisplayName != "" {
			out.ContributorNames = append(out.ContributorNames, a.DisplayName)
		}
	}
	return out
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ---- Internals ----

// get performs a GET with retries and JSON decode into out. Every returned
// error wraps domain.ErrFetchFailed.
func (c *Client) get(ctx context.Context, endpoint, u, fieldMask string, out any) error {
	if err := c.do(ctx, endpoint, u, fieldMask, out); err != nil {
		if errors.Is(err, domain.ErrFetchFailed) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", domain.ErrFetchFailed, endpoint, err)
	}
	return nil
}

// do retries on 429 and transient 5xx, honoring Retry-After when provided.
// Every attempt, retries included, waits on the rate limiter.
func (c *Client) do(ctx context.Context, endpoint, u, fieldMask string, out any) error {
	var lastErr error
	for i := 0; i < 4; i++ {
		if err := c.rl.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("X-Goog-Api-Key", c.key)
		req.Header.Set("X-Goog-FieldMask", fieldMask)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "hotlob-places/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("places", endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("places", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode %s: %w", endpoint, err)
			}
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return fmt.Errorf("%w: %s HTTP 404: %w", domain.ErrFetchFailed, endpoint, domain.ErrNotFound)

		case http.StatusUnauthorized:
			resp.Body.Close()
			return fmt.Errorf("%w: %s HTTP 401: %w", domain.ErrFetchFailed, endpoint, domain.ErrUnauthorized)

		case http.StatusForbidden:
			resp.Body.Close()
			return fmt.Errorf("%w: %s HTTP 403: %w", domain.ErrFetchFailed, endpoint, domain.ErrForbidden)

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("Places %s HTTP %d", endpoint, resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("Places %s HTTP %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential delay (200ms, 400ms, 800ms...) with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
