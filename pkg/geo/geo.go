// Package geo resolves raw coordinate strings to place names for display
// in device notifications. Lookups go through an injected TTL cache so
// repeated logins from the same spot do not hammer the provider.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReverseGeocoder maps a coordinate pair to a human-readable place name.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lng decimal.Decimal) (string, error)
}

// Cache is the subset of the shared cache used by the geocoder.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ParseCoordinates parses a "lat,lng" location string. It returns an error
// for anything that is not a well-formed coordinate pair, in which case
// the caller should fall back to showing the raw string.
func ParseCoordinates(location string) (decimal.Decimal, decimal.Decimal, error) {
	parts := strings.Split(location, ",")
	if len(parts) != 2 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("not a coordinate pair: %q", location)
	}

	lat, err := decimal.NewFromString(strings.TrimSpace(parts[0]))
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid latitude: %w", err)
	}
	lng, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid longitude: %w", err)
	}

	if lat.LessThan(decimal.NewFromInt(-90)) || lat.GreaterThan(decimal.NewFromInt(90)) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("latitude out of range: %s", lat)
	}
	if lng.LessThan(decimal.NewFromInt(-180)) || lng.GreaterThan(decimal.NewFromInt(180)) {
		return decimal.Zero, decimal.Zero, fmt.Errorf("longitude out of range: %s", lng)
	}

	return lat, lng, nil
}

// CacheKey buckets coordinates to four decimal places (roughly 11 m) so
// nearby lookups share an entry.
func CacheKey(lat, lng decimal.Decimal) string {
	return fmt.Sprintf("geo:rev:%s:%s", lat.Round(4).String(), lng.Round(4).String())
}

// HTTPGeocoder queries a Nominatim-compatible reverse geocoding endpoint.
type HTTPGeocoder struct {
	endpoint string
	client   *http.Client
}

func NewHTTPGeocoder(endpoint string, timeout time.Duration) *HTTPGeocoder {
	return &HTTPGeocoder{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGeocoder) Reverse(ctx context.Context, lat, lng decimal.Decimal) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", lat.String())
	q.Set("lon", lng.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocode returned status %d", resp.StatusCode)
	}

	var payload struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.DisplayName == "" {
		return "", fmt.Errorf("reverse geocode returned no result")
	}

	return payload.DisplayName, nil
}

// CachedGeocoder wraps a ReverseGeocoder with a bounded TTL cache.
type CachedGeocoder struct {
	inner ReverseGeocoder
	cache Cache
	ttl   time.Duration
}

func NewCachedGeocoder(inner ReverseGeocoder, cache Cache, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{inner: inner, cache: cache, ttl: ttl}
}

func (g *CachedGeocoder) Reverse(ctx context.Context, lat, lng decimal.Decimal) (string, error) {
	key := CacheKey(lat, lng)

	var cached string
	if err := g.cache.Get(ctx, key, &cached); err == nil && cached != "" {
		return cached, nil
	}

	name, err := g.inner.Reverse(ctx, lat, lng)
	if err != nil {
		return "", err
	}

	if err := g.cache.Set(ctx, key, name, g.ttl); err != nil {
		// Cache write failure only costs a future lookup.
		return name, nil
	}
	return name, nil
}

// Describe resolves a free-form location string to a display name. Raw
// text that is not a coordinate pair is returned unchanged; lookup
// failures fall back to the raw string as well.
func Describe(ctx context.Context, g ReverseGeocoder, location string) string {
	if g == nil || strings.TrimSpace(location) == "" {
		return location
	}
	lat, lng, err := ParseCoordinates(location)
	if err != nil {
		return location
	}
	name, err := g.Reverse(ctx, lat, lng)
	if err != nil {
		return location
	}
	return name
}
