// Package geo resolves client addresses to countries for like analytics.
// Lookups are best effort: every failure yields models.UnknownCountry.
package geo

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"inkpost/internal/cache"
	"inkpost/internal/middleware"
	"inkpost/internal/models"

	"github.com/oschwald/geoip2-golang"
)

// Locator maps an IP address to an ISO country code.
type Locator interface {
	Country(ctx context.Context, ip string) string
}

// Unknown is the Locator used when no GeoIP database is configured.
type Unknown struct{}

func (Unknown) Country(context.Context, string) string { return models.UnknownCountry }

// countryReader is the part of geoip2.Reader the MaxMind locator needs.
type countryReader interface {
	Country(ip net.IP) (*geoip2.Country, error)
}

// MaxMind looks countries up in a local GeoLite2/GeoIP2 database.
type MaxMind struct {
	reader countryReader
	closer func() error
}

// OpenMaxMind opens the database at path.
func OpenMaxMind(path string) (*MaxMind, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &MaxMind{reader: reader, closer: reader.Close}, nil
}

// Country returns the ISO code for ip, or Unknown.
func (m *MaxMind) Country(ctx context.Context, ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() {
		return models.UnknownCountry
	}
	record, err := m.reader.Country(parsed)
	if err != nil {
		middleware.Logger.DebugContext(ctx, "geoip lookup failed", slog.String("error", err.Error()))
		return models.UnknownCountry
	}
	if record.Country.IsoCode == "" {
		return models.UnknownCountry
	}
	return record.Country.IsoCode
}

// Close releases the database.
func (m *MaxMind) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer()
}

// Cached memoizes another Locator in Redis.
type Cached struct {
	next  Locator
	store *cache.Store
	ttl   time.Duration
}

// NewCached wraps next with a Redis cache.
func NewCached(next Locator, store *cache.Store) *Cached {
	return &Cached{next: next, store: store, ttl: cache.GeoCountryTTL}
}

func (c *Cached) Country(ctx context.Context, ip string) string {
	if ip == "" {
		return models.UnknownCountry
	}
	var country string
	err := c.store.CacheAside(ctx, cache.GeoCountryKey(ip), &country, c.ttl, func() error {
		country = c.next.Country(ctx, ip)
		return nil
	})
	if err != nil || country == "" {
		return models.UnknownCountry
	}
	return country
}

// New builds the Locator for a configured database path. An empty path, or
// a database that cannot be opened, yields the Unknown locator.
func New(path string, store *cache.Store) (Locator, func() error) {
	noop := func() error { return nil }
	if path == "" {
		return Unknown{}, noop
	}
	mm, err := OpenMaxMind(path)
	if err != nil {
		middleware.Logger.Warn("GeoIP disabled", slog.String("path", path), slog.String("error", err.Error()))
		return Unknown{}, noop
	}
	return NewCached(mm, store), mm.Close
}
