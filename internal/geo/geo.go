package geo

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"
)

// Resolver maps client IPs to ISO country codes for event enrichment.
// Lookups go through a small TTL cache; misses and malformed addresses
// resolve to an empty country rather than an error, because enrichment is
// never worth failing an ingest for.
type Resolver struct {
	reader *maxminddb.Reader

	mu      sync.RWMutex
	cache   map[string]cacheEntry
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	country   string
	expiresAt time.Time
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// NewResolver opens a MaxMind database.
func NewResolver(dbPath string, cacheSize int, ttl time.Duration) (*Resolver, error) {
	reader, err := maxminddb.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}

	if cacheSize <= 0 {
		cacheSize = 1000
	}

	return &Resolver{
		reader:  reader,
		cache:   make(map[string]cacheEntry),
		maxSize: cacheSize,
		ttl:     ttl,
	}, nil
}

// Country returns the ISO country code for an IP, or "" when it cannot be
// determined.
func (r *Resolver) Country(ip string) string {
	now := time.Now()

	r.mu.RLock()
	if entry, ok := r.cache[ip]; ok && now.Before(entry.expiresAt) {
		r.mu.RUnlock()
		return entry.country
	}
	r.mu.RUnlock()

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}

	var record countryRecord
	if err := r.reader.Lookup(parsed, &record); err != nil {
		return ""
	}
	country := record.Country.ISOCode

	r.mu.Lock()
	if len(r.cache) >= r.maxSize {
		// Full reset beats tracking eviction order for a cache this cheap
		// to refill.
		r.cache = make(map[string]cacheEntry)
	}
	r.cache[ip] = cacheEntry{country: country, expiresAt: now.Add(r.ttl)}
	r.mu.Unlock()

	return country
}

// Close closes the GeoIP database.
func (r *Resolver) Close() error {
	if r.reader != nil {
		return r.reader.Close()
	}
	return nil
}
