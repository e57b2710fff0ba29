package config

import (
	"slices"
	"strings"
	"time"
)

// CatalogRoutes are the public catalog templates whose anonymous responses
// carry no per-user data.  Nothing outside this list is ever cached.
var CatalogRoutes = []string{
	"/api/courses",
	"/api/courses/",
	"/api/courses/:id",
	"/api/courses/:id/outline",
}

// Key strategies for the catalog cache.
const (
	CacheKeyRoute            = "route"
	CacheKeyRouteQuery       = "route_query"
	CacheKeyMethodRouteQuery = "method_route_query"
)

// CacheConfig drives the Redis response cache in front of the course
// catalog.  Routes holds echo route templates; CACHE_ROUTES may narrow
// CatalogRoutes but never widen it.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	Routes       map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* variables.  Only GET and HEAD are
// accepted as cacheable methods.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      map[string]bool{},
		Routes:       map[string]bool{},
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  strings.ToLower(envStr("CACHE_KEY_STRATEGY", CacheKeyRouteQuery)),
		Prefix:       envStr("CACHE_PREFIX", "lt:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
	for _, m := range envList("CACHE_METHODS", "GET") {
		if m = strings.ToUpper(m); m == "GET" || m == "HEAD" {
			cfg.Methods[m] = true
		}
	}
	for _, r := range envList("CACHE_ROUTES", strings.Join(CatalogRoutes, ",")) {
		if slices.Contains(CatalogRoutes, r) {
			cfg.Routes[r] = true
		}
	}
	switch cfg.KeyStrategy {
	case CacheKeyRoute, CacheKeyRouteQuery, CacheKeyMethodRouteQuery:
	default:
		cfg.KeyStrategy = CacheKeyRouteQuery
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return cfg
}

// Cacheable reports whether a request for route may be served from or
// stored in the cache.
func (c CacheConfig) Cacheable(method, route string) bool {
	return c.Methods[strings.ToUpper(method)] && c.Routes[route]
}
