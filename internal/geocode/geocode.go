// Package geocode looks up addresses and driving routes on public
// OpenStreetMap services. Lookups never fail loudly: any error degrades
// to "no suggestions" or "no route" so trip entry is never blocked.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-ops/internal/debounce"
)

const (
	DefaultSearchURL = "https://nominatim.openstreetmap.org/search"
	DefaultRouteURL  = "https://router.project-osrm.org/route/v1/driving"

	DefaultCacheSize = 500
	DefaultCacheTTL  = 6 * time.Hour

	// MinQueryLength is the shortest query sent to the search service.
	MinQueryLength = 3
)

// Place is one address suggestion.
type Place struct {
	Name string  `json:"nombre"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Route is a driving estimate between two places.
type Route struct {
	DistanceKm float64       `json:"distanciaKm"`
	Duration   time.Duration `json:"duracion"`
}

// Config configures a Client.
type Config struct {
	SearchURL  string
	RouteURL   string
	UserAgent  string
	CacheSize  int
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

// Client performs cached lookups.
type Client struct {
	cfg    Config
	http   *http.Client
	places *Cache[[]Place]
	routes *Cache[*Route]
}

// New creates a client, filling unset config fields with defaults.
func New(cfg Config) *Client {
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.RouteURL == "" {
		cfg.RouteURL = DefaultRouteURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "fleet-ops/1.0"
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		cfg:    cfg,
		http:   hc,
		places: NewCache[[]Place](cfg.CacheSize, cfg.CacheTTL),
		routes: NewCache[*Route](cfg.CacheSize, cfg.CacheTTL),
	}
}

// Search returns address suggestions for query. Failures return nil and
// are not cached, so a later attempt may succeed.
func (c *Client) Search(ctx context.Context, query string) []Place {
	key := NormalizeQuery(query)
	if len([]rune(key)) < MinQueryLength {
		return nil
	}
	if places, ok := c.places.Get(key); ok {
		return places
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "5")
	var raw []struct {
		DisplayName string `json:"display_name"`
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
	}
	if err := c.getJSON(ctx, c.cfg.SearchURL+"?"+q.Encode(), &raw); err != nil {
		log.WithError(err).WithField("query", key).Debug("Geocoding search failed")
		return nil
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		lat, errLat := strconv.ParseFloat(r.Lat, 64)
		lon, errLon := strconv.ParseFloat(r.Lon, 64)
		if errLat != nil || errLon != nil {
			continue
		}
		places = append(places, Place{Name: r.DisplayName, Lat: lat, Lon: lon})
	}
	c.places.Set(key, places)
	return places
}

// Route returns the driving estimate between two places, or nil.
func (c *Client) Route(ctx context.Context, from, to Place) *Route {
	key := fmt.Sprintf("%.5f,%.5f;%.5f,%.5f", from.Lon, from.Lat, to.Lon, to.Lat)
	if r, ok := c.routes.Get(key); ok {
		return r
	}

	var obj struct {
		Code   string `json:"code"`
		Routes []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"routes"`
	}
	if err := c.getJSON(ctx, c.cfg.RouteURL+"/"+key+"?overview=false", &obj); err != nil {
		log.WithError(err).Debug("Route lookup failed")
		return nil
	}
	if len(obj.Routes) == 0 {
		return nil
	}
	r := &Route{
		DistanceKm: obj.Routes[0].Distance / 1000,
		Duration:   time.Duration(obj.Routes[0].Duration * float64(time.Second)),
	}
	c.routes.Set(key, r)
	return r
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// SearchStats and RouteStats expose the cache counters.
func (c *Client) SearchStats() CacheStats { return c.places.Stats() }
func (c *Client) RouteStats() CacheStats  { return c.routes.Stats() }

// Suggester feeds autocomplete: only the last query typed within the
// debounce window is looked up, and stale answers are discarded.
type Suggester struct {
	client *Client
	d      *debounce.Debouncer

	mu     sync.Mutex
	latest string
}

// NewSuggester creates a suggester with the given debounce delay.
func NewSuggester(client *Client, delay time.Duration) *Suggester {
	return &Suggester{client: client, d: debounce.New(delay)}
}

// Type records the current input and eventually calls deliver with the
// suggestions for it. deliver is not called for superseded input.
func (s *Suggester) Type(ctx context.Context, query string, deliver func([]Place)) {
	s.mu.Lock()
	s.latest = query
	s.mu.Unlock()

	s.d.Trigger(func() {
		places := s.client.Search(ctx, query)
		s.mu.Lock()
		current := s.latest == query
		s.mu.Unlock()
		if current && ctx.Err() == nil {
			deliver(places)
		}
	})
}

// Flush runs a pending lookup immediately.
func (s *Suggester) Flush() { s.d.Flush() }

// Stop drops any pending lookup.
func (s *Suggester) Stop() { s.d.Stop() }
