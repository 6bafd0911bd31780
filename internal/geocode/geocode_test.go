package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Quito ", "quito"},
		{"Av. Amazonas   y  Colón", "av. amazonas y colon"},
		{"SAN JOSÉ", "san jose"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeQuery(tt.in))
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache[int](2, time.Hour)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	now = now.Add(time.Second)
	c.Set("b", 2)
	now = now.Add(time.Second)
	_, ok := c.Get("a")
	require.True(t, ok)
	now = now.Add(time.Second)
	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	stats := c.Stats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, int64(1), stats.Evictions)
}

func TestCache_TTL(t *testing.T) {
	c := NewCache[string](10, time.Minute)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Stats().Size)
}

func TestCache_NeverExceedsBound(t *testing.T) {
	c := NewCache[int](5, time.Hour)
	for i := 0; i < 100; i++ {
		c.Set(string(rune('a'+i%26))+string(rune('a'+i/26)), i)
	}
	assert.Equal(t, 5, c.Stats().Size)
}

func nominatim(t *testing.T, hits *int32, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"display_name":"Quito, Pichincha, Ecuador","lat":"-0.2201641","lon":"-78.5123274"},{"display_name":"bad","lat":"x","lon":"1"}]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_SearchCachesNormalizedQuery(t *testing.T) {
	var hits int32
	srv := nominatim(t, &hits, http.StatusOK)
	c := New(Config{SearchURL: srv.URL})

	places := c.Search(context.Background(), "Quito")
	require.Len(t, places, 1)
	assert.InDelta(t, -0.22, places[0].Lat, 0.001)

	again := c.Search(context.Background(), "  QUITO ")
	assert.Equal(t, places, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, int64(1), c.SearchStats().Hits)
}

func TestClient_SearchDegradesSilently(t *testing.T) {
	var hits int32
	srv := nominatim(t, &hits, http.StatusTooManyRequests)
	c := New(Config{SearchURL: srv.URL})

	assert.Nil(t, c.Search(context.Background(), "Quito"))
	assert.Nil(t, c.Search(context.Background(), "Quito"))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "failures are not cached")
}

func TestClient_SearchShortQuery(t *testing.T) {
	var hits int32
	srv := nominatim(t, &hits, http.StatusOK)
	c := New(Config{SearchURL: srv.URL})
	assert.Nil(t, c.Search(context.Background(), " q "))
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestClient_Route(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/-78.50000,-0.20000;-79.20000,-4.00000", r.URL.Path)
		w.Write([]byte(`{"code":"Ok","routes":[{"distance":645300,"duration":36000}]}`))
	}))
	defer srv.Close()
	c := New(Config{RouteURL: srv.URL})

	from := Place{Lat: -0.2, Lon: -78.5}
	to := Place{Lat: -4.0, Lon: -79.2}
	r := c.Route(context.Background(), from, to)
	require.NotNil(t, r)
	assert.InDelta(t, 645.3, r.DistanceKm, 0.001)
	assert.Equal(t, 10*time.Hour, r.Duration)

	c.Route(context.Background(), from, to)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	stats := c.RouteStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
}

func TestClient_RouteUnavailable(t *testing.T) {
	c := New(Config{RouteURL: "http://127.0.0.1:1"})
	assert.Nil(t, c.Route(context.Background(), Place{}, Place{Lat: 1}))
}

func TestSuggester_OnlyLatestQuery(t *testing.T) {
	var hits int32
	srv := nominatim(t, &hits, http.StatusOK)
	s := NewSuggester(New(Config{SearchURL: srv.URL}), 30*time.Millisecond)
	defer s.Stop()

	var mu sync.Mutex
	var delivered [][]Place
	deliver := func(p []Place) {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, p)
	}
	for _, q := range []string{"Qui", "Quit", "Quito"} {
		s.Type(context.Background(), q, deliver)
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
