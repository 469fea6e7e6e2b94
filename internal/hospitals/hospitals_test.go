package hospitals

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safe-assistant/internal/httpx"
)

func TestHaversineKm(t *testing.T) {
	// Chennai Central to Chennai Airport is roughly 15.5 km.
	d := HaversineKm(13.0827, 80.2707, 12.9941, 80.1709)
	assert.InDelta(t, 15.0, d, 1.5)

	assert.Zero(t, HaversineKm(13.0827, 80.2707, 13.0827, 80.2707))
}

func TestLocate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ip":"1.2.3.4","loc":"13.0827,80.2707","city":"Chennai"}`))
	}))
	defer srv.Close()

	finder := NewFinderWithEndpoints(httpx.New(time.Second), srv.URL, "http://unused")
	lat, lon, err := finder.Locate(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 13.0827, lat, 1e-6)
	assert.InDelta(t, 80.2707, lon, 1e-6)
}

func TestLocateMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"loc":"not-a-location"}`))
	}))
	defer srv.Close()

	finder := NewFinderWithEndpoints(httpx.New(time.Second), srv.URL, "http://unused")
	_, _, err := finder.Locate(context.Background())
	assert.ErrorContains(t, err, "malformed location")
}

func TestNearbySortsAndLimits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		query := r.FormValue("data")
		assert.Contains(t, query, `"amenity"="hospital"`)
		assert.Contains(t, query, "around:10000")

		// One node, one way with a center, one unnamed node further out.
		w.Write([]byte(`{"elements":[
			{"type":"node","lat":13.2000,"lon":80.2707,"tags":{"name":"Far Hospital"}},
			{"type":"way","center":{"lat":13.0900,"lon":80.2707},"tags":{"name":"Near Hospital"}},
			{"type":"node","lat":13.1200,"lon":80.2707,"tags":{}}
		]}`))
	}))
	defer srv.Close()

	finder := NewFinderWithEndpoints(httpx.New(time.Second), "http://unused", srv.URL)
	got, err := finder.Nearby(context.Background(), 13.0827, 80.2707, 0, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Near Hospital", got[0].Name)
	assert.Equal(t, "Unnamed hospital", got[1].Name)
	assert.Less(t, got[0].DistanceKm, got[1].DistanceKm)
}

func TestNearbyUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	finder := NewFinderWithEndpoints(httpx.New(time.Second), "http://unused", srv.URL)
	_, err := finder.Nearby(context.Background(), 13.0827, 80.2707, 5000, 10)
	assert.ErrorContains(t, err, "status 429")
}
