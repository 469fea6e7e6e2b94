// Package hospitals finds medical facilities near the caller using the
// ipinfo.io geolocation service and the OpenStreetMap Overpass API.
package hospitals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultIPInfoURL   = "https://ipinfo.io/json"
	DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

	// DefaultRadiusMeters bounds the Overpass around-query.
	DefaultRadiusMeters = 10000
	DefaultLimit        = 10
)

// Doer is the HTTP client seam, satisfied by httpx.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Hospital is one facility with its distance from the query point.
type Hospital struct {
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	DistanceKm float64 `json:"distance_km"`
}

// Finder resolves the caller's location and queries nearby hospitals.
type Finder struct {
	httpClient  Doer
	ipinfoURL   string
	overpassURL string
}

// NewFinder returns a Finder using the public ipinfo and Overpass endpoints.
func NewFinder(httpClient Doer) *Finder {
	return &Finder{
		httpClient:  httpClient,
		ipinfoURL:   DefaultIPInfoURL,
		overpassURL: DefaultOverpassURL,
	}
}

// NewFinderWithEndpoints returns a Finder against custom endpoints.
func NewFinderWithEndpoints(httpClient Doer, ipinfoURL, overpassURL string) *Finder {
	return &Finder{
		httpClient:  httpClient,
		ipinfoURL:   ipinfoURL,
		overpassURL: overpassURL,
	}
}

// Locate resolves the caller's approximate coordinates from its public IP.
func (f *Finder) Locate(ctx context.Context) (lat, lon float64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.ipinfoURL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create geolocation request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geolocation request failed with status %d", resp.StatusCode)
	}

	var parsed struct {
		Loc string `json:"loc"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, 0, fmt.Errorf("failed to parse geolocation response: %w", err)
	}
	return parseLoc(parsed.Loc)
}

func parseLoc(loc string) (float64, float64, error) {
	parts := strings.Split(loc, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed location %q", loc)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed latitude in %q: %w", loc, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed longitude in %q: %w", loc, err)
	}
	return lat, lon, nil
}

// Nearby queries Overpass for hospitals around the point and returns up to
// limit results sorted by distance, nearest first.
func (f *Finder) Nearby(ctx context.Context, lat, lon float64, radiusMeters, limit int) ([]Hospital, error) {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := fmt.Sprintf(`[out:json];
(
  node["amenity"="hospital"](around:%d,%f,%f);
  way["amenity"="hospital"](around:%d,%f,%f);
  relation["amenity"="hospital"](around:%d,%f,%f);
);
out center;`, radiusMeters, lat, lon, radiusMeters, lat, lon, radiusMeters, lat, lon)

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.overpassURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass request failed with status %d: %s", resp.StatusCode, body)
	}

	var parsed struct {
		Elements []struct {
			Lat    float64 `json:"lat"`
			Lon    float64 `json:"lon"`
			Center *struct {
				Lat float64 `json:"lat"`
				Lon float64 `json:"lon"`
			} `json:"center"`
			Tags map[string]string `json:"tags"`
		} `json:"elements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse overpass response: %w", err)
	}

	hospitals := make([]Hospital, 0, len(parsed.Elements))
	for _, el := range parsed.Elements {
		hLat, hLon := el.Lat, el.Lon
		if el.Center != nil {
			// Ways and relations carry coordinates in "center".
			hLat, hLon = el.Center.Lat, el.Center.Lon
		}
		if hLat == 0 && hLon == 0 {
			continue
		}
		name := el.Tags["name"]
		if name == "" {
			name = "Unnamed hospital"
		}
		hospitals = append(hospitals, Hospital{
			Name:       name,
			Lat:        hLat,
			Lon:        hLon,
			DistanceKm: HaversineKm(lat, lon, hLat, hLon),
		})
	}

	sort.Slice(hospitals, func(i, j int) bool {
		return hospitals[i].DistanceKm < hospitals[j].DistanceKm
	})
	if len(hospitals) > limit {
		hospitals = hospitals[:limit]
	}
	return hospitals, nil
}

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
