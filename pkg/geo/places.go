package geo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/muesli/gominatim"
	"go.uber.org/zap"
)

// DefaultNominatimServer is the public OpenStreetMap Nominatim instance.
const DefaultNominatimServer = "https://nominatim.openstreetmap.org/"

// Nominatim's usage policy allows one request per second.
const nominatimMinInterval = time.Second

// Place is a named location returned by a geocoder.
type Place struct {
	Name  string `json:"name"`
	Point Point  `json:"point"`
	Class string `json:"class,omitempty"`
	Type  string `json:"type,omitempty"`
}

// Geocoder resolves free text into candidate places.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]Place, error)
}

// NominatimGeocoder searches OpenStreetMap's Nominatim service.
type NominatimGeocoder struct {
	logger  *zap.Logger
	retries int

	mu   sync.Mutex
	last time.Time
}

var nominatimServerOnce sync.Once

// NewNominatimGeocoder configures the process-wide Nominatim server (the
// client library keeps it in a package variable, so only the first server
// wins) and returns a throttled geocoder.
func NewNominatimGeocoder(server string, logger *zap.Logger) *NominatimGeocoder {
	if strings.TrimSpace(server) == "" {
		server = DefaultNominatimServer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	nominatimServerOnce.Do(func() {
		gominatim.SetServer(server)
	})
	return &NominatimGeocoder{logger: logger, retries: 1}
}

// Search runs a forward geocoding query. Transient decode errors from the
// upstream service are retried once.
func (g *NominatimGeocoder) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Place{}, nil
	}
	if limit <= 0 {
		limit = 5
	}

	var (
		res []gominatim.SearchResult
		err error
	)
	attempts := g.retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g.throttle()

		q := gominatim.SearchQuery{Q: query, Limit: limit}
		res, err = q.Get()
		if err == nil {
			break
		}
		if !isTransient(err) || attempt == attempts {
			g.logger.Warn("nominatim search failed",
				zap.String("query", query), zap.Int("attempt", attempt), zap.Error(err))
			return nil, fmt.Errorf("place search for %q: %w", query, err)
		}
		g.logger.Debug("transient nominatim error, retrying",
			zap.String("query", query), zap.Int("attempt", attempt), zap.Error(err))
	}

	return placesFromResults(res, limit), nil
}

func (g *NominatimGeocoder) throttle() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if wait := nominatimMinInterval - time.Since(g.last); wait > 0 {
		time.Sleep(wait)
	}
	g.last = time.Now()
}

func isTransient(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unexpected end of JSON") || strings.Contains(msg, "EOF")
}

// placesFromResults converts raw results, skipping unnamed or unparsable
// ones, and canonicalizes their coordinates.
func placesFromResults(res []gominatim.SearchResult, limit int) []Place {
	places := make([]Place, 0, len(res))
	for _, r := range res {
		if r.DisplayName == "" {
			continue
		}
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			continue
		}
		lng, err := strconv.ParseFloat(r.Lon, 64)
		if err != nil {
			continue
		}
		p, err := NewPoint(lat, lng)
		if err != nil {
			continue
		}
		places = append(places, Place{Name: r.DisplayName, Point: p, Class: r.Class, Type: r.Type})
		if len(places) >= limit {
			break
		}
	}
	return places
}
