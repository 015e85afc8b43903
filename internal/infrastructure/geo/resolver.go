// Package geo resolves IP addresses to coarse locations. Resolution is best
// effort: cache first, then a bounded HTTP lookup, and any failure along the
// way degrades to the explicit Unknown location, never an error that could
// stall authentication.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesaops/identity-api/internal/core/domain"
)

// Cache is the lookup memo (Redis in production).
type Cache interface {
	Get(ctx context.Context, ip string) (domain.LocationDescriptor, bool, error)
	Put(ctx context.Context, ip string, loc domain.LocationDescriptor) error
}

// Resolver queries an ip-api style JSON endpoint with a bounded timeout.
type Resolver struct {
	endpoint string
	client   *http.Client
	cache    Cache
	log      zerolog.Logger
}

// NewResolver builds a Resolver. endpoint must contain a %s placeholder for
// the IP; timeout bounds each HTTP lookup.
func NewResolver(endpoint string, timeout time.Duration, cache Cache, log zerolog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Resolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		cache:    cache,
		log:      log,
	}
}

type lookupResponse struct {
	Status     string `json:"status"`
	City       string `json:"city"`
	RegionName string `json:"regionName"`
	Country    string `json:"country"`
}

// Resolve maps ip to a location descriptor.
func (r *Resolver) Resolve(ctx context.Context, ip string) domain.LocationDescriptor {
	if !resolvable(ip) {
		return domain.UnknownLocation
	}

	if loc, ok, err := r.cache.Get(ctx, ip); err != nil {
		r.log.Debug().Err(err).Str("ip", ip).Msg("geo cache unavailable")
	} else if ok {
		return loc
	}

	loc, err := r.lookup(ctx, ip)
	if err != nil {
		r.log.Debug().Err(err).Str("ip", ip).Msg("geo lookup failed")
		return domain.UnknownLocation
	}

	if err := r.cache.Put(ctx, ip, loc); err != nil {
		r.log.Debug().Err(err).Str("ip", ip).Msg("geo cache write failed")
	}
	return loc
}

func (r *Resolver) lookup(ctx context.Context, ip string) (domain.LocationDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(r.endpoint, ip), nil)
	if err != nil {
		return domain.LocationDescriptor{}, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.LocationDescriptor{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.LocationDescriptor{}, fmt.Errorf("geo lookup: status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.LocationDescriptor{}, err
	}
	if body.Status != "success" || body.City == "" {
		return domain.LocationDescriptor{}, fmt.Errorf("geo lookup: unresolved")
	}

	return domain.LocationDescriptor{
		City:    body.City,
		Region:  body.RegionName,
		Country: body.Country,
	}, nil
}

// resolvable filters addresses no public geolocation service can place.
func resolvable(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return !parsed.IsLoopback() && !parsed.IsPrivate() && !parsed.IsUnspecified()
}
