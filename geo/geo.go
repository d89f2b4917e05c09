// Package geo resolves the operator's approximate position from the public IP.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	DefaultEndpoint = "http://ip-api.com/json"
	DefaultTimeout  = 10 * time.Second
)

// Fallback is used for the whole run when resolution fails.
var Fallback = Location{Latitude: 40.0, Longitude: -3.0}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l Location) String() string {
	return fmt.Sprintf("%v, %v", l.Latitude, l.Longitude)
}

type Resolver struct {
	Endpoint string
	Client   *http.Client
}

func NewResolver(endpoint string) *Resolver {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Resolver{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: DefaultTimeout},
	}
}

type lookupResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
}

// Resolve issues a single lookup. Any error means no location is known.
func (r *Resolver) Resolve(ctx context.Context) (Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.Endpoint, nil)
	if err != nil {
		return Location{}, err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("location lookup failed: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("location lookup returned %s", resp.Status)
	}
	body := lookupResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("unable to decode location response: %s", err)
	}
	if body.Status != "success" {
		return Location{}, fmt.Errorf("location lookup status %q: %s", body.Status, body.Message)
	}
	if body.Lat == nil || body.Lon == nil {
		return Location{}, errors.New("location response misses coordinates")
	}
	return Location{Latitude: *body.Lat, Longitude: *body.Lon}, nil
}
