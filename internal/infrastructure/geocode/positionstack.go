// Package geocode turns free-text addresses into coordinates.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnresolved means the provider returned no candidate for the address.
var ErrUnresolved = errors.New("could not get location based on address")

// Result is the first candidate returned for an address.
type Result struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
}

// PositionStack implements forward geocoding using api.positionstack.com
type PositionStack struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewPositionStack(baseURL, apiKey string) *PositionStack {
	return &PositionStack{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type candidate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label"`
}

// Resolve looks the address up once; there is no retry.
func (p *PositionStack) Resolve(ctx context.Context, address string) (Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Result{}, ErrUnresolved
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	q := url.Values{}
	q.Set("access_key", p.APIKey)
	q.Set("query", address)
	q.Set("limit", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/forward?"+q.Encode(), nil)
	if err != nil {
		return Result{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Data  []json.RawMessage `json:"data"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("geocode decode: %w", err)
	}
	if body.Error != nil {
		return Result{}, fmt.Errorf("geocode provider error %s: %s", body.Error.Code, body.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("geocode status %d", resp.StatusCode)
	}
	if len(body.Data) == 0 {
		return Result{}, ErrUnresolved
	}
	// an empty result set is sometimes encoded as [[]]
	var c candidate
	if err := json.Unmarshal(body.Data[0], &c); err != nil || strings.TrimSpace(c.Label) == "" {
		return Result{}, ErrUnresolved
	}
	return Result{Lat: c.Latitude, Lng: c.Longitude, Label: c.Label}, nil
}
