package outlet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/martadelgado/pg-product-form/internal/cache"
	"github.com/martadelgado/pg-product-form/internal/upstream"
)

// ErrNotFound indicates no outlet carries the requested identifier.
var ErrNotFound = errors.New("outlet: not found")

// Outlet is a point of sale an order can be placed for.
type Outlet struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Option is a dropdown entry keyed by the outlet name.
type Option struct {
	Label   string `json:"label"`
	Value   string `json:"value"`
	Address string `json:"address"`
}

// Service resolves outlets from the upstream API, cached in Redis.
type Service struct {
	BaseURL string
	HTTP    *upstream.Client
	Cache   *cache.JSONCache
}

type outletsEnvelope struct {
	Results []Outlet `json:"results"`
}

const outletsCacheKey = "outlets:all"

// Outlets returns the outlet list, served from cache when possible.
func (s *Service) Outlets(ctx context.Context) ([]Outlet, error) {
	var cached []Outlet
	if ok, err := s.Cache.Get(ctx, outletsCacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	var envelope outletsEnvelope
	url := strings.TrimRight(s.BaseURL, "/") + "/outlets"
	if err := s.HTTP.GetJSON(ctx, url, &envelope); err != nil {
		return nil, fmt.Errorf("fetch outlets: %w", err)
	}
	_ = s.Cache.Set(ctx, outletsCacheKey, envelope.Results)
	return envelope.Results, nil
}

// Options shapes outlets into dropdown entries.
func (s *Service) Options(ctx context.Context) ([]Option, error) {
	outlets, err := s.Outlets(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]Option, 0, len(outlets))
	for _, o := range outlets {
		options = append(options, Option{Label: o.Name, Value: o.ID, Address: o.Address})
	}
	return options, nil
}

// ByID resolves a single outlet for order assignment.
func (s *Service) ByID(ctx context.Context, id string) (Outlet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Outlet{}, ErrNotFound
	}
	outlets, err := s.Outlets(ctx)
	if err != nil {
		return Outlet{}, err
	}
	for _, o := range outlets {
		if o.ID == id {
			return o, nil
		}
	}
	return Outlet{}, ErrNotFound
}
