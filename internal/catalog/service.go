package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/martadelgado/pg-product-form/internal/cache"
	"github.com/martadelgado/pg-product-form/internal/pricing"
)

// ErrNotFound indicates no catalog item carries the requested EAN.
var ErrNotFound = errors.New("catalog: item not found")

// Item is a catalog entry as supplied by the upstream catalog API. The tier
// table is ordered by priority; resolution takes the first match.
type Item struct {
	EAN           string          `json:"id"`
	Name          string          `json:"name"`
	BasePrice     decimal.Decimal `json:"basePrice"`
	DiscountTiers []pricing.Tier  `json:"discountTiers"`
}

// Option is a dropdown entry keyed by a selectable label.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Item  Item   `json:"item"`
}

// Fetcher loads the full catalog from the upstream collaborator.
type Fetcher interface {
	FetchItems(ctx context.Context) ([]Item, error)
}

// Service resolves catalog items for the order form, caching upstream
// responses in Redis.
type Service struct {
	fetcher Fetcher
	cache   *cache.JSONCache
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Fetcher Fetcher
	Cache   *cache.JSONCache
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("catalog: fetcher is required")
	}
	return &Service{fetcher: cfg.Fetcher, cache: cfg.Cache}, nil
}

const itemsCacheKey = "items:all"

// Items returns the full catalog, served from cache when possible.
func (s *Service) Items(ctx context.Context) ([]Item, error) {
	var cached []Item
	if ok, err := s.cache.Get(ctx, itemsCacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	items, err := s.fetcher.FetchItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	_ = s.cache.Set(ctx, itemsCacheKey, items)
	return items, nil
}

// Options shapes the catalog into label-keyed dropdown entries.
func (s *Service) Options(ctx context.Context) ([]Option, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]Option, 0, len(items))
	for _, item := range items {
		options = append(options, Option{Label: item.Name, Value: item.EAN, Item: item})
	}
	return options, nil
}

// ItemByEAN resolves a single catalog item for line selection.
func (s *Service) ItemByEAN(ctx context.Context, ean string) (Item, error) {
	ean = strings.TrimSpace(ean)
	if ean == "" {
		return Item{}, ErrNotFound
	}
	items, err := s.Items(ctx)
	if err != nil {
		return Item{}, err
	}
	for _, item := range items {
		if item.EAN == ean {
			return item, nil
		}
	}
	return Item{}, ErrNotFound
}
