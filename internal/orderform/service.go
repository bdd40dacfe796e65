package orderform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/martadelgado/pg-product-form/internal/catalog"
	"github.com/martadelgado/pg-product-form/internal/events"
	"github.com/martadelgado/pg-product-form/internal/obs"
	"github.com/martadelgado/pg-product-form/internal/outlet"
	"github.com/martadelgado/pg-product-form/internal/pricing"
)

var (
	// ErrNotFound indicates the requested draft could not be located.
	ErrNotFound = errors.New("orderform: draft not found")
	// ErrNotSubmittable is returned when a draft misses an outlet or has no
	// selected items.
	ErrNotSubmittable = errors.New("orderform: draft not ready for submission")
)

// CatalogLookup resolves catalog items at selection time.
type CatalogLookup interface {
	ItemByEAN(ctx context.Context, ean string) (catalog.Item, error)
}

// OutletLookup resolves outlets at assignment time.
type OutletLookup interface {
	ByID(ctx context.Context, id string) (outlet.Outlet, error)
}

// Submitter hands a finished order to the submission collaborator.
type Submitter interface {
	Submit(ctx context.Context, order Order) error
}

// Service owns the in-memory draft collection. All mutations are serialized
// behind a mutex: total recomputation reads every line, so concurrent UI
// events must not interleave on the same draft.
type Service struct {
	mu     sync.Mutex
	drafts map[uuid.UUID]Order

	catalog   CatalogLookup
	outlets   OutletLookup
	submitter Submitter
	bus       *events.Bus
	now       func() time.Time
	draftTTL  time.Duration
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Catalog   CatalogLookup
	Outlets   OutletLookup
	Submitter Submitter
	Bus       *events.Bus
	Now       func() time.Time
	DraftTTL  time.Duration
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("orderform: catalog lookup is required")
	}
	if cfg.Outlets == nil {
		return nil, errors.New("orderform: outlet lookup is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ttl := cfg.DraftTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		drafts:    make(map[uuid.UUID]Order),
		catalog:   cfg.Catalog,
		outlets:   cfg.Outlets,
		submitter: cfg.Submitter,
		bus:       cfg.Bus,
		now:       now,
		draftTTL:  ttl,
	}, nil
}

// Create opens a new draft with a single empty line.
func (s *Service) Create(ctx context.Context) Order {
	order := New(uuid.New(), s.now())
	s.mu.Lock()
	s.drafts[order.ID] = order
	s.mu.Unlock()
	_ = s.bus.Emit(ctx, events.TopicOrderCreated, order.ID, order)
	return order
}

// Get returns the current snapshot of a draft.
func (s *Service) Get(id uuid.UUID) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.drafts[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return order, nil
}

// mutate applies a transform to a draft under the lock and stores the new
// snapshot. The transform must be pure.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, op string, fn func(Order) (Order, error)) (Order, error) {
	s.mu.Lock()
	order, ok := s.drafts[id]
	if !ok {
		s.mu.Unlock()
		obs.RecordOrderEdit(op, "not_found")
		return Order{}, ErrNotFound
	}
	next, err := fn(order)
	if err != nil {
		s.mu.Unlock()
		obs.RecordOrderEdit(op, "rejected")
		return order, err
	}
	s.drafts[id] = next
	s.mu.Unlock()
	obs.RecordOrderEdit(op, "ok")
	_ = s.bus.Emit(ctx, events.TopicOrderUpdated, id, next)
	return next, nil
}

// AddLine appends an empty line to the draft.
func (s *Service) AddLine(ctx context.Context, id uuid.UUID) (Order, error) {
	return s.mutate(ctx, id, "add_line", func(o Order) (Order, error) {
		return AddLine(o, s.now()), nil
	})
}

// RemoveLine deletes a line. The first line is protected and the draft stays
// unchanged when its removal is attempted.
func (s *Service) RemoveLine(ctx context.Context, id uuid.UUID, index int) (Order, error) {
	return s.mutate(ctx, id, "remove_line", func(o Order) (Order, error) {
		return RemoveLine(o, index, s.now())
	})
}

// SelectItem resolves the EAN through the catalog and snapshots the item into
// the line. The lookup runs before the lock is taken; only the pure transform
// holds it.
func (s *Service) SelectItem(ctx context.Context, id uuid.UUID, index int, ean string) (Order, error) {
	item, err := s.catalog.ItemByEAN(ctx, ean)
	if err != nil {
		obs.RecordOrderEdit("select_item", "rejected")
		return Order{}, fmt.Errorf("resolve item: %w", err)
	}
	return s.mutate(ctx, id, "select_item", func(o Order) (Order, error) {
		return SelectItem(o, index, item, s.now())
	})
}

// SetQuantity validates and applies a raw quantity entry. An invalid entry
// rejects this one edit; the stored value is left untouched.
func (s *Service) SetQuantity(ctx context.Context, id uuid.UUID, index int, raw string) (Order, error) {
	qty, err := pricing.ParseQuantity(raw)
	if err != nil {
		obs.RecordOrderEdit("set_quantity", "rejected")
		return Order{}, err
	}
	return s.mutate(ctx, id, "set_quantity", func(o Order) (Order, error) {
		return SetQuantity(o, index, qty, s.now())
	})
}

// SetDiscount validates and applies a raw manual discount entry. An empty
// entry means zero.
func (s *Service) SetDiscount(ctx context.Context, id uuid.UUID, index int, raw string) (Order, error) {
	pct, err := pricing.ParseDiscount(raw)
	if err != nil {
		obs.RecordOrderEdit("set_discount", "rejected")
		return Order{}, err
	}
	return s.mutate(ctx, id, "set_discount", func(o Order) (Order, error) {
		return SetDiscount(o, index, pct, s.now())
	})
}

// SelectOutlet assigns the chosen outlet to the draft.
func (s *Service) SelectOutlet(ctx context.Context, id uuid.UUID, outletID string) (Order, error) {
	chosen, err := s.outlets.ByID(ctx, outletID)
	if err != nil {
		obs.RecordOrderEdit("select_outlet", "rejected")
		return Order{}, fmt.Errorf("resolve outlet: %w", err)
	}
	return s.mutate(ctx, id, "select_outlet", func(o Order) (Order, error) {
		return SelectOutlet(o, chosen.ID, chosen.Address, s.now()), nil
	})
}

// Submit hands the finished order to the submission collaborator and drops
// the draft. A draft qualifies once an outlet is chosen and at least one line
// carries a selected item.
func (s *Service) Submit(ctx context.Context, id uuid.UUID) (Order, error) {
	s.mu.Lock()
	order, ok := s.drafts[id]
	s.mu.Unlock()
	if !ok {
		return Order{}, ErrNotFound
	}
	if err := submittable(order); err != nil {
		return order, err
	}
	if s.submitter != nil {
		if err := s.submitter.Submit(ctx, order); err != nil {
			return order, fmt.Errorf("submit order: %w", err)
		}
	}
	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()
	obs.RecordOrderSubmitted()
	_ = s.bus.Emit(ctx, events.TopicOrderSubmitted, id, order)
	return order, nil
}

func submittable(order Order) error {
	if order.OutletID == "" {
		return fmt.Errorf("%w: no outlet selected", ErrNotSubmittable)
	}
	for _, line := range order.Lines {
		if line.EAN != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: no items selected", ErrNotSubmittable)
}

// PurgeExpired drops drafts idle for longer than the configured TTL and
// returns how many were removed.
func (s *Service) PurgeExpired(ctx context.Context) int {
	cutoff := s.now().Add(-s.draftTTL)
	var expired []Order
	s.mu.Lock()
	for id, order := range s.drafts {
		if order.UpdatedAt.Before(cutoff) {
			delete(s.drafts, id)
			expired = append(expired, order)
		}
	}
	s.mu.Unlock()
	for _, order := range expired {
		obs.RecordDraftPurged()
		_ = s.bus.Emit(ctx, events.TopicOrderExpired, order.ID, order)
	}
	return len(expired)
}
