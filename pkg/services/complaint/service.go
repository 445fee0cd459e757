package complaint

import (
	"context"
	"fmt"

	"github.com/de-tools/site-report/pkg/adapters"
	"github.com/de-tools/site-report/pkg/models/domain"
	"github.com/de-tools/site-report/pkg/services/item"
	"github.com/de-tools/site-report/pkg/services/locks"
	"github.com/de-tools/site-report/pkg/store/duckdb"
	complaintstore "github.com/de-tools/site-report/pkg/store/duckdb/complaint"
	"github.com/rs/zerolog"
)

// Service owns the complaint -> item cascade. Operations on a complaint that
// does not exist are logged and return a nil result without error.
// Changes to the same complaint are applied one at a time.
type Service interface {
	Get(ctx context.Context, id string) (*domain.Complaint, error)
	Put(ctx context.Context, c *domain.Complaint) error
	SetTitle(ctx context.Context, id, title string) error
	Delete(ctx context.Context, id string) error
	ListByType(ctx context.Context, t domain.ComplaintType) ([]string, error)

	AddItem(ctx context.Context, complaintID string, input domain.ItemInput) (*domain.Item, error)
	UpdateItem(ctx context.Context, complaintID, itemID string, input domain.ItemInput) (*domain.Item, error)
	RemoveItem(ctx context.Context, complaintID, itemID string) (bool, error)
}

type DefaultService struct {
	store complaintstore.Store
	items item.Service
	tx    duckdb.Provider
	locks locks.Keyed
}

type Option func(*DefaultService)

// WithTransactions makes every multi-row change run in one transaction on
// the database p provides.
func WithTransactions(p duckdb.Provider) Option {
	return func(s *DefaultService) {
		s.tx = p
	}
}

func NewService(store complaintstore.Store, items item.Service, opts ...Option) *DefaultService {
	s := &DefaultService{
		store: store,
		items: items,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DefaultService) atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return duckdb.Atomic(ctx, s.tx, fn)
}

func (s *DefaultService) Get(ctx context.Context, id string) (*domain.Complaint, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		zerolog.Ctx(ctx).Error().Str("complaint", id).Msg("complaint not found")
		return nil, nil
	}
	return adapters.MapStoreComplaintToDomain(rec)
}

// Put saves every item of c and then the complaint record.
func (s *DefaultService) Put(ctx context.Context, c *domain.Complaint) error {
	defer s.locks.Lock(c.ID)()

	return s.atomic(ctx, func(ctx context.Context) error {
		for _, it := range c.Items {
			if err := s.items.Put(ctx, it); err != nil {
				return err
			}
		}
		return s.saveMetadata(ctx, c)
	})
}

// SetTitle reloads the complaint and stores it under the new title. Items
// are left as they are.
func (s *DefaultService) SetTitle(ctx context.Context, id, title string) error {
	defer s.locks.Lock(id)()

	c, err := s.Get(ctx, id)
	if err != nil || c == nil {
		return err
	}
	c.Title = title
	return s.saveMetadata(ctx, c)
}

// saveMetadata writes the complaint record only; items are expected to be
// stored already.
func (s *DefaultService) saveMetadata(ctx context.Context, c *domain.Complaint) error {
	return s.store.Put(ctx, adapters.MapDomainComplaintToStore(c))
}

// Delete removes every owned item and then the complaint record.
func (s *DefaultService) Delete(ctx context.Context, id string) error {
	defer s.locks.Lock(id)()

	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	return s.atomic(ctx, func(ctx context.Context) error {
		for _, it := range c.Items {
			if err := s.items.Delete(ctx, it.ID); err != nil {
				return fmt.Errorf("delete items of complaint %s: %w", id, err)
			}
		}
		return s.store.Delete(ctx, id)
	})
}

func (s *DefaultService) ListByType(ctx context.Context, t domain.ComplaintType) ([]string, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidComplaintType, t)
	}
	return s.store.ListByType(ctx, string(t))
}

// AddItem persists the new item first and then the complaint that lists it.
func (s *DefaultService) AddItem(ctx context.Context, complaintID string, input domain.ItemInput) (*domain.Item, error) {
	defer s.locks.Lock(complaintID)()

	c, err := s.Get(ctx, complaintID)
	if err != nil || c == nil {
		return nil, err
	}

	it, err := c.AddItem(input)
	if err != nil {
		return nil, err
	}
	err = s.atomic(ctx, func(ctx context.Context) error {
		if err := s.items.Put(ctx, it); err != nil {
			return err
		}
		return s.saveMetadata(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("complaint", complaintID).
		Str("item", it.ID).
		Str("kind", string(it.Kind)).
		Msg("item added")
	return &it, nil
}

func (s *DefaultService) UpdateItem(ctx context.Context, complaintID, itemID string, input domain.ItemInput) (*domain.Item, error) {
	defer s.locks.Lock(complaintID)()

	c, err := s.Get(ctx, complaintID)
	if err != nil || c == nil {
		return nil, err
	}

	current := c.ItemByID(itemID)
	if current == nil {
		zerolog.Ctx(ctx).Error().
			Str("complaint", complaintID).
			Str("item", itemID).
			Msg("complaint item not found")
		return nil, nil
	}

	updated, err := current.Apply(input)
	if err != nil {
		return nil, err
	}
	if err := c.UpdateItem(updated); err != nil {
		return nil, err
	}
	err = s.atomic(ctx, func(ctx context.Context) error {
		return s.items.Put(ctx, updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// RemoveItem reloads the complaint, deletes the item and saves the complaint
// without it. It reports whether the item was part of the complaint.
func (s *DefaultService) RemoveItem(ctx context.Context, complaintID, itemID string) (bool, error) {
	defer s.locks.Lock(complaintID)()

	c, err := s.Get(ctx, complaintID)
	if err != nil || c == nil {
		return false, err
	}

	if c.ItemByID(itemID) == nil {
		zerolog.Ctx(ctx).Error().
			Str("complaint", complaintID).
			Str("item", itemID).
			Msg("complaint item not found")
		return false, nil
	}

	c.RemoveItem(itemID)
	err = s.atomic(ctx, func(ctx context.Context) error {
		if err := s.items.Delete(ctx, itemID); err != nil {
			return err
		}
		return s.saveMetadata(ctx, c)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
