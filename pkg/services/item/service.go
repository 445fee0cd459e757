package item

import (
	"context"
	"fmt"

	"github.com/de-tools/site-report/pkg/adapters"
	"github.com/de-tools/site-report/pkg/models/domain"
	itemstore "github.com/de-tools/site-report/pkg/store/duckdb/item"
	"github.com/rs/zerolog"
)

type Service interface {
	Get(ctx context.Context, id string) (*domain.Item, error)
	Put(ctx context.Context, it domain.Item) error
	Delete(ctx context.Context, id string) error
}

type DefaultService struct {
	store itemstore.Store
}

func NewService(store itemstore.Store) *DefaultService {
	return &DefaultService{store: store}
}

// Get returns nil, nil and logs when the item does not exist.
func (s *DefaultService) Get(ctx context.Context, id string) (*domain.Item, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		zerolog.Ctx(ctx).Error().Str("item", id).Msg("complaint item not found")
		return nil, nil
	}
	return adapters.MapStoreItemToDomain(rec)
}

func (s *DefaultService) Put(ctx context.Context, it domain.Item) error {
	if err := it.Validate(); err != nil {
		return fmt.Errorf("item %s: %w", it.ID, err)
	}
	return s.store.Put(ctx, adapters.MapDomainItemToStore(it))
}

func (s *DefaultService) Delete(ctx context.Context, id string) error {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		zerolog.Ctx(ctx).Error().Str("item", id).Msg("complaint item not found")
		return nil
	}
	return s.store.Delete(ctx, id)
}
