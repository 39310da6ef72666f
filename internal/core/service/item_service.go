package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/item-stock/internal/core/domain"
	"github.com/rl1809/item-stock/internal/port"
)

type method string

const (
	methodList      method = "list"
	methodDetails   method = "details"
	methodCreate    method = "create"
	methodUpdate    method = "update"
	methodIncrement method = "increment"
	methodDelete    method = "delete"
)

const lockKeyPrefix = "item:"

// ItemService enforces the stock invariants. Every single-item operation runs
// fetch-validate-write inside one transaction while holding the item's lock.
type ItemService struct {
	repo    port.ItemRepository
	locker  port.Locker
	logger  *zap.Logger
	timeout time.Duration
}

type Option func(*ItemService)

// WithTimeout bounds every operation, including time spent waiting on the lock.
func WithTimeout(d time.Duration) Option {
	return func(s *ItemService) {
		s.timeout = d
	}
}

func NewItemService(repo port.ItemRepository, locker port.Locker, logger *zap.Logger, opts ...Option) *ItemService {
	s := &ItemService{
		repo:   repo,
		locker: locker,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ItemService) ListItems(ctx context.Context, page domain.Page, sort domain.Sort) ([]domain.Item, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	s.logger.Debug("listing items",
		zap.String("method", string(methodList)),
		zap.Int("page", page.Number),
		zap.Int("size", page.Size),
		zap.String("sort", string(sort.Field)),
		zap.String("order", string(sort.Direction)),
	)

	items, err := s.repo.List(ctx, page, sort)
	if err != nil {
		s.logger.Error("failed to list items", zap.String("method", string(methodList)), zap.Error(err))
		return nil, storeError(err, "Failed to list items")
	}
	return items, nil
}

func (s *ItemService) GetItemDetails(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	var item *domain.Item
	err := s.inTx(ctx, methodDetails, id, func(ctx context.Context, tx port.ItemTx) error {
		var err error
		item, err = s.findItemOrFail(ctx, tx, id, methodDetails)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// CreateItem stores a new item with stock set to its maximum. MinStock
// defaults to 0; any Stock in fields is ignored.
func (s *ItemService) CreateItem(ctx context.Context, fields domain.ItemFields) (uuid.UUID, error) {
	if err := checkItemFields(fields); err != nil {
		return uuid.Nil, err
	}
	maxStock, ok := fields.MaxStock.Get()
	if !ok {
		return uuid.Nil, invalidArgument("Maximum stock is required")
	}

	item := domain.Item{
		ID:       fields.ID,
		Stock:    maxStock,
		MinStock: fields.MinStock.OrElse(0),
		MaxStock: maxStock,
	}

	err := s.inTx(ctx, methodCreate, item.ID, func(ctx context.Context, tx port.ItemTx) error {
		existing, err := tx.Get(ctx, item.ID)
		if err != nil {
			s.logger.Error("failed to get item", s.fields(methodCreate, item.ID, zap.Error(err))...)
			return storeError(err, "Failed to get item with id %s", item.ID)
		}
		if existing != nil {
			s.logger.Debug("item already exists", s.fields(methodCreate, item.ID)...)
			return conflict("Item with id %s already exists", item.ID)
		}
		return s.persist(ctx, tx, item, methodCreate, tx.Insert)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return item.ID, nil
}

// UpdateItem overlays the set fields onto the stored item. Each incoming
// bound is checked against the stored opposite bound, not the merged value.
func (s *ItemService) UpdateItem(ctx context.Context, fields domain.ItemFields) (uuid.UUID, error) {
	if err := checkItemFields(fields); err != nil {
		return uuid.Nil, err
	}

	err := s.inTx(ctx, methodUpdate, fields.ID, func(ctx context.Context, tx port.ItemTx) error {
		existing, err := s.findItemOrFail(ctx, tx, fields.ID, methodUpdate)
		if err != nil {
			return err
		}
		if minStock, ok := fields.MinStock.Get(); ok && minStock > existing.MaxStock {
			return invalidArgument("Minimum stock must be less than maximum stock")
		}
		if maxStock, ok := fields.MaxStock.Get(); ok && maxStock < existing.MinStock {
			return invalidArgument("Maximum stock must be greater than minimum stock")
		}
		return s.persist(ctx, tx, existing.Merge(fields), methodUpdate, tx.Update)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return fields.ID, nil
}

// IncrementItemStock adds delta (possibly negative) to the stock and returns
// the new value. Bounds are inclusive.
func (s *ItemService) IncrementItemStock(ctx context.Context, id uuid.UUID, delta int64) (uuid.UUID, int64, error) {
	var stock int64
	err := s.inTx(ctx, methodIncrement, id, func(ctx context.Context, tx port.ItemTx) error {
		existing, err := s.findItemOrFail(ctx, tx, id, methodIncrement)
		if err != nil {
			return err
		}
		if delta > 0 && existing.Stock > math.MaxInt64-delta {
			return invalidArgument("Stock cannot be greater than maximum stock")
		}
		if delta < 0 && existing.Stock < math.MinInt64-delta {
			return invalidArgument("Stock cannot be less than minimum stock")
		}
		candidate := existing.Stock + delta
		if candidate < existing.MinStock {
			return invalidArgument("Stock cannot be less than minimum stock")
		}
		if candidate > existing.MaxStock {
			return invalidArgument("Stock cannot be greater than maximum stock")
		}
		existing.Stock = candidate
		if err := s.persist(ctx, tx, *existing, methodIncrement, tx.Update); err != nil {
			return err
		}
		stock = candidate
		return nil
	})
	if err != nil {
		return uuid.Nil, 0, err
	}
	return id, stock, nil
}

func (s *ItemService) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return s.inTx(ctx, methodDelete, id, func(ctx context.Context, tx port.ItemTx) error {
		if _, err := s.findItemOrFail(ctx, tx, id, methodDelete); err != nil {
			return err
		}
		if err := tx.Delete(ctx, id); err != nil {
			if errors.Is(err, port.ErrItemNotFound) {
				return notFound("Item with id %s does not exist", id)
			}
			s.logger.Error("failed to delete item", s.fields(methodDelete, id, zap.Error(err))...)
			return storeError(err, "Failed to delete item with id %s", id)
		}
		s.logger.Debug("deleted item", s.fields(methodDelete, id)...)
		return nil
	})
}

// inTx holds the item lock and a transaction around fn. The transaction is
// committed only when fn succeeds.
func (s *ItemService) inTx(ctx context.Context, m method, id uuid.UUID, fn func(context.Context, port.ItemTx) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	unlock, err := s.locker.Lock(ctx, lockKeyPrefix+id.String())
	if err != nil {
		s.logger.Error("failed to lock item", s.fields(m, id, zap.Error(err))...)
		return storeError(err, "Failed to lock item with id %s", id)
	}
	defer unlock()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("failed to begin transaction", s.fields(m, id, zap.Error(err))...)
		return storeError(err, "Failed to begin transaction for item with id %s", id)
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		var classified *Error
		if errors.As(err, &classified) {
			return err
		}
		s.logger.Error("unexpected store failure", s.fields(m, id, zap.Error(err))...)
		return storeError(err, "Unexpected failure for item with id %s", id)
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", s.fields(m, id, zap.Error(err))...)
		return storeError(err, "Failed to commit transaction for item with id %s", id)
	}
	return nil
}

func (s *ItemService) findItemOrFail(ctx context.Context, tx port.ItemTx, id uuid.UUID, m method) (*domain.Item, error) {
	item, err := tx.Get(ctx, id)
	if err != nil {
		s.logger.Error("failed to get item", s.fields(m, id, zap.Error(err))...)
		return nil, storeError(err, "Failed to get item with id %s", id)
	}
	if item == nil {
		s.logger.Debug("item does not exist", s.fields(m, id)...)
		return nil, notFound("Item with id %s does not exist", id)
	}
	return item, nil
}

func (s *ItemService) persist(ctx context.Context, tx port.ItemTx, item domain.Item, m method, write func(context.Context, domain.Item) error) error {
	if err := write(ctx, item); err != nil {
		switch {
		case errors.Is(err, port.ErrItemExists):
			s.logger.Debug("item already exists", s.fields(m, item.ID)...)
			return conflict("Item with id %s already exists", item.ID)
		case errors.Is(err, port.ErrItemNotFound):
			s.logger.Debug("item does not exist", s.fields(m, item.ID)...)
			return notFound("Item with id %s does not exist", item.ID)
		}
		s.logger.Error("failed to persist item", s.fields(m, item.ID, zap.Error(err))...)
		return storeError(err, "Failed to persist stock for item with id %s", item.ID)
	}
	s.logger.Debug("persisted item", s.fields(m, item.ID, zap.Int64("stock", item.Stock))...)
	return nil
}

func (s *ItemService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *ItemService) fields(m method, id uuid.UUID, extra ...zap.Field) []zap.Field {
	return append([]zap.Field{zap.String("method", string(m)), zap.Stringer("item_id", id)}, extra...)
}

// checkItemFields validates the bounds present in fields. Unset fields are skipped.
func checkItemFields(fields domain.ItemFields) error {
	minStock, hasMin := fields.MinStock.Get()
	maxStock, hasMax := fields.MaxStock.Get()

	if hasMin && minStock < 0 {
		return invalidArgument("Minimum stock cannot be negative")
	}
	if hasMax && maxStock <= 0 {
		return invalidArgument("Maximum stock must be greater than 0")
	}
	if hasMin && hasMax && minStock > maxStock {
		return invalidArgument("Minimum stock must be less than maximum stock")
	}
	return nil
}
