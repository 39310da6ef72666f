package port

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/rl1809/item-stock/internal/core/domain"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrItemExists   = errors.New("item already exists")
)

type ItemRepository interface {
	// List returns one page of items ordered by sort
	List(ctx context.Context, page domain.Page, sort domain.Sort) ([]domain.Item, error)

	// BeginTx opens a transaction scoped to ctx; cancelling ctx aborts it
	BeginTx(ctx context.Context) (ItemTx, error)
}

// ItemTx is a unit of work against the item store. Writes become visible
// only after Commit. Rollback after Commit is a no-op.
type ItemTx interface {
	// Get returns the item locked for update, or nil when it does not exist
	Get(ctx context.Context, id uuid.UUID) (*domain.Item, error)

	// Insert stores a new item, returns ErrItemExists on a duplicate id
	Insert(ctx context.Context, item domain.Item) error

	// Update overwrites stock, min and max, returns ErrItemNotFound if missing
	Update(ctx context.Context, item domain.Item) error

	// Delete removes the item, returns ErrItemNotFound if missing
	Delete(ctx context.Context, id uuid.UUID) error

	Commit() error
	Rollback() error
}
