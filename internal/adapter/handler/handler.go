package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/item-stock/internal/core/domain"
	"github.com/rl1809/item-stock/internal/core/service"
)

// storeErrorMessage replaces STORE_ERROR details at the synchronous boundary.
const storeErrorMessage = "internal storage error"

// ItemService is the part of service.ItemService the adapters drive.
type ItemService interface {
	ListItems(ctx context.Context, page domain.Page, sort domain.Sort) ([]domain.Item, error)
	GetItemDetails(ctx context.Context, id uuid.UUID) (*domain.Item, error)
	CreateItem(ctx context.Context, fields domain.ItemFields) (uuid.UUID, error)
	UpdateItem(ctx context.Context, fields domain.ItemFields) (uuid.UUID, error)
	IncrementItemStock(ctx context.Context, id uuid.UUID, delta int64) (uuid.UUID, int64, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
}

var _ ItemService = (*service.ItemService)(nil)

func parseItemID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid item id %q", raw)
	}
	return id, nil
}

// listParams applies the listing defaults: page 0, size 10, stock ascending.
func listParams(page, size int, sortField, order string) (domain.Page, domain.Sort, error) {
	if size == 0 {
		size = domain.DefaultPageSize
	}
	p, err := domain.NewPage(page, size)
	if err != nil {
		return domain.Page{}, domain.Sort{}, err
	}

	sort := domain.DefaultSort()
	if sortField != "" {
		if sort.Field, err = domain.ParseSortField(sortField); err != nil {
			return domain.Page{}, domain.Sort{}, err
		}
	}
	if order != "" {
		if sort.Direction, err = domain.ParseDirection(order); err != nil {
			return domain.Page{}, domain.Sort{}, err
		}
	}
	return p, sort, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
