package handler

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/item-stock/internal/adapter/storage"
	"github.com/rl1809/item-stock/internal/core/domain"
	"github.com/rl1809/item-stock/internal/core/service"
)

func newMemoryService() *service.ItemService {
	return service.NewItemService(storage.NewMemoryAdapter(), storage.NewLocalLocker(), zap.NewNop())
}

var errRaw = errors.New("raw failure")

// brokenService fails every call with err.
type brokenService struct {
	err error
}

func (s brokenService) ListItems(context.Context, domain.Page, domain.Sort) ([]domain.Item, error) {
	return nil, s.err
}

func (s brokenService) GetItemDetails(context.Context, uuid.UUID) (*domain.Item, error) {
	return nil, s.err
}

func (s brokenService) CreateItem(context.Context, domain.ItemFields) (uuid.UUID, error) {
	return uuid.Nil, s.err
}

func (s brokenService) UpdateItem(context.Context, domain.ItemFields) (uuid.UUID, error) {
	return uuid.Nil, s.err
}

func (s brokenService) IncrementItemStock(context.Context, uuid.UUID, int64) (uuid.UUID, int64, error) {
	return uuid.Nil, 0, s.err
}

func (s brokenService) DeleteItem(context.Context, uuid.UUID) error {
	return s.err
}

// storeFailure builds a STORE_ERROR the way the service does.
func storeFailure() error {
	return &service.Error{Kind: service.KindStore, Message: "Failed to get item with id x", Cause: errors.New("dial tcp: refused")}
}

func int64Ptr(v int64) *int64 {
	return &v
}
