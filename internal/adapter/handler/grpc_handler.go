package handler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/item-stock/internal/adapter/handler/rpc"
	"github.com/rl1809/item-stock/internal/core/domain"
	"github.com/rl1809/item-stock/internal/core/service"
)

type GRPCHandler struct {
	itemService ItemService
	logger      *zap.Logger
}

func NewGRPCHandler(itemService ItemService, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{itemService: itemService, logger: logger}
}

// ListItems streams one message per item of the requested page.
func (h *GRPCHandler) ListItems(req *rpc.ListItemsRequest, stream rpc.ItemService_ListItemsServer) error {
	page, sort, err := listParams(req.Page, req.Size, req.Sort, req.Order)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	items, err := h.itemService.ListItems(stream.Context(), page, sort)
	if err != nil {
		return h.toStatus("ListItems", err)
	}
	for _, item := range items {
		if err := stream.Send(toRPCItem(item)); err != nil {
			return err
		}
	}
	return nil
}

func (h *GRPCHandler) GetItemDetails(ctx context.Context, req *rpc.GetItemDetailsRequest) (*rpc.ItemDetails, error) {
	id, err := parseItemID(req.ID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := h.itemService.GetItemDetails(ctx, id)
	if err != nil {
		return nil, h.toStatus("GetItemDetails", err)
	}
	return &rpc.ItemDetails{
		ID:        item.ID.String(),
		Stock:     item.Stock,
		MinStock:  item.MinStock,
		MaxStock:  item.MaxStock,
		CreatedAt: formatTime(item.CreatedAt),
		UpdatedAt: formatTime(item.UpdatedAt),
	}, nil
}

func (h *GRPCHandler) CreateItem(ctx context.Context, req *rpc.CreateItemRequest) (*rpc.ItemIDResponse, error) {
	id, err := parseItemID(req.ID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	created, err := h.itemService.CreateItem(ctx, domain.ItemFields{
		ID:       id,
		MaxStock: domain.FromPtr(req.MaxStock),
		MinStock: domain.FromPtr(req.MinStock),
	})
	if err != nil {
		return nil, h.toStatus("CreateItem", err)
	}
	return &rpc.ItemIDResponse{ID: created.String()}, nil
}

func (h *GRPCHandler) UpdateItem(ctx context.Context, req *rpc.UpdateItemRequest) (*rpc.ItemIDResponse, error) {
	id, err := parseItemID(req.ID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	updated, err := h.itemService.UpdateItem(ctx, domain.ItemFields{
		ID:       id,
		Stock:    domain.FromPtr(req.Stock),
		MaxStock: domain.FromPtr(req.MaxStock),
		MinStock: domain.FromPtr(req.MinStock),
	})
	if err != nil {
		return nil, h.toStatus("UpdateItem", err)
	}
	return &rpc.ItemIDResponse{ID: updated.String()}, nil
}

func (h *GRPCHandler) IncrementItemStock(ctx context.Context, req *rpc.IncrementItemStockRequest) (*rpc.IncrementItemStockResponse, error) {
	id, err := parseItemID(req.ID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	id, stock, err := h.itemService.IncrementItemStock(ctx, id, req.Quantity)
	if err != nil {
		return nil, h.toStatus("IncrementItemStock", err)
	}
	return &rpc.IncrementItemStockResponse{ID: id.String(), Stock: stock}, nil
}

func (h *GRPCHandler) DeleteItem(ctx context.Context, req *rpc.DeleteItemRequest) (*rpc.Empty, error) {
	id, err := parseItemID(req.ID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err := h.itemService.DeleteItem(ctx, id); err != nil {
		return nil, h.toStatus("DeleteItem", err)
	}
	return &rpc.Empty{}, nil
}

func (h *GRPCHandler) toStatus(method string, err error) error {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		h.logger.Error("unexpected error", zap.String("rpc", method), zap.Error(err))
		return status.Error(codes.Unknown, err.Error())
	}

	switch svcErr.Kind {
	case service.KindStore:
		return status.Error(codes.Internal, storeErrorMessage)
	case service.KindNotFound:
		return status.Error(codes.NotFound, svcErr.Message)
	case service.KindConflict:
		return status.Error(codes.AlreadyExists, svcErr.Message)
	case service.KindInvalidArgument:
		return status.Error(codes.InvalidArgument, svcErr.Message)
	}
	h.logger.Error("unclassified service error", zap.String("rpc", method), zap.Error(err))
	return status.Error(codes.Unknown, svcErr.Message)
}

func toRPCItem(item domain.Item) *rpc.Item {
	return &rpc.Item{
		ID:       item.ID.String(),
		Stock:    item.Stock,
		MinStock: item.MinStock,
		MaxStock: item.MaxStock,
	}
}
