package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rl1809/item-stock/internal/core/domain"
	"github.com/rl1809/item-stock/internal/core/service"
)

type HTTPHandler struct {
	itemService ItemService
	logger      *zap.Logger
}

type ItemHTTPResponse struct {
	ID       string `json:"id"`
	Stock    int64  `json:"stock"`
	MinStock int64  `json:"minStock"`
	MaxStock int64  `json:"maxStock"`
}

type ItemDetailsHTTPResponse struct {
	ItemHTTPResponse
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type CreateItemHTTPRequest struct {
	ID       string `json:"id"`
	MaxStock *int64 `json:"maxStock"`
	MinStock *int64 `json:"minStock"`
}

type UpdateItemHTTPRequest struct {
	Stock    *int64 `json:"stock"`
	MaxStock *int64 `json:"maxStock"`
	MinStock *int64 `json:"minStock"`
}

type IncrementHTTPRequest struct {
	Quantity *int64 `json:"quantity"`
}

type IncrementHTTPResponse struct {
	ID    string `json:"id"`
	Stock int64  `json:"stock"`
}

func NewHTTPHandler(itemService ItemService, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{itemService: itemService, logger: logger}
}

func (h *HTTPHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	items := app.Group("/api/items")
	items.Get("/", h.ListItems)
	items.Get("/:id", h.GetItemDetails)
	items.Post("/", h.CreateItem)
	items.Patch("/:id", h.UpdateItem)
	items.Post("/:id/increment", h.IncrementItemStock)
	items.Delete("/:id", h.DeleteItem)
}

func (h *HTTPHandler) ListItems(c *fiber.Ctx) error {
	page, sort, err := listParams(c.QueryInt("page", 0), c.QueryInt("size", 0), c.Query("sort"), c.Query("order"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	items, err := h.itemService.ListItems(c.UserContext(), page, sort)
	if err != nil {
		return h.writeError(c, err)
	}

	resp := make([]ItemHTTPResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toItemHTTPResponse(item))
	}
	return c.JSON(resp)
}

func (h *HTTPHandler) GetItemDetails(c *fiber.Ctx) error {
	id, err := parseItemID(c.Params("id"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	item, err := h.itemService.GetItemDetails(c.UserContext(), id)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(ItemDetailsHTTPResponse{
		ItemHTTPResponse: toItemHTTPResponse(*item),
		CreatedAt:        formatTime(item.CreatedAt),
		UpdatedAt:        formatTime(item.UpdatedAt),
	})
}

func (h *HTTPHandler) CreateItem(c *fiber.Ctx) error {
	var req CreateItemHTTPRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	id, err := parseItemID(req.ID)
	if err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.itemService.CreateItem(c.UserContext(), domain.ItemFields{
		ID:       id,
		MaxStock: domain.FromPtr(req.MaxStock),
		MinStock: domain.FromPtr(req.MinStock),
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": created.String()})
}

func (h *HTTPHandler) UpdateItem(c *fiber.Ctx) error {
	id, err := parseItemID(c.Params("id"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req UpdateItemHTTPRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	updated, err := h.itemService.UpdateItem(c.UserContext(), domain.ItemFields{
		ID:       id,
		Stock:    domain.FromPtr(req.Stock),
		MaxStock: domain.FromPtr(req.MaxStock),
		MinStock: domain.FromPtr(req.MinStock),
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{"id": updated.String()})
}

func (h *HTTPHandler) IncrementItemStock(c *fiber.Ctx) error {
	id, err := parseItemID(c.Params("id"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req IncrementHTTPRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Quantity == nil {
		return badRequest(c, "quantity is required")
	}

	id, stock, err := h.itemService.IncrementItemStock(c.UserContext(), id, *req.Quantity)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(IncrementHTTPResponse{ID: id.String(), Stock: stock})
}

func (h *HTTPHandler) DeleteItem(c *fiber.Ctx) error {
	id, err := parseItemID(c.Params("id"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.itemService.DeleteItem(c.UserContext(), id); err != nil {
		return h.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *HTTPHandler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *HTTPHandler) writeError(c *fiber.Ctx, err error) error {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		h.logger.Error("unexpected error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	switch svcErr.Kind {
	case service.KindStore:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": storeErrorMessage})
	case service.KindNotFound:
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": svcErr.Message})
	case service.KindConflict:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": svcErr.Message})
	case service.KindInvalidArgument:
		return badRequest(c, svcErr.Message)
	}
	h.logger.Error("unclassified service error", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}

func toItemHTTPResponse(item domain.Item) ItemHTTPResponse {
	return ItemHTTPResponse{
		ID:       item.ID.String(),
		Stock:    item.Stock,
		MinStock: item.MinStock,
		MaxStock: item.MaxStock,
	}
}
