package rpc

// Item is the list projection.
type Item struct {
	ID       string `json:"id"`
	Stock    int64  `json:"stock"`
	MinStock int64  `json:"minStock"`
	MaxStock int64  `json:"maxStock"`
}

// ItemDetails is the full projection. Timestamps are RFC 3339.
type ItemDetails struct {
	ID        string `json:"id"`
	Stock     int64  `json:"stock"`
	MinStock  int64  `json:"minStock"`
	MaxStock  int64  `json:"maxStock"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// ListItemsRequest pages through items. Zero values fall back to page 0,
// size 10, sorted by stock ascending.
type ListItemsRequest struct {
	Page  int    `json:"page"`
	Size  int    `json:"size"`
	Sort  string `json:"sort,omitempty"`
	Order string `json:"order,omitempty"`
}

type GetItemDetailsRequest struct {
	ID string `json:"id"`
}

type CreateItemRequest struct {
	ID       string `json:"id"`
	MaxStock *int64 `json:"maxStock,omitempty"`
	MinStock *int64 `json:"minStock,omitempty"`
}

// UpdateItemRequest overlays the non-nil fields onto the stored item.
type UpdateItemRequest struct {
	ID       string `json:"id"`
	Stock    *int64 `json:"stock,omitempty"`
	MaxStock *int64 `json:"maxStock,omitempty"`
	MinStock *int64 `json:"minStock,omitempty"`
}

type ItemIDResponse struct {
	ID string `json:"id"`
}

type IncrementItemStockRequest struct {
	ID       string `json:"id"`
	Quantity int64  `json:"quantity"`
}

type IncrementItemStockResponse struct {
	ID    string `json:"id"`
	Stock int64  `json:"stock"`
}

type DeleteItemRequest struct {
	ID string `json:"id"`
}

type Empty struct{}
