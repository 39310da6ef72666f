package domain

import (
	"time"

	"github.com/google/uuid"
)

// Item is the stock record of one inventory unit.
// Persisted items satisfy 0 <= MinStock <= MaxStock and MaxStock > 0.
type Item struct {
	ID        uuid.UUID `db:"id"`
	Stock     int64     `db:"stock"`
	MinStock  int64     `db:"min_stock"`
	MaxStock  int64     `db:"max_stock"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ItemFields carries a subset of the mutable item attributes. It is the
// payload of create (MaxStock, MinStock) and update (any of the three).
type ItemFields struct {
	ID       uuid.UUID
	Stock    Optional[int64]
	MinStock Optional[int64]
	MaxStock Optional[int64]
}

// Merge returns a copy of i where every field set in f replaces the
// current value. No validation happens here.
func (i Item) Merge(f ItemFields) Item {
	merged := i
	merged.Stock = f.Stock.OrElse(i.Stock)
	merged.MinStock = f.MinStock.OrElse(i.MinStock)
	merged.MaxStock = f.MaxStock.OrElse(i.MaxStock)
	return merged
}
