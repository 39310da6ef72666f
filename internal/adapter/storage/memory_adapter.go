package storage

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/item-stock/internal/core/domain"
	"github.com/rl1809/item-stock/internal/port"
)

var errTxDone = errors.New("transaction already committed or rolled back")

// MemoryAdapter is an in-process item store. Transactions stage their writes
// and apply them atomically on Commit. It does not lock rows; callers that
// need per-item isolation serialize through a port.Locker.
type MemoryAdapter struct {
	mu    sync.RWMutex
	items map[uuid.UUID]domain.Item
	now   func() time.Time
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		items: make(map[uuid.UUID]domain.Item),
		now:   time.Now,
	}
}

func (m *MemoryAdapter) List(ctx context.Context, page domain.Page, sort domain.Sort) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	less, err := itemComparator(sort)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	m.mu.RLock()
	items := make([]domain.Item, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	m.mu.RUnlock()

	slices.SortFunc(items, less)

	start := min(page.Offset(), len(items))
	end := min(start+page.Size, len(items))
	return items[start:end], nil
}

func (m *MemoryAdapter) BeginTx(ctx context.Context) (port.ItemTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &memoryTx{store: m, ctx: ctx, writes: make(map[uuid.UUID]*stagedWrite)}, nil
}

type writeKind int

const (
	writeInsert writeKind = iota
	writeUpdate
	writeDelete
)

type stagedWrite struct {
	kind writeKind
	item domain.Item
}

type memoryTx struct {
	store  *MemoryAdapter
	ctx    context.Context
	writes map[uuid.UUID]*stagedWrite
	order  []uuid.UUID
	done   bool
}

// current returns the item as this transaction sees it.
func (t *memoryTx) current(id uuid.UUID) (domain.Item, bool) {
	if w, ok := t.writes[id]; ok {
		if w.kind == writeDelete {
			return domain.Item{}, false
		}
		return w.item, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	item, ok := t.store.items[id]
	return item, ok
}

func (t *memoryTx) stage(id uuid.UUID, w *stagedWrite) {
	if _, ok := t.writes[id]; !ok {
		t.order = append(t.order, id)
	}
	t.writes[id] = w
}

func (t *memoryTx) Get(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	if t.done {
		return nil, errTxDone
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	item, ok := t.current(id)
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (t *memoryTx) Insert(ctx context.Context, item domain.Item) error {
	if t.done {
		return errTxDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.current(item.ID); ok {
		return port.ErrItemExists
	}
	t.stage(item.ID, &stagedWrite{kind: writeInsert, item: item})
	return nil
}

func (t *memoryTx) Update(ctx context.Context, item domain.Item) error {
	if t.done {
		return errTxDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	existing, ok := t.current(item.ID)
	if !ok {
		return port.ErrItemNotFound
	}
	item.CreatedAt = existing.CreatedAt
	kind := writeUpdate
	if w, staged := t.writes[item.ID]; staged && w.kind == writeInsert {
		kind = writeInsert
	}
	t.stage(item.ID, &stagedWrite{kind: kind, item: item})
	return nil
}

func (t *memoryTx) Delete(ctx context.Context, id uuid.UUID) error {
	if t.done {
		return errTxDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.current(id); !ok {
		return port.ErrItemNotFound
	}
	t.stage(id, &stagedWrite{kind: writeDelete})
	return nil
}

// Commit applies all staged writes or none of them. A cancelled context
// aborts the commit.
func (t *memoryTx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true

	if err := t.ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for _, id := range t.order {
		w := t.writes[id]
		_, exists := t.store.items[id]
		switch {
		case w.kind == writeInsert && exists:
			return fmt.Errorf("commit: %w", port.ErrItemExists)
		case w.kind != writeInsert && !exists:
			return fmt.Errorf("commit: %w", port.ErrItemNotFound)
		}
	}

	now := t.store.now()
	for _, id := range t.order {
		w := t.writes[id]
		switch w.kind {
		case writeInsert:
			w.item.CreatedAt = now
			w.item.UpdatedAt = now
			t.store.items[id] = w.item
		case writeUpdate:
			w.item.CreatedAt = t.store.items[id].CreatedAt
			w.item.UpdatedAt = now
			t.store.items[id] = w.item
		case writeDelete:
			delete(t.store.items, id)
		}
	}
	return nil
}

func (t *memoryTx) Rollback() error {
	t.done = true
	t.writes = nil
	t.order = nil
	return nil
}

func itemComparator(sort domain.Sort) (func(a, b domain.Item) int, error) {
	var byField func(a, b domain.Item) int
	switch sort.Field {
	case domain.SortByID:
		byField = func(a, b domain.Item) int { return 0 }
	case domain.SortByStock:
		byField = func(a, b domain.Item) int { return cmp.Compare(a.Stock, b.Stock) }
	case domain.SortByMinStock:
		byField = func(a, b domain.Item) int { return cmp.Compare(a.MinStock, b.MinStock) }
	case domain.SortByMaxStock:
		byField = func(a, b domain.Item) int { return cmp.Compare(a.MaxStock, b.MaxStock) }
	case domain.SortByCreatedAt:
		byField = func(a, b domain.Item) int { return a.CreatedAt.Compare(b.CreatedAt) }
	case domain.SortByUpdatedAt:
		byField = func(a, b domain.Item) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	default:
		return nil, domain.ErrInvalidSortField
	}

	descending := sort.Direction == domain.Descending
	return func(a, b domain.Item) int {
		c := byField(a, b)
		if c == 0 {
			c = compareIDs(a.ID, b.ID)
			if sort.Field != domain.SortByID {
				return c
			}
		}
		if descending {
			return -c
		}
		return c
	}, nil
}

// compareIDs orders by the canonical text form, matching SQL ORDER BY id.
func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare([]byte(a.String()), []byte(b.String()))
}
