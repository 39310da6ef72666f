package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/item-stock/internal/adapter/storage"
	"github.com/rl1809/item-stock/internal/core/domain"
	"github.com/rl1809/item-stock/internal/port"
)

var errBroken = errors.New("connection refused")

// faultyRepository wraps a real store and fails the configured calls.
type faultyRepository struct {
	port.ItemRepository

	mu         sync.Mutex
	failList   bool
	failBegin  bool
	failGet    bool
	failWrite  bool
	failCommit bool
	commits    int
}

func (r *faultyRepository) List(ctx context.Context, page domain.Page, sort domain.Sort) ([]domain.Item, error) {
	if r.failList {
		return nil, errBroken
	}
	return r.ItemRepository.List(ctx, page, sort)
}

func (r *faultyRepository) BeginTx(ctx context.Context) (port.ItemTx, error) {
	if r.failBegin {
		return nil, errBroken
	}
	tx, err := r.ItemRepository.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return &faultyTx{ItemTx: tx, repo: r}, nil
}

type faultyTx struct {
	port.ItemTx
	repo *faultyRepository
}

func (t *faultyTx) Get(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	if t.repo.failGet {
		return nil, errBroken
	}
	return t.ItemTx.Get(ctx, id)
}

func (t *faultyTx) Insert(ctx context.Context, item domain.Item) error {
	if t.repo.failWrite {
		return errBroken
	}
	return t.ItemTx.Insert(ctx, item)
}

func (t *faultyTx) Update(ctx context.Context, item domain.Item) error {
	if t.repo.failWrite {
		return errBroken
	}
	return t.ItemTx.Update(ctx, item)
}

func (t *faultyTx) Delete(ctx context.Context, id uuid.UUID) error {
	if t.repo.failWrite {
		return errBroken
	}
	return t.ItemTx.Delete(ctx, id)
}

func (t *faultyTx) Commit() error {
	if t.repo.failCommit {
		return errBroken
	}
	t.repo.mu.Lock()
	t.repo.commits++
	t.repo.mu.Unlock()
	return t.ItemTx.Commit()
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string) (func(), error) {
	return nil, errBroken
}

func newTestService(opts ...Option) (*ItemService, *faultyRepository) {
	repo := &faultyRepository{ItemRepository: storage.NewMemoryAdapter()}
	return NewItemService(repo, storage.NewLocalLocker(), zap.NewNop(), opts...), repo
}

func createItem(t *testing.T, svc *ItemService, id uuid.UUID, minStock, maxStock int64) {
	t.Helper()
	_, err := svc.CreateItem(context.Background(), domain.ItemFields{
		ID:       id,
		MinStock: domain.Some(minStock),
		MaxStock: domain.Some(maxStock),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
}

func expectKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", want)
	}
	if KindOf(err) != want {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestItemService_Lifecycle(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	a := uuid.New()

	// create initializes stock to the maximum
	got, err := svc.CreateItem(ctx, domain.ItemFields{
		ID:       a,
		MinStock: domain.Some[int64](5),
		MaxStock: domain.Some[int64](10),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != a {
		t.Errorf("expected id %s, got %s", a, got)
	}

	item, err := svc.GetItemDetails(ctx, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Stock != 10 || item.MinStock != 5 || item.MaxStock != 10 {
		t.Errorf("expected 10/5/10, got %d/%d/%d", item.Stock, item.MinStock, item.MaxStock)
	}

	// duplicate create
	_, err = svc.CreateItem(ctx, domain.ItemFields{ID: a, MaxStock: domain.Some[int64](10)})
	expectKind(t, err, KindConflict)

	// below minimum
	_, _, err = svc.IncrementItemStock(ctx, a, -6)
	expectKind(t, err, KindInvalidArgument)

	id, stock, err := svc.IncrementItemStock(ctx, a, -5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != a || stock != 5 {
		t.Errorf("expected (%s, 5), got (%s, %d)", a, id, stock)
	}

	// update on a missing id
	_, err = svc.UpdateItem(ctx, domain.ItemFields{ID: uuid.New(), MaxStock: domain.Some[int64](10)})
	expectKind(t, err, KindNotFound)

	// zero maximum
	_, err = svc.CreateItem(ctx, domain.ItemFields{ID: uuid.New(), MaxStock: domain.Some[int64](0)})
	expectKind(t, err, KindInvalidArgument)
	if err.(*Error).Message != "Maximum stock must be greater than 0" {
		t.Errorf("unexpected message %q", err.(*Error).Message)
	}

	if err := svc.DeleteItem(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = svc.GetItemDetails(ctx, a)
	expectKind(t, err, KindNotFound)
	expectKind(t, svc.DeleteItem(ctx, a), KindNotFound)
}

func TestItemService_CreateValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name    string
		fields  domain.ItemFields
		message string
	}{
		{
			name:    "negative minimum",
			fields:  domain.ItemFields{MinStock: domain.Some[int64](-1), MaxStock: domain.Some[int64](10)},
			message: "Minimum stock cannot be negative",
		},
		{
			name:    "negative maximum",
			fields:  domain.ItemFields{MaxStock: domain.Some[int64](-3)},
			message: "Maximum stock must be greater than 0",
		},
		{
			name:    "minimum above maximum",
			fields:  domain.ItemFields{MinStock: domain.Some[int64](11), MaxStock: domain.Some[int64](10)},
			message: "Minimum stock must be less than maximum stock",
		},
		{
			name:    "maximum missing",
			fields:  domain.ItemFields{MinStock: domain.Some[int64](1)},
			message: "Maximum stock is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fields.ID = uuid.New()
			_, err := svc.CreateItem(ctx, tt.fields)
			expectKind(t, err, KindInvalidArgument)
			if err.(*Error).Message != tt.message {
				t.Errorf("expected %q, got %q", tt.message, err.(*Error).Message)
			}
			if _, err := svc.GetItemDetails(ctx, tt.fields.ID); KindOf(err) != KindNotFound {
				t.Errorf("rejected create must not persist, got %v", err)
			}
		})
	}
}

func TestItemService_CreateDefaults(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := uuid.New()

	// Stock in the payload is ignored and min equal to max is allowed.
	_, err := svc.CreateItem(ctx, domain.ItemFields{
		ID:       id,
		Stock:    domain.Some[int64](3),
		MaxStock: domain.Some[int64](7),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	item, _ := svc.GetItemDetails(ctx, id)
	if item.Stock != 7 || item.MinStock != 0 {
		t.Errorf("expected stock 7 min 0, got %d/%d", item.Stock, item.MinStock)
	}

	createItem(t, svc, uuid.New(), 4, 4)
}

func TestItemService_UpdateOverlay(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := uuid.New()
	createItem(t, svc, id, 2, 10)

	if _, err := svc.UpdateItem(ctx, domain.ItemFields{ID: id, Stock: domain.Some[int64](6)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	item, _ := svc.GetItemDetails(ctx, id)
	if item.Stock != 6 || item.MinStock != 2 || item.MaxStock != 10 {
		t.Errorf("expected 6/2/10, got %d/%d/%d", item.Stock, item.MinStock, item.MaxStock)
	}

	if _, err := svc.UpdateItem(ctx, domain.ItemFields{ID: id, MinStock: domain.Some[int64](3), MaxStock: domain.Some[int64](20)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	item, _ = svc.GetItemDetails(ctx, id)
	if item.Stock != 6 || item.MinStock != 3 || item.MaxStock != 20 {
		t.Errorf("expected 6/3/20, got %d/%d/%d", item.Stock, item.MinStock, item.MaxStock)
	}
}

func TestItemService_UpdateCrossChecksStoredBounds(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := uuid.New()
	createItem(t, svc, id, 5, 10)

	_, err := svc.UpdateItem(ctx, domain.ItemFields{ID: id, MinStock: domain.Some[int64](11)})
	expectKind(t, err, KindInvalidArgument)
	if err.(*Error).Message != "Minimum stock must be less than maximum stock" {
		t.Errorf("unexpected message %q", err.(*Error).Message)
	}

	_, err = svc.UpdateItem(ctx, domain.ItemFields{ID: id, MaxStock: domain.Some[int64](4)})
	expectKind(t, err, KindInvalidArgument)
	if err.(*Error).Message != "Maximum stock must be greater than minimum stock" {
		t.Errorf("unexpected message %q", err.(*Error).Message)
	}

	// Both bounds move past the stored ones together: each is compared with
	// the stored opposite bound, so min 12 > stored max 10 is rejected even
	// though the merged pair 12..30 would be consistent.
	_, err = svc.UpdateItem(ctx, domain.ItemFields{ID: id, MinStock: domain.Some[int64](12), MaxStock: domain.Some[int64](30)})
	expectKind(t, err, KindInvalidArgument)

	// Range checks on the payload run before the item is fetched.
	_, err = svc.UpdateItem(ctx, domain.ItemFields{ID: uuid.New(), MinStock: domain.Some[int64](-1)})
	expectKind(t, err, KindInvalidArgument)

	item, _ := svc.GetItemDetails(ctx, id)
	if item.MinStock != 5 || item.MaxStock != 10 {
		t.Errorf("rejected updates must not persist, got %d/%d", item.MinStock, item.MaxStock)
	}
}

func TestItemService_IncrementBoundsInclusive(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := uuid.New()
	createItem(t, svc, id, 2, 10)

	tests := []struct {
		name  string
		delta int64
		stock int64
		kind  Kind
	}{
		{name: "down to minimum", delta: -8, stock: 2},
		{name: "one below minimum", delta: -1, kind: KindInvalidArgument},
		{name: "up to maximum", delta: 8, stock: 10},
		{name: "one above maximum", delta: 1, kind: KindInvalidArgument},
		{name: "zero delta", delta: 0, stock: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stock, err := svc.IncrementItemStock(ctx, id, tt.delta)
			if tt.kind != KindUnknown {
				expectKind(t, err, tt.kind)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if stock != tt.stock {
				t.Errorf("expected stock %d, got %d", tt.stock, stock)
			}
		})
	}

	_, _, err := svc.IncrementItemStock(ctx, uuid.New(), 1)
	expectKind(t, err, KindNotFound)
}

func TestItemService_IncrementOverflow(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := uuid.New()
	createItem(t, svc, id, 0, 10)

	_, _, err := svc.IncrementItemStock(ctx, id, math.MaxInt64)
	expectKind(t, err, KindInvalidArgument)
	if !strings.Contains(err.Error(), "greater than maximum stock") {
		t.Errorf("expected maximum stock violation, got %v", err)
	}

	_, _, err = svc.IncrementItemStock(ctx, id, math.MinInt64)
	if err == nil || !strings.Contains(err.Error(), "less than minimum stock") {
		t.Errorf("expected minimum stock violation, got %v", err)
	}

	item, _ := svc.GetItemDetails(ctx, id)
	if item.Stock != 10 {
		t.Errorf("rejected increments must not persist, got stock %d", item.Stock)
	}
}

func TestItemService_ConcurrentIncrementsNoLostUpdate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := uuid.New()
	createItem(t, svc, id, 0, 1000)

	if _, _, err := svc.IncrementItemStock(ctx, id, -500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, _, err := svc.IncrementItemStock(ctx, id, 3); err != nil {
				t.Errorf("increment failed: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, _, err := svc.IncrementItemStock(ctx, id, -1); err != nil {
				t.Errorf("decrement failed: %v", err)
			}
		}()
	}
	wg.Wait()

	item, _ := svc.GetItemDetails(ctx, id)
	if item.Stock != 700 {
		t.Errorf("expected stock 700, got %d", item.Stock)
	}
}

func TestItemService_StoreFailuresAreWrapped(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		inject func(*faultyRepository)
		call   func(*ItemService, uuid.UUID) error
	}{
		{
			name:   "list",
			inject: func(r *faultyRepository) { r.failList = true },
			call: func(s *ItemService, _ uuid.UUID) error {
				_, err := s.ListItems(ctx, domain.Page{Size: 10}, domain.DefaultSort())
				return err
			},
		},
		{
			name:   "details read",
			inject: func(r *faultyRepository) { r.failGet = true },
			call: func(s *ItemService, id uuid.UUID) error {
				_, err := s.GetItemDetails(ctx, id)
				return err
			},
		},
		{
			name:   "create existence check",
			inject: func(r *faultyRepository) { r.failGet = true },
			call: func(s *ItemService, _ uuid.UUID) error {
				_, err := s.CreateItem(ctx, domain.ItemFields{ID: uuid.New(), MaxStock: domain.Some[int64](1)})
				return err
			},
		},
		{
			name:   "create insert",
			inject: func(r *faultyRepository) { r.failWrite = true },
			call: func(s *ItemService, _ uuid.UUID) error {
				_, err := s.CreateItem(ctx, domain.ItemFields{ID: uuid.New(), MaxStock: domain.Some[int64](1)})
				return err
			},
		},
		{
			name:   "update write",
			inject: func(r *faultyRepository) { r.failWrite = true },
			call: func(s *ItemService, id uuid.UUID) error {
				_, err := s.UpdateItem(ctx, domain.ItemFields{ID: id, Stock: domain.Some[int64](1)})
				return err
			},
		},
		{
			name:   "increment commit",
			inject: func(r *faultyRepository) { r.failCommit = true },
			call: func(s *ItemService, id uuid.UUID) error {
				_, _, err := s.IncrementItemStock(ctx, id, -1)
				return err
			},
		},
		{
			name:   "delete write",
			inject: func(r *faultyRepository) { r.failWrite = true },
			call:   func(s *ItemService, id uuid.UUID) error { return s.DeleteItem(ctx, id) },
		},
		{
			name:   "begin",
			inject: func(r *faultyRepository) { r.failBegin = true },
			call:   func(s *ItemService, id uuid.UUID) error { return s.DeleteItem(ctx, id) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService()
			id := uuid.New()
			createItem(t, svc, id, 0, 10)

			tt.inject(repo)
			err := tt.call(svc, id)
			expectKind(t, err, KindStore)
			if !errors.Is(err, errBroken) {
				t.Errorf("expected cause to be retained, got %v", err)
			}
		})
	}
}

func TestItemService_LockFailure(t *testing.T) {
	repo := &faultyRepository{ItemRepository: storage.NewMemoryAdapter()}
	svc := NewItemService(repo, failingLocker{}, zap.NewNop())

	_, _, err := svc.IncrementItemStock(context.Background(), uuid.New(), 1)
	expectKind(t, err, KindStore)
	if repo.commits != 0 {
		t.Errorf("expected no commit, got %d", repo.commits)
	}
}

func TestItemService_TimeoutLeavesRecordUnmodified(t *testing.T) {
	locker := storage.NewLocalLocker()
	repo := &faultyRepository{ItemRepository: storage.NewMemoryAdapter()}
	svc := NewItemService(repo, locker, zap.NewNop(), WithTimeout(50*time.Millisecond))
	ctx := context.Background()
	id := uuid.New()
	createItem(t, svc, id, 0, 10)

	// Hold the item lock so the increment times out waiting for it.
	unlock, err := locker.Lock(ctx, lockKeyPrefix+id.String())
	if err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	_, _, err = svc.IncrementItemStock(ctx, id, -3)
	unlock()

	expectKind(t, err, KindStore)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded cause, got %v", err)
	}

	item, _ := svc.GetItemDetails(ctx, id)
	if item.Stock != 10 {
		t.Errorf("expected stock 10, got %d", item.Stock)
	}
}

func TestItemService_CancelledContext(t *testing.T) {
	svc, _ := newTestService()
	id := uuid.New()
	createItem(t, svc, id, 0, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := svc.IncrementItemStock(ctx, id, -3)
	expectKind(t, err, KindStore)

	item, _ := svc.GetItemDetails(context.Background(), id)
	if item.Stock != 10 {
		t.Errorf("expected stock 10, got %d", item.Stock)
	}
}

func TestItemService_ListAndIdempotentRead(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for i, id := range ids {
		createItem(t, svc, id, 0, int64(30-i*10))
	}

	page, _ := domain.NewPage(0, 2)
	items, err := svc.ListItems(ctx, page, domain.DefaultSort())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].Stock != 10 || items[1].Stock != 20 {
		t.Errorf("unexpected page %+v", items)
	}

	first, _ := svc.GetItemDetails(ctx, ids[0])
	second, _ := svc.GetItemDetails(ctx, ids[0])
	if *first != *second {
		t.Errorf("expected identical reads, got %+v and %+v", first, second)
	}
}
