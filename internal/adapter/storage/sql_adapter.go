package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/rl1809/item-stock/internal/core/domain"
	"github.com/rl1809/item-stock/internal/port"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

const (
	mysqlDuplicateEntry   = 1062
	postgresUniqueViolate = "23505"
)

var sortColumns = map[domain.SortField]string{
	domain.SortByID:        "id",
	domain.SortByStock:     "stock",
	domain.SortByMinStock:  "min_stock",
	domain.SortByMaxStock:  "max_stock",
	domain.SortByCreatedAt: "created_at",
	domain.SortByUpdatedAt: "updated_at",
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// OpenSQL connects to MySQL or Postgres. MySQL DSNs are forced to parse
// times and to report matched rather than changed rows, so an UPDATE that
// leaves values untouched still counts as a hit.
func OpenSQL(ctx context.Context, driver, dsn string, pool PoolConfig) (*sqlx.DB, error) {
	driverName := driver
	switch driver {
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.ClientFoundRows = true
		dsn = cfg.FormatDSN()
	case DriverPostgres:
		driverName = "pgx"
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

type SQLAdapter struct {
	db *sqlx.DB
}

func NewSQLAdapter(db *sqlx.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

// EnsureSchema creates the items table when it is missing.
func (s *SQLAdapter) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS items (
			id CHAR(36) NOT NULL PRIMARY KEY,
			stock BIGINT NOT NULL,
			min_stock BIGINT NOT NULL DEFAULT 0,
			max_stock BIGINT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	if s.db.DriverName() == "pgx" {
		ddl = `
		CREATE TABLE IF NOT EXISTS items (
			id UUID NOT NULL PRIMARY KEY,
			stock BIGINT NOT NULL,
			min_stock BIGINT NOT NULL DEFAULT 0,
			max_stock BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create items table: %w", err)
	}
	return nil
}

func (s *SQLAdapter) List(ctx context.Context, page domain.Page, sort domain.Sort) ([]domain.Item, error) {
	column, ok := sortColumns[sort.Field]
	if !ok {
		return nil, fmt.Errorf("list items: %w", domain.ErrInvalidSortField)
	}
	direction := "ASC"
	if sort.Direction == domain.Descending {
		direction = "DESC"
	}

	query := s.db.Rebind(fmt.Sprintf(`
		SELECT id, stock, min_stock, max_stock, created_at, updated_at
		FROM items ORDER BY %s %s, id ASC LIMIT ? OFFSET ?`, column, direction))

	items := []domain.Item{}
	if err := s.db.SelectContext(ctx, &items, query, page.Size, page.Offset()); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *SQLAdapter) BeginTx(ctx context.Context) (port.ItemTx, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx *sqlx.Tx
}

func (t *sqlTx) Get(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	var item domain.Item
	err := t.tx.GetContext(ctx, &item, t.tx.Rebind(`
		SELECT id, stock, min_stock, max_stock, created_at, updated_at
		FROM items WHERE id = ? FOR UPDATE`), id.String())

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &item, nil
}

func (t *sqlTx) Insert(ctx context.Context, item domain.Item) error {
	_, err := t.tx.ExecContext(ctx, t.tx.Rebind(`
		INSERT INTO items (id, stock, min_stock, max_stock, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`),
		item.ID.String(), item.Stock, item.MinStock, item.MaxStock,
	)
	if isDuplicateKey(err) {
		return port.ErrItemExists
	}
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (t *sqlTx) Update(ctx context.Context, item domain.Item) error {
	result, err := t.tx.ExecContext(ctx, t.tx.Rebind(`
		UPDATE items
		SET stock = ?, min_stock = ?, max_stock = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`),
		item.Stock, item.MinStock, item.MaxStock, item.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return expectOneRow(result)
}

func (t *sqlTx) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := t.tx.ExecContext(ctx, t.tx.Rebind(`DELETE FROM items WHERE id = ?`), id.String())
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return expectOneRow(result)
}

func (t *sqlTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return port.ErrItemNotFound
	}
	return nil
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolate
}
