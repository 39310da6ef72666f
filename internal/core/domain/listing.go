package domain

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 1000
)

var (
	ErrInvalidPage      = errors.New("invalid page")
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrInvalidDirection = errors.New("invalid sort direction")
)

// Page is a zero-based page window.
type Page struct {
	Number int
	Size   int
}

func NewPage(number, size int) (Page, error) {
	if number < 0 {
		return Page{}, fmt.Errorf("%w: page number %d must not be negative", ErrInvalidPage, number)
	}
	if size <= 0 || size > MaxPageSize {
		return Page{}, fmt.Errorf("%w: page size %d must be between 1 and %d", ErrInvalidPage, size, MaxPageSize)
	}
	return Page{Number: number, Size: size}, nil
}

func (p Page) Offset() int {
	return p.Number * p.Size
}

// SortField is the column an item listing is ordered by.
type SortField string

const (
	SortByID        SortField = "id"
	SortByStock     SortField = "stock"
	SortByMinStock  SortField = "min_stock"
	SortByMaxStock  SortField = "max_stock"
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
)

// ParseSortField accepts both the column name and its camelCase form.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "id":
		return SortByID, nil
	case "stock":
		return SortByStock, nil
	case "min_stock", "minstock":
		return SortByMinStock, nil
	case "max_stock", "maxstock":
		return SortByMaxStock, nil
	case "created_at", "createdat":
		return SortByCreatedAt, nil
	case "updated_at", "updatedat":
		return SortByUpdatedAt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSortField, s)
}

type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

type Sort struct {
	Field     SortField
	Direction Direction
}

// DefaultSort orders by stock, lowest first.
func DefaultSort() Sort {
	return Sort{Field: SortByStock, Direction: Ascending}
}
