// Package inventory owns the per-product stock counter. Every change goes
// through a single conditional UPDATE so the counter can never go negative,
// whatever the interleaving of concurrent orders.
package inventory

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/safar/go-sql-marketplace/internal/database"
	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/safar/go-sql-marketplace/internal/store"
)

type Line struct {
	ProductID int64
	Quantity  int
}

// DeriveStatus mirrors the CASE expression the store evaluates on write.
func DeriveStatus(available, threshold int) models.StockStatus {
	switch {
	case available <= 0:
		return models.StockStatusOutOfStock
	case available <= threshold:
		return models.StockStatusLowStock
	default:
		return models.StockStatusInStock
	}
}

// Adjust adds delta to the product's available quantity.
func Adjust(ctx context.Context, q database.Querier, productID int64, delta int) (models.Stock, error) {
	stock, err := store.AdjustStock(ctx, q, productID, delta)
	switch {
	case err == nil:
		return stock, nil
	case errors.Is(err, database.ErrInsufficientStock):
		return stock, &InsufficientStockError{ProductID: productID, Requested: -delta, Available: stock.Available}
	case errors.Is(err, database.ErrProductNotFound):
		return stock, &ProductNotFoundError{ProductID: productID}
	default:
		return stock, err
	}
}

// merge sums quantities per product and returns the lines in ascending
// product id order, the order row locks are taken in.
func merge(lines []Line) ([]Line, error) {
	totals := make(map[int64]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("product %d: %w", l.ProductID, ErrInvalidQuantity)
		}
		totals[l.ProductID] += l.Quantity
	}

	merged := make([]Line, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, Line{ProductID: id, Quantity: qty})
	}
	slices.SortFunc(merged, func(a, b Line) int { return cmp.Compare(a.ProductID, b.ProductID) })
	return merged, nil
}

// Reservation is a set of locked product rows that passed the stock check
// and have not been decremented yet.
type Reservation struct {
	lines    []Line
	Products map[int64]*models.Product
}

// Prepare locks every referenced product in ascending id order and checks
// all lines against the locked quantities. Nothing is written; the row locks
// keep the checked quantities valid until tx ends.
func Prepare(ctx context.Context, tx *sql.Tx, lines []Line) (*Reservation, error) {
	merged, err := merge(lines)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(merged))
	for i, l := range merged {
		ids[i] = l.ProductID
	}

	products, err := store.LockProducts(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	for _, l := range merged {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: l.ProductID}
		}
		if p.Stock.Available < l.Quantity {
			return nil, &InsufficientStockError{ProductID: l.ProductID, Requested: l.Quantity, Available: p.Stock.Available}
		}
	}

	return &Reservation{lines: merged, Products: products}, nil
}

// Commit decrements every prepared line.
func (r *Reservation) Commit(ctx context.Context, tx *sql.Tx) error {
	for _, l := range r.lines {
		if _, err := Adjust(ctx, tx, l.ProductID, -l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Reserve is Prepare followed by Commit: either every line is taken or stock
// is left untouched.
func Reserve(ctx context.Context, tx *sql.Tx, lines []Line) (*Reservation, error) {
	r, err := Prepare(ctx, tx, lines)
	if err != nil {
		return nil, err
	}
	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return r, nil
}

// Release returns every line's quantity to stock.
func Release(ctx context.Context, q database.Querier, lines []Line) error {
	merged, err := merge(lines)
	if err != nil {
		return err
	}

	for _, l := range merged {
		if _, err := Adjust(ctx, q, l.ProductID, l.Quantity); err != nil {
			return fmt.Errorf("release product %d: %w", l.ProductID, err)
		}
	}
	return nil
}
