package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-sql-marketplace/internal/database"
	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

func CreateCategory(ctx context.Context, q database.Querier, name string, parentID *int64, rate decimal.Decimal) (*models.Category, error) {
	category := &models.Category{}
	var parent sql.NullInt64

	err := q.QueryRowContext(ctx,
		`INSERT INTO categories (name, parent_id, commission_rate)
		 VALUES ($1, $2, $3)
		 RETURNING id, name, parent_id, commission_rate`,
		name, parentID, rate).Scan(&category.ID, &category.Name, &parent, &category.CommissionRate)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	if parent.Valid {
		category.ParentID = &parent.Int64
	}
	return category, nil
}

func GetCommissionRate(ctx context.Context, q database.Querier, categoryID int64) (decimal.Decimal, error) {
	var rate decimal.Decimal

	err := q.QueryRowContext(ctx,
		`SELECT commission_rate FROM categories WHERE id = $1`,
		categoryID).Scan(&rate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, database.ErrCategoryNotFound
		}
		return decimal.Zero, fmt.Errorf("get commission rate: %w", err)
	}

	return rate, nil
}
