package store

import (
	"context"
	"fmt"

	"github.com/safar/go-sql-marketplace/internal/database"
	"github.com/safar/go-sql-marketplace/internal/models"
)

// AddCartItem adds quantity to the buyer's line for the product variant.
func AddCartItem(ctx context.Context, q database.Querier, item models.CartItem) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO cart_items (user_id, product_id, quantity, size, color)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, product_id, size, color)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		item.UserID, item.ProductID, item.Quantity, item.Size, item.Color)
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

func ListCartItems(ctx context.Context, q database.Querier, userID int64) ([]models.CartItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id, product_id, quantity, size, color, added_at
		 FROM cart_items
		 WHERE user_id = $1
		 ORDER BY added_at, product_id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []models.CartItem
	for rows.Next() {
		var item models.CartItem
		err := rows.Scan(
			&item.UserID,
			&item.ProductID,
			&item.Quantity,
			&item.Size,
			&item.Color,
			&item.AddedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

func ClearCart(ctx context.Context, q database.Querier, userID int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
