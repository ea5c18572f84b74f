package inventory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/safar/go-sql-marketplace/internal/authz"
	"github.com/safar/go-sql-marketplace/internal/database"
	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/safar/go-sql-marketplace/internal/store"
)

// Service exposes stock adjustments to sellers and admins.
type Service struct {
	db   *sql.DB
	opts database.TxOptions
}

func NewService(db *sql.DB, maxRetries int) *Service {
	opts := database.DefaultTxOptions()
	opts.MaxRetries = maxRetries
	return &Service{db: db, opts: opts}
}

func (s *Service) ListSellerProducts(ctx context.Context, sellerID int64, page, pageSize int) (*store.OffsetPage[models.Product], error) {
	return store.ListSellerProducts(ctx, s.db, sellerID, page, pageSize)
}

// Restock adds quantity units to a product the actor sells.
func (s *Service) Restock(ctx context.Context, actor authz.Actor, productID int64, quantity int) (models.Stock, error) {
	if quantity <= 0 {
		return models.Stock{}, ErrInvalidQuantity
	}

	var stock models.Stock
	err := database.WithRetry(ctx, s.db, s.opts, func(tx *sql.Tx) error {
		product, err := store.GetProduct(ctx, tx, productID)
		if err != nil {
			if errors.Is(err, database.ErrProductNotFound) {
				return &ProductNotFoundError{ProductID: productID}
			}
			return err
		}
		if err := authz.RequireSeller(actor, product.SellerID); err != nil {
			return err
		}

		stock, err = Adjust(ctx, tx, productID, quantity)
		return err
	})
	return stock, err
}
