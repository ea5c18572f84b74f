package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/safar/go-sql-marketplace/internal/database"
	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

const sellerColumns = `user_id, display_name, payout_destination,
	wallet_available, wallet_pending, wallet_lifetime_earnings, wallet_lifetime_withdrawn,
	last_payout_at, last_payout_amount, created_at, updated_at, version`

func scanSeller(row rowScanner, s *models.Seller) error {
	var dest database.JSONB[models.PaymentDestination]
	var lastAt sql.NullTime
	var lastAmount decimal.NullDecimal

	err := row.Scan(
		&s.UserID,
		&s.DisplayName,
		&dest,
		&s.Wallet.Available,
		&s.Wallet.Pending,
		&s.Wallet.LifetimeEarnings,
		&s.Wallet.LifetimeWithdrawn,
		&lastAt,
		&lastAmount,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.Version,
	)
	if err != nil {
		return err
	}

	s.PayoutDestination = dest.V
	if lastAt.Valid {
		at := lastAt.Time
		s.Wallet.LastPayoutAt = &at
	}
	if lastAmount.Valid {
		amount := lastAmount.Decimal
		s.Wallet.LastPayoutAmount = &amount
	}
	return nil
}

func CreateSeller(ctx context.Context, q database.Querier, userID int64, displayName string, dest models.PaymentDestination) (*models.Seller, error) {
	seller := &models.Seller{}

	query := `
		INSERT INTO sellers (user_id, display_name, payout_destination)
		VALUES ($1, $2, $3)
		RETURNING ` + sellerColumns

	err := scanSeller(q.QueryRowContext(ctx, query, userID, displayName,
		database.JSONB[models.PaymentDestination]{V: dest}), seller)
	if err != nil {
		return nil, fmt.Errorf("create seller: %w", err)
	}

	return seller, nil
}

func GetSeller(ctx context.Context, q database.Querier, userID int64) (*models.Seller, error) {
	seller := &models.Seller{}

	query := `SELECT ` + sellerColumns + ` FROM sellers WHERE user_id = $1`

	if err := scanSeller(q.QueryRowContext(ctx, query, userID), seller); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrSellerNotFound
		}
		return nil, fmt.Errorf("get seller: %w", err)
	}

	return seller, nil
}

// WalletDelta is added to a seller's wallet columns. A non-nil PayoutAt also
// records the last payout as (PayoutAt, LifetimeWithdrawn).
type WalletDelta struct {
	Pending           decimal.Decimal
	LifetimeEarnings  decimal.Decimal
	LifetimeWithdrawn decimal.Decimal
	PayoutAt          *time.Time
}

// ApplyWalletDelta updates the wallet in place with relative increments, so
// concurrent deliveries for the same seller never lose an update.
func ApplyWalletDelta(ctx context.Context, q database.Querier, sellerID int64, d WalletDelta) (*models.SellerWallet, error) {
	var lastAt sql.NullTime
	if d.PayoutAt != nil {
		lastAt = sql.NullTime{Time: *d.PayoutAt, Valid: true}
	}

	query := `
		UPDATE sellers
		SET wallet_pending = wallet_pending + $2,
		    wallet_lifetime_earnings = wallet_lifetime_earnings + $3,
		    wallet_lifetime_withdrawn = wallet_lifetime_withdrawn + $4,
		    last_payout_at = COALESCE($5::timestamptz, last_payout_at),
		    last_payout_amount = CASE WHEN $5::timestamptz IS NULL THEN last_payout_amount ELSE $4 END,
		    version = version + 1,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING wallet_available, wallet_pending, wallet_lifetime_earnings,
		          wallet_lifetime_withdrawn, last_payout_at, last_payout_amount`

	wallet := &models.SellerWallet{}
	var gotAt sql.NullTime
	var gotAmount decimal.NullDecimal

	err := q.QueryRowContext(ctx, query, sellerID, d.Pending, d.LifetimeEarnings, d.LifetimeWithdrawn, lastAt).Scan(
		&wallet.Available,
		&wallet.Pending,
		&wallet.LifetimeEarnings,
		&wallet.LifetimeWithdrawn,
		&gotAt,
		&gotAmount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrSellerNotFound
		}
		return nil, fmt.Errorf("apply wallet delta: %w", err)
	}

	if gotAt.Valid {
		at := gotAt.Time
		wallet.LastPayoutAt = &at
	}
	if gotAmount.Valid {
		amount := gotAmount.Decimal
		wallet.LastPayoutAmount = &amount
	}
	return wallet, nil
}
