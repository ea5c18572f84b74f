package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/go-sql-marketplace/internal/database"
	"github.com/safar/go-sql-marketplace/internal/models"
)

const payoutColumns = `id, transaction_id, seller_id, amount, order_ids, destination,
	status, breakdown, gateway_ref, processed_by, failure_reason, failure_code, retry_of,
	processing_at, completed_at, failed_at, cancelled_at, created_at, updated_at, version`

func scanPayout(row rowScanner, p *models.PayoutTransaction) error {
	var (
		dest        database.JSONB[models.PaymentDestination]
		breakdown   database.JSONB[models.PayoutBreakdown]
		processedBy sql.NullInt64
		retryOf     sql.NullString
	)

	err := row.Scan(
		&p.ID,
		&p.TransactionID,
		&p.SellerID,
		&p.Amount,
		pq.Array(&p.OrderIDs),
		&dest,
		&p.Status,
		&breakdown,
		&p.GatewayRef,
		&processedBy,
		&p.FailureReason,
		&p.FailureCode,
		&retryOf,
		&p.ProcessingAt,
		&p.CompletedAt,
		&p.FailedAt,
		&p.CancelledAt,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Version,
	)
	if err != nil {
		return err
	}

	p.Destination = dest.V
	p.Breakdown = breakdown.V
	if processedBy.Valid {
		p.ProcessedBy = &processedBy.Int64
	}
	p.RetryOf = retryOf.String
	return nil
}

func InsertPayout(ctx context.Context, q database.Querier, p *models.PayoutTransaction) error {
	query := `
		INSERT INTO payout_transactions (transaction_id, seller_id, amount, order_ids,
			destination, status, breakdown, retry_of)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at, version`

	err := q.QueryRowContext(ctx, query,
		p.TransactionID,
		p.SellerID,
		p.Amount,
		pq.Array(p.OrderIDs),
		database.JSONB[models.PaymentDestination]{V: p.Destination},
		p.Status,
		database.JSONB[models.PayoutBreakdown]{V: p.Breakdown},
		nullString(p.RetryOf),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		return fmt.Errorf("insert payout: %w", err)
	}

	return nil
}

func GetPayout(ctx context.Context, q database.Querier, txnID string) (*models.PayoutTransaction, error) {
	return getPayout(ctx, q, txnID, "")
}

func GetPayoutForUpdate(ctx context.Context, tx *sql.Tx, txnID string) (*models.PayoutTransaction, error) {
	return getPayout(ctx, tx, txnID, "FOR UPDATE")
}

func getPayout(ctx context.Context, q database.Querier, txnID, lockClause string) (*models.PayoutTransaction, error) {
	payout := &models.PayoutTransaction{}

	query := `SELECT ` + payoutColumns + ` FROM payout_transactions WHERE transaction_id = $1 ` + lockClause

	if err := scanPayout(q.QueryRowContext(ctx, query, txnID), payout); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrPayoutNotFound
		}
		return nil, fmt.Errorf("get payout: %w", err)
	}

	return payout, nil
}

// UpdatePayout writes the payout's lifecycle columns as a compare-and-swap on
// (version, status).
func UpdatePayout(ctx context.Context, q database.Querier, p *models.PayoutTransaction, expected models.PayoutStatus) error {
	query := `
		UPDATE payout_transactions
		SET status = $1,
		    gateway_ref = $2,
		    processed_by = $3,
		    failure_reason = $4,
		    failure_code = $5,
		    processing_at = $6,
		    completed_at = $7,
		    failed_at = $8,
		    cancelled_at = $9,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $10 AND version = $11 AND status = $12
		RETURNING version, updated_at`

	err := q.QueryRowContext(ctx, query,
		p.Status,
		p.GatewayRef,
		p.ProcessedBy,
		p.FailureReason,
		p.FailureCode,
		p.ProcessingAt,
		p.CompletedAt,
		p.FailedAt,
		p.CancelledAt,
		p.ID,
		p.Version,
		expected,
	).Scan(&p.Version, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.ErrOptimisticLockFailed
		}
		return fmt.Errorf("update payout: %w", err)
	}

	return nil
}

func ListSellerPayouts(ctx context.Context, q database.Querier, sellerID int64, page, pageSize int) (*OffsetPage[models.PayoutTransaction], error) {
	page, pageSize = NormalizePage(page, pageSize)

	var total int64
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payout_transactions WHERE seller_id = $1`,
		sellerID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count payouts: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `SELECT ` + payoutColumns + `
		FROM payout_transactions
		WHERE seller_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := q.QueryContext(ctx, query, sellerID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()

	payouts := []models.PayoutTransaction{}
	for rows.Next() {
		var payout models.PayoutTransaction
		if err := scanPayout(rows, &payout); err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		payouts = append(payouts, payout)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &OffsetPage[models.PayoutTransaction]{
		Items:      payouts,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}
