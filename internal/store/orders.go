package store

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/lib/pq"
	"github.com/safar/go-sql-marketplace/internal/database"
	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, order_number, buyer_id, seller_id, items, shipping_address,
	payment_method, payment_status, paid_at,
	items_total, shipping_charge, discount, tax, grand_total,
	status, status_history, tracking,
	shipped_at, delivered_at, cancelled_at, returned_at, refunded_at,
	cancellation_reason, return_request, earnings,
	payout_status, payout_transaction_id, created_at, updated_at, version`

func scanOrder(row rowScanner, o *models.Order) error {
	var (
		items    database.JSONB[[]models.OrderItem]
		address  database.JSONB[models.Address]
		history  database.JSONB[[]models.HistoryEntry]
		tracking database.JSONB[*models.Tracking]
		ret      database.JSONB[*models.ReturnRequest]
		earnings database.JSONB[*models.Earnings]
		txnID    sql.NullString
	)

	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.BuyerID,
		&o.SellerID,
		&items,
		&address,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.PaidAt,
		&o.Pricing.ItemsTotal,
		&o.Pricing.ShippingCharge,
		&o.Pricing.Discount,
		&o.Pricing.Tax,
		&o.Pricing.GrandTotal,
		&o.Status,
		&history,
		&tracking,
		&o.ShippedAt,
		&o.DeliveredAt,
		&o.CancelledAt,
		&o.ReturnedAt,
		&o.RefundedAt,
		&o.CancellationReason,
		&ret,
		&earnings,
		&o.Payout.Status,
		&txnID,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.Version,
	)
	if err != nil {
		return err
	}

	o.Items = items.V
	o.ShippingAddress = address.V
	o.History = history.V
	o.Tracking = tracking.V
	o.ReturnRequest = ret.V
	o.Earnings = earnings.V
	o.Payout.TransactionID = txnID.String
	return nil
}

func scanOrders(rows *sql.Rows) ([]models.Order, error) {
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return orders, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func netEarning(o *models.Order) decimal.NullDecimal {
	if o.Earnings == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(o.Earnings.NetSellerEarning)
}

// InsertOrder writes a new order row and fills in its generated id,
// timestamps and version.
func InsertOrder(ctx context.Context, q database.Querier, o *models.Order) error {
	query := `
		INSERT INTO orders (order_number, buyer_id, seller_id, items, shipping_address,
			payment_method, payment_status, paid_at,
			items_total, shipping_charge, discount, tax, grand_total,
			status, status_history, payout_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at, version`

	err := q.QueryRowContext(ctx, query,
		o.OrderNumber,
		o.BuyerID,
		o.SellerID,
		database.JSONB[[]models.OrderItem]{V: o.Items},
		database.JSONB[models.Address]{V: o.ShippingAddress},
		o.PaymentMethod,
		o.PaymentStatus,
		o.PaidAt,
		o.Pricing.ItemsTotal,
		o.Pricing.ShippingCharge,
		o.Pricing.Discount,
		o.Pricing.Tax,
		o.Pricing.GrandTotal,
		o.Status,
		database.JSONB[[]models.HistoryEntry]{V: o.History},
		o.Payout.Status,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt, &o.Version)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

func GetOrderByNumber(ctx context.Context, q database.Querier, number string) (*models.Order, error) {
	return getOrder(ctx, q, number, "")
}

// GetOrderByNumberForUpdate row-locks the order for the rest of tx.
func GetOrderByNumberForUpdate(ctx context.Context, tx *sql.Tx, number string) (*models.Order, error) {
	return getOrder(ctx, tx, number, "FOR UPDATE")
}

func getOrder(ctx context.Context, q database.Querier, number, lockClause string) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1 ` + lockClause

	if err := scanOrder(q.QueryRowContext(ctx, query, number), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return order, nil
}

// UpdateOrder persists every mutable column of o as a compare-and-swap on
// (version, status). If another writer got there first it returns
// ErrOptimisticLockFailed. An earnings snapshot already on the row is never
// replaced.
func UpdateOrder(ctx context.Context, q database.Querier, o *models.Order, expected models.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $1,
		    payment_status = $2,
		    paid_at = $3,
		    status_history = $4,
		    tracking = $5,
		    shipped_at = $6,
		    delivered_at = $7,
		    cancelled_at = $8,
		    returned_at = $9,
		    refunded_at = $10,
		    cancellation_reason = $11,
		    return_request = $12,
		    earnings = COALESCE(earnings, $13),
		    net_seller_earning = COALESCE(net_seller_earning, $14),
		    payout_status = $15,
		    payout_transaction_id = $16,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $17 AND version = $18 AND status = $19
		RETURNING version, updated_at`

	err := q.QueryRowContext(ctx, query,
		o.Status,
		o.PaymentStatus,
		o.PaidAt,
		database.JSONB[[]models.HistoryEntry]{V: o.History},
		database.JSONB[*models.Tracking]{V: o.Tracking},
		o.ShippedAt,
		o.DeliveredAt,
		o.CancelledAt,
		o.ReturnedAt,
		o.RefundedAt,
		o.CancellationReason,
		database.JSONB[*models.ReturnRequest]{V: o.ReturnRequest},
		database.JSONB[*models.Earnings]{V: o.Earnings},
		netEarning(o),
		o.Payout.Status,
		nullString(o.Payout.TransactionID),
		o.ID,
		o.Version,
		expected,
	).Scan(&o.Version, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.ErrOptimisticLockFailed
		}
		return fmt.Errorf("update order: %w", err)
	}

	return nil
}

func ListBuyerOrders(ctx context.Context, q database.Querier, buyerID int64, cursor string, limit int) (*CursorPage[models.Order], error) {
	return listOrdersCursor(ctx, q, "buyer_id", buyerID, cursor, limit)
}

func ListSellerOrders(ctx context.Context, q database.Querier, sellerID int64, cursor string, limit int) (*CursorPage[models.Order], error) {
	return listOrdersCursor(ctx, q, "seller_id", sellerID, cursor, limit)
}

func listOrdersCursor(ctx context.Context, q database.Querier, ownerColumn string, ownerID int64, cursor string, limit int) (*CursorPage[models.Order], error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE ` + ownerColumn + ` = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := q.QueryContext(ctx, query, ownerID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		nextCursor = EncodeCursor(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &CursorPage[models.Order]{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

const eligiblePredicate = `seller_id = $1
	AND status = 'delivered'
	AND payout_status = 'upcoming'
	AND net_seller_earning > 0`

// ListEligiblePayoutOrders returns the seller's delivered orders that are
// waiting for a payout, oldest delivery first.
func ListEligiblePayoutOrders(ctx context.Context, q database.Querier, sellerID int64) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE ` + eligiblePredicate + `
		ORDER BY delivered_at, id`

	rows, err := q.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list eligible orders: %w", err)
	}
	return scanOrders(rows)
}

// BatchOrders flips eligible orders from upcoming to batched under txnID in
// one conditional statement and returns the rows it flipped. An empty ids
// selects every eligible order of the seller. Rows another batch already took
// are skipped, so an order can never land in two payouts.
func BatchOrders(ctx context.Context, q database.Querier, sellerID int64, ids []int64, txnID string) ([]models.Order, error) {
	if ids == nil {
		ids = []int64{}
	}

	query := `
		UPDATE orders
		SET payout_status = 'batched',
		    payout_transaction_id = $2,
		    version = version + 1,
		    updated_at = NOW()
		WHERE ` + eligiblePredicate + `
		  AND ($3 OR id = ANY($4))
		RETURNING ` + orderColumns

	rows, err := q.QueryContext(ctx, query, sellerID, txnID, len(ids) == 0, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("batch orders: %w", err)
	}

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	sortOrdersByID(orders)
	return orders, nil
}

// MovePayoutOrders moves every order linked to txnID from one payout status
// to another and relinks them to newTxnID (unlinks when empty).
func MovePayoutOrders(ctx context.Context, q database.Querier, txnID string, from, to models.OrderPayoutStatus, newTxnID string) ([]models.Order, error) {
	query := `
		UPDATE orders
		SET payout_status = $3,
		    payout_transaction_id = $4,
		    version = version + 1,
		    updated_at = NOW()
		WHERE payout_transaction_id = $1
		  AND payout_status = $2
		RETURNING ` + orderColumns

	rows, err := q.QueryContext(ctx, query, txnID, from, to, nullString(newTxnID))
	if err != nil {
		return nil, fmt.Errorf("move payout orders %s -> %s: %w", from, to, err)
	}

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	sortOrdersByID(orders)
	return orders, nil
}

func sortOrdersByID(orders []models.Order) {
	slices.SortFunc(orders, func(a, b models.Order) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
