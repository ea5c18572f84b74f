package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/go-sql-marketplace/internal/database"
	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = `id, sku, seller_id, category_id, name, description, price,
	stock_available, low_stock_threshold, stock_status, created_at, updated_at, version`

// stockStatusExpr derives stock_status from the post-update quantity so the
// counter and its status never disagree.
const stockStatusExpr = `CASE
		WHEN %[1]s = 0 THEN 'out_of_stock'
		WHEN %[1]s <= low_stock_threshold THEN 'low_stock'
		ELSE 'in_stock'
	END`

type NewProduct struct {
	SKU               string
	SellerID          int64
	CategoryID        int64
	Name              string
	Description       string
	Price             decimal.Decimal
	Stock             int
	LowStockThreshold int
}

func scanProduct(row rowScanner, p *models.Product) error {
	return row.Scan(
		&p.ID,
		&p.SKU,
		&p.SellerID,
		&p.CategoryID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Stock.Available,
		&p.Stock.LowStockThreshold,
		&p.Stock.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Version,
	)
}

func CreateProduct(ctx context.Context, q database.Querier, np NewProduct) (*models.Product, error) {
	product := &models.Product{}

	query := `
		INSERT INTO products (sku, seller_id, category_id, name, description, price,
			stock_available, low_stock_threshold, stock_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7::int, $8::int,
			CASE WHEN $7::int = 0 THEN 'out_of_stock'
			     WHEN $7::int <= $8::int THEN 'low_stock'
			     ELSE 'in_stock' END)
		RETURNING ` + productColumns

	err := scanProduct(q.QueryRowContext(ctx, query,
		np.SKU, np.SellerID, np.CategoryID, np.Name, np.Description, np.Price,
		np.Stock, np.LowStockThreshold), product)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, q database.Querier, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	if err := scanProduct(q.QueryRowContext(ctx, query, id), product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// LockProducts takes row locks on every listed product in ascending id order
// and returns the rows it found keyed by id. Missing ids are simply absent.
func LockProducts(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]*models.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`

	rows, err := tx.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	products := make(map[int64]*models.Product, len(ids))
	for rows.Next() {
		p := &models.Product{}
		if err := scanProduct(rows, p); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products[p.ID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// AdjustStock applies delta to stock_available in a single conditional
// statement. A delta that would take the counter below zero changes nothing
// and returns ErrInsufficientStock together with the current stock.
func AdjustStock(ctx context.Context, q database.Querier, productID int64, delta int) (models.Stock, error) {
	var stock models.Stock

	query := `
		UPDATE products
		SET stock_available = stock_available + $2::int,
		    stock_status = ` + fmt.Sprintf(stockStatusExpr, "stock_available + $2::int") + `,
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1
		  AND stock_available + $2::int >= 0
		RETURNING stock_available, low_stock_threshold, stock_status`

	err := q.QueryRowContext(ctx, query, productID, delta).Scan(
		&stock.Available,
		&stock.LowStockThreshold,
		&stock.Status,
	)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		if database.IsCheckViolation(err) {
			return stock, database.ErrInsufficientStock
		}
		return stock, fmt.Errorf("adjust stock: %w", err)
	}

	err = q.QueryRowContext(ctx,
		`SELECT stock_available, low_stock_threshold, stock_status FROM products WHERE id = $1`,
		productID).Scan(&stock.Available, &stock.LowStockThreshold, &stock.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stock, database.ErrProductNotFound
		}
		return stock, fmt.Errorf("read stock: %w", err)
	}

	return stock, database.ErrInsufficientStock
}

func ListSellerProducts(ctx context.Context, q database.Querier, sellerID int64, page, pageSize int) (*OffsetPage[models.Product], error) {
	page, pageSize = NormalizePage(page, pageSize)

	var total int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE seller_id = $1`, sellerID).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `SELECT ` + productColumns + `
		FROM products
		WHERE seller_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := q.QueryContext(ctx, query, sellerID, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &OffsetPage[models.Product]{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}
