package remote

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloudpos/possync/internal/models"
)

// PostgresBackend talks to the hosted backend database. It implements the
// commit endpoint (transactions + transaction_items in a single transaction)
// and the product source used to refresh the offline cache.
type PostgresBackend struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresBackend(ctx context.Context, connString string, logger *slog.Logger) (*PostgresBackend, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("no response from postgres: %w", err)
	}

	logger.Info("Connected to backend database")
	return &PostgresBackend{pool: pool, logger: logger}, nil
}

// CommitSale writes the sale header and all of its line items atomically and
// returns the backend-generated sale ID. Any failure rolls the whole commit
// back, so the caller can safely retry later with the same request.
func (r *PostgresBackend) CommitSale(ctx context.Context, c SaleCommit) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: begin: %v", ErrRemoteCommit, err)
	}
	defer tx.Rollback(ctx)

	const insertTx = `
		INSERT INTO transactions
			(store_id, cashier_id, transaction_number, subtotal_minor, tax_minor,
			 total_minor, discount_minor, payment_method, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'completed', NULLIF($9, ''))
		RETURNING id
	`

	var saleID string
	err = tx.QueryRow(ctx, insertTx,
		c.StoreID,
		c.CashierID,
		c.TransactionNumber(),
		c.SubtotalMinor,
		c.TaxMinor,
		c.TotalMinor,
		c.DiscountMinor,
		c.PaymentMethod,
		c.Notes,
	).Scan(&saleID)
	if err != nil {
		return "", fmt.Errorf("%w: insert transaction: %v", ErrRemoteCommit, err)
	}

	const insertItem = `
		INSERT INTO transaction_items
			(transaction_id, product_id, quantity, unit_price_minor, line_total_minor)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, item := range c.Items {
		_, err := tx.Exec(ctx, insertItem,
			saleID,
			item.ProductID,
			item.Quantity,
			item.UnitPriceMinor,
			item.LineTotalMinor,
		)
		if err != nil {
			return "", fmt.Errorf("%w: insert item %s: %v", ErrRemoteCommit, item.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("%w: commit: %v", ErrRemoteCommit, err)
	}

	return saleID, nil
}

// FetchProducts reads the full catalog for one store. Used by the cache
// refresher, which replaces the local mirror wholesale with the result.
func (r *PostgresBackend) FetchProducts(ctx context.Context, storeID string) ([]models.CachedProduct, error) {
	const query = `
		SELECT id, store_id, name, price, stock_quantity, category
		FROM products
		WHERE store_id = $1
	`

	rows, err := r.pool.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	defer rows.Close()

	var products []models.CachedProduct
	for rows.Next() {
		var p models.CachedProduct
		if err := rows.Scan(&p.ID, &p.StoreID, &p.Name, &p.Price, &p.StockQuantity, &p.Category); err != nil {
			return nil, fmt.Errorf("product scan failed: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("product rows failed: %w", err)
	}

	return products, nil
}

// DeleteProduct removes a product row on the backend. The local cache half
// of the delete is handled separately by the catalog service.
func (r *PostgresBackend) DeleteProduct(ctx context.Context, productID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", productID, err)
	}
	return nil
}

func (r *PostgresBackend) Close() {
	r.pool.Close()
}
