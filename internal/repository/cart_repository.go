package repository

import (
	"context"
	"errors"
	"fmt"

	"plumbstore/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const cartLineColumns = `id, user_id, product_id, quantity, created_at, updated_at`

// cartRepository implements CartRepository using PostgreSQL.
type cartRepository struct {
	pool   DBPool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool DBPool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

func scanCartLine(row pgx.Row, l *model.CartLine) error {
	return row.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
}

// AddItem upserts the (user, product) line. Concurrent adds of the same product are serialised by the
// unique constraint, so no increment is lost. xmax is zero only for freshly inserted tuples.
func (r *cartRepository) AddItem(ctx context.Context, userID, productID int64, quantity int) (*model.CartLine, bool, error) {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING ` + cartLineColumns + `, (xmax = 0) AS inserted
	`

	var line model.CartLine
	var inserted bool
	err := r.pool.QueryRow(ctx, query, userID, productID, quantity).Scan(
		&line.ID, &line.UserID, &line.ProductID, &line.Quantity, &line.CreatedAt, &line.UpdatedAt, &inserted,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			r.logger.Debug().Int64("product_id", productID).Msg("add to cart for unknown product")
			return nil, false, fmt.Errorf("product %d: %w", productID, model.ErrNotFound)
		}
		r.logger.Error().Err(err).
			Int64("user_id", userID).
			Int64("product_id", productID).
			Msg("failed to upsert cart line")
		return nil, false, fmt.Errorf("failed to upsert cart line: %w", err)
	}

	return &line, inserted, nil
}

// GetLine returns a line owned by userID.
func (r *cartRepository) GetLine(ctx context.Context, userID, lineID int64) (*model.CartLine, error) {
	query := `SELECT ` + cartLineColumns + ` FROM cart_items WHERE id = $1 AND user_id = $2`

	var line model.CartLine
	if err := scanCartLine(r.pool.QueryRow(ctx, query, lineID, userID), &line); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cart line %d: %w", lineID, model.ErrNotFound)
		}
		r.logger.Error().Err(err).Int64("cart_line_id", lineID).Msg("failed to query cart line")
		return nil, fmt.Errorf("failed to query cart line: %w", err)
	}
	return &line, nil
}

// SetQuantity overwrites the quantity of a line owned by userID.
func (r *cartRepository) SetQuantity(ctx context.Context, userID, lineID int64, quantity int) (*model.CartLine, error) {
	query := `
		UPDATE cart_items
		SET quantity = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + cartLineColumns

	var line model.CartLine
	if err := scanCartLine(r.pool.QueryRow(ctx, query, lineID, userID, quantity), &line); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cart line %d: %w", lineID, model.ErrNotFound)
		}
		r.logger.Error().Err(err).Int64("cart_line_id", lineID).Msg("failed to update cart line")
		return nil, fmt.Errorf("failed to update cart line: %w", err)
	}
	return &line, nil
}

// DeleteLine removes a line owned by userID.
func (r *cartRepository) DeleteLine(ctx context.Context, userID, lineID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, lineID, userID)
	if err != nil {
		r.logger.Error().Err(err).Int64("cart_line_id", lineID).Msg("failed to delete cart line")
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cart line %d: %w", lineID, model.ErrNotFound)
	}
	return nil
}

// ListByUser returns the user's lines joined with product details.
func (r *cartRepository) ListByUser(ctx context.Context, userID int64) ([]model.CartLineView, error) {
	query := `
		SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
		       p.id, p.name, p.price, p.image, p.description
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at, c.id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	lines := []model.CartLineView{}
	for rows.Next() {
		var v model.CartLineView
		err := rows.Scan(
			&v.ID, &v.UserID, &v.ProductID, &v.Quantity, &v.CreatedAt, &v.UpdatedAt,
			&v.Product.ID, &v.Product.Name, &v.Product.Price, &v.Product.Image, &v.Product.Description,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart row")
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}

	return lines, nil
}

// Total sums live price times quantity for the user's cart.
func (r *cartRepository) Total(ctx context.Context, userID int64) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(p.price * c.quantity), 0)
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
	`

	var total decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to compute cart total")
		return decimal.Zero, fmt.Errorf("failed to compute cart total: %w", err)
	}
	return total, nil
}

// Clear deletes every line of the user.
func (r *cartRepository) Clear(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to clear cart")
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return tag.RowsAffected(), nil
}

// LockForCheckout locks the user's cart rows until tx ends. A concurrent checkout of the same cart waits
// here and then sees the rows already deleted.
func (r *cartRepository) LockForCheckout(ctx context.Context, tx pgx.Tx, userID int64) ([]model.OrderItem, error) {
	query := `
		SELECT c.product_id, c.quantity, p.price, p.name, p.image
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at, c.id
		FOR UPDATE OF c
	`

	rows, err := tx.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to lock cart")
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		item := model.OrderItem{Product: &model.OrderProduct{}}
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPrice, &item.Product.Name, &item.Product.Image); err != nil {
			return nil, fmt.Errorf("failed to scan locked cart line: %w", err)
		}
		item.Product.ID = item.ProductID
		item.Position = len(items)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locked cart lines: %w", err)
	}

	return items, nil
}

// ClearTx deletes the user's lines within tx.
func (r *cartRepository) ClearTx(ctx context.Context, tx pgx.Tx, userID int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to clear cart in transaction")
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
