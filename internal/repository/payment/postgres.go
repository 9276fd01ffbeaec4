package payment

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"raices-verdes/internal/db"
	"raices-verdes/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	opts   db.TxOptions
	logger zerolog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zerolog.Logger) Repository {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "payment_repo").Logger()
	}
	return &postgresRepo{pool: pool, opts: db.DefaultTxOptions(), logger: l}
}

type lockedLine struct {
	productID string
	quantity  int
	name      string
	price     decimal.Decimal
	stock     int
}

func (r *postgresRepo) Checkout(ctx context.Context, clientID string, method domain.PaymentMethod) (*domain.Payment, error) {
	var out *domain.Payment
	err := db.WithRetry(ctx, r.pool, r.opts, func(tx pgx.Tx) error {
		out = nil

		lines, err := lockCart(ctx, tx, clientID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return domain.EmptyCartError()
		}

		var shortages []domain.StockShortage
		total := decimal.Zero
		for _, l := range lines {
			if l.quantity > l.stock {
				shortages = append(shortages, domain.StockShortage{
					ProductID: l.productID,
					Name:      l.name,
					Requested: l.quantity,
					Available: l.stock,
				})
			}
			total = total.Add(l.price.Mul(decimal.NewFromInt(int64(l.quantity))))
		}
		if len(shortages) > 0 {
			return &domain.StockError{Shortages: shortages}
		}

		p := domain.Payment{ClientID: clientID, Total: total, Method: method}
		if err := tx.QueryRow(ctx, `
INSERT INTO payments (client_id, total, method)
VALUES ($1, $2, $3)
RETURNING id::text, invoice_number, created_at
`, clientID, total, string(method)).Scan(&p.ID, &p.InvoiceNumber, &p.CreatedAt); err != nil {
			return db.TranslateError(err)
		}

		for _, l := range lines {
			if _, err := tx.Exec(ctx, `
INSERT INTO payment_details (payment_id, product_id, product_name, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5)
`, p.ID, l.productID, l.name, l.quantity, l.price); err != nil {
				return fmt.Errorf("insert payment detail: %w", db.TranslateError(err))
			}

			cmd, err := tx.Exec(ctx, `
UPDATE products
SET stock = stock - $1
WHERE id = $2 AND stock >= $1
`, l.quantity, l.productID)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", db.TranslateError(err))
			}
			if cmd.RowsAffected() == 0 {
				return &domain.StockError{Shortages: []domain.StockShortage{{
					ProductID: l.productID,
					Name:      l.name,
					Requested: l.quantity,
					Available: l.stock,
				}}}
			}

			p.Details = append(p.Details, domain.PaymentDetail{
				PaymentID:   p.ID,
				ProductID:   l.productID,
				ProductName: l.name,
				Quantity:    l.quantity,
				UnitPrice:   l.price,
			})
		}

		if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE client_id = $1`, clientID); err != nil {
			return fmt.Errorf("clear cart: %w", db.TranslateError(err))
		}

		out = &p
		return nil
	})
	if err != nil {
		if !domain.IsValidation(err) {
			r.logger.Error().Err(err).Str("client_id", clientID).Msg("checkout")
		}
		return nil, err
	}
	r.logger.Info().
		Str("payment_id", out.ID).
		Int64("invoice_number", out.InvoiceNumber).
		Str("total", out.Total.StringFixed(2)).
		Msg("checkout committed")
	return out, nil
}

// lockCart reads the cart joined with its products and locks both, in
// product id order so concurrent checkouts touching the same products queue
// instead of deadlocking.
func lockCart(ctx context.Context, tx pgx.Tx, clientID string) ([]lockedLine, error) {
	rows, err := tx.Query(ctx, `
SELECT p.id::text, cl.quantity, p.name, p.price, p.stock
FROM cart_lines cl
JOIN products p ON p.id = cl.product_id
WHERE cl.client_id = $1
ORDER BY p.id
FOR UPDATE OF cl, p
`, clientID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	defer rows.Close()

	var lines []lockedLine
	for rows.Next() {
		var l lockedLine
		if err := rows.Scan(&l.productID, &l.quantity, &l.name, &l.price, &l.stock); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *postgresRepo) GetInvoice(ctx context.Context, paymentID, clientID string) (*domain.Payment, error) {
	var p domain.Payment
	var method string
	err := r.pool.QueryRow(ctx, `
SELECT id::text, client_id::text, total, method, invoice_number, created_at
FROM payments
WHERE id = $1 AND client_id = $2
`, paymentID, clientID).Scan(&p.ID, &p.ClientID, &p.Total, &method, &p.InvoiceNumber, &p.CreatedAt)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	p.Method = domain.PaymentMethod(method)

	rows, err := r.pool.Query(ctx, `
SELECT payment_id::text, COALESCE(product_id::text, ''), product_name, quantity, unit_price
FROM payment_details
WHERE payment_id = $1
ORDER BY product_name ASC, product_id ASC
`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var d domain.PaymentDetail
		if err := rows.Scan(&d.PaymentID, &d.ProductID, &d.ProductName, &d.Quantity, &d.UnitPrice); err != nil {
			return nil, err
		}
		p.Details = append(p.Details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) ListByClient(ctx context.Context, clientID string) ([]domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id::text, client_id::text, total, method, invoice_number, created_at
FROM payments
WHERE client_id = $1
ORDER BY created_at DESC, invoice_number DESC
`, clientID)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	defer rows.Close()

	out := []domain.Payment{}
	for rows.Next() {
		var p domain.Payment
		var method string
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Total, &method, &p.InvoiceNumber, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Method = domain.PaymentMethod(method)
		out = append(out, p)
	}
	return out, rows.Err()
}
