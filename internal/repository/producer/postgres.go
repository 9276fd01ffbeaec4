package producer

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"raices-verdes/internal/db"
	"raices-verdes/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const producerColumns = `id::text, business_name, contact_email, phone, community, document_ref, logo_url, email_confirmed, document_verified, created_at`

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Producer, error) {
	p, err := scanProducer(r.pool.QueryRow(ctx, `SELECT `+producerColumns+` FROM producers WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError(err)
	}
	return p, nil
}

// Upsert is used by the seeder. Verification flags are written as given.
func (r *postgresRepo) Upsert(ctx context.Context, p domain.Producer) (*domain.Producer, error) {
	const q = `
INSERT INTO producers (id, business_name, contact_email, phone, community, document_ref, logo_url, email_confirmed, document_verified)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    business_name = EXCLUDED.business_name,
    contact_email = EXCLUDED.contact_email,
    phone = EXCLUDED.phone,
    community = EXCLUDED.community,
    document_ref = EXCLUDED.document_ref,
    logo_url = EXCLUDED.logo_url,
    email_confirmed = EXCLUDED.email_confirmed,
    document_verified = EXCLUDED.document_verified
RETURNING ` + producerColumns
	out, err := scanProducer(r.pool.QueryRow(ctx, q,
		p.ID, p.BusinessName, p.ContactEmail, p.Phone, p.Community, p.DocumentRef, p.LogoURL,
		p.EmailConfirmed, p.DocumentVerified,
	))
	if err != nil {
		return nil, db.TranslateError(err)
	}
	return out, nil
}

func scanProducer(row pgx.Row) (*domain.Producer, error) {
	var p domain.Producer
	if err := row.Scan(
		&p.ID,
		&p.BusinessName,
		&p.ContactEmail,
		&p.Phone,
		&p.Community,
		&p.DocumentRef,
		&p.LogoURL,
		&p.EmailConfirmed,
		&p.DocumentVerified,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
