package seed

import (
	"context"
	"testing"

	"raices-verdes/internal/repository/producer"
	"raices-verdes/internal/testdb"
)

func TestApply_Idempotent(t *testing.T) {
	ctx := context.Background()
	pool := testdb.Pool(t)

	for i := 0; i < 2; i++ {
		identities, err := Apply(ctx, pool, nil)
		if err != nil {
			t.Fatalf("apply #%d: %v", i+1, err)
		}
		if len(identities) != 3 {
			t.Fatalf("expected 3 identities, got %d", len(identities))
		}
	}

	var products int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&products); err != nil {
		t.Fatalf("count products: %v", err)
	}
	if products != 4 {
		t.Fatalf("expected 4 products after reseeding, got %d", products)
	}

	var articles int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM medicinal_articles`).Scan(&articles); err != nil {
		t.Fatalf("count articles: %v", err)
	}
	if articles != 2 {
		t.Fatalf("expected 2 articles after reseeding, got %d", articles)
	}

	repo := producer.NewPostgres(pool)
	verified, err := repo.GetByID(ctx, VerifiedProducerID)
	if err != nil || !verified.Verified() {
		t.Fatalf("expected verified producer, got %+v err=%v", verified, err)
	}
	pending, err := repo.GetByID(ctx, UnverifiedProducerID)
	if err != nil || pending.Verified() {
		t.Fatalf("expected unverified producer, got %+v err=%v", pending, err)
	}
}
