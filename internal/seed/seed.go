package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"raices-verdes/internal/domain"
	articlerepo "raices-verdes/internal/repository/article"
	clientrepo "raices-verdes/internal/repository/client"
	producerrepo "raices-verdes/internal/repository/producer"
	productrepo "raices-verdes/internal/repository/product"
)

// Fixed identity ids so demo tokens stay valid across reseeds.
const (
	VerifiedProducerID   = "11111111-1111-4111-8111-111111111111"
	UnverifiedProducerID = "22222222-2222-4222-8222-222222222222"
	ClientID             = "33333333-3333-4333-8333-333333333333"
)

var seededArticles = []domain.Article{
	{
		ID:         "44444444-4444-4444-8444-000000000001",
		ProducerID: VerifiedProducerID,
		Title:      "Matico para cicatrizar heridas",
		Category:   "Plantas medicinales",
		Content:    "Las hojas de matico se preparan en infusión para lavar heridas leves.",
		ImageURL:   "articles/matico.jpg",
	},
	{
		ID:       "44444444-4444-4444-8444-000000000002",
		Title:    "Baños de hierbas para la armonización",
		Category: "Rituales",
		Content:  "Ruda, romero y albahaca se usan en baños de limpieza.",
	},
}

type productSeed struct {
	Name        string
	Price       string
	Community   string
	Stock       int
	ImageURL    string
	Description string
}

// Identity is a seeded account a demo token can be issued for.
type Identity struct {
	ID    string
	Email string
	Name  string
	Role  domain.Role
}

// Apply inserts demo data for manual testing. It is idempotent.
func Apply(ctx context.Context, pool *pgxpool.Pool, logger *zerolog.Logger) ([]Identity, error) {
	producers := producerrepo.NewPostgres(pool)
	clients := clientrepo.NewPostgres(pool)
	products := productrepo.NewPostgres(pool, logger)

	seededProducers := []domain.Producer{
		{
			ID:               VerifiedProducerID,
			BusinessName:     "Tejidos Wayuu Kaí",
			ContactEmail:     "kai@raices.example",
			Community:        "Wayuu",
			DocumentRef:      "documents/kai.pdf",
			EmailConfirmed:   true,
			DocumentVerified: true,
		},
		{
			ID:             UnverifiedProducerID,
			BusinessName:   "Cerámica Nasa",
			ContactEmail:   "nasa@raices.example",
			Community:      "Nasa",
			DocumentRef:    "documents/nasa.pdf",
			EmailConfirmed: true,
		},
	}
	for _, p := range seededProducers {
		if _, err := producers.Upsert(ctx, p); err != nil {
			return nil, fmt.Errorf("upsert producer %s: %w", p.BusinessName, err)
		}
	}

	if _, err := clients.Ensure(ctx, domain.Client{ID: ClientID, Name: "Ana Demo", Email: "ana@raices.example"}); err != nil {
		return nil, fmt.Errorf("ensure client: %w", err)
	}

	catalog := map[string][]productSeed{
		VerifiedProducerID: {
			{Name: "Mochila Wayuu", Price: "120.00", Community: "Wayuu", Stock: 8, ImageURL: "products/mochila.jpg", Description: "Mochila tejida en crochet"},
			{Name: "Chinchorro", Price: "250.00", Community: "Wayuu", Stock: 2, ImageURL: "products/chinchorro.jpg", Description: "Hamaca de hilo"},
			{Name: "Manilla", Price: "12.50", Community: "Wayuu", Stock: 40},
		},
		UnverifiedProducerID: {
			{Name: "Vasija de barro", Price: "45.00", Community: "Nasa", Stock: 5, ImageURL: "products/vasija.jpg"},
		},
	}
	for producerID, items := range catalog {
		for _, s := range items {
			p := domain.Product{
				ProducerID:  producerID,
				Name:        s.Name,
				Price:       decimal.RequireFromString(s.Price),
				Community:   s.Community,
				Stock:       s.Stock,
				ImageURL:    s.ImageURL,
				Description: s.Description,
			}
			if _, err := products.Upsert(ctx, p); err != nil {
				return nil, fmt.Errorf("upsert product %s: %w", s.Name, err)
			}
		}
	}

	articles := articlerepo.NewPostgres(pool, logger)
	for _, a := range seededArticles {
		if _, err := articles.Upsert(ctx, a); err != nil {
			return nil, fmt.Errorf("upsert article %s: %w", a.Title, err)
		}
	}

	return []Identity{
		{ID: VerifiedProducerID, Email: "kai@raices.example", Name: "Kaí", Role: domain.RoleProducer},
		{ID: UnverifiedProducerID, Email: "nasa@raices.example", Name: "Nasa", Role: domain.RoleProducer},
		{ID: ClientID, Email: "ana@raices.example", Name: "Ana Demo", Role: domain.RoleClient},
	}, nil
}
