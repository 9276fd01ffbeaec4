package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"raices-verdes/internal/domain"
	"raices-verdes/internal/service/catalog"
	"raices-verdes/internal/service/checkout"
	"raices-verdes/internal/service/producer"
)

type sessionService interface {
	Resolve(ctx context.Context, bearer string) (domain.Actor, error)
	SignOut(ctx context.Context, actor domain.Actor) error
}

type catalogService interface {
	FetchPage(ctx context.Context, filter domain.ProductFilter, offset, limit int) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Communities(ctx context.Context) ([]string, error)
	Comments(ctx context.Context, productID string) ([]domain.Comment, error)
	AddComment(ctx context.Context, actor domain.Actor, productID string, in catalog.CommentInput) (*domain.Comment, error)
}

type cartService interface {
	List(ctx context.Context, actor domain.Actor) ([]domain.CartLine, error)
	Add(ctx context.Context, actor domain.Actor, productID string) (*domain.CartLine, error)
	SetQuantity(ctx context.Context, actor domain.Actor, lineID string, quantity int) (*domain.CartLine, error)
	Remove(ctx context.Context, actor domain.Actor, lineID string) error
	Subscribe(ctx context.Context, actor domain.Actor) (<-chan domain.ChangeEvent, func(), error)
	Total(lines []domain.CartLine) decimal.Decimal
}

type checkoutService interface {
	Checkout(ctx context.Context, actor domain.Actor, method string) (*domain.Payment, error)
	Invoice(ctx context.Context, actor domain.Actor, paymentID string) (*checkout.Invoice, error)
	History(ctx context.Context, actor domain.Actor) ([]domain.Payment, error)
}

type producerService interface {
	GetProducerID(ctx context.Context, productID string) (string, error)
	Profile(ctx context.Context, actor domain.Actor) (*producer.Profile, error)
	PublicPage(ctx context.Context, producerID string) (*producer.PublicPage, error)
	CreateProduct(ctx context.Context, actor domain.Actor, in producer.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, actor domain.Actor, productID string, in producer.ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, actor domain.Actor, productID string) error
}

type articleService interface {
	List(ctx context.Context, actor domain.Actor, filter domain.ArticleFilter) ([]domain.Article, error)
	React(ctx context.Context, actor domain.Actor, articleID, reaction string) (*domain.Article, error)
	Categories(ctx context.Context) ([]string, error)
}

// Deps holds the services the routes delegate to.
type Deps struct {
	Sessions  sessionService
	Catalog   catalogService
	Cart      cartService
	Checkout  checkoutService
	Producers producerService
	Articles  articleService
}

// Options tunes the middleware stack.
type Options struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	// Heartbeat is the interval of keep-alive comments on event streams.
	Heartbeat time.Duration
}

func (d Deps) validate() error {
	switch {
	case d.Sessions == nil:
		return errors.New("session service required")
	case d.Catalog == nil:
		return errors.New("catalog service required")
	case d.Cart == nil:
		return errors.New("cart service required")
	case d.Checkout == nil:
		return errors.New("checkout service required")
	case d.Producers == nil:
		return errors.New("producer service required")
	case d.Articles == nil:
		return errors.New("article service required")
	}
	return nil
}

type handlers struct {
	deps      Deps
	logger    zerolog.Logger
	heartbeat time.Duration
}

// buildRouter wires routes for the API.
func buildRouter(logger zerolog.Logger, db Pinger, deps Deps, opts Options) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 25 * time.Second
	}

	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())
	router.Use(cors.New(corsConfig(opts.CORSOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger, heartbeat: opts.Heartbeat}
	limit := rateLimit(newLimiterSet(opts.RateLimitRPS, opts.RateLimitBurst))

	api := router.Group("/")
	api.Use(sessionMiddleware(deps.Sessions))

	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)
	api.GET("/products/:id/producer", h.getProductProducer)
	api.GET("/products/:id/comments", h.listComments)
	api.POST("/products/:id/comments", limit, h.createComment)
	api.GET("/communities", h.listCommunities)

	api.GET("/me", h.me)
	api.POST("/me/signout", h.signOut)
	api.GET("/me/cart", h.getCart)
	api.POST("/me/cart/lines", limit, h.addCartLine)
	api.PATCH("/me/cart/lines/:id", limit, h.setCartLineQuantity)
	api.DELETE("/me/cart/lines/:id", limit, h.removeCartLine)
	api.GET("/me/cart/events", h.cartEvents)
	api.GET("/me/payments", h.listPayments)

	api.POST("/checkout", limit, h.checkout)
	api.GET("/invoices/:paymentId", h.getInvoice)

	api.GET("/producers/:id", h.producerPage)
	api.GET("/producer/profile", h.producerProfile)
	api.POST("/producer/products", limit, h.createProduct)
	api.PUT("/producer/products/:id", limit, h.updateProduct)
	api.DELETE("/producer/products/:id", limit, h.deleteProduct)

	api.GET("/articles", h.listArticles)
	api.GET("/articles/categories", h.listArticleCategories)
	api.POST("/articles/:id/reactions", limit, h.reactToArticle)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
