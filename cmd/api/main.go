package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"raices-verdes/internal/config"
	"raices-verdes/internal/db"
	"raices-verdes/internal/events"
	"raices-verdes/internal/httpserver"
	"raices-verdes/internal/logging"
	"raices-verdes/internal/realtime"
	articlerepo "raices-verdes/internal/repository/article"
	cartrepo "raices-verdes/internal/repository/cart"
	clientrepo "raices-verdes/internal/repository/client"
	commentrepo "raices-verdes/internal/repository/comment"
	paymentrepo "raices-verdes/internal/repository/payment"
	producerrepo "raices-verdes/internal/repository/producer"
	productrepo "raices-verdes/internal/repository/product"
	sessionrepo "raices-verdes/internal/repository/session"
	articlesvc "raices-verdes/internal/service/article"
	cartsvc "raices-verdes/internal/service/cart"
	catalogsvc "raices-verdes/internal/service/catalog"
	checkoutsvc "raices-verdes/internal/service/checkout"
	producersvc "raices-verdes/internal/service/producer"
	sessionsvc "raices-verdes/internal/service/session"
	"raices-verdes/internal/storage"
)

const revocationPurgeInterval = time.Hour

func main() {
	cfg := config.FromEnv()
	logger := logging.Component(logging.New(cfg.LogLevel, cfg.LogFormat), "api")

	if cfg.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET is required")
	}

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to db")
	}
	defer dbpool.Close()

	broker := newBroker(ctx, cfg, &logger)
	defer broker.Close()

	publisher := newPublisher(cfg, &logger)
	defer publisher.Close()

	files := storage.NewURLSigner(cfg.FileURLHost, cfg.FileURLSecret)

	productRepo := productrepo.NewPostgres(dbpool, &logger)
	producerRepo := producerrepo.NewPostgres(dbpool)
	clientRepo := clientrepo.NewPostgres(dbpool)
	sessionRepo := sessionrepo.NewPostgres(dbpool)

	sessionService := sessionsvc.New(cfg.JWTSecret, producerRepo, clientRepo, sessionRepo, broker, &logger)
	commentRepo := commentrepo.NewPostgres(dbpool)
	catalogService := catalogsvc.New(productRepo, commentRepo, files)
	cartRepo := cartrepo.NewPostgres(dbpool)
	cartService := cartsvc.New(cartRepo, broker, &logger)
	checkoutService := checkoutsvc.New(checkoutsvc.Deps{
		Payments: paymentrepo.NewPostgres(dbpool, &logger),
		Clients:  clientRepo,
		Carts:    cartRepo,
		Notifier: cartService,
		Events:   publisher,
	}, cfg.CheckoutTimeout, &logger)
	producerService := producersvc.New(producersvc.Deps{
		Producers: producerRepo,
		Products:  productRepo,
		Ratings:   commentRepo,
		Files:     files,
		Notifier:  cartService,
	}, &logger)
	articleService := articlesvc.New(articlerepo.NewPostgres(dbpool, &logger), files, &logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Sessions:  sessionService,
		Catalog:   catalogService,
		Cart:      cartService,
		Checkout:  checkoutService,
		Producers: producerService,
		Articles:  articleService,
	}, httpserver.Options{
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("init server")
	}

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go purgeRevocations(purgeCtx, sessionRepo, logger)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	} else {
		logger.Info().Msg("server stopped")
	}
}

// newBroker uses Redis when REDIS_ADDR is set so several API instances share
// one change feed; otherwise events stay in this process.
func newBroker(ctx context.Context, cfg config.Config, logger *zerolog.Logger) realtime.Broker {
	if cfg.RedisAddr == "" {
		logger.Warn().Msg("REDIS_ADDR not set, change feed is local to this instance")
		return realtime.NewHub(logger)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("connect to redis")
	}
	return realtime.NewRedisBroker(client, logger)
}

func newPublisher(cfg config.Config, logger *zerolog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info().Msg("KAFKA_BROKERS not set, payment events are not published")
		return events.Nop{}
	}
	return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.PaymentsTopic), logger)
}

type revocationPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

func purgeRevocations(ctx context.Context, repo revocationPurger, logger zerolog.Logger) {
	ticker := time.NewTicker(revocationPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := repo.PurgeExpired(ctx, now)
			if err != nil {
				logger.Warn().Err(err).Msg("purge expired revocations")
				continue
			}
			if n > 0 {
				logger.Debug().Int64("purged", n).Msg("expired revocations removed")
			}
		}
	}
}
