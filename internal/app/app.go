package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/avstrong/stays/internal/booking"
	"github.com/avstrong/stays/internal/catalog"
	"github.com/avstrong/stays/internal/clock"
	"github.com/avstrong/stays/internal/config"
	"github.com/avstrong/stays/internal/events"
	"github.com/avstrong/stays/internal/favorites"
	"github.com/avstrong/stays/internal/identity"
	"github.com/avstrong/stays/internal/idgen/random"
	"github.com/avstrong/stays/internal/idgen/simple"
	"github.com/avstrong/stays/internal/kv"
	"github.com/avstrong/stays/internal/kv/rediskv"
	"github.com/avstrong/stays/internal/logger"
	"github.com/avstrong/stays/internal/migration"
	"github.com/avstrong/stays/internal/retry"
	"github.com/avstrong/stays/internal/review"
	"github.com/avstrong/stays/internal/storage/memory"
	"github.com/avstrong/stays/internal/storage/postgres"
	"github.com/avstrong/stays/internal/transport/web"
)

type store interface {
	BeginTransaction(ctx context.Context, level string) (context.Context, error)
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	SaveListings(ctx context.Context, listings []*catalog.Listing) error
	ListListings(ctx context.Context) ([]*catalog.Listing, error)
	SaveReservation(ctx context.Context, reservation *booking.Reservation) (string, error)
	DeleteReservation(ctx context.Context, id string) error
	SaveEvent(ctx context.Context, event *booking.Event) error
	GetReservation(ctx context.Context, id string) (*booking.Reservation, error)
	ListReservations(ctx context.Context) ([]*booking.Reservation, error)
	GetReservationByIdempotencyKey(ctx context.Context) (*booking.Reservation, error)
	SaveReview(ctx context.Context, r *review.Review) (string, error)
	ListReviewsByListing(ctx context.Context, listingID string) ([]*review.Review, error)
	GetReviewByReservation(ctx context.Context, reservationID string) (*review.Review, error)
}

type publisher interface {
	Publish(ctx context.Context, event *booking.Event) error
	io.Closer
}

func retryPolicy(conf config.Config) retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = conf.Retry.MaxAttempts
	p.InitialInterval = conf.Retry.InitialInterval

	return p
}

func openStore(ctx context.Context, conf config.Config, l *logger.Logger) (store, func(), error) {
	switch conf.Storage.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(postgres.Config{L: l, DSN: conf.Storage.PostgresDSN, IDGenerator: random.New()})
		if err != nil {
			return nil, nil, err
		}

		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()

			return nil, nil, err
		}

		return db, func() {
			if err := db.Close(); err != nil {
				l.LogErrorf("Failed to close postgres: %v", err.Error())
			}
		}, nil
	default:
		return memory.New(memory.Config{L: l, IDGenerator: simple.New("res-")}), func() {}, nil
	}
}

func openKV(ctx context.Context, conf config.Config, l *logger.Logger) (kv.Store, func(), error) {
	if conf.Favorites.Driver != config.DriverRedis {
		return kv.NewMemory(), func() {}, nil
	}

	s := rediskv.New(rediskv.Config{
		L:            l,
		Addr:         conf.Favorites.RedisAddr,
		Password:     conf.Favorites.RedisPassword,
		DB:           conf.Favorites.RedisDB,
		MaxTxRetries: 0,
	})

	if err := retry.Do(ctx, retryPolicy(conf), s.Ping); err != nil {
		_ = s.Close()

		return nil, nil, err
	}

	return s, func() {
		if err := s.Close(); err != nil {
			l.LogErrorf("Failed to close redis: %v", err.Error())
		}
	}, nil
}

func openPublisher(ctx context.Context, conf config.Config, l *logger.Logger) (publisher, error) {
	if conf.Events.AMQPURL == "" {
		l.LogInfo("No broker configured, reservation events go to the log")

		return events.NewLogPublisher(l), nil
	}

	return events.DialAMQP(ctx, events.AMQPConfig{
		L:        l,
		URL:      conf.Events.AMQPURL,
		Exchange: conf.Events.Exchange,
		Retry:    retryPolicy(conf),
	})
}

func Run(conf config.Config, l *logger.Logger) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)
	defer cancel()

	storage, closeStorage, err := openStore(ctx, conf, l)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeStorage()

	if conf.Storage.Seed {
		if err := migration.Up(ctx, l, storage); err != nil {
			return fmt.Errorf("seed listings: %w", err)
		}

		l.LogInfo("Listing seed has been applied")
	}

	policy := retryPolicy(conf)
	clk := clock.Real()

	cat, err := catalog.Load(ctx, storage, catalog.ImageResolver{BaseURL: conf.Catalog.ImageBaseURL}, policy)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	l.LogInfo("Catalog loaded with %d listings", cat.Len())

	kvStore, closeKV, err := openKV(ctx, conf, l)
	if err != nil {
		return fmt.Errorf("open favorites store: %w", err)
	}
	defer closeKV()

	pub, err := openPublisher(ctx, conf, l)
	if err != nil {
		return fmt.Errorf("open event publisher: %w", err)
	}

	defer func() {
		if err := pub.Close(); err != nil {
			l.LogErrorf("Failed to close event publisher: %v", err.Error())
		}
	}()

	bookManager := booking.New(booking.Config{
		L:           l,
		Storage:     storage,
		Listings:    cat,
		IDGenerator: random.New(),
		Publisher:   pub,
		Clock:       clk,
		Fees:        booking.Fees{Cleaning: conf.Pricing.CleaningFee, Service: conf.Pricing.ServiceFee},
	})

	reviews := review.New(review.Config{
		L:            l,
		Storage:      storage,
		Reservations: bookManager,
		Clock:        clk,
		Retry:        policy,
	})

	var verifier *identity.Verifier
	if conf.Auth.JWTSecret != "" {
		verifier = identity.NewVerifier(conf.Auth.JWTSecret, clk)
	} else {
		l.LogInfo("No JWT secret configured, sign-in is disabled")
	}

	webConf := web.Conf{
		L:                 l,
		ServerLogger:      log.Default(),
		Host:              conf.HTTP.Host,
		Port:              conf.HTTP.Port,
		ReadHeaderTimeout: conf.HTTP.ReadHeaderTimeout,
		LivenessEndpoint:  conf.HTTP.LivenessEndpoint,
	}

	srv, err := web.New(ctx, webConf, web.Deps{
		Bookings:  bookManager,
		Catalog:   cat,
		Favorites: favorites.New(favorites.Config{L: l, KV: kvStore, Listings: cat}),
		Reviews:   reviews,
		Verifier:  verifier,
	})
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	//nolint:contextcheck
	go func() {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), conf.HTTP.ShutdownTimeout)
		defer cancel()

		if err := srv.Srv().Shutdown(ctx); err != nil {
			l.LogErrorf("Failed to stop http server: %v", err.Error())
		}
	}()

	l.LogInfo("Application is running on %v:%v...", webConf.Host, webConf.Port)

	if err := srv.Srv().ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		l.LogErrorf("Failed to run http server: %v", err.Error())

		cancel()
	}

	l.LogInfo("Application stopped gracefully")

	return nil
}
