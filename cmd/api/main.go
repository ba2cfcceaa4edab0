// @title        Vino Membership API
// @version      1.0
// @description  Registers members, checks their credentials and activates memberships after payment.
// @BasePath     /
// @schemes      http
// @host         localhost:8080
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/maccoykevin921-crypto/vino-membership-api/internal/api"
	"github.com/maccoykevin921-crypto/vino-membership-api/internal/api/handler"
	"github.com/maccoykevin921-crypto/vino-membership-api/internal/core/ports"
	"github.com/maccoykevin921-crypto/vino-membership-api/internal/core/service"
	"github.com/maccoykevin921-crypto/vino-membership-api/internal/infrastructure/db/filestore"
	mongostore "github.com/maccoykevin921-crypto/vino-membership-api/internal/infrastructure/db/mongo"
	redisstore "github.com/maccoykevin921-crypto/vino-membership-api/internal/infrastructure/db/redis"
	"github.com/maccoykevin921-crypto/vino-membership-api/internal/pkg/config"
	"github.com/maccoykevin921-crypto/vino-membership-api/pkg/logger"
	"github.com/maccoykevin921-crypto/vino-membership-api/pkg/password"
)

const serviceName = "vino-membership-api"

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Development(),
		Service: serviceName,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg)
	stop()
	if err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	hasher, err := password.New(cfg.Password.Hasher, cfg.Password.BcryptCost)
	if err != nil {
		return err
	}

	repo, checks, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	members := service.NewMemberService(repo, hasher, log)
	e := api.NewRouter(api.Options{
		Members:     members,
		Checks:      checks,
		Logger:      log,
		CORSOrigins: cfg.CORSOrigins,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	log.Info().
		Str("store", cfg.Store.Driver).
		Str("hasher", hasher.Algorithm()).
		Msgf("Vino Membership API running on port %s", cfg.Port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStore wires the configured member repository and the readiness checks
// for what it depends on.
func openStore(ctx context.Context, cfg *config.Config) (ports.MemberRepository, map[string]handler.Checker, func(), error) {
	log := logger.Get()
	checks := make(map[string]handler.Checker)

	if cfg.Store.Driver == config.DriverMongo {
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		cleanup := func() { _ = client.Disconnect(context.Background()) }

		repo, err := mongostore.NewMemberRepository(ctx, db)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		checks["mongodb"] = repo
		return repo, checks, cleanup, nil
	}

	var locker filestore.Locker = &filestore.MutexLocker{}
	cleanup := func() {}
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		cleanup = func() { _ = rdb.Close() }
		locker = redisstore.NewLocker(rdb, redisstore.DefaultLockKey, cfg.Redis.LockTTL, log)
		checks["redis"] = handler.CheckerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	repo := filestore.NewMemberRepository(cfg.Store.Path, locker)
	checks["storage"] = repo
	log.Info().Str("path", cfg.Store.Path).Bool("shared_lock", cfg.Redis.Addr != "").Msg("using file storage")
	return repo, checks, cleanup, nil
}
