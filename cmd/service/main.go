package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gitlab.com/dirk.krummacker/central-contacts/internal/config"
	"gitlab.com/dirk.krummacker/central-contacts/internal/logger"
	"gitlab.com/dirk.krummacker/central-contacts/internal/service"
	"gitlab.com/dirk.krummacker/central-contacts/internal/store"
)

// Usage example on the command line:
// > PORT=8080 GIN_MODE=release GIN_LOGGING=OFF go run main.go
// > PORT=8080 STORE=mysql DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 go run main.go
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Fatal("contacts service failed", zap.Error(err))
	}
	_ = log.Sync()
}

// run serves the contacts API until ctx is cancelled. All resources are released before it returns.
func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	contactStore, closeStore, err := openStore(cfg, log)
	if err != nil {
		return fmt.Errorf("could not open %s contact store: %w", cfg.Store, err)
	}
	defer closeStore()

	seeded, err := store.Seed(ctx, contactStore, cfg.Seed)
	if err != nil {
		return fmt.Errorf("could not seed contacts: %w", err)
	}
	if seeded > 0 {
		log.Info("seeded contacts", zap.Int("count", seeded))
	}

	gin.SetMode(cfg.GinMode)
	if !cfg.AccessLog {
		log.Info("turning off HTTP request logging")
	}
	router := service.SetupHttpRouter(service.NewContactService(contactStore, log), service.RouterOptions{
		Logger:      log,
		AccessLog:   cfg.AccessLog,
		CORSOrigins: cfg.CORS,
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
	})

	srv := &http.Server{Addr: cfg.Addr(), Handler: router, ReadHeaderTimeout: 15 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting http server", zap.String("addr", cfg.Addr()), zap.String("store", cfg.Store))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// openStore returns the configured contact store and a function that releases it.
func openStore(cfg config.Config, log *zap.Logger) (store.ContactStore, func(), error) {
	if cfg.Store != config.StoreMySQL {
		return store.NewMemoryStore(), func() {}, nil
	}
	log.Info("connecting to mysql", zap.String("dsn", cfg.MySQL.DSNMasked()))
	sqlDB, err := store.OpenMySQL(cfg.MySQL.Driver())
	if err != nil {
		return nil, nil, err
	}
	mysqlStore, err := store.NewMySQLStore(sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.MySQL.Timeout)
	defer cancel()
	if err := mysqlStore.Ping(ctx); err != nil {
		mysqlStore.Close()
		return nil, nil, err
	}
	return mysqlStore, func() {
		if err := mysqlStore.Close(); err != nil {
			log.Warn("could not close mysql store", zap.Error(err))
		}
	}, nil
}
