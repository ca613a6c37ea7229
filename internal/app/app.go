package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/motivohq/motivo-server/internal/activity"
	"github.com/motivohq/motivo-server/internal/config"
	"github.com/motivohq/motivo-server/internal/db"
	"github.com/motivohq/motivo-server/internal/http/api"
	"github.com/motivohq/motivo-server/internal/idp"
	"github.com/motivohq/motivo-server/internal/ratelimit"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// BuildEngine assembles the gin engine with all routes and middleware wired.
// Split out from RunServer so tests can drive the full stack in-process.
func BuildEngine(conn *gorm.DB, cfg config.AppConfig) (*gin.Engine, error) {
	verifier, errVerifier := idp.NewFromConfig(cfg.IDP)
	if errVerifier != nil {
		return nil, errVerifier
	}
	manager := ratelimit.NewManager(func() config.RedisConfig {
		return cfg.RateLimit.Redis
	}, nil, nil)
	recorder := activity.NewRecorder(conn)

	r := gin.New()
	r.Use(gin.Recovery())
	api.RegisterRoutes(r, conn, verifier, manager, recorder, cfg)
	return r, nil
}

// RunServer boots the API server and blocks until the context is canceled or
// the listener fails.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	engine, errBuild := BuildEngine(conn, cfg)
	if errBuild != nil {
		return errBuild
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("server listening on %s", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}
