package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	_ "github.com/tbourn/go-arth-chatbot/docs"
	"github.com/tbourn/go-arth-chatbot/internal/config"
	httpapi "github.com/tbourn/go-arth-chatbot/internal/http"
	"github.com/tbourn/go-arth-chatbot/internal/observability"
	"github.com/tbourn/go-arth-chatbot/internal/repo"
	"github.com/tbourn/go-arth-chatbot/internal/services"
	"github.com/tbourn/go-arth-chatbot/internal/sqlgen"
	"github.com/tbourn/go-arth-chatbot/internal/sysutil"
)

const (
	shutdownGrace   = 10 * time.Second
	idemSweepPeriod = time.Hour
)

func newServeCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env is normal outside development.
			_ = godotenv.Load(envFile)

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	sysutil.SetupLogger(nil, cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	gen, err := sqlgen.NewClient(sqlgen.Config{BaseURL: cfg.SQLGen.BaseURL, Timeout: cfg.SQLGen.Timeout})
	if err != nil {
		return err
	}

	r := gin.New()
	if err := httpapi.RegisterRoutes(r, db, gen, cfg); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	idem := &services.IdempotencyService{DB: db, TTL: cfg.IdempotencyTTL}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return idem.RunSweeper(log.Logger.WithContext(gctx), idemSweepPeriod)
	})
	g.Go(func() error {
		log.Info().
			Str("addr", srv.Addr).
			Str("db", cfg.DBPath).
			Str("sqlgen", cfg.SQLGen.BaseURL).
			Str("version", sysutil.FirstNonEmpty(version, "dev")).
			Msg("arthbot listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
