package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/payqr/payqr/auditfile"
	"github.com/payqr/payqr/codec"
	"github.com/payqr/payqr/config"
	"github.com/payqr/payqr/database"
	payqrhttp "github.com/payqr/payqr/http"
	"github.com/payqr/payqr/tokenstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the payqr HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP server port")
	serveCmd.Flags().Bool("console", true, "run the interactive console")
	serveCmd.Flags().String("auth-source", "", "token source: config, database")
	serveCmd.Flags().String("tokens-file", "", "YAML file with token definitions")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err = db.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err = db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		slog.Info("database migration complete")
	}

	if err = db.Validate(ctx); err != nil {
		return fmt.Errorf("validate database schema: %w", err)
	}

	repos := db.Repos()
	slog.Info("connected to database", "type", cfg.Database.Type)

	if cfg.Auth.Source == "config" {
		tokens, tokenErr := tokenstore.NewTokenRepo(cfg.Auth.Tokens)
		if tokenErr != nil {
			return fmt.Errorf("load tokens: %w", tokenErr)
		}
		repos.Tokens = tokens
	}

	if cfg.Audit.Backend == "file" {
		audit, auditErr := auditfile.NewStore(cfg.Audit.File)
		if auditErr != nil {
			return fmt.Errorf("open audit log: %w", auditErr)
		}
		defer func() { _ = audit.Close() }()
		repos.AccessLog = audit
	}

	handlerConfig := payqrhttp.HandlerConfig{
		Version: version,
		CORS:    cfg.CORS,
		Codec: codec.Options{
			Size:          cfg.Codec.Size,
			RecoveryLevel: cfg.Codec.RecoveryLevel,
		},
	}

	handler := payqrhttp.NewHandler(&handlerConfig, repos)

	router, err := handler.Router()
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Either a signal or the console "exit" entry requests shutdown; the
	// first wins and the rest are no-ops.
	stopCh := make(chan struct{})
	var stopOnce sync.Once
	requestStop := func() { stopOnce.Do(func() { close(stopCh) }) }

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-stopCh:
		}
		requestStop()

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	if cfg.Server.Console {
		go runConsole(ctx, consoleState{
			addr:    addr,
			started: time.Now(),
			repos:   repos,
		}, requestStop)
	}

	slog.Info("starting server", "addr", addr, "tls", cfg.Server.TLSCert != "")

	if cfg.Server.TLSCert != "" {
		err = server.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
