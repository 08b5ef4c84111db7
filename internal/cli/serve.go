package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"

	"focusflow/backend/internal/config"
	"focusflow/backend/internal/db"
	"focusflow/backend/internal/event"
	"focusflow/backend/internal/handler"
	"focusflow/backend/internal/repository"
	"focusflow/backend/internal/router"
	"focusflow/backend/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the HTTP API server.

Configuration comes from the environment (PORT, DB_PATH, JWT_SECRET,
TOKEN_TTL_HOURS, CORS_ORIGINS, MIGRATIONS_DIR, DEFAULT_TZ). Pending
migrations are applied before the server starts listening.

Examples:
  focusd serve              # Listen on the configured port (default 8080)
  focusd serve --port 3000  # Override the port for this run`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if servePort != "" {
		cfg.Port = servePort
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if _, err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	defaultTZ, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		log.Printf("unknown DEFAULT_TZ %q, falling back to UTC", cfg.DefaultTimezone)
		defaultTZ = time.UTC
	}

	userRepo := repository.NewUserRepository(database)
	stateRepo := repository.NewStateRepository(database)
	recordStore := repository.NewRecordStore(database)
	flowRepo := repository.NewFlowRepository(database)

	bus := event.NewBus()
	bus.Subscribe(func(e event.Event) {
		log.Printf("event: %s", e.Kind())
	})

	clk := clock.New()

	authService := service.NewAuthService(userRepo, stateRepo, cfg.JWTSecret, cfg.TokenTTL)
	timerService := service.NewTimerService(stateRepo, recordStore, flowRepo, bus, clk)
	flowService := service.NewFlowService(flowRepo, stateRepo)
	statsService := service.NewStatsService(recordStore, clk, defaultTZ)

	authHandler := handler.NewAuthHandler(authService)
	timerHandler := handler.NewTimerHandler(timerService)
	flowHandler := handler.NewFlowHandler(flowService, timerService)
	historyHandler := handler.NewHistoryHandler(timerService)
	statsHandler := handler.NewStatsHandler(statsService)

	engine := router.New(authService, authHandler, timerHandler, flowHandler, historyHandler, statsHandler, cfg.CORSOrigins)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Printf("backend listening on :%s", cfg.Port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
