package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dyluth/warren/internal/api"
	"github.com/dyluth/warren/internal/config"
	"github.com/dyluth/warren/internal/printer"
	"github.com/dyluth/warren/internal/tasks"
	"github.com/dyluth/warren/internal/users"
	"github.com/dyluth/warren/pkg/board"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the board server",
	Long: `Start the Warren HTTP server.

Connects to the Redis board store, then serves the task board API and the
live event stream until interrupted. Shutdown waits for in-flight requests
to finish.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return printer.Error(
			"Invalid configuration",
			err.Error(),
			[]string{"Check " + configPath + " against the documented format"},
		)
	}

	logger := newLogger(cfg)

	client, err := connectBoard(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	userSvc := users.NewService(client, []byte(cfg.Auth.SigningKey), time.Duration(cfg.Auth.TokenTTL))
	taskSvc := tasks.NewService(client, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.Register(e, api.Deps{
		Users: userSvc,
		Tasks: taskSvc,
		Board: client,
		Log:   logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(cfg.ListenAddr())
	}()

	printer.Success("Warren serving board %q on %s\n", client.BoardName(), cfg.ListenAddr())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return printer.Error("Server failed", err.Error(), nil)
		}
		return nil
	case sig := <-stop:
		logger.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return printer.Error("Shutdown failed", err.Error(), nil)
	}

	printer.Success("Server stopped\n")
	return nil
}

// newLogger builds the process logger from the configured level.
func newLogger(cfg *config.WarrenConfig) *log.Logger {
	logger := log.New()
	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// connectBoard opens the board store client and verifies connectivity.
func connectBoard(cfg *config.WarrenConfig) (*board.Client, error) {
	client, err := board.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Board.Name)
	if err != nil {
		return nil, printer.Error("Cannot create board store client", err.Error(), nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.Error(
			"Cannot connect to Redis",
			"The board store at "+cfg.Redis.Addr+" is unreachable.",
			[]string{
				"Check that Redis is running: redis-cli -h " + cfg.Redis.Addr + " ping",
				"Update redis.addr in " + configPath + " if it points at the wrong host",
			},
		)
	}

	return client, nil
}
