package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/court-agent/internal/browser"
	"github.com/jonathan/court-agent/internal/config"
	"github.com/jonathan/court-agent/internal/db"
	"github.com/jonathan/court-agent/internal/engine"
	"github.com/jonathan/court-agent/internal/mail"
	"github.com/jonathan/court-agent/internal/schedule"
	"github.com/jonathan/court-agent/internal/server"
)

var (
	servePort       int
	serveConfigPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the trigger loop and the control API",
	Long: `Starts the full agent: the trigger loop that fires booking runs when
slots open, and the HTTP control API for status, history and config management.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadAppConfig(serveConfigPath)
	if err != nil {
		return err
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	adminHash := os.Getenv("ADMIN_PASSWORD_HASH")
	if adminHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	orch, err := buildOrchestrator(ctx, cfg, database)
	if err != nil {
		return err
	}

	loop := &schedule.Loop{
		Configs:      database,
		Settings:     database,
		Engine:       orch,
		TickInterval: cfg.TickInterval(),
		GraceWindow:  cfg.GraceWindow(),
	}

	srv, err := server.New(server.Config{
		Port:              servePort,
		JWTSecret:         jwtSecret,
		AdminPasswordHash: adminHash,
	}, orch, database)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error { return srv.Start(gctx) })

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// loadAppConfig loads the JSON config if given, merges the environment, and
// checks the required fields for running the agent.
func loadAppConfig(path string) (*config.Config, error) {
	cfg := &config.Config{}
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required (config file or DATABASE_URL)")
	}
	if err := cfg.Contact.Validate(); err != nil {
		return nil, fmt.Errorf("contact details are required: %w", err)
	}
	return cfg, nil
}

// buildOrchestrator assembles the engine: browser factory, mailbox waiter and
// the database as result sink.
func buildOrchestrator(ctx context.Context, cfg *config.Config, database *db.DB) (*engine.Orchestrator, error) {
	var waiter engine.CodeWaiter
	if cfg.GmailCredentials != "" {
		mailbox, err := mail.NewGmailMailbox(ctx, cfg.GmailCredentials)
		if err != nil {
			return nil, fmt.Errorf("failed to create mailbox: %w", err)
		}
		waiter = &mail.Waiter{
			Mailbox:      mailbox,
			Sender:       cfg.VerificationSender,
			Subject:      cfg.VerificationSubject,
			PollInterval: cfg.PollInterval(),
			Deadline:     cfg.VerifyDeadline(),
		}
	}

	return engine.NewOrchestrator(engine.Options{
		Drivers:         browser.NewFactory(cfg.HeadlessBrowser()),
		Waiter:          waiter,
		Sink:            database,
		Contact:         cfg.Contact,
		PageLoadTimeout: cfg.PageLoadTimeout(),
	}), nil
}
