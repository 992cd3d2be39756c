package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/court-agent/internal/db"
)

var (
	runConfigPath string
)

var runCommand = &cobra.Command{
	Use:   "run <config-id>",
	Short: "Execute one booking run immediately",
	Long: `Runs a stored booking config right now, bypassing the schedule. Useful for
testing a config against the portal before its real trigger fires.`,
	Args: cobra.ExactArgs(1),
	RunE: runOnceCmd,
}

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file")
	rootCmd.AddCommand(runCommand)
}

func runOnceCmd(_ *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid config id %q: %w", args[0], err)
	}

	cfg, err := loadAppConfig(runConfigPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	booking, err := database.GetConfig(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if booking == nil {
		return fmt.Errorf("config %s not found", id)
	}

	orch, err := buildOrchestrator(ctx, cfg, database)
	if err != nil {
		return err
	}

	// Cancel the run if the process gets a signal.
	go func() {
		<-ctx.Done()
		orch.Stop()
	}()

	result, err := orch.RunNow(ctx, *booking)
	if err != nil {
		return err
	}

	if result.Success {
		fmt.Fprintf(os.Stdout, "Success: %s\n", result.Message)
		return nil
	}
	return fmt.Errorf("run failed (%s): %s", result.Reason, result.Message)
}
