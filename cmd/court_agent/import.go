package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/court-agent/internal/config"
	"github.com/jonathan/court-agent/internal/db"
	"github.com/jonathan/court-agent/internal/schemas"
	"github.com/jonathan/court-agent/internal/types"
)

var importConfigPath string

var importCmd = &cobra.Command{
	Use:   "import <booking.json>",
	Short: "Validate and store a booking config from a JSON file",
	Long: `Validates a booking config document against the schema and inserts it into
the database. The config starts in whatever enabled state the file declares.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportCmd,
}

func init() {
	importCmd.Flags().StringVar(&importConfigPath, "config", "", "Path to config.json file")
	rootCmd.AddCommand(importCmd)
}

func runImportCmd(_ *cobra.Command, args []string) error {
	document, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	if err := schemas.ValidateBookingConfig(document); err != nil {
		return fmt.Errorf("invalid booking config: %w", err)
	}

	var booking types.BookingConfig
	if err := json.Unmarshal(document, &booking); err != nil {
		return fmt.Errorf("failed to parse booking config: %w", err)
	}
	if err := booking.Validate(); err != nil {
		return err
	}

	cfg := &config.Config{}
	if importConfigPath != "" {
		loaded, err := config.LoadConfig(importConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database URL is required (config file or DATABASE_URL)")
	}

	ctx := context.Background()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	id, err := database.CreateConfig(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to store booking config: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Imported booking config %s\n", id)
	return nil
}
