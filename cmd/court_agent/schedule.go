package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/court-agent/internal/config"
	"github.com/jonathan/court-agent/internal/db"
	"github.com/jonathan/court-agent/internal/schedule"
)

var scheduleConfigPath string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show the next trigger instant for each enabled config",
	Long: `Lists every enabled booking config with the slot it will attempt next and
the moment the trigger loop will fire for it (two days before the slot, 18:00).`,
	RunE: runScheduleCmd,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleConfigPath, "config", "", "Path to config.json file")
	rootCmd.AddCommand(scheduleCmd)
}

func runScheduleCmd(_ *cobra.Command, _ []string) error {
	cfg := &config.Config{}
	if scheduleConfigPath != "" {
		loaded, err := config.LoadConfig(scheduleConfigPath)
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

	configs, err := database.EnabledConfigs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list configs: %w", err)
	}
	if len(configs) == 0 {
		fmt.Fprintln(os.Stdout, "No enabled configs.")
		return nil
	}

	now := time.Now()
	for _, bc := range configs {
		trigger := schedule.NextTrigger(bc, now)
		if trigger == nil {
			fmt.Fprintf(os.Stdout, "%s  %-12s no schedulable slot\n", bc.ID, bc.Sport)
			continue
		}
		fmt.Fprintf(os.Stdout, "%s  %-12s slot %s %s  fires %s\n",
			bc.ID, bc.Sport, trigger.Weekday, trigger.Slot,
			trigger.At.Format("Mon 2006-01-02 15:04"))
	}
	return nil
}
