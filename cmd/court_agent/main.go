// Package main provides the entry point for the court booking agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "court_agent",
	Short: "Court booking automation agent",
	Long:  "Court agent books sports facility slots the moment they open (two days ahead, 18:00), handling portal navigation and email verification automatically.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
