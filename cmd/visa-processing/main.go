package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:           "visa-processing",
		Short:         "Visa processing backend",
		Long:          "Runs the API, the outbox publisher and the job workers of the visa processing backend, plus a few operator tools.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")

			return loadEnvFile(envFile)
		},
	}

	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the configuration")

	rootCmd.AddCommand(
		newAPICommand(),
		newPublisherCommand(),
		newWorkerCommand(),
		newMigrateCommand(),
		newTokenCommand(),
		newAirtableCommand(),
	)

	return rootCmd.Execute()
}

// loadEnvFile applies a dotenv file, variables already in the environment win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	return nil
}
