package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/architeacher/svc-visa-processing/internal/adapters/airtable"
	"github.com/architeacher/svc-visa-processing/internal/adapters/repos"
	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/runtime"
)

const defaultAdminTokenIssuer = "visa-processing-admin"

func newAPICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Serve the REST API and webhooks",
		Run: func(_ *cobra.Command, _ []string) {
			runtime.New().Run()
		},
	}
}

func newPublisherCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "publisher",
		Aliases: []string{"outbox"},
		Short:   "Relay committed outbox jobs to the broker",
		Run: func(_ *cobra.Command, _ []string) {
			runtime.NewPublisher().Run()
		},
	}
}

func newWorkerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume the job queues",
		Long:  "Consumes the job queues. --queues, or WORKER_QUEUES when the flag is absent, restricts the worker to a subset.",
		Run: func(cmd *cobra.Command, _ []string) {
			queues, _ := cmd.Flags().GetStringSlice("queues")

			runtime.NewSubscriber(runtime.WithSubscriberQueues(queues...)).Run()
		},
	}

	cmd.Flags().StringSlice("queues", nil, "job queues to consume, e.g. critical,pdf")

	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			cfg, err := config.Init()
			if err != nil {
				return err
			}

			logger := infrastructure.New(cfg.Logging)

			storage, err := infrastructure.NewStorage(cfg.Storage)
			if err != nil {
				return err
			}
			defer storage.Close()

			db, err := storage.GetDB()
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}

			if err := repos.Migrate(ctx, db); err != nil {
				return err
			}

			logger.Info().Str("database", cfg.Storage.Database).Msg("schema applied")

			return nil
		},
	}
}

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin PASETO token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			keyHex, _ := cmd.Flags().GetString("secret-key-hex")
			issuer, _ := cmd.Flags().GetString("issuer")
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			if keyHex == "" {
				keyHex = os.Getenv("AUTH_ADMIN_SECRET_KEY_HEX")
			}

			if keyHex == "" {
				return errors.New("a secret key is required, pass --secret-key-hex or set AUTH_ADMIN_SECRET_KEY_HEX")
			}

			if ttl <= 0 {
				return errors.New("ttl must be positive")
			}

			token, err := infrastructure.IssueAdminToken(keyHex, issuer, subject, ttl)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)

			return err
		},
	}

	cmd.Flags().String("secret-key-hex", "", "hex encoded ed25519 secret key")
	cmd.Flags().String("issuer", defaultAdminTokenIssuer, "token issuer, must be one of AUTH_VALID_ISSUERS")
	cmd.Flags().String("subject", "operator", "token subject")
	cmd.Flags().Duration("ttl", time.Hour, "token lifetime")

	return cmd
}

func newAirtableCommand() *cobra.Command {
	airtableCmd := &cobra.Command{Use: "airtable", Short: "Airtable tools"}

	lookupCmd := &cobra.Command{
		Use:   "lookup",
		Short: "Look up Airtable records by field value",
		RunE: func(cmd *cobra.Command, _ []string) error {
			field, _ := cmd.Flags().GetString("field")
			value, _ := cmd.Flags().GetString("value")
			view, _ := cmd.Flags().GetString("view")

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			cfg, err := config.Init()
			if err != nil {
				return err
			}

			client := airtable.NewClient(cfg.Airtable, infrastructure.New(cfg.Logging))

			result, err := client.Lookup(ctx, domain.AirtableLookupRequest{
				Field: field,
				Value: value,
				View:  view,
			})
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")

			return encoder.Encode(result)
		},
	}

	lookupCmd.Flags().String("field", "", "field to match")
	lookupCmd.Flags().String("value", "", "value to match")
	lookupCmd.Flags().String("view", "", "optional view to search in")
	_ = lookupCmd.MarkFlagRequired("field")
	_ = lookupCmd.MarkFlagRequired("value")

	airtableCmd.AddCommand(lookupCmd)

	return airtableCmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}

	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
