// Package main provides the trial-eligibility command: HTTP server, MCP
// server and one-off evaluations from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trial-eligibility-server/internal/api"
	"github.com/trial-eligibility-server/internal/config"
	"github.com/trial-eligibility-server/internal/domain"
	"github.com/trial-eligibility-server/internal/mcp"
	"github.com/trial-eligibility-server/internal/metrics"
	"github.com/trial-eligibility-server/internal/rules"
	"github.com/trial-eligibility-server/internal/setup"
	"github.com/trial-eligibility-server/internal/store"
	"github.com/trial-eligibility-server/internal/trial"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "trial-eligibility",
		Short:        "Clinical trial eligibility engine",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().Bool("lite", false, "Use TRIAL_* environment configuration with local SQLite and memory cache")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(setupCmd())
	return rootCmd
}

// loadConfig resolves the configuration selected by the global flags.
func loadConfig(cmd *cobra.Command) (*domain.Config, error) {
	lite, _ := cmd.Flags().GetBool("lite")
	path, _ := cmd.Flags().GetString("config")

	if lite {
		liteCfg := config.LoadLiteConfig()
		if err := liteCfg.EnsureDataDir(); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		cfg := liteCfg.ToConfig()
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
		cfg.Server.Mode = config.ServerMode(cfg, false)
		return cfg, nil
	}

	var (
		manager domain.ConfigManager
		err     error
	)
	if path != "" {
		manager, err = config.NewManagerFromFile(path)
	} else {
		manager, err = config.NewManager()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg := manager.GetConfig()
	cfg.Server.Mode = config.ServerMode(cfg, manager.IsProduction())
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := config.NewLogger(cfg.Logging)

			ctx, cancel := signalContext()
			defer cancel()

			m := metrics.New()
			service, err := trial.Bootstrap(ctx, cfg, logger, m)
			if err != nil {
				return err
			}
			defer service.Close()

			server := api.NewServer(cfg, service, m, logger)
			if err := server.Start(ctx); err != nil {
				return err
			}
			logger.Info("Server stopped")
			return nil
		},
	}
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the eligibility tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// stdout carries the protocol
			cfg.Logging.Output = "stderr"
			logger := config.NewLogger(cfg.Logging)

			ctx, cancel := signalContext()
			defer cancel()

			service, err := trial.Bootstrap(ctx, cfg, logger, nil)
			if err != nil {
				return err
			}
			defer service.Close()

			return mcp.NewServer(cfg.MCP, service, logger).Run(ctx)
		},
	}
}

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate patient records from a JSON file",
		Long: "Evaluate a patient record (JSON object) or a batch of records (JSON array) " +
			"against the loaded trials, or against a single --rule expression, and print the result as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			patientFile, _ := cmd.Flags().GetString("patient")
			trialIDs, _ := cmd.Flags().GetStringSlice("trial")
			rule, _ := cmd.Flags().GetString("rule")
			referenceDate, _ := cmd.Flags().GetString("reference-date")
			save, _ := cmd.Flags().GetBool("save")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if referenceDate != "" {
				cfg.Engine.ReferenceDate = referenceDate
			}
			if !save {
				cfg.Database.Driver = "none"
			}
			cfg.Logging.Output = "stderr"
			logger := config.NewLogger(cfg.Logging)

			records, batch, err := readPatients(patientFile)
			if err != nil {
				return err
			}

			service, err := trial.Bootstrap(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}
			defer service.Close()

			out, err := evaluate(cmd.Context(), service, records, batch, trialIDs, rule)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().String("patient", "", "Path to a patient record JSON file, or - for stdin")
	cmd.Flags().StringSlice("trial", nil, "Trial id to match against (repeatable; default every open trial)")
	cmd.Flags().String("rule", "", "Evaluate this criterion expression instead of trials")
	cmd.Flags().String("reference-date", "", "Interpret medication status on this date (YYYY-MM-DD)")
	cmd.Flags().Bool("save", false, "Record evaluations in the configured store")
	_ = cmd.MarkFlagRequired("patient")
	return cmd
}

func evaluate(ctx context.Context, service *trial.Service, records []*domain.PatientRecord, batch bool, trialIDs []string, rule string) (any, error) {
	if rule != "" {
		results := make([]*trial.RuleEvaluation, 0, len(records))
		for _, record := range records {
			result, err := service.EvaluateExpression(record, rule)
			if err != nil {
				return nil, err
			}
			results = append(results, result)
		}
		if batch {
			return results, nil
		}
		return results[0], nil
	}

	if batch {
		return service.EvaluateBatch(ctx, records, trialIDs)
	}
	return service.EvaluatePatient(ctx, records[0], trialIDs)
}

// readPatients decodes a single record or an array of records.
func readPatients(path string) ([]*domain.PatientRecord, bool, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read patient file: %w", err)
	}

	if strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
		var records []*domain.PatientRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, false, fmt.Errorf("failed to decode patient records: %w", err)
		}
		if len(records) == 0 {
			return nil, false, fmt.Errorf("patient file contains no records")
		}
		for i, record := range records {
			if record == nil {
				return nil, false, fmt.Errorf("patient record %d is null", i)
			}
		}
		return records, true, nil
	}

	var record domain.PatientRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, false, fmt.Errorf("failed to decode patient record: %w", err)
	}
	return []*domain.PatientRecord{&record}, false, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run PostgreSQL evaluation store migrations",
	}

	run := func(direction string) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return fmt.Errorf("migrations apply to the postgres driver, configured driver is %q", cfg.Database.Driver)
			}
			logger := config.NewLogger(cfg.Logging)

			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = cfg.Database.MigrationsPath
			}

			runner, err := store.NewMigrationRunner(store.DatabaseURL(cfg.Database), dir, logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			if direction == "down" {
				return runner.Down()
			}
			return runner.Up()
		}
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  run("up"),
	}
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE:  run("down"),
	}
	for _, c := range []*cobra.Command{upCmd, downCmd} {
		c.Flags().String("dir", "", "Path to migrations directory (default from config)")
		cmd.AddCommand(c)
	}
	return cmd
}

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the eligibility rule catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), rules.Catalogue())
		},
	}
}

func setupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the MCP server with a desktop MCP client",
	}
	cmd.PersistentFlags().String("client-config", "", "Client config file (default: desktop client location)")

	clientConfigPath := func(cmd *cobra.Command) (string, error) {
		if path, _ := cmd.Flags().GetString("client-config"); path != "" {
			return path, nil
		}
		return setup.ClientConfigPath()
	}

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Add or update the server entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := clientConfigPath(cmd)
			if err != nil {
				return err
			}
			opts := setup.Options{}
			opts.BinaryPath, _ = cmd.Flags().GetString("binary")
			opts.DataDir, _ = cmd.Flags().GetString("data-dir")
			opts.TrialsDir, _ = cmd.Flags().GetString("trials-dir")
			if opts.BinaryPath == "" {
				if opts.BinaryPath, err = os.Executable(); err != nil {
					return fmt.Errorf("failed to locate executable: %w", err)
				}
			}

			entry, err := setup.Register(path, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s in %s\n", setup.ServerName, path)
			return writeJSON(cmd.OutOrStdout(), entry)
		},
	}
	registerCmd.Flags().String("binary", "", "Server binary (default: this executable)")
	registerCmd.Flags().String("data-dir", "", "Data directory passed as TRIAL_DATA_DIR")
	registerCmd.Flags().String("trials-dir", "", "Trials directory passed as TRIAL_TRIALS_DIR")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := clientConfigPath(cmd)
			if err != nil {
				return err
			}
			status, err := setup.GetStatus(path)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), status)
		},
	}

	cmd.AddCommand(registerCmd, statusCmd)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
