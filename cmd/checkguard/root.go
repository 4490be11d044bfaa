package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sw-campus/checkguard/internal/cli"
	"github.com/sw-campus/checkguard/internal/ui"
	"github.com/sw-campus/checkguard/internal/version"
	"github.com/sw-campus/checkguard/pkg/catalog"
	"github.com/sw-campus/checkguard/pkg/reconciler"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkguard [migration_file] [log_file]",
		Short: "Drop false-positive CHECK constraint changes from a migration script",
		Long: `checkguard - CHECK constraint verification

Filters a generated migration script in place, removing DROP/ADD/VALIDATE
statements for CHECK constraints whose allowed values already match the
reference database. Every decision is written to an audit log.`,
		Args:          cobra.MaximumNArgs(2),
		Version:       version.Short(),
		RunE:          runRoot,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves
	}
	cmd.SetVersionTemplate(version.Info() + "\n")
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	console := ui.NewConsole(cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, configPath, err := cli.LoadConfig(os.Getenv(cli.ConfigEnvVar))
	if err != nil {
		return cli.ConfigError("loading configuration", err)
	}
	if configPath != "" {
		console.Progressf("Using config file: %s", configPath)
	}

	var argMigration, argLog string
	if len(args) > 0 {
		argMigration = args[0]
	}
	if len(args) > 1 {
		argLog = args[1]
	}
	migrationFile := resolveString(argMigration, cfg.MigrationFile)
	logFile := resolveString(argLog, cfg.SkippedLogFile)

	format, err := reconciler.ParseAuditFormat(cfg.Audit.Format)
	if err != nil {
		return cli.ConfigError("invalid audit.format", err)
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return cli.ConfigError("invalid database configuration", err)
	}

	db, err := catalog.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return cli.DBConnectError("opening database", err)
	}
	defer func() { _ = db.Close() }()

	r := reconciler.New(catalog.NewPostgres(db), reconciler.Options{
		Reporter:    console,
		AuditFormat: format,
		Version:     version.Short(),
	})

	if _, err := r.Run(cmd.Context(), migrationFile, logFile); err != nil {
		if reconciler.IsCatalogUnavailableErr(err) {
			return cli.DBConnectError("connecting to database", err)
		}
		return cli.GeneralError("verifying CHECK constraints", err)
	}
	return nil
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: argument > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
