package app

import (
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/bookingsync/internal/cmd/output"
	"github.com/agentstation/bookingsync/internal/rowsource"
	"github.com/agentstation/bookingsync/pkg/audit"
	"github.com/agentstation/bookingsync/pkg/conflict"
	"github.com/agentstation/bookingsync/pkg/constants"
	"github.com/agentstation/bookingsync/pkg/errors"
	"github.com/agentstation/bookingsync/pkg/guestname"
	"github.com/agentstation/bookingsync/pkg/normalize"
	"github.com/agentstation/bookingsync/pkg/reconciler"
)

// importFlags holds the flags of the import command.
type importFlags struct {
	sheet    string
	ledger   string
	actor    string
	timezone string
	dryRun   bool
}

// NewImportCommand creates the import command.
func (a *App) NewImportCommand() *cobra.Command {
	var flags importFlags
	cmd := &cobra.Command{
		Use:     "import <file>",
		GroupID: "core",
		Short:   "Reconcile a booking export with the database",
		Long: `Import reads an .xlsx or .csv export and reconciles every row with the
bookings database.

Properties must already exist (see "migrate --property"). Rows that fail are
reported and skipped; the rest of the file is still imported.`,
		Example: `  bookingsync import airbnb-july.xlsx --sheet Reservations
  bookingsync import export.csv --dry-run --ledger conflicts.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.sheet, "sheet", "", "worksheet to read (default is the first sheet)")
	cmd.Flags().StringVar(&flags.ledger, "ledger", "", "write the conflict ledger as JSON to this file")
	cmd.Flags().StringVar(&flags.actor, "actor", "", "user the import runs as (default from config or $USER)")
	cmd.Flags().StringVar(&flags.timezone, "timezone", "", "canonical time zone for booking dates (default from config)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "classify rows without writing to the database")
	return cmd
}

func (a *App) runImport(cmd *cobra.Command, path string, flags importFlags) error {
	actor := valueOr(strings.TrimSpace(flags.actor), a.config.Actor)
	if actor == "" {
		return &errors.ValidationError{Field: "actor", Message: "is required, pass --actor or set ACTOR"}
	}

	rows, err := rowsource.Open(path, flags.sheet)
	if err != nil {
		return err
	}

	normalizer, err := normalize.New(
		normalize.WithTimezone(valueOr(flags.timezone, a.config.Timezone)),
		normalize.WithDefaultSource(a.config.DefaultSource),
	)
	if err != nil {
		return err
	}

	st, err := a.Store()
	if err != nil {
		return err
	}

	r, err := reconciler.New(
		reconciler.WithStore(st),
		reconciler.WithNormalizer(normalizer),
		reconciler.WithPolicy(conflict.Policy{AutoApplyCosmeticNames: a.config.AutoApplyCosmeticNames}),
		reconciler.WithAuditSink(audit.NewLogSink(a.logger)),
		reconciler.WithDryRun(flags.dryRun),
		reconciler.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	result, runErr := r.Reconcile(cmd.Context(), actor, rows)
	if result == nil {
		return runErr
	}

	if flags.ledger != "" {
		if err := os.WriteFile(flags.ledger, result.LedgerJSON(), constants.FilePermissions); err != nil {
			return errors.WrapIO("write", flags.ledger, err)
		}
	}

	format := output.DetectFormat(a.config.Format)
	var data any = result
	if format == output.FormatTable {
		data = output.ResultTables(result)
	}
	if err := output.NewFormatter(format).Format(cmd.OutOrStdout(), data); err != nil {
		return err
	}

	for _, rowErr := range result.Errors {
		a.logger.Warn().Err(rowErr).Msg("Row skipped")
	}
	if errors.IsCanceled(runErr) {
		a.logger.Warn().
			Int("processed", result.Summary.TotalRows).
			Msg("Import interrupted; rows processed before the interrupt were kept")
	}
	return runErr
}

// NewClassifyNameCommand creates the classify-name command.
func (a *App) NewClassifyNameCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "classify-name <existing> <incoming>",
		GroupID: "core",
		Short:   "Explain how two guest names differ",
		Example: `  bookingsync classify-name "Kathrin Müller" "Kathrin Muller"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			analysis := guestname.Classify(args[0], args[1])

			format := output.DetectFormat(a.config.Format)
			var data any = analysis
			if format == output.FormatTable {
				data = output.AnalysisTable(args[0], args[1], analysis)
			}
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), data)
		},
	}
}

// NewMigrateCommand creates the migrate command.
func (a *App) NewMigrateCommand() *cobra.Command {
	var properties []string
	cmd := &cobra.Command{
		Use:     "migrate",
		GroupID: "management",
		Short:   "Create or update the database schema",
		Example: `  bookingsync migrate --property "Lakeside Cabin" --property "Harbor Loft"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := a.Store()
			if err != nil {
				return err
			}
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			cmd.Println("Schema is up to date")

			for _, name := range properties {
				if existing, err := st.ResolveProperty(ctx, name); err == nil {
					cmd.Printf("Property %q already exists (id %d)\n", existing.Name, existing.ID)
					continue
				} else if !errors.IsNotFound(err) {
					return err
				}
				p, err := st.CreateProperty(ctx, name)
				if err != nil {
					return err
				}
				cmd.Printf("Created property %q (id %d)\n", p.Name, p.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&properties, "property", nil, "property to register (repeatable)")
	return cmd
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", constants.AppName, a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
				cmd.Printf("  go:       %s\n", runtime.Version())
				cmd.Printf("  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			}
		},
	}
}
