package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/docket/internal/statute"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate <up|down|version|force:N>",
	Short: "Apply statute schema migrations",
	Long: `Migrate manages the PostgreSQL schema that stores statute provisions
and the match_statutes similarity function. Requires the pgvector extension.

Example:
  docket migrate up
  docket migrate version
  docket migrate force:1`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"up", "down", "version"},
	RunE:      runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	bindFlag(migrateCmd, "database-url", "statutes.database_url")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if cfg.Statutes.DatabaseURL == "" {
		return fmt.Errorf("statutes.database_url is required (set DOCKET_STATUTES_DATABASE_URL or --database-url)")
	}

	status, err := statute.Migrate(cfg.Statutes.DatabaseURL, args[0])
	if err != nil {
		return err
	}

	switch {
	case status.Dirty:
		fmt.Fprintf(os.Stderr, "✗ Schema version %d is dirty; fix it and run 'docket migrate force:%d'\n", status.Version, status.Version)
	case status.Changed:
		fmt.Fprintf(os.Stderr, "✓ Migrated to version %d\n", status.Version)
	default:
		fmt.Fprintf(os.Stderr, "✓ Schema at version %d (no change)\n", status.Version)
	}
	return nil
}
