package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/docket/internal/statute"
	"github.com/spf13/cobra"
)

// statutesCmd represents the statutes command
var statutesCmd = &cobra.Command{
	Use:   "statutes",
	Short: "Manage the statute corpus",
}

var importTimeout time.Duration

var statutesImportCmd = &cobra.Command{
	Use:   "import <seed.yaml>",
	Short: "Embed and store statute provisions",
	Long: `Import reads provisions from a YAML corpus, embeds them with the
configured embedding engine, and upserts them into PostgreSQL. Provisions
are keyed by source_key (or category and article number), so re-importing
a corpus updates it in place.

Seed format:
  provisions:
    - article_number: "Article 22"
      category: labor
      title: Overtime pay
      content: Employers shall pay overtime at 150% ...

Example:
  docket statutes import corpus/labor.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runStatutesImport,
}

func init() {
	rootCmd.AddCommand(statutesCmd)
	statutesCmd.AddCommand(statutesImportCmd)

	statutesImportCmd.Flags().DurationVar(&importTimeout, "timeout", 30*time.Minute, "total timeout for the import")
	statutesImportCmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	bindFlag(statutesImportCmd, "database-url", "statutes.database_url")
}

func runStatutesImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
	defer cancel()

	provisions, err := statute.LoadSeedFile(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d provisions from %s\n", len(provisions), args[0])

	// Provisions are embedded once; caching them only fills memory
	c := *cfg
	c.Cache.Enabled = false
	engine, err := buildEmbedder(ctx, &c, nil, logger)
	if err != nil {
		return err
	}

	db, err := statute.Open(ctx, cfg.Statutes.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	fmt.Fprintf(os.Stderr, "⚙️  Embedding with %s...\n", engine.Name())
	n, err := statute.Import(ctx, statute.NewPostgresRepository(db), engine, provisions)
	if err != nil {
		return fmt.Errorf("import stopped after %d provisions: %w", n, err)
	}

	fmt.Fprintf(os.Stderr, "✓ Imported %d provisions\n", n)
	return nil
}
