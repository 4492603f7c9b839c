package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/docket/internal/casefile"
	"github.com/ppiankov/docket/internal/model"
	"github.com/ppiankov/docket/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	outputFile string
	jsonOnly   bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <case-file>",
	Short: "Analyze a single case file",
	Long: `Analyze runs the complete pipeline on one case file (JSON or YAML):

  1. Extract the claims asserted in the complaint
  2. Retrieve the statutory provisions for each claim
  3. Compare the evidence against what each claim requires
  4. Score the risk and recommend fight, settle, or gather more information

Example:
  docket analyze case.yaml
  docket analyze case.json --output result.json
  docket analyze case.yaml --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write the JSON result to this file")
	analyzeCmd.Flags().BoolVar(&jsonOnly, "json", false, "print the JSON result to stdout instead of a summary")
	analyzeCmd.Flags().Duration("timeout", 0, "per-analysis timeout (default 2m)")
	bindFlag(analyzeCmd, "timeout", "pipeline.request_timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx := context.Background()

	req, err := casefile.Load(path)
	if err != nil {
		return err
	}

	var opts []pipeline.Option
	if verbose {
		opts = append(opts, pipeline.WithPhaseObserver(func(p model.Phase) {
			fmt.Fprintf(os.Stderr, "⚙️  %s...\n", phaseLabel(p))
		}))
	}

	a, err := buildApp(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close resources", zap.Error(err))
		}
	}()

	result, err := a.pipeline.Analyze(ctx, req)
	if err != nil {
		logger.Error("analysis failed", zap.String("case", path), zap.Error(err))
		return fmt.Errorf("%s", pipeline.UserMessage(err))
	}

	if outputFile != "" {
		if err := pipeline.WriteJSON(result, outputFile); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Result written to %s\n", outputFile)
	}

	if jsonOnly {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	pipeline.RenderSummary(os.Stdout, result)
	return nil
}

func phaseLabel(p model.Phase) string {
	switch p {
	case model.PhaseAnalyzing:
		return "Extracting claims and retrieving statutes"
	case model.PhaseGapAnalysis:
		return "Analyzing evidence gaps"
	case model.PhaseVerdict:
		return "Rendering verdict"
	default:
		return strings.ReplaceAll(p.String(), "_", " ")
	}
}
