package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	otelapi "go.opentelemetry.io/otel"

	"github.com/cellforge/gridlate"
	gridlateotel "github.com/cellforge/gridlate/otel"
	"github.com/cellforge/gridlate/store"
)

// NewConvertCmd creates the "convert" subcommand.
func NewConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Translate a workbook's formulas to a JavaScript calculation function",
		Args:  cobra.ExactArgs(1),
		RunE:  runConvert,
	}

	cmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringP("config", "c", "", "Config file path (default: discover gridlate.yaml upward from input)")
	cmd.Flags().String("store-path", "", "SQLite database to record the run in")
	cmd.Flags().Bool("strict", false, "Fail when any formula cannot be translated")
	cmd.Flags().Bool("trace", false, "Record the run as OpenTelemetry spans on the global tracer provider")

	return cmd
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	stderr := cmd.ErrOrStderr()

	configPath, _ := cmd.Flags().GetString("config")
	outputPath, _ := cmd.Flags().GetString("output")
	storePath, _ := cmd.Flags().GetString("store-path")
	strict, _ := cmd.Flags().GetBool("strict")
	traced, _ := cmd.Flags().GetBool("trace")

	cfg, err := loadConfigFlag(configPath, inputPath)
	if err != nil {
		return err
	}

	opts := []gridlate.Option{
		gridlate.WithLogger(slog.New(slog.NewTextHandler(stderr, nil))),
	}
	if traced {
		handler := gridlateotel.NewTracingHandler(otelapi.GetTracerProvider().Tracer("gridlate"))
		opts = append(opts, gridlate.WithEventHandler(handler))
	}

	result, err := loadWorkbook(cmd.Context(), inputPath, cfg, opts...)
	if err != nil {
		return err
	}

	for _, cyc := range result.Cycles {
		fmt.Fprintf(stderr, "cycle: %s\n", cyc.Error())
	}
	if len(result.Cycles) > 0 {
		return exitError(exitCycle, "workbook has %d circular reference(s)", len(result.Cycles))
	}

	untranslated := len(result.Failures)
	for _, entry := range result.Entries {
		if entry.Err == nil && !entry.Emission.Translatable {
			untranslated++
		}
	}
	for _, failure := range result.Failures {
		fmt.Fprintf(stderr, "failed: %s: %s\n", failure.Cell, failure.Err)
	}
	if strict && untranslated > 0 {
		return exitError(exitTranslation, "%d formula(s) could not be translated", untranslated)
	}

	if storePath != "" {
		st, err := store.Open(storePath)
		if err != nil {
			return exitError(exitTranslation, "%s", err)
		}
		defer func() { _ = st.Close() }()
		if err := st.SaveRun(cmd.Context(), result); err != nil {
			return exitError(exitTranslation, "%s", err)
		}
		fmt.Fprintf(stderr, "run %s saved to %s\n", result.RunID, storePath)
	}

	return writeOutput(cmd.OutOrStdout(), outputPath, result.CalculationScript())
}
