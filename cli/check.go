package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cellforge/gridlate"
)

// NewCheckCmd creates the "check" subcommand.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a workbook: parse errors, cycles, and complexity flags",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}

	cmd.Flags().StringP("config", "c", "", "Config file path (default: discover gridlate.yaml upward from input)")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfigFlag(configPath, inputPath)
	if err != nil {
		return err
	}

	result, err := loadWorkbook(cmd.Context(), inputPath, cfg,
		gridlate.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		return err
	}

	for _, failure := range result.Failures {
		fmt.Fprintf(stdout, "error\t%s\t%s\n", failure.Cell, failure.Err)
	}
	for _, cyc := range result.Cycles {
		fmt.Fprintf(stdout, "cycle\t%s\n", cyc.Error())
	}
	for _, entry := range result.Entries {
		if entry.Err != nil {
			continue
		}
		if !entry.Emission.Translatable {
			fmt.Fprintf(stdout, "unsupported\t%s\t%s\n",
				entry.Coord.String(), strings.Join(entry.Emission.Untranslatable, "; "))
		}
		if entry.Complexity.Complex {
			fmt.Fprintf(stdout, "complex\t%s\tscore=%d\t%s\n",
				entry.Coord.String(), entry.Complexity.Score, strings.Join(entry.Complexity.Reasons, "; "))
		}
		if entry.Truncated {
			fmt.Fprintf(stdout, "truncated\t%s\trange over %d cells\n",
				entry.Coord.String(), cfg.MaxRangeCells)
		}
	}

	translated := 0
	for _, entry := range result.Entries {
		if entry.Err == nil && entry.Emission.Translatable {
			translated++
		}
	}
	fmt.Fprintf(stderr, "%d/%d formulas translated\n", translated, len(result.Entries))

	if len(result.Cycles) > 0 {
		return exitError(exitCycle, "workbook has %d circular reference(s)", len(result.Cycles))
	}
	if len(result.Failures) > 0 {
		return exitError(exitTranslation, "%d formula(s) failed", len(result.Failures))
	}
	return nil
}
