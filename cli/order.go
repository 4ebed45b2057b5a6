package cli

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cellforge/gridlate"
)

// NewOrderCmd creates the "order" subcommand.
func NewOrderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order <file>",
		Short: "Print the workbook's evaluation order, one cell per line",
		Args:  cobra.ExactArgs(1),
		RunE:  runOrder,
	}

	cmd.Flags().StringP("config", "c", "", "Config file path (default: discover gridlate.yaml upward from input)")
	cmd.Flags().Bool("inputs", false, "Also list input cells (referenced, no formula)")

	return cmd
}

func runOrder(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	stderr := cmd.ErrOrStderr()

	configPath, _ := cmd.Flags().GetString("config")
	showInputs, _ := cmd.Flags().GetBool("inputs")

	cfg, err := loadConfigFlag(configPath, inputPath)
	if err != nil {
		return err
	}

	result, err := loadWorkbook(cmd.Context(), inputPath, cfg,
		gridlate.WithLogger(slog.New(slog.NewTextHandler(stderr, nil))))
	if err != nil {
		return err
	}

	for _, cyc := range result.Cycles {
		fmt.Fprintf(stderr, "cycle: %s\n", cyc.Error())
	}
	if len(result.Cycles) > 0 {
		return exitError(exitCycle, "workbook has %d circular reference(s)", len(result.Cycles))
	}

	var b strings.Builder
	if showInputs {
		for _, coord := range result.Graph.InputCells() {
			fmt.Fprintf(&b, "input\t%s\n", coord.String())
		}
	}
	for _, coord := range result.Order {
		if !result.Graph.Contains(coord) {
			continue
		}
		fmt.Fprintln(&b, coord.String())
	}

	return writeOutput(cmd.OutOrStdout(), "", b.String())
}
