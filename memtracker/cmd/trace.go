package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sarchlab/memtracker/datarecording"
	"github.com/sarchlab/memtracker/ledger"
	"github.com/sarchlab/memtracker/tracing"
	"github.com/sarchlab/memtracker/visual"
)

func newTraceCommand() *cobra.Command {
	traceCmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect traces recorded with `run --record`.",
	}

	showCmd := &cobra.Command{
		Use:   "show <db>",
		Short: "Print the operations and summaries stored in a trace file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var scenario *uint64

			if cmd.Flags().Changed("scenario") {
				s, _ := cmd.Flags().GetUint64("scenario")
				scenario = &s
			}

			return showTrace(cmd.Context(), cmd.OutOrStdout(), args[0], scenario)
		},
	}
	showCmd.Flags().Uint64("scenario", 0, "Only show the given scenario.")

	traceCmd.AddCommand(showCmd)

	return traceCmd
}

func showTrace(
	ctx context.Context,
	out io.Writer,
	dbFile string,
	scenario *uint64,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(dbFile); err != nil {
		return fmt.Errorf("trace file: %w", err)
	}

	reader := datarecording.NewReader(dbFile)
	defer reader.Close()

	reader.MapTable(tracing.OperationTable, tracing.OperationEntry{})
	reader.MapTable(tracing.ScenarioTable, tracing.ScenarioEntry{})

	params := datarecording.QueryParams{OrderBy: "Scenario, Seq"}
	if scenario != nil {
		params.Where = "Scenario = ?"
		params.Args = []any{*scenario}
	}

	ops, _, err := reader.Query(ctx, tracing.OperationTable, params)
	if err != nil {
		return fmt.Errorf("read operations: %w", err)
	}

	params.OrderBy = "Scenario"

	summaries, _, err := reader.Query(ctx, tracing.ScenarioTable, params)
	if err != nil {
		return fmt.Errorf("read summaries: %w", err)
	}

	byScenario := make(map[uint64]*tracing.ScenarioEntry, len(summaries))
	for _, s := range summaries {
		entry := s.(*tracing.ScenarioEntry)
		byScenario[entry.Scenario] = entry
	}

	renderer := visual.NewRenderer()
	header := color.New(color.FgYellow)

	printed := false
	var current uint64

	for _, o := range ops {
		entry := o.(*tracing.OperationEntry)

		if !printed || entry.Scenario != current {
			if printed {
				printScenarioSummary(out, renderer, byScenario[current])
			}

			header.Fprintf(out, "=== scenario %d ===\n", entry.Scenario)
			current = entry.Scenario
			printed = true
		}

		rec, err := entry.ToRecord()
		if err != nil {
			return fmt.Errorf("scenario %d, record %d: %w",
				entry.Scenario, entry.Seq, err)
		}

		fmt.Fprintln(out, renderer.RenderOperation(rec))
	}

	if printed {
		printScenarioSummary(out, renderer, byScenario[current])
	}

	return nil
}

func printScenarioSummary(
	out io.Writer,
	renderer visual.Renderer,
	entry *tracing.ScenarioEntry,
) {
	if entry == nil {
		return
	}

	fmt.Fprint(out, renderer.RenderSummary(ledger.Summary{
		OperationCount:        entry.OperationCount,
		TotalAllocated:        entry.TotalAllocated,
		TotalDeallocated:      entry.TotalDeallocated,
		PeakConcurrent:        entry.PeakConcurrent,
		CurrentConcurrent:     entry.CurrentConcurrent,
		ActiveAllocationCount: entry.ActiveAllocationCount,
		ActiveBorrowCount:     entry.ActiveBorrowCount,
	}))
	fmt.Fprintln(out)
}
