package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"nozze/internal/core"
	"nozze/internal/services"
)

func newSeatingCmd(a *app) *cobra.Command {
	seatingCmd := &cobra.Command{
		Use:   "seating",
		Short: "Plan or run automatic seat assignment",
	}
	seatingCmd.AddCommand(newSeatingAssignCmd(a))
	seatingCmd.AddCommand(newSeatingClearCmd(a))
	return seatingCmd
}

func newSeatingAssignCmd(a *app) *cobra.Command {
	var (
		weddingID int64
		strategy  string
		seed      int64
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Seat confirmed guests who have no table yet",
		Long: `Seat every confirmed guest without a table, filling tables in display
order. Guests already seated stay where they are.

Strategies:
  by_group - keep groups together, groups alphabetical, no group last
  by_side  - by side name (both, bride, groom), no side last
  random   - shuffled; pass --seed for a repeatable order`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var seedPtr *int64
			if cmd.Flags().Changed("seed") {
				seedPtr = &seed
			}

			ctx := cmd.Context()
			var (
				res services.Assignment
				err error
			)
			if dryRun {
				res, err = a.seating.PlanAssignment(ctx, weddingID, strategy, seedPtr)
			} else {
				res, err = a.seating.AutoAssign(ctx, weddingID, strategy, seedPtr)
			}
			if err != nil {
				return err
			}

			tables, err := a.repo.ListTables(ctx, weddingID)
			if err != nil {
				return err
			}
			return printAssignment(cmd, tables, res, dryRun)
		},
	}
	cmd.Flags().Int64Var(&weddingID, "wedding", 0, "Wedding id")
	cmd.Flags().StringVar(&strategy, "strategy", services.StrategyByGroup,
		"Assignment strategy: "+strings.Join(services.Strategies(), ", "))
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for the random strategy")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the plan without saving it")
	_ = cmd.MarkFlagRequired("wedding")
	return cmd
}

func printAssignment(cmd *cobra.Command, tables []core.Table, res services.Assignment, dryRun bool) error {
	out := cmd.OutOrStdout()
	perTable := make(map[int64]int, len(tables))
	for _, sa := range res.Assignments {
		perTable[sa.TableID]++
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tNEW\tSEATED\tCAPACITY")
	for _, t := range tables {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", t.Name, perTable[t.ID], res.Occupancy[t.ID], t.Capacity)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	verb := "assigned"
	if dryRun {
		verb = "would be assigned"
	}
	fmt.Fprintf(out, "%d guests %s, %d without a seat\n", len(res.Assignments), verb, res.Unassigned)
	return nil
}

func newSeatingClearCmd(a *app) *cobra.Command {
	var weddingID int64
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every guest from their table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.seating.ClearAssignments(cmd.Context(), weddingID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d guests unseated\n", n)
			return nil
		},
	}
	cmd.Flags().Int64Var(&weddingID, "wedding", 0, "Wedding id")
	_ = cmd.MarkFlagRequired("wedding")
	return cmd
}
