package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"nozze/internal/core"
)

func newBudgetCmd(a *app) *cobra.Command {
	budgetCmd := &cobra.Command{
		Use:   "budget",
		Short: "Record payments and print budget summaries",
	}
	budgetCmd.AddCommand(newBudgetPayCmd(a))
	budgetCmd.AddCommand(newBudgetSummaryCmd(a))
	return budgetCmd
}

func newBudgetPayCmd(a *app) *cobra.Command {
	var (
		itemID int64
		amount string
		method string
		note   string
	)
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Record a payment against a budget item",
		Long: `Record one installment against a budget item. The amount accepts
"1500", "1500.50" or "1500,50". The item's payment status is recomputed from
the new paid total.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cents, err := core.ParseDecimalToCents(amount)
			if err != nil {
				return fmt.Errorf("amount %q: %w", amount, err)
			}
			item, err := a.budget.RecordPayment(cmd.Context(), itemID, core.Money{Cents: cents}, method, note)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: paid %s, remaining %s, status %s\n",
				item.Category, item.PaidAmount, item.Remaining(), item.Status)
			return nil
		},
	}
	cmd.Flags().Int64Var(&itemID, "item", 0, "Budget item id")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount in euros")
	cmd.Flags().StringVar(&method, "method", "", "Payment method (bank transfer, cash, ...)")
	cmd.Flags().StringVar(&note, "note", "", "Free text note")
	_ = cmd.MarkFlagRequired("item")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newBudgetSummaryCmd(a *app) *cobra.Command {
	var weddingID int64
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print budget totals by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.budget.Summary(cmd.Context(), weddingID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "budget %s, committed %s, paid %s, outstanding %s\n",
				s.TotalBudget, s.Committed, s.Paid, s.Outstanding)
			fmt.Fprintf(out, "%d items: %d paid, %d partial, %d pending\n",
				s.ItemCount, s.PaidCount, s.PartialCount, s.PendingCount)

			if len(s.ByCategory) == 0 {
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tESTIMATED\tACTUAL\tPAID")
			for _, c := range s.ByCategory {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, c.Estimated, c.Actual, c.Paid)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int64Var(&weddingID, "wedding", 0, "Wedding id")
	_ = cmd.MarkFlagRequired("wedding")
	return cmd
}
