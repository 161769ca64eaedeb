package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/artpar/bizadmin/core/dashboard"
	"github.com/artpar/bizadmin/core/form"
)

var (
	dashboardReport bool
	dashboardStart  string
	dashboardEnd    string
	dashboardOutput string
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Short:   "Print dashboard statistics or the sales report",
	GroupID: "admin",
	Long: `Print the dashboard cards, top-selling items and recent transactions.

With --report the sales report for a date range is printed instead. The
range defaults to the last 30 days.

Examples:
  bizadmin dashboard
  bizadmin dashboard --report --start 2024-01-01 --end 2024-01-31
  bizadmin dashboard -O json`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)

	dashboardCmd.Flags().BoolVar(&dashboardReport, "report", false, "print the sales report")
	dashboardCmd.Flags().StringVar(&dashboardStart, "start", "", "report start date (YYYY-MM-DD)")
	dashboardCmd.Flags().StringVar(&dashboardEnd, "end", "", "report end date (YYYY-MM-DD)")
	dashboardCmd.Flags().StringVarP(&dashboardOutput, "output", "O", "table", "Output format: table, json")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	app, err := commandApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if !dashboardReport {
		stats, err := app.Dashboard.Load(ctx)
		if err != nil {
			return fmt.Errorf("load dashboard: %w", err)
		}
		if dashboardOutput == "json" {
			return writeJSON(out, map[string]any{
				"cards":        stats.Cards(),
				"topItems":     stats.TopSellingItems,
				"transactions": stats.Transactions(),
			})
		}
		printCards(out, stats.Cards())
		printBars(out, "Top Selling Items", stats.TopItems())

		fmt.Fprintln(out, "\nRecent Transactions")
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "INVOICE\tAMOUNT\tDATE")
		for _, tx := range stats.Transactions() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", tx.Invoice, tx.Amount, tx.Date)
		}
		return tw.Flush()
	}

	start, end, err := reportRange(time.Now(), dashboardStart, dashboardEnd)
	if err != nil {
		return err
	}
	report, err := app.Dashboard.SalesReport(ctx, start, end)
	if err != nil {
		return err
	}
	if dashboardOutput == "json" {
		return writeJSON(out, map[string]any{
			"start":       start.Format(form.DateLayout),
			"end":         end.Format(form.DateLayout),
			"cards":       report.Cards(),
			"salesByDay":  report.SalesByDay,
			"topProducts": report.TopProducts,
		})
	}
	fmt.Fprintf(out, "Sales report %s to %s\n\n", start.Format(form.DateLayout), end.Format(form.DateLayout))
	printCards(out, report.Cards())
	printBars(out, "Sales by Day", report.DailySales())
	printBars(out, "Top Products", report.Products())
	return nil
}

// reportRange parses the optional start and end dates, defaulting to the
// last 30 days.
func reportRange(now time.Time, startText, endText string) (time.Time, time.Time, error) {
	start, end := dashboard.DefaultRange(now)
	var err error
	if startText != "" {
		if start, err = time.ParseInLocation(form.DateLayout, startText, now.Location()); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start date must be YYYY-MM-DD")
		}
	}
	if endText != "" {
		if end, err = time.ParseInLocation(form.DateLayout, endText, now.Location()); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end date must be YYYY-MM-DD")
		}
	}
	return start, end, nil
}

func printCards(w io.Writer, cards []dashboard.Card) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range cards {
		fmt.Fprintf(tw, "%s:\t%s\n", c.Title, c.Value)
	}
	tw.Flush()
}

const barWidth = 30

func printBars(w io.Writer, title string, bars []dashboard.Bar) {
	fmt.Fprintf(w, "\n%s\n", title)
	if len(bars) == 0 {
		fmt.Fprintln(w, "  No data.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, b := range bars {
		n := int(b.Percent / 100 * barWidth)
		if b.Percent > 0 && n == 0 {
			n = 1
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", b.Label, strings.Repeat("█", n), b.Display)
	}
	tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
