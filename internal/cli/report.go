package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show recent generation runs and enhancement spend",
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
	reportCmd.Flags().Int("days", 30, "Spend window in days")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	days, _ := cmd.Flags().GetInt("days")

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No generation runs recorded. Run 'sentinel generate' first.")
		return nil
	}

	fmt.Printf("Recent generation runs:\n")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "WHEN\tTENANT\tSIGNALS\tSKIPPED\tALERTS\tENHANCED\tDURATION\n")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%dms\n",
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Tenant, r.Signals, r.Skipped, r.Alerts, r.Enhanced, r.DurationMS,
		)
	}
	w.Flush()

	since := time.Now().UTC().AddDate(0, 0, -days)
	spend, err := store.SpendByTenant(ctx, since)
	if err != nil {
		return fmt.Errorf("aggregate enhancement spend: %w", err)
	}

	if len(spend) > 0 {
		fmt.Printf("\nEnhancement spend (last %d days):\n", days)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "TENANT\tCOST\n")
		for tenant, cost := range spend {
			fmt.Fprintf(w, "%s\t$%.4f\n", tenant, cost)
		}
		w.Flush()
	}

	return nil
}
