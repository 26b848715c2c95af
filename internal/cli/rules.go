package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the effective ruleset",
	Long: `Print the classification thresholds and financial constants the engine
will apply: the configured ruleset file layered over the shipped defaults.`,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().Bool("yaml", false, "Print as YAML, suitable as a ruleset file starting point")
}

func runRules(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rs, err := loadRuleset(cfg)
	if err != nil {
		return err
	}

	asYAML, _ := cmd.Flags().GetBool("yaml")
	if asYAML {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(rs)
	}

	source := "built-in defaults"
	if cfg.Rules.Path != "" {
		source = cfg.Rules.Path
	}
	fmt.Printf("Ruleset: %s\n\n", source)

	t := rs.Thresholds
	f := rs.Financials
	c := rs.Confidence

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RULE\tCONDITION\tSEVERITY\tCONFIDENCE\n")
	fmt.Fprintf(w, "critical_stockout\twos < %.1f && weekly > %.1f\tcritical <= %dd, high <= %dd, else medium\t%.2f\n",
		t.StockoutMaxWeeks, t.StockoutMinWeeklySale, f.StockoutCriticalDays, f.StockoutHighDays, c.Stockout)
	fmt.Fprintf(w, "overstock_cash_drain\twos > %.0f && stock > %.0f && price > %.0f\thigh > %.0fw, else medium\t%.2f\n",
		t.OverstockMinWeeks, t.OverstockMinStock, t.OverstockMinPrice, f.OverstockHighWeeks, c.Overstock)
	fmt.Fprintf(w, "dead_stock\twos > %.0f && weekly < %.1f && stock > %.0f\thigh\t%.2f\n",
		t.DeadStockMinWeeks, t.DeadStockMaxWeeklySale, t.DeadStockMinStock, c.DeadStock)
	fmt.Fprintf(w, "price_opportunity\tweekly > %.0f && price > %.0f && %.0f < wos < %.0f\tmedium\t%.2f\n",
		t.PriceOppMinWeeklySales, t.PriceOppMinPrice, t.PriceOppMinWeeks, t.PriceOppMaxWeeks, c.PriceOpportunity)
	fmt.Fprintf(w, "competitor_threat\tprice > avg * %.0f%% margin && price > %.0f\thigh >= 2x margin, else medium\t%.2f\n",
		t.CompetitorMarginPct, t.CompetitorMinPrice, c.CompetitorThreat)
	w.Flush()

	fmt.Printf("\nSentinel weeks of stock: %.0f (weekly sales <= %.2f)\n", rs.WeeksOfStockSentinel, rs.SalesFloor)
	fmt.Printf("Reorder: %.0f weeks cover at %.0f%% of retail, %d day lead\n",
		f.ReorderWeeks, f.ReorderCostRatio*100, f.StockoutLeadDays)
	fmt.Printf("Overstock: %.0f weeks target cover, %.0f%% cash basis, %.1f%%/month holding, %.0f%% markdown\n",
		f.TargetCoverWeeks, f.CashCostBasis*100, f.MonthlyHoldingRate*100, f.OverstockDiscountPct)
	fmt.Printf("Dead stock: %.0f%% markdown, %.0f%% recovery ceiling, %d day window\n",
		f.DeadStockMarkdownPct, f.DeadStockRecoveryRatio*100, f.DeadStockWindowDays)
	fmt.Printf("Price test: +%.0f%% price, -%.0f%% assumed volume, %d day window, rollback at -%.0f%%\n",
		f.PriceIncreasePct, f.ElasticityDropPct, f.PriceTestWindowDays, f.RollbackDropPct)

	return nil
}
