package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/openshelf/stock-sentinel/pkg/engine"
	"github.com/openshelf/stock-sentinel/pkg/model"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate alerts from an inventory snapshot",
	Long: `Read inventory records from a JSON file, run the alert pipeline, merge
stored lifecycle state, persist the result, and print the ranked alerts.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringP("input", "i", "", "JSON file with an array of inventory records")
	generateCmd.Flags().StringP("tenant", "t", "", "Tenant for enhancement cost attribution (default from config)")
	generateCmd.Flags().Bool("json", false, "Print the alert list as JSON")
	_ = generateCmd.MarkFlagRequired("input")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	input, _ := cmd.Flags().GetString("input")
	tenant, _ := cmd.Flags().GetString("tenant")
	asJSON, _ := cmd.Flags().GetBool("json")

	if tenant == "" {
		tenant = cfg.Defaults.Tenant
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read input file: %w", err)
	}
	var records []model.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parse input file: %w", err)
	}

	logger := newLogger(cfg)

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	eng, rs, err := initEngine(cfg, store, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	// A feed outage only costs the competitor-threat pass.
	var competitors []model.CompetitorPrice
	source, err := initFeed(cfg)
	if err != nil {
		return err
	}
	if source != nil {
		signals, _ := engine.ExtractSignals(records, rs, logger)
		prices, err := source.Fetch(ctx, signals)
		if err != nil {
			logger.Warn("competitor feed unavailable, skipping threat pass",
				"source", source.Name(), "error", err)
		} else {
			competitors = prices
		}
	}

	// Prior lifecycle state; a read failure degrades to an empty prior so
	// generation still succeeds.
	prior, err := store.ListStates(ctx)
	if err != nil {
		logger.Warn("load lifecycle state failed, starting unflagged", "error", err)
		prior = nil
	}

	result := eng.Generate(ctx, engine.Request{
		Records:     records,
		Competitors: competitors,
		Prior:       prior,
		Tenant:      tenant,
	})

	if err := store.ReplaceAlerts(ctx, result.Alerts); err != nil {
		logger.Error("persist alert snapshot failed", "error", err)
	}
	if err := store.RecordRun(ctx, result.Run); err != nil {
		logger.Error("persist generation run failed", "error", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Alerts)
	}

	printAlertTable(result.Alerts)
	fmt.Printf("\n%d signals, %d skipped, %d alerts, %d enhanced (%dms)\n",
		result.Run.Signals, result.Run.Skipped, result.Run.Alerts,
		result.Run.Enhanced, result.Run.DurationMS)
	return nil
}

func printAlertTable(alerts []model.Alert) {
	if len(alerts) == 0 {
		fmt.Println("No alerts.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SEVERITY\tTYPE\tPRODUCT\tAT RISK\tURGENCY\tACTION\tFLAGS\n")
	for _, a := range alerts {
		fmt.Fprintf(w, "%s\t%s\t%s\t$%.0f\t%d/10\t%s\t%s\n",
			a.Severity, a.Type, a.Product.ProductKey,
			a.RevenueAtRisk, a.UrgencyScore,
			a.PrimaryAction.Title, lifecycleFlags(a),
		)
	}
	w.Flush()
}

func lifecycleFlags(a model.Alert) string {
	switch {
	case a.Resolved:
		return "resolved"
	case a.Snoozed:
		return "snoozed"
	case a.Acknowledged:
		return "ack"
	default:
		return "-"
	}
}
