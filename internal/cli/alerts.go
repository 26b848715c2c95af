package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openshelf/stock-sentinel/pkg/model"
	"github.com/openshelf/stock-sentinel/pkg/storage"
)

// DefaultSnoozeWindow is how long a snoozed alert stays suppressed when no
// explicit duration is given.
const DefaultSnoozeWindow = 24 * time.Hour

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List stored alerts and manage their lifecycle",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the latest generated alerts",
	RunE:  runAlertsList,
}

var alertsAckCmd = &cobra.Command{
	Use:   "ack <alert-key>",
	Short: "Acknowledge an alert",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsAck,
}

var alertsResolveCmd = &cobra.Command{
	Use:   "resolve <alert-key>",
	Short: "Mark an alert resolved",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsResolve,
}

var alertsSnoozeCmd = &cobra.Command{
	Use:   "snooze <alert-key>",
	Short: "Snooze an alert",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsSnooze,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsAckCmd)
	alertsCmd.AddCommand(alertsResolveCmd)
	alertsCmd.AddCommand(alertsSnoozeCmd)

	alertsListCmd.Flags().Bool("all", false, "Include resolved and snoozed alerts")
	alertsListCmd.Flags().String("severity", "", "Filter by severity (critical, high, medium, low)")
	alertsSnoozeCmd.Flags().Duration("for", DefaultSnoozeWindow, "Snooze duration")
}

func runAlertsList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	all, _ := cmd.Flags().GetBool("all")
	severity, _ := cmd.Flags().GetString("severity")

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()

	alerts, err := store.ListAlerts(ctx)
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}

	states, err := store.ListStates(ctx)
	if err != nil {
		return fmt.Errorf("list alert states: %w", err)
	}

	now := time.Now().UTC()
	filtered := alerts[:0]
	for _, a := range alerts {
		if severity != "" && string(a.Severity) != severity {
			continue
		}
		if !all {
			if a.Resolved {
				continue
			}
			if st, ok := states[a.Key]; ok && activelySnoozed(st, now) {
				continue
			}
		}
		filtered = append(filtered, a)
	}

	if len(filtered) == 0 {
		fmt.Println("No alerts. Run 'sentinel generate' first.")
		return nil
	}

	printAlertTable(filtered)
	return nil
}

// activelySnoozed reports whether a snooze is still in effect. A snooze
// without an expiry never lapses on its own.
func activelySnoozed(st model.AlertState, now time.Time) bool {
	if !st.Snoozed {
		return false
	}
	return st.SnoozedUntil.IsZero() || now.Before(st.SnoozedUntil)
}

func runAlertsAck(cmd *cobra.Command, args []string) error {
	return updateState(cmd, args[0], func(st *model.AlertState) {
		st.Acknowledged = true
	}, "acknowledged")
}

func runAlertsResolve(cmd *cobra.Command, args []string) error {
	return updateState(cmd, args[0], func(st *model.AlertState) {
		st.Resolved = true
	}, "resolved")
}

func runAlertsSnooze(cmd *cobra.Command, args []string) error {
	window, _ := cmd.Flags().GetDuration("for")
	until := time.Now().UTC().Add(window)
	return updateState(cmd, args[0], func(st *model.AlertState) {
		st.Snoozed = true
		st.SnoozedUntil = until
	}, fmt.Sprintf("snoozed until %s", until.Format(time.RFC3339)))
}

// updateState applies one lifecycle mutation on top of the stored state for
// the alert identity, creating the state row on first action.
func updateState(cmd *cobra.Command, key string, apply func(*model.AlertState), verb string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()

	st, err := store.GetState(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		st = &model.AlertState{Key: key}
	} else if err != nil {
		return fmt.Errorf("load alert state: %w", err)
	}

	apply(st)
	st.UpdatedAt = time.Now().UTC()

	if err := store.SetState(ctx, *st); err != nil {
		return fmt.Errorf("save alert state: %w", err)
	}

	fmt.Printf("Alert %s %s\n", key, verb)
	return nil
}
