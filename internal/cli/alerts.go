package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show stored alerts, newest first",
	RunE:  runAlerts,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.Flags().IntP("limit", "n", 10, "Maximum alerts to show")
	alertsCmd.Flags().Int("offset", 0, "Alerts to skip")
}

func runAlerts(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	store, err := initStorage(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	alerts, err := store.ListAlerts(cmd.Context(), limit, offset)
	if err != nil {
		return fmt.Errorf("query alerts: %w", err)
	}

	if len(alerts) == 0 {
		fmt.Println("No alerts stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TIMESTAMP\tMESSAGE\n")
	for _, a := range alerts {
		fmt.Fprintf(w, "%s\t%s\n", a.Timestamp.Format("2006-01-02 15:04:05"), a.Message)
	}
	return w.Flush()
}
