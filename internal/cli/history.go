package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored readings, newest first",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum readings to show")
	historyCmd.Flags().Int("offset", 0, "Readings to skip")
}

func runHistory(cmd *cobra.Command, _ []string) error {
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

	readings, err := store.ListReadings(cmd.Context(), limit, offset)
	if err != nil {
		return fmt.Errorf("query readings: %w", err)
	}

	if len(readings) == 0 {
		fmt.Println("No readings stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TIMESTAMP\tTEMP\tHUM\tLIGHT\tDIST\n")
	for _, r := range readings {
		fmt.Fprintf(w, "%s\t%.1f°C\t%.1f%%\t%d%%\t%dcm\n",
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Temperature, r.Humidity, r.Light, r.Distance,
		)
	}
	return w.Flush()
}
