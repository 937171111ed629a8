package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enviromon/enviromon/pkg/alerts"
	"github.com/enviromon/enviromon/pkg/pipeline"
)

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Fetch and store one reading from the bridge",
	Long: `Run a single ingestion cycle: fetch the current status line from
the serial bridge, parse it, persist it with any derived alerts, and
print the result.`,
	RunE: runLatest,
}

func init() {
	rootCmd.AddCommand(latestCmd)
}

func runLatest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)

	thresholds, err := initThresholds(cfg)
	if err != nil {
		return fmt.Errorf("load thresholds: %w", err)
	}

	store, err := initStorage(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	p := pipeline.New(pipeline.Options{
		Fetcher:    initFetcher(cfg),
		Store:      store,
		Thresholds: thresholds,
		Notifiers:  initNotifiers(cfg),
		Logger:     logger,
	})

	reading, err := p.Process(cmd.Context())
	if err != nil {
		return fmt.Errorf("%s", pipeline.PublicMessage(err))
	}

	fmt.Println(reading.String())

	for _, event := range alerts.Derive(reading, thresholds) {
		fmt.Printf("ALERT: %s\n", event.Alert.Message)
	}

	return nil
}
