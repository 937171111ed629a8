package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/enviromon/enviromon/internal/server"
	"github.com/enviromon/enviromon/pkg/live"
	"github.com/enviromon/enviromon/pkg/pipeline"
	"github.com/enviromon/enviromon/pkg/sink"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion pipeline and API server",
	Long: `Start the full monitor: the periodic poll loop against the serial
bridge, the cloud delivery manager, and the HTTP API with live websocket
fan-out.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	listen, _ := cmd.Flags().GetString("listen")
	if listen != "" {
		cfg.Server.Listen = listen
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

	// Cloud delivery is optional; without a broker the pipeline still
	// persists and broadcasts.
	var mgr *sink.Manager
	if cfg.Sink.Enabled {
		dialer := sink.NewMQTTDialer(sink.MQTTConfig{
			BrokerURL: cfg.Sink.BrokerURL,
			ClientID:  cfg.Sink.ClientID,
			Username:  cfg.Sink.Username,
			Password:  cfg.Sink.Password,
			Topic:     cfg.Sink.Topic,
		})
		mgr = sink.NewManager(dialer, logger)
		mgr.SendTimeout = durationOr(cfg.Sink.SendTimeout, 5*time.Second)
		mgr.DrainInterval = durationOr(cfg.Sink.DrainInterval, time.Second)
		mgr.Start()
	}

	hub := live.NewHub(logger)

	p := pipeline.New(pipeline.Options{
		Fetcher:    initFetcher(cfg),
		Store:      store,
		Thresholds: thresholds,
		Sink:       mgr,
		Hub:        hub,
		Notifiers:  initNotifiers(cfg),
		Logger:     logger,
	})

	pollCtx, stopPoll := context.WithCancel(context.Background())
	defer stopPoll()
	poller := pipeline.NewPoller(p, durationOr(cfg.Bridge.PollInterval, 10*time.Second), logger)
	go poller.Run(pollCtx)

	apiServer := server.NewServer(p, store, hub, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      apiServer.Handler(),
		ReadTimeout:  durationOr(cfg.Server.ReadTimeout, 30*time.Second),
		WriteTimeout: durationOr(cfg.Server.WriteTimeout, 60*time.Second),
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("monitor started", "listen", cfg.Server.Listen, "bridge", cfg.Bridge.URL)
		fmt.Fprintf(os.Stderr, "Enviromon listening on %s\n", cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		stopPoll()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		hub.Close()
		if mgr != nil {
			mgr.Shutdown()
		}
	}

	logger.Info("monitor stopped")
	return nil
}
