// Package pipeline drives one sensor reading from the serial bridge all
// the way to storage, cloud delivery, and live fan-out. The periodic poll
// loop and the on-demand API path both run the same Process sequence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/enviromon/enviromon/pkg/alerts"
	"github.com/enviromon/enviromon/pkg/live"
	"github.com/enviromon/enviromon/pkg/model"
	"github.com/enviromon/enviromon/pkg/parser"
	"github.com/enviromon/enviromon/pkg/sink"
	"github.com/enviromon/enviromon/pkg/storage"
)

const notifyTimeout = 10 * time.Second

// Options collects the collaborators a Pipeline needs. Sink, Hub, and
// Notifiers are optional; a nil value disables that stage.
type Options struct {
	Fetcher    *Fetcher
	Store      storage.Store
	Thresholds model.Thresholds
	Sink       *sink.Manager
	Hub        *live.Hub
	Notifiers  []alerts.Notifier
	Logger     *slog.Logger
}

// Pipeline is the shared fetch→parse→alert→persist→deliver→broadcast
// sequence. Safe for concurrent use: the poll loop and request handlers
// may call Process at the same time.
type Pipeline struct {
	fetcher    *Fetcher
	store      storage.Store
	thresholds model.Thresholds
	sink       *sink.Manager
	hub        *live.Hub
	notifiers  []alerts.Notifier
	logger     *slog.Logger

	latest latestCache
}

// New assembles a pipeline from its collaborators.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher:    opts.Fetcher,
		store:      opts.Store,
		thresholds: opts.Thresholds,
		sink:       opts.Sink,
		hub:        opts.Hub,
		notifiers:  opts.Notifiers,
		logger:     logger,
	}
}

// Process runs one full ingestion cycle and returns the resulting reading.
// Fetch and parse failures abort the cycle and are returned to the caller.
// Everything after a successful parse is best-effort: a storage failure is
// logged but the reading still flows to delivery and fan-out.
func (p *Pipeline) Process(ctx context.Context) (*model.Reading, error) {
	line, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching status line: %w", err)
	}

	reading, err := parser.ParseLine(line)
	if err != nil {
		p.logger.Warn("discarding unparsable status line", "line", line, "error", err)
		return nil, err
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now().UTC()
	}

	events := alerts.Derive(reading, p.thresholds)

	if err := p.store.SaveReading(ctx, reading, alerts.Records(events)); err != nil {
		p.logger.Error("saving reading failed", "error", err)
	}

	if p.sink != nil {
		// Cloud delivery must not block the cycle and must survive the
		// triggering request's cancellation.
		go p.sink.Send(context.WithoutCancel(ctx), *reading)
	}

	if len(events) > 0 && len(p.notifiers) > 0 {
		go p.notify(events)
	}

	if p.hub != nil {
		p.hub.Broadcast(*reading)
	}

	p.latest.store(*reading)
	return reading, nil
}

// Latest returns the most recent successfully processed reading, if any.
func (p *Pipeline) Latest() (model.Reading, bool) {
	return p.latest.load()
}

func (p *Pipeline) notify(events []alerts.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	for _, n := range p.notifiers {
		for _, event := range events {
			if err := n.Send(ctx, event); err != nil {
				p.logger.Warn("alert notification failed",
					"notifier", n.Name(), "metric", event.Metric, "error", err)
			}
		}
	}
}

// PublicMessage maps a Process failure to the error string exposed on the
// API surface.
func PublicMessage(err error) string {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.PublicMessage()
	}
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.PublicMessage()
	}
	return fmt.Sprintf("Network error: %v", err)
}
