// Package orchestrator performs the startup wiring sequence: load
// config, discover the liquid instrument universe, freeze the symbol
// registry, construct every warm/hot-path component, wire the router's
// handlers to the spread calculator and tracker, and start the per-venue
// stream clients and the snapshot publisher.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"xvenue/internal/aggregator"
	"xvenue/internal/config"
	"xvenue/internal/discovery"
	"xvenue/internal/errs"
	"xvenue/internal/marketdata"
	"xvenue/internal/metrics"
	"xvenue/internal/parser"
	"xvenue/internal/router"
	"xvenue/internal/snapshot"
	"xvenue/internal/spread"
	"xvenue/internal/stream"
	"xvenue/internal/symbol"
	"xvenue/internal/tracker"
)

// App holds every constructed component, for tests and for main to reach
// into when wiring the HTTP surface.
type App struct {
	Config     *config.Config
	Registry   *symbol.Registry
	Router     *router.Router
	Spread     *spread.Calculator
	Tracker    *tracker.Tracker
	Metrics    *metrics.Metrics
	Snapshot   *snapshot.Provider
	Aggregator *aggregator.Aggregator

	primaryClient   *stream.Client
	secondaryClient *stream.Client

	logger *slog.Logger
}

// Bootstrap runs discovery, freezes the registry, and constructs every
// component, but does not start any network I/O. It returns an error
// (never a partially-usable App) if discovery fails or yields zero
// instruments — there is no fallback list.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	discoveryClient := discovery.New(cfg.Discovery.PrimaryRestURL, cfg.Discovery.MinVolume24h, 10*time.Second)
	instruments, err := discoveryClient.FetchLiquidUniverse(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: discovery: %w", err)
	}

	names := make([]string, len(instruments))
	for i, inst := range instruments {
		names[i] = inst.Name
	}

	reg := symbol.NewRegistry(cfg.MaxSymbols)
	if err := reg.RegisterAll(names); err != nil {
		return nil, fmt.Errorf("orchestrator: register symbols: %w", err)
	}
	logger.Info("registered liquid instruments", slog.Int("count", len(names)))

	capacity := cfg.MaxSymbols
	rtr := router.New(capacity)
	calc := spread.New(capacity, cfg.StaleQuoteAge())
	eps := cfg.HysteresisEpsilon()
	trk := tracker.New(capacity, cfg.WindowDuration(), eps, cfg.HalfLifeTau())
	m := metrics.New("xvenue")
	snap := snapshot.NewProvider(reg, trk, m, calc)
	agg := aggregator.New(cfg.InboxCapacity, rtr)

	app := &App{
		Config:     cfg,
		Registry:   reg,
		Router:     rtr,
		Spread:     calc,
		Tracker:    trk,
		Metrics:    m,
		Snapshot:   snap,
		Aggregator: agg,
		logger:     logger,
	}

	app.wireRouter()
	app.buildStreamClients()

	return app, nil
}

// wireRouter registers, for every discovered symbol, a quote handler that
// forwards to the spread calculator (and on a spread event, into the
// tracker), and a trade handler that records throughput metrics. Every
// symbol gets the same closures; they are generic over the symbol the
// record itself carries.
func (a *App) wireRouter() {
	onQuote := func(q marketdata.Quote) {
		a.Metrics.RecordEventProcessed()
		ev, ok := a.Spread.Update(q.VenueTag, q)
		if !ok {
			return
		}
		a.Metrics.RecordSpreadEvent()
		if hit, ok := a.Tracker.OnSpreadEvent(ev); ok && hit {
			a.Metrics.RecordHit()
		}
	}

	onTrade := func(t marketdata.Trade) {
		a.Metrics.RecordEventProcessed()
	}

	for id := int32(0); id < a.Registry.Count(); id++ {
		sym := symbol.Symbol(id)
		a.Router.RegisterQuote(sym, onQuote)
		a.Router.RegisterTrade(sym, onTrade)
	}
}

// buildStreamClients constructs, but does not start, the primary and
// secondary StreamClients, wiring each venue's frame handler to parse
// and submit to the aggregator.
func (a *App) buildStreamClients() {
	a.primaryClient = stream.New(stream.Config{
		Venue:                "primary",
		Endpoint:             a.Config.Stream.PrimaryWSURL,
		SubscribeBatchSize:   stream.PrimaryBatchSize,
		IdleTimeout:          a.Config.IdleTimeout(),
		ReconnectBaseDelay:   time.Second,
		ReconnectMaxDelay:    60 * time.Second,
		BuildSubscribeFrames: stream.BuildPrimarySubscribeFrames,
		OnFrame:              a.handlePrimaryFrame,
	})

	a.secondaryClient = stream.New(stream.Config{
		Venue:                "secondary",
		Endpoint:             a.Config.Stream.SecondaryWSURL,
		SubscribeBatchSize:   stream.SecondaryBatchSize,
		IdleTimeout:          a.Config.IdleTimeout(),
		PingInterval:         15 * time.Second,
		PingFrame:            stream.SecondaryPingFrame,
		IsApplicationPong:    stream.IsSecondaryApplicationPong,
		ReconnectBaseDelay:   time.Second,
		ReconnectMaxDelay:    60 * time.Second,
		BuildSubscribeFrames: stream.BuildSecondarySubscribeFrames,
		OnFrame:              a.handleSecondaryFrame,
	})
}

// handlePrimaryFrame and handleSecondaryFrame run on each venue's own
// receive goroutine. Parsing is stateless and happens here, inline; the
// parsed record is then only ever handed to the aggregator's inbox, which
// is the sole caller of the router and therefore the sole mutator of the
// spread cache and tracker state.
func (a *App) handlePrimaryFrame(data []byte, recvTimeNs uint64) {
	switch parser.DetectPrimary(data) {
	case parser.KindQuote:
		q, ok := parser.ParsePrimaryQuote(a.Registry, data, recvTimeNs)
		if !ok {
			a.Metrics.RecordParseError()
			return
		}
		a.Aggregator.SubmitQuote(q)
	case parser.KindTrade:
		tr, ok := parser.ParsePrimaryTrade(a.Registry, data)
		if !ok {
			a.Metrics.RecordParseError()
			return
		}
		a.Aggregator.SubmitTrade(tr)
	}
}

func (a *App) handleSecondaryFrame(data []byte, recvTimeNs uint64) {
	switch parser.DetectSecondary(data) {
	case parser.KindQuote:
		q, ok := parser.ParseSecondaryQuote(a.Registry, data)
		if !ok {
			a.Metrics.RecordParseError()
			return
		}
		a.Aggregator.SubmitQuote(q)
	case parser.KindTrade:
		trades, ok := parser.ParseSecondaryTrades(a.Registry, data)
		if !ok {
			a.Metrics.RecordParseError()
			return
		}
		for _, tr := range trades {
			a.Aggregator.SubmitTrade(tr)
		}
	}
}

// Run starts both stream clients and the snapshot publisher, and blocks
// until ctx is cancelled. The initial connect for each venue is a single
// attempt bounded by the client's dial timeout; it is not retried, and a
// failure there is fatal (no runtime fallback).
func (a *App) Run(ctx context.Context) error {
	symbolNames := make([]string, 0, a.Registry.Count())
	for id := int32(0); id < a.Registry.Count(); id++ {
		name, ok := a.Registry.Name(symbol.Symbol(id))
		if ok {
			symbolNames = append(symbolNames, name)
		}
	}

	go a.Aggregator.Run(ctx)

	if err := a.startVenue(ctx, a.primaryClient, symbolNames, "primary"); err != nil {
		return err
	}
	if err := a.startVenue(ctx, a.secondaryClient, symbolNames, "secondary"); err != nil {
		return err
	}

	go a.Snapshot.Run(ctx, a.Config.SnapshotInterval())

	go a.watchConnections(ctx, a.Config.SnapshotInterval())

	<-ctx.Done()
	return nil
}

// watchConnections polls each venue client's live state onto the
// per-venue connected gauge at the same cadence the snapshot publishes,
// so /snapshot and /metrics report the real connection state rather than
// a value fixed at startup.
func (a *App) watchConnections(ctx context.Context, interval time.Duration) {
	a.Metrics.SetVenueConnected("primary", a.primaryClient.IsConnected())
	a.Metrics.SetVenueConnected("secondary", a.secondaryClient.IsConnected())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Metrics.SetVenueConnected("primary", a.primaryClient.IsConnected())
			a.Metrics.SetVenueConnected("secondary", a.secondaryClient.IsConnected())
		}
	}
}

func (a *App) startVenue(ctx context.Context, client *stream.Client, symbolNames []string, venue string) error {
	if err := client.Connect(ctx); err != nil {
		return errs.NewFatalStreamError(venue, "initial connect", err)
	}

	go func() {
		if err := client.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Warn("stream client exited", slog.String("venue", venue), slog.Any("error", err))
		}
	}()

	if err := client.Subscribe(ctx, symbolNames); err != nil {
		return errs.NewFatalStreamError(venue, "initial subscribe", err)
	}

	a.logger.Info("venue stream started", slog.String("venue", venue), slog.Int("symbols", len(symbolNames)))
	return nil
}
