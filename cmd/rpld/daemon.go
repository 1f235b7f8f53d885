package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sixlowpan/rpl/internal/rpl"
	"github.com/sixlowpan/rpl/internal/rpl/rplmetrics"
	"github.com/sixlowpan/rpl/internal/rplstore"
	"github.com/sixlowpan/rpl/internal/rpltransport"
)

// wiredEngine bundles an [rpl.Engine] together with the collaborators
// rpld owns directly and periodically services: persistence, metrics,
// and neighbour-table polling.
type wiredEngine struct {
	engine    *rpl.Engine
	instances map[uint8]*rpl.Instance
	routes    *rpl.MapRouteTable
	store     *rplstore.Store
	metrics   *rplmetrics.Metrics
	conn      *rpltransport.Conn
	neighbors rpl.NeighborCache
}

// multiDIOPolicy multiplexes a [rpl.DefaultDIOPolicy] per instance,
// since [rpl.Engine] holds a single [rpl.DIOPolicy] shared across every
// instance it owns.
type multiDIOPolicy struct {
	policies map[uint8]*rpl.DefaultDIOPolicy
}

// type check
var _ rpl.DIOPolicy = (*multiDIOPolicy)(nil)

// OnStateChanged implements the [rpl.DIOPolicy] interface for
// *multiDIOPolicy.
func (m *multiDIOPolicy) OnStateChanged(instanceID uint8, consistent bool) {
	if p, ok := m.policies[instanceID]; ok {
		p.OnStateChanged(instanceID, consistent)
	}
}

// Reset implements the [rpl.DIOPolicy] interface for *multiDIOPolicy.
func (m *multiDIOPolicy) Reset(instanceID uint8) {
	if p, ok := m.policies[instanceID]; ok {
		p.Reset(instanceID)
	}
}

// buildEngine constructs an Engine and every collaborator named in cfg,
// loads persisted state, and performs local root initialisation for
// every instance configured with is_root.
func buildEngine(cfg *config, conn *rpltransport.Conn, logger *slog.Logger) (w *wiredEngine, err error) {
	links := rpl.StaticLinkStats{}

	out := newTransportOutput(conn, logger)
	routes := rpl.NewMapRouteTable()
	srcRoutes := rpl.NewMapSourceRouteTable()
	timer := rpl.RuntimeTimer{}
	metrics := rplmetrics.New()

	var neighbors rpl.NeighborCache
	neighbors, err = newNeighborCache(cfg.Interface)
	if err != nil {
		logger.Warn("falling back to in-memory neighbor cache", "err", err)
		neighbors = rpl.NewMapNeighborCache()
	}

	repair := &repairRequester{conn: conn, logger: logger}
	policy := &multiDIOPolicy{policies: map[uint8]*rpl.DefaultDIOPolicy{}}

	engine := rpl.NewEngine(out, neighbors, routes, srcRoutes, repair, policy, timer, logger)

	instances := make(map[uint8]*rpl.Instance, len(cfg.Instances))
	for _, ic := range cfg.Instances {
		instCfg := ic.toInstanceConfig(links)
		inst := rpl.NewInstance(instCfg)
		engine.AddInstance(inst)
		instances[instCfg.ID] = inst

		minInt, maxInt := trickleBounds(ic.DIOIntervalMin, ic.DIOIntervalDoubling)
		policy.policies[instCfg.ID] = rpl.NewDefaultDIOPolicy(timer, minInt, maxInt, engine.EmitDIO)

		if instCfg.IsRoot {
			engine.InitRoot(instCfg.ID, dodagIDFor(instCfg.ID), true)
			policy.Reset(instCfg.ID)
		}
	}

	store := rplstore.New(cfg.StorePath)
	loaded, loadErr := store.Load(instances)
	if loadErr != nil {
		logger.Warn("loading persisted state", "err", loadErr)
	}

	for _, r := range loaded {
		routes.Add(r)
	}

	return &wiredEngine{
		engine:    engine,
		instances: instances,
		routes:    routes,
		store:     store,
		metrics:   metrics,
		conn:      conn,
		neighbors: neighbors,
	}, nil
}

// trickleBounds derives RFC 6550's Imin/Imax from the advertised
// DIOIntervalMin/DIOIntervalDoubling exponents: Imin = 2^min
// milliseconds, Imax = Imin * 2^doublings.
func trickleBounds(min, doublings uint8) (lo, hi time.Duration) {
	lo = time.Duration(1<<min) * time.Millisecond
	hi = lo * time.Duration(1<<doublings)

	return lo, hi
}

// dodagIDFor synthesizes a stable DODAGID for a locally-rooted instance
// from its instance ID, since rpld has no operator-supplied UUID source
// yet.
func dodagIDFor(instanceID uint8) (id [16]byte) {
	id[0] = 0xfd
	id[15] = instanceID

	return id
}

// run drives one Engine's receive loop, periodic persistence, and
// metrics collection until ctx is canceled.
func (w *wiredEngine) run(ctx context.Context, cfg *config, logger *slog.Logger) (err error) {
	persistTick := time.NewTicker(30 * time.Second)
	defer persistTick.Stop()

	pollTick := time.NewTicker(10 * time.Second)
	defer pollTick.Stop()

	recvErrs := make(chan error, 1)
	recv := make(chan rpltransport.Received, 16)
	go w.receiveLoop(ctx, recv, recvErrs)

	for {
		select {
		case <-ctx.Done():
			return w.persist()
		case err = <-recvErrs:
			return fmt.Errorf("receiving: %w", err)
		case r := <-recv:
			w.engine.HandleICMPv6(r.Code, r.SrcKey, r.Multicast, r.Body)
			w.observeAll(cfg)
		case <-persistTick.C:
			if persistErr := w.persist(); persistErr != nil {
				logger.Warn("persisting state", "err", persistErr)
			}
		case <-pollTick.C:
			w.pollNeighbors(logger)
		}
	}
}

func (w *wiredEngine) receiveLoop(ctx context.Context, out chan<- rpltransport.Received, errs chan<- error) {
	buf := make([]byte, 1280)
	for {
		r, err := w.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
			case errs <- err:
			}

			return
		}

		r.Body = append([]byte(nil), r.Body...)

		select {
		case <-ctx.Done():
			return
		case out <- r:
		}
	}
}

func (w *wiredEngine) pollNeighbors(logger *slog.Logger) {
	type poller interface{ PollOnce() error }

	if p, ok := w.neighbors.(poller); ok {
		if err := p.PollOnce(); err != nil {
			logger.Warn("polling neighbor table", "err", err)
		}
	}
}

func (w *wiredEngine) persist() (err error) {
	return w.store.Save(w.instances, w.routes)
}

func (w *wiredEngine) observeAll(cfg *config) {
	for _, ic := range cfg.Instances {
		if inst := w.engine.Instance(ic.ID); inst != nil {
			w.metrics.Observe(inst)
		}
	}
}

// watchConfig reloads cfg whenever its file changes on disk, following
// the teacher's fswatcher pattern of a single fsnotify.Watcher feeding a
// callback; rpld only logs the new instance count today since hot
// reconfiguration of a running Engine would require rebuilding instances
// in place.
func watchConfig(ctx context.Context, path string, logger *slog.Logger) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("starting config watcher", "err", err)

		return
	}
	defer func() { _ = watcher.Close() }()

	if err = watcher.Add(path); err != nil {
		logger.Warn("watching config file", "path", path, "err", err)

		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if _, loadErr := readConfig(path); loadErr != nil {
				logger.Warn("reloading config", "err", loadErr)

				continue
			}

			logger.Info("config file changed; restart rpld to apply")
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return
			}

			logger.Warn("watching config file", "err", watchErr)
		}
	}
}

// runDaemon loads opts.confPath, opens the RPL transport, wires the
// Engine, and runs until ctx is canceled. It is the single entry point
// shared by the foreground "run" command and the kardianos/service
// "run" action.
func runDaemon(ctx context.Context, opts options, logger *slog.Logger) (err error) {
	cfg, err := readConfig(opts.confPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.StorePath != "" && !filepath.IsAbs(cfg.StorePath) {
		cfg.StorePath = filepath.Join(opts.workDir, cfg.StorePath)
	}

	conn, err := rpltransport.Listen(cfg.Interface)
	if err != nil {
		return fmt.Errorf("opening transport: %w", err)
	}
	defer func() { _ = conn.Close() }()

	w, err := buildEngine(cfg, conn, logger)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	startMetricsServer(cfg.Metrics, w.metrics, logger)
	go watchConfig(ctx, opts.confPath, logger)

	logger.Info("rpld started", "interface", cfg.Interface, "instances", len(cfg.Instances))

	return w.run(ctx, cfg, logger)
}

// startMetricsServer exposes the Prometheus registry over HTTP, mirroring
// the teacher's internal/prometheus.Server.Start.
func startMetricsServer(mc metricsConfig, m *rplmetrics.Metrics, logger *slog.Logger) {
	if !mc.Enabled {
		return
	}

	prometheus.MustRegister(m)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := net.JoinHostPort(mc.BindHost, fmt.Sprintf("%d", mc.BindPort))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "err", err)
		}
	}()
}
