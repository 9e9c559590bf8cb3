package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/cargo-intake/internal/assist"
	"github.com/danielpatrickdp/cargo-intake/internal/config"
	"github.com/danielpatrickdp/cargo-intake/internal/kv"
	"github.com/danielpatrickdp/cargo-intake/internal/logging"
	"github.com/danielpatrickdp/cargo-intake/internal/metrics"
	"github.com/danielpatrickdp/cargo-intake/internal/persist"
	"github.com/danielpatrickdp/cargo-intake/internal/schema"
	"github.com/danielpatrickdp/cargo-intake/internal/store"
	"github.com/danielpatrickdp/cargo-intake/internal/suggest"
)

// #region session
// session is one running editor: the store, its AI coordinator and the
// backends they write to.
type session struct {
	logger    *zap.Logger
	schema    *schema.Schema
	store     *store.Store
	coord     *suggest.Coordinator
	persist   *persist.Adapter
	degrading *assist.Degrading
	sink      *logging.SQLiteSink

	stopSave func()
	closers  []func() error
}

func openSession(ctx context.Context, cfg config.Config, reg prometheus.Registerer) (_ *session, err error) {
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	s := &session{logger: logger}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	s.schema = schema.Cargo()
	if cfg.SchemaPath != "" {
		if s.schema, err = schema.Load(cfg.SchemaPath); err != nil {
			return nil, err
		}
	}
	m := metrics.New(reg)

	backend, err := kv.Open(cfg.KV)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.KV.Backend, err)
	}
	s.closers = append(s.closers, backend.Close)
	s.persist = persist.New(backend, s.schema, persist.WithKey(cfg.StorageKey), persist.WithLogger(logger))

	opts := []store.Option{
		store.WithHistoryLimit(cfg.HistoryLimit),
		store.WithLogger(logger),
		store.WithMetrics(m),
	}
	if saved, ok := s.persist.Load(ctx); ok {
		opts = append(opts, store.WithRecords(saved))
	}
	s.store = store.New(s.schema, opts...)
	s.stopSave = s.persist.Autosave(ctx, s.store)

	client, err := s.collaborator(cfg.AI, m)
	if err != nil {
		return nil, err
	}

	var sink logging.Sink = logging.NopSink{}
	if cfg.ProvenancePath != "" {
		if s.sink, err = logging.OpenSQLiteSink(cfg.ProvenancePath); err != nil {
			return nil, fmt.Errorf("open provenance log: %w", err)
		}
		s.closers = append(s.closers, s.sink.Close)
		sink = s.sink
	}

	s.coord = suggest.New(s.store, client,
		suggest.WithThresholds(cfg.AI.Thresholds),
		suggest.WithMaxContext(cfg.AI.MaxContext),
		suggest.WithBatchLimit(cfg.AI.BatchLimit),
		suggest.WithLogger(logger),
		suggest.WithMetrics(m),
		suggest.WithSink(sink),
	)
	logger.Info("session opened",
		zap.String("storage", cfg.KV.Backend), zap.String("ai", cfg.AI.Mode),
		zap.Int("rows", len(s.store.GetAll())))
	return s, nil
}

// collaborator builds the AI client cfg names. Remote clients are wrapped so
// a rate-limited session keeps working on the offline heuristic.
func (s *session) collaborator(cfg config.AIConfig, m *metrics.Metrics) (suggest.Client, error) {
	var primary suggest.Client
	switch cfg.Mode {
	case config.ModeHeuristic:
		return assist.NewHeuristic(), nil
	case config.ModeOpenAI:
		primary = assist.NewOpenAI(cfg.OpenAI, s.schema, s.logger)
	case config.ModeCodec:
		cc, err := assist.NewCodecClient(cfg.AssistAddr, s.schema)
		if err != nil {
			return nil, fmt.Errorf("connect to assist service at %s: %w", cfg.AssistAddr, err)
		}
		s.closers = append(s.closers, cc.Close)
		primary = cc
	default:
		return nil, fmt.Errorf("unknown ai mode %q", cfg.Mode)
	}
	if !cfg.Degradation {
		return primary, nil
	}
	s.degrading = assist.NewDegrading(primary, assist.NewHeuristic(),
		assist.WithPacing(cfg.RatePerSec, cfg.RateBurst),
		assist.WithDegradingLogger(s.logger),
		assist.WithDegradingMetrics(m),
	)
	return s.degrading, nil
}

// Close stops AI work, writes a final save and releases the backends.
func (s *session) Close() error {
	if s.coord != nil {
		s.coord.Close()
	}
	if s.stopSave != nil {
		s.stopSave()
	}
	var errs []error
	if s.store != nil && s.persist != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, s.persist.Save(ctx, s.store.GetAll()))
		cancel()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	_ = s.logger.Sync()
	return errors.Join(errs...)
}

// #endregion session

// #region metrics-server
func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// #endregion metrics-server
