package assist

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/danielpatrickdp/cargo-intake/internal/metrics"
	"github.com/danielpatrickdp/cargo-intake/internal/record"
	"github.com/danielpatrickdp/cargo-intake/internal/suggest"
	"github.com/danielpatrickdp/cargo-intake/internal/validation"
)

// #region degrading
// Degrading forwards to a primary collaborator until it reports
// ErrRateLimited, then answers from the fallback for the rest of its life.
// The rate-limited call itself is answered by the fallback. Other errors are
// returned as they are.
type Degrading struct {
	primary  suggest.Client
	fallback suggest.Client
	limiter  *rate.Limiter
	degraded atomic.Bool

	logger  *zap.Logger
	metrics *metrics.Metrics
}

// DegradingOption configures a Degrading client.
type DegradingOption func(*Degrading)

// WithPacing spaces primary calls to at most r per second with the given
// burst. Zero r disables pacing.
func WithPacing(r float64, burst int) DegradingOption {
	return func(d *Degrading) {
		if r > 0 {
			d.limiter = rate.NewLimiter(rate.Limit(r), max(burst, 1))
		}
	}
}

func WithDegradingLogger(l *zap.Logger) DegradingOption {
	return func(d *Degrading) { d.logger = l }
}

func WithDegradingMetrics(m *metrics.Metrics) DegradingOption {
	return func(d *Degrading) { d.metrics = m }
}

// NewDegrading wraps primary with fallback.
func NewDegrading(primary, fallback suggest.Client, opts ...DegradingOption) *Degrading {
	d := &Degrading{primary: primary, fallback: fallback, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(zap.String("component", "assist.degrading"))
	return d
}

// Degraded reports whether the fallback has taken over.
func (d *Degrading) Degraded() bool { return d.degraded.Load() }

func (d *Degrading) Suggest(ctx context.Context, rec record.Record, others []record.Record) (map[string]suggest.Suggestion, error) {
	if d.degraded.Load() {
		return d.fallback.Suggest(ctx, rec, others)
	}
	if err := d.pace(ctx); err != nil {
		return nil, err
	}
	out, err := d.primary.Suggest(ctx, rec, others)
	if errors.Is(err, ErrRateLimited) {
		d.degrade(err)
		return d.fallback.Suggest(ctx, rec, others)
	}
	return out, err
}

func (d *Degrading) Validate(ctx context.Context, rec record.Record) ([]validation.Issue, error) {
	if d.degraded.Load() {
		return d.fallback.Validate(ctx, rec)
	}
	if err := d.pace(ctx); err != nil {
		return nil, err
	}
	out, err := d.primary.Validate(ctx, rec)
	if errors.Is(err, ErrRateLimited) {
		d.degrade(err)
		return d.fallback.Validate(ctx, rec)
	}
	return out, err
}

func (d *Degrading) pace(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	return d.limiter.Wait(ctx)
}

func (d *Degrading) degrade(cause error) {
	if d.degraded.CompareAndSwap(false, true) {
		d.metrics.RecordDegraded()
		d.logger.Warn("rate limited, switching to local fallback for this session", zap.Error(cause))
	}
}

// #endregion degrading
