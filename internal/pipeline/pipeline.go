// Package pipeline wires the collector and the analyzer together.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"meta-analyzer/internal/analysis"
	"meta-analyzer/internal/collector"
	"meta-analyzer/internal/config"
	"meta-analyzer/internal/notify"
	"meta-analyzer/internal/ratelimit"
	"meta-analyzer/internal/riot"
	"meta-analyzer/internal/storage"
)

// Budget for notifications sent after the run context is cancelled
const notifyTimeout = 15 * time.Second

// KeyChecker probes an API key before a collection
type KeyChecker interface {
	CheckKey(ctx context.Context, apiKey string) error
}

// Notifier receives run notifications. Failures are logged, never fatal.
type Notifier interface {
	SendCollectionFinished(ctx context.Context, r notify.CollectionReport) error
	SendAnalysisFinished(ctx context.Context, r notify.AnalysisReport) error
	SendKeyRejected(ctx context.Context, maskedKey string) error
}

// Pipeline runs collection, analysis, or both against one data directory
type Pipeline struct {
	cfg   *config.Config
	store *storage.CSVStore

	source    collector.MatchSource
	limiter   ratelimit.Limiter
	validator KeyChecker
	notifier  Notifier

	logger *log.Logger
	out    io.Writer
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithSource replaces the Riot client used for collection
func WithSource(s collector.MatchSource) Option {
	return func(p *Pipeline) { p.source = s }
}

// WithLimiter replaces the limiter built from the config
func WithLimiter(l ratelimit.Limiter) Option {
	return func(p *Pipeline) { p.limiter = l }
}

// WithKeyChecker replaces the key validator
func WithKeyChecker(k KeyChecker) Option {
	return func(p *Pipeline) { p.validator = k }
}

// WithNotifier replaces the webhook notifier
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) { p.out = w }
}

// New prepares the data directory and the collaborators named by cfg.
// The Riot client is created on first collection so analyze needs no key.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	store, err := storage.NewCSVStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:    cfg,
		store:  store,
		logger: log.Default(),
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.limiter == nil {
		p.limiter, err = ratelimit.New(cfg.RateLimiter, cfg.LimiterSettings())
		if err != nil {
			return nil, err
		}
	}
	if p.notifier == nil && cfg.WebhookURL != "" {
		p.notifier = notify.NewWebhookClient(cfg.WebhookURL)
	}
	return p, nil
}

// Collect walks the configured brackets and writes the tier tables
func (p *Pipeline) Collect(ctx context.Context) (collector.Stats, error) {
	if err := p.cfg.ValidateForCollect(); err != nil {
		return collector.Stats{}, err
	}
	if err := p.checkKey(ctx); err != nil {
		return collector.Stats{}, err
	}

	if p.source == nil {
		client, err := riot.NewClient(p.cfg.APIKey, p.cfg.PlatformRegion, p.cfg.RoutingRegion,
			riot.WithHTTPTimeout(p.cfg.HTTPTimeout))
		if err != nil {
			return collector.Stats{}, err
		}
		p.source = client
	}

	opts := []collector.Option{
		collector.WithLogger(p.logger),
		collector.WithOutput(p.out),
	}
	if p.cfg.DedupeMatches {
		opts = append(opts, collector.WithDedupe())
	}

	c := collector.New(p.source, p.store, p.limiter, collector.Config{
		Tiers:             p.cfg.Tiers,
		Divisions:         p.cfg.Divisions,
		PlayersPerBracket: p.cfg.PlayersPerBracket,
		MatchesPerPlayer:  p.cfg.MatchesPerPlayer,
		QueueID:           p.cfg.QueueID,
	}, opts...)

	p.logger.Printf("[Pipeline] Collecting %d tiers x %d divisions into %s (key %s)",
		len(p.cfg.Tiers), len(p.cfg.Divisions), p.store.Dir(), riot.MaskAPIKey(p.cfg.APIKey))

	stats, err := c.Run(ctx)
	if err != nil {
		return stats, err
	}

	p.notify(ctx, func(ctx context.Context, n Notifier) error {
		return n.SendCollectionFinished(ctx, notify.CollectionReport{
			BracketsWalked:  stats.BracketsWalked,
			BracketsSkipped: stats.BracketsSkipped,
			Matches:         stats.MatchesFetched,
			Records:         stats.Records,
			TierFiles:       len(stats.TierFiles),
			Runtime:         stats.Elapsed,
			Interrupted:     stats.Interrupted,
		})
	})
	return stats, nil
}

// checkKey refuses a rejected key. An inconclusive probe only logs.
func (p *Pipeline) checkKey(ctx context.Context) error {
	if !p.cfg.ValidateKey {
		return nil
	}
	if p.validator == nil {
		p.validator = riot.NewKeyValidator(p.cfg.PlatformRegion, riot.WithTimeout(p.cfg.HTTPTimeout))
	}

	masked := riot.MaskAPIKey(p.cfg.APIKey)
	err := p.validator.CheckKey(ctx, p.cfg.APIKey)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, riot.ErrInvalidAPIKey):
		p.notify(ctx, func(ctx context.Context, n Notifier) error {
			return n.SendKeyRejected(ctx, masked)
		})
		return fmt.Errorf("key %s: %w", masked, riot.ErrInvalidAPIKey)
	default:
		p.logger.Printf("[Pipeline] Could not validate key %s: %v (continuing)", masked, err)
		return nil
	}
}

// Analyze builds the final table from whatever tier tables are on disk
func (p *Pipeline) Analyze(ctx context.Context) (*analysis.Report, error) {
	report, err := analysis.Run(p.store, p.out)
	if err != nil {
		return nil, err
	}

	p.notify(ctx, func(ctx context.Context, n Notifier) error {
		return n.SendAnalysisFinished(ctx, notify.AnalysisReport{
			Records:     report.Records,
			RowsWritten: len(report.Result.Rows),
			MetaWinRate: report.Summary.Overall.MetaWinRate(),
			Ties:        report.Result.Ties,
			Incomplete:  report.Result.Incomplete,
		})
	})
	return report, nil
}

// Run collects then analyzes. An interrupted collection still analyzes the
// tier tables already written.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()

	stats, err := p.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collection failed: %w", err)
	}
	if stats.Interrupted {
		p.logger.Println("[Pipeline] Collection interrupted, analyzing tier files already written")
	}

	// Analysis is local and quick; run it even when ctx is cancelled
	if _, err := p.Analyze(context.WithoutCancel(ctx)); err != nil {
		if errors.Is(err, analysis.ErrNoInputData) {
			return fmt.Errorf("nothing to analyze: %w", err)
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	fmt.Fprintf(p.out, "\n[Pipeline] Done in %s\n", collector.FormatDuration(time.Since(start)))
	return nil
}

// notify sends through the notifier, if any, on a context that survives
// cancellation of the run
func (p *Pipeline) notify(ctx context.Context, send func(context.Context, Notifier) error) {
	if p.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := send(ctx, p.notifier); err != nil {
		p.logger.Printf("[Notify] Failed to send webhook: %v", err)
	}
}
