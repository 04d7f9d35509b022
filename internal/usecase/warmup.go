package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"SignalDesk/pkg/logger"
)

// Warmer precomputes results for a watchlist. Passes never overlap.
type Warmer struct {
	analyzer *Analyzer
	symbols  []string
	timeout  time.Duration
	log      *logger.Logger
	cron     *cron.Cron
	mu       sync.Mutex
}

func NewWarmer(a *Analyzer, symbols []string, timeout time.Duration, log *logger.Logger) *Warmer {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Warmer{
		analyzer: a,
		symbols:  symbols,
		timeout:  timeout,
		log:      log.With(logger.String("component", "warmup")),
	}
}

// WarmAll analyzes each watchlist symbol in turn and returns the number of
// successes. Known data failures are logged and skipped.
func (w *Warmer) WarmAll(ctx context.Context) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	ok := 0
	for _, sym := range w.symbols {
		if ctx.Err() != nil {
			break
		}
		sctx, cancel := context.WithTimeout(ctx, w.timeout)
		_, err := w.analyzer.Analyze(sctx, sym, 0)
		cancel()
		if err != nil {
			w.log.Warn("warm-up failed", logger.String("symbol", sym), logger.Error(err))
			continue
		}
		ok++
	}
	w.log.Info("warm-up pass done",
		logger.Int("symbols", len(w.symbols)),
		logger.Int("ok", ok),
	)
	return ok
}

// Start schedules WarmAll on spec (standard cron or "@every 30m").
func (w *Warmer) Start(spec string) error {
	if len(w.symbols) == 0 {
		return errors.New("warm-up: empty watchlist")
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() { w.WarmAll(context.Background()) }); err != nil {
		return err
	}
	w.cron = c
	c.Start()
	w.log.Info("warm-up scheduled", logger.String("schedule", spec), logger.Int("symbols", len(w.symbols)))
	return nil
}

// Stop halts the scheduler and waits for a running pass, bounded by ctx.
func (w *Warmer) Stop(ctx context.Context) error {
	if w.cron == nil {
		return nil
	}
	select {
	case <-w.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
