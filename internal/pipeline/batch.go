package pipeline

import (
	"context"
	"iter"
	"log/slog"
	"net/netip"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of hosts fingerprinted at the same time.
const DefaultConcurrency = 50

// Inspector fingerprints one host. *Pipeline implements it.
type Inspector interface {
	Inspect(ctx context.Context, addr netip.Addr) HostResult
}

// BatchProcessor fingerprints every host of a network concurrently.
// At most concurrency hosts are under inspection at any time.
type BatchProcessor struct {
	// inspector runs the chain for one host.
	inspector Inspector

	// concurrency is the maximum number of hosts in flight.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of hosts in flight.
// Default is 50 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
// The inspector is shared by all hosts, so it must be safe for concurrent use.
func NewBatchProcessor(inspector Inspector, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		inspector:   inspector,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch fingerprints every host in targets and returns the aggregate.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets iter.Seq[netip.Addr]) (*Aggregator, error) {
	return bp.ProcessBatchWithCallback(ctx, targets, nil)
}

// ProcessBatchWithCallback fingerprints every host in targets and calls
// callback for each completed host, in completion order. The callback runs
// on the collector goroutine, one call at a time, so it needs no locking.
//
// Targets are pulled lazily: a new host is taken from the sequence only when
// a slot is free. When ctx is cancelled no further hosts are started, the
// hosts in flight are allowed to wind down, and the partial aggregate is
// returned together with ctx.Err().
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets iter.Seq[netip.Addr],
	callback func(result HostResult),
) (*Aggregator, error) {
	bp.logger.Info("starting batch processing",
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	agg := NewAggregator()

	results := make(chan HostResult, bp.concurrency)
	collected := make(chan struct{})

	go func() {
		defer close(collected)
		for r := range results {
			agg.AddResult(r)
			if callback != nil {
				callback(r)
			}
		}
	}()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for addr := range targets {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results <- bp.inspector.Inspect(ctx, addr)
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // hosts never fail the batch
	close(results)
	<-collected

	bp.logger.Info("batch processing complete",
		"hosts", agg.HostsScanned(),
		"reachable", agg.HostsReachable(),
		"printers", agg.Len(),
		"elapsed", time.Since(startTime),
	)

	if err := ctx.Err(); err != nil {
		bp.logger.Warn("batch processing cancelled",
			"hosts", agg.HostsScanned(),
			"reason", err,
		)
		return agg, err
	}

	return agg, nil
}
