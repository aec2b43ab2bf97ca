package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Bahadou-Badr/segsweep/internal/corpus"
	"github.com/Bahadou-Badr/segsweep/internal/metrics"
	"github.com/Bahadou-Badr/segsweep/internal/track"
)

// Handler processes one track.
type Handler func(ctx context.Context, pair corpus.Pair) track.Outcome

// Result is reported once per processed track.
type Result struct {
	Pair     corpus.Pair
	Outcome  track.Outcome
	Duration time.Duration
}

// Pool is a bounded worker pool. Each worker runs one track to completion
// before taking the next.
type Pool struct {
	concurrency int
	jobs        chan corpus.Pair
	results     chan Result
	wg          sync.WaitGroup
	handler     Handler
	log         *zap.Logger
}

// NewPool creates a pool with the given number of workers. Values below 1 become 1.
func NewPool(concurrency int, handler Handler, log *zap.Logger) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		concurrency: concurrency,
		jobs:        make(chan corpus.Pair),
		results:     make(chan Result, concurrency),
		handler:     handler,
		log:         log,
	}
}

// Results delivers one Result per processed track and is closed after Stop.
// It must be drained while the pool runs.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Start launches all worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	p.log.Info("starting worker pool", zap.Int("concurrency", p.concurrency))
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.workerLoop(ctx, i)
	}
}

// Submit hands a track to the next free worker, blocking until one takes it.
func (p *Pool) Submit(ctx context.Context, pair corpus.Pair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.jobs <- pair:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes the queue and waits until every worker has finished.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
	p.log.Debug("worker pool stopped")
}

func (p *Pool) workerLoop(ctx context.Context, id int) {
	defer p.wg.Done()
	for pair := range p.jobs {
		metrics.CurrentTracks.Inc()
		start := time.Now()
		p.log.Debug("processing track", zap.String("track", pair.Key), zap.Int("worker", id))

		outcome := p.handler(ctx, pair)

		elapsed := time.Since(start)
		metrics.CurrentTracks.Dec()
		metrics.TracksProcessed.WithLabelValues(outcome.String()).Inc()
		metrics.TrackDuration.WithLabelValues(outcome.String()).Observe(elapsed.Seconds())

		p.results <- Result{Pair: pair, Outcome: outcome, Duration: elapsed}
	}
}
