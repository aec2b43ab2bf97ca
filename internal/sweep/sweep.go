// Package sweep runs the segmenter over every track of a dataset.
package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Bahadou-Badr/segsweep/internal/corpus"
	"github.com/Bahadou-Badr/segsweep/internal/features"
	"github.com/Bahadou-Badr/segsweep/internal/queue"
	"github.com/Bahadou-Badr/segsweep/internal/segmenter"
	"github.com/Bahadou-Badr/segsweep/internal/storage"
	"github.com/Bahadou-Badr/segsweep/internal/track"
	"github.com/Bahadou-Badr/segsweep/internal/worker"
)

type Options struct {
	InPath     string
	Dataset    string
	Jobs       int
	ScratchDir string
	Track      track.Options
}

// Deps are the collaborators a run talks to. Nil fields get defaults.
type Deps struct {
	Invoker   segmenter.Invoker
	Extractor features.Extractor
	Events    queue.Publisher
	Logger    *zap.Logger
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Matched  int
	Unpaired int
	Counts   map[track.Outcome]int
	Elapsed  time.Duration
}

// Progress counts outcomes while a run is in flight.
type Progress struct {
	mu     sync.Mutex
	counts map[string]int
}

func (p *Progress) add(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts == nil {
		p.counts = make(map[string]int)
	}
	p.counts[key]++
}

// Snapshot returns a copy of the current counters.
func (p *Progress) Snapshot() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int, len(p.counts))
	for k, v := range p.counts {
		out[k] = v
	}
	return out
}

type Runner struct {
	opts     Options
	deps     Deps
	progress *Progress
}

func NewRunner(opts Options, deps Deps) *Runner {
	if deps.Invoker == nil {
		deps.Invoker = segmenter.Exec{}
	}
	if deps.Extractor == nil {
		deps.Extractor = features.NewPrecomputed()
	}
	if deps.Events == nil {
		deps.Events = queue.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Runner{opts: opts, deps: deps, progress: &Progress{}}
}

func (r *Runner) Progress() *Progress {
	return r.progress
}

// Run matches the corpus and processes every pair through a bounded pool.
// Per-track failures are counted, never returned. The only errors are a
// malformed dataset pattern, a scratch directory that cannot be created,
// and cancellation of ctx.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	log := r.deps.Logger
	sum := &Summary{RunID: uuid.NewString(), Counts: make(map[track.Outcome]int)}
	log = log.With(zap.String("run", sum.RunID))

	res, err := corpus.Match(r.opts.InPath, r.opts.Dataset)
	if err != nil {
		return nil, err
	}
	sum.Matched = len(res.Pairs)
	sum.Unpaired = len(res.UnpairedFeatures) + len(res.UnpairedAnnotation)
	for _, f := range res.UnpairedFeatures {
		log.Debug("feature file without annotation", zap.String("path", f))
	}
	for _, a := range res.UnpairedAnnotation {
		log.Debug("annotation without feature file", zap.String("path", a))
	}
	log.Info("corpus matched",
		zap.String("in_path", r.opts.InPath),
		zap.String("dataset", r.opts.Dataset),
		zap.Int("tracks", sum.Matched),
		zap.Int("unpaired", sum.Unpaired))

	var scratch *storage.Scratch
	if r.opts.Track.AnnotBounds && !r.opts.Track.SharedBoundsFile && len(res.Pairs) > 0 {
		scratch, err = storage.NewScratch(r.opts.ScratchDir, "segsweep-")
		if err != nil {
			return nil, err
		}
		defer scratch.Close()
	}

	proc := track.NewProcessor(r.opts.Track, r.deps.Invoker, r.deps.Extractor, scratch, log)
	pool := worker.NewPool(r.opts.Jobs, proc.Process, log)
	pool.Start(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for out := range pool.Results() {
			sum.Counts[out.Outcome]++
			r.progress.add(out.Outcome.String())
			ev := queue.TrackEvent{
				RunID:      sum.RunID,
				Track:      out.Pair.Key,
				Feature:    r.opts.Track.Feature,
				Outcome:    out.Outcome.String(),
				DurationMS: out.Duration.Milliseconds(),
				FinishedAt: time.Now().UTC(),
			}
			if err := r.deps.Events.PublishTrack(ctx, ev); err != nil {
				log.Warn("publish track event", zap.String("track", out.Pair.Key), zap.Error(err))
			}
		}
	}()

	var dispatchErr error
	for _, pair := range res.Pairs {
		if dispatchErr = pool.Submit(ctx, pair); dispatchErr != nil {
			log.Warn("dispatch interrupted", zap.Error(dispatchErr))
			break
		}
	}
	pool.Stop()
	<-done

	sum.Elapsed = time.Since(start)
	log.With(zap.Duration("elapsed", sum.Elapsed)).Sugar().Infof("Done! Took %.2f seconds.", sum.Elapsed.Seconds())
	return sum, dispatchErr
}
