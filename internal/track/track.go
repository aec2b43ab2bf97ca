// Package track runs the per-track pipeline: beat precondition, boundary
// extraction and the segmenter call.
package track

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/Bahadou-Badr/segsweep/internal/annotation"
	"github.com/Bahadou-Badr/segsweep/internal/bounds"
	"github.com/Bahadou-Badr/segsweep/internal/corpus"
	"github.com/Bahadou-Badr/segsweep/internal/features"
	"github.com/Bahadou-Badr/segsweep/internal/metrics"
	"github.com/Bahadou-Badr/segsweep/internal/segmenter"
	"github.com/Bahadou-Badr/segsweep/internal/storage"
)

// Outcome is how a track left the pipeline.
type Outcome int

const (
	Invoked   Outcome = iota // segmenter ran; exit status not inspected
	Skipped                  // no annotated beats
	Abandoned                // boundary extraction failed
	Failed                   // segmenter exited non-zero and exit checking is on
)

func (o Outcome) String() string {
	switch o {
	case Invoked:
		return "invoked"
	case Skipped:
		return "skipped"
	case Abandoned:
		return "abandoned"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Options are the per-run settings applied to every track.
type Options struct {
	AnnotBeats  bool
	Feature     string
	AnnotBounds bool

	Segmenter string
	CheckExit bool

	// SharedBoundsFile writes annot_bounds.json into WorkDir and serialises
	// write+invoke across workers and processes. Otherwise each track gets
	// its own scratch directory.
	SharedBoundsFile bool
	WorkDir          string
}

type Processor struct {
	opts      Options
	invoker   segmenter.Invoker
	extractor features.Extractor
	scratch   *storage.Scratch
	log       *zap.Logger

	sharedMu   sync.Mutex
	sharedLock *flock.Flock
}

// NewProcessor wires a processor. scratch may be nil, in which case track
// directories are created under os.TempDir.
func NewProcessor(opts Options, inv segmenter.Invoker, ex features.Extractor, scratch *storage.Scratch, log *zap.Logger) *Processor {
	if opts.Segmenter == "" {
		opts.Segmenter = segmenter.DefaultPath
	}
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		opts:       opts,
		invoker:    inv,
		extractor:  ex,
		scratch:    scratch,
		log:        log,
		// the boundary file doubles as the lock file; Write truncates it in place
		sharedLock: flock.New(filepath.Join(opts.WorkDir, bounds.FileName)),
	}
}

// Process runs one track. Failures are logged and turned into an Outcome;
// they never stop sibling tracks.
func (p *Processor) Process(ctx context.Context, pair corpus.Pair) Outcome {
	log := p.log.With(zap.String("track", pair.Key))

	if p.opts.AnnotBeats {
		jam, err := annotation.Load(pair.AnnotationPath)
		if err != nil {
			log.Warn("could not read annotation, skipping", zap.String("annotation", pair.AnnotationPath), zap.Error(err))
			return Skipped
		}
		if !jam.HasBeatData() {
			log.Debug("no annotated beats", zap.String("annotation", pair.AnnotationPath))
			return Skipped
		}
	}

	cmd := segmenter.New(p.opts.Segmenter, pair.FeaturePath, p.opts.AnnotBeats, p.opts.Feature, p.opts.AnnotBounds)
	if !p.opts.AnnotBounds {
		return p.invoke(ctx, log, pair, cmd)
	}

	rec, err := bounds.Read(ctx, p.extractor, corpus.AudioPath(pair.FeaturePath), p.opts.AnnotBeats)
	if err != nil {
		log.Warn("could not find annotated boundaries", zap.String("annotation", pair.AnnotationPath), zap.Error(err))
		return Abandoned
	}
	if p.opts.SharedBoundsFile {
		return p.invokeShared(ctx, log, pair, cmd, rec)
	}
	return p.invokeIsolated(ctx, log, pair, cmd, rec)
}

func (p *Processor) invokeIsolated(ctx context.Context, log *zap.Logger, pair corpus.Pair, cmd segmenter.Command, rec bounds.Record) Outcome {
	dir, err := p.trackDir(pair.Key)
	if err == nil {
		defer os.RemoveAll(dir)
		_, err = bounds.Write(dir, rec)
	}
	if err == nil {
		cmd, err = inDir(cmd, dir)
	}
	if err != nil {
		log.Warn("could not write annotated boundaries", zap.String("annotation", pair.AnnotationPath), zap.Error(err))
		return Abandoned
	}
	return p.invoke(ctx, log, pair, cmd)
}

func (p *Processor) invokeShared(ctx context.Context, log *zap.Logger, pair corpus.Pair, cmd segmenter.Command, rec bounds.Record) Outcome {
	p.sharedMu.Lock()
	defer p.sharedMu.Unlock()

	err := p.sharedLock.Lock()
	if err == nil {
		defer p.sharedLock.Unlock()
		_, err = bounds.Write(p.opts.WorkDir, rec)
	}
	if err == nil && filepath.Clean(p.opts.WorkDir) != "." {
		cmd, err = inDir(cmd, p.opts.WorkDir)
	}
	if err != nil {
		log.Warn("could not write annotated boundaries", zap.String("annotation", pair.AnnotationPath), zap.Error(err))
		return Abandoned
	}
	return p.invoke(ctx, log, pair, cmd)
}

func (p *Processor) invoke(ctx context.Context, log *zap.Logger, pair corpus.Pair, cmd segmenter.Command) Outcome {
	log.Info("segmenting", zap.String("feature", pair.FeaturePath), zap.Stringer("cmd", cmd))
	metrics.SegmenterInvocations.Inc()

	err := p.invoker.Invoke(ctx, cmd)
	if err == nil {
		return Invoked
	}
	if p.opts.CheckExit {
		log.Warn("segmenter failed", zap.String("feature", pair.FeaturePath), zap.Error(err))
		return Failed
	}
	log.Debug("segmenter exit ignored", zap.Error(err))
	return Invoked
}

func (p *Processor) trackDir(key string) (string, error) {
	if p.scratch != nil {
		return p.scratch.TrackDir(key)
	}
	return os.MkdirTemp("", "segsweep-"+key+"-")
}

// inDir rebases cmd to run from dir. Relative executable and feature paths
// are made absolute so they still resolve from the new working directory.
// A bare executable name is left for PATH lookup.
func inDir(cmd segmenter.Command, dir string) (segmenter.Command, error) {
	exe := cmd.Path
	if strings.ContainsRune(exe, '/') || strings.ContainsRune(exe, filepath.Separator) {
		abs, err := filepath.Abs(exe)
		if err != nil {
			return cmd, err
		}
		exe = abs
	}
	feat, err := filepath.Abs(cmd.Args[0])
	if err != nil {
		return cmd, err
	}
	args := append([]string(nil), cmd.Args...)
	args[0] = feat
	return segmenter.Command{Path: exe, Args: args, Dir: dir}, nil
}
