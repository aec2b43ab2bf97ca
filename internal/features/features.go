// Package features loads the precomputed feature bundle of a track.
package features

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Bahadou-Badr/segsweep/internal/annotation"
	"github.com/Bahadou-Badr/segsweep/internal/audio"
	"github.com/Bahadou-Badr/segsweep/internal/corpus"
)

// Bundle is the beat-synchronous feature set of one track.
type Bundle struct {
	Chroma   [][]float64
	MFCC     [][]float64
	Tonnetz  [][]float64
	Beats    []float64
	Duration float64
}

// Extractor returns the feature bundle for an audio file. With annotBeats the
// bundle is aligned to the annotated beats instead of the estimated ones.
type Extractor interface {
	Extract(ctx context.Context, audioPath string, annotBeats bool) (*Bundle, error)
}

type syncBlock struct {
	HPCP    [][]float64 `json:"hpcp"`
	MFCC    [][]float64 `json:"mfcc"`
	Tonnetz [][]float64 `json:"tonnetz"`
}

type featureFile struct {
	Analysis struct {
		Dur float64 `json:"dur"`
	} `json:"analysis"`
	Beats struct {
		Ticks [][]float64 `json:"ticks"`
	} `json:"beats"`
	EstBeatsync *syncBlock `json:"est_beatsync"`
	AnnBeatsync *syncBlock `json:"ann_beatsync"`
}

// Precomputed reads bundles from the feature JSON stored next to the audio
// file in the dataset tree (<root>/features/<key>.json).
type Precomputed struct {
	// Probe is used for the duration when the feature file lacks one.
	Probe func(ctx context.Context, path string) (*audio.Info, error)
}

// NewPrecomputed returns an extractor that falls back to ffprobe for durations.
func NewPrecomputed() *Precomputed {
	return &Precomputed{Probe: audio.Probe}
}

func (p *Precomputed) Extract(ctx context.Context, audioPath string, annotBeats bool) (*Bundle, error) {
	featPath := corpus.FeaturePathFor(audioPath)
	data, err := os.ReadFile(featPath)
	if err != nil {
		return nil, err
	}
	var ff featureFile
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("decode %s: %w", featPath, err)
	}

	b := &Bundle{Duration: ff.Analysis.Dur}
	var block *syncBlock
	if annotBeats {
		jam, err := annotation.Load(corpus.AnnotationPathFor(audioPath))
		if err != nil {
			return nil, err
		}
		if b.Beats, err = jam.BeatTimes(); err != nil {
			return nil, err
		}
		block = ff.AnnBeatsync
	} else {
		if len(ff.Beats.Ticks) == 0 || len(ff.Beats.Ticks[0]) == 0 {
			return nil, fmt.Errorf("%s: no estimated beats", featPath)
		}
		b.Beats = ff.Beats.Ticks[0]
		block = ff.EstBeatsync
	}
	if block != nil {
		b.Chroma, b.MFCC, b.Tonnetz = block.HPCP, block.MFCC, block.Tonnetz
	}

	if b.Duration <= 0 && p.Probe != nil && corpus.Exists(audioPath) {
		info, err := p.Probe(ctx, audioPath)
		if err != nil {
			return nil, err
		}
		b.Duration = info.Duration.Seconds()
	}
	return b, nil
}
