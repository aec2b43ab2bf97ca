// Package bounds turns annotated segment boundaries into beat frame indices
// and writes them to the file the segmenter reads.
package bounds

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"github.com/Bahadou-Badr/segsweep/internal/annotation"
	"github.com/Bahadou-Badr/segsweep/internal/corpus"
	"github.com/Bahadou-Badr/segsweep/internal/features"
	"github.com/Bahadou-Badr/segsweep/internal/storage"
)

// FileName is the name the segmenter expects in its working directory.
const FileName = "annot_bounds.json"

var ErrNoBeats = errors.New("no beats to align boundaries to")

// Record is the content of the boundary file.
type Record struct {
	Bounds []int `json:"bounds"`
}

// FrameIndices maps each time to the index of the nearest beat. The result
// is sorted with duplicates removed.
func FrameIndices(times, beats []float64) ([]int, error) {
	if len(beats) == 0 {
		return nil, ErrNoBeats
	}
	seen := make(map[int]struct{}, len(times))
	frames := make([]int, 0, len(times))
	for _, t := range times {
		best, bestDist := 0, math.Inf(1)
		for i, b := range beats {
			if d := math.Abs(b - t); d < bestDist {
				best, bestDist = i, d
			}
		}
		if _, dup := seen[best]; dup {
			continue
		}
		seen[best] = struct{}{}
		frames = append(frames, best)
	}
	sort.Ints(frames)
	return frames, nil
}

// Read extracts the feature bundle for audioPath and aligns the annotated
// boundaries of the same track to its beats.
func Read(ctx context.Context, ex features.Extractor, audioPath string, annotBeats bool) (Record, error) {
	bundle, err := ex.Extract(ctx, audioPath, annotBeats)
	if err != nil {
		return Record{}, fmt.Errorf("features: %w", err)
	}
	jam, err := annotation.Load(corpus.AnnotationPathFor(audioPath))
	if err != nil {
		return Record{}, fmt.Errorf("annotation: %w", err)
	}
	times, err := jam.BoundaryTimes(corpus.Dataset(corpus.Key(audioPath)))
	if err != nil {
		return Record{}, err
	}
	frames, err := FrameIndices(times, bundle.Beats)
	if err != nil {
		return Record{}, err
	}
	return Record{Bounds: frames}, nil
}

// Write stores rec as dir/annot_bounds.json, replacing earlier content.
func Write(dir string, rec Record) (string, error) {
	if rec.Bounds == nil {
		rec.Bounds = []int{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName)
	if _, err := storage.Save(bytes.NewReader(data), path); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
