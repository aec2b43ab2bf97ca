// Package corpus discovers feature/annotation file pairs in a dataset tree.
//
// A dataset root contains three sibling directories:
//
//	<root>/features/<Dataset>_<id>.json
//	<root>/annotations/<Dataset>_<id>.jams
//	<root>/audio/<Dataset>_<id>.mp3
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	FeaturesDir    = "features"
	AnnotationsDir = "annotations"
	AudioDir       = "audio"

	FeatureExt    = ".json"
	AnnotationExt = ".jams"
	AudioExt      = ".mp3"

	// AllDatasets matches every dataset prefix.
	AllDatasets = "*"
)

// Pair is one track: its annotation file and its feature file.
type Pair struct {
	Key            string
	AnnotationPath string
	FeaturePath    string
}

// Result holds matched pairs plus the files that had no counterpart.
type Result struct {
	Pairs              []Pair
	UnpairedFeatures   []string
	UnpairedAnnotation []string
}

// Match lists <root>/features/<dataset>_*.json and <root>/annotations/<dataset>_*.jams
// and pairs them by basename. Missing directories yield an empty result.
func Match(root, dataset string) (*Result, error) {
	if dataset == "" {
		dataset = AllDatasets
	}
	feats, err := filepath.Glob(filepath.Join(root, FeaturesDir, dataset+"_*"+FeatureExt))
	if err != nil {
		return nil, fmt.Errorf("glob features: %w", err)
	}
	jams, err := filepath.Glob(filepath.Join(root, AnnotationsDir, dataset+"_*"+AnnotationExt))
	if err != nil {
		return nil, fmt.Errorf("glob annotations: %w", err)
	}

	byKey := make(map[string]string, len(jams))
	for _, j := range jams {
		byKey[Key(j)] = j
	}

	res := &Result{}
	for _, f := range feats {
		k := Key(f)
		j, ok := byKey[k]
		if !ok {
			res.UnpairedFeatures = append(res.UnpairedFeatures, f)
			continue
		}
		delete(byKey, k)
		res.Pairs = append(res.Pairs, Pair{Key: k, AnnotationPath: j, FeaturePath: f})
	}
	for _, j := range byKey {
		res.UnpairedAnnotation = append(res.UnpairedAnnotation, j)
	}

	sort.Slice(res.Pairs, func(a, b int) bool { return res.Pairs[a].Key < res.Pairs[b].Key })
	sort.Strings(res.UnpairedFeatures)
	sort.Strings(res.UnpairedAnnotation)
	return res, nil
}

// Key returns the basename of path without its extension.
func Key(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Dataset returns the dataset prefix of a track key ("SALAMI" for "SALAMI_100").
func Dataset(key string) string {
	if i := strings.Index(key, "_"); i >= 0 {
		return key[:i]
	}
	return key
}

// AudioPath derives the audio file for a feature file: the last "features"
// path segment becomes "audio" and the 5-character ".json" suffix becomes ".mp3".
func AudioPath(featurePath string) string {
	dir, file := filepath.Split(featurePath)
	parts := strings.Split(filepath.ToSlash(filepath.Clean(dir)), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] == FeaturesDir {
			parts[i] = AudioDir
			break
		}
	}
	if len(file) > len(FeatureExt) {
		file = file[:len(file)-len(FeatureExt)]
	}
	return filepath.Join(filepath.FromSlash(strings.Join(parts, "/")), file+AudioExt)
}

// Root returns the dataset root of a file stored one level below it.
func Root(path string) string {
	return filepath.Dir(filepath.Dir(path))
}

// FeaturePathFor returns the feature file belonging to any file of the same track.
func FeaturePathFor(path string) string {
	return filepath.Join(Root(path), FeaturesDir, Key(path)+FeatureExt)
}

// AnnotationPathFor returns the annotation file belonging to any file of the same track.
func AnnotationPathFor(path string) string {
	return filepath.Join(Root(path), AnnotationsDir, Key(path)+AnnotationExt)
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
