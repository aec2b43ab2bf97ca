package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
}

func TestMatchPairsByKey(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "features", "SALAMI_2.json"))
	touch(t, filepath.Join(root, "features", "SALAMI_10.json"))
	touch(t, filepath.Join(root, "features", "Isophonics_01.json"))
	touch(t, filepath.Join(root, "annotations", "SALAMI_10.jams"))
	touch(t, filepath.Join(root, "annotations", "Isophonics_01.jams"))
	touch(t, filepath.Join(root, "annotations", "SALAMI_3.jams"))

	res, err := Match(root, "")
	require.NoError(t, err)
	require.Len(t, res.Pairs, 2)

	assert.Equal(t, "Isophonics_01", res.Pairs[0].Key)
	assert.Equal(t, filepath.Join(root, "annotations", "Isophonics_01.jams"), res.Pairs[0].AnnotationPath)
	assert.Equal(t, filepath.Join(root, "features", "Isophonics_01.json"), res.Pairs[0].FeaturePath)
	assert.Equal(t, "SALAMI_10", res.Pairs[1].Key)

	assert.Equal(t, []string{filepath.Join(root, "features", "SALAMI_2.json")}, res.UnpairedFeatures)
	assert.Equal(t, []string{filepath.Join(root, "annotations", "SALAMI_3.jams")}, res.UnpairedAnnotation)
}

func TestMatchDatasetFilter(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "features", "SALAMI_1.json"))
	touch(t, filepath.Join(root, "annotations", "SALAMI_1.jams"))
	touch(t, filepath.Join(root, "features", "Isophonics_1.json"))
	touch(t, filepath.Join(root, "annotations", "Isophonics_1.jams"))

	res, err := Match(root, "SALAMI")
	require.NoError(t, err)
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "SALAMI_1", res.Pairs[0].Key)
}

func TestMatchMissingRootIsEmpty(t *testing.T) {
	res, err := Match(filepath.Join(t.TempDir(), "nope"), AllDatasets)
	require.NoError(t, err)
	assert.Empty(t, res.Pairs)
	assert.Empty(t, res.UnpairedFeatures)
}

func TestMatchBadPattern(t *testing.T) {
	_, err := Match(t.TempDir(), "[")
	require.Error(t, err)
}

func TestAudioPath(t *testing.T) {
	cases := map[string]string{
		"in_path/features/SALAMI_100.json":           filepath.FromSlash("in_path/audio/SALAMI_100.mp3"),
		"/data/features/features/Beatles_(A) b.json": filepath.FromSlash("/data/features/audio/Beatles_(A) b.mp3"),
		"SALAMI_1.json":                              "SALAMI_1.mp3",
	}
	for in, want := range cases {
		assert.Equal(t, want, AudioPath(filepath.FromSlash(in)), in)
	}
}

func TestSiblingPaths(t *testing.T) {
	audio := filepath.FromSlash("ds/audio/SALAMI_7.mp3")
	assert.Equal(t, filepath.FromSlash("ds/features/SALAMI_7.json"), FeaturePathFor(audio))
	assert.Equal(t, filepath.FromSlash("ds/annotations/SALAMI_7.jams"), AnnotationPathFor(audio))
	assert.Equal(t, "SALAMI", Dataset("SALAMI_7"))
	assert.Equal(t, "plain", Dataset("plain"))
}
