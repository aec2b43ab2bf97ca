package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.Jobs)
	assert.Equal(t, "*", cfg.Dataset)
	assert.Equal(t, "./segmenter", cfg.Segmenter)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segsweep.toml")
	body := `
segmenter = "/opt/levy/segmenter"
jobs = 8
dataset = " SALAMI "
shared_bounds_file = true

[log]
level = "DEBUG"
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("SEGSWEEP_NATS_URL", "nats://127.0.0.1:4222")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/opt/levy/segmenter", cfg.Segmenter)
	assert.Equal(t, 8, cfg.Jobs)
	assert.Equal(t, "SALAMI", cfg.Dataset)
	assert.True(t, cfg.SharedBoundsFile)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NatsURL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Jobs, cfg.Jobs)
}

func TestLoadRejectsBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("jobs = ["), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Jobs = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Jobs = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Log.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Segmenter = ""
	assert.Error(t, cfg.Validate())
}

func TestIsKnownFeature(t *testing.T) {
	assert.True(t, IsKnownFeature("tonnetz"))
	assert.False(t, IsKnownFeature("chroma"))
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
