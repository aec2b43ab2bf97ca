package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriteLegacyArgs(t *testing.T) {
	got := rewriteLegacyArgs([]string{"data", "mfcc", "-b", "-bo", "-j", "2", "--", "-bo"})
	assert.Equal(t, []string{"data", "mfcc", "-b", "--annot-bounds", "-j", "2", "--", "-bo"}, got)
}

func TestResolveFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "segsweep.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("jobs = 8\ndataset = \"Isophonics\"\n"), 0o644))

	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-c", cfgPath, "-j", "2", "--check-exit"}))

	var f runFlags
	f.configPath = cfgPath
	f.jobs = 2
	f.checkExit = true
	f.dataset = "*"
	cfg, err := f.resolve(cmd)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Jobs)
	assert.Equal(t, "Isophonics", cfg.Dataset, "unset flags keep the file value")
	assert.True(t, cfg.CheckExit)
}

func TestResolveRejectsNonPositiveJobs(t *testing.T) {
	chdir(t, t.TempDir())
	for _, jobs := range []int{0, -1} {
		cmd := newRootCommand()
		require.NoError(t, cmd.ParseFlags([]string{"--jobs=" + strconv.Itoa(jobs)}))
		_, err := runFlags{jobs: jobs}.resolve(cmd)
		require.Error(t, err, "jobs=%d", jobs)
	}
}

func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(rewriteLegacyArgs(args))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLIEmptyCorpus(t *testing.T) {
	chdir(t, t.TempDir())
	out, err := executeCLI(t, filepath.Join(t.TempDir(), "nothing"), "mfcc", "--log-format", "json", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "matched")
}

func TestCLIRequiresTwoArgs(t *testing.T) {
	_, err := executeCLI(t, "only-one")
	require.Error(t, err)
}

func TestCLIRunsSegmenterPerTrack(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script segmenter requires a unix shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	chdir(t, t.TempDir())

	tools := t.TempDir()
	calls := filepath.Join(tools, "calls.txt")
	script := filepath.Join(tools, "segmenter")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$@\" >> '"+calls+"'\nexit 1\n"), 0o755))

	root := t.TempDir()
	for _, d := range []string{"features", "annotations"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	for _, key := range []string{"SALAMI_1", "SALAMI_2", "Isophonics_1"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, "features", key+".json"), []byte(`{}`), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "annotations", key+".jams"), []byte(`{}`), 0o644))
	}

	out, err := executeCLI(t, root, "tonnetz", "-d", "SALAMI", "-j", "1", "--segmenter", script,
		"--log-format", "json", "--log-level", "error")
	require.NoError(t, err, "segmenter exit codes do not fail the run")
	assert.Contains(t, out, "invoked")

	data, err := os.ReadFile(calls)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, []string{
		filepath.Join(root, "features", "SALAMI_1.json") + " 0 tonnetz 0",
		filepath.Join(root, "features", "SALAMI_2.json") + " 0 tonnetz 0",
	}, lines)
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
