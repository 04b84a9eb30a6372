package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/rest"

	"sitewatcher/internal/batch"
	"sitewatcher/internal/config"
	"sitewatcher/internal/watch"
	"sitewatcher/pkg/logging"
)

// writeConfigDir writes a config.yaml using the test binary as the cli executor,
// which always exists and is executable.
func writeConfigDir(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := "executor:\n  mode: cli\n  binary: " + os.Args[0] + "\nstaging:\n  dir: " + t.TempDir() + "\n" +
		"renderer:\n  workDir: " + t.TempDir() + "\n  sourceLibraryDir: /usr/src/source-crs\n" + extra
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

func noCluster(t *testing.T) {
	t.Helper()
	original := getRESTConfig
	t.Cleanup(func() { getRESTConfig = original })
	getRESTConfig = func() (*rest.Config, error) {
		return nil, errors.New("no kubeconfig")
	}
}

func TestNewApplication_ReplayWithoutCluster(t *testing.T) {
	noCluster(t)

	payload := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(payload, nil, 0o644))

	cfg := NewConfig(true, writeConfigDir(t, ""))
	cfg.PayloadFile = payload
	cfg.KeepStaged = true

	var logs bytes.Buffer
	application, err := NewApplication(cfg, &logs)
	require.NoError(t, err)

	assert.IsType(t, watch.FileSource{}, application.services.Source)
	assert.True(t, cfg.SiteWatcherConfig.Staging.Keep)

	report, err := application.RunOnce(context.Background(), "7", "siteconfigs")
	require.NoError(t, err)
	assert.Equal(t, "7", report.ResourceVersion)
	assert.Contains(t, logs.String(), "No changes")
	assert.Equal(t, int64(1), application.Metrics().TotalSuccesses)
}

func TestNewApplication_WatchNeedsCluster(t *testing.T) {
	noCluster(t)

	_, err := NewApplication(NewConfig(false, writeConfigDir(t, "")), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster configuration")
}

func TestNewApplication_InvalidConfig(t *testing.T) {
	dir := writeConfigDir(t, "reconcile:\n  parallelism: -1\n")

	_, err := NewApplication(NewConfig(false, dir), &bytes.Buffer{})
	require.Error(t, err)

	var cfgErr config.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestFollow_StopsOnCancel(t *testing.T) {
	noCluster(t)

	payload := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(payload, nil, 0o644))

	cfg := NewConfig(false, writeConfigDir(t, "watch:\n  pollInterval: 1ms\n"))
	cfg.PayloadFile = payload
	application, err := NewApplication(cfg, &bytes.Buffer{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	batches := 0
	last, err := application.Follow(ctx, "3", "siteconfigs", func(r *batch.Report, err error) {
		batches++
		if batches == 3 {
			cancel()
		}
	})

	require.NoError(t, err)
	assert.Equal(t, "3", last)
	assert.Equal(t, 3, batches)
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(true, "/etc/sitewatcher")
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/etc/sitewatcher", cfg.ConfigPath)
	assert.Equal(t, logging.FormatText, cfg.LogFormat)
	assert.Nil(t, cfg.SiteWatcherConfig)
}
