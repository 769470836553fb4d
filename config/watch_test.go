package config_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svckit/svckit/config"
)

func waitReload(t *testing.T, reloaded <-chan error) {
	t.Helper()
	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.json", `{"port": 1}`)

	c, err := config.Load(nil, config.WithFile(path))
	require.NoError(t, err)
	require.Equal(t, 1, c.Int("port"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan error, 8)
	require.NoError(t, c.Watch(ctx, 20*time.Millisecond, func(_ *config.Config, err error) {
		reloaded <- err
	}))

	require.NoError(t, os.WriteFile(path, []byte(`{"port": 2}`), 0o644))
	waitReload(t, reloaded)
	assert.Equal(t, 2, c.Int("port"))
}

func TestWatchIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.json", `{"port": 1}`)

	c, err := config.Load(nil, config.WithFile(path))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan error, 8)
	require.NoError(t, c.Watch(ctx, 20*time.Millisecond, func(_ *config.Config, err error) {
		reloaded <- err
	}))

	writeFile(t, dir, "scratch.txt", "noise")
	select {
	case <-reloaded:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatchKeepsOldTreeOnBadReload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.json", `{"port": 1}`)

	c, err := config.Load(nil, config.WithFile(path))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan error, 8)
	require.NoError(t, c.Watch(ctx, 20*time.Millisecond, func(_ *config.Config, err error) {
		reloaded <- err
	}))

	require.NoError(t, os.WriteFile(path, []byte(`{"port": `), 0o644))
	select {
	case err := <-reloaded:
		assert.ErrorIs(t, err, config.ErrLoadFailed)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	assert.Equal(t, 1, c.Int("port"), "previous values stay live after a failed reload")
}
