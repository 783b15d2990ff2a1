package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvPath(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p, ok := <-ch:
		require.True(t, ok, "path channel closed early")
		return p
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watcher event")
		return ""
	}
}

func TestStartWatcher_RequiresRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	require.Error(t, err)
}

func TestStartWatcher_EmitsCreatedTabularFile(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}})
	require.NoError(t, err)

	want := filepath.Join(dir, "listings.csv")
	require.NoError(t, os.WriteFile(want, []byte("title\nGo Dev\n"), 0o644))

	assert.Equal(t, want, recvPath(t, paths))
}

func TestStartWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case p := <-paths:
		t.Fatalf("unexpected event for %s", p)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestStartWatcher_InitialScanEmitsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "backlog.xlsx")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}, InitialScan: true})
	require.NoError(t, err)

	assert.Equal(t, existing, recvPath(t, paths))
}

func TestStartWatcher_WatchesExistingSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "incoming")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}})
	require.NoError(t, err)

	want := filepath.Join(sub, "batch.csv")
	require.NoError(t, os.WriteFile(want, []byte("title\n"), 0o644))

	assert.Equal(t, want, recvPath(t, paths))
}

func TestStartWatcher_DebounceCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	target := filepath.Join(dir, "burst.csv")
	require.NoError(t, os.WriteFile(target, []byte("a\n"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("a\nb\n"), 0o644))

	assert.Equal(t, target, recvPath(t, paths))
	select {
	case p := <-paths:
		t.Fatalf("burst not coalesced, got second event for %s", p)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStartWatcher_ClosesChannelsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	paths, errs, err := StartWatcher(ctx, WatchConfig{Roots: []string{t.TempDir()}})
	require.NoError(t, err)

	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-paths:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	_, ok := <-errs
	assert.False(t, ok)
}
