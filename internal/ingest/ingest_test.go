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

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.PNG"))
	touch(t, filepath.Join(root, "a.jpg"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "nested", "c.jpeg"))
	touch(t, filepath.Join(root, ".cache", "d.png"))
	touch(t, filepath.Join(root, ".e.png"))

	got, err := Discover(root, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.jpg"),
		filepath.Join(root, "b.PNG"),
		filepath.Join(root, "nested", "c.jpeg"),
	}, got)

	all, err := Discover(root, false)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestDiscoverErrors(t *testing.T) {
	_, err := Discover("  ", false)
	assert.Error(t, err)

	_, err = Discover(filepath.Join(t.TempDir(), "missing"), false)
	assert.Error(t, err)
}

func TestWatchEmitsInitialAndNewFiles(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "old.png")
	touch(t, existing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := Watch(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	assert.Equal(t, existing, next(t, events))

	fresh := filepath.Join(root, "new.jpg")
	touch(t, filepath.Join(root, "ignored.txt"))
	touch(t, fresh)
	assert.Equal(t, fresh, next(t, events))

	cancel()
	for range events {
	}
}

func TestWatchFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := Watch(ctx, WatchConfig{Roots: []string{root}}, nil)
	require.NoError(t, err)

	sub := filepath.Join(root, "2024")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// give the watcher a moment to register the new directory
	time.Sleep(100 * time.Millisecond)
	p := filepath.Join(sub, "scan.png")
	touch(t, p)
	assert.Equal(t, p, next(t, events))
}

func TestWatchRequiresRoots(t *testing.T) {
	_, _, err := Watch(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}

func next(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("no event")
		return ""
	}
}
