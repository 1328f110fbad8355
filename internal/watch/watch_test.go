package watch

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcher_RebuildsOnChange(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.js")
	writeFile(t, src, "let a = 1;")

	var calls atomic.Int32
	w, err := NewWatcher([]string{src}, func() error {
		calls.Add(1)
		return nil
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, w.Start())
	assert.Equal(t, int32(1), calls.Load(), "start runs the callback once")

	writeFile(t, src, "let a = 2;")

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.js")
	writeFile(t, src, "")

	var calls atomic.Int32
	w, err := NewWatcher([]string{src}, func() error {
		calls.Add(1)
		return nil
	}, WithDebounce(200*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	require.NoError(t, w.Start())

	for i := 0; i < 5; i++ {
		writeFile(t, src, "x")
	}

	assert.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWatcher_IgnoresUnlistedFiles(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.js")
	writeFile(t, src, "")

	var calls atomic.Int32
	w, err := NewWatcher([]string{src}, func() error {
		calls.Add(1)
		return nil
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	require.NoError(t, w.Start())

	writeFile(t, filepath.Join(dir, "bundle.js"), "output")

	assert.Never(t, func() bool { return calls.Load() > 1 }, 200*time.Millisecond, 20*time.Millisecond)
}

func TestWatcher_PicksUpCreatedFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "later.js")

	var calls atomic.Int32
	w, err := NewWatcher([]string{src}, func() error {
		calls.Add(1)
		return nil
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	require.NoError(t, w.Start())

	writeFile(t, src, "class Later {}")

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_SkipsMissingDirectories(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "main.js")
	absent := filepath.Join(dir, "nope", "gone.js")

	w, err := NewWatcher([]string{present, absent}, func() error { return nil })
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	assert.Len(t, w.Dirs(), 1)
}

func TestWatcher_InitialCallbackError(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher([]string{filepath.Join(dir, "a.js")}, func() error {
		return errors.New("boom")
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	err = w.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial callback failed")
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher([]string{filepath.Join(dir, "a.js")}, func() error { return nil })
	require.NoError(t, err)
	require.NoError(t, w.Start())

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
