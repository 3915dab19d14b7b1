package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for FileWatcher:
// - NewFileWatcher creates watcher successfully with valid directories
// - NewFileWatcher returns error with invalid directory or ignore glob
// - Single file change fires callback after debounce
// - Rapid changes to several files are batched into one sorted callback
// - Debouncing coalesces repeated writes to one file
// - Pause/Resume behavior (accumulate during pause, fire on resume)
// - File deleted triggers callback
// - Directory added triggers recursive watch
// - Accept filter drops uninteresting files
// - Ignore globs drop files and skip directories
// - Stop() is idempotent, also before Start

func rubyOnly(path string) bool { return strings.HasSuffix(path, ".rb") }

// recorder collects callback batches.
type recorder struct {
	mu      sync.Mutex
	batches [][]string
	called  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{called: make(chan struct{}, 16)}
}

func (r *recorder) callback(files []string) {
	r.mu.Lock()
	r.batches = append(r.batches, files)
	r.mu.Unlock()
	r.called <- struct{}{}
}

func (r *recorder) wait(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-r.called:
	case <-time.After(timeout):
		t.Fatal("Callback not called after timeout")
	}
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.batches))
	copy(out, r.batches)
	return out
}

func (r *recorder) all() []string {
	var files []string
	for _, b := range r.snapshot() {
		files = append(files, b...)
	}
	return files
}

func startWatcher(t *testing.T, dir string, opts Options) (FileWatcher, *recorder) {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = 150 * time.Millisecond
	}
	w, err := NewFileWatcher([]string{dir}, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	rec := newRecorder()
	require.NoError(t, w.Start(context.Background(), rec.callback))
	// Wait for watcher to initialize
	time.Sleep(100 * time.Millisecond)
	return w, rec
}

func TestNewFileWatcher_Success(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{t.TempDir()}, Options{Accept: rubyOnly})
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NoError(t, w.Stop())
}

func TestNewFileWatcher_InvalidDirectory(t *testing.T) {
	t.Parallel()

	nonexistent := filepath.Join(t.TempDir(), "nonexistent")
	w, err := NewFileWatcher([]string{nonexistent}, Options{})
	assert.Error(t, err)
	assert.Nil(t, w)
}

func TestNewFileWatcher_InvalidIgnorePattern(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{t.TempDir()}, Options{Ignore: []string{"{unclosed"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ignore pattern")
	assert.Nil(t, w)
}

func TestFileWatcher_SingleFileChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, rec := startWatcher(t, dir, Options{Accept: rubyOnly})

	file := filepath.Join(dir, "cart.rb")
	require.NoError(t, os.WriteFile(file, []byte("class Cart\nend\n"), 0644))

	rec.wait(t, 2*time.Second)
	assert.Equal(t, []string{file}, rec.snapshot()[0])
}

func TestFileWatcher_MultipleFileChangesBatchedAndSorted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, rec := startWatcher(t, dir, Options{Accept: rubyOnly, Debounce: 300 * time.Millisecond})

	c := filepath.Join(dir, "c.rb")
	a := filepath.Join(dir, "a.rb")
	b := filepath.Join(dir, "b.rb")
	for _, f := range []string{c, a, b} {
		require.NoError(t, os.WriteFile(f, []byte("module M\nend\n"), 0644))
		time.Sleep(30 * time.Millisecond) // Less than debounce time
	}

	rec.wait(t, 2*time.Second)
	batches := rec.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, []string{a, b, c}, batches[0])
}

func TestFileWatcher_Debouncing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, rec := startWatcher(t, dir, Options{Accept: rubyOnly, Debounce: 200 * time.Millisecond})

	file := filepath.Join(dir, "cart.rb")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(file, []byte(strings.Repeat("# v\n", i+1)), 0644))
		time.Sleep(50 * time.Millisecond)
	}

	rec.wait(t, 2*time.Second)
	// Wait a bit more to ensure no additional callbacks
	time.Sleep(500 * time.Millisecond)

	batches := rec.snapshot()
	require.Len(t, batches, 1, "Should have exactly one callback due to debouncing")
	assert.Equal(t, []string{file}, batches[0], "same file appears once per batch")
}

func TestFileWatcher_PauseResume(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, rec := startWatcher(t, dir, Options{Accept: rubyOnly})

	w.Pause()

	paused := filepath.Join(dir, "paused.rb")
	require.NoError(t, os.WriteFile(paused, []byte("class Paused; end\n"), 0644))

	// Wait beyond debounce period - callback should NOT fire
	time.Sleep(600 * time.Millisecond)
	assert.Empty(t, rec.snapshot(), "No callbacks should fire while paused")

	w.Resume()
	rec.wait(t, 500*time.Millisecond)
	assert.Contains(t, rec.all(), paused)
}

func TestFileWatcher_FileDeleted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "gone.rb")
	require.NoError(t, os.WriteFile(file, []byte("module Gone; end\n"), 0644))

	_, rec := startWatcher(t, dir, Options{Accept: rubyOnly})
	require.NoError(t, os.Remove(file))

	rec.wait(t, 2*time.Second)
	assert.Contains(t, rec.all(), file)
}

func TestFileWatcher_DirectoryAdded(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, rec := startWatcher(t, dir, Options{Accept: rubyOnly})

	sub := filepath.Join(dir, "lib", "models")
	require.NoError(t, os.MkdirAll(sub, 0755))
	// Give the watcher time to add the new directory
	time.Sleep(300 * time.Millisecond)

	file := filepath.Join(sub, "user.rb")
	require.NoError(t, os.WriteFile(file, []byte("class User; end\n"), 0644))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case <-rec.called:
			if contains(rec.all(), file) {
				return
			}
		case <-deadline:
			t.Fatalf("file in new directory never reported, got %v", rec.all())
		}
	}
}

func contains(files []string, want string) bool {
	for _, f := range files {
		if f == want {
			return true
		}
	}
	return false
}

func TestFileWatcher_AcceptFilter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, rec := startWatcher(t, dir, Options{Accept: rubyOnly})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))
	rb := filepath.Join(dir, "kept.rb")
	require.NoError(t, os.WriteFile(rb, []byte("module Kept; end\n"), 0644))

	rec.wait(t, 2*time.Second)
	assert.Equal(t, []string{rb}, rec.all())
}

func TestFileWatcher_IgnorePatterns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	vendor := filepath.Join(dir, "vendor")
	require.NoError(t, os.MkdirAll(vendor, 0755))

	_, rec := startWatcher(t, dir, Options{
		Accept: rubyOnly,
		Ignore: []string{"**/vendor/**", "**/*_spec.rb"},
	})

	require.NoError(t, os.WriteFile(filepath.Join(vendor, "gem.rb"), []byte("module Gem; end\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cart_spec.rb"), []byte("describe Cart\n"), 0644))
	kept := filepath.Join(dir, "cart.rb")
	require.NoError(t, os.WriteFile(kept, []byte("class Cart; end\n"), 0644))

	rec.wait(t, 2*time.Second)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, []string{kept}, rec.all())
}

func TestFileWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{t.TempDir()}, Options{})
	require.NoError(t, err)

	// Never started
	require.NoError(t, w.Stop())
	assert.NotPanics(t, func() { _ = w.Stop() })

	started, err := NewFileWatcher([]string{t.TempDir()}, Options{})
	require.NoError(t, err)
	require.NoError(t, started.Start(context.Background(), func([]string) {}))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = started.Stop()
		}()
	}
	wg.Wait()
}

func TestFileWatcher_ContextCancellation(t *testing.T) {
	t.Parallel()

	w, err := NewFileWatcher([]string{t.TempDir()}, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx, func([]string) {}))
	cancel()

	done := make(chan struct{})
	go func() {
		_ = w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() hung after context cancellation")
	}
}
