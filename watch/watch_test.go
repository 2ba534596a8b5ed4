package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	antest "github.com/teranos/annogen/internal/testing"
	"github.com/teranos/annogen/manager"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *recorder) Process(_ context.Context, files []string) manager.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, slices.Clone(files))
	return manager.Result{Success: true, ParsedFiles: files}
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []string
	for _, b := range r.batches {
		all = append(all, b...)
	}
	return all
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func options(root string) Options {
	return Options{
		Directories:        []string{filepath.Join(root, "src")},
		Extensions:         []string{".hpp"},
		IgnoredDirectories: []string{"Libs"},
		IgnoredFiles:       []string{"*Test.hpp"},
		SkipDirs:           []string{filepath.Join(root, "src", "Generated")},
		Recursive:          true,
		Debounce:           50 * time.Millisecond,
	}
}

// start runs w until the test ends. Watch goroutines log after test
// assertions finish, so the logger is a no-op.
func start(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestWatchedDirectories(t *testing.T) {
	root := antest.WriteTree(t, t.TempDir(), map[string]string{
		"src/Light.hpp":           "",
		"src/Render/Mesh.hpp":     "",
		"src/Libs/Vendor.hpp":     "",
		"src/Generated/Out.hpp":   "",
		"elsewhere/Unwatched.hpp": "",
	})

	w, err := New(&recorder{}, options(root), zap.NewNop().Sugar())
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, []string{
		filepath.Join(root, "src"),
		filepath.Join(root, "src", "Render"),
	}, w.Watched())

	opts := options(root)
	opts.Recursive = false
	flat, err := New(&recorder{}, opts, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer flat.Close()
	assert.Equal(t, []string{filepath.Join(root, "src")}, flat.Watched())
}

func TestNewFailsOnMissingDirectory(t *testing.T) {
	opts := options(t.TempDir())
	_, err := New(&recorder{}, opts, nil)
	assert.Error(t, err)
}

func TestBurstIsRegeneratedOnce(t *testing.T) {
	root := antest.WriteTree(t, t.TempDir(), map[string]string{"src/Light.hpp": "", "src/Mesh.hpp": ""})
	rec := &recorder{}
	w, err := New(rec, options(root), zap.NewNop().Sugar())
	require.NoError(t, err)

	var results []manager.Result
	var mu sync.Mutex
	w.OnResult(func(res manager.Result) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, res)
	})
	start(t, w)

	light := filepath.Join(root, "src", "Light.hpp")
	mesh := filepath.Join(root, "src", "Mesh.hpp")
	// Let the watcher subscribe before writing
	time.Sleep(50 * time.Millisecond)
	for i := 0; i < 5; i++ {
		write(t, light, "// edit")
	}
	write(t, mesh, "// edit")
	write(t, filepath.Join(root, "src", "notes.txt"), "ignored")
	write(t, filepath.Join(root, "src", "LightTest.hpp"), "ignored")
	write(t, filepath.Join(root, "src", "Libs", "Vendor.hpp"), "ignored")
	write(t, filepath.Join(root, "src", "Generated", "Light.generated.hpp"), "ignored")

	require.Eventually(t, func() bool {
		seen := rec.seen()
		return slices.Contains(seen, light) && slices.Contains(seen, mesh)
	}, 5*time.Second, 10*time.Millisecond)

	// Each file appears at most once per batch and nothing ignored shows up
	rec.mu.Lock()
	for _, batch := range rec.batches {
		assert.True(t, slices.IsSorted(batch))
		assert.Equal(t, len(batch), len(slices.Compact(slices.Clone(batch))))
		for _, path := range batch {
			assert.Contains(t, []string{light, mesh}, path)
		}
	}
	rec.mu.Unlock()

	mu.Lock()
	assert.NotEmpty(t, results)
	mu.Unlock()
}

func TestNewDirectoriesAreWatched(t *testing.T) {
	root := antest.WriteTree(t, t.TempDir(), map[string]string{"src/Light.hpp": ""})
	rec := &recorder{}
	w, err := New(rec, options(root), zap.NewNop().Sugar())
	require.NoError(t, err)
	start(t, w)
	time.Sleep(50 * time.Millisecond)

	nested := filepath.Join(root, "src", "Scene", "Camera.hpp")
	write(t, nested, "// new")

	require.Eventually(t, func() bool {
		return slices.Contains(rec.seen(), nested)
	}, 5*time.Second, 10*time.Millisecond)

	// Later writes in the new directory are seen through its own watch
	before := rec.count()
	write(t, nested, "// edited")
	require.Eventually(t, func() bool {
		return rec.count() > before
	}, 5*time.Second, 10*time.Millisecond)
}

func TestExplicitFiles(t *testing.T) {
	root := antest.WriteTree(t, t.TempDir(), map[string]string{
		"tools/Script.h": "",
		"tools/Other.h":  "",
	})
	rec := &recorder{}
	opts := Options{
		Files:      []string{filepath.Join(root, "tools", "Script.h")},
		Extensions: []string{".h"},
		Debounce:   20 * time.Millisecond,
	}
	w, err := New(rec, opts, zap.NewNop().Sugar())
	require.NoError(t, err)
	start(t, w)
	time.Sleep(50 * time.Millisecond)

	script := filepath.Join(root, "tools", "Script.h")
	write(t, filepath.Join(root, "tools", "Other.h"), "// not configured")
	write(t, script, "// edit")

	require.Eventually(t, func() bool {
		return slices.Contains(rec.seen(), script)
	}, 5*time.Second, 10*time.Millisecond)
	assert.NotContains(t, rec.seen(), filepath.Join(root, "tools", "Other.h"))
}

func TestOptionsFrom(t *testing.T) {
	mopts := manager.DefaultOptions()
	mopts.Directories = []string{"src"}
	opts := OptionsFrom(mopts, time.Second)

	assert.Equal(t, []string{"src"}, opts.Directories)
	assert.Equal(t, []string{".hpp"}, opts.Extensions)
	assert.Equal(t, []string{"Generated"}, opts.SkipDirs)
	assert.Equal(t, time.Second, opts.Debounce)
	assert.True(t, opts.Recursive)
}
