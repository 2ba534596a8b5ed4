// Package watch regenerates files as they change on disk.
//
// A Watcher subscribes to the processed directories with fsnotify,
// collects the supported files written during a quiet period and hands
// them to a Regenerator in one batch.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/logger"
	"github.com/teranos/annogen/manager"
)

// DefaultDebounce is the quiet period after the last change of a burst.
const DefaultDebounce = 300 * time.Millisecond

// Regenerator processes a batch of changed files.
type Regenerator interface {
	Process(ctx context.Context, files []string) manager.Result
}

// Options selects what is watched.
type Options struct {
	Directories        []string
	Files              []string
	Extensions         []string
	IgnoredDirectories []string // base names
	IgnoredFiles       []string // base name glob patterns
	// SkipDirs are never watched, typically the output directory.
	SkipDirs  []string
	Recursive bool
	Debounce  time.Duration
}

// OptionsFrom derives watch options from the options of a run.
func OptionsFrom(opts manager.Options, debounce time.Duration) Options {
	return Options{
		Directories:        opts.Directories,
		Files:              opts.Files,
		Extensions:         opts.Extensions,
		IgnoredDirectories: opts.IgnoredDirectories,
		IgnoredFiles:       opts.IgnoredFiles,
		SkipDirs:           []string{opts.Codegen.OutputDir},
		Recursive:          opts.Recursive,
		Debounce:           debounce,
	}
}

// Watcher runs a Regenerator on every burst of file changes.
type Watcher struct {
	opts   Options
	gen    Regenerator
	fsw    *fsnotify.Watcher
	logger *zap.SugaredLogger

	mu       sync.Mutex
	dirs     map[string]bool // directories whose supported files are accepted
	files    map[string]bool // explicitly configured files
	onResult []func(manager.Result)
}

// New subscribes to the configured directories and files.
func New(gen Regenerator, opts Options, log *zap.SugaredLogger) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	w := &Watcher{
		opts:   opts,
		gen:    gen,
		fsw:    fsw,
		logger: logger.ComponentLogger(log, "watch"),
		dirs:   make(map[string]bool),
		files:  make(map[string]bool),
	}
	w.opts.SkipDirs = make([]string, 0, len(opts.SkipDirs))
	for _, dir := range opts.SkipDirs {
		if abs, err := filepath.Abs(dir); err == nil {
			w.opts.SkipDirs = append(w.opts.SkipDirs, abs)
		}
	}

	for _, dir := range opts.Directories {
		if err := w.addTree(filepath.Clean(dir)); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	for _, file := range opts.Files {
		file = filepath.Clean(file)
		w.files[file] = true
		if err := fsw.Add(filepath.Dir(file)); err != nil {
			fsw.Close()
			return nil, errors.Wrapf(err, "failed to watch %s", file)
		}
	}
	return w, nil
}

// OnResult registers fn to receive the result of every regeneration.
func (w *Watcher) OnResult(fn func(manager.Result)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onResult = append(w.onResult, fn)
}

// Watched returns the watched directories, sorted.
func (w *Watcher) Watched() []string {
	list := w.fsw.WatchList()
	slices.Sort(list)
	return list
}

// Close releases the watcher without running it.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run watches until ctx is cancelled. Cancellation is not an error.
func (w *Watcher) Run(ctx context.Context) error {
	changes := make(chan string)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return w.fsw.Close()
	})
	g.Go(func() error {
		return w.events(ctx, changes)
	})
	g.Go(func() error {
		return w.debounce(ctx, changes)
	})

	w.logger.Infow("Watching for changes",
		logger.FieldCount, len(w.Watched()),
		"debounce_ms", w.opts.Debounce.Milliseconds())
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// events forwards accepted file changes until the fsnotify watcher closes.
func (w *Watcher) events(ctx context.Context, changes chan<- string) error {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			for _, path := range w.handle(event) {
				select {
				case changes <- path:
				case <-ctx.Done():
					return nil
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("Watcher error", logger.FieldError, err)
		}
	}
}

// handle returns the files an event makes stale.
func (w *Watcher) handle(event fsnotify.Event) []string {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return nil
	}
	path := filepath.Clean(event.Name)

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return w.newDirectory(path)
		}
	}
	if w.accept(path) {
		return []string{path}
	}
	return nil
}

// newDirectory starts watching a directory created below a watched one and
// returns the supported files already written into it.
func (w *Watcher) newDirectory(path string) []string {
	w.mu.Lock()
	parentWatched := w.dirs[filepath.Dir(path)]
	w.mu.Unlock()
	if !parentWatched || !w.opts.Recursive || w.skipped(path) {
		return nil
	}
	if err := w.addTree(path); err != nil {
		w.logger.Warnw("Failed to watch new directory", logger.FieldFile, path, logger.FieldError, err)
		return nil
	}

	var files []string
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err == nil && d.Type().IsRegular() && w.accept(p) {
			files = append(files, p)
		}
		return nil
	})
	return files
}

// addTree watches root and, when recursive, every non-ignored directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "failed to walk %s", path)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (!w.opts.Recursive || w.skipped(path)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return errors.Wrapf(err, "failed to watch %s", path)
		}
		w.mu.Lock()
		w.dirs[path] = true
		w.mu.Unlock()
		return nil
	})
}

func (w *Watcher) skipped(dir string) bool {
	if slices.Contains(w.opts.IgnoredDirectories, filepath.Base(dir)) {
		return true
	}
	abs, err := filepath.Abs(dir)
	return err == nil && slices.Contains(w.opts.SkipDirs, abs)
}

func (w *Watcher) accept(path string) bool {
	w.mu.Lock()
	explicit := w.files[path]
	inTree := w.dirs[filepath.Dir(path)]
	w.mu.Unlock()
	if explicit {
		return true
	}
	if !inTree {
		return false
	}

	base := filepath.Base(path)
	for _, pattern := range w.opts.IgnoredFiles {
		if ok, _ := filepath.Match(pattern, base); ok {
			return false
		}
	}
	ext := filepath.Ext(path)
	for _, e := range w.opts.Extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// debounce batches changes and regenerates once no change arrived for the
// debounce period.
func (w *Watcher) debounce(ctx context.Context, changes <-chan string) error {
	pending := make(map[string]bool)
	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-changes:
			pending[path] = true
			timer.Reset(w.opts.Debounce)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := make([]string, 0, len(pending))
			for path := range pending {
				batch = append(batch, path)
			}
			slices.Sort(batch)
			clear(pending)
			w.regenerate(ctx, batch)
		}
	}
}

func (w *Watcher) regenerate(ctx context.Context, batch []string) {
	w.logger.Infow("Regenerating changed files", logger.FieldCount, len(batch), "files", batch)
	res := w.gen.Process(ctx, batch)

	if res.Success {
		w.logger.Infow("Regeneration succeeded",
			logger.FieldCount, len(res.ParsedFiles),
			"written", len(res.Written),
			logger.FieldDurationMS, res.Duration.Milliseconds())
	} else {
		w.logger.Errorw("Regeneration failed",
			"failed_files", res.Failed,
			"diagnostics", len(res.Diagnostics),
			logger.FieldDurationMS, res.Duration.Milliseconds())
	}

	w.mu.Lock()
	callbacks := slices.Clone(w.onResult)
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn(res)
	}
}
