// Package manager drives a generation run: it discovers the files to
// process, fans parse and generate tasks for every pass out over a task
// graph and merges their results into one aggregate Result.
package manager

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/annogen/codegen"
	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/genfile"
	"github.com/teranos/annogen/logger"
	"github.com/teranos/annogen/parser"
	"github.com/teranos/annogen/pulse"
	"github.com/teranos/annogen/pulse/taskgraph"
)

// Result is the aggregate outcome of a run.
type Result struct {
	// Success is the AND of every pass of every file.
	Success  bool
	Duration time.Duration
	// ParsedFiles is the union of the files parsed by any pass.
	ParsedFiles   []string
	UpToDateFiles []string
	// Written lists artifacts whose content changed on disk.
	Written     []string
	Diagnostics []error
	// Failed lists files with at least one failed pass.
	Failed []string
}

// PassResult is the outcome of one parse and generate cycle of one file.
type PassResult struct {
	File     string
	Pass     int
	Parse    parser.Result
	Generate codegen.Result
}

// Success reports whether both halves of the pass succeeded.
func (r PassResult) Success() bool {
	return r.Parse.Success && r.Generate.Success
}

// Manager runs generation over a set of files.
type Manager struct {
	opts     Options
	parser   *parser.FileParser
	unit     *codegen.Unit
	writer   codegen.ArtifactWriter
	progress pulse.ProgressEmitter
	logger   *zap.SugaredLogger
	// skipDirs are never walked in addition to the output directory.
	skipDirs []string
}

// New returns a manager parsing through frontend and generating with the
// rules of group. A nil logger disables logging.
func New(frontend parser.Frontend, group *codegen.Group, opts Options, log *zap.SugaredLogger) (*Manager, error) {
	if frontend == nil {
		return nil, errors.AssertionFailedf("manager needs a frontend")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	log = logger.ComponentLogger(log, "manager")
	writer := genfile.New(log)
	return &Manager{
		opts:     opts,
		parser:   parser.New(frontend, opts.Parser, log),
		unit:     codegen.NewUnit(group, opts.Codegen, writer, log),
		writer:   writer,
		progress: pulse.NopEmitter{},
		logger:   log,
	}, nil
}

// SetProgress reports run progress to e.
func (m *Manager) SetProgress(e pulse.ProgressEmitter) {
	m.progress = pulse.OrNop(e)
}

// SetWriter replaces the artifact writer used by later runs.
func (m *Manager) SetWriter(w codegen.ArtifactWriter) {
	m.writer = w
	m.unit = m.unit.WithWriter(w)
}

// Options returns the options of the manager.
func (m *Manager) Options() Options {
	return m.opts
}

// Run discovers the files to process, writes the entity macros file and
// generates every file that is not up to date. The error is reserved for
// setup failures; per-file problems are reported in the Result.
func (m *Manager) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	m.progress.EmitStage("discover", "Looking for annotated files")

	sel, err := m.Discover()
	if err != nil {
		m.progress.EmitError("discover", err)
		return Result{}, err
	}
	m.logger.Debugw("Discovered files",
		logger.FieldCount, len(sel.ToProcess),
		"up_to_date", len(sel.UpToDate))

	written, err := m.WriteEntityMacros()
	if err != nil {
		m.progress.EmitError("setup", err)
		return Result{}, err
	}

	res := m.Process(ctx, sel.ToProcess)
	res.UpToDateFiles = sel.UpToDate
	if written != "" {
		res.Written = append([]string{written}, res.Written...)
	}
	res.Duration = time.Since(start)
	m.summarize(res)
	return res, nil
}

// WriteEntityMacros writes the file defining the annotation macros away for
// regular compilation. It returns the path when the file changed.
func (m *Manager) WriteEntityMacros() (string, error) {
	if m.opts.EntityMacrosFile == "" {
		return "", nil
	}
	path := filepath.Join(m.opts.Codegen.OutputDir, m.opts.EntityMacrosFile)
	content := codegen.EntityMacros(m.opts.AnnotationMacros, m.opts.BodyMacro)
	changed, err := m.writer.WriteFile(path, []byte(content))
	if err != nil {
		return "", errors.Wrap(err, "failed to write entity macros")
	}
	if changed {
		return path, nil
	}
	return "", nil
}

// Process parses and generates files, Iterations passes each. Pass i of a
// file starts only after pass i-1 of that file has written its artifacts;
// different files progress independently.
func (m *Manager) Process(ctx context.Context, files []string) Result {
	start := time.Now()
	if len(files) == 0 {
		return Result{Success: true, Duration: time.Since(start)}
	}

	pool := taskgraph.New(m.opts.Workers, m.logger)
	counter := pulse.NewCounter(m.progress, len(files)*m.opts.Iterations)
	m.progress.EmitStage("generate", fmt.Sprintf("Generating %d files", len(files)))

	passes := make([][]taskgraph.Handle, len(files))
	for i, file := range files {
		var prev []taskgraph.Handle
		for pass := 0; pass < m.opts.Iterations; pass++ {
			h, err := m.submitPass(pool, file, pass, counter, prev...)
			if err != nil {
				// Submission only fails on a closed pool or unknown handle.
				pool.Close()
				return Result{
					Diagnostics: []error{errors.Wrapf(err, "failed to schedule %s", file)},
					Duration:    time.Since(start),
				}
			}
			passes[i] = append(passes[i], h)
			prev = []taskgraph.Handle{h}
		}
	}

	if err := pool.Run(ctx); err != nil {
		return Result{Diagnostics: []error{err}, Duration: time.Since(start)}
	}

	res := Result{Success: true}
	for i, file := range files {
		ok := true
		for pass, h := range passes[i] {
			pr, err := taskgraph.ResultOf[PassResult](pool, h)
			if err != nil {
				pr = PassResult{File: file, Pass: pass}
				pr.Generate.Diagnostics = []error{errors.Wrapf(err, "pass %d of %s", pass, file)}
			}
			res.merge(pr)
			ok = ok && pr.Success()
		}
		if !ok {
			res.Failed = append(res.Failed, file)
		}
	}

	stats := pool.Stats()
	m.logger.Debugw("Task graph finished",
		logger.FieldTotalCount, stats.Submitted,
		"failed_tasks", stats.Failed,
		"busy_ms", stats.Busy.Milliseconds())
	res.Duration = time.Since(start)
	return res
}

// submitPass adds the parse and generate tasks of one pass and returns the
// generate task. Each task works on its own parser and unit copies.
func (m *Manager) submitPass(pool *taskgraph.Pool, file string, pass int, counter *pulse.Counter, after ...taskgraph.Handle) (taskgraph.Handle, error) {
	name := fmt.Sprintf("%s#%d", filepath.Base(file), pass)
	fp := m.parser.Clone()
	unit := m.unit.Clone()

	parse, err := taskgraph.Submit(pool, "parse "+name, func(ctx context.Context) (parser.Result, error) {
		return fp.Parse(ctx, file), nil
	}, after...)
	if err != nil {
		return 0, err
	}

	return taskgraph.Submit(pool, "generate "+name, func(ctx context.Context) (PassResult, error) {
		defer counter.Done(file)
		pr := PassResult{File: file, Pass: pass}
		parsed, err := taskgraph.ResultOf[parser.Result](pool, parse)
		if err != nil {
			return pr, err
		}
		pr.Parse = parsed
		if !parsed.Success {
			pr.Generate = codegen.Result{File: file}
			return pr, nil
		}
		pr.Generate = unit.Generate(ctx, parsed.Model)
		return pr, nil
	}, parse)
}

func (r *Result) merge(pr PassResult) {
	r.Success = r.Success && pr.Success()
	if !slices.Contains(r.ParsedFiles, pr.File) {
		r.ParsedFiles = append(r.ParsedFiles, pr.File)
	}
	r.Diagnostics = append(r.Diagnostics, pr.Parse.Diagnostics...)
	r.Diagnostics = append(r.Diagnostics, pr.Generate.Diagnostics...)
	for _, w := range pr.Generate.Written {
		if !slices.Contains(r.Written, w) {
			r.Written = append(r.Written, w)
		}
	}
}

// Summary returns the counters of r as reported to progress emitters.
func (r Result) Summary() map[string]interface{} {
	return map[string]interface{}{
		"processed":   len(r.ParsedFiles),
		"up_to_date":  len(r.UpToDateFiles),
		"written":     len(r.Written),
		"failed":      len(r.Failed),
		"diagnostics": len(r.Diagnostics),
		"duration_ms": r.Duration.Milliseconds(),
	}
}

// summarize logs the single summary line of a run.
func (m *Manager) summarize(res Result) {
	m.progress.EmitComplete(res.Summary())

	fields := []interface{}{
		logger.FieldCount, len(res.ParsedFiles),
		"up_to_date", len(res.UpToDateFiles),
		"written", len(res.Written),
		"diagnostics", len(res.Diagnostics),
		logger.FieldDurationMS, res.Duration.Milliseconds(),
	}
	if res.Success {
		m.logger.Infow("Generation succeeded", append(fields, logger.FieldStatus, "ok")...)
		return
	}
	m.logger.Errorw("Generation failed", append(fields, logger.FieldStatus, "failed", "failed_files", res.Failed)...)
}
