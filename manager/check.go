package manager

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/genfile"
	"github.com/teranos/annogen/logger"
)

// CheckResult is the outcome of a check run.
type CheckResult struct {
	Result
	// OutOfDate lists artifacts of the output directory that are missing or
	// differ from freshly generated ones.
	OutOfDate []string
}

// UpToDate reports whether generation succeeded and every artifact matches.
func (r CheckResult) UpToDate() bool {
	return r.Success && len(r.OutOfDate) == 0
}

// Check generates every file into a temporary directory and compares the
// artifacts with the output directory. Nothing in the output directory is
// modified.
func (m *Manager) Check(ctx context.Context) (CheckResult, error) {
	tmp, err := os.MkdirTemp("", "annogen-check-")
	if err != nil {
		return CheckResult{}, errors.Mark(errors.Wrap(err, "failed to create check directory"), errors.ErrIO)
	}
	defer os.RemoveAll(tmp)

	opts := m.opts
	opts.Codegen.OutputDir = tmp
	opts.Force = true
	shadow := &Manager{
		opts:     opts,
		parser:   m.parser,
		unit:     m.unit.WithSettings(opts.Codegen),
		writer:   m.writer,
		progress: m.progress,
		logger:   m.logger,
		skipDirs: append(slices.Clone(m.skipDirs), m.opts.Codegen.OutputDir),
	}

	res, err := shadow.Run(ctx)
	if err != nil {
		return CheckResult{}, err
	}
	out := CheckResult{Result: res}
	// Written paths point into the temporary directory
	out.Written = nil

	diff, err := m.compare(ctx, tmp)
	if err != nil {
		return out, err
	}
	out.OutOfDate = diff

	status := "ok"
	if !out.UpToDate() {
		status = "stale"
	}
	m.logger.Infow("Check finished",
		logger.FieldCount, len(res.ParsedFiles),
		"out_of_date", len(diff),
		logger.FieldStatus, status)
	return out, nil
}

// compare checks every artifact below tmp against its counterpart in the
// output directory, concurrently.
func (m *Manager) compare(ctx context.Context, tmp string) ([]string, error) {
	var artifacts []string
	err := filepath.WalkDir(tmp, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			artifacts = append(artifacts, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", tmp)
	}

	var (
		mu   sync.Mutex
		diff []string
	)
	g, ctx := errgroup.WithContext(ctx)
	if m.opts.Workers > 0 {
		g.SetLimit(m.opts.Workers)
	}
	for _, generated := range artifacts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rel, err := filepath.Rel(tmp, generated)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(generated)
			if err != nil {
				return errors.Mark(errors.Wrapf(err, "read %s", generated), errors.ErrIO)
			}
			target := filepath.Join(m.opts.Codegen.OutputDir, rel)
			same, err := genfile.CompareBytes(target, content)
			if err != nil {
				return errors.Mark(err, errors.ErrIO)
			}
			if !same {
				m.logger.Debugw("Artifact out of date", logger.FieldArtifact, target)
				mu.Lock()
				diff = append(diff, target)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(diff)
	return diff, nil
}
