package manager

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/teranos/annogen/errors"
)

// Selection is the outcome of file discovery.
type Selection struct {
	// ToProcess holds the files to generate, in sorted path order.
	ToProcess []string
	// UpToDate holds files skipped because both artifacts are newer.
	UpToDate []string
}

// Discover walks the configured directories and explicit files and splits
// the supported files into those needing generation and those up to date.
func (m *Manager) Discover() (Selection, error) {
	candidates, err := m.candidates()
	if err != nil {
		return Selection{}, err
	}

	var sel Selection
	for _, file := range candidates {
		if !m.opts.Force && m.upToDate(file) {
			sel.UpToDate = append(sel.UpToDate, file)
			continue
		}
		sel.ToProcess = append(sel.ToProcess, file)
	}
	return sel, nil
}

// candidates returns every supported, non-ignored file once, sorted.
func (m *Manager) candidates() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, file := range m.opts.Files {
		info, err := os.Stat(file)
		if err != nil {
			return nil, errors.Wrapf(err, "file %s", file)
		}
		if info.IsDir() {
			return nil, errors.Newf("%s is a directory", file)
		}
		if !m.ignoredFile(file) {
			add(file)
		}
	}

	for _, dir := range m.opts.Directories {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, errors.Wrapf(err, "directory %s", dir)
		}
		if !info.IsDir() {
			return nil, errors.Newf("%s is not a directory", dir)
		}

		root := filepath.Clean(dir)
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == root {
					return nil
				}
				if !m.opts.Recursive || m.ignoredDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && m.supported(path) && !m.ignoredFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "walk %s", dir)
		}
	}

	slices.Sort(files)

	// Artifacts are named after the file stem only
	owners := make(map[string]string, len(files))
	for _, file := range files {
		header := m.opts.Codegen.HeaderPath(file)
		if other, ok := owners[header]; ok {
			return nil, errors.WithHint(
				errors.Newf("%s and %s both generate %s", other, file, header),
				"rename one of the files or add it to process.ignored_files")
		}
		owners[header] = file
	}
	return files, nil
}

func (m *Manager) supported(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range m.opts.Extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func (m *Manager) ignoredDir(path string) bool {
	base := filepath.Base(path)
	if slices.Contains(m.opts.IgnoredDirectories, base) {
		return true
	}
	// Never read our own output back
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, dir := range append([]string{m.opts.Codegen.OutputDir}, m.skipDirs...) {
		if out, err := filepath.Abs(dir); err == nil && out == abs {
			return true
		}
	}
	return false
}

func (m *Manager) ignoredFile(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range m.opts.IgnoredFiles {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// upToDate reports whether both artifacts of file exist and are not older
// than file itself.
func (m *Manager) upToDate(file string) bool {
	src, err := os.Stat(file)
	if err != nil {
		return false
	}
	for _, artifact := range []string{m.opts.Codegen.HeaderPath(file), m.opts.Codegen.SourcePath(file)} {
		info, err := os.Stat(artifact)
		if err != nil || info.ModTime().Before(src.ModTime()) {
			return false
		}
	}
	return true
}
