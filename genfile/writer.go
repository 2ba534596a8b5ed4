// Package genfile writes generated artifacts without touching files whose
// content did not change, so incremental builds do not rebuild needlessly.
package genfile

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/logger"
	"go.uber.org/zap"
)

// ChunkSize is the block size used when comparing an artifact with its
// replacement.
const ChunkSize = 2048

// TempSuffix is appended to the artifact path for the staged content.
const TempSuffix = ".tmp"

// Writer stages content in a temporary sibling of the target, compares it
// with the current artifact and only replaces the artifact when they differ.
type Writer struct {
	logger  *zap.SugaredLogger
	perm    os.FileMode
	compare func(staged, target string) (bool, error)
}

// New returns a Writer creating files with mode 0644.
func New(log *zap.SugaredLogger) *Writer {
	return &Writer{logger: logger.ComponentLogger(log, "genfile"), perm: 0o644, compare: SameContent}
}

// WriteFile writes content to path. It reports whether path was changed.
// Missing parent directories are created.
func (w *Writer) WriteFile(path string, content []byte) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, errors.Mark(errors.Wrapf(err, "create directory for %s", path), errors.ErrIO)
	}

	tmp := path + TempSuffix
	if err := os.WriteFile(tmp, content, w.perm); err != nil {
		return false, errors.Mark(errors.Wrapf(err, "write %s", tmp), errors.ErrIO)
	}

	same, err := w.compare(tmp, path)
	if err != nil {
		// An unreadable artifact is replaced, so the next run starts clean.
		w.logger.Debugw("Treating artifact as changed", logger.FieldArtifact, path, logger.FieldError, err)
		same = false
	}
	if same {
		if err := os.Remove(tmp); err != nil {
			return false, errors.Mark(errors.Wrapf(err, "remove %s", tmp), errors.ErrIO)
		}
		w.logger.Debugw("Artifact unchanged", logger.FieldArtifact, path)
		return false, nil
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return false, errors.Mark(errors.Wrapf(err, "replace %s", path), errors.ErrIO)
	}
	w.logger.Debugw("Artifact written", logger.FieldArtifact, path, "bytes", len(content))
	return true, nil
}

// SameContent compares two files chunk by chunk and stops at the first
// differing chunk. A missing second file is reported as different without
// error.
func SameContent(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, errors.Wrapf(err, "open %s", a)
	}
	defer fa.Close()

	fb, err := os.Open(b)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "open %s", b)
	}
	defer fb.Close()

	sa, err := fa.Stat()
	if err != nil {
		return false, errors.Wrapf(err, "stat %s", a)
	}
	sb, err := fb.Stat()
	if err != nil {
		return false, errors.Wrapf(err, "stat %s", b)
	}
	if sa.Size() != sb.Size() {
		return false, nil
	}

	ra := bufio.NewReaderSize(fa, ChunkSize)
	rb := bufio.NewReaderSize(fb, ChunkSize)
	bufA := make([]byte, ChunkSize)
	bufB := make([]byte, ChunkSize)
	for {
		na, errA := io.ReadFull(ra, bufA)
		nb, errB := io.ReadFull(rb, bufB)
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		doneA := errA == io.EOF || errA == io.ErrUnexpectedEOF
		doneB := errB == io.EOF || errB == io.ErrUnexpectedEOF
		if errA != nil && !doneA {
			return false, errors.Wrapf(errA, "read %s", a)
		}
		if errB != nil && !doneB {
			return false, errors.Wrapf(errB, "read %s", b)
		}
		if doneA || doneB {
			return doneA == doneB, nil
		}
	}
}

// CompareBytes reports whether the file at path holds exactly content.
// A missing file is reported as different without error.
func CompareBytes(path string, content []byte) (bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, ChunkSize)
	buf := make([]byte, ChunkSize)
	for off := 0; ; off += ChunkSize {
		n, err := io.ReadFull(r, buf)
		end := off + ChunkSize
		if end > len(content) {
			end = len(content)
		}
		if off > len(content) || !bytes.Equal(buf[:n], content[off:end]) {
			return false, nil
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return end == len(content), nil
		}
		if err != nil {
			return false, errors.Wrapf(err, "read %s", path)
		}
	}
}
