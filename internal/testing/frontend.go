// Package testing holds helpers shared by annogen tests.
package testing

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/teranos/annogen/entity"
	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/parser"
)

// FakeFrontend is an in-memory parser.Frontend. It serves declaration trees
// registered by file base name, so engine tests run without the C++ grammar.
type FakeFrontend struct {
	mu       sync.Mutex
	fixtures map[string][]parser.Decl
	calls    map[string]int
	order    []string
}

// NewFakeFrontend returns a frontend without fixtures.
func NewFakeFrontend() *FakeFrontend {
	return &FakeFrontend{
		fixtures: make(map[string][]parser.Decl),
		calls:    make(map[string]int),
	}
}

// Set registers the declarations returned for files named base.
func (f *FakeFrontend) Set(base string, decls ...parser.Decl) *FakeFrontend {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fixtures[base] = decls
	return f
}

// Parse implements parser.Frontend. Files without a fixture fail to parse.
func (f *FakeFrontend) Parse(ctx context.Context, path string, _ []byte) ([]parser.Decl, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base := filepath.Base(path)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[base]++
	f.order = append(f.order, base)
	decls, ok := f.fixtures[base]
	if !ok {
		return nil, errors.Newf("no fixture for %s", base)
	}
	return decls, nil
}

// Calls returns how many times files named base were parsed.
func (f *FakeFrontend) Calls(base string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[base]
}

// Order returns the base names in the order they were parsed.
func (f *FakeFrontend) Order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

// Marker returns the declaration the C++ frontend reports for GENERATED_BODY().
func Marker(line int) parser.Decl {
	return parser.Decl{Kind: entity.KindClass, Name: "__CodeGenIdentifier__", Annotated: true, Line: line, Column: 3}
}

// Class returns an annotated class declaration with the given children.
func Class(name, payload string, line int, children ...parser.Decl) parser.Decl {
	return parser.Decl{Kind: entity.KindClass, Name: name, Annotated: true, Payload: payload, Line: line, Access: entity.AccessPrivate, Children: children}
}

// Field returns an annotated private field declaration.
func Field(name, typ, payload string, line int) parser.Decl {
	return parser.Decl{Kind: entity.KindField, Name: name, Type: typ, Annotated: true, Payload: payload, Line: line, Access: entity.AccessPrivate}
}

// Light returns the declarations of a serialized class with accessors:
//
//	DClass(Serialize)
//	class Light {
//	    GENERATED_BODY()
//	    DField(Get) float mIntencity;
//	    DField(Get, Serialize) bool mCastsShadow;
//	    DField(Get, Set) float mRange;
//	};
func Light(name string) parser.Decl {
	return Class(name, "Serialize", 1,
		Marker(3),
		Field("mIntencity", "float", "Get", 4),
		Field("mCastsShadow", "bool", "Get, Serialize", 5),
		Field("mRange", "float", "Get, Set", 6),
	)
}

// WriteTree creates files below root from a map of slash-separated relative
// paths to contents and returns root.
func WriteTree(t *testing.T, root string, files map[string]string) string {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	return root
}

// Age moves the modification time of path d into the past.
func Age(t *testing.T, path string, d time.Duration) {
	t.Helper()
	old := time.Now().Add(-d)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Failed to change times of %s: %v", path, err)
	}
}

// ModTime returns the modification time of path.
func ModTime(t *testing.T, path string) time.Time {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat %s: %v", path, err)
	}
	return info.ModTime()
}
