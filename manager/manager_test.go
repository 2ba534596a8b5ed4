package manager

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
	"go.uber.org/zap/zaptest"

	"github.com/teranos/annogen/am"
	"github.com/teranos/annogen/codegen"
	"github.com/teranos/annogen/codegen/rules"
	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/genfile"
	antest "github.com/teranos/annogen/internal/testing"
	"github.com/teranos/annogen/parser"
)

func mesh() parser.Decl {
	return antest.Class("Mesh", "Serialize", 1,
		antest.Marker(2),
		antest.Field("mVertexCount", "int", "Get", 3),
	)
}

func newFrontend() *antest.FakeFrontend {
	return antest.NewFakeFrontend().
		Set("Light.hpp", antest.Light("Light")).
		Set("Mesh.hpp", mesh()).
		Set("Broken.hpp", antest.Class("Broken", "Serialize", 1, antest.Field("mValue", "int", "Get", 2)))
}

type project struct {
	root string
	src  string
	out  string
}

func newProject(t *testing.T, files map[string]string) project {
	t.Helper()
	root := antest.WriteTree(t, t.TempDir(), files)
	return project{root: root, src: filepath.Join(root, "src"), out: filepath.Join(root, "Generated")}
}

func (p project) options() Options {
	opts := DefaultOptions()
	opts.Directories = []string{p.src}
	opts.Codegen.OutputDir = p.out
	return opts
}

func newManager(t *testing.T, fe parser.Frontend, opts Options) *Manager {
	t.Helper()
	m, err := New(fe, codegen.NewGroup(rules.Module()), opts, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return m
}

func (p project) path(rel string) string {
	return filepath.Join(p.root, filepath.FromSlash(rel))
}

func read(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestRunGeneratesArtifacts(t *testing.T) {
	p := newProject(t, map[string]string{
		"src/Light.hpp":         "// light\n",
		"src/Render/Mesh.hpp":   "// mesh\n",
		"src/Libs/Vendor.hpp":   "// ignored directory\n",
		"src/readme.txt":        "not a header\n",
		"src/Generated/Old.hpp": "// ignored directory\n",
	})
	fe := newFrontend()
	m := newManager(t, fe, p.options())

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Success, "%v", res.Diagnostics)

	assert.Equal(t, []string{p.path("src/Light.hpp"), p.path("src/Render/Mesh.hpp")}, res.ParsedFiles)
	assert.Empty(t, res.UpToDateFiles)
	assert.Empty(t, res.Failed)
	assert.Zero(t, fe.Calls("Vendor.hpp"))
	assert.Zero(t, fe.Calls("Old.hpp"))

	assert.ElementsMatch(t, []string{
		p.path("Generated/EntityMacros.h"),
		p.path("Generated/Light.generated.hpp"),
		p.path("Generated/Light.sgenerated.hpp"),
		p.path("Generated/Mesh.generated.hpp"),
		p.path("Generated/Mesh.sgenerated.hpp"),
	}, res.Written)

	assert.Contains(t, read(t, p.path("Generated/Light.generated.hpp")), "float GetIntencity() const;")
	assert.Contains(t, read(t, p.path("Generated/Light.sgenerated.hpp")), `rttr::registration::class_<Light>("Light")`)
	assert.Contains(t, read(t, p.path("Generated/Mesh.generated.hpp")), "int GetVertexCount() const;")

	macros := read(t, p.path("Generated/EntityMacros.h"))
	assert.Contains(t, macros, "#ifndef CODEGEN_BUILD")
	assert.Contains(t, macros, "#define DClass(...)")
	assert.Contains(t, macros, "#define DEnumVal(...)")
}

func TestSecondRunIsUpToDate(t *testing.T) {
	p := newProject(t, map[string]string{"src/Light.hpp": "// light\n"})
	fe := newFrontend()
	src := p.path("src/Light.hpp")
	antest.Age(t, src, time.Hour)

	first, err := newManager(t, fe, p.options()).Run(context.Background())
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := newManager(t, fe, p.options()).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, []string{src}, second.UpToDateFiles)
	assert.Empty(t, second.ParsedFiles)
	assert.Empty(t, second.Written)
	assert.Equal(t, 1, fe.Calls("Light.hpp"))
}

func TestForcedRunKeepsTimestamps(t *testing.T) {
	p := newProject(t, map[string]string{"src/Light.hpp": "// light\n"})
	m := newManager(t, newFrontend(), p.options())

	_, err := m.Run(context.Background())
	require.NoError(t, err)

	header := p.path("Generated/Light.generated.hpp")
	before := read(t, header)
	antest.Age(t, header, 2*time.Hour)
	aged := antest.ModTime(t, header)

	opts := p.options()
	opts.Force = true
	res, err := newManager(t, newFrontend(), opts).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, []string{p.path("src/Light.hpp")}, res.ParsedFiles)
	assert.Empty(t, res.Written, "identical content is not rewritten")
	assert.Equal(t, before, read(t, header))
	assert.True(t, aged.Equal(antest.ModTime(t, header)))
}

func TestStaleArtifactsAreRegenerated(t *testing.T) {
	p := newProject(t, map[string]string{"src/Light.hpp": "// light\n"})
	_, err := newManager(t, newFrontend(), p.options()).Run(context.Background())
	require.NoError(t, err)

	// Artifacts older than the source are stale
	antest.Age(t, p.path("Generated/Light.sgenerated.hpp"), time.Hour)

	fe := newFrontend()
	res, err := newManager(t, fe, p.options()).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.UpToDateFiles)
	assert.Equal(t, 1, fe.Calls("Light.hpp"))
}

func TestMissingMarkerFailsOnlyItsFile(t *testing.T) {
	p := newProject(t, map[string]string{
		"src/Broken.hpp": "// broken\n",
		"src/Light.hpp":  "// light\n",
	})

	res, err := newManager(t, newFrontend(), p.options()).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, []string{p.path("src/Broken.hpp")}, res.Failed)
	assert.Len(t, res.ParsedFiles, 2)
	assert.True(t, hasCategory(res.Diagnostics, errors.ErrStructuralPrecondition))

	assert.FileExists(t, p.path("Generated/Light.generated.hpp"))
	assert.NoFileExists(t, p.path("Generated/Broken.generated.hpp"))
}

func TestParseFailureDoesNotStopOtherFiles(t *testing.T) {
	p := newProject(t, map[string]string{
		"src/Light.hpp":   "// light\n",
		"src/Unknown.hpp": "// no fixture\n",
	})

	res, err := newManager(t, newFrontend(), p.options()).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, []string{p.path("src/Unknown.hpp")}, res.Failed)
	assert.True(t, hasCategory(res.Diagnostics, errors.ErrParseFailure))
	assert.FileExists(t, p.path("Generated/Light.generated.hpp"))
}

func TestFailedPassKeepsLaterPasses(t *testing.T) {
	p := newProject(t, map[string]string{"src/Light.hpp": "// light\n"})
	fake := newFrontend()

	var (
		mu    sync.Mutex
		calls int
	)
	fe := parser.FrontendFunc(func(ctx context.Context, path string, src []byte) ([]parser.Decl, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			return nil, errors.New("transient frontend failure")
		}
		return fake.Parse(ctx, path, src)
	})

	opts := p.options()
	opts.Iterations = 2
	res, err := newManager(t, fe, opts).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.FileExists(t, p.path("Generated/Light.generated.hpp"))
	assert.Contains(t, res.Written, p.path("Generated/Light.generated.hpp"))
	assert.False(t, res.Success)
	assert.Equal(t, []string{p.path("src/Light.hpp")}, res.Failed)
	assert.True(t, hasCategory(res.Diagnostics, errors.ErrParseFailure))
}

// countingWriter counts artifact writes per source stem.
type countingWriter struct {
	inner  codegen.ArtifactWriter
	mu     *sync.Mutex
	writes map[string]int
}

func (w countingWriter) WriteFile(path string, content []byte) (bool, error) {
	w.mu.Lock()
	w.writes[strings.SplitN(filepath.Base(path), ".", 2)[0]]++
	w.mu.Unlock()
	return w.inner.WriteFile(path, content)
}

func TestPassesRunInOrder(t *testing.T) {
	const passes = 3
	files := map[string]string{}
	fake := antest.NewFakeFrontend()
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		files["src/"+name+".hpp"] = "// " + name + "\n"
		fake.Set(name+".hpp", antest.Light(name))
	}
	p := newProject(t, files)

	var (
		mu         sync.Mutex
		parses     = map[string]int{}
		writes     = map[string]int{}
		violations []string
	)
	fe := parser.FrontendFunc(func(ctx context.Context, path string, src []byte) ([]parser.Decl, error) {
		stem := strings.TrimSuffix(filepath.Base(path), ".hpp")
		mu.Lock()
		// Every earlier pass has written both of its artifacts
		if writes[stem] != 2*parses[stem] {
			violations = append(violations, stem)
		}
		parses[stem]++
		mu.Unlock()
		return fake.Parse(ctx, path, src)
	})

	opts := p.options()
	opts.Iterations = passes
	opts.Workers = 4
	m := newManager(t, fe, opts)
	m.SetWriter(countingWriter{inner: genfile.New(nil), mu: &mu, writes: writes})

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Success, "%v", res.Diagnostics)

	assert.Empty(t, violations)
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		assert.Equal(t, passes, parses[name], name)
		assert.Equal(t, 2*passes, writes[name], name)
	}
	// The union keeps each file once
	assert.Len(t, res.ParsedFiles, 5)
}

func TestDiscover(t *testing.T) {
	p := newProject(t, map[string]string{
		"src/Light.hpp":         "",
		"src/LightTest.hpp":     "",
		"src/Nested/Mesh.hpp":   "",
		"src/Nested/Shader.HPP": "",
		"extra/Script.h":        "",
		"src/Generated/Out.hpp": "",
	})

	opts := p.options()
	opts.Recursive = false
	opts.IgnoredFiles = []string{"*Test.hpp"}
	opts.Files = []string{p.path("extra/Script.h")}
	sel, err := newManager(t, newFrontend(), opts).Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{p.path("extra/Script.h"), p.path("src/Light.hpp")}, sel.ToProcess)

	opts.Recursive = true
	sel, err = newManager(t, newFrontend(), opts).Discover()
	require.NoError(t, err)
	assert.Equal(t, []string{
		p.path("extra/Script.h"),
		p.path("src/Light.hpp"),
		p.path("src/Nested/Mesh.hpp"),
		p.path("src/Nested/Shader.HPP"),
	}, sel.ToProcess)
}

func TestDiscoverErrors(t *testing.T) {
	p := newProject(t, map[string]string{
		"src/Light.hpp":       "",
		"src/Other/Light.hpp": "",
	})

	_, err := newManager(t, newFrontend(), p.options()).Discover()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both generate")

	opts := p.options()
	opts.Directories = []string{p.path("missing")}
	_, err = newManager(t, newFrontend(), opts).Run(context.Background())
	assert.Error(t, err)

	opts = p.options()
	opts.Directories = nil
	opts.Files = []string{p.src}
	_, err = newManager(t, newFrontend(), opts).Discover()
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	p := newProject(t, map[string]string{"src/Light.hpp": "// light\n"})
	m := newManager(t, newFrontend(), p.options())

	// Nothing generated yet
	res, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, res.UpToDate())
	assert.Contains(t, res.OutOfDate, p.path("Generated/Light.generated.hpp"))
	assert.NoDirExists(t, p.out, "check never writes the output directory")

	_, err = m.Run(context.Background())
	require.NoError(t, err)

	res, err = m.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, res.UpToDate(), "%v", res.OutOfDate)
	assert.Empty(t, res.Written)

	header := p.path("Generated/Light.generated.hpp")
	require.NoError(t, os.WriteFile(header, []byte("// edited\n"), 0644))
	res, err = m.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{header}, res.OutOfDate)
	assert.Equal(t, "// edited\n", read(t, header))
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Iterations = 0
	_, err := New(newFrontend(), codegen.NewGroup(rules.Module()), opts, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))

	opts = DefaultOptions()
	opts.Codegen.HeaderPattern = "out.hpp"
	_, err = New(newFrontend(), codegen.NewGroup(rules.Module()), opts, nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))

	_, err = New(nil, codegen.NewGroup(rules.Module()), DefaultOptions(), nil)
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, codegen.DefaultSettings(), opts.Codegen)
	assert.Equal(t, parser.DefaultSettings(), opts.Parser)
	assert.Equal(t, "EntityMacros.h", opts.EntityMacrosFile)
	assert.Equal(t, "GENERATED_BODY", opts.BodyMacro)
	assert.Len(t, opts.AnnotationMacros, 8)

	cfg := am.Default()
	cfg.Parsing.ArgumentOpen = "<"
	cfg.Parsing.ArgumentClose = ">"
	cfg.Process.Workers = 3
	opts = OptionsFromConfig(cfg)
	assert.Equal(t, '<', opts.Parser.Grammar.ArgumentOpen)
	assert.Equal(t, '>', opts.Parser.Grammar.ArgumentClose)
	assert.Equal(t, 3, opts.Workers)
}

type recordingEmitter struct {
	mu       sync.Mutex
	stages   []string
	done     int
	total    int
	complete map[string]interface{}
}

func (r *recordingEmitter) EmitStage(stage, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *recordingEmitter) EmitProgress(done, total int, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if done > r.done {
		r.done = done
	}
	r.total = total
}

func (r *recordingEmitter) EmitComplete(summary map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete = summary
}

func (r *recordingEmitter) EmitError(string, error) {}

func TestProgress(t *testing.T) {
	p := newProject(t, map[string]string{
		"src/Light.hpp": "",
		"src/Mesh.hpp":  "",
	})
	opts := p.options()
	opts.Iterations = 2
	m := newManager(t, newFrontend(), opts)
	rec := &recordingEmitter{}
	m.SetProgress(rec)

	_, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"discover", "generate"}, rec.stages)
	assert.Equal(t, 4, rec.done)
	assert.Equal(t, 4, rec.total)
	require.NotNil(t, rec.complete)
	assert.Equal(t, 2, rec.complete["processed"])
}

func hasCategory(diags []error, category error) bool {
	for _, d := range diags {
		if errors.Is(d, category) {
			return true
		}
	}
	return false
}

func TestResultSummary(t *testing.T) {
	res := Result{
		ParsedFiles:   []string{"a.hpp", "b.hpp"},
		UpToDateFiles: []string{"c.hpp"},
		Written:       []string{"Generated/a.generated.hpp"},
		Failed:        []string{"b.hpp"},
		Diagnostics:   []error{errors.New("x")},
		Duration:      1500 * time.Millisecond,
	}
	assert.Equal(t, map[string]interface{}{
		"processed":   2,
		"up_to_date":  1,
		"written":     1,
		"failed":      1,
		"diagnostics": 1,
		"duration_ms": int64(1500),
	}, res.Summary())
}
