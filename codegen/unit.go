package codegen

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/annogen/entity"
	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/logger"
)

// ArtifactWriter persists generated artifacts.
type ArtifactWriter interface {
	// WriteFile stores content at path and reports whether the file changed.
	WriteFile(path string, content []byte) (bool, error)
}

// Artifacts is the rendered output for one source file.
type Artifacts struct {
	HeaderPath string
	Header     string
	SourcePath string
	Source     string
}

// Result is the outcome of generating one file.
type Result struct {
	File        string
	Success     bool
	Diagnostics []error
	// Artifacts is nil when the unit was aborted.
	Artifacts *Artifacts
	// Written lists artifacts whose content changed on disk.
	Written  []string
	Duration time.Duration
}

// Unit is the generation orchestrator for one file at a time. A Unit holds
// no per-file state, so one value may render files sequentially; use Clone
// to give each concurrent task its own copy.
type Unit struct {
	group    *Group
	settings Settings
	writer   ArtifactWriter
	logger   *zap.SugaredLogger
}

// NewUnit returns a unit running the rules of group. writer may be nil when
// only Render is used.
func NewUnit(group *Group, settings Settings, writer ArtifactWriter, log *zap.SugaredLogger) *Unit {
	return &Unit{
		group:    group,
		settings: settings,
		writer:   writer,
		logger:   logger.OrNop(log).Named("codegen"),
	}
}

// Clone returns an independent unit sharing the stateless rules.
func (u *Unit) Clone() *Unit {
	c := *u
	c.group = u.group.Clone()
	return &c
}

// WithWriter returns a copy of u writing its artifacts through w.
func (u *Unit) WithWriter(w ArtifactWriter) *Unit {
	c := *u
	c.writer = w
	return &c
}

// WithSettings returns a copy of u using settings.
func (u *Unit) WithSettings(settings Settings) *Unit {
	c := *u
	c.settings = settings
	return &c
}

// Settings returns the unit settings.
func (u *Unit) Settings() Settings {
	return u.settings
}

// Generate renders model and writes its artifacts.
func (u *Unit) Generate(ctx context.Context, model *entity.Model) Result {
	start := time.Now()
	res := u.Render(model)
	if res.Artifacts == nil || u.writer == nil {
		res.Duration = time.Since(start)
		return res
	}

	for _, a := range []struct {
		path    string
		content string
	}{
		{res.Artifacts.HeaderPath, res.Artifacts.Header},
		{res.Artifacts.SourcePath, res.Artifacts.Source},
	} {
		if err := ctx.Err(); err != nil {
			res.Diagnostics = append(res.Diagnostics, errors.Wrap(err, "generation interrupted"))
			res.Success = false
			break
		}
		changed, err := u.writer.WriteFile(a.path, []byte(a.content))
		if err != nil {
			err = errors.Mark(errors.Wrapf(err, "failed to write %s", a.path), errors.ErrIO)
			u.logger.Errorw("Failed to write artifact",
				logger.FieldFile, model.File,
				logger.FieldArtifact, a.path,
				logger.FieldError, err)
			res.Diagnostics = append(res.Diagnostics, err)
			res.Success = false
			continue
		}
		if changed {
			res.Written = append(res.Written, a.path)
		}
	}
	res.Duration = time.Since(start)
	return res
}

// accumulators collect the text of the four insertion points.
type accumulators struct {
	prologue strings.Builder
	epilogue strings.Builder
	source   strings.Builder
	// footers is keyed by the record whose body receives the text.
	footers map[entity.Handle]*strings.Builder
}

func (a *accumulators) footer(h entity.Handle) *strings.Builder {
	b, ok := a.footers[h]
	if !ok {
		b = &strings.Builder{}
		a.footers[h] = b
	}
	return b
}

// Render runs every applicable rule over model in declaration order and
// composes the artifacts. It touches no file.
func (u *Unit) Render(model *entity.Model) Result {
	start := time.Now()
	env := NewEnv(u.settings, model, u.logger)
	acc := &accumulators{footers: make(map[entity.Handle]*strings.Builder)}

	aborted := false
	var visit func(hs []entity.Handle) bool
	// visit returns false when the whole traversal must stop.
	visit = func(hs []entity.Handle) bool {
		for _, h := range hs {
			b, ok := u.generateEntity(env, h, acc)
			if !ok {
				aborted = true
				return false
			}
			switch b {
			case Abort:
				env.Report(errors.Mark(
					errors.Newf("%s:%d: generation aborted on %s", model.File, model.Get(h).Line, model.FullName(h)),
					errors.ErrStructuralPrecondition))
				aborted = true
				return false
			case Break:
				return true
			case SkipChildren:
				continue
			}
			if !visit(model.Get(h).Children()) {
				return false
			}
		}
		return true
	}
	visit(model.Roots())

	res := Result{
		File:        model.File,
		Diagnostics: env.Diagnostics(),
	}
	if aborted {
		u.logger.Errorw("Generation unit aborted", logger.FieldFile, model.File)
		res.Duration = time.Since(start)
		return res
	}

	res.Artifacts = &Artifacts{
		HeaderPath: u.settings.HeaderPath(model.File),
		Header:     composeHeader(u.settings, model, acc),
		SourcePath: u.settings.SourcePath(model.File),
		Source:     composeSource(model, acc),
	}
	res.Success = !env.HasFatal()
	res.Duration = time.Since(start)
	return res
}

type application struct {
	rule  Rule
	index int
}

// applications pairs the entity's properties with the rules handling them,
// in rule order.
func (u *Unit) applications(e *entity.Entity) []application {
	var apps []application
	for _, r := range u.group.RulesFor(e.Kind) {
		for i, p := range e.Properties {
			if p.Name == r.Annotation() {
				apps = append(apps, application{rule: r, index: i})
			}
		}
	}
	return apps
}

// generateEntity runs the applicable rules on one entity. It returns false
// when a preamble or postamble aborted the unit.
func (u *Unit) generateEntity(env *Env, h entity.Handle, acc *accumulators) (Behaviour, bool) {
	model := env.Model
	e := model.Get(h)
	behaviour := Continue

	for _, app := range u.applications(e) {
		call := &Call{Env: env, Handle: h, Entity: e, Property: e.Properties[app.index], Index: app.index}

		if !app.rule.Validate(call) {
			env.Logger().Debugw("Rule skipped",
				logger.FieldRule, app.rule.Annotation(),
				logger.FieldEntity, model.FullName(h))
			continue
		}

		before := env.fatalCount()
		if !app.rule.Preamble(call) {
			u.ensureFatal(env, call, before, "preamble")
			return behaviour, false
		}

		behaviour = Combine(behaviour, app.rule.HeaderPrologue(call, &acc.prologue))
		if e.Kind.Has(entity.KindRecord | entity.KindField | entity.KindMethod) {
			if owner, ok := model.EnclosingRecord(h); ok {
				behaviour = Combine(behaviour, app.rule.BodyFooter(call, acc.footer(owner)))
			}
		}
		behaviour = Combine(behaviour, app.rule.HeaderEpilogue(call, &acc.epilogue))
		behaviour = Combine(behaviour, app.rule.SourcePrologue(call, &acc.source))

		before = env.fatalCount()
		if !app.rule.Postamble(call) {
			u.ensureFatal(env, call, before, "postamble")
			return behaviour, false
		}
	}
	return behaviour, true
}

// ensureFatal records a structural error for a failed hook that did not
// report one itself, so an aborted unit always explains why.
func (u *Unit) ensureFatal(env *Env, call *Call, before int, hook string) {
	if env.fatalCount() > before {
		return
	}
	call.FailStructural("%s of rule %s failed", hook, call.Property.Name)
}
