package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/annogen/entity"
	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/logger"
	"github.com/teranos/annogen/property"
)

// idNamespace seeds the name-based UUIDs used as entity identifiers.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/teranos/annogen"))

// Settings controls model building.
type Settings struct {
	Grammar property.Grammar
	// ParseAllNamespaces keeps namespaces that contain no annotated declaration.
	ParseAllNamespaces bool
}

// DefaultSettings returns the settings used when no configuration is loaded.
func DefaultSettings() Settings {
	return Settings{
		Grammar:            property.DefaultGrammar(),
		ParseAllNamespaces: true,
	}
}

// Result is the outcome of parsing one file.
type Result struct {
	File        string
	Model       *entity.Model
	Success     bool
	Diagnostics []error
	Duration    time.Duration
}

// FileParser builds entity models from source files through a Frontend.
type FileParser struct {
	frontend Frontend
	settings Settings
	props    *property.Parser
	logger   *zap.SugaredLogger
}

// New returns a FileParser. A nil logger disables logging.
func New(frontend Frontend, settings Settings, log *zap.SugaredLogger) *FileParser {
	return &FileParser{
		frontend: frontend,
		settings: settings,
		props:    property.NewParser(settings.Grammar),
		logger:   logger.OrNop(log).Named("parser"),
	}
}

// Clone returns an independent parser sharing the frontend, for use by a
// single task.
func (p *FileParser) Clone() *FileParser {
	c := *p
	return &c
}

// Settings returns the parser settings.
func (p *FileParser) Settings() Settings {
	return p.settings
}

// Parse reads and parses path.
func (p *FileParser) Parse(ctx context.Context, path string) Result {
	src, err := os.ReadFile(path)
	if err != nil {
		start := time.Now()
		err = errors.Mark(errors.Wrapf(err, "failed to read %s", path), errors.ErrParseFailure)
		p.logger.Errorw("Failed to read source file", logger.FieldFile, path, logger.FieldError, err)
		return Result{File: path, Diagnostics: []error{err}, Duration: time.Since(start)}
	}
	return p.ParseSource(ctx, path, src)
}

// ParseSource parses src as if it were the content of path.
func (p *FileParser) ParseSource(ctx context.Context, path string, src []byte) Result {
	start := time.Now()
	res := Result{File: path}

	decls, err := p.frontend.Parse(ctx, path, src)
	if err != nil {
		err = errors.Mark(errors.Wrapf(err, "failed to parse %s", path), errors.ErrParseFailure)
		p.logger.Errorw("Parse failure", logger.FieldFile, path, logger.FieldError, err)
		res.Diagnostics = append(res.Diagnostics, err)
		res.Duration = time.Since(start)
		return res
	}

	b := &builder{
		parser: p,
		model:  entity.NewModel(path, FileID(path)),
	}
	for _, d := range decls {
		if err := b.add(entity.NoHandle, d); err != nil {
			err = errors.Mark(errors.Wrapf(err, "failed to build model for %s", path), errors.ErrParseFailure)
			res.Diagnostics = append(res.Diagnostics, b.diags...)
			res.Diagnostics = append(res.Diagnostics, err)
			res.Duration = time.Since(start)
			return res
		}
	}

	res.Model = b.model
	res.Diagnostics = b.diags
	res.Success = true
	res.Duration = time.Since(start)
	p.logger.Debugw("Parsed file",
		logger.FieldFile, path,
		logger.FieldCount, b.model.Len(),
		logger.FieldDurationMS, res.Duration.Milliseconds())
	return res
}

type builder struct {
	parser *FileParser
	model  *entity.Model
	diags  []error
}

func (b *builder) keep(d Decl, insideKeptEnum bool) bool {
	switch d.Kind {
	case entity.KindEnumValue:
		return insideKeptEnum || d.Annotated
	case entity.KindNamespace:
		if d.Annotated || b.parser.settings.ParseAllNamespaces {
			return true
		}
		for _, c := range d.Children {
			if b.keep(c, false) {
				return true
			}
		}
		return false
	case entity.KindClass, entity.KindStruct:
		return d.Annotated && d.Name != ""
	default:
		return d.Annotated
	}
}

func (b *builder) add(parent entity.Handle, d Decl) error {
	if !b.keep(d, parent != entity.NoHandle && b.model.Get(parent).Kind == entity.KindEnum) {
		return nil
	}

	e := entity.New(d.Kind, d.Name)
	e.Line, e.Column, e.Offset = d.Line, d.Column, d.Offset

	switch {
	case e.Record != nil:
		e.Record.Final = d.Final
		for _, pd := range d.Parents {
			e.Record.Parents = append(e.Record.Parents, entity.Parent{Access: pd.Access, Type: entity.ParseType(pd.Type)})
		}
	case e.Field != nil:
		e.Field.Type = b.typeOf(d)
		e.Field.Static = d.Static
		e.Field.Access = d.Access
	case e.Function != nil:
		e.Function.ReturnType = b.typeOf(d)
		e.Function.Prototype = d.Prototype
		e.Function.Static = d.Static
		e.Function.Const = d.Const
		e.Function.Virtual = d.Virtual
		e.Function.Access = d.Access
	case e.Enum != nil:
		e.Enum.Scoped = d.Scoped
		e.Enum.UnderlyingType = d.UnderlyingType
	case e.EnumValue != nil:
		e.EnumValue.Default = d.DefaultValue
	}

	h, err := b.model.Add(parent, e)
	if err != nil {
		return err
	}

	ent := b.model.Get(h)
	ent.ID = d.ID
	if ent.ID == "" {
		ent.ID = EntityID(b.model.File, d.Kind, b.model.FullName(h)+d.Prototype)
	}
	if d.Annotated {
		props, errs := b.parser.props.Parse(d.Payload)
		ent.Properties = props
		for _, perr := range errs {
			perr = errors.Wrapf(perr, "%s:%d: %s %s", b.model.File, d.Line, d.Kind, b.model.FullName(h))
			b.parser.logger.Errorw("Invalid annotation",
				logger.FieldFile, b.model.File,
				logger.FieldLine, d.Line,
				logger.FieldEntity, b.model.FullName(h),
				logger.FieldError, perr)
			b.diags = append(b.diags, perr)
		}
	}

	for _, c := range d.Children {
		if err := b.add(h, c); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) typeOf(d Decl) entity.TypeInfo {
	t := entity.ParseType(d.Type)
	if d.CanonicalType != "" {
		t = t.WithCanonical(d.CanonicalType)
	}
	if d.TypeSize > 0 {
		t.SizeInBytes = d.TypeSize
	}
	return t
}

// EntityID returns the stable identifier of a declaration.
func EntityID(file string, kind entity.Kind, qualified string) string {
	key := fmt.Sprintf("%s|%s|%s", filepath.ToSlash(file), kind, qualified)
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

// FileID returns a C++ identifier unique to path, used for CURRENT_FILE_ID.
func FileID(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var b strings.Builder
	b.WriteString("FID_")
	for _, r := range stem {
		if r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	sum := uuid.NewSHA1(idNamespace, []byte(filepath.ToSlash(filepath.Clean(path))))
	b.WriteByte('_')
	b.WriteString(strings.ReplaceAll(sum.String(), "-", "")[:8])
	return b.String()
}
