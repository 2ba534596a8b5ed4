package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/annogen/entity"
	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/property"
)

func staticFrontend(decls []Decl, err error) Frontend {
	return FrontendFunc(func(ctx context.Context, path string, src []byte) ([]Decl, error) {
		return decls, err
	})
}

func lightDecls() []Decl {
	return []Decl{{
		Kind: entity.KindNamespace, Name: "Light", Line: 1,
		Children: []Decl{
			{
				Kind: entity.KindEnum, Name: "LightSourceType", Line: 3, Annotated: true, Payload: "Serialize", Scoped: true,
				Children: []Decl{
					{Kind: entity.KindEnumValue, Name: "Directional", Line: 4},
					{Kind: entity.KindEnumValue, Name: "Point", Line: 5},
				},
			},
			{
				Kind: entity.KindStruct, Name: "LightData", Line: 8, Annotated: true, Payload: "Serialize",
				Parents: []ParentDecl{{Access: entity.AccessPublic, Type: "Base"}},
				Children: []Decl{
					{Kind: entity.KindClass, Name: "__CodeGenIdentifier__", Line: 10, Annotated: true},
					{Kind: entity.KindField, Name: "mIntencity", Line: 12, Annotated: true, Payload: "Get, Serialize", Type: "float", Access: entity.AccessPublic},
					{Kind: entity.KindField, Name: "mPadding", Line: 14, Type: "bool"},
					{Kind: entity.KindField, Name: "mBroken", Line: 16, Annotated: true, Payload: "Get[const, &, Set", Type: "int"},
					{Kind: entity.KindMethod, Name: "Update", Line: 18, Annotated: true, Type: "void", Const: true, Prototype: "void ()"},
				},
			},
			{
				Kind: entity.KindClass, Name: "Plain", Line: 30,
				Children: []Decl{
					{Kind: entity.KindField, Name: "mIgnored", Line: 31, Annotated: true, Payload: "Get", Type: "int"},
				},
			},
		},
	}}
}

func TestParseSourceBuildsModel(t *testing.T) {
	p := New(staticFrontend(lightDecls(), nil), DefaultSettings(), zaptest.NewLogger(t).Sugar())

	res := p.ParseSource(context.Background(), "Light.hpp", nil)
	require.True(t, res.Success)
	m := res.Model
	require.NotNil(t, m)

	var names []string
	m.Walk(func(h entity.Handle, depth int) bool {
		names = append(names, m.FullName(h))
		return true
	})
	assert.Equal(t, []string{
		"Light",
		"Light::LightSourceType",
		"Light::LightSourceType::Directional",
		"Light::LightSourceType::Point",
		"Light::LightData",
		"Light::LightData::__CodeGenIdentifier__",
		"Light::LightData::mIntencity",
		"Light::LightData::mBroken",
		"Light::LightData::Update",
	}, names, "unannotated declarations and everything inside unannotated records are dropped")

	st := m.Get(m.Get(m.Roots()[0]).Children()[1])
	assert.Equal(t, entity.KindStruct, st.Kind)
	require.Len(t, st.Record.Parents, 1)
	assert.Equal(t, "Base", st.Record.Parents[0].Type.Name)
	assert.Equal(t, entity.NoMarkerLine, st.Record.MarkerLine)

	field, ok := m.FindNested(m.Get(m.Roots()[0]).Children()[1], "mIntencity", entity.KindField)
	require.True(t, ok)
	f := m.Get(field)
	assert.Equal(t, []property.Property{{Name: "Get"}, {Name: "Serialize"}}, f.Properties)
	assert.Equal(t, 4, f.Field.Type.SizeInBytes)
	assert.NotEmpty(t, f.ID)
}

func TestGrammarErrorsAreDiagnostics(t *testing.T) {
	p := New(staticFrontend(lightDecls(), nil), DefaultSettings(), nil)

	res := p.ParseSource(context.Background(), "Light.hpp", nil)
	require.True(t, res.Success, "grammar errors do not fail the parse")
	require.Len(t, res.Diagnostics, 1)
	assert.True(t, errors.Is(res.Diagnostics[0], errors.ErrGrammar))
	assert.Contains(t, res.Diagnostics[0].Error(), "Light::LightData::mBroken")

	broken, ok := res.Model.FindNested(res.Model.Get(res.Model.Roots()[0]).Children()[1], "mBroken", entity.KindField)
	require.True(t, ok)
	assert.Empty(t, res.Model.Get(broken).Properties)
}

func TestFrontendFailure(t *testing.T) {
	p := New(staticFrontend(nil, errors.New("syntax error")), DefaultSettings(), nil)

	res := p.ParseSource(context.Background(), "Broken.hpp", nil)
	assert.False(t, res.Success)
	assert.Nil(t, res.Model)
	require.Len(t, res.Diagnostics, 1)
	assert.True(t, errors.Is(res.Diagnostics[0], errors.ErrParseFailure))
}

func TestParseMissingFile(t *testing.T) {
	p := New(staticFrontend(nil, nil), DefaultSettings(), nil)

	res := p.Parse(context.Background(), filepath.Join(t.TempDir(), "missing.hpp"))
	assert.False(t, res.Success)
	require.Len(t, res.Diagnostics, 1)
	assert.True(t, errors.Is(res.Diagnostics[0], errors.ErrParseFailure))
}

func TestParseReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Foo.hpp")
	require.NoError(t, os.WriteFile(path, []byte("struct Foo {};"), 0o644))

	var seen string
	fe := FrontendFunc(func(ctx context.Context, p string, src []byte) ([]Decl, error) {
		seen = string(src)
		return nil, nil
	})
	res := New(fe, DefaultSettings(), nil).Parse(context.Background(), path)
	assert.True(t, res.Success)
	assert.Equal(t, "struct Foo {};", seen)
	assert.Equal(t, 0, res.Model.Len())
}

func TestNamespacePruning(t *testing.T) {
	decls := []Decl{
		{Kind: entity.KindNamespace, Name: "Empty"},
		{Kind: entity.KindNamespace, Name: "Full", Children: []Decl{
			{Kind: entity.KindClass, Name: "Foo", Annotated: true},
		}},
	}
	settings := DefaultSettings()
	settings.ParseAllNamespaces = false

	res := New(staticFrontend(decls, nil), settings, nil).ParseSource(context.Background(), "a.hpp", nil)
	require.True(t, res.Success)
	require.Len(t, res.Model.Roots(), 1)
	assert.Equal(t, "Full", res.Model.Get(res.Model.Roots()[0]).Name)

	settings.ParseAllNamespaces = true
	res = New(staticFrontend(decls, nil), settings, nil).ParseSource(context.Background(), "a.hpp", nil)
	assert.Len(t, res.Model.Roots(), 2)
}

func TestIdentifiersAreStable(t *testing.T) {
	a := EntityID("src/Light.hpp", entity.KindField, "Light::LightData::mRange")
	b := EntityID("src/Light.hpp", entity.KindField, "Light::LightData::mRange")
	c := EntityID("src/Light.hpp", entity.KindMethod, "Light::LightData::mRange")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	id := FileID("src/My-Light.hpp")
	assert.Regexp(t, `^FID_My_Light_[0-9a-f]{8}$`, id)
	assert.Equal(t, id, FileID("src/./My-Light.hpp"))
	assert.NotEqual(t, id, FileID("other/My-Light.hpp"))
}

func TestCloneSharesSettings(t *testing.T) {
	p := New(staticFrontend(nil, nil), DefaultSettings(), nil)
	c := p.Clone()
	assert.NotSame(t, p, c)
	assert.Equal(t, p.Settings(), c.Settings())
}
