package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		spelling string
		name     string
		parts    []Descriptor
		size     int
		isConst  bool
		ptr      bool
		ref      bool
	}{
		{"float", "float", []Descriptor{DescValue}, 4, false, false, false},
		{"const float", "float", []Descriptor{DescValue | DescConst}, 4, true, false, false},
		{"float const", "float", []Descriptor{DescValue | DescConst}, 4, true, false, false},
		{"bool", "bool", []Descriptor{DescValue}, 1, false, false, false},
		{"const char*", "char const*", []Descriptor{DescValue | DescConst, DescPtr}, 8, false, true, false},
		{"Foo* const", "Foo*", []Descriptor{DescValue, DescPtr | DescConst}, 8, true, true, false},
		{"std::string const&", "std::string const&", []Descriptor{DescValue | DescConst, DescLRef}, 0, false, false, true},
		{"Foo&&", "Foo&&", []Descriptor{DescValue, DescRRef}, 0, false, false, true},
		{"unsigned   int", "unsigned int", []Descriptor{DescValue}, 4, false, false, false},
		{"Vector3", "Vector3", []Descriptor{DescValue}, 0, false, false, false},
		{"constexpr_t", "constexpr_t", []Descriptor{DescValue}, 0, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.spelling, func(t *testing.T) {
			ti := ParseType(tt.spelling)
			assert.Equal(t, tt.name, ti.Name)
			var parts []Descriptor
			for _, p := range ti.Parts {
				parts = append(parts, p.Descriptor)
			}
			assert.Equal(t, tt.parts, parts)
			assert.Equal(t, tt.size, ti.SizeInBytes)
			assert.Equal(t, tt.isConst, ti.IsConst())
			assert.Equal(t, tt.ptr, ti.IsPointer())
			assert.Equal(t, tt.ref, ti.IsReference())
		})
	}
}

func TestTemplateTypes(t *testing.T) {
	ti := ParseType("D_RESOURCE::ResourceRef<Texture>")
	assert.True(t, ti.IsTemplate)
	assert.Equal(t, "D_RESOURCE::ResourceRef", ti.TemplateName())
	assert.Equal(t, "Texture", ti.TemplateArgs())

	nested := ParseType("std::map<int, std::vector<float>> const&")
	assert.True(t, nested.IsTemplate)
	assert.Equal(t, "std::map", nested.TemplateName())
	assert.Equal(t, "int, std::vector<float>", nested.TemplateArgs())

	plain := ParseType("int")
	assert.False(t, plain.IsTemplate)
	assert.Equal(t, "int", plain.TemplateName())
	assert.Equal(t, "", plain.TemplateArgs())
}

func TestSpellingKeepsTopLevelConst(t *testing.T) {
	assert.Equal(t, "float const", ParseType("const float").Spelling())
	assert.Equal(t, "Foo* const", ParseType("Foo *const").Spelling())
	assert.Equal(t, "char const*", ParseType("const char *").Spelling())
}

func TestWithCanonical(t *testing.T) {
	ti := ParseType("Texture const*").WithCanonical("Engine::Texture")
	assert.Equal(t, "Texture const*", ti.Name)
	assert.Equal(t, "Engine::Texture const*", ti.CanonicalName)
}

func TestBuiltinSize(t *testing.T) {
	assert.Equal(t, 8, BuiltinSize("double"))
	assert.Equal(t, 2, BuiltinSize("std::uint16_t"))
	assert.Equal(t, 0, BuiltinSize("Color"))
}

func TestIsArray(t *testing.T) {
	arr := ParseType("int[4]")
	assert.True(t, arr.IsArray())
	assert.Equal(t, "int[4]", arr.Name)
	assert.Equal(t, 0, arr.SizeInBytes)

	assert.True(t, ParseType("const float[2][3]").IsArray())
	assert.True(t, ParseType("Node*[8]").IsArray())
	assert.False(t, ParseType("int").IsArray())
	assert.False(t, ParseType("std::array<int, 4>").IsArray())
}
