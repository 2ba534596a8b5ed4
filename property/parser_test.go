package property

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/annogen/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []Property
	}{
		{
			name:    "empty payload",
			payload: "   ",
			want:    nil,
		},
		{
			name:    "bare names",
			payload: "Serialize, Get",
			want:    []Property{{Name: "Serialize"}, {Name: "Get"}},
		},
		{
			name:    "arguments",
			payload: "Get[const, &], Set[inline]",
			want: []Property{
				{Name: "Get", Arguments: []string{"const", "&"}},
				{Name: "Set", Arguments: []string{"inline"}},
			},
		},
		{
			name:    "empty argument list",
			payload: "Get[]",
			want:    []Property{{Name: "Get"}},
		},
		{
			name:    "nested list kept verbatim",
			payload: "Serialize[Color, [a, b]], Animate",
			want: []Property{
				{Name: "Serialize", Arguments: []string{"Color", "[a, b]"}},
				{Name: "Animate"},
			},
		},
		{
			name:    "quoted argument with separators",
			payload: `Doc["a, [b] \"c\""]`,
			want:    []Property{{Name: "Doc", Arguments: []string{`a, [b] "c"`}}},
		},
		{
			name:    "unknown names pass through",
			payload: "Whatever[1]",
			want:    []Property{{Name: "Whatever", Arguments: []string{"1"}}},
		},
		{
			name:    "virtual property markers",
			payload: "Serialize[!Hidden, ?Enabled]",
			want:    []Property{{Name: "Serialize", Arguments: []string{"!Hidden", "?Enabled"}}},
		},
	}

	p := NewParser(DefaultGrammar())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := p.Parse(tt.payload)
			assert.Empty(t, errs)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrorsAreLocalized(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantNames []string
		wantErrs  int
	}{
		{"unclosed list swallows the tail", "Set, Get[const, &", []string{"Set"}, 1},
		{"stray close", "Get], Set", []string{"Set"}, 1},
		{"empty property", "Get,,Set", []string{"Get", "Set"}, 1},
		{"empty argument", "Get[a,,b], Set", []string{"Set"}, 1},
		{"invalid name", "1Get, Set", []string{"Set"}, 1},
		{"text after list", "Get[a]x, Set", []string{"Set"}, 1},
		{"unterminated string", `Doc["abc`, nil, 1},
	}

	p := NewParser(DefaultGrammar())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := p.Parse(tt.payload)
			require.Len(t, errs, tt.wantErrs)
			for _, err := range errs {
				assert.True(t, errors.Is(err, errors.ErrGrammar), "expected grammar error, got %v", err)
			}
			var names []string
			for _, prop := range got {
				names = append(names, prop.Name)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestParseCustomGrammar(t *testing.T) {
	g := Grammar{Separator: ';', ArgumentOpen: '(', ArgumentClose: ')', ArgumentSeparator: '|'}
	require.NoError(t, g.Validate())

	got, errs := NewParser(g).Parse("Get(const|&); Set")
	require.Empty(t, errs)
	assert.Equal(t, []Property{
		{Name: "Get", Arguments: []string{"const", "&"}},
		{Name: "Set"},
	}, got)
}

func TestGrammarValidate(t *testing.T) {
	assert.NoError(t, DefaultGrammar().Validate())

	bad := []Grammar{
		{},
		{Separator: ',', ArgumentOpen: '[', ArgumentClose: '[', ArgumentSeparator: ','},
		{Separator: '[', ArgumentOpen: '[', ArgumentClose: ']', ArgumentSeparator: ','},
		{Separator: ' ', ArgumentOpen: '[', ArgumentClose: ']', ArgumentSeparator: ','},
	}
	for _, g := range bad {
		err := g.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
	}
}

func TestPropertyHelpers(t *testing.T) {
	p := Property{Name: "Get", Arguments: []string{"const", "&"}}
	assert.True(t, p.HasArg("&"))
	assert.False(t, p.HasArg("*"))
	assert.Equal(t, "const", p.Arg(0))
	assert.Equal(t, "", p.Arg(5))
	assert.Equal(t, "Get[const, &]", p.String())

	c := p.Clone()
	c.Arguments[0] = "inline"
	assert.Equal(t, "const", p.Arguments[0])

	props := []Property{p, {Name: "Set"}, {Name: "Get", Arguments: []string{"inline"}}}
	assert.Equal(t, [][]string{{"const", "&"}, {"inline"}}, Lookup(props, "Get"))
}
