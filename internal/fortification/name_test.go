package fortification

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNameFromReference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		reference string
		want      string
	}{
		{
			name:      "parenthetical qualifier stripped",
			reference: "https://pt.wikipedia.org/wiki/Forte_de_S%C3%A3o_Jo%C3%A3o_(Lisboa)",
			want:      "Forte de São João",
		},
		{
			name:      "already spaced qualifier",
			reference: "https://pt.wikipedia.org/wiki/Forte_de_São_João (Lisboa)",
			want:      "Forte de São João",
		},
		{
			name:      "plain title",
			reference: "https://pt.wikipedia.org/wiki/Castelo_de_Almourol",
			want:      "Castelo de Almourol",
		},
		{
			name:      "inner parenthesis kept",
			reference: "https://pt.wikipedia.org/wiki/Torre_(Belém)_de_Lisboa",
			want:      "Torre (Belém) de Lisboa",
		},
		{
			name:      "no article marker uses whole value",
			reference: "Castelo_de_Vide",
			want:      "Castelo de Vide",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NameFromReference(tc.reference)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNameFromReferenceMalformed(t *testing.T) {
	t.Parallel()

	_, err := NameFromReference("https://pt.wikipedia.org/wiki/Castelo_%zz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedReference))
}

func TestResolveName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		reference string
		current   string
		want      string
	}{
		{
			name:      "fortification term missing from label",
			reference: "https://pt.wikipedia.org/wiki/Forte_de_São_João (Lisboa)",
			current:   "São João",
			want:      "Forte de São João",
		},
		{
			name:      "label is a shorter part of the title",
			reference: "https://pt.wikipedia.org/wiki/Castelo_de_Almourol",
			current:   "Castelo",
			want:      "Castelo de Almourol",
		},
		{
			name:      "case-insensitive containment",
			reference: "https://pt.wikipedia.org/wiki/Castelo_de_Almourol",
			current:   "almourol",
			want:      "Castelo de Almourol",
		},
		{
			name:      "label already complete",
			reference: "https://pt.wikipedia.org/wiki/Castelo_de_Almourol",
			current:   "Castelo de Almourol",
			want:      "Castelo de Almourol",
		},
		{
			name:      "unrelated title keeps label",
			reference: "https://pt.wikipedia.org/wiki/Mirandela",
			current:   "Castelo de Mirandela",
			want:      "Castelo de Mirandela",
		},
		{
			name:      "hyphenated compound title",
			reference: "https://pt.wikipedia.org/wiki/Praça-forte_de_Elvas",
			current:   "Elvas",
			want:      "Praça-forte de Elvas",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ResolveName(tc.reference, tc.current)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNameResolverFallsBackOnMalformedReference(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	resolver := NewNameResolver(zap.New(core))

	got := resolver.Resolve("https://pt.wikipedia.org/wiki/Forte_%G1", "Forte Velho")
	assert.Equal(t, "Forte Velho", got)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "https://pt.wikipedia.org/wiki/Forte_%G1", entry.ContextMap()["reference"])
}

func TestNameResolverNilLogger(t *testing.T) {
	t.Parallel()

	resolver := NewNameResolver(nil)
	assert.Equal(t, "Castelo de Almourol",
		resolver.Resolve("https://pt.wikipedia.org/wiki/Castelo_de_Almourol", "Almourol"))
}

func TestVocabulariesStayDistinct(t *testing.T) {
	t.Parallel()

	assert.Len(t, NamingTerms(), 13)
	assert.Len(t, FilterTerms(), 11)
	assert.Contains(t, NamingTerms(), "praça-forte")
	assert.NotContains(t, FilterTerms(), "praça-forte")
	assert.NotContains(t, FilterTerms(), "muralhas")

	terms := FilterTerms()
	terms[0] = "mutated"
	assert.Equal(t, "castelo", FilterTerms()[0])
}
