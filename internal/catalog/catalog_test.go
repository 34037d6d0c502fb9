package catalog

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default()
	require.NoError(t, err)
	return c
}

func TestDefaultCatalogCoversNationalDex(t *testing.T) {
	c := defaultCatalog(t)
	assert.Equal(t, 1025, c.Len())
	assert.Len(t, c.Types(), 18)
	assert.Len(t, c.Generations(), 9)
}

func TestRandomByGenerationStaysInRange(t *testing.T) {
	c := defaultCatalog(t)
	rng := rand.New(rand.NewPCG(1, 2))
	for _, g := range c.Generations() {
		for i := 0; i < 200; i++ {
			sp, err := c.RandomByGeneration(rng, g.ID)
			require.NoError(t, err)
			require.Truef(t, g.Contains(sp.DexNo), "gen %s picked #%d %s", g.ID, sp.DexNo, sp.Name)
		}
	}
}

func TestRandomByTypeMatchesType(t *testing.T) {
	c := defaultCatalog(t)
	rng := rand.New(rand.NewPCG(3, 4))
	for _, typ := range []string{"grass", "FIRE", "Dragon", "fairy"} {
		for i := 0; i < 100; i++ {
			sp, err := c.RandomByType(rng, typ)
			require.NoError(t, err)
			require.Contains(t, sp.Types, strings.ToLower(typ))
		}
	}
}

func TestRandomSelectionErrors(t *testing.T) {
	c := defaultCatalog(t)
	rng := rand.New(rand.NewPCG(5, 6))

	_, err := c.RandomByGeneration(rng, "10")
	require.ErrorIs(t, err, ErrUnknownGeneration)

	_, err = c.RandomByGeneration(rng, "01")
	require.ErrorIs(t, err, ErrUnknownGeneration)

	_, err = c.RandomByType(rng, "sound")
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestMembership(t *testing.T) {
	c := defaultCatalog(t)

	tests := []struct {
		name  string
		in    string
		gen   bool
		typ   bool
		known bool
	}{
		{name: "generation number", in: "4", gen: true},
		{name: "out of range generation", in: "0"},
		{name: "type lower", in: "water", typ: true},
		{name: "type mixed case", in: "PsYcHiC", typ: true},
		{name: "species", in: "Pikachu", known: true},
		{name: "species punctuation dropped", in: "mr mime", known: true},
		{name: "species accent folded", in: "flabebe", known: true},
		{name: "species apostrophe dropped", in: "FARFETCHD", known: true},
		{name: "species colon dropped", in: "type null", known: true},
		{name: "nonsense", in: "Agumon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.gen, c.IsGenerationID(tt.in))
			assert.Equal(t, tt.typ, c.IsTypeID(tt.in))
			assert.Equal(t, tt.known, c.IsKnownSpeciesName(tt.in))
		})
	}
}

func TestGenerationOf(t *testing.T) {
	c := defaultCatalog(t)
	tests := []struct {
		dex  int
		want int
	}{
		{1, 1}, {151, 1}, {152, 2}, {386, 3}, {387, 4}, {649, 5}, {650, 6}, {809, 7}, {810, 8}, {1025, 9},
	}
	for _, tt := range tests {
		g, ok := c.GenerationOf(tt.dex)
		require.True(t, ok)
		assert.Equal(t, tt.want, g.Number, "dex %d", tt.dex)
	}
	_, ok := c.GenerationOf(2000)
	assert.False(t, ok)
}

func TestLookupReturnsDisplayName(t *testing.T) {
	c := defaultCatalog(t)
	sp, ok := c.Lookup("mr. MIME")
	require.True(t, ok)
	assert.Equal(t, "Mr. Mime", sp.Name)
	assert.Equal(t, 122, sp.DexNo)
	assert.Equal(t, []string{"psychic", "fairy"}, sp.Types)
}

func TestParseCustomDataset(t *testing.T) {
	data := "# custom\n1,Bulbasaur,grass poison\n\n4,Charmander,Fire\n"
	c, err := Parse(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.IsTypeID("fire"))
	assert.False(t, c.IsTypeID("water"))

	_, err = c.RandomByGeneration(rand.New(rand.NewPCG(1, 1)), "2")
	require.ErrorIs(t, err, ErrNoSpecies)
}

func TestParseRejectsBadData(t *testing.T) {
	for name, data := range map[string]string{
		"bad dex":    "x,Bulbasaur,grass\n",
		"no type":    "1,Bulbasaur,\n",
		"duplicate":  "1,Mr. Mime,psychic\n2,mr mime,psychic\n",
		"few fields": "1,Bulbasaur\n",
		"empty":      "# nothing\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(data))
			require.Error(t, err)
		})
	}
}
