// internal/catalog/catalog.go
//
// Read-only Pokémon reference data used by the round engine.
//
// Responsibilities:
//   - Load the species list from the embedded dataset or from an override file.
//   - Answer generation / type membership questions for the start filter.
//   - Pick a uniformly random species for a generation or a type.
//   - Validate guesses against the full species list.
//
// Dataset format (one species per line, '#' comments allowed):
//
//	dex,name,types
//	1,Bulbasaur,grass poison
//
// Generation ranges are fixed in code; species outside every range still load
// but never belong to a generation filter.

package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pokeguess/guesswho/assets"
)

// Species is a single catalog entry.
type Species struct {
	DexNo int
	Name  string   // display name, e.g. "Mr. Mime"
	Types []string // lower case, primary type first
}

// Generation is a contiguous national dex range.
type Generation struct {
	ID     string // "1".."9", the identifier players type
	Number int
	First  int
	Last   int
}

// Contains reports whether dexNo falls inside the generation.
func (g Generation) Contains(dexNo int) bool { return dexNo >= g.First && dexNo <= g.Last }

var generations = []Generation{
	{ID: "1", Number: 1, First: 1, Last: 151},
	{ID: "2", Number: 2, First: 152, Last: 251},
	{ID: "3", Number: 3, First: 252, Last: 386},
	{ID: "4", Number: 4, First: 387, Last: 493},
	{ID: "5", Number: 5, First: 494, Last: 649},
	{ID: "6", Number: 6, First: 650, Last: 721},
	{ID: "7", Number: 7, First: 722, Last: 809},
	{ID: "8", Number: 8, First: 810, Last: 905},
	{ID: "9", Number: 9, First: 906, Last: 1025},
}

var (
	ErrUnknownGeneration = errors.New("catalog: unknown generation")
	ErrUnknownType       = errors.New("catalog: unknown type")
	ErrNoSpecies         = errors.New("catalog: no species match filter")
)

// Rand is the random source used for selection. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand draws from the goroutine-safe top-level math/rand/v2 source.
var DefaultRand Rand = globalRand{}

// Catalog is an immutable, indexed species list. Safe for concurrent use.
type Catalog struct {
	species []Species
	byName  map[string]int   // Normalize(name) -> index
	byType  map[string][]int // type -> indexes
	byGen   map[string][]int // generation id -> indexes
	gens    map[string]Generation
}

// New indexes the given species. Duplicate normalized names are rejected.
func New(species []Species) (*Catalog, error) {
	c := &Catalog{
		species: make([]Species, 0, len(species)),
		byName:  make(map[string]int, len(species)),
		byType:  make(map[string][]int),
		byGen:   make(map[string][]int),
		gens:    make(map[string]Generation, len(generations)),
	}
	for _, g := range generations {
		c.gens[g.ID] = g
	}
	for _, sp := range species {
		key := Normalize(sp.Name)
		if key == "" {
			return nil, fmt.Errorf("catalog: species #%d has an empty name", sp.DexNo)
		}
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate species %q", sp.Name)
		}
		i := len(c.species)
		c.species = append(c.species, sp)
		c.byName[key] = i
		for _, t := range sp.Types {
			c.byType[t] = append(c.byType[t], i)
		}
		if g, ok := c.GenerationOf(sp.DexNo); ok {
			c.byGen[g.ID] = append(c.byGen[g.ID], i)
		}
	}
	if len(c.species) == 0 {
		return nil, errors.New("catalog: species list is empty")
	}
	return c, nil
}

// Parse reads the CSV dataset format.
func Parse(r io.Reader) (*Catalog, error) {
	lines, err := assets.ReadLines(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: read: %w", err)
	}
	cr := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	cr.FieldsPerRecord = 3
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	species := make([]Species, 0, len(records))
	for _, rec := range records {
		dex, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil || dex <= 0 {
			return nil, fmt.Errorf("catalog: bad dex number %q", rec[0])
		}
		types := strings.Fields(strings.ToLower(rec[2]))
		if len(types) == 0 {
			return nil, fmt.Errorf("catalog: species #%d has no type", dex)
		}
		species = append(species, Species{DexNo: dex, Name: strings.TrimSpace(rec[1]), Types: types})
	}
	return New(species)
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded national dex, loaded once.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		f, err := assets.Catalog()
		if err != nil {
			defaultErr = err
			return
		}
		defer f.Close()
		defaultCat, defaultErr = Parse(f)
	})
	return defaultCat, defaultErr
}

// Load reads the dataset at path, or returns Default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// IsGenerationID reports whether s names a known generation ("1".."9").
func (c *Catalog) IsGenerationID(s string) bool {
	_, ok := c.gens[s]
	return ok
}

// IsTypeID reports whether s is a type carried by at least one species, ignoring case.
func (c *Catalog) IsTypeID(s string) bool {
	_, ok := c.byType[strings.ToLower(s)]
	return ok
}

// IsKnownSpeciesName reports whether name matches a species after normalization.
func (c *Catalog) IsKnownSpeciesName(name string) bool {
	_, ok := c.byName[Normalize(name)]
	return ok
}

// Lookup finds a species by name after normalization.
func (c *Catalog) Lookup(name string) (Species, bool) {
	i, ok := c.byName[Normalize(name)]
	if !ok {
		return Species{}, false
	}
	return c.species[i], true
}

// GenerationOf returns the generation whose range contains dexNo.
func (c *Catalog) GenerationOf(dexNo int) (Generation, bool) {
	for _, g := range generations {
		if g.Contains(dexNo) {
			return g, true
		}
	}
	return Generation{}, false
}

// RandomByGeneration picks a species uniformly from the generation's range.
func (c *Catalog) RandomByGeneration(rng Rand, genID string) (Species, error) {
	if !c.IsGenerationID(genID) {
		return Species{}, fmt.Errorf("%w: %q", ErrUnknownGeneration, genID)
	}
	return c.pick(rng, c.byGen[genID])
}

// RandomByType picks a species uniformly among those carrying typeID.
func (c *Catalog) RandomByType(rng Rand, typeID string) (Species, error) {
	idx, ok := c.byType[strings.ToLower(typeID)]
	if !ok {
		return Species{}, fmt.Errorf("%w: %q", ErrUnknownType, typeID)
	}
	return c.pick(rng, idx)
}

func (c *Catalog) pick(rng Rand, idx []int) (Species, error) {
	if len(idx) == 0 {
		return Species{}, ErrNoSpecies
	}
	return c.species[idx[rng.IntN(len(idx))]], nil
}

// Generations lists the known generations in order.
func (c *Catalog) Generations() []Generation {
	return append([]Generation(nil), generations...)
}

// Types lists every type present in the catalog, sorted.
func (c *Catalog) Types() []string {
	out := make([]string, 0, len(c.byType))
	for t := range c.byType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of species.
func (c *Catalog) Len() int { return len(c.species) }
