package behavior

import (
	"fmt"
	"math"
	"math/rand"
)

// Catalog is the archetype -> profile lookup table consumed by the
// simulation. It is built once and only read afterwards.
type Catalog struct {
	profiles map[Archetype]*Profile
}

// NewCatalog freezes one profile per Params entry. Later entries for the
// same archetype replace earlier ones.
func NewCatalog(params ...Params) (*Catalog, error) {
	c := &Catalog{profiles: make(map[Archetype]*Profile, len(params))}
	for _, p := range params {
		profile, err := NewProfile(p)
		if err != nil {
			return nil, err
		}
		c.profiles[p.Archetype] = profile
	}
	return c, nil
}

// DefaultCatalog builds a catalog from the built-in parameters of every
// archetype.
func DefaultCatalog() *Catalog {
	params := make([]Params, 0, len(Archetypes))
	for _, a := range Archetypes {
		params = append(params, a.DefaultParams())
	}
	c, err := NewCatalog(params...)
	if err != nil {
		panic(fmt.Sprintf("built-in archetype parameters are invalid: %v", err))
	}
	return c
}

// Lookup returns the profile for a.
func (c *Catalog) Lookup(a Archetype) (*Profile, error) {
	p, ok := c.profiles[a]
	if !ok {
		return nil, fmt.Errorf("no profile for archetype %s", a)
	}
	return p, nil
}

// Len returns the number of profiles in the catalog.
func (c *Catalog) Len() int {
	return len(c.profiles)
}

// Distribution is the percent of arriving agents per archetype.
type Distribution map[Archetype]float64

// Validate checks that the percentages are non-negative and add up to 100.
func (d Distribution) Validate() error {
	if len(d) == 0 {
		return fmt.Errorf("archetype distribution is empty")
	}
	total := 0.0
	for a, pct := range d {
		if pct < 0 {
			return fmt.Errorf("archetype %s has negative share %f", a, pct)
		}
		total += pct
	}
	if math.Abs(total-100) > 1e-9 {
		return fmt.Errorf("archetype distribution adds up to %.2f%%, want 100%%", total)
	}
	return nil
}

// Sample picks an archetype in proportion to its share. Archetypes are
// walked in enum order so a fixed seed always yields the same pick.
func (d Distribution) Sample(r *rand.Rand) Archetype {
	total := 0.0
	for _, a := range Archetypes {
		total += d[a]
	}
	x := r.Float64() * total
	floor := 0.0
	last := Archetypes[0]
	for _, a := range Archetypes {
		w := d[a]
		if w <= 0 {
			continue
		}
		floor += w
		last = a
		if x < floor {
			return a
		}
	}
	return last
}
