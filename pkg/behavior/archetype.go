// Package behavior holds the visitor archetypes and the immutable
// parameter records that drive agent decisions.
package behavior

import (
	"fmt"
	"strings"
	"time"
)

// Archetype is one of the fixed visitor behavior classes.
type Archetype int

const (
	RideEnthusiast Archetype = iota
	RideFavorer
	ParkTourer
	ParkVisitor
	ActivityFavorer
	ActivityEnthusiast
)

// Archetypes lists every archetype in enum order.
var Archetypes = []Archetype{
	RideEnthusiast,
	RideFavorer,
	ParkTourer,
	ParkVisitor,
	ActivityFavorer,
	ActivityEnthusiast,
}

var archetypeNames = map[Archetype]string{
	RideEnthusiast:     "ride_enthusiast",
	RideFavorer:        "ride_favorer",
	ParkTourer:         "park_tourer",
	ParkVisitor:        "park_visitor",
	ActivityFavorer:    "activity_favorer",
	ActivityEnthusiast: "activity_enthusiast",
}

func (a Archetype) String() string {
	if name, ok := archetypeNames[a]; ok {
		return name
	}
	return fmt.Sprintf("archetype(%d)", int(a))
}

// Valid reports whether a is one of the known archetypes.
func (a Archetype) Valid() bool {
	_, ok := archetypeNames[a]
	return ok
}

// ParseArchetype maps a snake_case id such as "park_tourer" to its Archetype.
func ParseArchetype(s string) (Archetype, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, a := range Archetypes {
		if archetypeNames[a] == key {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown archetype %q", s)
}

// baseParams are the built-in archetype parameters. Pass pursuit fields
// are filled from park-level settings when the catalog is built.
var baseParams = map[Archetype]Params{
	// Long stay, rides above all, very patient.
	RideEnthusiast: {
		StayTarget:           540 * time.Minute,
		AllowRepeats:         true,
		AttractionPreference: 0.6,
		WaitThreshold:        480 * time.Minute,
	},
	RideFavorer: {
		StayTarget:           480 * time.Minute,
		AllowRepeats:         true,
		AttractionPreference: 0.5,
		WaitThreshold:        420 * time.Minute,
	},
	// Sees attractions and activities about equally.
	ParkTourer: {
		StayTarget:           420 * time.Minute,
		AttractionPreference: 0.4,
		WaitThreshold:        360 * time.Minute,
	},
	ParkVisitor: {
		StayTarget:           360 * time.Minute,
		AttractionPreference: 0.3,
		WaitThreshold:        240 * time.Minute,
	},
	ActivityFavorer: {
		StayTarget:           300 * time.Minute,
		AttractionPreference: 0.2,
		WaitThreshold:        180 * time.Minute,
	},
	ActivityEnthusiast: {
		StayTarget:           240 * time.Minute,
		AttractionPreference: 0.2,
		WaitThreshold:        90 * time.Minute,
	},
}

// DefaultParams returns the built-in parameters for a. Every archetype
// defaults to an all-ages visitor with no pass awareness.
func (a Archetype) DefaultParams() Params {
	p := baseParams[a]
	p.Archetype = a
	p.AgeSplit = AgeSplit{NoPreference: 1}
	p.MaxPasses = 1
	return p
}
