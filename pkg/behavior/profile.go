package behavior

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// AgeClass restricts which attractions an agent is willing to ride.
type AgeClass int

const (
	NoPreference AgeClass = iota
	NoChildRides
	NoAdultRides
)

func (c AgeClass) String() string {
	switch c {
	case NoChildRides:
		return "no_child_rides"
	case NoAdultRides:
		return "no_adult_rides"
	default:
		return "no_preference"
	}
}

// Allows reports whether an agent of this class rides an attraction with
// the given eligibility flags.
func (c AgeClass) Allows(childEligible, adultEligible bool) bool {
	switch c {
	case NoChildRides:
		return adultEligible
	case NoAdultRides:
		return childEligible
	default:
		return childEligible || adultEligible
	}
}

// AgeSplit is the share of an archetype's agents in each age class.
type AgeSplit struct {
	NoChildRides float64
	NoAdultRides float64
	NoPreference float64
}

// Sum returns the total of the three shares.
func (s AgeSplit) Sum() float64 {
	return s.NoChildRides + s.NoAdultRides + s.NoPreference
}

// Sample draws an age class in proportion to the split.
func (s AgeSplit) Sample(r *rand.Rand) AgeClass {
	x := r.Float64() * s.Sum()
	if x < s.NoChildRides {
		return NoChildRides
	}
	if x < s.NoChildRides+s.NoAdultRides {
		return NoAdultRides
	}
	return NoPreference
}

// Params is the mutable input used to build a Profile.
type Params struct {
	Archetype            Archetype
	StayTarget           time.Duration
	AllowRepeats         bool
	AttractionPreference float64
	WaitThreshold        time.Duration
	// Tolerance overrides the hard WaitThreshold cutoff when set.
	Tolerance        Tolerance
	PassAwareness    float64
	PursuitThreshold time.Duration
	MaxPasses        int
	AgeSplit         AgeSplit
}

// Profile is the immutable behavior record shared by every agent of one
// archetype.
type Profile struct {
	archetype            Archetype
	stayTarget           time.Duration
	allowRepeats         bool
	attractionPreference float64
	tolerance            Tolerance
	passAwareness        float64
	pursuitThreshold     time.Duration
	maxPasses            int
	ageSplit             AgeSplit
}

// NewProfile validates p and freezes it into a Profile.
func NewProfile(p Params) (*Profile, error) {
	if !p.Archetype.Valid() {
		return nil, fmt.Errorf("invalid archetype %d", int(p.Archetype))
	}
	if p.StayTarget <= 0 {
		return nil, fmt.Errorf("%s: stay target must be greater than 0", p.Archetype)
	}
	if p.AttractionPreference < 0 || p.AttractionPreference > 1 {
		return nil, fmt.Errorf("%s: attraction preference must be between 0 and 1, got %f", p.Archetype, p.AttractionPreference)
	}
	if p.PassAwareness < 0 || p.PassAwareness > 1 {
		return nil, fmt.Errorf("%s: pass awareness must be between 0 and 1, got %f", p.Archetype, p.PassAwareness)
	}
	if p.PursuitThreshold < 0 {
		return nil, fmt.Errorf("%s: pursuit threshold must be non-negative", p.Archetype)
	}
	if p.MaxPasses < 0 {
		return nil, fmt.Errorf("%s: max passes must be non-negative", p.Archetype)
	}
	if sum := p.AgeSplit.Sum(); math.Abs(sum-1) > 0.02 {
		return nil, fmt.Errorf("%s: age split must add up to 1, got %.3f", p.Archetype, sum)
	}

	tol := p.Tolerance
	if tol == nil {
		if p.WaitThreshold <= 0 {
			return nil, errors.New(p.Archetype.String() + ": wait threshold or tolerance is required")
		}
		tol = HardThreshold{Max: p.WaitThreshold.Minutes()}
	}

	return &Profile{
		archetype:            p.Archetype,
		stayTarget:           p.StayTarget,
		allowRepeats:         p.AllowRepeats,
		attractionPreference: p.AttractionPreference,
		tolerance:            tol,
		passAwareness:        p.PassAwareness,
		pursuitThreshold:     p.PursuitThreshold,
		maxPasses:            p.MaxPasses,
		ageSplit:             p.AgeSplit,
	}, nil
}

func (p *Profile) Archetype() Archetype { return p.archetype }
func (p *Profile) StayTarget() time.Duration { return p.stayTarget }
func (p *Profile) AllowRepeats() bool { return p.allowRepeats }
func (p *Profile) AttractionPreference() float64 { return p.attractionPreference }
func (p *Profile) Tolerance() Tolerance { return p.tolerance }
func (p *Profile) PassAwareness() float64 { return p.passAwareness }
func (p *Profile) PursuitThreshold() time.Duration { return p.pursuitThreshold }
func (p *Profile) MaxPasses() int { return p.maxPasses }
func (p *Profile) AgeSplit() AgeSplit { return p.ageSplit }

// WillPursuePass reports whether a standby wait (minutes) is long enough
// that an agent with this profile goes looking for a pass.
func (p *Profile) WillPursuePass(waitMinutes float64) bool {
	return p.maxPasses > 0 && waitMinutes > p.pursuitThreshold.Minutes()
}
