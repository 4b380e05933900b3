package config

import (
	"fmt"
	"time"
)

// Config represents the entire configuration for one simulated park day
type Config struct {
	Park        ParkConfig         `yaml:"park"`
	Attractions []AttractionConfig `yaml:"attractions"`
	Activities  []ActivityConfig   `yaml:"activities"`
	Profiles    []ProfileConfig    `yaml:"profiles,omitempty"`
	Logging     LoggingConfig      `yaml:"logging"`
}

// ParkConfig holds the park-level settings
type ParkConfig struct {
	Name       string        `yaml:"name"`
	Seed       int64         `yaml:"seed"`
	Open       string        `yaml:"open"`
	Close      string        `yaml:"close"`
	TickLength time.Duration `yaml:"tickLength"`

	TotalDailyAgents int `yaml:"totalDailyAgents"`
	// HourlyArrivals is the percent of the daily total arriving in each
	// opening hour, starting at Open. It must add up to 100.
	HourlyArrivals  []float64 `yaml:"hourlyArrivals"`
	PerfectArrivals bool      `yaml:"perfectArrivals"`

	// ArchetypeDistribution is the percent of agents per archetype id.
	ArchetypeDistribution map[string]float64 `yaml:"archetypeDistribution"`

	// Expedited pass defaults applied to every archetype profile
	ExpeditedAwareness float64       `yaml:"expeditedAwareness"` // percent of agents who know about passes
	ExpeditedThreshold time.Duration `yaml:"expeditedThreshold"`
	ExpeditedLimit     int           `yaml:"expeditedLimit"`
	TieBreak           TieBreak      `yaml:"tieBreak"`
}

// TieBreak decides which queue gets the rounded-up slot when eligible
// backlogs are equal
type TieBreak string

const (
	TieBreakStandby   TieBreak = "standby"
	TieBreakExpedited TieBreak = "expedited"
)

// AttractionConfig describes one queued ride
type AttractionConfig struct {
	Name             string        `yaml:"name"`
	HourlyThroughput int           `yaml:"hourlyThroughput"`
	RideDuration     time.Duration `yaml:"rideDuration"`
	Popularity       int           `yaml:"popularity"`
	ChildEligible    *bool         `yaml:"childEligible,omitempty"`
	AdultEligible    *bool         `yaml:"adultEligible,omitempty"`
	MaxQueueLength   int           `yaml:"maxQueueLength,omitempty"`

	// For attractions with an expedited line
	ExpeditedQueue  bool          `yaml:"expeditedQueue"`
	ExpeditedShare  float64       `yaml:"expeditedShare,omitempty"`
	MinStandbyShare float64       `yaml:"minStandbyShare,omitempty"`
	PassesPerHour   float64       `yaml:"passesPerHour,omitempty"`
	PassWindow      string        `yaml:"passWindow,omitempty"` // cron expression, issuance window boundaries
	ReturnWindow    time.Duration `yaml:"returnWindow,omitempty"`
	PassesPerAgent  int           `yaml:"passesPerAgent,omitempty"` // passes one agent may hold here at once
}

// IsChildEligible defaults to true when unset
func (a AttractionConfig) IsChildEligible() bool {
	return a.ChildEligible == nil || *a.ChildEligible
}

// IsAdultEligible defaults to true when unset
func (a AttractionConfig) IsAdultEligible() bool {
	return a.AdultEligible == nil || *a.AdultEligible
}

// ActivityConfig describes one unqueued activity
type ActivityConfig struct {
	Name         string        `yaml:"name"`
	Popularity   int           `yaml:"popularity"`
	MeanDuration time.Duration `yaml:"meanDuration"`
	MinDuration  time.Duration `yaml:"minDuration,omitempty"`
}

// ProfileConfig overrides built-in archetype parameters. Zero or nil
// fields keep the built-in value.
type ProfileConfig struct {
	Archetype            string        `yaml:"archetype"`
	StayTarget           time.Duration `yaml:"stayTarget,omitempty"`
	AllowRepeats         *bool         `yaml:"allowRepeats,omitempty"`
	AttractionPreference *float64      `yaml:"attractionPreference,omitempty"`
	WaitThreshold        time.Duration `yaml:"waitThreshold,omitempty"`
	// ToleranceSpread switches the wait cutoff to a logistic curve centered
	// on WaitThreshold.
	ToleranceSpread  time.Duration `yaml:"toleranceSpread,omitempty"`
	PassAwareness    *float64      `yaml:"passAwareness,omitempty"`
	PursuitThreshold time.Duration `yaml:"pursuitThreshold,omitempty"`
	MaxPasses        *int          `yaml:"maxPasses,omitempty"`
	AgeSplit         *AgeSplit     `yaml:"ageSplit,omitempty"`
}

// AgeSplit mirrors behavior.AgeSplit for YAML input
type AgeSplit struct {
	NoChildRides float64 `yaml:"noChildRides"`
	NoAdultRides float64 `yaml:"noAdultRides"`
	NoPreference float64 `yaml:"noPreference"`
}

// LoggingConfig configures operational logging
type LoggingConfig struct {
	// Level is "info" (default), "debug" or "trace".
	Level string `yaml:"level"`
}

// OpenOffset returns the opening time as an offset from midnight
func (p ParkConfig) OpenOffset() (time.Duration, error) {
	return parseClock(p.Open)
}

// OperatingDuration returns how long the park is open
func (p ParkConfig) OperatingDuration() (time.Duration, error) {
	open, err := parseClock(p.Open)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}
	closing, err := parseClock(p.Close)
	if err != nil {
		return 0, fmt.Errorf("close: %w", err)
	}
	return closing - open, nil
}

// TicksPerHour returns how many ticks make one simulated hour
func (p ParkConfig) TicksPerHour() int {
	if p.TickLength <= 0 {
		return 0
	}
	return int(time.Hour / p.TickLength)
}

// TicksFor converts a duration to whole ticks, rounding up
func (p ParkConfig) TicksFor(d time.Duration) int {
	if p.TickLength <= 0 || d <= 0 {
		return 0
	}
	n := int(d / p.TickLength)
	if d%p.TickLength != 0 {
		n++
	}
	return n
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q, want HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
