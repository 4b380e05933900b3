package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/sherine-k/parksim/pkg/behavior"
	"github.com/sherine-k/parksim/pkg/logging"
)

// ErrConfigurationInvalid marks every configuration problem that must stop
// a run before its first tick.
var ErrConfigurationInvalid = errors.New("configuration invalid")

const (
	defaultPassWindow      = "0 * * * *"
	defaultReturnWindow    = time.Hour
	defaultMinStandbyShare = 0.1
	defaultMinActivity     = time.Minute
)

// Default returns a Config with the park-level defaults filled in.
// Attractions, activities and the arrival table have no defaults.
func Default() *Config {
	return &Config{
		Park: ParkConfig{
			Name:               "Park",
			Open:               "09:00",
			Close:              "21:00",
			TickLength:         time.Minute,
			ExpeditedAwareness: 50,
			ExpeditedThreshold: 30 * time.Minute,
			ExpeditedLimit:     1,
			TieBreak:           TieBreakStandby,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultArchetypeDistribution is used when the config names none.
func DefaultArchetypeDistribution() map[string]float64 {
	return map[string]float64{
		behavior.RideEnthusiast.String():     10,
		behavior.RideFavorer.String():        15,
		behavior.ParkTourer.String():         35,
		behavior.ParkVisitor.String():        15,
		behavior.ActivityFavorer.String():    15,
		behavior.ActivityEnthusiast.String(): 10,
	}
}

// LoadConfig loads and parses the configuration file
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(config)
	config.Normalize()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Normalize fills per-item defaults left at their zero value. It is safe
// to call more than once.
func (c *Config) Normalize() {
	if c.Park.TickLength == 0 {
		c.Park.TickLength = time.Minute
	}
	if c.Park.TieBreak == "" {
		c.Park.TieBreak = TieBreakStandby
	}
	if len(c.Park.ArchetypeDistribution) == 0 {
		c.Park.ArchetypeDistribution = DefaultArchetypeDistribution()
	}
	for i := range c.Attractions {
		a := &c.Attractions[i]
		if !a.ExpeditedQueue {
			continue
		}
		if a.MinStandbyShare == 0 {
			a.MinStandbyShare = defaultMinStandbyShare
		}
		if a.PassWindow == "" {
			a.PassWindow = defaultPassWindow
		}
		if a.ReturnWindow == 0 {
			a.ReturnWindow = defaultReturnWindow
		}
		if a.PassesPerAgent == 0 {
			a.PassesPerAgent = 1
		}
		if a.PassesPerHour == 0 {
			a.PassesPerHour = float64(a.HourlyThroughput) * a.ExpeditedShare
		}
	}
	for i := range c.Activities {
		if c.Activities[i].MinDuration == 0 {
			c.Activities[i].MinDuration = defaultMinActivity
		}
	}
}

// Validate checks the whole configuration. Every failure wraps
// ErrConfigurationInvalid.
func (c *Config) Validate() error {
	if err := validateConfig(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigurationInvalid, err)
	}
	return nil
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if err := validatePark(&config.Park); err != nil {
		return err
	}

	if len(config.Activities) == 0 {
		return fmt.Errorf("at least one activity must be defined")
	}

	names := make(map[string]bool)
	for i, a := range config.Attractions {
		if a.Name == "" {
			return fmt.Errorf("attraction %d: name is required", i)
		}
		if names[a.Name] {
			return fmt.Errorf("attraction %s: duplicate name", a.Name)
		}
		names[a.Name] = true
		if err := validateAttraction(a, config.Park.TickLength); err != nil {
			return fmt.Errorf("attraction %s: %w", a.Name, err)
		}
	}

	for i, a := range config.Activities {
		if a.Name == "" {
			return fmt.Errorf("activity %d: name is required", i)
		}
		if names[a.Name] {
			return fmt.Errorf("activity %s: duplicate name", a.Name)
		}
		names[a.Name] = true
		if a.Popularity < 0 || a.Popularity > 10 {
			return fmt.Errorf("activity %s: popularity must be between 0 and 10", a.Name)
		}
		if a.MeanDuration <= 0 {
			return fmt.Errorf("activity %s: meanDuration must be greater than 0", a.Name)
		}
		if a.MinDuration < 0 {
			return fmt.Errorf("activity %s: minDuration must be non-negative", a.Name)
		}
	}

	if _, err := config.Distribution(); err != nil {
		return err
	}
	if _, err := config.Catalog(); err != nil {
		return err
	}

	if !logging.ValidLevel(config.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace)", config.Logging.Level)
	}

	return nil
}

func validatePark(p *ParkConfig) error {
	if p.TickLength <= 0 {
		return fmt.Errorf("tickLength must be greater than 0")
	}
	if time.Hour%p.TickLength != 0 {
		return fmt.Errorf("tickLength %s must divide one hour evenly", p.TickLength)
	}

	operating, err := p.OperatingDuration()
	if err != nil {
		return err
	}
	if operating <= 0 {
		return fmt.Errorf("close (%s) must be after open (%s)", p.Close, p.Open)
	}
	if operating%p.TickLength != 0 {
		return fmt.Errorf("operating hours must be a whole number of ticks")
	}

	if p.TotalDailyAgents <= 0 {
		return fmt.Errorf("totalDailyAgents must be greater than 0")
	}

	if len(p.HourlyArrivals) == 0 {
		return fmt.Errorf("hourlyArrivals must list at least one hour")
	}
	if len(p.HourlyArrivals) > 24 {
		return fmt.Errorf("hourlyArrivals suggests the park is open more than 24 hours (%d)", len(p.HourlyArrivals))
	}
	hoursOpen := int(math.Ceil(operating.Hours()))
	if len(p.HourlyArrivals) > hoursOpen {
		return fmt.Errorf("hourlyArrivals lists %d hours but the park is open %d", len(p.HourlyArrivals), hoursOpen)
	}
	total := 0.0
	for hour, pct := range p.HourlyArrivals {
		if pct < 0 {
			return fmt.Errorf("hourlyArrivals[%d] is negative", hour)
		}
		total += pct
	}
	if math.Abs(total-100) > 1e-9 {
		return fmt.Errorf("the percent of hourly arrivals adds up to %.2f%%, want 100%%", total)
	}

	if p.ExpeditedAwareness < 0 || p.ExpeditedAwareness > 100 {
		return fmt.Errorf("expeditedAwareness must be between 0 and 100")
	}
	if p.ExpeditedThreshold < 0 {
		return fmt.Errorf("expeditedThreshold must be non-negative")
	}
	if p.ExpeditedLimit < 0 {
		return fmt.Errorf("expeditedLimit must be non-negative")
	}
	if p.TieBreak != TieBreakStandby && p.TieBreak != TieBreakExpedited {
		return fmt.Errorf("tieBreak must be either 'standby' or 'expedited'")
	}

	return nil
}

func validateAttraction(a AttractionConfig, tick time.Duration) error {
	if a.HourlyThroughput <= 0 {
		return fmt.Errorf("hourlyThroughput must be greater than 0")
	}
	if a.RideDuration <= 0 {
		return fmt.Errorf("rideDuration must be greater than 0")
	}
	if a.Popularity < 1 || a.Popularity > 10 {
		return fmt.Errorf("popularity must be an integer between 1 and 10")
	}
	if a.MaxQueueLength < 0 {
		return fmt.Errorf("maxQueueLength must be non-negative")
	}
	if !a.IsChildEligible() && !a.IsAdultEligible() {
		return fmt.Errorf("must be eligible to children, adults or both")
	}

	if !a.ExpeditedQueue {
		return nil
	}
	if a.ExpeditedShare <= 0 || a.ExpeditedShare >= 1 {
		return fmt.Errorf("expeditedShare must be between 0 and 1 (exclusive)")
	}
	if a.MinStandbyShare <= 0 || a.MinStandbyShare >= 1 {
		return fmt.Errorf("minStandbyShare must be between 0 and 1 (exclusive)")
	}
	if a.PassesPerAgent < 1 {
		return fmt.Errorf("passesPerAgent must be at least 1")
	}
	if a.PassesPerHour <= 0 {
		return fmt.Errorf("passesPerHour must be greater than 0")
	}
	if _, err := cron.ParseStandard(a.PassWindow); err != nil {
		return fmt.Errorf("passWindow %q: %w", a.PassWindow, err)
	}
	if a.ReturnWindow < tick {
		return fmt.Errorf("returnWindow must be at least one tick")
	}
	return nil
}

// Distribution converts the archetype percentages to a behavior.Distribution.
func (c *Config) Distribution() (behavior.Distribution, error) {
	d := make(behavior.Distribution, len(c.Park.ArchetypeDistribution))
	for name, pct := range c.Park.ArchetypeDistribution {
		a, err := behavior.ParseArchetype(name)
		if err != nil {
			return nil, fmt.Errorf("archetypeDistribution: %w", err)
		}
		d[a] = pct
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Catalog builds the archetype profile table: built-in parameters, then
// park-level pass settings, then per-archetype overrides.
func (c *Config) Catalog() (*behavior.Catalog, error) {
	params := make(map[behavior.Archetype]behavior.Params, len(behavior.Archetypes))
	for _, a := range behavior.Archetypes {
		p := a.DefaultParams()
		p.PassAwareness = c.Park.ExpeditedAwareness / 100
		p.PursuitThreshold = c.Park.ExpeditedThreshold
		p.MaxPasses = c.Park.ExpeditedLimit
		params[a] = p
	}

	for _, override := range c.Profiles {
		a, err := behavior.ParseArchetype(override.Archetype)
		if err != nil {
			return nil, fmt.Errorf("profiles: %w", err)
		}
		p := params[a]
		override.apply(&p)
		params[a] = p
	}

	list := make([]behavior.Params, 0, len(params))
	for _, a := range behavior.Archetypes {
		list = append(list, params[a])
	}
	return behavior.NewCatalog(list...)
}

func (o ProfileConfig) apply(p *behavior.Params) {
	if o.StayTarget > 0 {
		p.StayTarget = o.StayTarget
	}
	if o.AllowRepeats != nil {
		p.AllowRepeats = *o.AllowRepeats
	}
	if o.AttractionPreference != nil {
		p.AttractionPreference = *o.AttractionPreference
	}
	if o.WaitThreshold > 0 {
		p.WaitThreshold = o.WaitThreshold
	}
	if o.ToleranceSpread > 0 {
		p.Tolerance = behavior.Logistic{Midpoint: p.WaitThreshold.Minutes(), Spread: o.ToleranceSpread.Minutes()}
	}
	if o.PassAwareness != nil {
		p.PassAwareness = *o.PassAwareness
	}
	if o.PursuitThreshold > 0 {
		p.PursuitThreshold = o.PursuitThreshold
	}
	if o.MaxPasses != nil {
		p.MaxPasses = *o.MaxPasses
	}
	if o.AgeSplit != nil {
		p.AgeSplit = behavior.AgeSplit{
			NoChildRides: o.AgeSplit.NoChildRides,
			NoAdultRides: o.AgeSplit.NoAdultRides,
			NoPreference: o.AgeSplit.NoPreference,
		}
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("PARKSIM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.Park.Seed = n
		}
	}

	if v := os.Getenv("PARKSIM_TOTAL_AGENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Park.TotalDailyAgents = n
		}
	}

	if v := os.Getenv("PARKSIM_PERFECT_ARRIVALS"); v != "" {
		config.Park.PerfectArrivals = v == "true" || v == "1"
	}

	if v := os.Getenv("PARKSIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}
