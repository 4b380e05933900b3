package simulation

import (
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/sherine-k/parksim/pkg/behavior"
	"github.com/sherine-k/parksim/pkg/config"
	"github.com/sherine-k/parksim/pkg/logging"
)

func testPark() config.ParkConfig {
	return config.ParkConfig{
		Name:       "Test Park",
		Seed:       42,
		Open:       "09:00",
		Close:      "17:00",
		TickLength: time.Minute,
		TieBreak:   config.TieBreakStandby,
	}
}

func expeditedAttraction(name string, hourly int) config.AttractionConfig {
	return config.AttractionConfig{
		Name:             name,
		HourlyThroughput: hourly,
		RideDuration:     3 * time.Minute,
		Popularity:       5,
		ExpeditedQueue:   true,
		ExpeditedShare:   0.3,
		MinStandbyShare:  0.1,
		PassesPerHour:    float64(hourly) * 0.3,
		PassWindow:       "0 * * * *",
		ReturnWindow:     time.Hour,
		PassesPerAgent:   1,
	}
}

func newTestAttraction(t *testing.T, ac config.AttractionConfig, park config.ParkConfig) *Attraction {
	t.Helper()
	d, err := park.OperatingDuration()
	if err != nil {
		t.Fatalf("OperatingDuration failed: %v", err)
	}
	a, err := NewAttraction(ac, park, park.TicksFor(d))
	if err != nil {
		t.Fatalf("NewAttraction failed: %v", err)
	}
	return a
}

func testProfile(t *testing.T, mutate func(*behavior.Params)) *behavior.Profile {
	t.Helper()
	p := behavior.RideEnthusiast.DefaultParams()
	p.PassAwareness = 1
	p.PursuitThreshold = 20 * time.Minute
	p.MaxPasses = 1
	if mutate != nil {
		mutate(&p)
	}
	profile, err := behavior.NewProfile(p)
	if err != nil {
		t.Fatalf("NewProfile failed: %v", err)
	}
	return profile
}

func testAgent(id int, profile *behavior.Profile) *Agent {
	return &Agent{
		id:               id,
		profile:          profile,
		ageClass:         behavior.NoPreference,
		passAware:        true,
		plannedDeparture: 1000,
		departure:        -1,
		state:            Deciding,
		passes:           make(map[string][]Pass),
		history: History{
			Attractions: make(map[string]int),
			Activities:  make(map[string]int),
		},
	}
}

func testContext(attractions []*Attraction, activities []*Activity) *RunContext {
	rc := &RunContext{
		TickLength:  time.Minute,
		Closing:     480,
		rng:         rand.New(rand.NewSource(1)),
		attractions: attractions,
		byName:      make(map[string]*Attraction),
		activities:  activities,
		logger:      logging.NewLogger("info", io.Discard),
	}
	for _, a := range attractions {
		rc.byName[a.name] = a
	}
	return rc
}

func eventTypes(events []Event, agent int) []EventType {
	var out []EventType
	for _, e := range events {
		if e.AgentID == agent {
			out = append(out, e.Type)
		}
	}
	return out
}
