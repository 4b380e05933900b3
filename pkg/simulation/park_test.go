package simulation

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sherine-k/parksim/pkg/behavior"
	"github.com/sherine-k/parksim/pkg/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Park.Name = "Test Park"
	cfg.Park.Seed = 11
	cfg.Park.Open = "09:00"
	cfg.Park.Close = "13:00"
	cfg.Park.TotalDailyAgents = 600
	cfg.Park.HourlyArrivals = []float64{40, 30, 20, 10}
	cfg.Park.PerfectArrivals = true
	cfg.Park.ExpeditedAwareness = 100
	cfg.Park.ExpeditedThreshold = 10 * time.Minute
	cfg.Park.ExpeditedLimit = 2
	cfg.Attractions = []config.AttractionConfig{
		{
			Name:             "Coaster",
			HourlyThroughput: 60,
			RideDuration:     3 * time.Minute,
			Popularity:       8,
			ExpeditedQueue:   true,
			ExpeditedShare:   0.3,
		},
		{
			Name:             "Carousel",
			HourlyThroughput: 200,
			RideDuration:     5 * time.Minute,
			Popularity:       4,
		},
	}
	cfg.Activities = []config.ActivityConfig{
		{Name: "Shops", Popularity: 5, MeanDuration: 20 * time.Minute},
	}
	return cfg
}

func TestNewPark_InvalidConfiguration(t *testing.T) {
	cfg := testConfig()
	cfg.Park.HourlyArrivals = []float64{40, 30, 20}

	park, err := NewPark(cfg)
	if !errors.Is(err, config.ErrConfigurationInvalid) {
		t.Fatalf("expected ErrConfigurationInvalid, got %v", err)
	}
	if park != nil {
		t.Error("expected no park for an invalid configuration")
	}
}

func TestPark_Run(t *testing.T) {
	park, err := NewPark(testConfig())
	if err != nil {
		t.Fatalf("NewPark failed: %v", err)
	}
	if park.ClosingTick() != 240 {
		t.Fatalf("ClosingTick() = %d, want 240", park.ClosingTick())
	}

	report, err := park.Run(0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Ticks != 240 || len(report.TimePoints) != 240 {
		t.Errorf("expected 240 ticks and time points, got %d and %d", report.Ticks, len(report.TimePoints))
	}
	if report.Totals.Agents != 600 {
		t.Errorf("perfect arrivals admitted %d agents, want 600", report.Totals.Agents)
	}
	if report.RunID == "" {
		t.Error("expected a run id")
	}
	for _, a := range park.Agents() {
		if a.State() != Departed {
			t.Fatalf("agent %d still %s after closing", a.ID(), a.State())
		}
		if a.HeldPasses() != 0 {
			t.Fatalf("agent %d left holding passes", a.ID())
		}
	}
	if report.Totals.Rides == 0 || report.Totals.ActivityVisits == 0 {
		t.Errorf("expected rides and activity visits, got %+v", report.Totals)
	}
	coaster, ok := report.Attraction("Coaster")
	if !ok {
		t.Fatal("missing Coaster stats")
	}
	if coaster.Passes.Issued == 0 {
		t.Error("expected passes to be issued at a busy expedited ride")
	}
	if coaster.P50Wait > coaster.P90Wait || coaster.P90Wait > coaster.P95Wait || coaster.P95Wait > coaster.MaxWait {
		t.Errorf("wait percentiles out of order: %+v", coaster)
	}
	counts := report.EventCounts()
	if counts[EventTypeArrived] != 600 || counts[EventTypeDeparted] != 600 {
		t.Errorf("expected 600 arrivals and departures, got %d and %d", counts[EventTypeArrived], counts[EventTypeDeparted])
	}

	if _, err := park.Run(0); !errors.Is(err, ErrAlreadyRan) {
		t.Errorf("expected ErrAlreadyRan, got %v", err)
	}
}

func TestPark_RunHoldsLimits(t *testing.T) {
	for _, perAgent := range []int{1, 2} {
		t.Run(strconv.Itoa(perAgent)+" per agent", func(t *testing.T) {
			cfg := testConfig()
			cfg.Attractions[0].PassesPerAgent = perAgent

			var park *Park
			var failure string
			hook := func(rc *RunContext) {
				if failure != "" {
					return
				}
				for _, a := range park.Agents() {
					if a.HeldPasses() > a.Profile().MaxPasses() {
						failure = "agent holds more passes than its profile allows"
						return
					}
					for _, at := range park.Attractions() {
						if a.PassesFor(at.Name()) > at.PassLimit() {
							failure = at.Name() + ": agent holds more passes than the attraction allows"
							return
						}
					}
				}
				for _, at := range park.Attractions() {
					if at.HasExpeditedQueue() && at.OutstandingPasses() > at.windows.cumulativeAllowance(rc.Now) {
						failure = at.Name() + ": outstanding passes exceed cumulative allowance"
						return
					}
				}
			}

			var err error
			park, err = NewPark(cfg, WithTickHook(hook))
			if err != nil {
				t.Fatalf("NewPark failed: %v", err)
			}
			report, err := park.Run(0)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if failure != "" {
				t.Fatal(failure)
			}

			for _, tp := range report.TimePoints {
				for _, q := range tp.Queues {
					want := min(q.Service.Slots, q.Service.StandbyEligible+q.Service.ExpeditedEligible)
					if q.Service.Served() != want {
						t.Fatalf("tick %d %s: served %d, want %d", tp.Tick, q.Attraction, q.Service.Served(), want)
					}
				}
			}

			// a pass-issued event always precedes the same agent's redemption there
			issued := make(map[[2]any]int)
			for _, e := range report.Events {
				key := [2]any{e.AgentID, e.Location}
				switch e.Type {
				case EventTypePassIssued:
					issued[key]++
				case EventTypePassRedeemed:
					if issued[key] == 0 {
						t.Fatalf("agent %d redeemed at %s without a pass", e.AgentID, e.Location)
					}
					issued[key]--
				}
			}
		})
	}
}

func TestPark_ReportEncodes(t *testing.T) {
	park, err := NewPark(testConfig())
	if err != nil {
		t.Fatalf("NewPark failed: %v", err)
	}
	report, err := park.Run(0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for _, tp := range report.TimePoints {
		for _, q := range tp.Queues {
			for _, w := range []float64{q.StandbyWait, q.ExpeditedWait} {
				if math.IsInf(w, 0) || math.IsNaN(w) {
					t.Fatalf("tick %d %s: wait estimate %v", tp.Tick, q.Attraction, w)
				}
			}
		}
	}

	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal failed: %v", err)
	}
	if decoded.Totals != report.Totals || len(decoded.TimePoints) != len(report.TimePoints) {
		t.Errorf("decoded report differs: totals %+v, %d time points", decoded.Totals, len(decoded.TimePoints))
	}
}

func TestPark_RunMissingProfile(t *testing.T) {
	park, err := NewPark(testConfig())
	if err != nil {
		t.Fatalf("NewPark failed: %v", err)
	}
	park.catalog, err = behavior.NewCatalog(behavior.ParkTourer.DefaultParams())
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	report, err := park.Run(0)
	if err == nil {
		t.Fatal("expected Run to fail for an archetype without a profile")
	}
	if report != nil {
		t.Error("expected no report from a failed run")
	}
	if !strings.Contains(err.Error(), "no profile for archetype") {
		t.Errorf("unexpected error %q", err)
	}
}

func TestPark_Deterministic(t *testing.T) {
	run := func() *Report {
		park, err := NewPark(testConfig())
		if err != nil {
			t.Fatalf("NewPark failed: %v", err)
		}
		report, err := park.Run(0)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return report
	}
	a, b := run(), run()
	if a.RunID == b.RunID {
		t.Error("expected distinct run ids")
	}
	if !reflect.DeepEqual(a.Events, b.Events) {
		t.Error("same seed produced different event logs")
	}
	if !reflect.DeepEqual(a.Attractions, b.Attractions) || a.Totals != b.Totals {
		t.Error("same seed produced different statistics")
	}
}

func TestPark_StochasticArrivals(t *testing.T) {
	cfg := testConfig()
	cfg.Park.PerfectArrivals = false
	park, err := NewPark(cfg)
	if err != nil {
		t.Fatalf("NewPark failed: %v", err)
	}
	report, err := park.Run(0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Totals.Agents != park.Schedule().Total() {
		t.Errorf("admitted %d agents, schedule has %d", report.Totals.Agents, park.Schedule().Total())
	}
}

func TestPark_PartialRun(t *testing.T) {
	park, err := NewPark(testConfig())
	if err != nil {
		t.Fatalf("NewPark failed: %v", err)
	}
	report, err := park.Run(90)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Ticks != 90 || len(report.TimePoints) != 90 {
		t.Errorf("expected a 90 tick run, got %d", report.Ticks)
	}
	// 40% of 600 in the first hour, then half of the second hour's 30%
	if report.Totals.Agents != 330 {
		t.Errorf("admitted %d agents in 90 ticks, want 330", report.Totals.Agents)
	}
}
