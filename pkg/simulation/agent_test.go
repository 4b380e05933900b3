package simulation

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/sherine-k/parksim/pkg/behavior"
	"github.com/sherine-k/parksim/pkg/config"
)

func shops() *Activity {
	return NewActivity(config.ActivityConfig{Name: "Shops", Popularity: 5, MeanDuration: time.Hour, MinDuration: 30 * time.Minute}, time.Minute)
}

func prefersRides(p *behavior.Params) { p.AttractionPreference = 1 }

func TestAgent_PursuesPassBeforeStandby(t *testing.T) {
	a := newTestAttraction(t, expeditedAttraction("Coaster", 60), testPark())
	fill(a, Standby, 25, 0, 1000)
	if wait := a.StandbyWait(); wait <= 30 || wait >= 40 {
		t.Fatalf("unexpected standby wait %v", wait)
	}
	rc := testContext([]*Attraction{a}, []*Activity{shops()})
	agent := testAgent(1, testProfile(t, prefersRides))

	agent.Step(rc)

	want := []EventType{EventTypePassRequested, EventTypePassIssued}
	if got := eventTypes(rc.events, 1); !reflect.DeepEqual(got, want) {
		t.Fatalf("events %v, want %v", got, want)
	}
	if !agent.HoldsPass("Coaster") || agent.State() != Deciding {
		t.Fatalf("expected a held pass and a spent tick, state %s", agent.State())
	}

	// the window opens right away; redeem on the next decision
	rc.Now = 1
	agent.Step(rc)
	if agent.State() != QueuedExpedited || agent.HoldsPass("Coaster") {
		t.Fatalf("expected the pass to be redeemed, state %s", agent.State())
	}

	for now := 2; now < 10 && agent.State() == QueuedExpedited; now++ {
		rc.Now = now
		boardings, _ := a.AdvanceService(now)
		for _, b := range boardings {
			if b.Agent == agent {
				agent.board(rc, a, b)
			}
		}
	}
	if agent.State() != Riding {
		t.Fatalf("expedited agent never boarded, state %s", agent.State())
	}
	h := agent.History()
	if h.PassesObtained != 1 || h.PassesRedeemed != 1 {
		t.Errorf("history %+v, want one pass obtained and redeemed", h)
	}
}

func TestAgent_StandbyAfterDenial(t *testing.T) {
	ac := expeditedAttraction("Coaster", 60)
	ac.PassesPerHour = 0.5
	a := newTestAttraction(t, ac, testPark())
	fill(a, Standby, 25, 0, 1000)
	rc := testContext([]*Attraction{a}, []*Activity{shops()})
	agent := testAgent(1, testProfile(t, prefersRides))

	agent.Step(rc)

	want := []EventType{EventTypePassRequested, EventTypePassDenied, EventTypeJoinedStandby}
	if got := eventTypes(rc.events, 1); !reflect.DeepEqual(got, want) {
		t.Fatalf("events %v, want %v", got, want)
	}
	if agent.State() != QueuedStandby || a.StandbyLength() != 26 {
		t.Errorf("expected the agent at the back of standby, state %s", agent.State())
	}
}

func TestAgent_NoPursuit(t *testing.T) {
	tests := []struct {
		name    string
		queue   int
		aware   bool
		profile func(*behavior.Params)
	}{
		{"unaware", 25, false, prefersRides},
		{"wait below threshold", 5, true, prefersRides},
		{"no passes allowed", 25, true, func(p *behavior.Params) { prefersRides(p); p.MaxPasses = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAttraction(t, expeditedAttraction("Coaster", 60), testPark())
			fill(a, Standby, tt.queue, 0, 1000)
			rc := testContext([]*Attraction{a}, []*Activity{shops()})
			agent := testAgent(1, testProfile(t, tt.profile))
			agent.passAware = tt.aware

			agent.Step(rc)

			want := []EventType{EventTypeJoinedStandby}
			if got := eventTypes(rc.events, 1); !reflect.DeepEqual(got, want) {
				t.Errorf("events %v, want %v", got, want)
			}
		})
	}
}

func TestAgent_ActivityEndsAtPassWindow(t *testing.T) {
	a := newTestAttraction(t, expeditedAttraction("Coaster", 60), testPark())
	rc := testContext([]*Attraction{a}, []*Activity{shops()})
	agent := testAgent(1, testProfile(t, func(p *behavior.Params) { p.AttractionPreference = 0 }))
	agent.addPass(Pass{attraction: "Coaster", holder: 1, start: 10, end: 70})

	agent.Step(rc)

	if agent.State() != PerformingActivity {
		t.Fatalf("expected an activity, state %s", agent.State())
	}
	if agent.busyUntil != 10 {
		t.Errorf("activity ends at tick %d, want the window start 10", agent.busyUntil)
	}
}

func TestAgent_AgeClassFiltersRides(t *testing.T) {
	kiddie := config.AttractionConfig{Name: "Carousel", HourlyThroughput: 300, RideDuration: 5 * time.Minute, Popularity: 5}
	adult := false
	kiddie.AdultEligible = &adult
	a := newTestAttraction(t, kiddie, testPark())
	rc := testContext([]*Attraction{a}, []*Activity{shops()})
	agent := testAgent(1, testProfile(t, prefersRides))
	agent.ageClass = behavior.NoChildRides

	agent.Step(rc)

	if agent.State() != PerformingActivity {
		t.Errorf("expected an activity for an adult-only agent, state %s", agent.State())
	}
}

func TestAgent_DepartsAndReturnsPasses(t *testing.T) {
	a := newTestAttraction(t, expeditedAttraction("Coaster", 60), testPark())
	rc := testContext([]*Attraction{a}, []*Activity{shops()})
	agent := testAgent(1, testProfile(t, nil))
	agent.plannedDeparture = 5

	p, err := a.RequestPass(agent, 0)
	if err != nil {
		t.Fatalf("RequestPass failed: %v", err)
	}
	agent.addPass(Pass{id: p.id, attraction: p.attraction, holder: 1, start: 20, end: 80})

	rc.Now = 5
	agent.Step(rc)

	if agent.State() != Departed || agent.Departure() != 5 {
		t.Fatalf("expected departure at tick 5, state %s at %d", agent.State(), agent.Departure())
	}
	if agent.HeldPasses() != 0 || a.OutstandingPasses() != 0 {
		t.Errorf("passes not handed back on departure")
	}
	if agent.History().PassesReturned != 1 || a.PassCounters().Returned != 1 {
		t.Errorf("expected one returned pass")
	}

	// departed is terminal
	rc.Now = 6
	agent.Step(rc)
	if got := len(eventTypes(rc.events, 1)); got != 1 {
		t.Errorf("departed agent kept emitting events: %d", got)
	}
}

func TestAgent_DropsExpiredPass(t *testing.T) {
	rc := testContext(nil, []*Activity{shops()})
	agent := testAgent(1, testProfile(t, nil))
	agent.addPass(Pass{attraction: "Coaster", holder: 1, start: 0, end: 3})

	rc.Now = 4
	agent.Step(rc)

	if agent.HoldsPass("Coaster") || agent.History().PassesExpired != 1 {
		t.Errorf("expired pass still held")
	}
	if got := eventTypes(rc.events, 1); len(got) == 0 || got[0] != EventTypePassExpired {
		t.Errorf("expected pass-expired first, got %v", got)
	}
}

func TestAgent_PursuesSecondPassUpToLimit(t *testing.T) {
	ac := expeditedAttraction("Coaster", 60)
	ac.PassesPerAgent = 2
	a := newTestAttraction(t, ac, testPark())
	fill(a, Standby, 100, 0, 100)
	rc := testContext([]*Attraction{a}, []*Activity{shops()})
	agent := testAgent(1, testProfile(t, func(p *behavior.Params) { p.MaxPasses = 3 }))

	first, err := a.RequestPass(agent, 0)
	if err != nil {
		t.Fatalf("RequestPass failed: %v", err)
	}
	agent.addPass(first)

	if got := agent.attractionCandidates(rc, 1000); len(got) != 1 {
		t.Fatalf("expected the attraction to stay a candidate below its limit, got %d", len(got))
	}
	if !agent.tryAttractions(rc, []*Attraction{a}) {
		t.Fatal("expected a second pass to be pursued")
	}
	if agent.PassesFor("Coaster") != 2 || a.OutstandingPasses() != 2 {
		t.Fatalf("agent holds %d, attraction tracks %d, want 2 and 2", agent.PassesFor("Coaster"), a.OutstandingPasses())
	}
	if agent.State() != Deciding {
		t.Errorf("a pass holder joined standby, state %s", agent.State())
	}

	if got := agent.attractionCandidates(rc, 1000); len(got) != 0 {
		t.Errorf("expected no candidates at the limit, got %d", len(got))
	}
	if agent.tryAttractions(rc, []*Attraction{a}) {
		t.Error("a third pass or a standby join went through at the limit")
	}
	if a.StandbyLength() != 100 {
		t.Errorf("standby grew to %d", a.StandbyLength())
	}
}

func TestNewAgent_Stay(t *testing.T) {
	rc := testContext(nil, nil)
	profile := testProfile(t, nil)
	r := rand.New(rand.NewSource(9))

	total := 0
	const n = 500
	for i := 0; i < n; i++ {
		a := NewAgent(i, profile, 30, rc, r)
		if a.PlannedDeparture() <= a.Arrival() {
			t.Fatalf("agent %d leaves at %d before arriving at %d", i, a.PlannedDeparture(), a.Arrival())
		}
		if a.State() != Arriving {
			t.Fatalf("new agent in state %s", a.State())
		}
		total += a.PlannedDeparture() - a.Arrival()
	}
	avg := float64(total) / n
	if avg < 500 || avg > 580 {
		t.Errorf("average stay %.1f ticks, want about 540", avg)
	}
}
