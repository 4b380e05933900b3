package export

import (
	"path/filepath"
	"testing"

	"github.com/sherine-k/parksim/pkg/logging"
	"github.com/sherine-k/parksim/pkg/simulation"
)

func testReport() *simulation.Report {
	return &simulation.Report{
		RunID:       "run-1",
		Park:        "Test Park",
		Seed:        7,
		Ticks:       3,
		TickMinutes: 1,
		Totals:      simulation.Totals{Agents: 2, Rides: 1, AvgWaitMinutes: 4},
		Attractions: []simulation.AttractionStats{
			{Name: "Coaster", StandbyRiders: 1, AvgWait: 4, MaxWait: 4, Passes: simulation.PassCounters{Issued: 2, Denied: 1}},
			{Name: "Carousel"},
		},
		Agents: []simulation.AgentStats{
			{ID: 0, Archetype: "ride_enthusiast", AgeClass: "no_preference", Rides: 1, Attractions: map[string]int{"Coaster": 1}},
			{ID: 1, Archetype: "park_visitor", AgeClass: "no_preference"},
		},
		TimePoints: []simulation.TimePoint{
			{Tick: 0, Active: 2},
			{Tick: 1, Active: 2, Queues: []simulation.QueueSnapshot{{Attraction: "Coaster", Standby: 1}}},
		},
		Events: []simulation.Event{
			{Tick: 0, Type: simulation.EventTypeArrived, AgentID: 0},
			{Tick: 0, Type: simulation.EventTypeArrived, AgentID: 1},
			{Tick: 1, Type: simulation.EventTypeBoarded, AgentID: 0, Location: "Coaster"},
		},
	}
}

func TestSaveReport(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"), logging.Discard())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if err := db.SaveReport(testReport()); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	runs, err := db.Runs()
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" || runs[0].Agents != 2 || runs[0].Seed != 7 {
		t.Fatalf("unexpected runs %+v", runs)
	}

	rows, err := db.Attractions("run-1")
	if err != nil {
		t.Fatalf("Attractions failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 attraction rows, got %d", len(rows))
	}
	// ordered by name
	if rows[1].Name != "Coaster" || rows[1].PassesIssued != 2 || rows[1].PassesDenied != 1 {
		t.Errorf("unexpected Coaster row %+v", rows[1])
	}

	n, err := db.EventCount("run-1", simulation.EventTypeArrived)
	if err != nil {
		t.Fatalf("EventCount failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 arrivals, got %d", n)
	}
}

func TestSaveReport_DuplicateRun(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"), logging.Discard())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if err := db.SaveReport(testReport()); err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	if err := db.SaveReport(testReport()); err == nil {
		t.Fatal("expected saving the same run twice to fail")
	}

	// the failed transaction left nothing behind
	n, err := db.EventCount("run-1", simulation.EventTypeBoarded)
	if err != nil {
		t.Fatalf("EventCount failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 boarding after rollback, got %d", n)
	}
}
