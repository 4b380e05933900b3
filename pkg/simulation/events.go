package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sherine-k/parksim/pkg/logging"
)

// EventType defines the type of event in the simulation
type EventType string

const (
	EventTypeArrived         EventType = "arrived"
	EventTypeDeparted        EventType = "departed"
	EventTypeJoinedStandby   EventType = "joined-standby"
	EventTypeQueueFull       EventType = "queue-full"
	EventTypePassRequested   EventType = "pass-requested"
	EventTypePassIssued      EventType = "pass-issued"
	EventTypePassDenied      EventType = "pass-denied"
	EventTypePassRedeemed    EventType = "pass-redeemed"
	EventTypePassExpired     EventType = "pass-expired"
	EventTypePassOutOfWindow EventType = "pass-out-of-window"
	EventTypeBoarded         EventType = "boarded"
	EventTypeActivityStarted EventType = "activity-started"
)

// Event represents a point-in-time event in the simulation
type Event struct {
	Tick      int       `json:"tick"`
	Type      EventType `json:"type"`
	AgentID   int       `json:"agentId"`
	Location  string    `json:"location,omitempty"`
	Message   string    `json:"message,omitempty"`
	IsWarning bool      `json:"isWarning,omitempty"`
}

// QueueSnapshot is one attraction's state at the end of a tick
type QueueSnapshot struct {
	Attraction    string      `json:"attraction"`
	Standby       int         `json:"standby"`
	Expedited     int         `json:"expedited"`
	StandbyWait   float64     `json:"standbyWait"`
	ExpeditedWait float64     `json:"expeditedWait"`
	Outstanding   int         `json:"outstandingPasses"`
	Service       ServiceTick `json:"service"`
}

// TimePoint represents the state at a specific point in time
type TimePoint struct {
	Tick     int             `json:"tick"`
	Active   int             `json:"active"`
	Departed int             `json:"departed"`
	Queues   []QueueSnapshot `json:"queues"`
}

// RunContext carries the state shared by every step of one run.
type RunContext struct {
	Now        int
	TickLength time.Duration
	Closing    int

	rng         *rand.Rand
	events      []Event
	attractions []*Attraction
	byName      map[string]*Attraction
	activities  []*Activity
	logger      *slog.Logger
}

// Closed reports whether the park has reached closing time.
func (rc *RunContext) Closed() bool {
	return rc.Now >= rc.Closing
}

// Events returns the events recorded so far.
func (rc *RunContext) Events() []Event {
	return rc.events
}

func (rc *RunContext) emit(typ EventType, agent int, location, format string, args ...any) {
	ev := Event{
		Tick:     rc.Now,
		Type:     typ,
		AgentID:  agent,
		Location: location,
	}
	if format != "" {
		ev.Message = fmt.Sprintf(format, args...)
	}
	switch typ {
	case EventTypeQueueFull, EventTypePassExpired, EventTypePassOutOfWindow:
		ev.IsWarning = true
	}
	rc.events = append(rc.events, ev)
	rc.logger.Log(context.Background(), logging.LevelTrace, "event",
		"tick", ev.Tick, "type", string(ev.Type), "agent", agent, "location", location, "message", ev.Message)
}

func (rc *RunContext) minutes(ticks int) float64 {
	return float64(ticks) * rc.TickLength.Minutes()
}
