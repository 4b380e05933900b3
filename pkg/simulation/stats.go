package simulation

import (
	"math"
	"sort"
)

// Report summarizes one simulated day
type Report struct {
	RunID       string            `json:"runId"`
	Park        string            `json:"park"`
	Seed        int64             `json:"seed"`
	Ticks       int               `json:"ticks"`
	TickMinutes float64           `json:"tickMinutes"`
	Totals      Totals            `json:"totals"`
	Attractions []AttractionStats `json:"attractions"`
	Activities  []ActivityStats   `json:"activities"`
	Agents      []AgentStats      `json:"agents"`
	TimePoints  []TimePoint       `json:"timePoints"`
	Events      []Event           `json:"events"`
}

// Totals are park-wide counts
type Totals struct {
	Agents          int     `json:"agents"`
	Rides           int     `json:"rides"`
	ActivityVisits  int     `json:"activityVisits"`
	PassesIssued    int     `json:"passesIssued"`
	PassesRedeemed  int     `json:"passesRedeemed"`
	AvgWaitMinutes  float64 `json:"avgWaitMinutes"`
	AvgSatisfaction float64 `json:"avgSatisfaction"`
	PeakActive      int     `json:"peakActive"`
	PeakActiveTick  int     `json:"peakActiveTick"`
}

// AttractionStats are per-attraction results
type AttractionStats struct {
	Name              string       `json:"name"`
	StandbyRiders     int          `json:"standbyRiders"`
	ExpeditedRiders   int          `json:"expeditedRiders"`
	AvgWait           float64      `json:"avgWait"`
	P50Wait           float64      `json:"p50Wait"`
	P90Wait           float64      `json:"p90Wait"`
	P95Wait           float64      `json:"p95Wait"`
	MaxWait           float64      `json:"maxWait"`
	AvgStandbyWait    float64      `json:"avgStandbyWait"`
	AvgExpeditedWait  float64      `json:"avgExpeditedWait"`
	Passes            PassCounters `json:"passes"`
	UnservedStandby   int          `json:"unservedStandby"`
	UnservedExpedited int          `json:"unservedExpedited"`
}

// Riders returns all riders of both lines.
func (s AttractionStats) Riders() int {
	return s.StandbyRiders + s.ExpeditedRiders
}

// ActivityStats are per-activity results
type ActivityStats struct {
	Name     string `json:"name"`
	Visitors int    `json:"visitors"`
}

// AgentStats summarize one visitor
type AgentStats struct {
	ID             int            `json:"id"`
	Archetype      string         `json:"archetype"`
	AgeClass       string         `json:"ageClass"`
	PassAware      bool           `json:"passAware"`
	Arrival        int            `json:"arrival"`
	Departure      int            `json:"departure"`
	Rides          int            `json:"rides"`
	Activities     int            `json:"activities"`
	Attractions    map[string]int `json:"attractions,omitempty"`
	WaitMinutes    float64        `json:"waitMinutes"`
	DoingMinutes   float64        `json:"doingMinutes"`
	PassesObtained int            `json:"passesObtained"`
	PassesRedeemed int            `json:"passesRedeemed"`
	PassesExpired  int            `json:"passesExpired"`
	PassesReturned int            `json:"passesReturned"`
	Satisfaction   float64        `json:"satisfaction"`
}

// Warnings returns all warning events
func (r *Report) Warnings() []Event {
	var warnings []Event
	for _, e := range r.Events {
		if e.IsWarning {
			warnings = append(warnings, e)
		}
	}
	return warnings
}

// EventCounts tallies events by type
func (r *Report) EventCounts() map[EventType]int {
	counts := make(map[EventType]int)
	for _, e := range r.Events {
		counts[e.Type]++
	}
	return counts
}

// Attraction returns the stats of the named attraction.
func (r *Report) Attraction(name string) (AttractionStats, bool) {
	for _, a := range r.Attractions {
		if a.Name == name {
			return a, true
		}
	}
	return AttractionStats{}, false
}

func attractionStats(a *Attraction, tickMinutes float64) AttractionStats {
	all := make([]float64, 0, len(a.standbyWaits)+len(a.expeditedWaits))
	standby := toMinutes(a.standbyWaits, tickMinutes)
	expedited := toMinutes(a.expeditedWaits, tickMinutes)
	all = append(all, standby...)
	all = append(all, expedited...)
	sort.Float64s(all)

	return AttractionStats{
		Name:             a.name,
		StandbyRiders:    len(a.standbyWaits),
		ExpeditedRiders:  len(a.expeditedWaits),
		AvgWait:          mean(all),
		P50Wait:          percentile(all, 50),
		P90Wait:          percentile(all, 90),
		P95Wait:          percentile(all, 95),
		MaxWait:          percentile(all, 100),
		AvgStandbyWait:   mean(standby),
		AvgExpeditedWait: mean(expedited),
		Passes:           a.passes,
	}
}

func toMinutes(ticks []int, tickMinutes float64) []float64 {
	out := make([]float64, len(ticks))
	for i, t := range ticks {
		out[i] = float64(t) * tickMinutes
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// percentile uses the nearest-rank method on sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
