package simulation

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"github.com/sherine-k/parksim/pkg/behavior"
)

// State is where an agent is in its day.
type State int

const (
	Arriving State = iota
	Deciding
	QueuedStandby
	QueuedExpedited
	PerformingActivity
	Riding
	Departed
)

var stateNames = [...]string{"arriving", "deciding", "queued-standby", "queued-expedited", "performing-activity", "riding", "departed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// History is what an agent did over its visit.
type History struct {
	Attractions    map[string]int
	Activities     map[string]int
	WaitTicks      int
	DoingTicks     int
	PassesObtained int
	PassesRedeemed int
	PassesExpired  int
	PassesReturned int
}

// Agent is one park visitor.
type Agent struct {
	id        int
	profile   *behavior.Profile
	ageClass  behavior.AgeClass
	passAware bool

	arrival          int
	plannedDeparture int
	departure        int

	state     State
	location  string
	startedAt int
	busyUntil int

	passes  map[string][]Pass // by attraction, in issue order
	history History
}

// NewAgent creates an agent arriving at tick arrival. Stay length is drawn
// from N(target, target/4) and lasts at least one tick.
func NewAgent(id int, profile *behavior.Profile, arrival int, rc *RunContext, r *rand.Rand) *Agent {
	target := profile.StayTarget().Minutes()
	stay := normal(r, target, target/4, rc.TickLength.Minutes())
	stayTicks := int(math.Ceil(stay / rc.TickLength.Minutes()))
	if stayTicks < 1 {
		stayTicks = 1
	}
	return &Agent{
		id:               id,
		profile:          profile,
		ageClass:         profile.AgeSplit().Sample(r),
		passAware:        r.Float64() < profile.PassAwareness(),
		arrival:          arrival,
		plannedDeparture: arrival + stayTicks,
		departure:        -1,
		state:            Arriving,
		passes:           make(map[string][]Pass),
		history: History{
			Attractions: make(map[string]int),
			Activities:  make(map[string]int),
		},
	}
}

func (a *Agent) ID() int { return a.id }
func (a *Agent) Profile() *behavior.Profile { return a.profile }
func (a *Agent) AgeClass() behavior.AgeClass { return a.ageClass }
func (a *Agent) PassAware() bool { return a.passAware }
func (a *Agent) State() State { return a.state }
func (a *Agent) Location() string { return a.location }
func (a *Agent) Arrival() int { return a.arrival }
func (a *Agent) PlannedDeparture() int { return a.plannedDeparture }
func (a *Agent) Departure() int { return a.departure }
func (a *Agent) History() History { return a.history }

// HeldPasses counts the passes held across all attractions.
func (a *Agent) HeldPasses() int {
	n := 0
	for _, list := range a.passes {
		n += len(list)
	}
	return n
}

// HoldsPass reports whether the agent holds a pass for the attraction.
func (a *Agent) HoldsPass(attraction string) bool {
	return len(a.passes[attraction]) > 0
}

// PassesFor counts the passes held for one attraction.
func (a *Agent) PassesFor(attraction string) int {
	return len(a.passes[attraction])
}

// Passes returns the held passes ordered by attraction name, then by
// window start.
func (a *Agent) Passes() []Pass {
	var out []Pass
	for _, list := range a.passes {
		out = append(out, list...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].attraction != out[j].attraction {
			return out[i].attraction < out[j].attraction
		}
		return out[i].start < out[j].start
	})
	return out
}

func (a *Agent) addPass(p Pass) {
	a.passes[p.attraction] = append(a.passes[p.attraction], p)
}

func (a *Agent) dropPass(p Pass) {
	list := a.passes[p.attraction]
	for i, q := range list {
		if q.id == p.id {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(a.passes, p.attraction)
		return
	}
	a.passes[p.attraction] = list
}

func (a *Agent) admit(rc *RunContext) {
	a.state = Deciding
	rc.emit(EventTypeArrived, a.id, "", "%s planning to leave at tick %d", a.profile.Archetype(), a.plannedDeparture)
}

// Step advances the agent by one tick.
func (a *Agent) Step(rc *RunContext) {
	switch a.state {
	case Departed, QueuedStandby, QueuedExpedited:
		return
	case Arriving:
		a.admit(rc)
	case Riding, PerformingActivity:
		if rc.Now < a.busyUntil {
			return
		}
		a.finish()
	}
	a.dropExpired(rc)
	a.decide(rc)
}

func (a *Agent) finish() {
	a.history.DoingTicks += a.busyUntil - a.startedAt
	if a.state == Riding {
		a.history.Attractions[a.location]++
	} else {
		a.history.Activities[a.location]++
	}
	a.state = Deciding
	a.location = ""
}

func (a *Agent) dropExpired(rc *RunContext) {
	for _, p := range a.Passes() {
		if p.Expired(rc.Now) {
			a.dropPass(p)
			a.history.PassesExpired++
			rc.emit(EventTypePassExpired, a.id, p.attraction, "window [%d, %d] missed", p.start, p.end)
		}
	}
}

func (a *Agent) decide(rc *RunContext) {
	remaining := a.plannedDeparture - rc.Now
	if rc.Closed() {
		a.depart(rc, "park closed")
		return
	}
	if remaining <= 0 {
		a.depart(rc, "planned departure reached")
		return
	}

	if a.redeemReady(rc) {
		return
	}

	candidates := a.attractionCandidates(rc, remaining)
	activities := a.activityCandidates(rc, remaining)
	if len(candidates) == 0 && len(activities) == 0 {
		a.depart(rc, "nothing fits before leaving")
		return
	}

	if rc.rng.Float64() < a.profile.AttractionPreference() && a.tryAttractions(rc, candidates) {
		return
	}
	if len(activities) > 0 {
		a.startActivity(rc, activities)
		return
	}
	if a.tryAttractions(rc, candidates) {
		return
	}
	a.depart(rc, "no acceptable wait")
}

// redeemReady uses the first held pass whose window is open.
func (a *Agent) redeemReady(rc *RunContext) bool {
	for _, p := range a.Passes() {
		if !p.InWindow(rc.Now) {
			continue
		}
		at := rc.byName[p.attraction]
		a.dropPass(p)
		err := at.RedeemPass(a, p, rc.Now)
		if errors.Is(err, ErrOutOfWindow) {
			rc.emit(EventTypePassOutOfWindow, a.id, p.attraction, "%v", err)
			continue
		}
		if err != nil {
			continue
		}
		a.history.PassesRedeemed++
		a.state = QueuedExpedited
		a.location = at.name
		a.startedAt = rc.Now
		rc.emit(EventTypePassRedeemed, a.id, at.name, "expedited line holds %d", at.ExpeditedLength())
		return true
	}
	return false
}

// passDeadline is the earliest end of a held return window, or -1.
func (a *Agent) passDeadline() int {
	deadline := -1
	for _, p := range a.Passes() {
		if deadline < 0 || p.end < deadline {
			deadline = p.end
		}
	}
	return deadline
}

// nextPassStart is the earliest future window start, or -1.
func (a *Agent) nextPassStart(now int) int {
	next := -1
	for _, p := range a.Passes() {
		if p.start > now && (next < 0 || p.start < next) {
			next = p.start
		}
	}
	return next
}

func (a *Agent) attractionCandidates(rc *RunContext, remaining int) []*Attraction {
	deadline := a.passDeadline()
	var out []*Attraction
	for _, at := range rc.attractions {
		if !at.Admits(a) || at.standbyRate() <= 0 {
			continue
		}
		// A held pass rules out standby; only another pass is on offer.
		if a.HoldsPass(at.name) {
			if a.pursuesPass(at, at.StandbyWait()) {
				out = append(out, at)
			}
			continue
		}
		if !a.profile.AllowRepeats() && a.history.Attractions[at.name] > 0 {
			continue
		}
		wait := at.StandbyWait()
		busy := int(math.Ceil(wait/rc.TickLength.Minutes())) + at.rideTicks
		if busy > remaining {
			continue
		}
		if deadline >= 0 && rc.Now+busy > deadline {
			continue
		}
		out = append(out, at)
	}
	return out
}

func (a *Agent) activityCandidates(rc *RunContext, remaining int) []*Activity {
	var out []*Activity
	for _, act := range rc.activities {
		if act.MinTicks() <= remaining {
			out = append(out, act)
		}
	}
	return out
}

// tryAttractions draws candidates by popularity until one is joined or
// pursued through a pass.
func (a *Agent) tryAttractions(rc *RunContext, candidates []*Attraction) bool {
	pool := make([]*Attraction, len(candidates))
	copy(pool, candidates)
	for len(pool) > 0 {
		weights := make([]float64, len(pool))
		for i, at := range pool {
			weights[i] = float64(at.popularity)
		}
		i := weightedIndex(rc.rng, weights)
		at := pool[i]
		pool = append(pool[:i], pool[i+1:]...)

		wait := at.StandbyWait()
		if a.pursuesPass(at, wait) {
			rc.emit(EventTypePassRequested, a.id, at.name, "standby wait %.0f min", wait)
			p, err := at.RequestPass(a, rc.Now)
			if err == nil {
				a.addPass(p)
				a.history.PassesObtained++
				rc.emit(EventTypePassIssued, a.id, at.name, "return window [%d, %d]", p.start, p.end)
				return true
			}
			rc.emit(EventTypePassDenied, a.id, at.name, "%v", err)
		}

		if a.HoldsPass(at.name) {
			continue
		}
		patience := wait - float64(at.popularity*6)
		if rc.rng.Float64() >= a.profile.Tolerance().Accept(patience) {
			continue
		}
		if err := at.JoinStandby(a, rc.Now); err != nil {
			rc.emit(EventTypeQueueFull, a.id, at.name, "%v", err)
			continue
		}
		a.state = QueuedStandby
		a.location = at.name
		a.startedAt = rc.Now
		rc.emit(EventTypeJoinedStandby, a.id, at.name, "standby wait %.0f min", wait)
		return true
	}
	return false
}

func (a *Agent) pursuesPass(at *Attraction, wait float64) bool {
	return a.passAware &&
		at.expedited &&
		a.PassesFor(at.name) < at.passLimit &&
		a.HeldPasses() < a.profile.MaxPasses() &&
		a.profile.WillPursuePass(wait)
}

func (a *Agent) startActivity(rc *RunContext, activities []*Activity) {
	weights := make([]float64, len(activities))
	for i, act := range activities {
		weights[i] = float64(act.popularity)
	}
	act := activities[weightedIndex(rc.rng, weights)]
	end := act.Perform(a, rc.Now, rc.rng)
	if next := a.nextPassStart(rc.Now); next >= 0 && next < end {
		end = next
	}
	if end > a.plannedDeparture {
		end = a.plannedDeparture
	}
	if end <= rc.Now {
		end = rc.Now + 1
	}
	a.state = PerformingActivity
	a.location = act.name
	a.startedAt = rc.Now
	a.busyUntil = end
	rc.emit(EventTypeActivityStarted, a.id, act.name, "until tick %d", end)
}

// board is called by the park when an attraction serves the agent.
func (a *Agent) board(rc *RunContext, at *Attraction, b Boarding) {
	a.history.WaitTicks += b.Waited
	a.state = Riding
	a.location = at.name
	a.startedAt = rc.Now
	a.busyUntil = rc.Now + at.rideTicks
	rc.emit(EventTypeBoarded, a.id, at.name, "%s after %.0f min", b.Queue, rc.minutes(b.Waited))
}

// depart ends the visit and hands unused passes back.
func (a *Agent) depart(rc *RunContext, reason string) {
	if a.state == Departed {
		return
	}
	switch a.state {
	case QueuedStandby, QueuedExpedited:
		a.history.WaitTicks += rc.Now - a.startedAt
	case Riding, PerformingActivity:
		a.history.DoingTicks += min(rc.Now, a.busyUntil) - a.startedAt
	}
	for name := range a.passes {
		if at := rc.byName[name]; at != nil {
			a.history.PassesReturned += at.ReleasePass(a.id)
		}
		delete(a.passes, name)
	}
	a.state = Departed
	a.location = ""
	a.departure = rc.Now
	rc.emit(EventTypeDeparted, a.id, "", "%s", reason)
}

// Satisfaction scores the visit: experiences per hour in the park minus
// the fraction of the stay spent waiting.
func (a *Agent) Satisfaction(rc *RunContext) float64 {
	end := a.departure
	if end < 0 {
		end = rc.Now
	}
	stay := end - a.arrival
	if stay <= 0 {
		return 0
	}
	experiences := 0
	for _, n := range a.history.Attractions {
		experiences += n
	}
	for _, n := range a.history.Activities {
		experiences += n
	}
	hours := rc.minutes(stay) / 60
	return float64(experiences)/hours - float64(a.history.WaitTicks)/float64(stay)
}
