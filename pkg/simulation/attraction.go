package simulation

import (
	"fmt"
	"math"
	"time"

	"github.com/sherine-k/parksim/pkg/config"
)

// QueueKind identifies one of an attraction's two lines.
type QueueKind int

const (
	Standby QueueKind = iota
	Expedited
)

func (k QueueKind) String() string {
	if k == Expedited {
		return "expedited"
	}
	return "standby"
}

// Boarding is one agent taken off a queue by AdvanceService.
type Boarding struct {
	Agent  *Agent
	Queue  QueueKind
	Joined int
	Waited int // ticks
}

// ServiceTick records how one AdvanceService call split its capacity.
type ServiceTick struct {
	Slots             int `json:"slots"`
	StandbyEligible   int `json:"standbyEligible"`
	ExpeditedEligible int `json:"expeditedEligible"`
	StandbyServed     int `json:"standbyServed"`
	ExpeditedServed   int `json:"expeditedServed"`
}

// Served returns the total number of agents boarded.
func (s ServiceTick) Served() int {
	return s.StandbyServed + s.ExpeditedServed
}

type queueEntry struct {
	agent  *Agent
	joined int
}

// Attraction is a ride with a standby queue and, optionally, an expedited
// queue fed by return-window passes.
type Attraction struct {
	name          string
	popularity    int
	childEligible bool
	adultEligible bool
	hourly        int
	rideTicks     int
	maxQueue      int

	tick        time.Duration
	ticksPerHr  int
	closing     int
	expedited   bool
	share       float64 // effective, capped by the standby minimum
	tieBreak    config.TieBreak
	returnTicks int
	passLimit   int // per holder
	splitCarry  float64

	standby []queueEntry
	express []queueEntry

	windows     *issuanceWindows
	outstanding map[int][]Pass // by holder
	held        int
	nextPassID  int
	passes      PassCounters

	standbyWaits   []int
	expeditedWaits []int
}

// NewAttraction builds an attraction from its configuration. closing is the
// number of ticks the park is open.
func NewAttraction(ac config.AttractionConfig, park config.ParkConfig, closing int) (*Attraction, error) {
	a := &Attraction{
		name:          ac.Name,
		popularity:    ac.Popularity,
		childEligible: ac.IsChildEligible(),
		adultEligible: ac.IsAdultEligible(),
		hourly:        ac.HourlyThroughput,
		rideTicks:     park.TicksFor(ac.RideDuration),
		maxQueue:      ac.MaxQueueLength,
		tick:          park.TickLength,
		ticksPerHr:    park.TicksPerHour(),
		closing:       closing,
		expedited:     ac.ExpeditedQueue,
		tieBreak:      park.TieBreak,
		outstanding:   make(map[int][]Pass),
	}
	if a.rideTicks < 1 {
		a.rideTicks = 1
	}
	if a.ticksPerHr <= 0 {
		return nil, fmt.Errorf("attraction %s: tick length %v does not fit in an hour", ac.Name, park.TickLength)
	}
	if !a.expedited {
		return a, nil
	}

	a.share = math.Min(ac.ExpeditedShare, 1-ac.MinStandbyShare)
	a.returnTicks = park.TicksFor(ac.ReturnWindow)
	a.passLimit = max(ac.PassesPerAgent, 1)
	open, err := park.OpenOffset()
	if err != nil {
		return nil, err
	}
	a.windows, err = newIssuanceWindows(ac.PassWindow, open, park.TickLength, closing, ac.PassesPerHour)
	if err != nil {
		return nil, fmt.Errorf("attraction %s: %w", ac.Name, err)
	}
	return a, nil
}

func (a *Attraction) Name() string { return a.name }
func (a *Attraction) Popularity() int { return a.popularity }
func (a *Attraction) HasExpeditedQueue() bool { return a.expedited }
func (a *Attraction) RideTicks() int { return a.rideTicks }
func (a *Attraction) StandbyLength() int { return len(a.standby) }
func (a *Attraction) ExpeditedLength() int { return len(a.express) }
func (a *Attraction) OutstandingPasses() int { return a.held }
func (a *Attraction) PassLimit() int { return a.passLimit }
func (a *Attraction) PassCounters() PassCounters {
	return a.passes
}

// Admits reports whether the age class may ride.
func (a *Attraction) Admits(agent *Agent) bool {
	return agent.ageClass.Allows(a.childEligible, a.adultEligible)
}

// ServiceSlots returns the number of riders the attraction can take at
// tick t. Over any whole hour the slots add up to the hourly capacity.
func (a *Attraction) ServiceSlots(t int) int {
	k := a.ticksPerHr
	return (t+1)*a.hourly/k - t*a.hourly/k
}

// standbyRate and expeditedRate are the nominal riders per tick for each
// line.
func (a *Attraction) standbyRate() float64 {
	return float64(a.hourly) * (1 - a.share) / float64(a.ticksPerHr)
}

func (a *Attraction) expeditedRate() float64 {
	return float64(a.hourly) * a.share / float64(a.ticksPerHr)
}

func (a *Attraction) tickMinutes() float64 {
	return a.tick.Minutes()
}

// StandbyWait estimates the standby wait in minutes. A line with no
// service rate reports zero; agents never queue for it.
func (a *Attraction) StandbyWait() float64 {
	rate := a.standbyRate()
	if rate <= 0 {
		return 0
	}
	return float64(len(a.standby)) / rate * a.tickMinutes()
}

// ExpeditedWait estimates the expedited wait in minutes. Zero without an
// expedited line.
func (a *Attraction) ExpeditedWait() float64 {
	if !a.expedited {
		return 0
	}
	rate := a.expeditedRate()
	if rate <= 0 {
		return 0
	}
	return float64(len(a.express)) / rate * a.tickMinutes()
}

// JoinStandby appends the agent to the standby line.
func (a *Attraction) JoinStandby(agent *Agent, now int) error {
	if a.maxQueue > 0 && len(a.standby) >= a.maxQueue {
		return fmt.Errorf("%s standby holds %d: %w", a.name, len(a.standby), ErrCapacityExceeded)
	}
	a.standby = append(a.standby, queueEntry{agent: agent, joined: now})
	return nil
}

// RequestPass issues a return-window pass to the agent or explains why
// not. Every refusal wraps ErrPassUnavailable.
func (a *Attraction) RequestPass(agent *Agent, now int) (Pass, error) {
	p, err := a.issue(agent, now)
	if err != nil {
		a.passes.Denied++
		return Pass{}, fmt.Errorf("%s: %s: %w", a.name, err.Error(), ErrPassUnavailable)
	}
	return p, nil
}

func (a *Attraction) issue(agent *Agent, now int) (Pass, error) {
	if !a.expedited {
		return Pass{}, fmt.Errorf("no expedited line")
	}
	if now >= a.closing {
		return Pass{}, fmt.Errorf("park closed")
	}
	if held := max(len(a.outstanding[agent.id]), agent.PassesFor(a.name)); held >= a.passLimit {
		return Pass{}, fmt.Errorf("agent %d already holds %d of %d passes here", agent.id, held, a.passLimit)
	}
	if limit := agent.profile.MaxPasses(); agent.HeldPasses() >= limit {
		return Pass{}, fmt.Errorf("agent %d holds %d of %d passes", agent.id, agent.HeldPasses(), limit)
	}
	if a.windows.remaining(now) <= 0 {
		return Pass{}, fmt.Errorf("issuance window allowance used up")
	}

	rate := a.expeditedRate()
	if rate <= 0 {
		return Pass{}, fmt.Errorf("expedited line has no service rate")
	}
	capacity := int(math.Floor(rate * float64(a.closing-now)))
	if a.held >= capacity {
		return Pass{}, fmt.Errorf("%d outstanding passes fill the remaining capacity", a.held)
	}

	ahead := len(a.express) + a.held
	start := now + int(math.Ceil(float64(ahead)/rate))
	end := start + a.returnTicks
	if end >= a.closing {
		return Pass{}, fmt.Errorf("return window would end after closing")
	}

	a.nextPassID++
	p := Pass{
		id:         a.nextPassID,
		attraction: a.name,
		holder:     agent.id,
		issued:     now,
		start:      start,
		end:        end,
	}
	a.outstanding[agent.id] = append(a.outstanding[agent.id], p)
	a.held++
	a.windows.take(now)
	a.passes.Issued++
	return p, nil
}

// RedeemPass moves the holder into the expedited line. Outside the return
// window the pass is discarded and ErrOutOfWindow returned.
func (a *Attraction) RedeemPass(agent *Agent, pass Pass, now int) error {
	if pass.attraction != a.name {
		return fmt.Errorf("%s: pass %d belongs to %s: %w", a.name, pass.id, pass.attraction, ErrPassUnavailable)
	}
	held, ok := a.takePass(agent.id, pass.id)
	if !ok {
		return fmt.Errorf("%s: pass %d is not outstanding: %w", a.name, pass.id, ErrPassUnavailable)
	}
	if !held.InWindow(now) {
		a.passes.Forfeited++
		return fmt.Errorf("%s: tick %d outside [%d, %d]: %w", a.name, now, held.start, held.end, ErrOutOfWindow)
	}
	a.express = append(a.express, queueEntry{agent: agent, joined: now})
	a.passes.Redeemed++
	return nil
}

// takePass removes one pass from the holder's ledger entry.
func (a *Attraction) takePass(holder, id int) (Pass, bool) {
	list := a.outstanding[holder]
	for i, p := range list {
		if p.id != id {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		if len(list) == 0 {
			delete(a.outstanding, holder)
		} else {
			a.outstanding[holder] = list
		}
		a.held--
		return p, true
	}
	return Pass{}, false
}

// ReleasePass takes back every unused pass of a departing holder and
// returns how many there were.
func (a *Attraction) ReleasePass(agentID int) int {
	n := len(a.outstanding[agentID])
	if n == 0 {
		return 0
	}
	delete(a.outstanding, agentID)
	a.held -= n
	a.passes.Returned += n
	return n
}

// expirePasses drops passes whose window closed before now.
func (a *Attraction) expirePasses(now int) {
	for holder, list := range a.outstanding {
		kept := list[:0]
		for _, p := range list {
			if p.Expired(now) {
				a.held--
				a.passes.Expired++
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			delete(a.outstanding, holder)
		} else {
			a.outstanding[holder] = kept
		}
	}
}

// eligible counts the FIFO prefix of entries that joined before now.
func eligible(q []queueEntry, now int) int {
	n := 0
	for n < len(q) && q[n].joined < now {
		n++
	}
	return n
}

// AdvanceService serves one tick of riders. Only agents that joined on an
// earlier tick can board. Expedited boardings come first.
func (a *Attraction) AdvanceService(now int) ([]Boarding, ServiceTick) {
	if a.expedited {
		a.expirePasses(now)
	}

	st := ServiceTick{
		Slots:             a.ServiceSlots(now),
		StandbyEligible:   eligible(a.standby, now),
		ExpeditedEligible: eligible(a.express, now),
	}
	st.StandbyServed, st.ExpeditedServed = a.split(st.Slots, st.StandbyEligible, st.ExpeditedEligible)

	boardings := make([]Boarding, 0, st.Served())
	for _, e := range a.express[:st.ExpeditedServed] {
		boardings = append(boardings, Boarding{Agent: e.agent, Queue: Expedited, Joined: e.joined, Waited: now - e.joined})
		a.expeditedWaits = append(a.expeditedWaits, now-e.joined)
	}
	for _, e := range a.standby[:st.StandbyServed] {
		boardings = append(boardings, Boarding{Agent: e.agent, Queue: Standby, Joined: e.joined, Waited: now - e.joined})
		a.standbyWaits = append(a.standbyWaits, now-e.joined)
	}
	a.express = a.express[st.ExpeditedServed:]
	a.standby = a.standby[st.StandbyServed:]
	return boardings, st
}

// split divides slots between the lines. The expedited line gets
// slots*share plus a carried fraction; the leftover fraction rounds toward
// the longer eligible backlog, and ties go to the configured line.
func (a *Attraction) split(slots, standby, expedited int) (int, int) {
	if slots <= 0 {
		return 0, 0
	}
	if !a.expedited || expedited == 0 {
		a.splitCarry = 0
		return min(slots, standby), 0
	}
	if standby == 0 {
		a.splitCarry = 0
		return 0, min(slots, expedited)
	}

	exact := float64(slots)*a.share + a.splitCarry
	exp := int(math.Floor(exact + 1e-9))
	if exact-float64(exp) > 1e-9 {
		if expedited > standby || (expedited == standby && a.tieBreak == config.TieBreakExpedited) {
			exp++
		}
	}
	if exp < 0 {
		exp = 0
	}
	if slots >= 2 && exp > slots-1 {
		exp = slots - 1
	}
	if exp > slots {
		exp = slots
	}
	a.splitCarry = math.Max(-1, math.Min(1, exact-float64(exp)))

	std := slots - exp
	if exp > expedited {
		std += exp - expedited
		exp = expedited
	}
	if std > standby {
		exp = min(expedited, exp+std-standby)
		std = standby
	}
	return std, exp
}

// closeQueues empties both lines at closing and returns how many agents
// were still waiting.
func (a *Attraction) closeQueues() (standby, expedited int) {
	standby, expedited = len(a.standby), len(a.express)
	a.standby, a.express = nil, nil
	return standby, expedited
}
