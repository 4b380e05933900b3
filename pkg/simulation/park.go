// Package simulation runs one day of a theme park: agents arrive on an
// hourly schedule, choose between queued attractions and unqueued
// activities, and may hold return-window passes for expedited lines.
package simulation

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sherine-k/parksim/pkg/behavior"
	"github.com/sherine-k/parksim/pkg/config"
	"github.com/sherine-k/parksim/pkg/logging"
)

// Park runs the simulation
type Park struct {
	config       *config.Config
	logger       *slog.Logger
	catalog      *behavior.Catalog
	distribution behavior.Distribution
	schedule     *Schedule
	attractions  []*Attraction
	activities   []*Activity
	closing      int

	agents []*Agent
	active []*Agent
	ran    bool
	onTick func(*RunContext)
}

// Option configures a Park
type Option func(*Park)

// WithLogger sets the operational logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Park) {
		p.logger = logger
	}
}

// WithTickHook registers a function called at the end of every tick.
func WithTickHook(fn func(*RunContext)) Option {
	return func(p *Park) {
		p.onTick = fn
	}
}

// NewPark validates the configuration and builds the park. Configuration
// problems wrap config.ErrConfigurationInvalid.
func NewPark(cfg *config.Config, opts ...Option) (*Park, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Park{
		config: cfg,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}

	var err error
	if p.catalog, err = cfg.Catalog(); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfigurationInvalid, err)
	}
	if p.distribution, err = cfg.Distribution(); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfigurationInvalid, err)
	}
	if p.schedule, err = BuildSchedule(cfg.Park); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfigurationInvalid, err)
	}
	p.closing = p.schedule.Len()

	for _, ac := range cfg.Attractions {
		a, err := NewAttraction(ac, cfg.Park, p.closing)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrConfigurationInvalid, err)
		}
		p.attractions = append(p.attractions, a)
	}
	for _, ac := range cfg.Activities {
		p.activities = append(p.activities, NewActivity(ac, cfg.Park.TickLength))
	}
	return p, nil
}

// Schedule returns the arrival schedule.
func (p *Park) Schedule() *Schedule { return p.schedule }

// ClosingTick returns the number of ticks the park is open.
func (p *Park) ClosingTick() int { return p.closing }

// Agents returns every agent admitted so far in ID order.
func (p *Park) Agents() []*Agent { return p.agents }

// Attractions returns the attractions in configuration order.
func (p *Park) Attractions() []*Attraction { return p.attractions }

// Run simulates up to ticks ticks, stopping at closing. A non-positive
// count runs the whole day. Every agent still in the park departs when the
// run ends.
func (p *Park) Run(ticks int) (*Report, error) {
	if p.ran {
		return nil, ErrAlreadyRan
	}
	p.ran = true
	if ticks <= 0 || ticks > p.closing {
		ticks = p.closing
	}

	rc := &RunContext{
		TickLength:  p.config.Park.TickLength,
		Closing:     p.closing,
		rng:         rand.New(rand.NewSource(streamSeed(p.config.Park.Seed, decisionStream, 0))),
		attractions: p.attractions,
		byName:      make(map[string]*Attraction, len(p.attractions)),
		activities:  p.activities,
		logger:      p.logger,
	}
	for _, a := range p.attractions {
		rc.byName[a.name] = a
	}

	runID := uuid.New().String()
	p.logger.Info("starting simulation",
		"run", runID,
		"park", p.config.Park.Name,
		"seed", p.config.Park.Seed,
		"ticks", ticks,
		"tick", p.config.Park.TickLength.String(),
		"expected_agents", p.schedule.Total())
	start := time.Now()

	perHour := p.config.Park.TicksPerHour()
	points := make([]TimePoint, 0, ticks)
	for t := 0; t < ticks; t++ {
		rc.Now = t
		if err := p.admit(rc); err != nil {
			return nil, fmt.Errorf("tick %d: %w", t, err)
		}
		for _, a := range p.active {
			a.Step(rc)
		}
		snapshots := make([]QueueSnapshot, 0, len(p.attractions))
		for _, at := range p.attractions {
			boardings, st := at.AdvanceService(t)
			for _, b := range boardings {
				b.Agent.board(rc, at, b)
			}
			snapshots = append(snapshots, QueueSnapshot{
				Attraction:    at.name,
				Standby:       len(at.standby),
				Expedited:     len(at.express),
				StandbyWait:   at.StandbyWait(),
				ExpeditedWait: at.ExpeditedWait(),
				Outstanding:   at.held,
				Service:       st,
			})
		}
		p.compact()
		points = append(points, TimePoint{
			Tick:     t,
			Active:   len(p.active),
			Departed: len(p.agents) - len(p.active),
			Queues:   snapshots,
		})
		if p.onTick != nil {
			p.onTick(rc)
		}
		if perHour > 0 && (t+1)%perHour == 0 {
			p.logHour(rc, (t+1)/perHour)
		}
	}

	rc.Now = ticks
	unserved := make(map[string][2]int, len(p.attractions))
	for _, at := range p.attractions {
		s, e := at.closeQueues()
		unserved[at.name] = [2]int{s, e}
	}
	for _, a := range p.active {
		a.depart(rc, "park closed")
	}
	p.compact()

	report := p.report(rc, runID, ticks, points, unserved)
	p.logger.Info("simulation finished",
		"run", runID,
		"agents", report.Totals.Agents,
		"rides", report.Totals.Rides,
		"passes_issued", report.Totals.PassesIssued,
		"elapsed", time.Since(start).String())
	return report, nil
}

func (p *Park) admit(rc *RunContext) error {
	for i := 0; i < p.schedule.At(rc.Now); i++ {
		id := len(p.agents)
		r := rand.New(rand.NewSource(streamSeed(p.config.Park.Seed, agentStream, id)))
		profile, err := p.catalog.Lookup(p.distribution.Sample(r))
		if err != nil {
			return fmt.Errorf("admit agent %d: %w", id, err)
		}
		a := NewAgent(id, profile, rc.Now, rc, r)
		p.agents = append(p.agents, a)
		p.active = append(p.active, a)
	}
	return nil
}

// compact drops departed agents from the active list, keeping ID order.
func (p *Park) compact() {
	kept := p.active[:0]
	for _, a := range p.active {
		if a.state != Departed {
			kept = append(kept, a)
		}
	}
	p.active = kept
}

func (p *Park) logHour(rc *RunContext, hour int) {
	queued, riding, passes := 0, 0, 0
	for _, a := range p.active {
		switch a.state {
		case QueuedStandby, QueuedExpedited:
			queued++
		case Riding:
			riding++
		}
		passes += a.HeldPasses()
	}
	p.logger.Info("hourly report",
		"hour", hour,
		"active", len(p.active),
		"departed", len(p.agents)-len(p.active),
		"queued", queued,
		"riding", riding,
		"passes_held", passes)
	for _, at := range p.attractions {
		p.logger.Debug("attraction status",
			"hour", hour,
			"attraction", at.name,
			"standby", len(at.standby),
			"expedited", len(at.express),
			"standby_wait", fmt.Sprintf("%.0fm", at.StandbyWait()),
			"outstanding_passes", at.held)
	}
}

func (p *Park) report(rc *RunContext, runID string, ticks int, points []TimePoint, unserved map[string][2]int) *Report {
	tickMinutes := rc.TickLength.Minutes()
	r := &Report{
		RunID:       runID,
		Park:        p.config.Park.Name,
		Seed:        p.config.Park.Seed,
		Ticks:       ticks,
		TickMinutes: tickMinutes,
		TimePoints:  points,
		Events:      rc.events,
	}

	totalWait, waits := 0.0, 0
	for _, at := range p.attractions {
		s := attractionStats(at, tickMinutes)
		s.UnservedStandby = unserved[at.name][0]
		s.UnservedExpedited = unserved[at.name][1]
		r.Attractions = append(r.Attractions, s)
		r.Totals.Rides += s.Riders()
		r.Totals.PassesIssued += s.Passes.Issued
		r.Totals.PassesRedeemed += s.Passes.Redeemed
		totalWait += s.AvgWait * float64(s.Riders())
		waits += s.Riders()
	}
	if waits > 0 {
		r.Totals.AvgWaitMinutes = totalWait / float64(waits)
	}

	for _, act := range p.activities {
		r.Activities = append(r.Activities, ActivityStats{Name: act.name, Visitors: act.visitors})
		r.Totals.ActivityVisits += act.visitors
	}

	satisfaction := 0.0
	for _, a := range p.agents {
		h := a.history
		rides, visits := 0, 0
		for _, n := range h.Attractions {
			rides += n
		}
		for _, n := range h.Activities {
			visits += n
		}
		s := AgentStats{
			ID:             a.id,
			Archetype:      a.profile.Archetype().String(),
			AgeClass:       a.ageClass.String(),
			PassAware:      a.passAware,
			Arrival:        a.arrival,
			Departure:      a.departure,
			Rides:          rides,
			Activities:     visits,
			Attractions:    h.Attractions,
			WaitMinutes:    rc.minutes(h.WaitTicks),
			DoingMinutes:   rc.minutes(h.DoingTicks),
			PassesObtained: h.PassesObtained,
			PassesRedeemed: h.PassesRedeemed,
			PassesExpired:  h.PassesExpired,
			PassesReturned: h.PassesReturned,
			Satisfaction:   a.Satisfaction(rc),
		}
		satisfaction += s.Satisfaction
		r.Agents = append(r.Agents, s)
	}
	r.Totals.Agents = len(p.agents)
	if len(p.agents) > 0 {
		r.Totals.AvgSatisfaction = satisfaction / float64(len(p.agents))
	}

	for _, tp := range points {
		if tp.Active > r.Totals.PeakActive {
			r.Totals.PeakActive = tp.Active
			r.Totals.PeakActiveTick = tp.Tick
		}
	}
	return r
}
