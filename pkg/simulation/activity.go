package simulation

import (
	"math/rand"
	"time"

	"github.com/sherine-k/parksim/pkg/config"
)

// Activity is an unqueued, uncapped thing to do: shows, shopping, dining.
type Activity struct {
	name       string
	popularity int
	mean       time.Duration
	minimum    time.Duration
	tick       time.Duration
	visitors   int
}

// NewActivity builds an activity from its configuration.
func NewActivity(ac config.ActivityConfig, tick time.Duration) *Activity {
	return &Activity{
		name:       ac.Name,
		popularity: ac.Popularity,
		mean:       ac.MeanDuration,
		minimum:    ac.MinDuration,
		tick:       tick,
	}
}

func (a *Activity) Name() string { return a.name }
func (a *Activity) Popularity() int { return a.popularity }
func (a *Activity) Visitors() int { return a.visitors }

// MinTicks is the shortest visit in ticks.
func (a *Activity) MinTicks() int {
	return ticksCeil(a.minimum, a.tick)
}

// Perform starts a visit and returns the tick it completes. Durations are
// normal around the mean with sd mean/2, floored at the minimum, and last
// at least one tick.
func (a *Activity) Perform(agent *Agent, now int, r *rand.Rand) int {
	minutes := normal(r, a.mean.Minutes(), a.mean.Minutes()/2, a.minimum.Minutes())
	d := time.Duration(minutes * float64(time.Minute))
	a.visitors++
	return now + ticksCeil(d, a.tick)
}

// ticksCeil converts d to whole ticks, rounding up, never below one.
func ticksCeil(d, tick time.Duration) int {
	if tick <= 0 {
		return 1
	}
	n := int(d / tick)
	if d%tick != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}
