package simulation

import (
	"fmt"
	"math"
	"time"

	"github.com/robfig/cron/v3"
)

// Pass is a single-use right to join an attraction's expedited queue
// during a fixed return window. Windows are inclusive on both ends and
// never change after issue.
type Pass struct {
	id         int
	attraction string
	holder     int
	issued     int
	start      int
	end        int
}

func (p Pass) ID() int { return p.id }
func (p Pass) Attraction() string { return p.attraction }
func (p Pass) Holder() int { return p.holder }
func (p Pass) Issued() int { return p.issued }
func (p Pass) Start() int { return p.start }
func (p Pass) End() int { return p.end }

// InWindow reports whether the pass can be redeemed at tick t.
func (p Pass) InWindow(t int) bool {
	return t >= p.start && t <= p.end
}

// Expired reports whether the return window has closed by tick t.
func (p Pass) Expired(t int) bool {
	return t > p.end
}

// PassCounters tracks what happened to the passes of one attraction.
type PassCounters struct {
	Issued    int `json:"issued"`
	Redeemed  int `json:"redeemed"`
	Expired   int `json:"expired"`
	Returned  int `json:"returned"`
	Forfeited int `json:"forfeited"` // redeemed out of window
	Denied    int `json:"denied"`
}

// issuanceWindows splits the operating day into pass issuance windows at
// the ticks where a cron schedule fires. Allowance in window i is the
// growth of floor(rate * elapsed hours) across the window, so the running
// total issued never exceeds the cumulative allowance.
type issuanceWindows struct {
	bounds    []int // window start ticks, ascending, bounds[0] == 0
	allowance []int
	issued    []int
}

func newIssuanceWindows(expr string, open, tick time.Duration, closing int, perHour float64) (*issuanceWindows, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pass window %q: %w", expr, err)
	}

	base := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC).Add(open)
	end := base.Add(time.Duration(closing) * tick)

	w := &issuanceWindows{bounds: []int{0}}
	for next := sched.Next(base); next.Before(end); next = sched.Next(next) {
		offset := next.Sub(base)
		t := int(offset / tick)
		if offset%tick != 0 {
			t++
		}
		if t > w.bounds[len(w.bounds)-1] && t < closing {
			w.bounds = append(w.bounds, t)
		}
	}

	cumulative := func(t int) int {
		hours := (time.Duration(t) * tick).Hours()
		return int(math.Floor(perHour*hours + 1e-9))
	}
	w.allowance = make([]int, len(w.bounds))
	w.issued = make([]int, len(w.bounds))
	for i, start := range w.bounds {
		stop := closing
		if i+1 < len(w.bounds) {
			stop = w.bounds[i+1]
		}
		w.allowance[i] = cumulative(stop) - cumulative(start)
	}
	return w, nil
}

// index returns the window containing tick t.
func (w *issuanceWindows) index(t int) int {
	i := 0
	for i+1 < len(w.bounds) && w.bounds[i+1] <= t {
		i++
	}
	return i
}

func (w *issuanceWindows) remaining(t int) int {
	i := w.index(t)
	return w.allowance[i] - w.issued[i]
}

func (w *issuanceWindows) take(t int) {
	w.issued[w.index(t)]++
}

// cumulativeAllowance is the allowance of every window up to the one
// containing t.
func (w *issuanceWindows) cumulativeAllowance(t int) int {
	n := 0
	for i := 0; i <= w.index(t); i++ {
		n += w.allowance[i]
	}
	return n
}
