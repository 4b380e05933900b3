package simulation

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/sherine-k/parksim/pkg/config"
)

// Schedule holds the number of agents admitted at each tick of the day.
type Schedule struct {
	perTick []int
	hourly  []int
}

// BuildSchedule turns the park's hourly arrival percentages into per-tick
// admission counts.
//
// With perfect arrivals each hour receives its exact share of the daily
// total (largest remainder, ties to the earlier hour) spread evenly over the
// hour's ticks. Otherwise every tick draws a Poisson count, with one RNG per
// hour seeded from the park seed plus the hour index.
func BuildSchedule(park config.ParkConfig) (*Schedule, error) {
	duration, err := park.OperatingDuration()
	if err != nil {
		return nil, err
	}
	perHour := park.TicksPerHour()
	if perHour <= 0 {
		return nil, fmt.Errorf("tick length %v does not fit in an hour", park.TickLength)
	}
	closing := park.TicksFor(duration)

	total := 0.0
	for _, pct := range park.HourlyArrivals {
		if pct < 0 {
			return nil, fmt.Errorf("negative hourly arrival percent %v", pct)
		}
		total += pct
	}
	if math.Abs(total-100) > 1e-6 {
		return nil, fmt.Errorf("hourly arrival percents add up to %.2f, not 100", total)
	}
	if (len(park.HourlyArrivals)-1)*perHour >= closing {
		return nil, fmt.Errorf("%d arrival hours do not fit in %v of opening", len(park.HourlyArrivals), duration)
	}

	s := &Schedule{
		perTick: make([]int, closing),
		hourly:  make([]int, len(park.HourlyArrivals)),
	}

	if park.PerfectArrivals {
		counts := apportion(park.TotalDailyAgents, park.HourlyArrivals)
		for h, count := range counts {
			s.spread(h, perHour, count)
		}
		return s, nil
	}

	for h, pct := range park.HourlyArrivals {
		r := rand.New(rand.NewSource(streamSeed(park.Seed, arrivalStream, h)))
		mean := float64(park.TotalDailyAgents) * pct / 100 / float64(perHour)
		for k := 0; k < perHour; k++ {
			t := h*perHour + k
			if t >= closing {
				break
			}
			n := poisson(r, mean)
			s.perTick[t] = n
			s.hourly[h] += n
		}
	}
	return s, nil
}

// apportion splits total across the percentages so the parts sum exactly
// to total.
func apportion(total int, percents []float64) []int {
	counts := make([]int, len(percents))
	type remainder struct {
		hour int
		frac float64
	}
	rems := make([]remainder, len(percents))
	assigned := 0
	for h, pct := range percents {
		exact := float64(total) * pct / 100
		whole := math.Floor(exact + 1e-9)
		counts[h] = int(whole)
		assigned += counts[h]
		rems[h] = remainder{hour: h, frac: exact - whole}
	}
	sort.SliceStable(rems, func(i, j int) bool {
		return rems[i].frac > rems[j].frac+1e-12
	})
	for i := 0; assigned < total && len(rems) > 0; i = (i + 1) % len(rems) {
		counts[rems[i].hour]++
		assigned++
	}
	return counts
}

// spread distributes count arrivals evenly over hour h. A last hour cut
// short by closing uses only its remaining ticks.
func (s *Schedule) spread(h, perHour, count int) {
	first := h * perHour
	ticks := perHour
	if first+ticks > len(s.perTick) {
		ticks = len(s.perTick) - first
	}
	for k := 0; k < ticks; k++ {
		n := (k+1)*count/ticks - k*count/ticks
		s.perTick[first+k] = n
	}
	s.hourly[h] = count
}

// At returns the number of agents arriving at tick t.
func (s *Schedule) At(t int) int {
	if t < 0 || t >= len(s.perTick) {
		return 0
	}
	return s.perTick[t]
}

// Hourly returns the number of arrivals per opening hour.
func (s *Schedule) Hourly() []int {
	out := make([]int, len(s.hourly))
	copy(out, s.hourly)
	return out
}

// Total returns the number of arrivals over the whole day.
func (s *Schedule) Total() int {
	n := 0
	for _, c := range s.perTick {
		n += c
	}
	return n
}

// Len returns the number of ticks between opening and closing.
func (s *Schedule) Len() int {
	return len(s.perTick)
}
