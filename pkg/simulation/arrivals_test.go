package simulation

import (
	"math/rand"
	"reflect"
	"strconv"
	"testing"
	"time"
)

func TestBuildSchedule_Perfect(t *testing.T) {
	park := testPark()
	park.Close = "14:00"
	park.TotalDailyAgents = 1000
	park.HourlyArrivals = []float64{10, 20, 30, 25, 15}
	park.PerfectArrivals = true

	s, err := BuildSchedule(park)
	if err != nil {
		t.Fatalf("BuildSchedule failed: %v", err)
	}
	want := []int{100, 200, 300, 250, 150}
	if got := s.Hourly(); !reflect.DeepEqual(got, want) {
		t.Errorf("Hourly() = %v, want %v", got, want)
	}
	if s.Total() != 1000 {
		t.Errorf("Total() = %d, want 1000", s.Total())
	}

	// per-tick counts add up to each hour's share
	for h, count := range want {
		sum := 0
		for k := 0; k < 60; k++ {
			sum += s.At(h*60 + k)
		}
		if sum != count {
			t.Errorf("hour %d: ticks add up to %d, want %d", h, sum, count)
		}
	}
}

func TestBuildSchedule_LargestRemainder(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		percent []float64
		want    []int
	}{
		{"thirds", 100, []float64{33.3, 33.3, 33.4}, []int{33, 33, 34}},
		{"ties go early", 10, []float64{25, 25, 25, 25}, []int{3, 3, 2, 2}},
		{"small total", 7, []float64{50, 50}, []int{4, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			park := testPark()
			park.TotalDailyAgents = tt.total
			park.HourlyArrivals = tt.percent
			park.PerfectArrivals = true
			s, err := BuildSchedule(park)
			if err != nil {
				t.Fatalf("BuildSchedule failed: %v", err)
			}
			if got := s.Hourly(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Hourly() = %v, want %v", got, tt.want)
			}
			if s.Total() != tt.total {
				t.Errorf("Total() = %d, want %d", s.Total(), tt.total)
			}
		})
	}
}

func TestBuildSchedule_Stochastic(t *testing.T) {
	park := testPark()
	park.TotalDailyAgents = 2000
	park.HourlyArrivals = []float64{40, 30, 20, 10}

	a, err := BuildSchedule(park)
	if err != nil {
		t.Fatalf("BuildSchedule failed: %v", err)
	}
	b, err := BuildSchedule(park)
	if err != nil {
		t.Fatalf("BuildSchedule failed: %v", err)
	}
	if !reflect.DeepEqual(a.perTick, b.perTick) {
		t.Error("same seed produced different schedules")
	}

	// changing a later hour leaves earlier hours untouched
	park.HourlyArrivals = []float64{40, 30, 10, 20}
	c, err := BuildSchedule(park)
	if err != nil {
		t.Fatalf("BuildSchedule failed: %v", err)
	}
	if !reflect.DeepEqual(a.perTick[:120], c.perTick[:120]) {
		t.Error("hours 0 and 1 changed when only hours 2 and 3 were edited")
	}

	park.Seed = 43
	d, err := BuildSchedule(park)
	if err != nil {
		t.Fatalf("BuildSchedule failed: %v", err)
	}
	if reflect.DeepEqual(a.perTick, d.perTick) {
		t.Error("different seeds produced identical schedules")
	}
}

func TestBuildSchedule_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*parkMutation)
	}{
		{"sum below 100", func(p *parkMutation) { p.percent = []float64{50, 40} }},
		{"negative", func(p *parkMutation) { p.percent = []float64{120, -20} }},
		{"longer than opening", func(p *parkMutation) { p.close = "10:00" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := parkMutation{percent: []float64{50, 50}, close: "17:00"}
			tt.mutate(&m)
			park := testPark()
			park.TotalDailyAgents = 100
			park.HourlyArrivals = m.percent
			park.Close = m.close
			if _, err := BuildSchedule(park); err == nil {
				t.Error("expected error")
			}
		})
	}
}

type parkMutation struct {
	percent []float64
	close   string
}

func TestPoisson(t *testing.T) {
	park := testPark()
	park.TickLength = 5 * time.Minute
	park.TotalDailyAgents = 12000
	park.HourlyArrivals = []float64{100}
	s, err := BuildSchedule(park)
	if err != nil {
		t.Fatalf("BuildSchedule failed: %v", err)
	}
	// 12 ticks at mean 1000 each: the normal branch
	if got := s.Hourly()[0]; got < 11000 || got > 13000 {
		t.Errorf("hour total %d far from 12000", got)
	}
}

func TestStreamSeed_Disjoint(t *testing.T) {
	for _, seed := range []int64{0, 1, 11, 42, -7, 1 << 40} {
		first := make(map[int64]string)
		draw := func(stream uint64, n int, label string) {
			v := rand.New(rand.NewSource(streamSeed(seed, stream, n))).Int63()
			if prev, ok := first[v]; ok {
				t.Errorf("seed %d: %s repeats the sequence of %s", seed, label, prev)
			}
			first[v] = label
		}
		draw(decisionStream, 0, "decisions")
		for h := 0; h < 24; h++ {
			draw(arrivalStream, h, "arrival hour "+strconv.Itoa(h))
		}
		for id := 0; id < 2000; id++ {
			draw(agentStream, id, "agent "+strconv.Itoa(id))
		}
	}
}
