package chart

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sherine-k/parksim/pkg/simulation"
)

const (
	chartWidth  = 80
	chartHeight = 20
)

// Generator generates ASCII charts
type Generator struct {
	width  int
	height int
}

// NewGenerator creates a new chart generator
func NewGenerator() *Generator {
	return &Generator{
		width:  chartWidth,
		height: chartHeight,
	}
}

// sample maps chart column x onto an index into n points
func (g *Generator) sample(x, n int) int {
	cols := g.width - 6
	if n <= 1 || cols <= 1 {
		return 0
	}
	i := int(float64(x) / float64(cols-1) * float64(n-1))
	if i >= n {
		i = n - 1
	}
	return i
}

func (g *Generator) columns(n int) int {
	if n < g.width-6 {
		return n
	}
	return g.width - 6
}

// GenerateAttendanceChart generates an ASCII chart showing agents in the park over time
func (g *Generator) GenerateAttendanceChart(report *simulation.Report) string {
	points := report.TimePoints
	if len(points) == 0 {
		return "No data to display"
	}

	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString("Agents In Park Over Time\n")
	sb.WriteString(strings.Repeat("=", g.width))
	sb.WriteString("\n\n")

	peak := 0
	for _, tp := range points {
		if tp.Active > peak {
			peak = tp.Active
		}
	}
	if peak == 0 {
		sb.WriteString("No agents entered the park\n")
		return sb.String()
	}

	step := float64(peak) / float64(g.height)
	if step < 1 {
		step = 1
	}
	rows := int(float64(peak)/step + 0.999)

	for row := rows; row >= 1; row-- {
		level := float64(row) * step
		sb.WriteString(fmt.Sprintf("%5d |", int(level)))
		for x := 0; x < g.columns(len(points)); x++ {
			tp := points[g.sample(x, len(points))]
			if float64(tp.Active) >= level-step/2 {
				sb.WriteString("█")
			} else {
				sb.WriteString(" ")
			}
		}
		sb.WriteString("\n")
	}

	g.writeAxis(&sb, len(points), report.TickMinutes)

	sb.WriteString("\n")
	sb.WriteString("Legend:\n")
	sb.WriteString("    █ - Agents in the park\n")
	sb.WriteString(fmt.Sprintf("  Peak: %s agents at %s\n",
		humanize.Comma(int64(report.Totals.PeakActive)),
		FormatDuration(tickDuration(report.Totals.PeakActiveTick, report.TickMinutes))))
	sb.WriteString("\n")

	return sb.String()
}

// GenerateQueueChart generates an ASCII chart of one attraction's queue lengths
func (g *Generator) GenerateQueueChart(report *simulation.Report, attraction string) string {
	type point struct{ standby, expedited int }
	points := make([]point, 0, len(report.TimePoints))
	longest := 0
	for _, tp := range report.TimePoints {
		for _, q := range tp.Queues {
			if q.Attraction != attraction {
				continue
			}
			points = append(points, point{q.Standby, q.Expedited})
			if q.Standby+q.Expedited > longest {
				longest = q.Standby + q.Expedited
			}
		}
	}
	if len(points) == 0 {
		return fmt.Sprintf("No queue data for %s", attraction)
	}

	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s Queue Length Over Time\n", attraction))
	sb.WriteString(strings.Repeat("=", g.width))
	sb.WriteString("\n\n")

	if longest == 0 {
		sb.WriteString("Nobody queued\n")
		return sb.String()
	}

	step := float64(longest) / float64(g.height)
	if step < 1 {
		step = 1
	}
	rows := int(float64(longest)/step + 0.999)

	// Expedited stacks on top of standby
	for row := rows; row >= 1; row-- {
		level := float64(row) * step
		sb.WriteString(fmt.Sprintf("%5d |", int(level)))
		for x := 0; x < g.columns(len(points)); x++ {
			p := points[g.sample(x, len(points))]
			switch {
			case float64(p.standby) >= level-step/2:
				sb.WriteString("*")
			case float64(p.standby+p.expedited) >= level-step/2:
				sb.WriteString("+")
			default:
				sb.WriteString(" ")
			}
		}
		sb.WriteString("\n")
	}

	g.writeAxis(&sb, len(points), report.TickMinutes)

	sb.WriteString("\n")
	sb.WriteString("Legend:\n")
	sb.WriteString("    * - Standby queue\n")
	sb.WriteString("    + - Expedited queue\n")
	sb.WriteString("\n")

	return sb.String()
}

// writeAxis draws the x-axis with a marker every hour
func (g *Generator) writeAxis(sb *strings.Builder, n int, tickMinutes float64) {
	cols := g.columns(n)
	sb.WriteString("      +")
	sb.WriteString(strings.Repeat("-", cols))
	sb.WriteString("\n")

	labelLine := make([]rune, cols)
	for i := range labelLine {
		labelLine[i] = ' '
	}
	total := float64(n-1) * tickMinutes
	for hour := 0; float64(hour)*60 <= total; hour++ {
		position := 0
		if total > 0 {
			position = int(float64(hour) * 60 / total * float64(cols-1))
		}
		marker := fmt.Sprintf("%dh", hour)
		if position+len(marker) > cols {
			break
		}
		for i, ch := range marker {
			labelLine[position+i] = ch
		}
	}
	sb.WriteString("       ")
	sb.WriteString(string(labelLine))
	sb.WriteString("\n")
}

// GenerateAttractionTable lists ridership, waits and pass counts per attraction
func (g *Generator) GenerateAttractionTable(report *simulation.Report) string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString("Attractions\n")
	sb.WriteString(strings.Repeat("=", g.width))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("%-18s %8s %8s %6s %6s %6s %6s %7s %7s\n",
		"Name", "Standby", "Express", "Avg", "P50", "P90", "Max", "Issued", "Expired"))
	for _, a := range report.Attractions {
		sb.WriteString(fmt.Sprintf("%-18s %8s %8s %6.0f %6.0f %6.0f %6.0f %7s %7s\n",
			truncate(a.Name, 18),
			humanize.Comma(int64(a.StandbyRiders)),
			humanize.Comma(int64(a.ExpeditedRiders)),
			a.AvgWait, a.P50Wait, a.P90Wait, a.MaxWait,
			humanize.Comma(int64(a.Passes.Issued)),
			humanize.Comma(int64(a.Passes.Expired))))
	}
	sb.WriteString("\nWaits in minutes.\n")

	if len(report.Activities) > 0 {
		sb.WriteString("\nActivities\n")
		for _, a := range report.Activities {
			sb.WriteString(fmt.Sprintf("  - %s: %s visits\n", a.Name, humanize.Comma(int64(a.Visitors))))
		}
	}

	t := report.Totals
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Agents: %s, rides: %s, activity visits: %s\n",
		humanize.Comma(int64(t.Agents)), humanize.Comma(int64(t.Rides)), humanize.Comma(int64(t.ActivityVisits))))
	sb.WriteString(fmt.Sprintf("Average wait: %.1f min, average satisfaction: %.2f\n", t.AvgWaitMinutes, t.AvgSatisfaction))
	sb.WriteString("\n")

	return sb.String()
}

// GenerateEventSummary generates a summary of events
func (g *Generator) GenerateEventSummary(events []simulation.Event) string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString("Event Summary\n")
	sb.WriteString(strings.Repeat("=", g.width))
	sb.WriteString("\n\n")

	// Group events by type
	eventsByType := make(map[simulation.EventType]int)
	for _, event := range events {
		eventsByType[event.Type]++
	}

	sb.WriteString(fmt.Sprintf("Total Events: %s\n", humanize.Comma(int64(len(events)))))
	rows := []struct {
		label string
		typ   simulation.EventType
	}{
		{"Arrivals", simulation.EventTypeArrived},
		{"Departures", simulation.EventTypeDeparted},
		{"Standby Joins", simulation.EventTypeJoinedStandby},
		{"Queue Full", simulation.EventTypeQueueFull},
		{"Boardings", simulation.EventTypeBoarded},
		{"Activities Started", simulation.EventTypeActivityStarted},
		{"Passes Requested", simulation.EventTypePassRequested},
		{"Passes Issued", simulation.EventTypePassIssued},
		{"Passes Denied", simulation.EventTypePassDenied},
		{"Passes Redeemed", simulation.EventTypePassRedeemed},
		{"Passes Expired", simulation.EventTypePassExpired},
		{"Passes Out Of Window", simulation.EventTypePassOutOfWindow},
	}
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", r.label, humanize.Comma(int64(eventsByType[r.typ]))))
	}
	sb.WriteString("\n")

	return sb.String()
}

// GenerateWarnings generates a list of warnings grouped by location
func (g *Generator) GenerateWarnings(warnings []simulation.Event) string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString("Warnings\n")
	sb.WriteString(strings.Repeat("=", g.width))
	sb.WriteString("\n\n")

	if len(warnings) == 0 {
		sb.WriteString("No warnings!\n")
		return sb.String()
	}

	type key struct {
		location string
		typ      simulation.EventType
	}
	counts := make(map[key]int)
	for _, w := range warnings {
		counts[key{w.Location, w.Type}]++
	}
	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].location != keys[j].location {
			return keys[i].location < keys[j].location
		}
		return keys[i].typ < keys[j].typ
	})
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %s: %s x%s\n", k.location, k.typ, humanize.Comma(int64(counts[k]))))
	}

	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Total Warnings: %s\n", humanize.Comma(int64(len(warnings)))))
	sb.WriteString("\n")

	return sb.String()
}

// GenerateDetailedTimeline generates a detailed timeline of events
func (g *Generator) GenerateDetailedTimeline(events []simulation.Event, limit int, tickMinutes float64) string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString("Detailed Timeline")
	if limit > 0 && limit < len(events) {
		sb.WriteString(fmt.Sprintf(" (showing first %d events)", limit))
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", g.width))
	sb.WriteString("\n\n")

	displayCount := len(events)
	if limit > 0 && limit < displayCount {
		displayCount = limit
	}

	for i := 0; i < displayCount; i++ {
		event := events[i]

		typeIcon := " "
		switch event.Type {
		case simulation.EventTypeArrived:
			typeIcon = ">"
		case simulation.EventTypeDeparted:
			typeIcon = "<"
		case simulation.EventTypeJoinedStandby:
			typeIcon = "Q"
		case simulation.EventTypeBoarded:
			typeIcon = "R"
		case simulation.EventTypeActivityStarted:
			typeIcon = "A"
		case simulation.EventTypePassIssued, simulation.EventTypePassRedeemed:
			typeIcon = "P"
		case simulation.EventTypePassDenied, simulation.EventTypeQueueFull:
			typeIcon = "x"
		case simulation.EventTypePassExpired, simulation.EventTypePassOutOfWindow:
			typeIcon = "!"
		}

		location := event.Location
		if location == "" {
			location = "-"
		}
		sb.WriteString(fmt.Sprintf("[%7s] %s agent %-5d %-16s %s\n",
			FormatDuration(tickDuration(event.Tick, tickMinutes)),
			typeIcon,
			event.AgentID,
			location,
			event.Message))
	}

	if limit > 0 && limit < len(events) {
		sb.WriteString(fmt.Sprintf("\n... and %s more events\n", humanize.Comma(int64(len(events)-limit))))
	}

	sb.WriteString("\n")

	return sb.String()
}

func tickDuration(tick int, tickMinutes float64) time.Duration {
	return time.Duration(float64(tick) * tickMinutes * float64(time.Minute))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
