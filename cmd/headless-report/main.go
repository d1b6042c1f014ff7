package main

import (
	"flag"
	"fmt"
	"math"
	"strings"

	dto "github.com/prometheus/client_model/go"

	"github.com/Garsondee/Fireworks/internal/config"
	"github.com/Garsondee/Fireworks/internal/render"
	"github.com/Garsondee/Fireworks/internal/sim"
)

type runStats struct {
	runIndex int
	seed     int64

	firstLaunchTick   int
	firstDetonateTick int
	firstBurnoutTick  int
	lastDetonateTick  int
	sawDiagonal       bool

	timerLaunches  int
	clickLaunches  int
	detonations    int
	burnouts       int
	sparksSpawned  int
	peakParticles  int
	peakFireworks  int
	peakTrail      int
	liveAtEnd      int
	particlesAtEnd int

	windowSummary *sim.WindowReport
}

// meanSparks is the average spark count per detonation.
func (rs runStats) meanSparks() float64 {
	return avg(rs.sparksSpawned, rs.detonations)
}

func main() {
	var runs int
	var ticks int
	var seedBase int64
	var seedStep int64
	var configPath string
	var snapshotPath string
	var traceLabel string
	var logFrom, logTo int

	flag.IntVar(&runs, "runs", 5, "number of headless show runs")
	flag.IntVar(&ticks, "ticks", 3600, "ticks per run")
	flag.Int64Var(&seedBase, "seed-base", 42, "base RNG seed for run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.StringVar(&configPath, "config", config.PathFromEnv(), "config file")
	flag.StringVar(&snapshotPath, "snapshot", "", "write the last frame of run 1 to this PNG")
	flag.StringVar(&traceLabel, "trace", "", "print the event history of one firework in run 1 (e.g. F3)")
	flag.IntVar(&logFrom, "log-from", -1, "print run 1 events from this tick")
	flag.IntVar(&logTo, "log-to", -1, "print run 1 events up to this tick (default: end of run)")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		return
	}
	if ticks <= 0 {
		fmt.Println("error: -ticks must be > 0")
		return
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	fmt.Printf("=== Headless Fireworks Report ===\n")
	fmt.Printf("canvas=%dx%d interval=%d runs=%d ticks=%d seed_base=%d seed_step=%d\n\n",
		cfg.Window.Width, cfg.Window.Height, cfg.Window.FireworkInterval, runs, ticks, seedBase, seedStep)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		ts := newRun(cfg, seed)
		stats := runShow(ts, i+1, ticks)
		all = append(all, stats)
		printRun(stats)

		if i == 0 {
			fmt.Print(traceLog(ts.SimLog, traceLabel, logFrom, logTo))
		}
		if i == 0 && snapshotPath != "" {
			if err := saveSnapshot(ts, snapshotPath); err != nil {
				fmt.Printf("error: snapshot: %v\n", err)
			} else {
				fmt.Printf("snapshot written to %s\n\n", snapshotPath)
			}
		}
	}

	printAggregate(all)
}

func newRun(cfg *config.Config, seed int64) *sim.TestSim {
	return sim.NewTestSim(sim.WithConfig(cfg), sim.WithSeed(seed))
}

// runShow advances ts tick by tick, tracking peaks, then reads the totals
// back from the log and the metrics registry.
func runShow(ts *sim.TestSim, runIndex, ticks int) runStats {
	rs := runStats{runIndex: runIndex, seed: ts.Seed}
	for i := 0; i < ticks; i++ {
		ts.RunTicks(1)
		c := ts.Show.Counts()
		rs.peakParticles = max(rs.peakParticles, c.Particles)
		rs.peakFireworks = max(rs.peakFireworks, c.Fireworks)
		rs.peakTrail = max(rs.peakTrail, c.TrailPoints)
	}

	entries := ts.SimLog.Entries()
	rs.firstLaunchTick = firstTick(entries, "firework", "launch", "")
	rs.firstDetonateTick = firstTick(entries, "firework", "detonate", "")
	rs.firstBurnoutTick = firstTick(entries, "firework", "burnout", "")
	rs.lastDetonateTick = -1
	if e, ok := ts.SimLog.LastOf("firework", "detonate"); ok {
		rs.lastDetonateTick = e.Tick
	}
	rs.sawDiagonal = ts.SimLog.HasEntry("firework", "launch", "diagonal")

	families, err := ts.Metrics.Registry.Gather()
	if err != nil {
		fmt.Printf("error: gather metrics: %v\n", err)
	}
	rs.timerLaunches = int(metricValue(families, "fireworks_launched_total", "source", "timer"))
	rs.clickLaunches = int(metricValue(families, "fireworks_launched_total", "source", "click"))
	rs.detonations = int(metricValue(families, "fireworks_detonations_total", "", ""))
	rs.burnouts = int(metricValue(families, "fireworks_burnouts_total", "", ""))
	rs.sparksSpawned = int(metricValue(families, "fireworks_particles_spawned_total", "", ""))
	rs.liveAtEnd = int(metricValue(families, "fireworks_live", "", ""))
	rs.particlesAtEnd = int(metricValue(families, "fireworks_particles_live", "", ""))

	rs.windowSummary = ts.Reporter.WindowSummary()
	return rs
}

// metricValue sums the counter or gauge samples of one family, optionally
// restricted to a label value.
func metricValue(families []*dto.MetricFamily, name, label, value string) float64 {
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label != "" && !hasLabel(m, label, value) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
	}
	return total
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}

func saveSnapshot(ts *sim.TestSim, path string) error {
	w := ts.Config.Window
	snap := render.NewSnapshot(w.Width, w.Height, w.BackgroundColor())
	ts.Show.Draw(snap)
	c := ts.Show.Counts()
	snap.Label(6, 6, fmt.Sprintf("seed=%d tick=%d fireworks=%d sparks=%d", ts.Seed, ts.Show.Tick(), c.Fireworks, c.Particles))
	return snap.SavePNG(path)
}

// traceLog renders the requested slices of a run's event log: the history of
// one firework and/or a tick window. to < 0 means up to the last entry.
func traceLog(sl *sim.SimLog, label string, from, to int) string {
	var b strings.Builder
	if label != "" {
		entries := sl.FilterEntity(label)
		fmt.Fprintf(&b, "--- Trace %s (%d events) ---\n", label, len(entries))
		for _, e := range entries {
			b.WriteString(e.String())
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	if from >= 0 {
		if to < 0 {
			to = math.MaxInt
		}
		fmt.Fprintf(&b, "--- Events from tick %d ---\n", from)
		b.WriteString(sl.FormatRange(from, to))
		b.WriteByte('\n')
	}
	return b.String()
}

func firstTick(entries []sim.SimLogEntry, category, key, contains string) int {
	for _, e := range entries {
		if e.Category != category || e.Key != key {
			continue
		}
		if contains == "" || strings.Contains(e.Value, contains) {
			return e.Tick
		}
	}
	return -1
}

func printRun(rs runStats) {
	fmt.Printf("--- Run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	fmt.Printf("phase_markers: first_launch=%d first_detonate=%d first_burnout=%d last_detonate=%d diagonal_seen=%v\n",
		rs.firstLaunchTick, rs.firstDetonateTick, rs.firstBurnoutTick, rs.lastDetonateTick, rs.sawDiagonal)
	fmt.Printf("event_totals: launches=%d (timer=%d click=%d) detonations=%d burnouts=%d\n",
		rs.timerLaunches+rs.clickLaunches, rs.timerLaunches, rs.clickLaunches, rs.detonations, rs.burnouts)
	fmt.Printf("sparks: spawned=%d mean_per_detonation=%.1f peak_live=%d at_end=%d\n",
		rs.sparksSpawned, rs.meanSparks(), rs.peakParticles, rs.particlesAtEnd)
	fmt.Printf("fireworks: peak_live=%d at_end=%d peak_trail_points=%d\n",
		rs.peakFireworks, rs.liveAtEnd, rs.peakTrail)
	if rs.windowSummary != nil {
		fmt.Print(rs.windowSummary.Format())
	}
	fmt.Println()
}

func printAggregate(all []runStats) {
	totalLaunches := 0
	totalDetonations := 0
	totalBurnouts := 0
	totalSparks := 0
	peakParticles := 0
	peakFireworks := 0
	var detonateTicks []int
	for _, rs := range all {
		totalLaunches += rs.timerLaunches + rs.clickLaunches
		totalDetonations += rs.detonations
		totalBurnouts += rs.burnouts
		totalSparks += rs.sparksSpawned
		peakParticles = max(peakParticles, rs.peakParticles)
		peakFireworks = max(peakFireworks, rs.peakFireworks)
		if rs.firstDetonateTick >= 0 {
			detonateTicks = append(detonateTicks, rs.firstDetonateTick)
		}
	}

	n := len(all)
	fmt.Printf("=== Aggregate (%d runs) ===\n", n)
	fmt.Printf("avg_per_run: launches=%.1f detonations=%.1f burnouts=%.1f sparks=%.1f\n",
		avg(totalLaunches, n), avg(totalDetonations, n), avg(totalBurnouts, n), avg(totalSparks, n))
	fmt.Printf("mean_sparks_per_detonation=%.1f avg_first_detonate_tick=%s\n",
		avg(totalSparks, totalDetonations), avgTickString(detonateTicks))
	fmt.Printf("peaks: particles=%d fireworks=%d\n", peakParticles, peakFireworks)
}

func avg(sum int, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func avgTickString(vals []int) string {
	if len(vals) == 0 {
		return "n/a"
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}
