// Package schedule implements the execution-mode scheduler of spec §4.7:
// Sequential, ParallelFeatures, and ParallelScenarios, each driving
// pkg/scenario.Runner over a fixed-size worker pool for the parallel
// modes.
//
// Grounded on pkg/runner/runner.go's top-level Run loop for the overall
// shape (iterate cukes, aggregate an exit code) and on original_source's
// rayon-based parallel dispatch (core/lib/src/runtime), here reimplemented
// with a bounded goroutine pool instead of a work-stealing thread pool —
// spec §5 only requires a fixed-size pool, not work-stealing.
package schedule

import (
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gherkindog/gherkindog/pkg/bus"
	"github.com/gherkindog/gherkindog/pkg/cuke"
	"github.com/gherkindog/gherkindog/pkg/event"
	"github.com/gherkindog/gherkindog/pkg/listener"
	"github.com/gherkindog/gherkindog/pkg/result"
	"github.com/gherkindog/gherkindog/pkg/scenario"
)

// Mode selects among the three execution strategies of spec §4.7.
type Mode int

const (
	Sequential Mode = iota
	ParallelFeatures
	ParallelScenarios
)

// Config carries the knobs spec §6 assigns to the engine's CLI surface
// (features_dir is resolved by pkg/gherkinsrc before Run is called; only
// the execution-level knobs live here).
type Config struct {
	Mode      Mode
	Strict    bool
	DryRun    bool
	FailFast  bool // Sequential mode only: stop after the first failing cuke.
	Workers   int  // 0 = runtime.NumCPU()
	Listeners []event.Listener

	// Sources and ParseFailures carry the parser collaborator's output
	// (spec §6) so Run can publish it through the same bus the scheduled
	// cukes use, before any cuke is dispatched.
	Sources       []SourceDocument
	ParseFailures []ParseFailure
}

// SourceDocument is one successfully parsed feature file, published as a
// SourceRead event (spec §6 "TestSourceRead") once per file, after
// RunStarted and before its cukes are scheduled.
type SourceDocument struct {
	URI    string
	Source string
	Cukes  []*cuke.Cuke
}

// ParseFailure names a feature file that failed to parse. Spec §6/§7:
// "errors from the parser are fatal for that file and reported through
// the event stream as a file-level failure; other feature files
// continue" — realized here as a synthesized CaseStarted/CaseFinished
// pair with a Failed result, so the exit-status and summary listeners
// (and any registered reporter) observe it exactly like a real scenario
// failure.
type ParseFailure struct {
	URI string
	Err error
}

// Run executes every cuke in cukes under the given runner and config,
// returning the process exit code computed by the exit-status listener
// (spec §4.7, §4.8).
func Run(runner *scenario.Runner, cukes []*cuke.Cuke, cfg Config) int {
	exitStatus := listener.NewExitStatus()
	summary := listener.NewSummary()
	builtins := []event.Listener{exitStatus, summary}

	concurrent := cfg.Mode != Sequential
	b := bus.New(concurrent, builtins, cfg.Listeners)

	runID := uuid.New()
	b.Send(event.Event{Kind: event.RunStarted, Time: time.Now(), RunID: runID, NumCukes: len(cukes) + len(cfg.ParseFailures)})

	for _, sd := range cfg.Sources {
		b.Send(event.Event{Kind: event.SourceRead, Time: time.Now(), URI: sd.URI, Source: sd.Source, Cukes: sd.Cukes})
	}
	for _, pf := range cfg.ParseFailures {
		failedCase := &cuke.Cuke{URI: pf.URI, Name: pf.URI}
		b.Send(event.Event{Kind: event.CaseStarted, Time: time.Now(), Case: failedCase})
		b.Send(event.Event{Kind: event.CaseFinished, Time: time.Now(), Case: failedCase, Result: result.Fail(0, pf.Err)})
	}

	switch cfg.Mode {
	case Sequential:
		runSequential(runner, b, cukes, cfg.FailFast, exitStatus)
	case ParallelFeatures:
		runParallelFeatures(runner, b, cukes, workerCount(cfg.Workers))
	case ParallelScenarios:
		runParallelScenarios(runner, b, cukes, workerCount(cfg.Workers))
	}

	b.Send(event.Event{Kind: event.RunFinished, Time: time.Now(), RunID: runID})

	return exitStatus.ExitCode(cfg.Strict)
}

func workerCount(configured int) int {
	if configured > 0 {
		return configured
	}
	return runtime.NumCPU()
}

// runSequential stops early once failFast is set and a cuke has reached
// result.Failed severity — the only mode where "first failure" has an
// unambiguous meaning, since the parallel modes dispatch work before a
// failure can be observed (documented alongside Config.FailFast).
func runSequential(runner *scenario.Runner, b bus.Bus, cukes []*cuke.Cuke, failFast bool, exitStatus *listener.ExitStatus) {
	for _, c := range cukes {
		runner.Run(b, c)
		if failFast && exitStatus.MaxSeverity() >= result.Failed {
			return
		}
	}
}

// runParallelFeatures groups cukes by URI (spec: "source URI"), runs
// groups concurrently across the worker pool, and runs each group's
// cukes sequentially in source order (spec §4.7).
func runParallelFeatures(runner *scenario.Runner, b bus.Bus, cukes []*cuke.Cuke, workers int) {
	groups := groupByURI(cukes)
	pool := newPool(workers)
	var wg sync.WaitGroup
	for _, group := range groups {
		group := group
		wg.Add(1)
		pool.submit(func() {
			defer wg.Done()
			for _, c := range group {
				runner.Run(b, c)
			}
		})
	}
	wg.Wait()
	pool.close()
}

// runParallelScenarios parallelizes across every cuke, with no grouping
// (spec §4.7).
func runParallelScenarios(runner *scenario.Runner, b bus.Bus, cukes []*cuke.Cuke, workers int) {
	pool := newPool(workers)
	var wg sync.WaitGroup
	for _, c := range cukes {
		c := c
		wg.Add(1)
		pool.submit(func() {
			defer wg.Done()
			runner.Run(b, c)
		})
	}
	wg.Wait()
	pool.close()
}

func groupByURI(cukes []*cuke.Cuke) [][]*cuke.Cuke {
	order := make([]string, 0)
	byURI := make(map[string][]*cuke.Cuke)
	for _, c := range cukes {
		if _, ok := byURI[c.URI]; !ok {
			order = append(order, c.URI)
		}
		byURI[c.URI] = append(byURI[c.URI], c)
	}
	groups := make([][]*cuke.Cuke, len(order))
	for i, uri := range order {
		groups[i] = byURI[uri]
	}
	return groups
}

// pool is a fixed-size worker pool (spec §5: "a fixed size established
// at startup"). No scenario migrates between goroutines once submitted.
type pool struct {
	tasks chan func()
	wg    sync.WaitGroup
}

func newPool(size int) *pool {
	if size < 1 {
		size = 1
	}
	p := &pool{tasks: make(chan func())}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

func (p *pool) submit(task func()) {
	p.tasks <- task
}

func (p *pool) close() {
	close(p.tasks)
	p.wg.Wait()
}
