// Package listener implements the two built-in listeners of spec §4.8:
// the exit-status tracker and the summary tracker. Both are pure event
// consumers, safe to register on either bus variant — their counters are
// always mutex-guarded (see SPEC_FULL.md's "sync vs non-sync" decision).
package listener

import (
	"fmt"
	"sync"

	"github.com/gherkindog/gherkindog/pkg/event"
	"github.com/gherkindog/gherkindog/pkg/result"
)

// ExitStatus tracks the maximum severity observed across every
// TestStepFinished and TestCaseFinished event.
type ExitStatus struct {
	mu  sync.Mutex
	max result.Status
}

func NewExitStatus() *ExitStatus {
	return &ExitStatus{max: result.Passed}
}

func (l *ExitStatus) OnEvent(e event.Event) {
	switch e.Kind {
	case event.StepFinished, event.CaseFinished:
		l.mu.Lock()
		if e.Result.Status > l.max {
			l.max = e.Result.Status
		}
		l.mu.Unlock()
	}
}

// MaxSeverity returns the highest-severity result observed so far. Only
// meaningful after TestRunFinished has been observed by all listeners
// (spec §5 "Shared-resource policy").
func (l *ExitStatus) MaxSeverity() result.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.max
}

// ExitCode implements the §4.8 mapping.
func (l *ExitStatus) ExitCode(strict bool) int {
	return result.ExitCode(l.MaxSeverity(), strict)
}

// Summary counts scenarios and steps by terminal result.
type Summary struct {
	mu sync.Mutex

	ScenariosTotal int
	ScenariosByStatus map[result.Status]int

	StepsTotal int
	StepsByStatus map[result.Status]int
}

func NewSummary() *Summary {
	return &Summary{
		ScenariosByStatus: make(map[result.Status]int),
		StepsByStatus:     make(map[result.Status]int),
	}
}

func (l *Summary) OnEvent(e event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch e.Kind {
	case event.CaseFinished:
		l.ScenariosTotal++
		l.ScenariosByStatus[e.Result.Status]++
	case event.StepFinished:
		l.StepsTotal++
		l.StepsByStatus[e.Result.Status]++
	}
}

// Snapshot returns a copy of the current counters, safe to read
// concurrently with further OnEvent calls (though per spec §5 callers
// should only read after TestRunFinished has drained).
func (l *Summary) Snapshot() SummarySnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return SummarySnapshot{
		ScenariosTotal:    l.ScenariosTotal,
		ScenariosByStatus: cloneCounts(l.ScenariosByStatus),
		StepsTotal:        l.StepsTotal,
		StepsByStatus:     cloneCounts(l.StepsByStatus),
	}
}

// SummarySnapshot is an immutable view of Summary's counters.
type SummarySnapshot struct {
	ScenariosTotal    int
	ScenariosByStatus map[result.Status]int
	StepsTotal        int
	StepsByStatus     map[result.Status]int
}

// Render renders a human-readable summary line pair, in the style of
// cacik's ConsoleReporter.PrintSummary.
func (s SummarySnapshot) Render() string {
	return fmt.Sprintf("%d scenario(s) (%s)\n%d step(s) (%s)",
		s.ScenariosTotal, renderCounts(s.ScenariosByStatus),
		s.StepsTotal, renderCounts(s.StepsByStatus))
}

func renderCounts(counts map[result.Status]int) string {
	order := []result.Status{result.Passed, result.Failed, result.Ambiguous, result.Undefined, result.Pending, result.Skipped}
	out := ""
	for _, st := range order {
		n, ok := counts[st]
		if !ok || n == 0 {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%d %s", n, st)
	}
	if out == "" {
		return "none"
	}
	return out
}

func cloneCounts(m map[result.Status]int) map[result.Status]int {
	cp := make(map[result.Status]int, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
