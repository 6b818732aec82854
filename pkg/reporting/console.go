// Package reporting implements the engine's built-in human-facing
// reporters as event.Listener implementations: a colored console
// reporter and an HTML report writer.
//
// Grounded on pkg/cacik/reporter.go (ConsoleReporter, ANSI palette; step
// text is colored as a whole line) and pkg/cacik/html_report.go
// (tag grouping, HTML template), retargeted from the teacher's
// push-style Reporter interface (FeatureStart/StepPassed/...) onto the
// engine's pulled event.Event stream (spec §3/§6).
package reporting

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gherkindog/gherkindog/pkg/cuke"
	"github.com/gherkindog/gherkindog/pkg/event"
	"github.com/gherkindog/gherkindog/pkg/result"
)

// ANSI palette, ported from pkg/cacik/reporter.go.
const (
	colorReset    = "\033[0m"
	colorGreen    = "\033[32m"
	colorRed      = "\033[31m"
	colorYellow   = "\033[33m"
	colorCyan     = "\033[36m"
	colorBold     = "\033[1m"
	colorStepText = "\033[38;2;187;181;41m"
)

const (
	symbolPass = "✓"
	symbolFail = "✗"
	symbolSkip = "-"
)

// Summary tracks aggregate pass/fail/skip counters across a run.
type Summary struct {
	ScenariosTotal  int
	ScenariosPassed int
	ScenariosFailed int
	StepsTotal      int
	StepsPassed     int
	StepsFailed     int
	StepsSkipped    int
}

// ConsoleReporter prints colored, human-readable progress to stdout (or
// buffers it, for interleave-free parallel output) as the engine
// publishes events.
type ConsoleReporter struct {
	useColors bool
	buffer    *strings.Builder
	buffered  bool

	mu          sync.Mutex
	summary     Summary
	lastFeature string
	lastRule    string
}

// NewConsoleReporter prints directly to stdout as events arrive.
func NewConsoleReporter(useColors bool) *ConsoleReporter {
	return &ConsoleReporter{useColors: useColors}
}

// NewBufferedConsoleReporter accumulates output in one buffer and only
// prints it on Flush (called on RunFinished). Lines are buffered in event
// order, so lines of concurrently running scenarios can still be
// interleaved with one another.
func NewBufferedConsoleReporter(useColors bool) *ConsoleReporter {
	return &ConsoleReporter{useColors: useColors, buffer: &strings.Builder{}, buffered: true}
}

func (r *ConsoleReporter) write(s string) {
	if r.buffered {
		r.buffer.WriteString(s)
		return
	}
	fmt.Print(s)
}

func (r *ConsoleReporter) writeln(s string) { r.write(s + "\n") }

func (r *ConsoleReporter) color(c, s string) string {
	if r.useColors {
		return c + s + colorReset
	}
	return s
}

// OnEvent implements event.Listener.
func (r *ConsoleReporter) OnEvent(e event.Event) {
	switch e.Kind {
	case event.CaseStarted:
		r.caseStarted(e.Case)
	case event.StepFinished:
		r.stepFinished(e)
	case event.CaseFinished:
		r.caseFinished(e)
	case event.RunFinished:
		r.printSummary()
	}
}

func (r *ConsoleReporter) caseStarted(c *cuke.Cuke) {
	if c == nil {
		return
	}
	r.mu.Lock()
	feature, rule := c.FeatureName, c.RuleName
	changedFeature := feature != r.lastFeature
	changedRule := rule != r.lastRule && rule != ""
	r.lastFeature, r.lastRule = feature, rule
	r.mu.Unlock()

	if changedFeature {
		r.writeln("")
		r.writeln(r.color(colorCyan, "Feature:") + " " + r.color(colorBold, feature))
	}
	if changedRule {
		r.writeln("  " + r.color(colorCyan, "Rule:") + " " + r.color(colorBold, rule))
	}
	r.writeln("")
	r.writeln("  " + r.color(colorCyan, "Scenario:") + " " + r.color(colorBold, c.Name))
}

func (r *ConsoleReporter) stepFinished(e event.Event) {
	keyword := e.Step.Keyword.String() + " "
	text := r.color(colorStepText, e.Step.Text)
	line := fmt.Sprintf("    %s%s", r.color(colorCyan, keyword), text)

	switch e.Result.Status {
	case result.Passed:
		r.writeln(fmt.Sprintf("%-60s %s", line, r.color(colorGreen, symbolPass)))
	case result.Skipped:
		r.writeln(fmt.Sprintf("%-60s %s", line, r.color(colorYellow, symbolSkip)))
	default:
		r.writeln(fmt.Sprintf("%-60s %s", line, r.color(colorRed, symbolFail)))
		if msg := failureMessage(e.Result); msg != "" {
			for _, l := range strings.Split(msg, "\n") {
				r.writeln(r.color(colorRed, "      "+l))
			}
		}
	}

	r.mu.Lock()
	r.summary.StepsTotal++
	switch e.Result.Status {
	case result.Passed:
		r.summary.StepsPassed++
	case result.Skipped:
		r.summary.StepsSkipped++
	default:
		r.summary.StepsFailed++
	}
	r.mu.Unlock()
}

func (r *ConsoleReporter) caseFinished(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summary.ScenariosTotal++
	if e.Result.Status == result.Passed {
		r.summary.ScenariosPassed++
	} else {
		r.summary.ScenariosFailed++
	}
}

func failureMessage(res result.Result) string {
	if res.Err != nil {
		return res.Err.Error()
	}
	return res.Reason
}

// Snapshot returns the current aggregate counters.
func (r *ConsoleReporter) Snapshot() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

func (r *ConsoleReporter) printSummary() {
	s := r.Snapshot()
	r.writeln("")

	scenarioLine := fmt.Sprintf("%d scenario(s)", s.ScenariosTotal)
	if parts := summaryParts(r, s.ScenariosPassed, s.ScenariosFailed, 0); len(parts) > 0 {
		scenarioLine += " (" + strings.Join(parts, ", ") + ")"
	}
	r.writeln(scenarioLine)

	stepLine := fmt.Sprintf("%d step(s)", s.StepsTotal)
	if parts := summaryParts(r, s.StepsPassed, s.StepsFailed, s.StepsSkipped); len(parts) > 0 {
		stepLine += " (" + strings.Join(parts, ", ") + ")"
	}
	r.writeln(stepLine)

	r.Flush()
}

func summaryParts(r *ConsoleReporter, passed, failed, skipped int) []string {
	var parts []string
	if passed > 0 {
		parts = append(parts, r.color(colorGreen, fmt.Sprintf("%d passed", passed)))
	}
	if failed > 0 {
		parts = append(parts, r.color(colorRed, fmt.Sprintf("%d failed", failed)))
	}
	if skipped > 0 {
		parts = append(parts, r.color(colorYellow, fmt.Sprintf("%d skipped", skipped)))
	}
	return parts
}

// Flush prints any buffered output atomically. A no-op for an
// unbuffered reporter.
func (r *ConsoleReporter) Flush() {
	if !r.buffered {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.buffer.Len() == 0 {
		return
	}
	fmt.Fprint(os.Stdout, r.buffer.String())
	r.buffer.Reset()
}
