package reporting

import (
	"fmt"
	"html"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gherkindog/gherkindog/pkg/event"
	"github.com/gherkindog/gherkindog/pkg/result"
)

// stepRecord is one step's outcome, captured from a StepFinished event.
type stepRecord struct {
	Keyword  string
	Text     string
	Status   result.Status
	Error    string
	Duration time.Duration
}

// scenarioRecord is one scenario's outcome, captured between its
// CaseStarted and CaseFinished events.
type scenarioRecord struct {
	FeatureName string
	RuleName    string
	Name        string
	Tags        []string
	Status      result.Status
	Duration    time.Duration
	StartedAt   time.Time
	Steps       []stepRecord
}

// HTMLReporter accumulates every scenario's outcome as the engine
// publishes events and renders a single self-contained HTML file on
// demand via Write.
//
// Grounded on pkg/cacik/html_report.go (tag grouping, inline-CSS
// template), retargeted from the teacher's RunResult/ScenarioResult
// view model onto the engine's event stream.
type HTMLReporter struct {
	mu        sync.Mutex
	startedAt time.Time
	scenarios []scenarioRecord
	current   *scenarioRecord
}

// NewHTMLReporter returns an HTMLReporter ready to register as a
// listener.
func NewHTMLReporter() *HTMLReporter {
	return &HTMLReporter{}
}

// OnEvent implements event.Listener.
func (r *HTMLReporter) OnEvent(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e.Kind {
	case event.RunStarted:
		r.startedAt = e.Time
	case event.CaseStarted:
		if e.Case == nil {
			return
		}
		r.current = &scenarioRecord{
			FeatureName: e.Case.FeatureName,
			RuleName:    e.Case.RuleName,
			Name:        e.Case.Name,
			Tags:        e.Case.Tags,
			StartedAt:   e.Time,
		}
	case event.StepFinished:
		if r.current == nil {
			return
		}
		r.current.Steps = append(r.current.Steps, stepRecord{
			Keyword:  e.Step.Keyword.String(),
			Text:     e.Step.Text,
			Status:   e.Result.Status,
			Error:    failureMessage(e.Result),
			Duration: e.Result.Duration,
		})
	case event.CaseFinished:
		if r.current == nil {
			return
		}
		r.current.Status = e.Result.Status
		r.current.Duration = e.Result.Duration
		r.scenarios = append(r.scenarios, *r.current)
		r.current = nil
	}
}

// tagGroup holds scenarios sharing the same tag combination.
type tagGroup struct {
	TagLabel  string
	Count     int
	Duration  time.Duration
	Scenarios []scenarioRecord
}

// statusSection holds a top-level failed/passed section with tag
// sub-groups.
type statusSection struct {
	Label     string
	CSSClass  string
	Count     int
	Duration  time.Duration
	TagGroups []tagGroup
}

type reportData struct {
	TotalScenarios int
	PassedCount    int
	FailedCount    int
	TotalSteps     int
	TotalDuration  time.Duration
	ExecutedAt     time.Time
	Sections       []statusSection
}

func sumDurations(scenarios []scenarioRecord) time.Duration {
	var total time.Duration
	for _, s := range scenarios {
		total += s.Duration
	}
	return total
}

func tagKey(tags []string) string {
	if len(tags) == 0 {
		return "Untagged"
	}
	sorted := append([]string{}, tags...)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}

func groupByTags(scenarios []scenarioRecord) []tagGroup {
	groups := make(map[string][]scenarioRecord)
	var keys []string
	for _, s := range scenarios {
		key := tagKey(s.Tags)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], s)
	}
	sort.Strings(keys)

	var out []tagGroup
	var untagged *tagGroup
	for _, k := range keys {
		scns := groups[k]
		tg := tagGroup{TagLabel: k, Count: len(scns), Duration: sumDurations(scns), Scenarios: scns}
		if k == "Untagged" {
			untagged = &tg
		} else {
			out = append(out, tg)
		}
	}
	if untagged != nil {
		out = append(out, *untagged)
	}
	return out
}

func (r *HTMLReporter) buildReportData() reportData {
	r.mu.Lock()
	scenarios := append([]scenarioRecord{}, r.scenarios...)
	startedAt := r.startedAt
	r.mu.Unlock()

	var failed, passed []scenarioRecord
	var totalSteps int
	for _, s := range scenarios {
		totalSteps += len(s.Steps)
		if s.Status == result.Passed {
			passed = append(passed, s)
		} else {
			failed = append(failed, s)
		}
	}

	var sections []statusSection
	if len(failed) > 0 {
		sections = append(sections, statusSection{
			Label: "Failed Scenarios", CSSClass: "failed",
			Count: len(failed), Duration: sumDurations(failed), TagGroups: groupByTags(failed),
		})
	}
	if len(passed) > 0 {
		sections = append(sections, statusSection{
			Label: "Passed Scenarios", CSSClass: "passed",
			Count: len(passed), Duration: sumDurations(passed), TagGroups: groupByTags(passed),
		})
	}

	return reportData{
		TotalScenarios: len(scenarios),
		PassedCount:    len(passed),
		FailedCount:    len(failed),
		TotalSteps:     totalSteps,
		TotalDuration:  sumDurations(scenarios),
		ExecutedAt:     startedAt,
		Sections:       sections,
	}
}

// Write renders the accumulated results to a self-contained HTML file
// at path, creating parent directories as needed.
func (r *HTMLReporter) Write(path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("could not create report directory %q: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create report file %q: %w", path, err)
	}
	defer f.Close()

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"statusClass": statusClass,
		"statusSymbol": func(s result.Status) string {
			switch s {
			case result.Passed:
				return "✓"
			case result.Skipped:
				return "–"
			default:
				return "✗"
			}
		},
		"stepText": colorizeStepText,
		"formatDuration": func(d time.Duration) string {
			switch {
			case d < time.Millisecond:
				return fmt.Sprintf("%.0fµs", float64(d)/float64(time.Microsecond))
			case d < time.Second:
				return fmt.Sprintf("%.0fms", float64(d)/float64(time.Millisecond))
			default:
				return fmt.Sprintf("%.2fs", d.Seconds())
			}
		},
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04:05")
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("could not parse HTML template: %w", err)
	}

	if err := tmpl.Execute(f, r.buildReportData()); err != nil {
		return fmt.Errorf("could not render HTML report: %w", err)
	}
	return nil
}

func statusClass(s result.Status) string {
	switch s {
	case result.Passed:
		return "passed"
	case result.Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// colorizeStepText escapes a step's text for HTML. As in the console
// reporter, the event stream carries no per-capture-group byte offsets,
// so the whole line is rendered as a single span.
func colorizeStepText(step stepRecord) template.HTML {
	escaped := html.EscapeString(step.Keyword + " " + step.Text)
	return template.HTML(fmt.Sprintf(`<span class="step-text %s">%s</span>`, statusClass(step.Status), escaped))
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Test Execution Report</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
         background: #f8f9fa; color: #212529; line-height: 1.6; padding: 2rem; }
  h1 { font-size: 1.5rem; margin-bottom: 0.25rem; }
  .executed-at { color: #6c757d; margin-bottom: 1.5rem; }
  .summary { display: flex; gap: 1rem; margin-bottom: 1.5rem; }
  .summary .card { background: #fff; border-radius: 6px; padding: 0.75rem 1.25rem; box-shadow: 0 1px 3px rgba(0,0,0,.1); }
  .section-title { font-weight: 700; margin: 1.5rem 0 0.5rem; }
  .section-title.failed { color: #c0392b; }
  .section-title.passed { color: #27ae60; }
  .tag-group { margin-bottom: 0.75rem; font-weight: 600; color: #495057; }
  .scenario { background: #fff; border-radius: 6px; padding: 0.75rem 1rem; margin-bottom: 0.5rem; box-shadow: 0 1px 2px rgba(0,0,0,.08); }
  .scenario.failed { border-left: 4px solid #c0392b; }
  .scenario.passed { border-left: 4px solid #27ae60; }
  .scenario-name { font-weight: 600; }
  .step-text.passed { color: #27ae60; }
  .step-text.failed { color: #c0392b; }
  .step-text.skipped { color: #d4ac0d; }
  .step-error { color: #c0392b; font-size: 0.85rem; margin-left: 1.25rem; white-space: pre-wrap; }
  .step-line { display: flex; justify-content: space-between; padding: 0.1rem 0; }
</style>
</head>
<body>
  <h1>Test Execution Report</h1>
  <div class="executed-at">{{ formatTime .ExecutedAt }} &middot; {{ formatDuration .TotalDuration }}</div>

  <div class="summary">
    <div class="card">{{ .TotalScenarios }} scenario(s) &mdash; {{ .PassedCount }} passed, {{ .FailedCount }} failed</div>
    <div class="card">{{ .TotalSteps }} step(s)</div>
  </div>

  {{ range .Sections }}
  <div class="section-title {{ .CSSClass }}">{{ .Label }} ({{ .Count }}, {{ formatDuration .Duration }})</div>
  {{ range .TagGroups }}
    <div class="tag-group">{{ .TagLabel }} &mdash; {{ .Count }}</div>
    {{ range .Scenarios }}
    <div class="scenario {{ statusClass .Status }}">
      <div class="scenario-name">{{ statusSymbol .Status }} {{ .Name }} <small>({{ formatDuration .Duration }})</small></div>
      {{ range .Steps }}
      <div class="step-line">{{ stepText . }}<span>{{ statusSymbol .Status }}</span></div>
      {{ if .Error }}<div class="step-error">{{ .Error }}</div>{{ end }}
      {{ end }}
    </div>
    {{ end }}
  {{ end }}
  {{ end }}
</body>
</html>
`
