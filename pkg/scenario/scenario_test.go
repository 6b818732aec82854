package scenario_test

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gherkindog/gherkindog/pkg/bus"
	"github.com/gherkindog/gherkindog/pkg/convert"
	"github.com/gherkindog/gherkindog/pkg/cuke"
	"github.com/gherkindog/gherkindog/pkg/event"
	"github.com/gherkindog/gherkindog/pkg/glue"
	"github.com/gherkindog/gherkindog/pkg/result"
	"github.com/gherkindog/gherkindog/pkg/scenario"
)

func anchored(pattern string) *regexp.Regexp {
	return regexp.MustCompile("^" + pattern + "$")
}

type recorder struct {
	events []event.Event
}

func (r *recorder) OnEvent(e event.Event) { r.events = append(r.events, e) }

func (r *recorder) kinds() []event.Kind {
	out := make([]event.Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func runCuke(t *testing.T, steps []glue.StaticStepDescriptor, hooks []glue.StaticHookDescriptor, c *cuke.Cuke, dryRun bool) (result.Result, *recorder) {
	t.Helper()
	g := glue.Build(steps, hooks)
	r := scenario.New(g, convert.NewRegistry(), dryRun)
	rec := &recorder{}
	b := bus.New(false, nil, []event.Listener{rec})
	return r.Run(b, c), rec
}

// Scenario A — basic pass (spec §8).
func TestRun_BasicPass(t *testing.T) {
	steps := []glue.StaticStepDescriptor{
		{Name: "a", Keyword: cuke.Given, Expression: anchored("a")},
		{Name: "b", Keyword: cuke.When, Expression: anchored("b")},
		{Name: "c", Keyword: cuke.Then, Expression: anchored("c")},
	}
	for i := range steps {
		steps[i].Handler = func() {}
	}
	c := &cuke.Cuke{
		Name: "S",
		Steps: []cuke.CukeStep{
			{Keyword: cuke.Given, Text: "a"},
			{Keyword: cuke.When, Text: "b"},
			{Keyword: cuke.Then, Text: "c"},
		},
	}

	res, rec := runCuke(t, steps, nil, c, false)
	require.Equal(t, result.Passed, res.Status)

	var finished int
	for _, e := range rec.events {
		if e.Kind == event.StepFinished {
			require.Equal(t, result.Passed, e.Result.Status)
			finished++
		}
	}
	require.Equal(t, 3, finished)
	require.Equal(t, event.CaseStarted, rec.events[0].Kind)
	require.Equal(t, event.CaseFinished, rec.events[len(rec.events)-1].Kind)
}

// Scenario B — undefined step (spec §8).
func TestRun_UndefinedStepSkipsRest(t *testing.T) {
	steps := []glue.StaticStepDescriptor{
		{Name: "a", Keyword: cuke.Given, Expression: anchored("a"), Handler: func() {}},
		{Name: "c", Keyword: cuke.Then, Expression: anchored("c"), Handler: func() {}},
	}
	c := &cuke.Cuke{
		Steps: []cuke.CukeStep{
			{Keyword: cuke.Given, Text: "a"},
			{Keyword: cuke.When, Text: "q"},
			{Keyword: cuke.Then, Text: "c"},
		},
	}

	res, rec := runCuke(t, steps, nil, c, false)
	require.Equal(t, result.Undefined, res.Status)

	var statuses []result.Status
	var reasons []string
	for _, e := range rec.events {
		if e.Kind == event.StepFinished {
			statuses = append(statuses, e.Result.Status)
			reasons = append(reasons, e.Result.Reason)
		}
	}
	require.Equal(t, []result.Status{result.Passed, result.Undefined, result.Skipped}, statuses)
	require.Equal(t, "previous step failed", reasons[2])
}

// Scenario C — ambiguous step (spec §8).
func TestRun_AmbiguousStep(t *testing.T) {
	steps := []glue.StaticStepDescriptor{
		{Name: "foo-star", Keyword: cuke.Given, Expression: anchored("foo.*"), Handler: func() {}},
		{Name: "foo-digits", Keyword: cuke.Given, Expression: anchored(`foo\d+`), Handler: func() {}},
	}
	c := &cuke.Cuke{
		Steps: []cuke.CukeStep{{Keyword: cuke.Given, Text: "foo42"}},
	}

	res, rec := runCuke(t, steps, nil, c, false)
	require.Equal(t, result.Ambiguous, res.Status)

	for _, e := range rec.events {
		if e.Kind == event.StepFinished {
			require.Equal(t, result.Ambiguous, e.Result.Status)
			require.Len(t, e.Result.Candidates, 2)
		}
	}
}

// Scenario D — failing BeforeScenario hook (spec §8).
func TestRun_FailingBeforeScenarioHookSkipsSteps(t *testing.T) {
	ranAfter := false
	hooks := []glue.StaticHookDescriptor{
		{Name: "before-db", Type: glue.BeforeScenario, TagExpr: "@db", Handler: func() { panic("boom") }},
		{Name: "after-db", Type: glue.AfterScenario, TagExpr: "@db", Handler: func() { ranAfter = true }},
	}
	steps := []glue.StaticStepDescriptor{
		{Name: "a", Keyword: cuke.Given, Expression: anchored("a"), Handler: func() {}},
	}
	c := &cuke.Cuke{
		Tags:  []string{"@db"},
		Steps: []cuke.CukeStep{{Keyword: cuke.Given, Text: "a"}},
	}

	res, rec := runCuke(t, steps, hooks, c, false)
	require.Equal(t, result.Failed, res.Status)
	require.True(t, ranAfter, "AfterScenario hooks must still run")

	for _, e := range rec.events {
		if e.Kind == event.StepFinished {
			require.Equal(t, result.Skipped, e.Result.Status)
			require.Equal(t, "scenario hook failed", e.Result.Reason)
		}
	}
}

// Scenario F — docstring injection (spec §8).
func TestRun_DocStringInjection(t *testing.T) {
	var received string
	steps := []glue.StaticStepDescriptor{
		{
			Name:       "given-text",
			Keyword:    cuke.Given,
			Expression: anchored("given text:"),
			Handler:    func(doc string) { received = doc },
		},
	}
	c := &cuke.Cuke{
		Steps: []cuke.CukeStep{{
			Keyword:  cuke.Given,
			Text:     "given text:",
			Argument: &cuke.Argument{DocString: &cuke.DocString{Content: "hello"}},
		}},
	}

	res, _ := runCuke(t, steps, nil, c, false)
	require.Equal(t, result.Passed, res.Status)
	require.Equal(t, "hello", received)
}

func TestRun_DryRunSkipsEveryStep(t *testing.T) {
	invoked := false
	steps := []glue.StaticStepDescriptor{
		{Name: "a", Keyword: cuke.Given, Expression: anchored("a"), Handler: func() { invoked = true }},
	}
	c := &cuke.Cuke{Steps: []cuke.CukeStep{{Keyword: cuke.Given, Text: "a"}}}

	res, rec := runCuke(t, steps, nil, c, true)
	require.Equal(t, result.Skipped, res.Status)
	require.False(t, invoked)

	for _, e := range rec.events {
		if e.Kind == event.StepFinished {
			require.Equal(t, "dry run", e.Result.Reason)
		}
	}
}

func TestRun_ZeroStepsCukeIsPassed(t *testing.T) {
	c := &cuke.Cuke{}
	res, rec := runCuke(t, nil, nil, c, false)
	require.Equal(t, result.Passed, res.Status)
	require.Equal(t, []event.Kind{event.CaseStarted, event.CaseFinished}, rec.kinds())
}

func TestRun_HandlerErrorFailsStep(t *testing.T) {
	steps := []glue.StaticStepDescriptor{
		{Name: "a", Keyword: cuke.Given, Expression: anchored("a"), Handler: func() error { return errors.New("boom") }},
	}
	c := &cuke.Cuke{Steps: []cuke.CukeStep{{Keyword: cuke.Given, Text: "a"}}}

	res, _ := runCuke(t, steps, nil, c, false)
	require.Equal(t, result.Failed, res.Status)
	require.ErrorContains(t, res.Err, "boom")
}

func TestRun_HookOrderRunsLowestFirst(t *testing.T) {
	var order []string
	hooks := []glue.StaticHookDescriptor{
		{Name: "second", Type: glue.BeforeScenario, Order: 0, Handler: func() { order = append(order, "second") }},
		{Name: "first", Type: glue.BeforeScenario, Order: -1, Handler: func() { order = append(order, "first") }},
	}
	c := &cuke.Cuke{}
	_, _ = runCuke(t, nil, hooks, c, false)
	require.Equal(t, []string{"first", "second"}, order)
}
