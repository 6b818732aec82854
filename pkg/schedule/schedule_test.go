package schedule_test

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/gherkindog/gherkindog/pkg/convert"
	"github.com/gherkindog/gherkindog/pkg/cuke"
	"github.com/gherkindog/gherkindog/pkg/event"
	"github.com/gherkindog/gherkindog/pkg/glue"
	"github.com/gherkindog/gherkindog/pkg/result"
	"github.com/gherkindog/gherkindog/pkg/schedule"
	"github.com/gherkindog/gherkindog/pkg/scenario"
)

func anchored(p string) *regexp.Regexp { return regexp.MustCompile("^" + p + "$") }

func passingRunner(t *testing.T) *scenario.Runner {
	t.Helper()
	steps := []glue.StaticStepDescriptor{
		{Name: "a", Keyword: cuke.Given, Expression: anchored("a"), Handler: func() {}},
	}
	g := glue.Build(steps, nil)
	return scenario.New(g, convert.NewRegistry(), false)
}

func cukeNamed(uri, name string) *cuke.Cuke {
	return &cuke.Cuke{
		URI:  uri,
		Name: name,
		Steps: []cuke.CukeStep{
			{Keyword: cuke.Given, Text: "a"},
		},
	}
}

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) OnEvent(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestRun_Sequential_ExitCodeZeroOnAllPassing(t *testing.T) {
	rec := &recorder{}
	cukes := []*cuke.Cuke{cukeNamed("a.feature", "A"), cukeNamed("b.feature", "B")}

	code := schedule.Run(passingRunner(t), cukes, schedule.Config{
		Mode:      schedule.Sequential,
		Listeners: []event.Listener{rec},
	})

	require.Equal(t, 0, code)
	require.Equal(t, event.RunStarted, rec.events[0].Kind)
	require.Equal(t, event.RunFinished, rec.events[len(rec.events)-1].Kind)
}

func TestRun_ParallelFeatures_PreservesPerFeatureOrder(t *testing.T) {
	rec := &recorder{}
	cukes := []*cuke.Cuke{
		cukeNamed("f1.feature", "F1-A"),
		cukeNamed("f1.feature", "F1-B"),
		cukeNamed("f2.feature", "F2-A"),
		cukeNamed("f2.feature", "F2-B"),
	}

	code := schedule.Run(passingRunner(t), cukes, schedule.Config{
		Mode:      schedule.ParallelFeatures,
		Workers:   2,
		Listeners: []event.Listener{rec},
	})
	require.Equal(t, 0, code)

	var f1Order, f2Order []string
	for _, e := range rec.events {
		if e.Kind != event.CaseStarted {
			continue
		}
		switch e.Case.URI {
		case "f1.feature":
			f1Order = append(f1Order, e.Case.Name)
		case "f2.feature":
			f2Order = append(f2Order, e.Case.Name)
		}
	}
	require.Equal(t, []string{"F1-A", "F1-B"}, f1Order)
	require.Equal(t, []string{"F2-A", "F2-B"}, f2Order)
}

func TestRun_ParallelScenarios_RunsEveryCuke(t *testing.T) {
	rec := &recorder{}
	cukes := make([]*cuke.Cuke, 0, 20)
	for i := 0; i < 20; i++ {
		cukes = append(cukes, cukeNamed("f.feature", "S"))
	}

	code := schedule.Run(passingRunner(t), cukes, schedule.Config{
		Mode:      schedule.ParallelScenarios,
		Workers:   4,
		Listeners: []event.Listener{rec},
	})
	require.Equal(t, 0, code)

	var started, finished int
	for _, e := range rec.events {
		if e.Kind == event.CaseStarted {
			started++
		}
		if e.Kind == event.CaseFinished {
			finished++
		}
	}
	require.Equal(t, 20, started)
	require.Equal(t, 20, finished)
}

type eventKindMatcher event.Kind

func (m eventKindMatcher) Matches(x any) bool {
	e, ok := x.(event.Event)
	return ok && e.Kind == event.Kind(m)
}

func (m eventKindMatcher) String() string {
	return fmt.Sprintf("has kind %d", event.Kind(m))
}

func TestRun_NotifiesEveryRegisteredListenerExactlyOnceForRunBrackets(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockListener := NewMockListener(ctrl)
	mockListener.EXPECT().OnEvent(gomock.All(
		gomock.Not(eventKindMatcher(event.RunStarted)),
		gomock.Not(eventKindMatcher(event.RunFinished)),
	)).AnyTimes()
	mockListener.EXPECT().OnEvent(eventKindMatcher(event.RunStarted)).Times(1)
	mockListener.EXPECT().OnEvent(eventKindMatcher(event.RunFinished)).Times(1)

	cukes := []*cuke.Cuke{cukeNamed("a.feature", "A")}
	code := schedule.Run(passingRunner(t), cukes, schedule.Config{
		Mode:      schedule.Sequential,
		Listeners: []event.Listener{mockListener},
	})
	require.Equal(t, 0, code)
}

func TestRun_StrictModeFailsOnUndefined(t *testing.T) {
	steps := []glue.StaticStepDescriptor{}
	g := glue.Build(steps, nil)
	r := scenario.New(g, convert.NewRegistry(), false)
	cukes := []*cuke.Cuke{{Steps: []cuke.CukeStep{{Keyword: cuke.Given, Text: "nope"}}}}

	lenient := schedule.Run(r, cukes, schedule.Config{Mode: schedule.Sequential, Strict: false})
	require.Equal(t, 0, lenient)

	strict := schedule.Run(r, cukes, schedule.Config{Mode: schedule.Sequential, Strict: true})
	require.Equal(t, 1, strict)
}

func TestRun_PublishesSourceReadPerDocument(t *testing.T) {
	rec := &recorder{}
	sourceCukes := []*cuke.Cuke{cukeNamed("a.feature", "A")}

	code := schedule.Run(passingRunner(t), sourceCukes, schedule.Config{
		Mode:      schedule.Sequential,
		Listeners: []event.Listener{rec},
		Sources: []schedule.SourceDocument{
			{URI: "a.feature", Source: "Feature: A\n", Cukes: sourceCukes},
		},
	})
	require.Equal(t, 0, code)

	var sourceReads []event.Event
	for _, e := range rec.events {
		if e.Kind == event.SourceRead {
			sourceReads = append(sourceReads, e)
		}
	}
	require.Len(t, sourceReads, 1)
	require.Equal(t, "a.feature", sourceReads[0].URI)
	require.Equal(t, "Feature: A\n", sourceReads[0].Source)
	require.Equal(t, sourceCukes, sourceReads[0].Cukes)

	require.Equal(t, event.RunStarted, rec.events[0].Kind, "SourceRead must follow RunStarted")
	require.Equal(t, event.SourceRead, rec.events[1].Kind)
}

func TestRun_ParseFailureIsPublishedAsOneFailedCase(t *testing.T) {
	rec := &recorder{}
	cukes := []*cuke.Cuke{cukeNamed("ok.feature", "OK")}

	code := schedule.Run(passingRunner(t), cukes, schedule.Config{
		Mode:      schedule.Sequential,
		Listeners: []event.Listener{rec},
		ParseFailures: []schedule.ParseFailure{
			{URI: "broken.feature", Err: errors.New("unexpected token")},
		},
	})
	require.Equal(t, 1, code, "a parse failure must fail the run")

	var caseURIs []string
	var failedCount int
	for _, e := range rec.events {
		switch e.Kind {
		case event.CaseStarted, event.CaseFinished:
			caseURIs = append(caseURIs, e.Case.URI)
		}
		if e.Kind == event.CaseFinished && e.Case.URI == "broken.feature" {
			failedCount++
			require.Equal(t, result.Failed, e.Result.Status)
			require.ErrorContains(t, e.Result.Err, "unexpected token")
		}
	}
	require.Equal(t, 1, failedCount)
	require.Contains(t, caseURIs, "ok.feature", "other feature files still run")
}
