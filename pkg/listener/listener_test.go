package listener_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gherkindog/gherkindog/pkg/event"
	"github.com/gherkindog/gherkindog/pkg/listener"
	"github.com/gherkindog/gherkindog/pkg/result"
)

func TestExitStatus_TracksMaxSeverity(t *testing.T) {
	l := listener.NewExitStatus()

	l.OnEvent(event.Event{Kind: event.StepFinished, Result: result.Pass(0)})
	require.Equal(t, result.Passed, l.MaxSeverity())

	l.OnEvent(event.Event{Kind: event.StepFinished, Result: result.Pend("todo")})
	require.Equal(t, result.Pending, l.MaxSeverity())

	l.OnEvent(event.Event{Kind: event.CaseFinished, Result: result.Fail(0, nil)})
	require.Equal(t, result.Failed, l.MaxSeverity())

	l.OnEvent(event.Event{Kind: event.StepFinished, Result: result.Pass(0)})
	require.Equal(t, result.Failed, l.MaxSeverity(), "severity must never decrease")
}

func TestExitStatus_ExitCode(t *testing.T) {
	l := listener.NewExitStatus()
	require.Equal(t, 0, l.ExitCode(false))

	l.OnEvent(event.Event{Kind: event.StepFinished, Result: result.UndefinedResult()})
	require.Equal(t, 0, l.ExitCode(false), "undefined is non-strict-passing")
	require.Equal(t, 1, l.ExitCode(true), "undefined fails under --strict")

	l.OnEvent(event.Event{Kind: event.StepFinished, Result: result.Fail(0, nil)})
	require.Equal(t, 1, l.ExitCode(false))
	require.Equal(t, 1, l.ExitCode(true))
}

func TestSummary_CountsByStatus(t *testing.T) {
	s := listener.NewSummary()

	s.OnEvent(event.Event{Kind: event.CaseFinished, Result: result.Pass(0)})
	s.OnEvent(event.Event{Kind: event.CaseFinished, Result: result.Fail(0, nil)})
	s.OnEvent(event.Event{Kind: event.StepFinished, Result: result.Pass(0)})
	s.OnEvent(event.Event{Kind: event.StepFinished, Result: result.Pass(0)})
	s.OnEvent(event.Event{Kind: event.StepFinished, Result: result.Skip("n/a")})

	snap := s.Snapshot()
	require.Equal(t, 2, snap.ScenariosTotal)
	require.Equal(t, 1, snap.ScenariosByStatus[result.Passed])
	require.Equal(t, 1, snap.ScenariosByStatus[result.Failed])
	require.Equal(t, 3, snap.StepsTotal)
	require.Equal(t, 2, snap.StepsByStatus[result.Passed])
	require.Equal(t, 1, snap.StepsByStatus[result.Skipped])
}

func TestSummarySnapshot_Render(t *testing.T) {
	s := listener.NewSummary()
	s.OnEvent(event.Event{Kind: event.CaseFinished, Result: result.Pass(0)})
	s.OnEvent(event.Event{Kind: event.StepFinished, Result: result.Pass(0)})

	out := s.Snapshot().Render()
	require.Contains(t, out, "1 scenario(s)")
	require.Contains(t, out, "1 step(s)")
	require.Contains(t, out, "passed")
}
