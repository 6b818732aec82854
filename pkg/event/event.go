// Package event defines the lifecycle events the engine publishes and the
// Listener contract consumers implement (spec §3, §6).
package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/gherkindog/gherkindog/pkg/cuke"
	"github.com/gherkindog/gherkindog/pkg/result"
)

// Kind discriminates an Event's variant.
type Kind int

const (
	RunStarted Kind = iota
	SourceRead
	CaseStarted
	StepStarted
	StepFinished
	CaseFinished
	RunFinished
	Write
	Embed
)

// TestStep carries the metadata of TestStepStarted/Finished: keyword,
// text, and the definition's CodeLocation when the step resolved to a
// match. The matched arguments are not carried.
type TestStep struct {
	Keyword  cuke.Keyword
	Text     string
	Location *cuke.Location // nil when the step was Undefined/Ambiguous
}

// Event is a tagged union; only the fields relevant to Kind are set.
type Event struct {
	Kind Kind
	Time time.Time

	// RunStarted / RunFinished
	RunID    uuid.UUID
	NumCukes int

	// SourceRead
	URI    string
	Source string
	Cukes  []*cuke.Cuke

	// CaseStarted / CaseFinished
	Case *cuke.Cuke

	// StepStarted / StepFinished
	Step   TestStep
	Result result.Result

	// Write
	Text string

	// Embed
	Data []byte
	MIME string
}

// Listener consumes the event stream. Implementations registered with a
// ConcurrentBus (pkg/bus) must be safe to call from any worker goroutine;
// implementations registered with a SequentialBus need not be.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }
