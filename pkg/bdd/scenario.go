package bdd

import (
	"context"
	"log/slog"

	"github.com/gherkindog/gherkindog/pkg/state"
)

// Logger is the structured-logging interface step handlers log through.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Emitter is how Scenario publishes Write/Embed events onto the engine's
// event bus without pkg/bdd depending on pkg/event. pkg/scenario supplies
// the implementation.
type Emitter interface {
	Write(text string)
	Embed(data []byte, mime string)
}

type noopEmitter struct{}

func (noopEmitter) Write(string)         {}
func (noopEmitter) Embed([]byte, string) {}

// Scenario is the handle passed to step and hook handlers: assertions,
// logging, attachments, and scenario-scoped state. One Scenario exists
// per running scenario and must not be retained past it (spec §4.3).
type Scenario struct {
	Assert Assert
	Logger Logger

	ctx     context.Context
	store   *state.Store
	emitter Emitter
}

// New constructs a Scenario. A nil logger defaults to slog's default
// handler; a nil emitter discards Write/Embed calls (used by tests that
// exercise handlers directly, outside a running scenario).
func New(ctx context.Context, logger Logger, store *state.Store, emitter Emitter) *Scenario {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if emitter == nil {
		emitter = noopEmitter{}
	}
	if store == nil {
		store = &state.Store{}
	}
	return &Scenario{Logger: logger, ctx: ctx, store: store, emitter: emitter}
}

// Context returns the underlying context.Context, for library calls that
// need one (HTTP clients, database drivers, and the like).
func (s *Scenario) Context() context.Context {
	return s.ctx
}

// WithContext replaces the underlying context.Context, e.g. to attach a
// deadline or a value for the rest of the scenario.
func (s *Scenario) WithContext(ctx context.Context) {
	s.ctx = ctx
}

// Write publishes a free-text Write event on the scenario's event bus.
// The event does not name the step it came from, and the built-in
// console and HTML reporters do not display it.
func (s *Scenario) Write(text string) {
	s.emitter.Write(text)
}

// Embed publishes binary data (a screenshot, a response body) as an
// Embed event on the scenario's event bus. The event does not name the
// step it came from, and the built-in console and HTML reporters do not
// display it.
func (s *Scenario) Embed(data []byte, mime string) {
	s.emitter.Embed(data, mime)
}

// Store exposes the underlying scenario-scoped state store for
// reflection-based binding (pkg/scenario's handler-argument injector).
// Handler code should use the State helper instead.
func (s *Scenario) Store() *state.Store {
	return s.store
}

// State returns the scenario-scoped value of type T, constructing it
// with init on first access (spec §4.3 "State<T>"). Subsequent calls
// within the same scenario return the same instance.
func State[T any](s *Scenario, init func() T) T {
	return state.Get(s.store, init)
}
