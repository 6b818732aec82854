// Package glue holds the immutable, process-lifetime registry of step
// handlers and lifecycle hooks (spec §3 "Glue", §4.1). It is built once,
// from descriptors emitted by a code-generation layer or, as in this
// repository, assembled by hand in the executable's startup path (see
// pkg/runner) — spec §9's "Global handler registry" design note.
package glue

import (
	"regexp"
	"sort"

	"github.com/gherkindog/gherkindog/pkg/cuke"
)

// HookType enumerates the four points in a scenario's lifecycle a hook
// can attach to.
type HookType int

const (
	BeforeScenario HookType = iota
	BeforeStep
	AfterStep
	AfterScenario
)

func (h HookType) String() string {
	switch h {
	case BeforeScenario:
		return "BeforeScenario"
	case BeforeStep:
		return "BeforeStep"
	case AfterStep:
		return "AfterStep"
	case AfterScenario:
		return "AfterScenario"
	default:
		return "Unknown"
	}
}

// StaticStepDescriptor is produced by a code-generation layer (or, here,
// built by hand) and consumed by the registry. Expression must already be
// anchored to the full step text (spec §3) — pkg/runner.RegisterStep
// wraps a raw pattern in ^(?:...)$ when the caller didn't. The invariant
// tying Expression's capture-group count to the handler's leading
// parameters is enforced at invocation time by pkg/scenario, not at
// registration time, since the descriptor carries no reflective
// parameter count of its own.
type StaticStepDescriptor struct {
	Name       string
	Keyword    cuke.Keyword
	Expression *regexp.Regexp
	Handler    any
	Location   cuke.Location
}

// StaticHookDescriptor is produced the same way as StaticStepDescriptor.
// Order defaults to 0; lower runs first; ties keep registration order.
// An empty TagExpr matches every scenario.
type StaticHookDescriptor struct {
	Name         string
	Type         HookType
	Order        int
	TagExpr      string
	Handler      any
	Location     cuke.Location
}

// StateFactory lazily constructs a scenario-scoped value the first time a
// handler asks for it (spec §4.3 "State<T>"). Registered once per type at
// startup, alongside the step/hook descriptors.
type StateFactory struct {
	Construct any // func() T, for some T
}

// Glue is the immutable bundle the engine consumes: one ordered sequence
// of step definitions, plus one ordered-and-filtered-by-type sequence per
// hook kind.
type Glue struct {
	steps         []StaticStepDescriptor
	hooksByType   [4][]StaticHookDescriptor
	stateFactories map[any]StateFactory // keyed by reflect.Type, see pkg/state
}

// Build freezes a Glue from the given descriptors (spec I5: "the glue
// registry is frozen before the first scenario starts"). Hooks are
// pre-sorted by Order ascending, stable on ties, per hook type.
func Build(steps []StaticStepDescriptor, hooks []StaticHookDescriptor) *Glue {
	g := &Glue{
		steps:          append([]StaticStepDescriptor(nil), steps...),
		stateFactories: make(map[any]StateFactory),
	}

	byType := make(map[HookType][]StaticHookDescriptor)
	for _, h := range hooks {
		byType[h.Type] = append(byType[h.Type], h)
	}
	for t, hs := range byType {
		sorted := make([]StaticHookDescriptor, len(hs))
		copy(sorted, hs)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Order < sorted[j].Order
		})
		g.hooksByType[t] = sorted
	}
	return g
}

// Steps returns the immutable ordered sequence of step definitions.
func (g *Glue) Steps() []StaticStepDescriptor {
	return g.steps
}

// Hooks returns the pre-sorted sequence of hooks of the given type.
func (g *Glue) Hooks(t HookType) []StaticHookDescriptor {
	return g.hooksByType[t]
}

// RegisterStateFactory attaches a lazily-invoked constructor for a
// scenario-scoped type, keyed by the caller-supplied key (typically a
// reflect.Type — see pkg/runner.RegisterState). Glue is conceptually frozen
// once the engine starts running scenarios; callers register factories
// during startup, before Build's result is handed to the scheduler.
func (g *Glue) RegisterStateFactory(key any, f StateFactory) {
	g.stateFactories[key] = f
}

// StateFactoryFor looks up a previously registered constructor.
func (g *Glue) StateFactoryFor(key any) (StateFactory, bool) {
	f, ok := g.stateFactories[key]
	return f, ok
}
