// Package scenario implements the scenario runner state machine of spec
// §4.5: Init -> RunBefore -> Steps(0..n) -> RunAfter -> Done, publishing
// lifecycle events and computing the scenario's terminal TestResult.
//
// Grounded on pkg/executor/executor.go's traversal of Background/Rule/
// Scenario (Execute/executeRule/executeScenarioWithBackground) for the
// shape of "walk a cuke's steps in order" and on pkg/cacik/hooks.go's
// HookExecutor for before/after wrapping, retargeted from the teacher's
// single linear executor onto the state machine and event stream §4.5
// actually specifies.
package scenario

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/gherkindog/gherkindog/pkg/bdd"
	"github.com/gherkindog/gherkindog/pkg/bus"
	"github.com/gherkindog/gherkindog/pkg/convert"
	"github.com/gherkindog/gherkindog/pkg/cuke"
	"github.com/gherkindog/gherkindog/pkg/event"
	"github.com/gherkindog/gherkindog/pkg/glue"
	"github.com/gherkindog/gherkindog/pkg/resolver"
	"github.com/gherkindog/gherkindog/pkg/result"
	"github.com/gherkindog/gherkindog/pkg/state"
	"github.com/gherkindog/gherkindog/pkg/tagexpr"
)

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	ctxType     = reflect.TypeOf((*context.Context)(nil)).Elem()
	cukeType    = reflect.TypeOf(cuke.Cuke{})
	cukeStepType = reflect.TypeOf(cuke.CukeStep{})
)

// Runner executes cukes against a frozen Glue. One Runner may be shared
// by every worker: it holds no per-scenario mutable state (spec §5
// "glue registry is immutable after construction; readable without
// synchronization").
type Runner struct {
	glue     *glue.Glue
	resolver *resolver.Resolver
	registry *convert.Registry
	dryRun   bool

	hookFilters map[string]*tagexpr.Expression
}

// New builds a Runner. DryRun forces every matched step to
// Skipped("dry run") without invoking its step handler (spec §4.5).
// Hooks are still invoked in a dry run and report their own outcome.
func New(g *glue.Glue, registry *convert.Registry, dryRun bool) *Runner {
	r := &Runner{
		glue:        g,
		resolver:    resolver.New(g),
		registry:    registry,
		dryRun:      dryRun,
		hookFilters: make(map[string]*tagexpr.Expression),
	}
	for _, ht := range []glue.HookType{glue.BeforeScenario, glue.BeforeStep, glue.AfterStep, glue.AfterScenario} {
		for _, h := range g.Hooks(ht) {
			if _, ok := r.hookFilters[h.TagExpr]; !ok {
				r.hookFilters[h.TagExpr] = tagexpr.MustParse(h.TagExpr)
			}
		}
	}
	return r
}

// Run executes one cuke to completion, publishing TestCaseStarted,
// per-step TestStepStarted/TestStepFinished, and TestCaseFinished onto b,
// and returns the scenario's terminal result.
func (r *Runner) Run(b bus.Bus, c *cuke.Cuke) result.Result {
	store := &state.Store{}
	sc := bdd.New(context.Background(), nil, store, &busEmitter{bus: b})

	b.Send(event.Event{Kind: event.CaseStarted, Time: time.Now(), Case: c})

	var terminal result.Result

	beforeResults := r.runScenarioHooks(glue.BeforeScenario, c, sc, nil)
	terminal = result.MaxOf(append([]result.Result{terminal}, beforeResults...)...)

	// skipReason distinguishes why the remaining steps never execute
	// (spec §4.4): a failed BeforeScenario hook skips the whole scenario
	// with reason "scenario hook failed", while a failed earlier step
	// skips the rest with "previous step failed". Once set it only
	// widens in severity, never changes meaning mid-scenario.
	skipReason := ""
	if terminal.Status >= result.Pending {
		skipReason = "scenario hook failed"
	}

	for i := range c.Steps {
		stepResult := r.runStep(b, c, &c.Steps[i], sc, store, skipReason)
		terminal = result.Max(terminal, stepResult)
		if stepResult.Status >= result.Pending && skipReason == "" {
			skipReason = "previous step failed"
		}
	}

	var scenarioErr error
	if terminal.Status == result.Failed {
		scenarioErr = terminal.Err
	}
	afterResults := r.runScenarioHooks(glue.AfterScenario, c, sc, scenarioErr)
	terminal = result.MaxOf(append([]result.Result{terminal}, afterResults...)...)

	b.Send(event.Event{Kind: event.CaseFinished, Time: time.Now(), Case: c, Result: terminal})

	return terminal
}

// runStep executes steps 1-5 of spec §4.5's per-step algorithm.
func (r *Runner) runStep(b bus.Bus, c *cuke.Cuke, step *cuke.CukeStep, sc *bdd.Scenario, store *state.Store, priorSkipReason string) result.Result {
	match := r.resolver.Resolve(*step)

	b.Send(event.Event{
		Kind: event.StepStarted,
		Time: time.Now(),
		Step: toTestStep(match, *step),
	})

	beforeHookResults := r.runStepHooks(glue.BeforeStep, c, step, sc, store, nil)
	hookBlocked := false
	for _, hr := range beforeHookResults {
		if hr.Status >= result.Pending {
			hookBlocked = true
		}
	}

	var own result.Result
	switch {
	case match.Kind == resolver.NoneMatching:
		own = result.UndefinedResult()
	case match.Kind == resolver.AmbiguousMatch:
		own = result.AmbiguousResult(toCandidates(match.Candidates))
	case r.dryRun:
		own = result.Skip("dry run")
	case hookBlocked:
		own = result.Skip("before-step hook failed")
	case priorSkipReason != "":
		own = result.Skip(priorSkipReason)
	default:
		own = r.invokeStep(match, sc, store)
	}

	var stepErr error
	if own.Status == result.Failed {
		stepErr = own.Err
	}
	afterHookResults := r.runStepHooks(glue.AfterStep, c, step, sc, store, stepErr)

	b.Send(event.Event{
		Kind:   event.StepFinished,
		Time:   time.Now(),
		Step:   toTestStep(match, *step),
		Result: own,
	})

	all := append(append([]result.Result{own}, beforeHookResults...), afterHookResults...)
	return result.MaxOf(all...)
}

func (r *Runner) invokeStep(match resolver.StepMatch, sc *bdd.Scenario, store *state.Store) result.Result {
	d, err := r.call(match.Definition.Handler, sc, store, match.Arguments, nil)
	if err != nil {
		return result.Fail(d, err)
	}
	return result.Pass(d)
}

// runScenarioHooks runs applicable BeforeScenario/AfterScenario hooks in
// order, returning one result per hook.
func (r *Runner) runScenarioHooks(t glue.HookType, c *cuke.Cuke, sc *bdd.Scenario, injectErr error) []result.Result {
	var out []result.Result
	for _, h := range r.glue.Hooks(t) {
		if !r.hookFilters[h.TagExpr].Evaluate(c.Tags) {
			continue
		}
		d, err := r.callHook(h.Handler, sc, nil, *c, cuke.CukeStep{}, injectErr)
		if err != nil {
			out = append(out, result.Fail(d, err))
		} else {
			out = append(out, result.Pass(d))
		}
	}
	return out
}

// runStepHooks runs applicable BeforeStep/AfterStep hooks in order.
func (r *Runner) runStepHooks(t glue.HookType, c *cuke.Cuke, step *cuke.CukeStep, sc *bdd.Scenario, store *state.Store, injectErr error) []result.Result {
	var out []result.Result
	for _, h := range r.glue.Hooks(t) {
		if !r.hookFilters[h.TagExpr].Evaluate(c.Tags) {
			continue
		}
		d, err := r.callHook(h.Handler, sc, store, *c, *step, injectErr)
		if err != nil {
			out = append(out, result.Fail(d, err))
		} else {
			out = append(out, result.Pass(d))
		}
	}
	return out
}

func (r *Runner) callHook(handler any, sc *bdd.Scenario, store *state.Store, c cuke.Cuke, step cuke.CukeStep, injectErr error) (time.Duration, error) {
	if store == nil {
		store = sc.Store()
	}
	return r.call(handler, sc, store, nil, &hookContext{cuke: c, step: step, err: injectErr})
}

type hookContext struct {
	cuke cuke.Cuke
	step cuke.CukeStep
	err  error
}

// call invokes handler with a panic-safe wrapper, binding its parameters
// per spec §6: leading step arguments (consumed from args, in order),
// then scenario-scoped values (the *bdd.Scenario handle, a
// context.Context, a registered State<T>, the current cuke/step for
// diagnostics, or an injected terminating error for After hooks).
func (r *Runner) call(handler any, sc *bdd.Scenario, store *state.Store, args []resolver.StepArgument, hc *hookContext) (d time.Duration, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			d = time.Since(start)
			if ae, ok := rec.(*bdd.AssertionError); ok {
				err = ae
			} else {
				err = fmt.Errorf("panic in handler: %v", rec)
			}
		}
	}()

	fnValue := reflect.ValueOf(handler)
	fnType := fnValue.Type()

	callArgs, buildErr := r.buildCallArgs(fnType, sc, store, args, hc)
	if buildErr != nil {
		return time.Since(start), buildErr
	}

	results := fnValue.Call(callArgs)
	d = time.Since(start)

	for _, rv := range results {
		if rv.Type().Implements(errorType) && !rv.IsNil() {
			err = rv.Interface().(error)
		}
	}
	return d, err
}

func (r *Runner) buildCallArgs(fnType reflect.Type, sc *bdd.Scenario, store *state.Store, args []resolver.StepArgument, hc *hookContext) ([]reflect.Value, error) {
	numParams := fnType.NumIn()
	callArgs := make([]reflect.Value, 0, numParams)
	scenarioType := reflect.TypeOf(sc)
	argIdx := 0

	for i := 0; i < numParams; i++ {
		pt := fnType.In(i)

		switch {
		case pt == scenarioType:
			callArgs = append(callArgs, reflect.ValueOf(sc))
		case pt == ctxType:
			callArgs = append(callArgs, reflect.ValueOf(sc.Context()))
		case pt == errorType && hc != nil:
			if hc.err == nil {
				callArgs = append(callArgs, reflect.Zero(errorType))
			} else {
				callArgs = append(callArgs, reflect.ValueOf(hc.err))
			}
		case pt == cukeType && hc != nil:
			callArgs = append(callArgs, reflect.ValueOf(hc.cuke))
		case pt == cukeStepType && hc != nil:
			callArgs = append(callArgs, reflect.ValueOf(hc.step))
		default:
			if sf, ok := r.glue.StateFactoryFor(pt); ok {
				callArgs = append(callArgs, reflect.ValueOf(fetchState(store, pt, sf)))
				continue
			}
			if argIdx >= len(args) {
				return nil, fmt.Errorf("handler declares more parameters than the step provides arguments for (param %d, type %s)", i, pt)
			}
			v, err := r.registry.Argument(args[argIdx], pt)
			if err != nil {
				return nil, fmt.Errorf("converting argument %d: %w", argIdx, err)
			}
			argIdx++
			callArgs = append(callArgs, v)
		}
	}

	if argIdx != len(args) {
		return nil, fmt.Errorf("handler consumes %d of %d step arguments", argIdx, len(args))
	}
	return callArgs, nil
}

func fetchState(store *state.Store, t reflect.Type, sf glue.StateFactory) any {
	return store.GetUntyped(t, func() any {
		return reflect.ValueOf(sf.Construct).Call(nil)[0].Interface()
	})
}

func toTestStep(match resolver.StepMatch, step cuke.CukeStep) event.TestStep {
	ts := event.TestStep{Keyword: step.Keyword, Text: step.Text}
	if match.Kind == resolver.Matched {
		loc := match.Definition.Location
		ts.Location = &loc
	}
	return ts
}

func toCandidates(cs []resolver.Candidate) []result.Candidate {
	out := make([]result.Candidate, len(cs))
	for i, c := range cs {
		out[i] = result.Candidate{Name: c.Definition.Name, Location: c.Definition.Location.String()}
	}
	return out
}

// busEmitter adapts pkg/bus.Bus to bdd.Emitter so handlers can call
// Scenario.Write/Embed without pkg/bdd importing pkg/event or pkg/bus.
type busEmitter struct {
	bus bus.Bus
}

func (e *busEmitter) Write(text string) {
	e.bus.Send(event.Event{Kind: event.Write, Time: time.Now(), Text: text})
}

func (e *busEmitter) Embed(data []byte, mime string) {
	e.bus.Send(event.Event{Kind: event.Embed, Time: time.Now(), Data: data, MIME: mime})
}
