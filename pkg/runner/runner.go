// Package runner wires together every collaborator spec §2 lists —
// glue registry, argument-conversion registry, scenario runner, and
// scheduler — behind the fluent builder API the teacher's
// CucumberRunner exposed.
//
// Grounded on pkg/runner/runner.go's With*/RegisterStep chain (the
// teacher repo, prior to this package's rewrite — see git history of
// this directory for the original stub) for the builder shape, and on
// pkg/gherkinsrc, pkg/glue, pkg/convert, pkg/scenario, and pkg/schedule
// for everything the stub never actually implemented.
package runner

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/gherkindog/gherkindog/pkg/convert"
	"github.com/gherkindog/gherkindog/pkg/cuke"
	"github.com/gherkindog/gherkindog/pkg/event"
	"github.com/gherkindog/gherkindog/pkg/gherkinsrc"
	"github.com/gherkindog/gherkindog/pkg/glue"
	"github.com/gherkindog/gherkindog/pkg/schedule"
	"github.com/gherkindog/gherkindog/pkg/scenario"
)

// CucumberRunner accumulates step/hook/custom-type registrations and
// feature directories, then drives a full run on RunWithTags.
type CucumberRunner struct {
	featureDirectories []string
	steps              []glue.StaticStepDescriptor
	hooks              []glue.StaticHookDescriptor
	registry           *convert.Registry
	stateFactories     map[any]glue.StateFactory

	mode      schedule.Mode
	workers   int
	strict    bool
	dryRun    bool
	failFast  bool
	listeners []event.Listener
}

// NewCucumberRunner returns an empty builder.
func NewCucumberRunner() *CucumberRunner {
	return &CucumberRunner{
		registry:       convert.NewRegistry(),
		stateFactories: make(map[any]glue.StateFactory),
		mode:           schedule.Sequential,
	}
}

// WithFeaturesDirectories sets the root directories scanned for
// .feature files (spec §6 "Feature file discovery").
func (c *CucumberRunner) WithFeaturesDirectories(directories ...string) *CucumberRunner {
	c.featureDirectories = directories
	return c
}

// WithMode selects the execution strategy (spec §4.7).
func (c *CucumberRunner) WithMode(mode schedule.Mode) *CucumberRunner {
	c.mode = mode
	return c
}

// WithWorkers bounds the worker-pool size for the parallel modes.
// Zero means runtime.NumCPU() (pkg/schedule's default).
func (c *CucumberRunner) WithWorkers(n int) *CucumberRunner {
	c.workers = n
	return c
}

// WithStrict makes Skipped/Pending/Undefined terminal results fail the
// run's exit code (spec §4.8).
func (c *CucumberRunner) WithStrict(strict bool) *CucumberRunner {
	c.strict = strict
	return c
}

// WithDryRun reports every step as Skipped without invoking its step
// handler (spec §4.5 "dry run"). Hooks are still invoked in a dry run
// and report their own outcome.
func (c *CucumberRunner) WithDryRun(dryRun bool) *CucumberRunner {
	c.dryRun = dryRun
	return c
}

// WithFailFast stops a Sequential run after the first cuke reaches
// Failed severity. Has no effect under the parallel modes, which
// dispatch work before a failure can be observed.
func (c *CucumberRunner) WithFailFast(failFast bool) *CucumberRunner {
	c.failFast = failFast
	return c
}

// WithListeners registers additional event.Listener implementations
// alongside the engine's built-in exit-status and summary trackers
// (spec §4.8 "always registered first").
func (c *CucumberRunner) WithListeners(listeners ...event.Listener) *CucumberRunner {
	c.listeners = append(c.listeners, listeners...)
	return c
}

// RegisterStep registers a step definition matching any keyword
// (Given/When/Then/And/But), mirroring the teacher's single
// keyword-agnostic RegisterStep entry point. Use RegisterStepWithKeyword
// to pin a definition to one concrete keyword.
func (c *CucumberRunner) RegisterStep(pattern string, handler any) *CucumberRunner {
	return c.RegisterStepWithKeyword(cuke.Star, pattern, handler)
}

// RegisterStepWithKeyword registers a step definition scoped to one
// keyword. pattern is anchored to the full step text if the caller
// didn't already anchor it (spec §3 "Expression must match the full
// step text").
func (c *CucumberRunner) RegisterStepWithKeyword(keyword cuke.Keyword, pattern string, handler any) *CucumberRunner {
	c.steps = append(c.steps, glue.StaticStepDescriptor{
		Name:       pattern,
		Keyword:    keyword,
		Expression: anchor(pattern),
		Handler:    handler,
	})
	return c
}

func anchor(pattern string) *regexp.Regexp {
	pattern = strings.TrimPrefix(pattern, "^")
	pattern = strings.TrimSuffix(pattern, "$")
	return regexp.MustCompile("^(?:" + pattern + ")$")
}

// RegisterHook registers a lifecycle hook (spec §4.4). tagExpr filters
// which scenarios the hook applies to; an empty string matches every
// scenario. order breaks ties among hooks of the same type, lowest
// first.
func (c *CucumberRunner) RegisterHook(name string, hookType glue.HookType, order int, tagExpr string, handler any) *CucumberRunner {
	c.hooks = append(c.hooks, glue.StaticHookDescriptor{
		Name:    name,
		Type:    hookType,
		Order:   order,
		TagExpr: tagExpr,
		Handler: handler,
	})
	return c
}

// RegisterCustomType registers a named parameter type with a
// case-insensitive vocabulary (spec §6 "Argument conversion contract"),
// for use as a handler parameter type.
func (c *CucumberRunner) RegisterCustomType(name string, underlying reflect.Kind, values map[string]string) *CucumberRunner {
	c.registry.RegisterCustomType(name, underlying, values)
	return c
}

// RegisterState registers a lazily-constructed scenario-scoped value of
// type T (spec §4.3 "State<T>"), injectable into step and hook handler
// parameters of exactly this type.
func RegisterState[T any](c *CucumberRunner, construct func() T) {
	c.stateFactories[reflect.TypeFor[T]()] = glue.StateFactory{Construct: construct}
}

// RunWithTags discovers every feature file, filters cukes by tags (an
// empty tags list runs everything), and executes them under the
// configured mode, returning the process exit code (spec §4.8).
func (c *CucumberRunner) RunWithTags(tags ...string) (int, error) {
	loaded, err := gherkinsrc.Load(c.featureDirectories)
	if err != nil {
		return 1, fmt.Errorf("discovering feature files: %w", err)
	}

	g := glue.Build(c.steps, c.hooks)
	for t, f := range c.stateFactories {
		g.RegisterStateFactory(t, f)
	}

	runner := scenario.New(g, c.registry, c.dryRun)

	cukes := filterByTags(loaded.Cukes, tags)
	code := schedule.Run(runner, cukes, schedule.Config{
		Mode:          c.mode,
		Strict:        c.strict,
		DryRun:        c.dryRun,
		FailFast:      c.failFast,
		Workers:       c.workers,
		Listeners:     c.listeners,
		Sources:       toSourceDocuments(loaded.Sources),
		ParseFailures: toParseFailures(loaded.Errors),
	})

	if len(loaded.Errors) > 0 {
		return code, fmt.Errorf("%d feature file(s) failed to parse: %w", len(loaded.Errors), firstError(loaded.Errors))
	}
	return code, nil
}

func toSourceDocuments(sources []gherkinsrc.SourceDocument) []schedule.SourceDocument {
	out := make([]schedule.SourceDocument, len(sources))
	for i, s := range sources {
		out[i] = schedule.SourceDocument{URI: s.URI, Source: s.Source, Cukes: s.Cukes}
	}
	return out
}

func toParseFailures(errs map[string]error) []schedule.ParseFailure {
	out := make([]schedule.ParseFailure, 0, len(errs))
	for uri, err := range errs {
		out = append(out, schedule.ParseFailure{URI: uri, Err: err})
	}
	return out
}

func firstError(errs map[string]error) error {
	for _, err := range errs {
		return err
	}
	return nil
}

func filterByTags(cukes []*cuke.Cuke, tags []string) []*cuke.Cuke {
	if len(tags) == 0 {
		return cukes
	}
	var out []*cuke.Cuke
	for _, c := range cukes {
		if includeTags(c.Tags, tags) {
			out = append(out, c)
		}
	}
	return out
}

// includeTags reports whether any of wanted is present (without its
// leading "@") among tags.
func includeTags(tags []string, wanted []string) bool {
	for _, w := range wanted {
		for _, t := range tags {
			if strings.TrimPrefix(t, "@") == strings.TrimPrefix(w, "@") {
				return true
			}
		}
	}
	return false
}
