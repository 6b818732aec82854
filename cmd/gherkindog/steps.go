package main

import (
	"fmt"

	"github.com/gherkindog/gherkindog/pkg/glue"
	"github.com/gherkindog/gherkindog/pkg/runner"
)

// registerSteps wires the step/hook vocabulary exercised by
// testdata/features. A real consumer would register its own handlers
// here instead.
func registerSteps(r *runner.CucumberRunner) {
	var widgets int

	r.RegisterStep(`a widget`, func() { widgets++ })
	r.RegisterStep(`there (?:is|are) (\d+) widgets?`, func(want int) {
		if want != widgets {
			panic(fmt.Sprintf("expected %d widgets, got %d", want, widgets))
		}
	})
	r.RegisterStep(`text:`, func(doc string) {
		if doc == "" {
			panic("expected a non-empty docstring")
		}
	})

	r.RegisterHook("reset widgets", glue.BeforeScenario, 0, "", func() { widgets = 0 })
}
