// Command gherkindog runs Gherkin feature files against the step
// definitions registered in steps.go, the way a generated main() would
// sit atop pkg/runner's fluent builder.
//
// Grounded on internal/app/application.go's flag-driven entry point and
// log.Fatal-on-error style; wires internal/config, pkg/runner and
// pkg/reporting together for a working binary.
package main

import (
	"log"
	"os"

	"github.com/gherkindog/gherkindog/internal/config"
	"github.com/gherkindog/gherkindog/pkg/event"
	"github.com/gherkindog/gherkindog/pkg/reporting"
	"github.com/gherkindog/gherkindog/pkg/runner"
)

func main() {
	var configPath string
	for i, a := range os.Args[1:] {
		if a == "-config" || a == "--config" {
			if i+2 <= len(os.Args[1:]) {
				configPath = os.Args[1:][i+1]
			}
		}
	}

	cfg, err := config.Load(os.Args[1:], configPath)
	if err != nil {
		log.Fatal(err)
	}

	listeners := []event.Listener{reporting.NewConsoleReporter(!cfg.NoColor)}

	var html *reporting.HTMLReporter
	if cfg.HTMLReportPath != "" {
		html = reporting.NewHTMLReporter()
		listeners = append(listeners, html)
	}

	r := runner.NewCucumberRunner().
		WithFeaturesDirectories(cfg.FeaturesDirectories...).
		WithMode(cfg.ScheduleMode()).
		WithWorkers(cfg.Workers).
		WithStrict(cfg.Strict).
		WithDryRun(cfg.DryRun).
		WithFailFast(cfg.FailFast).
		WithListeners(listeners...)

	registerSteps(r)

	code, err := r.RunWithTags(cfg.Tags...)
	if err != nil {
		log.Println(err)
	}

	if html != nil {
		if err := html.Write(cfg.HTMLReportPath); err != nil {
			log.Println(err)
		}
	}

	os.Exit(code)
}
