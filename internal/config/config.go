// Package config loads the engine's runtime configuration from an
// optional YAML file merged with CLI flags, CLI flags always winning —
// the same "last wins" merge rule as pkg/cacik's (now superseded)
// Config/MergeConfigs, with the flag set itself grounded on
// internal/app/application.go's flag.String/flag.Parse shape.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gherkindog/gherkindog/pkg/schedule"
)

// Config carries every knob spec §6 assigns to the CLI surface.
type Config struct {
	FeaturesDirectories []string `yaml:"features"`
	Tags                []string `yaml:"tags"`
	FailFast            bool     `yaml:"failFast"`
	Mode                string   `yaml:"mode"` // "sequential" | "parallel-features" | "parallel-scenarios"
	Workers             int      `yaml:"workers"`
	DryRun              bool     `yaml:"dryRun"`
	Strict              bool     `yaml:"strict"`
	NoColor             bool     `yaml:"noColor"`
	HTMLReportPath      string   `yaml:"htmlReport"`
}

const (
	featuresSeparator = ","
	tagsSeparator     = ","
)

// Load reads an optional YAML config file (empty path skips it), then
// parses args against flag definitions; every flag passed explicitly
// overrides what the file set (features and tags only when non-empty).
// args is normally os.Args[1:].
func Load(args []string, configPath string) (*Config, error) {
	fileCfg, err := loadFile(configPath)
	if err != nil {
		return nil, err
	}

	flagCfg, fs, err := parseFlags(args)
	if err != nil {
		return nil, err
	}

	merged := merge(fileCfg, flagCfg, fs)
	if len(merged.FeaturesDirectories) == 0 {
		dir, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving default features directory: %w", err)
		}
		merged.FeaturesDirectories = []string{dir}
	}
	return merged, nil
}

func loadFile(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &cfg, nil
}

// parseFlags returns the flag-derived config and the flag.FlagSet used
// to parse it, so merge can tell which flags were actually set by the
// caller (as opposed to left at their zero default).
func parseFlags(args []string) (*Config, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("gherkindog", flag.ContinueOnError)

	featuresFlag := fs.String("features", "", "directories to search for .feature files, comma-separated")
	tagsFlag := fs.String("tags", "", "tags selecting which scenarios run (a scenario runs if it has any of them), comma-separated")
	failFastFlag := fs.Bool("fail-fast", false, "stop remaining scenarios after the first failure (sequential mode only)")
	modeFlag := fs.String("mode", "", "execution mode: sequential, parallel-features, parallel-scenarios")
	workersFlag := fs.Int("workers", 0, "worker pool size for parallel modes (0 = number of CPUs)")
	dryRunFlag := fs.Bool("dry-run", false, "report every step as skipped without invoking step handlers (hooks still run)")
	strictFlag := fs.Bool("strict", false, "treat skipped/pending/undefined results as failures for the exit code")
	noColorFlag := fs.Bool("no-color", false, "disable ANSI colors in console output")
	htmlReportFlag := fs.String("html-report", "", "path to write a self-contained HTML report")
	fs.String("config", "", "path to an optional YAML config file (read before flag parsing, see Load's configPath argument)")

	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("parsing flags: %w", err)
	}

	cfg := &Config{
		FailFast:       *failFastFlag,
		Mode:           *modeFlag,
		Workers:        *workersFlag,
		DryRun:         *dryRunFlag,
		Strict:         *strictFlag,
		NoColor:        *noColorFlag,
		HTMLReportPath: *htmlReportFlag,
	}
	if strings.TrimSpace(*featuresFlag) != "" {
		cfg.FeaturesDirectories = splitNonEmpty(*featuresFlag, featuresSeparator)
	}
	if strings.TrimSpace(*tagsFlag) != "" {
		cfg.Tags = splitNonEmpty(*tagsFlag, tagsSeparator)
	}
	return cfg, fs, nil
}

// merge applies file as the base and flag values as overrides, but only
// for flags the caller actually passed (fs.Visit skips flags left at
// their default) — so a file-configured bool isn't clobbered back to
// false just because the flag wasn't mentioned on the command line.
func merge(file, flags *Config, fs *flag.FlagSet) *Config {
	result := *file

	if len(flags.FeaturesDirectories) > 0 {
		result.FeaturesDirectories = flags.FeaturesDirectories
	}
	if len(flags.Tags) > 0 {
		result.Tags = flags.Tags
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "fail-fast":
			result.FailFast = flags.FailFast
		case "mode":
			result.Mode = flags.Mode
		case "workers":
			result.Workers = flags.Workers
		case "dry-run":
			result.DryRun = flags.DryRun
		case "strict":
			result.Strict = flags.Strict
		case "no-color":
			result.NoColor = flags.NoColor
		case "html-report":
			result.HTMLReportPath = flags.HTMLReportPath
		}
	})

	return &result
}

func splitNonEmpty(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ScheduleMode translates the textual Mode into pkg/schedule's enum,
// defaulting to Sequential for an empty or unrecognized value.
func (c *Config) ScheduleMode() schedule.Mode {
	switch c.Mode {
	case "parallel-features":
		return schedule.ParallelFeatures
	case "parallel-scenarios":
		return schedule.ParallelScenarios
	default:
		return schedule.Sequential
	}
}
