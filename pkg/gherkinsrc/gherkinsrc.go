// Package gherkinsrc is the parser/cuke-compiler collaborator spec §6
// assigns the engine: feature file discovery, Gherkin parsing, and
// flattening of Background/Rule/Scenario Outline+Examples into the
// executable cuke.Cuke values the engine consumes (spec §3).
//
// Grounded on pkg/gherkin_parser/parser.go for discovery and parsing
// (SearchFeatureFilesIn, ParseGherkinFile) and on pkg/executor/
// executor.go's Execute/executeRule/executeScenarioWithBackground for
// the Background/Rule composition order — extended here with the
// Scenario Outline + Examples flattening (a "cuke compiler" concept,
// see original_source/core/lib/src/gherkin/cuke.rs) the teacher's
// executor never implemented because it walked the AST directly.
package gherkinsrc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gherkin "github.com/cucumber/gherkin/go/v26"
	messages "github.com/cucumber/messages/go/v21"

	"github.com/gherkindog/gherkindog/pkg/cuke"
)

const featureExtension = ".feature"

// Discover walks each directory in dirs and returns the paths of every
// regular file ending in .feature. Symbolic links are followed (spec §6
// "Feature file discovery"), unlike filepath.Walk's default Lstat-based
// traversal.
func Discover(dirs []string) ([]string, error) {
	var files []string
	for _, dir := range dirs {
		if err := walk(dir, &files); err != nil {
			return nil, fmt.Errorf("walking %s: %w", dir, err)
		}
	}
	return files, nil
}

func walk(path string, files *[]string) error {
	info, err := os.Stat(path) // Stat follows symlinks, unlike Lstat.
	if err != nil {
		return err
	}

	if !info.IsDir() {
		if strings.HasSuffix(info.Name(), featureExtension) {
			*files = append(*files, path)
		}
		return nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := walk(filepath.Join(path, entry.Name()), files); err != nil {
			return err
		}
	}
	return nil
}

// ParseFile reads and parses one feature file into its Gherkin AST.
func ParseFile(path string) (*messages.GherkinDocument, error) {
	_, doc, err := readAndParse(path)
	return doc, err
}

// readAndParse is ParseFile plus the raw source text, needed by Load to
// populate SourceDocument.Source (spec §6's TestSourceRead "source"
// field) without reading every file twice.
func readAndParse(path string) (string, *messages.GherkinDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", path, err)
	}

	id := (&messages.Incrementing{}).NewId
	doc, err := gherkin.ParseGherkinDocument(bytes.NewReader(data), id)
	if err != nil {
		return "", nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return string(data), doc, nil
}

// SourceDocument records one successfully parsed feature file: its URI,
// raw source text, and the cukes compiled from it. Load's caller
// publishes one SourceRead event per SourceDocument (spec §6).
type SourceDocument struct {
	URI    string
	Source string
	Cukes  []*cuke.Cuke
}

// LoadResult is the outcome of loading every feature file under a set of
// root directories.
type LoadResult struct {
	Cukes   []*cuke.Cuke
	Sources []SourceDocument
	Errors  map[string]error // uri -> parse error; that file contributes no cukes
}

// Load discovers and compiles every feature file under dirs. A parse
// error is fatal only to its own file (spec §6/§7 "ParserError": the
// caller is expected to synthesize a failed case from each entry in
// Errors and publish it through the event stream); other files still
// load. A directory-walk failure is returned directly, since that is an
// IoError fatal to the whole run (spec §7).
func Load(dirs []string) (LoadResult, error) {
	paths, err := Discover(dirs)
	if err != nil {
		return LoadResult{}, err
	}

	result := LoadResult{Errors: make(map[string]error)}
	for _, path := range paths {
		source, doc, err := readAndParse(path)
		if err != nil {
			result.Errors[path] = err
			continue
		}
		cukes := Compile(doc, path)
		result.Cukes = append(result.Cukes, cukes...)
		result.Sources = append(result.Sources, SourceDocument{URI: path, Source: source, Cukes: cukes})
	}
	return result, nil
}

// Compile flattens a parsed feature into its executable cukes: each
// Background composes ahead of the scenarios that follow it (feature
// background, then rule background within a Rule), and each Scenario
// Outline's Examples tables expand into one cuke per row.
func Compile(doc *messages.GherkinDocument, uri string) []*cuke.Cuke {
	if doc == nil || doc.Feature == nil {
		return nil
	}
	feature := doc.Feature
	featureTags := tagNames(feature.Tags)

	var featureBackground *messages.Background
	var cukes []*cuke.Cuke

	for _, child := range feature.Children {
		switch {
		case child.Background != nil:
			featureBackground = child.Background
		case child.Rule != nil:
			cukes = append(cukes, compileRule(child.Rule, featureBackground, feature.Name, featureTags, uri)...)
		case child.Scenario != nil:
			cukes = append(cukes, compileScenario(child.Scenario, featureBackground, nil, feature.Name, "", featureTags, uri)...)
		}
	}
	return cukes
}

func compileRule(rule *messages.Rule, featureBackground *messages.Background, featureName string, featureTags []string, uri string) []*cuke.Cuke {
	var ruleBackground *messages.Background
	allTags := append(append([]string{}, featureTags...), tagNames(rule.Tags)...)

	var cukes []*cuke.Cuke
	for _, child := range rule.Children {
		switch {
		case child.Background != nil:
			ruleBackground = child.Background
		case child.Scenario != nil:
			cukes = append(cukes, compileScenario(child.Scenario, featureBackground, ruleBackground, featureName, rule.Name, allTags, uri)...)
		}
	}
	return cukes
}

func compileScenario(sc *messages.Scenario, featureBackground, ruleBackground *messages.Background, featureName, ruleName string, inheritedTags []string, uri string) []*cuke.Cuke {
	var backgroundSteps []cuke.CukeStep
	if featureBackground != nil {
		backgroundSteps = append(backgroundSteps, compileSteps(featureBackground.Steps, uri)...)
	}
	if ruleBackground != nil {
		backgroundSteps = append(backgroundSteps, compileSteps(ruleBackground.Steps, uri)...)
	}

	scenarioTags := append(append([]string{}, inheritedTags...), tagNames(sc.Tags)...)
	ownSteps := compileSteps(sc.Steps, uri)

	if len(sc.Examples) == 0 {
		steps := append(append([]cuke.CukeStep{}, backgroundSteps...), ownSteps...)
		return []*cuke.Cuke{{
			URI: uri, FeatureName: featureName, RuleName: ruleName,
			Name: sc.Name, Description: sc.Description, Tags: scenarioTags, Steps: steps,
		}}
	}

	var out []*cuke.Cuke
	for _, ex := range sc.Examples {
		if ex.TableHeader == nil {
			continue
		}
		headers := cellValues(ex.TableHeader)
		exTags := append(append([]string{}, scenarioTags...), tagNames(ex.Tags)...)

		for i, row := range ex.TableBody {
			values := cellValues(row)
			steps := append(append([]cuke.CukeStep{}, backgroundSteps...), substituteSteps(ownSteps, headers, values)...)
			name := fmt.Sprintf("%s -- %s (#%d)", substitute(sc.Name, headers, values), ex.Name, i+1)

			out = append(out, &cuke.Cuke{
				URI: uri, FeatureName: featureName, RuleName: ruleName,
				Name: name, Description: sc.Description, Tags: exTags, Steps: steps,
			})
		}
	}
	return out
}

func compileSteps(steps []*messages.Step, uri string) []cuke.CukeStep {
	out := make([]cuke.CukeStep, 0, len(steps))
	last := cuke.Given
	for _, s := range steps {
		kw := mapKeyword(s.Keyword, last)
		last = kw
		out = append(out, cuke.CukeStep{
			Keyword:  kw,
			Text:     s.Text,
			Argument: stepArgument(s),
			Location: cuke.Location{File: uri, Line: int(lineOf(s.Location))},
		})
	}
	return out
}

// mapKeyword resolves a step's effective keyword from its raw Gherkin
// keyword text (e.g. "Given ", "And "). "And"/"But"/"*" inherit the
// previous step's concrete keyword within the same Background or
// Scenario block.
func mapKeyword(rawKeyword string, last cuke.Keyword) cuke.Keyword {
	switch strings.TrimSpace(rawKeyword) {
	case "Given":
		return cuke.Given
	case "When":
		return cuke.When
	case "Then":
		return cuke.Then
	default: // And, But, * — inherit the previous concrete keyword
		return last
	}
}

func stepArgument(s *messages.Step) *cuke.Argument {
	switch {
	case s.DocString != nil:
		return &cuke.Argument{DocString: &cuke.DocString{Content: s.DocString.Content, ContentType: s.DocString.MediaType}}
	case s.DataTable != nil:
		return &cuke.Argument{DataTable: toDataTable(s.DataTable)}
	default:
		return nil
	}
}

func toDataTable(dt *messages.DataTable) *cuke.DataTable {
	rows := make([]cuke.Row, len(dt.Rows))
	for i, r := range dt.Rows {
		rows[i] = cuke.Row{Cells: cellValues(r)}
	}
	return &cuke.DataTable{Rows: rows}
}

func substituteSteps(steps []cuke.CukeStep, headers, values []string) []cuke.CukeStep {
	out := make([]cuke.CukeStep, len(steps))
	for i, s := range steps {
		s.Text = substitute(s.Text, headers, values)
		if s.Argument != nil {
			switch {
			case s.Argument.DocString != nil:
				ds := *s.Argument.DocString
				ds.Content = substitute(ds.Content, headers, values)
				s.Argument = &cuke.Argument{DocString: &ds}
			case s.Argument.DataTable != nil:
				dt := substituteDataTable(*s.Argument.DataTable, headers, values)
				s.Argument = &cuke.Argument{DataTable: &dt}
			}
		}
		out[i] = s
	}
	return out
}

func substituteDataTable(dt cuke.DataTable, headers, values []string) cuke.DataTable {
	rows := make([]cuke.Row, len(dt.Rows))
	for i, row := range dt.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = substitute(cell, headers, values)
		}
		rows[i] = cuke.Row{Cells: cells}
	}
	return cuke.DataTable{Rows: rows}
}

func substitute(text string, headers, values []string) string {
	for i, h := range headers {
		if i >= len(values) {
			break
		}
		text = strings.ReplaceAll(text, "<"+h+">", values[i])
	}
	return text
}

func cellValues(row *messages.TableRow) []string {
	if row == nil {
		return nil
	}
	out := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		out[i] = c.Value
	}
	return out
}

func tagNames(tags []*messages.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Name
	}
	return out
}

func lineOf(loc *messages.Location) int64 {
	if loc == nil {
		return 0
	}
	return loc.Line
}
