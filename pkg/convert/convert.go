// Package convert implements the argument-conversion contract of spec
// §4.2/§9: turning a step definition's captured strings, and any trailing
// docstring/table argument, into the concrete reflect.Value a handler's
// parameters expect.
//
// Grounded on pkg/executor/executor.go's convertArg/convertPrimitive/
// convertCustomType and its time/date/timezone parsing helpers, lifted
// out of the single StepExecutor type into a standalone Registry keyed
// by type name so pkg/scenario can own invocation instead.
package convert

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gherkindog/gherkindog/pkg/cuke"
	"github.com/gherkindog/gherkindog/pkg/resolver"
)

var (
	timeLayouts = []string{
		"15:04:05.000",
		"15:04:05",
		"15:04",
		"3:04:05.000pm",
		"3:04:05.000PM",
		"3:04:05pm",
		"3:04:05PM",
		"3:04:05 pm",
		"3:04:05 PM",
		"3:04pm",
		"3:04PM",
		"3:04 pm",
		"3:04 PM",
	}

	dateLayouts = []string{
		"02/01/2006",
		"02-01-2006",
		"02.01.2006",
		"2/1/2006",
		"2-1-2006",
		"2.1.2006",
		"2006-01-02",
		"2006/01/02",
		"2 Jan 2006",
		"2 January 2006",
		"02 Jan 2006",
		"02 January 2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"Jan 02, 2006",
		"January 02, 2006",
	}

	tzOffsetRegex = regexp.MustCompile(`^([+-])(\d{2}):?(\d{2})$`)

	timeType     = reflect.TypeOf(time.Time{})
	locationType = reflect.TypeOf((*time.Location)(nil))
	docStringType = reflect.TypeOf(cuke.DocString{})
	docStringPtrType = reflect.TypeOf((*cuke.DocString)(nil))
	dataTableType = reflect.TypeOf(cuke.DataTable{})
	dataTablePtrType = reflect.TypeOf((*cuke.DataTable)(nil))
)

// CustomType describes a named parameter type registered by the caller
// (spec §9 "custom parameter types"): a primitive underlying kind plus a
// fixed, case-insensitive vocabulary of allowed spellings.
type CustomType struct {
	Name          string
	Underlying    reflect.Kind
	AllowedValues map[string]string // lowercased spelling -> canonical value
}

// AllowedValuesList returns the distinct canonical values, for error
// messages.
func (c CustomType) AllowedValuesList() []string {
	seen := make(map[string]bool)
	var values []string
	for _, v := range c.AllowedValues {
		if !seen[v] {
			values = append(values, v)
			seen[v] = true
		}
	}
	return values
}

// Registry holds the custom types registered at startup, alongside the
// step definitions in pkg/glue.
type Registry struct {
	customTypes map[string]CustomType
}

func NewRegistry() *Registry {
	return &Registry{customTypes: make(map[string]CustomType)}
}

// RegisterCustomType records a named type's vocabulary. name must match
// reflect.Type.Name() for the parameter type handlers declare.
func (r *Registry) RegisterCustomType(name string, underlying reflect.Kind, values map[string]string) {
	r.customTypes[name] = CustomType{Name: name, Underlying: underlying, AllowedValues: values}
}

// Argument converts one resolved resolver.StepArgument into the
// reflect.Value a handler parameter of type targetType expects.
func (r *Registry) Argument(arg resolver.StepArgument, targetType reflect.Type) (reflect.Value, error) {
	switch arg.Kind {
	case resolver.Expression:
		return r.scalar(arg.Text, targetType)
	case resolver.DocStringArg:
		return r.docString(arg.DocString, targetType)
	case resolver.DataTableArg:
		return r.dataTable(arg.DataTable, targetType)
	default:
		return reflect.Value{}, fmt.Errorf("unknown argument kind %d", arg.Kind)
	}
}

func (r *Registry) docString(ds *cuke.DocString, targetType reflect.Type) (reflect.Value, error) {
	switch targetType {
	case docStringType:
		return reflect.ValueOf(*ds), nil
	case docStringPtrType:
		return reflect.ValueOf(ds), nil
	}
	if targetType.Kind() == reflect.String {
		return r.scalar(ds.Content, targetType)
	}
	return reflect.Value{}, fmt.Errorf("cannot bind docstring argument to %s", targetType)
}

func (r *Registry) dataTable(dt *cuke.DataTable, targetType reflect.Type) (reflect.Value, error) {
	switch targetType {
	case dataTableType:
		return reflect.ValueOf(*dt), nil
	case dataTablePtrType:
		return reflect.ValueOf(dt), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot bind data table argument to %s", targetType)
}

// scalar converts a captured string to targetType (spec §4.2: time.Time,
// *time.Location, a registered custom type, or a primitive).
func (r *Registry) scalar(text string, targetType reflect.Type) (reflect.Value, error) {
	if targetType == timeType {
		if dt, err := parseDateTime(text); err == nil {
			return reflect.ValueOf(dt), nil
		}
		if d, err := parseDate(text); err == nil {
			return reflect.ValueOf(d), nil
		}
		if t, err := parseTime(text); err == nil {
			return reflect.ValueOf(t), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot parse %q as time.Time", text)
	}

	if targetType == locationType {
		loc, err := parseTimezone(text)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(loc), nil
	}

	typeName := targetType.Name()
	kindName := targetType.Kind().String()
	if typeName != "" && typeName != kindName {
		if ct, ok := r.customTypes[typeName]; ok {
			return convertCustomType(text, targetType, ct)
		}
	}

	return convertPrimitive(text, targetType)
}

func convertCustomType(text string, targetType reflect.Type, ct CustomType) (reflect.Value, error) {
	resolved, ok := ct.AllowedValues[strings.ToLower(text)]
	if !ok {
		return reflect.Value{}, fmt.Errorf("invalid %s: %q (allowed: %v)", ct.Name, text, ct.AllowedValuesList())
	}
	return convertToNamedType(resolved, targetType)
}

func convertToNamedType(text string, targetType reflect.Type) (reflect.Value, error) {
	val := reflect.New(targetType).Elem()

	switch targetType.Kind() {
	case reflect.String:
		val.SetString(text)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		val.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		val.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		val.SetFloat(f)
	case reflect.Bool:
		b, err := parseBool(text)
		if err != nil {
			return reflect.Value{}, err
		}
		val.SetBool(b)
	default:
		return reflect.Value{}, fmt.Errorf("unsupported underlying type: %s", targetType.Kind())
	}

	return val, nil
}

func convertPrimitive(text string, targetType reflect.Type) (reflect.Value, error) {
	switch targetType.Kind() {
	case reflect.String:
		return reflect.ValueOf(text), nil

	case reflect.Int:
		v, err := strconv.Atoi(text)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v), nil
	case reflect.Int8:
		v, err := strconv.ParseInt(text, 10, 8)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(int8(v)), nil
	case reflect.Int16:
		v, err := strconv.ParseInt(text, 10, 16)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(int16(v)), nil
	case reflect.Int32:
		v, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(int32(v)), nil
	case reflect.Int64:
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v), nil

	case reflect.Uint:
		v, err := strconv.ParseUint(text, 10, 0)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(uint(v)), nil
	case reflect.Uint8:
		v, err := strconv.ParseUint(text, 10, 8)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(uint8(v)), nil
	case reflect.Uint16:
		v, err := strconv.ParseUint(text, 10, 16)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(uint16(v)), nil
	case reflect.Uint32:
		v, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(uint32(v)), nil
	case reflect.Uint64:
		v, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v), nil

	case reflect.Float32:
		v, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(float32(v)), nil
	case reflect.Float64:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v), nil

	case reflect.Bool:
		v, err := parseBool(text)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v), nil

	default:
		return reflect.Value{}, fmt.Errorf("unsupported parameter type: %s", targetType.Kind())
	}
}

// parseBool accepts the standard spellings plus the human-readable
// vocabulary BDD feature authors tend to write (spec §9).
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "on", "enabled", "1":
		return true, nil
	case "false", "no", "off", "disabled", "0":
		return false, nil
	default:
		return false, fmt.Errorf("cannot parse %q as bool", s)
	}
}

func parseTimezone(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)

	if s == "Z" || s == "UTC" {
		return time.UTC, nil
	}

	if matches := tzOffsetRegex.FindStringSubmatch(s); matches != nil {
		sign := 1
		if matches[1] == "-" {
			sign = -1
		}
		hours, _ := strconv.Atoi(matches[2])
		minutes, _ := strconv.Atoi(matches[3])
		offsetSeconds := sign * (hours*3600 + minutes*60)
		return time.FixedZone(s, offsetSeconds), nil
	}

	loc, err := time.LoadLocation(s)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", s, err)
	}
	return loc, nil
}

func extractTimezone(s string) (string, *time.Location) {
	s = strings.TrimSpace(s)

	if strings.HasSuffix(s, "Z") {
		return strings.TrimSuffix(s, "Z"), time.UTC
	}
	if strings.HasSuffix(s, " UTC") || strings.HasSuffix(s, "UTC") {
		return strings.TrimSuffix(strings.TrimSuffix(s, " UTC"), "UTC"), time.UTC
	}

	parts := strings.Split(s, " ")
	if len(parts) >= 2 {
		lastPart := parts[len(parts)-1]
		if strings.Contains(lastPart, "/") {
			if loc, err := time.LoadLocation(lastPart); err == nil {
				return strings.TrimSuffix(s, " "+lastPart), loc
			}
		}
	}

	if len(parts) >= 1 {
		lastPart := parts[len(parts)-1]
		if len(lastPart) >= 5 && (lastPart[0] == '+' || lastPart[0] == '-') {
			if loc, err := parseTimezone(lastPart); err == nil {
				withoutTz := strings.TrimSuffix(s, lastPart)
				withoutTz = strings.TrimSuffix(withoutTz, " ")
				return withoutTz, loc
			}
		}
	}

	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '+' || s[i] == '-' {
			if loc, err := parseTimezone(s[i:]); err == nil {
				return s[:i], loc
			}
			break
		}
	}

	return s, time.Local
}

func parseTime(s string) (time.Time, error) {
	timeStr, loc := extractTimezone(s)
	timeStr = strings.TrimSpace(timeStr)

	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, timeStr, loc)
		if err == nil {
			return time.Date(1, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local), nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot parse %q as date", s)
}

func parseDateTime(s string) (time.Time, error) {
	dtStr, loc := extractTimezone(s)
	dtStr = strings.TrimSpace(dtStr)

	var datePart, timePart string

	if idx := strings.Index(dtStr, "T"); idx != -1 {
		datePart = dtStr[:idx]
		timePart = dtStr[idx+1:]
	} else if idx := strings.LastIndex(dtStr, " "); idx != -1 {
		for i := len(dtStr) - 1; i >= 0; i-- {
			if dtStr[i] == ' ' {
				possibleTime := dtStr[i+1:]
				if strings.Contains(possibleTime, ":") {
					datePart = dtStr[:i]
					timePart = possibleTime
					break
				}
			}
		}
		if datePart == "" {
			datePart = dtStr[:idx]
			timePart = dtStr[idx+1:]
		}
	} else {
		return time.Time{}, fmt.Errorf("cannot parse %q as datetime: no separator found", s)
	}

	var parsedDate time.Time
	var dateErr error
	for _, layout := range dateLayouts {
		parsedDate, dateErr = time.ParseInLocation(layout, datePart, loc)
		if dateErr == nil {
			break
		}
	}
	if dateErr != nil {
		return time.Time{}, fmt.Errorf("cannot parse date part %q: %w", datePart, dateErr)
	}

	var parsedTime time.Time
	var timeErr error
	for _, layout := range timeLayouts {
		parsedTime, timeErr = time.ParseInLocation(layout, timePart, loc)
		if timeErr == nil {
			break
		}
	}
	if timeErr != nil {
		return time.Time{}, fmt.Errorf("cannot parse time part %q: %w", timePart, timeErr)
	}

	return time.Date(
		parsedDate.Year(), parsedDate.Month(), parsedDate.Day(),
		parsedTime.Hour(), parsedTime.Minute(), parsedTime.Second(), parsedTime.Nanosecond(),
		loc,
	), nil
}
