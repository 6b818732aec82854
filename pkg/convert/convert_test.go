package convert_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gherkindog/gherkindog/pkg/convert"
	"github.com/gherkindog/gherkindog/pkg/cuke"
	"github.com/gherkindog/gherkindog/pkg/resolver"
)

func expr(text string) resolver.StepArgument {
	return resolver.StepArgument{Kind: resolver.Expression, Text: text}
}

func TestArgument_Primitives(t *testing.T) {
	r := convert.NewRegistry()

	v, err := r.Argument(expr("42"), reflect.TypeOf(0))
	require.NoError(t, err)
	require.Equal(t, 42, v.Interface())

	v, err = r.Argument(expr("3.5"), reflect.TypeOf(float64(0)))
	require.NoError(t, err)
	require.Equal(t, 3.5, v.Interface())

	v, err = r.Argument(expr("yes"), reflect.TypeOf(true))
	require.NoError(t, err)
	require.Equal(t, true, v.Interface())

	v, err = r.Argument(expr("hello"), reflect.TypeOf(""))
	require.NoError(t, err)
	require.Equal(t, "hello", v.Interface())
}

func TestArgument_InvalidPrimitive(t *testing.T) {
	r := convert.NewRegistry()
	_, err := r.Argument(expr("not-a-number"), reflect.TypeOf(0))
	require.Error(t, err)
}

type Color string

func TestArgument_CustomType(t *testing.T) {
	r := convert.NewRegistry()
	r.RegisterCustomType("Color", reflect.String, map[string]string{
		"red":  "red",
		"blue": "blue",
	})

	v, err := r.Argument(expr("RED"), reflect.TypeOf(Color("")))
	require.NoError(t, err)
	require.Equal(t, Color("red"), v.Interface())

	_, err = r.Argument(expr("green"), reflect.TypeOf(Color("")))
	require.Error(t, err)
}

func TestArgument_Date(t *testing.T) {
	r := convert.NewRegistry()
	v, err := r.Argument(expr("25/12/2024"), reflect.TypeOf(time.Time{}))
	require.NoError(t, err)
	tm := v.Interface().(time.Time)
	require.Equal(t, 2024, tm.Year())
	require.Equal(t, time.December, tm.Month())
	require.Equal(t, 25, tm.Day())
}

func TestArgument_DateTimeWithTimezone(t *testing.T) {
	r := convert.NewRegistry()
	v, err := r.Argument(expr("2024-01-15T14:30:00Z"), reflect.TypeOf(time.Time{}))
	require.NoError(t, err)
	tm := v.Interface().(time.Time)
	require.Equal(t, 14, tm.Hour())
	require.Equal(t, time.UTC, tm.Location())
}

func TestArgument_Timezone(t *testing.T) {
	r := convert.NewRegistry()
	v, err := r.Argument(expr("+05:30"), reflect.TypeOf((*time.Location)(nil)))
	require.NoError(t, err)
	loc := v.Interface().(*time.Location)
	require.NotNil(t, loc)
}

func TestArgument_DocString(t *testing.T) {
	r := convert.NewRegistry()
	ds := &cuke.DocString{Content: "hello world"}
	arg := resolver.StepArgument{Kind: resolver.DocStringArg, DocString: ds}

	v, err := r.Argument(arg, reflect.TypeOf(""))
	require.NoError(t, err)
	require.Equal(t, "hello world", v.Interface())

	v, err = r.Argument(arg, reflect.TypeOf(cuke.DocString{}))
	require.NoError(t, err)
	require.Equal(t, *ds, v.Interface())
}

func TestArgument_DataTable(t *testing.T) {
	r := convert.NewRegistry()
	dt := &cuke.DataTable{Rows: []cuke.Row{{Cells: []string{"a", "b"}}}}
	arg := resolver.StepArgument{Kind: resolver.DataTableArg, DataTable: dt}

	v, err := r.Argument(arg, reflect.TypeOf(cuke.DataTable{}))
	require.NoError(t, err)
	require.Equal(t, *dt, v.Interface())
}
