package bdd

import (
	"fmt"
	"reflect"
	"strings"
)

// AssertionError is panicked by a failing Assert call. pkg/scenario's
// panic-safe invocation converts it into a Failed result (spec §4.4,
// §7): assertion failure and a handler panic are the same failure mode
// from the runner's point of view.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string { return e.Message }

// Assert provides fail-fast assertion methods for step handlers. A
// failing assertion panics with *AssertionError; it never returns to the
// caller.
type Assert struct{}

func (a Assert) fail(format string, args ...any) {
	panic(&AssertionError{Message: fmt.Sprintf(format, args...)})
}

func (a Assert) Equal(expected, actual any, msgAndArgs ...any) {
	if !reflect.DeepEqual(expected, actual) {
		a.failf(msgAndArgs, "Equal failed:\n\texpected: %v\n\tactual:   %v", expected, actual)
	}
}

func (a Assert) NotEqual(expected, actual any, msgAndArgs ...any) {
	if reflect.DeepEqual(expected, actual) {
		a.failf(msgAndArgs, "Expected values to differ, but both are: %v", expected)
	}
}

func (a Assert) Nil(value any, msgAndArgs ...any) {
	if !isNil(value) {
		a.failf(msgAndArgs, "Expected nil, got: %v", value)
	}
}

func (a Assert) NotNil(value any, msgAndArgs ...any) {
	if isNil(value) {
		a.failf(msgAndArgs, "Expected non-nil value, got nil")
	}
}

func (a Assert) True(condition bool, msgAndArgs ...any) {
	if !condition {
		a.failf(msgAndArgs, "Expected true, got false")
	}
}

func (a Assert) False(condition bool, msgAndArgs ...any) {
	if condition {
		a.failf(msgAndArgs, "Expected false, got true")
	}
}

func (a Assert) NoError(err error, msgAndArgs ...any) {
	if err != nil {
		a.failf(msgAndArgs, "Expected no error, got: %v", err)
	}
}

func (a Assert) Error(err error, msgAndArgs ...any) {
	if err == nil {
		a.failf(msgAndArgs, "Expected an error, got nil")
	}
}

func (a Assert) ErrorContains(err error, substr string, msgAndArgs ...any) {
	if err == nil {
		a.failf(msgAndArgs, "Expected error containing %q, got nil", substr)
		return
	}
	if !strings.Contains(err.Error(), substr) {
		a.failf(msgAndArgs, "Expected error containing %q, got: %v", substr, err)
	}
}

func (a Assert) Contains(s, elem any, msgAndArgs ...any) {
	ok, found := containsElement(s, elem)
	if !ok {
		a.failf(msgAndArgs, "Cannot check containment on type %T", s)
		return
	}
	if !found {
		a.failf(msgAndArgs, "%v does not contain %v", s, elem)
	}
}

func (a Assert) NotContains(s, elem any, msgAndArgs ...any) {
	ok, found := containsElement(s, elem)
	if !ok {
		a.failf(msgAndArgs, "Cannot check containment on type %T", s)
		return
	}
	if found {
		a.failf(msgAndArgs, "%v should not contain %v", s, elem)
	}
}

func (a Assert) Len(collection any, length int, msgAndArgs ...any) {
	l, ok := getLen(collection)
	if !ok {
		a.failf(msgAndArgs, "Cannot get length of type %T", collection)
		return
	}
	if l != length {
		a.failf(msgAndArgs, "Expected length %d, got %d", length, l)
	}
}

func (a Assert) Empty(collection any, msgAndArgs ...any) {
	l, ok := getLen(collection)
	if !ok {
		a.failf(msgAndArgs, "Cannot get length of type %T", collection)
		return
	}
	if l != 0 {
		a.failf(msgAndArgs, "Expected empty collection, got length %d", l)
	}
}

func (a Assert) NotEmpty(collection any, msgAndArgs ...any) {
	l, ok := getLen(collection)
	if !ok {
		a.failf(msgAndArgs, "Cannot get length of type %T", collection)
		return
	}
	if l == 0 {
		a.failf(msgAndArgs, "Expected non-empty collection")
	}
}

func (a Assert) Greater(e1, e2 any, msgAndArgs ...any) {
	result, ok := compare(e1, e2)
	if !ok {
		a.failf(msgAndArgs, "Cannot compare %T with %T", e1, e2)
		return
	}
	if result != 1 {
		a.failf(msgAndArgs, "Expected %v > %v", e1, e2)
	}
}

func (a Assert) GreaterOrEqual(e1, e2 any, msgAndArgs ...any) {
	result, ok := compare(e1, e2)
	if !ok {
		a.failf(msgAndArgs, "Cannot compare %T with %T", e1, e2)
		return
	}
	if result == -1 {
		a.failf(msgAndArgs, "Expected %v >= %v", e1, e2)
	}
}

func (a Assert) Less(e1, e2 any, msgAndArgs ...any) {
	result, ok := compare(e1, e2)
	if !ok {
		a.failf(msgAndArgs, "Cannot compare %T with %T", e1, e2)
		return
	}
	if result != -1 {
		a.failf(msgAndArgs, "Expected %v < %v", e1, e2)
	}
}

func (a Assert) LessOrEqual(e1, e2 any, msgAndArgs ...any) {
	result, ok := compare(e1, e2)
	if !ok {
		a.failf(msgAndArgs, "Cannot compare %T with %T", e1, e2)
		return
	}
	if result == 1 {
		a.failf(msgAndArgs, "Expected %v <= %v", e1, e2)
	}
}

func (a Assert) Fail(msgAndArgs ...any) {
	msg := "assertion failed"
	if len(msgAndArgs) > 0 {
		msg = formatMsgAndArgs(msgAndArgs...)
	}
	a.fail(msg)
}

func (a Assert) failf(msgAndArgs []any, format string, formatArgs ...any) {
	msg := fmt.Sprintf(format, formatArgs...)
	if len(msgAndArgs) > 0 {
		msg += ": " + formatMsgAndArgs(msgAndArgs...)
	}
	a.fail(msg)
}

func formatMsgAndArgs(msgAndArgs ...any) string {
	if len(msgAndArgs) == 0 {
		return ""
	}
	if len(msgAndArgs) == 1 {
		if s, ok := msgAndArgs[0].(string); ok {
			return s
		}
		return fmt.Sprintf("%v", msgAndArgs[0])
	}
	if s, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(s, msgAndArgs[1:]...)
	}
	return fmt.Sprint(msgAndArgs...)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func getLen(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array, reflect.Chan, reflect.Map, reflect.Slice, reflect.String:
		return rv.Len(), true
	}
	return 0, false
}

func containsElement(s, elem any) (ok bool, found bool) {
	sv := reflect.ValueOf(s)

	switch sv.Kind() {
	case reflect.String:
		return true, strings.Contains(sv.String(), reflect.ValueOf(elem).String())
	case reflect.Slice, reflect.Array:
		for i := 0; i < sv.Len(); i++ {
			if reflect.DeepEqual(sv.Index(i).Interface(), elem) {
				return true, true
			}
		}
		return true, false
	case reflect.Map:
		for _, key := range sv.MapKeys() {
			if reflect.DeepEqual(key.Interface(), elem) {
				return true, true
			}
		}
		return true, false
	}
	return false, false
}

func compare(e1, e2 any) (int, bool) {
	v1 := reflect.ValueOf(e1)
	v2 := reflect.ValueOf(e2)

	if v1.Kind() != v2.Kind() {
		return 0, false
	}

	switch v1.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i1, i2 := v1.Int(), v2.Int()
		switch {
		case i1 < i2:
			return -1, true
		case i1 > i2:
			return 1, true
		default:
			return 0, true
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u1, u2 := v1.Uint(), v2.Uint()
		switch {
		case u1 < u2:
			return -1, true
		case u1 > u2:
			return 1, true
		default:
			return 0, true
		}
	case reflect.Float32, reflect.Float64:
		f1, f2 := v1.Float(), v2.Float()
		switch {
		case f1 < f2:
			return -1, true
		case f1 > f2:
			return 1, true
		default:
			return 0, true
		}
	case reflect.String:
		s1, s2 := v1.String(), v2.String()
		switch {
		case s1 < s2:
			return -1, true
		case s1 > s2:
			return 1, true
		default:
			return 0, true
		}
	}

	return 0, false
}
