package require

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/assert"
	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
)

// this is a subset of github.com/stretchr/testify/require
// built on github.com/alecthomas/assert, plus helpers for comparing
// record text and store errors

// TestingT is an interface wrapper around *testing.T
type TestingT interface {
	Errorf(format string, args ...interface{})
	FailNow()
}

// Nil asserts that the specified object is nil.
func Nil(t TestingT, object interface{}, msgAndArgs ...interface{}) {
	assert.Nil(t, object, msgAndArgs...)
}

// NoError asserts that a function returned no error (i.e. `nil`).
func NoError(t TestingT, err error, msgAndArgs ...interface{}) {
	assert.NoError(t, err, msgAndArgs...)
}

// Error asserts that a function returned an error (i.e. not `nil`).
func Error(t TestingT, err error, msgAndArgs ...interface{}) {
	assert.Error(t, err, msgAndArgs...)
}

// Equal asserts that two objects are equal.
//
//	require.Equal(t, 123, 123)
func Equal(t TestingT, expected interface{}, actual interface{}, msgAndArgs ...interface{}) {
	assert.Equal(t, expected, actual, msgAndArgs...)
}

// NotNil asserts that the specified object is not nil.
func NotNil(t TestingT, object interface{}, msgAndArgs ...interface{}) {
	assert.NotNil(t, object, msgAndArgs...)
}

// True asserts that the specified value is true.
func True(t TestingT, value bool, msgAndArgs ...interface{}) {
	assert.True(t, value, msgAndArgs...)
}

// False asserts that the specified value is false.
func False(t TestingT, value bool, msgAndArgs ...interface{}) {
	assert.False(t, value, msgAndArgs...)
}

// TextDiff returns unified diff of exp and got, "" if they're the same
func TextDiff(exp, got string) string {
	if exp == got {
		return ""
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(exp),
		B:        difflib.SplitLines(got),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  2,
	}
	s, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("failed to diff: %s", err)
	}
	return s
}

// EqualText asserts that two strings are equal byte for byte
// and shows a line diff if they're not
func EqualText(t TestingT, exp, got string, msgAndArgs ...interface{}) {
	diff := TextDiff(exp, got)
	if diff == "" {
		return
	}
	msg := ""
	if len(msgAndArgs) > 0 {
		msg = fmt.Sprintf("%v", msgAndArgs[0])
		if len(msgAndArgs) > 1 {
			msg = fmt.Sprintf(msg, msgAndArgs[1:]...)
		}
		msg += "\n"
	}
	t.Errorf("%stext mismatch:\n%s", msg, diff)
	t.FailNow()
}

var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// ErrorAs asserts that err matches target per errors.As. target
// must be a non-nil pointer to a type implementing error.
func ErrorAs(t TestingT, err error, target interface{}, msgAndArgs ...interface{}) {
	if errors.As(err, target) {
		return
	}
	s := strings.TrimSpace(dumper.Sdump(err))
	t.Errorf("error is not %T:\n%s\n%s", target, s, fmt.Sprint(msgAndArgs...))
	t.FailNow()
}
