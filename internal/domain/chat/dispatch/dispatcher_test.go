package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandlers() map[string]Handler {
	return map[string]Handler{
		"echo": func(_ context.Context, args map[string]any, user string) (any, error) {
			return map[string]any{"user": user, "args": args}, nil
		},
		"fail": func(context.Context, map[string]any, string) (any, error) {
			return nil, errors.New("repository unavailable")
		},
		"boom": func(context.Context, map[string]any, string) (any, error) {
			var m map[string]int
			m["x"] = 1
			return nil, nil
		},
	}
}

func TestExecuteUnknownFunction(t *testing.T) {
	d := New(testHandlers(), nil)
	got := d.Execute(context.Background(), "fly_to_moon", nil, "u1")
	assert.Equal(t, map[string]any{"error": "Unknown function: fly_to_moon"}, got)
	assert.True(t, IsErrorResult(got))
}

func TestExecuteSuccessPassesActingUser(t *testing.T) {
	d := New(testHandlers(), nil)
	got := d.Execute(context.Background(), "echo", map[string]any{"a": 1.0}, "u1")
	m := got.(map[string]any)
	assert.Equal(t, "u1", m["user"])
	assert.False(t, IsErrorResult(got))
}

func TestExecuteHandlerErrorBecomesResult(t *testing.T) {
	d := New(testHandlers(), nil)
	got := d.Execute(context.Background(), "fail", nil, "u1")
	assert.Equal(t, ErrorResult("repository unavailable"), got)
}

func TestExecuteRecoversPanics(t *testing.T) {
	d := New(testHandlers(), nil)
	var got any
	require.NotPanics(t, func() {
		got = d.Execute(context.Background(), "boom", nil, "u1")
	})
	assert.True(t, IsErrorResult(got))
	assert.Contains(t, got.(map[string]any)["error"], "boom failed")
}

func TestObserverSeesEveryCall(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	d := New(testHandlers(), nil).WithObserver(func(name string, ok bool, _ time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		seen[name] = ok
	})

	d.Execute(context.Background(), "echo", nil, "u")
	d.Execute(context.Background(), "fail", nil, "u")
	d.Execute(context.Background(), "boom", nil, "u")
	d.Execute(context.Background(), "nope", nil, "u")

	assert.Equal(t, map[string]bool{"echo": true, "fail": false, "boom": false, "nope": false}, seen)
}

func TestMissing(t *testing.T) {
	d := New(testHandlers(), nil)
	assert.Equal(t, []string{"a", "z"}, d.Missing([]string{"z", "echo", "a"}))
	assert.Nil(t, d.Missing([]string{"echo"}))
}

func TestArgHelpers(t *testing.T) {
	args := map[string]any{
		"s":      "  hello ",
		"blank":  "  ",
		"f":      3.0,
		"frac":   3.5,
		"ns":     "42",
		"list":   []any{"a", " b ", "", 7.0},
		"csv":    "x, y",
		"nilval": nil,
	}

	s, ok := String(args, "s")
	assert.True(t, ok)
	assert.Equal(t, "hello", s)
	_, ok = String(args, "blank")
	assert.False(t, ok)

	_, err := RequireString(args, "nilval")
	var missing *MissingArgError
	assert.ErrorAs(t, err, &missing)

	n, ok := Int(args, "f")
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	_, ok = Int(args, "frac")
	assert.False(t, ok)
	n, err = RequireInt(args, "ns")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	assert.Equal(t, []string{"a", "b", "7"}, Strings(args, "list"))
	assert.Equal(t, []string{"x", "y"}, Strings(args, "csv"))
	assert.Nil(t, Strings(args, "missing"))
}
