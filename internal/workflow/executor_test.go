package workflow

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/internal/registry"
)

type fakeDispatcher struct {
	calls     int
	responses []json.RawMessage
	errs      []error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, spec registry.CommandSpec, args map[string]interface{}) (json.RawMessage, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return json.RawMessage(`{}`), nil
}

func newExecutor(t *testing.T, disp *fakeDispatcher) *Executor {
	t.Helper()
	cat := catalogueWithCommands("apps a")
	return NewExecutor(cat, disp)
}

func TestExecuteSingleShotSuccess(t *testing.T) {
	disp := &fakeDispatcher{responses: []json.RawMessage{json.RawMessage(`{"ok":true}`)}}
	e := newExecutor(t, disp)

	rc := &RunContext{Inputs: map[string]interface{}{}, Env: map[string]string{}, Steps: map[string]StepResult{}}
	result := e.Execute(context.Background(), StepSpec{ID: "s1", Run: "apps a"}, rc)

	assert.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, disp.calls)
}

func TestExecuteSingleShotFailure(t *testing.T) {
	disp := &fakeDispatcher{errs: []error{apperr.New(apperr.Tool, "boom", "tool failed")}}
	e := newExecutor(t, disp)

	rc := &RunContext{Steps: map[string]StepResult{}}
	result := e.Execute(context.Background(), StepSpec{ID: "s1", Run: "apps a"}, rc)

	assert.Equal(t, StatusFailed, result.Status)
}

func TestExecuteSkipsWhenConditionFalsey(t *testing.T) {
	disp := &fakeDispatcher{}
	e := newExecutor(t, disp)

	rc := &RunContext{Inputs: map[string]interface{}{"go": false}, Steps: map[string]StepResult{}}
	result := e.Execute(context.Background(), StepSpec{ID: "s1", Run: "apps a", If: "inputs.go == \"true\""}, rc)

	assert.Equal(t, StatusSkipped, result.Status)
	assert.Equal(t, 0, result.Attempts)
	assert.Equal(t, 0, disp.calls)
}

func TestExecuteRunsWhenConditionTruthy(t *testing.T) {
	disp := &fakeDispatcher{responses: []json.RawMessage{json.RawMessage(`{}`)}}
	e := newExecutor(t, disp)

	rc := &RunContext{Inputs: map[string]interface{}{"env": "prod"}, Steps: map[string]StepResult{}}
	result := e.Execute(context.Background(), StepSpec{ID: "s1", Run: "apps a", If: `inputs.env == "prod"`}, rc)

	assert.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, 1, disp.calls)
}

func TestExecuteRepeatSucceedsWhenUntilBecomesTruthy(t *testing.T) {
	disp := &fakeDispatcher{responses: []json.RawMessage{
		json.RawMessage(`{"status":"pending"}`),
		json.RawMessage(`{"status":"pending"}`),
		json.RawMessage(`{"status":"done"}`),
	}}
	e := newExecutor(t, disp)

	rc := &RunContext{Steps: map[string]StepResult{}}
	step := StepSpec{
		ID:  "s1",
		Run: "apps a",
		Repeat: &RepeatSpec{
			Until:       `steps.s1.status == "done"`,
			MaxAttempts: 5,
			IntervalMS:  1,
			Backoff:     BackoffNone,
		},
	}

	result := e.Execute(context.Background(), step, rc)
	assert.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, disp.calls)
}

func TestExecuteRepeatFailsWhenAttemptsExhausted(t *testing.T) {
	disp := &fakeDispatcher{responses: []json.RawMessage{
		json.RawMessage(`{"status":"pending"}`),
		json.RawMessage(`{"status":"pending"}`),
	}}
	e := newExecutor(t, disp)

	rc := &RunContext{Steps: map[string]StepResult{}}
	step := StepSpec{
		ID:  "s1",
		Run: "apps a",
		Repeat: &RepeatSpec{
			Until:       `steps.s1.status == "done"`,
			MaxAttempts: 2,
			IntervalMS:  1,
			Backoff:     BackoffNone,
		},
	}

	result := e.Execute(context.Background(), step, rc)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, 2, result.Attempts)
}

func TestExecuteRepeatStopsImmediatelyOnNonRetryableError(t *testing.T) {
	disp := &fakeDispatcher{errs: []error{apperr.New(apperr.Validation, "bad_input", "nope")}}
	e := newExecutor(t, disp)

	rc := &RunContext{Steps: map[string]StepResult{}}
	step := StepSpec{
		ID:  "s1",
		Run: "apps a",
		Repeat: &RepeatSpec{
			Until:       `steps.s1.status == "done"`,
			MaxAttempts: 10,
			IntervalMS:  1,
			Backoff:     BackoffNone,
		},
	}

	result := e.Execute(context.Background(), step, rc)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, disp.calls)
}

func TestExecuteFailsWhenCommandUnresolvable(t *testing.T) {
	disp := &fakeDispatcher{}
	cat := catalogueWithCommands("apps a")
	e := NewExecutor(cat, disp)

	rc := &RunContext{Steps: map[string]StepResult{}}
	result := e.Execute(context.Background(), StepSpec{ID: "s1", Run: "apps ghost"}, rc)

	require.Equal(t, StatusFailed, result.Status)
}
