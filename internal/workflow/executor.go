package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/internal/registry"
	"github.com/giantswarm/bench/internal/template"
	"github.com/giantswarm/bench/pkg/logging"
)

// Dispatcher is the subset of CommandDispatcher the executor needs,
// declared at the point of use so this package has no compile-time
// dependency on internal/dispatch.
type Dispatcher interface {
	Dispatch(ctx context.Context, spec registry.CommandSpec, args map[string]interface{}) (json.RawMessage, error)
}

const maxBackoffInterval = 60 * time.Second

// Executor runs a single planned StepSpec against the live RunContext.
type Executor struct {
	catalogue *registry.CommandCatalogue
	dispatch  Dispatcher
	interp    *template.Interpolator
}

// NewExecutor builds an Executor over the given catalogue and dispatcher.
func NewExecutor(catalogue *registry.CommandCatalogue, dispatch Dispatcher) *Executor {
	return &Executor{
		catalogue: catalogue,
		dispatch:  dispatch,
		interp:    template.New(),
	}
}

// prepare interpolates step.With and step.Body against rc, returning the
// prepared args map and any unresolved references.
func (e *Executor) prepare(step StepSpec, rc *RunContext) (map[string]interface{}, interface{}, []template.Unresolved) {
	tctx := template.Context{Inputs: rc.Inputs, Env: rc.Env, Steps: rc.StepOutputsForTemplate()}

	var unresolved []template.Unresolved

	withResolved, u := e.interp.Resolve(toInterfaceMap(step.With), tctx)
	unresolved = append(unresolved, u...)
	withMap, _ := withResolved.(map[string]interface{})

	var body interface{}
	if step.Body != nil {
		var u2 []template.Unresolved
		body, u2 = e.interp.Resolve(step.Body, tctx)
		unresolved = append(unresolved, u2...)
	}

	return withMap, body, unresolved
}

func toInterfaceMap(m map[string]interface{}) interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

// Execute runs one step to completion: evaluating its condition,
// preparing its templates as late as possible (immediately before each
// dispatch), and driving its repeat loop when one is declared. It never
// returns an error itself — failure is represented in the returned
// StepResult so a workflow run can continue accounting for remaining
// steps.
func (e *Executor) Execute(ctx context.Context, step StepSpec, rc *RunContext) StepResult {
	if step.If != "" {
		tctx := template.Context{Inputs: rc.Inputs, Env: rc.Env, Steps: rc.StepOutputsForTemplate()}
		cond, err := e.interp.EvaluateExpr(step.If, tctx)
		if err != nil || !template.IsTruthy(cond) {
			return StepResult{ID: step.ID, Status: StatusSkipped, Attempts: 0}
		}
	}

	spec, err := e.catalogue.Lookup(step.Run)
	if err != nil {
		return StepResult{ID: step.ID, Status: StatusFailed, Output: errorPayload(err), Logs: []string{err.Error()}}
	}

	if step.Repeat != nil && step.Repeat.Until != "" {
		return e.executeWithRepeat(ctx, step, spec, rc)
	}
	return e.executeOnce(ctx, step, spec, rc)
}

func (e *Executor) executeOnce(ctx context.Context, step StepSpec, spec registry.CommandSpec, rc *RunContext) StepResult {
	with, body, unresolved := e.prepare(step, rc)
	args := dispatchArgs(with, body)

	raw, err := e.dispatch.Dispatch(ctx, spec, args)
	logs := unresolvedLogs(unresolved)
	if err != nil {
		logs = append(logs, err.Error())
		return StepResult{ID: step.ID, Status: StatusFailed, Output: errorPayload(err), Logs: logs, Attempts: 1}
	}

	return StepResult{ID: step.ID, Status: StatusSucceeded, Output: decodeJSON(raw), Logs: logs, Attempts: 1}
}

func (e *Executor) executeWithRepeat(ctx context.Context, step StepSpec, spec registry.CommandSpec, rc *RunContext) StepResult {
	r := step.Repeat
	bo := &repeatBackoff{kind: r.Backoff, intervalMS: r.IntervalMS}

	var (
		lastOutput interface{}
		lastErr    error
		logs       []string
		attempts   int
	)

	op := func() (struct{}, error) {
		attempts++

		with, body, unresolved := e.prepare(step, rc)
		logs = append(logs, unresolvedLogs(unresolved)...)
		args := dispatchArgs(with, body)

		raw, err := e.dispatch.Dispatch(ctx, spec, args)
		if err != nil {
			lastErr = err
			logs = append(logs, err.Error())
			if !apperr.IsRetryable(err) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}

		lastOutput = decodeJSON(raw)
		lastErr = nil

		tctx := template.Context{Inputs: rc.Inputs, Env: rc.Env, Steps: withStepOutput(rc, step.ID, lastOutput)}
		until, evalErr := e.interp.EvaluateExpr(r.Until, tctx)
		if evalErr == nil && template.IsTruthy(until) {
			return struct{}{}, nil
		}
		return struct{}{}, fmt.Errorf("until condition not yet satisfied")
	}

	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(maxAttempts)),
	)

	if err != nil {
		logging.Debug("workflow", "step %q exhausted repeat policy: %v", step.ID, lastErr)
		return StepResult{ID: step.ID, Status: StatusFailed, Output: errorPayload(lastErr), Logs: logs, Attempts: attempts}
	}
	return StepResult{ID: step.ID, Status: StatusSucceeded, Output: lastOutput, Logs: logs, Attempts: attempts}
}

func withStepOutput(rc *RunContext, stepID string, output interface{}) map[string]interface{} {
	out := rc.StepOutputsForTemplate()
	out[stepID] = output
	return out
}

// repeatBackoff implements backoff.BackOff per the three named
// strategies: none uses a fixed interval, linear grows by
// interval*attempt, exponential by interval*2^(attempt-1); all capped at
// 60s.
type repeatBackoff struct {
	kind       BackoffKind
	intervalMS int
	attempt    int
}

func (b *repeatBackoff) NextBackOff() time.Duration {
	b.attempt++
	var ms int
	switch b.kind {
	case BackoffLinear:
		ms = b.intervalMS * b.attempt
	case BackoffExponential:
		ms = b.intervalMS * (1 << uint(b.attempt-1))
	default:
		ms = b.intervalMS
	}
	d := time.Duration(ms) * time.Millisecond
	if d > maxBackoffInterval {
		d = maxBackoffInterval
	}
	return d
}

// Reset restarts the interval growth from the first attempt.
func (b *repeatBackoff) Reset() {
	b.attempt = 0
}

func dispatchArgs(with map[string]interface{}, body interface{}) map[string]interface{} {
	args := make(map[string]interface{}, len(with)+1)
	for k, v := range with {
		args[k] = v
	}
	if body != nil {
		args["__body"] = body
	}
	return args
}

func unresolvedLogs(unresolved []template.Unresolved) []string {
	if len(unresolved) == 0 {
		return nil
	}
	logs := make([]string, 0, len(unresolved))
	for _, u := range unresolved {
		logs = append(logs, fmt.Sprintf("unresolved reference %q at %s: %s", u.Expression, u.Path, u.Reason))
	}
	return logs
}

func errorPayload(err error) interface{} {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if apperr.As(err, &appErr) {
		var payload map[string]interface{}
		_ = json.Unmarshal(appErr.JSON(), &payload)
		return payload
	}
	return map[string]interface{}{"error": err.Error()}
}

func decodeJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
