package workflow

import (
	"context"
	"regexp"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/pkg/logging"
)

// EventKind is the closed set of progress events a run emits.
type EventKind string

const (
	EventStepStarted      EventKind = "step_started"
	EventStepFinished     EventKind = "step_finished"
	EventWorkflowFinished EventKind = "workflow_finished"
)

// Event is one entry in a run's ordered progress stream.
type Event struct {
	Kind   EventKind
	StepID string
	Result *StepResult // set on StepFinished
	Final  RunOutcome  // set on WorkflowFinished
}

// RunOutcome summarizes a completed (or cancelled) run.
type RunOutcome struct {
	Status StepStatus // Succeeded if every step succeeded or was skipped; Failed otherwise
	Steps  map[string]StepResult
}

// HistorySink receives a completed run for persistence. Declared at the
// point of use so this package has no compile-time dependency on
// internal/history.
type HistorySink interface {
	Record(workflowID string, inputs map[string]interface{}, outcome RunOutcome)
}

// Runner owns a RunContext for one workflow execution, driving planned
// steps through the Executor and streaming progress events.
type Runner struct {
	planner  *Planner
	executor *Executor
	history  HistorySink
}

// NewRunner builds a Runner. history may be nil when run history
// recording is not wanted (e.g. dry runs).
func NewRunner(planner *Planner, executor *Executor, history HistorySink) *Runner {
	return &Runner{planner: planner, executor: executor, history: history}
}

// ValidateInputs checks spec.Inputs against provided, applying the
// Required/Validation rules declared in each InputSpec. It does not
// apply defaults — use ResolveInputs for that.
func ValidateInputs(spec WorkflowSpec, provided map[string]interface{}) error {
	for name, def := range spec.Inputs {
		val, present := provided[name]
		if !present {
			if def.Required && def.Default == nil {
				return apperr.Validationf("inputs."+name, "required", "input %q is required", name)
			}
			continue
		}
		if err := validateValue(name, val, def.Validation); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(name string, val interface{}, v InputValidation) error {
	s, isString := val.(string)

	if len(v.AllowedValues) > 0 && isString {
		ok := false
		for _, allowed := range v.AllowedValues {
			if allowed == s {
				ok = true
				break
			}
		}
		if !ok {
			return apperr.Validationf("inputs."+name, "allowed_values", "%q is not an allowed value for %q", s, name)
		}
	}
	if v.MinLength != nil && isString && len(s) < *v.MinLength {
		return apperr.Validationf("inputs."+name, "min_length", "%q is shorter than the minimum length of %d", name, *v.MinLength)
	}
	if v.MaxLength != nil && isString && len(s) > *v.MaxLength {
		return apperr.Validationf("inputs."+name, "max_length", "%q is longer than the maximum length of %d", name, *v.MaxLength)
	}
	if v.Pattern != "" && isString {
		re, err := regexp.Compile(v.Pattern)
		if err != nil {
			return apperr.Validationf("inputs."+name, "pattern", "the pattern for %q is not a valid regular expression", name)
		}
		if !re.MatchString(s) {
			return apperr.Validationf("inputs."+name, "pattern", "%q does not match the pattern for %q", s, name)
		}
	}
	return nil
}

// LastInputsSource supplies the most recently used inputs for a
// workflow, consulted by ResolveInputs to fill gaps before falling back
// to declared defaults.
type LastInputsSource interface {
	LastInputs(workflowID string) (map[string]interface{}, bool)
}

// ResolveInputs builds the final input map for a run: explicit values
// win, then the workflow's last recorded inputs (when history is
// available), then the declared default, in that order.
func ResolveInputs(spec WorkflowSpec, explicit map[string]interface{}, last LastInputsSource) (map[string]interface{}, error) {
	resolved := make(map[string]interface{}, len(spec.Inputs))

	var lastUsed map[string]interface{}
	if last != nil {
		lastUsed, _ = last.LastInputs(spec.WorkflowID)
	}

	for name, def := range spec.Inputs {
		if v, ok := explicit[name]; ok {
			resolved[name] = v
			continue
		}
		if lastUsed != nil {
			if v, ok := lastUsed[name]; ok {
				resolved[name] = v
				continue
			}
		}
		if def.Default != nil {
			resolved[name] = def.Default
			continue
		}
		if def.Required {
			return nil, apperr.Validationf("inputs."+name, "required", "input %q is required", name)
		}
	}

	if err := ValidateInputs(spec, resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}

// Run plans and executes spec to completion, returning the ordered
// event slice once the run finishes. When live is non-nil, Run also
// publishes each event on it using latest-wins semantics (a 1-buffered
// channel drained and overwritten on send-would-block) so a status line
// reading from live on another goroutine never blocks behind a slow
// consumer; Run itself never blocks on live. Callers that want a truly
// live stream must invoke Run from its own goroutine and drain live
// concurrently; Run does not close live — the caller owns its lifecycle.
func (r *Runner) Run(ctx context.Context, spec WorkflowSpec, env map[string]string, inputs map[string]interface{}, live chan<- Event) (RunOutcome, []Event) {
	publishLive := func(ev Event) {
		if live == nil {
			return
		}
		select {
		case live <- ev:
		default:
			select {
			case <-live:
			default:
			}
			select {
			case live <- ev:
			default:
			}
		}
	}

	planned, err := r.planner.Plan(spec)
	if err != nil {
		return RunOutcome{Status: StatusFailed, Steps: map[string]StepResult{}}, nil
	}
	dependents := r.planner.Dependents(spec)

	rc := &RunContext{Inputs: inputs, Env: env, Steps: make(map[string]StepResult, len(planned))}
	var events []Event
	cancelled := false
	skip := make(map[string]bool, len(planned))

	for _, step := range planned {
		if !cancelled {
			select {
			case <-ctx.Done():
				cancelled = true
			default:
			}
		}

		if cancelled || skip[step.ID] {
			result := StepResult{ID: step.ID, Status: StatusSkipped}
			rc.Steps[step.ID] = result
			ev := Event{Kind: EventStepFinished, StepID: step.ID, Result: &result}
			events = append(events, ev)
			publishLive(ev)
			continue
		}

		startEv := Event{Kind: EventStepStarted, StepID: step.ID}
		events = append(events, startEv)
		publishLive(startEv)

		result := r.executor.Execute(ctx, step, rc)
		rc.Steps[step.ID] = result

		finishEv := Event{Kind: EventStepFinished, StepID: step.ID, Result: &result}
		events = append(events, finishEv)
		publishLive(finishEv)

		if result.Status == StatusFailed {
			logging.Warn("workflow", "step %q failed in workflow %q", step.ID, spec.WorkflowID)
			for _, dep := range dependents[step.ID] {
				skip[dep] = true
			}
		}
	}

	outcome := RunOutcome{Status: overallStatus(rc.Steps), Steps: rc.Steps}
	finalEv := Event{Kind: EventWorkflowFinished, Final: outcome}
	events = append(events, finalEv)
	publishLive(finalEv)

	if r.history != nil {
		r.history.Record(spec.WorkflowID, inputs, outcome)
	}

	return outcome, events
}

func overallStatus(steps map[string]StepResult) StepStatus {
	for _, s := range steps {
		if s.Status == StatusFailed {
			return StatusFailed
		}
	}
	return StatusSucceeded
}
