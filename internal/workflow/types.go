package workflow

// BackoffKind is the closed set of repeat-interval growth strategies.
type BackoffKind string

const (
	BackoffNone        BackoffKind = "none"
	BackoffLinear      BackoffKind = "linear"
	BackoffExponential BackoffKind = "exponential"
)

// InputValidation constrains the legal values of a workflow input.
type InputValidation struct {
	AllowedValues []string `yaml:"allowed_values,omitempty" json:"allowed_values,omitempty"`
	Pattern       string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	MinLength     *int     `yaml:"min_length,omitempty" json:"min_length,omitempty"`
	MaxLength     *int     `yaml:"max_length,omitempty" json:"max_length,omitempty"`
}

// InputSpec describes one workflow input.
type InputSpec struct {
	Type       string          `yaml:"type,omitempty" json:"type,omitempty"`
	Required   bool            `yaml:"required,omitempty" json:"required,omitempty"`
	Default    interface{}     `yaml:"default,omitempty" json:"default,omitempty"`
	Validation InputValidation `yaml:"validation,omitempty" json:"validation,omitempty"`
}

// RepeatSpec controls a step's retry loop.
type RepeatSpec struct {
	Until       string      `yaml:"until,omitempty" json:"until,omitempty"`
	MaxAttempts int         `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty"`
	IntervalMS  int         `yaml:"interval_ms,omitempty" json:"interval_ms,omitempty"`
	Backoff     BackoffKind `yaml:"backoff,omitempty" json:"backoff,omitempty"`
}

// OutputField is one declared field of a step's OutputContract.
type OutputField struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// OutputContract optionally declares the expected shape of a step's
// output; currently advisory (surfaced in tooling), not enforced.
type OutputContract struct {
	Fields []OutputField `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// StepSpec is one node of a workflow's step graph.
type StepSpec struct {
	ID             string                 `yaml:"id" json:"id"`
	DependsOn      []string               `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	Run            string                 `yaml:"run" json:"run"`
	With           map[string]interface{} `yaml:"with,omitempty" json:"with,omitempty"`
	Body           interface{}            `yaml:"body,omitempty" json:"body,omitempty"`
	If             string                 `yaml:"if,omitempty" json:"if,omitempty"`
	Repeat         *RepeatSpec            `yaml:"repeat,omitempty" json:"repeat,omitempty"`
	OutputContract *OutputContract        `yaml:"output_contract,omitempty" json:"output_contract,omitempty"`
}

// WorkflowSpec is a parsed workflow manifest.
type WorkflowSpec struct {
	WorkflowID string               `yaml:"workflow_id" json:"workflow_id"`
	Name       string               `yaml:"name,omitempty" json:"name,omitempty"`
	Inputs     map[string]InputSpec `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Steps      []StepSpec           `yaml:"steps" json:"steps"`
}

// StepByID returns the step with the given id, if present.
func (w WorkflowSpec) StepByID(id string) (StepSpec, bool) {
	for _, s := range w.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return StepSpec{}, false
}

// StepStatus is the closed set of terminal states a StepResult can be in.
type StepStatus string

const (
	StatusSkipped   StepStatus = "skipped"
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
)

// StepResult is the outcome of running (or skipping) one step.
type StepResult struct {
	ID       string
	Status   StepStatus
	Output   interface{}
	Logs     []string
	Attempts int
}

// RunContext is mutable state owned by a single WorkflowRunner for the
// duration of one execution.
type RunContext struct {
	Inputs map[string]interface{}
	Env    map[string]string
	Steps  map[string]StepResult
}

// StepOutputsForTemplate exposes RunContext.Steps in the shape the
// template package expects: step id -> JSON output (not the full
// StepResult, which also carries logs/attempts irrelevant to ${{ }}
// references).
func (rc RunContext) StepOutputsForTemplate() map[string]interface{} {
	out := make(map[string]interface{}, len(rc.Steps))
	for id, result := range rc.Steps {
		out[id] = result.Output
	}
	return out
}
