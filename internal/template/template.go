// Package template implements the ${{ }} interpolation grammar used to
// resolve a StepSpec's "with"/"body" templates against the current
// RunContext before a step is dispatched.
package template

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/sprig/v3"
)

// exprPattern matches one ${{ expr }} segment, non-greedily so adjacent
// segments in the same string don't merge.
var exprPattern = regexp.MustCompile(`\$\{\{\s*(.*?)\s*\}\}`)

// funcCallPattern matches a single sprig helper invocation layered under
// the ${{ }} grammar, e.g. trim(inputs.name) or default(inputs.x, "none").
var funcCallPattern = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_]*)\(\s*(.*?)\s*\)$`)

// sprigFuncs is sprig's full text function map; every helper in it is
// callable from an expression, and no function family is filtered out.
var sprigFuncs = sprig.TxtFuncMap()

// Context is the read-only view of run state an expression resolves
// against: inputs bound at run start, the process environment snapshot,
// and the outputs of steps that have already completed.
type Context struct {
	Inputs map[string]interface{}
	Env    map[string]string
	Steps  map[string]interface{} // step id -> JSON output
}

// Interpolator resolves ${{ }} expressions against a Context.
type Interpolator struct{}

// New returns a ready-to-use Interpolator. It carries no state: every
// call is independent, so a single instance may be shared freely.
func New() *Interpolator {
	return &Interpolator{}
}

// EvaluateExpr evaluates a bare expression — no surrounding ${{ }}
// wrapper — as used by StepSpec.If and RepeatSpec.Until, returning its
// stringified result for truthy/falsey testing via IsTruthy. An empty
// expr is truthy-neutral: callers treat an absent if/until separately.
func (in *Interpolator) EvaluateExpr(expr string, ctx Context) (string, error) {
	val, err := in.evaluate(expr, ctx)
	if err != nil {
		return "", err
	}
	return stringify(val), nil
}

// Unresolved records one expression that could not be resolved, keeping
// the path to the owning JSON node so the UI can point at it.
type Unresolved struct {
	Path       string
	Expression string
	Reason     string
}

// Resolve walks doc recursively, rewriting every ${{ expr }} segment it
// finds in a string leaf. Unresolved expressions are left as an empty
// string in place and reported via the returned slice; resolution never
// aborts partway through the document.
func (in *Interpolator) Resolve(doc interface{}, ctx Context) (interface{}, []Unresolved) {
	var unresolved []Unresolved
	out := in.walk(doc, ctx, "$", &unresolved)
	return out, unresolved
}

func (in *Interpolator) walk(node interface{}, ctx Context, path string, unresolved *[]Unresolved) interface{} {
	switch v := node.(type) {
	case string:
		return in.resolveString(v, ctx, path, unresolved)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = in.walk(val, ctx, path+"."+k, unresolved)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = in.walk(val, ctx, fmt.Sprintf("%s[%d]", path, i), unresolved)
		}
		return out
	default:
		return v
	}
}

// resolveString rewrites every ${{ }} segment in s. A string that is
// exactly one expression (no surrounding literal text) resolves to the
// expression's native JSON value rather than a stringified one; mixed
// literal/expression strings always resolve to a string.
func (in *Interpolator) resolveString(s string, ctx Context, path string, unresolved *[]Unresolved) interface{} {
	matches := exprPattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(s) {
		expr := s[matches[0][2]:matches[0][3]]
		val, err := in.evaluate(expr, ctx)
		if err != nil {
			*unresolved = append(*unresolved, Unresolved{Path: path, Expression: expr, Reason: err.Error()})
			return ""
		}
		return val
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		expr := s[m[2]:m[3]]
		val, err := in.evaluate(expr, ctx)
		if err != nil {
			*unresolved = append(*unresolved, Unresolved{Path: path, Expression: expr, Reason: err.Error()})
		} else {
			b.WriteString(stringify(val))
		}
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}

// evaluate resolves a single expr (the content between ${{ and }}).
func (in *Interpolator) evaluate(expr string, ctx Context) (interface{}, error) {
	expr = strings.TrimSpace(expr)

	if m := funcCallPattern.FindStringSubmatch(expr); m != nil {
		if fn, ok := sprigFuncs[m[1]]; ok {
			return in.callSprigFunc(fn, m[1], splitArgs(m[2]), ctx)
		}
	}

	if lhs, rhs, ok := splitEquality(expr); ok {
		left, lerr := in.evaluatePath(lhs, ctx)
		right, rerr := in.evaluateOperand(rhs, ctx)
		if lerr != nil || rerr != nil {
			return "0", nil
		}
		if stringify(left) == stringify(right) {
			return "1", nil
		}
		return "0", nil
	}

	return in.evaluatePath(expr, ctx)
}

// splitEquality splits "a == b" on the top-level "==" operator, if
// present. There is no operator precedence to worry about: "==" is the
// only binary operator in the grammar.
func splitEquality(expr string) (lhs, rhs string, ok bool) {
	idx := strings.Index(expr, "==")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(expr[:idx]), strings.TrimSpace(expr[idx+2:]), true
}

// evaluateOperand resolves the right-hand side of an equality: either a
// quoted string literal (quotes stripped, trimmed) or another path
// expression.
func (in *Interpolator) evaluateOperand(operand string, ctx Context) (interface{}, error) {
	operand = strings.TrimSpace(operand)
	if len(operand) >= 2 {
		if (operand[0] == '"' && operand[len(operand)-1] == '"') ||
			(operand[0] == '\'' && operand[len(operand)-1] == '\'') {
			return strings.TrimSpace(operand[1 : len(operand)-1]), nil
		}
	}
	return in.evaluatePath(operand, ctx)
}

// evaluatePath resolves one of inputs.<name>[.path], steps.<id>.<path>,
// or env.<VAR>.
func (in *Interpolator) evaluatePath(expr string, ctx Context) (interface{}, error) {
	parts := strings.Split(expr, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("expression %q is not a recognized reference", expr)
	}

	switch parts[0] {
	case "inputs":
		val, ok := lookup(ctx.Inputs, parts[1:])
		if !ok {
			return nil, fmt.Errorf("input reference %q did not resolve", expr)
		}
		return val, nil
	case "env":
		name := strings.Join(parts[1:], ".")
		val, ok := ctx.Env[name]
		if !ok {
			return nil, fmt.Errorf("environment variable %q is not set", name)
		}
		return val, nil
	case "steps":
		if len(parts) < 3 {
			return nil, fmt.Errorf("expression %q must reference a step field", expr)
		}
		stepID := parts[1]
		output, ok := ctx.Steps[stepID]
		if !ok {
			return nil, fmt.Errorf("step %q has not produced output yet", stepID)
		}
		val, ok := lookup(output, parts[2:])
		if !ok {
			return nil, fmt.Errorf("path %q did not resolve against step %q output", expr, stepID)
		}
		return val, nil
	default:
		return nil, fmt.Errorf("expression %q does not start with inputs/env/steps", expr)
	}
}

// lookup walks root through a dotted path; array indices are accepted
// as plain decimal segments.
func lookup(root interface{}, path []string) (interface{}, bool) {
	cur := root
	for _, segment := range path {
		switch node := cur.(type) {
		case map[string]interface{}:
			val, ok := node[segment]
			if !ok {
				return nil, false
			}
			cur = val
		case []interface{}:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// IsTruthy implements the falsey set used by "if" conditions and repeat
// "until" expressions: "", "0", and "false" (case-insensitive) are
// falsey; everything else is truthy.
func IsTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false":
		return false
	default:
		return true
	}
}

// splitArgs splits a raw argument list on top-level commas: commas
// inside a quoted string literal don't split.
func splitArgs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var args []string
	var quote byte
	start := 0
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ',':
			args = append(args, strings.TrimSpace(raw[start:i]))
			start = i + 1
		}
	}
	args = append(args, strings.TrimSpace(raw[start:]))
	return args
}

// callSprigFunc evaluates each argument against ctx, then invokes the
// named sprig helper via reflection (sprig's funcs have varied concrete
// signatures, so no static call site exists). Every argument is passed
// as its stringified form; a parameter of any other concrete type
// receives its zero value.
func (in *Interpolator) callSprigFunc(fn interface{}, name string, rawArgs []string, ctx Context) (interface{}, error) {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("%q is not callable", name)
	}

	args := make([]reflect.Value, 0, len(rawArgs))
	for _, raw := range rawArgs {
		resolved, err := in.evaluateOperand(raw, ctx)
		if err != nil {
			return nil, fmt.Errorf("argument to %q: %w", name, err)
		}

		var want reflect.Type
		if fnType.IsVariadic() {
			want = fnType.In(fnType.NumIn() - 1).Elem()
		} else if len(args) < fnType.NumIn() {
			want = fnType.In(len(args))
		} else {
			return nil, fmt.Errorf("too many arguments to %q", name)
		}

		args = append(args, coerceReflectArg(resolved, want))
	}

	results := fnVal.Call(args)
	if len(results) == 0 {
		return "", nil
	}
	last := results[len(results)-1]
	if last.Type().Implements(errType) && !last.IsNil() {
		return nil, fmt.Errorf("%q: %v", name, last.Interface())
	}
	return results[0].Interface(), nil
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

func coerceReflectArg(v interface{}, want reflect.Type) reflect.Value {
	if want == nil {
		return reflect.ValueOf(stringify(v))
	}
	rv := reflect.ValueOf(stringify(v))
	if rv.Type().AssignableTo(want) {
		return rv
	}
	if want.Kind() == reflect.Interface {
		return reflect.ValueOf(v)
	}
	return reflect.Zero(want)
}
