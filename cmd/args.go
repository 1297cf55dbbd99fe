package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/giantswarm/bench/internal/apperr"
)

// parseKeyValueArgs turns a "key=value" argument list into the flattened
// map CommandDispatcher expects, coercing scalars the same way the
// interactive workbench does so "call" behaves identically from a
// script or a REPL prompt.
func parseKeyValueArgs(args []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(args))
	for _, a := range args {
		parts := strings.SplitN(a, "=", 2)
		if len(parts) != 2 {
			return nil, apperr.Validationf("cmd", "bad_arg", "argument %q must be key=value", a)
		}
		out[parts[0]] = coerceScalar(parts[1])
	}
	return out, nil
}

func workflowNotFoundErr(id string) error {
	return apperr.NotFoundf("workflow", id)
}

func coerceScalar(v string) interface{} {
	if v == "true" {
		return true
	}
	if v == "false" {
		return false
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return n
	}
	return v
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

func printJSON(out io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var pretty interface{}
	if err := json.Unmarshal(raw, &pretty); err != nil {
		_, err := fmt.Fprintln(out, string(raw))
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(pretty)
}
