package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeatureWorkflowsEnabled(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"no":    false,
		"1":     true,
		"true":  true,
		"True":  true,
		"TRUE":  true,
	}
	for raw, want := range cases {
		t.Setenv(EnvFeatureWorkflows, raw)
		assert.Equal(t, want, FeatureWorkflowsEnabled(), "env value %q", raw)
	}
}
