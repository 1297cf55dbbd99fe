package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseCtx() Context {
	return Context{
		Inputs: map[string]interface{}{
			"region": "eu-west-1",
			"count":  float64(3),
		},
		Env: map[string]string{"HOME": "/home/op"},
		Steps: map[string]interface{}{
			"fetch": map[string]interface{}{
				"status": "ok",
				"items":  []interface{}{"a", "b"},
			},
		},
	}
}

func TestResolveInputsPath(t *testing.T) {
	in := New()
	out, unresolved := in.Resolve("${{ inputs.region }}", baseCtx())
	assert.Empty(t, unresolved)
	assert.Equal(t, "eu-west-1", out)
}

func TestResolveStepsPath(t *testing.T) {
	in := New()
	out, unresolved := in.Resolve("${{ steps.fetch.status }}", baseCtx())
	assert.Empty(t, unresolved)
	assert.Equal(t, "ok", out)
}

func TestResolveStepsArrayIndex(t *testing.T) {
	in := New()
	out, unresolved := in.Resolve("${{ steps.fetch.items.1 }}", baseCtx())
	assert.Empty(t, unresolved)
	assert.Equal(t, "b", out)
}

func TestResolveEnvPath(t *testing.T) {
	in := New()
	out, unresolved := in.Resolve("${{ env.HOME }}", baseCtx())
	assert.Empty(t, unresolved)
	assert.Equal(t, "/home/op", out)
}

func TestResolveEquality(t *testing.T) {
	in := New()

	out, unresolved := in.Resolve(`${{ steps.fetch.status == "ok" }}`, baseCtx())
	assert.Empty(t, unresolved)
	assert.Equal(t, "1", out)

	out, unresolved = in.Resolve(`${{ steps.fetch.status == "failed" }}`, baseCtx())
	assert.Empty(t, unresolved)
	assert.Equal(t, "0", out)
}

func TestResolveEqualityStripsQuotesAndTrims(t *testing.T) {
	in := New()
	out, _ := in.Resolve(`${{ inputs.region == "  eu-west-1  " }}`, baseCtx())
	assert.Equal(t, "1", out)
}

func TestResolveUnresolvedIsReportedNotSubstituted(t *testing.T) {
	in := New()
	out, unresolved := in.Resolve("${{ inputs.missing }}", baseCtx())
	assert.Equal(t, "", out)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "inputs.missing", unresolved[0].Expression)
}

func TestResolveMixedLiteralAndExpression(t *testing.T) {
	in := New()
	out, unresolved := in.Resolve("region=${{ inputs.region }}!", baseCtx())
	assert.Empty(t, unresolved)
	assert.Equal(t, "region=eu-west-1!", out)
}

func TestResolveWalksObjectsAndArrays(t *testing.T) {
	in := New()
	doc := map[string]interface{}{
		"a": "${{ inputs.region }}",
		"b": []interface{}{"${{ env.HOME }}", "literal"},
	}
	out, unresolved := in.Resolve(doc, baseCtx())
	assert.Empty(t, unresolved)

	m := out.(map[string]interface{})
	assert.Equal(t, "eu-west-1", m["a"])
	arr := m["b"].([]interface{})
	assert.Equal(t, "/home/op", arr[0])
	assert.Equal(t, "literal", arr[1])
}

func TestResolveSprigHelper(t *testing.T) {
	in := New()
	out, unresolved := in.Resolve(`${{ trim(inputs.region) }}`, Context{
		Inputs: map[string]interface{}{"region": "  eu-west-1  "},
	})
	assert.Empty(t, unresolved)
	assert.Equal(t, "eu-west-1", out)
}

func TestResolveSprigUpper(t *testing.T) {
	in := New()
	out, unresolved := in.Resolve(`${{ upper(inputs.region) }}`, baseCtx())
	assert.Empty(t, unresolved)
	assert.Equal(t, "EU-WEST-1", out)
}

func TestIsTruthy(t *testing.T) {
	assert.False(t, IsTruthy(""))
	assert.False(t, IsTruthy("0"))
	assert.False(t, IsTruthy("false"))
	assert.False(t, IsTruthy("FALSE"))
	assert.True(t, IsTruthy("1"))
	assert.True(t, IsTruthy("yes"))
}
