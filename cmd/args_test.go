package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyValueArgs(t *testing.T) {
	args, err := parseKeyValueArgs([]string{"region=eu", "count=3", "force=true"})
	require.NoError(t, err)
	assert.Equal(t, "eu", args["region"])
	assert.Equal(t, float64(3), args["count"])
	assert.Equal(t, true, args["force"])
}

func TestParseKeyValueArgsRejectsBadArg(t *testing.T) {
	_, err := parseKeyValueArgs([]string{"noequals"})
	assert.Error(t, err)
}

func TestCoerceScalar(t *testing.T) {
	assert.Equal(t, true, coerceScalar("true"))
	assert.Equal(t, false, coerceScalar("false"))
	assert.Equal(t, float64(42), coerceScalar("42"))
	assert.Equal(t, "hello", coerceScalar("hello"))
}
