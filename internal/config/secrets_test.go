package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	values map[string]string
	err    error
}

func (f fakeSecrets) Resolve(name string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.values[name], nil
}

func TestInterpolateResolvesEnvPlaceholder(t *testing.T) {
	t.Setenv("BENCH_TEST_VAR", "hello")
	got, err := interpolate("${env:BENCH_TEST_VAR}", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestInterpolateFailsOnMissingEnv(t *testing.T) {
	_, err := interpolate("${env:BENCH_DOES_NOT_EXIST}", nil, nil)
	assert.Error(t, err)
}

func TestInterpolateResolvesSecretPlaceholder(t *testing.T) {
	secrets := fakeSecrets{values: map[string]string{"api-token": "s3cr3t"}}
	got, err := interpolate("${secret:api-token}", secrets, nil)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", got)
}

func TestInterpolateLeavesPlainStringsUntouched(t *testing.T) {
	got, err := interpolate("plain-value", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "plain-value", got)
}

func TestInterpolateRecordsTokenForDetokenize(t *testing.T) {
	t.Setenv("BENCH_TEST_VAR", "hello")
	tokens := tokenMap{}
	got, err := interpolate("${env:BENCH_TEST_VAR}", nil, tokens)
	require.NoError(t, err)
	assert.Equal(t, "${env:BENCH_TEST_VAR}", detokenize(got, tokens))
}

func TestInterpolateFailsWhenSecretResolverErrors(t *testing.T) {
	secrets := fakeSecrets{err: assertErr}
	_, err := interpolate("${secret:x}", secrets, nil)
	assert.Error(t, err)
}

var assertErr = simpleErr("keychain unavailable")

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
