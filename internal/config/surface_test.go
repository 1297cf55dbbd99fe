package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPreferencesDefaultsWhenMissing(t *testing.T) {
	s := New(t.TempDir(), nil)
	prefs, err := s.LoadPreferences()
	require.NoError(t, err)
	assert.Equal(t, Preferences{}, prefs)
}

func TestSaveThenLoadPreferencesRoundTrips(t *testing.T) {
	s := New(t.TempDir(), nil)
	require.NoError(t, s.SavePreferences(Preferences{Theme: "dark", Editor: "vim"}))

	prefs, err := s.LoadPreferences()
	require.NoError(t, err)
	assert.Equal(t, "dark", prefs.Theme)
	assert.Equal(t, "vim", prefs.Editor)
}

func TestLoadRegistrySelectionDefaultsToDefaultSlug(t *testing.T) {
	s := New(t.TempDir(), nil)
	sel, err := s.LoadRegistrySelection()
	require.NoError(t, err)
	assert.Equal(t, "default", sel.ActiveCatalogSlug)
}

func TestSaveThenLoadRegistrySelectionRoundTrips(t *testing.T) {
	s := New(t.TempDir(), nil)
	require.NoError(t, s.SaveRegistrySelection(RegistrySelection{ActiveCatalogSlug: "staging"}))

	sel, err := s.LoadRegistrySelection()
	require.NoError(t, err)
	assert.Equal(t, "staging", sel.ActiveCatalogSlug)
}

func TestLoadWorkflowsParsesYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "workflows", "deploy.yaml"), `
workflow_id: deploy
name: Deploy app
steps:
  - id: build
    run: "apps build"
`)
	writeFile(t, filepath.Join(dir, "workflows", "rollback.json"), `{
		"workflow_id": "rollback",
		"steps": [{"id": "revert", "run": "apps revert"}]
	}`)

	s := New(dir, nil)
	specs, errs := s.LoadWorkflows()
	assert.Empty(t, errs)
	require.Len(t, specs, 2)

	ids := map[string]bool{}
	for _, spec := range specs {
		ids[spec.WorkflowID] = true
	}
	assert.True(t, ids["deploy"])
	assert.True(t, ids["rollback"])
}

func TestLoadWorkflowsCollectsParseErrorsWithoutAborting(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "workflows", "broken.yaml"), "not: [valid: yaml")
	writeFile(t, filepath.Join(dir, "workflows", "ok.yaml"), "workflow_id: ok\nsteps: []\n")

	s := New(dir, nil)
	specs, errs := s.LoadWorkflows()
	assert.Len(t, errs, 1)
	require.Len(t, specs, 1)
	assert.Equal(t, "ok", specs[0].WorkflowID)
}

func TestEnvTokenSourceReadsAPIKeyEnvVar(t *testing.T) {
	t.Setenv(EnvAPIKey, "tok-abc")
	token, err := EnvTokenSource{}.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)
}
