package workflow

import (
	"testing"

	"github.com/giantswarm/bench/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogueWithCommands(names ...string) *registry.CommandCatalogue {
	specs := make([]registry.CommandSpec, 0, len(names))
	for _, n := range names {
		specs = append(specs, registry.CommandSpec{
			Group: "apps",
			Name:  n,
			Backing: registry.Backing{Kind: registry.BackingHTTP, Method: "GET", PathTemplate: "/x"},
		})
	}
	return registry.NewCatalogue(specs)
}

func TestPlanOrdersByDependency(t *testing.T) {
	p := NewPlanner(catalogueWithCommands("apps a", "apps b", "apps c"))
	spec := WorkflowSpec{Steps: []StepSpec{
		{ID: "c", Run: "apps c", DependsOn: []string{"b"}},
		{ID: "a", Run: "apps a"},
		{ID: "b", Run: "apps b", DependsOn: []string{"a"}},
	}}

	ordered, err := p.Plan(spec)
	require.NoError(t, err)
	require.Len(t, ordered, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{ordered[0].ID, ordered[1].ID, ordered[2].ID})
}

func TestPlanBreaksTiesByManifestOrder(t *testing.T) {
	p := NewPlanner(catalogueWithCommands("apps a", "apps b"))
	spec := WorkflowSpec{Steps: []StepSpec{
		{ID: "second", Run: "apps b"},
		{ID: "first", Run: "apps a"},
	}}

	ordered, err := p.Plan(spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, []string{ordered[0].ID, ordered[1].ID})
}

func TestPlanDetectsCycle(t *testing.T) {
	p := NewPlanner(catalogueWithCommands("apps a", "apps b"))
	spec := WorkflowSpec{Steps: []StepSpec{
		{ID: "a", Run: "apps a", DependsOn: []string{"b"}},
		{ID: "b", Run: "apps b", DependsOn: []string{"a"}},
	}}

	_, err := p.Plan(spec)
	assert.Error(t, err)
}

func TestPlanRejectsUnknownDependency(t *testing.T) {
	p := NewPlanner(catalogueWithCommands("apps a"))
	spec := WorkflowSpec{Steps: []StepSpec{
		{ID: "a", Run: "apps a", DependsOn: []string{"ghost"}},
	}}

	_, err := p.Plan(spec)
	assert.Error(t, err)
}

func TestPlanRejectsUnresolvableCommand(t *testing.T) {
	p := NewPlanner(catalogueWithCommands("apps a"))
	spec := WorkflowSpec{Steps: []StepSpec{
		{ID: "a", Run: "apps missing"},
	}}

	_, err := p.Plan(spec)
	assert.Error(t, err)
}

func TestDependentsIncludesTransitiveChain(t *testing.T) {
	p := NewPlanner(catalogueWithCommands("apps a", "apps b", "apps c", "apps d"))
	spec := WorkflowSpec{Steps: []StepSpec{
		{ID: "a", Run: "apps a"},
		{ID: "b", Run: "apps b", DependsOn: []string{"a"}},
		{ID: "c", Run: "apps c", DependsOn: []string{"b"}},
		{ID: "d", Run: "apps d"},
	}}

	dependents := p.Dependents(spec)
	assert.ElementsMatch(t, []string{"b", "c"}, dependents["a"])
	assert.ElementsMatch(t, []string{"c"}, dependents["b"])
	assert.Empty(t, dependents["c"])
	assert.Empty(t, dependents["d"])
}

func TestPlanRejectsDuplicateStepID(t *testing.T) {
	p := NewPlanner(catalogueWithCommands("apps a"))
	spec := WorkflowSpec{Steps: []StepSpec{
		{ID: "a", Run: "apps a"},
		{ID: "a", Run: "apps a"},
	}}

	_, err := p.Plan(spec)
	assert.Error(t, err)
}
