package repl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/giantswarm/bench/internal/registry"
)

func TestBuildCompleterIncludesCatalogueCommands(t *testing.T) {
	r := newTestREPL(t)
	completer := r.buildCompleter()
	assert.NotNil(t, completer)

	names, _ := completer.Do([]rune("call "), len("call "))
	found := false
	for _, n := range names {
		if string(n) == "apps " {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCommandNameItemsBuildsOneItemPerCommand(t *testing.T) {
	catalogue := registry.NewCatalogue([]registry.CommandSpec{
		{Group: "apps", Name: "apps list"},
	})
	r := &REPL{catalogue: catalogue}
	items := r.commandNameItems()
	assert.Len(t, items, 1)
}
