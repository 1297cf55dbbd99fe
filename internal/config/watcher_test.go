package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchFiresOnWorkflowFileChange(t *testing.T) {
	s := New(t.TempDir(), nil)
	require.NoError(t, os.MkdirAll(s.workflowsDir(), 0o755))

	events := make(chan ChangeEvent, 4)
	w, err := s.Watch(events)
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(s.workflowsDir(), "deploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workflow_id: deploy\n"), 0o644))

	select {
	case ev := <-events:
		assert.Equal(t, path, ev.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}
