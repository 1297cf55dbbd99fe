package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestAddCommonFlagsRegistersDefaults(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	var flags CommandFlags
	AddCommonFlags(cmd, &flags)

	assert.NotNil(t, cmd.Flags().Lookup("output"))
	assert.NotNil(t, cmd.Flags().Lookup("no-headers"))
	assert.NotNil(t, cmd.Flags().Lookup("quiet"))
	assert.NotNil(t, cmd.Flags().Lookup("debug"))
	assert.NotNil(t, cmd.Flags().Lookup("config"))
	assert.NotNil(t, cmd.Flags().Lookup("endpoint"))
	assert.Equal(t, "table", flags.OutputFormat)
}

func TestValidateOutputFormat(t *testing.T) {
	assert.NoError(t, ValidateOutputFormat("table"))
	assert.NoError(t, ValidateOutputFormat("wide"))
	assert.NoError(t, ValidateOutputFormat("json"))
	assert.NoError(t, ValidateOutputFormat("yaml"))
	assert.Error(t, ValidateOutputFormat("xml"))
}
