package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "test.db"
	s.Search.DefaultPageSize = 20
	s.Search.MaxPageSize = 100
	s.Search.DefaultWindowHours = 72
	s.Stats.GroupByLimit = 2000
	return s
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsRejectsDualOutputs(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Output.MySQL.Enabled = true
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettingsRejectsNoOutput(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Output.SQLite.Enabled = false
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettingsRejectsBadPaging(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Search.MaxPageSize = 5
	assert.Error(t, ValidateSettings(s))

	s = validSettings()
	s.Search.DefaultPageSize = 0
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettingsRejectsEmptySQLitePath(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Output.SQLite.Path = ""
	assert.Error(t, ValidateSettings(s))
}
