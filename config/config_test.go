package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseYAML(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	return ParseConfig(v)
}

func TestDefaultsSurvivePartialFile(t *testing.T) {
	c, err := parseYAML(t, `
api:
  baseurl: https://api.collabry.io
  fallbackbaseurl: https://api2.collabry.io
`)
	require.NoError(t, err)
	assert.Equal(t, "https://api.collabry.io", c.API.BaseURL)
	assert.Equal(t, "https://api2.collabry.io", c.API.FallbackBaseURL)
	assert.Equal(t, 20*time.Second, c.API.Timeout)
	assert.Equal(t, time.Second, c.WS.BackoffFloor)
	assert.Equal(t, 10*time.Second, c.WS.BackoffCeiling)
	assert.Equal(t, 100, c.Chat.HistoryLimit)
}

func TestInvalidBackoffBounds(t *testing.T) {
	_, err := parseYAML(t, `
api:
  baseurl: https://api.collabry.io
ws:
  backofffloor: 5s
  backoffceiling: 1s
`)
	assert.Error(t, err)
}
