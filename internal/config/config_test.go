// Package config tests verify the default-loaded configuration is valid
// and that env vars override the built-in defaults.
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetApplicationConfig_DefaultsAreValid(t *testing.T) {
	v, err := InitConfig()
	require.NoError(t, err)

	cfg, err := GetApplicationConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "fastrtc-go", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 48000, cfg.InputSampleRate)
	assert.Equal(t, 0.6, cfg.AlgoOptions.AudioChunkDurationSeconds)
	assert.False(t, cfg.StopwordsMode.Enabled)
}

func TestGetApplicationConfig_EnvOverridesDefault(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STOPWORDS__ENABLED", "true")

	v, err := InitConfig()
	require.NoError(t, err)

	cfg, err := GetApplicationConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.StopwordsMode.Enabled)
}
