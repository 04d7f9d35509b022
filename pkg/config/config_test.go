package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "408920.KQ", c.Engine.DefaultSymbol)
	assert.Equal(t, "extended", c.Engine.FeatureSet)
	assert.Equal(t, "shallowEnsembleA", c.Engine.Classifier)
	assert.Equal(t, int64(42), c.Engine.Seed)
	assert.Equal(t, 15, c.Engine.MinSamples)
	assert.Equal(t, 14, c.Engine.RSIPeriod)
	assert.Equal(t, 20, c.Engine.BandWindow)
	assert.True(t, c.Engine.SaturateZeroLoss)
	assert.Equal(t, time.Hour, c.Cache.TTL)
	assert.Equal(t, 0.3, c.Policy.AvoidBelow)
	assert.Equal(t, 0.6, c.Policy.OpportunityAbove)
	assert.Equal(t, 1.02, c.Policy.NearSupportFactor)
	assert.Equal(t, "yahoo", c.Source.Kind)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
engine:
  feature_set: minimal
  classifier: shallowEnsembleB
  saturate_zero_loss: false
policy:
  avoid_below: 0.25
cache:
  ttl: 30m
source:
  names:
    408920.KQ: Messe Esang
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "minimal", c.Engine.FeatureSet)
	assert.Equal(t, "shallowEnsembleB", c.Engine.Classifier)
	assert.False(t, c.Engine.SaturateZeroLoss)
	assert.Equal(t, 0.25, c.Policy.AvoidBelow)
	assert.Equal(t, 0.6, c.Policy.OpportunityAbove, "untouched keys keep defaults")
	assert.Equal(t, 30*time.Minute, c.Cache.TTL)
	assert.Equal(t, "Messe Esang", c.Source.Names["408920.KQ"])
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"feature set":  "engine:\n  feature_set: full\n",
		"classifier":   "engine:\n  classifier: xgb\n",
		"policy order": "policy:\n  avoid_below: 0.7\n",
		"cache":        "cache:\n  backend: memcached\n",
		"kafka":        "kafka:\n  enabled: true\n",
		"history":      "engine:\n  history_start: 01/01/2023\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SIGNALDESK_PORT", "9090")
	t.Setenv("SIGNALDESK_SOURCE", "csv")
	t.Setenv("SIGNALDESK_WARMUP_SYMBOLS", "AAA, BBB ,")
	t.Setenv("SIGNALDESK_CACHE_TTL", "15m")

	c, err := LoadWithEnv("")
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "csv", c.Source.Kind)
	assert.Equal(t, []string{"AAA", "BBB"}, c.Warmup.Symbols)
	assert.Equal(t, 15*time.Minute, c.Cache.TTL)
}

func TestEnvOverrideBadPort(t *testing.T) {
	t.Setenv("SIGNALDESK_PORT", "http")
	_, err := LoadWithEnv("")
	assert.Error(t, err)
}
