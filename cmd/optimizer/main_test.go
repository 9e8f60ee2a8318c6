package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walpredict/stock-optimizer/pkg/rest"
)

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := loadSettings(viper.New(), nil)
	require.NoError(t, err)
	assert.False(t, s.Statefull)
	assert.Empty(t, s.OptimizerSpec)
	assert.Equal(t, rest.DefaultAllowedOrigins, s.AllowedOrigins)
	assert.Zero(t, s.Concurrency)
}

func TestLoadSettings_Flags(t *testing.T) {
	s, err := loadSettings(viper.New(), []string{"-F", "--optimizer.spec", "spec.yaml", "--batch.concurrency", "4"})
	require.NoError(t, err)
	assert.True(t, s.Statefull)
	assert.Equal(t, "spec.yaml", s.OptimizerSpec)
	assert.Equal(t, 4, s.Concurrency)
}

func TestLoadSettings_Env(t *testing.T) {
	t.Setenv("STOCK_OPTIMIZER_OPTIMIZER_SPEC", "/etc/optimizer.yaml")
	t.Setenv("STOCK_OPTIMIZER_STATEFULL", "true")

	s, err := loadSettings(viper.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, "/etc/optimizer.yaml", s.OptimizerSpec)
	assert.True(t, s.Statefull)
}

func TestLoadSettings_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch:\n  concurrency: 2\n"), 0o600))

	s, err := loadSettings(viper.New(), []string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Concurrency)

	_, err = loadSettings(viper.New(), []string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestLoadSettings_BadFlag(t *testing.T) {
	_, err := loadSettings(viper.New(), []string{"--no-such-flag"})
	assert.Error(t, err)
}
