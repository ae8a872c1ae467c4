package server

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfslender/Media-Usage-Checker/internal/config"
	"gopkg.in/yaml.v3"
)

func TestConfigGenerate(t *testing.T) {
	dir := t.TempDir()

	cmd := NewConfigCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"generate", "--output", dir})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	var cfg config.BaseConfig
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	defaults := config.GetDefault()
	assert.Equal(t, defaults.WordPress, cfg.WordPress)
	assert.Equal(t, defaults.Scanner.BatchSize, cfg.Scanner.BatchSize)
	assert.Equal(t, defaults.Storage.AllowedExtensions, cfg.Storage.AllowedExtensions)
	require.NoError(t, config.Validate(&cfg))

	cmd = NewConfigCommand()
	out.Reset()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"generate", "--output", dir})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Skipping")
}
