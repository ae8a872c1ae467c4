package agent

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfslender/Media-Usage-Checker/internal/api"
	"github.com/wolfslender/Media-Usage-Checker/internal/config"
	"github.com/wolfslender/Media-Usage-Checker/pkg/log"
	"github.com/wolfslender/Media-Usage-Checker/pkg/wordpress/wptest"
)

func TestSetupServicesResolvesFromContainer(t *testing.T) {
	uploads := t.TempDir()
	site := wptest.New(t, uploads)

	cfg := config.GetDefault()
	cfg.Log.Level = "error"
	cfg.WordPress.Driver = "sqlite"
	cfg.WordPress.DSN = site.Path
	cfg.WordPress.UploadsDir = uploads
	cfg.State.SQLite.Path = filepath.Join(t.TempDir(), "muc.db")
	cfg.Cache.Type = "none"
	cfg.API.Secret = "secret"
	require.NoError(t, config.Validate(&cfg))

	ctx := context.Background()
	agent := NewAgent(&cfg)
	require.NoError(t, agent.setupServices(ctx))
	t.Cleanup(func() { assert.NoError(t, agent.services.Close()) })

	logger, err := log.FromContainer(ctx, agent.sc, "agent")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	walker, err := resolve[api.Walker](ctx, agent.sc)
	require.NoError(t, err)
	assert.Same(t, agent.services.Walker, walker)

	checker, err := resolve[api.Checker](ctx, agent.sc)
	require.NoError(t, err)
	assert.Same(t, agent.services.Scanner, checker)

	cleaner, err := resolve[api.Cleaner](ctx, agent.sc)
	require.NoError(t, err)
	assert.Same(t, agent.services.Cleaner, cleaner)

	server, err := agent.newServer(ctx, walker, logger)
	require.NoError(t, err)
	assert.NotNil(t, server.Handler())
}

func TestResolveUnregistered(t *testing.T) {
	agent := NewAgent(&config.BaseConfig{})

	_, err := resolve[api.Cleaner](context.Background(), agent.sc)
	assert.Error(t, err)
}
