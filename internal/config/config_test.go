package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, Default, cfg)
}

func TestLoadOverlaysDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"ops-listen-addr": ":9000",
		"persistence-dsn": "./var/test.db",
		"nats-address": "nats://localhost:4222",
		"reactor-base-tick-ms": 250
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.OpsListenAddr)
	assert.Equal(t, "./var/test.db", cfg.PersistenceDSN)
	assert.Equal(t, "nats://localhost:4222", cfg.NatsAddress)
	assert.Equal(t, 250, cfg.ReactorBaseTickMS)
	// untouched fields keep their defaults
	assert.Equal(t, Default.MetricsWindows, cfg.MetricsWindows)
	assert.Equal(t, Default.NatsSubject, cfg.NatsSubject)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"bogus-field": true}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsWrongType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"reactor-base-tick-ms": "fast"}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
