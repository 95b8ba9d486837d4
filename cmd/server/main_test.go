package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prudhvinik1/equiptrack/internal/config"
	"github.com/prudhvinik1/equiptrack/internal/repositories"
	"github.com/prudhvinik1/equiptrack/internal/session"
	"github.com/prudhvinik1/equiptrack/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestRun_StorageFailureReturnsError tests that a broken backend is logged and returned
func TestRun_StorageFailureReturnsError(t *testing.T) {
	// ARRANGE: a redis address that refuses connections
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Default()
	cfg.StorageBackend = config.BackendRedis
	cfg.RedisURL = "redis://" + addr + "/0"
	core, logs := observer.New(zapcore.InfoLevel)

	// ACT
	err := run(cfg, zap.New(core))

	// ASSERT
	require.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("Failed to initialise storage").Len())
	assert.Equal(t, 2, logs.FilterMessage("Using built-in default; set it for production").Len())
}

func TestNewEquipmentRepository_File(t *testing.T) {
	cfg := config.Default()
	cfg.EquipmentFile = filepath.Join(t.TempDir(), "equipment_data.json")

	repo, closeStorage, err := newEquipmentRepository(context.Background(), cfg, zap.NewNop())

	require.NoError(t, err)
	defer closeStorage()
	assert.IsType(t, &repositories.FileEquipmentRepository{}, repo)
}

func TestNewEquipmentRepository_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.StorageBackend = config.BackendRedis
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	repo, closeStorage, err := newEquipmentRepository(context.Background(), cfg, zap.NewNop())

	require.NoError(t, err)
	defer closeStorage()
	require.NoError(t, repo.Save(context.Background(), []byte(`{}`)))
	assert.True(t, mr.Exists(cfg.RedisKey))
}

func TestNewVerifier(t *testing.T) {
	cfg := config.Default()
	assert.IsType(t, &session.StaticVerifier{}, newVerifier(cfg))
	assert.True(t, newVerifier(cfg).Verify("if", "parola"))

	hash, err := utils.HashPassword("s3cret-pass")
	require.NoError(t, err)
	cfg.AuthPasswordHash = hash

	verifier := newVerifier(cfg)
	assert.IsType(t, &session.BcryptVerifier{}, verifier)
	assert.True(t, verifier.Verify("if", "s3cret-pass"))
	assert.False(t, verifier.Verify("if", "parola"))
}
