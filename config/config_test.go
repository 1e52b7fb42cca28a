package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talondb/config"
)

func TestDefault_PassesValidation(t *testing.T) {
	cfg := config.Default()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsNonPositivePoolSize(t *testing.T) {
	cfg := config.Default()
	cfg.PoolSize = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadKeyWidth(t *testing.T) {
	cfg := config.Default()
	cfg.KeyWidth = 3
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsTooSmallFanouts(t *testing.T) {
	cfg := config.Default()
	cfg.LeafMaxSize = 2
	assert.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.InternalMaxSize = 2
	assert.Error(t, cfg.Validate())
}

func TestLoad_OverlaysTOMLOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	require.NoError(t, os.WriteFile(path, []byte("pool_size = 128\nleaf_max_size = 8\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 128, cfg.PoolSize)
	assert.Equal(t, 8, cfg.LeafMaxSize)
	// page_size was not set in the file, so the default should survive.
	assert.Equal(t, config.Default().PageSize, cfg.PageSize)
}

func TestLoad_RejectsInvalidOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("pool_size = 0\n"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestMinSizeHelpers_UseCeilDivision(t *testing.T) {
	cfg := config.Default()
	cfg.LeafMaxSize = 5
	cfg.InternalMaxSize = 5
	assert.Equal(t, 2, cfg.LeafMinSize())
	assert.Equal(t, 3, cfg.InternalMinSize())
}
