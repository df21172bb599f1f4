package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:    AppConfig{Environment: "development"},
			Logger: LoggerConfig{Level: "info"},
			Data:   DataConfig{BasePath: "/tmp/convomark", CapacityBytes: 1024},
			Reconcile: ReconcileConfig{
				IdleWindow:       300 * time.Millisecond,
				SubscribeCeiling: 30 * time.Second,
			},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("unknown environment rejected", func(t *testing.T) {
		cfg := valid()
		cfg.App.Environment = "testing"
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown log level rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Logger.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty data path rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Data.BasePath = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive capacity rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Data.CapacityBytes = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("non-positive idle window rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Reconcile.IdleWindow = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestExpandPath(t *testing.T) {
	t.Run("empty uses default", func(t *testing.T) {
		got, err := expandPath("", "/default/path")
		require.NoError(t, err)
		assert.Equal(t, "/default/path", got)
	})

	t.Run("tilde expands to home", func(t *testing.T) {
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		got, err := expandPath("~/convomark", "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "convomark"), got)
	})

	t.Run("relative becomes absolute", func(t *testing.T) {
		got, err := expandPath("data", "")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got))
	})
}

func TestExpandDerivedPaths(t *testing.T) {
	cfg := &Config{Data: DataConfig{BasePath: "/var/lib/convomark"}}
	cfg.expandDerivedPaths()

	assert.Equal(t, "/var/lib/convomark/convomark.sock", cfg.RPC.SocketPath)
	assert.Equal(t, "/var/lib/convomark/import", cfg.Import.WatchDir)

	// Explicit values survive expansion.
	cfg2 := &Config{
		Data:   DataConfig{BasePath: "/var/lib/convomark"},
		RPC:    RPCConfig{SocketPath: "/run/cm.sock"},
		Import: ImportConfig{WatchDir: "/srv/drop"},
	}
	cfg2.expandDerivedPaths()
	assert.Equal(t, "/run/cm.sock", cfg2.RPC.SocketPath)
	assert.Equal(t, "/srv/drop", cfg2.Import.WatchDir)
}

func TestGetConfigValue(t *testing.T) {
	t.Setenv("CONVOMARK_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "CONVOMARK_TEST_KEY", "dflt"))
	assert.Equal(t, "from-env", getConfigValue("", "CONVOMARK_TEST_KEY", "dflt"))
	assert.Equal(t, "dflt", getConfigValue("", "CONVOMARK_TEST_MISSING", "dflt"))
}

func TestGetBoolConfigValue(t *testing.T) {
	t.Setenv("CONVOMARK_TEST_BOOL", "yes")
	assert.True(t, getBoolConfigValue("", "CONVOMARK_TEST_BOOL", false))

	t.Setenv("CONVOMARK_TEST_BOOL", "nope")
	assert.False(t, getBoolConfigValue("", "CONVOMARK_TEST_BOOL", true))

	assert.True(t, getBoolConfigValue("", "CONVOMARK_TEST_BOOL_MISSING", true))
}

func TestParseDurationValue(t *testing.T) {
	got, err := parseDurationValue("", "CONVOMARK_TEST_DUR_MISSING", "250ms")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, got)

	t.Setenv("CONVOMARK_TEST_DUR", "oops")
	_, err = parseDurationValue("", "CONVOMARK_TEST_DUR", "250ms")
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "# comment\nCONVOMARK_ENVFILE_A=hello\nCONVOMARK_ENVFILE_B=\"quoted\"\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	t.Setenv("CONVOMARK_ENVFILE_A", "")
	t.Setenv("CONVOMARK_ENVFILE_B", "")
	os.Unsetenv("CONVOMARK_ENVFILE_A")
	os.Unsetenv("CONVOMARK_ENVFILE_B")

	require.NoError(t, loadEnvFile(envPath))
	assert.Equal(t, "hello", os.Getenv("CONVOMARK_ENVFILE_A"))
	assert.Equal(t, "quoted", os.Getenv("CONVOMARK_ENVFILE_B"))
}
