package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
	Cache    int    `json:"cache_expiry"`
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "config.local.json5", LocalPath("config.json5"))
	require.Equal(t, "/etc/sam/config.local.json", LocalPath("/etc/sam/config.json"))
	require.Equal(t, "config.local", LocalPath("config"))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")

	_, err := ReadConfig[testConfig](path)
	require.ErrorIs(t, err, os.ErrNotExist)

	err = os.WriteFile(path, []byte(`{
		// shared defaults
		base_url: "https://sam.ahold.com/",
		username: "alice",
		cache_expiry: 3600,
	}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, testConfig{
		BaseUrl:  "https://sam.ahold.com/",
		Username: "alice",
		Cache:    3600,
	}, cfg)

	err = os.WriteFile(LocalPath(path), []byte(`{password: "hunter2", cache_expiry: 60}`), 0600)
	require.NoError(t, err)

	cfg, err = ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, testConfig{
		BaseUrl:  "https://sam.ahold.com/",
		Username: "alice",
		Password: "hunter2",
		Cache:    60,
	}, cfg)
}

func TestReadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json5")
	err := os.WriteFile(path, []byte(`{username: `), 0600)
	require.NoError(t, err)

	_, err = ReadConfig[testConfig](path)
	require.Error(t, err)
	require.NotErrorIs(t, err, os.ErrNotExist)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0700))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "samtimesheet.json5"),
		[]byte(`{username: "bob"}`),
		0600,
	))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	defer os.Chdir(wd)

	cfg, path, err := ReadRecursively[testConfig]("samtimesheet.json5")
	require.NoError(t, err)
	require.Equal(t, "bob", cfg.Username)
	require.Equal(t, "samtimesheet.json5", filepath.Base(path))
}
