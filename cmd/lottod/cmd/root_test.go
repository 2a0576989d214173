package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"onchainlotto/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInitWritesConfig(t *testing.T) {
	home := t.TempDir()

	out, err := execute(t, "init", "--home", home)
	require.NoError(t, err)
	require.Contains(t, out, config.Path(home))
	require.FileExists(t, config.Path(home))

	_, err = execute(t, "init", "--home", home)
	require.Error(t, err)

	_, err = execute(t, "init", "--home", home, "--overwrite")
	require.NoError(t, err)
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	home := t.TempDir()
	_, err := config.WriteDefault(home, false)
	require.NoError(t, err)

	cmd := newStartCmd()
	cmd.Flags().String(flagHome, home, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--abci.addr", "tcp://0.0.0.0:36658", "--log.format", "json"}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	require.Equal(t, home, cfg.Home)
	require.Equal(t, "tcp://0.0.0.0:36658", cfg.ABCI.Addr)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, config.Default().DB.Backend, cfg.DB.Backend)
}

func TestHistoryOnEmptyDatabase(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "data"), 0o755))

	out, err := execute(t, "history", "--home", home, "--pool", "3")
	require.NoError(t, err)
	require.Contains(t, out, "ROUND")
	require.Contains(t, out, "total paid out: 0")
}

func TestLoadConfigRejectsBadFlag(t *testing.T) {
	home := t.TempDir()
	cmd := newStartCmd()
	cmd.Flags().String(flagHome, home, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--abci.transport", "udp"}))

	_, err := loadConfig(cmd)
	require.ErrorContains(t, err, "abci.transport")
}
