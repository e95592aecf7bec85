package torrc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paritybit-setup/internal/config"
	"paritybit-setup/internal/host"
)

func proxyConfig(t *testing.T) config.ProxyConfig {
	cfg := config.Default().Provision.Proxy
	dir := t.TempDir()
	cfg.ConfigPath = filepath.Join(dir, "torrc")
	cfg.BackupPath = filepath.Join(dir, "torrc.orig")
	return cfg
}

func TestRenderDefaults(t *testing.T) {
	out, err := Render(config.Default().Provision.Proxy)
	require.NoError(t, err)
	assert.Equal(t, `SocksPort 9050
ControlPort 9051
CookieAuthentication 1
Log notice file /var/log/tor/notices.log
DataDirectory /var/lib/tor
`, string(out))
}

func TestApplySkipsWithoutProxy(t *testing.T) {
	cfg := proxyConfig(t)
	res, err := NewConfigurator(host.NewFake()).Apply(cfg)
	require.NoError(t, err)
	assert.False(t, res.Installed)
	_, err = os.Stat(cfg.ConfigPath)
	assert.True(t, os.IsNotExist(err))
}

func TestApplyFreshHost(t *testing.T) {
	cfg := proxyConfig(t)
	res, err := NewConfigurator(host.NewFake().AddBinary("tor")).Apply(cfg)
	require.NoError(t, err)
	assert.True(t, res.Installed)
	assert.False(t, res.BackedUp)
	assert.True(t, res.Changed)
	_, err = os.Stat(cfg.BackupPath)
	assert.True(t, os.IsNotExist(err))
}

/**
 * The distribution torrc is backed up exactly once
 * @description
 * - First run copies the original file
 * - Second run leaves the backup with the original content
 */
func TestApplyBacksUpOnce(t *testing.T) {
	cfg := proxyConfig(t)
	require.NoError(t, os.WriteFile(cfg.ConfigPath, []byte("# distribution default\n"), 0644))
	c := NewConfigurator(host.NewFake().AddBinary("tor"))

	res, err := c.Apply(cfg)
	require.NoError(t, err)
	assert.True(t, res.BackedUp)
	assert.True(t, res.Changed)

	res, err = c.Apply(cfg)
	require.NoError(t, err)
	assert.False(t, res.BackedUp)
	assert.False(t, res.Changed)

	backup, err := os.ReadFile(cfg.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, "# distribution default\n", string(backup))

	written, err := os.ReadFile(cfg.ConfigPath)
	require.NoError(t, err)
	want, _ := Render(cfg)
	assert.Equal(t, want, written)
}

func TestApplyKeepsExistingBackup(t *testing.T) {
	cfg := proxyConfig(t)
	require.NoError(t, os.WriteFile(cfg.BackupPath, []byte("older backup"), 0644))
	require.NoError(t, os.WriteFile(cfg.ConfigPath, []byte("current"), 0644))

	res, err := NewConfigurator(host.NewFake().AddBinary("tor")).Apply(cfg)
	require.NoError(t, err)
	assert.False(t, res.BackedUp)

	backup, err := os.ReadFile(cfg.BackupPath)
	require.NoError(t, err)
	assert.Equal(t, "older backup", string(backup))
}
