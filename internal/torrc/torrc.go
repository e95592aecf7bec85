package torrc

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"text/template"

	"paritybit-setup/internal/config"
	"paritybit-setup/internal/host"
	"paritybit-setup/internal/logger"
	"paritybit-setup/internal/utils"
)

var torrcTemplate = template.Must(template.New("torrc").Parse(`SocksPort {{.SocksPort}}
ControlPort {{.ControlPort}}
CookieAuthentication 1
Log notice file {{.LogPath}}
DataDirectory {{.DataDir}}
`))

// Render returns the proxy configuration file for cfg. Equal inputs give equal bytes.
func Render(cfg config.ProxyConfig) ([]byte, error) {
	var buf bytes.Buffer
	if err := torrcTemplate.Execute(&buf, cfg); err != nil {
		return nil, fmt.Errorf("render torrc: %w", err)
	}
	return buf.Bytes(), nil
}

/**
 * Result of Apply
 * @property {bool} Installed - the proxy binary was found, nothing else happens otherwise
 * @property {bool} BackedUp - the pre-existing file was copied to the backup path by this call
 * @property {bool} Changed - the written content differs from what was there before
 */
type Result struct {
	Installed bool
	BackedUp  bool
	Changed   bool
}

type Configurator struct {
	finder host.PathFinder
}

func NewConfigurator(finder host.PathFinder) *Configurator {
	return &Configurator{finder: finder}
}

/**
 * Write the proxy configuration if the proxy is installed
 * @param {config.ProxyConfig} cfg - proxy settings
 * @returns {(Result, error)} error on backup or write failure
 * @description
 * - The existing file is backed up once, an existing backup is never overwritten
 * - The configuration is written atomically on every run
 */
func (c *Configurator) Apply(cfg config.ProxyConfig) (Result, error) {
	var res Result
	if _, err := c.finder.LookPath(cfg.Binary); err != nil {
		logger.Infof("Proxy [%s] not installed, configuration skipped", cfg.Binary)
		return res, nil
	}
	res.Installed = true

	content, err := Render(cfg)
	if err != nil {
		return res, err
	}

	previous, err := os.ReadFile(cfg.ConfigPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		previous = nil
	case err != nil:
		return res, fmt.Errorf("read %s: %w", cfg.ConfigPath, err)
	case !utils.FileExists(cfg.BackupPath):
		if err := utils.CopyFile(cfg.ConfigPath, cfg.BackupPath, 0644); err != nil {
			return res, fmt.Errorf("backup %s: %w", cfg.ConfigPath, err)
		}
		res.BackedUp = true
		logger.Infof("Proxy configuration [%s] backed up to %s", cfg.ConfigPath, cfg.BackupPath)
	}

	res.Changed = !bytes.Equal(previous, content)
	if err := utils.WriteFileAtomic(cfg.ConfigPath, content, 0644); err != nil {
		return res, err
	}
	logger.Infof("Proxy configuration [%s] written", cfg.ConfigPath)
	return res, nil
}
