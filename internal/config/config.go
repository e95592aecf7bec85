package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

/**
 * Server configuration parameters
 * @property {string} address - Listening address ("127.0.0.1:9570" or "unix:/run/paritybit-setup.sock")
 * @property {string} mode - gin mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" writes to stderr
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Metrics configuration
 * @property {string} textfile - node_exporter textfile collector path, empty disables the write
 */
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// GathererConfig describes the data-gathering worker unit.
type GathererConfig struct {
	Unit            string   `mapstructure:"unit" json:"unit"`
	Description     string   `mapstructure:"description" json:"description"`
	Command         string   `mapstructure:"command" json:"command"`
	Args            []string `mapstructure:"args" json:"args"`
	IntervalMinutes int      `mapstructure:"interval_minutes" json:"intervalMinutes"`
	RestartSec      int      `mapstructure:"restart_sec" json:"restartSec"`
	Newnym          bool     `mapstructure:"newnym" json:"newnym"`
}

// WatcherConfig describes the watcher worker unit.
type WatcherConfig struct {
	Unit        string   `mapstructure:"unit" json:"unit"`
	Description string   `mapstructure:"description" json:"description"`
	Command     string   `mapstructure:"command" json:"command"`
	Args        []string `mapstructure:"args" json:"args"`
	PollSeconds int      `mapstructure:"poll_interval_seconds" json:"pollIntervalSeconds"`
	RestartSec  int      `mapstructure:"restart_sec" json:"restartSec"`
}

/**
 * Local anonymizing proxy (tor) configuration
 * @property {string} service - systemd unit of the daemon
 * @property {string} binary - executable looked up to decide whether tor is installed
 * @property {string} config_path - torrc location
 * @property {string} backup_path - one-time backup of the torrc found before the first write
 * @property {int} socks_port - SOCKS listener port
 * @property {int} control_port - control listener port (cookie authentication)
 * @property {string} log_path - notice log destination
 * @property {string} data_dir - tor data directory
 */
type ProxyConfig struct {
	Service     string `mapstructure:"service" json:"service"`
	Binary      string `mapstructure:"binary" json:"binary"`
	ConfigPath  string `mapstructure:"config_path" json:"configPath"`
	BackupPath  string `mapstructure:"backup_path" json:"backupPath"`
	SocksPort   int    `mapstructure:"socks_port" json:"socksPort"`
	ControlPort int    `mapstructure:"control_port" json:"controlPort"`
	LogPath     string `mapstructure:"log_path" json:"logPath"`
	DataDir     string `mapstructure:"data_dir" json:"dataDir"`
}

// ArtifactsConfig names the files the workers leave in the workspace.
type ArtifactsConfig struct {
	MarkerGlob    string `mapstructure:"marker_glob" json:"markerGlob"`
	Results       string `mapstructure:"results" json:"results"`
	DeadEndpoints string `mapstructure:"dead_endpoints" json:"deadEndpoints"`
}

/**
 * Provisioning configuration, read-only for the duration of a run
 * @property {string} repository - source repository locator, empty means manual deployment
 * @property {string} branch - optional branch to clone
 * @property {string} install_path - workspace directory
 * @property {string} account - service account owning the workspace
 * @property {string} runtime_dir - venv directory relative to install_path
 * @property {string} python - interpreter used to create the venv
 * @property {[]string} requirements - pip requirement specifiers installed in order
 * @property {bool} best_effort_requirements - collect failed requirements as warnings
 * @property {[]string} extra_packages - OS packages installed in addition to the fixed set
 * @property {string} unit_dir - where service descriptors are written
 */
type ProvisionConfig struct {
	Repository             string          `mapstructure:"repository" json:"repository"`
	Branch                 string          `mapstructure:"branch" json:"branch"`
	InstallPath            string          `mapstructure:"install_path" json:"installPath"`
	Account                string          `mapstructure:"account" json:"account"`
	RuntimeDir             string          `mapstructure:"runtime_dir" json:"runtimeDir"`
	Python                 string          `mapstructure:"python" json:"python"`
	Requirements           []string        `mapstructure:"requirements" json:"requirements"`
	BestEffortRequirements bool            `mapstructure:"best_effort_requirements" json:"bestEffortRequirements"`
	ExtraPackages          []string        `mapstructure:"extra_packages" json:"extraPackages"`
	UnitDir                string          `mapstructure:"unit_dir" json:"unitDir"`
	Gatherer               GathererConfig  `mapstructure:"gatherer" json:"gatherer"`
	Watcher                WatcherConfig   `mapstructure:"watcher" json:"watcher"`
	Proxy                  ProxyConfig     `mapstructure:"proxy" json:"proxy"`
	Artifacts              ArtifactsConfig `mapstructure:"artifacts" json:"artifacts"`
}

type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	StateDir  string          `mapstructure:"state_dir"`
	Provision ProvisionConfig `mapstructure:"provision"`
}

const envPrefix = "PARITYBIT"

var ErrInvalidConfig = errors.New("invalid configuration")

var Config AppConfig

/**
 * Register default values on a viper instance
 * @param {*viper.Viper} v - viper instance
 */
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1:9570")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "console")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("state_dir", "/var/lib/paritybit-setup")
	v.SetDefault("provision.repository", "")
	v.SetDefault("provision.branch", "")
	v.SetDefault("provision.install_path", "/opt/paritybit")
	v.SetDefault("provision.account", "paritybit")
	v.SetDefault("provision.runtime_dir", "venv")
	v.SetDefault("provision.python", "python3")
	v.SetDefault("provision.requirements", []string{"requests", "pysocks", "stem", "pyyaml", "beautifulsoup4", "lxml"})
	v.SetDefault("provision.best_effort_requirements", false)
	v.SetDefault("provision.extra_packages", []string{})
	v.SetDefault("provision.unit_dir", "/etc/systemd/system")
	v.SetDefault("provision.gatherer.unit", "paritybit-crawler")
	v.SetDefault("provision.gatherer.description", "Paritybit crawler (gatherer)")
	v.SetDefault("provision.gatherer.command", "{{.RuntimeDir}}/bin/python")
	v.SetDefault("provision.gatherer.args", []string{"{{.InstallPath}}/crawler.py", "--interval-minutes", "{{.IntervalMinutes}}"})
	v.SetDefault("provision.gatherer.interval_minutes", 60)
	v.SetDefault("provision.gatherer.restart_sec", 15)
	v.SetDefault("provision.gatherer.newnym", false)
	v.SetDefault("provision.watcher.unit", "paritybit-scooper")
	v.SetDefault("provision.watcher.description", "Paritybit scooper (watcher)")
	v.SetDefault("provision.watcher.command", "{{.RuntimeDir}}/bin/python")
	v.SetDefault("provision.watcher.args", []string{"{{.InstallPath}}/scooper.py", "--watch", "--poll-interval", "{{.PollSeconds}}"})
	v.SetDefault("provision.watcher.poll_interval_seconds", 10)
	v.SetDefault("provision.watcher.restart_sec", 10)
	v.SetDefault("provision.proxy.service", "tor")
	v.SetDefault("provision.proxy.binary", "tor")
	v.SetDefault("provision.proxy.config_path", "/etc/tor/torrc")
	v.SetDefault("provision.proxy.backup_path", "/etc/tor/torrc.orig")
	v.SetDefault("provision.proxy.socks_port", 9050)
	v.SetDefault("provision.proxy.control_port", 9051)
	v.SetDefault("provision.proxy.log_path", "/var/log/tor/notices.log")
	v.SetDefault("provision.proxy.data_dir", "/var/lib/tor")
	v.SetDefault("provision.artifacts.marker_glob", "Source/crawl_complete_*.json")
	v.SetDefault("provision.artifacts.results", "results.json")
	v.SetDefault("provision.artifacts.dead_endpoints", "dead_endpoints.json")
}

/**
 * Load application configuration
 * @param {string} configFile - explicit YAML file, empty searches "." and /etc/paritybit-setup
 * @param {string} envFile - optional dotenv file exported into the environment before reading
 * @returns {(*AppConfig, error)} Loaded configuration
 * @description
 * - A missing config file is not an error when no explicit file was requested
 * - Environment variables PARITYBIT_<SECTION>_<KEY> override file values
 */
func Load(configFile, envFile string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("paritybit-setup")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/paritybit-setup")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Provision.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

/**
 * Default configuration without reading any file or environment
 * @returns {AppConfig} Configuration populated from built-in defaults
 */
func Default() AppConfig {
	v := viper.New()
	SetDefaults(v)
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("unmarshal defaults: %v", err))
	}
	return cfg
}

// Validate rejects configurations that cannot produce a working host.
func (p *ProvisionConfig) Validate() error {
	switch {
	case !filepath.IsAbs(p.InstallPath) || filepath.Clean(p.InstallPath) == "/":
		return fmt.Errorf("%w: install_path must be an absolute directory below /, got %q", ErrInvalidConfig, p.InstallPath)
	case !validAccountName(p.Account):
		return fmt.Errorf("%w: invalid account name %q", ErrInvalidConfig, p.Account)
	case p.Gatherer.Unit == "" || p.Watcher.Unit == "":
		return fmt.Errorf("%w: unit names are required", ErrInvalidConfig)
	case p.Gatherer.Unit == p.Watcher.Unit:
		return fmt.Errorf("%w: gatherer and watcher share unit name %q", ErrInvalidConfig, p.Gatherer.Unit)
	case p.Gatherer.IntervalMinutes <= 0:
		return fmt.Errorf("%w: gatherer interval_minutes must be positive", ErrInvalidConfig)
	case p.Watcher.PollSeconds <= 0:
		return fmt.Errorf("%w: watcher poll_interval_seconds must be positive", ErrInvalidConfig)
	case p.Proxy.SocksPort <= 0 || p.Proxy.ControlPort <= 0 || p.Proxy.SocksPort == p.Proxy.ControlPort:
		return fmt.Errorf("%w: proxy ports must be distinct and positive", ErrInvalidConfig)
	}
	return nil
}

// RuntimePath is the absolute venv directory.
func (p *ProvisionConfig) RuntimePath() string {
	if filepath.IsAbs(p.RuntimeDir) {
		return filepath.Clean(p.RuntimeDir)
	}
	return filepath.Join(p.InstallPath, p.RuntimeDir)
}

// validAccountName follows the useradd rules for portable names.
func validAccountName(name string) bool {
	if len(name) == 0 || len(name) > 32 {
		return false
	}
	if name[0] < 'a' || name[0] > 'z' {
		if name[0] != '_' {
			return false
		}
	}
	for _, c := range name[1:] {
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' || c == '-') {
			return false
		}
	}
	return true
}
