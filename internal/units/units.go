package units

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"paritybit-setup/internal/config"
	"paritybit-setup/internal/logger"
	"paritybit-setup/internal/utils"
)

const (
	UnitMode    = 0644
	systemPaths = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"
)

// Unit is one rendered service descriptor.
type Unit struct {
	Name    string
	Content []byte
}

// FileName is the unit file name, Name with the .service suffix.
func (u Unit) FileName() string {
	if strings.HasSuffix(u.Name, ".service") {
		return u.Name
	}
	return u.Name + ".service"
}

// Params are the values substituted into worker command templates.
type Params struct {
	RuntimeDir      string
	InstallPath     string
	Account         string
	IntervalMinutes int
	PollSeconds     int
}

type unitData struct {
	Description string
	After       string
	Wants       string
	Account     string
	WorkDir     string
	Environment string
	ExecStart   string
	RestartSec  int
}

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description={{.Description}}
After={{.After}}
Wants={{.Wants}}

[Service]
Type=simple
User={{.Account}}
Group={{.Account}}
WorkingDirectory={{.WorkDir}}
Environment={{.Environment}}
ExecStart={{.ExecStart}}
Restart=on-failure
RestartSec={{.RestartSec}}

[Install]
WantedBy=multi-user.target
`))

func ParamsFor(cfg config.ProvisionConfig) Params {
	return Params{
		RuntimeDir:      cfg.RuntimePath(),
		InstallPath:     cfg.InstallPath,
		Account:         cfg.Account,
		IntervalMinutes: cfg.Gatherer.IntervalMinutes,
		PollSeconds:     cfg.Watcher.PollSeconds,
	}
}

/**
 * Render both worker units
 * @param {config.ProvisionConfig} cfg - provisioning configuration
 * @returns {([]Unit, error)} gatherer unit then watcher unit
 * @description
 * - Output depends only on cfg, equal configurations give byte-identical units
 * - The watcher is ordered after the gatherer and wants it
 */
func Render(cfg config.ProvisionConfig) ([]Unit, error) {
	p := ParamsFor(cfg)
	env := environment("PATH", filepath.Join(p.RuntimeDir, "bin")+":"+systemPaths)

	gArgs := append([]string{}, cfg.Gatherer.Args...)
	if cfg.Gatherer.Newnym {
		gArgs = append(gArgs, "--newnym")
	}
	gExec, err := execStart(cfg.Gatherer.Command, gArgs, p)
	if err != nil {
		return nil, fmt.Errorf("gatherer unit: %w", err)
	}
	proxyUnit := unitFile(cfg.Proxy.Service)
	gatherer, err := render(cfg.Gatherer.Unit, unitData{
		Description: cfg.Gatherer.Description,
		After:       "network-online.target " + proxyUnit,
		Wants:       "network-online.target " + proxyUnit,
		Account:     cfg.Account,
		WorkDir:     escapeSpecifiers(cfg.InstallPath),
		Environment: env,
		ExecStart:   gExec,
		RestartSec:  cfg.Gatherer.RestartSec,
	})
	if err != nil {
		return nil, err
	}

	wExec, err := execStart(cfg.Watcher.Command, cfg.Watcher.Args, p)
	if err != nil {
		return nil, fmt.Errorf("watcher unit: %w", err)
	}
	watcher, err := render(cfg.Watcher.Unit, unitData{
		Description: cfg.Watcher.Description,
		After:       "network-online.target " + unitFile(cfg.Gatherer.Unit),
		Wants:       unitFile(cfg.Gatherer.Unit),
		Account:     cfg.Account,
		WorkDir:     escapeSpecifiers(cfg.InstallPath),
		Environment: env,
		ExecStart:   wExec,
		RestartSec:  cfg.Watcher.RestartSec,
	})
	if err != nil {
		return nil, err
	}
	return []Unit{gatherer, watcher}, nil
}

/**
 * Write units into dir, replacing existing files
 * @param {string} dir - unit directory
 * @param {[]Unit} units - rendered units
 * @returns {error} First write failure
 */
func Write(dir string, units []Unit) error {
	for _, u := range units {
		path := filepath.Join(dir, u.FileName())
		if err := utils.WriteFileAtomic(path, u.Content, UnitMode); err != nil {
			return fmt.Errorf("write unit %s: %w", u.Name, err)
		}
		logger.Infof("Unit [%s] written to %s", u.Name, path)
	}
	return nil
}

func render(name string, data unitData) (Unit, error) {
	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, data); err != nil {
		return Unit{}, fmt.Errorf("render unit %s: %w", name, err)
	}
	return Unit{Name: name, Content: buf.Bytes()}, nil
}

func execStart(command string, args []string, p Params) (string, error) {
	cmd, expanded, err := utils.GetCommandLine(command, args, p)
	if err != nil {
		return "", err
	}
	parts := []string{quote(cmd)}
	for _, a := range expanded {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " "), nil
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// quote applies systemd's double-quote rule to words containing whitespace or quotes.
func quote(s string) string {
	s = escapeSpecifiers(s)
	if !strings.ContainsAny(s, " \t\"'\\") {
		return s
	}
	return `"` + quoteReplacer.Replace(s) + `"`
}

// environment renders one quoted Environment= assignment.
func environment(name, value string) string {
	return `"` + name + "=" + quoteReplacer.Replace(escapeSpecifiers(value)) + `"`
}

// escapeSpecifiers keeps % literal, systemd would expand it as a unit specifier.
func escapeSpecifiers(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}

func unitFile(name string) string {
	return Unit{Name: name}.FileName()
}
