package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"leadbox/internal/security"
	"leadbox/pkg/cmdutil"
	"leadbox/pkg/fileutil"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 5000
	DefaultBranch            = "main"
	DefaultScript            = "scripts/deploy.sh"
	DefaultDeployLog         = "logs/deploy.log"
	DefaultWrapperDir        = ".deploy"
	DefaultShell             = "/bin/sh"
	DefaultPath              = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"
	DefaultDBPath            = "./data/leadbox.db"
	DefaultBaseURL           = "http://localhost:5000"
	DefaultForegroundTimeout = 900
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Deploy: DeployConfig{
			Branch:            DefaultBranch,
			Script:            DefaultScript,
			LogFile:           DefaultDeployLog,
			WrapperDir:        DefaultWrapperDir,
			Shell:             DefaultShell,
			Path:              DefaultPath,
			ForegroundTimeout: DefaultForegroundTimeout,
		},
		Database: DatabaseConfig{
			Path: DefaultDBPath,
		},
		Site: SiteConfig{
			BaseURL:  DefaultBaseURL,
			Disallow: []string{"/api/", "/webhook", "/status"},
			Pages: []PageConfig{
				{Path: "/", ChangeFreq: "weekly", Priority: 1.0},
			},
		},
	}
}

// Load builds the process configuration: defaults, then the YAML file at
// configPath (skipped when empty), then environment overrides, then path
// resolution and validation. The environment is only consulted here.
func Load(configPath string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
		if cfg.Webhook.Secret != "" {
			if err := security.ValidateSecurePermissions(configPath); err != nil {
				cfg.Warnings = append(cfg.Warnings, err.Error())
			}
		}
	}

	if lookup != nil {
		if err := cfg.applyEnv(lookup); err != nil {
			return nil, err
		}
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration:\n%s", strings.Join(errs, "\n"))
	}

	return cfg, nil
}

// decode overlays YAML onto the defaults and rejects unknown keys.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	strOverrides := map[string]*string{
		"LEADBOX_PROJECT_PATH":   &c.Deploy.ProjectPath,
		"LEADBOX_DEPLOY_BRANCH":  &c.Deploy.Branch,
		"LEADBOX_WEBHOOK_SECRET": &c.Webhook.Secret,
		"LEADBOX_DB_PATH":        &c.Database.Path,
		"LEADBOX_HOST":           &c.Server.Host,
		"LEADBOX_BASE_URL":       &c.Site.BaseURL,
	}
	for key, target := range strOverrides {
		if value, ok := lookup(key); ok {
			*target = value
		}
	}

	if value, ok := lookup("LEADBOX_PORT"); ok && value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("LEADBOX_PORT must be an integer, got %q", value)
		}
		c.Server.Port = port
	}

	return nil
}

// resolve fills values that depend on the host: the project path defaults
// to the working directory and HOME/USER to the current account.
func (c *Config) resolve() error {
	if c.Deploy.ProjectPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine working directory: %w", err)
		}
		c.Deploy.ProjectPath = wd
	}

	if c.Deploy.Home == "" || c.Deploy.User == "" {
		if u, err := user.Current(); err == nil {
			if c.Deploy.Home == "" {
				c.Deploy.Home = u.HomeDir
			}
			if c.Deploy.User == "" {
				c.Deploy.User = u.Username
			}
		}
	}

	if c.Deploy.Shell != "" {
		args, err := cmdutil.ParseCommandString(c.Deploy.Shell)
		if err != nil {
			return fmt.Errorf("invalid deploy.shell %q: %w", c.Deploy.Shell, err)
		}
		c.Deploy.ShellArgs = args
	}

	c.Site.BaseURL = strings.TrimRight(c.Site.BaseURL, "/")

	return nil
}

// Validate returns one message per problem found. An empty result means the
// configuration is usable.
func (c *Config) Validate() []string {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, "  - "+fmt.Sprintf(format, args...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if cleaned, err := security.SanitizePath(c.Deploy.ProjectPath); err != nil {
		add("deploy.project_path: %v", err)
	} else {
		c.Deploy.ProjectPath = cleaned
		for name, rel := range map[string]string{
			"deploy.script":      c.Deploy.Script,
			"deploy.log_file":    c.Deploy.LogFile,
			"deploy.wrapper_dir": c.Deploy.WrapperDir,
		} {
			if rel == "" {
				add("%s is required", name)
				continue
			}
			if _, err := fileutil.JoinWithin(cleaned, rel); err != nil {
				add("%s: %v", name, err)
			}
		}
	}

	if err := security.ValidateBranchName(c.Deploy.Branch); err != nil {
		add("deploy.branch: %v", err)
	}

	if len(c.Deploy.ShellArgs) == 0 {
		add("deploy.shell is required")
	}

	if c.Deploy.Path == "" {
		add("deploy.path is required")
	}

	if c.Deploy.ForegroundTimeout <= 0 {
		add("deploy.foreground_timeout must be a positive integer, got %d", c.Deploy.ForegroundTimeout)
	}

	if c.Webhook.Secret != "" {
		if err := security.ValidateSecret(c.Webhook.Secret); err != nil {
			add("webhook.secret: %v", err)
		}
	}

	if u, err := url.Parse(c.Site.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("site.base_url must be an absolute http(s) URL, got %q", c.Site.BaseURL)
	}

	for i, page := range c.Site.Pages {
		if !strings.HasPrefix(page.Path, "/") {
			add("site.pages[%d].path must start with '/', got %q", i, page.Path)
		}
		if page.LastMod != "" {
			if _, err := time.Parse(time.DateOnly, page.LastMod); err != nil {
				add("site.pages[%d].lastmod must be YYYY-MM-DD, got %q", i, page.LastMod)
			}
		}
	}

	return errs
}

// ScriptPath is the absolute path of the deploy script.
func (d DeployConfig) ScriptPath() string {
	return filepath.Join(d.ProjectPath, d.Script)
}

// LogFilePath is the absolute path of the append-only deployment log.
func (d DeployConfig) LogFilePath() string {
	return filepath.Join(d.ProjectPath, d.LogFile)
}

// WrapperDirPath is the directory that receives generated wrapper scripts.
func (d DeployConfig) WrapperDirPath() string {
	return filepath.Join(d.ProjectPath, d.WrapperDir)
}

// Env is the complete environment handed to the deployment process.
func (d DeployConfig) Env() []string {
	return []string{
		"HOME=" + d.Home,
		"USER=" + d.User,
		"PATH=" + d.Path,
		"PROJECT_PATH=" + d.ProjectPath,
	}
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
