package config

// Config is the resolved process configuration. It is built once at startup
// by Load and handed to the server by reference.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Deploy   DeployConfig   `yaml:"deploy"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Database DatabaseConfig `yaml:"database"`
	Site     SiteConfig     `yaml:"site"`

	// Warnings collects non-fatal problems noticed while loading.
	Warnings []string `yaml:"-"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DeployConfig describes the self-deploy target.
type DeployConfig struct {
	ProjectPath string `yaml:"project_path"`
	Branch      string `yaml:"branch"`
	Script      string `yaml:"script"`      // relative to ProjectPath
	LogFile     string `yaml:"log_file"`    // relative to ProjectPath
	WrapperDir  string `yaml:"wrapper_dir"` // relative to ProjectPath
	Shell       string `yaml:"shell"`       // shell-quoted interpreter command

	// Environment exported to the deploy script
	Home string `yaml:"home"`
	User string `yaml:"user"`
	Path string `yaml:"path"`

	// ForegroundTimeout bounds `leadbox deploy --foreground`, in seconds
	ForegroundTimeout int `yaml:"foreground_timeout"`

	// ShellArgs is Shell split into argv by Load.
	ShellArgs []string `yaml:"-"`
}

// WebhookConfig configures the deployment webhook.
type WebhookConfig struct {
	// Secret enables X-Hub-Signature-256 verification when non-empty.
	Secret string `yaml:"secret"`
}

// DatabaseConfig points at the SQLite store. An empty Path disables it.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SiteConfig drives static serving, CORS and the SEO endpoints.
type SiteConfig struct {
	BaseURL        string       `yaml:"base_url"`
	StaticDir      string       `yaml:"static_dir"`
	AllowedOrigins []string     `yaml:"allowed_origins"`
	Disallow       []string     `yaml:"disallow"`
	Pages          []PageConfig `yaml:"pages"`
}

// PageConfig is one sitemap entry.
type PageConfig struct {
	Path       string  `yaml:"path"`
	ChangeFreq string  `yaml:"changefreq"`
	Priority   float64 `yaml:"priority"`
	LastMod    string  `yaml:"lastmod"` // YYYY-MM-DD, optional
}
