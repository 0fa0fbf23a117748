package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spt-installer/logger"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// GameVersion describes one installable game/server bundle shipped in the resources directory.
type GameVersion struct {
	Label     string `mapstructure:"label"`
	ServerZip string `mapstructure:"server_zip"`
	ClientZip string `mapstructure:"client_zip"`
}

// Config holds all configuration for the installer.
// Values are loaded by Viper from an optional installer.yaml next to the executable and SPT_* environment variables.
type Config struct {
	ResourcesDir    string        `mapstructure:"resources_dir"`
	TargetSubdir    string        `mapstructure:"target_subdir"`
	ManifestFile    string        `mapstructure:"manifest_file"`
	AnnouncementURL string        `mapstructure:"announcement_url"`
	SoftwareVersion string        `mapstructure:"software_version"`
	UserAgent       string        `mapstructure:"user_agent"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	ReadyKeyword    string        `mapstructure:"ready_keyword"`
	ReadyTimeout    time.Duration `mapstructure:"ready_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	LocalServerURL  string        `mapstructure:"local_server_url"`
	ServerPort      int           `mapstructure:"server_port"`
	NonInteractive  bool          `mapstructure:"non_interactive"`
	Versions        []GameVersion `mapstructure:"versions"`

	// Derived, never read from the environment.
	BaseDir      string `mapstructure:"-"`
	ServerDir    string `mapstructure:"-"`
	ClientDir    string `mapstructure:"-"`
	ModsDir      string `mapstructure:"-"`
	RequiredDir  string `mapstructure:"-"`
	StateFile    string `mapstructure:"-"`
	DatabasePath string `mapstructure:"-"`
}

const (
	configName = "installer"
	envPrefix  = "SPT"
)

// LoadConfig reads configuration for an installer rooted at baseDir.
func LoadConfig(baseDir string) (Config, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve base directory %s: %w", baseDir, err)
	}

	v := viper.New()
	v.AddConfigPath(absBase)
	v.SetConfigName(configName)

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("fatal error config file: %w", err)
		}
		logger.Log.Infow("No installer config file found, using defaults and environment", zap.String("base_dir", absBase))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	cfg.BaseDir = absBase
	if err := processConfigDefaults(&cfg); err != nil {
		return Config{}, err
	}
	deriveResourcePaths(&cfg)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("resources_dir", "resources")
	v.SetDefault("target_subdir", "SPT")
	v.SetDefault("manifest_file", ".spt_installed.json")
	v.SetDefault("announcement_url", DefaultAnnouncementURL)
	v.SetDefault("software_version", SoftwareVersion)
	v.SetDefault("user_agent", "spt-installer/"+SoftwareVersion)
	v.SetDefault("http_timeout", 10*time.Second)
	v.SetDefault("download_timeout", 30*time.Minute)
	v.SetDefault("ready_keyword", DefaultReadyKeyword)
	v.SetDefault("ready_timeout", 60*time.Second)
	v.SetDefault("poll_interval", 500*time.Millisecond)
	v.SetDefault("local_server_url", "https://127.0.0.1:6969")
	v.SetDefault("server_port", 6969)
	v.SetDefault("non_interactive", false)
	v.SetDefault("versions", []map[string]any{
		{
			"label":      "4.0.6",
			"server_zip": "SPT-4.0.6-40087-d13d2dd.zip",
			"client_zip": "Client.0.16.9.0.40087.zip",
		},
	})
}

// processConfigDefaults fills values an empty config file or env var may have blanked out.
func processConfigDefaults(cfg *Config) error {
	if cfg.TargetSubdir == "" {
		cfg.TargetSubdir = "SPT"
	}
	if cfg.ManifestFile == "" {
		cfg.ManifestFile = ".spt_installed.json"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "spt-installer/" + SoftwareVersion
		logger.Log.Warnw("user_agent not set, using default", zap.String("user_agent", cfg.UserAgent))
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 60 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return fmt.Errorf("invalid server_port %d", cfg.ServerPort)
	}
	if strings.ContainsAny(cfg.TargetSubdir, `/\`) || cfg.TargetSubdir == ".." {
		return fmt.Errorf("target_subdir must be a single directory name, got %q", cfg.TargetSubdir)
	}
	return nil
}

func deriveResourcePaths(cfg *Config) {
	resources := cfg.ResourcesDir
	if resources == "" {
		resources = "resources"
	}
	if !filepath.IsAbs(resources) {
		resources = filepath.Join(cfg.BaseDir, resources)
	}
	cfg.ResourcesDir = resources
	cfg.ServerDir = filepath.Join(resources, "server")
	cfg.ClientDir = filepath.Join(resources, "client")
	cfg.ModsDir = filepath.Join(resources, "mods")
	cfg.RequiredDir = filepath.Join(resources, "required")
	cfg.StateFile = filepath.Join(cfg.BaseDir, "installer_state.json")
	cfg.DatabasePath = filepath.Join(cfg.BaseDir, "installer.db")
}

// EnsureResourceDirs creates the resource directories downloads are written into.
func (c Config) EnsureResourceDirs() error {
	for _, dir := range []string{c.ServerDir, c.ClientDir, c.ModsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FindVersion looks up a configured bundle by label.
func (c Config) FindVersion(label string) (GameVersion, bool) {
	for _, v := range c.Versions {
		if v.Label == label {
			return v, true
		}
	}
	return GameVersion{}, false
}

// DefaultVersion returns the first configured bundle.
func (c Config) DefaultVersion() (GameVersion, bool) {
	if len(c.Versions) == 0 {
		return GameVersion{}, false
	}
	return c.Versions[0], true
}
