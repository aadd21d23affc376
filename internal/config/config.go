package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	ConfDir string `toml:"conf_dir"`
	OutPath string `toml:"out_path"`
	OutTemp string `toml:"out_temp"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Sonarr contains the library service connection settings.
type Sonarr struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	InPath         string `toml:"in_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains stage timing and enablement.
type Workflow struct {
	DecisionInterval int  `toml:"decision_interval"`
	AgingInterval    int  `toml:"aging_interval"`
	DownloadInterval int  `toml:"download_interval"`
	RipenessPerDay   int  `toml:"ripeness_per_day"`
	FlipFlopQueue    bool `toml:"flip_flop_queue"`
	RunDecision      bool `toml:"run_decision"`
	RunAging         bool `toml:"run_aging"`
	RunDownload      bool `toml:"run_download"`
}

// Policy contains the post-match gates applied before download enqueue.
type Policy struct {
	HonorUnmonitoredSeries   bool `toml:"honor_unmonitored_series"`
	HonorUnmonitoredEpisodes bool `toml:"honor_unmonitored_episodes"`
	OverwriteEpisodes        bool `toml:"overwrite_episodes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values. TOML supplies a base; the
// environment variables listed in env.go always win over file values.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Sonarr   Sonarr   `toml:"sonarr"`
	Workflow Workflow `toml:"workflow"`
	Policy   Policy   `toml:"policy"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/wai/config.toml")
}

// Load locates and parses a configuration file, applies environment
// overrides, then validates. The returned config has all path fields
// expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalizePaths(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("wai.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.ConfDir, err = expandPath(c.Paths.ConfDir); err != nil {
		return fmt.Errorf("paths.conf_dir: %w", err)
	}
	if c.Paths.OutPath, err = expandPath(c.Paths.OutPath); err != nil {
		return fmt.Errorf("paths.out_path: %w", err)
	}
	if c.Paths.OutTemp, err = expandPath(c.Paths.OutTemp); err != nil {
		return fmt.Errorf("paths.out_temp: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation. The
// library staging path is best-effort so the daemon can start when external
// storage is temporarily offline.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.OutTemp, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutPath) != "" {
		_ = os.MkdirAll(c.Paths.OutPath, 0o755)
	}
	return nil
}

// DownloadDir is where the downloader writes before the tagged file moves
// into the library staging path. Falls back to the final path when no temp
// path is configured.
func (c *Config) DownloadDir() string {
	if strings.TrimSpace(c.Paths.OutTemp) != "" {
		return c.Paths.OutTemp
	}
	return c.Paths.OutPath
}

// ExpandPath resolves a leading ~ and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
