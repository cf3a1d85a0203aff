package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultSettingsFile = "rimport.toml"
	appName             = "rimport"
)

// Settings is the rimport.toml configuration file.
type Settings struct {
	// Timeout bounds a single repository metadata lookup, e.g. "10s".
	Timeout  string         `toml:"timeout,omitempty"`
	GitHub   GitHubSettings `toml:"github"`
	GitLab   GitLabSettings `toml:"gitlab"`
	Images   ImageSettings  `toml:"images"`
	Download Download       `toml:"download"`
}

// GitHubSettings holds the hosts used for GitHub sources.
type GitHubSettings struct {
	Host        string `toml:"host"`
	APIBase     string `toml:"api_base"`
	ArchiveBase string `toml:"archive_base"`
	RawBase     string `toml:"raw_base"`
}

// GitLabSettings holds the hosts used for GitLab sources.
type GitLabSettings struct {
	Host          string `toml:"host"`
	DefaultBranch string `toml:"default_branch"`
}

// ImageSettings maps frameworks to compute environment images.
type ImageSettings struct {
	TensorFlow string `toml:"tensorflow"`
	PyTorch    string `toml:"pytorch"`
	MXNet      string `toml:"mxnet"`
	Generic    string `toml:"generic"`
}

// Download configures archive fetching and unpacking.
type Download struct {
	RetryMax int      `toml:"retry_max"`
	Exclude  []string `toml:"exclude,omitempty"`
	Mount    string   `toml:"mount"`
}

// DefaultSettings returns the built-in configuration.
func DefaultSettings() *Settings {
	return &Settings{
		Timeout: "10s",
		GitHub: GitHubSettings{
			Host:        "github.com",
			APIBase:     "https://api.github.com",
			ArchiveBase: "https://codeload.github.com",
			RawBase:     "https://raw.githubusercontent.com",
		},
		GitLab: GitLabSettings{
			Host:          "gitlab.com",
			DefaultBranch: "master",
		},
		Images: ImageSettings{
			TensorFlow: "cr.backend.ai/stable/python-tensorflow",
			PyTorch:    "cr.backend.ai/stable/python-pytorch",
			MXNet:      "cr.backend.ai/stable/python-mxnet",
			Generic:    "cr.backend.ai/stable/python",
		},
		Download: Download{
			RetryMax: 3,
			Mount:    "/home/work",
		},
	}
}

// TimeoutDuration parses Timeout. An empty or invalid value yields the default.
func (s *Settings) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// LoadSettings reads settings from path, layered over DefaultSettings.
// A missing file is not an error.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}

	if _, err := time.ParseDuration(s.Timeout); s.Timeout != "" && err != nil {
		return nil, fmt.Errorf("parsing settings: invalid timeout %q: %w", s.Timeout, err)
	}

	return s, nil
}

// Save writes the settings to the given path.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating settings file: %w", err)
	}
	defer f.Close()

	return s.Encode(f)
}

// Encode writes s to w as TOML.
func (s *Settings) Encode(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return nil
}

// SettingsPath picks the settings file to use: the explicit path if set,
// ./rimport.toml if it exists, otherwise the XDG config location.
func SettingsPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(DefaultSettingsFile); err == nil {
		return DefaultSettingsFile
	}
	return filepath.Join(configHome(), appName, "config.toml")
}

func configHome() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}
