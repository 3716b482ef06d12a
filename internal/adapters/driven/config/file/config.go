// Package file loads the TOML configuration file.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
)

// Environment variables consulted for the GitHub token, in order, when
// the config file does not set one.
const (
	EnvGitHubToken = "GITHUB_TOKEN"
	EnvGHToken     = "GH_TOKEN"
)

// Config is the on-disk configuration. Every field is optional; the zero
// config tracks the default repositories anonymously.
type Config struct {
	// DataDir overrides where the cache database lives.
	DataDir string `toml:"data_dir"`

	GitHub GitHubConfig `toml:"github"`
	Sync   SyncConfig   `toml:"sync"`

	// Repos replaces the built-in tracked repository set when non-empty.
	Repos []RepoConfig `toml:"repos"`
}

// GitHubConfig holds API access settings.
type GitHubConfig struct {
	// Token is a personal access token. Raises the API quota; the tracked
	// repositories are public, so syncing works without one.
	Token string `toml:"token"`
}

// SyncConfig tunes the sync orchestrator and scheduler.
type SyncConfig struct {
	// MinIntervalMinutes is the minimum gap between non-forced runs.
	MinIntervalMinutes int `toml:"min_interval_minutes"`

	// ScheduleMinutes is the background refresh interval in serve mode.
	ScheduleMinutes int `toml:"schedule_minutes"`

	// MaxFiles caps how many files one run processes. Zero means no cap.
	MaxFiles int `toml:"max_files"`

	// FetchConcurrency bounds concurrent remote fetches.
	FetchConcurrency int `toml:"fetch_concurrency"`

	// ResolveFirstPublished backfills missing dates from commit history.
	ResolveFirstPublished bool `toml:"resolve_first_published"`
}

// RepoConfig describes one tracked repository.
type RepoConfig struct {
	ID          string `toml:"id"`
	Owner       string `toml:"owner"`
	Name        string `toml:"name"`
	Branch      string `toml:"branch"`
	PathPrefix  string `toml:"path_prefix"`
	FilePattern string `toml:"file_pattern"`
	Category    string `toml:"category"`
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".powerplat-update", "config.toml"), nil
}

// Load reads the config file at path. An empty path means the default
// location, and a missing file yields the zero config.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// ResolveToken returns the GitHub token: the config value when set,
// otherwise the first non-empty token environment variable.
func (c *Config) ResolveToken() string {
	if c.GitHub.Token != "" {
		return c.GitHub.Token
	}
	if token := os.Getenv(EnvGitHubToken); token != "" {
		return token
	}
	return os.Getenv(EnvGHToken)
}

// TrackedRepos returns the configured repository set, falling back to the
// built-in defaults.
func (c *Config) TrackedRepos() []domain.TrackedRepo {
	if len(c.Repos) == 0 {
		return domain.DefaultTrackedRepos()
	}

	repos := make([]domain.TrackedRepo, 0, len(c.Repos))
	for _, rc := range c.Repos {
		repos = append(repos, domain.TrackedRepo{
			ID:          rc.ID,
			Owner:       rc.Owner,
			Name:        rc.Name,
			Branch:      rc.Branch,
			PathPrefix:  rc.PathPrefix,
			FilePattern: rc.FilePattern,
			Category:    rc.Category,
		})
	}
	return repos
}

// MinSyncInterval returns the configured minimum sync gap, or zero when
// unset so the orchestrator applies its default.
func (c *Config) MinSyncInterval() time.Duration {
	return time.Duration(c.Sync.MinIntervalMinutes) * time.Minute
}

// ScheduleInterval returns the background refresh interval, or zero when
// unset so the scheduler applies its default.
func (c *Config) ScheduleInterval() time.Duration {
	return time.Duration(c.Sync.ScheduleMinutes) * time.Minute
}
