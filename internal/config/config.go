package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// CommandConfig describes an external command run with a bounded timeout.
type CommandConfig struct {
	Command []string `yaml:"command"`
	Timeout int      `yaml:"timeout"` // seconds
}

// Duration returns the configured timeout as a time.Duration.
func (c CommandConfig) Duration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Empty reports whether no command is configured.
func (c CommandConfig) Empty() bool {
	return len(c.Command) == 0
}

// ServicesConfig holds optional service lifecycle hooks used by graceful
// rollbacks. Empty commands are treated as no-ops.
type ServicesConfig struct {
	Stop  CommandConfig `yaml:"stop"`
	Start CommandConfig `yaml:"start"`
}

type Config struct {
	ProjectRoot string `yaml:"project_root"`
	BaseDir     string `yaml:"-"`

	// SnapshotFiles is the fixed set of project-relative paths captured into
	// every checkpoint. Only files that exist at capture time are recorded.
	SnapshotFiles []string `yaml:"snapshot_files"`

	// CoreFiles is the explicit subset of SnapshotFiles restored by the
	// partial strategy. Membership is exact-path, never pattern-based.
	CoreFiles []string `yaml:"core_files"`

	// EnvAllowList names the only environment variables a checkpoint may
	// capture. Anything outside this list is never read.
	EnvAllowList []string `yaml:"env_allow_list"`

	Build    CommandConfig            `yaml:"build"`
	Install  map[string]CommandConfig `yaml:"install"`
	Services ServicesConfig           `yaml:"services"`

	KeepCheckpoints int `yaml:"keep_checkpoints"`
}

func Default() *Config {
	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()
	return &Config{
		ProjectRoot: cwd,
		BaseDir:     filepath.Join(home, ".rewind"),
		SnapshotFiles: []string{
			"package.json",
			"package-lock.json",
			"wrangler.toml",
			"wrangler.jsonc",
			"astro.config.mjs",
			"src/workers/main.js",
		},
		CoreFiles: []string{
			"package.json",
			"wrangler.toml",
			"astro.config.mjs",
			"src/workers/main.js",
		},
		EnvAllowList: []string{
			"NODE_ENV", "LOG_LEVEL", "BUILD_MODE",
			"CI", "GITHUB_ACTIONS", "RUNNER_OS",
		},
		Build: CommandConfig{
			Command: []string{"npm", "run", "build"},
			Timeout: 180,
		},
		Install: map[string]CommandConfig{
			"package_json": {
				Command: []string{"npm", "install"},
				Timeout: 300,
			},
			"requirements_txt": {
				Command: []string{"pip", "install", "-r", "requirements.txt"},
				Timeout: 300,
			},
		},
		KeepCheckpoints: 5,
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Ensure defaults for zero values
	if cfg.ProjectRoot == "" {
		cwd, _ := os.Getwd()
		cfg.ProjectRoot = cwd
	}
	if cfg.BaseDir == "" {
		home, _ := os.UserHomeDir()
		cfg.BaseDir = filepath.Join(home, ".rewind")
	}
	def := Default()
	if len(cfg.SnapshotFiles) == 0 {
		cfg.SnapshotFiles = def.SnapshotFiles
	}
	if len(cfg.CoreFiles) == 0 {
		cfg.CoreFiles = def.CoreFiles
	}
	if len(cfg.EnvAllowList) == 0 {
		cfg.EnvAllowList = def.EnvAllowList
	}
	if cfg.Build.Empty() {
		cfg.Build = def.Build
	}
	if cfg.Build.Timeout == 0 {
		cfg.Build.Timeout = def.Build.Timeout
	}
	if len(cfg.Install) == 0 {
		cfg.Install = def.Install
	}
	if cfg.KeepCheckpoints == 0 {
		cfg.KeepCheckpoints = def.KeepCheckpoints
	}

	return cfg, nil
}

// IsCoreFile reports whether path is in the core file set. Exact match only.
func (c *Config) IsCoreFile(path string) bool {
	for _, f := range c.CoreFiles {
		if f == path {
			return true
		}
	}
	return false
}

func (c *Config) CheckpointsDir() string {
	return filepath.Join(c.BaseDir, "rollbacks")
}

func (c *Config) HistoryDir() string {
	return filepath.Join(c.BaseDir, "history")
}

func (c *Config) LocksDir() string {
	return filepath.Join(c.BaseDir, "locks")
}

func (c *Config) EnsureDirs() error {
	dirs := []string{
		c.CheckpointsDir(),
		c.HistoryDir(),
		c.LocksDir(),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}
