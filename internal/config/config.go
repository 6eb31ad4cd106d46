package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultMetafile is the metafile name used when none is configured.
const DefaultMetafile = ".metafile"

// DefaultWorkers is the default size of the capture/apply worker pool.
const DefaultWorkers = 4

// Config represents the user configuration for git-metafile.
// Command-line flags take precedence over every value here.
type Config struct {
	File    string        `toml:"file"`    // metafile path; relative paths are resolved against the repo root
	Strict  bool          `toml:"strict"`  // abort apply on the first malformed metafile line
	Quiet   bool          `toml:"quiet"`   // suppress informational messages
	Workers int           `toml:"workers"` // paths processed concurrently; 1 means sequential
	LogDir  string        `toml:"log_dir"`
	Ignore  []string      `toml:"ignore"` // extra ignore patterns, same syntax as .metafileignore
	Journal JournalConfig `toml:"journal"`
}

// JournalConfig represents configuration for the run journal.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		File:    DefaultMetafile,
		Workers: DefaultWorkers,
		LogDir:  filepath.Join(baseDir, "log"),
		Journal: JournalConfig{
			Enabled: true,
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.File == "" {
		return fmt.Errorf("file must not be empty")
	}
	if c.Journal.Enabled {
		switch c.Journal.Type {
		case "sqlite", "memory":
		default:
			return fmt.Errorf("unknown journal type: %q", c.Journal.Type)
		}
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from r on top of the values already in cfg,
// so keys missing from the file keep their defaults.
func (m *Manager) Read(r io.Reader, cfg *Config) error {
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Load returns the configuration stored at path layered over NewConfig(baseDir).
// A missing file is not an error: the defaults are returned.
func Load(path, baseDir string) (*Config, error) {
	cfg := NewConfig(baseDir)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Read(f, cfg); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path. It refuses to overwrite an
// existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
