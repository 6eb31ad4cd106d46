package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		File:    "meta/.metafile",
		Strict:  true,
		Quiet:   true,
		Workers: 8,
		LogDir:  "/home/user/.local/share/git-metafile/log",
		Ignore:  []string{"*.swp", "build/out"},
		Journal: JournalConfig{Enabled: true, Type: "sqlite", DataDir: "/home/user/.local/share/git-metafile/db"},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got := &Config{}
	if err := m.Read(&buf, got); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.File != original.File {
		t.Errorf("File = %q, want %q", got.File, original.File)
	}
	if !got.Strict || !got.Quiet {
		t.Errorf("Strict/Quiet = %v/%v, want true/true", got.Strict, got.Quiet)
	}
	if got.Workers != 8 {
		t.Errorf("Workers = %d, want 8", got.Workers)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if len(got.Ignore) != 2 || got.Ignore[1] != "build/out" {
		t.Errorf("Ignore = %v, want %v", got.Ignore, original.Ignore)
	}
	if got.Journal != original.Journal {
		t.Errorf("Journal = %+v, want %+v", got.Journal, original.Journal)
	}
}

func TestManager_Read_KeepsDefaults(t *testing.T) {
	cfg := NewConfig("/data/gm")
	m := &Manager{}

	if err := m.Read(strings.NewReader("strict = true\n"), cfg); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !cfg.Strict {
		t.Error("Strict = false, want true")
	}
	if cfg.File != DefaultMetafile {
		t.Errorf("File = %q, want default %q", cfg.File, DefaultMetafile)
	}
	if cfg.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want default %d", cfg.Workers, DefaultWorkers)
	}
	if !cfg.Journal.Enabled || cfg.Journal.Type != "sqlite" {
		t.Errorf("Journal = %+v, want enabled sqlite default", cfg.Journal)
	}
}

func TestManager_Read_RejectsUnknownKeys(t *testing.T) {
	m := &Manager{}
	err := m.Read(strings.NewReader("verbosity = 3\n"), &Config{})
	if err == nil || !strings.Contains(err.Error(), "verbosity") {
		t.Errorf("Read() error = %v, want unknown key error", err)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/gm")

	if cfg.File != ".metafile" {
		t.Errorf("File = %q, want %q", cfg.File, ".metafile")
	}
	if cfg.LogDir != "/data/gm/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/gm/log")
	}
	if cfg.Journal.DataDir != "/data/gm/db" {
		t.Errorf("Journal.DataDir = %q, want %q", cfg.Journal.DataDir, "/data/gm/db")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"empty file", func(c *Config) { c.File = "" }},
		{"unknown journal type", func(c *Config) { c.Journal.Type = "postgres" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/data/gm")
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}

	t.Run("unknown journal type is fine when disabled", func(t *testing.T) {
		cfg := NewConfig("/data/gm")
		cfg.Journal = JournalConfig{Enabled: false, Type: "postgres"}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "nested", "git-metafile.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "git-metafile.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := Load(filepath.Join(dir, "absent.toml"), dir)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.File != DefaultMetafile || cfg.LogDir != filepath.Join(dir, "log") {
			t.Errorf("Load() = %+v, want defaults", cfg)
		}
	})

	t.Run("reads written config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "git-metafile.toml")
		cfg := NewConfig(dir)
		cfg.Workers = 2
		cfg.Journal = JournalConfig{Enabled: true, Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := Load(path, "/elsewhere")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.Workers != 2 {
			t.Errorf("Workers = %d, want 2", got.Workers)
		}
		if got.Journal.Type != "memory" {
			t.Errorf("Journal.Type = %q, want memory", got.Journal.Type)
		}
		if got.LogDir != filepath.Join(dir, "log") {
			t.Errorf("LogDir = %q, want value from file", got.LogDir)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "git-metafile.toml")
		if err := os.WriteFile(path, []byte("workers = 0\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path, dir); err == nil {
			t.Error("Load() expected validation error")
		}
	})

	t.Run("rejects malformed toml", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "git-metafile.toml")
		if err := os.WriteFile(path, []byte("workers = \n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path, dir); err == nil {
			t.Error("Load() expected decode error")
		}
	})
}
