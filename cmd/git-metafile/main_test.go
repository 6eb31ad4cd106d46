package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("GIT_METAFILE_CONFIG", filepath.Join(home, "git-metafile.toml"))
	t.Setenv("GIT_METAFILE_HOME", home)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigList_FlagOverrides(t *testing.T) {
	out, err := execute(t, "config", "list", "--workers", "7", "--strict")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, want := range []string{"workers = 7", "strict = true", `file = ".metafile"`, "[journal]"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigInit_ThenRefuses(t *testing.T) {
	home := t.TempDir()
	t.Setenv("GIT_METAFILE_CONFIG", filepath.Join(home, "git-metafile.toml"))
	t.Setenv("GIT_METAFILE_HOME", home)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "init"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("first config init error = %v", err)
	}
	if !strings.Contains(out.String(), "Configuration initialized at ") {
		t.Errorf("output = %q", out.String())
	}
	if err := rootCmd.Execute(); err == nil {
		t.Error("second config init expected error")
	}
}

func TestRoot_UsageErrors(t *testing.T) {
	if _, err := execute(t); err == nil || !strings.Contains(err.Error(), "missing command") {
		t.Errorf("no command: error = %v", err)
	}
	if _, err := execute(t, "restore"); err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("unknown command: error = %v", err)
	}
}

func TestRoot_Version(t *testing.T) {
	out, err := execute(t, "--version")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out != "git-metafile "+version+"\n" {
		t.Errorf("output = %q", out)
	}
}
