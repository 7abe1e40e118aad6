package app

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "/custom/config.toml")
		t.Setenv(EnvHome, "/custom/zimp")

		d, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		if d.ConfigPath != "/custom/config.toml" {
			t.Errorf("ConfigPath = %q, want %q", d.ConfigPath, "/custom/config.toml")
		}
		if d.BaseDir != "/custom/zimp" {
			t.Errorf("BaseDir = %q, want %q", d.BaseDir, "/custom/zimp")
		}
		if d.LogDir != "/custom/zimp/log" {
			t.Errorf("LogDir = %q, want %q", d.LogDir, "/custom/zimp/log")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		t.Setenv(EnvConfigPath, "")
		t.Setenv(EnvHome, "")

		d, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		homeDir, _ := os.UserHomeDir()

		if want := filepath.Join(homeDir, ".config", "zimp.toml"); d.ConfigPath != want {
			t.Errorf("ConfigPath = %q, want %q", d.ConfigPath, want)
		}
		wantBase := filepath.Join(homeDir, ".local", "share", "zimp")
		if d.BaseDir != wantBase {
			t.Errorf("BaseDir = %q, want %q", d.BaseDir, wantBase)
		}
		if want := filepath.Join(wantBase, "log"); d.LogDir != want {
			t.Errorf("LogDir = %q, want %q", d.LogDir, want)
		}
	})
}

func TestLoadEnv(t *testing.T) {
	t.Run("missing file is fine", func(t *testing.T) {
		t.Chdir(t.TempDir())
		if err := LoadEnv(); err != nil {
			t.Errorf("LoadEnv() error = %v", err)
		}
	})

	t.Run("reads variables", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvHome+"=/from/dotenv\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Chdir(dir)
		t.Setenv(EnvHome, "")
		os.Unsetenv(EnvHome)

		if err := LoadEnv(); err != nil {
			t.Fatalf("LoadEnv() error = %v", err)
		}
		if got := os.Getenv(EnvHome); got != "/from/dotenv" {
			t.Errorf("%s = %q, want /from/dotenv", EnvHome, got)
		}
	})
}
