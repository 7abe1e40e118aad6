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
		OwnerID:   "owner-abc",
		OwnerName: "Ada",
		BaseDir:   "/home/user/.local/share/zimp",
		LogDir:    "/home/user/.local/share/zimp/log",
		Vaults: []VaultConfig{
			{Type: "s3", Name: "remote", S3Bucket: "media", S3Prefix: "imports/", S3Region: "eu-west-3"},
		},
		Encryption: EncryptionConfig{Type: "age", PublicKeyPath: "/keys/zimp.pub", PrivateKeyPath: "/keys/zimp.key"},
		Database:   DatabaseConfig{Type: "postgres", DSN: "postgres://zimp@localhost/zimp"},
		Staging:    StagingConfig{Type: "filesystem", ScratchDir: "/tmp/zimp", MaxSize: 2048},
		Import: ImportConfig{
			Application:  "workspace",
			Concurrency:  8,
			CleanArchive: true,
			Ignore:       []string{"__MACOSX", "*.tmp"},
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.OwnerID != original.OwnerID {
		t.Errorf("OwnerID = %q, want %q", got.OwnerID, original.OwnerID)
	}
	if got.OwnerName != original.OwnerName {
		t.Errorf("OwnerName = %q, want %q", got.OwnerName, original.OwnerName)
	}
	if len(got.Vaults) != 1 {
		t.Fatalf("len(Vaults) = %d, want 1", len(got.Vaults))
	}
	if got.Vaults[0].S3Bucket != "media" {
		t.Errorf("Vault.S3Bucket = %q, want %q", got.Vaults[0].S3Bucket, "media")
	}
	if got.Database.DSN != original.Database.DSN {
		t.Errorf("Database.DSN = %q, want %q", got.Database.DSN, original.Database.DSN)
	}
	if got.Staging.MaxSize != 2048 {
		t.Errorf("Staging.MaxSize = %d, want %d", got.Staging.MaxSize, 2048)
	}
	if got.Import.Concurrency != 8 {
		t.Errorf("Import.Concurrency = %d, want %d", got.Import.Concurrency, 8)
	}
	if !got.Import.CleanArchive {
		t.Error("Import.CleanArchive = false, want true")
	}
	if len(got.Import.Ignore) != 2 {
		t.Fatalf("len(Import.Ignore) = %d, want 2", len(got.Import.Ignore))
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("owner-1", "Ada", "/data/zimp")

	if cfg.OwnerID != "owner-1" {
		t.Errorf("OwnerID = %q, want %q", cfg.OwnerID, "owner-1")
	}
	if cfg.LogDir != "/data/zimp/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/zimp/log")
	}
	if cfg.Vaults[0].FSVaultRoot != "/data/zimp/vault" {
		t.Errorf("Vaults[0].FSVaultRoot = %q, want %q", cfg.Vaults[0].FSVaultRoot, "/data/zimp/vault")
	}
	if cfg.Staging.ScratchDir != "/data/zimp/scratch" {
		t.Errorf("Staging.ScratchDir = %q, want %q", cfg.Staging.ScratchDir, "/data/zimp/scratch")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate(NewConfig()) error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing owner",
			mutate:  func(c *Config) { c.OwnerID = "" },
			wantErr: "OwnerID",
		},
		{
			name:    "no vaults",
			mutate:  func(c *Config) { c.Vaults = nil },
			wantErr: "Vaults",
		},
		{
			name:    "unknown vault type",
			mutate:  func(c *Config) { c.Vaults[0].Type = "ftp" },
			wantErr: "oneof",
		},
		{
			name: "s3 vault without bucket",
			mutate: func(c *Config) {
				c.Vaults[0] = VaultConfig{Type: "s3", Name: "remote"}
			},
			wantErr: "S3Bucket",
		},
		{
			name: "s3 vault with half static credentials",
			mutate: func(c *Config) {
				c.Vaults[0] = VaultConfig{Type: "s3", Name: "remote", S3Bucket: "b", S3AccessKeyID: "AK"}
			},
			wantErr: "must be set together",
		},
		{
			name: "duplicate vault names",
			mutate: func(c *Config) {
				c.Vaults = append(c.Vaults, VaultConfig{Type: "memory", Name: "local"})
			},
			wantErr: "duplicate vault name",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Database = DatabaseConfig{Type: "postgres"} },
			wantErr: "DSN",
		},
		{
			name:    "age without keys",
			mutate:  func(c *Config) { c.Encryption = EncryptionConfig{Type: "age"} },
			wantErr: "PublicKeyPath",
		},
		{
			name:    "negative max size",
			mutate:  func(c *Config) { c.Staging.MaxSize = -1 },
			wantErr: "MaxSize",
		},
		{
			name:    "concurrency out of range",
			mutate:  func(c *Config) { c.Import.Concurrency = 1000 },
			wantErr: "Concurrency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("owner-1", "Ada", "/data/zimp")
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "zimp.toml")
		cfg := NewConfig("o1", "", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("config file mode = %o, want 600", perm)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "zimp.toml")
		cfg := NewConfig("o1", "", dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		if err := Init(path, cfg); err == nil {
			t.Fatal("second Init() expected error")
		}
	})

	t.Run("refuses invalid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "zimp.toml")
		cfg := NewConfig("", "", dir)

		if err := Init(path, cfg); err == nil {
			t.Fatal("Init() expected validation error")
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("config file should not exist, stat error = %v", err)
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "zimp.toml")
		cfg := NewConfig("read-test", "Reader", dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.OwnerID != "read-test" {
			t.Errorf("OwnerID = %q, want %q", got.OwnerID, "read-test")
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "zimp.toml")
		content := "owner_id = \"o\"\nbase_dir = \"/x\"\nlog_dir = \"/x/log\"\n"
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		if _, err := ReadFromFile(path); err == nil {
			t.Fatal("ReadFromFile() expected validation error")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/zimp.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
