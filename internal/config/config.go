package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for zimp.
type Config struct {
	OwnerID    string           `toml:"owner_id" validate:"required"`
	OwnerName  string           `toml:"owner_name"`
	BaseDir    string           `toml:"base_dir" validate:"required"`
	LogDir     string           `toml:"log_dir" validate:"required"`
	Vaults     []VaultConfig    `toml:"vaults" validate:"required,min=1,dive"`
	Encryption EncryptionConfig `toml:"encryption"`
	Database   DatabaseConfig   `toml:"database"`
	Staging    StagingConfig    `toml:"staging"`
	Import     ImportConfig     `toml:"import"`
}

// EncryptionConfig selects how vault objects are encrypted at rest.
type EncryptionConfig struct {
	Type           string `toml:"type" validate:"omitempty,oneof=none age test"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path" validate:"required_if=Type age"`
	PrivateKeyPath string `toml:"private_key_path" validate:"required_if=Type age"`
}

// VaultConfig represents configuration for a vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type" validate:"required,oneof=memory filesystem s3"`
	Name string `toml:"name" validate:"required"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty" validate:"required_if=Type s3"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty" validate:"omitempty,url"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
	S3ForcePathStyle  bool   `toml:"s3_force_path_style,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty" validate:"required_if=Type filesystem"`
}

// DatabaseConfig represents configuration for the document store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type" validate:"required,oneof=memory sqlite postgres"`
	DataDir string `toml:"data_dir,omitempty" validate:"required_if=Type sqlite"` // only used for type=sqlite
	DSN     string `toml:"dsn,omitempty" validate:"required_if=Type postgres"`    // only used for type=postgres
}

// StagingConfig represents configuration for the scratch area uploads and
// extracted files live in until cleanup.
type StagingConfig struct {
	Type       string `toml:"type" validate:"required,oneof=filesystem"`
	ScratchDir string `toml:"scratch_dir" validate:"required"`
	MaxSize    int64  `toml:"max_size" validate:"gte=0"` // max total size in bytes; 0 selects the default
}

// ImportConfig tunes the import pipeline.
type ImportConfig struct {
	Application       string   `toml:"application,omitempty"`
	Collection        string   `toml:"collection,omitempty"`
	Concurrency       int      `toml:"concurrency,omitempty" validate:"gte=0,lte=64"`
	CleanArchive      bool     `toml:"clean_archive"`
	DestinationFolder string   `toml:"destination_folder,omitempty"`
	Ignore            []string `toml:"ignore,omitempty"`
}

// NewConfig creates a new Config rooted at baseDir with local defaults:
// a filesystem vault, a sqlite database and a filesystem scratch area.
func NewConfig(ownerID, ownerName, baseDir string) *Config {
	return &Config{
		OwnerID:   ownerID,
		OwnerName: ownerName,
		BaseDir:   baseDir,
		LogDir:    filepath.Join(baseDir, "log"),
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: filepath.Join(baseDir, "vault")},
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "zimp.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "zimp.key"),
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Staging:  StagingConfig{Type: "filesystem", ScratchDir: filepath.Join(baseDir, "scratch")},
		Import: ImportConfig{
			CleanArchive: true,
			Ignore:       []string{"__MACOSX", ".DS_Store"},
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads and validates a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
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

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := Validate(cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
