package vault

import (
	"context"
	"fmt"

	"zimp-go/internal/config"
	"zimp-go/internal/zimp"
)

// NewVaultFromConfig creates a Vault implementation based on the vault config type.
// enc may be nil to store objects unencrypted.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig, enc zimp.Encryptor, idgen zimp.IDGenerator) (zimp.Vault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(cfg.Name, enc, idgen), nil
	case "s3":
		return NewS3Vault(ctx, cfg, enc, idgen)
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		return NewFileSystemVault(cfg.Name, cfg.FSVaultRoot, enc, idgen)
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}
