package staging

import (
	"fmt"

	"zimp-go/internal/config"
	"zimp-go/internal/zimp"
)

// NewStagingStoreFromConfig creates a StagingStore implementation based on the config type.
func NewStagingStoreFromConfig(cfg config.StagingConfig, idgen zimp.IDGenerator) (zimp.StagingStore, error) {
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	switch cfg.Type {
	case "filesystem":
		if cfg.ScratchDir == "" {
			return nil, fmt.Errorf("filesystem staging store requires scratch_dir to be set")
		}
		return NewFileSystemStagingStore(cfg.ScratchDir, maxSize, idgen)
	default:
		return nil, fmt.Errorf("unknown staging store type: %s", cfg.Type)
	}
}
