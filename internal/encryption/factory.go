package encryption

import (
	"fmt"

	"zimp-go/internal/config"
	"zimp-go/internal/zimp"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// It returns nil for type "none" (or empty): objects are stored as is.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (zimp.Encryptor, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return MarkerEncryptor{}, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
