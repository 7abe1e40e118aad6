package testutil

import (
	"zimp-go/internal/encryption"
	"zimp-go/internal/zimp"
)

// NewTestEncryptor returns an encryptor that needs no keys.
func NewTestEncryptor() zimp.Encryptor {
	return encryption.MarkerEncryptor{}
}
