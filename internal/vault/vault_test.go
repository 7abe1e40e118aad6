package vault_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zimp-go/internal/config"
	"zimp-go/internal/encryption"
	"zimp-go/internal/testutil"
	"zimp-go/internal/vault"
	"zimp-go/internal/zimp"
)

func writeLocal(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return p
}

// vaultFactories builds every local backend, with and without encryption.
func vaultFactories(t *testing.T) map[string]func(t *testing.T, enc zimp.Encryptor) zimp.Vault {
	return map[string]func(t *testing.T, enc zimp.Encryptor) zimp.Vault{
		"memory": func(t *testing.T, enc zimp.Encryptor) zimp.Vault {
			return vault.NewMemoryVault("test", enc, testutil.NewStubIDGenerator())
		},
		"filesystem": func(t *testing.T, enc zimp.Encryptor) zimp.Vault {
			v, err := vault.NewFileSystemVault("test", t.TempDir(), enc, testutil.NewStubIDGenerator())
			if err != nil {
				t.Fatalf("NewFileSystemVault() error = %v", err)
			}
			return v
		},
	}
}

func TestVault_WriteRead(t *testing.T) {
	for name, newVault := range vaultFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			v := newVault(t, nil)
			src := writeLocal(t, "notes.txt", "hello vault")

			stored, err := v.Write(ctx, src, "inbox", "owner-1")
			if err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if stored.ID != "id-1" {
				t.Errorf("ID = %q, want %q", stored.ID, "id-1")
			}
			if stored.Size != int64(len("hello vault")) {
				t.Errorf("Size = %d, want %d", stored.Size, len("hello vault"))
			}

			var buf bytes.Buffer
			if err := v.Read(ctx, stored.ID, &buf); err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if buf.String() != "hello vault" {
				t.Errorf("Read() = %q, want %q", buf.String(), "hello vault")
			}

			if err := v.ValidateSetup(ctx); err != nil {
				t.Errorf("ValidateSetup() error = %v", err)
			}
		})
	}
}

func TestVault_WriteEncrypted(t *testing.T) {
	for name, newVault := range vaultFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			enc := encryption.MarkerEncryptor{}
			v := newVault(t, enc)
			src := writeLocal(t, "secret.txt", "plain text")

			stored, err := v.Write(ctx, src, "", "owner-1")
			if err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if stored.Size != int64(len("plain text")) {
				t.Errorf("Size = %d, want the plaintext size %d", stored.Size, len("plain text"))
			}

			var sealed bytes.Buffer
			if err := v.Read(ctx, stored.ID, &sealed); err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if sealed.String() == "plain text" {
				t.Fatal("stored object should be encrypted")
			}

			dec, err := enc.Unlock("")
			if err != nil {
				t.Fatal(err)
			}
			var plain bytes.Buffer
			if err := dec.Decrypt(&sealed, &plain); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if plain.String() != "plain text" {
				t.Errorf("decrypted = %q, want %q", plain.String(), "plain text")
			}
		})
	}
}

func TestVault_Errors(t *testing.T) {
	for name, newVault := range vaultFactories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			v := newVault(t, nil)

			if _, err := v.Write(ctx, filepath.Join(t.TempDir(), "missing"), "", "o"); err == nil {
				t.Error("Write() of a missing file expected error")
			}

			var buf bytes.Buffer
			if err := v.Read(ctx, "id-404", &buf); !errors.Is(err, vault.ErrNotFound) {
				t.Errorf("Read() error = %v, want ErrNotFound", err)
			}

			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			if _, err := v.Write(cancelled, writeLocal(t, "a.txt", "a"), "", "o"); !errors.Is(err, context.Canceled) {
				t.Errorf("Write() with cancelled context error = %v, want context.Canceled", err)
			}
		})
	}
}

func TestFileSystemVault_Layout(t *testing.T) {
	root := t.TempDir()
	v, err := vault.NewFileSystemVault("local", root, nil, testutil.NewStubIDGenerator())
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	stored, err := v.Write(context.Background(), writeLocal(t, "a.txt", "abc"), "", "o")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "content", stored.ID))
	if err != nil {
		t.Fatalf("object not stored under content/: %v", err)
	}
	if string(data) != "abc" {
		t.Errorf("stored = %q, want %q", data, "abc")
	}

	entries, err := os.ReadDir(filepath.Join(root, "content"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}

	for _, id := range []string{"../escape", "a/b", "..", ""} {
		if err := v.Read(context.Background(), id, &bytes.Buffer{}); err == nil {
			t.Errorf("Read(%q) expected error", id)
		}
	}
}

func TestMemoryVault_RecordsOwnerAndFolder(t *testing.T) {
	v := vault.NewMemoryVault("mem", nil, testutil.NewStubIDGenerator())

	stored, err := v.Write(context.Background(), writeLocal(t, "a.txt", "abc"), "inbox", "owner-9")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	obj := v.Object(stored.ID)
	if obj == nil {
		t.Fatal("Object() = nil")
	}
	if obj.OwnerID != "owner-9" || obj.Folder != "inbox" {
		t.Errorf("object owner/folder = %q/%q, want owner-9/inbox", obj.OwnerID, obj.Folder)
	}
	if v.Len() != 1 {
		t.Errorf("Len() = %d, want 1", v.Len())
	}
}

func TestNewVaultFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.VaultConfig
		wantErr bool
	}{
		{name: "memory", cfg: config.VaultConfig{Type: "memory", Name: "m"}},
		{name: "filesystem", cfg: config.VaultConfig{Type: "filesystem", Name: "f", FSVaultRoot: t.TempDir()}},
		{name: "filesystem without root", cfg: config.VaultConfig{Type: "filesystem", Name: "f"}, wantErr: true},
		{name: "s3 without bucket", cfg: config.VaultConfig{Type: "s3", Name: "s"}, wantErr: true},
		{name: "unknown", cfg: config.VaultConfig{Type: "tape", Name: "t"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := vault.NewVaultFromConfig(context.Background(), tt.cfg, nil, zimp.UUIDGenerator{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewVaultFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && v == nil {
				t.Fatal("NewVaultFromConfig() returned nil vault")
			}
		})
	}
}
