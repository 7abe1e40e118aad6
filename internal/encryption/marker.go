package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"zimp-go/internal/zimp"
)

// markerHeader prefixes every object written by MarkerEncryptor.
var markerHeader = []byte("ZIMPENC\x00")

// ErrBadMarker is returned when an object lacks the marker header.
var ErrBadMarker = errors.New("missing encryption marker")

// MarkerEncryptor is a reversible stand-in for real encryption. It only
// prefixes a fixed header, so tests can tell stored bytes from plaintext
// without keys or passphrases.
type MarkerEncryptor struct{}

var _ zimp.Encryptor = MarkerEncryptor{}

func (MarkerEncryptor) Setup(string) error { return nil }

func (MarkerEncryptor) IsConfigured() bool { return true }

func (MarkerEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(markerHeader); err != nil {
		return fmt.Errorf("writing marker: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (MarkerEncryptor) Unlock(string) (zimp.DecryptionContext, error) {
	return markerDecryption{}, nil
}

type markerDecryption struct{}

func (markerDecryption) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(markerHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("%w: %w", ErrBadMarker, err)
	}
	if !bytes.Equal(header, markerHeader) {
		return ErrBadMarker
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
