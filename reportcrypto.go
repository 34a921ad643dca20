package argus

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	reportKeySize    = 32 // AES-256
	reportSaltSize   = 16
	reportNonceSize  = 12
	reportKDFRounds  = 100000
	reportblobHeader = reportSaltSize + reportNonceSize
)

// ReportCipher seals and opens archived report blobs with AES-256-GCM. The
// key is derived per blob from the passphrase via PBKDF2, and the salt and
// nonce are carried in the blob itself so any replica can decrypt.
type ReportCipher struct {
	passphrase []byte
}

// NewReportCipher creates a cipher from a non-empty passphrase.
func NewReportCipher(passphrase string) (*ReportCipher, error) {
	if passphrase == "" {
		return nil, errors.New("report cipher: passphrase must not be empty")
	}
	return &ReportCipher{passphrase: []byte(passphrase)}, nil
}

// Seal encrypts plaintext into salt || nonce || ciphertext.
func (c *ReportCipher) Seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, reportSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	gcm, err := c.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, reportNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	blob := make([]byte, 0, reportblobHeader+len(plaintext)+gcm.Overhead())
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	return gcm.Seal(blob, nonce, plaintext, nil), nil
}

// Open decrypts a blob produced by Seal.
func (c *ReportCipher) Open(blob []byte) ([]byte, error) {
	if len(blob) < reportblobHeader {
		return nil, errors.New("report cipher: blob too short")
	}
	salt := blob[:reportSaltSize]
	nonce := blob[reportSaltSize:reportblobHeader]

	gcm, err := c.aead(salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, blob[reportblobHeader:], nil)
	if err != nil {
		return nil, fmt.Errorf("report cipher: decrypt failed: %w", err)
	}
	return plaintext, nil
}

func (c *ReportCipher) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(c.passphrase, salt, reportKDFRounds, reportKeySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
