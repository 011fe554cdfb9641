// Package crypto implements field-level encryption for address data at rest.
//
// Values are sealed with AES-256-GCM. The key is either supplied directly
// (base64url, 32 bytes) or derived from a password and salt with
// PBKDF2-HMAC-SHA256. Ciphertext wire format is base64url(nonce || sealed).
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	dErrors "addresshub/pkg/domain-errors"
)

const (
	keySize = 32

	// pbkdf2Iterations matches the at-rest data produced by earlier
	// deployments; changing it invalidates every stored ciphertext.
	pbkdf2Iterations = 100_000
)

// Config carries key material. Exactly one of Key or Password+Salt must be
// set. Key takes precedence when both are present.
type Config struct {
	// Key is a base64url-encoded 32-byte symmetric key.
	Key string
	// Password and Salt feed PBKDF2 when no direct key is supplied.
	Password string
	Salt     string
}

// FieldCipher encrypts and decrypts individual field values. Construct once
// at startup and inject; key derivation is deliberately expensive.
type FieldCipher struct {
	aead cipher.AEAD
}

// New derives the key and prepares the AEAD. Any key-material problem is
// returned as CodeEncryptionKeyInvalid; callers must treat it as fatal and
// never fall back to storing plaintext.
func New(cfg Config) (*FieldCipher, error) {
	key, err := deriveKey(cfg)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeEncryptionKeyInvalid, "initialize cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeEncryptionKeyInvalid, "initialize GCM")
	}
	return &FieldCipher{aead: aead}, nil
}

func deriveKey(cfg Config) ([]byte, error) {
	if cfg.Key != "" {
		key, err := base64.URLEncoding.DecodeString(cfg.Key)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeEncryptionKeyInvalid, "decode encryption key")
		}
		if len(key) != keySize {
			return nil, dErrors.Newf(dErrors.CodeEncryptionKeyInvalid,
				"encryption key must be %d bytes, got %d", keySize, len(key))
		}
		return key, nil
	}

	if cfg.Password == "" || cfg.Salt == "" {
		return nil, dErrors.New(dErrors.CodeEncryptionKeyInvalid,
			"either an encryption key or a password and salt must be configured")
	}
	return pbkdf2.Key([]byte(cfg.Password), []byte(cfg.Salt), pbkdf2Iterations, keySize, sha256.New), nil
}

// Encrypt seals a single field value. Empty input passes through so optional
// fields stay distinguishable from encrypted empties.
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a single field value. Failures return CodeDecryptionFailed;
// the field-set variant decides whether that is fatal (see Policy).
func (c *FieldCipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	raw, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeDecryptionFailed, "decode ciphertext")
	}
	if len(raw) < c.aead.NonceSize() {
		return "", dErrors.New(dErrors.CodeDecryptionFailed, "ciphertext shorter than nonce")
	}

	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeDecryptionFailed, "open ciphertext")
	}
	return string(plaintext), nil
}
