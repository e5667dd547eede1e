package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/aretw0/fieldbot/pkg/ports"
)

// SealedPrefix marks a raw response sealed by the encryption middleware.
const SealedPrefix = "enc:v1:"

// ErrInvalidKey is returned for keys that are not 32 bytes of base64.
var ErrInvalidKey = errors.New("encryption key must be 32 bytes (AES-256)")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new entries.
	ActiveKey []byte

	// FallbackKeys are tried when the active key cannot open an entry,
	// so old entries stay readable after a key rotation.
	FallbackKeys [][]byte
}

// ParseKey decodes a base64 AES-256 key.
func ParseKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}
	return key, nil
}

type encryptionMiddleware struct {
	next   ports.AuditSink
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that seals raw responses with AES-GCM.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, ErrInvalidKey
	}
	return func(next ports.AuditSink) ports.AuditSink {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Record(ctx context.Context, entry domain.AuditEntry) error {
	if entry.RawResponse != "" {
		ciphertext, err := encrypt([]byte(entry.RawResponse), m.config.ActiveKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt audit entry: %w", err)
		}
		entry.RawResponse = SealedPrefix + base64.StdEncoding.EncodeToString(ciphertext)
	}
	return m.next.Record(ctx, entry)
}

// Open returns entry with its raw response decrypted. Entries that were
// never sealed are returned unchanged.
func (c EncryptionConfig) Open(entry domain.AuditEntry) (domain.AuditEntry, error) {
	sealed, ok := strings.CutPrefix(entry.RawResponse, SealedPrefix)
	if !ok {
		return entry, nil
	}
	ciphertext, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return entry, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plain, err := decryptWithRotation(ciphertext, c.ActiveKey, c.FallbackKeys)
	if err != nil {
		return entry, fmt.Errorf("failed to decrypt audit entry %s: %w", entry.ID, err)
	}
	entry.RawResponse = string(plain)
	return entry, nil
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
