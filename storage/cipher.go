package storage

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrDecrypt is returned when stored bytes cannot be opened with the key.
var ErrDecrypt = errors.New("failed to decrypt stored value")

// Cipher seals and opens values at rest.
type Cipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(ciphertext []byte) ([]byte, error)
}

// SecretBoxCipher encrypts values with NaCl secretbox (XSalsa20-Poly1305).
type SecretBoxCipher struct {
	key [32]byte
}

// NewSecretBoxCipher derives a 32-byte key from secret with SHA-256.
func NewSecretBoxCipher(secret []byte) (*SecretBoxCipher, error) {
	if len(secret) < 16 {
		return nil, errors.New("cipher secret must be at least 16 bytes")
	}
	return &SecretBoxCipher{key: sha256.Sum256(secret)}, nil
}

// Seal returns nonce || box.
func (c *SecretBoxCipher) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &c.key), nil
}

func (c *SecretBoxCipher) Open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize+secretbox.Overhead {
		return nil, ErrDecrypt
	}
	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])

	out, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, &c.key)
	if !ok {
		return nil, ErrDecrypt
	}
	return out, nil
}

// EncryptedTokenStore wraps a TokenStore so token bytes never reach it in clear.
type EncryptedTokenStore struct {
	store  TokenStore
	cipher Cipher
}

// NewEncryptedTokenStore wraps store with cipher.
func NewEncryptedTokenStore(store TokenStore, cipher Cipher) *EncryptedTokenStore {
	return &EncryptedTokenStore{store: store, cipher: cipher}
}

func (s *EncryptedTokenStore) StoreToken(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	sealed, err := s.cipher.Seal(data)
	if err != nil {
		return err
	}
	return s.store.StoreToken(ctx, key, sealed, ttl)
}

func (s *EncryptedTokenStore) GetToken(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.store.GetToken(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.cipher.Open(sealed)
}

func (s *EncryptedTokenStore) DeleteToken(ctx context.Context, key string) error {
	return s.store.DeleteToken(ctx, key)
}
