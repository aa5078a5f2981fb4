// Package security holds the at-rest encryption for retained raw files.
// Keys are derived from a passphrase with scrypt and never persisted; only
// the salt is stored in config.
package security

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// ErrLocked is returned when encryption is enabled but no passphrase has
// been provided this session.
var ErrLocked = errors.New("encryption is enabled but not unlocked")

// ErrCiphertextTooShort is returned for blobs shorter than a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

const (
	saltLength = 16
	keyLength  = chacha20poly1305.KeySize

	scryptN = 1 << 14
	scryptR = 8
	scryptP = 1
)

// Encryptor transforms raw file bytes at rest. Implementations are
// passthrough when encryption is disabled.
type Encryptor interface {
	IsEnabled() bool
	HasKey() bool
	Encrypt(data []byte) ([]byte, error)
	Decrypt(data []byte) ([]byte, error)
}

// GenerateSalt returns a fresh random salt for key derivation.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey stretches a passphrase into a cipher key.
func DeriveKey(passphrase string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// Manager is the session-scoped Encryptor. The key lives only in memory;
// Lock drops it and subsequent calls fail with ErrLocked.
type Manager struct {
	enabled bool
	key     []byte
}

// NewManager creates a Manager; disabled managers pass data through
// unchanged.
func NewManager(enabled bool) *Manager {
	return &Manager{enabled: enabled}
}

func (m *Manager) IsEnabled() bool { return m.enabled }

func (m *Manager) HasKey() bool { return m.key != nil }

// Unlock derives and holds the session key.
func (m *Manager) Unlock(passphrase string, salt []byte) error {
	key, err := DeriveKey(passphrase, salt)
	if err != nil {
		return err
	}
	m.key = key
	return nil
}

// Lock forgets the session key.
func (m *Manager) Lock() {
	m.key = nil
}

// Encrypt seals data with a random nonce prepended to the ciphertext.
func (m *Manager) Encrypt(data []byte) ([]byte, error) {
	if !m.enabled {
		return data, nil
	}
	if m.key == nil {
		return nil, ErrLocked
	}
	aead, err := chacha20poly1305.NewX(m.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, data, nil), nil
}

// Decrypt opens a blob produced by Encrypt.
func (m *Manager) Decrypt(data []byte) ([]byte, error) {
	if !m.enabled {
		return data, nil
	}
	if m.key == nil {
		return nil, ErrLocked
	}
	aead, err := chacha20poly1305.NewX(m.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if len(data) < aead.NonceSize() {
		return nil, ErrCiphertextTooShort
	}
	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}
