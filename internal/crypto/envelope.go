// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

// Package crypto encrypts backup payloads.
//
// Every payload is sealed into its own Envelope:
//   - AES-256-GCM authenticated encryption
//   - a fresh 16-byte salt and 12-byte nonce per envelope
//   - the AES key is derived from the configured master secret and the
//     envelope salt with HKDF-SHA256, so no two envelopes share a key
//
// Envelopes are serialized as JSON and stored in place of the plaintext.
// The backup checksum is computed over the sealed bytes, so integrity can
// be verified without the master secret.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/hkdf"
)

// AlgorithmAES256GCM identifies the only supported cipher suite.
const AlgorithmAES256GCM = "AES-256-GCM+HKDF-SHA256"

const (
	hkdfInfo  = "lifeboat-backup-payload-v1"
	keySize   = 32
	saltSize  = 16
	nonceSize = 12

	minSecretLength = 16
)

var (
	ErrWeakSecret           = errors.New("crypto: master secret must be at least 16 characters")
	ErrUnsupportedAlgorithm = errors.New("crypto: unsupported algorithm")
	ErrDecryptionFailed     = errors.New("crypto: decryption failed: wrong key or tampered payload")
	ErrMalformedEnvelope    = errors.New("crypto: malformed envelope")
)

// Envelope is a sealed payload. Byte slices serialize as base64.
type Envelope struct {
	Algorithm  string `json:"algorithm"`
	KeyID      string `json:"key_id,omitempty"`
	Salt       []byte `json:"salt"`
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
}

// Encryptor is the encryption collaborator used for backup payloads.
type Encryptor interface {
	Encrypt(plaintext []byte) (*Envelope, error)
	Decrypt(env *Envelope) ([]byte, error)
}

// AESGCM derives a per-envelope AES-256-GCM key from a master secret.
type AESGCM struct {
	secret []byte
	keyID  string
}

var _ Encryptor = (*AESGCM)(nil)

// NewAESGCM returns an Encryptor for secret. keyID is recorded on every
// envelope so rotated secrets can be told apart.
func NewAESGCM(secret, keyID string) (*AESGCM, error) {
	if len(secret) < minSecretLength {
		return nil, ErrWeakSecret
	}
	return &AESGCM{secret: []byte(secret), keyID: keyID}, nil
}

func (a *AESGCM) aead(salt []byte) (cipher.AEAD, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, a.secret, salt, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext into a new envelope.
func (a *AESGCM) Encrypt(plaintext []byte) (*Envelope, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	iv := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	gcm, err := a.aead(salt)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Algorithm:  AlgorithmAES256GCM,
		KeyID:      a.keyID,
		Salt:       salt,
		IV:         iv,
		Ciphertext: gcm.Seal(nil, iv, plaintext, []byte(AlgorithmAES256GCM)),
	}, nil
}

// Decrypt opens env. Any tampering with salt, nonce or ciphertext yields
// ErrDecryptionFailed.
func (a *AESGCM) Decrypt(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, ErrMalformedEnvelope
	}
	if env.Algorithm != AlgorithmAES256GCM {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, env.Algorithm)
	}
	if len(env.Salt) != saltSize || len(env.IV) != nonceSize {
		return nil, ErrMalformedEnvelope
	}
	gcm, err := a.aead(env.Salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, env.IV, env.Ciphertext, []byte(env.Algorithm))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// Seal encrypts plaintext and returns the serialized envelope.
func Seal(e Encryptor, plaintext []byte) ([]byte, error) {
	env, err := e.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// Open parses a serialized envelope and decrypts it.
func Open(e Encryptor, sealed []byte) ([]byte, error) {
	var env Envelope
	if err := json.Unmarshal(sealed, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}
	return e.Decrypt(&env)
}
