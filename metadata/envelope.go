// Package metadata implements the versioned metadata documents of the
// vault and the encrypted envelope they travel in.
//
// Folder and file metadata are JSON documents sealed with AES-256-GCM
// before they touch storage. Folder documents are a tagged union over a
// schema version: every child entry of a document must belong to the
// document's own version, and a document mixing shapes is rejected
// outright rather than coerced.
package metadata

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// KeyLen is the length of a document encryption key.
	KeyLen = 32

	// NonceLen is the AES-GCM nonce length in bytes.
	NonceLen = 12

	// GCMTagLen is the AES-GCM authentication tag length in bytes.
	GCMTagLen = 16
)

// Envelope is the wire form of an encrypted document: a hex-encoded
// 12-byte IV and the base64-encoded ciphertext with the 16-byte tag
// appended.
type Envelope struct {
	IV   string `json:"iv"`
	Data string `json:"data"`
}

// EncryptDocument seals plaintext under key with a fresh random IV.
func EncryptDocument(plaintext, key []byte) (*Envelope, error) {
	gcm, err := documentCipher(key)
	if err != nil {
		if errors.Is(err, ErrInvalidKey) {
			return nil, err
		}
		return nil, ErrEncryptionFailed
	}

	iv := make([]byte, NonceLen)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncryptionFailed, err)
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	return &Envelope{
		IV:   hex.EncodeToString(iv),
		Data: base64.StdEncoding.EncodeToString(sealed),
	}, nil
}

// DecryptDocument opens an envelope with key. A wrong key and a tampered
// envelope are indistinguishable: both return ErrDecryptionFailed with no
// further detail.
func DecryptDocument(env *Envelope, key []byte) ([]byte, error) {
	gcm, err := documentCipher(key)
	if err != nil {
		if errors.Is(err, ErrInvalidKey) {
			return nil, err
		}
		return nil, ErrDecryptionFailed
	}
	if env == nil {
		return nil, ErrDecryptionFailed
	}

	iv, err := hex.DecodeString(env.IV)
	if err != nil || len(iv) != NonceLen {
		return nil, ErrDecryptionFailed
	}
	data, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil || len(data) < GCMTagLen {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := gcm.Open(nil, iv, data, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// Marshal renders the envelope as JSON for storage.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// ParseEnvelope decodes a stored envelope and checks both fields are
// present and well-formed. The ciphertext itself is not authenticated
// here; that happens in DecryptDocument.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}
	iv, err := hex.DecodeString(env.IV)
	if err != nil || len(iv) != NonceLen {
		return nil, fmt.Errorf("%w: bad iv", ErrInvalidEnvelope)
	}
	data, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil || len(data) < GCMTagLen {
		return nil, fmt.Errorf("%w: bad data", ErrInvalidEnvelope)
	}
	return &env, nil
}

func documentCipher(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLen {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrInvalidKey, KeyLen, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
