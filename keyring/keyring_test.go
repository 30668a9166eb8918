package keyring

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Context key derivation tests ---

func TestDeriveContextKeyDeterministic(t *testing.T) {
	master := bytes.Repeat([]byte{0xAB}, 32)

	key1, err := DeriveContextKey(master, "file-encryption")
	require.NoError(t, err)
	key2, err := DeriveContextKey(master, "file-encryption")
	require.NoError(t, err)

	assert.Equal(t, key1, key2, "same master and label should yield the same key")
	assert.Len(t, key1, KeyLen)
}

func TestDeriveContextKeyLabelSeparation(t *testing.T) {
	master := bytes.Repeat([]byte{0xAB}, 32)

	key1, err := DeriveContextKey(master, ContextEncryptionKey)
	require.NoError(t, err)
	key2, err := DeriveContextKey(master, ContextSigningKey)
	require.NoError(t, err)

	assert.False(t, bytes.Equal(key1, key2), "different labels must yield independent keys")
}

func TestDeriveContextKeyMasterSeparation(t *testing.T) {
	key1, err := DeriveContextKey([]byte("master-one"), "label")
	require.NoError(t, err)
	key2, err := DeriveContextKey([]byte("master-two"), "label")
	require.NoError(t, err)

	assert.False(t, bytes.Equal(key1, key2), "different masters must yield different keys")
}

func TestDeriveContextKeyValidation(t *testing.T) {
	testCases := []struct {
		name    string
		master  []byte
		label   string
		wantErr error
	}{
		{"nil master", nil, "label", ErrEmptyMasterSecret},
		{"empty master", []byte{}, "label", ErrEmptyMasterSecret},
		{"empty label", []byte("master"), "", ErrEmptyContextLabel},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DeriveContextKey(tc.master, tc.label)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

// --- Random key generation tests ---

func TestGenerateFolderKey(t *testing.T) {
	key1, err := GenerateFolderKey()
	require.NoError(t, err)
	key2, err := GenerateFolderKey()
	require.NoError(t, err)

	assert.Len(t, key1, KeyLen)
	assert.False(t, bytes.Equal(key1, key2), "generated keys must be independent")
}

func TestGenerateFileKey(t *testing.T) {
	key1, err := GenerateFileKey()
	require.NoError(t, err)
	key2, err := GenerateFileKey()
	require.NoError(t, err)

	assert.Len(t, key1, KeyLen)
	assert.False(t, bytes.Equal(key1, key2), "generated keys must be independent")
}

func TestGeneratedKeysNotDerivedFromMaster(t *testing.T) {
	master := bytes.Repeat([]byte{0x11}, 32)
	derived, err := DeriveContextKey(master, "folder")
	require.NoError(t, err)

	key, err := GenerateFolderKey()
	require.NoError(t, err)

	assert.False(t, bytes.Equal(derived, key))
}

// --- Passphrase derivation tests ---

func TestMasterSecretFromPassphrase(t *testing.T) {
	salt, err := NewPassphraseSalt()
	require.NoError(t, err)

	secret1, err := MasterSecretFromPassphrase("correct horse battery staple", salt)
	require.NoError(t, err)
	secret2, err := MasterSecretFromPassphrase("correct horse battery staple", salt)
	require.NoError(t, err)

	assert.Equal(t, secret1, secret2, "same passphrase and salt should be deterministic")
	assert.Len(t, secret1, KeyLen)
}

func TestMasterSecretSaltSeparation(t *testing.T) {
	salt1, err := NewPassphraseSalt()
	require.NoError(t, err)
	salt2, err := NewPassphraseSalt()
	require.NoError(t, err)

	secret1, err := MasterSecretFromPassphrase("passphrase", salt1)
	require.NoError(t, err)
	secret2, err := MasterSecretFromPassphrase("passphrase", salt2)
	require.NoError(t, err)

	assert.False(t, bytes.Equal(secret1, secret2), "different salts must yield different secrets")
}

func TestMasterSecretValidation(t *testing.T) {
	salt := make([]byte, SaltLen)

	_, err := MasterSecretFromPassphrase("", salt)
	assert.ErrorIs(t, err, ErrEmptyPassphrase)

	_, err = MasterSecretFromPassphrase("passphrase", salt[:SaltLen-1])
	assert.ErrorIs(t, err, ErrInvalidSalt)

	_, err = MasterSecretFromPassphrase("passphrase", nil)
	assert.ErrorIs(t, err, ErrInvalidSalt)
}

// --- Identity tests ---

func TestNewIdentityDeterministic(t *testing.T) {
	master := bytes.Repeat([]byte{0x55}, 32)

	id1, err := NewIdentity(master)
	require.NoError(t, err)
	id2, err := NewIdentity(master)
	require.NoError(t, err)

	assert.Equal(t, id1.EncryptionPriv, id2.EncryptionPriv, "encryption key should be re-derivable")
	assert.Equal(t, id1.EncryptionPub, id2.EncryptionPub)
	assert.Equal(t, id1.SigningPriv, id2.SigningPriv, "signing key should be re-derivable")
	assert.Equal(t, id1.SigningPub, id2.SigningPub)
}

func TestNewIdentityShapes(t *testing.T) {
	master := bytes.Repeat([]byte{0x55}, 32)

	id, err := NewIdentity(master)
	require.NoError(t, err)

	assert.Len(t, id.EncryptionPriv, 32)
	assert.Len(t, id.EncryptionPub, 33)
	assert.Contains(t, []byte{0x02, 0x03}, id.EncryptionPub[0], "public key should be compressed")
	assert.Len(t, id.SigningPriv, 64)
	assert.Len(t, id.SigningPub, 32)
}

func TestNewIdentityMasterSeparation(t *testing.T) {
	id1, err := NewIdentity(bytes.Repeat([]byte{0x01}, 32))
	require.NoError(t, err)
	id2, err := NewIdentity(bytes.Repeat([]byte{0x02}, 32))
	require.NoError(t, err)

	assert.NotEqual(t, id1.EncryptionPub, id2.EncryptionPub)
	assert.NotEqual(t, id1.SigningPub, id2.SigningPub)
}

func TestNewIdentityKeypairsIndependent(t *testing.T) {
	id, err := NewIdentity(bytes.Repeat([]byte{0x09}, 32))
	require.NoError(t, err)

	assert.False(t, bytes.Equal(id.EncryptionPriv, id.SigningPriv[:32]),
		"encryption scalar and signing seed must come from different contexts")
}

func TestIdentityDestroy(t *testing.T) {
	id, err := NewIdentity(bytes.Repeat([]byte{0x77}, 32))
	require.NoError(t, err)

	id.Destroy()

	assert.Equal(t, make([]byte, 32), id.EncryptionPriv, "encryption key should be zeroized")
	assert.Equal(t, make([]byte, 64), id.SigningPriv, "signing key should be zeroized")
}

func TestNewIdentityEmptyMaster(t *testing.T) {
	_, err := NewIdentity(nil)
	assert.ErrorIs(t, err, ErrEmptyMasterSecret)
}

// --- Handle tests ---

func TestHandleLifecycle(t *testing.T) {
	key := bytes.Repeat([]byte{0xCD}, KeyLen)

	h := NewHandle(key)
	require.False(t, h.Destroyed())
	assert.Equal(t, key, h.Bytes())

	h.Destroy()
	assert.True(t, h.Destroyed())
	assert.Nil(t, h.Bytes())

	// Original slice is a copy, untouched by Destroy.
	assert.Equal(t, bytes.Repeat([]byte{0xCD}, KeyLen), key)
}

func TestHandleDestroyZeroizes(t *testing.T) {
	h := NewHandle([]byte{1, 2, 3, 4})
	buf := h.Bytes()

	h.Destroy()

	assert.Equal(t, []byte{0, 0, 0, 0}, buf, "backing buffer should be zeroized")
}

func TestHandleDestroyIdempotent(t *testing.T) {
	h := NewHandle([]byte{1, 2, 3})
	h.Destroy()
	assert.NotPanics(t, func() { h.Destroy() })
	assert.NotPanics(t, func() { (*Handle)(nil).Destroy() })
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5}
	Zero(b)
	assert.Equal(t, make([]byte, 5), b)

	assert.NotPanics(t, func() { Zero(nil) })
}

func BenchmarkDeriveContextKey(b *testing.B) {
	master := bytes.Repeat([]byte{0xAB}, 32)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := DeriveContextKey(master, "file-encryption"); err != nil {
			b.Fatal(err)
		}
	}
}
