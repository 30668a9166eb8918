package metadata

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomDocKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, KeyLen)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

// --- Envelope tests ---

func TestEncryptDecryptDocument(t *testing.T) {
	key := randomDocKey(t)
	plaintext := []byte(`{"version":"v2","children":[]}`)

	env, err := EncryptDocument(plaintext, key)
	require.NoError(t, err)

	got, err := DecryptDocument(env, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestEnvelopeWireFormat(t *testing.T) {
	key := randomDocKey(t)
	plaintext := []byte("payload")

	env, err := EncryptDocument(plaintext, key)
	require.NoError(t, err)

	iv, err := hex.DecodeString(env.IV)
	require.NoError(t, err, "iv should be hex")
	assert.Len(t, iv, NonceLen)

	data, err := base64.StdEncoding.DecodeString(env.Data)
	require.NoError(t, err, "data should be base64")
	assert.Len(t, data, len(plaintext)+GCMTagLen, "data should be ciphertext plus tag")

	// The stored form is a JSON object with exactly these two fields.
	raw, err := env.Marshal()
	require.NoError(t, err)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Len(t, fields, 2)
	assert.Contains(t, fields, "iv")
	assert.Contains(t, fields, "data")
}

func TestEncryptDocumentFreshIV(t *testing.T) {
	key := randomDocKey(t)
	plaintext := []byte("same plaintext")

	env1, err := EncryptDocument(plaintext, key)
	require.NoError(t, err)
	env2, err := EncryptDocument(plaintext, key)
	require.NoError(t, err)

	assert.NotEqual(t, env1.IV, env2.IV, "each encryption should use a fresh IV")
	assert.NotEqual(t, env1.Data, env2.Data)
}

func TestDecryptDocumentEmptyPlaintext(t *testing.T) {
	key := randomDocKey(t)

	env, err := EncryptDocument(nil, key)
	require.NoError(t, err)

	got, err := DecryptDocument(env, key)
	require.NoError(t, err)
	assert.NotNil(t, got, "empty plaintext should decrypt to empty slice, not nil")
	assert.Len(t, got, 0)
}

func TestDecryptDocumentWrongKeyIndistinguishable(t *testing.T) {
	key := randomDocKey(t)
	otherKey := randomDocKey(t)

	env, err := EncryptDocument([]byte("secret"), key)
	require.NoError(t, err)

	_, wrongKeyErr := DecryptDocument(env, otherKey)
	require.Error(t, wrongKeyErr)

	data, err := base64.StdEncoding.DecodeString(env.Data)
	require.NoError(t, err)
	data[0] ^= 0xFF
	tampered := &Envelope{IV: env.IV, Data: base64.StdEncoding.EncodeToString(data)}
	_, tamperErr := DecryptDocument(tampered, key)
	require.Error(t, tamperErr)

	assert.ErrorIs(t, wrongKeyErr, ErrDecryptionFailed)
	assert.ErrorIs(t, tamperErr, ErrDecryptionFailed)
	assert.Equal(t, wrongKeyErr.Error(), tamperErr.Error(),
		"wrong key and tampered data must be indistinguishable")
}

func TestDecryptDocumentMalformed(t *testing.T) {
	key := randomDocKey(t)
	env, err := EncryptDocument([]byte("x"), key)
	require.NoError(t, err)

	testCases := []struct {
		name string
		env  *Envelope
	}{
		{"nil envelope", nil},
		{"non-hex iv", &Envelope{IV: "zz", Data: env.Data}},
		{"short iv", &Envelope{IV: "00ff", Data: env.Data}},
		{"non-base64 data", &Envelope{IV: env.IV, Data: "!!!"}},
		{"data shorter than tag", &Envelope{IV: env.IV, Data: base64.StdEncoding.EncodeToString([]byte("tiny"))}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecryptDocument(tc.env, key)
			assert.ErrorIs(t, err, ErrDecryptionFailed)
		})
	}
}

func TestDocumentKeyValidation(t *testing.T) {
	_, err := EncryptDocument([]byte("x"), make([]byte, 16))
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = DecryptDocument(&Envelope{}, nil)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestParseEnvelope(t *testing.T) {
	key := randomDocKey(t)
	env, err := EncryptDocument([]byte("doc"), key)
	require.NoError(t, err)

	raw, err := env.Marshal()
	require.NoError(t, err)

	parsed, err := ParseEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, env.IV, parsed.IV)
	assert.Equal(t, env.Data, parsed.Data)

	got, err := DecryptDocument(parsed, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("doc"), got)
}

func TestParseEnvelopeRejectsMalformed(t *testing.T) {
	testCases := []struct {
		name string
		raw  []byte
	}{
		{"not json", []byte("nope")},
		{"empty object", []byte(`{}`)},
		{"bad iv", []byte(`{"iv":"xx","data":"aGVsbG8gd29ybGQgd2l0aCB0YWc="}`)},
		{"bad data", []byte(`{"iv":"000000000000000000000000","data":"%%%"}`)},
		{"short data", []byte(`{"iv":"000000000000000000000000","data":"aGk="}`)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseEnvelope(tc.raw)
			assert.ErrorIs(t, err, ErrInvalidEnvelope)
		})
	}
}

func TestEnvelopeLargeDocument(t *testing.T) {
	key := randomDocKey(t)
	plaintext := bytes.Repeat([]byte("abcdefgh"), 128*1024)

	env, err := EncryptDocument(plaintext, key)
	require.NoError(t, err)
	got, err := DecryptDocument(env, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func BenchmarkEncryptDocument(b *testing.B) {
	key := make([]byte, KeyLen)
	plaintext := make([]byte, 4096)

	b.SetBytes(int64(len(plaintext)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := EncryptDocument(plaintext, key); err != nil {
			b.Fatal(err)
		}
	}
}
