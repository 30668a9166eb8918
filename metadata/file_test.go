package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFileMetadata() *FileMetadata {
	return &FileMetadata{
		Version:          FileMetadataVersion,
		CID:              "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff",
		FileKeyEncrypted: "deadbeef",
		FileIV:           sampleIV,
		Size:             1024,
		MimeType:         "image/png",
		EncryptionMode:   EncryptionModeGCM,
		CreatedAt:        "2024-03-01T10:00:00Z",
		ModifiedAt:       "2024-03-02T10:00:00Z",
	}
}

func TestFileMetadataRoundTrip(t *testing.T) {
	m := validFileMetadata()
	m.VersionHistory = []FileVersion{
		{CID: "oldcid1", Size: 512, ModifiedAt: "2024-02-01T00:00:00Z"},
		{CID: "oldcid2", Size: 768, ModifiedAt: "2024-02-15T00:00:00Z"},
	}

	raw, err := EncodeFileMetadata(m)
	require.NoError(t, err)

	decoded, err := DecodeFileMetadata(raw)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestDecodeFileMetadata(t *testing.T) {
	raw := []byte(`{
		"version": "v1",
		"cid": "bafyabc",
		"fileKeyEncrypted": "beef",
		"fileIv": "` + sampleIV + `",
		"size": 9,
		"mimeType": "text/plain",
		"createdAt": "2024-01-01T00:00:00Z",
		"modifiedAt": "2024-01-01T00:00:00Z"
	}`)

	m, err := DecodeFileMetadata(raw)
	require.NoError(t, err)
	assert.Equal(t, "bafyabc", m.CID)
	assert.Equal(t, int64(9), m.Size)
	assert.Empty(t, m.EncryptionMode, "encryptionMode is optional")
	assert.Empty(t, m.VersionHistory)
}

func TestDecodeFileMetadataVersionHandling(t *testing.T) {
	_, err := DecodeFileMetadata([]byte(`{"version":"v2","cid":"c","fileKeyEncrypted":"de","fileIv":"` + sampleIV + `"}`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = DecodeFileMetadata([]byte(`{"cid":"c"}`))
	assert.ErrorIs(t, err, ErrInvalidMetadata)

	_, err = DecodeFileMetadata([]byte(`garbage`))
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestFileMetadataValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*FileMetadata)
	}{
		{"missing cid", func(m *FileMetadata) { m.CID = "" }},
		{"missing wrapped key", func(m *FileMetadata) { m.FileKeyEncrypted = "" }},
		{"non-hex wrapped key", func(m *FileMetadata) { m.FileKeyEncrypted = "not-hex" }},
		{"short iv", func(m *FileMetadata) { m.FileIV = "0011" }},
		{"non-hex iv", func(m *FileMetadata) { m.FileIV = "zz02030405060708090a0b0c" }},
		{"negative size", func(m *FileMetadata) { m.Size = -1 }},
		{"history entry without cid", func(m *FileMetadata) {
			m.VersionHistory = []FileVersion{{Size: 1}}
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := validFileMetadata()
			tc.mutate(m)
			err := m.Validate()
			assert.Error(t, err)

			_, err = EncodeFileMetadata(m)
			assert.Error(t, err, "encode should refuse what validate refuses")
		})
	}
}

func TestEncodeFileMetadataNil(t *testing.T) {
	_, err := EncodeFileMetadata(nil)
	assert.ErrorIs(t, err, ErrInvalidMetadata)
}

func TestFileMetadataSealedRoundTrip(t *testing.T) {
	key := randomDocKey(t)
	m := validFileMetadata()

	raw, err := EncodeFileMetadata(m)
	require.NoError(t, err)
	env, err := EncryptDocument(raw, key)
	require.NoError(t, err)
	blob, err := env.Marshal()
	require.NoError(t, err)

	parsed, err := ParseEnvelope(blob)
	require.NoError(t, err)
	plain, err := DecryptDocument(parsed, key)
	require.NoError(t, err)
	decoded, err := DecodeFileMetadata(plain)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}
