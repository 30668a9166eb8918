package metadata

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

const (
	// FileMetadataVersion is the current file metadata schema version.
	FileMetadataVersion = "v1"

	// EncryptionModeGCM labels content encrypted with AES-256-GCM.
	EncryptionModeGCM = "AES-GCM"
)

// FileMetadata describes one file: where its ciphertext lives, the
// wrapped key and IV needed to decrypt it, and plaintext attributes.
// The document is sealed under the parent folder's key, so folder access
// implies file metadata access without a separate grant.
type FileMetadata struct {
	Version          string        `json:"version"`
	CID              string        `json:"cid"`
	FileKeyEncrypted string        `json:"fileKeyEncrypted"`
	FileIV           string        `json:"fileIv"`
	Size             int64         `json:"size"`
	MimeType         string        `json:"mimeType"`
	EncryptionMode   string        `json:"encryptionMode,omitempty"`
	CreatedAt        string        `json:"createdAt"`
	ModifiedAt       string        `json:"modifiedAt"`
	VersionHistory   []FileVersion `json:"versionHistory,omitempty"`
}

// FileVersion is one superseded content revision. Old revisions stay
// decryptable with the key that was current when they were written.
type FileVersion struct {
	CID        string `json:"cid"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modifiedAt"`
}

// Validate checks structural invariants of the document.
func (m *FileMetadata) Validate() error {
	if m.Version != FileMetadataVersion {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, m.Version)
	}
	if m.CID == "" {
		return fmt.Errorf("%w: file has no cid", ErrInvalidMetadata)
	}
	if m.FileKeyEncrypted == "" {
		return fmt.Errorf("%w: file has no wrapped key", ErrInvalidMetadata)
	}
	if _, err := hex.DecodeString(m.FileKeyEncrypted); err != nil {
		return fmt.Errorf("%w: non-hex fileKeyEncrypted", ErrInvalidMetadata)
	}
	iv, err := hex.DecodeString(m.FileIV)
	if err != nil || len(iv) != NonceLen {
		return fmt.Errorf("%w: invalid fileIv", ErrInvalidMetadata)
	}
	if m.Size < 0 {
		return fmt.Errorf("%w: negative size", ErrInvalidMetadata)
	}
	for i, v := range m.VersionHistory {
		if v.CID == "" {
			return fmt.Errorf("%w: version %d has no cid", ErrInvalidMetadata, i)
		}
		if v.Size < 0 {
			return fmt.Errorf("%w: version %d has negative size", ErrInvalidMetadata, i)
		}
	}
	return nil
}

// DecodeFileMetadata parses and validates a decrypted file document. The
// version is matched exhaustively; anything but the known version is
// rejected.
func DecodeFileMetadata(raw []byte) (*FileMetadata, error) {
	var m FileMetadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}
	switch m.Version {
	case FileMetadataVersion:
		// Only version so far.
	case "":
		return nil, fmt.Errorf("%w: missing version", ErrInvalidMetadata)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, m.Version)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// EncodeFileMetadata serializes a file document after validating it.
func EncodeFileMetadata(m *FileMetadata) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil document", ErrInvalidMetadata)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}
