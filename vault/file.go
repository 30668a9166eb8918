package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/FSM1/cipher-box-sub012/keyring"
	"github.com/FSM1/cipher-box-sub012/metadata"
)

// fileBlob is the stored target of a file pointer: the file's metadata
// document sealed under the parent folder's key, plus an optional copy
// of the same document sealed under the file's own key. The second copy
// exists once the file has been shared directly, so a recipient holding
// only the file key can read the metadata.
type fileBlob struct {
	Folder *metadata.Envelope `json:"folder"`
	Shared *metadata.Envelope `json:"shared,omitempty"`
}

func decodeFileBlob(raw []byte) (*fileBlob, error) {
	var b fileBlob
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: bad file blob: %w", ErrInvalidState, err)
	}
	if b.Folder == nil {
		return nil, fmt.Errorf("%w: file blob has no sealed metadata", ErrInvalidState)
	}
	return &b, nil
}

// storeFileBlob seals fm under folderKey, optionally adds the copy
// sealed under fileKey, stores the blob and returns its content
// address.
func (v *Vault) storeFileBlob(fm *metadata.FileMetadata, folderKey, fileKey []byte, withShared bool) (string, error) {
	raw, err := metadata.EncodeFileMetadata(fm)
	if err != nil {
		return "", err
	}
	folderEnv, err := metadata.EncryptDocument(raw, folderKey)
	if err != nil {
		return "", err
	}
	blob := &fileBlob{Folder: folderEnv}
	if withShared {
		sharedEnv, err := metadata.EncryptDocument(raw, fileKey)
		if err != nil {
			return "", err
		}
		blob.Shared = sharedEnv
	}

	data, err := json.Marshal(blob)
	if err != nil {
		return "", fmt.Errorf("vault: marshal file blob: %w", err)
	}
	return v.putBlob(data)
}

// loadFileBlob resolves a file pointer and fetches its blob.
func (v *Vault) loadFileBlob(ctx context.Context, pointerName string) (*fileBlob, error) {
	cid, err := v.resolveValue(ctx, pointerName)
	if err != nil {
		return nil, err
	}
	raw, err := v.fetchBlob(ctx, cid)
	if err != nil {
		return nil, err
	}
	return decodeFileBlob(raw)
}

// fileMetadataFrom opens the folder-sealed slot of a file blob.
func fileMetadataFrom(blob *fileBlob, folderKey []byte) (*metadata.FileMetadata, error) {
	raw, err := metadata.DecryptDocument(blob.Folder, folderKey)
	if err != nil {
		return nil, err
	}
	return metadata.DecodeFileMetadata(raw)
}

// publishFile republishes a file pointer at the next sequence. The
// file's signing seed is sealed under the parent folder's key.
func (v *Vault) publishFile(ctx context.Context, pointerName string, folderKey []byte, cid string) error {
	ps := v.State.GetPointer(pointerName)
	if ps == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPointer, pointerName)
	}
	pub, priv, err := v.signingKeypairFor(ps, folderKey)
	if err != nil {
		return err
	}
	defer keyring.Zero(priv)

	_, err = v.Publisher.Publish(ctx, pub, priv, cid)
	return err
}

// PutFile creates or updates the file called name in the folder at
// folderName and returns the file's pointer name.
//
// Creation generates a fresh file key; updates keep the current key and
// append the superseded revision to the version history. Both paths run
// the pending-rotation check first, so a revoked grant is settled
// before new content lands.
func (v *Vault) PutFile(ctx context.Context, folderName, name string, content []byte, mimeType string) (string, error) {
	if err := metadata.ValidateChildName(name); err != nil {
		return "", err
	}
	if err := v.checkRotation(ctx, folderName); err != nil {
		return "", err
	}

	folderKey, err := v.folderKeyFor(ctx, folderName)
	if err != nil {
		return "", err
	}
	defer keyring.Zero(folderKey)

	doc, err := v.loadFolderDoc(ctx, folderName, folderKey)
	if err != nil {
		return "", err
	}

	existing, ok := doc.FindChild(name)
	if !ok {
		return v.createFile(ctx, folderName, folderKey, doc, name, content, mimeType)
	}
	switch c := existing.(type) {
	case metadata.FileChildV2:
		return c.FileMetaPointerName, v.updateFile(ctx, folderName, folderKey, doc, c, content, mimeType)
	case metadata.FileChildV1:
		return "", fmt.Errorf("%w: legacy inline entry %q", metadata.ErrUnsupportedVersion, name)
	default:
		return "", fmt.Errorf("%w: %q", ErrNotFile, name)
	}
}

func (v *Vault) createFile(ctx context.Context, folderName string, folderKey []byte, doc *metadata.FolderMetadata, name string, content []byte, mimeType string) (string, error) {
	fileKey, err := keyring.GenerateFileKey()
	if err != nil {
		return "", err
	}
	defer keyring.Zero(fileKey)

	blob, ivHex, err := encryptContent(content, fileKey)
	if err != nil {
		return "", err
	}
	contentCID, err := v.putBlob(blob)
	if err != nil {
		return "", err
	}

	pointerName, pub, priv, err := v.newPointer(KindFile, folderName, folderKey)
	if err != nil {
		return "", err
	}
	defer keyring.Zero(priv)

	wrappedHex, err := v.wrapToOwnerHex(fileKey)
	if err != nil {
		v.State.RemovePointer(pointerName)
		return "", err
	}

	now := nowRFC3339()
	fm := &metadata.FileMetadata{
		Version:          metadata.FileMetadataVersion,
		CID:              contentCID,
		FileKeyEncrypted: wrappedHex,
		FileIV:           ivHex,
		Size:             int64(len(content)),
		MimeType:         mimeType,
		EncryptionMode:   metadata.EncryptionModeGCM,
		CreatedAt:        now,
		ModifiedAt:       now,
	}
	metaCID, err := v.storeFileBlob(fm, folderKey, nil, false)
	if err != nil {
		v.State.RemovePointer(pointerName)
		return "", err
	}
	if _, err := v.Publisher.Publish(ctx, pub, priv, metaCID); err != nil {
		v.State.RemovePointer(pointerName)
		return "", err
	}

	entry := metadata.NewFileChildV2(uuid.NewString(), name, pointerName, now, now)
	if err := doc.AddChild(entry); err != nil {
		v.State.RemovePointer(pointerName)
		return "", err
	}
	if err := v.saveFolderDoc(ctx, folderName, folderKey, doc); err != nil {
		v.State.RemovePointer(pointerName)
		return "", err
	}
	if err := v.State.Save(); err != nil {
		return "", err
	}
	return pointerName, nil
}

func (v *Vault) updateFile(ctx context.Context, folderName string, folderKey []byte, doc *metadata.FolderMetadata, entry metadata.FileChildV2, content []byte, mimeType string) error {
	pointerName := entry.FileMetaPointerName

	// Settle any revoked direct share of this file before writing.
	if err := v.checkRotation(ctx, pointerName); err != nil {
		return err
	}

	blob, err := v.loadFileBlob(ctx, pointerName)
	if err != nil {
		return err
	}
	fm, err := fileMetadataFrom(blob, folderKey)
	if err != nil {
		return err
	}
	fileKey, err := v.unwrapOwnerHex(fm.FileKeyEncrypted)
	if err != nil {
		return err
	}
	defer keyring.Zero(fileKey)

	ct, ivHex, err := encryptContent(content, fileKey)
	if err != nil {
		return err
	}
	contentCID, err := v.putBlob(ct)
	if err != nil {
		return err
	}

	now := nowRFC3339()
	fm.VersionHistory = append(fm.VersionHistory, metadata.FileVersion{
		CID:        fm.CID,
		Size:       fm.Size,
		ModifiedAt: fm.ModifiedAt,
	})
	fm.CID = contentCID
	fm.FileIV = ivHex
	fm.Size = int64(len(content))
	if mimeType != "" {
		fm.MimeType = mimeType
	}
	fm.ModifiedAt = now

	metaCID, err := v.storeFileBlob(fm, folderKey, fileKey, blob.Shared != nil)
	if err != nil {
		return err
	}
	if err := v.publishFile(ctx, pointerName, folderKey, metaCID); err != nil {
		return err
	}

	entry.ModifiedAt = now
	if err := doc.ReplaceChild(entry); err != nil {
		return err
	}
	return v.saveFolderDoc(ctx, folderName, folderKey, doc)
}

// GetFile reads the file called name from the folder at folderName,
// returning the plaintext content and the file's metadata. All key
// buffers are zeroized before returning, on every path.
func (v *Vault) GetFile(ctx context.Context, folderName, name string) ([]byte, *metadata.FileMetadata, error) {
	folderKey, err := v.folderKeyFor(ctx, folderName)
	if err != nil {
		return nil, nil, err
	}
	defer keyring.Zero(folderKey)

	doc, err := v.loadFolderDoc(ctx, folderName, folderKey)
	if err != nil {
		return nil, nil, err
	}
	child, ok := doc.FindChild(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", metadata.ErrChildNotFound, name)
	}

	switch c := child.(type) {
	case metadata.FileChildV1:
		// Legacy inline entry: address, wrapped key and IV live in the
		// folder document itself.
		fileKey, err := v.unwrapOwnerHex(c.FileKeyEncrypted)
		if err != nil {
			return nil, nil, err
		}
		defer keyring.Zero(fileKey)

		ct, err := v.fetchBlob(ctx, c.CID)
		if err != nil {
			return nil, nil, err
		}
		content, err := decryptContent(ct, fileKey, c.FileIV)
		if err != nil {
			return nil, nil, err
		}
		fm := &metadata.FileMetadata{
			Version:          metadata.FileMetadataVersion,
			CID:              c.CID,
			FileKeyEncrypted: c.FileKeyEncrypted,
			FileIV:           c.FileIV,
			Size:             c.Size,
			MimeType:         c.MimeType,
			CreatedAt:        c.CreatedAt,
			ModifiedAt:       c.ModifiedAt,
		}
		return content, fm, nil

	case metadata.FileChildV2:
		blob, err := v.loadFileBlob(ctx, c.FileMetaPointerName)
		if err != nil {
			return nil, nil, err
		}
		fm, err := fileMetadataFrom(blob, folderKey)
		if err != nil {
			return nil, nil, err
		}
		fileKey, err := v.unwrapOwnerHex(fm.FileKeyEncrypted)
		if err != nil {
			return nil, nil, err
		}
		defer keyring.Zero(fileKey)

		ct, err := v.fetchBlob(ctx, fm.CID)
		if err != nil {
			return nil, nil, err
		}
		content, err := decryptContent(ct, fileKey, fm.FileIV)
		if err != nil {
			return nil, nil, err
		}
		return content, fm, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrNotFile, name)
	}
}

// encryptContent seals file content under key with a fresh random IV.
// The blob is ciphertext with the tag appended; the IV travels in the
// file's metadata, not the blob.
func encryptContent(content, key []byte) (blob []byte, ivHex string, err error) {
	gcm, err := contentCipher(key)
	if err != nil {
		return nil, "", ErrContentEncryptionFailed
	}
	iv := make([]byte, metadata.NonceLen)
	if _, err := rand.Read(iv); err != nil {
		return nil, "", ErrContentEncryptionFailed
	}
	return gcm.Seal(nil, iv, content, nil), hex.EncodeToString(iv), nil
}

// decryptContent opens a content blob with key and the hex IV from the
// file's metadata. A wrong key and a tampered blob are
// indistinguishable.
func decryptContent(blob, key []byte, ivHex string) ([]byte, error) {
	gcm, err := contentCipher(key)
	if err != nil {
		return nil, ErrContentDecryptionFailed
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != metadata.NonceLen {
		return nil, ErrContentDecryptionFailed
	}
	content, err := gcm.Open(nil, iv, blob, nil)
	if err != nil {
		return nil, ErrContentDecryptionFailed
	}
	return content, nil
}

func contentCipher(key []byte) (cipher.AEAD, error) {
	if len(key) != keyring.KeyLen {
		return nil, fmt.Errorf("vault: content key must be %d bytes", keyring.KeyLen)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
