package vault

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/FSM1/cipher-box-sub012/keyring"
	"github.com/FSM1/cipher-box-sub012/metadata"
	"github.com/FSM1/cipher-box-sub012/sharing"
	"github.com/FSM1/cipher-box-sub012/wrap"
)

// ShareFolder grants the folder at pointerName, and everything beneath
// it, to a recipient. The folder key and the key of every transitive
// sub-item are re-wrapped to the recipient's public key; plaintext keys
// never reach the share store.
func (v *Vault) ShareFolder(ctx context.Context, pointerName, recipientID string, recipientPub []byte) (*sharing.Share, []*sharing.ShareKey, error) {
	ps := v.State.GetPointer(pointerName)
	if ps == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownPointer, pointerName)
	}
	if ps.Kind != KindFolder {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFolder, pointerName)
	}

	ownerWrapped, itemName, err := v.ownerWrappedFolderKey(ctx, pointerName)
	if err != nil {
		return nil, nil, err
	}

	folderKey, err := v.folderKeyFor(ctx, pointerName)
	if err != nil {
		return nil, nil, err
	}
	defer keyring.Zero(folderKey)

	subItems, err := v.collectSubItems(ctx, pointerName, folderKey, 0)
	if err != nil {
		return nil, nil, err
	}

	req := &sharing.ShareRequest{
		SharerID:     v.UserID(),
		RecipientID:  recipientID,
		RecipientPub: recipientPub,
		ItemType:     sharing.ItemTypeFolder,
		PointerName:  pointerName,
		ItemName:     itemName,
		WrappedKey:   ownerWrapped,
		SubItems:     subItems,
	}
	return v.Shares.CreateShare(ctx, req, v.Identity.EncryptionPriv)
}

// collectSubItems walks the folder tree and gathers the owner-wrapped
// key of every item beneath it, one SubItem per file and sub-folder.
func (v *Vault) collectSubItems(ctx context.Context, folderName string, folderKey []byte, depth int) ([]sharing.SubItem, error) {
	if depth > maxFolderDepth {
		return nil, ErrDepthExceeded
	}
	doc, err := v.loadFolderDoc(ctx, folderName, folderKey)
	if err != nil {
		return nil, err
	}

	var items []sharing.SubItem
	for _, child := range doc.Children {
		switch c := child.(type) {
		case metadata.FileChildV1:
			// Legacy inline entries have no pointer; the content address
			// stands in as the row key.
			wrapped, err := hex.DecodeString(c.FileKeyEncrypted)
			if err != nil {
				return nil, fmt.Errorf("%w: non-hex key for %q", ErrInvalidState, c.Name)
			}
			items = append(items, sharing.SubItem{PointerName: c.CID, ItemName: c.Name, WrappedKey: wrapped})

		case metadata.FileChildV2:
			blob, err := v.loadFileBlob(ctx, c.FileMetaPointerName)
			if err != nil {
				return nil, err
			}
			fm, err := fileMetadataFrom(blob, folderKey)
			if err != nil {
				return nil, err
			}
			wrapped, err := hex.DecodeString(fm.FileKeyEncrypted)
			if err != nil {
				return nil, fmt.Errorf("%w: non-hex key for %q", ErrInvalidState, c.Name)
			}
			items = append(items, sharing.SubItem{PointerName: c.FileMetaPointerName, ItemName: c.Name, WrappedKey: wrapped})

		case metadata.FolderChildV2:
			wrapped, err := hex.DecodeString(c.FolderKeyEncrypted)
			if err != nil {
				return nil, fmt.Errorf("%w: non-hex key for %q", ErrInvalidState, c.Name)
			}
			items = append(items, sharing.SubItem{PointerName: c.FolderPointerName, ItemName: c.Name, WrappedKey: wrapped})

			childKey, err := v.unwrapOwnerHex(c.FolderKeyEncrypted)
			if err != nil {
				return nil, err
			}
			nested, err := v.collectSubItems(ctx, c.FolderPointerName, childKey, depth+1)
			keyring.Zero(childKey)
			if err != nil {
				return nil, err
			}
			items = append(items, nested...)
		}
	}
	return items, nil
}

// ShareFile grants a single file to a recipient. The file blob gains a
// metadata copy sealed under the file's own key, so the recipient can
// read the file's current address without the parent folder key.
func (v *Vault) ShareFile(ctx context.Context, pointerName, recipientID string, recipientPub []byte) (*sharing.Share, error) {
	ps := v.State.GetPointer(pointerName)
	if ps == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPointer, pointerName)
	}
	if ps.Kind != KindFile {
		return nil, fmt.Errorf("%w: %s", ErrNotFile, pointerName)
	}

	if err := v.checkRotation(ctx, pointerName); err != nil {
		return nil, err
	}

	folderKey, err := v.folderKeyFor(ctx, ps.Parent)
	if err != nil {
		return nil, err
	}
	defer keyring.Zero(folderKey)

	fm, err := v.ensureSharedCopy(ctx, pointerName, folderKey)
	if err != nil {
		return nil, err
	}
	wrapped, err := hex.DecodeString(fm.FileKeyEncrypted)
	if err != nil {
		return nil, fmt.Errorf("%w: non-hex file key", ErrInvalidState)
	}

	parentDoc, err := v.loadFolderDoc(ctx, ps.Parent, folderKey)
	if err != nil {
		return nil, err
	}
	entry, err := fileEntryByPointer(parentDoc, pointerName)
	if err != nil {
		return nil, err
	}

	req := &sharing.ShareRequest{
		SharerID:     v.UserID(),
		RecipientID:  recipientID,
		RecipientPub: recipientPub,
		ItemType:     sharing.ItemTypeFile,
		PointerName:  pointerName,
		ItemName:     entry.Name,
		WrappedKey:   wrapped,
	}
	share, _, err := v.Shares.CreateShare(ctx, req, v.Identity.EncryptionPriv)
	return share, err
}

// ensureSharedCopy adds the file-key-sealed metadata copy to a file
// blob if it is not already present, republishing the pointer.
func (v *Vault) ensureSharedCopy(ctx context.Context, pointerName string, folderKey []byte) (*metadata.FileMetadata, error) {
	blob, err := v.loadFileBlob(ctx, pointerName)
	if err != nil {
		return nil, err
	}
	fm, err := fileMetadataFrom(blob, folderKey)
	if err != nil {
		return nil, err
	}
	if blob.Shared != nil {
		return fm, nil
	}

	fileKey, err := v.unwrapOwnerHex(fm.FileKeyEncrypted)
	if err != nil {
		return nil, err
	}
	defer keyring.Zero(fileKey)

	cid, err := v.storeFileBlob(fm, folderKey, fileKey, true)
	if err != nil {
		return nil, err
	}
	if err := v.publishFile(ctx, pointerName, folderKey, cid); err != nil {
		return nil, err
	}
	return fm, nil
}

// RevokeShare marks a grant revoked. The underlying key rotates on the
// item's next mutation, not here.
func (v *Vault) RevokeShare(ctx context.Context, shareID string) error {
	return v.Shares.RevokeShare(ctx, shareID)
}

// HideShare flips the recipient-side hidden flag of a grant.
func (v *Vault) HideShare(ctx context.Context, shareID string, hidden bool) error {
	return v.Shares.HideShare(ctx, shareID, hidden)
}

// SharedWithMe lists the grants this vault's owner has received.
func (v *Vault) SharedWithMe(ctx context.Context) ([]*sharing.Share, error) {
	return v.Shares.SharedWith(ctx, v.UserID())
}

// ShareKeys returns the sub-item key rows of one share.
func (v *Vault) ShareKeys(ctx context.Context, shareID string) ([]*sharing.ShareKey, error) {
	return v.Shares.ShareKeys(ctx, shareID)
}

// ReadSharedFolder lists a folder granted to this vault's owner. The
// folder key is unwrapped from the share itself; the recipient needs no
// binding in local state.
func (v *Vault) ReadSharedFolder(ctx context.Context, share *sharing.Share) (*metadata.FolderMetadata, error) {
	if share == nil {
		return nil, fmt.Errorf("%w: share", sharing.ErrNilParam)
	}
	if share.ItemType != sharing.ItemTypeFolder {
		return nil, fmt.Errorf("%w: share %s", ErrNotFolder, share.ID)
	}

	folderKey, err := wrap.Unwrap(share.WrappedKey, v.Identity.EncryptionPriv)
	if err != nil {
		return nil, err
	}
	defer keyring.Zero(folderKey)

	return v.loadFolderDoc(ctx, share.PointerName, folderKey)
}

// ReadSharedFile reads a directly shared file: the metadata copy sealed
// under the file key is opened with the share's unwrapped key, then the
// content is fetched and decrypted.
func (v *Vault) ReadSharedFile(ctx context.Context, share *sharing.Share) ([]byte, *metadata.FileMetadata, error) {
	if share == nil {
		return nil, nil, fmt.Errorf("%w: share", sharing.ErrNilParam)
	}
	if share.ItemType != sharing.ItemTypeFile {
		return nil, nil, fmt.Errorf("%w: share %s", ErrNotFile, share.ID)
	}

	fileKey, err := wrap.Unwrap(share.WrappedKey, v.Identity.EncryptionPriv)
	if err != nil {
		return nil, nil, err
	}
	defer keyring.Zero(fileKey)

	blob, err := v.loadFileBlob(ctx, share.PointerName)
	if err != nil {
		return nil, nil, err
	}
	if blob.Shared == nil {
		return nil, nil, fmt.Errorf("%w: pointer %s", ErrNoSharedMetadata, share.PointerName)
	}
	raw, err := metadata.DecryptDocument(blob.Shared, fileKey)
	if err != nil {
		return nil, nil, err
	}
	fm, err := metadata.DecodeFileMetadata(raw)
	if err != nil {
		return nil, nil, err
	}

	ct, err := v.fetchBlob(ctx, fm.CID)
	if err != nil {
		return nil, nil, err
	}
	content, err := decryptContent(ct, fileKey, fm.FileIV)
	if err != nil {
		return nil, nil, err
	}
	return content, fm, nil
}

// ReadSharedChild reads one file inside a folder granted to this
// vault's owner. keys are the share's sub-item rows; the matching row
// supplies the file key, and the folder key from the share opens the
// file's metadata.
func (v *Vault) ReadSharedChild(ctx context.Context, share *sharing.Share, keys []*sharing.ShareKey, childName string) ([]byte, *metadata.FileMetadata, error) {
	if share == nil {
		return nil, nil, fmt.Errorf("%w: share", sharing.ErrNilParam)
	}
	if share.ItemType != sharing.ItemTypeFolder {
		return nil, nil, fmt.Errorf("%w: share %s", ErrNotFolder, share.ID)
	}

	folderKey, err := wrap.Unwrap(share.WrappedKey, v.Identity.EncryptionPriv)
	if err != nil {
		return nil, nil, err
	}
	defer keyring.Zero(folderKey)

	doc, err := v.loadFolderDoc(ctx, share.PointerName, folderKey)
	if err != nil {
		return nil, nil, err
	}
	child, ok := doc.FindChild(childName)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", metadata.ErrChildNotFound, childName)
	}

	switch c := child.(type) {
	case metadata.FileChildV1:
		row := findShareKey(keys, c.CID)
		if row == nil {
			return nil, nil, fmt.Errorf("%w: %q", sharing.ErrShareKeyNotFound, childName)
		}
		fileKey, err := wrap.Unwrap(row.WrappedKey, v.Identity.EncryptionPriv)
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
		row := findShareKey(keys, c.FileMetaPointerName)
		if row == nil {
			return nil, nil, fmt.Errorf("%w: %q", sharing.ErrShareKeyNotFound, childName)
		}
		fileKey, err := wrap.Unwrap(row.WrappedKey, v.Identity.EncryptionPriv)
		if err != nil {
			return nil, nil, err
		}
		defer keyring.Zero(fileKey)

		blob, err := v.loadFileBlob(ctx, c.FileMetaPointerName)
		if err != nil {
			return nil, nil, err
		}
		fm, err := fileMetadataFrom(blob, folderKey)
		if err != nil {
			return nil, nil, err
		}
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
		return nil, nil, fmt.Errorf("%w: %q", ErrNotFile, childName)
	}
}

// ReadSharedSubfolder lists a sub-folder reached through a folder
// share, unwrapping its key from the share's sub-item rows.
func (v *Vault) ReadSharedSubfolder(ctx context.Context, keys []*sharing.ShareKey, pointerName string) (*metadata.FolderMetadata, error) {
	row := findShareKey(keys, pointerName)
	if row == nil {
		return nil, fmt.Errorf("%w: pointer %s", sharing.ErrShareKeyNotFound, pointerName)
	}
	folderKey, err := wrap.Unwrap(row.WrappedKey, v.Identity.EncryptionPriv)
	if err != nil {
		return nil, err
	}
	defer keyring.Zero(folderKey)

	return v.loadFolderDoc(ctx, pointerName, folderKey)
}

func findShareKey(keys []*sharing.ShareKey, pointerName string) *sharing.ShareKey {
	for _, k := range keys {
		if k.PointerName == pointerName {
			return k
		}
	}
	return nil
}
