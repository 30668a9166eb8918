package vault

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FSM1/cipher-box-sub012/keyring"
	"github.com/FSM1/cipher-box-sub012/metadata"
)

// RotateItem generates a fresh key for the item at pointerName,
// re-encrypts its metadata under the new key and republishes. It
// implements sharing.Rotator: the sharing engine calls it on the first
// mutation after a revocation, then wraps the returned key for the
// still-active recipients and zeroizes it.
//
// Rotation spans several independent pointer publishes and is not
// atomic; a failure midway leaves already-republished children on the
// new key. The engine surfaces the failure and the next mutation
// retries.
func (v *Vault) RotateItem(ctx context.Context, pointerName string) ([]byte, error) {
	ps := v.State.GetPointer(pointerName)
	if ps == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPointer, pointerName)
	}
	switch ps.Kind {
	case KindFolder:
		return v.rotateFolder(ctx, pointerName, ps)
	case KindFile:
		return v.rotateFile(ctx, pointerName, ps)
	default:
		return nil, fmt.Errorf("%w: pointer %s has kind %q", ErrInvalidState, pointerName, ps.Kind)
	}
}

// rotateFolder replaces a folder's key. Child file metadata and signing
// seeds are sealed under the folder key, so each child file blob is
// re-sealed and republished; sub-folder keys are wrapped to the owner
// inside the document and are untouched. The parent's wrapped copy of
// this folder's key (or the root binding) is updated last.
func (v *Vault) rotateFolder(ctx context.Context, name string, ps *PointerState) ([]byte, error) {
	oldKey, err := v.folderKeyFor(ctx, name)
	if err != nil {
		return nil, err
	}
	defer keyring.Zero(oldKey)

	newKey, err := keyring.GenerateFolderKey()
	if err != nil {
		return nil, err
	}
	success := false
	defer func() {
		if !success {
			keyring.Zero(newKey)
			// Discard in-memory seal changes from the failed pass.
			_ = v.State.Reload()
		}
	}()

	doc, err := v.loadFolderDoc(ctx, name, oldKey)
	if err != nil {
		return nil, err
	}

	for _, child := range doc.Children {
		fc, ok := child.(metadata.FileChildV2)
		if !ok {
			continue
		}
		if err := v.resealChildFile(ctx, fc.FileMetaPointerName, oldKey, newKey); err != nil {
			return nil, fmt.Errorf("vault: reseal %q: %w", fc.Name, err)
		}
	}

	if err := v.resealSeed(ps, oldKey, newKey); err != nil {
		return nil, err
	}
	if err := v.saveFolderDoc(ctx, name, newKey, doc); err != nil {
		return nil, err
	}

	root, _ := v.State.Root()
	if name == root {
		wrappedHex, err := v.wrapToOwnerHex(newKey)
		if err != nil {
			return nil, err
		}
		v.State.SetRootKeyWrapped(wrappedHex)
	} else {
		if err := v.rewrapParentEntry(ctx, name, ps.Parent, newKey); err != nil {
			return nil, err
		}
	}

	if err := v.State.Save(); err != nil {
		return nil, err
	}
	success = true
	return newKey, nil
}

// resealChildFile moves one child file's sealed metadata and signing
// seed from the old folder key to the new one and republishes the
// file's pointer. The shared copy, sealed under the file's own key, is
// carried over untouched.
func (v *Vault) resealChildFile(ctx context.Context, pointerName string, oldKey, newKey []byte) error {
	blob, err := v.loadFileBlob(ctx, pointerName)
	if err != nil {
		return err
	}
	raw, err := metadata.DecryptDocument(blob.Folder, oldKey)
	if err != nil {
		return err
	}
	folderEnv, err := metadata.EncryptDocument(raw, newKey)
	if err != nil {
		return err
	}

	filePS := v.State.GetPointer(pointerName)
	if filePS == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPointer, pointerName)
	}
	if err := v.resealSeed(filePS, oldKey, newKey); err != nil {
		return err
	}

	data, err := json.Marshal(&fileBlob{Folder: folderEnv, Shared: blob.Shared})
	if err != nil {
		return fmt.Errorf("vault: marshal file blob: %w", err)
	}
	cid, err := v.putBlob(data)
	if err != nil {
		return err
	}
	return v.publishFile(ctx, pointerName, newKey, cid)
}

// rewrapParentEntry replaces the owner-wrapped folder key in the
// parent's child entry after a rotation.
func (v *Vault) rewrapParentEntry(ctx context.Context, name, parentName string, newKey []byte) error {
	parentKey, err := v.folderKeyFor(ctx, parentName)
	if err != nil {
		return err
	}
	defer keyring.Zero(parentKey)

	parentDoc, err := v.loadFolderDoc(ctx, parentName, parentKey)
	if err != nil {
		return err
	}
	entry, err := folderEntryByPointer(parentDoc, name)
	if err != nil {
		return err
	}
	wrappedHex, err := v.wrapToOwnerHex(newKey)
	if err != nil {
		return err
	}
	entry.FolderKeyEncrypted = wrappedHex
	if err := parentDoc.ReplaceChild(entry); err != nil {
		return err
	}
	return v.saveFolderDoc(ctx, parentName, parentKey, parentDoc)
}

// rotateFile replaces a file's key: the content is re-encrypted under a
// fresh key at a new address, the superseded revision is appended to
// the version history, and both sealed metadata copies are rebuilt.
func (v *Vault) rotateFile(ctx context.Context, name string, ps *PointerState) ([]byte, error) {
	parentKey, err := v.folderKeyFor(ctx, ps.Parent)
	if err != nil {
		return nil, err
	}
	defer keyring.Zero(parentKey)

	blob, err := v.loadFileBlob(ctx, name)
	if err != nil {
		return nil, err
	}
	fm, err := fileMetadataFrom(blob, parentKey)
	if err != nil {
		return nil, err
	}
	oldKey, err := v.unwrapOwnerHex(fm.FileKeyEncrypted)
	if err != nil {
		return nil, err
	}
	defer keyring.Zero(oldKey)

	ct, err := v.fetchBlob(ctx, fm.CID)
	if err != nil {
		return nil, err
	}
	content, err := decryptContent(ct, oldKey, fm.FileIV)
	if err != nil {
		return nil, err
	}

	newKey, err := keyring.GenerateFileKey()
	if err != nil {
		return nil, err
	}
	success := false
	defer func() {
		if !success {
			keyring.Zero(newKey)
		}
	}()

	newCt, ivHex, err := encryptContent(content, newKey)
	if err != nil {
		return nil, err
	}
	newCID, err := v.putBlob(newCt)
	if err != nil {
		return nil, err
	}
	wrappedHex, err := v.wrapToOwnerHex(newKey)
	if err != nil {
		return nil, err
	}

	fm.VersionHistory = append(fm.VersionHistory, metadata.FileVersion{
		CID:        fm.CID,
		Size:       fm.Size,
		ModifiedAt: fm.ModifiedAt,
	})
	fm.CID = newCID
	fm.FileIV = ivHex
	fm.FileKeyEncrypted = wrappedHex
	fm.ModifiedAt = nowRFC3339()

	metaCID, err := v.storeFileBlob(fm, parentKey, newKey, blob.Shared != nil)
	if err != nil {
		return nil, err
	}
	if err := v.publishFile(ctx, name, parentKey, metaCID); err != nil {
		return nil, err
	}

	success = true
	return newKey, nil
}
