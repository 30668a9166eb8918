package vault

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/FSM1/cipher-box-sub012/keyring"
	"github.com/FSM1/cipher-box-sub012/metadata"
)

// maxFolderDepth bounds key-lookup walks and share collection so a
// corrupt parent chain cannot recurse forever.
const maxFolderDepth = 64

// Entry is one folder listing row.
type Entry struct {
	// Name is the child's display name.
	Name string

	// Kind is KindFile or KindFolder.
	Kind string

	// PointerName is the child's pointer name. Empty for legacy inline
	// file entries, which have no pointer of their own.
	PointerName string

	// ModifiedAt is the child's last modification timestamp, when the
	// entry carries one.
	ModifiedAt string
}

// InitRoot creates the vault's root folder: a fresh folder key wrapped
// to the owner, a pointer keypair whose seed is sealed under that key,
// and an empty folder document published at sequence 1. Returns the
// root pointer name.
func (v *Vault) InitRoot(ctx context.Context) (string, error) {
	if root, _ := v.State.Root(); root != "" {
		return "", ErrRootExists
	}

	rootKey, err := keyring.GenerateFolderKey()
	if err != nil {
		return "", err
	}
	defer keyring.Zero(rootKey)

	name, pub, priv, err := v.newPointer(KindFolder, "", rootKey)
	if err != nil {
		return "", err
	}
	defer keyring.Zero(priv)

	cid, err := v.storeFolderDoc(metadata.NewFolderMetadata(), rootKey)
	if err != nil {
		v.State.RemovePointer(name)
		return "", err
	}
	if _, err := v.Publisher.Publish(ctx, pub, priv, cid); err != nil {
		v.State.RemovePointer(name)
		return "", err
	}

	wrappedHex, err := v.wrapToOwnerHex(rootKey)
	if err != nil {
		v.State.RemovePointer(name)
		return "", err
	}
	v.State.SetRoot(name, wrappedHex)
	if err := v.State.Save(); err != nil {
		return "", err
	}
	return name, nil
}

// CreateFolder creates a sub-folder under the folder at parentName and
// returns the new folder's pointer name. The sub-folder's key travels
// in the parent's child entry, wrapped to the owner.
func (v *Vault) CreateFolder(ctx context.Context, parentName, name string) (string, error) {
	if err := metadata.ValidateChildName(name); err != nil {
		return "", err
	}
	if err := v.checkRotation(ctx, parentName); err != nil {
		return "", err
	}

	parentKey, err := v.folderKeyFor(ctx, parentName)
	if err != nil {
		return "", err
	}
	defer keyring.Zero(parentKey)

	doc, err := v.loadFolderDoc(ctx, parentName, parentKey)
	if err != nil {
		return "", err
	}

	childKey, err := keyring.GenerateFolderKey()
	if err != nil {
		return "", err
	}
	defer keyring.Zero(childKey)

	childPointer, pub, priv, err := v.newPointer(KindFolder, parentName, childKey)
	if err != nil {
		return "", err
	}
	defer keyring.Zero(priv)

	cid, err := v.storeFolderDoc(metadata.NewFolderMetadata(), childKey)
	if err != nil {
		v.State.RemovePointer(childPointer)
		return "", err
	}
	if _, err := v.Publisher.Publish(ctx, pub, priv, cid); err != nil {
		v.State.RemovePointer(childPointer)
		return "", err
	}

	wrappedHex, err := v.wrapToOwnerHex(childKey)
	if err != nil {
		v.State.RemovePointer(childPointer)
		return "", err
	}
	entry := metadata.NewFolderChildV2(uuid.NewString(), name, childPointer, wrappedHex)
	if err := doc.AddChild(entry); err != nil {
		v.State.RemovePointer(childPointer)
		return "", err
	}

	if err := v.saveFolderDoc(ctx, parentName, parentKey, doc); err != nil {
		v.State.RemovePointer(childPointer)
		return "", err
	}
	if err := v.State.Save(); err != nil {
		return "", err
	}
	return childPointer, nil
}

// ListFolder returns the entries of the folder at name.
func (v *Vault) ListFolder(ctx context.Context, name string) ([]Entry, error) {
	folderKey, err := v.folderKeyFor(ctx, name)
	if err != nil {
		return nil, err
	}
	defer keyring.Zero(folderKey)

	doc, err := v.loadFolderDoc(ctx, name, folderKey)
	if err != nil {
		return nil, err
	}
	return listEntries(doc), nil
}

func listEntries(doc *metadata.FolderMetadata) []Entry {
	entries := make([]Entry, 0, len(doc.Children))
	for _, c := range doc.Children {
		switch child := c.(type) {
		case metadata.FileChildV1:
			entries = append(entries, Entry{
				Name:       child.Name,
				Kind:       KindFile,
				ModifiedAt: child.ModifiedAt,
			})
		case metadata.FileChildV2:
			entries = append(entries, Entry{
				Name:        child.Name,
				Kind:        KindFile,
				PointerName: child.FileMetaPointerName,
				ModifiedAt:  child.ModifiedAt,
			})
		case metadata.FolderChildV2:
			entries = append(entries, Entry{
				Name:        child.Name,
				Kind:        KindFolder,
				PointerName: child.FolderPointerName,
			})
		}
	}
	return entries
}

// RenameChild renames an entry of the folder at folderName.
func (v *Vault) RenameChild(ctx context.Context, folderName, oldName, newName string) error {
	if err := v.checkRotation(ctx, folderName); err != nil {
		return err
	}

	folderKey, err := v.folderKeyFor(ctx, folderName)
	if err != nil {
		return err
	}
	defer keyring.Zero(folderKey)

	doc, err := v.loadFolderDoc(ctx, folderName, folderKey)
	if err != nil {
		return err
	}
	if err := doc.RenameChild(oldName, newName); err != nil {
		return err
	}
	return v.saveFolderDoc(ctx, folderName, folderKey, doc)
}

// RemoveChild removes an entry from the folder at folderName and drops
// the entry's pointer binding from local state. Blobs stay in the
// content store; they are unreachable once the entry is gone.
func (v *Vault) RemoveChild(ctx context.Context, folderName, childName string) error {
	if err := v.checkRotation(ctx, folderName); err != nil {
		return err
	}

	folderKey, err := v.folderKeyFor(ctx, folderName)
	if err != nil {
		return err
	}
	defer keyring.Zero(folderKey)

	doc, err := v.loadFolderDoc(ctx, folderName, folderKey)
	if err != nil {
		return err
	}

	child, ok := doc.FindChild(childName)
	if !ok {
		return fmt.Errorf("%w: %q", metadata.ErrChildNotFound, childName)
	}
	var dropPointer string
	switch c := child.(type) {
	case metadata.FileChildV2:
		dropPointer = c.FileMetaPointerName
	case metadata.FolderChildV2:
		dropPointer = c.FolderPointerName
	}

	if err := doc.RemoveChild(childName); err != nil {
		return err
	}
	if err := v.saveFolderDoc(ctx, folderName, folderKey, doc); err != nil {
		return err
	}

	if dropPointer != "" {
		v.State.RemovePointer(dropPointer)
	}
	return v.State.Save()
}

// folderKeyFor recovers the plaintext key of the folder at name. The
// root key is unwrapped from local state; any other folder's key is
// unwrapped from its parent's child entry, which requires walking the
// parent chain. The caller owns the returned key and must zeroize it.
func (v *Vault) folderKeyFor(ctx context.Context, name string) ([]byte, error) {
	return v.folderKeyAt(ctx, name, 0)
}

func (v *Vault) folderKeyAt(ctx context.Context, name string, depth int) ([]byte, error) {
	if depth > maxFolderDepth {
		return nil, ErrDepthExceeded
	}
	root, rootWrapped := v.State.Root()
	if root == "" {
		return nil, ErrRootMissing
	}
	if name == root {
		return v.unwrapOwnerHex(rootWrapped)
	}

	ps := v.State.GetPointer(name)
	if ps == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPointer, name)
	}
	if ps.Kind != KindFolder {
		return nil, fmt.Errorf("%w: %s", ErrNotFolder, name)
	}

	parentKey, err := v.folderKeyAt(ctx, ps.Parent, depth+1)
	if err != nil {
		return nil, err
	}
	defer keyring.Zero(parentKey)

	parentDoc, err := v.loadFolderDoc(ctx, ps.Parent, parentKey)
	if err != nil {
		return nil, err
	}
	entry, err := folderEntryByPointer(parentDoc, name)
	if err != nil {
		return nil, err
	}
	return v.unwrapOwnerHex(entry.FolderKeyEncrypted)
}

// folderEntryByPointer finds the folder child entry whose pointer is
// pointerName.
func folderEntryByPointer(doc *metadata.FolderMetadata, pointerName string) (metadata.FolderChildV2, error) {
	for _, c := range doc.Children {
		if fc, ok := c.(metadata.FolderChildV2); ok && fc.FolderPointerName == pointerName {
			return fc, nil
		}
	}
	return metadata.FolderChildV2{}, fmt.Errorf("%w: no entry for pointer %s", metadata.ErrChildNotFound, pointerName)
}

// fileEntryByPointer finds the file child entry whose pointer is
// pointerName.
func fileEntryByPointer(doc *metadata.FolderMetadata, pointerName string) (metadata.FileChildV2, error) {
	for _, c := range doc.Children {
		if fc, ok := c.(metadata.FileChildV2); ok && fc.FileMetaPointerName == pointerName {
			return fc, nil
		}
	}
	return metadata.FileChildV2{}, fmt.Errorf("%w: no entry for pointer %s", metadata.ErrChildNotFound, pointerName)
}

// ownerWrappedFolderKey returns the owner-wrapped key bytes and display
// name of the folder at name, as recorded in its parent's entry (or the
// root binding).
func (v *Vault) ownerWrappedFolderKey(ctx context.Context, name string) ([]byte, string, error) {
	root, rootWrapped := v.State.Root()
	if root == "" {
		return nil, "", ErrRootMissing
	}
	if name == root {
		wrapped, err := hex.DecodeString(rootWrapped)
		if err != nil {
			return nil, "", fmt.Errorf("%w: bad root key", ErrInvalidState)
		}
		return wrapped, "/", nil
	}

	ps := v.State.GetPointer(name)
	if ps == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownPointer, name)
	}
	if ps.Kind != KindFolder {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFolder, name)
	}

	parentKey, err := v.folderKeyFor(ctx, ps.Parent)
	if err != nil {
		return nil, "", err
	}
	defer keyring.Zero(parentKey)

	parentDoc, err := v.loadFolderDoc(ctx, ps.Parent, parentKey)
	if err != nil {
		return nil, "", err
	}
	entry, err := folderEntryByPointer(parentDoc, name)
	if err != nil {
		return nil, "", err
	}
	wrapped, err := hex.DecodeString(entry.FolderKeyEncrypted)
	if err != nil {
		return nil, "", fmt.Errorf("%w: non-hex folder key for %q", ErrInvalidState, entry.Name)
	}
	return wrapped, entry.Name, nil
}

// loadFolderDoc resolves a folder pointer, fetches its blob, and opens
// the document with folderKey.
func (v *Vault) loadFolderDoc(ctx context.Context, name string, folderKey []byte) (*metadata.FolderMetadata, error) {
	cid, err := v.resolveValue(ctx, name)
	if err != nil {
		return nil, err
	}
	blob, err := v.fetchBlob(ctx, cid)
	if err != nil {
		return nil, err
	}
	env, err := metadata.ParseEnvelope(blob)
	if err != nil {
		return nil, err
	}
	raw, err := metadata.DecryptDocument(env, folderKey)
	if err != nil {
		return nil, err
	}
	return metadata.DecodeFolderMetadata(raw)
}

// storeFolderDoc seals a folder document under folderKey and stores the
// blob, returning its content address.
func (v *Vault) storeFolderDoc(doc *metadata.FolderMetadata, folderKey []byte) (string, error) {
	raw, err := metadata.EncodeFolderMetadata(doc)
	if err != nil {
		return "", err
	}
	env, err := metadata.EncryptDocument(raw, folderKey)
	if err != nil {
		return "", err
	}
	blob, err := env.Marshal()
	if err != nil {
		return "", err
	}
	return v.putBlob(blob)
}

// saveFolderDoc seals an updated folder document, stores it, and
// republishes the folder's pointer at the next sequence.
func (v *Vault) saveFolderDoc(ctx context.Context, name string, folderKey []byte, doc *metadata.FolderMetadata) error {
	cid, err := v.storeFolderDoc(doc, folderKey)
	if err != nil {
		return err
	}

	ps := v.State.GetPointer(name)
	if ps == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPointer, name)
	}
	pub, priv, err := v.signingKeypairFor(ps, folderKey)
	if err != nil {
		return err
	}
	defer keyring.Zero(priv)

	_, err = v.Publisher.Publish(ctx, pub, priv, cid)
	return err
}
