package metadata

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// FolderVersionV1 tags legacy folder documents with inline file
	// entries.
	FolderVersionV1 = "v1"

	// FolderVersionV2 tags folder documents whose children reference
	// their own pointers.
	FolderVersionV2 = "v2"

	// MaxChildNameLen is the maximum length of a child name in bytes.
	MaxChildNameLen = 255
)

// ChildKind discriminates the v2 child variants.
type ChildKind string

const (
	// ChildKindFile marks a file entry.
	ChildKindFile ChildKind = "file"

	// ChildKindFolder marks a sub-folder entry.
	ChildKindFolder ChildKind = "folder"
)

// Child is one folder document entry. Exactly three variants exist:
// FileChildV1, FileChildV2 and FolderChildV2. Consumers switch over the
// concrete type; the compiler keeps the switch honest because no other
// type can implement the interface.
type Child interface {
	// ChildName returns the entry's display name.
	ChildName() string

	// schemaVersion pins a variant to the document version it belongs to.
	schemaVersion() string

	validate() error
}

// FileChildV1 is a legacy inline file entry. It carries the file's
// content address and wrapped key directly; there is no separate file
// metadata document.
type FileChildV1 struct {
	Name             string `json:"name"`
	CID              string `json:"cid"`
	FileKeyEncrypted string `json:"fileKeyEncrypted"`
	FileIV           string `json:"fileIv"`
	Size             int64  `json:"size"`
	MimeType         string `json:"mimeType"`
	CreatedAt        string `json:"createdAt"`
	ModifiedAt       string `json:"modifiedAt"`
}

// ChildName implements Child.
func (c FileChildV1) ChildName() string { return c.Name }

func (c FileChildV1) schemaVersion() string { return FolderVersionV1 }

func (c FileChildV1) validate() error {
	if err := ValidateChildName(c.Name); err != nil {
		return err
	}
	if c.CID == "" {
		return fmt.Errorf("%w: child %q has no cid", ErrInvalidMetadata, c.Name)
	}
	if err := validateHexField(c.FileKeyEncrypted, "fileKeyEncrypted", c.Name); err != nil {
		return err
	}
	if err := validateIVField(c.FileIV, c.Name); err != nil {
		return err
	}
	return nil
}

// FileChildV2 references a file by its metadata pointer. The file's
// content address, wrapped key and IV live in the separately published
// FileMetadata document.
type FileChildV2 struct {
	Version             string    `json:"version"`
	Kind                ChildKind `json:"type"`
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	FileMetaPointerName string    `json:"fileMetaPointerName"`
	CreatedAt           string    `json:"createdAt"`
	ModifiedAt          string    `json:"modifiedAt"`
}

// ChildName implements Child.
func (c FileChildV2) ChildName() string { return c.Name }

func (c FileChildV2) schemaVersion() string { return FolderVersionV2 }

func (c FileChildV2) validate() error {
	if c.Version != FolderVersionV2 || c.Kind != ChildKindFile {
		return fmt.Errorf("%w: malformed file child %q", ErrInvalidMetadata, c.Name)
	}
	if err := ValidateChildName(c.Name); err != nil {
		return err
	}
	if c.ID == "" {
		return fmt.Errorf("%w: child %q has no id", ErrInvalidMetadata, c.Name)
	}
	if c.FileMetaPointerName == "" {
		return fmt.Errorf("%w: child %q has no file metadata pointer", ErrInvalidMetadata, c.Name)
	}
	return nil
}

// FolderChildV2 references a sub-folder by its pointer and carries the
// sub-folder's key wrapped toward the owner.
type FolderChildV2 struct {
	Version            string    `json:"version"`
	Kind               ChildKind `json:"type"`
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	FolderPointerName  string    `json:"folderPointerName"`
	FolderKeyEncrypted string    `json:"folderKeyEncrypted"`
}

// ChildName implements Child.
func (c FolderChildV2) ChildName() string { return c.Name }

func (c FolderChildV2) schemaVersion() string { return FolderVersionV2 }

func (c FolderChildV2) validate() error {
	if c.Version != FolderVersionV2 || c.Kind != ChildKindFolder {
		return fmt.Errorf("%w: malformed folder child %q", ErrInvalidMetadata, c.Name)
	}
	if err := ValidateChildName(c.Name); err != nil {
		return err
	}
	if c.ID == "" {
		return fmt.Errorf("%w: child %q has no id", ErrInvalidMetadata, c.Name)
	}
	if c.FolderPointerName == "" {
		return fmt.Errorf("%w: child %q has no folder pointer", ErrInvalidMetadata, c.Name)
	}
	if err := validateHexField(c.FolderKeyEncrypted, "folderKeyEncrypted", c.Name); err != nil {
		return err
	}
	return nil
}

// NewFileChildV2 builds a well-formed v2 file entry.
func NewFileChildV2(id, name, pointerName, createdAt, modifiedAt string) FileChildV2 {
	return FileChildV2{
		Version:             FolderVersionV2,
		Kind:                ChildKindFile,
		ID:                  id,
		Name:                name,
		FileMetaPointerName: pointerName,
		CreatedAt:           createdAt,
		ModifiedAt:          modifiedAt,
	}
}

// NewFolderChildV2 builds a well-formed v2 folder entry.
func NewFolderChildV2(id, name, pointerName, folderKeyEncrypted string) FolderChildV2 {
	return FolderChildV2{
		Version:            FolderVersionV2,
		Kind:               ChildKindFolder,
		ID:                 id,
		Name:               name,
		FolderPointerName:  pointerName,
		FolderKeyEncrypted: folderKeyEncrypted,
	}
}

// FolderMetadata is a decrypted folder document: a schema version and the
// children belonging to that version.
type FolderMetadata struct {
	Version  string
	Children []Child
}

// NewFolderMetadata creates an empty folder document at the current
// schema version.
func NewFolderMetadata() *FolderMetadata {
	return &FolderMetadata{Version: FolderVersionV2}
}

// FindChild returns the child with the given name.
func (d *FolderMetadata) FindChild(name string) (Child, bool) {
	for _, c := range d.Children {
		if c.ChildName() == name {
			return c, true
		}
	}
	return nil, false
}

// AddChild appends a child entry. The child must belong to the document's
// schema version and its name must be valid and unused.
func (d *FolderMetadata) AddChild(c Child) error {
	if c.schemaVersion() != d.Version {
		return fmt.Errorf("%w: %s child in %s document", ErrHybridChildren, c.schemaVersion(), d.Version)
	}
	if err := c.validate(); err != nil {
		return err
	}
	if _, exists := d.FindChild(c.ChildName()); exists {
		return fmt.Errorf("%w: %q", ErrChildExists, c.ChildName())
	}
	d.Children = append(d.Children, c)
	return nil
}

// ReplaceChild swaps the entry with the same name for c, keeping its
// position.
func (d *FolderMetadata) ReplaceChild(c Child) error {
	if c.schemaVersion() != d.Version {
		return fmt.Errorf("%w: %s child in %s document", ErrHybridChildren, c.schemaVersion(), d.Version)
	}
	if err := c.validate(); err != nil {
		return err
	}
	for i := range d.Children {
		if d.Children[i].ChildName() == c.ChildName() {
			d.Children[i] = c
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrChildNotFound, c.ChildName())
}

// RemoveChild deletes the entry with the given name.
func (d *FolderMetadata) RemoveChild(name string) error {
	for i := range d.Children {
		if d.Children[i].ChildName() == name {
			d.Children = append(d.Children[:i], d.Children[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrChildNotFound, name)
}

// RenameChild renames an entry in place.
func (d *FolderMetadata) RenameChild(oldName, newName string) error {
	if err := ValidateChildName(newName); err != nil {
		return err
	}
	if _, exists := d.FindChild(newName); exists {
		return fmt.Errorf("%w: %q", ErrChildExists, newName)
	}
	for i := range d.Children {
		if d.Children[i].ChildName() != oldName {
			continue
		}
		switch c := d.Children[i].(type) {
		case FileChildV1:
			c.Name = newName
			d.Children[i] = c
		case FileChildV2:
			c.Name = newName
			d.Children[i] = c
		case FolderChildV2:
			c.Name = newName
			d.Children[i] = c
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrChildNotFound, oldName)
}

// folderDocument is the JSON envelope of a folder metadata document.
type folderDocument struct {
	Version  string            `json:"version"`
	Children []json.RawMessage `json:"children"`
}

// childProbe carries the discriminating fields of a raw child entry.
// Version and type identify v2 children; cid and fileKeyEncrypted only
// occur inline in v1 children.
type childProbe struct {
	Version             string `json:"version"`
	Kind                string `json:"type"`
	CID                 string `json:"cid"`
	FileKeyEncrypted    string `json:"fileKeyEncrypted"`
	FileMetaPointerName string `json:"fileMetaPointerName"`
	FolderPointerName   string `json:"folderPointerName"`
}

func (p *childProbe) v1Shaped() bool {
	return p.CID != "" || p.FileKeyEncrypted != ""
}

func (p *childProbe) v2Shaped() bool {
	return p.Version != "" || p.Kind != "" || p.FileMetaPointerName != "" || p.FolderPointerName != ""
}

// DecodeFolderMetadata parses and validates a decrypted folder document.
// The version switch is exhaustive: an unknown version is rejected, and a
// document whose children do not all match its version is rejected
// outright. Hybrid documents are never coerced into one version.
func DecodeFolderMetadata(raw []byte) (*FolderMetadata, error) {
	var doc folderDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}

	var (
		children []Child
		err      error
	)
	switch doc.Version {
	case FolderVersionV1:
		children, err = decodeChildrenV1(doc.Children)
	case FolderVersionV2:
		children, err = decodeChildrenV2(doc.Children)
	case "":
		return nil, fmt.Errorf("%w: missing version", ErrInvalidMetadata)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, doc.Version)
	}
	if err != nil {
		return nil, err
	}

	out := &FolderMetadata{Version: doc.Version, Children: children}
	if err := checkDuplicateNames(out.Children); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeChildrenV1(raws []json.RawMessage) ([]Child, error) {
	children := make([]Child, 0, len(raws))
	for i, raw := range raws {
		var probe childProbe
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, fmt.Errorf("%w: child %d: %w", ErrInvalidMetadata, i, err)
		}
		if probe.v2Shaped() {
			return nil, fmt.Errorf("%w: v2 child in v1 document", ErrHybridChildren)
		}
		if !probe.v1Shaped() {
			return nil, fmt.Errorf("%w: child %d has no recognizable shape", ErrInvalidMetadata, i)
		}

		var c FileChildV1
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: child %d: %w", ErrInvalidMetadata, i, err)
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return children, nil
}

func decodeChildrenV2(raws []json.RawMessage) ([]Child, error) {
	children := make([]Child, 0, len(raws))
	for i, raw := range raws {
		var probe childProbe
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, fmt.Errorf("%w: child %d: %w", ErrInvalidMetadata, i, err)
		}
		if probe.v1Shaped() {
			return nil, fmt.Errorf("%w: v1 child in v2 document", ErrHybridChildren)
		}
		if probe.Version == FolderVersionV1 {
			return nil, fmt.Errorf("%w: v1-tagged child in v2 document", ErrHybridChildren)
		}
		if probe.Version != FolderVersionV2 {
			return nil, fmt.Errorf("%w: child %d version %q", ErrInvalidMetadata, i, probe.Version)
		}

		var c Child
		switch ChildKind(probe.Kind) {
		case ChildKindFile:
			var fc FileChildV2
			if err := json.Unmarshal(raw, &fc); err != nil {
				return nil, fmt.Errorf("%w: child %d: %w", ErrInvalidMetadata, i, err)
			}
			c = fc
		case ChildKindFolder:
			var fc FolderChildV2
			if err := json.Unmarshal(raw, &fc); err != nil {
				return nil, fmt.Errorf("%w: child %d: %w", ErrInvalidMetadata, i, err)
			}
			c = fc
		default:
			return nil, fmt.Errorf("%w: child %d has unknown type %q", ErrInvalidMetadata, i, probe.Kind)
		}

		if err := c.validate(); err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return children, nil
}

// EncodeFolderMetadata serializes a folder document, re-running the same
// validation the decoder applies. A document that would not decode does
// not encode either.
func EncodeFolderMetadata(d *FolderMetadata) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil document", ErrInvalidMetadata)
	}
	if d.Version != FolderVersionV1 && d.Version != FolderVersionV2 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, d.Version)
	}
	if err := checkDuplicateNames(d.Children); err != nil {
		return nil, err
	}

	raws := make([]json.RawMessage, 0, len(d.Children))
	for _, c := range d.Children {
		if c.schemaVersion() != d.Version {
			return nil, fmt.Errorf("%w: %s child in %s document", ErrHybridChildren, c.schemaVersion(), d.Version)
		}
		if err := c.validate(); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
		}
		raws = append(raws, raw)
	}

	return json.Marshal(folderDocument{Version: d.Version, Children: raws})
}

func checkDuplicateNames(children []Child) error {
	seen := make(map[string]struct{}, len(children))
	for _, c := range children {
		name := c.ChildName()
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %q", ErrChildExists, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// ValidateChildName checks that a name is usable as a folder entry name.
func ValidateChildName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if len(name) > MaxChildNameLen {
		return fmt.Errorf("%w: name too long (%d bytes, max %d)", ErrInvalidName, len(name), MaxChildNameLen)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: name contains path separator", ErrInvalidName)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: name is reserved", ErrInvalidName)
	}
	if strings.ContainsAny(name, "\x00") {
		return fmt.Errorf("%w: name contains null byte", ErrInvalidName)
	}
	return nil
}

func validateHexField(value, field, child string) error {
	if value == "" {
		return fmt.Errorf("%w: child %q has empty %s", ErrInvalidMetadata, child, field)
	}
	if _, err := hex.DecodeString(value); err != nil {
		return fmt.Errorf("%w: child %q has non-hex %s", ErrInvalidMetadata, child, field)
	}
	return nil
}

func validateIVField(value, child string) error {
	iv, err := hex.DecodeString(value)
	if err != nil || len(iv) != NonceLen {
		return fmt.Errorf("%w: child %q has invalid fileIv", ErrInvalidMetadata, child)
	}
	return nil
}
