package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/FSM1/cipher-box-sub012/metadata"
)

// Pointer kinds tracked in local state.
const (
	// KindFolder marks a folder pointer.
	KindFolder = "folder"

	// KindFile marks a file metadata pointer.
	KindFile = "file"
)

// PointerState is the local binding for one pointer the vault owns: the
// pointer's public key, its sealed signing seed, and where it hangs in
// the tree. The seed is sealed under the item's scope key (a folder's
// own key, or the parent folder's key for a file), so only key holders
// can republish.
type PointerState struct {
	// PublicKey is the pointer's Ed25519 public key, hex encoded.
	PublicKey string `json:"public_key"`

	// SigningKeySealed is the pointer's signing seed sealed under the
	// scope key.
	SigningKeySealed *metadata.Envelope `json:"signing_key_sealed"`

	// Parent is the parent folder's pointer name; empty for the root.
	Parent string `json:"parent,omitempty"`

	// Kind is "folder" or "file".
	Kind string `json:"kind"`
}

// VaultState is the vault's client-side state: the root binding, the
// passphrase salt, and one PointerState per owned pointer.
// Persisted as JSON at {dataDir}/vault.json.
type VaultState struct {
	// RootPointer is the root folder's pointer name.
	RootPointer string `json:"root_pointer,omitempty"`

	// RootKeyWrapped is the root folder key wrapped to the owner's
	// encryption public key, hex encoded.
	RootKeyWrapped string `json:"root_key_wrapped,omitempty"`

	// PassphraseSalt is the Argon2id salt for master secret derivation,
	// hex encoded. The salt is not secret.
	PassphraseSalt string `json:"passphrase_salt,omitempty"`

	// Pointers maps pointer name to its local binding.
	Pointers map[string]*PointerState `json:"pointers"`

	mu   sync.Mutex `json:"-"`
	path string     `json:"-"` // file path for persistence
}

// NewVaultState creates a new empty vault state.
func NewVaultState(path string) *VaultState {
	return &VaultState{
		Pointers: make(map[string]*PointerState),
		path:     path,
	}
}

// LoadVaultState loads vault state from disk. Returns a new empty state
// if the file does not exist.
func LoadVaultState(path string) (*VaultState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewVaultState(path), nil
		}
		return nil, fmt.Errorf("vault: read state: %w", err)
	}

	var state VaultState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("vault: parse state: %w", err)
	}
	if state.Pointers == nil {
		state.Pointers = make(map[string]*PointerState)
	}
	state.path = path
	return &state, nil
}

// Reload re-reads the state file from disk. No-op if the state file has
// not been persisted yet.
func (s *VaultState) Reload() error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil // not yet persisted, keep current in-memory state
	}
	fresh, err := LoadVaultState(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RootPointer = fresh.RootPointer
	s.RootKeyWrapped = fresh.RootKeyWrapped
	s.PassphraseSalt = fresh.PassphraseSalt
	s.Pointers = fresh.Pointers
	return nil
}

// Save persists the vault state to disk.
func (s *VaultState) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: marshal state: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("vault: create state directory: %w", err)
	}
	return os.WriteFile(s.path, data, 0600)
}

// GetPointer returns the binding for a pointer name, or nil.
// Note: the returned pointer escapes the mutex. Callers that mutate it
// must serialize through the vault's own operation flow.
func (s *VaultState) GetPointer(name string) *PointerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Pointers[name]
}

// SetPointer stores a pointer binding.
func (s *VaultState) SetPointer(name string, ps *PointerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Pointers[name] = ps
}

// RemovePointer deletes a pointer binding.
func (s *VaultState) RemovePointer(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Pointers, name)
}

// Root returns the root pointer name and the owner-wrapped root key.
func (s *VaultState) Root() (pointer, wrappedKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.RootPointer, s.RootKeyWrapped
}

// SetRoot records the root binding.
func (s *VaultState) SetRoot(pointer, wrappedKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RootPointer = pointer
	s.RootKeyWrapped = wrappedKey
}

// SetRootKeyWrapped replaces the owner-wrapped root key after a root
// rotation.
func (s *VaultState) SetRootKeyWrapped(wrappedKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RootKeyWrapped = wrappedKey
}

// Salt returns the hex-encoded passphrase salt, or empty if none is
// recorded yet.
func (s *VaultState) Salt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PassphraseSalt
}

// SetSalt records the passphrase salt.
func (s *VaultState) SetSalt(saltHex string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PassphraseSalt = saltHex
}
