// Package vault is the orchestration layer of CipherBox: it wires the
// key hierarchy, wrap engine, metadata codec, naming protocol and
// sharing engine into folder and file operations.
//
// Every item the vault owns is one mutable pointer whose record resolves
// to the content address of the item's current encrypted metadata. The
// vault keeps a small client-side state file binding each pointer name
// to its sealed signing seed; everything else lives encrypted on the
// content store.
package vault

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/FSM1/cipher-box-sub012/config"
	"github.com/FSM1/cipher-box-sub012/keyring"
	"github.com/FSM1/cipher-box-sub012/naming"
	"github.com/FSM1/cipher-box-sub012/sharing"
	"github.com/FSM1/cipher-box-sub012/storage"
)

// Vault is the shared business logic layer. CLI commands and daemon
// adapters call Vault methods to perform encrypted filesystem
// operations.
type Vault struct {
	Identity  *keyring.Identity
	Store     storage.Store
	Gateway   *storage.Gateway // multi-source content fetcher
	Naming    naming.Service
	Resolver  *naming.Resolver
	Publisher *naming.Publisher
	Cache     *naming.PointerCache    // closed by Close
	Shares    *sharing.Engine         // nil disables sharing
	ShareDB   *sharing.BoltStore      // closed by Close
	Republish naming.RepublishService // nil = no collaborator configured
	State     *VaultState
	DataDir   string
}

// Compile-time check: the vault is the rotator the sharing engine calls
// on mutation of an item with revoked grants.
var _ sharing.Rotator = (*Vault)(nil)

// Open loads or initializes the vault at cfg.DataDir using a passphrase.
// On first open a fresh salt is generated and persisted; afterwards the
// same passphrase always reconstructs the same identity. The derived
// master secret is zeroized before returning.
func Open(cfg config.Config, passphrase string) (*Vault, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	state, err := LoadVaultState(filepath.Join(cfg.DataDir, "vault.json"))
	if err != nil {
		return nil, err
	}

	saltHex := state.Salt()
	var salt []byte
	if saltHex == "" {
		salt, err = keyring.NewPassphraseSalt()
		if err != nil {
			return nil, err
		}
		state.SetSalt(hex.EncodeToString(salt))
		if err := state.Save(); err != nil {
			return nil, err
		}
	} else {
		salt, err = hex.DecodeString(saltHex)
		if err != nil {
			return nil, fmt.Errorf("%w: bad passphrase salt", ErrInvalidState)
		}
	}

	secret, err := keyring.MasterSecretFromPassphrase(passphrase, salt)
	if err != nil {
		return nil, err
	}
	defer keyring.Zero(secret)

	return newVault(cfg, secret, state)
}

// New creates a vault from a config and a caller-held master secret.
// The caller keeps ownership of the secret; the vault derives its
// identity from it and does not retain it.
func New(cfg config.Config, masterSecret []byte) (*Vault, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	state, err := LoadVaultState(filepath.Join(cfg.DataDir, "vault.json"))
	if err != nil {
		return nil, err
	}
	return newVault(cfg, masterSecret, state)
}

func newVault(cfg config.Config, masterSecret []byte, state *VaultState) (*Vault, error) {
	identity, err := keyring.NewIdentity(masterSecret)
	if err != nil {
		return nil, fmt.Errorf("vault: derive identity: %w", err)
	}

	store, err := storage.NewFileStore(filepath.Join(cfg.DataDir, "blocks"))
	if err != nil {
		return nil, fmt.Errorf("vault: init block store: %w", err)
	}
	gateway := storage.NewGateway(store)
	gateway.Endpoints = cfg.GatewayEndpoints

	cache, err := naming.OpenPointerCache(filepath.Join(cfg.DataDir, "naming", "pointers.db"))
	if err != nil {
		return nil, fmt.Errorf("vault: open pointer cache: %w", err)
	}

	svc := naming.NewClient(cfg.NamingEndpoint)
	resolver := naming.NewResolver(svc, cache)
	resolver.Timeout = cfg.ResolveTimeout
	publisher := &naming.Publisher{Service: svc, Resolver: resolver}

	shareDB, err := sharing.OpenBoltStore(filepath.Join(cfg.DataDir, "shares", "shares.db"))
	if err != nil {
		_ = cache.Close()
		return nil, fmt.Errorf("vault: open share store: %w", err)
	}

	v := &Vault{
		Identity:  identity,
		Store:     store,
		Gateway:   gateway,
		Naming:    svc,
		Resolver:  resolver,
		Publisher: publisher,
		Cache:     cache,
		Shares:    sharing.NewEngine(shareDB),
		ShareDB:   shareDB,
		State:     state,
		DataDir:   cfg.DataDir,
	}
	if cfg.RepublishEndpoint != "" {
		v.Republish = naming.NewRepublishClient(cfg.RepublishEndpoint, cfg.RepublishToken)
	}
	return v, nil
}

// SetNamingService swaps the naming transport, rewiring the resolver
// and publisher around the existing cache. Used to run against an
// in-memory service.
func (v *Vault) SetNamingService(svc naming.Service) {
	var timeout = naming.DefaultResolveTimeout
	if v.Resolver != nil && v.Resolver.Timeout > 0 {
		timeout = v.Resolver.Timeout
	}
	v.Naming = svc
	v.Resolver = naming.NewResolver(svc, v.Cache)
	v.Resolver.Timeout = timeout
	v.Publisher = &naming.Publisher{Service: svc, Resolver: v.Resolver}
}

// Close persists state, zeroizes the identity and releases databases.
func (v *Vault) Close() error {
	if v.ShareDB != nil {
		_ = v.ShareDB.Close()
	}
	if v.Cache != nil {
		_ = v.Cache.Close()
	}
	v.Identity.Destroy()
	return v.State.Save()
}

// UserID returns the vault owner's user identifier: the hex form of the
// owner's encryption public key.
func (v *Vault) UserID() string {
	return hex.EncodeToString(v.Identity.EncryptionPub)
}

// checkRotation runs the lazy revocation sweep for one pointer before a
// mutation proceeds. A revocation that races the sweep is left for the
// next mutation.
func (v *Vault) checkRotation(ctx context.Context, pointerName string) error {
	if v.Shares == nil {
		return nil
	}
	_, err := v.Shares.RotateOnMutation(ctx, pointerName, v)
	if err != nil && !errors.Is(err, sharing.ErrRevocationRace) {
		return err
	}
	return nil
}
