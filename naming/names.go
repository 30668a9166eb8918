package naming

import (
	"encoding/hex"
	"fmt"

	bsvhash "github.com/bsv-blockchain/go-sdk/primitives/hash"
)

// PointerNameLen is the length of a pointer name in hex characters.
// A name is the RIPEMD160(SHA256(pubkey)) digest of the record signing
// key, hex encoded, so it is always 20 bytes / 40 characters.
const PointerNameLen = 40

// PointerNameForKey derives the pointer name owned by a signing public key.
// The name is stable for the lifetime of the keypair: republishing under
// the same key always targets the same name.
func PointerNameForKey(publicKey []byte) string {
	return hex.EncodeToString(bsvhash.Hash160(publicKey))
}

// ValidatePointerName checks that name is a well-formed pointer name.
// Uppercase hex is rejected: names are canonical in lowercase.
func ValidatePointerName(name string) error {
	if len(name) != PointerNameLen {
		return fmt.Errorf("%w: want %d hex chars, got %d", ErrInvalidPointerName, PointerNameLen, len(name))
	}
	for _, c := range name {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: non-hex character %q", ErrInvalidPointerName, c)
		}
	}
	return nil
}
