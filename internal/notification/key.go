// Package notification implements the signed message envelope shared by
// the Pass-It-On client and server: Message/Key/Notification construction,
// the BLAKE3-keyed MAC protocol, and the internal pairings
// (ClientReadyMessage, ValidatedNotification) used by the dispatch cores.
package notification

import (
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

// KeySize is the length in bytes of a master key, a derived notification
// key, and a MAC. All three share the same BLAKE3 output width.
const KeySize = 32

// Key is a 32-byte value used either as the shared master key, a
// per-notification-name derived key, or a recomputed MAC. Equality is
// over the raw bytes.
type Key struct {
	bytes [KeySize]byte
}

// FromBytes wraps a raw 32-byte key. It does not copy-validate length
// beyond the array size constraint.
func FromBytes(b [KeySize]byte) Key {
	return Key{bytes: b}
}

// FromSlice builds a Key from a byte slice, which must be exactly
// KeySize bytes long. This is the path configuration loading uses for
// the master key read from a TOML string.
func FromSlice(b []byte) (Key, error) {
	if len(b) != KeySize {
		return Key{}, fmt.Errorf("invalid key length: got %d bytes, want %d", len(b), KeySize)
	}
	var k Key
	copy(k.bytes[:], b)
	return k, nil
}

// FromHex decodes a 64-character hex string into a Key.
func FromHex(s string) (Key, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, fmt.Errorf("decode key hex: %w", err)
	}
	return FromSlice(b)
}

// Generate derives a child key from a name under parent, computing
// BLAKE3_keyed(parent, name). This is used both to derive a
// notification-name key from the master key, and (internally) to
// recompute a MAC from a notification key.
func Generate(name string, parent Key) Key {
	h := blake3.New(KeySize, parent.bytes[:])
	h.Write([]byte(name))
	var out [KeySize]byte
	copy(out[:], h.Sum(nil))
	return Key{bytes: out}
}

// Bytes returns the raw 32 bytes of the key.
func (k Key) Bytes() [KeySize]byte {
	return k.bytes
}

// ToHex renders the key as lowercase hex.
func (k Key) ToHex() string {
	return hex.EncodeToString(k.bytes[:])
}

// Equal reports whether two keys hold the same raw bytes.
func (k Key) Equal(other Key) bool {
	return k.bytes == other.bytes
}
