// Package lntypes defines the small fixed-size value types shared across the
// plugin: payment hashes and preimages. It mirrors the shape of
// lightningnetwork/lnd's own lntypes package, re-homed here because that
// package is internal to the lnd module and not separately importable.
package lntypes

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashSize is the size of a payment hash or preimage, in bytes.
const HashSize = 32

// Hash is a 32-byte payment hash.
type Hash [HashSize]byte

// MakeHash creates a new Hash from a byte slice. An error is returned if the
// number of bytes is not exactly right.
func MakeHash(newHash []byte) (Hash, error) {
	nhlen := len(newHash)
	if nhlen != HashSize {
		return Hash{}, fmt.Errorf("invalid hash length of %v, "+
			"want %v", nhlen, HashSize)
	}

	var h Hash
	copy(h[:], newHash)

	return h, nil
}

// String returns the hex-encoded representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Preimage is a 32-byte secret that hashes, under sha256, to a Hash.
type Preimage [HashSize]byte

// MakePreimage creates a new Preimage from a byte slice.
func MakePreimage(newPreimage []byte) (Preimage, error) {
	nplen := len(newPreimage)
	if nplen != HashSize {
		return Preimage{}, fmt.Errorf("invalid preimage length of %v, "+
			"want %v", nplen, HashSize)
	}

	var p Preimage
	copy(p[:], newPreimage)

	return p, nil
}

// Hash returns the sha256 hash of the preimage.
func (p Preimage) Hash() Hash {
	return Hash(sha256.Sum256(p[:]))
}

// String returns the hex-encoded representation of the preimage.
func (p Preimage) String() string {
	return hex.EncodeToString(p[:])
}

// Matches returns true if the preimage hashes to the given hash.
func (p Preimage) Matches(h Hash) bool {
	return p.Hash() == h
}
