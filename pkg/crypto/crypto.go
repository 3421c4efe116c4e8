// Package crypto holds the native keyed primitives that sit next to the
// Merkle core: nonce sampling and the Blake2s mask derivation used by the
// masked-root disclosure.
package crypto

import (
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/crypto/blake2s"
)

// NonceSize is the byte length of a disclosure nonce.
const NonceSize = 32

// MaskSize is the byte length of a derived mask.
const MaskSize = blake2s.Size

// SampleNonce reads a fresh disclosure nonce from rng. Nonces are ephemeral:
// one per disclosure, never persisted with the tree.
func SampleNonce(rng io.Reader) ([NonceSize]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rng, nonce[:]); err != nil {
		return nonce, fmt.Errorf("sample nonce: %w", err)
	}
	return nonce, nil
}

// DeriveMask computes the nonce-derived blinding mask as a keyed Blake2s-256
// PRF over the canonical encoding of the true root. Only holders of the
// nonce can recompute the mask and hence link a masked commitment to the
// root it blinds.
func DeriveMask(nonce [NonceSize]byte, root fr.Element) ([MaskSize]byte, error) {
	var mask [MaskSize]byte
	h, err := blake2s.New256(nonce[:])
	if err != nil {
		return mask, fmt.Errorf("keyed blake2s: %w", err)
	}
	rootBytes := root.Bytes()
	h.Write(rootBytes[:])
	copy(mask[:], h.Sum(nil))
	return mask, nil
}
