package merkle

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/MuriData/muri-merkle/pkg/crh"
	"github.com/MuriData/muri-merkle/pkg/crypto"
)

// Masked-root disclosure. Instead of exposing the raw tree root, the
// discloser samples a nonce, derives mask = Blake2s(nonce, rootBytes), and
// publishes Compress(Evaluate(mask), root) where root is recomputed from the
// ordered leaf set by the same bottom-up fold as tree construction. The
// whole fold is redone per disclosure rather than reusing a prebuilt tree's
// internal nodes, which is why the masked variant is only used at shallow
// heights.

// ComputeMaskedRoot folds the ordered leaf set up to its root and combines
// the mask digest with it at the top. The leaf constraints are the same as
// New: every leaf LeafSize bytes, at most 2^Height of them.
func ComputeMaskedRoot(params *Parameters, mask [crypto.MaskSize]byte, leaves [][]byte) (fr.Element, error) {
	var zero fr.Element
	if uint64(len(leaves)) > params.Capacity() {
		return zero, fmt.Errorf("%d leaves exceed capacity 2^%d", len(leaves), params.Height)
	}
	for i, leaf := range leaves {
		if len(leaf) != LeafSize {
			return zero, fmt.Errorf("leaf %d has %d bytes, want %d", i, len(leaf), LeafSize)
		}
	}

	empty := params.EmptyHashes()
	cur := hashLeaves(params.CRH, leaves)
	for l := 0; l < params.Height; l++ {
		next := make([]fr.Element, (len(cur)+1)/2)
		for i := range next {
			left := cur[2*i]
			right := empty[l]
			if 2*i+1 < len(cur) {
				right = cur[2*i+1]
			}
			next[i] = crh.Compress(params.CRH, left, right)
		}
		cur = next
	}

	root := empty[params.Height]
	if len(cur) == 1 {
		root = cur[0]
	}

	maskDigest := crh.Evaluate(params.CRH, mask[:])
	return crh.Compress(params.CRH, maskDigest, root), nil
}

// MaskedCommitment derives the mask from nonce and the leaves' true root,
// then computes the masked commitment. It returns the commitment together
// with the mask so the discloser can hand the mask to a verifier.
func MaskedCommitment(params *Parameters, nonce [crypto.NonceSize]byte, leaves [][]byte) (fr.Element, [crypto.MaskSize]byte, error) {
	var zero fr.Element
	var mask [crypto.MaskSize]byte

	tree, err := New(params, leaves)
	if err != nil {
		return zero, mask, err
	}
	mask, err = crypto.DeriveMask(nonce, tree.Root())
	if err != nil {
		return zero, mask, err
	}
	commitment, err := ComputeMaskedRoot(params, mask, leaves)
	if err != nil {
		return zero, mask, err
	}
	return commitment, mask, nil
}

// VerifyMaskedCommitment checks that commitment is the masked root of the
// given leaf set under the given nonce. Mismatch is an expected outcome and
// reported as false.
func VerifyMaskedCommitment(params *Parameters, commitment fr.Element, nonce [crypto.NonceSize]byte, leaves [][]byte) (bool, error) {
	recomputed, _, err := MaskedCommitment(params, nonce, leaves)
	if err != nil {
		return false, err
	}
	return recomputed.Equal(&commitment), nil
}
