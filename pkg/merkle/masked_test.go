package merkle

import (
	"math/rand"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/MuriData/muri-merkle/pkg/crypto"
)

func testNonce(seed int64) [crypto.NonceSize]byte {
	var nonce [crypto.NonceSize]byte
	rng := rand.New(rand.NewSource(seed))
	rng.Read(nonce[:])
	return nonce
}

func TestMaskedCommitmentRoundTrip(t *testing.T) {
	params := testParams(3)
	leaves := testLeaves(4)

	nonceA := testNonce(testSeed)
	nonceB := testNonce(testSeed + 1)

	commitA, maskA, err := MaskedCommitment(params, nonceA, leaves)
	if err != nil {
		t.Fatal(err)
	}
	commitB, maskB, err := MaskedCommitment(params, nonceB, leaves)
	if err != nil {
		t.Fatal(err)
	}

	if maskA == maskB {
		t.Fatal("different nonces produced the same mask")
	}
	if commitA.Equal(&commitB) {
		t.Fatal("different nonces produced the same commitment")
	}

	// Neither commitment equals the raw root.
	tree, err := New(params, leaves)
	if err != nil {
		t.Fatal(err)
	}
	root := tree.Root()
	if commitA.Equal(&root) || commitB.Equal(&root) {
		t.Fatal("masked commitment equals the raw root")
	}

	okA, err := VerifyMaskedCommitment(params, commitA, nonceA, leaves)
	if err != nil {
		t.Fatal(err)
	}
	okB, err := VerifyMaskedCommitment(params, commitB, nonceB, leaves)
	if err != nil {
		t.Fatal(err)
	}
	if !okA || !okB {
		t.Fatal("honest masked commitment rejected")
	}
}

func TestMaskedCommitmentMismatch(t *testing.T) {
	params := testParams(3)
	leaves := testLeaves(4)
	nonce := testNonce(testSeed)

	commitment, _, err := MaskedCommitment(params, nonce, leaves)
	if err != nil {
		t.Fatal(err)
	}

	// Wrong nonce yields a different mask and fails verification.
	ok, err := VerifyMaskedCommitment(params, commitment, testNonce(testSeed+2), leaves)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("commitment accepted under a different nonce")
	}

	// A changed leaf set changes both the mask derivation and the fold.
	tampered := testLeaves(4)
	tampered[1][0] ^= 0xff
	ok, err = VerifyMaskedCommitment(params, commitment, nonce, tampered)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("commitment accepted for tampered leaves")
	}
}

// TestMaskDerivedFromWrongRoot derives the mask from a default root instead
// of the true one; the resulting commitment must not match the honest one.
func TestMaskDerivedFromWrongRoot(t *testing.T) {
	params := testParams(3)
	leaves := testLeaves(4)
	nonce := testNonce(testSeed)

	commitment, _, err := MaskedCommitment(params, nonce, leaves)
	if err != nil {
		t.Fatal(err)
	}

	var defaultRoot fr.Element
	wrongMask, err := crypto.DeriveMask(nonce, defaultRoot)
	if err != nil {
		t.Fatal(err)
	}
	recomputed, err := ComputeMaskedRoot(params, wrongMask, leaves)
	if err != nil {
		t.Fatal(err)
	}
	if recomputed.Equal(&commitment) {
		t.Fatal("mask derived from the wrong root reproduced the commitment")
	}
}

func TestComputeMaskedRootErrors(t *testing.T) {
	params := testParams(2)
	var mask [crypto.MaskSize]byte

	if _, err := ComputeMaskedRoot(params, mask, testLeaves(5)); err == nil {
		t.Fatal("expected error for leaf count over capacity")
	}
	if _, err := ComputeMaskedRoot(params, mask, [][]byte{make([]byte, 8)}); err == nil {
		t.Fatal("expected error for short leaf")
	}
}
