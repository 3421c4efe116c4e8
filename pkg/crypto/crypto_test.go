package crypto

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

func TestSampleNonce(t *testing.T) {
	rng := rand.New(rand.NewSource(9174123))

	a, err := SampleNonce(rng)
	if err != nil {
		t.Fatal(err)
	}
	b, err := SampleNonce(rng)
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("consecutive nonces are identical")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("exhausted") }

func TestSampleNonceReaderError(t *testing.T) {
	if _, err := SampleNonce(failingReader{}); err == nil {
		t.Fatal("expected error from failing reader")
	}
}

func TestDeriveMask(t *testing.T) {
	var rootA, rootB fr.Element
	rootA.SetUint64(42)
	rootB.SetUint64(43)

	var nonceA, nonceB [NonceSize]byte
	nonceB[0] = 1

	maskAA, err := DeriveMask(nonceA, rootA)
	if err != nil {
		t.Fatal(err)
	}
	again, err := DeriveMask(nonceA, rootA)
	if err != nil {
		t.Fatal(err)
	}
	if maskAA != again {
		t.Fatal("mask derivation is not deterministic")
	}

	maskBA, err := DeriveMask(nonceB, rootA)
	if err != nil {
		t.Fatal(err)
	}
	if maskAA == maskBA {
		t.Fatal("different nonces produced the same mask")
	}

	maskAB, err := DeriveMask(nonceA, rootB)
	if err != nil {
		t.Fatal(err)
	}
	if maskAA == maskAB {
		t.Fatal("different roots produced the same mask")
	}
}
