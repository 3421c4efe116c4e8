package crh

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

const testSeed = 9174123

func testParams(t *testing.T) *Parameters {
	t.Helper()
	p, err := Setup(rand.New(rand.NewSource(testSeed)))
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	return p
}

// TestSetupReproducible verifies that a seeded deterministic rng always
// yields the same parameters, and that a different seed does not.
func TestSetupReproducible(t *testing.T) {
	a, err := Setup(rand.New(rand.NewSource(testSeed)))
	if err != nil {
		t.Fatalf("setup a: %v", err)
	}
	b, err := Setup(rand.New(rand.NewSource(testSeed)))
	if err != nil {
		t.Fatalf("setup b: %v", err)
	}
	for i := range a.Bases {
		if !a.Bases[i].Equal(&b.Bases[i]) {
			t.Fatalf("base %d differs between identically seeded setups", i)
		}
	}

	c, err := Setup(rand.New(rand.NewSource(testSeed + 1)))
	if err != nil {
		t.Fatalf("setup c: %v", err)
	}
	if a.Bases[0].Equal(&c.Bases[0]) {
		t.Fatal("differently seeded setups produced the same first base")
	}
}

// TestSetupBasesOnCurve checks every precomputed base is a curve point.
func TestSetupBasesOnCurve(t *testing.T) {
	p := testParams(t)
	for i := range p.Bases {
		if !p.Bases[i].IsOnCurve() {
			t.Fatalf("base %d is off curve", i)
		}
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	p := testParams(t)

	input := make([]byte, 32)
	for i := range input {
		input[i] = byte(i)
	}

	a := Evaluate(p, input)
	b := Evaluate(p, input)
	if !a.Equal(&b) {
		t.Fatal("evaluation is not deterministic")
	}

	input[7] ^= 1
	c := Evaluate(p, input)
	if a.Equal(&c) {
		t.Fatal("single-bit flip did not change the digest")
	}
}

// TestCompressOrderSensitive verifies the pairwise combiner distinguishes
// child order, which the direction-bit convention relies on.
func TestCompressOrderSensitive(t *testing.T) {
	p := testParams(t)

	var left, right fr.Element
	left.SetUint64(1)
	right.SetUint64(2)

	ab := Compress(p, left, right)
	ba := Compress(p, right, left)
	if ab.Equal(&ba) {
		t.Fatal("compress is order-insensitive")
	}
}

// TestEvaluateLengthContract checks that an over-capacity input aborts:
// call sites are length-controlled, so this is a programmer error.
func TestEvaluateLengthContract(t *testing.T) {
	p := testParams(t)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for over-capacity input")
		}
	}()
	Evaluate(p, make([]byte, Capacity/8+1))
}

func TestEvaluateEmptyInputPanics(t *testing.T) {
	p := testParams(t)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for empty input")
		}
	}()
	Evaluate(p, nil)
}

func TestParametersSerialization(t *testing.T) {
	p := testParams(t)

	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := ReadParameters(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for i := range p.Bases {
		if !p.Bases[i].Equal(&loaded.Bases[i]) {
			t.Fatalf("base %d differs after round-trip", i)
		}
	}

	// A digest under the loaded parameters must match the original.
	input := []byte("serialization round trip check!!")
	a := Evaluate(p, input)
	b := Evaluate(loaded, input)
	if !a.Equal(&b) {
		t.Fatal("digest differs under round-tripped parameters")
	}
}

// TestBitExpansionConventions pins the LSB-first orderings the circuit
// gadget mirrors with binary decompositions.
func TestBitExpansionConventions(t *testing.T) {
	bits := BytesToBits([]byte{0x01, 0x80})
	if !bits[0] {
		t.Fatal("bit 0 of 0x01 must be set (LSB first)")
	}
	for i := 1; i < 15; i++ {
		if bits[i] {
			t.Fatalf("bit %d unexpectedly set", i)
		}
	}
	if !bits[15] {
		t.Fatal("bit 15 of 0x80 must be set")
	}

	var d fr.Element
	d.SetUint64(5)
	dbits := DigestToBits(d)
	if len(dbits) != DigestBits {
		t.Fatalf("digest expansion has %d bits, want %d", len(dbits), DigestBits)
	}
	if !dbits[0] || dbits[1] || !dbits[2] {
		t.Fatal("digest expansion of 5 must be 101 (LSB first)")
	}
}

func BenchmarkEvaluate(b *testing.B) {
	p, err := Setup(rand.New(rand.NewSource(testSeed)))
	if err != nil {
		b.Fatal(err)
	}
	input := make([]byte, 32)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Evaluate(p, input)
	}
}

func BenchmarkCompress(b *testing.B) {
	p, err := Setup(rand.New(rand.NewSource(testSeed)))
	if err != nil {
		b.Fatal(err)
	}
	var left, right fr.Element
	left.SetUint64(1)
	right.SetUint64(2)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Compress(p, left, right)
	}
}
