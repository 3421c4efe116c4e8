// Package crh implements a windowed Pedersen collision-resistant hash over
// the Baby Jubjub curve (the twisted Edwards curve embedded in the BN254
// scalar field). Outputs are BN254 fr elements, so the same hash can be
// re-evaluated inside a BN254 circuit without any field emulation.
package crh

import (
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
)

const (
	// NumWindows and WindowSize fix the Pedersen window layout. Together
	// they bound the input at Capacity bits per evaluation.
	NumWindows = 256
	WindowSize = 4

	// Capacity is the maximum number of input bits a single evaluation
	// can absorb.
	Capacity = NumWindows * WindowSize

	// DigestBits is the number of bits contributed by one child digest in
	// node compression. It equals the BN254 fr modulus bit length so the
	// native expansion matches the in-circuit binary decomposition.
	DigestBits = 254
)

// Parameters hold the public setup of the hash: one precomputed base point
// per input bit, derived from NumWindows window generators by repeated
// doubling. Parameters are immutable once generated and are shared by
// pointer across every tree built from them.
type Parameters struct {
	Bases [Capacity]twistededwards.PointAffine
}

// Setup generates fresh public parameters from rng. Each window generator is
// obtained by multiplying the curve base point with a scalar read from rng,
// which keeps every base in the prime-order subgroup. A seeded deterministic
// rng reproduces the same parameters, which tests rely on.
func Setup(rng io.Reader) (*Parameters, error) {
	curve := twistededwards.GetEdwardsCurve()

	p := &Parameters{}
	buf := make([]byte, fr.Bytes)
	for w := 0; w < NumWindows; w++ {
		var g twistededwards.PointAffine
		for {
			if _, err := io.ReadFull(rng, buf); err != nil {
				return nil, fmt.Errorf("sample window generator %d: %w", w, err)
			}
			s := new(big.Int).SetBytes(buf)
			s.Mod(s, &curve.Order)
			if s.Sign() == 0 {
				continue
			}
			g.ScalarMultiplication(&curve.Base, s)
			break
		}

		p.Bases[w*WindowSize] = g
		for k := 1; k < WindowSize; k++ {
			p.Bases[w*WindowSize+k].Double(&p.Bases[w*WindowSize+k-1])
		}
	}
	return p, nil
}

// Evaluate hashes a fixed-length byte string: the Pedersen sum of the bases
// selected by the LSB-first bit expansion of input, compressed to the X
// coordinate of the accumulated point.
//
// All call sites are length-controlled, so an input that exceeds Capacity
// bits (or an empty one) is a programmer error and panics.
func Evaluate(p *Parameters, input []byte) fr.Element {
	return evaluateBits(p, BytesToBits(input))
}

// Compress combines two child digests into their parent digest. Each child
// contributes its DigestBits-long little-endian expansion, left child first,
// matching the in-circuit decomposition bit for bit.
func Compress(p *Parameters, left, right fr.Element) fr.Element {
	bits := make([]bool, 0, 2*DigestBits)
	bits = append(bits, DigestToBits(left)...)
	bits = append(bits, DigestToBits(right)...)
	return evaluateBits(p, bits)
}

func evaluateBits(p *Parameters, bits []bool) fr.Element {
	if len(bits) == 0 || len(bits) > Capacity {
		panic(fmt.Sprintf("crh: input of %d bits outside capacity %d", len(bits), Capacity))
	}

	// Identity of the twisted Edwards group is (0, 1).
	var acc twistededwards.PointAffine
	acc.X.SetZero()
	acc.Y.SetOne()

	for i, set := range bits {
		if set {
			acc.Add(&acc, &p.Bases[i])
		}
	}
	return acc.X
}

// BytesToBits expands data into bits, LSB first within each byte. This is
// the same ordering a circuit obtains from an 8-bit binary decomposition of
// each byte variable.
func BytesToBits(data []byte) []bool {
	bits := make([]bool, 8*len(data))
	for i, b := range data {
		for k := 0; k < 8; k++ {
			bits[8*i+k] = (b>>uint(k))&1 == 1
		}
	}
	return bits
}

// DigestToBits expands a digest into its DigestBits-long little-endian bit
// representation of the canonical field value.
func DigestToBits(d fr.Element) []bool {
	var v big.Int
	d.BigInt(&v)
	bits := make([]bool, DigestBits)
	for i := 0; i < DigestBits; i++ {
		bits[i] = v.Bit(i) == 1
	}
	return bits
}
