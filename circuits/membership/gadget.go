// Package membership arithmetizes the Pedersen CRH and Merkle membership
// verification so that a prover can show a leaf belongs to a committed tree
// without revealing the tree. The constraints generated here are equivalent
// to the native pkg/crh and pkg/merkle computations: a witness satisfies
// them exactly when the native relation holds.
package membership

import (
	"fmt"
	"math/big"

	tedwards "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"

	"github.com/MuriData/muri-merkle/pkg/crh"
)

// ParametersVar is the in-circuit representation of the CRH parameters: the
// per-bit base table embedded as circuit constants.
type ParametersVar struct {
	bases []twistededwards.Point
}

// NewParametersVar converts native CRH parameters into circuit constants.
func NewParametersVar(p *crh.Parameters) *ParametersVar {
	bases := make([]twistededwards.Point, len(p.Bases))
	for i := range p.Bases {
		x := new(big.Int)
		y := new(big.Int)
		p.Bases[i].X.BigInt(x)
		p.Bases[i].Y.BigInt(y)
		bases[i] = twistededwards.Point{X: x, Y: y}
	}
	return &ParametersVar{bases: bases}
}

// Hasher evaluates the CRH inside a circuit. One Hasher is bound to a single
// constraint builder; the builder is a single-writer resource and calls must
// not be interleaved across goroutines.
type Hasher struct {
	api   frontend.API
	curve twistededwards.Curve
	pv    *ParametersVar
}

// NewHasher binds the CRH constants to a constraint builder.
func NewHasher(api frontend.API, pv *ParametersVar) (*Hasher, error) {
	curve, err := twistededwards.NewEdCurve(api, tedwards.BN254)
	if err != nil {
		return nil, fmt.Errorf("edwards curve gadget: %w", err)
	}
	return &Hasher{api: api, curve: curve, pv: pv}, nil
}

// EvaluateBits absorbs already-boolean-constrained bits: for every set bit
// the corresponding constant base is added to the accumulator. Both the
// added and the unchanged accumulator are computed and one is selected, so
// the circuit shape never depends on witness values. The result is the
// accumulator's X coordinate, matching the native compression.
//
// An input outside the CRH capacity is a circuit-construction bug and
// panics, mirroring the native length contract.
func (h *Hasher) EvaluateBits(bits []frontend.Variable) frontend.Variable {
	if len(bits) == 0 || len(bits) > len(h.pv.bases) {
		panic(fmt.Sprintf("membership: input of %d bits outside capacity %d", len(bits), len(h.pv.bases)))
	}

	acc := twistededwards.Point{X: 0, Y: 1}
	for i, bit := range bits {
		sum := h.curve.Add(acc, h.pv.bases[i])
		acc.X = h.api.Select(bit, sum.X, acc.X)
		acc.Y = h.api.Select(bit, sum.Y, acc.Y)
	}
	return acc.X
}

// EvaluateBytes decomposes each byte variable into 8 bits (LSB first, which
// also range-checks the byte) and absorbs the concatenation. This is the
// in-circuit counterpart of crh.Evaluate.
func (h *Hasher) EvaluateBytes(data []frontend.Variable) frontend.Variable {
	bits := make([]frontend.Variable, 0, 8*len(data))
	for _, b := range data {
		bits = append(bits, h.api.ToBinary(b, 8)...)
	}
	return h.EvaluateBits(bits)
}

// Compress combines two node variables exactly like crh.Compress: both
// children are decomposed to DigestBits bits and absorbed left child first.
func (h *Hasher) Compress(left, right frontend.Variable) frontend.Variable {
	bits := make([]frontend.Variable, 0, 2*crh.DigestBits)
	bits = append(bits, h.api.ToBinary(left, crh.DigestBits)...)
	bits = append(bits, h.api.ToBinary(right, crh.DigestBits)...)
	return h.EvaluateBits(bits)
}

// PathGadget holds the witnessed Merkle path of one leaf: a sibling digest
// and a direction bit per level, bottom-up. Direction 0 means the running
// node is the left child of its pair (sibling hashed on the right),
// direction 1 the mirror — the same convention as merkle.Proof.
type PathGadget struct {
	Siblings   []frontend.Variable
	Directions []frontend.Variable
}

// CheckMembership constrains leafBytes to be a member of the tree committed
// to by root. At every level the ordered pair is picked by a constraint-level
// multiplexer: both orderings are computed and the direction bit selects one,
// keeping the circuit shape fixed by the height alone.
//
// A wrong witness is not an error here — it surfaces only as an
// unsatisfiable constraint system when the circuit is later checked.
func (pg *PathGadget) CheckMembership(api frontend.API, pv *ParametersVar, root frontend.Variable, leafBytes []frontend.Variable) error {
	if len(pg.Siblings) != len(pg.Directions) {
		return fmt.Errorf("path has %d siblings but %d direction bits", len(pg.Siblings), len(pg.Directions))
	}
	h, err := NewHasher(api, pv)
	if err != nil {
		return err
	}

	cur := h.EvaluateBytes(leafBytes)
	for i := range pg.Siblings {
		api.AssertIsBoolean(pg.Directions[i])
		left := api.Select(pg.Directions[i], pg.Siblings[i], cur)
		right := api.Select(pg.Directions[i], cur, pg.Siblings[i])
		cur = h.Compress(left, right)
	}

	api.AssertIsEqual(cur, root)
	return nil
}
