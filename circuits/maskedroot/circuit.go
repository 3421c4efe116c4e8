// Package maskedroot arithmetizes the masked-root disclosure: the ordered
// leaf set is folded up to its root inside the circuit, exactly like native
// tree construction, and combined with a witnessed mask at the top. The
// in-circuit commitment agrees bit for bit with merkle.ComputeMaskedRoot.
//
// Masking redoes the whole fold instead of reusing prebuilt tree nodes, so
// this circuit is meant for shallow heights over small disclosed leaf sets.
package maskedroot

import (
	"fmt"

	"github.com/consensys/gnark/frontend"

	"github.com/MuriData/muri-merkle/circuits/membership"
	"github.com/MuriData/muri-merkle/pkg/crypto"
	"github.com/MuriData/muri-merkle/pkg/field"
	"github.com/MuriData/muri-merkle/pkg/merkle"
)

// ComputeRoot folds the leaf byte variables bottom-up and combines the mask
// digest with the resulting root: Compress(Evaluate(mask), root). Unoccupied
// positions use the parameters' empty-subtree hashes as constants, matching
// native padding.
func ComputeRoot(api frontend.API, pv *membership.ParametersVar, params *merkle.Parameters, mask []frontend.Variable, leaves [][]frontend.Variable) (frontend.Variable, error) {
	if uint64(len(leaves)) > params.Capacity() {
		return nil, fmt.Errorf("%d leaves exceed capacity 2^%d", len(leaves), params.Height)
	}
	h, err := membership.NewHasher(api, pv)
	if err != nil {
		return nil, err
	}

	empty := params.EmptyHashes()

	cur := make([]frontend.Variable, len(leaves))
	for i := range leaves {
		cur[i] = h.EvaluateBytes(leaves[i])
	}
	for l := 0; l < params.Height; l++ {
		next := make([]frontend.Variable, (len(cur)+1)/2)
		for i := range next {
			left := cur[2*i]
			var right frontend.Variable
			if 2*i+1 < len(cur) {
				right = cur[2*i+1]
			} else {
				right = field.DigestToVar(empty[l])
			}
			next[i] = h.Compress(left, right)
		}
		cur = next
	}

	var root frontend.Variable
	if len(cur) == 1 {
		root = cur[0]
	} else {
		root = field.DigestToVar(empty[params.Height])
	}

	maskDigest := h.EvaluateBytes(mask)
	return h.Compress(maskDigest, root), nil
}

// MaskedRootCircuit proves that the public commitment is the masked root of
// the witnessed leaf set under the witnessed mask.
type MaskedRootCircuit struct {
	// Public inputs
	Commitment frontend.Variable `gnark:"commitment,public"`

	// Private inputs
	Mask   [crypto.MaskSize]frontend.Variable   `gnark:"mask"`
	Leaves [][merkle.LeafSize]frontend.Variable `gnark:"leaves"`

	// Params are compile-time constants, not witness data.
	Params *merkle.Parameters `gnark:"-"`
}

// NewCircuit shapes an empty circuit for nbLeaves disclosed leaves under the
// given tree parameters.
func NewCircuit(params *merkle.Parameters, nbLeaves int) *MaskedRootCircuit {
	return &MaskedRootCircuit{
		Leaves: make([][merkle.LeafSize]frontend.Variable, nbLeaves),
		Params: params,
	}
}

// Define implements frontend.Circuit.
func (c *MaskedRootCircuit) Define(api frontend.API) error {
	if c.Params == nil {
		return fmt.Errorf("maskedroot: missing tree parameters")
	}
	pv := membership.NewParametersVar(c.Params.CRH)

	leaves := make([][]frontend.Variable, len(c.Leaves))
	for i := range c.Leaves {
		leaves[i] = c.Leaves[i][:]
	}
	computed, err := ComputeRoot(api, pv, c.Params, c.Mask[:], leaves)
	if err != nil {
		return err
	}

	api.AssertIsEqual(computed, c.Commitment)
	return nil
}
