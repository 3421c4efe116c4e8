package maskedroot

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/MuriData/muri-merkle/pkg/crypto"
	"github.com/MuriData/muri-merkle/pkg/field"
	"github.com/MuriData/muri-merkle/pkg/merkle"
)

// PrepareAssignment populates a circuit assignment from the disclosed leaf
// set, the derived mask, and the expected commitment. The leaf count must
// match the shape the circuit was compiled with.
func PrepareAssignment(params *merkle.Parameters, commitment fr.Element, mask [crypto.MaskSize]byte, leaves [][]byte) (*MaskedRootCircuit, error) {
	if uint64(len(leaves)) > params.Capacity() {
		return nil, fmt.Errorf("%d leaves exceed capacity 2^%d", len(leaves), params.Height)
	}

	assignment := NewCircuit(params, len(leaves))
	assignment.Commitment = field.DigestToVar(commitment)
	for i, b := range mask {
		assignment.Mask[i] = int(b)
	}
	for i, leaf := range leaves {
		if len(leaf) != merkle.LeafSize {
			return nil, fmt.Errorf("leaf %d has %d bytes, want %d", i, len(leaf), merkle.LeafSize)
		}
		for j, b := range leaf {
			assignment.Leaves[i][j] = int(b)
		}
	}
	return assignment, nil
}
