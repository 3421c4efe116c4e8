package membership

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/frontend"

	"github.com/MuriData/muri-merkle/pkg/field"
	"github.com/MuriData/muri-merkle/pkg/merkle"
)

// PrepareAssignment populates a circuit assignment from a native proof. The
// proof's height must match the parameters the circuit was shaped with.
func PrepareAssignment(params *merkle.Parameters, root fr.Element, proof *merkle.Proof, leaf []byte) (*MembershipCircuit, error) {
	if len(proof.Siblings) != params.Height {
		return nil, fmt.Errorf("proof has %d siblings, parameters fix height %d", len(proof.Siblings), params.Height)
	}
	if len(leaf) != merkle.LeafSize {
		return nil, fmt.Errorf("leaf has %d bytes, want %d", len(leaf), merkle.LeafSize)
	}

	assignment := &MembershipCircuit{
		Root:       field.DigestToVar(root),
		Siblings:   field.DigestsToVars(proof.Siblings),
		Directions: make([]frontend.Variable, params.Height),
		Params:     params.CRH,
	}
	for i, b := range leaf {
		assignment.Leaf[i] = int(b)
	}
	for l := 0; l < params.Height; l++ {
		assignment.Directions[l] = int((proof.Index >> uint(l)) & 1)
	}
	return assignment, nil
}
