package membership

import (
	"fmt"

	"github.com/consensys/gnark/frontend"

	"github.com/MuriData/muri-merkle/pkg/crh"
	"github.com/MuriData/muri-merkle/pkg/merkle"
)

// MembershipCircuit proves that a 32-byte leaf is a member of the Merkle
// tree committed to by the public root, without revealing the tree or the
// leaf position.
type MembershipCircuit struct {
	// Public inputs
	Root frontend.Variable `gnark:"root,public"`

	// Private inputs
	Leaf       [merkle.LeafSize]frontend.Variable `gnark:"leaf"`
	Siblings   []frontend.Variable                `gnark:"siblings"`
	Directions []frontend.Variable                `gnark:"directions"`

	// Params are compile-time CRH constants, not witness data.
	Params *crh.Parameters `gnark:"-"`
}

// NewCircuit shapes an empty circuit for the given tree parameters. The
// path slices are sized by the height, which fixes the circuit shape.
func NewCircuit(params *merkle.Parameters) *MembershipCircuit {
	return &MembershipCircuit{
		Siblings:   make([]frontend.Variable, params.Height),
		Directions: make([]frontend.Variable, params.Height),
		Params:     params.CRH,
	}
}

// Define implements frontend.Circuit.
func (c *MembershipCircuit) Define(api frontend.API) error {
	if c.Params == nil {
		return fmt.Errorf("membership: missing CRH parameters")
	}
	pv := NewParametersVar(c.Params)
	pg := &PathGadget{Siblings: c.Siblings, Directions: c.Directions}
	return pg.CheckMembership(api, pv, c.Root, c.Leaf[:])
}
