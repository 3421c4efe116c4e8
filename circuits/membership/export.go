package membership

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/frontend"

	"github.com/MuriData/muri-merkle/pkg/merkle"
	"github.com/MuriData/muri-merkle/pkg/setup"
)

// ProofFixture holds all values needed for Solidity verifier tests.
type ProofFixture struct {
	SolidityProof [8]string `json:"solidity_proof"`
	Root          string    `json:"root"`
	Height        int       `json:"height"`
	LeafIndex     uint64    `json:"leaf_index"`
}

// ExportProofFixture generates a deterministic membership proof fixture for
// Solidity tests: a 4-leaf tree under the given parameters, proved at leaf
// index 2. keysDir is the directory containing the proving and verifying
// keys produced by the setup.
func ExportProofFixture(keysDir string, params *merkle.Parameters) ([]byte, error) {
	// 1. Compile the circuit at the parameters' height
	fmt.Println("Compiling circuit...")
	ccs, err := setup.CompileCircuit(NewCircuit(params))
	if err != nil {
		return nil, fmt.Errorf("compile circuit: %w", err)
	}

	// 2. Load proving and verifying keys
	fmt.Println("Loading keys...")
	pk, vk, err := setup.LoadKeys(keysDir, "membership")
	if err != nil {
		return nil, fmt.Errorf("load keys: %w", err)
	}

	// 3. Deterministic leaf set: leaf i is [i, i, ..., i]
	leaves := make([][]byte, 4)
	for i := range leaves {
		leaf := make([]byte, merkle.LeafSize)
		for j := range leaf {
			leaf[j] = byte(i)
		}
		leaves[i] = leaf
	}
	tree, err := merkle.New(params, leaves)
	if err != nil {
		return nil, fmt.Errorf("build tree: %w", err)
	}
	root := tree.Root()
	fmt.Printf("Merkle root: 0x%x\n", root.Bytes())
	fmt.Printf("Leaves: %d, Height: %d\n", tree.NbLeaves(), params.Height)

	// 4. Prove membership of leaf 2
	const leafIndex = 2
	proof, err := tree.GenerateProof(leafIndex, leaves[leafIndex])
	if err != nil {
		return nil, fmt.Errorf("generate merkle proof: %w", err)
	}
	assignment, err := PrepareAssignment(params, root, proof, leaves[leafIndex])
	if err != nil {
		return nil, fmt.Errorf("prepare assignment: %w", err)
	}

	// 5. Create witness and generate proof
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("create witness: %w", err)
	}
	publicWitness, err := witness.Public()
	if err != nil {
		return nil, fmt.Errorf("extract public witness: %w", err)
	}

	fmt.Println("Generating proof...")
	zkProof, err := groth16.Prove(ccs, pk, witness)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}

	// 6. Verify proof in Go
	if err := groth16.Verify(zkProof, vk, publicWitness); err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	fmt.Println("Proof verified successfully in Go!")

	// 7. Extract proof points for Solidity
	bn254Proof := zkProof.(*groth16bn254.Proof)

	aX := new(big.Int)
	aY := new(big.Int)
	bn254Proof.Ar.X.BigInt(aX)
	bn254Proof.Ar.Y.BigInt(aY)

	bX0 := new(big.Int)
	bX1 := new(big.Int)
	bY0 := new(big.Int)
	bY1 := new(big.Int)
	bn254Proof.Bs.X.A0.BigInt(bX0)
	bn254Proof.Bs.X.A1.BigInt(bX1)
	bn254Proof.Bs.Y.A0.BigInt(bY0)
	bn254Proof.Bs.Y.A1.BigInt(bY1)

	cX := new(big.Int)
	cY := new(big.Int)
	bn254Proof.Krs.X.BigInt(cX)
	bn254Proof.Krs.Y.BigInt(cY)

	// Solidity format: [A.x, A.y, B.x1, B.x0, B.y1, B.y0, C.x, C.y]
	solidityProof := [8]*big.Int{aX, aY, bX1, bX0, bY1, bY0, cX, cY}

	rootBig := new(big.Int)
	root.BigInt(rootBig)

	fixture := ProofFixture{
		Root:      fmt.Sprintf("0x%064x", rootBig),
		Height:    params.Height,
		LeafIndex: leafIndex,
	}
	for i := 0; i < 8; i++ {
		fixture.SolidityProof[i] = fmt.Sprintf("0x%064x", solidityProof[i])
	}

	jsonOut, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal fixture: %w", err)
	}

	// Print diagnostic info
	fmt.Println("\n=== PROOF FIXTURE (JSON) ===")
	fmt.Println(string(jsonOut))

	fmt.Println("\n=== SOLIDITY CONSTANTS ===")
	fmt.Printf("    // Public inputs\n")
	fmt.Printf("    uint256 constant ZK_MERKLE_ROOT = %s;\n", fixture.Root)
	fmt.Println()
	fmt.Printf("    // Proof (uint256[8])\n")
	for i := 0; i < 8; i++ {
		fmt.Printf("    uint256 constant ZK_PROOF_%d = %s;\n", i, fixture.SolidityProof[i])
	}

	fmt.Println("\n=== HELPER ===")
	fmt.Println("    function _zkProof() internal pure returns (uint256[8] memory proof) {")
	for i := 0; i < 8; i++ {
		fmt.Printf("        proof[%d] = ZK_PROOF_%d;\n", i, i)
	}
	fmt.Println("    }")

	// Public witness info
	fmt.Println("\n=== PUBLIC WITNESS ORDER ===")
	fmt.Println("In gnark circuit (= Solidity order): [root]")
	var pubWitBuf bytes.Buffer
	if _, err := publicWitness.WriteTo(&pubWitBuf); err != nil {
		return nil, fmt.Errorf("write public witness: %w", err)
	}
	fmt.Printf("Public witness size: %d bytes\n", pubWitBuf.Len())

	return jsonOut, nil
}
