package merkle

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/MuriData/muri-merkle/pkg/crh"
)

const testSeed = 9174123

// sharedCRH runs the CRH setup once; individual tests wrap it with whatever
// height they need.
var sharedCRH = func() *crh.Parameters {
	p, err := crh.Setup(rand.New(rand.NewSource(testSeed)))
	if err != nil {
		panic(err)
	}
	return p
}()

func testParams(height int) *Parameters {
	return &Parameters{CRH: sharedCRH, Height: height}
}

// testLeaves returns n distinct 32-byte leaves: leaf i is [i, i, ..., i].
func testLeaves(n int) [][]byte {
	leaves := make([][]byte, n)
	for i := range leaves {
		leaf := make([]byte, LeafSize)
		for j := range leaf {
			leaf[j] = byte(i)
		}
		leaves[i] = leaf
	}
	return leaves
}

func TestRoundTripMembership(t *testing.T) {
	heights := []int{1, 2, 3, 4, 8}
	for _, h := range heights {
		params := testParams(h)
		capacity := int(params.Capacity())

		for _, n := range []int{1, 2, capacity / 2, capacity} {
			if n < 1 || n > capacity {
				continue
			}
			leaves := testLeaves(n)
			tree, err := New(params, leaves)
			if err != nil {
				t.Fatalf("height %d, %d leaves: %v", h, n, err)
			}
			root := tree.Root()

			for i, leaf := range leaves {
				proof, err := tree.GenerateProof(i, leaf)
				if err != nil {
					t.Fatalf("height %d, leaf %d: generate: %v", h, i, err)
				}
				if len(proof.Siblings) != h {
					t.Fatalf("proof has %d siblings, want %d", len(proof.Siblings), h)
				}
				if !proof.Verify(params, root, leaf) {
					t.Fatalf("height %d, leaf %d: proof rejected", h, i)
				}
			}
		}
	}
}

func TestTamperDetection(t *testing.T) {
	params := testParams(4)
	leaves := testLeaves(7)
	tree, err := New(params, leaves)
	if err != nil {
		t.Fatal(err)
	}
	root := tree.Root()

	proof, err := tree.GenerateProof(3, leaves[3])
	if err != nil {
		t.Fatal(err)
	}
	if !proof.Verify(params, root, leaves[3]) {
		t.Fatal("honest proof rejected")
	}

	t.Run("substituted_sibling", func(t *testing.T) {
		for l := range proof.Siblings {
			tampered := &Proof{Siblings: append([]fr.Element(nil), proof.Siblings...), Index: proof.Index}
			var one fr.Element
			one.SetOne()
			tampered.Siblings[l].Add(&tampered.Siblings[l], &one)
			if tampered.Verify(params, root, leaves[3]) {
				t.Fatalf("accepted proof with corrupted sibling at level %d", l)
			}
		}
	})

	t.Run("flipped_direction", func(t *testing.T) {
		for l := 0; l < params.Height; l++ {
			tampered := &Proof{Siblings: proof.Siblings, Index: proof.Index ^ (1 << uint(l))}
			if tampered.Verify(params, root, leaves[3]) {
				t.Fatalf("accepted proof with flipped direction bit at level %d", l)
			}
		}
	})

	t.Run("wrong_root", func(t *testing.T) {
		var zero fr.Element
		if proof.Verify(params, zero, leaves[3]) {
			t.Fatal("accepted proof against a zero root")
		}
	})

	t.Run("wrong_leaf", func(t *testing.T) {
		if proof.Verify(params, root, leaves[4]) {
			t.Fatal("accepted proof for a different leaf")
		}
	})
}

func TestPaddingDeterminism(t *testing.T) {
	leaves := testLeaves(4)

	a, err := New(testParams(5), leaves)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(testParams(5), leaves)
	if err != nil {
		t.Fatal(err)
	}
	rootA, rootB := a.Root(), b.Root()
	if !rootA.Equal(&rootB) {
		t.Fatal("same leaves and height produced different roots")
	}

	c, err := New(testParams(6), leaves)
	if err != nil {
		t.Fatal(err)
	}
	rootC := c.Root()
	if rootA.Equal(&rootC) {
		t.Fatal("different heights produced the same root")
	}
}

func TestConstructionErrors(t *testing.T) {
	params := testParams(2)

	if _, err := New(params, testLeaves(5)); err == nil {
		t.Fatal("expected error for leaf count over capacity")
	} else if !strings.Contains(err.Error(), "capacity") {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := New(params, [][]byte{make([]byte, 16)}); err == nil {
		t.Fatal("expected error for short leaf")
	}
}

func TestGenerateProofErrors(t *testing.T) {
	params := testParams(3)
	leaves := testLeaves(4)
	tree, err := New(params, leaves)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tree.GenerateProof(-1, leaves[0]); err == nil {
		t.Fatal("expected error for negative index")
	}
	if _, err := tree.GenerateProof(4, leaves[0]); err == nil {
		t.Fatal("expected error for index past the real leaves")
	}
	// Proving index 1 while claiming leaf 2's content must fail.
	if _, err := tree.GenerateProof(1, leaves[2]); err == nil {
		t.Fatal("expected error for mismatched leaf content")
	}
}

func TestVerifyHeightContract(t *testing.T) {
	params := testParams(3)
	leaves := testLeaves(2)
	tree, err := New(params, leaves)
	if err != nil {
		t.Fatal(err)
	}
	proof, err := tree.GenerateProof(0, leaves[0])
	if err != nil {
		t.Fatal(err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for height mismatch")
		}
	}()
	proof.Verify(testParams(4), tree.Root(), leaves[0])
}

// TestHeight32Scenario builds a height-32 tree over 4 leaves, proves leaf
// index 2, and checks acceptance against the true root and rejection
// against a default (zero) root.
func TestHeight32Scenario(t *testing.T) {
	params := testParams(32)
	leaves := testLeaves(4)

	tree, err := New(params, leaves)
	if err != nil {
		t.Fatal(err)
	}
	root := tree.Root()

	proof, err := tree.GenerateProof(2, leaves[2])
	if err != nil {
		t.Fatal(err)
	}
	if !proof.Verify(params, root, leaves[2]) {
		t.Fatal("proof rejected against the true root")
	}

	var defaultRoot fr.Element
	if proof.Verify(params, defaultRoot, leaves[2]) {
		t.Fatal("proof accepted against a default root")
	}
}

func TestEmptyTreeRoot(t *testing.T) {
	params := testParams(4)
	tree, err := New(params, nil)
	if err != nil {
		t.Fatal(err)
	}
	root := tree.Root()
	want := params.EmptyHashes()[params.Height]
	if !root.Equal(&want) {
		t.Fatal("empty tree root is not the empty-subtree hash")
	}
}

func TestProofSerialization(t *testing.T) {
	params := testParams(4)
	leaves := testLeaves(6)
	tree, err := New(params, leaves)
	if err != nil {
		t.Fatal(err)
	}
	proof, err := tree.GenerateProof(5, leaves[5])
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := ReadProof(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if loaded.Index != proof.Index {
		t.Fatalf("index %d != %d after round-trip", loaded.Index, proof.Index)
	}
	if !loaded.Verify(params, tree.Root(), leaves[5]) {
		t.Fatal("round-tripped proof rejected")
	}
}

func TestTreeSaveLoad(t *testing.T) {
	params := testParams(5)
	leaves := testLeaves(9)
	tree, err := New(params, leaves)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := tree.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(&buf, params)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	rootA, rootB := tree.Root(), loaded.Root()
	if !rootA.Equal(&rootB) {
		t.Fatal("root differs after round-trip")
	}
	if loaded.NbLeaves() != tree.NbLeaves() {
		t.Fatalf("leaf count %d != %d after round-trip", loaded.NbLeaves(), tree.NbLeaves())
	}

	// Proofs generated from the loaded tree must still verify.
	proof, err := loaded.GenerateProof(7, leaves[7])
	if err != nil {
		t.Fatal(err)
	}
	if !proof.Verify(params, rootA, leaves[7]) {
		t.Fatal("proof from loaded tree rejected")
	}
}

func TestParametersSaveLoad(t *testing.T) {
	params := testParams(6)

	var buf bytes.Buffer
	if err := params.Save(&buf); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := ReadParameters(&buf)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Height != params.Height {
		t.Fatalf("height %d != %d after round-trip", loaded.Height, params.Height)
	}

	leaves := testLeaves(3)
	a, err := New(params, leaves)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(loaded, leaves)
	if err != nil {
		t.Fatal(err)
	}
	rootA, rootB := a.Root(), b.Root()
	if !rootA.Equal(&rootB) {
		t.Fatal("root differs under round-tripped parameters")
	}
}

func BenchmarkTreeConstruction(b *testing.B) {
	params := testParams(10)
	leaves := testLeaves(256)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := New(params, leaves); err != nil {
			b.Fatal(err)
		}
	}
}
