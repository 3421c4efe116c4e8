// Package merkle implements a fixed-depth binary Merkle tree over the
// Pedersen CRH, together with self-contained membership proofs. Trees store
// one flat slice per level holding the occupied prefix of that level;
// positions beyond the real leaves are represented by a precomputed
// empty-subtree hash chain, so a height-32 tree over a handful of leaves
// stays proportional to the number of real leaves.
package merkle

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/MuriData/muri-merkle/pkg/crh"
)

// LeafSize is the fixed byte length of every tree leaf.
const LeafSize = 32

// MaxHeight bounds the supported tree height. Proof indices are addressed
// with int, and empty-hash chains of this length stay cheap to compute.
const MaxHeight = 48

// Parameters bundle the CRH setup with a fixed tree height. They are
// produced once by NewParameters and shared read-only across tree instances;
// two trees agree on roots only if they share the same parameters.
type Parameters struct {
	CRH    *crh.Parameters
	Height int
}

// NewParameters runs the CRH setup against rng and fixes the tree height.
func NewParameters(rng io.Reader, height int) (*Parameters, error) {
	if height < 1 || height > MaxHeight {
		return nil, fmt.Errorf("tree height %d outside supported range [1, %d]", height, MaxHeight)
	}
	params, err := crh.Setup(rng)
	if err != nil {
		return nil, fmt.Errorf("crh setup: %w", err)
	}
	return &Parameters{CRH: params, Height: height}, nil
}

// Capacity returns the leaf capacity 2^Height.
func (p *Parameters) Capacity() uint64 {
	return 1 << uint(p.Height)
}

// EmptyHashes returns the empty-subtree hash chain:
//
//	empty[0] = Evaluate(zero leaf)
//	empty[l] = Compress(empty[l-1], empty[l-1])
//
// The returned slice has length Height+1 (indices 0..Height).
func (p *Parameters) EmptyHashes() []fr.Element {
	empty := make([]fr.Element, p.Height+1)
	empty[0] = crh.Evaluate(p.CRH, make([]byte, LeafSize))
	for l := 1; l <= p.Height; l++ {
		empty[l] = crh.Compress(p.CRH, empty[l-1], empty[l-1])
	}
	return empty
}

// Tree is an immutable fixed-depth Merkle tree. levels[0] holds the leaf
// digests, levels[Height] the root; each level stores only its occupied
// prefix.
type Tree struct {
	params   *Parameters
	levels   [][]fr.Element
	empty    []fr.Element
	nbLeaves int
}

// New builds a tree over the given leaves. Every leaf must be exactly
// LeafSize bytes and the leaf count must not exceed 2^Height. Construction
// is deterministic and depends only on leaf positions: hash every real leaf,
// then fold level by level, drawing unoccupied siblings from the empty-hash
// chain.
func New(params *Parameters, leaves [][]byte) (*Tree, error) {
	if uint64(len(leaves)) > params.Capacity() {
		return nil, fmt.Errorf("%d leaves exceed capacity 2^%d", len(leaves), params.Height)
	}
	for i, leaf := range leaves {
		if len(leaf) != LeafSize {
			return nil, fmt.Errorf("leaf %d has %d bytes, want %d", i, len(leaf), LeafSize)
		}
	}

	t := &Tree{
		params:   params,
		levels:   make([][]fr.Element, params.Height+1),
		empty:    params.EmptyHashes(),
		nbLeaves: len(leaves),
	}

	t.levels[0] = hashLeaves(params.CRH, leaves)

	for l := 0; l < params.Height; l++ {
		cur := t.levels[l]
		next := make([]fr.Element, (len(cur)+1)/2)
		for i := range next {
			left := cur[2*i]
			right := t.empty[l]
			if 2*i+1 < len(cur) {
				right = cur[2*i+1]
			}
			next[i] = crh.Compress(params.CRH, left, right)
		}
		t.levels[l+1] = next
	}

	return t, nil
}

// hashLeaves digests the leaves with a worker pool. Pairwise combining is
// level-ordered in New, so only this embarrassingly parallel step is spread
// across cores.
func hashLeaves(params *crh.Parameters, leaves [][]byte) []fr.Element {
	digests := make([]fr.Element, len(leaves))

	numWorkers := runtime.NumCPU()
	if numWorkers > len(leaves) {
		numWorkers = len(leaves)
	}
	if numWorkers <= 1 {
		for i, leaf := range leaves {
			digests[i] = crh.Evaluate(params, leaf)
		}
		return digests
	}

	var wg sync.WaitGroup
	work := make(chan int, len(leaves))
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				digests[i] = crh.Evaluate(params, leaves[i])
			}
		}()
	}
	for i := range leaves {
		work <- i
	}
	close(work)
	wg.Wait()

	return digests
}

// Root returns the digest committing to the whole tree. Pure accessor.
func (t *Tree) Root() fr.Element {
	return t.node(t.params.Height, 0)
}

// NbLeaves returns the number of real leaves the tree was built from.
func (t *Tree) NbLeaves() int {
	return t.nbLeaves
}

// Params returns the shared parameters the tree was built with.
func (t *Tree) Params() *Parameters {
	return t.params
}

// LeafDigest returns the digest at the given leaf position, using the empty
// leaf digest beyond the real leaves.
func (t *Tree) LeafDigest(index int) fr.Element {
	return t.node(0, index)
}

// node returns the digest at (level, position), falling back to the
// empty-subtree hash for unoccupied positions.
func (t *Tree) node(level, pos int) fr.Element {
	if pos < len(t.levels[level]) {
		return t.levels[level][pos]
	}
	return t.empty[level]
}

// GenerateProof produces a membership proof for the leaf at index. The leaf
// bytes are required so that a caller cannot obtain a proof for an index
// while claiming different content than the tree actually commits to.
// The proof carries no reference to the tree and stays verifiable after the
// tree is gone.
func (t *Tree) GenerateProof(index int, leaf []byte) (*Proof, error) {
	if index < 0 || index >= t.nbLeaves {
		return nil, fmt.Errorf("leaf index %d out of bounds [0, %d)", index, t.nbLeaves)
	}
	if len(leaf) != LeafSize {
		return nil, fmt.Errorf("leaf has %d bytes, want %d", len(leaf), LeafSize)
	}
	digest := crh.Evaluate(t.params.CRH, leaf)
	if stored := t.levels[0][index]; !digest.Equal(&stored) {
		return nil, fmt.Errorf("claimed leaf does not match the stored leaf at index %d", index)
	}

	siblings := make([]fr.Element, t.params.Height)
	pos := index
	for l := 0; l < t.params.Height; l++ {
		siblings[l] = t.node(l, pos^1)
		pos >>= 1
	}

	return &Proof{Siblings: siblings, Index: uint64(index)}, nil
}

// Proof is a self-contained membership proof: the sibling digest at every
// level bottom-up, plus the leaf index. The direction bit at level l is
// (Index>>l)&1; bit 0 means the running node is the left child of its pair,
// so the sibling is hashed on the right.
type Proof struct {
	Siblings []fr.Element
	Index    uint64
}

// Verify recomputes a candidate root by folding the leaf digest upward
// through the recorded siblings and compares it to root. A mismatching root,
// sibling, or index yields false, never a panic. A proof whose sibling count
// disagrees with the parameters' height is malformed and panics: that is a
// caller contract violation, not a verification outcome.
func (p *Proof) Verify(params *Parameters, root fr.Element, leaf []byte) bool {
	if len(p.Siblings) != params.Height {
		panic(fmt.Sprintf("merkle: proof has %d siblings, parameters fix height %d", len(p.Siblings), params.Height))
	}
	if len(leaf) != LeafSize {
		panic(fmt.Sprintf("merkle: leaf has %d bytes, want %d", len(leaf), LeafSize))
	}

	cur := crh.Evaluate(params.CRH, leaf)
	for l, sibling := range p.Siblings {
		if (p.Index>>uint(l))&1 == 0 {
			cur = crh.Compress(params.CRH, cur, sibling)
		} else {
			cur = crh.Compress(params.CRH, sibling, cur)
		}
	}
	return cur.Equal(&root)
}
