package merkle

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/MuriData/muri-merkle/pkg/crh"
)

// ---------------------------------------------------------------------------
// Parameters serialization
// ---------------------------------------------------------------------------

// Save writes the parameters (height plus CRH setup) to w. Provers and
// verifiers must share a parameters file produced this way.
func (p *Parameters) Save(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, uint32(p.Height)); err != nil {
		return fmt.Errorf("write height: %w", err)
	}
	if _, err := p.CRH.WriteTo(w); err != nil {
		return fmt.Errorf("write crh parameters: %w", err)
	}
	return nil
}

// ReadParameters reads parameters written by Save.
func ReadParameters(r io.Reader) (*Parameters, error) {
	var height uint32
	if err := binary.Read(r, binary.BigEndian, &height); err != nil {
		return nil, fmt.Errorf("read height: %w", err)
	}
	if height < 1 || height > MaxHeight {
		return nil, fmt.Errorf("stored height %d outside supported range [1, %d]", height, MaxHeight)
	}
	crhParams, err := crh.ReadParameters(r)
	if err != nil {
		return nil, fmt.Errorf("read crh parameters: %w", err)
	}
	return &Parameters{CRH: crhParams, Height: int(height)}, nil
}

// ---------------------------------------------------------------------------
// Proof serialization
// ---------------------------------------------------------------------------
//
// Format:
//   uint32(height) | uint64(index)
//   For each level 0..height-1: [32]byte(sibling as big-endian fr.Element)
//
// A storage or networking layer can persist or transmit this without
// interpreting its contents.

// WriteTo serializes the proof to w in a deterministic binary format.
func (p *Proof) WriteTo(w io.Writer) (int64, error) {
	var n int64
	if err := binary.Write(w, binary.BigEndian, uint32(len(p.Siblings))); err != nil {
		return n, fmt.Errorf("write height: %w", err)
	}
	n += 4
	if err := binary.Write(w, binary.BigEndian, p.Index); err != nil {
		return n, fmt.Errorf("write index: %w", err)
	}
	n += 8

	for l := range p.Siblings {
		b := p.Siblings[l].Bytes()
		if _, err := w.Write(b[:]); err != nil {
			return n, fmt.Errorf("write sibling %d: %w", l, err)
		}
		n += int64(len(b))
	}
	return n, nil
}

// ReadProof deserializes a proof written by WriteTo.
func ReadProof(r io.Reader) (*Proof, error) {
	var height uint32
	if err := binary.Read(r, binary.BigEndian, &height); err != nil {
		return nil, fmt.Errorf("read height: %w", err)
	}
	if height == 0 || height > MaxHeight {
		return nil, fmt.Errorf("proof height %d outside supported range [1, %d]", height, MaxHeight)
	}

	p := &Proof{Siblings: make([]fr.Element, height)}
	if err := binary.Read(r, binary.BigEndian, &p.Index); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	var buf [fr.Bytes]byte
	for l := 0; l < int(height); l++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("read sibling %d: %w", l, err)
		}
		p.Siblings[l].SetBytes(buf[:])
	}
	return p, nil
}

// ---------------------------------------------------------------------------
// Tree serialization
// ---------------------------------------------------------------------------
//
// Format:
//   uint32(height) | uint32(nbLeaves)
//   For each level 0..height: uint32(count) | count x [32]byte(digest)
//
// The empty-subtree hashes are not stored; they are recomputed from the
// parameters on load.

// Save writes the tree to w in a deterministic binary format.
func (t *Tree) Save(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, uint32(t.params.Height)); err != nil {
		return fmt.Errorf("write height: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(t.nbLeaves)); err != nil {
		return fmt.Errorf("write leaf count: %w", err)
	}

	for l := 0; l <= t.params.Height; l++ {
		level := t.levels[l]
		if err := binary.Write(w, binary.BigEndian, uint32(len(level))); err != nil {
			return fmt.Errorf("write level %d count: %w", l, err)
		}
		for i := range level {
			b := level[i].Bytes()
			if _, err := w.Write(b[:]); err != nil {
				return fmt.Errorf("write level %d digest %d: %w", l, i, err)
			}
		}
	}
	return nil
}

// Load reads a tree written by Save. The parameters must be the ones the
// tree was built with; the stored height must match params.Height.
func Load(r io.Reader, params *Parameters) (*Tree, error) {
	var height, nbLeaves uint32
	if err := binary.Read(r, binary.BigEndian, &height); err != nil {
		return nil, fmt.Errorf("read height: %w", err)
	}
	if int(height) != params.Height {
		return nil, fmt.Errorf("stored height %d does not match parameters height %d", height, params.Height)
	}
	if err := binary.Read(r, binary.BigEndian, &nbLeaves); err != nil {
		return nil, fmt.Errorf("read leaf count: %w", err)
	}

	t := &Tree{
		params:   params,
		levels:   make([][]fr.Element, height+1),
		empty:    params.EmptyHashes(),
		nbLeaves: int(nbLeaves),
	}

	var buf [fr.Bytes]byte
	expect := int(nbLeaves)
	for l := 0; l <= int(height); l++ {
		var count uint32
		if err := binary.Read(r, binary.BigEndian, &count); err != nil {
			return nil, fmt.Errorf("read level %d count: %w", l, err)
		}
		if int(count) != expect {
			return nil, fmt.Errorf("level %d has %d digests, want %d", l, count, expect)
		}
		level := make([]fr.Element, count)
		for i := 0; i < int(count); i++ {
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return nil, fmt.Errorf("read level %d digest %d: %w", l, i, err)
			}
			level[i].SetBytes(buf[:])
		}
		t.levels[l] = level
		expect = (expect + 1) / 2
	}
	return t, nil
}
