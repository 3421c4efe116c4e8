package crh

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
)

// Serialization format:
//
//	uint32(NumWindows) | uint32(WindowSize)
//	For each window: [32]byte(X) | [32]byte(Y) of the window generator
//
// Only the window generators are stored; the per-bit doubling tables are
// recomputed on load.

// WriteTo serializes the parameters to w in a deterministic binary format.
func (p *Parameters) WriteTo(w io.Writer) (int64, error) {
	var n int64
	if err := binary.Write(w, binary.BigEndian, uint32(NumWindows)); err != nil {
		return n, fmt.Errorf("write window count: %w", err)
	}
	n += 4
	if err := binary.Write(w, binary.BigEndian, uint32(WindowSize)); err != nil {
		return n, fmt.Errorf("write window size: %w", err)
	}
	n += 4

	for i := 0; i < NumWindows; i++ {
		g := p.Bases[i*WindowSize]
		xb := g.X.Bytes()
		yb := g.Y.Bytes()
		if _, err := w.Write(xb[:]); err != nil {
			return n, fmt.Errorf("write generator %d: %w", i, err)
		}
		n += int64(len(xb))
		if _, err := w.Write(yb[:]); err != nil {
			return n, fmt.Errorf("write generator %d: %w", i, err)
		}
		n += int64(len(yb))
	}
	return n, nil
}

// ReadParameters deserializes parameters written by WriteTo and rebuilds the
// per-bit doubling tables.
func ReadParameters(r io.Reader) (*Parameters, error) {
	var windows, size uint32
	if err := binary.Read(r, binary.BigEndian, &windows); err != nil {
		return nil, fmt.Errorf("read window count: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return nil, fmt.Errorf("read window size: %w", err)
	}
	if windows != NumWindows || size != WindowSize {
		return nil, fmt.Errorf("window layout %dx%d does not match compiled layout %dx%d",
			windows, size, NumWindows, WindowSize)
	}

	p := &Parameters{}
	var buf [fr.Bytes]byte
	for w := 0; w < NumWindows; w++ {
		var g twistededwards.PointAffine
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("read generator %d: %w", w, err)
		}
		g.X.SetBytes(buf[:])
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("read generator %d: %w", w, err)
		}
		g.Y.SetBytes(buf[:])
		if !g.IsOnCurve() {
			return nil, fmt.Errorf("generator %d is not on the curve", w)
		}

		p.Bases[w*WindowSize] = g
		for k := 1; k < WindowSize; k++ {
			p.Bases[w*WindowSize+k].Double(&p.Bases[w*WindowSize+k-1])
		}
	}
	return p, nil
}
