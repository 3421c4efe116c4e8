// Package field converts between native witness values and circuit variable
// assignments: leaf bytes become per-byte variables and digests become
// big.Int values the frontend accepts.
package field

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/frontend"
)

// BytesToVars assigns one variable per byte, in order.
func BytesToVars(data []byte) []frontend.Variable {
	vars := make([]frontend.Variable, len(data))
	for i, b := range data {
		vars[i] = int(b)
	}
	return vars
}

// DigestToVar converts a digest into an assignable value.
func DigestToVar(d fr.Element) *big.Int {
	v := new(big.Int)
	d.BigInt(v)
	return v
}

// DigestsToVars converts a digest slice into assignable values, in order.
func DigestsToVars(ds []fr.Element) []frontend.Variable {
	vars := make([]frontend.Variable, len(ds))
	for i := range ds {
		vars[i] = DigestToVar(ds[i])
	}
	return vars
}

// VarsToBytes converts per-byte variable assignments back into bytes. Only
// assignments produced by BytesToVars (or equivalent small values) are
// accepted; anything outside a byte's range is a caller bug.
func VarsToBytes(vars []frontend.Variable) ([]byte, error) {
	out := make([]byte, len(vars))
	for i, v := range vars {
		var value *big.Int
		switch t := v.(type) {
		case *big.Int:
			value = t
		case big.Int:
			value = &t
		case int:
			value = big.NewInt(int64(t))
		default:
			return nil, fmt.Errorf("variable %d holds %T, not a byte assignment", i, v)
		}
		if value.Sign() < 0 || value.BitLen() > 8 {
			return nil, fmt.Errorf("variable %d value %s outside byte range", i, value)
		}
		out[i] = byte(value.Uint64())
	}
	return out, nil
}
