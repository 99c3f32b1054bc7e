package common

import "github.com/consensys/gnark/std/math/uints"

// BytesToU8Array converts raw bytes to the circuit byte representation.
func BytesToU8Array(data []byte) []uints.U8 {
	result := make([]uints.U8, len(data))
	for i, b := range data {
		result[i] = uints.NewU8(b)
	}
	return result
}
