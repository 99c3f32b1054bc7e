package attest

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/math/emulated"
	"github.com/consensys/gnark/std/math/uints"
)

// bytesToElement packs a big-endian byte digest into an emulated field
// element, limb by limb. The emulated field stores 64-bit limbs in
// little-endian order, so bytes are consumed from the end.
func bytesToElement[T emulated.FieldParams](api frontend.API, data []uints.U8) (*emulated.Element[T], error) {
	field, err := emulated.NewField[T](api)
	if err != nil {
		return nil, err
	}

	var params T
	nbLimbs := int(params.NbLimbs())
	bytesPerLimb := int(params.BitsPerLimb()) / 8

	limbs := make([]frontend.Variable, nbLimbs)
	for i := 0; i < nbLimbs; i++ {
		var limb frontend.Variable = 0
		for j := 0; j < bytesPerLimb; j++ {
			byteIdx := len(data) - 1 - (i*bytesPerLimb + j)
			if byteIdx < 0 {
				continue
			}
			shift := new(big.Int).Lsh(big.NewInt(1), uint(8*j))
			limb = api.Add(limb, api.Mul(data[byteIdx].Val, shift))
		}
		limbs[i] = limb
	}

	return field.Reduce(&emulated.Element[T]{Limbs: limbs}), nil
}

// packWord folds big-endian bytes into a single field variable.
func packWord(api frontend.API, data []uints.U8) frontend.Variable {
	result := frontend.Variable(0)
	for _, b := range data {
		result = api.Add(api.Mul(result, 256), b.Val)
	}
	return result
}
