package attest

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/emulated/sw_emulated"
	"github.com/consensys/gnark/std/math/emulated"
	"github.com/consensys/gnark/std/signature/ecdsa"

	"github.com/zkattest/zkattest/common"
)

// verifyEnvelope checks the leaf signature over the pre-authentication
// encoding with the certificate's subject key.
func (c *Circuit) verifyEnvelope(api frontend.API) error {
	digest, err := common.SHA256(api, c.Envelope)
	if err != nil {
		return err
	}
	mHash, err := bytesToElement[emulated.P256Fr](api, digest)
	if err != nil {
		return err
	}

	pub := ecdsa.PublicKey[emulated.P256Fp, emulated.P256Fr]{
		X: c.PubKeyX,
		Y: c.PubKeyY,
	}
	sig := ecdsa.Signature[emulated.P256Fr]{
		R: c.LeafSigR,
		S: c.LeafSigS,
	}

	pub.Verify(api, sw_emulated.GetCurveParams[emulated.P256Fp](), mHash, &sig)
	return nil
}
