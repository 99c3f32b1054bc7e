package attest

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/emulated/sw_emulated"
	"github.com/consensys/gnark/std/math/emulated"
	"github.com/consensys/gnark/std/signature/ecdsa"

	"github.com/zkattest/zkattest/common"
)

// verifyIssuer checks the intermediate's P-384 signature over the
// certificate body. The anchor coordinates are circuit constants, so a
// proof under a different intermediate cannot verify against this
// circuit's keys. The proving profile fixes the body digest to SHA-256;
// certificates signed ecdsa-with-SHA384 verify classically but are not
// provable under this profile.
func (c *Circuit) verifyIssuer(api frontend.API) error {
	digest, err := common.SHA256(api, c.SignedBody)
	if err != nil {
		return err
	}
	mHash, err := bytesToElement[emulated.P384Fr](api, digest)
	if err != nil {
		return err
	}

	anchor := ecdsa.PublicKey[emulated.P384Fp, emulated.P384Fr]{
		X: emulated.ValueOf[emulated.P384Fp](c.anchorX),
		Y: emulated.ValueOf[emulated.P384Fp](c.anchorY),
	}
	sig := ecdsa.Signature[emulated.P384Fr]{
		R: c.IssuerSigR,
		S: c.IssuerSigS,
	}

	anchor.Verify(api, sw_emulated.GetCurveParams[emulated.P384Fp](), mHash, &sig)
	return nil
}
