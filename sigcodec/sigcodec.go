// Package sigcodec decodes DER ECDSA signatures into the fixed-width,
// low-s form the proving circuit expects.
package sigcodec

import (
	"crypto/elliptic"
	"errors"
	"math/big"

	"github.com/zkattest/zkattest/der"
)

// ErrInvalidSignatureEncoding is returned when a signature does not decode
// as SEQUENCE { INTEGER r, INTEGER s } with components that fit the curve.
var ErrInvalidSignatureEncoding = errors.New("invalid signature encoding")

// Curve carries the parameters the codec needs: component width in bytes
// and the group order for low-s normalization.
type Curve struct {
	Name    string
	ByteLen int
	Order   *big.Int
}

var (
	// P256 is the leaf signing curve (32-byte components).
	P256 = Curve{Name: "P-256", ByteLen: 32, Order: elliptic.P256().Params().N}
	// P384 is the issuer signing curve (48-byte components).
	P384 = Curve{Name: "P-384", ByteLen: 48, Order: elliptic.P384().Params().N}
)

// HalfOrder returns order/2, the boundary for low-s form.
func (c Curve) HalfOrder() *big.Int {
	return new(big.Int).Rsh(c.Order, 1)
}

// Decode parses sig as SEQUENCE { INTEGER r, INTEGER s } and returns both
// components as fixed-width big-endian byte arrays of the curve's width,
// with s normalized to low form (s <= order/2).
//
// A single leading zero byte on a component is stripped; it is how DER
// keeps a high leading bit from being read as a sign bit. A component that
// is still wider than the curve after stripping is rejected.
func Decode(sig []byte, curve Curve) (r, s []byte, err error) {
	if len(sig) == 0 || sig[0] != 0x30 {
		return nil, nil, ErrInvalidSignatureEncoding
	}

	inner, err := der.Enter(sig, 0)
	if err != nil {
		return nil, nil, ErrInvalidSignatureEncoding
	}

	rInt, next, err := readInteger(sig, inner, curve)
	if err != nil {
		return nil, nil, err
	}
	sInt, _, err := readInteger(sig, next, curve)
	if err != nil {
		return nil, nil, err
	}

	sInt = NormalizeS(sInt, curve)

	return FixedWidth(rInt, curve.ByteLen), FixedWidth(sInt, curve.ByteLen), nil
}

// NormalizeS maps s to its low-form equivalent: if s > order/2 the result
// is order - s, otherwise s is returned unchanged. Idempotent.
func NormalizeS(s *big.Int, curve Curve) *big.Int {
	if s.Cmp(curve.HalfOrder()) > 0 {
		return new(big.Int).Sub(curve.Order, s)
	}
	return s
}

// FixedWidth left-pads the big-endian encoding of v with zero bytes to the
// given width.
func FixedWidth(v *big.Int, width int) []byte {
	out := make([]byte, width)
	v.FillBytes(out)
	return out
}

// readInteger reads one INTEGER component at off and returns its value and
// the offset of the following element.
func readInteger(sig []byte, off int, curve Curve) (*big.Int, int, error) {
	if off >= len(sig) || sig[off] != 0x02 {
		return nil, 0, ErrInvalidSignatureEncoding
	}

	raw, err := der.Content(sig, off)
	if err != nil {
		return nil, 0, ErrInvalidSignatureEncoding
	}
	next, err := der.Skip(sig, off)
	if err != nil {
		return nil, 0, ErrInvalidSignatureEncoding
	}

	if len(raw) == 0 {
		return nil, 0, ErrInvalidSignatureEncoding
	}
	// Strip the sign-padding zero byte when present
	if raw[0] == 0x00 && len(raw) > 1 {
		raw = raw[1:]
	}
	if len(raw) > curve.ByteLen {
		return nil, 0, ErrInvalidSignatureEncoding
	}

	return new(big.Int).SetBytes(raw), next, nil
}
