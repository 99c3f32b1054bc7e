package attest

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/math/emulated"
	"github.com/consensys/gnark/std/math/uints"

	"github.com/zkattest/zkattest/common"
)

// DER prefix of the provider claim OIDs; the byte after it is the claim
// number.
var claimOIDPrefix = []byte{0x06, 0x0a, 0x2b, 0x06, 0x01, 0x04, 0x01, 0x83, 0xbf, 0x30, 0x01}

const (
	claimCommit     = 0x03
	claimRepository = 0x05

	// Byte distances from the claim OID tag: OCTET STRING wrapper, inner
	// UTF8String, then the value.
	claimOctetOff    = 12
	claimOctetLenOff = 13
	claimStringOff   = 14
	claimValueLenOff = 15
	claimValueOff    = 16
)

// verifySubjectKey proves the subject key the signature check used is the
// one inside the signed certificate body, by walking the body structure
// to the SubjectPublicKeyInfo and comparing the point coordinates.
func (c *Circuit) verifySubjectKey(api frontend.API) error {
	pos := navigateToSubjectKey(api, c.SignedBody)

	// BIT STRING: tag, length 0x42, zero unused bits, uncompressed marker
	for i, want := range []int{0x03, 0x42, 0x00, 0x04} {
		b := readByteAt(api, c.SignedBody, api.Add(pos, i))
		api.AssertIsEqual(b.Val, want)
	}

	keyStart := api.Add(pos, 4)
	xBytes := make([]uints.U8, 32)
	yBytes := make([]uints.U8, 32)
	for i := 0; i < 32; i++ {
		xBytes[i] = readByteAt(api, c.SignedBody, api.Add(keyStart, i))
		yBytes[i] = readByteAt(api, c.SignedBody, api.Add(keyStart, 32+i))
	}

	fp, err := emulated.NewField[emulated.P256Fp](api)
	if err != nil {
		return err
	}
	x, err := bytesToElement[emulated.P256Fp](api, xBytes)
	if err != nil {
		return err
	}
	y, err := bytesToElement[emulated.P256Fp](api, yBytes)
	if err != nil {
		return err
	}
	fp.AssertIsEqual(x, &c.PubKeyX)
	fp.AssertIsEqual(y, &c.PubKeyY)
	return nil
}

// checkClaims re-reads every committed value from the signed buffers and
// binds the public commitment words to them.
func (c *Circuit) checkClaims(api frontend.API, uapi *uints.BinaryField[uints.U32]) error {
	// Commit claim: hex text inside the certificate body
	c.assertClaimAt(api, c.CommitClaimOffset, claimCommit)
	commitLenByte := readByteAt(api, c.SignedBody, api.Add(c.CommitClaimOffset, claimValueLenOff))
	api.AssertIsEqual(commitLenByte.Val, 40)
	commitBytes := c.readHexAt(api, c.SignedBody, api.Add(c.CommitClaimOffset, claimValueOff), 20)
	api.AssertIsEqual(packWord(api, commitBytes), c.Commitments[4])

	// Repository claim: its value must be the repo name buffer
	repoLen := len(c.RepoName)
	c.assertClaimAt(api, c.RepoClaimOffset, claimRepository)
	repoLenByte := readByteAt(api, c.SignedBody, api.Add(c.RepoClaimOffset, claimValueLenOff))
	api.AssertIsEqual(repoLenByte.Val, repoLen)
	valueStart := api.Add(c.RepoClaimOffset, claimValueOff)
	for i := 0; i < repoLen; i++ {
		b := readByteAt(api, c.SignedBody, api.Add(valueStart, i))
		uapi.ByteAssertEq(b, c.RepoName[i])
	}

	// Repo digest commitment over the repo name buffer
	repoDigest, err := common.SHA256(api, c.RepoName)
	if err != nil {
		return err
	}
	api.AssertIsEqual(packWord(api, repoDigest[:16]), c.Commitments[2])
	api.AssertIsEqual(packWord(api, repoDigest[16:]), c.Commitments[3])

	// Artifact digest: hex text inside the signed envelope
	artifactBytes := c.readHexAt(api, c.Envelope, c.ArtifactOffset, 32)
	api.AssertIsEqual(packWord(api, artifactBytes[:16]), c.Commitments[0])
	api.AssertIsEqual(packWord(api, artifactBytes[16:]), c.Commitments[1])

	return nil
}

// assertClaimAt proves that offset points at the claim OID with the given
// number, wrapped the way the provider encodes claim extensions.
func (c *Circuit) assertClaimAt(api frontend.API, offset frontend.Variable, number byte) {
	for i, want := range claimOIDPrefix {
		b := readByteAt(api, c.SignedBody, api.Add(offset, i))
		api.AssertIsEqual(b.Val, int(want))
	}
	numByte := readByteAt(api, c.SignedBody, api.Add(offset, len(claimOIDPrefix)))
	api.AssertIsEqual(numByte.Val, int(number))

	octet := readByteAt(api, c.SignedBody, api.Add(offset, claimOctetOff))
	api.AssertIsEqual(octet.Val, 0x04)
	str := readByteAt(api, c.SignedBody, api.Add(offset, claimStringOff))
	api.AssertIsEqual(str.Val, 0x0c)

	// The wrapper length is the value length plus the inner header
	octetLen := readByteAt(api, c.SignedBody, api.Add(offset, claimOctetLenOff))
	valueLen := readByteAt(api, c.SignedBody, api.Add(offset, claimValueLenOff))
	api.AssertIsEqual(octetLen.Val, api.Add(valueLen.Val, 2))
}

// readHexAt reads 2*n lowercase hex characters at a variable offset and
// returns the n decoded bytes.
func (c *Circuit) readHexAt(api frontend.API, data []uints.U8, offset frontend.Variable, n int) []uints.U8 {
	out := make([]uints.U8, n)
	for i := 0; i < n; i++ {
		hi := hexNibble(api, readByteAt(api, data, api.Add(offset, 2*i)))
		lo := hexNibble(api, readByteAt(api, data, api.Add(offset, 2*i+1)))
		out[i] = uints.U8{Val: api.Add(api.Mul(hi, 16), lo)}
	}
	return out
}

// hexNibble maps one lowercase hex character to its value. Bit 6 of the
// ASCII code separates digits from letters.
func hexNibble(api frontend.API, ch uints.U8) frontend.Variable {
	bits := api.ToBinary(ch.Val, 8)
	isLetter := bits[6]
	nibble := api.Sub(ch.Val, api.Add(48, api.Mul(isLetter, 39)))
	api.AssertIsLessOrEqual(nibble, 15)
	return nibble
}

// navigateToSubjectKey walks the certificate body structure to the BIT
// STRING holding the subject public key: body header, optional version,
// serial, signature algorithm, issuer, validity, subject, then the
// SubjectPublicKeyInfo with its AlgorithmIdentifier skipped.
func navigateToSubjectKey(api frontend.API, body []uints.U8) frontend.Variable {
	index := frontend.Variable(0)

	tag := readByteAt(api, body, index)
	api.AssertIsEqual(tag.Val, 0x30)
	index = api.Add(index, 1)
	_, lengthBytes := readDERLength(api, body, index)
	index = api.Add(index, lengthBytes)

	// Version [0] EXPLICIT, optional
	tag = readByteAt(api, body, index)
	hasVersion := api.IsZero(api.Sub(tag.Val, 0xA0))
	skip := api.Select(hasVersion, skipElement(api, body, index), 0)
	index = api.Add(index, skip)

	// Serial number
	tag = readByteAt(api, body, index)
	api.AssertIsEqual(tag.Val, 0x02)
	index = api.Add(index, skipElement(api, body, index))

	// Signature algorithm, issuer, validity, subject
	for i := 0; i < 4; i++ {
		tag = readByteAt(api, body, index)
		api.AssertIsEqual(tag.Val, 0x30)
		index = api.Add(index, skipElement(api, body, index))
	}

	// SubjectPublicKeyInfo: enter it, skip the AlgorithmIdentifier
	tag = readByteAt(api, body, index)
	api.AssertIsEqual(tag.Val, 0x30)
	index = api.Add(index, 1)
	_, lengthBytes = readDERLength(api, body, index)
	index = api.Add(index, lengthBytes)
	index = api.Add(index, skipElement(api, body, index))

	return index
}

// readDERLength reads a DER length at index and returns the content
// length and the bytes the length field occupies. Long form is read up
// to two length bytes, enough for any body that fits the capacities.
func readDERLength(api frontend.API, data []uints.U8, index frontend.Variable) (frontend.Variable, frontend.Variable) {
	lengthByte := readByteAt(api, data, index)

	bits := api.ToBinary(lengthByte.Val, 8)
	isShortForm := api.IsZero(bits[7])

	numLengthBytes := api.Sub(lengthByte.Val, 0x80)
	byte1 := readByteAt(api, data, api.Add(index, 1))
	byte2 := readByteAt(api, data, api.Add(index, 2))

	isOneByte := api.IsZero(api.Sub(numLengthBytes, 1))
	longLength := api.Select(isOneByte, byte1.Val, api.Add(api.Mul(byte1.Val, 256), byte2.Val))
	longBytes := api.Add(numLengthBytes, 1)

	length := api.Select(isShortForm, lengthByte.Val, longLength)
	bytesUsed := api.Select(isShortForm, 1, longBytes)
	return length, bytesUsed
}

// skipElement returns the full size of the DER element at index.
func skipElement(api frontend.API, data []uints.U8, index frontend.Variable) frontend.Variable {
	contentLength, lengthBytes := readDERLength(api, data, api.Add(index, 1))
	return api.Add(api.Add(1, lengthBytes), contentLength)
}

// readByteAt reads a byte at a variable index.
func readByteAt(api frontend.API, data []uints.U8, index frontend.Variable) uints.U8 {
	result := uints.NewU8(0)
	for i := range data {
		isMatch := api.IsZero(api.Sub(index, i))
		result.Val = api.Select(isMatch, data[i].Val, result.Val)
	}
	return result
}
