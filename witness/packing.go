package witness

import "math/big"

// PublicWordCount is the number of field elements in the packed public
// commitment.
const PublicWordCount = 5

// PublicWords packs the three commitments into the canonical five-word
// public input: artifact digest high and low halves, repo digest high and
// low halves, then the commit as one word. Each half is 16 big-endian
// bytes, well under the scalar field size.
func (w *Witness) PublicWords() [PublicWordCount]*big.Int {
	return [PublicWordCount]*big.Int{
		new(big.Int).SetBytes(w.ArtifactDigest[:16]),
		new(big.Int).SetBytes(w.ArtifactDigest[16:]),
		new(big.Int).SetBytes(w.RepoDigest[:16]),
		new(big.Int).SetBytes(w.RepoDigest[16:]),
		new(big.Int).SetBytes(w.Commit[:]),
	}
}
