package distribution

import (
	"crypto/sha256"
	"encoding/binary"
)

// PageDigest hashes the canonical encoding of a page's ordered investor
// references: a u32 count followed by the fixed-width triple
// (investor, stream, payout account) for each entry. Two pages carry
// the same digest iff they reference the same investors in the same
// order, which is what idempotent-retry detection needs.
func PageDigest(refs []InvestorRef) []byte {
	h := sha256.New()

	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(refs)))
	h.Write(count[:])

	for _, ref := range refs {
		h.Write(ref.Investor.Bytes())
		h.Write(ref.Stream.Bytes())
		h.Write(ref.PayoutAccount.Bytes())
	}

	return h.Sum(nil)
}
