// Package extid generates human-facing external identifiers like PUR-8F3K2QW9TB.
//
// Codes are random, so uniqueness is not guaranteed at generation time: callers
// insert the candidate and regenerate on a unique violation of the ext_id
// constraint. With a 10-character code over a 31-symbol alphabet the expected
// number of attempts is ~1.
package extid

import (
	"crypto/rand"
	"fmt"
)

// Kind selects the identifier prefix.
type Kind string

const (
	KindAccount  Kind = "ACC"
	KindListing  Kind = "SRC"
	KindPurchase Kind = "PUR"
	KindPayment  Kind = "PAY"
	KindReview   Kind = "REV"
)

const codeLen = 10

// alphabet omits 0/O/1/I/L to keep codes readable over the phone.
const alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// New returns a fresh candidate identifier for the given kind.
func New(kind Kind) string {
	var buf [codeLen]byte
	// rand.Read on crypto/rand never fails on supported platforms.
	_, _ = rand.Read(buf[:])

	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}

	return fmt.Sprintf("%s-%s", kind, buf[:])
}
