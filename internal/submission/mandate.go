package submission

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// MandateReference derives the direct debit mandate reference from the
// submission time and the applicant's email. Two submissions for the same
// email within the same second produce the same reference.
func MandateReference(email string, at time.Time) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "M" + at.UTC().Format("20060102150405") + "-" + strings.ToUpper(hex.EncodeToString(sum[:4]))
}
