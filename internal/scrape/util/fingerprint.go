package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintHexLen keeps the identifier short; 16 hex chars (64 bits)
// is plenty for the volumes a single-user engine sees.
const fingerprintHexLen = 16

// Fingerprint derives a stable identity for a listing from its title and
// employer. Inputs are lower-cased and trimmed first, so cosmetic case
// and whitespace differences map to the same value. Empty strings are
// valid input and hash like anything else.
func Fingerprint(title, employer string) string {
	normalized := strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(employer))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:fingerprintHexLen]
}
