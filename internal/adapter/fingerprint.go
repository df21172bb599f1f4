package adapter

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fingerprinter derives a conversation's content identity from its
// rendered display name. The same conversation must fingerprint
// identically across reloads, so the input is normalized before hashing.
type Fingerprinter interface {
	Fingerprint(displayName string) string
}

// NameFingerprinter is the default Fingerprinter. It hashes the display
// name after NFKC normalization, case folding, and whitespace collapsing,
// which keeps the identity stable when the host renders the same name
// with different composition forms or decorative spacing.
//
// Identity follows the display text, so a conversation rename produces a
// new fingerprint and orphans existing annotations. Display text is the
// only identity the host exposes.
type NameFingerprinter struct{}

// NewNameFingerprinter creates the default fingerprinter.
func NewNameFingerprinter() *NameFingerprinter {
	return &NameFingerprinter{}
}

// Fingerprint returns a hex digest of the normalized display name.
// Safe for concurrent use; a cases.Caser is stateful, so one is built per
// call rather than shared.
func (*NameFingerprinter) Fingerprint(displayName string) string {
	normalized := norm.NFKC.String(displayName)
	normalized = cases.Fold().String(normalized)
	normalized = strings.Join(strings.Fields(normalized), " ")

	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}
