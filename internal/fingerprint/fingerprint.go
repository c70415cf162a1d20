// Package fingerprint computes the content digest used to decide whether a
// normalized snapshot differs from its predecessor.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Size is the digest length in bytes.
const Size = sha256.Size

// ErrInvalid is returned by Parse for strings that are not a hex-encoded digest.
var ErrInvalid = errors.New("fingerprint: invalid digest")

// Fingerprint is the SHA-256 digest of a normalized text.
type Fingerprint [Size]byte

// Of returns the digest of the exact UTF-8 bytes of text.
func Of(text string) Fingerprint {
	return Fingerprint(sha256.Sum256([]byte(text)))
}

// Parse decodes the 64-character hex form produced by String.
func Parse(s string) (Fingerprint, error) {
	var fp Fingerprint
	if len(s) != hex.EncodedLen(Size) {
		return fp, fmt.Errorf("%w: length %d", ErrInvalid, len(s))
	}
	if _, err := hex.Decode(fp[:], []byte(s)); err != nil {
		return fp, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return fp, nil
}

// String returns the lowercase hex encoding.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 12 hex characters, for display only.
func (f Fingerprint) Short() string {
	return f.String()[:12]
}

// IsZero reports whether f is the zero value.
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// Equal reports whether both digests are identical.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f == other
}

// MarshalText implements encoding.TextMarshaler.
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Fingerprint) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
