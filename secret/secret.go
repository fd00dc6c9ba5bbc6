// Package secret holds credentials in a wipeable buffer that never prints its
// contents through fmt, encoding/json or zap.
package secret

import (
	"crypto/subtle"
	"fmt"
	"io"
	"unicode/utf8"
)

// Redacted is what a String prints instead of its contents.
const Redacted = "[REDACTED]"

// String is a secret character buffer. Clear overwrites every character with
// '\0' and keeps the length. The zero value is an empty secret.
type String struct {
	runes []rune
}

var _ io.Closer = (*String)(nil)

// New copies s into a new secret.
func New(s string) *String {
	return &String{runes: []rune(s)}
}

// FromBytes copies the UTF-8 bytes b into a new secret and zeroes b.
func FromBytes(b []byte) *String {
	s := &String{runes: make([]rune, 0, utf8.RuneCount(b))}
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		s.runes = append(s.runes, r)
		i += size
	}
	clear(b)
	return s
}

// Len returns the number of characters.
func (s *String) Len() int {
	if s == nil {
		return 0
	}
	return len(s.runes)
}

// At returns the character at index i.
func (s *String) At(i int) rune {
	return s.runes[i]
}

// IsEmpty reports whether the secret has no characters.
func (s *String) IsEmpty() bool {
	return s.Len() == 0
}

// Value returns the secret as a plain string.
func (s *String) Value() string {
	if s == nil {
		return ""
	}
	return string(s.runes)
}

// Bytes returns a UTF-8 copy of the secret. The caller owns the slice.
func (s *String) Bytes() []byte {
	if s == nil {
		return nil
	}
	b := make([]byte, 0, len(s.runes))
	for _, r := range s.runes {
		b = utf8.AppendRune(b, r)
	}
	return b
}

// Clear overwrites every character with '\0'.
func (s *String) Clear() {
	if s == nil {
		return
	}
	for i := range s.runes {
		s.runes[i] = 0
	}
}

// Close clears the secret.
func (s *String) Close() error {
	s.Clear()
	return nil
}

// Equal compares two secrets in constant time for equal lengths.
func (s *String) Equal(other *String) bool {
	a, b := s.Bytes(), other.Bytes()
	defer clear(a)
	defer clear(b)
	return subtle.ConstantTimeCompare(a, b) == 1
}

// String implements fmt.Stringer without revealing the secret.
func (s *String) String() string {
	return Redacted
}

// GoString implements fmt.GoStringer without revealing the secret.
func (s *String) GoString() string {
	return "secret.String(" + Redacted + ")"
}

// Format prints Redacted for every verb.
func (s *String) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('#') {
		_, _ = io.WriteString(f, s.GoString())
		return
	}
	_, _ = io.WriteString(f, Redacted)
}

// MarshalJSON encodes the secret as the redacted marker.
func (s *String) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Redacted + `"`), nil
}

// MarshalText encodes the redacted marker.
func (s *String) MarshalText() ([]byte, error) {
	return []byte(Redacted), nil
}

// UnmarshalText lets configuration loaders fill a secret from plain text.
func (s *String) UnmarshalText(text []byte) error {
	s.runes = []rune(string(text))
	return nil
}
