// Package key derives deterministic cache keys from raw message content.
//
// HL7 feeds deliver the same message with incidental formatting differences:
// carriage-return segment separators from one interface engine, CRLF from
// another, trailing blank lines from file drops. Key derivation normalizes
// those away so semantically identical messages share a cache slot.
package key

import (
	"crypto/sha256"
	"encoding/hex"
)

// Size is the length of a derived key in hex characters.
const Size = sha256.Size * 2

// Normalize rewrites raw message bytes into canonical form: CR and CRLF
// become LF, runs of LF collapse to a single LF, and leading/trailing
// whitespace is trimmed. Normalize never fails and always returns a new
// slice.
func Normalize(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		if b == '\r' {
			// CRLF counts as one newline.
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
			b = '\n'
		}
		if b == '\n' && len(out) > 0 && out[len(out)-1] == '\n' {
			continue
		}
		out = append(out, b)
	}
	return trimSpace(out)
}

// Derive returns the hex-encoded SHA-256 digest of the normalized input.
// Identical messages modulo line-ending style always map to the same key.
func Derive(raw []byte) string {
	sum := sha256.Sum256(Normalize(raw))
	return hex.EncodeToString(sum[:])
}

// Valid reports whether s looks like a derived key: exactly Size lowercase
// hex characters. Used to filter foreign files out of the disk directory.
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func trimSpace(b []byte) []byte {
	start := 0
	for start < len(b) && isSpace(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
