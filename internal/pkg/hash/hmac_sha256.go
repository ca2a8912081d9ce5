package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACSHA256 digests codes with the current key and still accepts digests
// made with retired keys, so rotating the key does not void pending codes.
type HMACSHA256 struct {
	keys [][]byte
}

// NewHMACSHA256 uses current for new digests. retired keys are only tried
// by Verify, newest first.
func NewHMACSHA256(current string, retired ...string) *HMACSHA256 {
	h := &HMACSHA256{keys: [][]byte{[]byte(current)}}
	for _, k := range retired {
		if k != "" && k != current {
			h.keys = append(h.keys, []byte(k))
		}
	}
	return h
}

// Hash returns the hex encoded digest of str under the current key.
func (h *HMACSHA256) Hash(str string) ([]byte, error) {
	return digest(h.keys[0], str), nil
}

// Verify reports whether hashed is the digest of str under any known key.
func (h *HMACSHA256) Verify(hashed, str string) bool {
	ok := false
	for _, key := range h.keys {
		// no early return: all keys are compared
		if hmac.Equal([]byte(hashed), digest(key, str)) {
			ok = true
		}
	}
	return ok
}

func digest(key []byte, str string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(str))
	return hex.AppendEncode(nil, mac.Sum(nil))
}
