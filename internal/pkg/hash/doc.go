// Package hash provides keyed digests for short-lived secrets.
//
// One-time codes are stored only as digests; a submitted code is checked by
// recomputing its digest and comparing in constant time.
package hash

// Hash computes and verifies digests of secret strings.
type Hash interface {
	Hash(str string) ([]byte, error)
	Verify(hashed, str string) bool
}
