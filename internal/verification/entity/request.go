package entity

import (
	"errors"
	"strings"
	"time"
)

// ErrRequestExpired is returned by a store read that found, and removed, an
// expired request.
var ErrRequestExpired = errors.New("verification request expired")

// VerificationRequest is the single pending code issuance for a recipient.
type VerificationRequest struct {
	ID                string
	Recipient         string
	CodeHash          string
	IssuedAt          time.Time
	ExpiresAt         time.Time
	RemainingAttempts int
}

// Expired reports whether the request can no longer be accepted at now.
func (r VerificationRequest) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Exhausted reports whether no attempts are left.
func (r VerificationRequest) Exhausted() bool {
	return r.RemainingAttempts <= 0
}

// NormalizeRecipient trims and lower-cases an email address so every store
// keys the same recipient identically.
func NormalizeRecipient(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// RecipientStatus is the verification state of a recipient.
type RecipientStatus struct {
	Recipient  string
	Verified   bool
	VerifiedAt *time.Time
}
