package entity

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewInvalidCode(2))

	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.NotErrorIs(t, err, ErrExpired)

	var verr *Error
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, 2, verr.AttemptsRemaining)
}

func TestError_Message(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")

	assert.Equal(t, "verification: cooldown active, retry in 42s", NewCooldownActive(42).Error())
	assert.Equal(t, "verification: invalid code, 1 attempts remaining", NewInvalidCode(1).Error())
	assert.Equal(t, "verification: STORAGE_UNAVAILABLE: dial tcp: i/o timeout", NewStorageUnavailable(cause).Error())
	assert.Equal(t, "verification: EXPIRED", ErrExpired.Error())
	assert.ErrorIs(t, NewDeliveryFailed(cause), cause)
}

func TestVerificationRequest(t *testing.T) {
	issued := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	r := VerificationRequest{IssuedAt: issued, ExpiresAt: issued.Add(15 * time.Minute), RemainingAttempts: 1}

	assert.False(t, r.Expired(issued.Add(15*time.Minute)))
	assert.True(t, r.Expired(issued.Add(15*time.Minute+time.Nanosecond)))
	assert.False(t, r.Exhausted())

	r.RemainingAttempts = 0
	assert.True(t, r.Exhausted())

	assert.Equal(t, "a@b.com", NormalizeRecipient("  A@B.com "))
}
