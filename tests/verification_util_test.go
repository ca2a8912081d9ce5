package tests

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/clock"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/jwt"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/uid"
)

type requestCodeData struct {
	RequestID         string    `json:"request_id"`
	Email             string    `json:"email"`
	ExpiresAt         time.Time `json:"expires_at"`
	ResendAvailableAt time.Time `json:"resend_available_at"`
	MaxAttempts       int       `json:"max_attempts"`
}

type pendingData struct {
	RequestID         string    `json:"request_id"`
	ExpiresAt         time.Time `json:"expires_at"`
	RemainingAttempts int       `json:"remaining_attempts"`
	Expired           bool      `json:"expired"`
}

type statusData struct {
	Email    string       `json:"email"`
	Verified bool         `json:"verified"`
	Pending  *pendingData `json:"pending"`
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

func requestCode(t *testing.T, email string) requestCodeData {
	t.Helper()

	status, body := doJSON(t, http.MethodPost, "/api/v1/verification/code", map[string]string{"email": email}, "")
	if status != http.StatusAccepted {
		errEnv := decodeError(t, body)
		t.Fatalf("request code failed: status=%d message=%q", status, errEnv.Message)
	}

	var data requestCodeData
	decodeSuccess(t, body, &data)

	return data
}

// adminToken mints a token the server accepts. The subject must be listed in authz.admins.
func adminToken(t *testing.T) string {
	t.Helper()

	secret := os.Getenv("VERIFY_JWT_SECRET")
	if secret == "" {
		t.Skip("VERIFY_JWT_SECRET is not set")
	}

	subject := int64(1)
	if v := os.Getenv("VERIFY_ADMIN_UID"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			t.Fatalf("parse VERIFY_ADMIN_UID: %v", err)
		}
		subject = parsed
	}

	var audiences []string
	for _, aud := range strings.Split(os.Getenv("VERIFY_JWT_AUDIENCES"), ",") {
		if aud = strings.TrimSpace(aud); aud != "" {
			audiences = append(audiences, aud)
		}
	}

	signer, err := jwt.NewHS512(jwt.Config{
		Secret:     []byte(secret),
		Issuer:     os.Getenv("VERIFY_JWT_ISSUER"),
		Audiences:  audiences,
		TTL:        5 * time.Minute,
		Clock:      clock.New(),
		UUID:       uid.NewUUID(),
	})
	if err != nil {
		t.Fatalf("init jwt: %v", err)
	}

	token, err := signer.Generate(subject, "admin@example.com")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	return token
}
