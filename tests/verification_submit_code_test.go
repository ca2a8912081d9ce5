package tests

import (
	"net/http"
	"testing"
)

func TestRealVerificationSubmitCodeWithoutRequest(t *testing.T) {
	payload := map[string]string{"email": uniqueEmail("real-none"), "code": "123456"}

	status, _ := doJSON(t, http.MethodPost, "/api/v1/verification/verify", payload, "")
	if status != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, status)
	}
}

func TestRealVerificationSubmitCodeMalformed(t *testing.T) {
	email := uniqueEmail("real-malformed")
	requestCode(t, email)

	status, body := doJSON(t, http.MethodPost, "/api/v1/verification/verify", map[string]string{"email": email, "code": "12ab"}, "")
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, status)
	}

	errEnv := decodeError(t, body)
	if errEnv.Error["code"] == "" {
		t.Fatal("expected code validation error")
	}
}

func TestRealVerificationSubmitCodeExhausted(t *testing.T) {
	email := uniqueEmail("real-wrong")
	data := requestCode(t, email)

	// a random six digit code matches one of these with negligible probability
	wrong := []string{"000000", "999999", "123450", "543210", "111111"}
	if data.MaxAttempts > len(wrong) {
		t.Skipf("max attempts %d exceeds prepared codes", data.MaxAttempts)
	}

	for i := 0; i < data.MaxAttempts; i++ {
		payload := map[string]string{"email": email, "code": wrong[i]}
		status, body := doJSON(t, http.MethodPost, "/api/v1/verification/verify", payload, "")

		if i < data.MaxAttempts-1 {
			if status != http.StatusUnauthorized {
				t.Fatalf("attempt %d: expected status %d, got %d", i+1, http.StatusUnauthorized, status)
			}
			if decodeError(t, body).Error["attempts_remaining"] == "" {
				t.Fatalf("attempt %d: expected attempts_remaining", i+1)
			}
			continue
		}

		if status != http.StatusGone {
			t.Fatalf("final attempt: expected status %d, got %d", http.StatusGone, status)
		}
	}

	// the exhausted request is gone and a fresh code may be requested
	status, _ := doJSON(t, http.MethodPost, "/api/v1/verification/verify", map[string]string{"email": email, "code": "000000"}, "")
	if status != http.StatusNotFound {
		t.Fatalf("expected status %d after exhaustion, got %d", http.StatusNotFound, status)
	}
}
