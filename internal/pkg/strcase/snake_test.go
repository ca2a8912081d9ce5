package strcase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToLowerSnake(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"Email":             "email",
		"RequestID":         "request_id",
		"HTTPStatus":        "http_status",
		"MaxAttempts":       "max_attempts",
		"Code2FA":           "code2_fa",
		"already_snake":     "already_snake",
		"ResendAvailableAt": "resend_available_at",
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ToLowerSnake(in))
		})
	}
}
