package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submitInput struct {
	Email string `validate:"required,email,mailbox"`
	Code  string `validate:"required,otpcode"`
}

func TestV10Validator_Validate(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	var _ Validator = v

	tests := []struct {
		name    string
		in      submitInput
		wantErr map[string]string
	}{
		{
			name: "valid",
			in:   submitInput{Email: "a@b.com", Code: "012345"},
		},
		{
			name:    "code too short",
			in:      submitInput{Email: "a@b.com", Code: "12345"},
			wantErr: map[string]string{"code": "Code must be exactly 6 digits"},
		},
		{
			name:    "code not digits",
			in:      submitInput{Email: "a@b.com", Code: "12a456"},
			wantErr: map[string]string{"code": "Code must be exactly 6 digits"},
		},
		{
			name:    "code with unicode digits",
			in:      submitInput{Email: "a@b.com", Code: "١٢٣٤٥٦"},
			wantErr: map[string]string{"code": "Code must be exactly 6 digits"},
		},
		{
			name:    "display name is not a mailbox",
			in:      submitInput{Email: "Jane <jane@example.com>", Code: "012345"},
			wantErr: map[string]string{"email": "Email must be a valid email address"},
		},
		{
			name:    "dotless domain",
			in:      submitInput{Email: "root@localhost", Code: "012345"},
			wantErr: map[string]string{"email": "Email must be a deliverable email address"},
		},
		{
			name:    "bad email and missing code",
			in:      submitInput{Email: "not-an-email"},
			wantErr: map[string]string{"email": "Email must be a valid email address", "code": "Code is a required field"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.in)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			var verr V10ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantErr, verr.Values())
		})
	}
}

func TestV10ValidationError_Error(t *testing.T) {
	assert.Equal(t, "validation error", V10ValidationError{}.Error())
	assert.JSONEq(t, `{"code":"bad"}`, V10ValidationError{"code": "bad"}.Error())
}

func TestRules_Mailbox(t *testing.T) {
	var mailbox rule
	for _, r := range rules {
		if r.tag == "mailbox" {
			mailbox = r
		}
	}
	require.NotNil(t, mailbox.check)

	assert.True(t, mailbox.check("jane@example.com"))
	assert.False(t, mailbox.check("@example.com"))
	assert.False(t, mailbox.check("jane@example"))
	assert.False(t, mailbox.check(strings.Repeat("a", 250)+"@x.io"))
}
