package emailtemplate

import (
	"context"
	"testing"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource map[string]string

func (f fakeSource) ReadObject(_ context.Context, key string) ([]byte, storage.ObjectInfo, error) {
	v, ok := f[key]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return []byte(v), storage.ObjectInfo{Key: key}, nil
}

func TestRegistry_Render(t *testing.T) {
	r, err := New(map[string]any{"company_name": "Admin Pro", "support_email": "support@adminpro.test", "year": "2026"})
	require.NoError(t, err)

	out, err := r.Render(VerificationCode, map[string]any{"code": "012345", "expires_in_minutes": 15, "max_attempts": 3})
	require.NoError(t, err)
	assert.Equal(t, "Your Verification Code", out.Subject)
	assert.Equal(t, VerificationCode, out.Template)
	assert.Contains(t, out.HTML, "012345")
	assert.Contains(t, out.HTML, "expires in 15 minutes")
	assert.Contains(t, out.Text, "verification code is: 012345")

	out, err = r.Render(Welcome, map[string]any{"email": "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome to Admin Pro", out.Subject)
	assert.Contains(t, out.Text, "a@b.com")

	_, err = r.Render("reset_password", nil)
	require.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestRegistry_RenderEscapesHTML(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	out, err := r.Render(Welcome, map[string]any{"email": "<script>x</script>@b.com"})
	require.NoError(t, err)
	assert.NotContains(t, out.HTML, "<script>")
	assert.Contains(t, out.Text, "<script>")
}

func TestRegistry_LoadOverrides(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	src := fakeSource{
		"email/welcome.html":           "<p>Hi {{.email}}</p>",
		"email/welcome.txt":            "Hi {{.email}}",
		"email/verification_code.html": "<p>{{.code}</p>",
		"email/verification_code.txt":  "{{.code}}",
	}

	assert.Equal(t, 1, r.LoadOverrides(context.Background(), src, "email"))

	out, err := r.Render(Welcome, map[string]any{"email": "a@b.com"})
	require.NoError(t, err)
	assert.Equal(t, "<p>Hi a@b.com</p>", out.HTML)

	// broken override keeps the embedded copy
	out, err = r.Render(VerificationCode, map[string]any{"code": "111111"})
	require.NoError(t, err)
	assert.Contains(t, out.Text, "verification code is: 111111")
}
