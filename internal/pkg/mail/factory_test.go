package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDriver(t *testing.T) {
	assert.Equal(t, DriverSMTP, ParseDriver(""))
	assert.Equal(t, DriverBrevo, ParseDriver(" Brevo "))
	assert.Equal(t, Driver("ses"), ParseDriver("ses"))
}

func TestNewFromDriver(t *testing.T) {
	t.Run("SMTP", func(t *testing.T) {
		m, err := NewFromDriver(DriverSMTP, FactoryOptions{SMTP: SMTPConfig{Host: "localhost", Port: 1025}})
		require.NoError(t, err)
		assert.IsType(t, &SMTP{}, m)
	})

	t.Run("SMTPMissingHost", func(t *testing.T) {
		_, err := NewFromDriver(DriverSMTP, FactoryOptions{})
		assert.ErrorIs(t, err, ErrSMTPHostPortRequired)
	})

	t.Run("Brevo", func(t *testing.T) {
		m, err := NewFromDriver(DriverBrevo, FactoryOptions{Brevo: BrevoConfig{APIKey: "key"}})
		require.NoError(t, err)
		assert.IsType(t, &Brevo{}, m)
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := NewFromDriver("ses", FactoryOptions{})
		assert.ErrorIs(t, err, ErrUnsupportedDriver)
	})
}
