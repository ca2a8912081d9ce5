package mail

import (
	"errors"
	"strings"
)

// Driver names a Mail implementation.
type Driver string

const (
	// DriverSMTP sends through an SMTP relay.
	DriverSMTP Driver = "smtp"
	// DriverBrevo sends through the Brevo HTTP API.
	DriverBrevo Driver = "brevo"
)

// ErrUnsupportedDriver is returned when the driver is unknown.
var ErrUnsupportedDriver = errors.New("mail: unsupported driver")

// FactoryOptions holds the per-driver configuration used by NewFromDriver.
type FactoryOptions struct {
	SMTP  SMTPConfig
	Brevo BrevoConfig
}

// ParseDriver normalizes a configured driver name. An empty name selects SMTP.
func ParseDriver(s string) Driver {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DriverSMTP
	}
	return Driver(s)
}

// NewFromDriver builds a Mail implementation for the selected driver.
func NewFromDriver(driver Driver, opts FactoryOptions) (Mail, error) {
	switch driver {
	case DriverSMTP:
		return NewSMTP(opts.SMTP)
	case DriverBrevo:
		return NewBrevo(opts.Brevo)
	default:
		return nil, ErrUnsupportedDriver
	}
}
