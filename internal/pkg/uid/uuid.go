package uid

import "github.com/google/uuid"

// UUID generates time-ordered version 7 UUID strings with an optional prefix.
type UUID struct {
	prefix string
}

// UUIDOption configures a UUID generator.
type UUIDOption func(*UUID)

// WithPrefix prepends p to every generated id, e.g. "vr_0192...".
func WithPrefix(p string) UUIDOption {
	return func(u *UUID) { u.prefix = p }
}

// NewUUID returns a UUID generator.
func NewUUID(opts ...UUIDOption) *UUID {
	u := &UUID{}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Generate returns a new id. It degrades to a random version 4 UUID when
// the monotonic source fails.
func (u *UUID) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return u.prefix + id.String()
}

