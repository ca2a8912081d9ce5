package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/notification/entity"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/clock"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/instrument"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/mail"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/validator"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/emailtemplate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqUID struct {
	mu sync.Mutex
	n  int64
}

func (s *seqUID) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}

type fakeDB struct {
	mu        sync.Mutex
	created   []entity.DeliveryLog
	updated   []entity.UpdateDeliveryLog
	sent      bool
	createErr error
	checkErr  error
}

func (f *fakeDB) CreateDeliveryLog(_ context.Context, dl entity.DeliveryLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, dl)
	return nil
}

func (f *fakeDB) UpdateDeliveryLog(_ context.Context, up entity.UpdateDeliveryLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, up)
	return nil
}

func (f *fakeDB) HasSentDeliveryLog(context.Context, string, string, string) (bool, error) {
	return f.sent, f.checkErr
}

type fakeMail struct {
	msgs []mail.Message
	err  error
}

func (f *fakeMail) Provider() string { return "smtp" }

func (f *fakeMail) Send(_ context.Context, msg mail.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.msgs = append(f.msgs, msg)
	return "<msg-1@example.com>", nil
}

func newUsecase(t *testing.T, db *fakeDB, m *fakeMail) *Usecase {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	tpl, err := emailtemplate.New(map[string]any{
		"company_name":  "Admin Pro",
		"support_email": "support@example.com",
		"year":          "2026",
	})
	require.NoError(t, err)

	return NewNotification(Dependency{
		RepoDB:     db,
		RepoMail:   m,
		Templates:  tpl,
		UID:        &seqUID{},
		Clock:      clock.NewFake(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)),
		Validator:  v,
		Instrument: instrument.NewNoop(),
	})
}

func TestUsecase_ConsumeRecipientVerified(t *testing.T) {
	in := ConsumeRecipientVerifiedInput{
		Email:      "user@example.com",
		RequestID:  "req-1",
		VerifiedAt: time.Date(2026, 10, 15, 8, 59, 0, 0, time.UTC),
	}

	t.Run("SendsWelcome", func(t *testing.T) {
		db, m := &fakeDB{}, &fakeMail{}
		uc := newUsecase(t, db, m)

		require.NoError(t, uc.ConsumeRecipientVerified(context.Background(), in))

		require.Len(t, m.msgs, 1)
		assert.Equal(t, []string{"user@example.com"}, m.msgs[0].To)
		assert.Equal(t, "Welcome to Admin Pro", m.msgs[0].Subject)
		assert.Contains(t, m.msgs[0].TextBody, "user@example.com has been verified")
		assert.Contains(t, m.msgs[0].HTMLBody, "Welcome to Admin Pro!")

		require.Len(t, db.created, 1)
		assert.Equal(t, entity.DeliveryStatusQueued, db.created[0].Status)
		assert.Equal(t, "welcome", db.created[0].Template)
		assert.Equal(t, "smtp", db.created[0].Provider)
		assert.Equal(t, "req-1", db.created[0].Metadata.GetString(entity.MetaRequestID))
		assert.Equal(t, "recipient_verified", db.created[0].Metadata.GetString(entity.MetaEvent))

		require.Len(t, db.updated, 1)
		assert.Equal(t, db.created[0].ID, db.updated[0].ID)
		assert.Equal(t, entity.DeliveryStatusSent, db.updated[0].Status)
		assert.Equal(t, "<msg-1@example.com>", db.updated[0].MessageID)
	})

	t.Run("AlreadySent", func(t *testing.T) {
		db, m := &fakeDB{sent: true}, &fakeMail{}
		uc := newUsecase(t, db, m)

		require.NoError(t, uc.ConsumeRecipientVerified(context.Background(), in))
		assert.Empty(t, m.msgs)
		assert.Empty(t, db.created)
	})

	t.Run("CheckFailureStillSends", func(t *testing.T) {
		db, m := &fakeDB{checkErr: errors.New("db down")}, &fakeMail{}
		uc := newUsecase(t, db, m)

		require.NoError(t, uc.ConsumeRecipientVerified(context.Background(), in))
		assert.Len(t, m.msgs, 1)
	})

	t.Run("InvalidPayloadDropped", func(t *testing.T) {
		db, m := &fakeDB{}, &fakeMail{}
		uc := newUsecase(t, db, m)

		require.NoError(t, uc.ConsumeRecipientVerified(context.Background(), ConsumeRecipientVerifiedInput{Email: "nope"}))
		assert.Empty(t, m.msgs)
		assert.Empty(t, db.created)
	})

	t.Run("SendFailureReturned", func(t *testing.T) {
		sendErr := errors.New("smtp down")
		db, m := &fakeDB{}, &fakeMail{err: sendErr}
		uc := newUsecase(t, db, m)

		err := uc.ConsumeRecipientVerified(context.Background(), in)
		require.ErrorIs(t, err, sendErr)

		require.Len(t, db.updated, 1)
		assert.Equal(t, entity.DeliveryStatusFailed, db.updated[0].Status)
		assert.Equal(t, "smtp down", db.updated[0].ErrorMessage)
	})

	t.Run("LogFailureStillSends", func(t *testing.T) {
		db, m := &fakeDB{createErr: goerror.ErrConflict}, &fakeMail{}
		uc := newUsecase(t, db, m)

		require.NoError(t, uc.ConsumeRecipientVerified(context.Background(), in))
		assert.Len(t, m.msgs, 1)
		assert.Empty(t, db.updated)
	})
}
