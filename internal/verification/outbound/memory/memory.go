// Package memory keeps verification state in process memory. It serves local
// development and tests; state is lost on restart and is not shared between
// replicas.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/entity"
)

type clocker interface {
	Now() time.Time
}

// Store serializes every operation behind one mutex.
type Store struct {
	clock clocker

	mu       sync.Mutex
	requests map[string]entity.VerificationRequest
	verified map[string]time.Time
	logs     []entity.DeliveryLog
}

func NewStore(clock clocker) *Store {
	return &Store{
		clock:    clock,
		requests: make(map[string]entity.VerificationRequest),
		verified: make(map[string]time.Time),
	}
}

func (s *Store) Put(_ context.Context, req entity.VerificationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[req.Recipient] = req
	return nil
}

func (s *Store) Get(_ context.Context, recipient string) (*entity.VerificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[recipient]
	if !ok {
		return nil, goerror.ErrNotFound
	}

	if req.Expired(s.clock.Now()) {
		delete(s.requests, recipient)
		return nil, entity.ErrRequestExpired
	}

	return &req, nil
}

func (s *Store) Peek(_ context.Context, recipient string) (*entity.VerificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[recipient]
	if !ok {
		return nil, goerror.ErrNotFound
	}

	return &req, nil
}

func (s *Store) Consume(_ context.Context, recipient, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[recipient]
	if !ok || req.ID != id {
		return false, nil
	}

	delete(s.requests, recipient)
	return true, nil
}

func (s *Store) DecrementAttempts(_ context.Context, recipient, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[recipient]
	if !ok || req.ID != id {
		return 0, goerror.ErrNotFound
	}

	if req.RemainingAttempts > 0 {
		req.RemainingAttempts--
		s.requests[recipient] = req
	}
	return req.RemainingAttempts, nil
}

// MarkRecipientVerified keeps the first verification time.
func (s *Store) MarkRecipientVerified(_ context.Context, recipient string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.verified[recipient]; !ok {
		s.verified[recipient] = at
	}
	return nil
}

func (s *Store) GetRecipientStatus(_ context.Context, recipient string) (*entity.RecipientStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.verified[recipient]
	if !ok {
		return nil, goerror.ErrNotFound
	}

	return &entity.RecipientStatus{Recipient: recipient, Verified: true, VerifiedAt: &at}, nil
}

func (s *Store) CreateDeliveryLog(_ context.Context, dl entity.DeliveryLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.logs {
		if l.ID == dl.ID {
			return goerror.ErrConflict
		}
	}

	s.logs = append(s.logs, dl)
	return nil
}

func (s *Store) UpdateDeliveryLog(_ context.Context, up entity.UpdateDeliveryLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.logs {
		if s.logs[i].ID != up.ID {
			continue
		}
		s.logs[i].Status = up.Status
		s.logs[i].MessageID = up.MessageID
		s.logs[i].ErrorMessage = up.ErrorMessage
		s.logs[i].UpdatedAt = up.UpdatedAt
		return nil
	}

	return goerror.ErrNotFound
}

// ListDeliveryLogs returns the newest logs first. An empty recipient matches all.
func (s *Store) ListDeliveryLogs(_ context.Context, recipient string, limit int32) ([]entity.DeliveryLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.DeliveryLog, 0, len(s.logs))
	for _, l := range s.logs {
		if recipient == "" || l.Recipient == recipient {
			out = append(out, l)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}

	return out, nil
}
