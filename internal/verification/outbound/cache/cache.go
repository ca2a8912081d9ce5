package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/instrument"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/entity"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyPrefix = "verification:request:"

const (
	fieldID        = "id"
	fieldCodeHash  = "code_hash"
	fieldIssuedAt  = "issued_at"
	fieldExpiresAt = "expires_at"
	fieldRemaining = "remaining"
)

// consumeScript deletes the request only when it is still the one identified by ARGV[1].
var consumeScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "id") == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// decrementScript returns the remaining attempts after decrementing with a
// floor of zero, or nil when the request identified by ARGV[1] is gone.
var decrementScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "id") ~= ARGV[1] then
	return false
end
local remaining = tonumber(redis.call("HGET", KEYS[1], "remaining")) or 0
if remaining > 0 then
	return redis.call("HINCRBY", KEYS[1], "remaining", -1)
end
return 0
`)

type clocker interface {
	Now() time.Time
}

// Store keeps one hash per recipient. A key outlives its expiry by the
// retention window so an expired code can still be told apart from a missing one.
type Store struct {
	client    redis.UniversalClient
	clock     clocker
	ins       instrument.Instrumentation
	retention time.Duration
}

func NewStore(client redis.UniversalClient, clock clocker, ins instrument.Instrumentation, retention time.Duration) *Store {
	return &Store{client: client, clock: clock, ins: ins, retention: retention}
}

func (s *Store) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("verification.outbound.cache").Start(ctx, name)
}

func (s *Store) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, entity.ErrRequestExpired) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func key(recipient string) string {
	return keyPrefix + recipient
}

func (s *Store) Put(ctx context.Context, req entity.VerificationRequest) (err error) {
	ctx, span := s.startSpan(ctx, "Put")
	defer func() { s.endSpan(span, err) }()

	k := key(req.Recipient)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			fieldID, req.ID,
			fieldCodeHash, req.CodeHash,
			fieldIssuedAt, req.IssuedAt.UnixNano(),
			fieldExpiresAt, req.ExpiresAt.UnixNano(),
			fieldRemaining, req.RemainingAttempts,
		)
		pipe.PExpireAt(ctx, k, req.ExpiresAt.Add(s.retention))
		return nil
	})
	return err
}

// Get returns the pending request. An expired request is removed and reported
// as entity.ErrRequestExpired.
func (s *Store) Get(ctx context.Context, recipient string) (_ *entity.VerificationRequest, err error) {
	ctx, span := s.startSpan(ctx, "Get")
	defer func() { s.endSpan(span, err) }()

	req, err := s.read(ctx, recipient)
	if err != nil {
		return nil, err
	}

	if req.Expired(s.clock.Now()) {
		if err := consumeScript.Run(ctx, s.client, []string{key(recipient)}, req.ID).Err(); err != nil {
			return nil, err
		}
		return nil, entity.ErrRequestExpired
	}

	return req, nil
}

func (s *Store) Peek(ctx context.Context, recipient string) (_ *entity.VerificationRequest, err error) {
	ctx, span := s.startSpan(ctx, "Peek")
	defer func() { s.endSpan(span, err) }()

	return s.read(ctx, recipient)
}

func (s *Store) Consume(ctx context.Context, recipient, id string) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "Consume")
	defer func() { s.endSpan(span, err) }()

	n, err := consumeScript.Run(ctx, s.client, []string{key(recipient)}, id).Int()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (s *Store) DecrementAttempts(ctx context.Context, recipient, id string) (_ int, err error) {
	ctx, span := s.startSpan(ctx, "DecrementAttempts")
	defer func() { s.endSpan(span, err) }()

	n, err := decrementScript.Run(ctx, s.client, []string{key(recipient)}, id).Int()
	if errors.Is(err, redis.Nil) {
		return 0, goerror.ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	return n, nil
}

func (s *Store) read(ctx context.Context, recipient string) (*entity.VerificationRequest, error) {
	fields, err := s.client.HGetAll(ctx, key(recipient)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 || fields[fieldID] == "" {
		return nil, goerror.ErrNotFound
	}

	return decode(recipient, fields)
}

func decode(recipient string, fields map[string]string) (*entity.VerificationRequest, error) {
	issuedAt, err := strconv.ParseInt(fields[fieldIssuedAt], 10, 64)
	if err != nil {
		return nil, err
	}
	expiresAt, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, err
	}
	remaining, err := strconv.Atoi(fields[fieldRemaining])
	if err != nil {
		return nil, err
	}

	return &entity.VerificationRequest{
		ID:                fields[fieldID],
		Recipient:         recipient,
		CodeHash:          fields[fieldCodeHash],
		IssuedAt:          time.Unix(0, issuedAt).UTC(),
		ExpiresAt:         time.Unix(0, expiresAt).UTC(),
		RemainingAttempts: remaining,
	}, nil
}
