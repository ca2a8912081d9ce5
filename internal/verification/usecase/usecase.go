package usecase

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/clock"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/config"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/hash"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/instrument"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/jwt"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/keylock"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/uid"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/validator"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/emailtemplate"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type RecipientVerifiedEvent struct {
	Recipient  string
	RequestID  string
	VerifiedAt time.Time
}

// repoStore holds at most one pending request per recipient. Get removes an
// expired request and reports entity.ErrRequestExpired; Peek never mutates.
// Consume and DecrementAttempts only touch the request whose ID matches.
type repoStore interface {
	Put(ctx context.Context, req entity.VerificationRequest) error
	Get(ctx context.Context, recipient string) (*entity.VerificationRequest, error)
	Peek(ctx context.Context, recipient string) (*entity.VerificationRequest, error)
	Consume(ctx context.Context, recipient, id string) (bool, error)
	DecrementAttempts(ctx context.Context, recipient, id string) (int, error)
}

type repoDB interface {
	MarkRecipientVerified(ctx context.Context, recipient string, at time.Time) error
	GetRecipientStatus(ctx context.Context, recipient string) (*entity.RecipientStatus, error)

	CreateDeliveryLog(ctx context.Context, dl entity.DeliveryLog) error
	UpdateDeliveryLog(ctx context.Context, up entity.UpdateDeliveryLog) error
	ListDeliveryLogs(ctx context.Context, recipient string, limit int32) ([]entity.DeliveryLog, error)
}

type repoGateway interface {
	Provider() string
	Send(ctx context.Context, email entity.Email) (string, error)
}

type repoMessaging interface {
	PublishRecipientVerified(ctx context.Context, msg RecipientVerifiedEvent) error
}

type renderer interface {
	Render(name emailtemplate.Name, data map[string]any) (emailtemplate.Rendered, error)
}

type enforcer interface {
	Enforce(rvals ...any) (bool, error)
}

type Usecase struct {
	repoStore     repoStore
	repoDB        repoDB
	repoGateway   repoGateway
	repoMessaging repoMessaging
	templates     renderer
	locker        keylock.Locker
	generator     *Generator
	validator     validator.Validator
	cfg           config.Config
	hmac          hash.Hash
	uid           uid.NumberID
	uuid          uid.StringID
	clock         clock.Clocker
	ins           instrument.Instrumentation
	enforcer      enforcer

	requestedCounter metric.Int64Counter
	submittedCounter metric.Int64Counter
}

type Dependency struct {
	RepoStore     repoStore
	RepoDB        repoDB
	RepoGateway   repoGateway
	RepoMessaging repoMessaging
	Templates     renderer
	Locker        keylock.Locker
	Generator     *Generator
	Validator     validator.Validator
	Config        config.Config
	HMAC          hash.Hash
	UID           uid.NumberID
	UUID          uid.StringID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Enforcer      enforcer
}

func New(dep Dependency) *Usecase {
	gen := dep.Generator
	if gen == nil {
		gen = NewGenerator(nil)
	}

	s := &Usecase{
		repoStore:     dep.RepoStore,
		repoDB:        dep.RepoDB,
		repoGateway:   dep.RepoGateway,
		repoMessaging: dep.RepoMessaging,
		templates:     dep.Templates,
		locker:        dep.Locker,
		generator:     gen,
		validator:     dep.Validator,
		cfg:           dep.Config,
		hmac:          dep.HMAC,
		uid:           dep.UID,
		uuid:          dep.UUID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		enforcer:      dep.Enforcer,
	}

	meter := dep.Instrument.Meter("verification.usecase")
	var err error
	s.requestedCounter, err = meter.Int64Counter("verification.code.requested", metric.WithDescription("Number of code requests by result"))
	if err != nil {
		slog.Error("failed to create code requested counter", "error", err)
	}
	s.submittedCounter, err = meter.Int64Counter("verification.code.submitted", metric.WithDescription("Number of code submissions by result"))
	if err != nil {
		slog.Error("failed to create code submitted counter", "error", err)
	}

	return s
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("verification.usecase").Start(ctx, name)
}

func (s *Usecase) count(ctx context.Context, c metric.Int64Counter, result string) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

type settings struct {
	ttl            time.Duration
	cooldown       time.Duration
	maxAttempts    int
	lockTTL        time.Duration
	storeTimeout   time.Duration
	gatewayTimeout time.Duration
}

func (s *Usecase) settings() settings {
	st := settings{
		ttl:            s.cfg.GetMinute("modules.verification.code_ttl_minutes"),
		cooldown:       s.cfg.GetSecond("modules.verification.resend_cooldown_seconds"),
		maxAttempts:    s.cfg.GetInt("modules.verification.max_attempts"),
		lockTTL:        s.cfg.GetSecond("modules.verification.lock_seconds"),
		storeTimeout:   s.cfg.GetSecond("modules.verification.store.timeout_seconds"),
		gatewayTimeout: s.cfg.GetSecond("modules.verification.gateway.timeout_seconds"),
	}
	if st.ttl <= 0 {
		st.ttl = 15 * time.Minute
	}
	if st.cooldown < 0 {
		st.cooldown = 0
	}
	if st.maxAttempts <= 0 {
		st.maxAttempts = 3
	}
	if st.lockTTL <= 0 {
		st.lockTTL = 10 * time.Second
	}
	if st.storeTimeout <= 0 {
		st.storeTimeout = 3 * time.Second
	}
	if st.gatewayTimeout <= 0 {
		st.gatewayTimeout = 5 * time.Second
	}
	return st
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// toError converts a verification failure into the application error that the
// HTTP layer renders. The original *entity.Error stays reachable via errors.As.
func toError(verr *entity.Error) error {
	switch verr.Kind {
	case entity.KindCooldownActive:
		return goerror.NewBusinessWrap(verr, "Please wait before requesting a new code", goerror.CodeTooManyRequest,
			"seconds_remaining", strconv.Itoa(verr.SecondsRemaining))
	case entity.KindInvalidCode:
		return goerror.NewBusinessWrap(verr, "Invalid verification code", goerror.CodeUnauthorized,
			"attempts_remaining", strconv.Itoa(verr.AttemptsRemaining))
	case entity.KindExpired:
		return goerror.NewBusinessWrap(verr, "Verification code has expired, please request a new one", goerror.CodeGone)
	case entity.KindAttemptsExhausted:
		return goerror.NewBusinessWrap(verr, "Too many invalid attempts, please request a new code", goerror.CodeGone)
	case entity.KindNoPendingRequest:
		return goerror.NewBusinessWrap(verr, "No pending verification request", goerror.CodeNotFound)
	case entity.KindDeliveryFailed:
		return goerror.NewBusinessWrap(verr, "Failed to deliver verification code", goerror.CodeBadGateway)
	case entity.KindStorageUnavailable:
		return goerror.NewBusinessWrap(verr, "Verification service is temporarily unavailable", goerror.CodeUnavailable)
	default:
		return goerror.NewServer(verr)
	}
}

func (s *Usecase) authenticatedAndAuthorized(ctx context.Context, obj, act string) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	ok, err := s.enforcer.Enforce(clm.Operator(), obj, act)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check authorization", "operator", clm.Operator(), "error", err)
		return nil, goerror.NewServer(err)
	}

	if !ok {
		return nil, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
	}

	return clm, nil
}
