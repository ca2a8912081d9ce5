package instrument

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureHandler struct {
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func attrs(r slog.Record) map[string]slog.Value {
	out := map[string]slog.Value{}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value
		return true
	})
	return out
}

func TestCorrelationID(t *testing.T) {
	assert.Empty(t, GetCorrelationID(context.Background()))

	ctx := SetCorrelationID(context.Background(), "cid-1")
	assert.Equal(t, "cid-1", GetCorrelationID(ctx))
}

func TestContextHandler_AddsCorrelationID(t *testing.T) {
	capture := &captureHandler{}
	logger := slog.New(&contextHandler{Handler: capture, serviceName: "verification"})

	logger.InfoContext(SetCorrelationID(context.Background(), "cid-2"), "code requested")

	require.Len(t, capture.records, 1)
	got := attrs(capture.records[0])
	assert.Equal(t, "cid-2", got["_cID"].String())
	assert.Equal(t, "verification", got["service"].String())
}

func TestRedactHandler(t *testing.T) {
	capture := &captureHandler{}
	logger := slog.New(&redactHandler{
		next:     capture,
		redactor: newRedactor([]string{" Code ", "api-key", ""}, []string{"recipient", "email"}),
	})

	logger.Info("sending",
		"code", "123456",
		"recipient", "jane@example.com",
		"body", `{"email":"bob@example.com","code":"654321"}`,
		"headers", map[string]string{"api-key": "secret"},
		"attempt", 2,
	)

	require.Len(t, capture.records, 1)
	got := attrs(capture.records[0])
	assert.Equal(t, "***", got["code"].String())
	assert.Equal(t, "j***@example.com", got["recipient"].String())
	assert.JSONEq(t, `{"email":"b***@example.com","code":"***"}`, got["body"].String())
	assert.Equal(t, map[string]any{"api-key": "***"}, got["headers"].Any())
	assert.Equal(t, int64(2), got["attempt"].Int64())
}

func TestRedactHandler_SecretWinsOverEmail(t *testing.T) {
	r := newRedactor([]string{"email"}, []string{"email"})
	assert.Equal(t, "***", r.attr(slog.String("email", "a@b.c")).Value.String())
}

func TestMaskEmail(t *testing.T) {
	tests := map[string]string{
		"jane@example.com": "j***@example.com",
		"é@example.com":    "é***@example.com",
		"not-an-email":     "***",
		"@example.com":     "***",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, MaskEmail(in))
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestRenameAttr(t *testing.T) {
	src := &slog.Source{File: "/app/internal/verification/usecase/request_code.go", Line: 42}
	got := renameAttr(nil, slog.Any(slog.SourceKey, src))
	assert.Equal(t, "file", got.Key)
	assert.Equal(t, "internal/verification/usecase/request_code.go:42", got.Value.String())

	assert.Equal(t, slog.Attr{}, renameAttr(nil, slog.Any(slog.SourceKey, &slog.Source{File: "/go/pkg/mod/x.go"})))
	assert.Equal(t, "severity", renameAttr(nil, slog.Any(slog.LevelKey, slog.LevelInfo)).Key)
}

func TestFanout(t *testing.T) {
	a, b := &captureHandler{}, &captureHandler{}
	slog.New(fanout{a, b}).Info("delivered")

	assert.Len(t, a.records, 1)
	assert.Len(t, b.records, 1)
}

func TestNew_DisabledReturnsNoop(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	ins, err := New(context.Background(), &Config{Enabled: false, ServiceName: "verification", LogLevel: "debug"})
	require.NoError(t, err)

	_, span := ins.Tracer("test").Start(context.Background(), "noop")
	span.End()
	assert.NoError(t, ins.Shutdown(context.Background()))
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
}
